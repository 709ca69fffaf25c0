package storage

import (
	"context"
	"errors"
	"testing"

	"sunnydapp/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStore_AtomicCommit(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	require.NoError(t, store.Put(ctx, "balance/a", []byte("5")))

	err := store.Atomic(ctx, func(kv KV) error {
		if err := kv.Put(ctx, "balance/b", []byte("7")); err != nil {
			return err
		}
		if err := kv.Delete(ctx, "balance/a"); err != nil {
			return err
		}

		// the unit sees its own writes
		_, err := kv.Get(ctx, "balance/a")
		assert.ErrorIs(t, err, ErrNotFound)
		scanned, err := kv.Scan(ctx, "balance/")
		require.NoError(t, err)
		assert.Equal(t, map[string][]byte{"balance/b": []byte("7")}, scanned)
		return nil
	})
	require.NoError(t, err)

	_, err = store.Get(ctx, "balance/a")
	assert.ErrorIs(t, err, ErrNotFound)
	value, err := store.Get(ctx, "balance/b")
	require.NoError(t, err)
	assert.Equal(t, []byte("7"), value)
}

func TestMemoryStore_AtomicRollback(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	require.NoError(t, store.Put(ctx, "supply", []byte("10")))

	boom := errors.New("boom")
	err := store.Atomic(ctx, func(kv KV) error {
		require.NoError(t, kv.Put(ctx, "supply", []byte("20")))
		require.NoError(t, kv.Put(ctx, "balance/x", []byte("20")))
		return boom
	})
	assert.ErrorIs(t, err, boom)

	value, err := store.Get(ctx, "supply")
	require.NoError(t, err)
	assert.Equal(t, []byte("10"), value)
	_, err = store.Get(ctx, "balance/x")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestRepository_ConfigUsesFlatKeys(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	repo := NewRepository(store)

	_, err := repo.GetConfig(ctx)
	assert.ErrorIs(t, err, ErrNotFound)

	cfg := &models.GlobalConfig{DappName: "SunnyDapp", Oracle: "GORACLE", TimeMargin: 5, MinTime: 3700, MaxTime: 9000}
	require.NoError(t, repo.SaveConfig(ctx, cfg))

	for _, key := range []string{"dapp_name", "oracle", "time_margin", "min_time", "max_time"} {
		_, err := store.Get(ctx, key)
		assert.NoError(t, err, key)
	}
	raw, err := store.Get(ctx, "min_time")
	require.NoError(t, err)
	assert.Equal(t, "3700", string(raw))

	got, err := repo.GetConfig(ctx)
	require.NoError(t, err)
	assert.Equal(t, cfg, got)
}

func TestRepository_AgreementsAndBalances(t *testing.T) {
	ctx := context.Background()
	repo := NewRepository(NewMemoryStore())

	exists, err := repo.AgreementExists(ctx, "A1")
	require.NoError(t, err)
	assert.False(t, exists)

	require.NoError(t, repo.SaveAgreement(ctx, &models.Agreement{Key: "B2", Status: models.StatusPending, Locked: 3}))
	require.NoError(t, repo.SaveAgreement(ctx, &models.Agreement{Key: "A1", Status: models.StatusClaimed}))

	list, err := repo.ListAgreements(ctx)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "A1", list[0].Key)
	assert.Equal(t, int64(3), list[1].Locked)

	require.NoError(t, repo.DeleteAgreement(ctx, "A1"))
	_, err = repo.GetAgreement(ctx, "A1")
	assert.ErrorIs(t, err, ErrNotFound)

	balance, err := repo.GetBalance(ctx, "GNOBODY")
	require.NoError(t, err)
	assert.Equal(t, int64(0), balance)

	require.NoError(t, repo.SetBalance(ctx, "GA", 12))
	require.NoError(t, repo.SetBalance(ctx, "GB", 3))
	require.NoError(t, repo.SetBalance(ctx, "GB", 0))
	balances, err := repo.ListBalances(ctx)
	require.NoError(t, err)
	assert.Equal(t, []models.Balance{{Account: "GA", Amount: 12}}, balances)
}
