package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"

	"sunnydapp/internal/models"
)

const (
	agreementPrefix = "agreement/"
	balancePrefix   = "balance/"
	supplyKey       = "supply"
	sequencePrefix  = "sequence/"
)

// Repository is the typed view over a KV used by the engine.
// It keeps serialization out of the lifecycle logic.
type Repository struct {
	kv KV
}

// NewRepository wraps a KV (usually the transactional view handed out by Store.Atomic)
func NewRepository(kv KV) *Repository {
	return &Repository{kv: kv}
}

func (r *Repository) getJSON(ctx context.Context, key string, dst interface{}) error {
	raw, err := r.kv.Get(ctx, key)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		return fmt.Errorf("failed to unmarshal %s: %w", key, err)
	}
	return nil
}

func (r *Repository) putJSON(ctx context.Context, key string, value interface{}) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to marshal %s: %w", key, err)
	}
	return r.kv.Put(ctx, key, raw)
}

// GetConfig assembles the global configuration from its flat keys.
// Returns ErrNotFound until the first deploy.
func (r *Repository) GetConfig(ctx context.Context) (*models.GlobalConfig, error) {
	var cfg models.GlobalConfig
	fields := []struct {
		key string
		dst interface{}
	}{
		{models.KeyDappName, &cfg.DappName},
		{models.KeyOracle, &cfg.Oracle},
		{models.KeyTimeMargin, &cfg.TimeMargin},
		{models.KeyMinTime, &cfg.MinTime},
		{models.KeyMaxTime, &cfg.MaxTime},
	}
	for _, f := range fields {
		if err := r.getJSON(ctx, f.key, f.dst); err != nil {
			return nil, err
		}
	}
	return &cfg, nil
}

// SaveConfig writes every configuration field
func (r *Repository) SaveConfig(ctx context.Context, cfg *models.GlobalConfig) error {
	if err := r.PutConfigField(ctx, models.KeyDappName, cfg.DappName); err != nil {
		return err
	}
	if err := r.PutConfigField(ctx, models.KeyOracle, cfg.Oracle); err != nil {
		return err
	}
	if err := r.PutConfigField(ctx, models.KeyTimeMargin, cfg.TimeMargin); err != nil {
		return err
	}
	if err := r.PutConfigField(ctx, models.KeyMinTime, cfg.MinTime); err != nil {
		return err
	}
	return r.PutConfigField(ctx, models.KeyMaxTime, cfg.MaxTime)
}

// PutConfigField overwrites a single configuration key
func (r *Repository) PutConfigField(ctx context.Context, key string, value interface{}) error {
	return r.putJSON(ctx, key, value)
}

// GetAgreement returns ErrNotFound for unknown keys
func (r *Repository) GetAgreement(ctx context.Context, key string) (*models.Agreement, error) {
	var a models.Agreement
	if err := r.getJSON(ctx, agreementPrefix+key, &a); err != nil {
		return nil, err
	}
	return &a, nil
}

// AgreementExists reports whether a record is stored under key
func (r *Repository) AgreementExists(ctx context.Context, key string) (bool, error) {
	_, err := r.kv.Get(ctx, agreementPrefix+key)
	if errors.Is(err, ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func (r *Repository) SaveAgreement(ctx context.Context, a *models.Agreement) error {
	return r.putJSON(ctx, agreementPrefix+a.Key, a)
}

func (r *Repository) DeleteAgreement(ctx context.Context, key string) error {
	return r.kv.Delete(ctx, agreementPrefix+key)
}

// ListAgreements returns all agreements ordered by key
func (r *Repository) ListAgreements(ctx context.Context) ([]*models.Agreement, error) {
	raw, err := r.kv.Scan(ctx, agreementPrefix)
	if err != nil {
		return nil, fmt.Errorf("failed to scan agreements: %w", err)
	}

	agreements := make([]*models.Agreement, 0, len(raw))
	for key, value := range raw {
		var a models.Agreement
		if err := json.Unmarshal(value, &a); err != nil {
			return nil, fmt.Errorf("failed to unmarshal %s: %w", key, err)
		}
		agreements = append(agreements, &a)
	}
	sort.Slice(agreements, func(i, j int) bool { return agreements[i].Key < agreements[j].Key })
	return agreements, nil
}

// GetBalance returns zero for accounts that never held value
func (r *Repository) GetBalance(ctx context.Context, account string) (int64, error) {
	var amount int64
	err := r.getJSON(ctx, balancePrefix+account, &amount)
	if errors.Is(err, ErrNotFound) {
		return 0, nil
	}
	return amount, err
}

// SetBalance stores the new balance; a zero balance removes the key
func (r *Repository) SetBalance(ctx context.Context, account string, amount int64) error {
	if amount == 0 {
		return r.kv.Delete(ctx, balancePrefix+account)
	}
	return r.putJSON(ctx, balancePrefix+account, amount)
}

// ListBalances returns every non-zero balance ordered by account
func (r *Repository) ListBalances(ctx context.Context) ([]models.Balance, error) {
	raw, err := r.kv.Scan(ctx, balancePrefix)
	if err != nil {
		return nil, fmt.Errorf("failed to scan balances: %w", err)
	}

	balances := make([]models.Balance, 0, len(raw))
	for key, value := range raw {
		var amount int64
		if err := json.Unmarshal(value, &amount); err != nil {
			return nil, fmt.Errorf("failed to unmarshal %s: %w", key, err)
		}
		balances = append(balances, models.Balance{
			Account: strings.TrimPrefix(key, balancePrefix),
			Amount:  amount,
		})
	}
	sort.Slice(balances, func(i, j int) bool { return balances[i].Account < balances[j].Account })
	return balances, nil
}

// GetSupply returns the total value deposited minus withdrawn
func (r *Repository) GetSupply(ctx context.Context) (int64, error) {
	var supply int64
	err := r.getJSON(ctx, supplyKey, &supply)
	if errors.Is(err, ErrNotFound) {
		return 0, nil
	}
	return supply, err
}

func (r *Repository) SetSupply(ctx context.Context, supply int64) error {
	return r.putJSON(ctx, supplyKey, supply)
}

// GetSequence returns the next unused signing sequence of account
func (r *Repository) GetSequence(ctx context.Context, account string) (uint64, error) {
	var seq uint64
	err := r.getJSON(ctx, sequencePrefix+account, &seq)
	if errors.Is(err, ErrNotFound) {
		return 0, nil
	}
	return seq, err
}

func (r *Repository) SetSequence(ctx context.Context, account string, seq uint64) error {
	return r.putJSON(ctx, sequencePrefix+account, seq)
}
