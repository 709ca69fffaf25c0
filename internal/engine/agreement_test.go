package engine

import (
	"math"
	"testing"
	"time"

	"sunnydapp/internal/auth"
	"sunnydapp/internal/events"
	"sunnydapp/internal/metrics"
	"sunnydapp/internal/models"
	"sunnydapp/internal/storage"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stellar/go/keypair"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateAgreement_DuplicateKey(t *testing.T) {
	f := deployed(t)
	first := f.create("A1")

	p := f.params("A1")
	p.Amount = 300
	p.Location = "LA"
	_, err := f.engine.CreateAgreement(f.ctx, auth.For(f.owner), p)
	assert.True(t, IsKind(err, KindStateConflict), "got %v", err)

	stored, err := f.engine.GetAgreement(f.ctx, "A1")
	require.NoError(t, err)
	assert.Equal(t, first.Amount, stored.Amount)
	assert.Equal(t, "NYC", stored.Location)
	assert.Equal(t, int64(885), f.balance(f.owner), "rejected create must not debit")
}

func TestCreateAgreement_Validation(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(f *fixture, p *AgreementParams)
		kind   Kind
	}{
		{"zero amount", func(_ *fixture, p *AgreementParams) { p.Amount = 0 }, KindValidation},
		{"negative premium", func(_ *fixture, p *AgreementParams) { p.Premium = -1 }, KindValidation},
		{"zero fee", func(_ *fixture, p *AgreementParams) { p.Fee = 0 }, KindValidation},
		{"customer is insurer", func(f *fixture, p *AgreementParams) { p.Insurer = f.customer }, KindValidation},
		{"invalid customer", func(_ *fixture, p *AgreementParams) { p.Customer = "bob" }, KindValidation},
		{"wrong dapp name", func(_ *fixture, p *AgreementParams) { p.DappName = "RainyDapp" }, KindValidation},
		{"empty key", func(_ *fixture, p *AgreementParams) { p.Key = "" }, KindValidation},
		{"utc offset out of range", func(_ *fixture, p *AgreementParams) { p.UTCOffset = 15 }, KindValidation},
		{"event too soon", func(_ *fixture, p *AgreementParams) { p.Timestamp = testNow.Unix() + 3599 }, KindValidation},
		{"event too late", func(_ *fixture, p *AgreementParams) { p.Timestamp = testNow.Unix() + 7201 }, KindValidation},
		{"insufficient funds", func(_ *fixture, p *AgreementParams) { p.Amount = 990 }, KindInsufficientFunds},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := deployed(t)
			p := f.params("A1")
			tt.mutate(f, &p)

			_, err := f.engine.CreateAgreement(f.ctx, auth.For(f.owner), p)
			assert.True(t, IsKind(err, tt.kind), "want %s, got %v", tt.kind, err)

			_, err = f.engine.GetAgreement(f.ctx, "A1")
			assert.True(t, IsKind(err, KindNotFound))
			assert.Equal(t, int64(1000), f.balance(f.owner))
		})
	}
}

func TestCreateAgreement_UTCOffsetShiftsWindow(t *testing.T) {
	f := deployed(t)
	p := f.params("A1")
	// 02:00 local at UTC+2 is 00:00 UTC: 5000s ahead locally, 5000-7200 < 0 ahead in UTC
	p.UTCOffset = 2
	_, err := f.engine.CreateAgreement(f.ctx, auth.For(f.owner), p)
	assert.True(t, IsKind(err, KindValidation))

	p.Timestamp = testNow.Unix() + 5000 + 2*3600
	a, err := f.engine.CreateAgreement(f.ctx, auth.For(f.owner), p)
	require.NoError(t, err)
	assert.Equal(t, testNow.Unix()+5000, a.EventTime().Unix())
}

func TestCreateAgreement_FunderAndAuthorization(t *testing.T) {
	f := deployed(t)
	require.NoError(t, f.engine.Deposit(f.ctx, auth.For(f.customer), f.customer, 200))

	_, err := f.engine.CreateAgreement(f.ctx, auth.For(keypair.MustRandom().Address()), f.params("A0"))
	assert.True(t, IsKind(err, KindAuthorization))

	a, err := f.engine.CreateAgreement(f.ctx, auth.For(f.customer), f.params("A1"))
	require.NoError(t, err)
	assert.Equal(t, f.customer, a.Funder)
	assert.Equal(t, int64(85), f.balance(f.customer))

	// the insurer has no balance
	_, err = f.engine.CreateAgreement(f.ctx, auth.For(f.insurer), f.params("A2"))
	assert.True(t, IsKind(err, KindInsufficientFunds))
}

func TestResultNotice(t *testing.T) {
	f := deployed(t)
	f.create("A1")

	err := f.engine.ResultNotice(f.ctx, auth.For(f.customer), "A1", 60, 5)
	assert.True(t, IsKind(err, KindAuthorization))

	err = f.engine.ResultNotice(f.ctx, auth.For(f.oracle), "missing", 60, 5)
	assert.True(t, IsKind(err, KindNotFound))

	err = f.engine.ResultNotice(f.ctx, auth.For(f.oracle), "A1", 60, 6)
	assert.True(t, IsKind(err, KindValidation))
	assert.Equal(t, models.StatusPending, f.status("A1"))
	assert.Equal(t, int64(0), f.balance(f.oracle))

	require.NoError(t, f.engine.ResultNotice(f.ctx, auth.For(f.oracle), "A1", 30, 3))
	a, err := f.engine.GetAgreement(f.ctx, "A1")
	require.NoError(t, err)
	assert.Equal(t, models.StatusResultRecorded, a.Status)
	assert.Equal(t, int64(30), a.WeatherParam)
	assert.Equal(t, int64(3), a.OracleCost)
	assert.Equal(t, int64(112), a.Locked)
	assert.Equal(t, int64(3), f.balance(f.oracle))

	err = f.engine.ResultNotice(f.ctx, auth.For(f.oracle), "A1", 70, 1)
	assert.True(t, IsKind(err, KindStateConflict))
	f.assertConserved()
}

func TestCreateAgreement_OverflowingTotal(t *testing.T) {
	f := deployed(t)
	f.create("HONEST")

	p := f.params("BIG")
	p.Amount, p.Premium, p.Fee = math.MaxInt64, math.MaxInt64, math.MaxInt64
	_, err := f.engine.CreateAgreement(f.ctx, auth.For(f.owner), p)
	assert.True(t, IsKind(err, KindValidation), "got %v", err)

	p.Amount, p.Premium, p.Fee = math.MaxInt64-1, 1, 1
	_, err = f.engine.CreateAgreement(f.ctx, auth.For(f.owner), p)
	assert.True(t, IsKind(err, KindValidation), "got %v", err)

	exists, err := f.engine.GetAgreement(f.ctx, "BIG")
	assert.Nil(t, exists)
	assert.True(t, IsKind(err, KindNotFound))
	assert.Equal(t, int64(115), f.balance(models.EscrowAccount))

	// the honest agreement still settles in full
	require.NoError(t, f.engine.ResultNotice(f.ctx, auth.For(f.oracle), "HONEST", 60, 5))
	_, err = f.engine.Claim(f.ctx, auth.For(f.customer), "HONEST")
	require.NoError(t, err)
	assert.Equal(t, int64(100), f.balance(f.customer))
	assert.Equal(t, int64(0), f.balance(models.EscrowAccount))
	f.assertConserved()
}

func TestResultNotice_WeatherOutOfRange(t *testing.T) {
	f := deployed(t)
	f.create("A1")

	for _, weather := range []int64{101, -1} {
		err := f.engine.ResultNotice(f.ctx, auth.For(f.oracle), "A1", weather, 5)
		assert.True(t, IsKind(err, KindValidation), "weather %d: got %v", weather, err)
	}

	a, err := f.engine.GetAgreement(f.ctx, "A1")
	require.NoError(t, err)
	assert.Equal(t, models.StatusPending, a.Status)
	assert.Equal(t, int64(115), a.Locked)
	assert.Equal(t, int64(0), f.balance(f.oracle))

	require.NoError(t, f.engine.ResultNotice(f.ctx, auth.For(f.oracle), "A1", 100, 5))
	assert.Equal(t, models.StatusResultRecorded, f.status("A1"))
}

func TestResultNotice_ZeroCost(t *testing.T) {
	f := deployed(t)
	f.create("A1")

	require.NoError(t, f.engine.ResultNotice(f.ctx, auth.For(f.oracle), "A1", 50, 0))
	_, err := f.engine.Claim(f.ctx, auth.For(f.insurer), "A1")
	require.NoError(t, err)

	assert.Equal(t, int64(0), f.balance(f.oracle))
	assert.Equal(t, int64(900), f.balance(f.owner), "unspent fee and premium return to the funder")
	f.assertConserved()
}

func TestClaim_Threshold(t *testing.T) {
	tests := []struct {
		name         string
		weather      int64
		wantCustomer int64
		wantInsurer  int64
		wantPayee    func(f *fixture) string
	}{
		{"boundary pays customer", 50, 100, 0, func(f *fixture) string { return f.customer }},
		{"below threshold pays insurer", 49, 0, 10, func(f *fixture) string { return f.insurer }},
		{"zero pays insurer", 0, 0, 10, func(f *fixture) string { return f.insurer }},
		{"full sunshine pays customer", 100, 100, 0, func(f *fixture) string { return f.customer }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := deployed(t)
			f.create("A1")
			require.NoError(t, f.engine.ResultNotice(f.ctx, auth.For(f.oracle), "A1", tt.weather, 5))

			a, err := f.engine.Claim(f.ctx, auth.For(f.owner), "A1")
			require.NoError(t, err)

			assert.Equal(t, tt.wantPayee(f), a.Payee)
			assert.Equal(t, tt.wantCustomer, f.balance(f.customer))
			assert.Equal(t, tt.wantInsurer, f.balance(f.insurer))
			assert.Equal(t, int64(0), a.Locked)
			f.assertConserved()
		})
	}
}

func TestClaim_PayoutCountedOnceAfterCommit(t *testing.T) {
	f := newFixture(t)
	eng, err := New(storage.NewMemoryStore(), Options{
		Owner:    f.owner,
		Notifier: events.NewFanout(events.MetricsSink{}),
		Clock:    func() time.Time { return testNow },
	})
	require.NoError(t, err)
	f.engine = eng
	require.NoError(t, f.engine.Deploy(f.ctx, auth.For(f.owner), f.owner, f.config()))
	require.NoError(t, f.engine.Deposit(f.ctx, auth.For(f.owner), f.owner, 1000))

	counter := metrics.Payouts.WithLabelValues("customer")
	before := testutil.ToFloat64(counter)

	f.create("A1")
	_, err = f.engine.Claim(f.ctx, auth.For(f.customer), "A1")
	require.True(t, IsKind(err, KindStateConflict), "claim before result must fail")
	assert.Equal(t, before, testutil.ToFloat64(counter))

	require.NoError(t, f.engine.ResultNotice(f.ctx, auth.For(f.oracle), "A1", 60, 5))
	_, err = f.engine.Claim(f.ctx, auth.For(f.customer), "A1")
	require.NoError(t, err)
	_, err = f.engine.Claim(f.ctx, auth.For(f.customer), "A1")
	require.Error(t, err)

	assert.Equal(t, before+1, testutil.ToFloat64(counter))
}

func TestClaim_Guards(t *testing.T) {
	f := deployed(t)
	f.create("A1")

	_, err := f.engine.Claim(f.ctx, auth.For(f.customer), "A1")
	assert.True(t, IsKind(err, KindStateConflict), "pending cannot be claimed directly")
	assert.Equal(t, models.StatusPending, f.status("A1"))

	require.NoError(t, f.engine.ResultNotice(f.ctx, auth.For(f.oracle), "A1", 80, 5))

	_, err = f.engine.Claim(f.ctx, auth.For(f.oracle), "A1")
	assert.True(t, IsKind(err, KindAuthorization))

	_, err = f.engine.Claim(f.ctx, auth.For(f.insurer), "missing")
	assert.True(t, IsKind(err, KindNotFound))

	_, err = f.engine.Claim(f.ctx, auth.For(f.insurer), "A1")
	require.NoError(t, err)

	err = f.engine.RefundAll(f.ctx, auth.For(f.owner), "A1")
	assert.True(t, IsKind(err, KindStateConflict))
	assert.Equal(t, models.StatusClaimed, f.status("A1"))
	assert.Equal(t, int64(100), f.balance(f.customer))
	assert.Equal(t, int64(0), f.balance(f.insurer))
}

func TestRefundAll(t *testing.T) {
	t.Run("pending", func(t *testing.T) {
		f := deployed(t)
		f.create("A1")

		assert.True(t, IsKind(f.engine.RefundAll(f.ctx, auth.For(f.customer), "A1"), KindAuthorization))
		require.NoError(t, f.engine.RefundAll(f.ctx, auth.For(f.owner), "A1"))

		assert.Equal(t, models.StatusRefunded, f.status("A1"))
		assert.Equal(t, int64(100), f.balance(f.customer))
		assert.Equal(t, int64(10), f.balance(f.insurer))
		assert.Equal(t, int64(890), f.balance(f.owner), "whole fee returns to the funder")
		f.assertConserved()

		assert.True(t, IsKind(f.engine.RefundAll(f.ctx, auth.For(f.owner), "A1"), KindStateConflict))
		assert.Equal(t, int64(100), f.balance(f.customer))
	})

	t.Run("result recorded keeps oracle fee spent", func(t *testing.T) {
		f := deployed(t)
		f.create("A1")
		require.NoError(t, f.engine.ResultNotice(f.ctx, auth.For(f.oracle), "A1", 10, 4))
		require.NoError(t, f.engine.RefundAll(f.ctx, auth.For(f.owner), "A1"))

		assert.Equal(t, int64(4), f.balance(f.oracle))
		assert.Equal(t, int64(100), f.balance(f.customer))
		assert.Equal(t, int64(10), f.balance(f.insurer))
		assert.Equal(t, int64(886), f.balance(f.owner))
		f.assertConserved()

		_, err := f.engine.Claim(f.ctx, auth.For(f.customer), "A1")
		assert.True(t, IsKind(err, KindStateConflict))
	})

	t.Run("missing", func(t *testing.T) {
		f := deployed(t)
		assert.True(t, IsKind(f.engine.RefundAll(f.ctx, auth.For(f.owner), "nope"), KindNotFound))
	})
}

func TestDeleteAgreement(t *testing.T) {
	f := deployed(t)
	f.create("A1")

	assert.True(t, IsKind(f.engine.DeleteAgreement(f.ctx, auth.For(f.owner), "A1"), KindStateConflict))
	require.NoError(t, f.engine.ResultNotice(f.ctx, auth.For(f.oracle), "A1", 60, 5))
	assert.True(t, IsKind(f.engine.DeleteAgreement(f.ctx, auth.For(f.owner), "A1"), KindStateConflict))

	_, err := f.engine.Claim(f.ctx, auth.For(f.customer), "A1")
	require.NoError(t, err)

	assert.True(t, IsKind(f.engine.DeleteAgreement(f.ctx, auth.For(f.customer), "A1"), KindAuthorization))
	require.NoError(t, f.engine.DeleteAgreement(f.ctx, auth.For(f.owner), "A1"))

	_, err = f.engine.GetAgreement(f.ctx, "A1")
	assert.True(t, IsKind(err, KindNotFound))
	assert.True(t, IsKind(f.engine.DeleteAgreement(f.ctx, auth.For(f.owner), "A1"), KindNotFound))

	// the key can be reused once the settled record is gone
	f.create("A1")
	f.assertConserved()
}

func TestConservationAcrossSequence(t *testing.T) {
	f := deployed(t)
	owner := auth.For(f.owner)
	oracle := auth.For(f.oracle)

	require.NoError(t, f.engine.Deposit(f.ctx, auth.For(f.insurer), f.insurer, 500))
	for _, key := range []string{"A1", "A2", "A3", "A4"} {
		f.create(key)
		f.assertConserved()
	}

	require.NoError(t, f.engine.ResultNotice(f.ctx, oracle, "A1", 90, 5))
	require.NoError(t, f.engine.ResultNotice(f.ctx, oracle, "A2", 20, 2))
	require.NoError(t, f.engine.ResultNotice(f.ctx, oracle, "A3", 50, 0))
	f.assertConserved()

	_, err := f.engine.Claim(f.ctx, auth.For(f.customer), "A1")
	require.NoError(t, err)
	_, err = f.engine.Claim(f.ctx, auth.For(f.insurer), "A2")
	require.NoError(t, err)
	require.NoError(t, f.engine.RefundAll(f.ctx, owner, "A3"))
	require.NoError(t, f.engine.Transfer(f.ctx, auth.For(f.customer), f.customer, f.insurer, 50))
	require.NoError(t, f.engine.Withdraw(f.ctx, auth.For(f.insurer, f.owner), f.insurer, 100))

	// failures in between change nothing
	_, _ = f.engine.Claim(f.ctx, auth.For(f.customer), "A1")
	_ = f.engine.Transfer(f.ctx, auth.For(f.customer), f.customer, f.insurer, 10_000)
	_ = f.engine.RefundAll(f.ctx, owner, "A2")

	report, err := f.engine.Audit(f.ctx)
	require.NoError(t, err)
	assert.True(t, report.Conserved(), "%+v", report)
	assert.Equal(t, int64(1400), report.Supply)
	assert.Equal(t, int64(115), report.Escrow, "only A4 is still locked")
}
