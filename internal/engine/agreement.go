package engine

import (
	"context"
	"time"

	"sunnydapp/internal/auth"
	"sunnydapp/internal/debug"
	"sunnydapp/internal/models"
)

// AgreementParams are the caller supplied fields of a new agreement
type AgreementParams struct {
	Key       string
	Customer  string
	Insurer   string
	Location  string
	Timestamp int64 // naive local unix seconds
	UTCOffset int64 // hours
	Amount    int64
	Premium   int64
	DappName  string
	Fee       int64
}

// CreateAgreement validates and stores a new pending agreement, locking amount + premium + fee from
// the funder's balance into escrow. The funder is the first account covered by w among owner, insurer
// and customer; w must cover at least one of them.
func (e *Engine) CreateAgreement(ctx context.Context, w auth.Witness, p AgreementParams) (*models.Agreement, error) {
	const op = "agreement"
	var created *models.Agreement

	err := e.run(ctx, op, w, func(t *txn) error {
		cfg, err := t.config()
		if err != nil {
			return err
		}

		funder := e.funder(w, p)
		if funder == "" {
			return unauthorized(op, p.Key, "caller must be the owner, customer or insurer")
		}

		if err := validateAgreement(op, p, cfg); err != nil {
			return err
		}
		exists, err := t.AgreementExists(t.ctx, p.Key)
		if err != nil {
			return err
		}
		if exists {
			return conflict(op, p.Key, "agreement already exists")
		}

		a := &models.Agreement{
			Key:       p.Key,
			DappName:  cfg.DappName,
			Customer:  p.Customer,
			Insurer:   p.Insurer,
			Funder:    funder,
			Location:  p.Location,
			Timestamp: p.Timestamp,
			UTCOffset: p.UTCOffset,
			Amount:    p.Amount,
			Premium:   p.Premium,
			Fee:       p.Fee,
			Status:    models.StatusPending,
			CreatedAt: t.now.UTC(),
			UpdatedAt: t.now.UTC(),
		}
		if err := checkEventWindow(op, a, cfg, t.now); err != nil {
			return err
		}

		total, ok := a.Total()
		if !ok {
			return invalid(op, p.Key, "amount + premium + fee overflows")
		}
		if err := t.move(funder, models.EscrowAccount, total); err != nil {
			return err
		}
		a.Locked = total

		if err := t.SaveAgreement(t.ctx, a); err != nil {
			return err
		}

		t.emit(models.EventAgreement, a.Key, map[string]interface{}{
			"customer": a.Customer,
			"insurer":  a.Insurer,
			"funder":   a.Funder,
			"locked":   a.Locked,
		})
		created = a
		return nil
	})
	if err != nil {
		return nil, err
	}
	debug.PrintAgreement(created)
	return created, nil
}

func (e *Engine) funder(w auth.Witness, p AgreementParams) string {
	for _, candidate := range []string{e.owner, p.Insurer, p.Customer} {
		if authorized(w, candidate) {
			return candidate
		}
	}
	return ""
}

func validateAgreement(op string, p AgreementParams, cfg *models.GlobalConfig) error {
	if p.Key == "" {
		return invalid(op, "", "agreement_key is required")
	}
	if !auth.ValidAccount(p.Customer) {
		return invalid(op, p.Key, "customer must be a Stellar account id")
	}
	if !auth.ValidAccount(p.Insurer) {
		return invalid(op, p.Key, "insurer must be a Stellar account id")
	}
	if p.Customer == p.Insurer {
		return invalid(op, p.Key, "customer and insurer must differ")
	}
	if p.Amount <= 0 || p.Premium <= 0 || p.Fee <= 0 {
		return invalid(op, p.Key, "amount, premium and fee must be positive")
	}
	if _, ok := models.SumAmounts(p.Amount, p.Premium, p.Fee); !ok {
		return invalid(op, p.Key, "amount + premium + fee overflows")
	}
	if p.DappName != cfg.DappName {
		return invalid(op, p.Key, "dapp_name %q does not match %q", p.DappName, cfg.DappName)
	}
	if p.UTCOffset < -12 || p.UTCOffset > 14 {
		return invalid(op, p.Key, "utc_offset must be within [-12, 14] hours, got %d", p.UTCOffset)
	}
	return nil
}

// checkEventWindow rejects events closer than min_time or further than max_time from now,
// each bound widened by time_margin
func checkEventWindow(op string, a *models.Agreement, cfg *models.GlobalConfig, now time.Time) error {
	eventAt := a.EventTime().Unix()
	earliest := now.Unix() + cfg.MinTime - cfg.TimeMargin
	latest := now.Unix() + cfg.MaxTime + cfg.TimeMargin

	if eventAt < earliest {
		return invalid(op, a.Key, "event time is %ds ahead, minimum is %ds", eventAt-now.Unix(), cfg.MinTime)
	}
	if eventAt > latest {
		return invalid(op, a.Key, "event time is %ds ahead, maximum is %ds", eventAt-now.Unix(), cfg.MaxTime)
	}
	return nil
}

// ResultNotice records the oracle's outcome and pays the oracle its cost out of escrow
func (e *Engine) ResultNotice(ctx context.Context, w auth.Witness, key string, weatherParam, oracleCost int64) error {
	const op = "resultNotice"
	return e.run(ctx, op, w, func(t *txn) error {
		cfg, err := t.config()
		if err != nil {
			return err
		}
		if !authorized(w, cfg.Oracle) {
			return unauthorized(op, key, "caller is not the oracle")
		}

		a, err := t.agreement(key)
		if err != nil {
			return err
		}
		if a.Status != models.StatusPending {
			return conflict(op, key, "agreement is %s, expected %s", a.Status, models.StatusPending)
		}
		if weatherParam < 0 || weatherParam > 100 {
			return invalid(op, key, "weather_param must be a percentage, got %d", weatherParam)
		}
		if oracleCost < 0 {
			return invalid(op, key, "oracle_cost must be >= 0, got %d", oracleCost)
		}
		if oracleCost > a.Fee {
			return invalid(op, key, "oracle_cost %d exceeds agreed fee %d", oracleCost, a.Fee)
		}

		if oracleCost > 0 {
			if err := t.move(models.EscrowAccount, cfg.Oracle, oracleCost); err != nil {
				return err
			}
			a.Locked -= oracleCost
		}

		a.Status = models.StatusResultRecorded
		a.WeatherParam = weatherParam
		a.OracleCost = oracleCost
		a.UpdatedAt = t.now.UTC()
		if err := t.SaveAgreement(t.ctx, a); err != nil {
			return err
		}

		t.emit(models.EventResultNotice, key, map[string]interface{}{
			"weather_param": weatherParam,
			"oracle_cost":   oracleCost,
			"oracle":        cfg.Oracle,
		})
		return nil
	})
}

// Claim pays out a recorded result: amount to the customer when the event occurred, premium to the
// insurer otherwise. Whatever stays locked afterwards goes back to the funder.
func (e *Engine) Claim(ctx context.Context, w auth.Witness, key string) (*models.Agreement, error) {
	const op = "claim"
	var claimed *models.Agreement

	err := e.run(ctx, op, w, func(t *txn) error {
		a, err := t.agreement(key)
		if err != nil {
			return err
		}
		if !authorized(w, a.Customer) && !authorized(w, a.Insurer) && !e.isOwner(w) {
			return unauthorized(op, key, "caller must be the customer, insurer or owner")
		}
		if a.Status != models.StatusResultRecorded {
			return conflict(op, key, "agreement is %s, expected %s", a.Status, models.StatusResultRecorded)
		}

		payee, payout, role := a.Insurer, a.Premium, "insurer"
		if a.EventOccurred() {
			payee, payout, role = a.Customer, a.Amount, "customer"
		}

		if err := t.move(models.EscrowAccount, payee, payout); err != nil {
			return err
		}
		residual := a.Locked - payout
		if residual > 0 {
			if err := t.move(models.EscrowAccount, a.Funder, residual); err != nil {
				return err
			}
		}

		a.Status = models.StatusClaimed
		a.Payee = payee
		a.Payout = payout
		a.Locked = 0
		a.UpdatedAt = t.now.UTC()
		if err := t.SaveAgreement(t.ctx, a); err != nil {
			return err
		}

		t.emit(models.EventPayOut, key, map[string]interface{}{
			"payee":    payee,
			"role":     role,
			"payout":   payout,
			"residual": residual,
		})
		claimed = a
		return nil
	})
	if err != nil {
		return nil, err
	}
	debug.PrintAgreement(claimed)
	return claimed, nil
}

// RefundAll returns amount to the customer and premium to the insurer. Any fee not yet paid to the
// oracle goes back to the funder. Owner only; not time gated.
func (e *Engine) RefundAll(ctx context.Context, w auth.Witness, key string) error {
	const op = "refundAll"
	return e.run(ctx, op, w, func(t *txn) error {
		if !e.isOwner(w) {
			return unauthorized(op, key, "owner signature missing")
		}
		a, err := t.agreement(key)
		if err != nil {
			return err
		}
		if a.Status.Terminal() {
			return conflict(op, key, "agreement is already %s", a.Status)
		}

		if err := t.move(models.EscrowAccount, a.Customer, a.Amount); err != nil {
			return err
		}
		if err := t.move(models.EscrowAccount, a.Insurer, a.Premium); err != nil {
			return err
		}
		residual := a.Locked - a.Amount - a.Premium
		if residual > 0 {
			if err := t.move(models.EscrowAccount, a.Funder, residual); err != nil {
				return err
			}
		}

		a.Status = models.StatusRefunded
		a.Locked = 0
		a.UpdatedAt = t.now.UTC()
		if err := t.SaveAgreement(t.ctx, a); err != nil {
			return err
		}

		t.emit(models.EventRefundAll, key, map[string]interface{}{
			"customer_refund": a.Amount,
			"insurer_refund":  a.Premium,
			"funder_refund":   residual,
		})
		return nil
	})
}

// DeleteAgreement removes a settled agreement record. Owner only; pending agreements still hold
// escrowed value and cannot be deleted.
func (e *Engine) DeleteAgreement(ctx context.Context, w auth.Witness, key string) error {
	const op = "deleteAgreement"
	return e.run(ctx, op, w, func(t *txn) error {
		if !e.isOwner(w) {
			return unauthorized(op, key, "owner signature missing")
		}
		a, err := t.agreement(key)
		if err != nil {
			return err
		}
		if !a.Status.Terminal() || a.Locked != 0 {
			return conflict(op, key, "agreement is %s and still holds escrow", a.Status)
		}
		if err := t.DeleteAgreement(t.ctx, key); err != nil {
			return err
		}

		t.emit(models.EventDelete, key, map[string]interface{}{"status": string(a.Status)})
		return nil
	})
}

// GetAgreement returns the stored agreement
func (e *Engine) GetAgreement(ctx context.Context, key string) (*models.Agreement, error) {
	var a *models.Agreement
	err := e.view(ctx, "getAgreement", func(t *txn) error {
		var err error
		a, err = t.agreement(key)
		return err
	})
	return a, err
}

// ListAgreements returns every stored agreement ordered by key
func (e *Engine) ListAgreements(ctx context.Context) ([]*models.Agreement, error) {
	var agreements []*models.Agreement
	err := e.view(ctx, "listAgreements", func(t *txn) error {
		var err error
		agreements, err = t.ListAgreements(t.ctx)
		return err
	})
	return agreements, err
}
