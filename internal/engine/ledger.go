package engine

import (
	"context"

	"sunnydapp/internal/auth"
	"sunnydapp/internal/models"
)

// move is the single primitive through which value changes hands inside the contract.
// Deposits and withdrawals are the only operations that change the total supply.
func (t *txn) move(from, to string, amount int64) error {
	if amount <= 0 {
		return invalid(t.op, from, "amount must be positive, got %d", amount)
	}
	if from == to {
		return invalid(t.op, from, "source and destination are the same account")
	}

	fromBalance, err := t.GetBalance(t.ctx, from)
	if err != nil {
		return err
	}
	if fromBalance < amount {
		return insufficient(t.op, from, "balance %d is less than %d", fromBalance, amount)
	}
	toBalance, err := t.GetBalance(t.ctx, to)
	if err != nil {
		return err
	}
	credited, ok := models.SumAmounts(toBalance, amount)
	if !ok {
		return invalid(t.op, to, "balance %d cannot take %d more", toBalance, amount)
	}

	if err := t.SetBalance(t.ctx, from, fromBalance-amount); err != nil {
		return err
	}
	return t.SetBalance(t.ctx, to, credited)
}

// Transfer moves amount from one account to another. w must cover from.
func (e *Engine) Transfer(ctx context.Context, w auth.Witness, from, to string, amount int64) error {
	const op = "transfer"
	return e.run(ctx, op, w, func(t *txn) error {
		if !auth.ValidAccount(from) {
			return invalid(op, from, "source must be a Stellar account id")
		}
		if !auth.ValidAccount(to) {
			return invalid(op, to, "destination must be a Stellar account id")
		}
		if amount <= 0 {
			return invalid(op, from, "amount must be positive, got %d", amount)
		}
		if !authorized(w, from) {
			return unauthorized(op, from, "source account signature missing")
		}
		if err := t.move(from, to, amount); err != nil {
			return err
		}

		t.emit(models.EventTransfer, "", map[string]interface{}{
			"from":   from,
			"to":     to,
			"amount": amount,
		})
		return nil
	})
}

// Deposit credits value entering the contract to account. w must cover account.
func (e *Engine) Deposit(ctx context.Context, w auth.Witness, account string, amount int64) error {
	const op = "deposit"
	return e.run(ctx, op, w, func(t *txn) error {
		if !auth.ValidAccount(account) {
			return invalid(op, account, "account must be a Stellar account id")
		}
		if amount <= 0 {
			return invalid(op, account, "amount must be positive, got %d", amount)
		}
		if !authorized(w, account) {
			return unauthorized(op, account, "account signature missing")
		}

		balance, err := t.GetBalance(t.ctx, account)
		if err != nil {
			return err
		}
		supply, err := t.GetSupply(t.ctx)
		if err != nil {
			return err
		}
		newBalance, ok := models.SumAmounts(balance, amount)
		if !ok {
			return invalid(op, account, "balance %d cannot take %d more", balance, amount)
		}
		newSupply, ok := models.SumAmounts(supply, amount)
		if !ok {
			return invalid(op, account, "supply %d cannot take %d more", supply, amount)
		}
		if err := t.SetBalance(t.ctx, account, newBalance); err != nil {
			return err
		}
		if err := t.SetSupply(t.ctx, newSupply); err != nil {
			return err
		}

		t.emit(models.EventDeposit, "", map[string]interface{}{"account": account, "amount": amount})
		return nil
	})
}

// Withdraw releases value from account out of the contract. Outgoing value needs both the account
// holder and the owner (see VerifyWithdrawal).
func (e *Engine) Withdraw(ctx context.Context, w auth.Witness, account string, amount int64) error {
	const op = "withdraw"
	return e.run(ctx, op, w, func(t *txn) error {
		if !auth.ValidAccount(account) {
			return invalid(op, account, "account must be a Stellar account id")
		}
		if amount <= 0 {
			return invalid(op, account, "amount must be positive, got %d", amount)
		}
		if !authorized(w, account) {
			return unauthorized(op, account, "account signature missing")
		}
		if !e.VerifyWithdrawal(w) {
			return unauthorized(op, account, "outgoing transfers require the owner signature")
		}

		balance, err := t.GetBalance(t.ctx, account)
		if err != nil {
			return err
		}
		if balance < amount {
			return insufficient(op, account, "balance %d is less than %d", balance, amount)
		}
		supply, err := t.GetSupply(t.ctx)
		if err != nil {
			return err
		}
		if err := t.SetBalance(t.ctx, account, balance-amount); err != nil {
			return err
		}
		if err := t.SetSupply(t.ctx, supply-amount); err != nil {
			return err
		}

		t.emit(models.EventWithdraw, "", map[string]interface{}{"account": account, "amount": amount})
		return nil
	})
}

// VerifyWithdrawal is the verification-mode check: value may leave the contract only when the
// invocation is attributed to the owner.
func (e *Engine) VerifyWithdrawal(w auth.Witness) bool {
	return e.isOwner(w)
}

// BalanceOf returns the balance held by account
func (e *Engine) BalanceOf(ctx context.Context, account string) (int64, error) {
	var balance int64
	err := e.view(ctx, "balanceOf", func(t *txn) error {
		var err error
		balance, err = t.GetBalance(t.ctx, account)
		return err
	})
	return balance, err
}

// AuditReport summarises the conservation invariant
type AuditReport struct {
	Supply        int64            `json:"supply"`
	TotalBalances int64            `json:"total_balances"` // escrow pool included
	Escrow        int64            `json:"escrow"`
	TotalLocked   int64            `json:"total_locked"`
	Balances      []models.Balance `json:"balances"`
}

// Conserved reports whether no value was created or destroyed
func (r AuditReport) Conserved() bool {
	return r.TotalBalances == r.Supply && r.Escrow == r.TotalLocked
}

// Audit recomputes the conservation invariant from stored state
func (e *Engine) Audit(ctx context.Context) (AuditReport, error) {
	var report AuditReport
	err := e.view(ctx, "audit", func(t *txn) error {
		balances, err := t.ListBalances(t.ctx)
		if err != nil {
			return err
		}
		agreements, err := t.ListAgreements(t.ctx)
		if err != nil {
			return err
		}
		supply, err := t.GetSupply(t.ctx)
		if err != nil {
			return err
		}

		report.Supply = supply
		report.Balances = balances
		for _, b := range balances {
			report.TotalBalances += b.Amount
			if b.Account == models.EscrowAccount {
				report.Escrow = b.Amount
			}
		}
		for _, a := range agreements {
			report.TotalLocked += a.Locked
		}
		return nil
	})
	return report, err
}
