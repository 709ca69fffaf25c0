package dispatch

import (
	"context"

	"sunnydapp/internal/auth"
	"sunnydapp/internal/engine"
	"sunnydapp/internal/models"
)

// Command is a decoded invocation. The set is closed: only this package can produce one.
type Command interface {
	Operation() string
	execute(ctx context.Context, e *engine.Engine, w auth.Witness) (interface{}, error)
}

// Deploy configures the contract. Owner is the signing account and must equal the engine owner.
type Deploy struct {
	Owner  string
	Config models.GlobalConfig
}

func (Deploy) Operation() string { return "deploy" }

func (c Deploy) execute(ctx context.Context, e *engine.Engine, w auth.Witness) (interface{}, error) {
	return true, e.Deploy(ctx, w, c.Owner, c.Config)
}

// GetName reads the dapp name
type GetName struct{}

func (GetName) Operation() string { return "name" }

func (GetName) execute(ctx context.Context, e *engine.Engine, _ auth.Witness) (interface{}, error) {
	return e.Name(ctx)
}

type UpdateName struct {
	Name string
}

func (UpdateName) Operation() string { return "updateName" }

func (c UpdateName) execute(ctx context.Context, e *engine.Engine, w auth.Witness) (interface{}, error) {
	return true, e.UpdateName(ctx, w, c.Name)
}

// GetOracle reads the oracle account
type GetOracle struct{}

func (GetOracle) Operation() string { return "oracle" }

func (GetOracle) execute(ctx context.Context, e *engine.Engine, _ auth.Witness) (interface{}, error) {
	return e.Oracle(ctx)
}

type UpdateOracle struct {
	Oracle string
}

func (UpdateOracle) Operation() string { return "updateOracle" }

func (c UpdateOracle) execute(ctx context.Context, e *engine.Engine, w auth.Witness) (interface{}, error) {
	return true, e.UpdateOracle(ctx, w, c.Oracle)
}

// GetTimeLimit reads one of time_margin, min_time or max_time
type GetTimeLimit struct {
	Field models.TimeLimitField
}

func (c GetTimeLimit) Operation() string { return string(c.Field) }

func (c GetTimeLimit) execute(ctx context.Context, e *engine.Engine, _ auth.Witness) (interface{}, error) {
	switch c.Field {
	case models.FieldTimeMargin:
		return e.TimeMargin(ctx)
	case models.FieldMinTime:
		return e.MinTime(ctx)
	default:
		return e.MaxTime(ctx)
	}
}

type UpdateTimeLimits struct {
	Field string
	Value int64
}

func (UpdateTimeLimits) Operation() string { return "updateTimeLimits" }

func (c UpdateTimeLimits) execute(ctx context.Context, e *engine.Engine, w auth.Witness) (interface{}, error) {
	return true, e.UpdateTimeLimits(ctx, w, c.Field, c.Value)
}

// CreateAgreement opens a new pending agreement
type CreateAgreement struct {
	Params engine.AgreementParams
}

func (CreateAgreement) Operation() string { return "agreement" }

func (c CreateAgreement) execute(ctx context.Context, e *engine.Engine, w auth.Witness) (interface{}, error) {
	return e.CreateAgreement(ctx, w, c.Params)
}

type ResultNotice struct {
	Key          string
	WeatherParam int64
	OracleCost   int64
}

func (ResultNotice) Operation() string { return "resultNotice" }

func (c ResultNotice) execute(ctx context.Context, e *engine.Engine, w auth.Witness) (interface{}, error) {
	return true, e.ResultNotice(ctx, w, c.Key, c.WeatherParam, c.OracleCost)
}

type Claim struct {
	Key string
}

func (Claim) Operation() string { return "claim" }

func (c Claim) execute(ctx context.Context, e *engine.Engine, w auth.Witness) (interface{}, error) {
	return e.Claim(ctx, w, c.Key)
}

type Transfer struct {
	From   string
	To     string
	Amount int64
}

func (Transfer) Operation() string { return "transfer" }

func (c Transfer) execute(ctx context.Context, e *engine.Engine, w auth.Witness) (interface{}, error) {
	return true, e.Transfer(ctx, w, c.From, c.To, c.Amount)
}

type RefundAll struct {
	Key string
}

func (RefundAll) Operation() string { return "refundAll" }

func (c RefundAll) execute(ctx context.Context, e *engine.Engine, w auth.Witness) (interface{}, error) {
	return true, e.RefundAll(ctx, w, c.Key)
}

type DeleteAgreement struct {
	Key string
}

func (DeleteAgreement) Operation() string { return "deleteAgreement" }

func (c DeleteAgreement) execute(ctx context.Context, e *engine.Engine, w auth.Witness) (interface{}, error) {
	return true, e.DeleteAgreement(ctx, w, c.Key)
}

type Deposit struct {
	Account string
	Amount  int64
}

func (Deposit) Operation() string { return "deposit" }

func (c Deposit) execute(ctx context.Context, e *engine.Engine, w auth.Witness) (interface{}, error) {
	return true, e.Deposit(ctx, w, c.Account, c.Amount)
}

type Withdraw struct {
	Account string
	Amount  int64
}

func (Withdraw) Operation() string { return "withdraw" }

func (c Withdraw) execute(ctx context.Context, e *engine.Engine, w auth.Witness) (interface{}, error) {
	return true, e.Withdraw(ctx, w, c.Account, c.Amount)
}

type BalanceOf struct {
	Account string
}

func (BalanceOf) Operation() string { return "balanceOf" }

func (c BalanceOf) execute(ctx context.Context, e *engine.Engine, _ auth.Witness) (interface{}, error) {
	return e.BalanceOf(ctx, c.Account)
}

type GetAgreement struct {
	Key string
}

func (GetAgreement) Operation() string { return "getAgreement" }

func (c GetAgreement) execute(ctx context.Context, e *engine.Engine, _ auth.Witness) (interface{}, error) {
	return e.GetAgreement(ctx, c.Key)
}

// Status reads only the lifecycle status of an agreement
type Status struct {
	Key string
}

func (Status) Operation() string { return "status" }

func (c Status) execute(ctx context.Context, e *engine.Engine, _ auth.Witness) (interface{}, error) {
	a, err := e.GetAgreement(ctx, c.Key)
	if err != nil {
		return nil, err
	}
	return string(a.Status), nil
}
