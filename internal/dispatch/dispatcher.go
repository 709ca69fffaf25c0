package dispatch

import (
	"context"
	"fmt"
	"log/slog"
	"sort"

	"github.com/stellar/go/xdr"

	"sunnydapp/internal/auth"
	"sunnydapp/internal/engine"
	"sunnydapp/internal/models"
)

type parser func(a argList) (Command, error)

type entry struct {
	arity int
	parse parser
}

var table = map[string]entry{
	"deploy":           {6, parseDeploy},
	"name":             {0, func(argList) (Command, error) { return GetName{}, nil }},
	"updateName":       {1, parseUpdateName},
	"oracle":           {0, func(argList) (Command, error) { return GetOracle{}, nil }},
	"updateOracle":     {1, parseUpdateOracle},
	"time_margin":      {0, timeLimitGetter(models.FieldTimeMargin)},
	"min_time":         {0, timeLimitGetter(models.FieldMinTime)},
	"max_time":         {0, timeLimitGetter(models.FieldMaxTime)},
	"updateTimeLimits": {2, parseUpdateTimeLimits},
	"agreement":        {10, parseAgreement},
	"resultNotice":     {3, parseResultNotice},
	"claim":            {1, keyed(func(k string) Command { return Claim{Key: k} })},
	"transfer":         {3, parseTransfer},
	"refundAll":        {1, keyed(func(k string) Command { return RefundAll{Key: k} })},
	"deleteAgreement":  {1, keyed(func(k string) Command { return DeleteAgreement{Key: k} })},
	"deposit":          {2, parseDeposit},
	"withdraw":         {2, parseWithdraw},
	"balanceOf":        {1, parseBalanceOf},
	"getAgreement":     {1, keyed(func(k string) Command { return GetAgreement{Key: k} })},
	"status":           {1, keyed(func(k string) Command { return Status{Key: k} })},
}

// Operations lists every operation name with its required argument count
func Operations() map[string]int {
	ops := make(map[string]int, len(table))
	for name, e := range table {
		ops[name] = e.arity
	}
	return ops
}

// OperationNames returns the operation names sorted
func OperationNames() []string {
	names := make([]string, 0, len(table))
	for name := range table {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Parse resolves an operation name and positional arguments into a command.
// Unknown operations, wrong argument counts and mistyped arguments are validation failures.
func Parse(operation string, args []xdr.ScVal) (Command, error) {
	e, ok := table[operation]
	if !ok {
		return nil, &engine.Error{Kind: engine.KindValidation, Op: operation, Msg: "unknown operation"}
	}
	if len(args) != e.arity {
		return nil, &engine.Error{
			Kind: engine.KindValidation,
			Op:   operation,
			Msg:  fmt.Sprintf("expected %d arguments, got %d", e.arity, len(args)),
		}
	}
	cmd, err := e.parse(argList(args))
	if err != nil {
		return nil, &engine.Error{Kind: engine.KindValidation, Op: operation, Msg: err.Error()}
	}
	return cmd, nil
}

// Invocation is one call through the dispatch entry point
type Invocation struct {
	Operation string
	Args      []xdr.ScVal
	Witness   auth.Witness
}

// Result is the structured outcome of an invocation. Failures never surface as panics or Go errors.
type Result struct {
	Operation string
	OK        bool
	Value     interface{}
	ErrorKind engine.Kind
	Message   string
}

// Dispatcher routes invocations to the engine
type Dispatcher struct {
	engine *engine.Engine
}

func New(e *engine.Engine) *Dispatcher {
	return &Dispatcher{engine: e}
}

// Invoke parses and executes one invocation
func (d *Dispatcher) Invoke(ctx context.Context, inv Invocation) Result {
	res := Result{Operation: inv.Operation}

	cmd, err := Parse(inv.Operation, inv.Args)
	if err != nil {
		slog.Debug("Rejected invocation", "operation", inv.Operation, "args", len(inv.Args), "error", err)
		return failed(res, err)
	}

	w := inv.Witness
	if w == nil {
		w = auth.Anonymous
	}

	value, err := cmd.execute(ctx, d.engine, w)
	if err != nil {
		return failed(res, err)
	}

	res.OK = true
	res.Value = value
	return res
}

// VerifyWithdrawal is the verification-mode entry point: outgoing value may leave only with the owner's signature
func (d *Dispatcher) VerifyWithdrawal(w auth.Witness) bool {
	if w == nil {
		return false
	}
	return d.engine.VerifyWithdrawal(w)
}

func failed(res Result, err error) Result {
	res.OK = false
	res.ErrorKind = engine.KindOf(err)
	res.Message = err.Error()
	return res
}

func parseDeploy(a argList) (Command, error) {
	owner, err := a.str(0, "owner")
	if err != nil {
		return nil, err
	}
	name, err := a.str(1, "dapp_name")
	if err != nil {
		return nil, err
	}
	oracle, err := a.str(2, "oracle")
	if err != nil {
		return nil, err
	}
	margin, err := a.int(3, "time_margin")
	if err != nil {
		return nil, err
	}
	minTime, err := a.int(4, "min_time")
	if err != nil {
		return nil, err
	}
	maxTime, err := a.int(5, "max_time")
	if err != nil {
		return nil, err
	}
	return Deploy{
		Owner: owner,
		Config: models.GlobalConfig{
			DappName:   name,
			Oracle:     oracle,
			TimeMargin: margin,
			MinTime:    minTime,
			MaxTime:    maxTime,
		},
	}, nil
}

func parseUpdateName(a argList) (Command, error) {
	name, err := a.str(0, "dapp_name")
	if err != nil {
		return nil, err
	}
	return UpdateName{Name: name}, nil
}

func parseUpdateOracle(a argList) (Command, error) {
	oracle, err := a.str(0, "oracle")
	if err != nil {
		return nil, err
	}
	return UpdateOracle{Oracle: oracle}, nil
}

func timeLimitGetter(field models.TimeLimitField) parser {
	return func(argList) (Command, error) {
		return GetTimeLimit{Field: field}, nil
	}
}

func parseUpdateTimeLimits(a argList) (Command, error) {
	field, err := a.str(0, "field")
	if err != nil {
		return nil, err
	}
	value, err := a.int(1, "value")
	if err != nil {
		return nil, err
	}
	return UpdateTimeLimits{Field: field, Value: value}, nil
}

func parseAgreement(a argList) (Command, error) {
	var p engine.AgreementParams
	var err error

	strs := []struct {
		i    int
		name string
		dst  *string
	}{
		{0, "agreement_key", &p.Key},
		{1, "customer", &p.Customer},
		{2, "insurer", &p.Insurer},
		{3, "location", &p.Location},
		{8, "dapp_name", &p.DappName},
	}
	for _, s := range strs {
		if *s.dst, err = a.str(s.i, s.name); err != nil {
			return nil, err
		}
	}

	ints := []struct {
		i    int
		name string
		dst  *int64
	}{
		{4, "timestamp", &p.Timestamp},
		{5, "utc_offset", &p.UTCOffset},
		{6, "amount", &p.Amount},
		{7, "premium", &p.Premium},
		{9, "fee", &p.Fee},
	}
	for _, n := range ints {
		if *n.dst, err = a.int(n.i, n.name); err != nil {
			return nil, err
		}
	}

	return CreateAgreement{Params: p}, nil
}

func parseResultNotice(a argList) (Command, error) {
	key, err := a.str(0, "agreement_key")
	if err != nil {
		return nil, err
	}
	weather, err := a.int(1, "weather_param")
	if err != nil {
		return nil, err
	}
	cost, err := a.int(2, "oracle_cost")
	if err != nil {
		return nil, err
	}
	return ResultNotice{Key: key, WeatherParam: weather, OracleCost: cost}, nil
}

func keyed(build func(key string) Command) parser {
	return func(a argList) (Command, error) {
		key, err := a.str(0, "agreement_key")
		if err != nil {
			return nil, err
		}
		return build(key), nil
	}
}

func parseTransfer(a argList) (Command, error) {
	from, err := a.str(0, "from")
	if err != nil {
		return nil, err
	}
	to, err := a.str(1, "to")
	if err != nil {
		return nil, err
	}
	amount, err := a.int(2, "amount")
	if err != nil {
		return nil, err
	}
	return Transfer{From: from, To: to, Amount: amount}, nil
}

func parseDeposit(a argList) (Command, error) {
	account, amount, err := accountAmount(a)
	if err != nil {
		return nil, err
	}
	return Deposit{Account: account, Amount: amount}, nil
}

func parseWithdraw(a argList) (Command, error) {
	account, amount, err := accountAmount(a)
	if err != nil {
		return nil, err
	}
	return Withdraw{Account: account, Amount: amount}, nil
}

func accountAmount(a argList) (string, int64, error) {
	account, err := a.str(0, "account")
	if err != nil {
		return "", 0, err
	}
	amount, err := a.int(1, "amount")
	if err != nil {
		return "", 0, err
	}
	return account, amount, nil
}

func parseBalanceOf(a argList) (Command, error) {
	account, err := a.str(0, "account")
	if err != nil {
		return nil, err
	}
	return BalanceOf{Account: account}, nil
}
