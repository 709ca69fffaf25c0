// Package engine implements the agreement lifecycle: configuration, agreements, results, payouts and the
// balance ledger they move value through.
//
// Every operation runs to completion under a single lock and writes through one atomic store unit, so a
// rejected operation leaves no trace. Events are emitted only after the unit commits.
package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"sunnydapp/internal/auth"
	"sunnydapp/internal/events"
	"sunnydapp/internal/metrics"
	"sunnydapp/internal/models"
	"sunnydapp/internal/storage"
	"sunnydapp/internal/storage/retry"
)

// Options configures an Engine
type Options struct {
	// Owner is the account allowed to deploy, update config, refund and delete
	Owner string

	// Notifier receives lifecycle events. Defaults to events.Discard.
	Notifier events.Notifier

	// Retry wraps store units. Defaults to no retry.
	Retry retry.Strategy

	// Clock returns the current time. Defaults to time.Now.
	Clock func() time.Time
}

// Engine is the agreement lifecycle engine
type Engine struct {
	mu       sync.Mutex
	store    storage.Store
	owner    string
	notifier events.Notifier
	retry    retry.Strategy
	now      func() time.Time
}

// New creates an Engine over store
func New(store storage.Store, opts Options) (*Engine, error) {
	if !auth.ValidAccount(opts.Owner) {
		return nil, fmt.Errorf("owner must be a Stellar account id, got %q", opts.Owner)
	}

	e := &Engine{
		store:    store,
		owner:    opts.Owner,
		notifier: opts.Notifier,
		retry:    opts.Retry,
		now:      opts.Clock,
	}
	if e.notifier == nil {
		e.notifier = events.Discard{}
	}
	if e.retry == nil {
		e.retry = retry.NewNoRetryStrategy()
	}
	if e.now == nil {
		e.now = time.Now
	}
	return e, nil
}

// Owner returns the owner account
func (e *Engine) Owner() string {
	return e.owner
}

// Sequence returns the sequence account must sign its next invocation with
func (e *Engine) Sequence(ctx context.Context, account string) (uint64, error) {
	var seq uint64
	err := e.view(ctx, "sequence", func(t *txn) error {
		var err error
		seq, err = t.GetSequence(t.ctx, account)
		return err
	})
	return seq, err
}

// pendingEvent is an event queued by a unit and emitted after commit
type pendingEvent struct {
	eventType models.EventType
	key       string
	data      map[string]interface{}
}

// txn is the state handed to a mutating operation
type txn struct {
	*storage.Repository
	ctx    context.Context
	op     string
	now    time.Time
	events []pendingEvent
}

func (t *txn) emit(eventType models.EventType, key string, data map[string]interface{}) {
	t.events = append(t.events, pendingEvent{eventType: eventType, key: key, data: data})
}

// config loads the deployed configuration, failing with NotFound before the first deploy
func (t *txn) config() (*models.GlobalConfig, error) {
	cfg, err := t.GetConfig(t.ctx)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, notFound(t.op, "", "contract not deployed")
	}
	if err != nil {
		return nil, err
	}
	return cfg, nil
}

// agreement loads an agreement, failing with NotFound for unknown keys
func (t *txn) agreement(key string) (*models.Agreement, error) {
	a, err := t.GetAgreement(t.ctx, key)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, notFound(t.op, key, "agreement does not exist")
	}
	if err != nil {
		return nil, err
	}
	return a, nil
}

// consumeSequences checks that each signed sequence is the signer's next one and advances it
func (t *txn) consumeSequences(w auth.Witness) error {
	sw, ok := w.(auth.Sequenced)
	if !ok {
		return nil
	}
	for account, seq := range sw.Sequences() {
		next, err := t.GetSequence(t.ctx, account)
		if err != nil {
			return err
		}
		if seq != next {
			return unauthorized(t.op, account, "signature sequence %d is stale or out of order, next is %d", seq, next)
		}
		if err := t.SetSequence(t.ctx, account, next+1); err != nil {
			return err
		}
	}
	return nil
}

// run executes fn as one atomic unit and emits its events once the unit has committed.
// Sequences signed into w are consumed by the same unit.
func (e *Engine) run(ctx context.Context, op string, w auth.Witness, fn func(t *txn) error) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	start := time.Now()
	var committed *txn

	err := e.retry.Execute(ctx, op, func() error {
		return e.store.Atomic(ctx, func(kv storage.KV) error {
			t := &txn{
				Repository: storage.NewRepository(kv),
				ctx:        ctx,
				op:         op,
				now:        e.now(),
			}
			if err := t.consumeSequences(w); err != nil {
				return err
			}
			if err := fn(t); err != nil {
				return err
			}
			committed = t
			return nil
		})
	})

	metrics.OperationDuration.WithLabelValues(op).Observe(time.Since(start).Seconds())

	if err != nil {
		return e.fail(ctx, op, err)
	}

	metrics.OperationsTotal.WithLabelValues(op, "ok").Inc()
	for _, ev := range committed.events {
		e.notifier.Emit(ctx, ev.eventType, ev.key, ev.data)
	}
	e.refreshGauges(ctx)
	return nil
}

// view runs a read-only operation
func (e *Engine) view(ctx context.Context, op string, fn func(t *txn) error) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	t := &txn{
		Repository: storage.NewRepository(e.store),
		ctx:        ctx,
		op:         op,
		now:        e.now(),
	}
	if err := fn(t); err != nil {
		return e.fail(ctx, op, err)
	}
	metrics.OperationsTotal.WithLabelValues(op, "ok").Inc()
	return nil
}

// fail normalises err into an *Error, logs it and counts it
func (e *Engine) fail(ctx context.Context, op string, err error) error {
	var engErr *Error
	if !errors.As(err, &engErr) {
		engErr = internal(op, err)
	}

	metrics.OperationsTotal.WithLabelValues(op, string(engErr.Kind)).Inc()
	if engErr.Kind == KindInternal {
		slog.ErrorContext(ctx, "Operation failed", "operation", op, "error", err)
	} else {
		slog.WarnContext(ctx, "Operation rejected",
			"operation", op,
			"kind", engErr.Kind,
			"key", engErr.Key,
			"reason", engErr.Msg,
		)
	}
	return engErr
}

func (e *Engine) refreshGauges(ctx context.Context) {
	repo := storage.NewRepository(e.store)
	if escrow, err := repo.GetBalance(ctx, models.EscrowAccount); err == nil {
		metrics.EscrowLocked.Set(float64(escrow))
	}
	if supply, err := repo.GetSupply(ctx); err == nil {
		metrics.Supply.Set(float64(supply))
	}
}

// isOwner reports whether w covers the owner account
func (e *Engine) isOwner(w auth.Witness) bool {
	return w != nil && w.IsAuthorized(e.owner)
}

func authorized(w auth.Witness, identity string) bool {
	return w != nil && w.IsAuthorized(identity)
}
