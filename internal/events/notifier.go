// Package events emits lifecycle notifications. Emission is fire-and-forget: sink failures are logged
// and never reach the caller of the operation that produced the event.
package events

import (
	"context"
	"log/slog"
	"time"

	"sunnydapp/internal/metrics"
	"sunnydapp/internal/models"

	"github.com/google/uuid"
)

// Notifier is what the engine calls after a successful state change
type Notifier interface {
	Emit(ctx context.Context, eventType models.EventType, agreementKey string, data map[string]interface{})
}

// Sink receives every emitted event
type Sink interface {
	Handle(ctx context.Context, event *models.ContractEvent) error

	// Name returns the sink name for logging
	Name() string
}

// Fanout delivers each event to all registered sinks in order
type Fanout struct {
	sinks []Sink
	now   func() time.Time
}

// NewFanout creates a Fanout with the given sinks
func NewFanout(sinks ...Sink) *Fanout {
	return &Fanout{
		sinks: sinks,
		now:   time.Now,
	}
}

// Emit implements Notifier
func (f *Fanout) Emit(ctx context.Context, eventType models.EventType, agreementKey string, data map[string]interface{}) {
	event := &models.ContractEvent{
		EventID:      uuid.NewString(),
		EventType:    eventType,
		AgreementKey: agreementKey,
		Data:         data,
		Timestamp:    f.now().UTC(),
	}

	for _, sink := range f.sinks {
		if err := sink.Handle(ctx, event); err != nil {
			metrics.NotifierErrors.WithLabelValues(sink.Name()).Inc()
			slog.Error("Event sink failed",
				"sink", sink.Name(),
				"event_type", event.EventType,
				"agreement_key", event.AgreementKey,
				"error", err,
			)
			// Continue with other sinks even if one fails
		}
	}
}

// Sinks returns the registered sinks (for inspection/testing)
func (f *Fanout) Sinks() []Sink {
	return f.sinks
}

// Discard is a Notifier that drops every event
type Discard struct{}

func (Discard) Emit(context.Context, models.EventType, string, map[string]interface{}) {}
