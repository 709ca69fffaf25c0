package events

import (
	"context"
	"fmt"
	"log/slog"

	"sunnydapp/internal/debug"
	"sunnydapp/internal/metrics"
	"sunnydapp/internal/models"
	"sunnydapp/internal/storage"
)

// LogSink writes events to the structured log
type LogSink struct{}

func (LogSink) Handle(ctx context.Context, event *models.ContractEvent) error {
	attrs := []any{
		"event_id", event.EventID,
		"event_type", event.EventType,
	}
	if event.AgreementKey != "" {
		attrs = append(attrs, "agreement_key", event.AgreementKey)
	}
	for k, v := range event.Data {
		attrs = append(attrs, k, v)
	}
	slog.InfoContext(ctx, "event_emitted", attrs...)
	debug.PrintEvent(event)
	return nil
}

func (LogSink) Name() string {
	return "LogSink"
}

// MetricsSink counts events by type, and payouts by the role that received them
type MetricsSink struct{}

func (MetricsSink) Handle(ctx context.Context, event *models.ContractEvent) error {
	metrics.EventsEmitted.WithLabelValues(string(event.EventType)).Inc()
	if event.EventType == models.EventPayOut {
		if role, ok := event.Data["role"].(string); ok {
			metrics.Payouts.WithLabelValues(role).Inc()
		}
	}
	return nil
}

func (MetricsSink) Name() string {
	return "MetricsSink"
}

// StoreSink persists events so they can be served by the API
type StoreSink struct {
	log storage.EventLog
}

// NewStoreSink creates a sink writing into log
func NewStoreSink(log storage.EventLog) *StoreSink {
	return &StoreSink{log: log}
}

func (s *StoreSink) Handle(ctx context.Context, event *models.ContractEvent) error {
	if err := s.log.SaveContractEvent(ctx, event); err != nil {
		return fmt.Errorf("failed to persist event: %w", err)
	}
	return nil
}

func (s *StoreSink) Name() string {
	return "StoreSink"
}
