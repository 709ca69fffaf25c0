package debug

import (
	"context"
	"encoding/json"
	"log/slog"

	"sunnydapp/internal/models"
)

// PrintAgreement prints the agreement in JSON format
func PrintAgreement(a *models.Agreement) {
	if !slog.Default().Enabled(context.Background(), slog.LevelDebug) {
		return
	}
	jsonData, err := json.MarshalIndent(a, "", "  ")
	if err != nil {
		slog.Error("Failed to marshal agreement to JSON", "error", err)
		return
	}

	slog.Debug("Agreement details", "agreement_key", a.Key, "json", string(jsonData))
}

// PrintEvent prints an emitted event in JSON format
func PrintEvent(event *models.ContractEvent) {
	if !slog.Default().Enabled(context.Background(), slog.LevelDebug) {
		return
	}
	jsonData, err := json.MarshalIndent(event, "", "  ")
	if err != nil {
		slog.Error("Failed to marshal event to JSON", "error", err)
		return
	}

	slog.Debug("Event details", "event_type", event.EventType, "json", string(jsonData))
}
