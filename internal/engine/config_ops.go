package engine

import (
	"context"
	"log/slog"

	"sunnydapp/internal/auth"
	"sunnydapp/internal/models"
)

// Deploy writes the global configuration. owner must be the engine owner and w must cover it.
// Every parameter is validated before anything is written; re-deploying overwrites.
func (e *Engine) Deploy(ctx context.Context, w auth.Witness, owner string, cfg models.GlobalConfig) error {
	const op = "deploy"
	return e.run(ctx, op, w, func(t *txn) error {
		if owner != e.owner {
			return unauthorized(op, owner, "not the contract owner")
		}
		if !e.isOwner(w) {
			return unauthorized(op, owner, "owner signature missing")
		}
		if err := validateDeploy(op, cfg); err != nil {
			return err
		}

		if err := t.SaveConfig(t.ctx, &cfg); err != nil {
			return err
		}

		t.emit(models.EventDeploy, "", map[string]interface{}{
			"dapp_name":   cfg.DappName,
			"oracle":      cfg.Oracle,
			"time_margin": cfg.TimeMargin,
			"min_time":    cfg.MinTime,
			"max_time":    cfg.MaxTime,
		})
		return nil
	})
}

func validateDeploy(op string, cfg models.GlobalConfig) error {
	if cfg.DappName == "" {
		return invalid(op, "", "dapp_name is required")
	}
	if !auth.ValidAccount(cfg.Oracle) {
		return invalid(op, cfg.Oracle, "oracle must be a Stellar account id")
	}
	if cfg.TimeMargin < 0 {
		return invalid(op, "", "time_margin must be >= 0, got %d", cfg.TimeMargin)
	}
	if cfg.MinTime < models.MinEventLead+cfg.TimeMargin {
		return invalid(op, "", "min_time must be >= %d + time_margin, got %d", models.MinEventLead, cfg.MinTime)
	}
	if cfg.MaxTime <= cfg.MinTime+cfg.TimeMargin {
		return invalid(op, "", "max_time must be > min_time + time_margin, got %d", cfg.MaxTime)
	}
	return nil
}

// UpdateName overwrites the dapp name. Owner only.
func (e *Engine) UpdateName(ctx context.Context, w auth.Witness, name string) error {
	const op = "updateName"
	return e.run(ctx, op, w, func(t *txn) error {
		if !e.isOwner(w) {
			return unauthorized(op, "", "owner signature missing")
		}
		if _, err := t.config(); err != nil {
			return err
		}
		if name == "" {
			return invalid(op, "", "dapp_name is required")
		}
		if err := t.PutConfigField(t.ctx, models.KeyDappName, name); err != nil {
			return err
		}
		t.emit(models.EventConfigUpdate, "", map[string]interface{}{"field": models.KeyDappName, "value": name})
		return nil
	})
}

// UpdateOracle overwrites the oracle account. Owner only.
func (e *Engine) UpdateOracle(ctx context.Context, w auth.Witness, oracle string) error {
	const op = "updateOracle"
	return e.run(ctx, op, w, func(t *txn) error {
		if !e.isOwner(w) {
			return unauthorized(op, "", "owner signature missing")
		}
		if _, err := t.config(); err != nil {
			return err
		}
		if !auth.ValidAccount(oracle) {
			return invalid(op, oracle, "oracle must be a Stellar account id")
		}
		if err := t.PutConfigField(t.ctx, models.KeyOracle, oracle); err != nil {
			return err
		}
		t.emit(models.EventConfigUpdate, "", map[string]interface{}{"field": models.KeyOracle, "value": oracle})
		return nil
	})
}

// UpdateTimeLimits overwrites one of time_margin, min_time or max_time. Owner only.
// The deploy-time ordering between the three fields is not re-checked; a breaking update is accepted
// and logged.
func (e *Engine) UpdateTimeLimits(ctx context.Context, w auth.Witness, field string, value int64) error {
	const op = "updateTimeLimits"
	return e.run(ctx, op, w, func(t *txn) error {
		if !e.isOwner(w) {
			return unauthorized(op, "", "owner signature missing")
		}
		cfg, err := t.config()
		if err != nil {
			return err
		}
		f := models.TimeLimitField(field)
		if !f.Valid() {
			return invalid(op, field, "unknown time limit field")
		}
		if value < 0 {
			return invalid(op, field, "value must be >= 0, got %d", value)
		}

		if err := t.PutConfigField(t.ctx, field, value); err != nil {
			return err
		}

		switch f {
		case models.FieldTimeMargin:
			cfg.TimeMargin = value
		case models.FieldMinTime:
			cfg.MinTime = value
		case models.FieldMaxTime:
			cfg.MaxTime = value
		}
		if !cfg.OrderingHolds() {
			slog.WarnContext(ctx, "Time limits no longer satisfy deploy ordering",
				"field", field,
				"time_margin", cfg.TimeMargin,
				"min_time", cfg.MinTime,
				"max_time", cfg.MaxTime,
			)
		}

		t.emit(models.EventConfigUpdate, "", map[string]interface{}{"field": field, "value": value})
		return nil
	})
}

// Config returns the deployed configuration
func (e *Engine) Config(ctx context.Context) (*models.GlobalConfig, error) {
	var cfg *models.GlobalConfig
	err := e.view(ctx, "config", func(t *txn) error {
		var err error
		cfg, err = t.config()
		return err
	})
	return cfg, err
}

// Name returns the configured dapp name
func (e *Engine) Name(ctx context.Context) (string, error) {
	cfg, err := e.Config(ctx)
	if err != nil {
		return "", err
	}
	return cfg.DappName, nil
}

// Oracle returns the configured oracle account
func (e *Engine) Oracle(ctx context.Context) (string, error) {
	cfg, err := e.Config(ctx)
	if err != nil {
		return "", err
	}
	return cfg.Oracle, nil
}

// TimeMargin returns the configured time margin in seconds
func (e *Engine) TimeMargin(ctx context.Context) (int64, error) {
	cfg, err := e.Config(ctx)
	if err != nil {
		return 0, err
	}
	return cfg.TimeMargin, nil
}

// MinTime returns the configured minimum event lead in seconds
func (e *Engine) MinTime(ctx context.Context) (int64, error) {
	cfg, err := e.Config(ctx)
	if err != nil {
		return 0, err
	}
	return cfg.MinTime, nil
}

// MaxTime returns the configured maximum event lead in seconds
func (e *Engine) MaxTime(ctx context.Context) (int64, error) {
	cfg, err := e.Config(ctx)
	if err != nil {
		return 0, err
	}
	return cfg.MaxTime, nil
}
