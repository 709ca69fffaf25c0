package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"sunnydapp/internal/metrics"
	"sunnydapp/internal/models"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

const schema = `
	CREATE TABLE IF NOT EXISTS ledger_store (
		key        TEXT PRIMARY KEY,
		value      JSONB NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
	);

	CREATE TABLE IF NOT EXISTS contract_events (
		event_id      TEXT PRIMARY KEY,
		event_type    TEXT NOT NULL,
		agreement_key TEXT NOT NULL DEFAULT '',
		data          JSONB,
		timestamp     TIMESTAMPTZ NOT NULL
	);

	CREATE INDEX IF NOT EXISTS contract_events_agreement_idx
		ON contract_events (agreement_key, timestamp DESC);
`

// querier is satisfied by both *pgxpool.Pool and pgx.Tx
type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PostgresStore implements Store and EventLog using PostgreSQL
type PostgresStore struct {
	pool *pgxpool.Pool
	pgKV
}

// NewPostgresStore creates a new PostgreSQL backed store
func NewPostgresStore(ctx context.Context, databaseURL string) (*PostgresStore, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	// Test the connection
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &PostgresStore{
		pool: pool,
		pgKV: pgKV{q: pool},
	}, nil
}

// EnsureSchema creates the tables used by the store when they are missing
func (r *PostgresStore) EnsureSchema(ctx context.Context) error {
	if _, err := r.pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}
	return nil
}

// Atomic runs fn inside a serializable transaction
func (r *PostgresStore) Atomic(ctx context.Context, fn func(kv KV) error) error {
	start := time.Now()
	defer func() {
		metrics.DatabaseOperationDuration.WithLabelValues("atomic").Observe(time.Since(start).Seconds())
	}()

	return pgx.BeginTxFunc(ctx, r.pool, pgx.TxOptions{IsoLevel: pgx.Serializable}, func(tx pgx.Tx) error {
		return fn(&pgKV{q: tx})
	})
}

// Ping checks database connectivity
func (r *PostgresStore) Ping(ctx context.Context) error {
	return r.pool.Ping(ctx)
}

// Close closes the connection pool
func (r *PostgresStore) Close() error {
	r.pool.Close()
	return nil
}

// SaveContractEvent saves a single lifecycle event
func (r *PostgresStore) SaveContractEvent(ctx context.Context, event *models.ContractEvent) error {
	dataJSON, err := json.Marshal(event.Data)
	if err != nil {
		return fmt.Errorf("failed to marshal data: %w", err)
	}

	query := `
		INSERT INTO contract_events (event_id, event_type, agreement_key, data, timestamp)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (event_id) DO NOTHING
	`

	_, err = r.pool.Exec(ctx, query,
		event.EventID,
		string(event.EventType),
		event.AgreementKey,
		dataJSON,
		event.Timestamp,
	)
	if err != nil {
		return fmt.Errorf("failed to save contract event: %w", err)
	}

	return nil
}

// ListContractEvents lists events matching the filter, newest first
func (r *PostgresStore) ListContractEvents(ctx context.Context, filter models.EventFilter) ([]models.ContractEvent, error) {
	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}

	query := `
		SELECT event_id, event_type, agreement_key, data, timestamp
		FROM contract_events
		WHERE ($1 = '' OR agreement_key = $1)
		  AND ($2 = '' OR event_type = $2)
		ORDER BY timestamp DESC
		LIMIT $3 OFFSET $4
	`

	rows, err := r.pool.Query(ctx, query, filter.AgreementKey, string(filter.EventType), limit, filter.Offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list contract events: %w", err)
	}
	defer rows.Close()

	var events []models.ContractEvent

	for rows.Next() {
		var event models.ContractEvent
		var eventType string
		var dataJSON []byte

		err := rows.Scan(
			&event.EventID,
			&eventType,
			&event.AgreementKey,
			&dataJSON,
			&event.Timestamp,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan event: %w", err)
		}
		event.EventType = models.EventType(eventType)

		if len(dataJSON) > 0 {
			if err := json.Unmarshal(dataJSON, &event.Data); err != nil {
				return nil, fmt.Errorf("failed to unmarshal data: %w", err)
			}
		}

		events = append(events, event)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating events: %w", err)
	}

	return events, nil
}

// pgKV implements KV over the ledger_store table, either on the pool or inside a transaction
type pgKV struct {
	q querier
}

func (k *pgKV) Get(ctx context.Context, key string) ([]byte, error) {
	var value []byte
	err := k.q.QueryRow(ctx, `SELECT value FROM ledger_store WHERE key = $1`, key).Scan(&value)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get %s: %w", key, err)
	}
	return value, nil
}

func (k *pgKV) Put(ctx context.Context, key string, value []byte) error {
	query := `
		INSERT INTO ledger_store (key, value, updated_at)
		VALUES ($1, $2, now())
		ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value, updated_at = EXCLUDED.updated_at
	`
	if _, err := k.q.Exec(ctx, query, key, value); err != nil {
		return fmt.Errorf("failed to put %s: %w", key, err)
	}
	return nil
}

func (k *pgKV) Delete(ctx context.Context, key string) error {
	if _, err := k.q.Exec(ctx, `DELETE FROM ledger_store WHERE key = $1`, key); err != nil {
		return fmt.Errorf("failed to delete %s: %w", key, err)
	}
	return nil
}

func (k *pgKV) Scan(ctx context.Context, prefix string) (map[string][]byte, error) {
	rows, err := k.q.Query(ctx, `SELECT key, value FROM ledger_store WHERE starts_with(key, $1)`, prefix)
	if err != nil {
		return nil, fmt.Errorf("failed to scan %s: %w", prefix, err)
	}
	defer rows.Close()

	result := make(map[string][]byte)
	for rows.Next() {
		var key string
		var value []byte
		if err := rows.Scan(&key, &value); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		result[key] = value
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating %s: %w", prefix, err)
	}

	return result, nil
}
