package history

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dd0wney/cluso-uaspace/pkg/ua"
)

const schema = `
CREATE TABLE IF NOT EXISTS ua_history (
	node_id     TEXT        NOT NULL,
	source_time TIMESTAMPTZ NOT NULL,
	server_time TIMESTAMPTZ NOT NULL DEFAULT now(),
	status      BIGINT      NOT NULL DEFAULT 0,
	value       JSONB,
	PRIMARY KEY (node_id, source_time)
)`

// PGProvider reads samples from the ua_history table, keyed by the text
// form of the node id.
type PGProvider struct {
	pool *pgxpool.Pool
}

// NewPGProvider connects to databaseURL and creates the history table if
// needed.
func NewPGProvider(ctx context.Context, databaseURL string) (*PGProvider, error) {
	config, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse database URL: %w", err)
	}
	config.MaxConns = 10
	config.MinConns = 1
	config.MaxConnLifetime = 5 * time.Minute
	config.MaxConnIdleTime = time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("database unreachable: %w", err)
	}
	if _, err := pool.Exec(ctx, schema); err != nil {
		pool.Close()
		return nil, fmt.Errorf("migration failed: %w", err)
	}
	return &PGProvider{pool: pool}, nil
}

// ReadRaw implements Provider.
func (p *PGProvider) ReadRaw(ctx context.Context, id ua.NodeID, start, end time.Time) ([]DataValue, error) {
	const query = `
		SELECT source_time, server_time, status, value
		FROM ua_history
		WHERE node_id = $1 AND source_time BETWEEN $2 AND $3
		ORDER BY source_time`

	rows, err := p.pool.Query(ctx, query, id.String(), start, end)
	if err != nil {
		return nil, fmt.Errorf("failed to query history: %w", err)
	}
	values, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (DataValue, error) {
		var (
			dv     DataValue
			status int64
			raw    []byte
		)
		if err := row.Scan(&dv.SourceTimestamp, &dv.ServerTimestamp, &status, &raw); err != nil {
			return dv, err
		}
		dv.StatusCode = ua.StatusCode(status)
		if len(raw) > 0 {
			if err := json.Unmarshal(raw, &dv.Value); err != nil {
				return dv, fmt.Errorf("failed to unmarshal value: %w", err)
			}
		}
		return dv, nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to read history rows: %w", err)
	}
	return values, nil
}

// Append archives one sample.
func (p *PGProvider) Append(ctx context.Context, id ua.NodeID, v DataValue) error {
	raw, err := json.Marshal(v.Value)
	if err != nil {
		return fmt.Errorf("failed to marshal value: %w", err)
	}
	serverTime := v.ServerTimestamp
	if serverTime.IsZero() {
		serverTime = time.Now()
	}
	_, err = p.pool.Exec(ctx, `
		INSERT INTO ua_history (node_id, source_time, server_time, status, value)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (node_id, source_time) DO UPDATE
		SET server_time = EXCLUDED.server_time, status = EXCLUDED.status, value = EXCLUDED.value`,
		id.String(), v.SourceTimestamp, serverTime, int64(v.StatusCode), raw)
	if err != nil {
		return fmt.Errorf("failed to append history: %w", err)
	}
	return nil
}

// Name implements Provider.
func (p *PGProvider) Name() string { return "postgres" }

// Ping checks database connectivity.
func (p *PGProvider) Ping(ctx context.Context) error {
	return p.pool.Ping(ctx)
}

// Close closes the connection pool.
func (p *PGProvider) Close() error {
	p.pool.Close()
	return nil
}
