package storage

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresPoolStorage is the pgxpool-backed Storage used by the worker. It
// exposes real Postgres advisory locks so multiple workers coordinate runs.
type PostgresPoolStorage struct {
	pool *pgxpool.Pool
}

func OpenPostgresPool(ctx context.Context, dsn string) (*PostgresPoolStorage, error) {
	if dsn == "" {
		dsn = "postgres://localhost:5432/gpumarketwatch?sslmode=disable"
	}

	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, err
	}

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, err
	}

	return &PostgresPoolStorage{pool: pool}, nil
}

// Pool exposes the underlying pool for metrics collection.
func (s *PostgresPoolStorage) Pool() *pgxpool.Pool { return s.pool }

func (s *PostgresPoolStorage) Close() error {
	s.pool.Close()
	return nil
}

func (s *PostgresPoolStorage) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// Providers

func (s *PostgresPoolStorage) ListProviders(ctx context.Context) ([]ProviderInfo, error) {
	rows, err := s.pool.Query(ctx, `SELECT key, name, landing_url, enabled, notes FROM providers ORDER BY key`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []ProviderInfo
	for rows.Next() {
		var p ProviderInfo
		if err := rows.Scan(&p.Key, &p.Name, &p.LandingURL, &p.Enabled, &p.Notes); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (s *PostgresPoolStorage) GetProvider(ctx context.Context, key string) (*ProviderInfo, error) {
	row := s.pool.QueryRow(ctx, `SELECT key, name, landing_url, enabled, notes FROM providers WHERE key=$1`, key)
	var p ProviderInfo
	if err := row.Scan(&p.Key, &p.Name, &p.LandingURL, &p.Enabled, &p.Notes); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &p, nil
}

func (s *PostgresPoolStorage) UpsertProvider(ctx context.Context, p ProviderInfo) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO providers (key, name, landing_url, enabled, notes)
		VALUES ($1,$2,$3,$4,$5)
		ON CONFLICT (key) DO UPDATE SET
			name=EXCLUDED.name,
			landing_url=EXCLUDED.landing_url,
			enabled=EXCLUDED.enabled,
			notes=EXCLUDED.notes
	`, p.Key, p.Name, p.LandingURL, p.Enabled, p.Notes)
	return err
}

// Run archive

func (s *PostgresPoolStorage) SaveRun(ctx context.Context, run PriceRun, records []PriceRecord) error {
	if run.GeneratedAt.IsZero() {
		run.GeneratedAt = time.Now().UTC()
	}
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	_, err = tx.Exec(ctx, `
		INSERT INTO price_runs (run_id, generated_at, records, failures, changed, duration_ms, payload)
		VALUES ($1,$2,$3,$4,$5,$6,$7)
	`, run.RunID, run.GeneratedAt, run.Records, run.Failures, run.Changed, run.DurationMs, run.Payload)
	if err != nil {
		return err
	}

	for _, rec := range records {
		_, err = tx.Exec(ctx, `
			INSERT INTO price_records (run_id, content_hash, provider_id, gpu, region, sku, on_demand, spot, usd_per_hour, source_url, fetched_at)
			VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)
		`, run.RunID, rec.ContentHash, rec.ProviderID, rec.GPU, rec.Region, rec.SKU, rec.OnDemand, rec.Spot, rec.USDPerHour, rec.SourceURL, rec.FetchedAt)
		if err != nil {
			return err
		}
	}
	return tx.Commit(ctx)
}

func (s *PostgresPoolStorage) GetLatestRun(ctx context.Context) (*PriceRun, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT run_id, generated_at, records, failures, changed, duration_ms, payload
		FROM price_runs
		ORDER BY generated_at DESC
		LIMIT 1
	`)
	var run PriceRun
	if err := row.Scan(&run.RunID, &run.GeneratedAt, &run.Records, &run.Failures, &run.Changed, &run.DurationMs, &run.Payload); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &run, nil
}

func (s *PostgresPoolStorage) ListRuns(ctx context.Context, limit int) ([]PriceRun, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.pool.Query(ctx, `
		SELECT run_id, generated_at, records, failures, changed, duration_ms, payload
		FROM price_runs
		ORDER BY generated_at DESC
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []PriceRun
	for rows.Next() {
		var run PriceRun
		if err := rows.Scan(&run.RunID, &run.GeneratedAt, &run.Records, &run.Failures, &run.Changed, &run.DurationMs, &run.Payload); err != nil {
			return nil, err
		}
		out = append(out, run)
	}
	return out, rows.Err()
}

func (s *PostgresPoolStorage) ListRunRecords(ctx context.Context, runID string) ([]PriceRecord, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, run_id, content_hash, provider_id, gpu, region, sku, on_demand, spot, usd_per_hour, source_url, fetched_at
		FROM price_records
		WHERE run_id=$1
		ORDER BY id
	`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []PriceRecord
	for rows.Next() {
		var rec PriceRecord
		if err := rows.Scan(&rec.ID, &rec.RunID, &rec.ContentHash, &rec.ProviderID, &rec.GPU, &rec.Region, &rec.SKU, &rec.OnDemand, &rec.Spot, &rec.USDPerHour, &rec.SourceURL, &rec.FetchedAt); err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

// Settings

func (s *PostgresPoolStorage) GetSetting(ctx context.Context, key string) (string, error) {
	row := s.pool.QueryRow(ctx, `SELECT value FROM settings WHERE key=$1`, key)
	var value string
	if err := row.Scan(&value); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", nil
		}
		return "", err
	}
	return value, nil
}

func (s *PostgresPoolStorage) SetSetting(ctx context.Context, key, value string) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO settings (key, value, updated_at)
		VALUES ($1,$2,now())
		ON CONFLICT (key) DO UPDATE SET value=EXCLUDED.value, updated_at=now()
	`, key, value)
	return err
}

// Email Config

func (s *PostgresPoolStorage) GetEmailConfig(ctx context.Context) (*EmailConfig, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT id, provider, host, port, username, password, from_address, from_name, api_key, encryption, enabled, recipients
		FROM email_configs
		LIMIT 1
	`)
	var cfg EmailConfig
	err := row.Scan(&cfg.ID, &cfg.Provider, &cfg.Host, &cfg.Port, &cfg.Username, &cfg.Password,
		&cfg.FromAddress, &cfg.FromName, &cfg.APIKey, &cfg.Encryption, &cfg.Enabled, &cfg.Recipients)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &cfg, nil
}

func (s *PostgresPoolStorage) SaveEmailConfig(ctx context.Context, config EmailConfig) error {
	if config.ID == "" {
		config.ID = "default"
	}
	_, err := s.pool.Exec(ctx, `
		INSERT INTO email_configs (id, provider, host, port, username, password, from_address, from_name, api_key, encryption, enabled, recipients, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,now(),now())
		ON CONFLICT (id) DO UPDATE SET
			provider=EXCLUDED.provider,
			host=EXCLUDED.host,
			port=EXCLUDED.port,
			username=EXCLUDED.username,
			password=EXCLUDED.password,
			from_address=EXCLUDED.from_address,
			from_name=EXCLUDED.from_name,
			api_key=EXCLUDED.api_key,
			encryption=EXCLUDED.encryption,
			enabled=EXCLUDED.enabled,
			recipients=EXCLUDED.recipients,
			updated_at=now()
	`, config.ID, config.Provider, config.Host, config.Port, config.Username, config.Password,
		config.FromAddress, config.FromName, config.APIKey, config.Encryption, config.Enabled, config.Recipients)
	return err
}

// Scheduled Jobs & Locking

func (s *PostgresPoolStorage) AcquireAdvisoryLock(ctx context.Context, key int64) (bool, error) {
	var ok bool
	err := s.pool.QueryRow(ctx, `SELECT pg_try_advisory_lock($1)`, key).Scan(&ok)
	return ok, err
}

func (s *PostgresPoolStorage) ReleaseAdvisoryLock(ctx context.Context, key int64) (bool, error) {
	var ok bool
	err := s.pool.QueryRow(ctx, `SELECT pg_advisory_unlock($1)`, key).Scan(&ok)
	return ok, err
}

func (s *PostgresPoolStorage) UpdateScheduledJob(ctx context.Context, name string, started time.Time, dur time.Duration, success bool, errMsg string) error {
	status := 0
	if success {
		status = 1
	}
	_, err := s.pool.Exec(ctx, `
		INSERT INTO scheduled_jobs (name, last_run_at, last_duration_ms, last_success, last_error)
		VALUES ($1,$2,$3,$4,$5)
		ON CONFLICT (name) DO UPDATE SET
			last_run_at=EXCLUDED.last_run_at,
			last_duration_ms=EXCLUDED.last_duration_ms,
			last_success=EXCLUDED.last_success,
			last_error=EXCLUDED.last_error
	`, name, started, dur.Milliseconds(), status, errMsg)
	return err
}
