package store

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/podrewind/guest-engine/internal/model"
)

// PostgresStore implements Store using pgxpool. This is the deployment
// target when multiple warm instances share one spend counter.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string) (*PostgresStore, error) {
	cfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}
	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: connect")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return &PostgresStore{pool: pool}, nil
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS budgets (
	period            TEXT PRIMARY KEY,
	monthly_limit_usd DOUBLE PRECISION NOT NULL,
	current_spend_usd DOUBLE PRECISION NOT NULL DEFAULT 0,
	warning_threshold DOUBLE PRECISION NOT NULL DEFAULT 0.8,
	created_at        TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at        TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS daily_usage (
	date     TEXT NOT NULL,
	method   TEXT NOT NULL,
	units    BIGINT NOT NULL DEFAULT 0,
	cost_usd DOUBLE PRECISION NOT NULL DEFAULT 0,
	episodes INTEGER NOT NULL DEFAULT 0,
	PRIMARY KEY (date, method)
);
`

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}

func (s *PostgresStore) GetBudget(ctx context.Context, period string) (*model.Budget, error) {
	var b model.Budget
	err := s.pool.QueryRow(ctx,
		`SELECT period, monthly_limit_usd, current_spend_usd, warning_threshold
		 FROM budgets WHERE period = $1`, period,
	).Scan(&b.Period, &b.MonthlyLimitUSD, &b.CurrentSpendUSD, &b.WarningThreshold)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: get budget %s", period)
	}
	return &b, nil
}

func (s *PostgresStore) InitBudget(ctx context.Context, b model.Budget) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO budgets (period, monthly_limit_usd, current_spend_usd, warning_threshold)
		 VALUES ($1, $2, $3, $4)
		 ON CONFLICT (period) DO NOTHING`,
		b.Period, b.MonthlyLimitUSD, b.CurrentSpendUSD, b.WarningThreshold,
	)
	return eris.Wrapf(err, "postgres: init budget %s", b.Period)
}

func (s *PostgresStore) AddSpend(ctx context.Context, period string, amountUSD float64) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE budgets
		 SET current_spend_usd = current_spend_usd + $1, updated_at = now()
		 WHERE period = $2`,
		amountUSD, period,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: add spend %s", period)
	}
	if tag.RowsAffected() == 0 {
		return eris.Errorf("postgres: add spend: no budget row for period %s", period)
	}
	return nil
}

func (s *PostgresStore) AddDailyUsage(ctx context.Context, date string, method model.Method, units int64, costUSD float64, episodes int) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO daily_usage (date, method, units, cost_usd, episodes)
		 VALUES ($1, $2, $3, $4, $5)
		 ON CONFLICT (date, method) DO UPDATE SET
			units    = daily_usage.units + EXCLUDED.units,
			cost_usd = daily_usage.cost_usd + EXCLUDED.cost_usd,
			episodes = daily_usage.episodes + EXCLUDED.episodes`,
		date, string(method), units, costUSD, episodes,
	)
	return eris.Wrapf(err, "postgres: add daily usage %s/%s", date, method)
}
