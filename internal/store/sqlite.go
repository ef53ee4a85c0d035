package store

import (
	"context"
	"database/sql"

	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/podrewind/guest-engine/internal/model"
)

// SQLiteStore implements Store using modernc.org/sqlite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS budgets (
	period            TEXT PRIMARY KEY,
	monthly_limit_usd REAL NOT NULL,
	current_spend_usd REAL NOT NULL DEFAULT 0,
	warning_threshold REAL NOT NULL DEFAULT 0.8,
	created_at        DATETIME NOT NULL DEFAULT (datetime('now')),
	updated_at        DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS daily_usage (
	date     TEXT NOT NULL,
	method   TEXT NOT NULL,
	units    INTEGER NOT NULL DEFAULT 0,
	cost_usd REAL NOT NULL DEFAULT 0,
	episodes INTEGER NOT NULL DEFAULT 0,
	PRIMARY KEY (date, method)
);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) GetBudget(ctx context.Context, period string) (*model.Budget, error) {
	var b model.Budget
	err := s.db.QueryRowContext(ctx,
		`SELECT period, monthly_limit_usd, current_spend_usd, warning_threshold
		 FROM budgets WHERE period = ?`, period,
	).Scan(&b.Period, &b.MonthlyLimitUSD, &b.CurrentSpendUSD, &b.WarningThreshold)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: get budget %s", period)
	}
	return &b, nil
}

func (s *SQLiteStore) InitBudget(ctx context.Context, b model.Budget) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO budgets (period, monthly_limit_usd, current_spend_usd, warning_threshold)
		 VALUES (?, ?, ?, ?)
		 ON CONFLICT (period) DO NOTHING`,
		b.Period, b.MonthlyLimitUSD, b.CurrentSpendUSD, b.WarningThreshold,
	)
	return eris.Wrapf(err, "sqlite: init budget %s", b.Period)
}

func (s *SQLiteStore) AddSpend(ctx context.Context, period string, amountUSD float64) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE budgets
		 SET current_spend_usd = current_spend_usd + ?, updated_at = datetime('now')
		 WHERE period = ?`,
		amountUSD, period,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: add spend %s", period)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return eris.Wrap(err, "sqlite: add spend rows affected")
	}
	if n == 0 {
		return eris.Errorf("sqlite: add spend: no budget row for period %s", period)
	}
	return nil
}

func (s *SQLiteStore) AddDailyUsage(ctx context.Context, date string, method model.Method, units int64, costUSD float64, episodes int) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO daily_usage (date, method, units, cost_usd, episodes)
		 VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT (date, method) DO UPDATE SET
			units    = units + excluded.units,
			cost_usd = cost_usd + excluded.cost_usd,
			episodes = episodes + excluded.episodes`,
		date, string(method), units, costUSD, episodes,
	)
	return eris.Wrapf(err, "sqlite: add daily usage %s/%s", date, method)
}
