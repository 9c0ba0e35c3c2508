package database

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/scontrinidev/scontrini/internal/config"
)

// Pool is the subset of pgxpool.Pool the repository uses. pgxmock
// satisfies it too, which keeps the query paths testable without a
// running Postgres.
type Pool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Begin(ctx context.Context) (pgx.Tx, error)
	Ping(ctx context.Context) error
	Close()
}

// DB wraps the connection pool
type DB struct {
	Pool Pool
}

// Connect creates a new database connection pool
func Connect(databaseURL string) (*DB, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	poolConfig, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, eris.Wrap(err, "database: parse database URL")
	}

	poolConfig.MaxConns = 25
	poolConfig.MinConns = 5
	poolConfig.MaxConnLifetime = time.Hour
	poolConfig.MaxConnIdleTime = 30 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, eris.Wrap(err, "database: create connection pool")
	}

	if err := pool.Ping(ctx); err != nil {
		return nil, eris.Wrap(err, "database: ping")
	}

	zap.L().Info("database connected")
	return &DB{Pool: pool}, nil
}

// Close closes the database connection pool
func (db *DB) Close() {
	db.Pool.Close()
}

// RunMigrations applies pending migrations in version order.
func RunMigrations(db *DB) error {
	ctx := context.Background()

	_, err := db.Pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INT PRIMARY KEY,
			applied_at TIMESTAMP DEFAULT NOW()
		)
	`)
	if err != nil {
		return eris.Wrap(err, "database: create migrations table")
	}

	for version := 1; ; version++ {
		migration, ok := migrations[version]
		if !ok {
			break
		}

		var exists bool
		err := db.Pool.QueryRow(ctx,
			"SELECT EXISTS(SELECT 1 FROM schema_migrations WHERE version = $1)",
			version,
		).Scan(&exists)
		if err != nil {
			return eris.Wrapf(err, "database: check migration %d", version)
		}

		if exists {
			continue
		}

		zap.L().Info("applying migration", zap.Int("version", version))
		if _, err = db.Pool.Exec(ctx, migration); err != nil {
			return eris.Wrapf(err, "database: apply migration %d", version)
		}

		if _, err = db.Pool.Exec(ctx,
			"INSERT INTO schema_migrations (version) VALUES ($1)",
			version,
		); err != nil {
			return eris.Wrapf(err, "database: record migration %d", version)
		}
	}

	return nil
}

// EnsureAdminUser creates the admin user if it doesn't exist
func EnsureAdminUser(db *DB, cfg *config.Config) error {
	if cfg.AdminPassword == "" {
		zap.L().Info("ADMIN_PASSWORD not set, skipping admin user creation")
		return nil
	}

	ctx := context.Background()

	var exists bool
	err := db.Pool.QueryRow(ctx,
		"SELECT EXISTS(SELECT 1 FROM users WHERE email = $1)",
		cfg.AdminEmail,
	).Scan(&exists)
	if err != nil {
		return eris.Wrap(err, "database: check for admin user")
	}

	if exists {
		return nil
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(cfg.AdminPassword), bcrypt.DefaultCost)
	if err != nil {
		return eris.Wrap(err, "database: hash admin password")
	}

	_, err = db.Pool.Exec(ctx, `
		INSERT INTO users (email, password_hash, role)
		VALUES ($1, $2, 'admin')
	`, cfg.AdminEmail, string(hashedPassword))
	if err != nil {
		return eris.Wrap(err, "database: create admin user")
	}

	zap.L().Info("admin user created", zap.String("email", cfg.AdminEmail))
	return nil
}

var migrations = map[int]string{
	1: `
		CREATE TABLE users (
			id SERIAL PRIMARY KEY,
			email TEXT NOT NULL UNIQUE,
			password_hash TEXT NOT NULL,
			role TEXT NOT NULL DEFAULT 'admin',
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)
	`,
	2: `
		CREATE TABLE receipts (
			id SERIAL PRIMARY KEY,
			contract_version TEXT NOT NULL,
			captured_at TEXT,
			image_bucket TEXT,
			image_key TEXT,
			merchant_name TEXT,
			merchant_address TEXT,
			merchant_vat_id TEXT,
			merchant_fiscal_code TEXT,
			merchant_country TEXT NOT NULL DEFAULT 'IT',
			currency TEXT NOT NULL DEFAULT 'EUR',
			receipt_datetime TEXT,
			document_number TEXT,
			payment_method TEXT,
			subtotal DOUBLE PRECISION,
			vat_total DOUBLE PRECISION,
			total DOUBLE PRECISION,
			items_format TEXT NOT NULL DEFAULT 'unknown',
			ocr_engine TEXT NOT NULL DEFAULT 'tesseract',
			ocr_lang TEXT NOT NULL DEFAULT 'ita',
			ocr_text TEXT,
			ocr_confidence DOUBLE PRECISION,
			preprocess_steps TEXT[] NOT NULL DEFAULT '{}',
			warnings TEXT[] NOT NULL DEFAULT '{}',
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)
	`,
	3: `
		CREATE TABLE receipt_items (
			id SERIAL PRIMARY KEY,
			receipt_id INT NOT NULL REFERENCES receipts(id) ON DELETE CASCADE,
			line_no INT NOT NULL,
			raw_line TEXT,
			name TEXT,
			quantity DOUBLE PRECISION,
			unit TEXT,
			unit_price DOUBLE PRECISION,
			total_price DOUBLE PRECISION,
			vat_rate DOUBLE PRECISION
		);
		CREATE INDEX idx_receipt_items_receipt_id ON receipt_items(receipt_id)
	`,
	4: `
		CREATE INDEX idx_receipts_created_at ON receipts(created_at DESC)
	`,
}
