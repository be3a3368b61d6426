// Package db opens the PostgreSQL audit database and applies its migrations.
package db

import (
	"context"
	"database/sql"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	_ "github.com/lib/pq"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

const pingTimeout = 5 * time.Second

type DB struct {
	*sql.DB
}

// Open connects to PostgreSQL. A DSN without an sslmode that fails to
// connect is retried once with sslmode=disable, which local servers need.
func Open(ctx context.Context, dsn string) (*DB, error) {
	if dsn == "" {
		return nil, errors.New("db: connection string is required")
	}
	sqlDB, err := connect(ctx, dsn)
	if err != nil && !strings.Contains(strings.ToLower(dsn), "sslmode") {
		log.Warn().Err(err).Msg("retrying database connection with SSL disabled")
		sqlDB, err = connect(ctx, withSSLDisabled(dsn))
	}
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxOpenConns(10)
	sqlDB.SetMaxIdleConns(2)
	sqlDB.SetConnMaxIdleTime(5 * time.Minute)
	return &DB{DB: sqlDB}, nil
}

func connect(ctx context.Context, dsn string) (*sql.DB, error) {
	sqlDB, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, errors.Wrap(err, "db: open")
	}
	ctx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()
	if err := sqlDB.PingContext(ctx); err != nil {
		_ = sqlDB.Close()
		return nil, errors.Wrap(err, "db: ping")
	}
	return sqlDB, nil
}

func withSSLDisabled(dsn string) string {
	if strings.Contains(dsn, "?") {
		return dsn + "&sslmode=disable"
	}
	return dsn + "?sslmode=disable"
}

func (db *DB) HealthCheck(ctx context.Context) error {
	return db.PingContext(ctx)
}

// Migration is one NNN_name.sql file.
type Migration struct {
	Number int
	Name   string
	SQL    string
}

// RunMigrations applies, in order, every migration in dir not yet recorded
// in schema_migrations. Each migration runs in its own transaction.
func (db *DB) RunMigrations(ctx context.Context, dir string) error {
	migrations, err := ReadMigrations(dir)
	if err != nil {
		return errors.Wrap(err, "db: read migrations")
	}
	if len(migrations) == 0 {
		log.Info().Str("dir", dir).Msg("no migrations found")
		return nil
	}
	if _, err := db.ExecContext(ctx, createMigrationTable); err != nil {
		return errors.Wrap(err, "db: create schema_migrations")
	}
	for _, m := range migrations {
		applied, err := db.isApplied(ctx, m.Number)
		if err != nil {
			return errors.Wrapf(err, "db: check migration %d", m.Number)
		}
		if applied {
			log.Debug().Int("version", m.Number).Msg("migration already applied")
			continue
		}
		if err := db.apply(ctx, m); err != nil {
			return err
		}
		log.Info().Int("version", m.Number).Str("name", m.Name).Msg("migration applied")
	}
	return nil
}

func (db *DB) apply(ctx context.Context, m Migration) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "db: begin migration")
	}
	if _, err := tx.ExecContext(ctx, m.SQL); err != nil {
		_ = tx.Rollback()
		return errors.Wrapf(err, "db: execute migration %d", m.Number)
	}
	if _, err := tx.ExecContext(ctx,
		"INSERT INTO schema_migrations (version, name) VALUES ($1, $2)",
		m.Number, m.Name,
	); err != nil {
		_ = tx.Rollback()
		return errors.Wrapf(err, "db: record migration %d", m.Number)
	}
	return errors.Wrapf(tx.Commit(), "db: commit migration %d", m.Number)
}

const createMigrationTable = `
CREATE TABLE IF NOT EXISTS schema_migrations (
	version INTEGER PRIMARY KEY,
	name TEXT NOT NULL,
	applied_at TIMESTAMPTZ DEFAULT NOW()
)`

func (db *DB) isApplied(ctx context.Context, number int) (bool, error) {
	var count int
	err := db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM schema_migrations WHERE version = $1", number,
	).Scan(&count)
	return count > 0, err
}

// ReadMigrations loads NNN_name.sql files from dir sorted by number. Files
// without a numeric prefix are ignored.
func ReadMigrations(dir string) ([]Migration, error) {
	var migrations []Migration
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !strings.HasSuffix(path, ".sql") {
			return nil
		}
		prefix, rest, ok := strings.Cut(d.Name(), "_")
		if !ok {
			return nil
		}
		number, err := strconv.Atoi(prefix)
		if err != nil {
			return nil
		}
		b, err := os.ReadFile(path)
		if err != nil {
			return errors.Wrapf(err, "read migration %s", d.Name())
		}
		migrations = append(migrations, Migration{
			Number: number,
			Name:   strings.TrimSuffix(rest, ".sql"),
			SQL:    string(b),
		})
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Slice(migrations, func(i, j int) bool {
		return migrations[i].Number < migrations[j].Number
	})
	return migrations, nil
}
