// Package settings persists sectioned key/value settings, such as gamepad
// mappings, in a local sqlite database.
package settings

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/sqlite3"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	_ "github.com/mattn/go-sqlite3"
	"go.uber.org/zap"
)

//go:embed migrations/*.sql
var migrations embed.FS

// Provider reads and writes settings sections. Both the local store and the
// remote settings service implement it.
type Provider interface {
	Section(ctx context.Context, section string) (map[string]string, error)
	SaveSettings(ctx context.Context, section string, values map[string]string) error
}

// Store is a sqlite backed Provider.
type Store struct {
	db  *sql.DB
	log *zap.Logger
}

// Open migrates the database at path to the latest schema and opens it.
func Open(path string, log *zap.Logger) (*Store, error) {
	if err := migrateUp(path); err != nil {
		return nil, fmt.Errorf("migrate %s: %w", path, err)
	}

	dsn := fmt.Sprintf("file:%s?_foreign_keys=on&_busy_timeout=5000", path)
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1) // sqlite
	db.SetConnMaxLifetime(0)

	log = log.Named("settings")
	log.Debug("Settings store opened", zap.String("path", path))
	return &Store{db: db, log: log}, nil
}

func migrateUp(path string) error {
	src, err := iofs.New(migrations, "migrations")
	if err != nil {
		return err
	}
	m, err := migrate.NewWithSourceInstance("iofs", src, "sqlite3://"+path)
	if err != nil {
		return err
	}
	defer m.Close()

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return err
	}
	return nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Section returns every key of section. A section that was never written is
// returned as an empty map.
func (s *Store) Section(ctx context.Context, section string) (map[string]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT key, value FROM settings WHERE section = ?`, section)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make(map[string]string)
	for rows.Next() {
		var k, v string
		if err := rows.Scan(&k, &v); err != nil {
			return nil, err
		}
		out[k] = v
	}
	return out, rows.Err()
}

// SaveSettings upserts values into section. Keys not named in values are
// left untouched.
func (s *Store) SaveSettings(ctx context.Context, section string, values map[string]string) error {
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO settings(section, key, value, updated_at)
		VALUES (?, ?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(section, key) DO UPDATE SET
		 value=excluded.value,
		 updated_at=CURRENT_TIMESTAMP;
		`)
		if err != nil {
			return err
		}
		defer stmt.Close()

		for k, v := range values {
			if _, err := stmt.ExecContext(ctx, section, k, v); err != nil {
				return fmt.Errorf("save %s.%s: %w", section, k, err)
			}
		}
		return nil
	})
	if err != nil {
		return err
	}
	s.log.Info("Settings saved", zap.String("section", section), zap.Int("keys", len(values)))
	return nil
}

func (s *Store) withTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	return tx.Commit()
}
