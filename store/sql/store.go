package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/golang-migrate/migrate/v4"
	sqlitemigrate "github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/passkey-wallet/go-sdk/store/sql/migrations"
	"github.com/passkey-wallet/go-sdk/types"
	log "github.com/sirupsen/logrus"
	_ "modernc.org/sqlite"
)

const (
	dbFile = "sqlite.db"

	getQuery    = "SELECT value FROM kv_entry WHERE key = ?"
	upsertQuery = `INSERT INTO kv_entry (key, value, updated_at) VALUES (?, ?, ?)
ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`
	deleteQuery = "DELETE FROM kv_entry WHERE key = ?"
)

type store struct {
	db *sql.DB
}

// NewStore opens the sqlite database under dir and applies the embedded migrations.
// An empty dir keeps the data in memory.
func NewStore(dir string) (types.KeyValueStore, error) {
	db, err := openDB(dir)
	if err != nil {
		return nil, err
	}
	if err := migrateDB(db); err != nil {
		//nolint:errcheck
		db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}
	return &store{db: db}, nil
}

func (s *store) GetType() string {
	return types.SQLStore
}

func (s *store) Get(ctx context.Context, key string) ([]byte, error) {
	var value []byte
	if err := s.db.QueryRowContext(ctx, getQuery, key).Scan(&value); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return value, nil
}

func (s *store) Set(ctx context.Context, key string, value []byte) error {
	if value == nil {
		value = []byte{}
	}
	_, err := s.db.ExecContext(ctx, upsertQuery, key, value, time.Now().UnixMilli())
	return err
}

func (s *store) Clear(ctx context.Context, key string) error {
	_, err := s.db.ExecContext(ctx, deleteQuery, key)
	return err
}

func (s *store) Close() {
	if err := s.db.Close(); err != nil {
		log.Debugf("error on closing sql db: %s", err)
	}
}

func openDB(dir string) (*sql.DB, error) {
	dsn := ":memory:"
	if dir != "" {
		if err := os.MkdirAll(dir, 0700); err != nil {
			return nil, fmt.Errorf("failed to create db directory: %w", err)
		}
		dsn = fmt.Sprintf(
			"file:%s?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)",
			filepath.Join(dir, dbFile),
		)
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open db: %w", err)
	}
	// a single connection keeps the in-memory database shared and serialises writes
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		//nolint:errcheck
		db.Close()
		return nil, fmt.Errorf("failed to ping db: %w", err)
	}
	return db, nil
}

func migrateDB(db *sql.DB) error {
	driver, err := sqlitemigrate.WithInstance(db, &sqlitemigrate.Config{})
	if err != nil {
		return err
	}
	source, err := iofs.New(migrations.FS, ".")
	if err != nil {
		return err
	}
	m, err := migrate.NewWithInstance("iofs", source, "sqlite", driver)
	if err != nil {
		return err
	}
	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return err
	}
	return nil
}
