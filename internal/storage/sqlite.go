package storage

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.trai.ch/zerr"
	_ "modernc.org/sqlite"

	logx "tilesync/pkg/logx"
)

//go:embed migrations.sql
var migrations string

const defaultBusyTimeout = time.Second

type sqliteStore struct {
	db  *sql.DB
	log logx.Logger
}

func openSQLite(cfg Config, log logx.Logger) (Store, error) {
	path := strings.TrimSpace(cfg.Path)
	if path == "" {
		return nil, zerr.With(zerr.Wrap(ErrPathRequired, "open sqlite storage"), "driver", DriverSQLite)
	}
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, zerr.With(zerr.Wrap(err, "create storage dir"), "path", path)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, zerr.With(zerr.Wrap(err, "open sqlite"), "path", path)
	}
	// One connection: SQLite serializes writers anyway, and ":memory:" is per connection.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	busy := cfg.BusyTimeout
	if busy <= 0 {
		busy = defaultBusyTimeout
	}
	_, _ = db.Exec(fmt.Sprintf("PRAGMA busy_timeout = %d", busy.Milliseconds()))
	_, _ = db.Exec("PRAGMA journal_mode = WAL")
	_, _ = db.Exec("PRAGMA synchronous = NORMAL")

	st := &sqliteStore{db: db, log: log}
	if _, err := db.ExecContext(context.Background(), migrations); err != nil {
		_ = db.Close()
		return nil, zerr.With(zerr.Wrap(err, "migrate sqlite"), "path", path)
	}
	log.Debug("sqlite storage opened", logx.String("path", path), logx.Duration("busy_timeout", busy))
	return st, nil
}

func (s *sqliteStore) GetString(ctx context.Context, key, def string) (string, error) {
	var v string
	err := s.db.QueryRowContext(ctx, `SELECT value FROM kv WHERE key = ?`, key).Scan(&v)
	if errors.Is(err, sql.ErrNoRows) {
		return def, nil
	}
	if err != nil {
		return def, s.wrap(err, key)
	}
	return v, nil
}

func (s *sqliteStore) PutString(ctx context.Context, key, value string) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO kv(key, value, updated_at) VALUES(?,?,?)
		 ON CONFLICT(key) DO UPDATE SET value=excluded.value, updated_at=excluded.updated_at`,
		key, value, time.Now().UnixMilli(),
	)
	return s.wrap(err, key)
}

func (s *sqliteStore) GetBool(ctx context.Context, key string, def bool) (bool, error) {
	raw, err := s.GetString(ctx, key, "")
	if err != nil {
		return def, err
	}
	if raw == "" {
		return def, nil
	}
	return parseBool(key, raw, def)
}

func (s *sqliteStore) PutBool(ctx context.Context, key string, value bool) error {
	return s.PutString(ctx, key, formatBool(value))
}

func (s *sqliteStore) AddToSet(ctx context.Context, set, member string) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO set_members(set_name, member) VALUES(?,?) ON CONFLICT DO NOTHING`, set, member)
	return s.wrap(err, set)
}

func (s *sqliteStore) RemoveFromSet(ctx context.Context, set, member string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM set_members WHERE set_name = ? AND member = ?`, set, member)
	return s.wrap(err, set)
}

func (s *sqliteStore) GetSet(ctx context.Context, set string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT member FROM set_members WHERE set_name = ? ORDER BY member`, set)
	if err != nil {
		return nil, s.wrap(err, set)
	}
	defer rows.Close()
	var out []string
	for rows.Next() {
		var m string
		if err := rows.Scan(&m); err != nil {
			return nil, s.wrap(err, set)
		}
		out = append(out, m)
	}
	return out, s.wrap(rows.Err(), set)
}

func (s *sqliteStore) Delete(ctx context.Context, key string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return s.wrap(err, key)
	}
	defer func() { _ = tx.Rollback() }()
	if _, err := tx.ExecContext(ctx, `DELETE FROM kv WHERE key = ?`, key); err != nil {
		return s.wrap(err, key)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM set_members WHERE set_name = ?`, key); err != nil {
		return s.wrap(err, key)
	}
	return s.wrap(tx.Commit(), key)
}

func (s *sqliteStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// wrap maps a closed database to ErrClosed and attaches the key.
func (s *sqliteStore) wrap(err error, key string) error {
	if err == nil {
		return nil
	}
	if strings.Contains(err.Error(), "database is closed") {
		err = ErrClosed
	}
	return zerr.With(zerr.Wrap(err, "sqlite"), "key", key)
}
