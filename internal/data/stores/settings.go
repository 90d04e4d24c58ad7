package stores

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/hay-kot/errq/internal/data/db"
)

// ErrEmptyKey is returned for blank setting keys.
var ErrEmptyKey = errors.New("empty setting key")

// SettingsStore persists small key/value settings in SQLite.
type SettingsStore struct {
	db *db.DB
}

// NewSettingsStore creates a settings store on database.
func NewSettingsStore(database *db.DB) *SettingsStore {
	return &SettingsStore{db: database}
}

// Get returns the value for key. ok is false when the key does not exist.
func (s *SettingsStore) Get(ctx context.Context, key string) (value string, ok bool, err error) {
	key, err = normalizeKey(key)
	if err != nil {
		return "", false, err
	}

	err = s.db.Conn().QueryRowContext(ctx, "SELECT value FROM settings WHERE key = ?", key).Scan(&value)
	if IsNotFoundError(err) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("settings get %q: %w", key, err)
	}
	return value, true, nil
}

// Set stores value under key, replacing any previous value.
func (s *SettingsStore) Set(ctx context.Context, key, value string) error {
	key, err := normalizeKey(key)
	if err != nil {
		return err
	}

	if err := upsert(ctx, s.db.Conn(), key, value); err != nil {
		return fmt.Errorf("settings set %q: %w", key, err)
	}
	return nil
}

// Delete removes key if it exists.
func (s *SettingsStore) Delete(ctx context.Context, key string) error {
	key, err := normalizeKey(key)
	if err != nil {
		return err
	}

	if _, err := s.db.Conn().ExecContext(ctx, "DELETE FROM settings WHERE key = ?", key); err != nil {
		return fmt.Errorf("settings delete %q: %w", key, err)
	}
	return nil
}

// GetInt returns the integer stored under key. A missing key reads as 0.
func (s *SettingsStore) GetInt(ctx context.Context, key string) (int64, error) {
	raw, ok, err := s.Get(ctx, key)
	if err != nil || !ok {
		return 0, err
	}

	n, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("settings %q is not an integer: %w", key, err)
	}
	return n, nil
}

// SetInt stores n under key.
func (s *SettingsStore) SetInt(ctx context.Context, key string, n int64) error {
	return s.Set(ctx, key, strconv.FormatInt(n, 10))
}

// Incr raises the integer under key to at least floor, adds one, persists
// the result and returns it, all in one transaction. Non-integer values are
// treated as 0.
func (s *SettingsStore) Incr(ctx context.Context, key string, floor int64) (int64, error) {
	key, err := normalizeKey(key)
	if err != nil {
		return 0, err
	}

	var next int64
	err = s.db.WithTx(ctx, func(tx *sql.Tx) error {
		var raw string
		err := tx.QueryRowContext(ctx, "SELECT value FROM settings WHERE key = ?", key).Scan(&raw)
		if err != nil && !IsNotFoundError(err) {
			return err
		}

		current, _ := strconv.ParseInt(raw, 10, 64)
		next = max(current, floor) + 1

		return upsert(ctx, tx, key, strconv.FormatInt(next, 10))
	})
	if err != nil {
		return 0, fmt.Errorf("settings incr %q: %w", key, err)
	}

	return next, nil
}

// Raise lifts the integer under key to floor when it is lower and returns
// the stored value. Non-integer values are treated as 0.
func (s *SettingsStore) Raise(ctx context.Context, key string, floor int64) (int64, error) {
	key, err := normalizeKey(key)
	if err != nil {
		return 0, err
	}

	var value int64
	err = s.db.WithTx(ctx, func(tx *sql.Tx) error {
		var raw string
		err := tx.QueryRowContext(ctx, "SELECT value FROM settings WHERE key = ?", key).Scan(&raw)
		if err != nil && !IsNotFoundError(err) {
			return err
		}

		current, _ := strconv.ParseInt(raw, 10, 64)
		if current >= floor {
			value = current
			return nil
		}

		value = floor
		return upsert(ctx, tx, key, strconv.FormatInt(value, 10))
	})
	if err != nil {
		return 0, fmt.Errorf("settings raise %q: %w", key, err)
	}

	return value, nil
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func upsert(ctx context.Context, x execer, key, value string) error {
	_, err := x.ExecContext(ctx,
		`INSERT INTO settings (key, value, updated_at) VALUES (?, ?, ?)
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		key, value, time.Now().UnixNano(),
	)
	return err
}

func normalizeKey(key string) (string, error) {
	key = strings.TrimSpace(key)
	if key == "" {
		return "", ErrEmptyKey
	}
	return key, nil
}
