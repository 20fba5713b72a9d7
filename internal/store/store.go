// Package store — персистентное key-value хранилище конфигурации правил на SQLite.
// Каждое значение — JSON-документ.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

// Ключи таблиц правил.
const (
	KeySuffixTriggers     = "XtionTriggers"
	KeyCumulativeTriggers = "XtionCumulativeTriggers"
	KeyMediaRules         = "XtionGifRules"
	KeyCooldowns          = "XtionCooldowns"
	KeyRotatingSchedule   = "XtionRotatingTriggerSchedule"
)

// RuleKeys — все ключи, которые читает загрузчик правил.
var RuleKeys = []string{KeySuffixTriggers, KeyCumulativeTriggers, KeyMediaRules, KeyCooldowns, KeyRotatingSchedule}

var (
	ErrNotFound    = errors.New("store: key not found")
	ErrInvalidJSON = errors.New("store: value is not valid JSON")
)

// Entry — одна запись хранилища.
type Entry struct {
	Key       string    `json:"key"`
	Value     string    `json:"value"`
	UpdatedAt time.Time `json:"updatedAt"`
}

type Store struct {
	db   *sql.DB
	path string
}

// Open открывает или создаёт базу по пути.
func Open(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create store dir: %w", err)
	}
	db, err := sql.Open("sqlite", path+"?_pragma=journal_mode(wal)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}
	s := &Store{db: db, path: path}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return s, nil
}

func (s *Store) migrate() error {
	_, err := s.db.Exec(`
	CREATE TABLE IF NOT EXISTS kv (
		key        TEXT PRIMARY KEY,
		value      TEXT NOT NULL,
		updated_at TEXT NOT NULL
	)`)
	return err
}

func (s *Store) Path() string { return s.path }

func (s *Store) Close() error { return s.db.Close() }

// Get возвращает значение ключа или ErrNotFound.
func (s *Store) Get(ctx context.Context, key string) (string, error) {
	var v string
	err := s.db.QueryRowContext(ctx, `SELECT value FROM kv WHERE key = ?`, key).Scan(&v)
	if errors.Is(err, sql.ErrNoRows) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("get %s: %w", key, err)
	}
	return v, nil
}

// Set записывает значение; значение обязано быть корректным JSON.
func (s *Store) Set(ctx context.Context, key, value string) error {
	if key == "" {
		return errors.New("store: empty key")
	}
	if !json.Valid([]byte(value)) {
		return fmt.Errorf("set %s: %w", key, ErrInvalidJSON)
	}
	_, err := s.db.ExecContext(ctx, `
	INSERT INTO kv (key, value, updated_at) VALUES (?, ?, ?)
	ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		key, value, time.Now().UTC().Format(time.RFC3339Nano))
	if err != nil {
		return fmt.Errorf("set %s: %w", key, err)
	}
	return nil
}

// Delete удаляет ключ; отсутствие ключа — ErrNotFound.
func (s *Store) Delete(ctx context.Context, key string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM kv WHERE key = ?`, key)
	if err != nil {
		return fmt.Errorf("delete %s: %w", key, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// List возвращает все записи, упорядоченные по ключу.
func (s *Store) List(ctx context.Context) ([]Entry, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT key, value, updated_at FROM kv ORDER BY key`)
	if err != nil {
		return nil, fmt.Errorf("list: %w", err)
	}
	defer rows.Close()

	var out []Entry
	for rows.Next() {
		var (
			e  Entry
			at string
		)
		if err := rows.Scan(&e.Key, &e.Value, &at); err != nil {
			return nil, fmt.Errorf("scan: %w", err)
		}
		e.UpdatedAt, _ = time.Parse(time.RFC3339Nano, at)
		out = append(out, e)
	}
	return out, rows.Err()
}

// Values читает несколько ключей сразу; отсутствующие ключи в результат не попадают.
func (s *Store) Values(ctx context.Context, keys ...string) (map[string]string, error) {
	out := make(map[string]string, len(keys))
	for _, k := range keys {
		v, err := s.Get(ctx, k)
		if errors.Is(err, ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		out[k] = v
	}
	return out, nil
}
