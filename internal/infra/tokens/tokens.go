// Package tokens caches API keys and their per-token rate limits, loaded
// from a small Postgres control-plane table.
package tokens

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/url"
	"sync"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"

	"pdf2image/internal/config"
	"pdf2image/internal/infra/logging"
)

var store struct {
	sync.RWMutex
	cache map[string]int
}

var conn struct {
	sync.Mutex
	dsn string
	db  *sql.DB
}

var (
	// ErrInvalidAPIKey signals that the provided API key is not known.
	ErrInvalidAPIKey = errors.New("invalid api key")
	// ErrStoreNotReady signals that the token store has not been loaded yet,
	// e.g. while the database is still starting.
	ErrStoreNotReady = errors.New("token store not ready")
)

func dsn(cfg config.PostgresConfig) (string, error) {
	if cfg.Host == "" {
		return "", fmt.Errorf("postgres host is empty")
	}
	if cfg.Database == "" {
		return "", fmt.Errorf("postgres database is empty")
	}
	if cfg.User == "" {
		return "", fmt.Errorf("postgres user is empty")
	}

	port := cfg.Port
	if port == 0 {
		port = 5432
	}
	u := &url.URL{Scheme: "postgres", Host: fmt.Sprintf("%s:%d", cfg.Host, port), Path: "/" + cfg.Database}
	if cfg.Password != "" {
		u.User = url.UserPassword(cfg.User, cfg.Password)
	} else {
		u.User = url.User(cfg.User)
	}
	q := u.Query()
	if cfg.SSLMode != "" {
		q.Set("sslmode", cfg.SSLMode)
	}
	u.RawQuery = q.Encode()
	return u.String(), nil
}

func open(cfg config.PostgresConfig) (*sql.DB, error) {
	d, err := dsn(cfg)
	if err != nil {
		return nil, err
	}

	conn.Lock()
	defer conn.Unlock()

	if conn.db != nil && conn.dsn == d {
		return conn.db, nil
	}
	if conn.db != nil {
		_ = conn.db.Close()
		conn.db = nil
		conn.dsn = ""
	}

	db, err := sql.Open("pgx", d)
	if err != nil {
		return nil, err
	}
	// Small control-plane table, a handful of connections is plenty.
	db.SetMaxOpenConns(5)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(30 * time.Minute)

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}

	conn.db = db
	conn.dsn = d
	return conn.db, nil
}

func ensureSchema(cfg config.PostgresConfig) error {
	db, err := open(cfg)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	ddl := `CREATE TABLE IF NOT EXISTS tokens (
		token TEXT PRIMARY KEY,
		rate_limit INTEGER NOT NULL DEFAULT 60,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		comment TEXT
	);`
	if _, err := db.ExecContext(ctx, ddl); err != nil {
		return err
	}
	_, err = db.ExecContext(ctx, `CREATE INDEX IF NOT EXISTS idx_tokens_created_at ON tokens (created_at);`)
	return err
}

// Load reads all API tokens and their rate limits from Postgres into the
// in-memory cache.
func Load(cfg config.PostgresConfig) error {
	if err := ensureSchema(cfg); err != nil {
		return err
	}

	db, err := open(cfg)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	rows, err := db.QueryContext(ctx, `SELECT token, rate_limit FROM tokens;`)
	if err != nil {
		return err
	}
	defer rows.Close()

	cache := make(map[string]int)
	for rows.Next() {
		var token string
		var limit int
		if err := rows.Scan(&token, &limit); err != nil {
			return err
		}
		cache[token] = limit
	}
	if err := rows.Err(); err != nil {
		return err
	}

	store.Lock()
	store.cache = cache
	store.Unlock()
	return nil
}

// LoadMap replaces the in-memory token cache with the provided map. A nil
// map returns the store to its unloaded state, so Ready reports false again.
// Intended for tests and local debugging.
func LoadMap(m map[string]int) {
	if m == nil {
		store.Lock()
		store.cache = nil
		store.Unlock()
		return
	}
	cache := make(map[string]int, len(m))
	for k, v := range m {
		cache[k] = v
	}
	store.Lock()
	store.cache = cache
	store.Unlock()
}

// Ready returns true once the cache has been initialized at least once.
func Ready() bool {
	store.RLock()
	defer store.RUnlock()
	return store.cache != nil
}

// Validate checks whether the given token exists in the cache.
func Validate(token string) bool {
	store.RLock()
	defer store.RUnlock()
	_, ok := store.cache[token]
	return ok
}

// RateLimit returns the configured per-token rate limit. Unknown tokens get
// 0, which disables the token limiter for them.
func RateLimit(token string) int {
	store.RLock()
	defer store.RUnlock()
	if limit, ok := store.cache[token]; ok {
		return limit
	}
	return 0
}

// RefreshPeriodically reloads the token cache at the given interval until
// the stop channel is closed.
func RefreshPeriodically(cfg config.PostgresConfig, interval time.Duration, stop <-chan struct{}) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			if err := Load(cfg); err != nil {
				logging.Error("Failed to reload API tokens", "error", err)
			}
		case <-stop:
			return
		}
	}
}
