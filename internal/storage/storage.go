// Package storage provides the durable key-value layer backing client state.
// Each connected dashboard client owns a namespace; within a namespace,
// values are JSON documents addressed by a fixed set of well-known keys.
package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/halolight/halolight/internal/common/logger"
	"github.com/halolight/halolight/internal/db"
)

// Well-known keys persisted by the state stores.
const (
	KeyToken            = "token"
	KeyUser             = "user"
	KeyAccounts         = "accounts"
	KeyActiveAccountID  = "activeAccountId"
	KeyRememberMe       = "rememberMe"
	KeySidebarCollapsed = "sidebarCollapsed"
	KeyTheme            = "theme"
	KeySkin             = "skin"
	KeyDashboardLayout  = "dashboardLayout"
)

const schema = `
CREATE TABLE IF NOT EXISTS kv_entries (
	namespace  TEXT NOT NULL,
	key        TEXT NOT NULL,
	value      TEXT NOT NULL,
	expires_at BIGINT,
	updated_at BIGINT NOT NULL,
	PRIMARY KEY (namespace, key)
);
`

// Store is the low-level persistence layer. Methods return errors; most
// callers should use a Namespace view, which applies the degrade-to-no-op
// semantics the state stores rely on.
type Store struct {
	pool *db.Pool
	log  *logger.Logger
	now  func() time.Time
}

// NewStore creates the store and ensures the backing table exists.
func NewStore(ctx context.Context, pool *db.Pool, log *logger.Logger) (*Store, error) {
	s := &Store{
		pool: pool,
		log:  log.WithFields(zap.String("component", "storage")),
		now:  func() time.Time { return time.Now().UTC() },
	}
	if _, err := pool.Writer().ExecContext(ctx, schema); err != nil {
		return nil, fmt.Errorf("failed to create kv_entries table: %w", err)
	}
	return s, nil
}

// Namespace returns a view of the store bound to a single client namespace.
func (s *Store) Namespace(ns string) *Namespace {
	return &Namespace{store: s, ns: ns, log: s.log.WithNamespace(ns)}
}

// Set stores value under (namespace, key) as JSON with no expiry.
func (s *Store) Set(ctx context.Context, ns, key string, value interface{}) error {
	return s.set(ctx, ns, key, value, nil)
}

// SetWithExpiry stores value with an absolute expiry of now+ttl.
func (s *Store) SetWithExpiry(ctx context.Context, ns, key string, value interface{}, ttl time.Duration) error {
	expiresAt := s.now().Add(ttl).UnixMilli()
	return s.set(ctx, ns, key, value, &expiresAt)
}

func (s *Store) set(ctx context.Context, ns, key string, value interface{}, expiresAt *int64) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to marshal value for key %q: %w", key, err)
	}

	writer := s.pool.Writer()
	query := writer.Rebind(`
		INSERT INTO kv_entries (namespace, key, value, expires_at, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (namespace, key) DO UPDATE SET
			value = excluded.value,
			expires_at = excluded.expires_at,
			updated_at = excluded.updated_at`)

	if _, err := writer.ExecContext(ctx, query, ns, key, string(data), expiresAt, s.now().UnixMilli()); err != nil {
		return fmt.Errorf("failed to write key %q: %w", key, err)
	}
	return nil
}

// Get reads the value under (namespace, key) into dest. A missing entry, an
// expired entry, or a value that fails to parse all report found=false; parse
// failures are logged, never propagated. Expired entries are deleted on read.
func (s *Store) Get(ctx context.Context, ns, key string, dest interface{}) (bool, error) {
	reader := s.pool.Reader()
	query := reader.Rebind(`SELECT value, expires_at FROM kv_entries WHERE namespace = ? AND key = ?`)

	var row struct {
		Value     string        `db:"value"`
		ExpiresAt sql.NullInt64 `db:"expires_at"`
	}
	if err := reader.GetContext(ctx, &row, query, ns, key); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, nil
		}
		return false, fmt.Errorf("failed to read key %q: %w", key, err)
	}

	if row.ExpiresAt.Valid && row.ExpiresAt.Int64 <= s.now().UnixMilli() {
		if err := s.Remove(ctx, ns, key); err != nil {
			s.log.Warn("Failed to delete expired entry",
				zap.String("namespace", ns),
				zap.String("key", key),
				zap.Error(err))
		}
		return false, nil
	}

	if err := json.Unmarshal([]byte(row.Value), dest); err != nil {
		// Corrupt persisted state behaves as if nothing was stored.
		s.log.Warn("Discarding unparseable stored value",
			zap.String("namespace", ns),
			zap.String("key", key),
			zap.Error(err))
		return false, nil
	}
	return true, nil
}

// Remove deletes the entry under (namespace, key). Removing a missing key is
// not an error.
func (s *Store) Remove(ctx context.Context, ns, key string) error {
	writer := s.pool.Writer()
	query := writer.Rebind(`DELETE FROM kv_entries WHERE namespace = ? AND key = ?`)
	if _, err := writer.ExecContext(ctx, query, ns, key); err != nil {
		return fmt.Errorf("failed to remove key %q: %w", key, err)
	}
	return nil
}

// Clear deletes every entry in the namespace.
func (s *Store) Clear(ctx context.Context, ns string) error {
	writer := s.pool.Writer()
	query := writer.Rebind(`DELETE FROM kv_entries WHERE namespace = ?`)
	if _, err := writer.ExecContext(ctx, query, ns); err != nil {
		return fmt.Errorf("failed to clear namespace %q: %w", ns, err)
	}
	return nil
}

// PurgeExpired removes every expired entry across all namespaces. Intended
// for periodic housekeeping; reads already treat expired entries as absent.
func (s *Store) PurgeExpired(ctx context.Context) (int64, error) {
	writer := s.pool.Writer()
	query := writer.Rebind(`DELETE FROM kv_entries WHERE expires_at IS NOT NULL AND expires_at <= ?`)
	res, err := writer.ExecContext(ctx, query, s.now().UnixMilli())
	if err != nil {
		return 0, fmt.Errorf("failed to purge expired entries: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, nil
	}
	return n, nil
}

// Namespace is a client-scoped view with web-storage semantics: writes that
// fail are logged and degrade to no-ops, reads that fail report absent. State
// stores depend on this so a persistence hiccup can never break a session.
type Namespace struct {
	store *Store
	ns    string
	log   *logger.Logger
}

// Name returns the namespace identifier.
func (n *Namespace) Name() string { return n.ns }

// Set persists value under key. Failures are logged, not returned.
func (n *Namespace) Set(ctx context.Context, key string, value interface{}) {
	if err := n.store.Set(ctx, n.ns, key, value); err != nil {
		n.log.Warn("Storage write failed", zap.String("key", key), zap.Error(err))
	}
}

// SetWithExpiry persists value under key with a ttl. Failures are logged.
func (n *Namespace) SetWithExpiry(ctx context.Context, key string, value interface{}, ttl time.Duration) {
	if err := n.store.SetWithExpiry(ctx, n.ns, key, value, ttl); err != nil {
		n.log.Warn("Storage write failed", zap.String("key", key), zap.Error(err))
	}
}

// Get reads key into dest, reporting whether a usable value was found.
func (n *Namespace) Get(ctx context.Context, key string, dest interface{}) bool {
	found, err := n.store.Get(ctx, n.ns, key, dest)
	if err != nil {
		n.log.Warn("Storage read failed", zap.String("key", key), zap.Error(err))
		return false
	}
	return found
}

// Remove deletes key. Failures are logged, not returned.
func (n *Namespace) Remove(ctx context.Context, key string) {
	if err := n.store.Remove(ctx, n.ns, key); err != nil {
		n.log.Warn("Storage remove failed", zap.String("key", key), zap.Error(err))
	}
}

// Clear deletes every key in the namespace. Failures are logged.
func (n *Namespace) Clear(ctx context.Context) {
	if err := n.store.Clear(ctx, n.ns); err != nil {
		n.log.Warn("Storage clear failed", zap.Error(err))
	}
}
