package sessionstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dmitrymomot/flexsession/core/session"
)

// SQLCodec converts session payloads to and from the text column used by
// PostgresStore.
type SQLCodec[T any] interface {
	Encode(data T) (string, error)
	Decode(raw string) (T, error)
}

// JSONSQLCodec stores payloads as JSON text. It is the default codec for
// PostgresStore.
type JSONSQLCodec[T any] struct{}

func (JSONSQLCodec[T]) Encode(data T) (string, error) {
	b, err := json.Marshal(data)
	if err != nil {
		return "", errors.Join(session.ErrSerialization, err)
	}
	return string(b), nil
}

func (JSONSQLCodec[T]) Decode(raw string) (T, error) {
	var data T
	if err := json.Unmarshal([]byte(raw), &data); err != nil {
		return data, errors.Join(session.ErrInvalidData, err)
	}
	return data, nil
}

// PostgresStoreConfig holds table layout and janitor settings for PostgresStore.
type PostgresStoreConfig struct {
	// Table is the sessions table name. See migrations/ for the expected schema.
	Table string `env:"SESSION_PG_TABLE" envDefault:"sessions"`
	// CleanupInterval is how often the janitor deletes expired rows. Zero
	// disables the janitor; expired rows then accumulate until deleted externally.
	CleanupInterval time.Duration `env:"SESSION_PG_CLEANUP_INTERVAL" envDefault:"5m"`
}

// DefaultPostgresStoreConfig returns a PostgresStoreConfig with default table
// layout and a 5 minute cleanup interval.
func DefaultPostgresStoreConfig() PostgresStoreConfig {
	return PostgresStoreConfig{
		Table:           "sessions",
		CleanupInterval: 5 * time.Minute,
	}
}

// PostgresStore persists sessions in a Postgres table and implements
// session.IndexedStore via an indexed identifier column. Expired rows are
// excluded from reads and reaped by a janitor started in Setup.
type PostgresStore[T any] struct {
	pool   *pgxpool.Pool
	codec  SQLCodec[T]
	config PostgresStoreConfig
	table  string
	logger *slog.Logger

	mu   sync.Mutex
	done chan struct{}
}

// PostgresOption configures a PostgresStore.
type PostgresOption[T any] func(*PostgresStore[T])

// WithSQLCodec replaces the default JSON codec.
func WithSQLCodec[T any](codec SQLCodec[T]) PostgresOption[T] {
	return func(s *PostgresStore[T]) {
		if codec != nil {
			s.codec = codec
		}
	}
}

// WithPostgresLogger sets the logger used by the cleanup janitor.
func WithPostgresLogger[T any](logger *slog.Logger) PostgresOption[T] {
	return func(s *PostgresStore[T]) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// NewPostgresStore creates a Postgres-backed session store. The sessions
// table must exist; apply the bundled migration or an equivalent schema first.
func NewPostgresStore[T any](pool *pgxpool.Pool, cfg PostgresStoreConfig, opts ...PostgresOption[T]) (*PostgresStore[T], error) {
	if pool == nil {
		return nil, errors.New("postgres pool is required")
	}
	if cfg.Table == "" {
		cfg.Table = "sessions"
	}

	s := &PostgresStore[T]{
		pool:   pool,
		codec:  JSONSQLCodec[T]{},
		config: cfg,
		table:  pgx.Identifier{cfg.Table}.Sanitize(),
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Load implements session.Store. Rolling loads refresh the expiry in the same
// statement that reads the row.
func (s *PostgresStore[T]) Load(ctx context.Context, id string, rollingTTL time.Duration, _ *session.CookieJar) (T, time.Duration, error) {
	var zero T
	var raw string
	var expires time.Time

	if rollingTTL > 0 {
		query := fmt.Sprintf(
			`UPDATE %s SET expires_at = $2 WHERE id = $1 AND expires_at > now() RETURNING data, expires_at`,
			s.table)
		err := s.pool.QueryRow(ctx, query, id, time.Now().Add(rollingTTL)).Scan(&raw, &expires)
		if err == nil {
			data, err := s.codec.Decode(raw)
			if err != nil {
				return zero, 0, err
			}
			return data, rollingTTL, nil
		}
		if !errors.Is(err, pgx.ErrNoRows) {
			return zero, 0, errors.Join(session.ErrBackend, err)
		}
		// No live row: fall through to tell missing apart from expired.
	}

	query := fmt.Sprintf(`SELECT data, expires_at FROM %s WHERE id = $1`, s.table)
	err := s.pool.QueryRow(ctx, query, id).Scan(&raw, &expires)
	if errors.Is(err, pgx.ErrNoRows) {
		return zero, 0, session.ErrNotFound
	}
	if err != nil {
		return zero, 0, errors.Join(session.ErrBackend, err)
	}
	if !expires.After(time.Now()) {
		return zero, 0, session.ErrExpired
	}

	data, err := s.codec.Decode(raw)
	if err != nil {
		return zero, 0, err
	}
	return data, time.Until(expires), nil
}

// Save implements session.Store.
func (s *PostgresStore[T]) Save(ctx context.Context, id string, data T, ttl time.Duration) error {
	raw, err := s.codec.Encode(data)
	if err != nil {
		return err
	}

	var identifier *string
	if ident, ok := session.IdentifierOf(data); ok {
		identifier = &ident
	}

	query := fmt.Sprintf(`
		INSERT INTO %s (id, data, identifier, expires_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (id) DO UPDATE
		SET data = EXCLUDED.data, identifier = EXCLUDED.identifier, expires_at = EXCLUDED.expires_at`,
		s.table)
	if _, err := s.pool.Exec(ctx, query, id, raw, identifier, time.Now().Add(ttl)); err != nil {
		return errors.Join(session.ErrBackend, err)
	}
	return nil
}

// Delete implements session.Store.
func (s *PostgresStore[T]) Delete(ctx context.Context, id string, _ *session.CookieJar) error {
	query := fmt.Sprintf(`DELETE FROM %s WHERE id = $1`, s.table)
	if _, err := s.pool.Exec(ctx, query, id); err != nil {
		return errors.Join(session.ErrBackend, err)
	}
	return nil
}

// SessionsByIdentifier implements session.IndexedStore.
func (s *PostgresStore[T]) SessionsByIdentifier(ctx context.Context, identifier string) ([]session.IndexedSession[T], error) {
	query := fmt.Sprintf(
		`SELECT id, data FROM %s WHERE identifier = $1 AND expires_at > now()`,
		s.table)
	rows, err := s.pool.Query(ctx, query, identifier)
	if err != nil {
		return nil, errors.Join(session.ErrBackend, err)
	}
	defer rows.Close()

	sessions := make([]session.IndexedSession[T], 0)
	for rows.Next() {
		var id, raw string
		if err := rows.Scan(&id, &raw); err != nil {
			return nil, errors.Join(session.ErrBackend, err)
		}
		data, err := s.codec.Decode(raw)
		if err != nil {
			return nil, err
		}
		sessions = append(sessions, session.IndexedSession[T]{ID: id, Data: data})
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Join(session.ErrBackend, err)
	}
	return sessions, nil
}

// SessionIDsByIdentifier implements session.IndexedStore.
func (s *PostgresStore[T]) SessionIDsByIdentifier(ctx context.Context, identifier string) ([]string, error) {
	query := fmt.Sprintf(
		`SELECT id FROM %s WHERE identifier = $1 AND expires_at > now()`,
		s.table)
	rows, err := s.pool.Query(ctx, query, identifier)
	if err != nil {
		return nil, errors.Join(session.ErrBackend, err)
	}
	defer rows.Close()

	ids := make([]string, 0)
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, errors.Join(session.ErrBackend, err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Join(session.ErrBackend, err)
	}
	return ids, nil
}

// InvalidateByIdentifier implements session.IndexedStore. The count covers
// live rows only; expired leftovers are the janitor's job.
func (s *PostgresStore[T]) InvalidateByIdentifier(ctx context.Context, identifier string, excludeID string) (int64, error) {
	query := fmt.Sprintf(
		`DELETE FROM %s WHERE identifier = $1 AND expires_at > now() AND ($2 = '' OR id <> $2)`,
		s.table)
	tag, err := s.pool.Exec(ctx, query, identifier, excludeID)
	if err != nil {
		return 0, errors.Join(session.ErrBackend, err)
	}
	return tag.RowsAffected(), nil
}

// Setup starts the cleanup janitor. It implements session.Initializer.
func (s *PostgresStore[T]) Setup(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.config.CleanupInterval <= 0 || s.done != nil {
		return nil
	}
	s.done = make(chan struct{})
	go s.janitor(s.done)
	return nil
}

// Shutdown stops the cleanup janitor. Safe to call multiple times and without
// a prior Setup. It implements session.Shutdowner.
func (s *PostgresStore[T]) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.done != nil {
		close(s.done)
		s.done = nil
	}
	return nil
}

func (s *PostgresStore[T]) janitor(done chan struct{}) {
	ticker := time.NewTicker(s.config.CleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-done:
			return
		case <-ticker.C:
			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			if err := s.reapExpired(ctx); err != nil {
				s.logger.ErrorContext(ctx, "failed to reap expired sessions", "error", err)
			}
			cancel()
		}
	}
}

func (s *PostgresStore[T]) reapExpired(ctx context.Context) error {
	query := fmt.Sprintf(`DELETE FROM %s WHERE expires_at <= now()`, s.table)
	if _, err := s.pool.Exec(ctx, query); err != nil {
		return errors.Join(session.ErrBackend, err)
	}
	return nil
}
