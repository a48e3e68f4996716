package session

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/dmitrymomot/flexsession/core/cookie"
)

// cell is the per-request session cache. It is installed into the request
// context by the middleware so that the expensive storage load happens at most
// once per request, no matter how many times the session is requested.
type cell[T any] struct {
	once sync.Once
	mu   sync.Mutex
	st   state[T]
	err  error
}

// ctxKey is parameterized by the payload type so that managers with different
// payload types can stack their middlewares on one request without clobbering
// each other's cell.
type ctxKey[T any] struct{}

// Manager coordinates the session lifecycle for a single payload type: lazy
// load on first access, exactly one save-or-delete after the handler, and
// store setup/shutdown at process boundaries.
type Manager[T any] struct {
	store   Store[T]
	cookies *cookie.Manager
	config  Config
	logger  *slog.Logger
}

// Option configures a Manager.
type Option func(*settings)

type settings struct {
	config Config
	logger *slog.Logger
}

// WithConfig overrides the default session configuration.
func WithConfig(cfg Config) Option {
	return func(s *settings) {
		s.config = cfg
	}
}

// WithLogger sets the logger used for swallowed write-back failures.
func WithLogger(logger *slog.Logger) Option {
	return func(s *settings) {
		s.logger = logger
	}
}

// New creates a session manager backed by the given store. The cookie manager
// encrypts the session ID cookie and any payload cookies written by
// cookie-backed stores.
func New[T any](store Store[T], cookies *cookie.Manager, opts ...Option) (*Manager[T], error) {
	if store == nil {
		return nil, ErrMissingStore
	}
	if cookies == nil {
		return nil, ErrMissingCookieManager
	}

	s := settings{
		config: DefaultConfig(),
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(&s)
	}

	return &Manager[T]{
		store:   store,
		cookies: cookies,
		config:  s.config,
		logger:  s.logger,
	}, nil
}

// Middleware installs the per-request session cache and flushes pending
// changes to storage after the handler completes. Exactly one save and/or
// delete is issued per request, reflecting only the final session state.
func (m *Manager[T]) Middleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			c := &cell[T]{}
			r = r.WithContext(context.WithValue(r.Context(), ctxKey[T]{}, c))
			next.ServeHTTP(w, r)
			m.flush(w, r, c)
		})
	}
}

// Load returns the request's session, fetching it from storage on first
// access. It never fails: when no valid session exists the returned Session is
// empty and Session.Err explains why. Panics if the manager's middleware is
// not installed, which is a programming error.
func (m *Manager[T]) Load(w http.ResponseWriter, r *http.Request) *Session[T] {
	c, ok := r.Context().Value(ctxKey[T]{}).(*cell[T])
	if !ok {
		panic("session: Middleware is not installed for this payload type")
	}

	jar := NewCookieJar(w, r, m.cookies)
	c.once.Do(func() {
		m.fetch(r.Context(), c, jar)
	})

	return &Session[T]{
		cell:   c,
		jar:    jar,
		store:  m.store,
		config: m.config,
		logger: m.logger,
	}
}

// fetch populates the cell from the session cookie and storage.
func (m *Manager[T]) fetch(ctx context.Context, c *cell[T], jar *CookieJar) {
	id, err := jar.Get(m.config.CookieName)
	if err != nil {
		c.err = ErrNoSessionCookie
		return
	}

	var rollingTTL time.Duration
	if m.config.Rolling {
		rollingTTL = m.config.defaultTTL()
	}

	data, ttl, err := m.store.Load(ctx, id, rollingTTL, jar)
	if err != nil {
		c.err = err
		return
	}

	c.mu.Lock()
	c.st.restore(id, data, ttl)
	c.mu.Unlock()
}

// flush persists the request's final session state: at most one delete and one
// save. Failures are logged and swallowed; the response has already been
// computed and should not fail because of a storage hiccup.
func (m *Manager[T]) flush(w http.ResponseWriter, r *http.Request, c *cell[T]) {
	c.mu.Lock()
	pending, deletedID := c.st.takeForStorage()
	c.mu.Unlock()

	ctx := r.Context()
	jar := NewCookieJar(w, r, m.cookies)

	if deletedID != "" {
		if err := m.store.Delete(ctx, deletedID, jar); err != nil {
			m.logger.ErrorContext(ctx, "failed to delete session",
				slog.String("session_id", deletedID),
				slog.Any("error", err))
		}
	}
	if pending != nil {
		if err := m.store.Save(ctx, pending.id, pending.data, pending.ttl); err != nil {
			m.logger.ErrorContext(ctx, "failed to save session",
				slog.String("session_id", pending.id),
				slog.Any("error", err))
		}
	}
}

// Setup runs the store's startup hook, if it has one. Call once at process start.
func (m *Manager[T]) Setup(ctx context.Context) error {
	if s, ok := m.store.(Initializer); ok {
		if err := s.Setup(ctx); err != nil {
			return errors.Join(ErrSetupTeardown, err)
		}
	}
	return nil
}

// Shutdown runs the store's teardown hook, if it has one. Safe to call even
// when Setup never ran.
func (m *Manager[T]) Shutdown(ctx context.Context) error {
	if s, ok := m.store.(Shutdowner); ok {
		if err := s.Shutdown(ctx); err != nil {
			return errors.Join(ErrSetupTeardown, err)
		}
	}
	return nil
}
