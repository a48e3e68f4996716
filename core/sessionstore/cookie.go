package sessionstore

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/dmitrymomot/flexsession/core/cookie"
	"github.com/dmitrymomot/flexsession/core/session"
)

// CookieStoreConfig holds the attributes of the data cookie. SameSite and the
// security flags should mirror the session ID cookie's so browsers treat the
// pair consistently.
type CookieStoreConfig struct {
	// Name is the name of the cookie carrying the session payload. It must
	// differ from the session ID cookie's name.
	Name     string        `env:"SESSION_DATA_COOKIE_NAME" envDefault:"flex_session_data"`
	Domain   string        `env:"SESSION_DATA_COOKIE_DOMAIN" envDefault:""`
	Path     string        `env:"SESSION_DATA_COOKIE_PATH" envDefault:"/"`
	HTTPOnly bool          `env:"SESSION_DATA_COOKIE_HTTP_ONLY" envDefault:"true"`
	SameSite http.SameSite `env:"SESSION_DATA_COOKIE_SAME_SITE" envDefault:"2"`
	Secure   bool          `env:"SESSION_DATA_COOKIE_SECURE" envDefault:"true"`
}

// DefaultCookieStoreConfig returns a CookieStoreConfig with secure defaults.
func DefaultCookieStoreConfig() CookieStoreConfig {
	return CookieStoreConfig{
		Name:     "flex_session_data",
		Path:     "/",
		HTTPOnly: true,
		SameSite: http.SameSiteLaxMode,
		Secure:   true,
	}
}

// cookiePayload is the envelope stored in the data cookie. The embedded ID is
// checked against the ID cookie on load, so swapping data cookies between
// sessions is detected.
type cookiePayload[T any] struct {
	ID      string    `json:"id"`
	Data    T         `json:"data"`
	Expires time.Time `json:"expires"`
}

// CookieStore keeps the whole session payload in an encrypted cookie, so no
// server-side state is needed. The payload plus encryption overhead must fit
// in the 4KB cookie limit. It implements session.CookieWriter: writes happen
// inline during the request via SaveCookie, while Save and Delete are no-ops.
type CookieStore[T any] struct {
	config CookieStoreConfig
}

// NewCookieStore creates a cookie-backed session store.
func NewCookieStore[T any](cfg CookieStoreConfig) *CookieStore[T] {
	if cfg.Name == "" {
		cfg.Name = "flex_session_data"
	}
	if cfg.Path == "" {
		cfg.Path = "/"
	}
	return &CookieStore[T]{config: cfg}
}

// Load implements session.Store. On a rolling load the cookie is re-issued
// with a refreshed expiry.
func (s *CookieStore[T]) Load(_ context.Context, id string, rollingTTL time.Duration, jar *session.CookieJar) (T, time.Duration, error) {
	var zero T

	raw, err := jar.Get(s.config.Name)
	if err != nil {
		return zero, 0, session.ErrNotFound
	}

	var payload cookiePayload[T]
	if err := json.Unmarshal([]byte(raw), &payload); err != nil {
		return zero, 0, errors.Join(session.ErrInvalidData, err)
	}
	if payload.ID != id {
		return zero, 0, session.ErrNotFound
	}
	if !payload.Expires.After(time.Now()) {
		return zero, 0, session.ErrExpired
	}

	ttl := time.Until(payload.Expires)
	if rollingTTL > 0 {
		ttl = rollingTTL
		if err := s.SaveCookie(id, &payload.Data, ttl, jar); err != nil {
			return zero, 0, err
		}
	}

	return payload.Data, ttl, nil
}

// Save implements session.Store. The payload was already written inline by
// SaveCookie, so there is nothing left to persist.
func (s *CookieStore[T]) Save(context.Context, string, T, time.Duration) error {
	return nil
}

// Delete implements session.Store. Cookie removal happened inline via
// SaveCookie with nil data.
func (s *CookieStore[T]) Delete(context.Context, string, *session.CookieJar) error {
	return nil
}

// SaveCookie implements session.CookieWriter. A nil data pointer removes the
// data cookie.
func (s *CookieStore[T]) SaveCookie(id string, data *T, ttl time.Duration, jar *session.CookieJar) error {
	if data == nil {
		jar.Remove(s.config.Name, s.removalOptions()...)
		return nil
	}

	payload := cookiePayload[T]{
		ID:      id,
		Data:    *data,
		Expires: time.Now().Add(ttl),
	}
	b, err := json.Marshal(payload)
	if err != nil {
		return errors.Join(session.ErrSerialization, err)
	}

	return jar.Set(s.config.Name, string(b), s.cookieOptions(ttl)...)
}

func (s *CookieStore[T]) cookieOptions(ttl time.Duration) []cookie.Option {
	opts := []cookie.Option{
		cookie.WithPath(s.config.Path),
		cookie.WithHTTPOnly(s.config.HTTPOnly),
		cookie.WithSameSite(s.config.SameSite),
		cookie.WithSecure(s.config.Secure),
		cookie.WithMaxAge(int(ttl.Seconds())),
	}
	if s.config.Domain != "" {
		opts = append(opts, cookie.WithDomain(s.config.Domain))
	}
	return opts
}

func (s *CookieStore[T]) removalOptions() []cookie.Option {
	opts := []cookie.Option{cookie.WithPath(s.config.Path)}
	if s.config.Domain != "" {
		opts = append(opts, cookie.WithDomain(s.config.Domain))
	}
	return opts
}
