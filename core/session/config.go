package session

import (
	"net/http"
	"time"

	"github.com/dmitrymomot/flexsession/core/cookie"
)

// Config holds session cookie and lifetime settings.
type Config struct {
	// CookieName is the name of the cookie carrying the session ID.
	CookieName string `env:"SESSION_COOKIE_NAME" envDefault:"flex_session"`
	// Domain is the session cookie's Domain attribute. Empty means host-only.
	Domain string `env:"SESSION_COOKIE_DOMAIN" envDefault:""`
	// Path is the session cookie's Path attribute.
	Path string `env:"SESSION_COOKIE_PATH" envDefault:"/"`
	// HTTPOnly sets the session cookie's HttpOnly attribute.
	HTTPOnly bool `env:"SESSION_COOKIE_HTTP_ONLY" envDefault:"true"`
	// SameSite sets the session cookie's SameSite attribute (2 = Lax).
	SameSite http.SameSite `env:"SESSION_COOKIE_SAME_SITE" envDefault:"2"`
	// Secure sets the session cookie's Secure attribute. Disable on localhost
	// if your browser refuses secure cookies over plain HTTP.
	Secure bool `env:"SESSION_COOKIE_SECURE" envDefault:"true"`
	// MaxAge is the session cookie's Max-Age and, unless TTL is set, the
	// default storage TTL for sessions.
	MaxAge time.Duration `env:"SESSION_MAX_AGE" envDefault:"336h"` // 14 days
	// Rolling extends the storage TTL on every load, so active users keep
	// their session alive. Combine with a short TTL for short-lived sessions
	// that auto-extend.
	Rolling bool `env:"SESSION_ROLLING" envDefault:"false"`
	// TTL overrides MaxAge as the default storage TTL when positive.
	TTL time.Duration `env:"SESSION_TTL" envDefault:"0"`
}

// DefaultConfig returns a Config with secure defaults.
func DefaultConfig() Config {
	return Config{
		CookieName: "flex_session",
		Path:       "/",
		HTTPOnly:   true,
		SameSite:   http.SameSiteLaxMode,
		Secure:     true,
		MaxAge:     14 * 24 * time.Hour,
	}
}

// defaultTTL is the storage TTL applied to sessions created without an
// explicit TTL.
func (c Config) defaultTTL() time.Duration {
	if c.TTL > 0 {
		return c.TTL
	}
	return c.MaxAge
}

// cookieOptions builds the attribute set for the session ID cookie.
func (c Config) cookieOptions() []cookie.Option {
	opts := []cookie.Option{
		cookie.WithPath(c.Path),
		cookie.WithHTTPOnly(c.HTTPOnly),
		cookie.WithSameSite(c.SameSite),
		cookie.WithSecure(c.Secure),
		cookie.WithMaxAge(int(c.MaxAge.Seconds())),
	}
	if c.Domain != "" {
		opts = append(opts, cookie.WithDomain(c.Domain))
	}
	return opts
}

// removalOptions builds the attribute set for removing the session ID cookie.
// Path and Domain must match the original cookie or browsers keep the stale one.
func (c Config) removalOptions() []cookie.Option {
	opts := []cookie.Option{cookie.WithPath(c.Path)}
	if c.Domain != "" {
		opts = append(opts, cookie.WithDomain(c.Domain))
	}
	return opts
}
