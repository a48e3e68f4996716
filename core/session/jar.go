package session

import (
	"net/http"

	"github.com/dmitrymomot/flexsession/core/cookie"
)

// CookieJar is the per-request side channel handed to stores. It bundles the
// response writer, the request, and the encrypting cookie manager so that
// cookie-backed stores can read and write their payload cookie inline with the
// request, before the response is finalized.
type CookieJar struct {
	w       http.ResponseWriter
	r       *http.Request
	cookies *cookie.Manager
}

// NewCookieJar builds a jar for one request/response pair. The manager does
// this automatically; exported for tests of custom store implementations.
func NewCookieJar(w http.ResponseWriter, r *http.Request, cookies *cookie.Manager) *CookieJar {
	return &CookieJar{w: w, r: r, cookies: cookies}
}

// Get retrieves and decrypts a cookie value from the request.
func (j *CookieJar) Get(name string) (string, error) {
	return j.cookies.GetEncrypted(j.r, name)
}

// Set encrypts and writes a cookie on the response.
func (j *CookieJar) Set(name, value string, opts ...cookie.Option) error {
	return j.cookies.SetEncrypted(j.w, j.r, name, value, opts...)
}

// Remove deletes a cookie on the response.
func (j *CookieJar) Remove(name string, opts ...cookie.Option) {
	j.cookies.Delete(j.w, name, opts...)
}

// Request exposes the underlying request for custom store implementations.
func (j *CookieJar) Request() *http.Request {
	return j.r
}
