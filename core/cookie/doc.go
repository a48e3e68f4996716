// Package cookie provides secure HTTP cookie management with encryption and
// signing. It is the cookie layer underneath the session packages, but works
// as a standalone utility with strong security defaults.
//
// # Features
//
//   - AES-256-GCM encryption for sensitive data
//   - HMAC-SHA256 signing for tamper detection
//   - Automatic key rotation support
//   - 4KB size limit enforcement
//   - Secure defaults (HttpOnly, SameSite protection)
//   - Environment-based configuration
//   - Thread-safe operations
//
// # Basic Usage
//
// Create a manager with secret keys and use it to manage cookies:
//
//	import "github.com/dmitrymomot/flexsession/core/cookie"
//
//	// Create manager with secret key(s)
//	manager, err := cookie.New([]string{"your-32-char-secret-key-here!!!!"})
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	// Set a simple cookie
//	err = manager.Set(w, r, "user_id", "12345", cookie.WithMaxAge(3600))
//
//	// Get a cookie value
//	value, err := manager.Get(r, "user_id")
//	if err == cookie.ErrCookieNotFound {
//		// Cookie doesn't exist
//	}
//
//	// Delete a cookie
//	manager.Delete(w, "user_id")
//
// # Signed Cookies
//
// Use signed cookies to detect tampering:
//
//	err := manager.SetSigned(w, r, "session_id", sessionID,
//		cookie.WithHTTPOnly(true),
//		cookie.WithSecure(true),
//	)
//
//	sessionID, err := manager.GetSigned(r, "session_id")
//	if err == cookie.ErrInvalidSignature {
//		// Cookie was tampered with
//	}
//
// # Encrypted Cookies
//
// Store sensitive data with AES-256-GCM encryption:
//
//	err := manager.SetEncrypted(w, r, "api_token", secretToken,
//		cookie.WithHTTPOnly(true),
//		cookie.WithSecure(true),
//		cookie.WithSameSite(http.SameSiteStrictMode),
//	)
//
//	token, err := manager.GetEncrypted(r, "api_token")
//	if err == cookie.ErrDecryptionFailed {
//		// Decryption failed (wrong key or corrupted)
//	}
//
// # Key Rotation
//
// Support graceful key rotation by providing multiple secrets:
//
//	// Newest key first, older keys for decryption only
//	secrets := []string{
//		"new-secret-key-32-characters!!!",  // Used for encryption
//		"old-secret-key-32-characters!!!",  // Used for decryption only
//	}
//
//	manager, _ := cookie.New(secrets)
//
//	// New cookies use the first secret
//	// Existing cookies can be decrypted with any secret
//
// # Configuration
//
// Use environment variables for production configuration:
//
//	cfg := cookie.Config{
//		Secrets:  os.Getenv("COOKIE_SECRETS"), // Comma-separated
//		Secure:   true,
//		HttpOnly: true,
//		SameSite: http.SameSiteStrictMode,
//		MaxSize:  4096,
//	}
//
//	manager, err := cookie.NewFromConfig(cfg)
//
// # Size Limits
//
// The manager enforces the 4KB cookie size limit:
//
//	largeData := strings.Repeat("x", 5000)
//	err := manager.Set(w, r, "large", largeData)
//	if e, ok := err.(cookie.ErrCookieTooLarge); ok {
//		fmt.Printf("Cookie %s exceeds limit: %d > %d\n",
//			e.Name, e.Size, e.Max)
//	}
//
// # Security Considerations
//
//   - Always use HTTPS in production (WithSecure option)
//   - Set HttpOnly for cookies not needed by JavaScript
//   - Use SameSite attribute for CSRF protection
//   - Rotate secrets periodically
//   - Keep secrets in secure storage (environment variables, secret managers)
package cookie
