package session

// Identifier is an optional capability for session payload types that can be
// grouped by a secondary key, typically a user ID. Stores that support
// indexing use it to maintain the identifier -> session IDs index, enabling
// bulk enumeration and invalidation ("log out everywhere").
//
// Return ok=false for payloads that should not be indexed, e.g. anonymous
// sessions.
type Identifier interface {
	SessionIdentifier() (id string, ok bool)
}

// IdentifierOf extracts the secondary identifier from a session payload.
// Payload types that don't implement Identifier are never indexed.
func IdentifierOf(v any) (string, bool) {
	if ident, ok := v.(Identifier); ok {
		return ident.SessionIdentifier()
	}
	return "", false
}
