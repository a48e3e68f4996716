package session

// Keyed helpers for map-shaped session payloads. They are plain compositions
// of Get and TapMut; there is no separate storage path. Removing the last key
// keeps the (empty) session alive: only Session.Delete or a TapMut closure
// returning keep=false deletes a session.

// GetKey returns the value stored under key, or ok=false when there is no
// active session or no such key.
func GetKey[V any](s *Session[map[string]V], key string) (V, bool) {
	data, ok := s.Get()
	if !ok {
		var zero V
		return zero, false
	}
	v, ok := data[key]
	return v, ok
}

// TapKey invokes fn with the value stored under key without triggering a
// write-back.
func TapKey[V any](s *Session[map[string]V], key string, fn func(value V, ok bool)) {
	s.Tap(func(data map[string]V, ok bool) {
		if !ok {
			var zero V
			fn(zero, false)
			return
		}
		v, ok := data[key]
		fn(v, ok)
	})
}

// SetKey stores a value under key, creating a new session when none is active.
func SetKey[V any](s *Session[map[string]V], key string, value V) {
	s.TapMut(func(data map[string]V, ok bool) (map[string]V, bool) {
		if data == nil {
			data = make(map[string]V)
		}
		data[key] = value
		return data, true
	})
}

// SetKeys stores multiple key-value pairs, creating a new session when none is
// active.
func SetKeys[V any](s *Session[map[string]V], kv map[string]V) {
	s.TapMut(func(data map[string]V, ok bool) (map[string]V, bool) {
		if data == nil {
			data = make(map[string]V, len(kv))
		}
		for k, v := range kv {
			data[k] = v
		}
		return data, true
	})
}

// RemoveKey deletes a key from the session data. No-op when there is no active
// session; removing the last key does not delete the session.
func RemoveKey[V any](s *Session[map[string]V], key string) {
	if _, ok := s.Get(); !ok {
		return
	}
	s.TapMut(func(data map[string]V, ok bool) (map[string]V, bool) {
		if !ok {
			return nil, false
		}
		delete(data, key)
		return data, true
	})
}
