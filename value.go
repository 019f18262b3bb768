package proxykit

// Map is an insertion-ordered mapping used for default values whose key order
// matters. Go maps do not keep order, so literal defaults written as
// map[any]any{...} decode to a Map.
type Map []MapEntry

// MapEntry is a single key-value pair of a Map.
type MapEntry struct {
	Key   any
	Value any
}

// Get returns the value stored under key.
func (m Map) Get(key any) (any, bool) {
	for _, e := range m {
		if e.Key == key {
			return e.Value, true
		}
	}
	return nil, false
}
