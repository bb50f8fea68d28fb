package wynk

import (
	"errors"
	"reflect"
	"sync"
)

// ErrFrozen is returned when metadata or routes change after the application was built
var ErrFrozen = errors.New("wynk: application already built; registry is read-only")

type metadataKey struct {
	target string
	member string
	key    string
}

// Store is an application-scoped metadata registry keyed by
// (target, member, key). Target is a controller name and member a handler
// name, or empty for controller-level entries. Values are not validated.
type Store struct {
	mu      sync.RWMutex
	entries map[metadataKey]any
	frozen  bool
}

// NewStore creates an empty metadata store
func NewStore() *Store {
	return &Store{
		entries: make(map[metadataKey]any),
	}
}

// Define records value under key for target and optional member
func (s *Store) Define(key string, value any, target string, member ...string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.frozen {
		return ErrFrozen
	}
	s.entries[metadataKey{target: target, member: memberOf(member), key: key}] = value
	return nil
}

// Get returns the value recorded under key for target and optional member
func (s *Store) Get(key string, target string, member ...string) (any, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.entries[metadataKey{target: target, member: memberOf(member), key: key}]
	return v, ok
}

// Freeze makes the store read-only
func (s *Store) Freeze() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.frozen = true
}

// Frozen reports whether the store is read-only
func (s *Store) Frozen() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.frozen
}

func memberOf(member []string) string {
	if len(member) == 0 {
		return ""
	}
	return member[0]
}

// Reflector reads metadata for one route, looking at the handler first and
// the controller second.
type Reflector struct {
	store  *Store
	target string
	member string
}

// NewReflector creates a reflector for target.member
func NewReflector(store *Store, target, member string) Reflector {
	return Reflector{store: store, target: target, member: member}
}

// GetAllAndOverride returns the handler value if defined, else the controller value
func (r Reflector) GetAllAndOverride(key string) (any, bool) {
	if r.store == nil {
		return nil, false
	}
	if v, ok := r.store.Get(key, r.target, r.member); ok {
		return v, true
	}
	return r.store.Get(key, r.target)
}

// GetAllAndMerge concatenates handler and controller values. Slice values are
// flattened, scalars are appended as single elements.
func (r Reflector) GetAllAndMerge(key string) []any {
	if r.store == nil {
		return nil
	}
	var out []any
	if v, ok := r.store.Get(key, r.target, r.member); ok {
		out = appendFlattened(out, v)
	}
	if v, ok := r.store.Get(key, r.target); ok {
		out = appendFlattened(out, v)
	}
	return out
}

// Strings returns GetAllAndMerge filtered to string values
func (r Reflector) Strings(key string) []string {
	var out []string
	for _, v := range r.GetAllAndMerge(key) {
		if s, ok := v.(string); ok {
			out = append(out, s)
		}
	}
	return out
}

func appendFlattened(out []any, v any) []any {
	rv := reflect.ValueOf(v)
	if rv.Kind() == reflect.Slice || rv.Kind() == reflect.Array {
		for i := 0; i < rv.Len(); i++ {
			out = append(out, rv.Index(i).Interface())
		}
		return out
	}
	return append(out, v)
}
