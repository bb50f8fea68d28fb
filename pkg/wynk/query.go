package wynk

import (
	"maps"
	"net/url"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

// QueryMap is the query string of a request, bound by Query() with no key.
// Typed getters return the fallback when the key is missing or does not parse.
type QueryMap url.Values

// NewQueryMap wraps raw query values
func NewQueryMap(values map[string][]string) QueryMap {
	return QueryMap(values)
}

// Get returns the first value for key
func (q QueryMap) Get(key string) string {
	return url.Values(q).Get(key)
}

// Has reports whether key is present, even with an empty value
func (q QueryMap) Has(key string) bool {
	return url.Values(q).Has(key)
}

// Values returns every value for key
func (q QueryMap) Values(key string) []string {
	return q[key]
}

// Keys returns the parameter names in sorted order
func (q QueryMap) Keys() []string {
	return slices.Sorted(maps.Keys(q))
}

// ToMap returns the underlying values
func (q QueryMap) ToMap() map[string][]string {
	return map[string][]string(q)
}

// Encode renders the values in sorted key order
func (q QueryMap) Encode() string {
	return url.Values(q).Encode()
}

// Default returns the first value for key, or fallback when it is empty
func (q QueryMap) Default(key, fallback string) string {
	if v := q.Get(key); v != "" {
		return v
	}
	return fallback
}

func (q QueryMap) Int(key string, fallback int) int {
	return parseOr(q, key, fallback, strconv.Atoi)
}

// Bool accepts strconv.ParseBool forms plus yes/no and on/off
func (q QueryMap) Bool(key string, fallback bool) bool {
	return parseOr(q, key, fallback, parseFlag)
}

func (q QueryMap) Duration(key string, fallback time.Duration) time.Duration {
	return parseOr(q, key, fallback, time.ParseDuration)
}

func (q QueryMap) UUID(key string, fallback uuid.UUID) uuid.UUID {
	return parseOr(q, key, fallback, uuid.Parse)
}

func parseOr[T any](q QueryMap, key string, fallback T, parse func(string) (T, error)) T {
	raw := q.Get(key)
	if raw == "" {
		return fallback
	}
	v, err := parse(raw)
	if err != nil {
		return fallback
	}
	return v
}

func parseFlag(s string) (bool, error) {
	switch strings.ToLower(s) {
	case "yes", "on":
		return true, nil
	case "no", "off":
		return false, nil
	}
	return strconv.ParseBool(s)
}
