package secret

import (
	"fmt"
	"os"
	"strings"
	"unicode"
)

// Store looks up a secret for a component setting.
type Store interface {
	Lookup(component, key string) (Value, bool, error)
}

// MapStore is an in-memory store keyed by component then setting.
type MapStore map[string]map[string]string

// Lookup implements Store.
func (m MapStore) Lookup(component, key string) (Value, bool, error) {
	s, ok := m[component][key]
	if !ok {
		return Value{}, false, nil
	}
	return New(s), true, nil
}

// Set stores a secret, creating the component map as needed.
func (m MapStore) Set(component, key, value string) {
	if m[component] == nil {
		m[component] = make(map[string]string)
	}
	m[component][key] = value
}

// EnvPrefix is the default prefix for secrets read from the environment.
const EnvPrefix = "K8STACK_SECRET_"

// EnvStore reads secrets from environment variables named
// <Prefix><COMPONENT>_<KEY>, upper-cased with non-alphanumerics as '_'.
type EnvStore struct {
	Prefix string
	// LookupEnv defaults to os.LookupEnv.
	LookupEnv func(string) (string, bool)
}

// EnvName returns the variable name consulted for a component setting.
func (e EnvStore) EnvName(component, key string) string {
	prefix := e.Prefix
	if prefix == "" {
		prefix = EnvPrefix
	}
	return prefix + envSegment(component) + "_" + envSegment(key)
}

// Lookup implements Store.
func (e EnvStore) Lookup(component, key string) (Value, bool, error) {
	lookup := e.LookupEnv
	if lookup == nil {
		lookup = os.LookupEnv
	}
	s, ok := lookup(e.EnvName(component, key))
	if !ok {
		return Value{}, false, nil
	}
	return New(s), true, nil
}

func envSegment(s string) string {
	var b strings.Builder
	var prev rune
	for _, r := range s {
		switch {
		case unicode.IsUpper(r):
			// camelCase boundary: apiToken -> API_TOKEN
			if unicode.IsLower(prev) || unicode.IsDigit(prev) {
				b.WriteByte('_')
			}
			b.WriteRune(r)
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			b.WriteRune(unicode.ToUpper(r))
		default:
			if prev != '_' && b.Len() > 0 {
				b.WriteByte('_')
			}
			r = '_'
		}
		prev = r
	}
	return strings.TrimSuffix(b.String(), "_")
}

// Chain consults stores in order and returns the first hit.
type Chain []Store

// Lookup implements Store.
func (c Chain) Lookup(component, key string) (Value, bool, error) {
	for _, s := range c {
		if s == nil {
			continue
		}
		v, ok, err := s.Lookup(component, key)
		if err != nil {
			return Value{}, false, fmt.Errorf("secret lookup %s/%s: %w", component, key, err)
		}
		if ok {
			return v, true, nil
		}
	}
	return Value{}, false, nil
}
