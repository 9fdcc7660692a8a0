package resolve

import (
	"fmt"

	"gopkg.in/yaml.v3"
)

// Store is the stored-configuration tier: settings persisted per component
// in the stack file.
type Store interface {
	Lookup(component, key string) (any, bool, error)
}

// MapStore is a Store backed by component -> setting -> value maps.
type MapStore map[string]map[string]any

// Lookup implements Store.
func (m MapStore) Lookup(component, key string) (any, bool, error) {
	v, ok := m[component][key]
	return v, ok, nil
}

// convert coerces a stored value into T. Strings are parsed as YAML
// scalars so "8080" satisfies an int setting.
func convert[T any](v any) (T, error) {
	var out T
	if t, ok := v.(T); ok {
		return t, nil
	}

	var raw []byte
	if s, ok := v.(string); ok {
		raw = []byte(s)
	} else {
		b, err := yaml.Marshal(v)
		if err != nil {
			return out, err
		}
		raw = b
	}
	if err := yaml.Unmarshal(raw, &out); err != nil {
		return out, fmt.Errorf("cannot use %v as %T: %w", v, out, err)
	}
	return out, nil
}
