package helm

import (
	"fmt"

	"gopkg.in/yaml.v3"

	"github.com/imamik/k8stack/internal/secret"
)

// Values represents helm chart values as a map.
type Values map[string]any

// Merge combines multiple Values maps with later maps taking precedence
// at the top level only.
func Merge(valueMaps ...Values) Values {
	result := make(Values)
	for _, m := range valueMaps {
		for k, v := range m {
			result[k] = v
		}
	}
	return result
}

// DeepMerge merges maps recursively; later maps win on conflicting leaves
// and nested maps are merged rather than replaced.
func DeepMerge(valueMaps ...Values) Values {
	result := make(Values)
	for _, m := range valueMaps {
		mergeInto(result, m)
	}
	return result
}

func mergeInto(dst, src map[string]any) {
	for k, v := range src {
		srcMap, srcIsMap := asMap(v)
		dstMap, dstIsMap := asMap(dst[k])
		if srcIsMap && dstIsMap {
			merged := make(map[string]any, len(dstMap))
			mergeInto(merged, dstMap)
			mergeInto(merged, srcMap)
			dst[k] = merged
			continue
		}
		if srcIsMap {
			cp := make(map[string]any, len(srcMap))
			mergeInto(cp, srcMap)
			dst[k] = cp
			continue
		}
		dst[k] = v
	}
}

func asMap(v any) (map[string]any, bool) {
	switch m := v.(type) {
	case Values:
		return m, true
	case map[string]any:
		return m, true
	default:
		return nil, false
	}
}

// ToMap converts nested Values into plain maps, as Helm expects.
func (v Values) ToMap() map[string]any {
	return plain(v, func(s secret.Value) any { return s }).(map[string]any)
}

// Reveal returns a plain copy of v with every secret.Value replaced by its
// plaintext. Only the rendering path for a cluster may call it.
func Reveal(v Values) map[string]any {
	return plain(v, func(s secret.Value) any { return s.Reveal() }).(map[string]any)
}

// Redact returns a plain copy of v with every secret.Value replaced by
// secret.Redacted, for renders that leave the machine.
func Redact(v Values) map[string]any {
	return plain(v, func(secret.Value) any { return secret.Redacted }).(map[string]any)
}

func plain(v any, leaf func(secret.Value) any) any {
	switch t := v.(type) {
	case Values:
		return plain(map[string]any(t), leaf)
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, val := range t {
			out[k] = plain(val, leaf)
		}
		return out
	case []Values:
		out := make([]any, len(t))
		for i, val := range t {
			out[i] = plain(val, leaf)
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, val := range t {
			out[i] = plain(val, leaf)
		}
		return out
	case secret.Value:
		return leaf(t)
	default:
		return v
	}
}

// FromYAML parses YAML bytes into Values.
func FromYAML(data []byte) (Values, error) {
	var values Values
	if err := yaml.Unmarshal(data, &values); err != nil {
		return nil, fmt.Errorf("failed to parse YAML values: %w", err)
	}
	if values == nil {
		values = Values{}
	}
	return values, nil
}
