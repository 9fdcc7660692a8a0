package secret

import (
	"encoding/json"
	"fmt"

	"gopkg.in/yaml.v3"
)

// Redacted is what a Value renders as anywhere outside Reveal.
const Redacted = "[secret]"

// Value is a string known to be sensitive.
type Value struct {
	plain string
}

// New marks s as sensitive.
func New(s string) Value { return Value{plain: s} }

// Ptr returns a pointer to a new Value, for optional Args fields.
func Ptr(s string) *Value {
	v := New(s)
	return &v
}

// Reveal returns the plaintext.
func (v Value) Reveal() string { return v.plain }

// IsZero reports whether the value is empty.
func (v Value) IsZero() bool { return v.plain == "" }

func (v Value) String() string   { return Redacted }
func (v Value) GoString() string { return "secret.Value{" + Redacted + "}" }

// MarshalLog implements logr.Marshaler.
func (v Value) MarshalLog() any { return Redacted }

func (v Value) MarshalYAML() (any, error) { return Redacted, nil }

func (v Value) MarshalJSON() ([]byte, error) { return json.Marshal(Redacted) }

// UnmarshalYAML accepts a plain scalar so Args structs can carry secrets
// inline in a stack file.
func (v *Value) UnmarshalYAML(node *yaml.Node) error {
	var s string
	if err := node.Decode(&s); err != nil {
		return fmt.Errorf("secret must be a string: %w", err)
	}
	v.plain = s
	return nil
}

// Sprintf formats like fmt.Sprintf with every Value argument revealed and
// returns the result as a Value, so interpolating a secret keeps it secret.
func Sprintf(format string, args ...any) Value {
	revealed := make([]any, len(args))
	for i, a := range args {
		switch s := a.(type) {
		case Value:
			revealed[i] = s.plain
		case *Value:
			if s != nil {
				revealed[i] = s.plain
			} else {
				revealed[i] = ""
			}
		default:
			revealed[i] = a
		}
	}
	return New(fmt.Sprintf(format, revealed...))
}
