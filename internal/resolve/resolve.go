package resolve

import "fmt"

// Tier identifies the layer that supplied a setting.
type Tier int

const (
	TierNone Tier = iota
	TierExplicit
	TierStored
	TierSecret
	TierDefault
)

func (t Tier) String() string {
	switch t {
	case TierExplicit:
		return "explicit"
	case TierStored:
		return "stored"
	case TierSecret:
		return "secret"
	case TierDefault:
		return "default"
	default:
		return "none"
	}
}

// Chain holds the candidate value of each tier; nil means absent.
type Chain[T any] struct {
	Explicit *T
	Stored   *T
	Secret   *T
	Default  *T
}

// Result is a resolved setting and the tier it came from.
type Result[T any] struct {
	Value T
	Tier  Tier
}

// Present reports whether any tier supplied the value.
func (r Result[T]) Present() bool { return r.Tier != TierNone }

// MissingConfigurationError is returned when a required setting is absent
// from every tier.
type MissingConfigurationError struct {
	Component string
	Setting   string
}

func (e *MissingConfigurationError) Error() string {
	return fmt.Sprintf("component %q: missing required configuration %q", e.Component, e.Setting)
}

// Resolve picks the first present tier of c. It has no side effects.
func Resolve[T any](component, setting string, c Chain[T], required bool) (Result[T], error) {
	tiers := [...]struct {
		v    *T
		tier Tier
	}{
		{c.Explicit, TierExplicit},
		{c.Stored, TierStored},
		{c.Secret, TierSecret},
		{c.Default, TierDefault},
	}
	for _, t := range tiers {
		if t.v != nil {
			return Result[T]{Value: *t.v, Tier: t.tier}, nil
		}
	}
	if required {
		return Result[T]{}, &MissingConfigurationError{Component: component, Setting: setting}
	}
	return Result[T]{}, nil
}
