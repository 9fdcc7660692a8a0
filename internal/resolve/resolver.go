package resolve

import (
	"fmt"

	"github.com/imamik/k8stack/internal/secret"
)

// Record describes how one setting of a component was resolved.
// Sensitive records hold a secret.Value, which prints redacted.
type Record struct {
	Key       string `json:"key" yaml:"key"`
	Tier      Tier   `json:"-" yaml:"-"`
	Source    string `json:"source" yaml:"source"`
	Sensitive bool   `json:"sensitive,omitempty" yaml:"sensitive,omitempty"`
	Value     any    `json:"value,omitempty" yaml:"value,omitempty"`
}

// Resolver resolves the settings of one component against the stored
// configuration and the secret store, and records every outcome.
// It is not safe for concurrent use; each assembly owns its resolver.
type Resolver struct {
	component string
	stored    Store
	secrets   secret.Store
	records   []Record
}

// New returns a resolver for component. Either store may be nil.
func New(component string, stored Store, secrets secret.Store) *Resolver {
	return &Resolver{component: component, stored: stored, secrets: secrets}
}

// Component returns the component name settings are resolved for.
func (r *Resolver) Component() string { return r.component }

// Records returns the resolved settings in resolution order.
func (r *Resolver) Records() []Record {
	out := make([]Record, len(r.records))
	copy(out, r.records)
	return out
}

func (r *Resolver) record(key string, tier Tier, sensitive bool, v any) {
	r.records = append(r.records, Record{
		Key:       key,
		Tier:      tier,
		Source:    tier.String(),
		Sensitive: sensitive,
		Value:     v,
	})
}

func storedValue[T any](r *Resolver, key string) (*T, error) {
	if r.stored == nil {
		return nil, nil
	}
	raw, ok, err := r.stored.Lookup(r.component, key)
	if err != nil {
		return nil, fmt.Errorf("component %q: stored configuration %q: %w", r.component, key, err)
	}
	// A stored null (`key: ~`) is an absent value, not a zero one.
	if !ok || raw == nil {
		return nil, nil
	}
	v, err := convert[T](raw)
	if err != nil {
		return nil, fmt.Errorf("component %q: stored configuration %q: %w", r.component, key, err)
	}
	return &v, nil
}

func secretValue(r *Resolver, key string) (*secret.Value, error) {
	if r.secrets == nil {
		return nil, nil
	}
	v, ok, err := r.secrets.Lookup(r.component, key)
	if err != nil {
		return nil, fmt.Errorf("component %q: %w", r.component, err)
	}
	if !ok {
		return nil, nil
	}
	return &v, nil
}

func resolvePlain[T any](r *Resolver, key string, explicit, def *T, required bool) (Result[T], error) {
	stored, err := storedValue[T](r, key)
	if err != nil {
		return Result[T]{}, err
	}
	res, err := Resolve(r.component, key, Chain[T]{Explicit: explicit, Stored: stored, Default: def}, required)
	if err != nil {
		return res, err
	}
	if res.Present() {
		r.record(key, res.Tier, false, res.Value)
	}
	return res, nil
}

// Get resolves a setting that always has a default.
func Get[T any](r *Resolver, key string, explicit *T, def T) (T, error) {
	res, err := resolvePlain(r, key, explicit, &def, false)
	return res.Value, err
}

// Optional resolves a setting without a default; nil means absent.
func Optional[T any](r *Resolver, key string, explicit *T) (*T, error) {
	res, err := resolvePlain[T](r, key, explicit, nil, false)
	if err != nil || !res.Present() {
		return nil, err
	}
	return &res.Value, nil
}

// Require resolves a setting that must be present in a non-default tier.
func Require[T any](r *Resolver, key string, explicit *T) (T, error) {
	res, err := resolvePlain[T](r, key, explicit, nil, true)
	return res.Value, err
}

func resolveSecret(r *Resolver, key string, explicit, def *secret.Value, required bool) (Result[secret.Value], error) {
	stored, err := storedValue[string](r, key)
	if err != nil {
		return Result[secret.Value]{}, err
	}
	var storedSecret *secret.Value
	if stored != nil {
		storedSecret = secret.Ptr(*stored)
	}
	fromStore, err := secretValue(r, key)
	if err != nil {
		return Result[secret.Value]{}, err
	}
	chain := Chain[secret.Value]{Explicit: explicit, Stored: storedSecret, Secret: fromStore, Default: def}
	res, err := Resolve(r.component, key, chain, required)
	if err != nil {
		return res, err
	}
	if res.Present() {
		r.record(key, res.Tier, true, res.Value)
	}
	return res, nil
}

// Secret resolves a sensitive setting with a default.
func Secret(r *Resolver, key string, explicit *secret.Value, def secret.Value) (secret.Value, error) {
	res, err := resolveSecret(r, key, explicit, &def, false)
	return res.Value, err
}

// RequireSecret resolves a sensitive setting that has no default.
func RequireSecret(r *Resolver, key string, explicit *secret.Value) (secret.Value, error) {
	res, err := resolveSecret(r, key, explicit, nil, true)
	return res.Value, err
}
