package wizard

import (
	"context"
	"fmt"
)

// WizardResult holds all the answers from the interactive wizard.
type WizardResult struct {
	Project string

	// Types are the selected catalog component types.
	Types []string
	// Names maps a selected type to its instance name. Types without an
	// entry are named after the type.
	Names map[string]string

	// Secrets file (optional)
	SecretsFile     string
	SecretsIdentity string

	// Advanced options (only set in advanced mode)
	AdvancedOptions *AdvancedOptions
}

// AdvancedOptions holds settings most stacks leave at their defaults.
type AdvancedOptions struct {
	CacheDir             string
	FetchTimeout         string
	Concurrency          string
	Offline              bool
	MaterializeManifests bool
}

// RunWizard runs the interactive stack wizard.
// If advanced is true, additional fetch options are shown.
// The context is used for cancellation support (e.g., Ctrl+C).
func RunWizard(ctx context.Context, advanced bool) (*WizardResult, error) {
	result := &WizardResult{Names: map[string]string{}}

	if err := runProjectGroup(ctx, result); err != nil {
		return nil, fmt.Errorf("project: %w", err)
	}

	if err := runComponentsGroup(ctx, result); err != nil {
		return nil, fmt.Errorf("components: %w", err)
	}

	if err := runNamesGroup(ctx, result); err != nil {
		return nil, fmt.Errorf("component names: %w", err)
	}

	if err := runSecretsGroup(ctx, result); err != nil {
		return nil, fmt.Errorf("secrets: %w", err)
	}

	if advanced {
		advOpts := &AdvancedOptions{}
		if err := runFetchGroup(ctx, advOpts); err != nil {
			return nil, fmt.Errorf("fetch: %w", err)
		}
		result.AdvancedOptions = advOpts
	}

	return result, nil
}

// instanceName returns the instance name chosen for typ.
func (r *WizardResult) instanceName(typ string) string {
	if name := r.Names[typ]; name != "" {
		return name
	}
	return typ
}
