package wizard

import (
	"sort"
	"strconv"
	"strings"

	"github.com/imamik/k8stack/internal/config"
)

// BuildStack creates a Stack from the wizard result. Components are listed
// in catalog order and depend on the selected types named in Dependencies.
func BuildStack(result *WizardResult) (*config.Stack, error) {
	s := &config.Stack{
		Project: strings.TrimSpace(result.Project),
		Secrets: config.SecretsConfig{
			File:     result.SecretsFile,
			Identity: result.SecretsIdentity,
		},
	}

	types := append([]string(nil), result.Types...)
	sort.Strings(types)
	selected := make(map[string]bool, len(types))
	for _, t := range types {
		selected[t] = true
	}

	for _, t := range types {
		spec := config.ComponentSpec{Name: result.instanceName(t), Type: t}
		for _, dep := range Dependencies[t] {
			if selected[dep] {
				spec.DependsOn = append(spec.DependsOn, result.instanceName(dep))
			}
		}
		s.Components = append(s.Components, spec)
	}

	if result.AdvancedOptions != nil {
		applyAdvancedOptions(s, result.AdvancedOptions)
	}

	if err := s.Validate(); err != nil {
		return nil, err
	}
	return s, nil
}

// applyAdvancedOptions applies advanced fetch options to the stack.
func applyAdvancedOptions(s *config.Stack, opts *AdvancedOptions) {
	s.CacheDir = opts.CacheDir
	s.FetchTimeout = opts.FetchTimeout
	s.Offline = opts.Offline
	s.MaterializeManifests = opts.MaterializeManifests
	if n, err := strconv.Atoi(opts.Concurrency); err == nil && n > 0 {
		s.Concurrency = n
	}
}
