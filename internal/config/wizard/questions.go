package wizard

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/huh"
)

// nameRegex validates project and component names: DNS-1123 labels.
var nameRegex = regexp.MustCompile(`^[a-z0-9]([-a-z0-9]{0,61}[a-z0-9])?$`)

// runProjectGroup prompts for the project name.
func runProjectGroup(ctx context.Context, result *WizardResult) error {
	return huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Project Name").
				Description("Prefixes the names of shared resources").
				Placeholder("my-stack").
				Value(&result.Project).
				Validate(validateProject),
		).Title("Project"),
	).RunWithContext(ctx)
}

// runComponentsGroup prompts for the catalog components to install.
func runComponentsGroup(ctx context.Context, result *WizardResult) error {
	return huh.NewForm(
		huh.NewGroup(
			huh.NewMultiSelect[string]().
				Title("Components").
				Description("Space to select, enter to confirm").
				Options(ComponentOptions()...).
				Value(&result.Types).
				Validate(validateTypes),
		).Title("Catalog"),
	).RunWithContext(ctx)
}

// runNamesGroup prompts for an instance name per selected component.
func runNamesGroup(ctx context.Context, result *WizardResult) error {
	names := make([]string, len(result.Types))
	fields := make([]huh.Field, 0, len(result.Types))
	for i, typ := range result.Types {
		names[i] = typ
		fields = append(fields, huh.NewInput().
			Title(fmt.Sprintf("Name for %s", typ)).
			Value(&names[i]).
			Validate(validateName))
	}
	if len(fields) == 0 {
		return nil
	}

	if err := huh.NewForm(huh.NewGroup(fields...).Title("Component Names")).RunWithContext(ctx); err != nil {
		return err
	}
	for i, typ := range result.Types {
		result.Names[typ] = strings.TrimSpace(names[i])
	}
	return nil
}

// runSecretsGroup prompts for the age-encrypted secrets file (optional).
func runSecretsGroup(ctx context.Context, result *WizardResult) error {
	var useFile bool
	err := huh.NewForm(
		huh.NewGroup(
			huh.NewConfirm().
				Title("Use an Encrypted Secrets File?").
				Description("Without one, secrets are read from K8STACK_SECRET_* environment variables").
				Value(&useFile),
		).Title("Secrets"),
	).RunWithContext(ctx)
	if err != nil || !useFile {
		return err
	}

	result.SecretsFile = "secrets.age"
	result.SecretsIdentity = "key.txt"
	return huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Secrets File").
				Description("age-encrypted YAML, relative to the stack file").
				Value(&result.SecretsFile),
			huh.NewInput().
				Title("Identity File").
				Description("age identity used to decrypt the secrets file").
				Value(&result.SecretsIdentity),
		).Title("Secrets File"),
	).RunWithContext(ctx)
}

// runFetchGroup prompts for artifact fetch settings.
func runFetchGroup(ctx context.Context, opts *AdvancedOptions) error {
	return huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Cache Directory").
				Description("Leave empty for the user cache directory").
				Value(&opts.CacheDir),
			huh.NewInput().
				Title("Fetch Timeout").
				Description("Per-artifact timeout, e.g. 2m. Leave empty for the default").
				Value(&opts.FetchTimeout).
				Validate(validateDuration),
			huh.NewSelect[string]().
				Title("Fetch Concurrency").
				Options(ConcurrencyOptions...).
				Value(&opts.Concurrency).
				Validate(validateConcurrency),
			huh.NewConfirm().
				Title("Offline").
				Description("Only use artifacts already in the cache").
				Value(&opts.Offline),
			huh.NewConfirm().
				Title("Materialize Manifests").
				Description("Store raw manifests in the cache instead of referencing their URLs").
				Value(&opts.MaterializeManifests),
		).Title("Artifact Fetching"),
	).RunWithContext(ctx)
}

func validateProject(s string) error {
	if strings.TrimSpace(s) == "" {
		return errProjectRequired
	}
	return validateName(s)
}

func validateName(s string) error {
	if !nameRegex.MatchString(strings.TrimSpace(s)) {
		return errNameInvalid
	}
	return nil
}

func validateTypes(types []string) error {
	if len(types) == 0 {
		return errComponentsRequired
	}
	return nil
}

func validateDuration(s string) error {
	if s == "" {
		return nil
	}
	d, err := time.ParseDuration(s)
	if err != nil || d <= 0 {
		return errDurationInvalid
	}
	return nil
}

func validateConcurrency(s string) error {
	if s == "" {
		return nil
	}
	n, err := strconv.Atoi(s)
	if err != nil || n <= 0 {
		return errConcurrencyInvalid
	}
	return nil
}
