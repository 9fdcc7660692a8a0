package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/imamik/k8stack/internal/resolve"
)

// DefaultStackFile is the stack file looked up when none is given.
const DefaultStackFile = "k8stack.yaml"

// Stack is the parsed stack file.
type Stack struct {
	Project  string `yaml:"project"`
	CacheDir string `yaml:"cacheDir,omitempty"`
	Offline  bool   `yaml:"offline,omitempty"`
	// MaterializeManifests stores raw manifests in the cache instead of
	// referencing their URLs.
	MaterializeManifests bool `yaml:"materializeManifests,omitempty"`
	// FetchTimeout bounds each artifact fetch, e.g. "2m".
	FetchTimeout string `yaml:"fetchTimeout,omitempty"`
	Concurrency  int    `yaml:"concurrency,omitempty"`

	Secrets SecretsConfig `yaml:"secrets,omitempty"`

	// Config is the stored configuration: component -> setting -> value.
	Config map[string]map[string]any `yaml:"config,omitempty"`

	Components []ComponentSpec `yaml:"components"`

	// dir is the directory of the stack file; relative paths resolve
	// against it.
	dir string
}

// SecretsConfig locates the age-encrypted secrets file.
type SecretsConfig struct {
	File     string `yaml:"file,omitempty"`
	Identity string `yaml:"identity,omitempty"`
	// EnvPrefix overrides the K8STACK_SECRET_ prefix.
	EnvPrefix string `yaml:"envPrefix,omitempty"`
}

// ComponentSpec declares one component instance.
type ComponentSpec struct {
	Name      string    `yaml:"name"`
	Type      string    `yaml:"type"`
	Parent    string    `yaml:"parent,omitempty"`
	DependsOn []string  `yaml:"dependsOn,omitempty"`
	Args      yaml.Node `yaml:"args,omitempty"`
}

// nameRegex matches DNS-1123 labels, which component names become part of.
var nameRegex = regexp.MustCompile(`^[a-z0-9]([-a-z0-9]*[a-z0-9])?$`)

// LoadStack reads, defaults and validates a stack file.
func LoadStack(path string) (*Stack, error) {
	// #nosec G304
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read stack file: %w", err)
	}

	s, err := ParseStack(data)
	if err != nil {
		return nil, err
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}
	s.dir = filepath.Dir(abs)
	return s, nil
}

// ParseStack parses and validates stack file contents.
func ParseStack(data []byte) (*Stack, error) {
	var s Stack
	if err := yaml.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("failed to unmarshal stack file: %w", err)
	}
	if err := s.Validate(); err != nil {
		return nil, fmt.Errorf("stack validation failed: %w", err)
	}
	return &s, nil
}

// SaveStack writes s to path.
func SaveStack(s *Stack, path string) error {
	data, err := yaml.Marshal(s)
	if err != nil {
		return fmt.Errorf("failed to marshal stack: %w", err)
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("failed to write stack file: %w", err)
	}
	return nil
}

// Validate checks names, types and references between components.
func (s *Stack) Validate() error {
	if s.Project == "" {
		return errors.New("project is required")
	}
	if _, err := s.Timeout(0); err != nil {
		return err
	}
	if s.Concurrency < 0 {
		return fmt.Errorf("concurrency must not be negative, got %d", s.Concurrency)
	}

	names := make(map[string]bool, len(s.Components))
	for i, c := range s.Components {
		if c.Name == "" {
			return fmt.Errorf("components[%d]: name is required", i)
		}
		if !nameRegex.MatchString(c.Name) {
			return fmt.Errorf("component %q: name must be a lowercase DNS label", c.Name)
		}
		if c.Type == "" {
			return fmt.Errorf("component %q: type is required", c.Name)
		}
		if names[c.Name] {
			return fmt.Errorf("component %q is declared twice", c.Name)
		}
		names[c.Name] = true
	}

	var errs []error
	for _, c := range s.Components {
		if c.Parent != "" && !names[c.Parent] {
			errs = append(errs, fmt.Errorf("component %q: unknown parent %q", c.Name, c.Parent))
		}
		if c.Parent == c.Name {
			errs = append(errs, fmt.Errorf("component %q cannot be its own parent", c.Name))
		}
		for _, d := range c.DependsOn {
			if !names[d] {
				errs = append(errs, fmt.Errorf("component %q: unknown dependency %q", c.Name, d))
			}
			if d == c.Name {
				errs = append(errs, fmt.Errorf("component %q cannot depend on itself", c.Name))
			}
		}
	}
	return errors.Join(errs...)
}

// Stored returns the stored-configuration tier of the stack.
func (s *Stack) Stored() resolve.MapStore {
	if s.Config == nil {
		return resolve.MapStore{}
	}
	return resolve.MapStore(s.Config)
}

// Timeout returns the fetch timeout, or d when the stack sets none.
func (s *Stack) Timeout(d time.Duration) (time.Duration, error) {
	if s.FetchTimeout == "" {
		return d, nil
	}
	parsed, err := time.ParseDuration(s.FetchTimeout)
	if err != nil {
		return 0, fmt.Errorf("invalid fetchTimeout %q: %w", s.FetchTimeout, err)
	}
	if parsed <= 0 {
		return 0, fmt.Errorf("invalid fetchTimeout %q: must be positive", s.FetchTimeout)
	}
	return parsed, nil
}

// Path resolves p relative to the stack file's directory.
func (s *Stack) Path(p string) string {
	if p == "" || filepath.IsAbs(p) || s.dir == "" {
		return p
	}
	return filepath.Join(s.dir, p)
}

// Component returns the spec named name.
func (s *Stack) Component(name string) (ComponentSpec, bool) {
	for _, c := range s.Components {
		if c.Name == name {
			return c, true
		}
	}
	return ComponentSpec{}, false
}

// SetArgs encodes v as the component's args.
func (c *ComponentSpec) SetArgs(v any) error {
	var node yaml.Node
	if err := node.Encode(v); err != nil {
		return fmt.Errorf("failed to encode args for %q: %w", c.Name, err)
	}
	c.Args = node
	return nil
}

// DecodeArgs decodes the component's args into out. Absent args leave out
// untouched.
func (c ComponentSpec) DecodeArgs(out any) error {
	if c.Args.Kind == 0 {
		return nil
	}
	if err := c.Args.Decode(out); err != nil {
		return fmt.Errorf("component %q: invalid args: %w", c.Name, err)
	}
	return nil
}
