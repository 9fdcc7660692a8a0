package handlers

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/go-logr/logr"
	"github.com/stretchr/testify/require"

	"github.com/imamik/k8stack/internal/artifact"
	"github.com/imamik/k8stack/internal/component"
	"github.com/imamik/k8stack/internal/config"
	"github.com/imamik/k8stack/internal/graph"
	"github.com/imamik/k8stack/internal/resolve"
)

// namespaceDefinition is a catalog entry building a single namespace.
type namespaceDefinition struct {
	team string
}

func (d *namespaceDefinition) Type() string { return "namespace" }

func (d *namespaceDefinition) Resolve(r *resolve.Resolver) error {
	team, err := resolve.Get(r, "team", nil, "platform")
	d.team = team
	return err
}

func (d *namespaceDefinition) Artifacts() []artifact.Source { return nil }

func (d *namespaceDefinition) Build(b *graph.Builder, _ component.Artifacts) error {
	b.Add("", b.Component(), graph.NamespaceSpec{Labels: map[string]string{"team": d.team}})
	return nil
}

type testCatalog struct{}

func (testCatalog) Definition(spec config.ComponentSpec) (component.Definition, error) {
	if spec.Type != "namespace" {
		return nil, &unknownType{spec.Type}
	}
	return &namespaceDefinition{}, nil
}

type unknownType struct{ typ string }

func (e *unknownType) Error() string { return "unknown component type " + e.typ }

// stubHandlers swaps output, logging, defaults and the catalog for the
// duration of the test and returns the captured output.
func stubHandlers(t *testing.T, cat component.Catalog) *bytes.Buffer {
	t.Helper()
	origStdout := stdout
	origLogger := newLogger
	origDefaults := loadDefaults
	origCatalog := catalog
	origMetrics := writeMetrics
	t.Cleanup(func() {
		stdout = origStdout
		newLogger = origLogger
		loadDefaults = origDefaults
		catalog = origCatalog
		writeMetrics = origMetrics
	})

	buf := &bytes.Buffer{}
	stdout = buf
	newLogger = func(bool) logr.Logger { return logr.Discard() }
	cacheDir := t.TempDir()
	loadDefaults = func() config.Defaults {
		return config.Defaults{
			CacheDir:     cacheDir,
			FetchTimeout: time.Minute,
			Concurrency:  2,
			ApplyRetries: 1,
			ReadyTimeout: time.Second,
		}
	}
	catalog = cat
	return buf
}

func writeStack(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), config.DefaultStackFile)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

const namespaceStack = `
project: demo
config:
  web:
    team: storefront
components:
  - name: web
    type: namespace
  - name: jobs
    type: namespace
    dependsOn: [web]
`
