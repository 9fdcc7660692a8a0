package handlers

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/imamik/k8stack/internal/addons"
)

func TestPlan_Table(t *testing.T) {
	out := stubHandlers(t, testCatalog{})
	path := writeStack(t, namespaceStack)

	err := Plan(context.Background(), Options{StackPath: path}, OutputTable)
	require.NoError(t, err)

	assert.Contains(t, out.String(), "k8stack plan: demo")
	assert.Contains(t, out.String(), "web (namespace)")
	assert.Contains(t, out.String(), "storefront")
	assert.Contains(t, out.String(), "Resources (2, in apply order)")
	assert.Contains(t, out.String(), "after web:Namespace/web")
	assert.NotContains(t, out.String(), "Failed components")
}

func TestPlan_YAML(t *testing.T) {
	out := stubHandlers(t, testCatalog{})
	path := writeStack(t, namespaceStack)

	require.NoError(t, Plan(context.Background(), Options{StackPath: path}, OutputYAML))

	var view struct {
		Project    string `yaml:"project"`
		Components []struct {
			Name     string `yaml:"name"`
			Settings []struct {
				Key    string `yaml:"key"`
				Source string `yaml:"source"`
				Value  string `yaml:"value"`
			} `yaml:"settings"`
		} `yaml:"components"`
		Nodes []struct {
			ID string `yaml:"id"`
		} `yaml:"nodes"`
	}
	require.NoError(t, yaml.Unmarshal(out.Bytes(), &view))
	assert.Equal(t, "demo", view.Project)
	require.Len(t, view.Components, 2)
	require.Len(t, view.Nodes, 2)
	assert.Equal(t, "web:Namespace/web", view.Nodes[0].ID)

	settings := map[string]string{}
	for _, c := range view.Components {
		for _, s := range c.Settings {
			settings[c.Name] = s.Value
		}
	}
	assert.Equal(t, map[string]string{"web": "storefront", "jobs": "platform"}, settings)
}

func TestPlan_ComponentFailure(t *testing.T) {
	out := stubHandlers(t, testCatalog{})
	path := writeStack(t, `
project: demo
components:
  - name: web
    type: namespace
  - name: broken
    type: nope
  - name: after-broken
    type: namespace
    dependsOn: [broken]
`)

	err := Plan(context.Background(), Options{StackPath: path}, OutputTable)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "2 component(s) failed")
	assert.Contains(t, out.String(), "web (namespace)")
	assert.Contains(t, out.String(), "Failed components (2)")
	assert.Contains(t, out.String(), `after-broken: dependency "broken" failed`)
}

func TestPlan_MissingStack(t *testing.T) {
	stubHandlers(t, testCatalog{})
	err := Plan(context.Background(), Options{StackPath: "does-not-exist.yaml"}, OutputTable)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to load stack")
}

func TestPlan_CatalogWithoutFetching(t *testing.T) {
	out := stubHandlers(t, addons.Catalog{})
	path := writeStack(t, `
project: web
components:
  - name: cache
    type: memcached
    args:
      namespace: web
`)

	require.NoError(t, Plan(context.Background(), Options{StackPath: path}, OutputYAML))
	assert.Contains(t, out.String(), "cache:ChartRelease/web/cache")
}
