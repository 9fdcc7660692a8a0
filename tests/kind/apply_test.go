//go:build kind

package kind

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/go-logr/logr/testr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/imamik/k8stack/internal/engine"
	"github.com/imamik/k8stack/internal/engine/k8sclient"
	"github.com/imamik/k8stack/internal/graph"
	"github.com/imamik/k8stack/internal/secret"
	"github.com/imamik/k8stack/internal/util/labels"
	"github.com/imamik/k8stack/internal/util/retry"
)

const testNamespace = "e2e-stack"

const widgetCRD = `apiVersion: apiextensions.k8s.io/v1
kind: CustomResourceDefinition
metadata:
  name: widgets.e2e.k8stack.io
spec:
  group: e2e.k8stack.io
  names:
    kind: Widget
    plural: widgets
    singular: widget
  scope: Namespaced
  versions:
  - name: v1
    served: true
    storage: true
    schema:
      openAPIV3Schema:
        type: object
        properties:
          spec:
            type: object
            x-kubernetes-preserve-unknown-fields: true
`

const pauseDeployment = `apiVersion: apps/v1
kind: Deployment
metadata:
  name: pause
spec:
  replicas: 1
  selector:
    matchLabels:
      app: pause
  template:
    metadata:
      labels:
        app: pause
    spec:
      containers:
      - name: pause
        image: registry.k8s.io/pause:3.9
`

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

// stackGraph covers every node kind the engine applies without a chart,
// including waits on a CRD and on a Deployment.
func stackGraph(t *testing.T) *graph.Graph {
	t.Helper()
	b := graph.NewBuilder("e2e")
	ns := b.Add("", testNamespace, graph.NamespaceSpec{})
	b.Add(testNamespace, "creds", graph.SecretSpec{Data: map[string]secret.Value{"password": secret.New("hunter2")}}, ns)
	crds := b.Add("", "widget-crds", graph.RawManifestSpec{Files: []string{writeFile(t, "crds.yaml", widgetCRD)}})
	workload := b.Add("", "workload", graph.RawManifestSpec{
		Files:            []string{writeFile(t, "deploy.yaml", pauseDeployment)},
		DefaultNamespace: testNamespace,
	}, ns)
	b.Add(testNamespace, "main", graph.CustomResourceSpec{
		APIVersion:   "e2e.k8stack.io/v1",
		ResourceKind: "Widget",
		Spec:         map[string]any{"size": 3},
	}, ns, crds.Sub("apiextensions.k8s.io/v1/CustomResourceDefinition", "widgets.e2e.k8stack.io"))
	b.Add(testNamespace, "settings", graph.ConfigMapSpec{Data: map[string]string{"mode": "e2e"}},
		workload.Sub("apps/v1/Deployment", testNamespace+"/pause"))

	g, err := b.Build()
	require.NoError(t, err)
	return g
}

func newEngine(t *testing.T) *engine.SSA {
	t.Helper()
	client, err := k8sclient.NewFromKubeconfig(fw.Kubeconfig())
	require.NoError(t, err)
	return engine.NewSSA(client, nil, engine.Options{
		ReadyTimeout:  3 * time.Minute,
		ReadyInterval: 2 * time.Second,
		Log:           testr.New(t),
	})
}

func TestKindApply(t *testing.T) {
	t.Cleanup(func() {
		fw.DeleteNamespace(t, testNamespace)
		_, _ = fw.Kubectl("delete", "crd", "widgets.e2e.k8stack.io", "--ignore-not-found")
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()
	g := stackGraph(t)

	report, err := newEngine(t).Apply(ctx, g)
	require.NoError(t, err)
	assert.Equal(t, g.Len(), report.Count(engine.StatusApplied))

	t.Run("SecretRevealed", func(t *testing.T) {
		assert.Equal(t, "aHVudGVyMg==", fw.JSONPath(t, "secret", testNamespace, "creds", "{.data.password}"))
	})

	t.Run("ManagedLabels", func(t *testing.T) {
		got := fw.JSONPath(t, "secret", testNamespace, "creds", "{.metadata.labels}")
		assert.Contains(t, got, labels.ManagedByK8stack)
		assert.Contains(t, got, labels.KeyComponent)
	})

	t.Run("FieldManager", func(t *testing.T) {
		managers := fw.JSONPath(t, "configmap", testNamespace, "settings", "{.metadata.managedFields[*].manager}")
		assert.Contains(t, strings.Fields(managers), engine.DefaultFieldManager)
	})

	t.Run("CustomResource", func(t *testing.T) {
		assert.Equal(t, "3", fw.JSONPath(t, "widgets.e2e.k8stack.io", testNamespace, "main", "{.spec.size}"))
	})

	t.Run("DefaultNamespace", func(t *testing.T) {
		assert.Equal(t, "1", fw.JSONPath(t, "deployment", testNamespace, "pause", "{.status.readyReplicas}"))
	})

	t.Run("Reapply", func(t *testing.T) {
		before := fw.JSONPath(t, "configmap", testNamespace, "settings", "{.metadata.resourceVersion}")
		report, err := newEngine(t).Apply(ctx, stackGraph(t))
		require.NoError(t, err)
		assert.Equal(t, g.Len(), report.Count(engine.StatusApplied))
		assert.Equal(t, before, fw.JSONPath(t, "configmap", testNamespace, "settings", "{.metadata.resourceVersion}"))
	})
}

func TestKindApply_SkipsDependentsOfFailedNode(t *testing.T) {
	const ns = "e2e-broken"
	t.Cleanup(func() { fw.DeleteNamespace(t, ns) })

	b := graph.NewBuilder("broken")
	nsRef := b.Add("", ns, graph.NamespaceSpec{})
	missing := b.Add(ns, "orphan", graph.CustomResourceSpec{APIVersion: "missing.k8stack.io/v1", ResourceKind: "Nothing"}, nsRef)
	b.Add(ns, "after-orphan", graph.ConfigMapSpec{}, missing)
	g, err := b.Build()
	require.NoError(t, err)

	client, err := k8sclient.NewFromKubeconfig(fw.Kubeconfig())
	require.NoError(t, err)
	eng := engine.NewSSA(client, nil, engine.Options{
		Retry: []retry.Option{retry.WithMaxRetries(1), retry.WithInitialDelay(time.Second)},
		Log:   testr.New(t),
	})

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()
	report, err := eng.Apply(ctx, g)
	require.Error(t, err)
	assert.Equal(t, 1, report.Count(engine.StatusApplied))
	assert.Equal(t, 1, report.Count(engine.StatusFailed))
	assert.Equal(t, 1, report.Count(engine.StatusSkipped))

	_, getErr := fw.Kubectl("-n", ns, "get", "configmap", "after-orphan")
	assert.Error(t, getErr)
}
