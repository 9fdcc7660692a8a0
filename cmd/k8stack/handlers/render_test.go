package handlers

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRender_Stdout(t *testing.T) {
	out := stubHandlers(t, testCatalog{})
	path := writeStack(t, namespaceStack)

	require.NoError(t, Render(context.Background(), Options{StackPath: path}, "", false))

	assert.Contains(t, out.String(), "# Source: web:Namespace/web")
	assert.Contains(t, out.String(), "team: storefront")
	assert.Less(t, strings.Index(out.String(), "name: web"), strings.Index(out.String(), "name: jobs"))
}

func TestRender_File(t *testing.T) {
	out := stubHandlers(t, testCatalog{})
	path := writeStack(t, namespaceStack)
	target := filepath.Join(t.TempDir(), "stack.yaml")

	require.NoError(t, Render(context.Background(), Options{StackPath: path}, target, true))

	assert.Empty(t, out.String())
	data, err := os.ReadFile(target)
	require.NoError(t, err)
	assert.Contains(t, string(data), "kind: Namespace")
}

func TestFetch_NoArtifacts(t *testing.T) {
	out := stubHandlers(t, testCatalog{})
	path := writeStack(t, namespaceStack)

	require.NoError(t, Fetch(context.Background(), Options{StackPath: path}))
	assert.Contains(t, out.String(), "0 artifact(s): 0 downloaded, 0 cached")
}

func TestComponents(t *testing.T) {
	out := stubHandlers(t, testCatalog{})
	Components()
	assert.Contains(t, out.String(), "cert-manager")
	assert.Contains(t, out.String(), "Zalando postgres operator")
}
