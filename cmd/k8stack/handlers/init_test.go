package handlers

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/imamik/k8stack/internal/config"
	"github.com/imamik/k8stack/internal/config/wizard"
)

// saveAndRestoreInitFactories saves and restores init factory functions.
func saveAndRestoreInitFactories(t *testing.T) {
	origFileExists := wizardFileExists
	origConfirmOverwrite := wizardConfirmOverwrite
	origRunWizard := wizardRunWizard
	origBuildStack := wizardBuildStack
	origWriteStack := wizardWriteStack

	t.Cleanup(func() {
		wizardFileExists = origFileExists
		wizardConfirmOverwrite = origConfirmOverwrite
		wizardRunWizard = origRunWizard
		wizardBuildStack = origBuildStack
		wizardWriteStack = origWriteStack
	})
}

func TestInit_WritesStack(t *testing.T) {
	out := stubHandlers(t, testCatalog{})
	saveAndRestoreInitFactories(t)

	wizardRunWizard = func(_ context.Context, advanced bool) (*wizard.WizardResult, error) {
		assert.True(t, advanced)
		return &wizard.WizardResult{
			Project: "shop",
			Types:   []string{"zalando-postgres-operator", "zalando-postgres-cluster"},
			Names:   map[string]string{"zalando-postgres-cluster": "orders"},
		}, nil
	}
	target := filepath.Join(t.TempDir(), "k8stack.yaml")

	require.NoError(t, Init(context.Background(), target, true))

	s, err := config.LoadStack(target)
	require.NoError(t, err)
	assert.Equal(t, "shop", s.Project)
	orders, ok := s.Component("orders")
	require.True(t, ok)
	assert.Equal(t, []string{"zalando-postgres-operator"}, orders.DependsOn)

	assert.Contains(t, out.String(), "Running in advanced mode")
	assert.Contains(t, out.String(), "Stack saved!")
	assert.Contains(t, out.String(), "orders (zalando-postgres-cluster) after [zalando-postgres-operator]")
	assert.Contains(t, out.String(), "K8STACK_SECRET_")
}

func TestInit_DeclinedOverwrite(t *testing.T) {
	out := stubHandlers(t, testCatalog{})
	saveAndRestoreInitFactories(t)

	wizardFileExists = func(string) bool { return true }
	wizardConfirmOverwrite = func(string) (bool, error) { return false, nil }
	wizardRunWizard = func(context.Context, bool) (*wizard.WizardResult, error) {
		t.Fatal("wizard must not run")
		return nil, nil
	}

	require.NoError(t, Init(context.Background(), "k8stack.yaml", false))
	assert.Contains(t, out.String(), "Aborted.")
}

func TestInit_WizardCanceled(t *testing.T) {
	stubHandlers(t, testCatalog{})
	saveAndRestoreInitFactories(t)

	wizardFileExists = func(string) bool { return false }
	wizardRunWizard = func(context.Context, bool) (*wizard.WizardResult, error) {
		return nil, errors.New("user aborted")
	}

	err := Init(context.Background(), "k8stack.yaml", false)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "wizard canceled: user aborted")
}

func TestInit_WriteError(t *testing.T) {
	stubHandlers(t, testCatalog{})
	saveAndRestoreInitFactories(t)

	wizardFileExists = func(string) bool { return false }
	wizardRunWizard = func(context.Context, bool) (*wizard.WizardResult, error) {
		return &wizard.WizardResult{Project: "shop", Types: []string{"redis"}}, nil
	}
	wizardWriteStack = func(*config.Stack, string) error { return errors.New("disk full") }

	err := Init(context.Background(), "k8stack.yaml", false)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to write stack: disk full")
}
