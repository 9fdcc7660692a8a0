//go:build kind

package kind

import (
	"bytes"
	"fmt"
	"os/exec"
	"strings"
	"testing"
	"time"
)

// Kubectl executes a kubectl command and returns its output.
func (f *Framework) Kubectl(args ...string) (string, error) {
	fullArgs := append([]string{"--kubeconfig", f.KubeconfigPath()}, args...)
	// #nosec G204 -- test code with controlled command arguments
	cmd := exec.Command("kubectl", fullArgs...)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return "", fmt.Errorf("%v: %s", err, stderr.String())
	}
	return stdout.String(), nil
}

// KubectlMust executes kubectl and fails the test on error.
func (f *Framework) KubectlMust(t *testing.T, args ...string) string {
	t.Helper()
	output, err := f.Kubectl(args...)
	if err != nil {
		t.Fatalf("kubectl %s: %v", strings.Join(args, " "), err)
	}
	return output
}

// JSONPath reads one field of a resource.
func (f *Framework) JSONPath(t *testing.T, kind, namespace, name, path string) string {
	t.Helper()
	args := []string{"get", kind, name, "-o", "jsonpath=" + path}
	if namespace != "" {
		args = append([]string{"-n", namespace}, args...)
	}
	return f.KubectlMust(t, args...)
}

// DeleteNamespace removes a namespace and waits until it is finalized, so
// a reused cluster starts the next run clean.
func (f *Framework) DeleteNamespace(t *testing.T, name string) {
	t.Helper()
	_, _ = f.Kubectl("delete", "namespace", name, "--ignore-not-found", "--wait=false")
	f.Eventually(t, "namespace "+name+" deleted", 2*time.Minute, func() bool {
		_, err := f.Kubectl("get", "namespace", name)
		return err != nil
	})
}
