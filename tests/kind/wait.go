//go:build kind

package kind

import (
	"testing"
	"time"
)

// Eventually polls condition every two seconds and fails the test when it
// has not held within timeout.
func (f *Framework) Eventually(t *testing.T, desc string, timeout time.Duration, condition func() bool) {
	t.Helper()
	for deadline := time.Now().Add(timeout); time.Now().Before(deadline); time.Sleep(2 * time.Second) {
		if condition() {
			return
		}
	}
	t.Fatalf("timeout waiting for %s", desc)
}
