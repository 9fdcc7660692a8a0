//go:build kind

// Package kind runs the apply engine against a local Kubernetes cluster
// created with kind (Kubernetes in Docker).
package kind

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"slices"
	"strings"
	"time"
)

// errPrerequisite marks a missing tool; the suite is skipped instead of failed.
var errPrerequisite = errors.New("prerequisite missing")

// Framework owns one kind cluster for the whole test binary.
type Framework struct {
	name           string
	created        bool
	kubeconfig     []byte
	kubeconfigPath string
}

// NewFramework names the cluster after K8STACK_KIND_CLUSTER, or
// "k8stack-test".
func NewFramework() *Framework {
	name := os.Getenv("K8STACK_KIND_CLUSTER")
	if name == "" {
		name = "k8stack-test"
	}
	return &Framework{name: name}
}

// Setup reuses a running cluster of the same name or creates one.
func (f *Framework) Setup() error {
	for _, tool := range []string{"kind", "kubectl", "docker"} {
		if _, err := exec.LookPath(tool); err != nil {
			return fmt.Errorf("%w: %s not found", errPrerequisite, tool)
		}
	}
	if err := exec.Command("docker", "info").Run(); err != nil {
		return fmt.Errorf("%w: docker not running", errPrerequisite)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	clusters, err := exec.CommandContext(ctx, "kind", "get", "clusters").Output()
	if err != nil {
		return fmt.Errorf("list kind clusters: %w", err)
	}
	if slices.Contains(strings.Fields(string(clusters)), f.name) {
		fmt.Printf("Using existing kind cluster: %s\n", f.name)
	} else {
		fmt.Printf("Creating kind cluster: %s\n", f.name)
		cmd := exec.CommandContext(ctx, "kind", "create", "cluster", "--name", f.name, "--wait", "120s")
		cmd.Stdout, cmd.Stderr = os.Stdout, os.Stderr
		if err := cmd.Run(); err != nil {
			return fmt.Errorf("create cluster: %w", err)
		}
		f.created = true
	}

	f.kubeconfig, err = exec.CommandContext(ctx, "kind", "get", "kubeconfig", "--name", f.name).Output()
	if err != nil {
		return fmt.Errorf("get kubeconfig: %w", err)
	}
	file, err := os.CreateTemp("", "k8stack-kind-*.yaml")
	if err != nil {
		return err
	}
	defer file.Close()
	f.kubeconfigPath = file.Name()
	_, err = file.Write(f.kubeconfig)
	return err
}

// Teardown deletes a cluster created by Setup unless KEEP_KIND_CLUSTER is
// set. Reused clusters are left alone.
func (f *Framework) Teardown() {
	if f.kubeconfigPath != "" {
		_ = os.Remove(f.kubeconfigPath)
	}
	if !f.created {
		return
	}
	if os.Getenv("KEEP_KIND_CLUSTER") != "" {
		fmt.Printf("Cluster preserved: kind delete cluster --name %s\n", f.name)
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()
	_ = exec.CommandContext(ctx, "kind", "delete", "cluster", "--name", f.name).Run()
}

// Kubeconfig returns the kubeconfig bytes for the cluster.
func (f *Framework) Kubeconfig() []byte { return f.kubeconfig }

// KubeconfigPath returns the path to the kubeconfig file.
func (f *Framework) KubeconfigPath() string { return f.kubeconfigPath }
