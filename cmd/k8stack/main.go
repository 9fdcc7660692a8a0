// Package main is the entry point for the k8stack CLI.
//
// k8stack assembles catalog components (Helm charts, raw manifests and
// custom resources) from a stack file into one dependency graph, and
// plans, renders or applies that graph to a Kubernetes cluster.
//
// Commands: init, plan, render, fetch, apply, components, version.
//
// For detailed usage information, run:
//
//	k8stack --help
package main

import (
	"fmt"
	"os"

	"github.com/imamik/k8stack/cmd/k8stack/commands"
)

// Version information set by goreleaser at build time.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	commands.SetVersionInfo(version, commit, date)
	if err := commands.Root().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
