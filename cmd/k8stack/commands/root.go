// Package commands defines the CLI command structure and flag bindings.
//
// This package contains cobra command definitions that handle argument parsing,
// flag binding, and validation. Command execution is delegated to handler
// functions in the handlers package.
package commands

import (
	"github.com/spf13/cobra"

	"github.com/imamik/k8stack/cmd/k8stack/handlers"
	"github.com/imamik/k8stack/internal/config"
)

// Root returns the root command for the k8stack CLI.
//
// Persistent flags:
//
//	--file, -f: Path to the stack file (default "k8stack.yaml")
//	--debug: Development logging
//	--metrics-file: Write fetch and apply metrics in the Prometheus text format
func Root() *cobra.Command {
	opts := &handlers.Options{}

	cmd := &cobra.Command{
		Use:           "k8stack",
		Short:         "Assemble and apply Kubernetes component stacks",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	flags := cmd.PersistentFlags()
	flags.StringVarP(&opts.StackPath, "file", "f", config.DefaultStackFile, "Path to the stack file")
	flags.BoolVar(&opts.Debug, "debug", false, "Enable development logging")
	flags.StringVar(&opts.MetricsFile, "metrics-file", "", "Write metrics to this file in the Prometheus text format")

	// Core commands
	cmd.AddCommand(Init())
	cmd.AddCommand(Plan(opts))
	cmd.AddCommand(Render(opts))
	cmd.AddCommand(Fetch(opts))
	cmd.AddCommand(Apply(opts))

	// Utility commands
	cmd.AddCommand(Components())
	cmd.AddCommand(Version())
	cmd.AddCommand(Completion())

	return cmd
}
