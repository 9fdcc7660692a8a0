package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/imamik/k8stack/cmd/k8stack/handlers"
)

// Plan returns the command that shows what a stack would apply without
// fetching artifacts or contacting a cluster.
func Plan(opts *handlers.Options) *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "plan",
		Short: "Show resolved settings and the resource graph",
		Long: `Show the resolved settings and the resource graph of a stack.

Every setting is listed with the tier it was resolved from. Secret values
are always redacted. Artifacts are described but not fetched.

Examples:
  # Table output
  k8stack plan

  # Machine-readable output
  k8stack plan -o yaml`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if output != handlers.OutputTable && output != handlers.OutputYAML {
				return fmt.Errorf("unsupported output %q (expected %s or %s)", output, handlers.OutputTable, handlers.OutputYAML)
			}
			return handlers.Plan(cmd.Context(), *opts, output)
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", handlers.OutputTable, "Output format: table or yaml")

	return cmd
}
