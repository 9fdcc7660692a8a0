package commands

import (
	"github.com/spf13/cobra"

	"github.com/imamik/k8stack/cmd/k8stack/handlers"
)

// Render returns the command that prints the stack's manifests.
//
// Flags:
//
//	--output, -o: Write manifests to a file instead of stdout
//	--include-secrets: Render secret values in plaintext
func Render(opts *handlers.Options) *cobra.Command {
	var (
		outputPath     string
		includeSecrets bool
	)

	cmd := &cobra.Command{
		Use:   "render",
		Short: "Render the stack to Kubernetes manifests",
		Long: `Render every node of the stack to multi-document YAML, in the
order it would be applied.

Charts are rendered with the Helm SDK. Secret values are redacted unless
--include-secrets is given.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return handlers.Render(cmd.Context(), *opts, outputPath, includeSecrets)
		},
	}

	cmd.Flags().StringVarP(&outputPath, "output", "o", "", "Output file path (default: stdout)")
	cmd.Flags().BoolVar(&includeSecrets, "include-secrets", false, "Render secret values in plaintext")

	return cmd
}
