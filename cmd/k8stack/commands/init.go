package commands

import (
	"github.com/spf13/cobra"

	"github.com/imamik/k8stack/cmd/k8stack/handlers"
	"github.com/imamik/k8stack/internal/config"
)

// Init returns the command for interactively creating a stack file.
//
// Flags:
//
//	--output, -o: Path to output file (default "k8stack.yaml")
//	--advanced, -a: Show artifact fetch options
func Init() *cobra.Command {
	var (
		outputPath string
		advanced   bool
	)

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Interactively create a stack file",
		Long: `Interactively create a stack file.

This command asks for:

  - The project name
  - The catalog components to install
  - A name for each component
  - An encrypted secrets file (optional)

Components that usually depend on each other, such as a postgres cluster
and its operator, are wired with dependsOn automatically.

Use --advanced for cache, timeout, concurrency and offline settings.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return handlers.Init(cmd.Context(), outputPath, advanced)
		},
	}

	cmd.Flags().StringVarP(&outputPath, "output", "o", config.DefaultStackFile, "Output file path")
	cmd.Flags().BoolVarP(&advanced, "advanced", "a", false, "Show advanced configuration options")

	return cmd
}
