package commands

import (
	"github.com/spf13/cobra"

	"github.com/imamik/k8stack/cmd/k8stack/handlers"
)

// Components returns the command listing the component catalog.
func Components() *cobra.Command {
	return &cobra.Command{
		Use:     "components",
		Aliases: []string{"catalog"},
		Short:   "List the component types a stack can use",
		Args:    cobra.NoArgs,
		Run: func(_ *cobra.Command, _ []string) {
			handlers.Components()
		},
	}
}
