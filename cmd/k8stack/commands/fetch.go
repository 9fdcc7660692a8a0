package commands

import (
	"github.com/spf13/cobra"

	"github.com/imamik/k8stack/cmd/k8stack/handlers"
)

// Fetch returns the command that fills the artifact cache.
func Fetch(opts *handlers.Options) *cobra.Command {
	return &cobra.Command{
		Use:   "fetch",
		Short: "Download the stack's charts and manifests into the cache",
		Long: `Download every chart, archive, git checkout and manifest the stack
needs into the artifact cache. Artifacts already cached are not fetched
again, so a later apply with offline: true needs no network access.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return handlers.Fetch(cmd.Context(), *opts)
		},
	}
}
