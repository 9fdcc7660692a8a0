package commands

import (
	"github.com/spf13/cobra"
	"k8s.io/client-go/tools/clientcmd"

	"github.com/imamik/k8stack/cmd/k8stack/handlers"
	"github.com/imamik/k8stack/internal/engine"
)

// Apply returns the command that applies the stack to a cluster.
//
// Flags:
//
//	--kubeconfig: Path to the kubeconfig (default: $KUBECONFIG or ~/.kube/config)
//	--preflight: Check external resources before applying
//	--helm-releases: Install charts as Helm releases instead of applying their manifests
//	--field-manager: Server-side apply field manager
func Apply(opts *handlers.Options) *cobra.Command {
	applyOpts := handlers.ApplyOptions{}

	cmd := &cobra.Command{
		Use:   "apply",
		Short: "Apply the stack to a cluster",
		Long: `Apply every node of the stack with server-side apply, dependencies first.

A node whose dependency failed is skipped; independent nodes are still
applied. Nodes depending on objects rendered by a chart wait until those
objects are ready.

Examples:
  # Apply using k8stack.yaml and the default kubeconfig
  k8stack apply

  # Verify networks, floating IPs and buckets first
  k8stack apply --preflight

  # Install charts as Helm releases
  k8stack apply --helm-releases`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			applyOpts.Options = *opts
			return handlers.Apply(cmd.Context(), applyOpts)
		},
	}

	cmd.Flags().StringVar(&applyOpts.Kubeconfig, "kubeconfig", "", "Path to the kubeconfig (default: $KUBECONFIG or "+clientcmd.RecommendedHomeFile+")")
	cmd.Flags().BoolVar(&applyOpts.Preflight, "preflight", false, "Check networks, floating IPs, buckets and DNS credentials before applying")
	cmd.Flags().BoolVar(&applyOpts.HelmReleases, "helm-releases", false, "Install charts as Helm releases")
	cmd.Flags().StringVar(&applyOpts.FieldManager, "field-manager", engine.DefaultFieldManager, "Server-side apply field manager")

	return cmd
}
