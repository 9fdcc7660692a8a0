package wizard

import (
	"fmt"

	"github.com/charmbracelet/huh"

	"github.com/imamik/k8stack/internal/addons"
)

// Dependencies lists, per component type, the types it is usually applied
// after. BuildStack wires them when both are selected.
var Dependencies = map[string][]string{
	"anycable":                 {"redis"},
	"harbor":                   {"cert-manager"},
	"hcloud-csi":               {"hcloud-ccm"},
	"hcloud-fip-controller":    {"hcloud-ccm"},
	"pgadmin":                  {"zalando-postgres-cluster"},
	"redis-cluster-proxy":      {"redis-cluster"},
	"zalando-postgres-cluster": {"zalando-postgres-operator"},
}

// ComponentOptions returns one option per catalog type, labelled with its
// description.
func ComponentOptions() []huh.Option[string] {
	types := addons.Types()
	opts := make([]huh.Option[string], 0, len(types))
	for _, t := range types {
		label := t
		if desc, ok := addons.Describe(t); ok && desc != "" {
			label = fmt.Sprintf("%s - %s", t, desc)
		}
		opts = append(opts, huh.NewOption(label, t))
	}
	return opts
}

// ConcurrencyOptions contains common fetch concurrency settings.
var ConcurrencyOptions = []huh.Option[string]{
	huh.NewOption("Default", ""),
	huh.NewOption("1 (sequential)", "1"),
	huh.NewOption("4", "4"),
	huh.NewOption("8", "8"),
	huh.NewOption("16", "16"),
}
