package handlers

import (
	"fmt"

	"github.com/imamik/k8stack/internal/addons"
)

// Components prints the catalog's component types and descriptions.
func Components() {
	for _, t := range addons.Types() {
		desc, _ := addons.Describe(t)
		fmt.Fprintf(stdout, "%-28s %s\n", t, desc)
	}
}
