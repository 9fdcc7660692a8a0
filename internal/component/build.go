package component

import (
	"github.com/imamik/k8stack/internal/addons/helm"
	"github.com/imamik/k8stack/internal/artifact"
	"github.com/imamik/k8stack/internal/graph"
)

// RepositorySource is the artifact source of a chart from a Helm
// repository.
func RepositorySource(spec helm.ChartSpec) artifact.Source {
	return artifact.Source{Kind: artifact.KindHelmRepository, URL: spec.Repository, Name: spec.Name, Version: spec.Version}
}

// ChartRef points a chart release at its fetched entry, keeping the
// repository coordinates for display.
func ChartRef(entry artifact.Entry) graph.ChartRef {
	ref := graph.ChartRef{Path: entry.ChartPath, Version: entry.Source.Version}
	switch entry.Source.Kind {
	case artifact.KindHelmRepository:
		ref.Repository = entry.Source.URL
		ref.Name = entry.Source.Name
	default:
		ref.Repository = entry.Source.URL
	}
	return ref
}

// Namespace adds a namespace node, the root of most components.
func Namespace(b *graph.Builder, name string) graph.Ref {
	return b.Add("", name, graph.NamespaceSpec{})
}
