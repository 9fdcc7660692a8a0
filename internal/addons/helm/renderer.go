package helm

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"slices"
	"sort"
	"strings"

	"helm.sh/helm/v3/pkg/chart"
	"helm.sh/helm/v3/pkg/chart/loader"
	"helm.sh/helm/v3/pkg/chartutil"
	"helm.sh/helm/v3/pkg/engine"
	"helm.sh/helm/v3/pkg/release"
	"helm.sh/helm/v3/pkg/releaseutil"
	"sigs.k8s.io/yaml"
)

// DefaultKubeVersion is the cluster version charts are rendered against.
const DefaultKubeVersion = "v1.31.0"

// RenderOptions configures one chart render.
type RenderOptions struct {
	ReleaseName string
	Namespace   string
	// Values may hold secret.Value leaves; they are revealed for rendering.
	Values Values
	// ValuesFiles name files inside the chart (or absolute paths) whose
	// values are layered under Values, in order.
	ValuesFiles []string
	// APIVersionOverrides maps an apiVersion to its replacement.
	APIVersionOverrides map[string]string
	IncludeCRDs         bool
}

// RenderFromPath loads a chart directory or archive and renders it.
func RenderFromPath(chartPath string, opts RenderOptions) ([]byte, error) {
	ch, err := loader.Load(chartPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load chart from %s: %w", chartPath, err)
	}
	return Render(ch, opts)
}

// ReleaseValues returns the user values for a release: values files first,
// then opts.Values, merged deeply with secrets revealed. Chart defaults are
// not included; Helm coalesces them itself.
func ReleaseValues(ch *chart.Chart, opts RenderOptions) (map[string]any, error) {
	layers := make([]Values, 0, len(opts.ValuesFiles)+1)
	for _, name := range opts.ValuesFiles {
		data, err := valuesFile(ch, name)
		if err != nil {
			return nil, err
		}
		v, err := FromYAML(data)
		if err != nil {
			return nil, fmt.Errorf("values file %s: %w", name, err)
		}
		layers = append(layers, v)
	}
	layers = append(layers, Values(Reveal(opts.Values)))
	return DeepMerge(layers...).ToMap(), nil
}

func valuesFile(ch *chart.Chart, name string) ([]byte, error) {
	for _, f := range ch.Files {
		if f.Name == name {
			return f.Data, nil
		}
	}
	for _, f := range ch.Raw {
		if f.Name == name {
			return f.Data, nil
		}
	}
	if filepath.IsAbs(name) {
		// #nosec G304
		data, err := os.ReadFile(name)
		if err != nil {
			return nil, fmt.Errorf("failed to read values file: %w", err)
		}
		return data, nil
	}
	return nil, fmt.Errorf("values file %q not found in chart %s", name, ch.Name())
}

// Render renders ch into multi-document YAML. CRDs (when requested) come
// first, then manifests in Helm's install order, then non-test hooks.
func Render(ch *chart.Chart, opts RenderOptions) ([]byte, error) {
	vals, err := ReleaseValues(ch, opts)
	if err != nil {
		return nil, err
	}

	releaseOptions := chartutil.ReleaseOptions{
		Name:      opts.ReleaseName,
		Namespace: opts.Namespace,
		IsInstall: true,
	}

	// Render against a modern cluster so templates pick current API
	// versions (e.g. policy/v1 instead of v1beta1).
	capabilities := chartutil.DefaultCapabilities.Copy()
	capabilities.KubeVersion.Version = DefaultKubeVersion
	capabilities.KubeVersion.Major = "1"
	capabilities.KubeVersion.Minor = "31"

	valuesToRender, err := chartutil.ToRenderValues(ch, vals, releaseOptions, capabilities)
	if err != nil {
		return nil, fmt.Errorf("failed to prepare values: %w", err)
	}

	var eng engine.Engine
	rendered, err := eng.Render(ch, valuesToRender)
	if err != nil {
		return nil, fmt.Errorf("failed to render templates: %w", err)
	}

	files := make(map[string]string, len(rendered))
	for name, content := range rendered {
		if filepath.Base(name) == "NOTES.txt" || strings.TrimSpace(content) == "" {
			continue
		}
		files[name] = content
	}

	hooks, manifests, err := releaseutil.SortManifests(files, capabilities.APIVersions, releaseutil.InstallOrder)
	if err != nil {
		return nil, fmt.Errorf("failed to sort manifests: %w", err)
	}

	var docs []string
	if opts.IncludeCRDs {
		for _, crd := range ch.CRDObjects() {
			docs = append(docs, string(crd.File.Data))
		}
	}
	for _, m := range manifests {
		docs = append(docs, m.Content)
	}
	sort.SliceStable(hooks, func(i, j int) bool { return hooks[i].Weight < hooks[j].Weight })
	for _, h := range hooks {
		if slices.Contains(h.Events, release.HookTest) {
			continue
		}
		docs = append(docs, h.Manifest)
	}

	out := JoinDocuments(docs)
	if len(opts.APIVersionOverrides) > 0 {
		return OverrideAPIVersions(out, opts.APIVersionOverrides)
	}
	return out, nil
}

var documentSeparator = regexp.MustCompile(`(?m)^---[ \t]*(#.*)?$`)

// SplitDocuments splits multi-document YAML and drops empty documents.
func SplitDocuments(manifest []byte) []string {
	var out []string
	for _, doc := range documentSeparator.Split(string(manifest), -1) {
		if isEmptyDocument(doc) {
			continue
		}
		out = append(out, strings.TrimSpace(doc))
	}
	return out
}

func isEmptyDocument(doc string) bool {
	for _, line := range strings.Split(doc, "\n") {
		line = strings.TrimSpace(line)
		if line != "" && !strings.HasPrefix(line, "#") {
			return false
		}
	}
	return true
}

// JoinDocuments joins YAML documents with separators.
func JoinDocuments(docs []string) []byte {
	var combined bytes.Buffer
	for _, d := range docs {
		for _, doc := range SplitDocuments([]byte(d)) {
			if combined.Len() > 0 {
				combined.WriteString("---\n")
			}
			combined.WriteString(doc)
			combined.WriteString("\n")
		}
	}
	return combined.Bytes()
}

// OverrideAPIVersions rewrites the apiVersion of every document whose
// apiVersion is a key of overrides. Other documents are kept verbatim.
func OverrideAPIVersions(manifest []byte, overrides map[string]string) ([]byte, error) {
	docs := SplitDocuments(manifest)
	for i, doc := range docs {
		var head struct {
			APIVersion string `json:"apiVersion"`
		}
		if err := yaml.Unmarshal([]byte(doc), &head); err != nil {
			return nil, fmt.Errorf("failed to parse document %d: %w", i, err)
		}
		replacement, ok := overrides[head.APIVersion]
		if !ok {
			continue
		}
		var obj map[string]any
		if err := yaml.Unmarshal([]byte(doc), &obj); err != nil {
			return nil, fmt.Errorf("failed to parse document %d: %w", i, err)
		}
		obj["apiVersion"] = replacement
		out, err := yaml.Marshal(obj)
		if err != nil {
			return nil, fmt.Errorf("failed to encode document %d: %w", i, err)
		}
		docs[i] = string(out)
	}
	return JoinDocuments(docs), nil
}
