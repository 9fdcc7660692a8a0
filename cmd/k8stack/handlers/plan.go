package handlers

import (
	"context"
	"fmt"

	"gopkg.in/yaml.v3"

	"github.com/imamik/k8stack/internal/component"
	"github.com/imamik/k8stack/internal/graph"
	"github.com/imamik/k8stack/internal/resolve"
)

// Plan output formats.
const (
	OutputTable = "table"
	OutputYAML  = "yaml"
)

// planView is the YAML form of a plan.
type planView struct {
	Project    string           `yaml:"project"`
	Components []componentView  `yaml:"components"`
	Nodes      []graph.NodeView `yaml:"nodes"`
	Failures   []failureView    `yaml:"failures,omitempty"`
}

type componentView struct {
	Name      string           `yaml:"name"`
	Type      string           `yaml:"type"`
	Parent    string           `yaml:"parent,omitempty"`
	Settings  []resolve.Record `yaml:"settings,omitempty"`
	Artifacts []string         `yaml:"artifacts,omitempty"`
}

type failureView struct {
	Component string `yaml:"component"`
	Error     string `yaml:"error"`
}

// Plan assembles the stack without fetching artifacts and prints its
// resolved settings and resource graph. Secrets are always redacted.
func Plan(ctx context.Context, opts Options, output string) error {
	sess, err := openSession(opts)
	if err != nil {
		return err
	}
	st, err := sess.assemble(ctx, true)
	if err != nil {
		return err
	}

	view := buildPlanView(sess.stack.Project, st)
	switch output {
	case OutputYAML:
		out, err := yaml.Marshal(view)
		if err != nil {
			return fmt.Errorf("failed to marshal plan: %w", err)
		}
		if _, err := stdout.Write(out); err != nil {
			return err
		}
	default:
		fmt.Fprint(stdout, renderPlan(view, colorEnabled(stdout)))
	}

	if err := st.Err(); err != nil {
		return fmt.Errorf("%d component(s) failed: %w", len(st.Failures), err)
	}
	return nil
}

func buildPlanView(project string, st *component.Stack) planView {
	view := planView{Project: project, Nodes: st.Graph.View()}
	for _, inst := range st.Instances {
		cv := componentView{
			Name:     inst.Name,
			Type:     inst.Type,
			Parent:   inst.Parent,
			Settings: inst.Settings,
		}
		for _, a := range inst.Artifacts {
			cv.Artifacts = append(cv.Artifacts, a.Source.String())
		}
		view.Components = append(view.Components, cv)
	}
	for _, f := range st.Failures {
		view.Failures = append(view.Failures, failureView{Component: f.Component, Error: f.Cause.Error()})
	}
	return view
}
