package handlers

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-isatty"

	"github.com/imamik/k8stack/internal/resolve"
)

var (
	planColorRed   = lipgloss.Color("#ef4444")
	planColorBlue  = lipgloss.Color("#3b82f6")
	planColorDim   = lipgloss.Color("#6b7280")
	planColorWhite = lipgloss.Color("#f9fafb")
)

// planStyles holds the styles of one plan rendering; the zero value
// renders plain text.
type planStyles struct {
	title   lipgloss.Style
	section lipgloss.Style
	dim     lipgloss.Style
	failed  lipgloss.Style
}

func newPlanStyles(color bool) planStyles {
	if !color {
		plain := lipgloss.NewStyle()
		return planStyles{title: plain, section: plain, dim: plain, failed: plain}
	}
	return planStyles{
		title:   lipgloss.NewStyle().Bold(true).Foreground(planColorWhite),
		section: lipgloss.NewStyle().Bold(true).Foreground(planColorBlue),
		dim:     lipgloss.NewStyle().Foreground(planColorDim),
		failed:  lipgloss.NewStyle().Bold(true).Foreground(planColorRed),
	}
}

// colorEnabled reports whether w is a terminal.
func colorEnabled(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

// renderPlan produces the table form of a plan.
func renderPlan(view planView, color bool) string {
	st := newPlanStyles(color)
	var b strings.Builder

	b.WriteString("\n")
	b.WriteString(st.title.Render(fmt.Sprintf("  k8stack plan: %s", view.Project)))
	b.WriteString("\n")
	b.WriteString(st.dim.Render("  " + strings.Repeat("═", 30)))
	b.WriteString("\n")

	for _, c := range view.Components {
		b.WriteString("\n")
		heading := fmt.Sprintf("  %s (%s)", c.Name, c.Type)
		if c.Parent != "" {
			heading += " in " + c.Parent
		}
		b.WriteString(st.section.Render(heading))
		b.WriteString("\n")
		for _, r := range c.Settings {
			fmt.Fprintf(&b, "    %-28s %-24s %s\n", r.Key, formatSetting(r), st.dim.Render(r.Source))
		}
		for _, a := range c.Artifacts {
			b.WriteString(st.dim.Render("    artifact " + a))
			b.WriteString("\n")
		}
	}

	b.WriteString("\n")
	b.WriteString(st.section.Render(fmt.Sprintf("  Resources (%d, in apply order)", len(view.Nodes))))
	b.WriteString("\n")
	b.WriteString(st.dim.Render("  " + strings.Repeat("─", 50)))
	b.WriteString("\n")
	for i, n := range view.Nodes {
		fmt.Fprintf(&b, "  %3d  %s\n", i+1, n.ID)
		for _, d := range n.DependsOn {
			b.WriteString(st.dim.Render("         after " + d))
			b.WriteString("\n")
		}
	}

	if len(view.Failures) > 0 {
		b.WriteString("\n")
		b.WriteString(st.failed.Render(fmt.Sprintf("  Failed components (%d)", len(view.Failures))))
		b.WriteString("\n")
		for _, f := range view.Failures {
			fmt.Fprintf(&b, "    %s: %s\n", f.Component, f.Error)
		}
	}

	return b.String()
}

// formatSetting prints a resolved value; records of secrets already hold
// the redaction marker.
func formatSetting(r resolve.Record) string {
	if r.Value == nil {
		return "-"
	}
	s := fmt.Sprint(r.Value)
	if len(s) > 24 {
		s = s[:21] + "..."
	}
	return s
}
