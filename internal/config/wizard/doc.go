// Package wizard provides the interactive stack wizard behind k8stack init.
//
// The wizard asks for a project name and a set of catalog components using
// charmbracelet/huh forms. BuildStack turns the answers into a config.Stack
// and WriteStack saves it with a descriptive header.
package wizard
