// Package config loads the stack file.
//
// A stack file (k8stack.yaml) names a project, the artifact cache, the
// stored configuration of every component (the "stored" resolution tier),
// where encrypted secrets live, and the list of components to assemble.
// Process-wide defaults such as the fetch timeout can be overridden from
// the environment, see [LoadDefaults].
package config
