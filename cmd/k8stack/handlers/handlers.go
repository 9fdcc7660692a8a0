// Package handlers implements the business logic for CLI commands.
//
// This package contains handler functions that are called by command definitions
// in the commands package. Handlers are framework-agnostic and can be tested
// independently of the CLI framework.
package handlers

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/go-logr/logr"
	"sigs.k8s.io/controller-runtime/pkg/log/zap"

	"github.com/imamik/k8stack/internal/addons"
	"github.com/imamik/k8stack/internal/artifact"
	"github.com/imamik/k8stack/internal/component"
	"github.com/imamik/k8stack/internal/config"
)

// Options are the flags shared by every stack command.
type Options struct {
	StackPath   string
	Debug       bool
	MetricsFile string
}

// Factory function variables - can be replaced in tests for dependency injection.
var (
	// stdout receives command output.
	stdout io.Writer = os.Stdout

	// loadStack loads and validates a stack file.
	loadStack = config.LoadStack

	// loadDefaults reads process defaults from the environment.
	loadDefaults = config.LoadDefaults

	// newLogger builds the CLI logger.
	newLogger = func(debug bool) logr.Logger {
		return zap.New(zap.UseDevMode(debug), zap.WriteTo(os.Stderr))
	}

	// catalog maps stack entries to component definitions.
	catalog component.Catalog = addons.Catalog{}

	// writeMetrics exports the process metrics.
	writeMetrics = artifact.WriteMetrics
)

// session is a loaded stack and the settings derived from it.
type session struct {
	opts     Options
	stack    *config.Stack
	defaults config.Defaults
	log      logr.Logger
}

func openSession(opts Options) (*session, error) {
	log := newLogger(opts.Debug)
	stack, err := loadStack(opts.StackPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load stack: %w", err)
	}
	defaults, err := loadDefaults().Merge(stack)
	if err != nil {
		return nil, fmt.Errorf("failed to apply stack settings: %w", err)
	}
	return &session{
		opts:     opts,
		stack:    stack,
		defaults: defaults,
		log:      log.WithValues("project", stack.Project),
	}, nil
}

// env returns the assembly environment. With skipFetch, artifacts are
// described but never downloaded.
func (s *session) env(skipFetch bool) (component.Env, error) {
	secrets, err := s.stack.SecretStore()
	if err != nil {
		return component.Env{}, fmt.Errorf("failed to open secret store: %w", err)
	}

	fetcher := artifact.New(s.defaults.CacheDir, s.log.WithName("fetch"))
	fetcher.Timeout = s.defaults.FetchTimeout
	fetcher.Offline = s.stack.Offline
	fetcher.MaterializeManifests = s.stack.MaterializeManifests

	return component.Env{
		Stored:      s.stack.Stored(),
		Secrets:     secrets,
		Fetcher:     fetcher,
		SkipFetch:   skipFetch,
		Concurrency: s.defaults.Concurrency,
		Log:         s.log,
	}, nil
}

// assemble builds every component of the stack. Component failures are
// logged and kept on the returned stack; the error covers stack-level
// defects only.
func (s *session) assemble(ctx context.Context, skipFetch bool) (*component.Stack, error) {
	env, err := s.env(skipFetch)
	if err != nil {
		return nil, err
	}
	st, err := component.AssembleStack(ctx, env, catalog, s.stack.Components)
	if err != nil {
		return nil, fmt.Errorf("failed to assemble stack: %w", err)
	}
	for _, f := range st.Failures {
		s.log.Error(f.Cause, "component failed", "component", f.Component)
	}
	return st, nil
}

// exportMetrics writes metrics when --metrics-file is set. Failures are
// logged only.
func (s *session) exportMetrics() {
	if s.opts.MetricsFile == "" {
		return
	}
	if err := writeMetrics(s.opts.MetricsFile); err != nil {
		s.log.Error(err, "failed to write metrics", "path", s.opts.MetricsFile)
	}
}
