package handlers

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/go-logr/logr"
	"k8s.io/client-go/tools/clientcmd"

	"github.com/imamik/k8stack/internal/component"
	"github.com/imamik/k8stack/internal/engine"
	"github.com/imamik/k8stack/internal/engine/k8sclient"
	"github.com/imamik/k8stack/internal/preflight"
)

// ApplyOptions configures Apply.
type ApplyOptions struct {
	Options

	Kubeconfig   string
	Preflight    bool
	HelmReleases bool
	FieldManager string
}

// Preflighter checks external resources the stack's components rely on.
type Preflighter interface {
	Run(ctx context.Context, instances []*component.Instance) preflight.Report
}

// Factory function variables for apply - can be replaced in tests.
var (
	// readFile reads the kubeconfig.
	readFile = os.ReadFile

	// newKubeClient creates the cluster client.
	newKubeClient = k8sclient.NewFromKubeconfig

	// newEngine creates the apply engine.
	newEngine = func(client k8sclient.Client, opts engine.Options) engine.Engine {
		return engine.NewSSA(client, nil, opts)
	}

	// newPreflight creates the preflight checker.
	newPreflight = func(log logr.Logger) Preflighter {
		return preflight.New(log)
	}
)

// Apply assembles the stack and applies its graph to the cluster.
//
// Components that failed to assemble are left out; everything else is
// applied, and the returned error covers both assembly and apply failures.
func Apply(ctx context.Context, opts ApplyOptions) error {
	sess, err := openSession(opts.Options)
	if err != nil {
		return err
	}
	defer sess.exportMetrics()

	st, err := sess.assemble(ctx, false)
	if err != nil {
		return err
	}

	if opts.Preflight {
		report := newPreflight(sess.log.WithName("preflight")).Run(ctx, st.Instances)
		if err := report.Err(); err != nil {
			return fmt.Errorf("preflight failed: %w", err)
		}
		sess.log.Info("preflight passed", "checks", len(report.Results))
	}

	path := kubeconfigPath(opts.Kubeconfig)
	kubeconfig, err := readFile(path)
	if err != nil {
		return fmt.Errorf("failed to read kubeconfig %s: %w", path, err)
	}
	client, err := newKubeClient(kubeconfig)
	if err != nil {
		return err
	}

	engineOpts := engine.Options{
		FieldManager: opts.FieldManager,
		ReadyTimeout: sess.defaults.ReadyTimeout,
		Retry:        sess.defaults.ApplyRetry(),
		Log:          sess.log.WithName("engine"),
	}
	if opts.HelmReleases {
		engineOpts.Releaser = engine.NewHelmReleaser(kubeconfig, sess.log.WithName("helm"))
	}

	start := time.Now()
	report, applyErr := newEngine(client, engineOpts).Apply(ctx, st.Graph)
	printApplySummary(report, time.Since(start))

	return errors.Join(applyErr, st.Err())
}

// kubeconfigPath returns flag, $KUBECONFIG's first entry, or ~/.kube/config.
func kubeconfigPath(flag string) string {
	if flag != "" {
		return flag
	}
	rules := clientcmd.NewDefaultClientConfigLoadingRules()
	if len(rules.Precedence) > 0 {
		return rules.Precedence[0]
	}
	return clientcmd.RecommendedHomeFile
}

func printApplySummary(report engine.Report, elapsed time.Duration) {
	fmt.Fprintf(stdout, "\nApplied %d, failed %d, skipped %d in %s\n",
		report.Count(engine.StatusApplied),
		report.Count(engine.StatusFailed),
		report.Count(engine.StatusSkipped),
		elapsed.Round(time.Second))
	for _, r := range report.Results {
		if r.Status == engine.StatusApplied {
			continue
		}
		fmt.Fprintf(stdout, "  %-8s %s: %v\n", r.Status, r.Ref.ID, r.Err)
	}
}
