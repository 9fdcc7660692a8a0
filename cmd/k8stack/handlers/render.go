package handlers

import (
	"context"
	"fmt"
	"os"

	"github.com/imamik/k8stack/internal/render"
)

// writeFile writes data to a file (for testing injection).
var writeFile = os.WriteFile

// Render assembles the stack, fetching artifacts, and prints its manifests
// in apply order. Secret values are rendered only with includeSecrets.
func Render(ctx context.Context, opts Options, outputPath string, includeSecrets bool) error {
	sess, err := openSession(opts)
	if err != nil {
		return err
	}
	defer sess.exportMetrics()

	st, err := sess.assemble(ctx, false)
	if err != nil {
		return err
	}

	r := render.New(render.Options{IncludeSecrets: includeSecrets, Log: sess.log.WithName("render")})
	out, err := r.Graph(ctx, st.Graph)
	if err != nil {
		return fmt.Errorf("failed to render stack: %w", err)
	}

	if outputPath == "" {
		if _, err := stdout.Write(out); err != nil {
			return err
		}
	} else {
		if err := writeFile(outputPath, out, 0o600); err != nil {
			return fmt.Errorf("failed to write manifests: %w", err)
		}
		sess.log.Info("manifests written", "path", outputPath, "nodes", st.Graph.Len())
	}

	if err := st.Err(); err != nil {
		return fmt.Errorf("%d component(s) failed: %w", len(st.Failures), err)
	}
	return nil
}
