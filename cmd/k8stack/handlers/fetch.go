package handlers

import (
	"context"
	"fmt"
)

// Fetch downloads every artifact the stack needs into the cache.
func Fetch(ctx context.Context, opts Options) error {
	sess, err := openSession(opts)
	if err != nil {
		return err
	}
	defer sess.exportMetrics()

	st, err := sess.assemble(ctx, false)
	if err != nil {
		return err
	}

	var cached, downloaded int
	for _, inst := range st.Instances {
		for _, a := range inst.Artifacts {
			state := "downloaded"
			if a.Cached {
				state = "cached"
				cached++
			} else {
				downloaded++
			}
			location := a.Path
			if location == "" {
				location = a.ManifestLocation()
			}
			fmt.Fprintf(stdout, "%-24s %-10s %s\n", inst.Name, state, location)
		}
	}
	fmt.Fprintf(stdout, "\n%d artifact(s): %d downloaded, %d cached (cache: %s)\n",
		cached+downloaded, downloaded, cached, sess.defaults.CacheDir)

	if err := st.Err(); err != nil {
		return fmt.Errorf("%d component(s) failed: %w", len(st.Failures), err)
	}
	return nil
}
