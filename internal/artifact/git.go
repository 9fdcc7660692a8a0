package artifact

import (
	"context"
	"fmt"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
)

// cloneGit clones repoURL into dir and checks out ref, which may name a
// tag, a branch, or a commit.
func cloneGit(ctx context.Context, repoURL, ref, dir string) error {
	r, err := git.PlainCloneContext(ctx, dir, false, &git.CloneOptions{
		URL:  repoURL,
		Tags: git.AllTags,
	})
	if err != nil {
		return fmt.Errorf("failed to clone %s: %w", repoURL, err)
	}
	if ref == "" || ref == "HEAD" {
		return nil
	}

	hash, err := r.ResolveRevision(plumbing.Revision(ref))
	if err != nil {
		// non-default branches only exist as remote-tracking refs
		hash, err = r.ResolveRevision(plumbing.Revision("origin/" + ref))
		if err != nil {
			return fmt.Errorf("failed to resolve ref %q in %s: %w", ref, repoURL, err)
		}
	}

	wt, err := r.Worktree()
	if err != nil {
		return fmt.Errorf("failed to open worktree: %w", err)
	}
	if err := wt.Checkout(&git.CheckoutOptions{Hash: *hash, Force: true}); err != nil {
		return fmt.Errorf("failed to check out %s: %w", ref, err)
	}
	return nil
}
