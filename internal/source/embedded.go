package source

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
)

// Embedded fetches repositories in-process with go-git, for hosts without
// a git client on PATH.
type Embedded struct {
	// Progress receives the remote's sideband output.
	Progress io.Writer
}

// Cloned reports whether dest opens as a git repository.
func (e *Embedded) Cloned(dest string) bool {
	_, err := git.PlainOpen(dest)
	return err == nil
}

func (e *Embedded) Fetch(ctx context.Context, repo, ref, dest string) error {
	if repo == "" {
		return fetchError(dest, fmt.Errorf("repo is required"), "set 'repo' on the unit or give it an explicit 'dir'")
	}
	if e.Cloned(dest) {
		return nil
	}

	if ref == "" {
		if _, err := git.PlainCloneContext(ctx, dest, false, &git.CloneOptions{URL: repo, Progress: e.Progress}); err != nil {
			return fetchError(repo, err, "check repo URL and authentication")
		}
		return nil
	}

	for _, name := range []plumbing.ReferenceName{
		plumbing.NewBranchReferenceName(ref),
		plumbing.NewTagReferenceName(ref),
	} {
		_, err := git.PlainCloneContext(ctx, dest, false, &git.CloneOptions{
			URL:           repo,
			ReferenceName: name,
			SingleBranch:  true,
			Progress:      e.Progress,
		})
		if err == nil {
			return nil
		}
		if !isMissingRef(err) {
			return fetchError(repo, err, "check repo URL and authentication")
		}
		if cleanErr := resetDir(dest); cleanErr != nil {
			return fetchError(repo, cleanErr, "")
		}
	}

	// Not a branch or tag: treat ref as a commit.
	r, err := git.PlainCloneContext(ctx, dest, false, &git.CloneOptions{URL: repo, NoCheckout: true, Progress: e.Progress})
	if err != nil {
		return fetchError(repo, err, "check repo URL and authentication")
	}
	hash, err := r.ResolveRevision(plumbing.Revision(ref))
	if err != nil {
		return fetchError(repo, fmt.Errorf("resolving %s: %w", ref, err), "check that the ref exists")
	}
	wt, err := r.Worktree()
	if err != nil {
		return fetchError(repo, err, "")
	}
	if err := wt.Checkout(&git.CheckoutOptions{Hash: *hash, Force: true}); err != nil {
		return fetchError(repo, fmt.Errorf("checkout %s: %w", ref, err), "")
	}
	return nil
}

func isMissingRef(err error) bool {
	var nf git.NoMatchingRefSpecError
	return errors.Is(err, plumbing.ErrReferenceNotFound) ||
		errors.As(err, &nf) ||
		strings.Contains(err.Error(), "couldn't find remote ref")
}
