package source

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/bianoble/hostpatch/internal/sandbox"
)

// GitCLI fetches repositories with the git command-line client.
type GitCLI struct {
	Exec Executor
}

// Cloned reports whether dest has a .git entry.
func (g *GitCLI) Cloned(dest string) bool {
	_, err := os.Stat(filepath.Join(dest, ".git"))
	return err == nil
}

func (g *GitCLI) Fetch(ctx context.Context, repo, ref, dest string) error {
	if repo == "" {
		return fetchError(dest, fmt.Errorf("repo is required"), "set 'repo' on the unit or give it an explicit 'dir'")
	}
	if g.Cloned(dest) {
		return nil
	}
	if g.Exec == nil {
		return fetchError(repo, fmt.Errorf("no executor configured"), "")
	}

	if ref == "" {
		if err := g.Exec.Run(ctx, "", []string{"git", "clone", repo, dest}); err != nil {
			return fetchError(repo, err, "check repo URL and authentication")
		}
		return nil
	}

	err := g.Exec.Run(ctx, "", []string{"git", "clone", "--branch", ref, "--single-branch", repo, dest})
	if err == nil {
		return nil
	}

	// --branch only takes branches and tags; fall back to a full clone for commits.
	if cleanErr := resetDir(dest); cleanErr != nil {
		return fetchError(repo, cleanErr, "")
	}
	if err2 := g.Exec.Run(ctx, "", []string{"git", "clone", "--no-checkout", repo, dest}); err2 != nil {
		return fetchError(repo, fmt.Errorf("git clone failed: %w", err), "check repo URL, ref, and authentication")
	}
	if err3 := g.Exec.Run(ctx, dest, []string{"git", "checkout", ref}); err3 != nil {
		return fetchError(repo, fmt.Errorf("git checkout %s failed: %w", ref, err3), "check that the ref exists")
	}
	return nil
}

func resetDir(dir string) error {
	if err := sandbox.RemoveTree(dir); err != nil {
		return err
	}
	return os.MkdirAll(dir, 0755)
}
