package source

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
)

// ErrFetchFailed marks every failed fetch.
var ErrFetchFailed = errors.New("fetch failed")

// Fetcher materializes a remote repository into a local directory.
type Fetcher interface {
	// Fetch clones repo into dest, checking out ref when it is not empty.
	// It is a no-op when dest already holds VCS metadata.
	Fetch(ctx context.Context, repo, ref, dest string) error

	// Cloned reports whether dest already holds VCS metadata.
	Cloned(dest string) bool
}

// Executor runs a structured command in a directory.
type Executor interface {
	Run(ctx context.Context, dir string, argv []string) error
}

// SourceError represents an error associated with a specific source operation.
type SourceError struct {
	Source    string
	Operation string
	Err       error
	Hint      string
}

func (e *SourceError) Error() string {
	msg := fmt.Sprintf("%s: %s failed: %s", e.Source, e.Operation, e.Err)
	if e.Hint != "" {
		msg += " — " + e.Hint
	}
	return msg
}

func (e *SourceError) Unwrap() error {
	return e.Err
}

// Is matches ErrFetchFailed for fetch operations.
func (e *SourceError) Is(target error) bool {
	return target == ErrFetchFailed && e.Operation == "fetch"
}

func fetchError(repo string, err error, hint string) error {
	return &SourceError{Source: repo, Operation: "fetch", Err: err, Hint: hint}
}

// Registry maps fetcher backend names to Fetcher implementations.
type Registry struct {
	fetchers map[string]Fetcher
}

// NewRegistry creates a new empty fetcher registry.
func NewRegistry() *Registry {
	return &Registry{fetchers: make(map[string]Fetcher)}
}

// Register adds a fetcher for the given backend name.
func (r *Registry) Register(name string, f Fetcher) {
	r.fetchers[name] = f
}

// Get returns the fetcher for the given backend name.
func (r *Registry) Get(name string) (Fetcher, error) {
	f, ok := r.fetchers[name]
	if !ok {
		return nil, fmt.Errorf("unknown fetcher '%s' — supported fetchers: %s", name, r.supported())
	}
	return f, nil
}

func (r *Registry) supported() string {
	names := make([]string, 0, len(r.fetchers))
	for n := range r.fetchers {
		names = append(names, n)
	}
	if len(names) == 0 {
		return "(none registered)"
	}
	sort.Strings(names)
	return strings.Join(names, ", ")
}

// RepoName derives a directory name from a repository locator, e.g.
// "git@github.com:ethereum/py-evm.git" -> "py-evm".
func RepoName(repo string) string {
	s := strings.TrimRight(strings.TrimSpace(repo), `/\`)
	s = strings.TrimSuffix(s, ".git")
	if i := strings.LastIndexAny(s, `/\:`); i >= 0 {
		s = s[i+1:]
	}
	return s
}
