// Package installer drives the host package manager.
package installer

import (
	"context"
	"errors"
	"fmt"
	"slices"
)

// ErrInstallFailed marks every package-manager failure.
var ErrInstallFailed = errors.New("install failed")

// DefaultCommand is the package-manager invocation prefix.
var DefaultCommand = []string{"python", "-m", "pip", "install"}

// Executor runs a structured command in a directory.
type Executor interface {
	Run(ctx context.Context, dir string, argv []string) error
}

// Installer installs patched trees, extra packages and requirement manifests.
type Installer interface {
	InstallFrom(ctx context.Context, dir string) error
	InstallPackages(ctx context.Context, pkgs []string) error
	InstallFromManifest(ctx context.Context, manifest string) error
}

// InstallError reports a failed package-manager invocation.
type InstallError struct {
	Target string
	Err    error
}

func (e *InstallError) Error() string {
	return fmt.Sprintf("installing %s: %s: %v", e.Target, ErrInstallFailed, e.Err)
}

func (e *InstallError) Unwrap() []error {
	return []error{ErrInstallFailed, e.Err}
}

// PackageManager implements Installer on top of a command prefix such as
// "python -m pip install".
type PackageManager struct {
	Command []string
	Exec    Executor
	// Dir is where manifest installs run. Empty means the current directory.
	Dir string
}

// InstallFrom installs the tree at dir.
func (p *PackageManager) InstallFrom(ctx context.Context, dir string) error {
	return p.run(ctx, dir, dir, dir)
}

// InstallPackages installs each package argument from p.Dir, so relative
// wheel paths resolve against the project root rather than a unit's tree.
func (p *PackageManager) InstallPackages(ctx context.Context, pkgs []string) error {
	for _, pkg := range pkgs {
		if err := p.run(ctx, pkg, p.Dir, pkg); err != nil {
			return err
		}
	}
	return nil
}

// InstallFromManifest installs a requirements manifest.
func (p *PackageManager) InstallFromManifest(ctx context.Context, manifest string) error {
	return p.run(ctx, manifest, p.Dir, "-r", manifest)
}

func (p *PackageManager) run(ctx context.Context, target, dir string, args ...string) error {
	if p.Exec == nil {
		return &InstallError{Target: target, Err: errors.New("no executor configured")}
	}
	command := p.Command
	if len(command) == 0 {
		command = DefaultCommand
	}
	argv := append(slices.Clone(command), args...)
	if err := p.Exec.Run(ctx, dir, argv); err != nil {
		return &InstallError{Target: target, Err: err}
	}
	return nil
}
