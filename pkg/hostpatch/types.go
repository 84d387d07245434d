package hostpatch

import (
	"github.com/bianoble/hostpatch/internal/config"
	"github.com/bianoble/hostpatch/internal/engine"
	"github.com/bianoble/hostpatch/internal/installer"
	"github.com/bianoble/hostpatch/internal/source"
)

// Type aliases re-export engine and config types as the public API.
// Users import "github.com/bianoble/hostpatch/pkg/hostpatch" and use
// hostpatch.RunResult, hostpatch.UnitStatus, etc.

type Table = config.Config
type Unit = config.Unit
type ConfigLayer = config.ConfigLayerInfo
type ValidationError = config.ValidationError
type RunResult = engine.RunResult
type PlanStep = engine.PlanStep
type UnitStatus = engine.UnitStatus
type UnitError = engine.UnitError
type InfoResult = engine.InfoResult
type Fetcher = source.Fetcher
type Installer = installer.Installer

// Error sentinels, matched with errors.Is.
var (
	ErrFetchFailed   = source.ErrFetchFailed
	ErrInstallFailed = installer.ErrInstallFailed
	ErrInvalidState  = engine.ErrInvalidState
)
