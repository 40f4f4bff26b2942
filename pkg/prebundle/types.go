package prebundle

import (
	"github.com/bianoble/prebundle/internal/bundler"
	"github.com/bianoble/prebundle/internal/config"
	"github.com/bianoble/prebundle/internal/engine"
	"github.com/bianoble/prebundle/internal/federation"
	"github.com/bianoble/prebundle/internal/host"
	"github.com/bianoble/prebundle/internal/metadata"
	"github.com/bianoble/prebundle/internal/resolve"
)

// Type aliases re-export engine types as the public API.
// Users import "github.com/bianoble/prebundle/pkg/prebundle" and use
// prebundle.RunResult, prebundle.ProvideMap, etc.

type Config = config.Config
type Env = config.Env
type Mode = config.Mode

const (
	ModeProduction  = config.ModeProduction
	ModeDevelopment = config.ModeDevelopment
)

type RunOptions = engine.RunOptions
type RunResult = engine.RunResult
type StageOutcome = engine.StageOutcome
type StatusResult = engine.StatusResult
type CacheState = engine.CacheState
type CleanOptions = engine.CleanOptions
type CleanResult = engine.CleanResult
type InfoResult = engine.InfoResult

type Metadata = metadata.Metadata
type RemoteAsset = metadata.RemoteAsset

type ProvideMap = federation.ProvideMap
type ProvideTarget = federation.ProvideTarget
type ProvideTransform = federation.ProvideTransform

type HostBuildConfig = host.BuildConfig

// Errors returned by Run. All of them are fatal to the run and leave the
// previous metadata record in place.
type ResolutionError = resolve.ResolutionError
type BundleCompileError = bundler.BundleCompileError
type RuntimeChunkNotFoundError = bundler.RuntimeChunkNotFoundError
type FederationBuildError = federation.FederationBuildError
type ConfigValidationError = config.ValidationError
