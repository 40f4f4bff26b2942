package engine

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/bianoble/prebundle/internal/bundler"
	"github.com/bianoble/prebundle/internal/cache"
	"github.com/bianoble/prebundle/internal/config"
	"github.com/bianoble/prebundle/internal/federation"
	"github.com/bianoble/prebundle/internal/hash"
	"github.com/bianoble/prebundle/internal/host"
	"github.com/bianoble/prebundle/internal/metadata"
	"github.com/bianoble/prebundle/internal/resolve"
	"github.com/bianoble/prebundle/internal/sandbox"
	"github.com/bianoble/prebundle/internal/scan"
	"github.com/rs/zerolog"
)

// EntryScanner enumerates the entry modules of the application.
type EntryScanner interface {
	Scan(cfg *config.Config) ([]string, error)
}

// DependencyResolver computes the dependency set of the entries.
type DependencyResolver interface {
	Resolve(ctx context.Context, entries, include, exclude []string) (resolve.DependencySet, error)
}

// DependencyBundler compiles the dependency set into flattened chunks.
type DependencyBundler interface {
	Bundle(ctx context.Context, appRoot string, deps resolve.DependencySet, rc config.Resolve, outDir string, custom config.Esbuild) (bundler.Manifest, error)
}

// RemotePackager builds the federation remote.
type RemotePackager interface {
	Package(ctx context.Context, expose federation.ExposeMap, provide federation.ProvideMap, out federation.OutputConfig) (*federation.Result, error)
}

// PrebundleEngine orchestrates the prebundle pipeline.
type PrebundleEngine struct {
	AppRoot  string
	Scanner  EntryScanner
	Resolver DependencyResolver
	Bundler  DependencyBundler
	Packager RemotePackager
	Logger   zerolog.Logger
}

// RunOptions configures a prebundle run.
type RunOptions struct {
	Env config.Env

	// Force ignores the previous metadata record.
	Force bool

	// ProvideTransforms run after the configured provide map, in order.
	ProvideTransforms []federation.ProvideTransform

	// HostConfig is wired in place when set.
	HostConfig *host.BuildConfig
}

// New returns an engine backed by esbuild.
func New(appRoot string, cfg *config.Config, logger zerolog.Logger) *PrebundleEngine {
	compiler := bundler.NewESBuild(logger)
	return &PrebundleEngine{
		AppRoot: appRoot,
		Scanner: scan.New(appRoot, cfg.Resolve.Extensions),
		Resolver: resolve.New(resolve.Options{
			AppRoot:    appRoot,
			Alias:      cfg.Resolve.Alias,
			MainFields: cfg.Resolve.MainFields,
			Conditions: cfg.Resolve.Conditions,
			Extensions: cfg.Resolve.Extensions,
			Platform:   cfg.Esbuild.Platform,
		}, logger),
		Bundler:  bundler.NewAdapter(compiler, logger),
		Packager: federation.NewPackager(compiler, logger),
		Logger:   logger,
	}
}

// Run executes the pipeline. The previous metadata record is read once at
// the start and the full new record is saved only after every step
// succeeded. Before a stage rewrites its cache directory the on-disk record
// is narrowed to what remains valid, so a failed run never leaves a hash
// that vouches for deleted files.
func (e *PrebundleEngine) Run(ctx context.Context, cfg *config.Config, opts RunOptions) (*RunResult, error) {
	start := time.Now()
	layout := cache.NewLayout(config.Abs(e.AppRoot, cfg.CacheDir))
	if err := layout.EnsureDirs(); err != nil {
		return nil, err
	}

	recorded, err := metadata.LoadSnapshot(layout.Metadata)
	if err != nil {
		if !opts.Force {
			return nil, err
		}
		recorded = &metadata.Metadata{Version: metadata.CurrentVersion}
	}
	pre := recorded
	if opts.Force {
		pre = &metadata.Metadata{Version: metadata.CurrentVersion}
	}
	next := &metadata.Metadata{Version: metadata.CurrentVersion}
	result := &RunResult{}

	entries, err := e.Scanner.Scan(cfg)
	if err != nil {
		return nil, fmt.Errorf("scanning entries: %w", err)
	}
	e.Logger.Debug().Int("entries", len(entries)).Msg("Scanned entries")

	exclude := cfg.ForceExclude()
	deps, err := e.Resolver.Resolve(ctx, entries, cfg.ForceInclude(), exclude)
	if err != nil {
		return nil, fmt.Errorf("resolving dependencies: %w", err)
	}
	result.Deps = deps.IDs()

	// Stage 1: fast bundle.
	stageStart := time.Now()
	custom := cfg.Esbuild
	custom.External = append(append([]string(nil), cfg.Esbuild.External...), exclude...)

	next.BundleHash, err = hash.Stage1(ctx, e.AppRoot, deps, bundlerKey(cfg, custom))
	if err != nil {
		return nil, fmt.Errorf("hashing dependencies: %w", err)
	}

	if pre.BundleHash == next.BundleHash && pre.RuntimeChunkPath != "" &&
		isFile(config.Abs(e.AppRoot, filepath.FromSlash(pre.RuntimeChunkPath))) {
		next.RuntimeChunkPath = pre.RuntimeChunkPath
		result.Bundle = StageCached
	} else {
		if pre.BundleHash == next.BundleHash && pre.RuntimeChunkPath != "" {
			e.Logger.Warn().Str("chunk", pre.RuntimeChunkPath).Msg("Cached runtime chunk is missing, rebuilding")
		}
		recorded, err = checkpoint(layout.Metadata, recorded, &metadata.Metadata{Version: metadata.CurrentVersion})
		if err != nil {
			return nil, err
		}
		manifest, err := e.Bundler.Bundle(ctx, e.AppRoot, deps, cfg.Resolve, layout.Prebundle, custom)
		if err != nil {
			return nil, err
		}
		chunk, err := bundler.LocateRuntimeChunk(manifest, bundler.EntryID(cfg.Runtime.Package), cfg.Runtime.Symbol)
		if err != nil {
			return nil, err
		}
		next.RuntimeChunkPath = chunk
		result.Bundle = StageRebuilt
	}
	e.Logger.Info().Str("stage", string(result.Bundle)).Dur("took", time.Since(stageStart)).Msg("Prebundle duration")

	// Stage 2: federation remote.
	stageStart = time.Now()
	transforms := append([]federation.ProvideTransform{federation.ConfigProvide(cfg.Provide)}, opts.ProvideTransforms...)
	provide := federation.ApplyProvide(next.RuntimeChunkPath, transforms...)

	remoteRel, err := e.relative(layout.Remote)
	if err != nil {
		return nil, err
	}
	next.MFHash, err = hash.Stage2(hash.FederationKey{
		BundleHash: next.BundleHash,
		Mode:       string(opts.Env.Mode),
		SourceMap:  opts.Env.SourceMapEnabled,
		Output: hash.OutputKey{
			Path:               remoteRel,
			ChunkLoadingGlobal: cfg.Output.ChunkLoadingGlobal,
			GlobalObject:       cfg.Output.GlobalObject,
		},
		RuntimeChunkPath: next.RuntimeChunkPath,
		Provide:          provide.Pairs(),
	})
	if err != nil {
		return nil, err
	}

	if pre.MFHash == next.MFHash && remoteComplete(layout.Remote, pre.RemoteAssets) {
		reused := pre.Clone()
		next.RemoteAssets = reused.RemoteAssets
		next.RuntimeRequirements = reused.RuntimeRequirements
		result.Remote = StageCached
	} else {
		if pre.MFHash == next.MFHash {
			e.Logger.Warn().Str("dir", layout.Remote).Msg("Cached remote is incomplete, rebuilding")
		}
		_, err = checkpoint(layout.Metadata, recorded, &metadata.Metadata{
			Version:          metadata.CurrentVersion,
			BundleHash:       next.BundleHash,
			RuntimeChunkPath: next.RuntimeChunkPath,
		})
		if err != nil {
			return nil, err
		}
		packaged, err := e.Packager.Package(ctx, federation.NewExposeMap(deps, layout.Prebundle), provide, federation.OutputConfig{
			AppRoot:            e.AppRoot,
			Path:               layout.Remote,
			ShimDir:            layout.Shim,
			Name:               cfg.FederationName,
			ChunkLoadingGlobal: cfg.Output.ChunkLoadingGlobal,
			GlobalObject:       cfg.Output.GlobalObject,
			Mode:               opts.Env.Mode,
			SourceMap:          opts.Env.SourceMapEnabled,
			Target:             cfg.Esbuild.Target,
			Platform:           cfg.Esbuild.Platform,
		})
		if err != nil {
			return nil, err
		}
		next.RemoteAssets = packaged.RemoteAssets
		next.RuntimeRequirements = packaged.RuntimeRequirements
		result.Remote = StageRebuilt
	}

	outRoot := config.Abs(e.AppRoot, cfg.Output.Path)
	if err := sandbox.RemoveAll(outRoot, federation.AssetPrefix); err != nil {
		return nil, fmt.Errorf("clearing output: %w", err)
	}
	if _, err := sandbox.CopyDir(layout.Remote, outRoot, federation.AssetPrefix); err != nil {
		return nil, fmt.Errorf("copying remote to output: %w", err)
	}
	e.Logger.Info().
		Str("stage", string(result.Remote)).
		Dur("took", time.Since(stageStart)).
		Msgf("Build remote %s duration", cfg.FederationName)

	// Host wiring.
	hc := opts.HostConfig
	if hc == nil {
		hc = &host.BuildConfig{}
	}
	host.Wire(hc, cfg.FederationName, deps, next.RemoteAssets, next.RuntimeRequirements)
	host.Provide(hc, provide)
	hostRel := filepath.Join(federation.AssetPrefix, host.ConfigFile)
	if err := host.Write(outRoot, hostRel, hc); err != nil {
		return nil, err
	}

	if err := metadata.Save(layout.Metadata, next); err != nil {
		return nil, fmt.Errorf("saving metadata: %w", err)
	}

	result.BundleHash = next.BundleHash
	result.MFHash = next.MFHash
	result.RuntimeChunkPath = next.RuntimeChunkPath
	result.Provide = provide
	result.RemoteAssets = next.RemoteAssets
	result.RuntimeRequirements = next.RuntimeRequirements
	result.OutputDir = filepath.Join(outRoot, federation.AssetPrefix)
	result.HostConfigPath = filepath.Join(outRoot, hostRel)
	result.Duration = time.Since(start)
	return result, nil
}

// relative returns p relative to the app root, slash separated, so that
// cache keys do not depend on where the app is checked out.
func (e *PrebundleEngine) relative(p string) (string, error) {
	rel, err := filepath.Rel(e.AppRoot, p)
	if err != nil {
		return "", fmt.Errorf("relativizing %s: %w", p, err)
	}
	return filepath.ToSlash(rel), nil
}

// checkpoint saves m unless the record on disk already describes the same
// stage state, and returns the record now on disk.
func checkpoint(path string, recorded, m *metadata.Metadata) (*metadata.Metadata, error) {
	if recorded.BundleHash == m.BundleHash && recorded.MFHash == m.MFHash && recorded.RuntimeChunkPath == m.RuntimeChunkPath {
		return recorded, nil
	}
	if err := metadata.Save(path, m); err != nil {
		return nil, fmt.Errorf("saving metadata: %w", err)
	}
	return m, nil
}

// remoteComplete reports whether every recorded asset is still in the
// cached remote directory.
func remoteComplete(dir string, assets []metadata.RemoteAsset) bool {
	if len(assets) == 0 {
		return false
	}
	for _, a := range assets {
		if !isFile(remoteFile(dir, a.Name)) {
			return false
		}
	}
	return true
}

func bundlerKey(cfg *config.Config, custom config.Esbuild) hash.BundlerKey {
	return hash.BundlerKey{
		Target:     custom.Target,
		Platform:   custom.Platform,
		Format:     "esm",
		Minify:     custom.Minify,
		Define:     custom.Define,
		Alias:      cfg.Resolve.Alias,
		MainFields: cfg.Resolve.MainFields,
		Conditions: cfg.Resolve.Conditions,
		Extensions: cfg.Resolve.Extensions,
		External:   custom.External,
		ChunkNames: custom.ChunkNames,
	}
}
