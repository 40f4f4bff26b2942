package federation

import (
	"context"
	"errors"
	"fmt"
	"path"
	"path/filepath"
	"sort"
	"strings"

	"github.com/bianoble/prebundle/internal/bundler"
	"github.com/bianoble/prebundle/internal/cache"
	"github.com/bianoble/prebundle/internal/config"
	"github.com/bianoble/prebundle/internal/metadata"
	"github.com/bianoble/prebundle/internal/sandbox"
	"github.com/rs/zerolog"
)

// RemoteEntryFile is the file name the host loads the container from.
const RemoteEntryFile = remoteEntryShim

// AssetPrefix is the path of the remote inside the primary build output.
const AssetPrefix = "prebundle"

// Runtime requirement flags reported to the host.
const (
	ReqEnsureChunk           = "ensureChunk"
	ReqRequire               = "require"
	ReqDefinePropertyGetters = "definePropertyGetters"
	ReqGlobal                = "global"
	ReqHasOwnProperty        = "hasOwnProperty"
)

// OutputConfig describes where and how the remote is built.
type OutputConfig struct {
	AppRoot            string
	Path               string // remote output directory
	ShimDir            string // generated container modules
	Name               string // federation name
	ChunkLoadingGlobal string
	GlobalObject       string
	Mode               config.Mode
	SourceMap          bool
	Target             string
	Platform           string
}

// Result is what the host needs to consume the remote.
type Result struct {
	RemoteAssets        []metadata.RemoteAsset
	RuntimeRequirements []string
}

// FederationBuildError reports a failed remote build.
type FederationBuildError struct {
	Diagnostics []string
	Err         error
}

func (e *FederationBuildError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("building remote failed: %v", e.Err)
	}
	return "building remote failed: " + strings.Join(e.Diagnostics, "; ")
}

func (e *FederationBuildError) Unwrap() error {
	return e.Err
}

// Packager builds the remote container.
type Packager struct {
	compiler bundler.Compiler
	logger   zerolog.Logger
}

// NewPackager creates a packager around compiler.
func NewPackager(compiler bundler.Compiler, logger zerolog.Logger) *Packager {
	return &Packager{compiler: compiler, logger: logger}
}

// Package clears the remote output directory and builds a container
// exposing every module of expose, with provide's globals substituted.
func (p *Packager) Package(ctx context.Context, expose ExposeMap, provide ProvideMap, out OutputConfig) (*Result, error) {
	if err := cache.EmptyDir(out.Path); err != nil {
		return nil, err
	}
	if err := cache.EmptyDir(out.ShimDir); err != nil {
		return nil, err
	}

	inject, err := p.writeShims(expose, provide, out)
	if err != nil {
		return nil, err
	}

	entries := []bundler.Entry{
		{Name: "remoteEntry", Path: filepath.Join(out.ShimDir, remoteEntryShim)},
		{Name: "runtime", Path: filepath.Join(out.ShimDir, runtimeShim)},
	}
	for _, name := range expose.Names() {
		entries = append(entries, bundler.Entry{
			Name: bundler.FlattenID(strings.TrimPrefix(name, "./")),
			Path: expose[name],
		})
	}

	manifest, err := p.compiler.Compile(ctx, bundler.Request{
		AppRoot: out.AppRoot,
		OutDir:  out.Path,
		Entries: entries,
		Options: bundler.Options{
			Format:     "esm",
			Splitting:  true,
			Target:     out.Target,
			Platform:   out.Platform,
			Minify:     out.Mode == config.ModeProduction,
			SourceMap:  out.SourceMap,
			Inject:     inject,
			ChunkNames: "chunk-[hash]",
		},
	})
	if err != nil {
		var cerr *bundler.CompileError
		if errors.As(err, &cerr) {
			return nil, &FederationBuildError{Diagnostics: cerr.Diagnostics}
		}
		return nil, &FederationBuildError{Err: err}
	}

	assets, err := remoteAssets(out.Path)
	if err != nil {
		return nil, fmt.Errorf("listing remote assets: %w", err)
	}

	result := &Result{
		RemoteAssets:        assets,
		RuntimeRequirements: runtimeRequirements(manifest, len(expose) > 0),
	}
	p.logger.Debug().
		Int("exposes", len(expose)).
		Int("assets", len(result.RemoteAssets)).
		Strs("requirements", result.RuntimeRequirements).
		Msg("Packaged remote")
	return result, nil
}

// writeShims writes the container modules and returns the inject list.
func (p *Packager) writeShims(expose ExposeMap, provide ProvideMap, out OutputConfig) ([]string, error) {
	files := map[string]string{
		runtimeShim:     runtimeSource(out.GlobalObject, out.ChunkLoadingGlobal),
		remoteEntryShim: remoteEntrySource(out.Name, expose),
	}

	var inject []string
	if len(provide) > 0 {
		paths := make(map[string]string)
		for _, t := range provide {
			paths[t.Path] = filepath.ToSlash(config.Abs(out.AppRoot, t.Path))
		}
		files[provideShim] = provideSource(provide, paths)
		inject = append(inject, filepath.Join(out.ShimDir, provideShim))
	}

	for name, content := range files {
		if err := sandbox.WriteFile(out.ShimDir, name, []byte(content), 0o644); err != nil {
			return nil, fmt.Errorf("writing %s: %w", name, err)
		}
	}
	return inject, nil
}

// remoteAssets lists every file of the remote except the bootstrap
// runtime, named as the host sees it inside its output directory.
func remoteAssets(dir string) ([]metadata.RemoteAsset, error) {
	files, err := cache.ListFiles(dir)
	if err != nil {
		return nil, err
	}

	assets := []metadata.RemoteAsset{}
	for _, f := range files {
		if f == runtimeShim {
			continue
		}
		assets = append(assets, metadata.RemoteAsset{Name: path.Join(AssetPrefix, f)})
	}
	return assets, nil
}

// runtimeRequirements derives the capability flags the exposed code needs
// from the remote's output manifest.
func runtimeRequirements(m bundler.Manifest, exposed bool) []string {
	set := make(map[string]bool)
	if exposed {
		set[ReqHasOwnProperty] = true
	}
	for _, c := range m {
		if len(c.Exports) > 0 {
			set[ReqDefinePropertyGetters] = true
		}
		if c.UsesGlobalThis {
			set[ReqGlobal] = true
		}
		for _, imp := range c.Imports {
			switch imp.Kind {
			case bundler.KindDynamicImport:
				set[ReqEnsureChunk] = true
			case bundler.KindRequireCall:
				set[ReqRequire] = true
			}
		}
	}

	reqs := make([]string, 0, len(set))
	for r := range set {
		reqs = append(reqs, r)
	}
	sort.Strings(reqs)
	return reqs
}
