package engine

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/bianoble/prebundle/internal/bundler"
	"github.com/bianoble/prebundle/internal/cache"
	"github.com/bianoble/prebundle/internal/config"
	"github.com/bianoble/prebundle/internal/federation"
	"github.com/bianoble/prebundle/internal/host"
	"github.com/bianoble/prebundle/internal/metadata"
	"github.com/bianoble/prebundle/internal/resolve"
	"github.com/bianoble/prebundle/internal/scan"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const runtimeChunk = "node_modules/.prebundle/prebundle/chunk-RT.js"

type fakeResolver struct {
	deps    resolve.DependencySet
	include []string
	exclude []string
}

func (f *fakeResolver) Resolve(_ context.Context, _, include, exclude []string) (resolve.DependencySet, error) {
	f.include, f.exclude = include, exclude
	return f.deps, nil
}

type fakeBundler struct {
	calls    int
	external []string
	err      error
}

func (f *fakeBundler) Bundle(_ context.Context, appRoot string, _ resolve.DependencySet, _ config.Resolve, outDir string, custom config.Esbuild) (bundler.Manifest, error) {
	f.calls++
	f.external = custom.External
	if f.err != nil {
		return nil, f.err
	}
	for _, name := range []string{"@tarojs_runtime.js", "chunk-RT.js", "lodash.js"} {
		if err := os.WriteFile(filepath.Join(outDir, name), []byte("// "+name), 0o644); err != nil {
			return nil, err
		}
	}
	return bundler.Manifest{
		"node_modules/.prebundle/prebundle/@tarojs_runtime.js": {
			EntryPoint: "entry:@tarojs_runtime",
			Exports:    []string{"TaroRootElement"},
			Imports:    []bundler.Import{{Path: runtimeChunk, Kind: bundler.KindImportStatement}},
		},
		runtimeChunk: {Exports: []string{"TaroRootElement", "window$1"}},
		"node_modules/.prebundle/prebundle/lodash.js": {EntryPoint: "entry:lodash"},
	}, nil
}

type fakePackager struct {
	calls    int
	err      error
	assets   []metadata.RemoteAsset
	reqs     []string
	provides []federation.ProvideMap
	exposes  []federation.ExposeMap
}

func (f *fakePackager) Package(_ context.Context, expose federation.ExposeMap, provide federation.ProvideMap, out federation.OutputConfig) (*federation.Result, error) {
	f.calls++
	f.provides = append(f.provides, provide)
	f.exposes = append(f.exposes, expose)
	if err := cache.EmptyDir(out.Path); err != nil {
		return nil, err
	}
	if f.err != nil {
		return nil, f.err
	}
	for _, a := range f.assets {
		p := filepath.Join(out.Path, filepath.Base(a.Name))
		if err := os.WriteFile(p, []byte("// "+a.Name), 0o644); err != nil {
			return nil, err
		}
	}
	return &federation.Result{
		RemoteAssets:        append([]metadata.RemoteAsset(nil), f.assets...),
		RuntimeRequirements: append([]string(nil), f.reqs...),
	}, nil
}

type fixture struct {
	root     string
	cfg      *config.Config
	resolver *fakeResolver
	bundler  *fakeBundler
	packager *fakePackager
	engine   *PrebundleEngine
}

func writeFile(t *testing.T, root, rel, content string) string {
	t.Helper()

	p := filepath.Join(root, filepath.FromSlash(rel))
	require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o755))
	require.NoError(t, os.WriteFile(p, []byte(content), 0o644))
	return p
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	root := t.TempDir()
	writeFile(t, root, "src/app.js", `import _ from "lodash";`)
	lodash := writeFile(t, root, "node_modules/lodash/lodash.js", "module.exports = {};\n")
	rt := writeFile(t, root, "node_modules/@tarojs/runtime/index.js", "export class TaroRootElement {}\n")

	cfg := &config.Config{
		Version: 1,
		Entry:   map[string][]string{"app": {"src/app.js"}},
		Output:  config.Output{Path: "dist"},
	}
	config.ApplyDefaults(cfg)

	f := &fixture{
		root:     root,
		cfg:      cfg,
		resolver: &fakeResolver{deps: resolve.DependencySet{"lodash": lodash, "@tarojs/runtime": rt}},
		bundler:  &fakeBundler{},
		packager: &fakePackager{
			assets: []metadata.RemoteAsset{{Name: "prebundle/lodash.js"}, {Name: "prebundle/remoteEntry.js"}},
			reqs:   []string{"ensureChunk", "hasOwnProperty"},
		},
	}
	f.engine = &PrebundleEngine{
		AppRoot:  root,
		Scanner:  scan.New(root, cfg.Resolve.Extensions),
		Resolver: f.resolver,
		Bundler:  f.bundler,
		Packager: f.packager,
		Logger:   zerolog.Nop(),
	}
	return f
}

func (f *fixture) run(t *testing.T, opts RunOptions) *RunResult {
	t.Helper()

	result, err := f.engine.Run(context.Background(), f.cfg, opts)
	require.NoError(t, err)
	return result
}

func (f *fixture) record(t *testing.T) *metadata.Metadata {
	t.Helper()

	m, err := metadata.Load(filepath.Join(f.root, "node_modules", ".prebundle", "metadata.yaml"))
	require.NoError(t, err)
	return m
}

func (f *fixture) metadataBytes(t *testing.T) []byte {
	t.Helper()

	data, err := os.ReadFile(filepath.Join(f.root, "node_modules", ".prebundle", "metadata.yaml"))
	require.NoError(t, err)
	return data
}

var dev = RunOptions{Env: config.Env{Mode: config.ModeDevelopment}}

func TestRunFirstBuild(t *testing.T) {
	f := newFixture(t)

	result := f.run(t, dev)

	assert.Equal(t, StageRebuilt, result.Bundle)
	assert.Equal(t, StageRebuilt, result.Remote)
	assert.False(t, result.UsedCache())
	assert.Equal(t, []string{"@tarojs/runtime", "lodash"}, result.Deps)
	assert.Equal(t, runtimeChunk, result.RuntimeChunkPath)
	assert.Equal(t, f.packager.assets, result.RemoteAssets)
	assert.Equal(t, []string{"ensureChunk", "hasOwnProperty"}, result.RuntimeRequirements)

	m, err := metadata.Load(filepath.Join(f.root, "node_modules", ".prebundle", "metadata.yaml"))
	require.NoError(t, err)
	assert.Equal(t, result.BundleHash, m.BundleHash)
	assert.Equal(t, result.MFHash, m.MFHash)
	assert.Equal(t, runtimeChunk, m.RuntimeChunkPath)

	assert.FileExists(t, filepath.Join(f.root, "dist", "prebundle", "remoteEntry.js"))
	assert.FileExists(t, filepath.Join(f.root, "dist", "prebundle", "lodash.js"))
	assert.FileExists(t, result.HostConfigPath)

	require.Len(t, f.packager.exposes, 1)
	assert.Equal(t, []string{"./@tarojs/runtime", "./lodash"}, f.packager.exposes[0].Names())
	assert.Equal(t, federation.ProvideTarget{Path: runtimeChunk, Export: "window$1"}, f.packager.provides[0]["window"])
}

func TestRunPassesIncludeAndExclude(t *testing.T) {
	f := newFixture(t)
	f.cfg.Include = []string{"dayjs"}
	f.cfg.Exclude = []string{"react"}
	f.cfg.Esbuild.External = []string{"vue"}

	f.run(t, dev)

	assert.Equal(t, []string{"@tarojs/runtime", "@tarojs/taro", "dayjs"}, f.resolver.include)
	assert.Equal(t, []string{"@tarojs/components", "react"}, f.resolver.exclude)
	assert.Equal(t, []string{"vue", "@tarojs/components", "react"}, f.bundler.external)
}

func TestRunSecondRunUsesCache(t *testing.T) {
	f := newFixture(t)

	first := f.run(t, dev)
	firstMeta := f.metadataBytes(t)
	firstHost, err := os.ReadFile(first.HostConfigPath)
	require.NoError(t, err)

	second := f.run(t, dev)

	assert.True(t, second.UsedCache())
	assert.Equal(t, 1, f.bundler.calls)
	assert.Equal(t, 1, f.packager.calls)
	assert.Equal(t, first.RuntimeChunkPath, second.RuntimeChunkPath)
	assert.Equal(t, first.BundleHash, second.BundleHash)
	assert.Equal(t, first.MFHash, second.MFHash)
	assert.Equal(t, firstMeta, f.metadataBytes(t))

	secondHost, err := os.ReadFile(second.HostConfigPath)
	require.NoError(t, err)
	assert.Equal(t, firstHost, secondHost)
	assert.FileExists(t, filepath.Join(f.root, "dist", "prebundle", "remoteEntry.js"))
}

func TestRunStage2CacheHitReusesRecordVerbatim(t *testing.T) {
	f := newFixture(t)
	first := f.run(t, dev)

	f.packager.assets = []metadata.RemoteAsset{{Name: "prebundle/other.js"}}
	f.packager.reqs = []string{"require"}
	second := f.run(t, dev)

	assert.Equal(t, StageCached, second.Remote)
	assert.Equal(t, first.RemoteAssets, second.RemoteAssets)
	assert.Equal(t, first.RuntimeRequirements, second.RuntimeRequirements)
}

func TestRunModeChangeOnlyRerunsStage2(t *testing.T) {
	f := newFixture(t)
	first := f.run(t, dev)

	second := f.run(t, RunOptions{Env: config.Env{Mode: config.ModeProduction}})

	assert.Equal(t, StageCached, second.Bundle)
	assert.Equal(t, StageRebuilt, second.Remote)
	assert.Equal(t, 1, f.bundler.calls)
	assert.Equal(t, 2, f.packager.calls)
	assert.Equal(t, first.BundleHash, second.BundleHash)
	assert.NotEqual(t, first.MFHash, second.MFHash)
	assert.Equal(t, first.RuntimeChunkPath, second.RuntimeChunkPath)
}

func TestRunSourceMapChangeOnlyRerunsStage2(t *testing.T) {
	f := newFixture(t)
	f.run(t, dev)

	second := f.run(t, RunOptions{Env: config.Env{Mode: config.ModeDevelopment, SourceMapEnabled: true}})

	assert.Equal(t, StageCached, second.Bundle)
	assert.Equal(t, StageRebuilt, second.Remote)
}

func TestRunDependencyChangeRerunsBothStages(t *testing.T) {
	f := newFixture(t)
	first := f.run(t, dev)

	require.NoError(t, os.WriteFile(f.resolver.deps["lodash"], []byte("module.exports = { v: 2 };\n"), 0o644))
	second := f.run(t, dev)

	assert.Equal(t, StageRebuilt, second.Bundle)
	assert.Equal(t, StageRebuilt, second.Remote)
	assert.NotEqual(t, first.BundleHash, second.BundleHash)
	assert.Equal(t, 2, f.bundler.calls)
	assert.Equal(t, 2, f.packager.calls)
}

func TestRunProvideTransformsChangeStage2(t *testing.T) {
	f := newFixture(t)
	first := f.run(t, dev)

	extra := func(m federation.ProvideMap, path string) federation.ProvideMap {
		m["IntersectionObserver"] = federation.ProvideTarget{Path: path, Export: "IntersectionObserver"}
		return m
	}
	second := f.run(t, RunOptions{Env: dev.Env, ProvideTransforms: []federation.ProvideTransform{extra}})

	assert.Equal(t, StageCached, second.Bundle)
	assert.Equal(t, StageRebuilt, second.Remote)
	assert.NotEqual(t, first.MFHash, second.MFHash)
	assert.Contains(t, second.Provide, "IntersectionObserver")
	assert.Contains(t, f.packager.provides[1], "IntersectionObserver")
}

func TestRunConfigProvideIsApplied(t *testing.T) {
	f := newFixture(t)
	f.cfg.Provide = map[string]string{"getComputedStyle": "getComputedStyle"}

	result := f.run(t, dev)

	assert.Equal(t, federation.ProvideTarget{Path: runtimeChunk, Export: "getComputedStyle"}, result.Provide["getComputedStyle"])
}

func TestRunForceIgnoresSnapshot(t *testing.T) {
	f := newFixture(t)
	f.run(t, dev)

	forced := f.run(t, RunOptions{Env: dev.Env, Force: true})

	assert.Equal(t, StageRebuilt, forced.Bundle)
	assert.Equal(t, StageRebuilt, forced.Remote)
	assert.Equal(t, 2, f.bundler.calls)
	assert.Equal(t, 2, f.packager.calls)
}

func TestRunFailedPackagingKeepsOnlyBundleRecord(t *testing.T) {
	f := newFixture(t)
	first := f.run(t, dev)

	f.packager.err = errors.New("child build crashed")
	_, err := f.engine.Run(context.Background(), f.cfg, RunOptions{Env: config.Env{Mode: config.ModeProduction}})
	require.Error(t, err)

	m := f.record(t)
	assert.Equal(t, first.BundleHash, m.BundleHash)
	assert.Equal(t, runtimeChunk, m.RuntimeChunkPath)
	assert.Empty(t, m.MFHash)
	assert.Empty(t, m.RemoteAssets)
}

func TestRunRecoversAfterFailedPackaging(t *testing.T) {
	f := newFixture(t)
	f.run(t, dev)

	f.packager.err = errors.New("child build crashed")
	_, err := f.engine.Run(context.Background(), f.cfg, RunOptions{Env: config.Env{Mode: config.ModeProduction}})
	require.Error(t, err)

	f.packager.err = nil
	result := f.run(t, dev)

	assert.Equal(t, StageCached, result.Bundle)
	assert.Equal(t, StageRebuilt, result.Remote)
	assert.Equal(t, 3, f.packager.calls)
	assert.FileExists(t, filepath.Join(f.root, "dist", "prebundle", "remoteEntry.js"))
	assert.FileExists(t, filepath.Join(f.root, "dist", "prebundle", "lodash.js"))
	assert.Equal(t, result.MFHash, f.record(t).MFHash)
}

func TestRunFailedBundleClearsRecord(t *testing.T) {
	f := newFixture(t)
	f.run(t, dev)

	require.NoError(t, os.WriteFile(f.resolver.deps["lodash"], []byte("broken"), 0o644))
	f.bundler.err = &bundler.BundleCompileError{Diagnostics: []string{"lodash.js:1:1: unexpected"}}
	_, err := f.engine.Run(context.Background(), f.cfg, dev)

	var berr *bundler.BundleCompileError
	require.ErrorAs(t, err, &berr)
	assert.Equal(t, 1, f.packager.calls)

	m := f.record(t)
	assert.Empty(t, m.BundleHash)
	assert.Empty(t, m.MFHash)
	assert.Empty(t, m.RuntimeChunkPath)

	f.bundler.err = nil
	result := f.run(t, dev)
	assert.Equal(t, StageRebuilt, result.Bundle)
	assert.Equal(t, StageRebuilt, result.Remote)
}

func TestRunRebuildsMissingRemoteFiles(t *testing.T) {
	f := newFixture(t)
	f.run(t, dev)
	before := f.metadataBytes(t)
	require.NoError(t, os.Remove(filepath.Join(f.root, "node_modules", ".prebundle", "remote", "remoteEntry.js")))

	result := f.run(t, dev)

	assert.Equal(t, StageCached, result.Bundle)
	assert.Equal(t, StageRebuilt, result.Remote)
	assert.Equal(t, 2, f.packager.calls)
	assert.FileExists(t, filepath.Join(f.root, "dist", "prebundle", "remoteEntry.js"))
	assert.Equal(t, before, f.metadataBytes(t))
}

func TestRunRebuildsMissingRuntimeChunk(t *testing.T) {
	f := newFixture(t)
	f.run(t, dev)
	require.NoError(t, os.Remove(filepath.Join(f.root, filepath.FromSlash(runtimeChunk))))

	result := f.run(t, dev)

	assert.Equal(t, StageRebuilt, result.Bundle)
	assert.Equal(t, StageRebuilt, result.Remote)
	assert.Equal(t, 2, f.bundler.calls)
	assert.FileExists(t, filepath.Join(f.root, filepath.FromSlash(runtimeChunk)))
}

func TestRunRuntimeChunkNotFound(t *testing.T) {
	f := newFixture(t)
	f.cfg.Runtime.Symbol = "Missing"

	_, err := f.engine.Run(context.Background(), f.cfg, dev)

	var nf *bundler.RuntimeChunkNotFoundError
	require.ErrorAs(t, err, &nf)
	assert.Equal(t, "entry:@tarojs_runtime", nf.EntryPoint)
	assert.NoFileExists(t, filepath.Join(f.root, "node_modules", ".prebundle", "metadata.yaml"))
	assert.Equal(t, 0, f.packager.calls)
}

func TestRunMissingAppEntry(t *testing.T) {
	f := newFixture(t)
	f.cfg.Entry["app"] = []string{"src/missing.js"}

	_, err := f.engine.Run(context.Background(), f.cfg, dev)

	var rerr *resolve.ResolutionError
	require.ErrorAs(t, err, &rerr)
	assert.Equal(t, 0, f.bundler.calls)
}

func TestRunWiresHostConfigIdempotently(t *testing.T) {
	f := newFixture(t)
	hc := &host.BuildConfig{Plugins: []host.Plugin{{Name: "DefinePlugin"}}}

	f.run(t, RunOptions{Env: dev.Env, HostConfig: hc})
	f.run(t, RunOptions{Env: dev.Env, HostConfig: hc})

	require.Len(t, hc.Plugins, 2)
	assert.Equal(t, host.PluginName, hc.Plugins[1].Name)
	assert.Equal(t, []string{"@tarojs/runtime", "lodash"}, hc.Plugins[1].Options.Deps)
	assert.Equal(t, f.packager.assets, hc.Plugins[1].Options.RemoteAssets)
	assert.Contains(t, hc.Provide, "window")
}

func TestRunReplacesStaleOutput(t *testing.T) {
	f := newFixture(t)
	stale := writeFile(t, f.root, "dist/prebundle/stale.js", "old")

	f.run(t, dev)

	assert.NoFileExists(t, stale)
}
