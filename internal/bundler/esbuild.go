package bundler

import (
	"bytes"
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/bianoble/prebundle/internal/buildctx"
	"github.com/bianoble/prebundle/internal/resolve"
	"github.com/bianoble/prebundle/internal/sandbox"
	"github.com/evanw/esbuild/pkg/api"
	"github.com/rs/zerolog"
)

const virtualPluginName = "prebundle-virtual-entry"

var targets = map[string]api.Target{
	"esnext": api.ESNext,
	"es5":    api.ES5,
	"es2015": api.ES2015,
	"es2016": api.ES2016,
	"es2017": api.ES2017,
	"es2018": api.ES2018,
	"es2019": api.ES2019,
	"es2020": api.ES2020,
	"es2021": api.ES2021,
	"es2022": api.ES2022,
	"es2023": api.ES2023,
}

var formats = map[string]api.Format{
	"":     api.FormatESModule,
	"esm":  api.FormatESModule,
	"cjs":  api.FormatCommonJS,
	"iife": api.FormatIIFE,
}

// ESBuild compiles requests with esbuild. Outputs are produced in memory
// and written below the request's OutDir.
type ESBuild struct {
	logger zerolog.Logger
}

// NewESBuild creates the esbuild backend.
func NewESBuild(logger zerolog.Logger) *ESBuild {
	return &ESBuild{logger: logger}
}

// Compile runs one build. Diagnostics are returned as a *CompileError.
func (e *ESBuild) Compile(ctx context.Context, req Request) (Manifest, error) {
	opts, err := buildOptions(req)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	result, err := buildctx.Run(ctx, opts)
	if err != nil {
		return nil, err
	}
	if len(result.Errors) > 0 {
		return nil, &CompileError{Diagnostics: buildctx.Messages(result.Errors)}
	}
	for _, w := range result.Warnings {
		e.logger.Debug().Str("warning", buildctx.Format(w)).Msg("esbuild warning")
	}

	globals := make(map[string]bool, len(result.OutputFiles))
	for _, f := range result.OutputFiles {
		rel, err := filepath.Rel(req.OutDir, f.Path)
		if err != nil || strings.HasPrefix(rel, "..") {
			return nil, fmt.Errorf("output '%s' is outside '%s'", f.Path, req.OutDir)
		}
		if err := sandbox.WriteFile(req.OutDir, rel, f.Contents, 0o644); err != nil {
			return nil, fmt.Errorf("writing output %s: %w", rel, err)
		}
		if key, err := filepath.Rel(req.AppRoot, f.Path); err == nil {
			globals[filepath.ToSlash(key)] = bytes.Contains(f.Contents, []byte("globalThis"))
		}
	}

	manifest, err := ParseMetafile(result.Metafile)
	if err != nil {
		return nil, err
	}
	for path, c := range manifest {
		c.UsesGlobalThis = globals[path]
		manifest[path] = c
	}

	e.logger.Debug().
		Int("entries", len(req.Entries)).
		Int("outputs", len(result.OutputFiles)).
		Dur("took", time.Since(start)).
		Msg("esbuild compile finished")

	return manifest, nil
}

func buildOptions(req Request) (api.BuildOptions, error) {
	o := req.Options

	format, ok := formats[o.Format]
	if !ok {
		return api.BuildOptions{}, fmt.Errorf("unsupported format '%s'", o.Format)
	}
	target := api.DefaultTarget
	if o.Target != "" {
		if target, ok = targets[strings.ToLower(o.Target)]; !ok {
			return api.BuildOptions{}, fmt.Errorf("unsupported target '%s'", o.Target)
		}
	}

	entryPoints := make([]api.EntryPoint, 0, len(req.Entries))
	virtual := make(map[string]Entry)
	for _, entry := range req.Entries {
		input := entry.Path
		if entry.Virtual() {
			input = entryNamespace + ":" + entry.Name
			virtual[entry.Name] = entry
		}
		entryPoints = append(entryPoints, api.EntryPoint{InputPath: input, OutputPath: entry.Name})
	}

	plugins := []api.Plugin{virtualEntryPlugin(virtual)}
	if len(o.Alias) > 0 {
		plugins = append(plugins, resolve.AliasPlugin(req.AppRoot, o.Alias))
	}

	opts := api.BuildOptions{
		EntryPointsAdvanced: entryPoints,
		AbsWorkingDir:       req.AppRoot,
		Outdir:              req.OutDir,
		Bundle:              true,
		Write:               false,
		Metafile:            true,
		Format:              format,
		Splitting:           o.Splitting,
		Target:              target,
		Platform:            resolve.Platform(o.Platform),
		MinifyWhitespace:    o.Minify,
		MinifyIdentifiers:   o.Minify,
		MinifySyntax:        o.Minify,
		Define:              o.Define,
		MainFields:          o.MainFields,
		Conditions:          o.Conditions,
		ResolveExtensions:   o.Extensions,
		External:            o.External,
		Inject:              o.Inject,
		EntryNames:          "[name]",
		ChunkNames:          o.ChunkNames,
		Loader:              resolve.AssetLoaders,
		LogLevel:            api.LogLevelSilent,
		Plugins:             plugins,
	}
	if o.SourceMap {
		opts.Sourcemap = api.SourceMapExternal
	}
	return opts, nil
}

// virtualEntryPlugin serves in-memory entries from the "entry" namespace.
func virtualEntryPlugin(entries map[string]Entry) api.Plugin {
	return api.Plugin{
		Name: virtualPluginName,
		Setup: func(build api.PluginBuild) {
			build.OnResolve(api.OnResolveOptions{Filter: "^" + entryNamespace + ":"},
				func(args api.OnResolveArgs) (api.OnResolveResult, error) {
					name := strings.TrimPrefix(args.Path, entryNamespace+":")
					if _, ok := entries[name]; !ok {
						return api.OnResolveResult{}, nil
					}
					return api.OnResolveResult{Path: name, Namespace: entryNamespace}, nil
				})
			build.OnLoad(api.OnLoadOptions{Filter: `.*`, Namespace: entryNamespace},
				func(args api.OnLoadArgs) (api.OnLoadResult, error) {
					entry := entries[args.Path]
					contents := entry.Contents
					return api.OnLoadResult{
						Contents:   &contents,
						ResolveDir: entry.ResolveDir,
						Loader:     api.LoaderJS,
					}, nil
				})
		},
	}
}
