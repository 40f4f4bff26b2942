package resolve

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"sync"

	"github.com/bianoble/prebundle/internal/buildctx"
	"github.com/bianoble/prebundle/internal/config"
	"github.com/evanw/esbuild/pkg/api"
	"github.com/rs/zerolog"
)

const (
	includeEntry     = "prebundle:include"
	includeNamespace = "prebundle-include"
	scanPluginName   = "prebundle-scan"

	// bareImportFilter matches package specifiers and skips paths and
	// scheme-prefixed ids such as "node:fs".
	bareImportFilter = `^[\w@][^:]*$`
)

// skipScan marks resolve calls issued by the scan plugin itself so they
// fall through to esbuild's default resolver.
var skipScan = &struct{}{}

var couldNotResolve = regexp.MustCompile(`^Could not resolve "(.*)"`)

// AssetLoaders loads non-code assets as empty modules.
var AssetLoaders = map[string]api.Loader{
	".css":   api.LoaderEmpty,
	".less":  api.LoaderEmpty,
	".sass":  api.LoaderEmpty,
	".scss":  api.LoaderEmpty,
	".styl":  api.LoaderEmpty,
	".wxss":  api.LoaderEmpty,
	".png":   api.LoaderEmpty,
	".jpg":   api.LoaderEmpty,
	".jpeg":  api.LoaderEmpty,
	".gif":   api.LoaderEmpty,
	".svg":   api.LoaderEmpty,
	".webp":  api.LoaderEmpty,
	".woff":  api.LoaderEmpty,
	".woff2": api.LoaderEmpty,
	".ttf":   api.LoaderEmpty,
	".eot":   api.LoaderEmpty,
	".mp3":   api.LoaderEmpty,
	".mp4":   api.LoaderEmpty,
}

// scanLoaders additionally allows JSX in plain .js files of the app.
var scanLoaders = func() map[string]api.Loader {
	m := map[string]api.Loader{".js": api.LoaderJSX}
	for ext, l := range AssetLoaders {
		m[ext] = l
	}
	return m
}()

// Options holds the module-resolution settings of the primary build.
type Options struct {
	AppRoot    string
	Alias      map[string]string
	MainFields []string
	Conditions []string
	Extensions []string
	Platform   string
}

// Resolver traces imports with esbuild's resolver without emitting output.
type Resolver struct {
	opts   Options
	logger zerolog.Logger
}

// New creates a resolver.
func New(opts Options, logger zerolog.Logger) *Resolver {
	return &Resolver{opts: opts, logger: logger}
}

// Resolve traces entries transitively, adds include and removes exclude.
// An identifier present in both lists is excluded.
func (r *Resolver) Resolve(ctx context.Context, entries, include, exclude []string) (DependencySet, error) {
	if len(entries) == 0 {
		return nil, &ResolutionError{Path: "<entry>", Err: errors.New("no entry modules")}
	}
	for _, e := range entries {
		if _, err := os.Stat(e); err != nil {
			return nil, &ResolutionError{Path: e, Err: err}
		}
	}

	var forced []string
	seen := make(map[string]bool)
	for _, id := range include {
		if id == "" || seen[id] || IsExcluded(id, exclude) {
			continue
		}
		seen[id] = true
		forced = append(forced, id)
	}

	s := &scan{opts: r.opts, include: forced, exclude: exclude, deps: make(DependencySet)}

	entryPoints := append([]string(nil), entries...)
	if len(forced) > 0 {
		entryPoints = append(entryPoints, includeEntry)
	}

	result, err := buildctx.Run(ctx, api.BuildOptions{
		EntryPoints:       entryPoints,
		AbsWorkingDir:     r.opts.AppRoot,
		Bundle:            true,
		Write:             false,
		Format:            api.FormatESModule,
		Platform:          Platform(r.opts.Platform),
		MainFields:        r.opts.MainFields,
		Conditions:        r.opts.Conditions,
		ResolveExtensions: r.opts.Extensions,
		Loader:            scanLoaders,
		Outdir:            filepath.Join(r.opts.AppRoot, ".prebundle-scan"),
		LogLevel:          api.LogLevelSilent,
		Plugins:           []api.Plugin{s.plugin()},
	})
	if err != nil {
		return nil, fmt.Errorf("scanning imports: %w", err)
	}

	if rerr := s.firstError(); rerr != nil {
		return nil, rerr
	}
	if len(result.Errors) > 0 {
		return nil, diagnosticError(result.Errors)
	}

	for id := range s.deps {
		if IsExcluded(id, exclude) {
			delete(s.deps, id)
		}
	}

	r.logger.Debug().Strs("deps", s.deps.IDs()).Msg("Resolved dependencies")
	return s.deps, nil
}

// scan is the per-run state of the scan plugin. esbuild invokes resolve
// callbacks concurrently.
type scan struct {
	opts    Options
	include []string
	exclude []string

	mu   sync.Mutex
	deps DependencySet
	errs []*ResolutionError
}

func (s *scan) plugin() api.Plugin {
	return api.Plugin{
		Name: scanPluginName,
		Setup: func(build api.PluginBuild) {
			build.OnResolve(api.OnResolveOptions{Filter: "^" + regexp.QuoteMeta(includeEntry) + "$"},
				func(args api.OnResolveArgs) (api.OnResolveResult, error) {
					return api.OnResolveResult{Path: includeEntry, Namespace: includeNamespace}, nil
				})
			build.OnLoad(api.OnLoadOptions{Filter: `.*`, Namespace: includeNamespace},
				func(args api.OnLoadArgs) (api.OnLoadResult, error) {
					var b strings.Builder
					for _, id := range s.include {
						fmt.Fprintf(&b, "import %q;\n", id)
					}
					contents := b.String()
					return api.OnLoadResult{
						Contents:   &contents,
						ResolveDir: s.opts.AppRoot,
						Loader:     api.LoaderJS,
					}, nil
				})
			build.OnResolve(api.OnResolveOptions{Filter: bareImportFilter},
				func(args api.OnResolveArgs) (api.OnResolveResult, error) {
					return s.onBareImport(build, args), nil
				})
		},
	}
}

func (s *scan) onBareImport(build api.PluginBuild, args api.OnResolveArgs) api.OnResolveResult {
	if args.PluginData == skipScan || args.Kind == api.ResolveEntryPoint {
		return api.OnResolveResult{}
	}

	// Excluded packages are supplied by the host and need not be installed.
	if IsExcluded(args.Path, s.exclude) {
		return api.OnResolveResult{Path: args.Path, External: true}
	}

	spec := args.Path
	resolveDir := args.ResolveDir
	if target, ok := MatchAlias(s.opts.Alias, spec); ok {
		if IsPathLike(target) {
			res := build.Resolve(config.Abs(s.opts.AppRoot, target), api.ResolveOptions{
				Importer:   args.Importer,
				Namespace:  "file",
				ResolveDir: s.opts.AppRoot,
				Kind:       args.Kind,
				PluginData: skipScan,
			})
			if len(res.Errors) > 0 {
				s.fail(spec, args.Importer, res.Errors[0].Text)
				return api.OnResolveResult{Path: spec, External: true}
			}
			return api.OnResolveResult{Path: res.Path, Namespace: "file"}
		}
		spec = target
	}
	if args.Namespace == includeNamespace {
		resolveDir = s.opts.AppRoot
	}

	res := build.Resolve(spec, api.ResolveOptions{
		Importer:   args.Importer,
		Namespace:  "file",
		ResolveDir: resolveDir,
		Kind:       args.Kind,
		PluginData: skipScan,
	})
	if len(res.Errors) > 0 {
		s.fail(spec, args.Importer, res.Errors[0].Text)
		return api.OnResolveResult{Path: spec, External: true}
	}
	if res.External {
		return api.OnResolveResult{Path: spec, External: true}
	}

	if args.Namespace == includeNamespace || inNodeModules(res.Path) {
		s.record(spec, res.Path)
		return api.OnResolveResult{Path: spec, External: true}
	}

	// Workspace packages and path mappings outside node_modules are app code.
	return api.OnResolveResult{Path: res.Path, Namespace: "file"}
}

func (s *scan) record(id, path string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.deps[id] = path
}

func (s *scan) fail(spec, importer, text string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if importer == includeEntry {
		importer = ""
	}
	s.errs = append(s.errs, &ResolutionError{Path: spec, Importer: importer, Err: errors.New(text)})
}

// firstError returns the lexically first recorded error so failures are
// reported deterministically.
func (s *scan) firstError() *ResolutionError {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.errs) == 0 {
		return nil
	}
	sort.Slice(s.errs, func(i, j int) bool {
		if s.errs[i].Path != s.errs[j].Path {
			return s.errs[i].Path < s.errs[j].Path
		}
		return s.errs[i].Importer < s.errs[j].Importer
	})
	return s.errs[0]
}

// diagnosticError turns esbuild scan diagnostics into an error. Missing
// imports become a ResolutionError naming the specifier.
func diagnosticError(msgs []api.Message) error {
	for _, m := range msgs {
		match := couldNotResolve.FindStringSubmatch(m.Text)
		if match == nil {
			continue
		}
		rerr := &ResolutionError{Path: match[1], Err: errors.New(m.Text)}
		if m.Location != nil {
			rerr.Importer = m.Location.File
		}
		return rerr
	}
	return fmt.Errorf("scanning imports: %s", strings.Join(buildctx.Messages(msgs), "; "))
}

func inNodeModules(path string) bool {
	return strings.Contains(filepath.ToSlash(path), "/node_modules/")
}

// Platform maps a config platform name to esbuild's platform.
func Platform(name string) api.Platform {
	switch name {
	case "node":
		return api.PlatformNode
	case "neutral":
		return api.PlatformNeutral
	default:
		return api.PlatformBrowser
	}
}
