package resolve

import (
	"github.com/bianoble/prebundle/internal/config"
	"github.com/evanw/esbuild/pkg/api"
)

const aliasPluginName = "prebundle-alias"

var skipAlias = &struct{}{}

// AliasPlugin applies the alias map during a build. Path-like targets are
// resolved against appRoot; package targets are resolved from the
// importing file. Failed targets fall through to the original specifier.
func AliasPlugin(appRoot string, alias map[string]string) api.Plugin {
	return api.Plugin{
		Name: aliasPluginName,
		Setup: func(build api.PluginBuild) {
			build.OnResolve(api.OnResolveOptions{Filter: bareImportFilter},
				func(args api.OnResolveArgs) (api.OnResolveResult, error) {
					if args.PluginData == skipAlias || args.Kind == api.ResolveEntryPoint {
						return api.OnResolveResult{}, nil
					}
					target, ok := MatchAlias(alias, args.Path)
					if !ok {
						return api.OnResolveResult{}, nil
					}

					spec, dir := target, args.ResolveDir
					if IsPathLike(target) {
						spec, dir = config.Abs(appRoot, target), appRoot
					}
					res := build.Resolve(spec, api.ResolveOptions{
						Importer:   args.Importer,
						Namespace:  "file",
						ResolveDir: dir,
						Kind:       args.Kind,
						PluginData: skipAlias,
					})
					if len(res.Errors) > 0 {
						return api.OnResolveResult{}, nil
					}
					if res.External {
						return api.OnResolveResult{Path: spec, External: true}, nil
					}
					return api.OnResolveResult{Path: res.Path, Namespace: "file"}, nil
				})
		},
	}
}
