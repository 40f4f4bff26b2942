package config

import (
	"path/filepath"
	"strings"
)

// Default values applied by ApplyDefaults.
const (
	DefaultEntryFileName      = "app"
	DefaultRuntimePackage     = "@tarojs/runtime"
	DefaultRuntimeSymbol      = "TaroRootElement"
	DefaultCacheDir           = "node_modules/.prebundle"
	DefaultFederationName     = "taro_app_library"
	DefaultChunkLoadingGlobal = "webpackJsonp"
	DefaultGlobalObject       = "globalThis"
	DefaultTarget             = "es2017"
	DefaultPlatform           = "browser"
	DefaultChunkNames         = "chunk-[hash]"
)

// defaultHostPackages are supplied natively by the host build. The host
// scans their exports itself, so they are never inlined into the prebundle.
var defaultHostPackages = []string{"@tarojs/components"}

// defaultRuntimeInclude is imported by the framework's generated code.
var defaultRuntimeInclude = []string{"@tarojs/taro"}

var defaultExtensions = []string{".tsx", ".ts", ".jsx", ".js", ".mjs", ".json"}

var defaultMainFields = []string{"browser", "module", "jsnext:main", "main"}

// ApplyDefaults fills every empty field with its default value.
func ApplyDefaults(cfg *Config) {
	if cfg.EntryFileName == "" {
		cfg.EntryFileName = DefaultEntryFileName
	}
	if cfg.Runtime.Package == "" {
		cfg.Runtime.Package = DefaultRuntimePackage
	}
	if cfg.Runtime.Symbol == "" {
		cfg.Runtime.Symbol = DefaultRuntimeSymbol
	}
	if cfg.Runtime.Include == nil {
		cfg.Runtime.Include = append([]string(nil), defaultRuntimeInclude...)
	}
	if cfg.HostPackages == nil {
		cfg.HostPackages = append([]string(nil), defaultHostPackages...)
	}
	if len(cfg.Resolve.Extensions) == 0 {
		cfg.Resolve.Extensions = append([]string(nil), defaultExtensions...)
	}
	if len(cfg.Resolve.MainFields) == 0 {
		cfg.Resolve.MainFields = append([]string(nil), defaultMainFields...)
	}
	if cfg.Esbuild.Target == "" {
		cfg.Esbuild.Target = DefaultTarget
	}
	if cfg.Esbuild.Platform == "" {
		cfg.Esbuild.Platform = DefaultPlatform
	}
	if cfg.Esbuild.ChunkNames == "" {
		cfg.Esbuild.ChunkNames = DefaultChunkNames
	}
	if cfg.Output.ChunkLoadingGlobal == "" {
		cfg.Output.ChunkLoadingGlobal = DefaultChunkLoadingGlobal
	}
	if cfg.Output.GlobalObject == "" {
		cfg.Output.GlobalObject = DefaultGlobalObject
	}
	if cfg.CacheDir == "" {
		cfg.CacheDir = DefaultCacheDir
	}
	if cfg.FederationName == "" {
		cfg.FederationName = DefaultFederationName
	}
}

// AppEntry returns the first module of the app entry, or "" if none is set.
func (c *Config) AppEntry() string {
	name := c.EntryFileName
	if name == "" {
		name = DefaultEntryFileName
	}
	mods := c.Entry[name]
	if len(mods) == 0 {
		return ""
	}
	return mods[0]
}

// ForceInclude returns the identifiers always treated as dependency roots:
// the runtime package with its companions, then runtimePath modules and the
// user include list.
func (c *Config) ForceInclude() []string {
	ids := append([]string{c.Runtime.Package}, c.Runtime.Include...)
	for _, p := range c.RuntimePath {
		ids = append(ids, strings.TrimPrefix(p, "post:"))
	}
	return append(ids, c.Include...)
}

// ForceExclude returns the identifiers never inlined into the prebundle.
func (c *Config) ForceExclude() []string {
	ids := append([]string(nil), c.HostPackages...)
	return append(ids, c.Exclude...)
}

// Abs resolves p against root unless it is already absolute.
func Abs(root, p string) string {
	if filepath.IsAbs(p) {
		return filepath.Clean(p)
	}
	return filepath.Join(root, p)
}
