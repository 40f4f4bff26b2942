package engine

import (
	"github.com/bianoble/prebundle/internal/cache"
	"github.com/bianoble/prebundle/internal/config"
)

// InfoResult holds tool information for the info command.
type InfoResult struct {
	Version        string
	ConfigPath     string
	AppRoot        string
	AppEntry       string
	CacheDir       string
	CacheSize      int64
	OutputDir      string
	FederationName string
	RuntimePackage string
	RuntimeSymbol  string
	ForceInclude   []string
	ForceExclude   []string
	Env            config.Env
}

// Info gathers tool information.
func Info(version, configPath, appRoot string, cfg *config.Config, env config.Env) (*InfoResult, error) {
	r := &InfoResult{
		Version:        version,
		ConfigPath:     configPath,
		AppRoot:        appRoot,
		AppEntry:       cfg.AppEntry(),
		CacheDir:       config.Abs(appRoot, cfg.CacheDir),
		OutputDir:      config.Abs(appRoot, cfg.Output.Path),
		FederationName: cfg.FederationName,
		RuntimePackage: cfg.Runtime.Package,
		RuntimeSymbol:  cfg.Runtime.Symbol,
		ForceInclude:   cfg.ForceInclude(),
		ForceExclude:   cfg.ForceExclude(),
		Env:            env,
	}

	size, err := cache.Size(r.CacheDir)
	if err == nil {
		r.CacheSize = size
	}

	return r, nil
}
