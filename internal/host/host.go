// Package host wires the primary build to consume the prebundled remote.
package host

import (
	"encoding/json"
	"fmt"

	"github.com/bianoble/prebundle/internal/federation"
	"github.com/bianoble/prebundle/internal/metadata"
	"github.com/bianoble/prebundle/internal/resolve"
	"github.com/bianoble/prebundle/internal/sandbox"
)

// Names used by the host side of the federation.
const (
	PluginName = "PrebundleFederationPlugin"
	AppName    = "prebundle-app"
	ConfigFile = "host.json"
)

// BuildConfig is the part of the primary build configuration the pipeline
// contributes to.
type BuildConfig struct {
	Plugins []Plugin              `json:"plugins"`
	Provide federation.ProvideMap `json:"provide,omitempty"`
}

// Plugin is one registered build plugin.
type Plugin struct {
	Name    string        `json:"name"`
	Options PluginOptions `json:"options"`
}

// PluginOptions configures federation consumption in the host.
type PluginOptions struct {
	Name                string                 `json:"name"`
	Remotes             map[string]string      `json:"remotes"`
	Deps                []string               `json:"deps"`
	RemoteAssets        []metadata.RemoteAsset `json:"remoteAssets"`
	RuntimeRequirements []string               `json:"runtimeRequirements"`
}

// Wire registers the federation plugin pointing at the remote named
// federationName. A previous registration with the same plugin name is
// replaced in place, so wiring twice leaves a single plugin.
func Wire(cfg *BuildConfig, federationName string, deps resolve.DependencySet, assets []metadata.RemoteAsset, requirements []string) {
	plugin := Plugin{
		Name: PluginName,
		Options: PluginOptions{
			Name:                AppName,
			Remotes:             map[string]string{federationName: federationName + "@" + federation.RemoteEntryFile},
			Deps:                deps.IDs(),
			RemoteAssets:        append([]metadata.RemoteAsset{}, assets...),
			RuntimeRequirements: append([]string{}, requirements...),
		},
	}

	for i, p := range cfg.Plugins {
		if p.Name == PluginName {
			cfg.Plugins[i] = plugin
			return
		}
	}
	cfg.Plugins = append(cfg.Plugins, plugin)
}

// Provide sets the global substitutions of the primary build.
func Provide(cfg *BuildConfig, provide federation.ProvideMap) {
	cfg.Provide = provide.Clone()
}

// Write stores cfg as JSON at relPath under root.
func Write(root, relPath string, cfg *BuildConfig) error {
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding host config: %w", err)
	}
	data = append(data, '\n')
	if err := sandbox.WriteFile(root, relPath, data, 0o644); err != nil {
		return fmt.Errorf("writing host config: %w", err)
	}
	return nil
}
