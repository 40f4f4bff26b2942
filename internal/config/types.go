package config

// Config represents the prebundle.yaml configuration file.
type Config struct {
	Version int `yaml:"version"`

	// EntryFileName selects the app entry out of Entry. Default: "app".
	EntryFileName string              `yaml:"entryFileName,omitempty"`
	Entry         map[string][]string `yaml:"entry"`

	// RuntimePath lists extra runtime modules injected by platform plugins.
	// A leading "post:" marker is stripped before resolution.
	RuntimePath []string `yaml:"runtimePath,omitempty"`

	Runtime Runtime `yaml:"runtime,omitempty"`

	Include      []string `yaml:"include,omitempty"`
	Exclude      []string `yaml:"exclude,omitempty"`
	HostPackages []string `yaml:"hostPackages,omitempty"`

	Resolve Resolve `yaml:"resolve,omitempty"`
	Esbuild Esbuild `yaml:"esbuild,omitempty"`
	Output  Output  `yaml:"output"`

	CacheDir        string `yaml:"cacheDir,omitempty"`
	EnableSourceMap bool   `yaml:"enableSourceMap,omitempty"`
	FederationName  string `yaml:"federationName,omitempty"`

	// Provide maps extra global symbols to export names of the runtime chunk.
	Provide map[string]string `yaml:"provide,omitempty"`
}

// Runtime identifies the package whose split chunk supplies global shims.
type Runtime struct {
	Package string `yaml:"package,omitempty"`
	Symbol  string `yaml:"symbol,omitempty"`

	// Include lists runtime companions that are always prebundled, even
	// when the app never imports them. Nil means the default; an explicit
	// empty list disables it.
	Include []string `yaml:"include,omitempty"`
}

// Resolve mirrors the module-resolution settings of the primary build.
type Resolve struct {
	Alias      map[string]string `yaml:"alias,omitempty"`
	MainFields []string          `yaml:"mainFields,omitempty"`
	Conditions []string          `yaml:"conditions,omitempty"`
	Extensions []string          `yaml:"extensions,omitempty"`
}

// Esbuild holds user overrides for the fast bundler.
type Esbuild struct {
	Target     string            `yaml:"target,omitempty"`
	Platform   string            `yaml:"platform,omitempty"` // "browser", "node", "neutral"
	Minify     bool              `yaml:"minify,omitempty"`
	Define     map[string]string `yaml:"define,omitempty"`
	External   []string          `yaml:"external,omitempty"`
	ChunkNames string            `yaml:"chunkNames,omitempty"`
}

// Output describes the primary build's output topology.
type Output struct {
	Path               string `yaml:"path"`
	ChunkLoadingGlobal string `yaml:"chunkLoadingGlobal,omitempty"`
	GlobalObject       string `yaml:"globalObject,omitempty"`
}

// Mode is the build mode of the primary build.
type Mode string

const (
	ModeProduction  Mode = "production"
	ModeDevelopment Mode = "development"
)

// Env is the environment descriptor supplied by the surrounding build tool.
type Env struct {
	Mode             Mode
	SourceMapEnabled bool
}
