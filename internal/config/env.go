package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Viper keys for the environment descriptor.
const (
	KeyMode      = "mode"
	KeySourceMap = "source_map"
	keyNodeEnv   = "node_env"
)

// NewEnvViper returns a viper instance reading PREBUNDLE_* variables, with
// NODE_ENV as a fallback for the build mode. CLI flags may be bound to
// KeyMode and KeySourceMap on the returned instance.
func NewEnvViper() *viper.Viper {
	v := viper.New()
	v.SetEnvPrefix("PREBUNDLE")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))
	v.AutomaticEnv()
	_ = v.BindEnv(keyNodeEnv, "NODE_ENV")
	return v
}

// dotEnvFiles are read from the app root in order; later files win.
var dotEnvFiles = []string{".env", ".env.local"}

// ReadDotEnv applies NODE_ENV and PREBUNDLE_* variables from the app's .env
// files as defaults on v, so the process environment and flags still take
// precedence. It returns the files that were read.
func ReadDotEnv(v *viper.Viper, appRoot string) ([]string, error) {
	var loaded []string
	for _, file := range dotEnvFiles {
		p := filepath.Join(appRoot, file)
		if _, err := os.Stat(p); err != nil {
			continue
		}
		vars, err := godotenv.Read(p)
		if err != nil {
			return loaded, fmt.Errorf("reading %s: %w", p, err)
		}
		for name, value := range vars {
			switch {
			case name == "NODE_ENV":
				v.SetDefault(keyNodeEnv, value)
			case strings.HasPrefix(name, "PREBUNDLE_"):
				v.SetDefault(strings.ToLower(strings.TrimPrefix(name, "PREBUNDLE_")), value)
			}
		}
		loaded = append(loaded, p)
	}
	return loaded, nil
}

// LoadEnv builds the environment descriptor. An explicit mode must be
// "production" or "development"; NODE_ENV only selects production when it
// equals "production". The source-map switch falls back to the config file.
func LoadEnv(v *viper.Viper, cfg *Config) (Env, error) {
	env := Env{Mode: ModeDevelopment, SourceMapEnabled: cfg.EnableSourceMap}

	switch mode := strings.ToLower(strings.TrimSpace(v.GetString(KeyMode))); mode {
	case "":
		if v.GetString(keyNodeEnv) == string(ModeProduction) {
			env.Mode = ModeProduction
		}
	case string(ModeProduction), string(ModeDevelopment):
		env.Mode = Mode(mode)
	default:
		return Env{}, fmt.Errorf("invalid mode '%s': must be one of production, development", mode)
	}

	if v.IsSet(KeySourceMap) {
		env.SourceMapEnabled = v.GetBool(KeySourceMap)
	}

	return env, nil
}
