package config

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Load reads, defaults and validates a prebundle.yaml configuration file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config %s: %w", path, err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}

	ApplyDefaults(&cfg)

	if errs := Validate(&cfg); len(errs) > 0 {
		return nil, &ValidationError{Errors: errs}
	}

	return &cfg, nil
}

// ValidationError holds multiple validation failures.
type ValidationError struct {
	Errors []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("config validation failed:\n  - %s", strings.Join(e.Errors, "\n  - "))
}

// Validate checks a defaulted Config for semantic correctness.
// Returns a list of validation error messages (empty if valid).
func Validate(cfg *Config) []string {
	var errs []string

	if cfg.Version != 1 {
		errs = append(errs, fmt.Sprintf("unsupported version %d: only version 1 is supported", cfg.Version))
	}

	if len(cfg.Entry) == 0 {
		errs = append(errs, "'entry' is required: add 'entry: {app: [src/app.ts]}'")
	} else if cfg.AppEntry() == "" {
		errs = append(errs, fmt.Sprintf("entry '%s' is missing or empty: entryFileName must name a non-empty entry", cfg.EntryFileName))
	}

	if cfg.Output.Path == "" {
		errs = append(errs, "'output.path' is required")
	}

	switch cfg.Esbuild.Platform {
	case "browser", "node", "neutral":
		// valid
	default:
		errs = append(errs, fmt.Sprintf("invalid esbuild.platform '%s': must be one of browser, node, neutral", cfg.Esbuild.Platform))
	}

	if !isIdentifier(cfg.FederationName) {
		errs = append(errs, fmt.Sprintf("invalid federationName '%s': must be a JavaScript identifier", cfg.FederationName))
	}

	for i, p := range cfg.RuntimePath {
		if strings.TrimPrefix(p, "post:") == "" {
			errs = append(errs, fmt.Sprintf("runtimePath[%d]: empty module path", i))
		}
	}

	for key, target := range cfg.Resolve.Alias {
		if key == "" || target == "" {
			errs = append(errs, fmt.Sprintf("resolve.alias: entry '%s' -> '%s' must have a non-empty key and target", key, target))
		}
	}

	for name, export := range cfg.Provide {
		if !isIdentifier(name) {
			errs = append(errs, fmt.Sprintf("provide: global '%s' is not a JavaScript identifier", name))
		}
		if export == "" {
			errs = append(errs, fmt.Sprintf("provide: global '%s' needs an export name", name))
		}
	}

	return errs
}

func isIdentifier(s string) bool {
	if s == "" {
		return false
	}
	for i, r := range s {
		switch {
		case r == '_' || r == '$':
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z':
		case i > 0 && r >= '0' && r <= '9':
		default:
			return false
		}
	}
	return true
}
