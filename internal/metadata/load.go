package metadata

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Load reads and validates a metadata record.
// A missing file is reported with an error satisfying os.IsNotExist.
func Load(path string) (*Metadata, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var m Metadata
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("parsing metadata %s: %w", path, err)
	}

	if errs := Validate(&m); len(errs) > 0 {
		return nil, &ValidationError{Errors: errs}
	}

	return &m, nil
}

// LoadSnapshot returns the previous record, or an empty one when no record
// exists yet. Any other failure is returned.
func LoadSnapshot(path string) (*Metadata, error) {
	m, err := Load(path)
	if errors.Is(err, os.ErrNotExist) {
		return &Metadata{Version: CurrentVersion}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("loading metadata %s: %w", path, err)
	}
	return m, nil
}

// Save writes a record atomically using a temp file and rename, so a
// crashed run never leaves a half-written record behind.
func Save(path string, m *Metadata) error {
	data, err := yaml.Marshal(m)
	if err != nil {
		return fmt.Errorf("marshaling metadata: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating metadata directory: %w", err)
	}

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("writing temp metadata %s: %w", tmp, err)
	}

	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("renaming temp metadata to %s: %w", path, err)
	}

	return nil
}

// ValidationError holds multiple validation failures.
type ValidationError struct {
	Errors []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("metadata validation failed:\n  - %s", strings.Join(e.Errors, "\n  - "))
}

// Validate checks a record for semantic correctness.
func Validate(m *Metadata) []string {
	var errs []string

	if m.Version != CurrentVersion {
		errs = append(errs, fmt.Sprintf("unsupported version %d: only version %d is supported", m.Version, CurrentVersion))
	}

	if m.MFHash != "" && m.BundleHash == "" {
		errs = append(errs, "'mfHash' is set without 'bundleHash'")
	}

	if filepath.IsAbs(filepath.FromSlash(m.RuntimeChunkPath)) {
		errs = append(errs, fmt.Sprintf("'runtimeChunkPath' must be relative to the app root, got '%s'", m.RuntimeChunkPath))
	}

	seen := make(map[string]bool)
	for i, a := range m.RemoteAssets {
		switch {
		case a.Name == "":
			errs = append(errs, fmt.Sprintf("remoteAssets[%d]: 'name' is required", i))
		case seen[a.Name]:
			errs = append(errs, fmt.Sprintf("remoteAssets[%d]: duplicate asset '%s'", i, a.Name))
		default:
			seen[a.Name] = true
		}
	}

	return errs
}
