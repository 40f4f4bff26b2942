// Package scan enumerates the entry modules of an application: the app
// shell plus every page declared in its app config.
package scan

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/bianoble/prebundle/internal/config"
	"github.com/bianoble/prebundle/internal/resolve"
	"gopkg.in/yaml.v3"
)

// appConfigSuffixes are tried in order next to the app entry.
var appConfigSuffixes = []string{".config.json", ".config.yaml", ".config.yml"}

// AppConfig is the subset of the app config that declares pages.
type AppConfig struct {
	Pages       []string     `json:"pages" yaml:"pages"`
	SubPackages []SubPackage `json:"subPackages" yaml:"subPackages"`
	// Older projects spell the key in lower case.
	SubPackagesLower []SubPackage `json:"subpackages" yaml:"subpackages"`
}

// SubPackage is a group of pages under a common root.
type SubPackage struct {
	Root  string   `json:"root" yaml:"root"`
	Pages []string `json:"pages" yaml:"pages"`
}

// Scanner finds entry modules below AppRoot.
type Scanner struct {
	AppRoot    string
	Extensions []string
}

// New returns a scanner for the app rooted at appRoot.
func New(appRoot string, extensions []string) *Scanner {
	return &Scanner{AppRoot: appRoot, Extensions: extensions}
}

// Scan returns the absolute paths of the app entry and every page, in
// declaration order without duplicates.
func (s *Scanner) Scan(cfg *config.Config) ([]string, error) {
	rel := cfg.AppEntry()
	if rel == "" {
		return nil, &resolve.ResolutionError{Path: cfg.EntryFileName, Err: errors.New("no app entry configured")}
	}

	appEntry := config.Abs(s.AppRoot, rel)
	if _, err := os.Stat(appEntry); err != nil {
		return nil, &resolve.ResolutionError{Path: rel, Err: err}
	}

	entries := []string{appEntry}
	seen := map[string]bool{appEntry: true}

	appCfg, cfgPath, err := loadAppConfig(appEntry)
	if err != nil {
		return nil, err
	}
	if appCfg == nil {
		return entries, nil
	}

	dir := filepath.Dir(appEntry)
	for _, page := range appCfg.pages() {
		resolved, ok := s.resolvePage(dir, page)
		if !ok {
			return nil, &resolve.ResolutionError{
				Path:     page,
				Importer: cfgPath,
				Err:      errors.New("page module not found"),
			}
		}
		if seen[resolved] {
			continue
		}
		seen[resolved] = true
		entries = append(entries, resolved)
	}

	return entries, nil
}

// pages lists main-package pages followed by sub-package pages prefixed
// with their root.
func (c *AppConfig) pages() []string {
	out := append([]string(nil), c.Pages...)
	subs := c.SubPackages
	if len(subs) == 0 {
		subs = c.SubPackagesLower
	}
	for _, sub := range subs {
		for _, p := range sub.Pages {
			out = append(out, path.Join(sub.Root, p))
		}
	}
	return out
}

func (s *Scanner) resolvePage(dir, page string) (string, bool) {
	base := filepath.Join(dir, filepath.FromSlash(strings.TrimPrefix(page, "/")))
	if isFile(base) {
		return base, true
	}
	for _, ext := range s.Extensions {
		if ext == ".json" {
			continue
		}
		if candidate := base + ext; isFile(candidate) {
			return candidate, true
		}
	}
	return "", false
}

// loadAppConfig reads <base>.config.{json,yaml,yml} next to the app entry.
// A missing app config yields nil without error.
func loadAppConfig(appEntry string) (*AppConfig, string, error) {
	base := strings.TrimSuffix(appEntry, filepath.Ext(appEntry))
	for _, suffix := range appConfigSuffixes {
		p := base + suffix
		data, err := os.ReadFile(p)
		if os.IsNotExist(err) {
			continue
		}
		if err != nil {
			return nil, "", fmt.Errorf("reading app config: %w", err)
		}

		var cfg AppConfig
		if suffix == ".config.json" {
			err = json.Unmarshal(data, &cfg)
		} else {
			err = yaml.Unmarshal(data, &cfg)
		}
		if err != nil {
			return nil, "", fmt.Errorf("parsing app config %s: %w", p, err)
		}
		return &cfg, p, nil
	}
	return nil, "", nil
}

func isFile(p string) bool {
	info, err := os.Stat(p)
	return err == nil && info.Mode().IsRegular()
}
