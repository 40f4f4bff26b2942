// Package hash computes the two cache keys of the prebundle pipeline.
//
// Both keys are sha256 digests of canonical inputs. Absolute paths never
// enter a key so a cache restored on another machine stays valid.
package hash

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"

	"github.com/bianoble/prebundle/internal/cache"
	"github.com/bianoble/prebundle/internal/resolve"
	"golang.org/x/sync/errgroup"
	"gopkg.in/yaml.v3"
)

// lockfiles are checked in order at the app root; the first found is used.
var lockfiles = []string{"package-lock.json", "yarn.lock", "pnpm-lock.yaml"}

// BundlerKey is the subset of fast-bundler configuration that affects the
// bytes it emits.
type BundlerKey struct {
	Target     string            `yaml:"target"`
	Platform   string            `yaml:"platform"`
	Format     string            `yaml:"format"`
	Minify     bool              `yaml:"minify"`
	Define     map[string]string `yaml:"define,omitempty"`
	Alias      map[string]string `yaml:"alias,omitempty"`
	MainFields []string          `yaml:"mainFields,omitempty"`
	Conditions []string          `yaml:"conditions,omitempty"`
	Extensions []string          `yaml:"extensions,omitempty"`
	External   []string          `yaml:"external,omitempty"`
	ChunkNames string            `yaml:"chunkNames"`
}

// OutputKey is the output topology of the primary build.
type OutputKey struct {
	Path               string `yaml:"path"`
	ChunkLoadingGlobal string `yaml:"chunkLoadingGlobal"`
	GlobalObject       string `yaml:"globalObject"`
}

// FederationKey collects every input of the remote packaging stage.
type FederationKey struct {
	BundleHash       string               `yaml:"bundleHash"`
	Mode             string               `yaml:"mode"`
	SourceMap        bool                 `yaml:"sourceMap"`
	Output           OutputKey            `yaml:"output"`
	RuntimeChunkPath string               `yaml:"runtimeChunkPath"`
	Provide          map[string][2]string `yaml:"provide,omitempty"`
}

// Stage1 returns the cache key of the fast bundling stage.
func Stage1(ctx context.Context, appRoot string, deps resolve.DependencySet, key BundlerKey) (string, error) {
	ids := deps.IDs()
	prints := make([]string, len(ids))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.NumCPU())
	for i, id := range ids {
		i, id := i, id
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			fp, err := fingerprint(appRoot, deps[id])
			if err != nil {
				return fmt.Errorf("fingerprinting %s: %w", id, err)
			}
			prints[i] = fp
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return "", err
	}

	h := sha256.New()
	for i, id := range ids {
		fmt.Fprintf(h, "dep\x00%s\x00%s\n", id, prints[i])
	}

	lock, err := lockfileHash(appRoot)
	if err != nil {
		return "", err
	}
	fmt.Fprintf(h, "lock\x00%s\n", lock)

	cfg, err := yaml.Marshal(key)
	if err != nil {
		return "", fmt.Errorf("encoding bundler key: %w", err)
	}
	h.Write(cfg)

	return hex.EncodeToString(h.Sum(nil)), nil
}

// Stage2 returns the cache key of the remote packaging stage. It depends on
// the stage-1 key through BundleHash.
func Stage2(key FederationKey) (string, error) {
	data, err := yaml.Marshal(key)
	if err != nil {
		return "", fmt.Errorf("encoding federation key: %w", err)
	}
	return cache.ComputeHash(data), nil
}

// fingerprint hashes a dependency's entry file together with the nearest
// package.json, which carries the installed version.
func fingerprint(appRoot, entry string) (string, error) {
	h := sha256.New()

	f, err := os.Open(entry)
	if err != nil {
		return "", err
	}
	_, err = io.Copy(h, f)
	f.Close()
	if err != nil {
		return "", err
	}

	if pkg := nearestPackageJSON(appRoot, filepath.Dir(entry)); pkg != "" {
		data, err := os.ReadFile(pkg)
		if err != nil {
			return "", err
		}
		h.Write([]byte("\x00package.json\x00"))
		h.Write(data)
	}

	return hex.EncodeToString(h.Sum(nil)), nil
}

// nearestPackageJSON walks up from dir and stops at the app root.
func nearestPackageJSON(appRoot, dir string) string {
	root := filepath.Clean(appRoot)
	for {
		candidate := filepath.Join(dir, "package.json")
		if info, err := os.Stat(candidate); err == nil && info.Mode().IsRegular() {
			return candidate
		}
		if dir == root {
			return ""
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return ""
		}
		dir = parent
	}
}

func lockfileHash(appRoot string) (string, error) {
	for _, name := range lockfiles {
		sum, err := cache.HashFile(filepath.Join(appRoot, name))
		if os.IsNotExist(err) {
			continue
		}
		if err != nil {
			return "", err
		}
		return name + ":" + sum, nil
	}
	return "", nil
}
