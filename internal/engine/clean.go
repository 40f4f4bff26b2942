package engine

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/bianoble/prebundle/internal/cache"
	"github.com/bianoble/prebundle/internal/config"
	"github.com/bianoble/prebundle/internal/federation"
	"github.com/bianoble/prebundle/internal/sandbox"
)

// CleanEngine removes prebundle artifacts.
type CleanEngine struct {
	AppRoot string
}

// CleanOptions configures a clean operation.
type CleanOptions struct {
	// Output also removes the remote copied into the primary build output.
	Output bool
	DryRun bool
}

// Clean removes the cache directory, which forces the next run to rebuild
// both stages.
func (e *CleanEngine) Clean(cfg *config.Config, opts CleanOptions) (*CleanResult, error) {
	result := &CleanResult{}

	cacheDir := config.Abs(e.AppRoot, cfg.CacheDir)
	targets := []struct{ root, rel string }{
		{filepath.Dir(cacheDir), filepath.Base(cacheDir)},
	}
	if opts.Output {
		targets = append(targets, struct{ root, rel string }{config.Abs(e.AppRoot, cfg.Output.Path), federation.AssetPrefix})
	}

	for _, t := range targets {
		abs := filepath.Join(t.root, t.rel)
		if _, err := os.Stat(abs); os.IsNotExist(err) {
			continue
		}
		size, err := cache.Size(abs)
		if err != nil {
			return nil, err
		}
		if !opts.DryRun {
			if err := sandbox.RemoveAll(t.root, t.rel); err != nil {
				return nil, fmt.Errorf("removing %s: %w", abs, err)
			}
		}
		result.Removed = append(result.Removed, abs)
		result.Freed += size
	}

	return result, nil
}
