package engine

import (
	"errors"
	"os"
	"path/filepath"
	"strings"

	"github.com/bianoble/prebundle/internal/cache"
	"github.com/bianoble/prebundle/internal/config"
	"github.com/bianoble/prebundle/internal/federation"
	"github.com/bianoble/prebundle/internal/metadata"
)

// StatusEngine reports the state of the prebundle cache.
type StatusEngine struct {
	AppRoot string
}

// Status inspects the cache of cfg's application without modifying it.
func (e *StatusEngine) Status(cfg *config.Config) (*StatusResult, error) {
	layout := cache.NewLayout(config.Abs(e.AppRoot, cfg.CacheDir))
	r := &StatusResult{
		State:        StateEmpty,
		CacheDir:     layout.Root,
		MetadataPath: layout.Metadata,
	}

	m, err := metadata.Load(layout.Metadata)
	if errors.Is(err, os.ErrNotExist) {
		return r, nil
	}
	if err != nil {
		return nil, err
	}
	r.Metadata = m

	if r.CacheSize, err = cache.Size(layout.Root); err != nil {
		return nil, err
	}
	prebundled, err := cache.ListFiles(layout.Prebundle)
	if err != nil {
		return nil, err
	}
	remote, err := cache.ListFiles(layout.Remote)
	if err != nil {
		return nil, err
	}
	r.PrebundleFiles = len(prebundled)
	r.RemoteFiles = len(remote)

	outRoot := config.Abs(e.AppRoot, cfg.Output.Path)
	for _, a := range m.RemoteAssets {
		if !isFile(remoteFile(layout.Remote, a.Name)) || !isFile(filepath.Join(outRoot, filepath.FromSlash(a.Name))) {
			r.MissingAssets = append(r.MissingAssets, a.Name)
		}
	}

	r.State = StateReady
	if m.MFHash == "" || len(r.MissingAssets) > 0 {
		r.State = StateIncomplete
	}
	return r, nil
}

// remoteFile maps an asset name such as "prebundle/remoteEntry.js" to its
// path inside the cached remote directory.
func remoteFile(dir, name string) string {
	rel := strings.TrimPrefix(name, federation.AssetPrefix+"/")
	return filepath.Join(dir, filepath.FromSlash(rel))
}

func isFile(p string) bool {
	info, err := os.Stat(p)
	return err == nil && info.Mode().IsRegular()
}
