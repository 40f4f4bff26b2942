package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
)

const (
	prebundleDirName = "prebundle"
	remoteDirName    = "remote"
	shimDirName      = "mf-shim"
	metadataFileName = "metadata.yaml"
)

// Layout is the on-disk structure of one application's prebundle cache.
// A layout is exclusively owned by one pipeline run at a time.
type Layout struct {
	Root      string // cache root
	Prebundle string // flattened dependency chunks (stage 1)
	Remote    string // federation remote (stage 2)
	Shim      string // generated federation entry modules
	Metadata  string // persisted metadata record
}

// NewLayout returns the cache layout rooted at dir.
func NewLayout(dir string) Layout {
	return Layout{
		Root:      dir,
		Prebundle: filepath.Join(dir, prebundleDirName),
		Remote:    filepath.Join(dir, remoteDirName),
		Shim:      filepath.Join(dir, shimDirName),
		Metadata:  filepath.Join(dir, metadataFileName),
	}
}

// EnsureDirs creates the cache root and its stage directories.
func (l Layout) EnsureDirs() error {
	for _, dir := range []string{l.Root, l.Prebundle, l.Remote, l.Shim} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("creating cache directory %s: %w", dir, err)
		}
	}
	return nil
}

// EmptyDir removes everything inside dir, creating dir if it is missing.
// Stale files with reused names must never survive into a new build.
func EmptyDir(dir string) error {
	entries, err := os.ReadDir(dir)
	if os.IsNotExist(err) {
		return os.MkdirAll(dir, 0o755)
	}
	if err != nil {
		return fmt.Errorf("reading directory %s: %w", dir, err)
	}
	for _, e := range entries {
		if err := os.RemoveAll(filepath.Join(dir, e.Name())); err != nil {
			return fmt.Errorf("emptying %s: %w", dir, err)
		}
	}
	return nil
}

// Size returns the total size of regular files below dir in bytes.
// A missing directory has size zero.
func Size(dir string) (int64, error) {
	var total int64
	err := filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			if os.IsNotExist(err) && path == dir {
				return filepath.SkipDir
			}
			return err
		}
		if info.Mode().IsRegular() {
			total += info.Size()
		}
		return nil
	})
	return total, err
}

// ListFiles returns the regular files below dir as sorted, slash separated
// paths relative to dir. A missing directory has no files.
func ListFiles(dir string) ([]string, error) {
	var files []string
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if os.IsNotExist(err) && path == dir {
				return filepath.SkipDir
			}
			return err
		}
		if !d.Type().IsRegular() {
			return nil
		}
		rel, err := filepath.Rel(dir, path)
		if err != nil {
			return err
		}
		files = append(files, filepath.ToSlash(rel))
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Strings(files)
	return files, nil
}

// ComputeHash computes the SHA256 hash of content and returns the hex string.
func ComputeHash(content []byte) string {
	h := sha256.Sum256(content)
	return hex.EncodeToString(h[:])
}

// HashFile streams a file through SHA256 and returns the hex digest.
func HashFile(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", fmt.Errorf("hashing %s: %w", path, err)
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}
