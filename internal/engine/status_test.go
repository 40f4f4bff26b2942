package engine

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStatusEmptyCache(t *testing.T) {
	f := newFixture(t)
	eng := &StatusEngine{AppRoot: f.root}

	result, err := eng.Status(f.cfg)
	require.NoError(t, err)

	assert.Equal(t, StateEmpty, result.State)
	assert.Nil(t, result.Metadata)
	assert.Equal(t, filepath.Join(f.root, "node_modules", ".prebundle"), result.CacheDir)
}

func TestStatusReadyAfterRun(t *testing.T) {
	f := newFixture(t)
	run := f.run(t, dev)
	eng := &StatusEngine{AppRoot: f.root}

	result, err := eng.Status(f.cfg)
	require.NoError(t, err)

	assert.Equal(t, StateReady, result.State)
	require.NotNil(t, result.Metadata)
	assert.Equal(t, run.BundleHash, result.Metadata.BundleHash)
	assert.Equal(t, 3, result.PrebundleFiles)
	assert.Equal(t, 2, result.RemoteFiles)
	assert.Positive(t, result.CacheSize)
	assert.Empty(t, result.MissingAssets)
}

func TestStatusIncompleteWhenOutputAssetMissing(t *testing.T) {
	f := newFixture(t)
	f.run(t, dev)
	require.NoError(t, os.Remove(filepath.Join(f.root, "dist", "prebundle", "lodash.js")))
	eng := &StatusEngine{AppRoot: f.root}

	result, err := eng.Status(f.cfg)
	require.NoError(t, err)

	assert.Equal(t, StateIncomplete, result.State)
	assert.Equal(t, []string{"prebundle/lodash.js"}, result.MissingAssets)
}

func TestStatusIncompleteAfterFailedPackaging(t *testing.T) {
	f := newFixture(t)
	f.packager.err = errors.New("child build crashed")
	_, err := f.engine.Run(context.Background(), f.cfg, dev)
	require.Error(t, err)
	eng := &StatusEngine{AppRoot: f.root}

	result, err := eng.Status(f.cfg)
	require.NoError(t, err)

	assert.Equal(t, StateIncomplete, result.State)
	assert.Empty(t, result.Metadata.MFHash)
}

func TestStatusCorruptMetadata(t *testing.T) {
	f := newFixture(t)
	writeFile(t, f.root, "node_modules/.prebundle/metadata.yaml", "version: [1")
	eng := &StatusEngine{AppRoot: f.root}

	_, err := eng.Status(f.cfg)
	require.Error(t, err)
}
