package buildctx

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/evanw/esbuild/pkg/api"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunBuildsInMemory(t *testing.T) {
	dir := t.TempDir()
	entry := filepath.Join(dir, "index.js")
	require.NoError(t, os.WriteFile(entry, []byte("export const answer = 42;\n"), 0o644))

	result, err := Run(context.Background(), api.BuildOptions{
		EntryPoints:   []string{entry},
		AbsWorkingDir: dir,
		Bundle:        true,
		Write:         false,
		Format:        api.FormatESModule,
		Outdir:        filepath.Join(dir, "out"),
		LogLevel:      api.LogLevelSilent,
	})
	require.NoError(t, err)
	require.Empty(t, result.Errors)
	require.Len(t, result.OutputFiles, 1)
	assert.Contains(t, string(result.OutputFiles[0].Contents), "42")
}

func TestRunReportsDiagnostics(t *testing.T) {
	dir := t.TempDir()
	entry := filepath.Join(dir, "index.js")
	require.NoError(t, os.WriteFile(entry, []byte("import './missing.js';\n"), 0o644))

	result, err := Run(context.Background(), api.BuildOptions{
		EntryPoints:   []string{entry},
		AbsWorkingDir: dir,
		Bundle:        true,
		Write:         false,
		Outdir:        filepath.Join(dir, "out"),
		LogLevel:      api.LogLevelSilent,
	})
	require.NoError(t, err)
	require.NotEmpty(t, result.Errors)

	msgs := Messages(result.Errors)
	assert.Contains(t, msgs[0], "missing.js")
}

func TestRunCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := Run(ctx, api.BuildOptions{})
	require.ErrorIs(t, err, context.Canceled)
}

func TestFormat(t *testing.T) {
	assert.Equal(t, "boom", Format(api.Message{Text: "boom"}))
	assert.Equal(t, "[plugin scan] boom", Format(api.Message{Text: "boom", PluginName: "scan"}))
	assert.Equal(t, "a.js:3:7: boom", Format(api.Message{
		Text:     "boom",
		Location: &api.Location{File: "a.js", Line: 3, Column: 7},
	}))
}
