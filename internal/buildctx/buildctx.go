// Package buildctx runs esbuild builds as scoped, cancelable units of work.
//
// Every build acquires an esbuild build context that is disposed on every
// exit path, whether or not the build reports errors, and is cancelled as
// soon as the caller's context is done.
package buildctx

import (
	"context"
	"fmt"
	"sort"

	"github.com/evanw/esbuild/pkg/api"
)

// Run executes one build. Build diagnostics are returned inside the result;
// the error is non-nil only when ctx ended before the build completed.
func Run(ctx context.Context, opts api.BuildOptions) (api.BuildResult, error) {
	if err := ctx.Err(); err != nil {
		return api.BuildResult{}, err
	}

	bc, ctxErr := api.Context(opts)
	if ctxErr != nil {
		return api.BuildResult{Errors: ctxErr.Errors}, nil
	}
	defer bc.Dispose()

	stop := context.AfterFunc(ctx, bc.Cancel)
	defer stop()

	result := bc.Rebuild()
	if err := ctx.Err(); err != nil {
		return result, err
	}
	return result, nil
}

// Messages formats esbuild diagnostics as "file:line:col: text", sorted so
// the output is stable across runs.
func Messages(msgs []api.Message) []string {
	out := make([]string, 0, len(msgs))
	for _, m := range msgs {
		out = append(out, Format(m))
	}
	sort.Strings(out)
	return out
}

// Format renders a single diagnostic.
func Format(m api.Message) string {
	text := m.Text
	if m.PluginName != "" {
		text = fmt.Sprintf("[plugin %s] %s", m.PluginName, text)
	}
	if m.Location == nil {
		return text
	}
	return fmt.Sprintf("%s:%d:%d: %s", m.Location.File, m.Location.Line, m.Location.Column, text)
}
