package engine

import (
	"time"

	"github.com/bianoble/prebundle/internal/federation"
	"github.com/bianoble/prebundle/internal/metadata"
)

// StageOutcome records whether a pipeline stage ran or was served from the
// cache.
type StageOutcome string

const (
	StageRebuilt StageOutcome = "rebuilt"
	StageCached  StageOutcome = "cached"
)

// RunResult holds the outcome of a prebundle run.
type RunResult struct {
	Deps                []string
	BundleHash          string
	MFHash              string
	Bundle              StageOutcome
	Remote              StageOutcome
	RuntimeChunkPath    string
	Provide             federation.ProvideMap
	RemoteAssets        []metadata.RemoteAsset
	RuntimeRequirements []string
	OutputDir           string
	HostConfigPath      string
	Duration            time.Duration
}

// UsedCache reports whether both stages were served from the cache.
func (r *RunResult) UsedCache() bool {
	return r.Bundle == StageCached && r.Remote == StageCached
}

// CacheState summarizes the prebundle cache of an application.
type CacheState string

const (
	StateEmpty      CacheState = "empty"      // no metadata record
	StateReady      CacheState = "ready"      // every remote asset is in the output
	StateIncomplete CacheState = "incomplete" // record is partial or assets are missing
)

// StatusResult holds the outcome of a status query.
type StatusResult struct {
	State          CacheState
	CacheDir       string
	MetadataPath   string
	Metadata       *metadata.Metadata
	CacheSize      int64
	PrebundleFiles int
	RemoteFiles    int
	MissingAssets  []string
}

// CleanResult holds the outcome of a clean operation.
type CleanResult struct {
	Removed []string
	Freed   int64
}
