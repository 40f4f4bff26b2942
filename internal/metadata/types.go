package metadata

// CurrentVersion is the only record version this build understands.
const CurrentVersion = 1

// Metadata is the persisted record of the last successful prebundle run.
// Two independent hashes gate the two expensive stages; MFHash is derived
// from BundleHash, so a stage-1 change always invalidates stage 2.
type Metadata struct {
	Version             int           `yaml:"version"`
	BundleHash          string        `yaml:"bundleHash"`
	MFHash              string        `yaml:"mfHash"`
	RuntimeChunkPath    string        `yaml:"runtimeChunkPath"` // relative to the app root, slash separated
	RemoteAssets        []RemoteAsset `yaml:"remoteAssets"`
	RuntimeRequirements []string      `yaml:"runtimeRequirements"`
}

// RemoteAsset names one file of the federation remote, relative to the
// primary build output (e.g. "prebundle/remoteEntry.js").
type RemoteAsset struct {
	Name string `yaml:"name" json:"name"`
}

// Clone returns a deep copy so a read-only snapshot is never aliased by
// the record of the current run.
func (m *Metadata) Clone() *Metadata {
	if m == nil {
		return nil
	}
	out := *m
	if m.RemoteAssets != nil {
		out.RemoteAssets = append([]RemoteAsset(nil), m.RemoteAssets...)
	}
	if m.RuntimeRequirements != nil {
		out.RuntimeRequirements = append([]string(nil), m.RuntimeRequirements...)
	}
	return &out
}
