package federation

import (
	"encoding/json"
	"fmt"
	"sort"
)

// ProvideTarget is the module and export that replace a free global.
// It encodes as the JSON pair [path, export].
type ProvideTarget struct {
	Path   string
	Export string
}

func (t ProvideTarget) MarshalJSON() ([]byte, error) {
	return json.Marshal([2]string{t.Path, t.Export})
}

func (t *ProvideTarget) UnmarshalJSON(data []byte) error {
	var pair [2]string
	if err := json.Unmarshal(data, &pair); err != nil {
		return fmt.Errorf("provide target must be [path, export]: %w", err)
	}
	t.Path, t.Export = pair[0], pair[1]
	return nil
}

// ProvideMap maps a global symbol to the export that provides it.
type ProvideMap map[string]ProvideTarget

// ProvideTransform derives a new provide map. Transforms must not modify
// their input.
type ProvideTransform func(m ProvideMap, runtimeChunkPath string) ProvideMap

// DefaultProvideMap returns the DOM globals supplied by the runtime chunk.
func DefaultProvideMap(runtimeChunkPath string) ProvideMap {
	exports := map[string]string{
		"window":                "window$1",
		"document":              "document$1",
		"navigator":             "navigator",
		"requestAnimationFrame": "raf",
		"cancelAnimationFrame":  "caf",
		"Element":               "TaroElement",
		"SVGElement":            "SVGElement",
		"MutationObserver":      "MutationObserver",
	}

	m := make(ProvideMap, len(exports))
	for global, export := range exports {
		m[global] = ProvideTarget{Path: runtimeChunkPath, Export: export}
	}
	return m
}

// ApplyProvide runs transforms over the default map in order.
func ApplyProvide(runtimeChunkPath string, transforms ...ProvideTransform) ProvideMap {
	m := DefaultProvideMap(runtimeChunkPath)
	for _, transform := range transforms {
		if transform == nil {
			continue
		}
		m = transform(m.Clone(), runtimeChunkPath)
	}
	return m
}

// ConfigProvide returns a transform adding globals provided by exports of
// the runtime chunk, as configured in the project file.
func ConfigProvide(exports map[string]string) ProvideTransform {
	return func(m ProvideMap, runtimeChunkPath string) ProvideMap {
		for global, export := range exports {
			m[global] = ProvideTarget{Path: runtimeChunkPath, Export: export}
		}
		return m
	}
}

// Clone returns a copy of m.
func (m ProvideMap) Clone() ProvideMap {
	out := make(ProvideMap, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

// Globals returns the provided global names in sorted order.
func (m ProvideMap) Globals() []string {
	globals := make([]string, 0, len(m))
	for g := range m {
		globals = append(globals, g)
	}
	sort.Strings(globals)
	return globals
}

// Pairs returns the map in the [path, export] form used for hashing.
func (m ProvideMap) Pairs() map[string][2]string {
	out := make(map[string][2]string, len(m))
	for g, t := range m {
		out[g] = [2]string{t.Path, t.Export}
	}
	return out
}
