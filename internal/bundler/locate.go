package bundler

import "fmt"

// RuntimeChunkNotFoundError reports that no chunk imported by the runtime
// entry exports the required symbol.
type RuntimeChunkNotFoundError struct {
	EntryPoint string
	Symbol     string
	// EntryFound is false when the manifest has no chunk for EntryPoint.
	EntryFound bool
}

func (e *RuntimeChunkNotFoundError) Error() string {
	if !e.EntryFound {
		return fmt.Sprintf("runtime chunk not found: no output for entry '%s'", e.EntryPoint)
	}
	return fmt.Sprintf("runtime chunk not found: no chunk imported by '%s' exports '%s'", e.EntryPoint, e.Symbol)
}

// LocateRuntimeChunk finds the chunk that supplies symbol to the runtime
// package: the first chunk imported by the runtime entry whose exports
// contain symbol. The runtime entry chunk itself is never returned.
func LocateRuntimeChunk(m Manifest, entryPoint, symbol string) (string, error) {
	for _, path := range m.Paths() {
		chunk := m[path]
		if chunk.EntryPoint != entryPoint {
			continue
		}
		for _, imp := range chunk.Imports {
			if imp.External || imp.Path == path {
				continue
			}
			if target, ok := m[imp.Path]; ok && target.HasExport(symbol) {
				return imp.Path, nil
			}
		}
		return "", &RuntimeChunkNotFoundError{EntryPoint: entryPoint, Symbol: symbol, EntryFound: true}
	}
	return "", &RuntimeChunkNotFoundError{EntryPoint: entryPoint, Symbol: symbol}
}
