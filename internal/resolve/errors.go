package resolve

import "fmt"

// ResolutionError reports an entry module or dependency that could not be
// resolved. Importer is empty for entry modules.
type ResolutionError struct {
	Path     string
	Importer string
	Err      error
}

func (e *ResolutionError) Error() string {
	msg := fmt.Sprintf("cannot resolve '%s'", e.Path)
	if e.Importer != "" {
		msg += fmt.Sprintf(" imported by '%s'", e.Importer)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *ResolutionError) Unwrap() error {
	return e.Err
}
