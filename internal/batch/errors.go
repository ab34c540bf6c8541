package batch

import "errors"

// Error kinds. Returned errors wrap one of these; test with errors.Is.
var (
	// ErrConfiguration: missing or invalid input selection. The run is
	// cancelled before anything is mutated.
	ErrConfiguration = errors.New("configuration error")
	// ErrMeshPrecondition: wrong geometry type or missing UV channel, color
	// attribute or materials. Only that mesh is skipped.
	ErrMeshPrecondition = errors.New("mesh precondition failed")
	// ErrResourceMissing: no tile image or no material for a face. Only that
	// face is left unassigned.
	ErrResourceMissing = errors.New("resource missing")
	// ErrDecodeFailure: an unparsable file or material name. The entry is
	// excluded.
	ErrDecodeFailure = errors.New("decode failure")
)
