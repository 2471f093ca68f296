package render

import (
	"errors"
	"fmt"
)

// ErrEmptyInput is returned when a fixation sequence has no records.
var ErrEmptyInput = errors.New("fixation sequence is empty")

// InputNotFoundError reports a missing base image or fixation source.
type InputNotFoundError struct {
	Path string
	Err  error
}

func (e *InputNotFoundError) Error() string {
	return fmt.Sprintf("input not found: %s", e.Path)
}

func (e *InputNotFoundError) Unwrap() error { return e.Err }

// RenderError reports a failure while estimating density, rasterizing,
// drawing, or compositing.
type RenderError struct {
	Op   string // "density", "scanpath", "decode", ...
	Path string // artifact or input implicated
	Err  error
}

func (e *RenderError) Error() string {
	return fmt.Sprintf("render %s (%s): %v", e.Op, e.Path, e.Err)
}

func (e *RenderError) Unwrap() error { return e.Err }

// PersistenceError reports a failure writing an output artifact.
type PersistenceError struct {
	Path string
	Err  error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("writing %s: %v", e.Path, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }

// Error kinds reported by Kind.
const (
	KindInputNotFound = "input_not_found"
	KindEmptyInput    = "empty_input"
	KindRender        = "render"
	KindPersistence   = "persistence"
	KindUnknown       = "unknown"
)

// Kind classifies err into one of the Kind* constants. Kind(nil) is "".
func Kind(err error) string {
	if err == nil {
		return ""
	}
	var notFound *InputNotFoundError
	var renderErr *RenderError
	var persistErr *PersistenceError
	switch {
	case errors.Is(err, ErrEmptyInput):
		return KindEmptyInput
	case errors.As(err, &notFound):
		return KindInputNotFound
	case errors.As(err, &persistErr):
		return KindPersistence
	case errors.As(err, &renderErr):
		return KindRender
	default:
		return KindUnknown
	}
}
