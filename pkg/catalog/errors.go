package catalog

import (
	"errors"
	"fmt"
)

// Document names used in LoadError.
const (
	DocumentDialogue = "dialogue graph"
	DocumentGated    = "gated intents"
	DocumentUngated  = "ungated intents"
)

// ErrLoad matches every catalog load or validation failure.
var ErrLoad = errors.New("catalog load failed")

// ErrMissingDocument is returned when a catalog document is absent.
var ErrMissingDocument = errors.New("document missing")

// LoadError reports a malformed or missing catalog document.
type LoadError struct {
	Document string
	Err      error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("%s: %v", e.Document, e.Err)
}

// Unwrap exposes both ErrLoad and the underlying cause to errors.Is.
func (e *LoadError) Unwrap() []error {
	return []error{ErrLoad, e.Err}
}

func loadErrorf(document, format string, args ...any) *LoadError {
	return &LoadError{Document: document, Err: fmt.Errorf(format, args...)}
}
