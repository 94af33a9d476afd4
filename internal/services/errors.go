package services

import "errors"

// ErrInvalidModelOutput is returned when a structured model response does not
// match the declared field set.
var ErrInvalidModelOutput = errors.New("model output does not match the analysis schema")

// ValidationError reports a caller mistake such as a missing required field.
type ValidationError struct{ Message string }

func (e *ValidationError) Error() string { return e.Message }

// UnsupportedFormatError is returned for uploads the extractor cannot read.
type UnsupportedFormatError struct{ Message string }

func (e *UnsupportedFormatError) Error() string { return e.Message }

// EmptyDocumentError is returned when a readable document yields no text.
type EmptyDocumentError struct{ Message string }

func (e *EmptyDocumentError) Error() string { return e.Message }
