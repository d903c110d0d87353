package translate

import "errors"

// Error taxonomy of a window. Errors returned by Step and TranslateFile
// wrap one of these.
var (
	// ErrMalformedResponse: the response could not be parsed into the
	// structured output shape. The window is rejected.
	ErrMalformedResponse = errors.New("malformed response")

	// ErrEmptyResult: the response parsed but carried no current lines.
	// Zero lines are written and the carrier keeps its tail.
	ErrEmptyResult = errors.New("empty result")

	// ErrIO: reading the source or writing the destination failed. Fatal
	// for the file.
	ErrIO = errors.New("i/o failure")

	// ErrTimeout: the collaborator call timed out or was cancelled. Handled
	// like a malformed response: nothing is committed.
	ErrTimeout = errors.New("timeout or cancellation")
)
