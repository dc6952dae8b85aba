package tui

import "errors"

var (
	// ErrAborted signals the operator aborted input (Ctrl+C).
	ErrAborted = errors.New("tui: aborted")
	// ErrTooManyRetries is returned when a field is answered invalidly more
	// often than the retry limit allows.
	ErrTooManyRetries = errors.New("tui: too many invalid answers")
)
