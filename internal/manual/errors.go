// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package manual

import (
	"errors"
	"fmt"
)

// Sentinel errors for manual rendering. Every failure returned by Render
// matches exactly one of them under errors.Is.
var (
	ErrMalformedMetadata           = errors.New("malformed manual metadata")
	ErrMissingManual               = errors.New("product has no manual")
	ErrManualNotFound              = errors.New("manual not found")
	ErrUnrecognizedRenderParameter = errors.New("unrecognized render parameter")
	ErrRenderFailed                = errors.New("manual render failed")
)

// RenderError carries the diagnostics of a failed conversion. It matches
// ErrRenderFailed under errors.Is.
type RenderError struct {
	Filename string
	ExitCode int // -1 when the converter did not exit normally
	TimedOut bool
	Stderr   string
	Err      error
}

func (e *RenderError) Error() string {
	var msg string
	switch {
	case e.TimedOut:
		msg = fmt.Sprintf("%s: %s: converter timed out", ErrRenderFailed, e.Filename)
	case e.Err != nil:
		msg = fmt.Sprintf("%s: %s: %v", ErrRenderFailed, e.Filename, e.Err)
	default:
		msg = fmt.Sprintf("%s: %s", ErrRenderFailed, e.Filename)
	}
	if e.Stderr != "" {
		msg += " (converter output: " + e.Stderr + ")"
	}
	return msg
}

func (e *RenderError) Is(target error) bool { return target == ErrRenderFailed }

func (e *RenderError) Unwrap() error { return e.Err }
