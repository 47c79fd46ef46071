package services

import (
	"errors"
	"fmt"
)

// ErrSpeechRejected marks a TTS failure classified as rate/abuse throttling.
// The narration synthesizer recovers from it with a silent fallback track;
// every other synthesis error aborts the job.
var ErrSpeechRejected = errors.New("speech synthesis rejected")

// FetchError is returned when a source asset cannot be downloaded.
type FetchError struct {
	URL string
	Err error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("failed to fetch %s: %v", e.URL, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// TranscodeError is returned when the external transcoder exits non-zero
// for a source clip.
type TranscodeError struct {
	Source string
	Err    error
}

func (e *TranscodeError) Error() string {
	return fmt.Sprintf("failed to transcode %s: %v", e.Source, e.Err)
}

func (e *TranscodeError) Unwrap() error { return e.Err }

// RenderError is returned when the rendering engine exits non-zero. Output
// carries the captured stdout/stderr for diagnostics.
type RenderError struct {
	Err    error
	Output string
}

func (e *RenderError) Error() string {
	return fmt.Sprintf("render failed: %v", e.Err)
}

func (e *RenderError) Unwrap() error { return e.Err }
