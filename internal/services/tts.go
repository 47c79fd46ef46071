package services

import "context"

// ---------------------------------------------------------------------------
// TTSService — common interface for text-to-speech providers. The narration
// synthesizer uses whichever is configured without knowing the provider.
// ---------------------------------------------------------------------------

// TTSService converts text into an audio file on disk.
//
// Implementations must classify rate/abuse throttling distinctly: such
// failures are returned wrapping ErrSpeechRejected so the caller can fall
// back to silent audio instead of failing the job.
type TTSService interface {
	// Synthesize streams synthesized speech for text into outputPath.
	Synthesize(ctx context.Context, text, outputPath string) error
}
