package services

import (
	"bytes"
	"context"
	"fmt"
	"log"
	"os/exec"
	"time"
)

// ---------------------------------------------------------------------------
// RemotionService — drives the external rendering engine as a blocking
// subprocess. The engine reads the persisted props document and renders the
// composition up to an explicit end frame; success/failure is the exit code,
// with stdout/stderr captured for diagnostics.
// ---------------------------------------------------------------------------

type RemotionService struct {
	bin         string // launcher, e.g. "npx"
	entry       string // composition entry point
	composition string // composition ID
	timeout     time.Duration
}

func NewRemotionService(bin, entry, composition string, timeout time.Duration) *RemotionService {
	if bin == "" {
		bin = "npx"
	}
	if timeout <= 0 {
		timeout = 15 * time.Minute
	}
	return &RemotionService{
		bin:         bin,
		entry:       entry,
		composition: composition,
		timeout:     timeout,
	}
}

// Render invokes the engine for frames [0, totalFrames) and writes the
// result to outputPath. The explicit frame bound keeps the engine from
// guessing the composition length — the frozen timeline is authoritative.
// A non-zero exit (or timeout) is returned as a RenderError carrying the
// captured process output.
func (r *RemotionService) Render(ctx context.Context, propsPath, outputPath string, totalFrames int) error {
	if totalFrames <= 0 {
		return fmt.Errorf("render requires a positive frame count, got %d", totalFrames)
	}

	runCtx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	args := []string{
		"remotion", "render",
		r.entry,
		r.composition,
		outputPath,
		fmt.Sprintf("--props=%s", propsPath),
		fmt.Sprintf("--frames=0-%d", totalFrames-1),
	}

	log.Printf("[Remotion] Rendering %s (frames=%d, props=%s)", r.composition, totalFrames, propsPath)

	var output bytes.Buffer
	cmd := exec.CommandContext(runCtx, r.bin, args...)
	cmd.Stdout = &output
	cmd.Stderr = &output

	if err := cmd.Run(); err != nil {
		return &RenderError{Err: err, Output: truncateOutput(output.String(), 4000)}
	}

	log.Printf("[Remotion] Render complete -> %s", outputPath)
	return nil
}
