package services

import (
	"context"
	"errors"
	"testing"

	"github.com/adreel/adreel/internal/models"
)

type fakeCompleter struct {
	response string
	err      error
}

func (f *fakeCompleter) Complete(_ context.Context, _ string) (string, error) {
	return f.response, f.err
}

func knownClips() []models.ClipReference {
	return []models.ClipReference{
		"https://cdn.example.com/jobs/abc/clip_0.mp4",
		"https://cdn.example.com/jobs/abc/clip_1.mp4",
	}
}

func TestParseStoryboardStripsCodeFences(t *testing.T) {
	raw := "```json\n{\"sequence\":[{\"clip\":\"https://cdn.example.com/jobs/abc/clip_0.mp4\",\"text\":\"Fresh daily\",\"duration\":4}],\"voiceover\":\"Fresh daily\"}\n```"

	sb := ParseStoryboard(raw, knownClips())

	if len(sb.Sequence) != 1 {
		t.Fatalf("expected 1 segment, got %d", len(sb.Sequence))
	}
	if sb.Sequence[0].Clip == nil || *sb.Sequence[0].Clip != knownClips()[0] {
		t.Errorf("clip reference not preserved: %v", sb.Sequence[0].Clip)
	}
	if sb.Voiceover != "Fresh daily" {
		t.Errorf("voiceover = %q", sb.Voiceover)
	}
}

func TestParseStoryboardLeadingProse(t *testing.T) {
	raw := "Sure! Here is your storyboard:\n{\"sequence\":[{\"clip\":null,\"text\":\"Visit us today\",\"duration\":3}]}"

	sb := ParseStoryboard(raw, knownClips())

	if len(sb.Sequence) != 1 {
		t.Fatalf("expected 1 segment, got %d", len(sb.Sequence))
	}
	if sb.Sequence[0].Clip != nil {
		t.Errorf("expected nil clip for text-only slide, got %v", *sb.Sequence[0].Clip)
	}
}

func TestParseStoryboardMalformedFallsBackEmpty(t *testing.T) {
	for _, raw := range []string{
		"",
		"I could not generate a storyboard.",
		"{\"sequence\": [{\"clip\": ", // truncated JSON
		"```json\nnot json at all\n```",
	} {
		sb := ParseStoryboard(raw, knownClips())
		if sb.Sequence == nil {
			t.Errorf("ParseStoryboard(%q): sequence must be non-nil", raw)
		}
		if len(sb.Sequence) != 0 {
			t.Errorf("ParseStoryboard(%q): expected empty sequence, got %d segments", raw, len(sb.Sequence))
		}
	}
}

func TestParseStoryboardUnknownClipMappedToNull(t *testing.T) {
	raw := `{"sequence":[{"clip":"https://cdn.example.com/jobs/other/clip_9.mp4","text":"Hi","duration":3}]}`

	sb := ParseStoryboard(raw, knownClips())

	if len(sb.Sequence) != 1 {
		t.Fatalf("expected 1 segment, got %d", len(sb.Sequence))
	}
	if sb.Sequence[0].Clip != nil {
		t.Errorf("unknown clip should map to null, got %v", *sb.Sequence[0].Clip)
	}
}

func TestParseStoryboardBasenameMatch(t *testing.T) {
	raw := `{"sequence":[{"clip":"clip_1.mp4","text":"Hi","duration":3}]}`

	sb := ParseStoryboard(raw, knownClips())

	if len(sb.Sequence) != 1 {
		t.Fatalf("expected 1 segment, got %d", len(sb.Sequence))
	}
	if sb.Sequence[0].Clip == nil || *sb.Sequence[0].Clip != knownClips()[1] {
		t.Errorf("basename should resolve to full reference, got %v", sb.Sequence[0].Clip)
	}
}

func TestParseStoryboardNegativeDurationClamped(t *testing.T) {
	raw := `{"sequence":[{"clip":null,"text":"Hi","duration":-2}]}`

	sb := ParseStoryboard(raw, knownClips())

	if sb.Sequence[0].Duration != 0 {
		t.Errorf("negative duration should clamp to 0, got %v", sb.Sequence[0].Duration)
	}
}

func TestGenerateTransportErrorPropagates(t *testing.T) {
	wantErr := errors.New("connection refused")
	g := NewStoryboardGenerator(&fakeCompleter{err: wantErr})

	_, err := g.Generate(context.Background(), "Corner Bakery", "bakery", knownClips())
	if err == nil {
		t.Fatal("expected error from failing provider")
	}
	if !errors.Is(err, wantErr) {
		t.Errorf("error should wrap provider error, got %v", err)
	}
}

func TestGenerateMalformedOutputIsNotAnError(t *testing.T) {
	g := NewStoryboardGenerator(&fakeCompleter{response: "no json here"})

	sb, err := g.Generate(context.Background(), "Corner Bakery", "bakery", knownClips())
	if err != nil {
		t.Fatalf("parse failure must not surface as an error: %v", err)
	}
	if len(sb.Sequence) != 0 {
		t.Errorf("expected safe-empty storyboard, got %d segments", len(sb.Sequence))
	}
}
