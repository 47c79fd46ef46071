package services

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"testing"

	"github.com/google/uuid"
)

type fakeTTS struct {
	err   error
	calls int
	mu    sync.Mutex
}

func (f *fakeTTS) Synthesize(_ context.Context, _, _ string) error {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()
	return f.err
}

type fakeAudioToolkit struct {
	probeDuration float64
	silenceCalls  int
	silenceSecs   float64
	mu            sync.Mutex
}

func (f *fakeAudioToolkit) ProbeDuration(_ context.Context, _ string) (float64, error) {
	return f.probeDuration, nil
}

func (f *fakeAudioToolkit) GenerateSilence(_ context.Context, _ string, seconds float64) error {
	f.mu.Lock()
	f.silenceCalls++
	f.silenceSecs = seconds
	f.mu.Unlock()
	return nil
}

func (f *fakeAudioToolkit) CreateTempFile(filename string) string {
	return filepath.Join("/tmp", filename)
}

func (f *fakeAudioToolkit) Cleanup(_ ...string) {}

type fakeAudioUploader struct {
	keys []string
	mu   sync.Mutex
}

func (f *fakeAudioUploader) UploadFile(_ context.Context, _, key, _, _ string) error {
	f.mu.Lock()
	f.keys = append(f.keys, key)
	f.mu.Unlock()
	return nil
}

func (f *fakeAudioUploader) GetPublicURL(bucket, key string) string {
	return fmt.Sprintf("https://cdn.example.com/%s/%s", bucket, key)
}

func TestSynthesizeSegmentMeasuredDuration(t *testing.T) {
	toolkit := &fakeAudioToolkit{probeDuration: 4.73}
	uploader := &fakeAudioUploader{}
	s := NewSynthesizer(&fakeTTS{}, toolkit, uploader, "video-assets", 3.0)

	ref, err := s.SynthesizeSegment(context.Background(), uuid.New(), 0, "Welcome to the corner bakery")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ref.DurationSeconds != 4.73 {
		t.Errorf("duration should come from the probe, got %v", ref.DurationSeconds)
	}
	if toolkit.silenceCalls != 0 {
		t.Errorf("silence fallback should not run on success")
	}
}

func TestSynthesizeSegmentRejectionFallsBackToSilence(t *testing.T) {
	tts := &fakeTTS{err: fmt.Errorf("tts: %w", ErrSpeechRejected)}
	toolkit := &fakeAudioToolkit{probeDuration: 99} // probe must not be consulted
	uploader := &fakeAudioUploader{}
	s := NewSynthesizer(tts, toolkit, uploader, "video-assets", 3.0)

	ref, err := s.SynthesizeSegment(context.Background(), uuid.New(), 2, "Open every morning")
	if err != nil {
		t.Fatalf("rejection must not be fatal: %v", err)
	}
	if toolkit.silenceCalls != 1 {
		t.Fatalf("expected one silence generation, got %d", toolkit.silenceCalls)
	}
	if toolkit.silenceSecs != 3.0 {
		t.Errorf("silence length should be the configured fallback, got %v", toolkit.silenceSecs)
	}
	if ref.DurationSeconds != 3.0 {
		t.Errorf("fallback duration must be exactly the configured value, got %v", ref.DurationSeconds)
	}
	if len(uploader.keys) != 1 {
		t.Fatalf("silent track must still be uploaded")
	}
}

func TestSynthesizeSegmentOtherErrorIsFatal(t *testing.T) {
	tts := &fakeTTS{err: errors.New("500 internal server error")}
	s := NewSynthesizer(tts, &fakeAudioToolkit{}, &fakeAudioUploader{}, "video-assets", 3.0)

	_, err := s.SynthesizeSegment(context.Background(), uuid.New(), 0, "Hello")
	if err == nil {
		t.Fatal("non-rejection synthesis errors must fail the segment")
	}
}

func TestSynthesizeBatchIndexedResults(t *testing.T) {
	toolkit := &fakeAudioToolkit{probeDuration: 2.5}
	uploader := &fakeAudioUploader{}
	s := NewSynthesizer(&fakeTTS{}, toolkit, uploader, "video-assets", 3.0)

	jobID := uuid.New()
	refs, err := s.SynthesizeBatch(context.Background(), jobID, []string{"one", "", "three"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(refs) != 3 {
		t.Fatalf("expected 3 slots, got %d", len(refs))
	}
	if refs[0] == nil || refs[2] == nil {
		t.Error("non-empty segments must produce refs")
	}
	if refs[1] != nil {
		t.Error("empty text must produce a nil ref")
	}

	wantURL := fmt.Sprintf("https://cdn.example.com/video-assets/jobs/%s/narration_2.mp3", jobID)
	if refs[2].URL != wantURL {
		t.Errorf("segment 2 URL = %q, want %q", refs[2].URL, wantURL)
	}
}

func TestSynthesizeBatchPropagatesFailure(t *testing.T) {
	tts := &fakeTTS{err: errors.New("boom")}
	s := NewSynthesizer(tts, &fakeAudioToolkit{}, &fakeAudioUploader{}, "video-assets", 3.0)

	_, err := s.SynthesizeBatch(context.Background(), uuid.New(), []string{"a", "b"})
	if err == nil {
		t.Fatal("batch must fail when a segment fails")
	}
}
