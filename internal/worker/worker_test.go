package worker

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/adreel/adreel/internal/models"
	"github.com/adreel/adreel/internal/services"
	"github.com/google/uuid"
)

func TestRenderFailureAttachesEngineOutput(t *testing.T) {
	err := &services.RenderError{
		Err:    errors.New("exit status 1"),
		Output: "Error: frame 12 failed to render\nstack trace follows",
	}

	got := renderFailure(uuid.New(), err)

	if !strings.Contains(got.Error(), "frame 12 failed to render") {
		t.Errorf("stored message must carry the engine output, got %q", got.Error())
	}
	if n := strings.Count(got.Error(), "render failed:"); n != 1 {
		t.Errorf("message should carry the prefix exactly once, got %d in %q", n, got.Error())
	}
	var renderErr *services.RenderError
	if !errors.As(got, &renderErr) {
		t.Error("returned error must still unwrap to RenderError")
	}
}

func TestRenderFailureBoundsLongOutput(t *testing.T) {
	long := strings.Repeat("x", 3000) + "Error: out of memory"
	err := &services.RenderError{Err: errors.New("exit status 1"), Output: long}

	got := renderFailure(uuid.New(), err)

	if len(got.Error()) > 600 {
		t.Errorf("stored message should be bounded, got %d chars", len(got.Error()))
	}
	if !strings.Contains(got.Error(), "Error: out of memory") {
		t.Error("tail of the output (where the failure is reported) must survive truncation")
	}
}

func TestRenderFailureWithoutCapturedOutput(t *testing.T) {
	plain := errors.New("context deadline exceeded")
	got := renderFailure(uuid.New(), plain)
	if !strings.Contains(got.Error(), "render failed") || !errors.Is(got, plain) {
		t.Errorf("non-engine errors still get the render prefix, got %q", got.Error())
	}

	empty := &services.RenderError{Err: errors.New("exit status 1")}
	got = renderFailure(uuid.New(), empty)
	if n := strings.Count(got.Error(), "render failed:"); n != 1 {
		t.Errorf("empty output must not double the prefix, got %q", got.Error())
	}
}

// ---------------------------------------------------------------------------
// finalizeJob — previous-artifact replacement
// ---------------------------------------------------------------------------

type fakeFinalizeStore struct {
	videos    []*models.VideoRecord
	upsertErr error
	cleared   []uuid.UUID
}

func (f *fakeFinalizeStore) UpsertVideo(_ context.Context, v *models.VideoRecord) error {
	if f.upsertErr != nil {
		return f.upsertErr
	}
	f.videos = append(f.videos, v)
	return nil
}

func (f *fakeFinalizeStore) ClearPreviousOutput(_ context.Context, id uuid.UUID) error {
	f.cleared = append(f.cleared, id)
	return nil
}

type fakeArtifactStore struct {
	objects   map[string]bool // bucket/key -> exists
	deleteErr error
}

func (f *fakeArtifactStore) Delete(_ context.Context, bucket, key string) error {
	if f.deleteErr != nil {
		return f.deleteErr
	}
	// Deleting a missing key succeeds, mirroring the storage client.
	delete(f.objects, bucket+"/"+key)
	return nil
}

func (f *fakeArtifactStore) GetPublicURL(bucket, key string) string {
	return fmt.Sprintf("https://cdn.example.com/%s/%s", bucket, key)
}

func rerenderedJob(prevKey string) *models.RenderJob {
	job := &models.RenderJob{
		ID:           uuid.New(),
		BusinessName: "Demo Co",
		Category:     "bakery",
		Font:         "Montserrat",
		Version:      2,
		Status:       models.JobStatusUploaded,
	}
	if prevKey != "" {
		job.PreviousOutputKey = &prevKey
	}
	return job
}

func TestFinalizeJobReplacesPreviousArtifact(t *testing.T) {
	job := rerenderedJob(fmt.Sprintf("out-%s-v1.mp4", uuid.New()))
	newKey := fmt.Sprintf("out-%s-v2.mp4", job.ID)

	store := &fakeFinalizeStore{}
	artifacts := &fakeArtifactStore{objects: map[string]bool{
		"final-videos/" + *job.PreviousOutputKey: true,
		"final-videos/" + newKey:                 true,
	}}

	if err := finalizeJob(context.Background(), store, artifacts, "final-videos", job, newKey); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if artifacts.objects["final-videos/"+*job.PreviousOutputKey] {
		t.Error("superseded artifact must be deleted from storage")
	}
	if len(artifacts.objects) != 1 || !artifacts.objects["final-videos/"+newKey] {
		t.Errorf("exactly the new artifact must remain, got %v", artifacts.objects)
	}
	if len(store.cleared) != 1 || store.cleared[0] != job.ID {
		t.Errorf("previous-output marker should be cleared after the delete, got %v", store.cleared)
	}
	if len(store.videos) != 1 || store.videos[0].VideoURL != "https://cdn.example.com/final-videos/"+newKey {
		t.Errorf("metadata must point at the live artifact, got %+v", store.videos)
	}
}

func TestFinalizeJobDeleteFailureIsBestEffort(t *testing.T) {
	job := rerenderedJob("out-old-v1.mp4")
	store := &fakeFinalizeStore{}
	artifacts := &fakeArtifactStore{
		objects:   map[string]bool{"final-videos/out-old-v1.mp4": true},
		deleteErr: errors.New("503 service unavailable"),
	}

	if err := finalizeJob(context.Background(), store, artifacts, "final-videos", job, "out-new-v2.mp4"); err != nil {
		t.Fatalf("a failed artifact delete must not fail a finished render: %v", err)
	}

	if len(store.cleared) != 0 {
		t.Error("marker must stay set when the delete fails, so the next version retries cleanup")
	}
	if len(store.videos) != 1 {
		t.Error("metadata upsert should still happen")
	}
}

func TestFinalizeJobFirstRenderHasNothingToDelete(t *testing.T) {
	job := rerenderedJob("")
	store := &fakeFinalizeStore{}
	artifacts := &fakeArtifactStore{objects: map[string]bool{}}

	if err := finalizeJob(context.Background(), store, artifacts, "final-videos", job, "out-first-v1.mp4"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(store.cleared) != 0 {
		t.Error("nothing to clear on a first render")
	}
}

func TestFinalizeJobUpsertFailureIsFatal(t *testing.T) {
	job := rerenderedJob("")
	store := &fakeFinalizeStore{upsertErr: errors.New("connection refused")}

	err := finalizeJob(context.Background(), store, &fakeArtifactStore{objects: map[string]bool{}}, "final-videos", job, "out-x-v1.mp4")
	if err == nil {
		t.Fatal("a metadata upsert failure must surface as an error")
	}
}
