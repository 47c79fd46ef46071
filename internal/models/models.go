package models

import (
	"time"

	"github.com/google/uuid"
)

// ---------------------------------------------------------------------------
// Core pipeline types
// ---------------------------------------------------------------------------

// ClipReference is the stable public URL of a normalized vertical clip.
// Immutable once produced by the transcoder.
type ClipReference string

// NarrationSegment is one unit of the storyboard: a clip (or nil for a
// text-only slide), the on-screen/narrated text, and the AI's planned
// duration in seconds. The planned duration is only an estimate — the
// timeline composer replaces it with the measured narration duration
// whenever audio exists.
type NarrationSegment struct {
	Clip     *ClipReference `json:"clip"`
	Text     string         `json:"text"`
	Duration float64        `json:"duration"`
}

// Storyboard is the structured narrative plan for one render job.
// Voiceover is a denormalized concatenation of all segment text, kept for
// the legacy single-track narration mode; per-segment synthesis ignores it.
type Storyboard struct {
	Sequence  []NarrationSegment `json:"sequence"`
	Voiceover string             `json:"voiceover"`
}

// AudioRef is one synthesized narration clip. DurationSeconds is measured
// by probing the actual audio file and is ground truth for timeline math.
type AudioRef struct {
	URL             string  `json:"url"`
	DurationSeconds float64 `json:"duration_seconds"`
}

// ---------------------------------------------------------------------------
// Timeline — frozen frame-accurate schedule
// ---------------------------------------------------------------------------

type TrackKind string

const (
	TrackMusic        TrackKind = "music"
	TrackLogo         TrackKind = "logo"
	TrackNarrationBed TrackKind = "narration_bed"
)

type LogoPosition string

const (
	LogoTop    LogoPosition = "top"
	LogoBottom LogoPosition = "bottom"
	LogoBoth   LogoPosition = "both"
)

// TimelineSegment schedules one storyboard segment at a fixed frame range.
// Clip is nil for text-only slides (rendered as a solid background).
type TimelineSegment struct {
	StartFrame     int            `json:"start_frame"`
	DurationFrames int            `json:"duration_frames"`
	Clip           *ClipReference `json:"clip"`
	Text           string         `json:"text"`
	Audio          *AudioRef      `json:"audio,omitempty"`
}

// AuxTrack is a full-duration overlay (music, logo, narration bed) not tied
// to any single segment's boundaries.
type AuxTrack struct {
	Kind           TrackKind    `json:"kind"`
	StartFrame     int          `json:"start_frame"`
	DurationFrames int          `json:"duration_frames"`
	Ref            string       `json:"ref"`
	Position       LogoPosition `json:"position,omitempty"`
}

// Timeline is the single source of truth handed to rendering. It is never
// mutated after construction — any change requires composing a new Timeline.
type Timeline struct {
	FPS         int               `json:"fps"`
	IntroFrames int               `json:"intro_frames"`
	Segments    []TimelineSegment `json:"segments"`
	TotalFrames int               `json:"total_frames"`
	AuxTracks   []AuxTrack        `json:"aux_tracks"`
}

// ---------------------------------------------------------------------------
// Props document — the persisted contract with the rendering engine.
// Field names and nesting must stay stable across renders of the same job
// version; the composition reads them by name.
// ---------------------------------------------------------------------------

type PropsDocument struct {
	Storyboard         Storyboard      `json:"storyboard"`
	Timeline           Timeline        `json:"timeline"`
	ClipRefs           []ClipReference `json:"clipRefs"`
	Font               string          `json:"font"`
	Theme              string          `json:"theme"`
	LogoURL            string          `json:"logoUrl"`
	BackgroundMusicURL string          `json:"backgroundMusicUrl"`
	DurationInFrames   int             `json:"durationInFrames"`
}

// ---------------------------------------------------------------------------
// Render job + status state machine
// ---------------------------------------------------------------------------

type JobStatus string

const (
	JobStatusQueued           JobStatus = "queued"
	JobStatusAssetsNormalized JobStatus = "assets_normalized"
	JobStatusStoryboardReady  JobStatus = "storyboard_ready"
	JobStatusNarrationReady   JobStatus = "narration_ready"
	JobStatusTimelineFrozen   JobStatus = "timeline_frozen"
	JobStatusRendering        JobStatus = "rendering"
	JobStatusUploaded         JobStatus = "uploaded"
	JobStatusCompleted        JobStatus = "completed"
	JobStatusFailed           JobStatus = "failed"
)

// statusOrder gives each forward state its position in the pipeline.
var statusOrder = map[JobStatus]int{
	JobStatusQueued:           0,
	JobStatusAssetsNormalized: 1,
	JobStatusStoryboardReady:  2,
	JobStatusNarrationReady:   3,
	JobStatusTimelineFrozen:   4,
	JobStatusRendering:        5,
	JobStatusUploaded:         6,
	JobStatusCompleted:        7,
}

// Terminal reports whether no further transitions are allowed.
func (s JobStatus) Terminal() bool {
	return s == JobStatusCompleted || s == JobStatusFailed
}

// CanTransition reports whether moving from s to next is legal. Transitions
// are strictly forward, one step at a time; Failed is reachable from any
// non-terminal state. There is no retry-in-place: a failed render requires
// a new render version.
func (s JobStatus) CanTransition(next JobStatus) bool {
	if s.Terminal() {
		return false
	}
	if next == JobStatusFailed {
		return true
	}
	from, ok := statusOrder[s]
	if !ok {
		return false
	}
	to, ok := statusOrder[next]
	if !ok {
		return false
	}
	return to == from+1
}

// RenderJob is one logical ad-video job. Version counts render attempts of
// the same logical job; PreviousOutputKey tracks the artifact superseded by
// the current version, deleted from storage on completion.
type RenderJob struct {
	ID                uuid.UUID       `json:"id"`
	BusinessName      string          `json:"business_name"`
	Category          string          `json:"category"`
	Font              string          `json:"font"`
	Theme             string          `json:"theme"`
	LogoURL           *string         `json:"logo_url,omitempty"`
	SourceClips       []string        `json:"source_clips"`
	ClipRefs          []ClipReference `json:"clip_refs,omitempty"`
	Storyboard        *Storyboard     `json:"storyboard,omitempty"`
	Timeline          *Timeline       `json:"timeline,omitempty"`
	Status            JobStatus       `json:"status"`
	Version           int             `json:"version"`
	OutputKey         *string         `json:"output_key,omitempty"`
	PreviousOutputKey *string         `json:"previous_output_key,omitempty"`
	ErrorMessage      *string         `json:"error_message,omitempty"`
	CreatedAt         time.Time       `json:"created_at"`
	UpdatedAt         time.Time       `json:"updated_at"`
}

// VideoRecord is the metadata row upserted once a render completes.
type VideoRecord struct {
	JobID        uuid.UUID `json:"job_id"`
	BusinessName string    `json:"business_name"`
	Category     string    `json:"category"`
	Font         string    `json:"font"`
	LogoURL      string    `json:"logo_url"`
	VideoURL     string    `json:"video_url"`
	CreatedAt    time.Time `json:"created_at"`
}

// ---------------------------------------------------------------------------
// API DTOs
// ---------------------------------------------------------------------------

type CreateVideoRequest struct {
	BusinessName string      `json:"business_name"`
	Category     string      `json:"category"`
	Font         string      `json:"font,omitempty"`
	Theme        string      `json:"theme,omitempty"`
	LogoURL      *string     `json:"logo_url,omitempty"`
	Clips        []string    `json:"clips"`
	Storyboard   *Storyboard `json:"storyboard,omitempty"` // pre-authored; skips generation
}

type CreateVideoResponse struct {
	JobID  uuid.UUID `json:"job_id"`
	Status JobStatus `json:"status"`
}

type RenderJobResponse struct {
	RenderJob
	VideoURL *string `json:"video_url,omitempty"`
}

type ListJobsResponse struct {
	Jobs   []RenderJobResponse `json:"jobs"`
	Total  int                 `json:"total"`
	Limit  int                 `json:"limit"`
	Offset int                 `json:"offset"`
}

type ClipSearchResponse struct {
	Clips      []ClipReference `json:"clips"`
	Suggestion string          `json:"suggestion,omitempty"`
}
