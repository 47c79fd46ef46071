// Package timeline derives the frame-accurate composition schedule from a
// storyboard and the measured narration durations. Everything here is pure
// computation: the same inputs always produce the same Timeline.
package timeline

import (
	"math"

	"github.com/adreel/adreel/internal/models"
)

// Options carries the fixed composition parameters and the auxiliary track
// references. Empty refs simply omit the track.
type Options struct {
	FPS         int
	IntroFrames int

	MusicURL        string
	NarrationBedURL string
	LogoURL         string
	LogoPosition    models.LogoPosition
}

// Compose merges storyboard segments and measured narration durations into
// an ordered, contiguous, non-overlapping schedule. audio is indexed by
// segment; a nil entry means the segment has no narration and the planned
// duration applies. A measured duration always supersedes the planned one.
//
// An empty sequence yields a timeline of just the intro plus auxiliary
// tracks, with TotalFrames == IntroFrames.
func Compose(sb models.Storyboard, audio []*models.AudioRef, opts Options) models.Timeline {
	segments := make([]models.TimelineSegment, len(sb.Sequence))

	next := opts.IntroFrames
	for i, seg := range sb.Sequence {
		seconds := seg.Duration
		var ref *models.AudioRef
		if i < len(audio) && audio[i] != nil {
			ref = audio[i]
			seconds = ref.DurationSeconds
		}

		// Zero-duration segments (after rounding) keep their index for
		// traceability; they just contribute no visible time.
		frames := RoundFrames(seconds, opts.FPS)

		segments[i] = models.TimelineSegment{
			StartFrame:     next,
			DurationFrames: frames,
			Clip:           seg.Clip,
			Text:           seg.Text,
			Audio:          ref,
		}
		next += frames
	}

	total := next

	return models.Timeline{
		FPS:         opts.FPS,
		IntroFrames: opts.IntroFrames,
		Segments:    segments,
		TotalFrames: total,
		AuxTracks:   buildAuxTracks(total, opts),
	}
}

// buildAuxTracks spans every configured overlay across the full composition,
// independent of segment boundaries.
func buildAuxTracks(totalFrames int, opts Options) []models.AuxTrack {
	var tracks []models.AuxTrack

	if opts.MusicURL != "" {
		tracks = append(tracks, models.AuxTrack{
			Kind:           models.TrackMusic,
			StartFrame:     0,
			DurationFrames: totalFrames,
			Ref:            opts.MusicURL,
		})
	}

	if opts.NarrationBedURL != "" {
		tracks = append(tracks, models.AuxTrack{
			Kind:           models.TrackNarrationBed,
			StartFrame:     0,
			DurationFrames: totalFrames,
			Ref:            opts.NarrationBedURL,
		})
	}

	if opts.LogoURL != "" {
		position := opts.LogoPosition
		if position == "" {
			position = models.LogoBottom
		}
		tracks = append(tracks, models.AuxTrack{
			Kind:           models.TrackLogo,
			StartFrame:     0,
			DurationFrames: totalFrames,
			Ref:            opts.LogoURL,
			Position:       position,
		})
	}

	return tracks
}

// RoundFrames converts seconds to a frame count using round-half-up.
// Negative durations clamp to zero so frame values stay non-negative.
func RoundFrames(seconds float64, fps int) int {
	if seconds <= 0 {
		return 0
	}
	return int(math.Floor(seconds*float64(fps) + 0.5))
}
