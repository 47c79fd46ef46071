package services

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"

	"github.com/adreel/adreel/internal/models"
)

// ---------------------------------------------------------------------------
// StoryboardGenerator — turns business metadata + clip references into a
// structured narrative plan via a generative-text provider. Malformed model
// output degrades to an empty storyboard rather than failing the job: an
// empty storyboard can be regenerated or hand-authored by the caller, while
// an error mid-pipeline would abandon otherwise-valid normalized clips.
// ---------------------------------------------------------------------------

// TextCompleter is the narrow contract a generative-text provider must
// satisfy. Gemini is preferred; OpenAI is the alternate.
type TextCompleter interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

type StoryboardGenerator struct {
	llm TextCompleter
}

func NewStoryboardGenerator(llm TextCompleter) *StoryboardGenerator {
	return &StoryboardGenerator{llm: llm}
}

// Generate builds the ad-writer prompt, requests a completion and parses the
// response. A provider/transport failure is returned as an error; a parse
// failure is recovered locally as the safe-empty storyboard.
func (g *StoryboardGenerator) Generate(ctx context.Context, businessName, category string, clips []models.ClipReference) (models.Storyboard, error) {
	prompt := buildStoryboardPrompt(businessName, category, clips)

	raw, err := g.llm.Complete(ctx, prompt)
	if err != nil {
		return models.Storyboard{}, fmt.Errorf("storyboard completion failed: %w", err)
	}

	sb := ParseStoryboard(raw, clips)
	log.Printf("[Storyboard] Generated %d segments for %q (%s)", len(sb.Sequence), businessName, category)
	return sb, nil
}

func buildStoryboardPrompt(businessName, category string, clips []models.ClipReference) string {
	clipList, _ := json.Marshal(clips)

	return fmt.Sprintf(`You are a creative ad writer. Create a short, punchy social media ad using the following info:

Business name: %q
Category: %q
Clips: %s

1. Create a storyboard: array of objects with:
   - "clip": use a clip URL from the list, or null for a text-only slide
   - "text": short marketing phrase for that clip
   - "duration": number of seconds (3-6)

2. Combine all text from all clips into a single "voiceover" string.

Return the result as valid JSON like this:

{
  "sequence": [ { "clip": "...", "text": "...", "duration": ... }, ... ],
  "voiceover": "..."
}
`, businessName, category, string(clipList))
}

// ParseStoryboard extracts a storyboard from raw model output: code-fence
// markers are stripped, parsing starts at the first '{', and any clip value
// that does not match a known reference is mapped to null rather than
// rejecting the whole storyboard. On parse failure the raw text is logged
// and the safe-empty storyboard is returned.
func ParseStoryboard(raw string, known []models.ClipReference) models.Storyboard {
	cleaned := strings.ReplaceAll(raw, "```json", "")
	cleaned = strings.ReplaceAll(cleaned, "```", "")
	cleaned = strings.TrimSpace(cleaned)

	start := strings.Index(cleaned, "{")
	if start < 0 {
		log.Printf("[Storyboard] No JSON object in model output: %s", truncateOutput(raw, 500))
		return models.Storyboard{Sequence: []models.NarrationSegment{}}
	}

	var sb models.Storyboard
	if err := json.Unmarshal([]byte(cleaned[start:]), &sb); err != nil {
		log.Printf("[Storyboard] Failed to parse model output: %v", err)
		log.Printf("[Storyboard] Raw output: %s", truncateOutput(raw, 2000))
		return models.Storyboard{Sequence: []models.NarrationSegment{}}
	}

	if sb.Sequence == nil {
		sb.Sequence = []models.NarrationSegment{}
	}

	for i := range sb.Sequence {
		sb.Sequence[i].Clip = matchClipRef(sb.Sequence[i].Clip, known)
		sb.Sequence[i].Text = strings.TrimSpace(sb.Sequence[i].Text)
		if sb.Sequence[i].Duration < 0 {
			sb.Sequence[i].Duration = 0
		}
	}

	return sb
}

// matchClipRef validates a model-emitted clip value against the supplied
// reference set. Models sometimes echo just the filename instead of the full
// URL, so a basename match is accepted too; anything else becomes null.
func matchClipRef(clip *models.ClipReference, known []models.ClipReference) *models.ClipReference {
	if clip == nil || *clip == "" {
		return nil
	}

	for i := range known {
		if known[i] == *clip {
			return &known[i]
		}
	}

	// Basename match: "clip_2.mp4" against ".../jobs/<id>/clip_2.mp4"
	base := string(*clip)
	if idx := strings.LastIndex(base, "/"); idx >= 0 {
		base = base[idx+1:]
	}
	if base != "" {
		for i := range known {
			if strings.HasSuffix(string(known[i]), "/"+base) {
				return &known[i]
			}
		}
	}

	log.Printf("[Storyboard] Unknown clip reference %q mapped to null", *clip)
	return nil
}
