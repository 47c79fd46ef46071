// Package catalog looks up stock clips for a business category. Clips live
// in object storage under assets/clips/<category>/; categories are matched
// after normalization, with a nearest-neighbor suggestion when nothing
// matches exactly.
package catalog

import (
	"context"
	"fmt"
	"log"
	"math/rand"
	"net/url"
	"strings"

	"github.com/adreel/adreel/internal/models"
	"github.com/adreel/adreel/internal/storage"
)

const (
	clipsPrefix     = "assets/clips"
	defaultPickSize = 3
	listLimit       = 1000
)

// lister is the slice of the storage client the catalog needs.
type lister interface {
	List(ctx context.Context, bucket, prefix string, limit int) ([]storage.Entry, error)
	GetPublicURL(bucket, key string) string
}

type Catalog struct {
	storage lister
	bucket  string
}

func New(stor lister, bucket string) *Catalog {
	return &Catalog{storage: stor, bucket: bucket}
}

// Search returns up to n random clips for the category. When the category
// folder is empty, the closest known category name is returned as a
// suggestion instead.
func (c *Catalog) Search(ctx context.Context, category string, n int) ([]models.ClipReference, string, error) {
	if n <= 0 {
		n = defaultPickSize
	}

	normalized := NormalizeCategory(category)
	if normalized == "" {
		return nil, "", fmt.Errorf("empty category")
	}

	folder := clipsPrefix + "/" + normalized
	entries, err := c.storage.List(ctx, c.bucket, folder, listLimit)
	if err != nil {
		return nil, "", fmt.Errorf("failed to list clips for %q: %w", category, err)
	}

	if len(entries) == 0 {
		suggestion, err := c.suggestCategory(ctx, normalized)
		if err != nil {
			log.Printf("[Catalog] No clips for %q and suggestion lookup failed: %v", category, err)
			return []models.ClipReference{}, "", nil
		}
		return []models.ClipReference{}, suggestion, nil
	}

	urls := make([]models.ClipReference, 0, len(entries))
	for _, e := range entries {
		key := folder + "/" + e.Name
		// Encode so spaces or special chars in filenames stay valid URLs
		urls = append(urls, models.ClipReference(c.storage.GetPublicURL(c.bucket, (&url.URL{Path: key}).EscapedPath())))
	}

	return PickRandom(urls, n), "", nil
}

// suggestCategory lists the category folders and returns the one closest to
// the requested name, or empty when the catalog has nothing similar.
func (c *Catalog) suggestCategory(ctx context.Context, normalized string) (string, error) {
	entries, err := c.storage.List(ctx, c.bucket, clipsPrefix, listLimit)
	if err != nil {
		return "", err
	}

	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, e.Name)
	}

	return ClosestMatch(normalized, names), nil
}

// NormalizeCategory lowercases and strips everything but letters and digits,
// matching how catalog folders are named ("Coffee Shop" -> "coffeeshop").
func NormalizeCategory(s string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(strings.TrimSpace(s)) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// ClosestMatch returns the candidate with the smallest edit distance to
// target, or empty when nothing is within half the target's length —
// beyond that a suggestion is more confusing than helpful.
func ClosestMatch(target string, candidates []string) string {
	best := ""
	bestDist := len(target)/2 + 1

	for _, cand := range candidates {
		normalized := NormalizeCategory(cand)
		if normalized == "" {
			continue
		}
		if d := editDistance(target, normalized); d < bestDist {
			best = normalized
			bestDist = d
		}
	}

	return best
}

// editDistance is the Levenshtein distance between two strings.
func editDistance(a, b string) int {
	if a == b {
		return 0
	}

	prev := make([]int, len(b)+1)
	curr := make([]int, len(b)+1)
	for j := range prev {
		prev[j] = j
	}

	for i := 1; i <= len(a); i++ {
		curr[0] = i
		for j := 1; j <= len(b); j++ {
			cost := 1
			if a[i-1] == b[j-1] {
				cost = 0
			}
			curr[j] = min3(prev[j]+1, curr[j-1]+1, prev[j-1]+cost)
		}
		prev, curr = curr, prev
	}

	return prev[len(b)]
}

func min3(a, b, c int) int {
	if b < a {
		a = b
	}
	if c < a {
		a = c
	}
	return a
}

// PickRandom returns up to n elements of refs in random order without
// repeats. The input slice is not modified.
func PickRandom(refs []models.ClipReference, n int) []models.ClipReference {
	if n >= len(refs) {
		n = len(refs)
	}

	copied := make([]models.ClipReference, len(refs))
	copy(copied, refs)
	rand.Shuffle(len(copied), func(i, j int) {
		copied[i], copied[j] = copied[j], copied[i]
	})

	return copied[:n]
}
