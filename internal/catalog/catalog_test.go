package catalog

import (
	"context"
	"testing"

	"github.com/adreel/adreel/internal/models"
	"github.com/adreel/adreel/internal/storage"
)

func TestNormalizeCategory(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"bakery", "bakery"},
		{"Coffee Shop", "coffeeshop"},
		{"  Pizza-Restaurant!  ", "pizzarestaurant"},
		{"Tech Store 24/7", "techstore247"},
		{"---", ""},
	}

	for _, tt := range tests {
		if got := NormalizeCategory(tt.in); got != tt.want {
			t.Errorf("NormalizeCategory(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestClosestMatch(t *testing.T) {
	candidates := []string{"bakery", "barbershop", "bookstore", "gym"}

	if got := ClosestMatch("bakeri", candidates); got != "bakery" {
		t.Errorf("ClosestMatch(bakeri) = %q, want bakery", got)
	}
	if got := ClosestMatch("gyms", candidates); got != "gym" {
		t.Errorf("ClosestMatch(gyms) = %q, want gym", got)
	}
	// Nothing remotely similar — no suggestion
	if got := ClosestMatch("quantumphysics", candidates); got != "" {
		t.Errorf("ClosestMatch(quantumphysics) = %q, want empty", got)
	}
}

func TestPickRandom(t *testing.T) {
	refs := []models.ClipReference{"a", "b", "c", "d", "e"}

	picks := PickRandom(refs, 3)
	if len(picks) != 3 {
		t.Fatalf("expected 3 picks, got %d", len(picks))
	}

	seen := map[models.ClipReference]bool{}
	for _, p := range picks {
		if seen[p] {
			t.Errorf("duplicate pick %q", p)
		}
		seen[p] = true
	}

	// Asking for more than available returns everything
	if got := PickRandom(refs, 10); len(got) != len(refs) {
		t.Errorf("expected %d picks, got %d", len(refs), len(got))
	}
}

// fakeLister serves canned storage listings.
type fakeLister struct {
	entries map[string][]storage.Entry
}

func (f *fakeLister) List(_ context.Context, _, prefix string, _ int) ([]storage.Entry, error) {
	return f.entries[prefix], nil
}

func (f *fakeLister) GetPublicURL(bucket, key string) string {
	return "https://cdn.example.com/" + bucket + "/" + key
}

func TestSearchReturnsClips(t *testing.T) {
	c := New(&fakeLister{entries: map[string][]storage.Entry{
		"assets/clips/bakery": {{Name: "one.mp4"}, {Name: "two.mp4"}},
	}}, "video-assets")

	clips, suggestion, err := c.Search(context.Background(), "Bakery", 3)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if suggestion != "" {
		t.Errorf("unexpected suggestion %q", suggestion)
	}
	if len(clips) != 2 {
		t.Fatalf("expected 2 clips, got %d", len(clips))
	}
}

func TestSearchSuggestsNearestCategory(t *testing.T) {
	c := New(&fakeLister{entries: map[string][]storage.Entry{
		"assets/clips": {{Name: "bakery"}, {Name: "gym"}},
	}}, "video-assets")

	clips, suggestion, err := c.Search(context.Background(), "bakeri", 3)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(clips) != 0 {
		t.Errorf("expected no clips, got %d", len(clips))
	}
	if suggestion != "bakery" {
		t.Errorf("suggestion = %q, want bakery", suggestion)
	}
}
