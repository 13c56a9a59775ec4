package titlematch_test

import (
	"math"
	"testing"

	"moviepoll/internal/titlematch"
)

func TestEditDistance(t *testing.T) {
	tests := []struct {
		a, b string
		want int
	}{
		{"kitten", "sitting", 3},
		{"", "abc", 3},
		{"abc", "", 3},
		{"flaw", "lawn", 2},
		{"café", "cafe", 1},
		{"gumbo", "gambol", 2},
	}
	for _, tt := range tests {
		if got := titlematch.EditDistance(tt.a, tt.b); got != tt.want {
			t.Errorf("EditDistance(%q, %q) = %d, want %d", tt.a, tt.b, got, tt.want)
		}
		if got := titlematch.EditDistance(tt.b, tt.a); got != tt.want {
			t.Errorf("EditDistance(%q, %q) = %d, want %d (symmetry)", tt.b, tt.a, got, tt.want)
		}
	}
}

func TestEditDistanceIdentity(t *testing.T) {
	for _, s := range []string{"", "a", "the thing", "千と千尋の神隠し", "blade runner 2049"} {
		if got := titlematch.EditDistance(s, s); got != 0 {
			t.Errorf("EditDistance(%q, itself) = %d", s, got)
		}
	}
}

func TestWordDistance(t *testing.T) {
	tests := []struct {
		name string
		a, b string
		want int
	}{
		{"reordered", "star wars", "wars star", 0},
		{"plural", "alien", "aliens", 1},
		{"typo in one word", "jurasic park", "jurassic park", 1},
		{"hyphen split", "matrix", "the-matrix", 0},
		{"underscore split", "blade_runner", "runner blade", 0},
		{"no words on the right", "matrix", "", 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := titlematch.WordDistance(tt.a, tt.b); got != tt.want {
				t.Errorf("WordDistance(%q, %q) = %d, want %d", tt.a, tt.b, got, tt.want)
			}
		})
	}
}

func TestScore(t *testing.T) {
	if got := titlematch.Score("the thing", "the thing", titlematch.MovieWeights); got != 0 {
		t.Fatalf("identical strings scored %v", got)
	}

	tests := []struct {
		name    string
		weights titlematch.Weights
		want    float64
	}{
		{"movie weights", titlematch.MovieWeights, 6.4},
		{"text weights", titlematch.TextWeights, 5.7},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := titlematch.Score("jurasic park", "jurassic park", tt.weights)
			if math.Abs(got-tt.want) > 1e-9 {
				t.Fatalf("Score = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestScorePrefersWordOverlap(t *testing.T) {
	reordered := titlematch.Score("wars star", "star wars", titlematch.MovieWeights)
	unrelated := titlematch.Score("wars star", "zoolander", titlematch.MovieWeights)
	if reordered >= unrelated {
		t.Fatalf("expected reordered title (%v) to beat unrelated title (%v)", reordered, unrelated)
	}
}
