package score

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/devraulu/refscout/pkg/reference"
)

var defaultWeights = Weights{Model: 0.6, Overlap: 0.3, Length: 0.1, Trusted: 0.05}

func summary(url string, confidence float64) reference.Summary {
	return reference.Summary{URL: url, Title: "Designing a URL Shortener", ConfidenceScore: confidence}
}

func TestTerms(t *testing.T) {
	assert.Equal(t, []string{"design", "url", "shortener"}, Terms("Design a URL shortener, a URL shortener!"))
	assert.Empty(t, Terms("the a of"))
}

func TestOverlap(t *testing.T) {
	assert.Equal(t, 1.0, Overlap("url shortener", "A URL Shortener service"))
	assert.Equal(t, 0.5, Overlap("url shortener", "url only"))
	assert.Equal(t, 0.0, Overlap("the", "the the"))
}

func TestScoreCombinesSignals(t *testing.T) {
	s := New(defaultWeights, 100, nil)
	text := strings.Repeat("x", 100)

	got := s.Score(summary("https://example.com", 0.5), text, "URL shortener")
	assert.InDelta(t, 0.6*0.5+0.3*1+0.1*1, got, 1e-9)
}

func TestScorePenalizesShortText(t *testing.T) {
	s := New(defaultWeights, 1000, nil)
	long := s.Score(summary("https://example.com", 0.8), strings.Repeat("y", 1000), "cdn")
	short := s.Score(summary("https://example.com", 0.8), "y", "cdn")
	assert.Greater(t, long, short)
}

func TestScoreTrustedBonus(t *testing.T) {
	s := New(defaultWeights, 10, []string{"github.com"})
	trusted := s.Score(summary("https://github.com/x", 0.5), "text here", "queue")
	other := s.Score(summary("https://example.com/x", 0.5), "text here", "queue")
	assert.InDelta(t, 0.05, trusted-other, 1e-9)
}

func TestScoreClampedAndDeterministic(t *testing.T) {
	s := New(Weights{Model: 1, Overlap: 1, Length: 1, Trusted: 1}, 1, []string{"example.com"})
	sum := summary("https://example.com", 3)

	first := s.Score(sum, "URL shortener", "URL shortener")
	assert.Equal(t, 1.0, first)
	assert.Equal(t, first, s.Score(sum, "URL shortener", "URL shortener"))

	neg := New(Weights{Model: 1}, 1, nil).Score(summary("https://a.io", -4), "", "q")
	assert.Equal(t, 0.0, neg)
}

func TestScoreFallbackIsZero(t *testing.T) {
	s := New(defaultWeights, 10, []string{"example.com"})
	sum := summary("https://example.com", 0.9)
	sum.Fallback = true
	assert.Equal(t, 0.0, s.Score(sum, strings.Repeat("z", 100), "URL shortener"))
}
