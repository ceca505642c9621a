package reference

import (
	"errors"
	"time"
)

// DefaultTTL is how long a summary stays trusted after summarization.
const DefaultTTL = 7 * 24 * time.Hour

type Candidate struct {
	URL        string `json:"url"`
	Normalized string `json:"-"`
	Title      string `json:"title"`
	Snippet    string `json:"snippet"`
	Rank       int    `json:"rank"`
	ProviderID string `json:"provider_id"`
}

type ExtractionMethod string

const (
	ExtractionPrimary  ExtractionMethod = "primary"
	ExtractionFallback ExtractionMethod = "fallback"
)

type ExtractedContent struct {
	URL         string
	Title       string
	Text        string
	Method      ExtractionMethod
	ContentHash string
	FetchedAt   time.Time
}

// Summary is the unit handed to consumers and the unit stored in the cache.
type Summary struct {
	URL             string    `json:"url"`
	Title           string    `json:"title"`
	Highlights      []string  `json:"highlights"`
	Assumptions     []string  `json:"assumptions"`
	Components      []string  `json:"components"`
	ConfidenceScore float64   `json:"confidence_score"`
	Snippet         string    `json:"snippet"`
	SummarizedAt    time.Time `json:"summarized_at"`
	Fallback        bool      `json:"fallback,omitempty"`
}

type CacheEntry struct {
	Key       string
	Summary   Summary
	ExpiresAt time.Time
}

func (e CacheEntry) Expired(now time.Time) bool {
	return now.After(e.ExpiresAt)
}

// Request is the retrieve_refs body. A nil MaxResults means the server default.
type Request struct {
	Query      string `json:"query"`
	MaxResults *int   `json:"max_results,omitempty"`
}

type Result struct {
	Query      string    `json:"query"`
	References []Summary `json:"references"`
	Stats      RunStats  `json:"-"`
}

// RunStats lets callers tell an empty search apart from a broken run.
type RunStats struct {
	RunID      string
	Candidates int
	Disallowed int
	CacheHits  int
	Fetched    int
	Failed     int
	Fallbacks  int
	Abandoned  int
	Internal   int
	Elapsed    time.Duration
}

var (
	ErrProviderUnavailable = errors.New("no search provider available")
	ErrInvalidRequest      = errors.New("invalid request")
)
