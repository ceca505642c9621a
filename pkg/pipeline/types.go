package pipeline

import (
	"context"
	"time"

	"github.com/devraulu/refscout/pkg/reference"
	"github.com/devraulu/refscout/pkg/summarize"
)

type Searcher interface {
	Search(ctx context.Context, query string, limit int) ([]reference.Candidate, error)
}

type Fetcher interface {
	Fetch(ctx context.Context, url string) (*reference.ExtractedContent, error)
}

type Summarizer interface {
	Summarize(ctx context.Context, in summarize.Input, query string) (reference.Summary, error)
}

type Scorer interface {
	Score(s reference.Summary, text, query string) float64
}

// Cache never fails: a broken store reads as a miss and drops writes.
type Cache interface {
	Get(ctx context.Context, key string) (reference.Summary, bool)
	Put(ctx context.Context, key string, s reference.Summary)
	PutTTL(ctx context.Context, key string, s reference.Summary, ttl time.Duration)
}

type status int

const (
	statusSummarized status = iota
	statusCached
	statusDisallowed
	statusFailed
	statusInternal
)

func (s status) String() string {
	switch s {
	case statusSummarized:
		return "summarized"
	case statusCached:
		return "cached"
	case statusDisallowed:
		return "disallowed"
	case statusFailed:
		return "failed"
	default:
		return "internal"
	}
}

// outcome is what a worker reports for one candidate.
type outcome struct {
	candidate reference.Candidate
	status    status
	summary   reference.Summary
	err       error
	elapsed   time.Duration
}
