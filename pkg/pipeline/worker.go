package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"runtime/debug"
	"time"

	"github.com/devraulu/refscout/pkg/reference"
	"github.com/devraulu/refscout/pkg/summarize"
)

func (r *run) worker(ctx context.Context, id int, jobs <-chan reference.Candidate, results chan<- outcome) {
	r.log.Debug("worker started", slog.Int("id", id))
	for {
		select {
		case <-ctx.Done():
			return
		case job, ok := <-jobs:
			if !ok {
				return
			}
			r.log.Debug("worker received job", slog.Int("id", id), slog.String("url", job.URL))
			results <- r.process(ctx, job)
		}
	}
}

// process takes one candidate through robots, cache, fetch, summarize, score
// and cache write. A panic is reported as an internal outcome.
func (r *run) process(ctx context.Context, c reference.Candidate) (out outcome) {
	start := time.Now()
	out = outcome{candidate: c}

	defer func() {
		if p := recover(); p != nil {
			r.log.Error("panic processing candidate", slog.String("url", c.URL), slog.String("stack", string(debug.Stack())))
			out = outcome{candidate: c, status: statusInternal, err: fmt.Errorf("panic: %v", p)}
		}
		out.elapsed = time.Since(start)
	}()

	if !r.robots.IsAllowed(ctx, c.URL) {
		out.status = statusDisallowed
		return out
	}

	cache := r.p.cache
	if cache != nil {
		if s, ok := cache.Get(ctx, c.Normalized); ok {
			out.status = statusCached
			out.summary = s
			return out
		}
	}

	content, err := r.p.fetcher.Fetch(ctx, c.URL)
	if err != nil {
		out.status = statusFailed
		out.err = err
		return out
	}

	title := content.Title
	if title == "" {
		title = c.Title
	}

	s, err := r.p.summarizer.Summarize(ctx, summarize.Input{
		URL:     c.URL,
		Title:   title,
		Text:    content.Text,
		Snippet: c.Snippet,
	}, r.query)
	if err != nil {
		out.status = statusFailed
		out.err = err
		return out
	}

	s.ConfidenceScore = r.p.scorer.Score(s, content.Text, r.query)

	// heuristic summaries get a short TTL so the model is retried soon
	switch {
	case cache == nil:
	case !s.Fallback:
		cache.Put(ctx, c.Normalized, s)
	case r.p.opts.FallbackTTL > 0:
		cache.PutTTL(ctx, c.Normalized, s, r.p.opts.FallbackTTL)
	}

	out.status = statusSummarized
	out.summary = s
	return out
}
