package search

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/devraulu/refscout/pkg/process"
	"github.com/devraulu/refscout/pkg/reference"
)

// Provider is one search backend.
type Provider interface {
	Name() string
	// Configured reports whether the provider has what it needs to be called.
	Configured() bool
	Search(ctx context.Context, query string, limit int) ([]reference.Candidate, error)
}

type AdapterOptions struct {
	Timeout    time.Duration
	RatePerSec float64
}

// Adapter tries providers in priority order. The first provider that answers
// without error wins, even with zero results.
type Adapter struct {
	providers []Provider
	timeout   time.Duration
	limiters  map[string]*rate.Limiter
}

func NewAdapter(providers []Provider, opts AdapterOptions) *Adapter {
	a := &Adapter{
		providers: providers,
		timeout:   opts.Timeout,
		limiters:  make(map[string]*rate.Limiter),
	}
	if opts.RatePerSec > 0 {
		for _, p := range providers {
			a.limiters[p.Name()] = rate.NewLimiter(rate.Limit(opts.RatePerSec), 1)
		}
	}
	return a
}

func (a *Adapter) Search(ctx context.Context, query string, limit int) ([]reference.Candidate, error) {
	var errs []error
	tried := 0

	for _, p := range a.providers {
		if !p.Configured() {
			slog.Debug("search provider not configured", slog.String("provider", p.Name()))
			continue
		}
		if ctx.Err() != nil {
			errs = append(errs, ctx.Err())
			break
		}
		tried++

		results, err := a.call(ctx, p, query, limit)
		if err != nil {
			slog.Warn("search provider failed, trying next", slog.String("provider", p.Name()), slog.Any("err", err))
			errs = append(errs, fmt.Errorf("%s: %w", p.Name(), err))
			continue
		}

		candidates := Dedupe(stamp(results, p.Name()))
		if limit > 0 && len(candidates) > limit {
			candidates = candidates[:limit]
		}

		slog.Info("search complete",
			slog.String("provider", p.Name()),
			slog.String("query", query),
			slog.Int("results", len(candidates)),
		)
		return candidates, nil
	}

	if tried == 0 {
		return nil, fmt.Errorf("%w: none configured", reference.ErrProviderUnavailable)
	}
	return nil, fmt.Errorf("%w: %w", reference.ErrProviderUnavailable, errors.Join(errs...))
}

func (a *Adapter) call(ctx context.Context, p Provider, query string, limit int) ([]reference.Candidate, error) {
	if l, ok := a.limiters[p.Name()]; ok {
		if err := l.Wait(ctx); err != nil {
			return nil, err
		}
	}

	if a.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, a.timeout)
		defer cancel()
	}

	return p.Search(ctx, query, limit)
}

// stamp fills in provider id and positional rank where the backend gave none.
func stamp(results []reference.Candidate, provider string) []reference.Candidate {
	out := make([]reference.Candidate, len(results))
	for i, c := range results {
		if c.Rank <= 0 {
			c.Rank = i + 1
		}
		c.ProviderID = provider
		c.Title = strings.TrimSpace(c.Title)
		c.Snippet = strings.TrimSpace(c.Snippet)
		out[i] = c
	}
	return out
}

// Dedupe collapses candidates sharing a normalized URL, keeping the lowest
// rank, and returns them ordered by rank. Unusable URLs are dropped.
func Dedupe(candidates []reference.Candidate) []reference.Candidate {
	byKey := make(map[string]int)
	var out []reference.Candidate

	for _, c := range candidates {
		lower := strings.ToLower(c.URL)
		if !strings.HasPrefix(lower, "http://") && !strings.HasPrefix(lower, "https://") {
			continue
		}
		key, err := process.CacheKey(c.URL)
		if err != nil {
			continue
		}
		c.Normalized = key

		if i, ok := byKey[key]; ok {
			if c.Rank < out[i].Rank {
				out[i] = c
			}
			continue
		}
		byKey[key] = len(out)
		out = append(out, c)
	}

	sort.SliceStable(out, func(i, j int) bool { return out[i].Rank < out[j].Rank })
	return out
}
