package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sort"
	"time"

	"github.com/google/uuid"

	frontier "github.com/devraulu/refscout/pkg"
	"github.com/devraulu/refscout/pkg/config"
	"github.com/devraulu/refscout/pkg/fetch"
	"github.com/devraulu/refscout/pkg/process"
	"github.com/devraulu/refscout/pkg/reference"
	"github.com/devraulu/refscout/pkg/score"
	"github.com/devraulu/refscout/pkg/search"
	"github.com/devraulu/refscout/pkg/storage"
	"github.com/devraulu/refscout/pkg/summarize"
)

// candidateFactor is how many search results are requested per wanted
// reference, leaving room for disallowed and failing pages.
const candidateFactor = 2

// MaxResultsLimit caps max_results so the search limit stays bounded.
const MaxResultsLimit = 50

type Options struct {
	Workers       int
	Deadline      time.Duration
	UserAgent     string
	RobotsAgent   string
	RobotsTimeout time.Duration
	Delay         time.Duration
	MaxCrawlDelay time.Duration
	QuerySuffix   string
	// FallbackTTL is how long heuristic summaries stay cached. Zero means
	// one hour, negative disables caching them.
	FallbackTTL   time.Duration
}

type Pipeline struct {
	searcher   Searcher
	fetcher    Fetcher
	summarizer Summarizer
	scorer     Scorer
	cache      Cache
	client     *http.Client
	opts       Options
}

func New(s Searcher, f Fetcher, sum Summarizer, sc Scorer, c Cache, client *http.Client, opts Options) *Pipeline {
	if opts.Workers <= 0 {
		opts.Workers = 4
	}
	if opts.Deadline <= 0 {
		opts.Deadline = 45 * time.Second
	}
	if opts.FallbackTTL == 0 {
		opts.FallbackTTL = time.Hour
	}
	if client == nil {
		client = &http.Client{}
	}
	return &Pipeline{
		searcher:   s,
		fetcher:    f,
		summarizer: sum,
		scorer:     sc,
		cache:      c,
		client:     client,
		opts:       opts,
	}
}

// NewFromConfig wires the production collaborators around store. A nil store
// runs without a cache.
func NewFromConfig(cfg *config.Config, store storage.Store) *Pipeline {
	client := &http.Client{}

	cache := storage.NewReferenceCache(store, storage.CacheOptions{
		TTL:     cfg.Cache.GetTTL(),
		Timeout: cfg.Cache.GetTimeout(),
	})

	return New(
		search.FromConfig(cfg.Search, client),
		fetch.NewFromConfig(cfg.Fetch),
		summarize.NewFromConfig(cfg.Summarizer),
		score.NewFromConfig(cfg.Scoring, cfg.Fetch.TrustedDomains),
		cache,
		client,
		Options{
			Workers:       cfg.Pipeline.Workers,
			Deadline:      cfg.Pipeline.GetDeadline(),
			UserAgent:     cfg.Fetch.UserAgent,
			RobotsAgent:   cfg.Politeness.RobotsAgent,
			RobotsTimeout: cfg.Politeness.GetRobotsTimeout(),
			Delay:         cfg.Politeness.GetDelay(),
			MaxCrawlDelay: cfg.Politeness.GetMaxCrawlDelay(),
			QuerySuffix:   cfg.Search.QuerySuffix,
			FallbackTTL:   cfg.Cache.GetFallbackTTL(),
		},
	)
}

// Run retrieves up to maxResults reference summaries for query. maxResults
// above MaxResultsLimit is clamped. An empty result is a success. The only
// error is ErrInvalidRequest.
func (p *Pipeline) Run(ctx context.Context, query string, maxResults int) (reference.Result, error) {
	query = process.NormalizeQuery(query)
	if query == "" {
		return reference.Result{}, fmt.Errorf("%w: empty query", reference.ErrInvalidRequest)
	}
	if maxResults <= 0 {
		return reference.Result{}, fmt.Errorf("%w: max_results must be positive", reference.ErrInvalidRequest)
	}
	maxResults = min(maxResults, MaxResultsLimit)
	if p.searcher == nil || p.fetcher == nil || p.summarizer == nil || p.scorer == nil {
		return reference.Result{}, fmt.Errorf("%w: pipeline is missing a collaborator", reference.ErrInvalidRequest)
	}

	id := uuid.NewString()
	r := &run{
		p:        p,
		query:    query,
		log:      slog.With(slog.String("run_id", id)),
		robots:   newRobots(p),
		frontier: frontier.NewFrontier(),
		start:    time.Now(),
		stats:    reference.RunStats{RunID: id},
	}

	ctx, cancel := context.WithTimeout(ctx, p.opts.Deadline)
	defer cancel()

	r.log.Info("run started", slog.String("query", query), slog.Int("max_results", maxResults))

	searchQuery := process.EnhanceQuery(query, p.opts.QuerySuffix)
	candidates, err := p.searcher.Search(ctx, searchQuery, maxResults*candidateFactor)
	if err != nil {
		if errors.Is(err, reference.ErrProviderUnavailable) {
			r.log.Warn("search unavailable, returning empty result", slog.Any("err", err))
		} else {
			r.log.Error("search failed, returning empty result", slog.Any("err", err))
		}
		return r.result(maxResults), nil
	}

	for _, c := range candidates {
		if c.Normalized == "" {
			if key, err := process.CacheKey(c.URL); err == nil {
				c.Normalized = key
			}
		}
		if r.frontier.Push(c) {
			r.stats.Candidates++
		}
	}

	if r.stats.Candidates == 0 {
		r.log.Info("no candidates")
		return r.result(maxResults), nil
	}

	r.execute(ctx)

	return r.result(maxResults), nil
}

// run is the state of one Run call. Only the coordinator goroutine touches
// stats and collected.
type run struct {
	p        *Pipeline
	query    string
	log      *slog.Logger
	robots   *process.RobotsChecker
	frontier *frontier.Frontier
	start    time.Time

	stats     reference.RunStats
	collected []outcome
}

func (r *run) result(maxResults int) reference.Result {
	refs := make([]outcome, len(r.collected))
	copy(refs, r.collected)

	sort.SliceStable(refs, func(i, j int) bool {
		a, b := refs[i], refs[j]
		if a.summary.ConfidenceScore != b.summary.ConfidenceScore {
			return a.summary.ConfidenceScore > b.summary.ConfidenceScore
		}
		return a.candidate.Rank < b.candidate.Rank
	})

	if len(refs) > maxResults {
		refs = refs[:maxResults]
	}

	out := reference.Result{
		Query:      r.query,
		References: make([]reference.Summary, 0, len(refs)),
	}
	for _, o := range refs {
		out.References = append(out.References, o.summary)
	}

	r.stats.Elapsed = time.Since(r.start)
	out.Stats = r.stats

	r.log.Info("run complete",
		slog.Int("references", len(out.References)),
		slog.Int("candidates", r.stats.Candidates),
		slog.Int("disallowed", r.stats.Disallowed),
		slog.Int("cache_hits", r.stats.CacheHits),
		slog.Int("fetched", r.stats.Fetched),
		slog.Int("failed", r.stats.Failed),
		slog.Int("fallbacks", r.stats.Fallbacks),
		slog.Int("abandoned", r.stats.Abandoned),
		slog.Int("internal", r.stats.Internal),
		slog.Duration("elapsed", r.stats.Elapsed),
	)
	return out
}

// newRobots builds the robots memo for one run. It is never shared between runs.
func newRobots(p *Pipeline) *process.RobotsChecker {
	return process.NewRobotsChecker(p.client, p.opts.UserAgent, p.opts.RobotsAgent, p.opts.RobotsTimeout)
}
