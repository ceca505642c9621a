package pipeline

import (
	"context"
	"log/slog"
	"time"

	"github.com/devraulu/refscout/pkg/reference"
)

// execute drains the frontier through a bounded worker pool until every
// candidate has reported or the run deadline passes. Work still in flight at
// the deadline is abandoned, not awaited.
func (r *run) execute(ctx context.Context) {
	workers := r.p.opts.Workers
	if workers > r.stats.Candidates {
		workers = r.stats.Candidates
	}

	jobs := make(chan reference.Candidate)
	// one slot per candidate so abandoned workers never block on send
	results := make(chan outcome, r.stats.Candidates)

	for i := 0; i < workers; i++ {
		go r.worker(ctx, i, jobs, results)
	}

	r.coordinator(ctx, jobs, results)
	close(jobs)
}

func (r *run) coordinator(ctx context.Context, jobs chan<- reference.Candidate, results <-chan outcome) {
	active := 0
	var pending *reference.Candidate

	for {
		var wait time.Duration
		if pending == nil {
			pending, wait = r.frontier.Pop(r.delay)
		}

		if pending == nil && wait == 0 && active == 0 {
			return
		}

		var (
			jobsChan chan<- reference.Candidate
			job      reference.Candidate
			timer    *time.Timer
			timerC   <-chan time.Time
		)
		if pending != nil {
			jobsChan = jobs
			job = *pending
		} else if wait > 0 {
			timer = time.NewTimer(wait)
			timerC = timer.C
		}

		select {
		case jobsChan <- job:
			active++
			pending = nil
			r.log.Debug("job dispatched", slog.String("url", job.URL), slog.Int("active_workers", active))

		case res := <-results:
			active--
			r.collect(res)

		case <-timerC:

		case <-ctx.Done():
			if timer != nil {
				timer.Stop()
			}
			r.stats.Abandoned = active
			if pending != nil {
				r.stats.Abandoned++
			}
			r.stats.Abandoned += r.frontier.Len()
			r.log.Warn("run deadline reached, abandoning in-flight work",
				slog.Int("abandoned", r.stats.Abandoned), slog.Any("err", ctx.Err()))
			return
		}

		if timer != nil {
			timer.Stop()
		}
	}
}

func (r *run) collect(res outcome) {
	switch res.status {
	case statusSummarized:
		r.stats.Fetched++
		if res.summary.Fallback {
			r.stats.Fallbacks++
		}
		r.collected = append(r.collected, res)
		r.log.Info("reference summarized",
			slog.String("url", res.candidate.URL),
			slog.Float64("confidence", res.summary.ConfidenceScore),
			slog.Bool("fallback", res.summary.Fallback),
			slog.Duration("elapsed", res.elapsed),
		)

	case statusCached:
		r.stats.CacheHits++
		r.collected = append(r.collected, res)
		r.log.Info("reference from cache", slog.String("url", res.candidate.URL))

	case statusDisallowed:
		r.stats.Disallowed++
		r.log.Info("robots.txt disallowed", slog.String("url", res.candidate.URL))

	case statusFailed:
		r.stats.Failed++
		r.log.Warn("candidate dropped", slog.String("url", res.candidate.URL), slog.Any("err", res.err))

	case statusInternal:
		r.stats.Internal++
		r.log.Error("candidate crashed", slog.String("url", res.candidate.URL), slog.Any("err", res.err))
	}
}

// delay spaces requests to one host by the configured delay, raised to the
// host's robots crawl-delay when known and capped.
func (r *run) delay(host string) time.Duration {
	d := r.p.opts.Delay
	if cd := r.robots.CrawlDelay(host); cd > d {
		d = cd
	}
	if limit := r.p.opts.MaxCrawlDelay; limit > 0 && d > limit {
		d = limit
	}
	return d
}
