package frontier

import (
	"log/slog"
	"sync"
	"time"

	"github.com/devraulu/refscout/pkg/process"
	"github.com/devraulu/refscout/pkg/reference"
)

type HostQueue struct {
	Host       string
	Candidates []reference.Candidate
	NextVisit  time.Time
}

// Frontier holds the candidates of one pipeline run. It hands them out in
// rank order while spacing requests to the same host.
type Frontier struct {
	mu     sync.Mutex
	queues map[string]*HostQueue
	seen   map[string]bool
	now    func() time.Time
}

func NewFrontier() *Frontier {
	return &Frontier{
		queues: make(map[string]*HostQueue),
		seen:   make(map[string]bool),
		now:    time.Now,
	}
}

// Push queues c unless a candidate with the same normalized URL was already
// pushed. It reports whether c was queued.
func (f *Frontier) Push(c reference.Candidate) bool {
	f.mu.Lock()
	defer f.mu.Unlock()

	key := c.Normalized
	if key == "" {
		key = c.URL
	}
	if f.seen[key] {
		slog.Debug("frontier duplicate, skipping", slog.String("url", c.URL))
		return false
	}

	host, err := process.Host(c.URL)
	if err != nil || host == "" {
		slog.Warn("frontier bad url", slog.String("url", c.URL), slog.Any("err", err))
		return false
	}

	f.seen[key] = true

	hq, ok := f.queues[host]
	if !ok {
		hq = &HostQueue{Host: host}
		f.queues[host] = hq
	}

	hq.Candidates = append(hq.Candidates, c)
	slog.Debug("frontier push", slog.String("host", host), slog.String("url", c.URL), slog.Int("queue_len", len(hq.Candidates)))
	return true
}

// Pop returns the best-ranked candidate whose host may be visited now and
// schedules that host's next visit after delay(host). When no host is ready it
// returns nil and the time until one will be. A nil candidate with zero wait
// means the frontier is empty.
func (f *Frontier) Pop(delay func(host string) time.Duration) (*reference.Candidate, time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()

	now := f.now()
	var (
		best    *HostQueue
		minWait time.Duration = -1
	)

	for host, hq := range f.queues {
		if len(hq.Candidates) == 0 {
			delete(f.queues, host)
			continue
		}

		if now.Before(hq.NextVisit) {
			wait := hq.NextVisit.Sub(now)
			if minWait == -1 || wait < minWait {
				minWait = wait
			}
			continue
		}

		if best == nil || hq.Candidates[0].Rank < best.Candidates[0].Rank {
			best = hq
		}
	}

	if best == nil {
		if minWait < 0 {
			return nil, 0
		}
		return nil, minWait
	}

	c := best.Candidates[0]
	best.Candidates = best.Candidates[1:]
	best.NextVisit = now.Add(delay(best.Host))

	slog.Debug("next candidate", slog.String("host", best.Host), slog.String("url", c.URL), slog.Int("rank", c.Rank))
	return &c, 0
}

func (f *Frontier) Len() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	count := 0
	for _, hq := range f.queues {
		count += len(hq.Candidates)
	}
	return count
}
