package summarize

import (
	"context"
	"log/slog"
	"time"

	"github.com/devraulu/refscout/pkg/config"
	"github.com/devraulu/refscout/pkg/reference"
)

const fallbackExcerptChars = 200

// RetryPolicy bounds how many times the model is asked for one input.
// Delays grow exponentially from Delay and never exceed MaxDelay.
type RetryPolicy struct {
	MaxAttempts int
	Delay       time.Duration
	MaxDelay    time.Duration
}

func (p RetryPolicy) backoff(attempt int) time.Duration {
	d := p.Delay
	for i := 1; i < attempt; i++ {
		d *= 2
		if p.MaxDelay > 0 && d >= p.MaxDelay {
			return p.MaxDelay
		}
	}
	if p.MaxDelay > 0 && d > p.MaxDelay {
		return p.MaxDelay
	}
	return d
}

// Input is what the model sees about one reference.
type Input struct {
	URL     string
	Title   string
	Text    string
	Snippet string
}

type Summarizer struct {
	completer     Completer
	policy        RetryPolicy
	maxInputChars int
	now           func() time.Time
}

func New(c Completer, policy RetryPolicy, maxInputChars int) *Summarizer {
	if policy.MaxAttempts <= 0 {
		policy.MaxAttempts = 3
	}
	return &Summarizer{
		completer:     c,
		policy:        policy,
		maxInputChars: maxInputChars,
		now:           time.Now,
	}
}

func NewFromConfig(cfg config.SummarizerConfig) *Summarizer {
	return New(NewOpenAICompleter(cfg, nil), RetryPolicy{
		MaxAttempts: cfg.MaxAttempts,
		Delay:       cfg.GetRetryDelay(),
		MaxDelay:    cfg.GetMaxRetryDelay(),
	}, cfg.MaxInputChars)
}

// Summarize asks the model for a structured summary, retrying malformed or
// failed responses within the policy. When every attempt fails it returns a
// heuristic summary with Fallback set. The only error is ctx's.
func (s *Summarizer) Summarize(ctx context.Context, in Input, query string) (reference.Summary, error) {
	prompt := buildPrompt(in, query, s.maxInputChars)

	for attempt := 1; attempt <= s.policy.MaxAttempts; attempt++ {
		if attempt > 1 {
			if err := sleep(ctx, s.policy.backoff(attempt-1)); err != nil {
				return reference.Summary{}, err
			}
		}

		raw, err := s.completer.Complete(ctx, systemPrompt, prompt)
		if err != nil {
			if ctx.Err() != nil {
				return reference.Summary{}, ctx.Err()
			}
			slog.Warn("summarizer call failed",
				slog.String("url", in.URL), slog.Int("attempt", attempt), slog.Any("err", err))
			continue
		}

		switch out := Parse(raw).(type) {
		case ValidSummary:
			return s.fromValid(in, out), nil
		case MalformedOutput:
			slog.Warn("summarizer output rejected",
				slog.String("url", in.URL), slog.Int("attempt", attempt), slog.Any("err", out.Reason))
		}
	}

	slog.Info("summarizer exhausted, using heuristic summary",
		slog.String("url", in.URL), slog.Int("attempts", s.policy.MaxAttempts))
	return s.Fallback(in), nil
}

func (s *Summarizer) fromValid(in Input, v ValidSummary) reference.Summary {
	title := in.Title
	if title == "" {
		title = v.Title
	}
	return reference.Summary{
		URL:             in.URL,
		Title:           title,
		Highlights:      v.Highlights,
		Assumptions:     v.Assumptions,
		Components:      v.Components,
		ConfidenceScore: v.ConfidenceScore,
		Snippet:         in.Snippet,
		SummarizedAt:    s.now(),
	}
}

// Fallback builds the heuristic summary used when the model cannot produce
// valid output: the search snippet as the only highlight and zero confidence.
func (s *Summarizer) Fallback(in Input) reference.Summary {
	highlight := in.Snippet
	if highlight == "" {
		highlight = clip(in.Text, fallbackExcerptChars)
	}

	highlights := []string{}
	if highlight != "" {
		highlights = append(highlights, highlight)
	}

	return reference.Summary{
		URL:             in.URL,
		Title:           in.Title,
		Highlights:      highlights,
		Assumptions:     []string{},
		Components:      []string{},
		ConfidenceScore: 0,
		Snippet:         in.Snippet,
		SummarizedAt:    s.now(),
		Fallback:        true,
	}
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
