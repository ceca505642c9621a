package search

import (
	"context"
	"net/http"
	"net/url"
	"strings"

	"github.com/devraulu/refscout/pkg/reference"
)

// SearXNG queries a self-hosted SearXNG instance's JSON API.
type SearXNG struct {
	BaseURL string
	Client  *http.Client
}

func (s *SearXNG) Name() string { return "searxng" }

func (s *SearXNG) Configured() bool { return s.BaseURL != "" }

func (s *SearXNG) Search(ctx context.Context, query string, limit int) ([]reference.Candidate, error) {
	u, err := url.Parse(strings.TrimRight(s.BaseURL, "/") + "/search")
	if err != nil {
		return nil, err
	}
	q := u.Query()
	q.Set("q", query)
	q.Set("format", "json")
	u.RawQuery = q.Encode()

	req, err := http.NewRequest(http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, err
	}

	var out struct {
		Results []struct {
			URL     string `json:"url"`
			Title   string `json:"title"`
			Content string `json:"content"`
		} `json:"results"`
	}
	if err := doJSON(ctx, s.Client, req, s.Name(), &out); err != nil {
		return nil, err
	}

	candidates := make([]reference.Candidate, 0, len(out.Results))
	for _, r := range out.Results {
		if limit > 0 && len(candidates) >= limit {
			break
		}
		candidates = append(candidates, reference.Candidate{
			URL:     r.URL,
			Title:   r.Title,
			Snippet: r.Content,
		})
	}
	return candidates, nil
}
