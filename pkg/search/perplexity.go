package search

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"

	"github.com/devraulu/refscout/pkg/reference"
)

const perplexityEndpoint = "https://api.perplexity.ai/search"

// Perplexity queries the Perplexity Search API.
type Perplexity struct {
	Endpoint string
	APIKey   string
	Client   *http.Client
}

func (p *Perplexity) Name() string { return "perplexity" }

func (p *Perplexity) Configured() bool { return p.APIKey != "" }

func (p *Perplexity) Search(ctx context.Context, query string, limit int) ([]reference.Candidate, error) {
	endpoint := p.Endpoint
	if endpoint == "" {
		endpoint = perplexityEndpoint
	}

	payload, err := json.Marshal(map[string]any{
		"query":       query,
		"max_results": limit,
	})
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequest(http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+p.APIKey)

	var out struct {
		Results []struct {
			Title   string `json:"title"`
			URL     string `json:"url"`
			Snippet string `json:"snippet"`
		} `json:"results"`
	}
	if err := doJSON(ctx, p.Client, req, p.Name(), &out); err != nil {
		return nil, err
	}

	candidates := make([]reference.Candidate, 0, len(out.Results))
	for _, r := range out.Results {
		if r.URL == "" {
			continue
		}
		title := r.Title
		if title == "" {
			title = "Untitled"
		}
		candidates = append(candidates, reference.Candidate{
			URL:     r.URL,
			Title:   clip(title, 200),
			Snippet: clip(r.Snippet, 300),
		})
	}
	return candidates, nil
}
