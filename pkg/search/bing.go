package search

import (
	"context"
	"net/http"
	"net/url"
	"strconv"

	"github.com/devraulu/refscout/pkg/reference"
)

const bingEndpoint = "https://api.bing.microsoft.com/v7.0/search"

// Bing queries the Bing Web Search API v7.
type Bing struct {
	Endpoint string
	APIKey   string
	Client   *http.Client
}

func (b *Bing) Name() string { return "bing" }

func (b *Bing) Configured() bool { return b.APIKey != "" }

func (b *Bing) Search(ctx context.Context, query string, limit int) ([]reference.Candidate, error) {
	endpoint := b.Endpoint
	if endpoint == "" {
		endpoint = bingEndpoint
	}

	u, err := url.Parse(endpoint)
	if err != nil {
		return nil, err
	}
	q := u.Query()
	q.Set("q", query)
	q.Set("count", strconv.Itoa(limit))
	q.Set("offset", "0")
	q.Set("mkt", "en-US")
	q.Set("safeSearch", "Moderate")
	u.RawQuery = q.Encode()

	req, err := http.NewRequest(http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Ocp-Apim-Subscription-Key", b.APIKey)

	var out struct {
		WebPages struct {
			Value []struct {
				Name    string `json:"name"`
				URL     string `json:"url"`
				Snippet string `json:"snippet"`
			} `json:"value"`
		} `json:"webPages"`
	}
	if err := doJSON(ctx, b.Client, req, b.Name(), &out); err != nil {
		return nil, err
	}

	candidates := make([]reference.Candidate, 0, len(out.WebPages.Value))
	for _, v := range out.WebPages.Value {
		candidates = append(candidates, reference.Candidate{
			URL:     v.URL,
			Title:   v.Name,
			Snippet: v.Snippet,
		})
	}
	return candidates, nil
}
