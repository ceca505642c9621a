package search

import (
	"context"
	"net/http"
	"net/url"
	"strconv"

	"github.com/devraulu/refscout/pkg/reference"
)

const serpAPIEndpoint = "https://serpapi.com/search"

// SerpAPI queries Google results through serpapi.com.
type SerpAPI struct {
	Endpoint string
	APIKey   string
	Client   *http.Client
}

func (s *SerpAPI) Name() string { return "serpapi" }

func (s *SerpAPI) Configured() bool { return s.APIKey != "" }

func (s *SerpAPI) Search(ctx context.Context, query string, limit int) ([]reference.Candidate, error) {
	endpoint := s.Endpoint
	if endpoint == "" {
		endpoint = serpAPIEndpoint
	}

	u, err := url.Parse(endpoint)
	if err != nil {
		return nil, err
	}
	q := u.Query()
	q.Set("q", query)
	q.Set("api_key", s.APIKey)
	q.Set("engine", "google")
	q.Set("num", strconv.Itoa(limit))
	q.Set("gl", "us")
	q.Set("hl", "en")
	u.RawQuery = q.Encode()

	req, err := http.NewRequest(http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, err
	}

	var out struct {
		OrganicResults []struct {
			Position int    `json:"position"`
			Title    string `json:"title"`
			Link     string `json:"link"`
			Snippet  string `json:"snippet"`
		} `json:"organic_results"`
	}
	if err := doJSON(ctx, s.Client, req, s.Name(), &out); err != nil {
		return nil, err
	}

	candidates := make([]reference.Candidate, 0, len(out.OrganicResults))
	for _, r := range out.OrganicResults {
		candidates = append(candidates, reference.Candidate{
			URL:     r.Link,
			Title:   r.Title,
			Snippet: r.Snippet,
			Rank:    r.Position,
		})
	}
	return candidates, nil
}
