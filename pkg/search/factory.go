package search

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/devraulu/refscout/pkg/config"
)

// FromConfig builds providers in the configured priority order.
func FromConfig(cfg config.SearchConfig, client *http.Client) *Adapter {
	var providers []Provider
	for _, name := range cfg.Providers {
		switch strings.ToLower(strings.TrimSpace(name)) {
		case "perplexity":
			providers = append(providers, &Perplexity{Endpoint: cfg.Perplexity.Endpoint, APIKey: cfg.Perplexity.APIKey, Client: client})
		case "serpapi":
			providers = append(providers, &SerpAPI{Endpoint: cfg.SerpAPI.Endpoint, APIKey: cfg.SerpAPI.APIKey, Client: client})
		case "bing":
			providers = append(providers, &Bing{Endpoint: cfg.Bing.Endpoint, APIKey: cfg.Bing.APIKey, Client: client})
		case "searxng":
			providers = append(providers, &SearXNG{BaseURL: cfg.SearXNG.Endpoint, Client: client})
		default:
			slog.Warn("unknown search provider, ignoring", slog.String("provider", name))
		}
	}

	return NewAdapter(providers, AdapterOptions{
		Timeout:    cfg.GetTimeout(),
		RatePerSec: cfg.RatePerSec,
	})
}
