package search

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/devraulu/refscout/pkg/config"
)

func TestPerplexity(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "Bearer pplx-key", r.Header.Get("Authorization"))

		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "url shortener", body["query"])
		assert.Equal(t, float64(3), body["max_results"])

		fmt.Fprint(w, `{"results":[
			{"title":"Design a URL Shortener","url":"https://example.com/a","snippet":"base62"},
			{"title":"","url":"https://example.com/b","snippet":""},
			{"title":"no url","url":""}
		]}`)
	}))
	defer srv.Close()

	p := &Perplexity{Endpoint: srv.URL, APIKey: "pplx-key", Client: srv.Client()}
	got, err := p.Search(context.Background(), "url shortener", 3)
	require.NoError(t, err)

	require.Len(t, got, 2)
	assert.Equal(t, "Design a URL Shortener", got[0].Title)
	assert.Equal(t, "base62", got[0].Snippet)
	assert.Equal(t, "Untitled", got[1].Title)
}

func TestSerpAPI(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		assert.Equal(t, "serp-key", q.Get("api_key"))
		assert.Equal(t, "google", q.Get("engine"))
		assert.Equal(t, "5", q.Get("num"))
		fmt.Fprint(w, `{"organic_results":[
			{"position":1,"title":"One","link":"https://one.example.com","snippet":"s1"},
			{"position":2,"title":"Two","link":"https://two.example.com","snippet":"s2"}
		]}`)
	}))
	defer srv.Close()

	s := &SerpAPI{Endpoint: srv.URL, APIKey: "serp-key", Client: srv.Client()}
	got, err := s.Search(context.Background(), "cdn", 5)
	require.NoError(t, err)

	require.Len(t, got, 2)
	assert.Equal(t, "https://two.example.com", got[1].URL)
	assert.Equal(t, 2, got[1].Rank)
}

func TestBing(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "bing-key", r.Header.Get("Ocp-Apim-Subscription-Key"))
		assert.Equal(t, "4", r.URL.Query().Get("count"))
		fmt.Fprint(w, `{"webPages":{"value":[{"name":"Kafka internals","url":"https://kafka.example.com","snippet":"log"}]}}`)
	}))
	defer srv.Close()

	b := &Bing{Endpoint: srv.URL, APIKey: "bing-key", Client: srv.Client()}
	got, err := b.Search(context.Background(), "kafka", 4)
	require.NoError(t, err)

	require.Len(t, got, 1)
	assert.Equal(t, "Kafka internals", got[0].Title)
}

func TestSearXNG(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/search", r.URL.Path)
		assert.Equal(t, "json", r.URL.Query().Get("format"))
		fmt.Fprint(w, `{"results":[
			{"url":"https://a.example.com","title":"A","content":"a"},
			{"url":"https://b.example.com","title":"B","content":"b"}
		]}`)
	}))
	defer srv.Close()

	s := &SearXNG{BaseURL: srv.URL + "/", Client: srv.Client()}
	got, err := s.Search(context.Background(), "q", 1)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "a", got[0].Snippet)
}

func TestProviderStatusError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "quota", http.StatusTooManyRequests)
	}))
	defer srv.Close()

	b := &Bing{Endpoint: srv.URL, APIKey: "k", Client: srv.Client()}
	_, err := b.Search(context.Background(), "q", 3)

	var se *StatusError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, http.StatusTooManyRequests, se.Status)
}

func TestFromConfigOrderAndConfiguration(t *testing.T) {
	cfg := config.Default().Search
	cfg.Providers = []string{"bing", "nope", "searxng"}
	cfg.Bing.APIKey = ""
	cfg.SearXNG.Endpoint = "http://searx.local"

	a := FromConfig(cfg, nil)
	require.Len(t, a.providers, 2)
	assert.Equal(t, "bing", a.providers[0].Name())
	assert.False(t, a.providers[0].Configured())
	assert.True(t, a.providers[1].Configured())
}
