package fetch

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/devraulu/refscout/pkg/reference"
)

var articlePage = `<html><head><title>Sharding Strategies</title></head><body><article><p>` +
	strings.Repeat("Range sharding keeps related keys together, while hash sharding spreads load evenly. ", 5) +
	`</p></article></body></html>`

func newServer(t *testing.T, h http.HandlerFunc) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return srv
}

func TestFetchExtractsContent(t *testing.T) {
	var ua string
	srv := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		ua = r.Header.Get("User-Agent")
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		fmt.Fprint(w, articlePage)
	})

	f := New(srv.Client(), Options{UserAgent: "refscout-test", Timeout: time.Second})
	got, err := f.Fetch(context.Background(), srv.URL+"/sharding")
	require.NoError(t, err)

	assert.Equal(t, "refscout-test", ua)
	assert.Equal(t, srv.URL+"/sharding", got.URL)
	assert.Equal(t, "Sharding Strategies", got.Title)
	assert.Equal(t, reference.ExtractionPrimary, got.Method)
	assert.Contains(t, got.Text, "hash sharding")
	assert.Equal(t, ContentHash(got.Text), got.ContentHash)
	assert.Len(t, got.ContentHash, 64)
	assert.False(t, got.FetchedAt.IsZero())
}

func TestFetchErrors(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
		opts    Options
		kind    reference.FetchErrorKind
	}{
		{
			name: "non 2xx",
			handler: func(w http.ResponseWriter, r *http.Request) {
				http.Error(w, "gone", http.StatusGone)
			},
			kind: reference.FetchHTTPError,
		},
		{
			name: "pdf rejected",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Content-Type", "application/pdf")
				fmt.Fprint(w, "%PDF-1.7")
			},
			kind: reference.FetchUnsupportedType,
		},
		{
			name: "json rejected",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Content-Type", "application/json")
				fmt.Fprint(w, `{"a":1}`)
			},
			kind: reference.FetchUnsupportedType,
		},
		{
			name: "declared length too large",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Content-Type", "text/html")
				w.Header().Set("Content-Length", "4096")
				fmt.Fprint(w, strings.Repeat("x", 4096))
			},
			opts: Options{MaxBytes: 1024},
			kind: reference.FetchTooLarge,
		},
		{
			name: "streamed body too large",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Content-Type", "text/html")
				flusher := w.(http.Flusher)
				for i := 0; i < 8; i++ {
					fmt.Fprint(w, strings.Repeat("y", 512))
					flusher.Flush()
				}
			},
			opts: Options{MaxBytes: 1024},
			kind: reference.FetchTooLarge,
		},
		{
			name: "slow server",
			handler: func(w http.ResponseWriter, r *http.Request) {
				time.Sleep(300 * time.Millisecond)
				fmt.Fprint(w, articlePage)
			},
			opts: Options{Timeout: 50 * time.Millisecond},
			kind: reference.FetchTimeout,
		},
		{
			name: "nothing to extract",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Content-Type", "text/html")
				fmt.Fprint(w, `<html><head><title>x</title></head><body><nav>Home</nav></body></html>`)
			},
			kind: reference.FetchExtractionFailed,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := newServer(t, tt.handler)
			f := New(srv.Client(), tt.opts)

			_, err := f.Fetch(context.Background(), srv.URL+"/page")
			require.Error(t, err)
			assert.True(t, reference.IsFetchKind(err, tt.kind), "got %v", err)
		})
	}
}

func TestFetchSniffsMissingContentType(t *testing.T) {
	srv := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header()["Content-Type"] = nil
		fmt.Fprint(w, articlePage)
	})

	got, err := New(srv.Client(), Options{}).Fetch(context.Background(), srv.URL)
	require.NoError(t, err)
	assert.Equal(t, "Sharding Strategies", got.Title)
}

func TestFetchTruncatesText(t *testing.T) {
	srv := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		fmt.Fprint(w, articlePage)
	})

	got, err := New(srv.Client(), Options{MaxTextChars: 40}).Fetch(context.Background(), srv.URL)
	require.NoError(t, err)
	assert.Equal(t, 40, len([]rune(got.Text)))
}

func TestTruncateRuneSafe(t *testing.T) {
	assert.Equal(t, "héll", truncate("héllo", 4))
	assert.Equal(t, "héllo", truncate("héllo", 10))
	assert.Equal(t, "héllo", truncate("héllo", 0))
}

func TestFetchRequestsNormalizedURL(t *testing.T) {
	var path string
	srv := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		path = r.URL.Path
		w.Header().Set("Content-Type", "text/html")
		fmt.Fprint(w, articlePage)
	})

	got, err := New(srv.Client(), Options{}).Fetch(context.Background(), srv.URL+"/docs/../guide#intro")
	require.NoError(t, err)
	assert.Equal(t, "/guide", path)
	assert.Equal(t, srv.URL+"/docs/../guide#intro", got.URL)
}
