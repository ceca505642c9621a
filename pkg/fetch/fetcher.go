package fetch

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"io"
	"log/slog"
	"mime"
	"net"
	"net/http"
	"strings"
	"time"

	"golang.org/x/net/html/charset"

	"github.com/devraulu/refscout/pkg/config"
	"github.com/devraulu/refscout/pkg/process"
	"github.com/devraulu/refscout/pkg/reference"
)

var allowedTypes = map[string]bool{
	"text/html":             true,
	"application/xhtml+xml": true,
}

type Options struct {
	UserAgent      string
	Timeout        time.Duration
	MaxBytes       int64
	MaxTextChars   int
	TrustedDomains []string
}

// Fetcher retrieves a page and extracts its main content.
type Fetcher struct {
	client *http.Client
	opts   Options
	now    func() time.Time
}

func New(client *http.Client, opts Options) *Fetcher {
	if client == nil {
		client = &http.Client{}
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 8 * time.Second
	}
	if opts.MaxBytes <= 0 {
		opts.MaxBytes = 2 << 20
	}
	return &Fetcher{client: client, opts: opts, now: time.Now}
}

func NewFromConfig(cfg config.FetchConfig) *Fetcher {
	return New(nil, Options{
		UserAgent:      cfg.UserAgent,
		Timeout:        cfg.GetTimeout(),
		MaxBytes:       cfg.MaxBytes,
		MaxTextChars:   cfg.MaxTextChars,
		TrustedDomains: cfg.TrustedDomains,
	})
}

func (f *Fetcher) Fetch(ctx context.Context, url string) (*reference.ExtractedContent, error) {
	if len(f.opts.TrustedDomains) > 0 && !process.IsTrustedDomain(url, f.opts.TrustedDomains) {
		slog.Debug("url outside trusted domains", slog.String("url", url))
	}

	target, err := process.Normalize(url)
	if err != nil {
		return nil, &reference.FetchError{Kind: reference.FetchHTTPError, URL: url, Err: err}
	}

	ctx, cancel := context.WithTimeout(ctx, f.opts.Timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, &reference.FetchError{Kind: reference.FetchHTTPError, URL: url, Err: err}
	}

	req.Header.Set("Accept", "text/html,application/xhtml+xml")
	req.Header.Set("User-Agent", f.opts.UserAgent)

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, classify(url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &reference.FetchError{Kind: reference.FetchHTTPError, URL: url, Status: resp.StatusCode}
	}

	contentType := resp.Header.Get("Content-Type")
	if contentType != "" && !validateContentTypeHeader(contentType) {
		return nil, &reference.FetchError{
			Kind: reference.FetchUnsupportedType,
			URL:  url,
			Err:  errors.New(contentType),
		}
	}

	if resp.ContentLength > f.opts.MaxBytes {
		return nil, &reference.FetchError{Kind: reference.FetchTooLarge, URL: url, Status: resp.StatusCode}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, f.opts.MaxBytes+1))
	if err != nil {
		return nil, classify(url, err)
	}
	if int64(len(body)) > f.opts.MaxBytes {
		return nil, &reference.FetchError{Kind: reference.FetchTooLarge, URL: url, Status: resp.StatusCode}
	}

	if contentType == "" {
		contentType = http.DetectContentType(body)
		if !validateContentTypeHeader(contentType) {
			return nil, &reference.FetchError{
				Kind: reference.FetchUnsupportedType,
				URL:  url,
				Err:  errors.New(contentType),
			}
		}
	}

	body = toUTF8(body, contentType)

	ext, err := process.Extract(body)
	if err != nil {
		return nil, &reference.FetchError{Kind: reference.FetchExtractionFailed, URL: url, Err: err}
	}

	text := truncate(ext.Text, f.opts.MaxTextChars)

	return &reference.ExtractedContent{
		URL:         url,
		Title:       ext.Title,
		Text:        text,
		Method:      ext.Method,
		ContentHash: ContentHash(text),
		FetchedAt:   f.now(),
	}, nil
}

func ContentHash(text string) string {
	sum := sha256.Sum256([]byte(text))
	return hex.EncodeToString(sum[:])
}

func validateContentTypeHeader(header string) bool {
	mediaType, _, err := mime.ParseMediaType(header)
	if err != nil {
		mediaType = strings.TrimSpace(strings.Split(header, ";")[0])
	}
	return allowedTypes[strings.ToLower(mediaType)]
}

func classify(url string, err error) error {
	var ne net.Error
	if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &ne) && ne.Timeout()) {
		return &reference.FetchError{Kind: reference.FetchTimeout, URL: url, Err: err}
	}
	return &reference.FetchError{Kind: reference.FetchHTTPError, URL: url, Err: err}
}

func toUTF8(body []byte, contentType string) []byte {
	r, err := charset.NewReader(bytes.NewReader(body), contentType)
	if err != nil {
		return body
	}
	out, err := io.ReadAll(r)
	if err != nil {
		return body
	}
	return out
}

// truncate cuts s to at most n runes. n <= 0 disables truncation.
func truncate(s string, n int) string {
	if n <= 0 {
		return s
	}
	count := 0
	for i := range s {
		if count == n {
			return s[:i]
		}
		count++
	}
	return s
}
