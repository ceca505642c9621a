package process

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/net/html"

	"github.com/devraulu/refscout/pkg/reference"
)

var longParagraph = strings.Repeat("A URL shortener maps short codes to long URLs, stores them in a key-value store, and redirects. ", 4)

func TestExtractArticle(t *testing.T) {
	page := `<html><head><title> Designing a URL Shortener </title><script>var x = 1;</script></head>
<body>
<nav><a href="/">Home</a><a href="/blog">Blog</a></nav>
<div class="ad-banner">Buy now!</div>
<article>
  <h1>Designing a URL Shortener</h1>
  <p>` + longParagraph + `</p>
  <div class="share-buttons">Share on social</div>
  <p>Use base62 encoding for the short code.</p>
</article>
<footer>Copyright 2026</footer>
</body></html>`

	ext, err := Extract([]byte(page))
	require.NoError(t, err)

	assert.Equal(t, "Designing a URL Shortener", ext.Title)
	assert.Equal(t, reference.ExtractionPrimary, ext.Method)
	assert.Contains(t, ext.Text, "key-value store")
	assert.Contains(t, ext.Text, "base62 encoding")
	assert.NotContains(t, ext.Text, "Home")
	assert.NotContains(t, ext.Text, "Buy now")
	assert.NotContains(t, ext.Text, "Share on social")
	assert.NotContains(t, ext.Text, "Copyright")
	assert.NotContains(t, ext.Text, "var x")
}

func TestExtractScoresContainerWithoutArticle(t *testing.T) {
	page := `<html><head><title>Rate limiting</title></head><body>
<div id="menu"><p>Products, Pricing, Docs, Blog, About, Contact, Careers</p></div>
<div class="post-body">
  <p>` + longParagraph + `</p>
  <p>Token buckets refill at a fixed rate, and requests consume tokens, which smooths bursts.</p>
</div>
</body></html>`

	ext, err := Extract([]byte(page))
	require.NoError(t, err)

	assert.Equal(t, reference.ExtractionPrimary, ext.Method)
	assert.Contains(t, ext.Text, "Token buckets")
	assert.NotContains(t, ext.Text, "Pricing")
}

func TestExtractFallsBackToLargestBlock(t *testing.T) {
	page := `<html><head><title>Short</title></head><body>
<div>tiny</div>
<div><span>Consistent hashing spreads keys over nodes</span> <b>so that adding a node moves few keys.</b></div>
</body></html>`

	ext, err := Extract([]byte(page))
	require.NoError(t, err)

	assert.Equal(t, reference.ExtractionFallback, ext.Method)
	assert.Equal(t, "Short", ext.Title)
	assert.Equal(t, "Consistent hashing spreads keys over nodes so that adding a node moves few keys.", ext.Text)
}

func TestExtractEmptyPageFails(t *testing.T) {
	_, err := Extract([]byte(`<html><head><title>Empty</title><script>console.log("x")</script></head><body><nav>Home</nav></body></html>`))
	assert.ErrorIs(t, err, ErrNoContent)
}

func TestExtractTitleFromOpenGraph(t *testing.T) {
	page := `<html><head><meta property="og:title" content="Caching at Scale"></head><body><article><p>` +
		longParagraph + `</p></article></body></html>`

	ext, err := Extract([]byte(page))
	require.NoError(t, err)
	assert.Equal(t, "Caching at Scale", ext.Title)
}

func TestVisibleTextSkipsScripts(t *testing.T) {
	doc, err := html.Parse(strings.NewReader(`<html><head><title>T</title></head><body><p>Hello</p><script>evil()</script><p>world</p></body></html>`))
	require.NoError(t, err)
	assert.Equal(t, "Hello world", VisibleText(doc))
}
