package config

import (
	"os"
	"time"

	"github.com/pelletier/go-toml/v2"
)

type Config struct {
	Pipeline   PipelineConfig   `toml:"pipeline"`
	Politeness PolitenessConfig `toml:"politeness"`
	Fetch      FetchConfig      `toml:"fetch"`
	Search     SearchConfig     `toml:"search"`
	Summarizer SummarizerConfig `toml:"summarizer"`
	Cache      CacheConfig      `toml:"cache"`
	Scoring    ScoringConfig    `toml:"scoring"`
	Logging    LoggingConfig    `toml:"logging"`
	Web        WebConfig        `toml:"web"`
}

type PipelineConfig struct {
	Workers    int    `toml:"workers"`
	Deadline   string `toml:"deadline"`
	MaxResults int    `toml:"max_results"`
}

type PolitenessConfig struct {
	Delay         string `toml:"delay"`
	RobotsTimeout string `toml:"robots_timeout"`
	MaxCrawlDelay string `toml:"max_crawl_delay"`
	// RobotsAgent is the product token matched against robots.txt groups.
	RobotsAgent   string `toml:"robots_agent"`
}

type FetchConfig struct {
	UserAgent      string   `toml:"user_agent"`
	Timeout        string   `toml:"timeout"`
	MaxBytes       int64    `toml:"max_bytes"`
	MaxTextChars   int      `toml:"max_text_chars"`
	TrustedDomains []string `toml:"trusted_domains"`
}

type SearchConfig struct {
	Providers   []string         `toml:"providers"`
	Timeout     string           `toml:"timeout"`
	QuerySuffix string           `toml:"query_suffix"`
	RatePerSec  float64          `toml:"rate_per_sec"`
	Perplexity  ProviderSettings `toml:"perplexity"`
	SerpAPI     ProviderSettings `toml:"serpapi"`
	Bing        ProviderSettings `toml:"bing"`
	SearXNG     ProviderSettings `toml:"searxng"`
}

type ProviderSettings struct {
	Endpoint string `toml:"endpoint"`
	APIKey   string `toml:"api_key"`
}

type SummarizerConfig struct {
	Model         string  `toml:"model"`
	BaseURL       string  `toml:"base_url"`
	APIKey        string  `toml:"api_key"`
	MaxTokens     int     `toml:"max_tokens"`
	Temperature   float32 `toml:"temperature"`
	MaxInputChars int     `toml:"max_input_chars"`
	MaxAttempts   int     `toml:"max_attempts"`
	RetryDelay    string  `toml:"retry_delay"`
	MaxRetryDelay string  `toml:"max_retry_delay"`
	Timeout       string  `toml:"timeout"`
}

type CacheConfig struct {
	Backend   string `toml:"backend"`
	DSN       string `toml:"dsn"`
	Path      string `toml:"path"`
	RedisAddr string `toml:"redis_addr"`
	TTL       string `toml:"ttl"`
	Timeout   string `toml:"timeout"`

	// FallbackTTL bounds how long heuristic summaries are reused.
	FallbackTTL string `toml:"fallback_ttl"`
}

type ScoringConfig struct {
	ModelWeight   float64 `toml:"model_weight"`
	OverlapWeight float64 `toml:"overlap_weight"`
	LengthWeight  float64 `toml:"length_weight"`
	TrustedBonus  float64 `toml:"trusted_bonus"`
	MinTextChars  int     `toml:"min_text_chars"`
}

type LoggingConfig struct {
	Level      string `toml:"level"`
	Format     string `toml:"format"`
	File       string `toml:"file"`
	MaxSizeMB  int    `toml:"max_size_mb"`
	MaxBackups int    `toml:"max_backups"`
	MaxAgeDays int    `toml:"max_age_days"`
}

type WebConfig struct {
	Addr string `toml:"addr"`
}

var DefaultTrustedDomains = []string{
	"bytebytego.com",
	"github.com",
	"medium.com",
	"dev.to",
	"aws.amazon.com",
	"cloud.google.com",
	"microsoft.com",
	"engineering.fb.com",
	"blog.twitter.com",
	"highscalability.com",
}

// Default returns the configuration used when a key is absent from the file.
func Default() *Config {
	var cfg Config
	cfg.Pipeline.Workers = 4
	cfg.Pipeline.Deadline = "45s"
	cfg.Pipeline.MaxResults = 5
	cfg.Politeness.Delay = "500ms"
	cfg.Politeness.RobotsTimeout = "3s"
	cfg.Politeness.MaxCrawlDelay = "5s"
	cfg.Politeness.RobotsAgent = "refscout"
	cfg.Fetch.UserAgent = "Mozilla/5.0 (compatible; refscout/1.0)"
	cfg.Fetch.Timeout = "8s"
	cfg.Fetch.MaxBytes = 2 << 20
	cfg.Fetch.MaxTextChars = 10000
	cfg.Fetch.TrustedDomains = DefaultTrustedDomains
	cfg.Search.Providers = []string{"perplexity", "serpapi", "bing", "searxng"}
	cfg.Search.Timeout = "15s"
	cfg.Search.QuerySuffix = "system design architecture"
	cfg.Search.RatePerSec = 2
	cfg.Summarizer.Model = "gpt-4o-mini"
	cfg.Summarizer.MaxTokens = 1000
	cfg.Summarizer.Temperature = 0.2
	cfg.Summarizer.MaxInputChars = 2000
	cfg.Summarizer.MaxAttempts = 3
	cfg.Summarizer.RetryDelay = "500ms"
	cfg.Summarizer.MaxRetryDelay = "4s"
	cfg.Summarizer.Timeout = "30s"
	cfg.Cache.Backend = "sqlite"
	cfg.Cache.Path = "data/reference_cache.db"
	cfg.Cache.TTL = "168h"
	cfg.Cache.Timeout = "2s"
	cfg.Cache.FallbackTTL = "1h"
	cfg.Scoring.ModelWeight = 0.6
	cfg.Scoring.OverlapWeight = 0.3
	cfg.Scoring.LengthWeight = 0.1
	cfg.Scoring.TrustedBonus = 0.05
	cfg.Scoring.MinTextChars = 1500
	cfg.Logging.Format = "text"
	cfg.Logging.Level = "info"
	cfg.Logging.MaxSizeMB = 50
	cfg.Logging.MaxBackups = 3
	cfg.Logging.MaxAgeDays = 14
	cfg.Web.Addr = ":8080"
	return &cfg
}

func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	cfg, err := Parse(data)
	if err != nil {
		return nil, err
	}

	cfg.ApplyEnv()
	return cfg, nil
}

func Parse(data []byte) (*Config, error) {
	cfg := Default()

	err := toml.Unmarshal(data, cfg)
	if err != nil {
		return nil, err
	}

	return cfg, nil
}

// ApplyEnv fills empty credentials from the environment.
func (c *Config) ApplyEnv() {
	envFallback(&c.Summarizer.APIKey, "OPENAI_API_KEY")
	envFallback(&c.Search.Perplexity.APIKey, "PERPLEXITY_API_KEY")
	envFallback(&c.Search.SerpAPI.APIKey, "SERPAPI_KEY")
	envFallback(&c.Search.Bing.APIKey, "BING_API_KEY")
	envFallback(&c.Search.SearXNG.Endpoint, "SEARXNG_URL")
	envFallback(&c.Cache.DSN, "REFSCOUT_DSN")
}

func envFallback(dst *string, key string) {
	if *dst != "" {
		return
	}
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func parseDuration(s string, fallback time.Duration) time.Duration {
	d, err := time.ParseDuration(s)
	if err != nil || d < 0 {
		return fallback
	}
	return d
}

func (c *PipelineConfig) GetDeadline() time.Duration {
	return parseDuration(c.Deadline, 45*time.Second)
}

func (c *PolitenessConfig) GetDelay() time.Duration {
	return parseDuration(c.Delay, 500*time.Millisecond)
}

func (c *PolitenessConfig) GetRobotsTimeout() time.Duration {
	return parseDuration(c.RobotsTimeout, 3*time.Second)
}

func (c *PolitenessConfig) GetMaxCrawlDelay() time.Duration {
	return parseDuration(c.MaxCrawlDelay, 5*time.Second)
}

func (c *FetchConfig) GetTimeout() time.Duration {
	return parseDuration(c.Timeout, 8*time.Second)
}

func (c *SearchConfig) GetTimeout() time.Duration {
	return parseDuration(c.Timeout, 15*time.Second)
}

func (c *SummarizerConfig) GetRetryDelay() time.Duration {
	return parseDuration(c.RetryDelay, 500*time.Millisecond)
}

func (c *SummarizerConfig) GetMaxRetryDelay() time.Duration {
	return parseDuration(c.MaxRetryDelay, 4*time.Second)
}

func (c *SummarizerConfig) GetTimeout() time.Duration {
	return parseDuration(c.Timeout, 30*time.Second)
}

func (c *CacheConfig) GetTTL() time.Duration {
	return parseDuration(c.TTL, 7*24*time.Hour)
}

func (c *CacheConfig) GetTimeout() time.Duration {
	return parseDuration(c.Timeout, 2*time.Second)
}

func (c *CacheConfig) GetFallbackTTL() time.Duration {
	return parseDuration(c.FallbackTTL, time.Hour)
}
