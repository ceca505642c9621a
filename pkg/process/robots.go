package process

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/benjaminestes/robots"
	"golang.org/x/sync/singleflight"
)

const maxRobotsBytes = 512 << 10

// RobotsPolicy is the parsed robots.txt of one host. A nil policy means
// everything is allowed.
type RobotsPolicy struct {
	Host       string
	FetchedAt  time.Time
	Disallow   []string
	CrawlDelay time.Duration
	rules      *robots.Robots
}

// RobotsChecker memoizes robots.txt per host. It is meant to live for one
// pipeline run and is safe for concurrent use.
type RobotsChecker struct {
	client    *http.Client
	userAgent string
	agent     string
	timeout   time.Duration

	mu       sync.RWMutex
	policies map[string]*RobotsPolicy
	group    singleflight.Group
}

// NewRobotsChecker builds a checker that requests robots.txt with userAgent
// and matches groups against agent, the short product token. The full HTTP
// User-Agent is used for matching only when agent is empty.
func NewRobotsChecker(client *http.Client, userAgent, agent string, timeout time.Duration) *RobotsChecker {
	if client == nil {
		client = http.DefaultClient
	}
	if agent == "" {
		agent = userAgent
	}
	return &RobotsChecker{
		client:    client,
		userAgent: userAgent,
		agent:     agent,
		timeout:   timeout,
		policies:  make(map[string]*RobotsPolicy),
	}
}

func (c *RobotsChecker) IsAllowed(ctx context.Context, url string) (allowed bool) {
	defer func() {
		if r := recover(); r != nil {
			slog.Warn("panic in robots.txt matching, assuming allowed", slog.String("url", url), slog.Any("panic", r))
			allowed = true
		}
	}()

	p := c.Policy(ctx, url)
	if p == nil || p.rules == nil {
		return true
	}
	return p.rules.Test(c.agent, url)
}

// Policy returns the memoized policy for the URL's host, fetching robots.txt
// at most once per host even under concurrent callers.
func (c *RobotsChecker) Policy(ctx context.Context, url string) *RobotsPolicy {
	robotsURL, err := robots.Locate(url)
	if err != nil {
		return nil
	}

	c.mu.RLock()
	p, ok := c.policies[robotsURL]
	c.mu.RUnlock()
	if ok {
		return p
	}

	v, _, _ := c.group.Do(robotsURL, func() (any, error) {
		c.mu.RLock()
		p, ok := c.policies[robotsURL]
		c.mu.RUnlock()
		if ok {
			return p, nil
		}

		p = c.load(ctx, robotsURL)

		c.mu.Lock()
		c.policies[robotsURL] = p
		c.mu.Unlock()
		return p, nil
	})

	return v.(*RobotsPolicy)
}

// CrawlDelay reports the crawl delay of a host whose policy is already known.
// It never fetches.
func (c *RobotsChecker) CrawlDelay(host string) time.Duration {
	c.mu.RLock()
	defer c.mu.RUnlock()
	for _, p := range c.policies {
		if p != nil && p.Host == host {
			return p.CrawlDelay
		}
	}
	return 0
}

func (c *RobotsChecker) load(ctx context.Context, robotsURL string) (policy *RobotsPolicy) {
	defer func() {
		if r := recover(); r != nil {
			slog.Warn("panic in robots.txt parsing, assuming allowed", slog.String("url", robotsURL), slog.Any("panic", r))
			policy = nil
		}
	}()

	body, err := c.getRobots(ctx, robotsURL)
	if err != nil {
		slog.Warn("failed to fetch robots.txt", slog.String("url", robotsURL), slog.Any("err", err))
		return nil
	}

	rules, err := robots.From(http.StatusOK, bytes.NewReader(body))
	if err != nil {
		slog.Warn("failed to parse robots.txt", slog.String("url", robotsURL), slog.Any("err", err))
		return nil
	}

	host, _ := Host(robotsURL)
	disallow, delay := agentGroup(body, c.agent)

	return &RobotsPolicy{
		Host:       host,
		FetchedAt:  time.Now(),
		Disallow:   disallow,
		CrawlDelay: delay,
		rules:      rules,
	}
}

func (c *RobotsChecker) getRobots(ctx context.Context, url string) ([]byte, error) {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("robots.txt returned status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxRobotsBytes))
	if err != nil {
		return nil, err
	}

	slog.Debug("robots.txt response",
		slog.String("url", url),
		slog.Int("status_code", resp.StatusCode),
		slog.Int("body_length", len(body)),
		slog.String("body_preview", string(body[:min(len(body), 200)])),
	)

	return body, nil
}

type robotsGroup struct {
	agents   []string
	disallow []string
	delay    time.Duration
}

// agentGroup pulls the Disallow patterns and Crawl-delay of the group that
// applies to agent: the longest group name that prefixes the token, else "*".
// Matching itself is left to the robots package.
func agentGroup(body []byte, agent string) ([]string, time.Duration) {
	agent = strings.ToLower(agent)

	var best, generic *robotsGroup
	bestLen := 0
	groups := parseGroups(body)
	for i := range groups {
		g := &groups[i]
		for _, name := range g.agents {
			if name == "*" {
				if generic == nil {
					generic = g
				}
				continue
			}
			if agent != "" && strings.HasPrefix(agent, name) && len(name) > bestLen {
				best, bestLen = g, len(name)
			}
		}
	}

	if best == nil {
		best = generic
	}
	if best == nil {
		return nil, 0
	}
	return best.disallow, best.delay
}

func parseGroups(body []byte) []robotsGroup {
	var (
		groups   []robotsGroup
		cur      = -1
		inAgents bool
	)

	sc := bufio.NewScanner(bytes.NewReader(body))
	for sc.Scan() {
		line := sc.Text()
		if i := strings.IndexByte(line, '#'); i >= 0 {
			line = line[:i]
		}
		key, val, ok := strings.Cut(line, ":")
		if !ok {
			continue
		}
		key = strings.ToLower(strings.TrimSpace(key))
		val = strings.TrimSpace(val)

		switch key {
		case "user-agent":
			if !inAgents {
				groups = append(groups, robotsGroup{})
				cur = len(groups) - 1
			}
			inAgents = true
			if val != "" {
				groups[cur].agents = append(groups[cur].agents, strings.ToLower(val))
			}
			continue
		case "disallow":
			if cur >= 0 && val != "" {
				groups[cur].disallow = append(groups[cur].disallow, val)
			}
		case "crawl-delay":
			if cur >= 0 {
				if secs, err := strconv.ParseFloat(val, 64); err == nil && secs > 0 {
					groups[cur].delay = time.Duration(secs * float64(time.Second))
				}
			}
		}
		inAgents = false
	}

	return groups
}
