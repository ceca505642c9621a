package process

import (
	netUrl "net/url"
	"strings"

	"github.com/PuerkitoBio/purell"
	"golang.org/x/text/unicode/norm"
)

const fetchFlags = purell.FlagLowercaseScheme |
	purell.FlagLowercaseHost |
	purell.FlagRemoveDefaultPort |
	purell.FlagRemoveFragment |
	purell.FlagDecodeUnnecessaryEscapes |
	purell.FlagSortQuery |
	purell.FlagRemoveDuplicateSlashes |
	purell.FlagRemoveDotSegments

const keyFlags = fetchFlags | purell.FlagRemoveTrailingSlash

// trackingParams never change what a page says, so they are dropped from cache keys.
var trackingParams = map[string]bool{
	"fbclid":  true,
	"gclid":   true,
	"dclid":   true,
	"msclkid": true,
	"igshid":  true,
	"mc_cid":  true,
	"mc_eid":  true,
	"ref":     true,
	"ref_src": true,
	"source":  true,
}

// Normalize canonicalizes a URL for fetching. Case in the path and the query
// string are preserved.
func Normalize(url string) (string, error) {
	return purell.NormalizeURLString(url, fetchFlags)
}

// CacheKey derives the cache key for a URL: normalized, case-folded, trailing
// slash removed, and stripped of tracking query parameters. Other query
// parameters are kept since they usually select content.
func CacheKey(rawURL string) (string, error) {
	u, err := netUrl.Parse(strings.TrimSpace(rawURL))
	if err != nil {
		return "", err
	}

	if u.RawQuery != "" {
		q := u.Query()
		for k := range q {
			lk := strings.ToLower(k)
			if trackingParams[lk] || strings.HasPrefix(lk, "utm_") {
				q.Del(k)
			}
		}
		u.RawQuery = q.Encode()
	}

	return strings.ToLower(purell.NormalizeURL(u, keyFlags)), nil
}

func Host(rawURL string) (string, error) {
	u, err := netUrl.Parse(rawURL)
	if err != nil {
		return "", err
	}
	return strings.ToLower(u.Hostname()), nil
}

// NormalizeQuery applies NFKC and collapses whitespace.
func NormalizeQuery(q string) string {
	return strings.Join(strings.Fields(norm.NFKC.String(q)), " ")
}

// EnhanceQuery appends suffix unless the query already talks about system
// design or architecture.
func EnhanceQuery(q, suffix string) string {
	if suffix == "" {
		return q
	}
	lower := strings.ToLower(q)
	if strings.Contains(lower, "system design") || strings.Contains(lower, "architecture") {
		return q
	}
	return q + " " + suffix
}

// IsTrustedDomain reports whether the URL's host is one of domains or a
// subdomain of one. A leading "www." is ignored.
func IsTrustedDomain(rawURL string, domains []string) bool {
	host, err := Host(rawURL)
	if err != nil || host == "" {
		return false
	}
	host = strings.TrimPrefix(host, "www.")
	for _, d := range domains {
		d = strings.ToLower(strings.TrimSpace(d))
		if d == "" {
			continue
		}
		if host == d || strings.HasSuffix(host, "."+d) {
			return true
		}
	}
	return false
}
