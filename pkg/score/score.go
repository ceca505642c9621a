package score

import (
	"strings"
	"unicode"

	"github.com/devraulu/refscout/pkg/config"
	"github.com/devraulu/refscout/pkg/process"
	"github.com/devraulu/refscout/pkg/reference"
)

var stopwords = map[string]bool{
	"a": true, "an": true, "and": true, "are": true, "as": true, "at": true,
	"be": true, "by": true, "for": true, "from": true, "how": true, "i": true,
	"in": true, "is": true, "it": true, "of": true, "on": true, "or": true,
	"that": true, "the": true, "this": true, "to": true, "what": true,
	"with": true, "we": true, "you": true, "can": true, "do": true,
}

type Weights struct {
	Model   float64
	Overlap float64
	Length  float64
	Trusted float64
}

// Scorer combines the model's confidence with lexical overlap and content
// length. It holds no mutable state.
type Scorer struct {
	weights        Weights
	minTextChars   int
	trustedDomains []string
}

func New(w Weights, minTextChars int, trustedDomains []string) *Scorer {
	if minTextChars <= 0 {
		minTextChars = 1500
	}
	return &Scorer{weights: w, minTextChars: minTextChars, trustedDomains: trustedDomains}
}

func NewFromConfig(cfg config.ScoringConfig, trustedDomains []string) *Scorer {
	return New(Weights{
		Model:   cfg.ModelWeight,
		Overlap: cfg.OverlapWeight,
		Length:  cfg.LengthWeight,
		Trusted: cfg.TrustedBonus,
	}, cfg.MinTextChars, trustedDomains)
}

// Score returns a value in [0,1]. text is the extracted page text the
// summary was built from. Heuristic fallback summaries always score 0.
func (s *Scorer) Score(sum reference.Summary, text, query string) float64 {
	if sum.Fallback {
		return 0
	}

	score := s.weights.Model*clamp(sum.ConfidenceScore) +
		s.weights.Overlap*Overlap(query, sum.Title+" "+text) +
		s.weights.Length*s.lengthFactor(text)

	if process.IsTrustedDomain(sum.URL, s.trustedDomains) {
		score += s.weights.Trusted
	}

	return clamp(score)
}

func (s *Scorer) lengthFactor(text string) float64 {
	n := len([]rune(text))
	if n >= s.minTextChars {
		return 1
	}
	return float64(n) / float64(s.minTextChars)
}

// Overlap is the fraction of distinct query terms that appear in doc.
func Overlap(query, doc string) float64 {
	terms := Terms(query)
	if len(terms) == 0 {
		return 0
	}

	present := make(map[string]bool)
	for _, t := range Terms(doc) {
		present[t] = true
	}

	hits := 0
	for _, t := range terms {
		if present[t] {
			hits++
		}
	}
	return float64(hits) / float64(len(terms))
}

// Terms lowercases s, splits it on anything that is not a letter or digit,
// and drops stopwords, single characters and repeats.
func Terms(s string) []string {
	fields := strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})

	seen := make(map[string]bool, len(fields))
	out := fields[:0]
	for _, f := range fields {
		if len([]rune(f)) < 2 || stopwords[f] || seen[f] {
			continue
		}
		seen[f] = true
		out = append(out, f)
	}
	return out
}

func clamp(f float64) float64 {
	if f < 0 {
		return 0
	}
	if f > 1 {
		return 1
	}
	return f
}
