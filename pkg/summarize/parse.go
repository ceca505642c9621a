package summarize

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

const maxHighlights = 3

var ErrMalformedOutput = errors.New("malformed model output")

// Outcome is the result of validating one model response: either
// ValidSummary or MalformedOutput.
type Outcome interface {
	outcome()
}

type ValidSummary struct {
	Title           string
	Highlights      []string
	Assumptions     []string
	Components      []string
	ConfidenceScore float64
}

type MalformedOutput struct {
	Raw    string
	Reason error
}

func (ValidSummary) outcome()    {}
func (MalformedOutput) outcome() {}

type rawSummary struct {
	Title           string    `json:"title"`
	Highlights      *[]string `json:"highlights"`
	Assumptions     *[]string `json:"assumptions"`
	Components      *[]string `json:"components"`
	ConfidenceScore *float64  `json:"confidence_score"`
}

// Parse validates a model response. The list fields and a numeric
// confidence_score must be present; out-of-range confidence is clamped.
func Parse(raw string) Outcome {
	body := stripFences(raw)

	var rs rawSummary
	if err := json.Unmarshal([]byte(body), &rs); err != nil {
		return malformed(raw, err)
	}

	switch {
	case rs.Highlights == nil:
		return malformed(raw, errors.New("missing highlights"))
	case rs.Assumptions == nil:
		return malformed(raw, errors.New("missing assumptions"))
	case rs.Components == nil:
		return malformed(raw, errors.New("missing components"))
	case rs.ConfidenceScore == nil:
		return malformed(raw, errors.New("missing confidence_score"))
	}

	highlights := uniq(*rs.Highlights)
	if len(highlights) > maxHighlights {
		highlights = highlights[:maxHighlights]
	}

	return ValidSummary{
		Title:           strings.TrimSpace(rs.Title),
		Highlights:      highlights,
		Assumptions:     uniq(*rs.Assumptions),
		Components:      uniq(*rs.Components),
		ConfidenceScore: clamp(*rs.ConfidenceScore),
	}
}

func malformed(raw string, reason error) MalformedOutput {
	return MalformedOutput{Raw: raw, Reason: fmt.Errorf("%w: %w", ErrMalformedOutput, reason)}
}

func stripFences(s string) string {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "```") {
		s = strings.TrimPrefix(s, "```json")
		s = strings.TrimPrefix(s, "```")
		s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	}
	return strings.TrimSpace(s)
}

// uniq trims entries and drops blanks and repeats, keeping first-seen order.
func uniq(in []string) []string {
	out := make([]string, 0, len(in))
	seen := make(map[string]bool, len(in))
	for _, s := range in {
		s = strings.TrimSpace(s)
		if s == "" || seen[s] {
			continue
		}
		seen[s] = true
		out = append(out, s)
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
