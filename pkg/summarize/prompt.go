package summarize

import (
	"fmt"
	"strings"
)

const systemPrompt = "You are an expert at analyzing system design references and extracting structured information."

func buildPrompt(in Input, query string, maxChars int) string {
	var b strings.Builder

	b.WriteString("You are a summarizer for system design references.\n\n")
	b.WriteString("### Input\n")
	fmt.Fprintf(&b, "Title: %s\n", in.Title)
	fmt.Fprintf(&b, "URL: %s\n", in.URL)
	fmt.Fprintf(&b, "Content excerpt: %s\n", clip(in.Text, maxChars))
	fmt.Fprintf(&b, "User Query: %s\n\n", query)

	b.WriteString(`### Task
Analyze this reference and extract:
1. Up to 3 key highlights: main insights or design patterns
2. Assumptions made in the design, if any
3. Key components mentioned
4. Confidence score from 0.0 to 1.0: how relevant this is to the user query

### Output Format
Return ONLY valid JSON in this exact format:
{
  "title": "...",
  "url": "...",
  "highlights": ["highlight 1", "highlight 2", "highlight 3"],
  "assumptions": ["assumption 1"],
  "components": ["component 1"],
  "confidence_score": 0.85
}

### Rules
- Highlights should be concise and actionable
- List components mentioned in the reference
- If the content is not relevant, set confidence_score below 0.3
- Return ONLY the JSON, no markdown formatting or additional text`)

	return b.String()
}

// clip cuts s to at most n runes. n <= 0 disables the limit.
func clip(s string, n int) string {
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
