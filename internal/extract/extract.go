// Package extract turns free-form completion text into a structured Analysis.
//
// Completions are supposed to be a JSON object but routinely arrive wrapped in
// markdown fences, surrounded by commentary, or truncated. Extract applies a
// fixed sequence of recoveries and never fails: the worst case is a fallback
// analysis that carries the raw text.
package extract

import (
	"encoding/json"
	"strings"

	"NewsPerspectives/internal/domain"
)

// Quality records how much repair was needed to obtain an analysis.
type Quality string

const (
	Clean     Quality = "clean"
	Recovered Quality = "recovered"
	Fallback  Quality = "fallback"
)

// FallbackSummaryLength is the number of characters of raw text kept as the
// summary of a fallback analysis.
const FallbackSummaryLength = 300

const fence = "```"

// Result is the outcome of an extraction.
type Result struct {
	Analysis domain.Analysis
	// Fields is the decoded object, nil for fallback results.
	Fields  map[string]any
	Quality Quality
}

// Extract runs, in order: outer fence stripping, direct parse, brace-matched
// parse from the first '{', and finally the fallback wrapper. The first
// object carrying a summary key wins.
func Extract(raw string) Result {
	text := raw
	if body, ok := StripOuterFence(raw); ok {
		text = body
	}

	if fields, ok := ParseObject(text); ok && hasSummary(fields) {
		return Result{Analysis: domain.AnalysisFromFields(fields), Fields: fields, Quality: Clean}
	}

	if candidate, ok := MatchBraces(text); ok {
		if fields, ok := ParseObject(candidate); ok && hasSummary(fields) {
			return Result{Analysis: domain.AnalysisFromFields(fields), Fields: fields, Quality: Recovered}
		}
	}

	return Result{Analysis: FallbackAnalysis(raw), Quality: Fallback}
}

// FallbackAnalysis wraps unparseable text so downstream stages still have
// something to show.
func FallbackAnalysis(raw string) domain.Analysis {
	return domain.Analysis{
		Summary:    truncate(raw, FallbackSummaryLength),
		KeyPoints:  []string{raw},
		Sentiment:  domain.SentimentNeutral,
		Confidence: domain.ConfidenceMedium,
	}
}

// StripOuterFence returns the text enclosed by a fenced block when text starts
// with a fence marker and a closing marker follows on its own line.
func StripOuterFence(text string) (string, bool) {
	trimmed := strings.TrimSpace(text)
	if !strings.HasPrefix(trimmed, fence) {
		return text, false
	}
	lines := strings.Split(trimmed, "\n")
	for i := 1; i < len(lines); i++ {
		if strings.TrimSpace(lines[i]) == fence {
			return strings.Join(lines[1:i], "\n"), true
		}
	}
	return text, false
}

// ParseObject decodes text as a single JSON object.
func ParseObject(text string) (map[string]any, bool) {
	trimmed := strings.TrimSpace(text)
	if !strings.HasPrefix(trimmed, "{") {
		return nil, false
	}
	var fields map[string]any
	if err := json.Unmarshal([]byte(trimmed), &fields); err != nil {
		return nil, false
	}
	return fields, fields != nil
}

// MatchBraces returns the substring from the first '{' to the brace that
// closes it. Nesting is counted naively: braces inside string literals are
// not skipped.
func MatchBraces(text string) (string, bool) {
	start := strings.IndexByte(text, '{')
	if start < 0 {
		return "", false
	}
	depth := 0
	for i := start; i < len(text); i++ {
		switch text[i] {
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return text[start : i+1], true
			}
		}
	}
	return "", false
}

func hasSummary(fields map[string]any) bool {
	_, ok := fields[domain.FieldSummary]
	return ok
}

func truncate(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}
