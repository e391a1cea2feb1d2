package extract

import (
	"strings"

	"NewsPerspectives/internal/domain"
)

// JSONResponsePreamble is the bolded heading some models put before their JSON.
const JSONResponsePreamble = "**JSON Response"

// Pass is a detection rule for analyses that were persisted in the fallback
// shape even though key_points[0] holds a recoverable JSON object.
type Pass struct {
	Name string
	// Detect reports whether a stored analysis carries the pass's signature.
	Detect func(a domain.Analysis) bool
	// Recover decodes the object held in key_points[0].
	Recover func(raw string) (map[string]any, bool)
}

// RepairPasses lists the passes in the order they are tried.
var RepairPasses = []Pass{PreamblePass, FencePass}

// PreamblePass matches summaries that begin with '{' or the JSON Response
// heading. Recovery strips the heading and reruns Extract, accepting clean or
// recovered results.
var PreamblePass = Pass{
	Name: "preamble",
	Detect: func(a domain.Analysis) bool {
		summary := strings.TrimSpace(a.Summary)
		if !strings.HasPrefix(summary, "{") && !strings.HasPrefix(summary, JSONResponsePreamble) {
			return false
		}
		return len(a.KeyPoints) > 0
	},
	Recover: func(raw string) (map[string]any, bool) {
		res := Extract(StripPreamble(raw))
		if res.Quality == Fallback {
			return nil, false
		}
		return res.Fields, true
	},
}

// FencePass matches summaries that begin with a fence or contain a json fence
// within their first 100 characters. Recovery is stricter than Extract: the
// fenced body must parse directly, there is no brace matching.
var FencePass = Pass{
	Name: "fence",
	Detect: func(a domain.Analysis) bool {
		summary := strings.TrimSpace(a.Summary)
		if strings.HasPrefix(summary, fence) {
			return true
		}
		return strings.Contains(truncate(summary, 100), fence+"json")
	},
	Recover: func(raw string) (map[string]any, bool) {
		return ParseObject(StripFences(raw))
	},
}

// StripPreamble drops a leading JSON Response heading and any lines before the
// first line opening a fence or an object.
func StripPreamble(text string) string {
	trimmed := strings.TrimSpace(text)
	if !strings.HasPrefix(trimmed, JSONResponsePreamble) {
		return trimmed
	}
	lines := strings.Split(trimmed, "\n")
	for i, line := range lines {
		l := strings.TrimSpace(line)
		if strings.HasPrefix(l, fence) || strings.HasPrefix(l, "{") {
			return strings.Join(lines[i:], "\n")
		}
	}
	return trimmed
}

// StripFences returns the content between the first fence line and the next
// bare closing fence. Without a closing fence everything after the opening
// line is kept.
func StripFences(text string) string {
	lines := strings.Split(strings.TrimSpace(text), "\n")
	start := 0
	for i, line := range lines {
		if strings.HasPrefix(strings.TrimSpace(line), fence) {
			start = i + 1
			break
		}
	}
	for i := start; i < len(lines); i++ {
		if strings.TrimSpace(lines[i]) == fence {
			return strings.Join(lines[start:i], "\n")
		}
	}
	return strings.Join(lines[start:], "\n")
}
