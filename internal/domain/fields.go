package domain

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

// Canonical analysis field names.
const (
	FieldSummary        = "summary"
	FieldKeyPoints      = "key_points"
	FieldSentiment      = "sentiment"
	FieldConfidence     = "confidence"
	FieldBiasCheck      = "bias_check"
	FieldMissingContext = "missing_context"
	FieldImplications   = "implications"
)

// AnalysisFromFields converts a decoded JSON object into an Analysis.
// Models do not always honor the requested types, so scalars are
// stringified and a single string key_points becomes a one-element list.
func AnalysisFromFields(fields map[string]any) Analysis {
	a := Analysis{
		Summary:        StringField(fields[FieldSummary]),
		KeyPoints:      StringList(fields[FieldKeyPoints]),
		Sentiment:      StringField(fields[FieldSentiment]),
		Confidence:     StringField(fields[FieldConfidence]),
		BiasCheck:      StringField(fields[FieldBiasCheck]),
		MissingContext: StringField(fields[FieldMissingContext]),
		Implications:   StringField(fields[FieldImplications]),
		Model:          StringField(fields["model"]),
		ModelID:        StringField(fields["model_id"]),
		AnalyzedAt:     StringField(fields["analyzed_at"]),
		Error:          StringField(fields["error"]),
		ErrorType:      StringField(fields["error_type"]),
	}
	if usage, ok := fields["token_usage"].(map[string]any); ok {
		a.TokenUsage = &TokenUsage{
			PromptTokens:     intField(usage["prompt_tokens"]),
			CompletionTokens: intField(usage["completion_tokens"]),
			TotalTokens:      intField(usage["total_tokens"]),
		}
	}
	return a
}

// UnmarshalJSON decodes leniently so artifacts holding whatever a model
// returned verbatim still load.
func (a *Analysis) UnmarshalJSON(raw []byte) error {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var fields map[string]any
	if err := dec.Decode(&fields); err != nil {
		return err
	}
	*a = AnalysisFromFields(fields)
	return nil
}

// StringField renders an arbitrary JSON value as text.
func StringField(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case json.Number:
		return val.String()
	case []any:
		return strings.Join(StringList(val), "; ")
	case map[string]any:
		encoded, err := json.Marshal(val)
		if err != nil {
			return fmt.Sprint(val)
		}
		return string(encoded)
	default:
		return fmt.Sprint(val)
	}
}

// StringList renders a JSON value as a list of strings.
func StringList(v any) []string {
	switch val := v.(type) {
	case nil:
		return nil
	case []string:
		return val
	case []any:
		out := make([]string, 0, len(val))
		for _, item := range val {
			out = append(out, StringField(item))
		}
		return out
	case string:
		if val == "" {
			return nil
		}
		return []string{val}
	default:
		return []string{StringField(val)}
	}
}

func intField(v any) int {
	switch val := v.(type) {
	case json.Number:
		if n, err := val.Int64(); err == nil {
			return int(n)
		}
		if f, err := val.Float64(); err == nil {
			return int(f)
		}
	case float64:
		return int(val)
	case int:
		return val
	}
	return 0
}
