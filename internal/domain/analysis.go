package domain

// Sentiment values a model may report. Anything else is kept verbatim.
const (
	SentimentPositive = "positive"
	SentimentNegative = "negative"
	SentimentNeutral  = "neutral"
	SentimentMixed    = "mixed"
	SentimentUnknown  = "unknown"
)

// Confidence values a model may report.
const (
	ConfidenceHigh    = "high"
	ConfidenceMedium  = "medium"
	ConfidenceLow     = "low"
	ConfidenceUnknown = "unknown"
)

// TokenUsage mirrors the counters reported by the completion service.
type TokenUsage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// Add accumulates other into u.
func (u *TokenUsage) Add(other TokenUsage) {
	u.PromptTokens += other.PromptTokens
	u.CompletionTokens += other.CompletionTokens
	u.TotalTokens += other.TotalTokens
}

// Analysis is the structured result of analyzing one Item with one model.
// When Error is set the content fields are placeholders and the analysis
// must be treated as failed.
type Analysis struct {
	Summary        string   `json:"summary"`
	KeyPoints      []string `json:"key_points,omitempty"`
	Sentiment      string   `json:"sentiment,omitempty"`
	Confidence     string   `json:"confidence,omitempty"`
	BiasCheck      string   `json:"bias_check,omitempty"`
	MissingContext string   `json:"missing_context,omitempty"`
	Implications   string   `json:"implications,omitempty"`

	Model      string      `json:"model,omitempty"`
	ModelID    string      `json:"model_id,omitempty"`
	AnalyzedAt string      `json:"analyzed_at,omitempty"`
	TokenUsage *TokenUsage `json:"token_usage,omitempty"`
	Error      string      `json:"error,omitempty"`
	ErrorType  string      `json:"error_type,omitempty"`
}

// Failed reports whether the analysis carries a transport failure.
func (a Analysis) Failed() bool {
	return a.Error != ""
}

// WithMetadataFrom copies model identity, timestamp and usage from src.
func (a Analysis) WithMetadataFrom(src Analysis) Analysis {
	a.Model = src.Model
	a.ModelID = src.ModelID
	a.AnalyzedAt = src.AnalyzedAt
	a.TokenUsage = src.TokenUsage
	return a
}

// ModelAnalysisRecord pairs an Item with the Analysis one model produced for it.
type ModelAnalysisRecord struct {
	Article  Item     `json:"article"`
	Analysis Analysis `json:"analysis"`
}
