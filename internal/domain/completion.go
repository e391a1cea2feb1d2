package domain

// CompletionRequest is one call to the hosted completion service.
type CompletionRequest struct {
	Model        string
	SystemPrompt string
	UserPrompt   string
	Temperature  float64
	MaxTokens    int
}

// Completion is the free-form text a model returned.
// Usage is nil when the service did not report token counts.
type Completion struct {
	Text  string
	Usage *TokenUsage
}
