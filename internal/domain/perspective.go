package domain

// PerspectiveEntry is one model's contribution to a synthesized article.
type PerspectiveEntry struct {
	Model          string   `json:"model"`
	ModelID        string   `json:"model_id"`
	Emoji          string   `json:"emoji"`
	Summary        string   `json:"summary"`
	KeyPoints      []string `json:"key_points"`
	Sentiment      string   `json:"sentiment"`
	Confidence     string   `json:"confidence"`
	BiasCheck      string   `json:"bias_check"`
	MissingContext string   `json:"missing_context"`
	Implications   string   `json:"implications"`
	AnalyzedAt     string   `json:"analyzed_at"`
	Failed         bool     `json:"failed,omitempty"`
}

// Consensus summarizes how the models analyzing one article agree.
type Consensus struct {
	DominantSentiment     string         `json:"dominant_sentiment"`
	AgreementPercentage   float64        `json:"agreement_percentage"`
	SentimentDistribution map[string]int `json:"sentiment_distribution"`
	ModelsAnalyzed        int            `json:"models_analyzed"`
}

// SynthesizedArticle is an item with every perspective contributed for it.
type SynthesizedArticle struct {
	Article      Item               `json:"article"`
	Perspectives []PerspectiveEntry `json:"perspectives"`
	Consensus    Consensus          `json:"consensus"`
}

// ConfidenceHistogram has fixed buckets; unrecognized values are dropped.
type ConfidenceHistogram struct {
	High   int `json:"high"`
	Medium int `json:"medium"`
	Low    int `json:"low"`
}

// GlobalConsensus aggregates sentiment and confidence over every loaded analysis.
type GlobalConsensus struct {
	DominantSentiment      string              `json:"dominant_sentiment"`
	SentimentDistribution  map[string]int      `json:"sentiment_distribution"`
	AgreementPercentage    float64             `json:"agreement_percentage"`
	TotalAnalyses          int                 `json:"total_analyses"`
	ConfidenceDistribution ConfidenceHistogram `json:"confidence_distribution"`
}
