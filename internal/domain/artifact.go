package domain

// Stage status values.
const (
	StatusCompleted = "completed"
	StatusFailed    = "failed"
)

// OpenAICost is the token-priced part of a CostReport.
type OpenAICost struct {
	Input  float64 `json:"input"`
	Output float64 `json:"output"`
	Total  float64 `json:"total"`
}

// CostReport is embedded in every stage artifact.
type CostReport struct {
	ExecutionTime    float64     `json:"execution_time"`
	ExecutionMinutes float64     `json:"execution_minutes"`
	GitHubActions    float64     `json:"github_actions"`
	OpenAI           OpenAICost  `json:"openai"`
	Total            float64     `json:"total"`
	TokenUsage       *TokenUsage `json:"token_usage,omitempty"`
}

// ItemsArtifact is written by a fetch stage.
type ItemsArtifact struct {
	Agent     string        `json:"agent"`
	Timestamp string        `json:"timestamp"`
	Status    string        `json:"status"`
	Data      ItemsData     `json:"data"`
	Metadata  ItemsMetadata `json:"metadata"`
	Costs     CostReport    `json:"costs"`
}

// ItemsData carries the fetched items.
type ItemsData struct {
	Articles  []Item   `json:"articles"`
	Count     int      `json:"count"`
	Topics    []string `json:"topics,omitempty"`
	FetchDate string   `json:"fetch_date,omitempty"`
}

// ItemsMetadata describes where items came from.
type ItemsMetadata struct {
	Source        string   `json:"source,omitempty"`
	TopicsQueried []string `json:"topics_queried,omitempty"`
}

// ModelArtifact is written once by each model's analyze run.
type ModelArtifact struct {
	Agent     string        `json:"agent"`
	Model     string        `json:"model"`
	ModelID   string        `json:"model_id"`
	Timestamp string        `json:"timestamp"`
	Status    string        `json:"status"`
	Data      ModelData     `json:"data"`
	Metadata  ModelMetadata `json:"metadata"`
	Costs     CostReport    `json:"costs"`
}

// ModelData holds the ordered analyses of one model run.
type ModelData struct {
	Analyses []ModelAnalysisRecord `json:"analyses"`
	Count    int                   `json:"count"`
}

// ModelMetadata is informational only.
type ModelMetadata struct {
	Model            string `json:"model"`
	ArticlesAnalyzed int    `json:"articles_analyzed"`
	Failed           int    `json:"failed"`
}

// SynthesizedArtifact is the output of the perspective synthesis stage.
type SynthesizedArtifact struct {
	Agent     string              `json:"agent"`
	Timestamp string              `json:"timestamp"`
	Status    string              `json:"status"`
	Data      SynthesizedData     `json:"data"`
	Metadata  SynthesizedMetadata `json:"metadata"`
	Costs     CostReport          `json:"costs"`
}

// SynthesizedData carries articles, global consensus and the static model list.
type SynthesizedData struct {
	Articles       []SynthesizedArticle `json:"articles"`
	Count          int                  `json:"count"`
	Consensus      GlobalConsensus      `json:"consensus"`
	Models         []string             `json:"models"`
	ModelsReported []string             `json:"models_reported"`
}

// SynthesizedMetadata is informational only.
type SynthesizedMetadata struct {
	ModelsIncluded    []string `json:"models_included"`
	TotalPerspectives int      `json:"total_perspectives"`
	GeneratedAt       string   `json:"generated_at"`
}

// StageRun is one row of the run ledger.
type StageRun struct {
	ID               string
	Agent            string
	Model            string
	Status           string
	Items            int
	Failures         int
	PromptTokens     int
	CompletionTokens int
	TotalTokens      int
	StartedAt        string
	FinishedAt       string
}
