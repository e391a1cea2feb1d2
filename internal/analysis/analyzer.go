// Package analysis runs one model over a batch of items, one request at a time.
package analysis

import (
	"context"
	"log/slog"
	"time"

	"NewsPerspectives/internal/domain"
	"NewsPerspectives/internal/extract"
	"NewsPerspectives/internal/logging"
	"NewsPerspectives/internal/ports"
	"NewsPerspectives/internal/retry"
)

// Identity names the model an Analyzer drives.
type Identity struct {
	// Name is the display name recorded on every analysis.
	Name string
	// ModelID is the identifier sent to the completion service.
	ModelID string
}

// Options tune an Analyzer. Zero values fall back to sensible defaults.
type Options struct {
	Policy       *retry.Policy
	SystemPrompt string
	Temperature  float64
	MaxTokens    int
	// ItemDelay paces consecutive requests; it is not applied after the last item.
	ItemDelay time.Duration
	Sleep     retry.Sleeper
	// ErrorKind classifies transport failures for the error_type field.
	ErrorKind func(error) string
	Now       func() time.Time
	Logger    *slog.Logger
}

// Analyzer is the per-model request/response cycle.
type Analyzer struct {
	model  Identity
	client ports.CompletionClient
	opts   Options
	logger *slog.Logger
}

// Batch is the outcome of AnalyzeMany.
type Batch struct {
	Records []domain.ModelAnalysisRecord
	Usage   domain.TokenUsage
	Failed  int
	Quality map[extract.Quality]int
}

// New wires an Analyzer for model on top of client.
func New(model Identity, client ports.CompletionClient, opts Options) *Analyzer {
	if opts.Policy == nil {
		opts.Policy = retry.NewPolicy(nil, retry.WithMaxAttempts(1))
	}
	if opts.Sleep == nil {
		opts.Sleep = retry.SleepContext
	}
	if opts.ErrorKind == nil {
		opts.ErrorKind = func(error) string { return "error" }
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Analyzer{
		model:  model,
		client: client,
		opts:   opts,
		logger: logging.OrDiscard(opts.Logger),
	}
}

// Model returns the identity the analyzer records.
func (a *Analyzer) Model() Identity {
	return a.model
}

// Analyze asks the model about one item. It never returns an error: transport
// failures produce an Analysis with Error set and sentiment unknown.
func (a *Analyzer) Analyze(ctx context.Context, item domain.Item) domain.Analysis {
	analysis, _ := a.analyze(ctx, item)
	return analysis
}

func (a *Analyzer) analyze(ctx context.Context, item domain.Item) (domain.Analysis, extract.Quality) {
	req := domain.CompletionRequest{
		Model:        a.model.ModelID,
		SystemPrompt: a.opts.SystemPrompt,
		UserPrompt:   BuildPrompt(item),
		Temperature:  a.opts.Temperature,
		MaxTokens:    a.opts.MaxTokens,
	}

	started := time.Now()
	completion, err := retry.Call(ctx, a.opts.Policy, func(ctx context.Context) (domain.Completion, error) {
		return a.client.Complete(ctx, req)
	})
	if err != nil {
		a.logger.Error("analysis failed",
			"model", a.model.Name,
			"item", item.Key(),
			"error", err,
		)
		return a.failed(err), ""
	}

	res := extract.Extract(completion.Text)
	analysis := res.Analysis
	analysis.Error = ""
	analysis.ErrorType = ""
	analysis.Model = a.model.Name
	analysis.ModelID = a.model.ModelID
	analysis.AnalyzedAt = domain.Timestamp(a.opts.Now())
	analysis.TokenUsage = nil
	if completion.Usage != nil {
		usage := *completion.Usage
		analysis.TokenUsage = &usage
	}

	a.logger.Debug("analysis completed",
		"model", a.model.Name,
		"item", item.Key(),
		"quality", res.Quality,
		"elapsed", time.Since(started).Round(time.Millisecond),
	)
	return analysis, res.Quality
}

func (a *Analyzer) failed(err error) domain.Analysis {
	return domain.Analysis{
		Summary:    "Analysis failed: " + err.Error(),
		Sentiment:  domain.SentimentUnknown,
		Model:      a.model.Name,
		ModelID:    a.model.ModelID,
		AnalyzedAt: domain.Timestamp(a.opts.Now()),
		Error:      err.Error(),
		ErrorType:  a.opts.ErrorKind(err),
	}
}

// AnalyzeMany processes items strictly in order with the configured pacing
// delay between requests. A failed item never aborts the batch; only context
// cancellation during pacing stops it early, returning what was analyzed.
func (a *Analyzer) AnalyzeMany(ctx context.Context, items []domain.Item) (Batch, error) {
	batch := Batch{
		Records: make([]domain.ModelAnalysisRecord, 0, len(items)),
		Quality: map[extract.Quality]int{},
	}

	for i, item := range items {
		a.logger.Info("analyzing item",
			"model", a.model.Name,
			"index", i+1,
			"total", len(items),
			"title", truncateTitle(item.Title),
		)

		analysis, quality := a.analyze(ctx, item)
		if analysis.Failed() {
			batch.Failed++
		} else {
			batch.Quality[quality]++
		}
		if analysis.TokenUsage != nil {
			batch.Usage.Add(*analysis.TokenUsage)
		}
		batch.Records = append(batch.Records, domain.ModelAnalysisRecord{Article: item, Analysis: analysis})

		if i < len(items)-1 {
			if err := a.opts.Sleep(ctx, a.opts.ItemDelay); err != nil {
				return batch, err
			}
		}
	}

	return batch, nil
}

func truncateTitle(title string) string {
	runes := []rune(title)
	if len(runes) <= 60 {
		return title
	}
	return string(runes[:60]) + "..."
}
