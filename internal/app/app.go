package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"NewsPerspectives/internal/analysis"
	"NewsPerspectives/internal/artifact"
	"NewsPerspectives/internal/config"
	"NewsPerspectives/internal/domain"
	"NewsPerspectives/internal/infrastructure/llm"
	"NewsPerspectives/internal/infrastructure/parser"
	"NewsPerspectives/internal/infrastructure/storage"
	"NewsPerspectives/internal/logging"
	"NewsPerspectives/internal/perspective"
	"NewsPerspectives/internal/ports"
	"NewsPerspectives/internal/repair"
	"NewsPerspectives/internal/retry"
	"NewsPerspectives/internal/scanner"
	"NewsPerspectives/internal/summary"
	"NewsPerspectives/internal/usecase"
)

// ErrHistoryDisabled is returned by History when no ledger is configured.
var ErrHistoryDisabled = errors.New("run history is disabled")

// Application wires configs to the pipeline stages.
type Application struct {
	cfg     config.Config
	logger  *slog.Logger
	store   *artifact.Store
	ledger  *storage.RunRepository
	summary *summary.Writer
	client  ports.CompletionClient
}

// New builds the application. A ledger that cannot be opened is logged and
// left out; stages run without it.
func New(ctx context.Context, cfg config.Config, baseLogger *slog.Logger) *Application {
	if baseLogger == nil {
		baseLogger = logging.New(cfg.Logging.Level)
	}

	a := &Application{
		cfg:     cfg,
		logger:  baseLogger,
		store:   artifact.NewStore(),
		summary: summary.NewWriter(cfg.Summary.Path, baseLogger.With("component", "summary")),
		client:  llm.NewClient(cfg.Completion, nil),
	}

	if cfg.History.Path != "" {
		repo, err := storage.OpenRunRepository(ctx, cfg.History.Path)
		if err != nil {
			baseLogger.Warn("run ledger unavailable", "path", cfg.History.Path, "error", err)
		} else {
			a.ledger = repo
		}
	}
	return a
}

// Close releases the ledger.
func (a *Application) Close() error {
	return a.ledger.Close()
}

func (a *Application) deps() usecase.StageDeps {
	deps := usecase.StageDeps{
		Store:   a.store,
		Summary: a.summary,
		Logger:  a.logger,
	}
	if a.ledger != nil {
		deps.Ledger = a.ledger
	}
	return deps
}

// Fetch runs every configured source for today in the fetch timezone.
func (a *Application) Fetch(ctx context.Context) (domain.ItemsArtifact, error) {
	registry := scanner.NewRegistry(
		parser.NewGoogleNewsScanner(nil, a.logger.With("component", "scanner.google-news")),
		parser.NewArxivScanner(nil, a.logger.With("component", "scanner.arxiv")),
	)
	source := parser.NewStrategySource(registry, a.cfg.Sources, a.logger.With("component", "source"))

	names := make([]string, 0, len(a.cfg.Sources))
	var topics []string
	for _, src := range a.cfg.Sources {
		names = append(names, src.Name)
		for _, cat := range src.Categories {
			topics = append(topics, cat.Name)
		}
	}

	stage := usecase.NewFetchStage(a.deps(), source, usecase.FetchSettings{
		Output:     a.cfg.Paths.Items,
		SourceName: strings.Join(names, ", "),
		Topics:     topics,
	})
	return stage.Run(ctx, time.Now().In(a.cfg.Fetch.Location()))
}

// Analyze runs one configured model, looked up by name or agent id.
func (a *Application) Analyze(ctx context.Context, name string) (domain.ModelArtifact, error) {
	m, ok := a.cfg.Model(name)
	if !ok {
		return domain.ModelArtifact{}, fmt.Errorf("unknown model %q", name)
	}
	return usecase.NewAnalyzeStage(a.deps(), a.cfg.Paths.Items).Run(ctx, a.modelRun(m))
}

// AnalyzeAll runs every configured model in order.
func (a *Application) AnalyzeAll(ctx context.Context) error {
	runs := make([]usecase.ModelRun, 0, len(a.cfg.Models))
	for _, m := range a.cfg.Models {
		runs = append(runs, a.modelRun(m))
	}
	return usecase.NewAnalyzeStage(a.deps(), a.cfg.Paths.Items).RunAll(ctx, runs)
}

func (a *Application) modelRun(m config.ModelConfig) usecase.ModelRun {
	logger := a.logger.With("component", "analyzer", "model", m.Name)
	policy := retry.NewPolicy(llm.IsRateLimited,
		retry.WithMaxAttempts(a.cfg.Retry.MaxAttempts),
		retry.WithBaseDelay(a.cfg.Retry.BaseDelay),
		retry.WithLogger(logger),
	)
	analyzer := analysis.New(analysis.Identity{Name: m.Name, ModelID: m.ModelID}, a.client, analysis.Options{
		Policy:       policy,
		SystemPrompt: a.cfg.Completion.SystemPrompt,
		Temperature:  a.cfg.Completion.Temperature,
		MaxTokens:    a.cfg.Completion.MaxTokens,
		ItemDelay:    a.cfg.Pacing.ItemDelay,
		ErrorKind:    llm.ErrorKind,
		Logger:       logger,
	})
	return usecase.ModelRun{
		Analyzer: analyzer,
		Agent:    m.Agent,
		Marker:   m.Marker,
		Output:   m.Artifact,
	}
}

// Synthesize merges every per-model artifact that exists.
func (a *Application) Synthesize(ctx context.Context) (domain.SynthesizedArtifact, error) {
	synth := perspective.NewSynthesizer(a.store, perspective.NewMarkers(a.cfg.Markers()), a.logger.With("component", "synthesizer"))
	return usecase.NewSynthesizeStage(a.deps(), synth, a.ModelSources(), a.cfg.Paths.Perspectives).Run(ctx)
}

// ModelSources is the static model list in configured order.
func (a *Application) ModelSources() []perspective.ModelSource {
	sources := make([]perspective.ModelSource, 0, len(a.cfg.Models))
	for _, m := range a.cfg.Models {
		sources = append(sources, perspective.ModelSource{Name: m.Name, Path: m.Artifact})
	}
	return sources
}

// Repair fixes the given artifacts, or every configured one when paths is empty.
func (a *Application) Repair(ctx context.Context, paths []string) ([]repair.Report, error) {
	if len(paths) == 0 {
		for _, m := range a.cfg.Models {
			paths = append(paths, m.Artifact)
		}
	}
	repairer := repair.New(a.store, a.logger.With("component", "repair"))
	return usecase.NewRepairStage(a.deps(), repairer).Run(ctx, paths)
}

// History lists recent ledger entries.
func (a *Application) History(ctx context.Context, agent string, limit int) ([]domain.StageRun, error) {
	if a.ledger == nil {
		return nil, ErrHistoryDisabled
	}
	return a.ledger.RecentRuns(ctx, agent, limit)
}
