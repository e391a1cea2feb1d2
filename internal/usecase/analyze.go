package usecase

import (
	"context"
	"errors"
	"fmt"

	"NewsPerspectives/internal/analysis"
	"NewsPerspectives/internal/cost"
	"NewsPerspectives/internal/domain"
	"NewsPerspectives/internal/extract"
	"NewsPerspectives/internal/summary"
)

// ModelRun is one configured model ready to analyze.
type ModelRun struct {
	Analyzer *analysis.Analyzer
	Agent    string
	Marker   string
	Output   string
}

// AnalyzeStage runs one model over the items artifact.
type AnalyzeStage struct {
	stageBase
	input string
}

// NewAnalyzeStage reads items from input.
func NewAnalyzeStage(deps StageDeps, input string) *AnalyzeStage {
	return &AnalyzeStage{
		stageBase: newStageBase(deps, "stage.analyze"),
		input:     input,
	}
}

// LoadItems reads the items artifact.
func (s *AnalyzeStage) LoadItems() ([]domain.Item, error) {
	var doc domain.ItemsArtifact
	if err := s.store.Load(s.input, &doc); err != nil {
		return nil, fmt.Errorf("load items: %w", err)
	}
	return doc.Data.Articles, nil
}

// Run analyzes every item with one model and writes its artifact once at the
// end. Item failures are recorded in the artifact, not returned.
func (s *AnalyzeStage) Run(ctx context.Context, m ModelRun) (domain.ModelArtifact, error) {
	items, err := s.LoadItems()
	if err != nil {
		return domain.ModelArtifact{}, err
	}
	return s.analyze(ctx, m, items)
}

// RunAll runs every model in order over the same items. A model that fails
// does not stop the remaining ones.
func (s *AnalyzeStage) RunAll(ctx context.Context, models []ModelRun) error {
	items, err := s.LoadItems()
	if err != nil {
		return err
	}

	var errs []error
	for _, m := range models {
		if err := ctx.Err(); err != nil {
			return errors.Join(append(errs, err)...)
		}
		if _, err := s.analyze(ctx, m, items); err != nil {
			s.logger.Error("model run failed", "model", m.Analyzer.Model().Name, "error", err)
			errs = append(errs, fmt.Errorf("%s: %w", m.Analyzer.Model().Name, err))
		}
	}
	return errors.Join(errs...)
}

func (s *AnalyzeStage) analyze(ctx context.Context, m ModelRun, items []domain.Item) (domain.ModelArtifact, error) {
	model := m.Analyzer.Model()
	tracker := s.track()
	run := domain.StageRun{Agent: m.Agent, Model: model.Name, Status: domain.StatusFailed}

	s.logger.Info("analysis started", "model", model.Name, "model_id", model.ModelID, "items", len(items))
	batch, err := m.Analyzer.AnalyzeMany(ctx, items)
	if err != nil {
		tracker.Finish()
		s.record(ctx, tracker, usageRun(run, batch.Usage))
		return domain.ModelArtifact{}, fmt.Errorf("analyze with %s: %w", model.Name, err)
	}

	usage := batch.Usage
	costs := tracker.Report(&usage)
	doc := domain.ModelArtifact{
		Agent:     m.Agent,
		Model:     model.Name,
		ModelID:   model.ModelID,
		Timestamp: domain.Timestamp(tracker.FinishedAt()),
		Status:    domain.StatusCompleted,
		Data: domain.ModelData{
			Analyses: batch.Records,
			Count:    len(batch.Records),
		},
		Metadata: domain.ModelMetadata{
			Model:            model.Name,
			ArticlesAnalyzed: len(batch.Records),
			Failed:           batch.Failed,
		},
		Costs: costs,
	}

	if err := s.store.Save(m.Output, doc); err != nil {
		s.record(ctx, tracker, usageRun(run, usage))
		return doc, fmt.Errorf("save %s analysis: %w", model.Name, err)
	}
	s.logger.Info("analysis completed",
		"model", model.Name,
		"analyzed", len(batch.Records),
		"failed", batch.Failed,
		"clean", batch.Quality[extract.Clean],
		"recovered", batch.Quality[extract.Recovered],
		"fallback", batch.Quality[extract.Fallback],
		"total_tokens", usage.TotalTokens,
		"output", m.Output,
	)

	run.Status = domain.StatusCompleted
	run.Items = len(batch.Records)
	run.Failures = batch.Failed
	s.record(ctx, tracker, usageRun(run, usage))

	s.publish(s.report(m, doc, batch, tracker, costs))
	return doc, nil
}

func (s *AnalyzeStage) report(m ModelRun, doc domain.ModelArtifact, batch analysis.Batch, tracker *cost.Tracker, costs domain.CostReport) *summary.Report {
	quality := [][]string{
		{string(extract.Clean), fmt.Sprint(batch.Quality[extract.Clean])},
		{string(extract.Recovered), fmt.Sprint(batch.Quality[extract.Recovered])},
		{string(extract.Fallback), fmt.Sprint(batch.Quality[extract.Fallback])},
		{"failed", fmt.Sprint(batch.Failed)},
	}
	return summary.NewReport(doc.Model+" Analyzer", m.Marker).
		Metric("Status", "Completed").
		Metric("Model", doc.Model).
		Metric("Articles Analyzed", doc.Data.Count).
		Table([]string{"Outcome", "Articles"}, quality, 1).
		Timestamps(tracker.StartedAt(), tracker.FinishedAt()).
		Costs(costs)
}
