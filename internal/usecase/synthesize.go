package usecase

import (
	"context"
	"fmt"

	"NewsPerspectives/internal/cost"
	"NewsPerspectives/internal/domain"
	"NewsPerspectives/internal/perspective"
	"NewsPerspectives/internal/summary"
)

// SynthesizeAgent identifies the synthesis stage.
const SynthesizeAgent = "perspective-synthesizer"

// SynthesizeStage merges whatever per-model artifacts exist.
type SynthesizeStage struct {
	stageBase
	synthesizer *perspective.Synthesizer
	sources     []perspective.ModelSource
	output      string
}

// NewSynthesizeStage wires the synthesizer with the static model list.
func NewSynthesizeStage(deps StageDeps, synthesizer *perspective.Synthesizer, sources []perspective.ModelSource, output string) *SynthesizeStage {
	return &SynthesizeStage{
		stageBase:   newStageBase(deps, "stage.synthesize"),
		synthesizer: synthesizer,
		sources:     sources,
		output:      output,
	}
}

// Run always produces an artifact, even when no model reported.
func (s *SynthesizeStage) Run(ctx context.Context) (domain.SynthesizedArtifact, error) {
	tracker := s.track()
	run := domain.StageRun{Agent: SynthesizeAgent, Status: domain.StatusFailed}

	res := s.synthesizer.Synthesize(s.sources)
	costs := tracker.Report(nil)

	doc := domain.SynthesizedArtifact{
		Agent:     SynthesizeAgent,
		Timestamp: domain.Timestamp(tracker.FinishedAt()),
		Status:    domain.StatusCompleted,
		Data: domain.SynthesizedData{
			Articles:       res.Articles,
			Count:          len(res.Articles),
			Consensus:      res.Consensus,
			Models:         res.Models,
			ModelsReported: res.Reported,
		},
		Metadata: domain.SynthesizedMetadata{
			ModelsIncluded:    res.Models,
			TotalPerspectives: res.Consensus.TotalAnalyses,
			GeneratedAt:       domain.Timestamp(tracker.FinishedAt()),
		},
		Costs: costs,
	}

	if err := s.store.Save(s.output, doc); err != nil {
		s.record(ctx, tracker, run)
		return doc, fmt.Errorf("save perspectives: %w", err)
	}
	s.logger.Info("synthesis completed",
		"articles", doc.Data.Count,
		"models_reported", len(res.Reported),
		"models", len(res.Models),
		"total_analyses", res.Consensus.TotalAnalyses,
		"dominant_sentiment", res.Consensus.DominantSentiment,
		"agreement", res.Consensus.AgreementPercentage,
	)

	run.Status = domain.StatusCompleted
	run.Items = doc.Data.Count
	s.record(ctx, tracker, run)

	s.publish(s.report(doc, tracker, costs))
	return doc, nil
}

func (s *SynthesizeStage) report(doc domain.SynthesizedArtifact, tracker *cost.Tracker, costs domain.CostReport) *summary.Report {
	reported := map[string]bool{}
	for _, name := range doc.Data.ModelsReported {
		reported[name] = true
	}
	rows := make([][]string, 0, len(doc.Data.Models))
	for _, name := range doc.Data.Models {
		status := "missing"
		if reported[name] {
			status = "reported"
		}
		rows = append(rows, []string{name, status})
	}

	c := doc.Data.Consensus
	return summary.NewReport("Perspective Synthesizer", "🔄").
		Metric("Status", "Completed").
		Metric("Articles Synthesized", doc.Data.Count).
		Metric("Models Reported", fmt.Sprintf("%d of %d", len(doc.Data.ModelsReported), len(doc.Data.Models))).
		Metric("Total Perspectives", c.TotalAnalyses).
		Metric("Dominant Sentiment", c.DominantSentiment).
		Metric("Agreement", fmt.Sprintf("%.1f%%", c.AgreementPercentage)).
		Table([]string{"Model", "Status"}, rows).
		Timestamps(tracker.StartedAt(), tracker.FinishedAt()).
		Costs(costs)
}
