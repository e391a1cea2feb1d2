package usecase

import (
	"context"
	"fmt"
	"strings"
	"time"

	"NewsPerspectives/internal/cost"
	"NewsPerspectives/internal/domain"
	"NewsPerspectives/internal/ports"
	"NewsPerspectives/internal/summary"
)

// FetchAgent identifies the fetch stage in artifacts and the ledger.
const FetchAgent = "news-fetcher"

// FetchSettings configures the fetch stage.
type FetchSettings struct {
	Output     string
	SourceName string
	Topics     []string
}

// FetchStage pulls items from every configured source into the items artifact.
type FetchStage struct {
	stageBase
	source   ports.ItemSource
	settings FetchSettings
}

// NewFetchStage wires the item source.
func NewFetchStage(deps StageDeps, source ports.ItemSource, settings FetchSettings) *FetchStage {
	return &FetchStage{
		stageBase: newStageBase(deps, "stage.fetch"),
		source:    source,
		settings:  settings,
	}
}

// Run fetches items for day and saves the artifact.
func (s *FetchStage) Run(ctx context.Context, day time.Time) (domain.ItemsArtifact, error) {
	tracker := s.track()
	run := domain.StageRun{Agent: FetchAgent, Status: domain.StatusFailed}

	items, err := s.source.FetchItems(ctx, day)
	if err != nil {
		tracker.Finish()
		s.record(ctx, tracker, run)
		return domain.ItemsArtifact{}, fmt.Errorf("fetch items: %w", err)
	}
	if items == nil {
		items = []domain.Item{}
	}

	costs := tracker.Report(nil)
	doc := domain.ItemsArtifact{
		Agent:     FetchAgent,
		Timestamp: domain.Timestamp(tracker.FinishedAt()),
		Status:    domain.StatusCompleted,
		Data: domain.ItemsData{
			Articles:  items,
			Count:     len(items),
			Topics:    s.settings.Topics,
			FetchDate: day.Format("2006-01-02"),
		},
		Metadata: domain.ItemsMetadata{
			Source:        s.settings.SourceName,
			TopicsQueried: s.settings.Topics,
		},
		Costs: costs,
	}

	if err := s.store.Save(s.settings.Output, doc); err != nil {
		s.record(ctx, tracker, run)
		return doc, fmt.Errorf("save items: %w", err)
	}
	s.logger.Info("fetch completed", "items", len(items), "output", s.settings.Output)

	run.Status = domain.StatusCompleted
	run.Items = len(items)
	s.record(ctx, tracker, run)

	s.publish(s.report(doc, tracker, costs))
	return doc, nil
}

func (s *FetchStage) report(doc domain.ItemsArtifact, tracker *cost.Tracker, costs domain.CostReport) *summary.Report {
	rows := make([][]string, 0, len(doc.Data.Articles))
	for _, item := range doc.Data.Articles {
		rows = append(rows, []string{item.Topic, item.Source, item.Title})
	}
	return summary.NewReport("News Fetcher", "📰").
		Metric("Status", "Completed").
		Metric("Articles Fetched", doc.Data.Count).
		Metric("Topics", joinOrNone(doc.Data.Topics)).
		Table([]string{"Topic", "Source", "Title"}, rows).
		Timestamps(tracker.StartedAt(), tracker.FinishedAt()).
		Costs(costs)
}

func joinOrNone(values []string) string {
	if len(values) == 0 {
		return "none"
	}
	return strings.Join(values, ", ")
}
