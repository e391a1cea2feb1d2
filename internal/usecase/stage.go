// Package usecase holds the pipeline stages. Each stage is one short-lived
// run that reads upstream artifacts and writes exactly one artifact.
package usecase

import (
	"context"
	"log/slog"
	"time"

	"NewsPerspectives/internal/cost"
	"NewsPerspectives/internal/domain"
	"NewsPerspectives/internal/logging"
	"NewsPerspectives/internal/ports"
	"NewsPerspectives/internal/summary"
)

// Reporter receives the markdown summary of a finished stage.
type Reporter interface {
	Write(r *summary.Report) error
}

// StageDeps wires the driven adapters shared by every stage.
type StageDeps struct {
	Store ports.ArtifactStore
	// Ledger and Summary are optional.
	Ledger  ports.RunRepository
	Summary Reporter
	Now     func() time.Time
	Logger  *slog.Logger
}

type stageBase struct {
	store   ports.ArtifactStore
	ledger  ports.RunRepository
	summary Reporter
	now     func() time.Time
	logger  *slog.Logger
}

func newStageBase(deps StageDeps, component string) stageBase {
	now := deps.Now
	if now == nil {
		now = time.Now
	}
	return stageBase{
		store:   deps.Store,
		ledger:  deps.Ledger,
		summary: deps.Summary,
		now:     now,
		logger:  logging.OrDiscard(deps.Logger).With("component", component),
	}
}

func (b stageBase) track() *cost.Tracker {
	return cost.Start(b.now)
}

// record appends run to the ledger. Ledger failures are logged only.
func (b stageBase) record(ctx context.Context, tracker *cost.Tracker, run domain.StageRun) {
	if b.ledger == nil {
		return
	}
	run.StartedAt = domain.Timestamp(tracker.StartedAt())
	if finished := tracker.FinishedAt(); !finished.IsZero() {
		run.FinishedAt = domain.Timestamp(finished)
	}
	if err := b.ledger.RecordRun(ctx, run); err != nil {
		b.logger.Warn("cannot record run", "agent", run.Agent, "error", err)
	}
}

// publish writes the step summary. Summary failures are logged only.
func (b stageBase) publish(r *summary.Report) {
	if b.summary == nil {
		return
	}
	if err := b.summary.Write(r); err != nil {
		b.logger.Warn("cannot write step summary", "error", err)
	}
}

func usageRun(run domain.StageRun, usage domain.TokenUsage) domain.StageRun {
	run.PromptTokens = usage.PromptTokens
	run.CompletionTokens = usage.CompletionTokens
	run.TotalTokens = usage.TotalTokens
	return run
}
