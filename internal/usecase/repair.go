package usecase

import (
	"context"
	"fmt"

	"NewsPerspectives/internal/domain"
	"NewsPerspectives/internal/repair"
	"NewsPerspectives/internal/summary"
)

// RepairAgent identifies repair runs in the ledger.
const RepairAgent = "artifact-repair"

// RepairStage re-normalizes stored per-model artifacts in place.
type RepairStage struct {
	stageBase
	repairer *repair.Repairer
}

// NewRepairStage wires the repairer.
func NewRepairStage(deps StageDeps, repairer *repair.Repairer) *RepairStage {
	return &RepairStage{
		stageBase: newStageBase(deps, "stage.repair"),
		repairer:  repairer,
	}
}

// Run repairs every path. Missing files are skipped; other failures are
// returned after all paths were tried.
func (s *RepairStage) Run(ctx context.Context, paths []string) ([]repair.Report, error) {
	tracker := s.track()

	reports, err := s.repairer.RepairAll(paths)
	tracker.Finish()

	fixed, checked := 0, 0
	rows := make([][]string, 0, len(reports))
	for _, r := range reports {
		fixed += r.Fixed
		checked += r.Checked
		status := fmt.Sprintf("%d fixed", r.Fixed)
		if r.Missing {
			status = "missing"
		}
		rows = append(rows, []string{r.Path, fmt.Sprint(r.Checked), status})
	}
	s.logger.Info("repair completed", "files", len(paths), "checked", checked, "fixed", fixed)

	run := domain.StageRun{Agent: RepairAgent, Status: domain.StatusCompleted, Items: fixed}
	if err != nil {
		run.Status = domain.StatusFailed
	}
	s.record(ctx, tracker, run)

	s.publish(summary.NewReport("Artifact Repair", "🔧").
		Metric("Articles Fixed", fixed).
		Table([]string{"Artifact", "Analyses", "Result"}, rows, 1).
		Timestamps(tracker.StartedAt(), tracker.FinishedAt()))

	return reports, err
}
