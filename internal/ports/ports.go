package ports

import (
	"context"
	"time"

	"NewsPerspectives/internal/domain"
)

// ItemSource pulls fresh items from upstream providers.
type ItemSource interface {
	FetchItems(ctx context.Context, day time.Time) ([]domain.Item, error)
}

// CompletionClient sends one request to an LLM completion service.
// Rate-limit failures must be distinguishable from other failures.
type CompletionClient interface {
	Complete(ctx context.Context, req domain.CompletionRequest) (domain.Completion, error)
}

// ArtifactStore reads and writes stage artifacts.
type ArtifactStore interface {
	Load(path string, v any) error
	Save(path string, v any) error
}

// RunRepository keeps the ledger of stage runs.
type RunRepository interface {
	RecordRun(ctx context.Context, run domain.StageRun) error
	RecentRuns(ctx context.Context, agent string, limit int) ([]domain.StageRun, error)
}
