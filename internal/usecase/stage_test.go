package usecase

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"NewsPerspectives/internal/analysis"
	"NewsPerspectives/internal/artifact"
	"NewsPerspectives/internal/domain"
	"NewsPerspectives/internal/extract"
	"NewsPerspectives/internal/perspective"
	"NewsPerspectives/internal/repair"
	"NewsPerspectives/internal/summary"
)

var stageNow = time.Date(2026, time.October, 16, 7, 0, 0, 0, time.UTC)

type memoryLedger struct {
	mu   sync.Mutex
	runs []domain.StageRun
	err  error
}

func (l *memoryLedger) RecordRun(_ context.Context, run domain.StageRun) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.err != nil {
		return l.err
	}
	l.runs = append(l.runs, run)
	return nil
}

func (l *memoryLedger) RecentRuns(context.Context, string, int) ([]domain.StageRun, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]domain.StageRun(nil), l.runs...), nil
}

type captureReporter struct {
	reports []string
}

func (c *captureReporter) Write(r *summary.Report) error {
	c.reports = append(c.reports, r.String())
	return nil
}

type itemSourceFunc func(ctx context.Context, day time.Time) ([]domain.Item, error)

func (f itemSourceFunc) FetchItems(ctx context.Context, day time.Time) ([]domain.Item, error) {
	return f(ctx, day)
}

type completionFunc func(ctx context.Context, req domain.CompletionRequest) (domain.Completion, error)

func (f completionFunc) Complete(ctx context.Context, req domain.CompletionRequest) (domain.Completion, error) {
	return f(ctx, req)
}

type fixture struct {
	dir      string
	store    *artifact.Store
	ledger   *memoryLedger
	reporter *captureReporter
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	return &fixture{
		dir:      t.TempDir(),
		store:    artifact.NewStore(),
		ledger:   &memoryLedger{},
		reporter: &captureReporter{},
	}
}

func (f *fixture) deps() StageDeps {
	clock := stageNow
	return StageDeps{
		Store:   f.store,
		Ledger:  f.ledger,
		Summary: f.reporter,
		Now: func() time.Time {
			clock = clock.Add(time.Second)
			return clock
		},
	}
}

func (f *fixture) path(name string) string {
	return filepath.Join(f.dir, name)
}

func (f *fixture) writeItems(t *testing.T, items ...domain.Item) {
	t.Helper()
	require.NoError(t, f.store.Save(f.path("news.json"), domain.ItemsArtifact{
		Agent:  FetchAgent,
		Status: domain.StatusCompleted,
		Data:   domain.ItemsData{Articles: items, Count: len(items)},
	}))
}

func noSleep(context.Context, time.Duration) error { return nil }

func modelRun(f *fixture, name, file string, client completionFunc) ModelRun {
	a := analysis.New(analysis.Identity{Name: name, ModelID: "vendor/" + strings.ToLower(name)}, client, analysis.Options{
		ItemDelay: time.Second,
		Sleep:     noSleep,
		Now:       func() time.Time { return stageNow },
	})
	return ModelRun{Analyzer: a, Agent: strings.ToLower(name) + "-analyzer", Marker: "🟢", Output: f.path(file)}
}

func reply(sentiment string) completionFunc {
	return func(_ context.Context, req domain.CompletionRequest) (domain.Completion, error) {
		return domain.Completion{
			Text:  `{"summary": "about it", "key_points": ["k"], "sentiment": "` + sentiment + `", "confidence": "high"}`,
			Usage: &domain.TokenUsage{PromptTokens: 100, CompletionTokens: 20, TotalTokens: 120},
		}, nil
	}
}

func TestFetchStageWritesItems(t *testing.T) {
	f := newFixture(t)
	day := time.Date(2026, time.October, 16, 0, 0, 0, 0, time.UTC)
	source := itemSourceFunc(func(_ context.Context, got time.Time) ([]domain.Item, error) {
		assert.Equal(t, day, got)
		return []domain.Item{{ID: "news_1", Title: "One", Topic: "WORLD", Source: "Wire"}}, nil
	})

	stage := NewFetchStage(f.deps(), source, FetchSettings{
		Output:     f.path("news.json"),
		SourceName: "google-news",
		Topics:     []string{"WORLD"},
	})
	doc, err := stage.Run(context.Background(), day)
	require.NoError(t, err)

	var saved domain.ItemsArtifact
	require.NoError(t, f.store.Load(f.path("news.json"), &saved))
	assert.Equal(t, doc.Data, saved.Data)
	assert.Equal(t, "2026-10-16", saved.Data.FetchDate)
	assert.Equal(t, 1, saved.Data.Count)
	assert.Equal(t, domain.StatusCompleted, saved.Status)
	assert.Equal(t, "google-news", saved.Metadata.Source)
	assert.InDelta(t, 1.0, saved.Costs.ExecutionTime, 1e-9)

	require.Len(t, f.ledger.runs, 1)
	assert.Equal(t, domain.StageRun{
		Agent: FetchAgent, Status: domain.StatusCompleted, Items: 1,
		StartedAt: "2026-10-16T07:00:01Z", FinishedAt: "2026-10-16T07:00:02Z",
	}, f.ledger.runs[0])
	require.Len(t, f.reporter.reports, 1)
	assert.Contains(t, f.reporter.reports[0], "**Articles Fetched:** 1")
}

func TestFetchStageSourceError(t *testing.T) {
	f := newFixture(t)
	source := itemSourceFunc(func(context.Context, time.Time) ([]domain.Item, error) {
		return nil, errors.New("registry missing")
	})

	_, err := NewFetchStage(f.deps(), source, FetchSettings{Output: f.path("news.json")}).Run(context.Background(), stageNow)

	assert.ErrorContains(t, err, "registry missing")
	assert.NoFileExists(t, f.path("news.json"))
	require.Len(t, f.ledger.runs, 1)
	assert.Equal(t, domain.StatusFailed, f.ledger.runs[0].Status)
	assert.Empty(t, f.reporter.reports)
}

func TestAnalyzeStageWritesModelArtifact(t *testing.T) {
	f := newFixture(t)
	f.writeItems(t, domain.Item{ID: "a", Title: "A"}, domain.Item{ID: "b", Title: "B"})

	calls := 0
	client := completionFunc(func(ctx context.Context, req domain.CompletionRequest) (domain.Completion, error) {
		calls++
		if calls == 2 {
			return domain.Completion{}, errors.New("502 bad gateway")
		}
		return reply("positive")(ctx, req)
	})

	stage := NewAnalyzeStage(f.deps(), f.path("news.json"))
	doc, err := stage.Run(context.Background(), modelRun(f, "GPT-4o", "gpt.json", client))
	require.NoError(t, err)

	var saved domain.ModelArtifact
	require.NoError(t, f.store.Load(f.path("gpt.json"), &saved))
	assert.Equal(t, "gpt-4o-analyzer", saved.Agent)
	assert.Equal(t, "GPT-4o", saved.Model)
	assert.Equal(t, "vendor/gpt-4o", saved.ModelID)
	assert.Equal(t, 2, saved.Data.Count)
	assert.Equal(t, domain.ModelMetadata{Model: "GPT-4o", ArticlesAnalyzed: 2, Failed: 1}, saved.Metadata)
	assert.Equal(t, "about it", saved.Data.Analyses[0].Analysis.Summary)
	assert.True(t, saved.Data.Analyses[1].Analysis.Failed())
	assert.Equal(t, domain.SentimentUnknown, saved.Data.Analyses[1].Analysis.Sentiment)
	require.NotNil(t, saved.Costs.TokenUsage)
	assert.Equal(t, 120, saved.Costs.TokenUsage.TotalTokens)
	assert.Equal(t, doc.Metadata, saved.Metadata)

	require.Len(t, f.ledger.runs, 1)
	run := f.ledger.runs[0]
	assert.Equal(t, domain.StatusCompleted, run.Status)
	assert.Equal(t, 2, run.Items)
	assert.Equal(t, 1, run.Failures)
	assert.Equal(t, 100, run.PromptTokens)
	require.Len(t, f.reporter.reports, 1)
	assert.Contains(t, f.reporter.reports[0], "## 🟢 GPT-4o Analyzer")
}

func TestAnalyzeStageMissingItems(t *testing.T) {
	f := newFixture(t)

	_, err := NewAnalyzeStage(f.deps(), f.path("news.json")).Run(context.Background(), modelRun(f, "Phi", "phi.json", reply("neutral")))

	assert.ErrorIs(t, err, artifact.ErrNotFound)
	assert.NoFileExists(t, f.path("phi.json"))
}

func TestAnalyzeStageRunAll(t *testing.T) {
	f := newFixture(t)
	f.writeItems(t, domain.Item{ID: "a", Title: "A"})

	blocked := modelRun(f, "Grok", "missing-dir/\x00/grok.json", reply("negative"))
	runs := []ModelRun{
		modelRun(f, "Mini", "mini.json", reply("positive")),
		blocked,
		modelRun(f, "Phi", "phi.json", reply("neutral")),
	}

	err := NewAnalyzeStage(f.deps(), f.path("news.json")).RunAll(context.Background(), runs)

	assert.ErrorContains(t, err, "Grok")
	assert.FileExists(t, f.path("mini.json"))
	assert.FileExists(t, f.path("phi.json"))
	require.Len(t, f.ledger.runs, 3)
	assert.Equal(t, domain.StatusFailed, f.ledger.runs[1].Status)
}

func TestSynthesizeStageEndToEnd(t *testing.T) {
	f := newFixture(t)
	f.writeItems(t, domain.Item{ID: "a", Title: "A"}, domain.Item{ID: "b", Title: "B"})

	analyze := NewAnalyzeStage(f.deps(), f.path("news.json"))
	require.NoError(t, analyze.RunAll(context.Background(), []ModelRun{
		modelRun(f, "Mini", "mini.json", reply("positive")),
		modelRun(f, "Phi", "phi.json", reply("negative")),
	}))

	sources := []perspective.ModelSource{
		{Name: "Mini", Path: f.path("mini.json")},
		{Name: "Phi", Path: f.path("phi.json")},
		{Name: "Grok", Path: f.path("grok.json")},
	}
	synth := perspective.NewSynthesizer(f.store, perspective.NewMarkers(map[string]string{"Mini": "🟢"}), nil)
	stage := NewSynthesizeStage(f.deps(), synth, sources, f.path("perspectives.json"))

	doc, err := stage.Run(context.Background())
	require.NoError(t, err)

	var saved domain.SynthesizedArtifact
	require.NoError(t, f.store.Load(f.path("perspectives.json"), &saved))
	assert.Equal(t, SynthesizeAgent, saved.Agent)
	assert.Equal(t, 2, saved.Data.Count)
	assert.Equal(t, []string{"Mini", "Phi", "Grok"}, saved.Data.Models)
	assert.Equal(t, []string{"Mini", "Phi"}, saved.Data.ModelsReported)
	assert.Equal(t, []string{"Mini", "Phi", "Grok"}, saved.Metadata.ModelsIncluded)
	assert.Equal(t, 4, saved.Metadata.TotalPerspectives)
	assert.Equal(t, 50.0, saved.Data.Consensus.AgreementPercentage)
	assert.Equal(t, "positive", saved.Data.Consensus.DominantSentiment)
	for _, art := range saved.Data.Articles {
		assert.Len(t, art.Perspectives, 2)
		assert.Equal(t, "positive", art.Consensus.DominantSentiment)
	}
	assert.Equal(t, doc.Data.Count, saved.Data.Count)

	last := f.reporter.reports[len(f.reporter.reports)-1]
	assert.Contains(t, last, "**Models Reported:** 2 of 3")
	assert.Contains(t, last, "**Agreement:** 50.0%")
}

func TestSynthesizeStageWithNoModels(t *testing.T) {
	f := newFixture(t)
	synth := perspective.NewSynthesizer(f.store, perspective.NewMarkers(nil), nil)

	doc, err := NewSynthesizeStage(f.deps(), synth, []perspective.ModelSource{{Name: "GPT-4o", Path: f.path("gpt.json")}}, f.path("out.json")).Run(context.Background())
	require.NoError(t, err)

	assert.Zero(t, doc.Data.Count)
	assert.NotNil(t, doc.Data.Articles)
	assert.Empty(t, doc.Data.ModelsReported)
	assert.FileExists(t, f.path("out.json"))
}

func TestLedgerFailureDoesNotFailStage(t *testing.T) {
	f := newFixture(t)
	f.ledger.err = errors.New("disk full")
	synth := perspective.NewSynthesizer(f.store, perspective.NewMarkers(nil), nil)

	_, err := NewSynthesizeStage(f.deps(), synth, nil, f.path("out.json")).Run(context.Background())

	assert.NoError(t, err)
}

func TestRepairStage(t *testing.T) {
	f := newFixture(t)
	broken := extract.FallbackAnalysis("```json\n{\"summary\": \"fixed\", \"sentiment\": \"mixed\"}\n```")
	require.NoError(t, f.store.Save(f.path("mini.json"), domain.ModelArtifact{
		Model: "Mini",
		Data: domain.ModelData{Analyses: []domain.ModelAnalysisRecord{
			{Article: domain.Item{ID: "a", Title: "A"}, Analysis: broken},
		}, Count: 1},
	}))
	require.NoError(t, os.WriteFile(f.path("bad.json"), []byte("{"), 0o644))

	stage := NewRepairStage(f.deps(), repair.New(f.store, nil))
	reports, err := stage.Run(context.Background(), []string{f.path("mini.json"), f.path("gone.json"), f.path("bad.json")})

	require.Error(t, err)
	require.Len(t, reports, 2)
	assert.Equal(t, 1, reports[0].Fixed)
	assert.True(t, reports[1].Missing)

	var saved domain.ModelArtifact
	require.NoError(t, f.store.Load(f.path("mini.json"), &saved))
	assert.Equal(t, "fixed", saved.Data.Analyses[0].Analysis.Summary)
	assert.Equal(t, "mixed", saved.Data.Analyses[0].Analysis.Sentiment)

	require.Len(t, f.ledger.runs, 1)
	assert.Equal(t, domain.StatusFailed, f.ledger.runs[0].Status)
	assert.Equal(t, 1, f.ledger.runs[0].Items)
	assert.Contains(t, f.reporter.reports[0], "**Articles Fixed:** 1")
}
