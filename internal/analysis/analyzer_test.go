package analysis

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"NewsPerspectives/internal/domain"
	"NewsPerspectives/internal/extract"
	"NewsPerspectives/internal/retry"
)

var errRateLimited = errors.New("429 too many requests")

type completionFunc func(ctx context.Context, req domain.CompletionRequest) (domain.Completion, error)

func (f completionFunc) Complete(ctx context.Context, req domain.CompletionRequest) (domain.Completion, error) {
	return f(ctx, req)
}

type sleepRecorder struct {
	delays []time.Duration
}

func (s *sleepRecorder) sleep(_ context.Context, d time.Duration) error {
	s.delays = append(s.delays, d)
	return nil
}

var fixedNow = time.Date(2026, time.October, 16, 8, 30, 0, 0, time.UTC)

func newAnalyzer(client completionFunc, sleeper *sleepRecorder) *Analyzer {
	policy := retry.NewPolicy(
		func(err error) bool { return errors.Is(err, errRateLimited) },
		retry.WithSleeper(sleeper.sleep),
	)
	return New(Identity{Name: "GPT-4o", ModelID: "openai/gpt-4o"}, client, Options{
		Policy:       policy,
		SystemPrompt: "system",
		Temperature:  0.7,
		MaxTokens:    1000,
		ItemDelay:    time.Second,
		Sleep:        sleeper.sleep,
		ErrorKind: func(err error) string {
			if errors.Is(err, errRateLimited) {
				return "rate_limit"
			}
			return "transport"
		},
		Now: func() time.Time { return fixedNow },
	})
}

func TestAnalyzeAttachesMetadata(t *testing.T) {
	t.Parallel()

	var seen domain.CompletionRequest
	client := completionFunc(func(_ context.Context, req domain.CompletionRequest) (domain.Completion, error) {
		seen = req
		return domain.Completion{
			Text:  "```json\n{\"summary\": \"s\", \"sentiment\": \"positive\", \"model\": \"spoofed\"}\n```",
			Usage: &domain.TokenUsage{PromptTokens: 100, CompletionTokens: 50, TotalTokens: 150},
		}, nil
	})

	a := newAnalyzer(client, &sleepRecorder{}).Analyze(context.Background(), domain.Item{
		ID: "n1", Title: "Chip export rules tighten", Source: "Reuters", Description: "New controls announced.",
	})

	assert.Equal(t, "openai/gpt-4o", seen.Model)
	assert.Equal(t, "system", seen.SystemPrompt)
	assert.Equal(t, 1000, seen.MaxTokens)
	assert.Contains(t, seen.UserPrompt, "Title: Chip export rules tighten")
	assert.Contains(t, seen.UserPrompt, "Description: New controls announced.")

	assert.False(t, a.Failed())
	assert.Equal(t, "s", a.Summary)
	assert.Equal(t, "positive", a.Sentiment)
	assert.Equal(t, "GPT-4o", a.Model)
	assert.Equal(t, "openai/gpt-4o", a.ModelID)
	assert.Equal(t, "2026-10-16T08:30:00Z", a.AnalyzedAt)
	require.NotNil(t, a.TokenUsage)
	assert.Equal(t, 150, a.TokenUsage.TotalTokens)
}

func TestAnalyzeRetriesRateLimitThenSucceeds(t *testing.T) {
	t.Parallel()

	calls := 0
	client := completionFunc(func(context.Context, domain.CompletionRequest) (domain.Completion, error) {
		calls++
		if calls == 1 {
			return domain.Completion{}, errRateLimited
		}
		return domain.Completion{Text: `{"summary": "ok"}`}, nil
	})
	sleeper := &sleepRecorder{}

	a := newAnalyzer(client, sleeper).Analyze(context.Background(), domain.Item{Title: "t"})

	assert.False(t, a.Failed())
	assert.Nil(t, a.TokenUsage)
	assert.Equal(t, 2, calls)
	assert.Equal(t, []time.Duration{2 * time.Second}, sleeper.delays)
}

func TestAnalyzeExhaustedRateLimitYieldsErrorAnalysis(t *testing.T) {
	t.Parallel()

	calls := 0
	client := completionFunc(func(context.Context, domain.CompletionRequest) (domain.Completion, error) {
		calls++
		return domain.Completion{}, errRateLimited
	})
	sleeper := &sleepRecorder{}

	a := newAnalyzer(client, sleeper).Analyze(context.Background(), domain.Item{Title: "t"})

	assert.True(t, a.Failed())
	assert.Equal(t, 3, calls)
	assert.Equal(t, []time.Duration{2 * time.Second, 4 * time.Second}, sleeper.delays)
	assert.Equal(t, domain.SentimentUnknown, a.Sentiment)
	assert.Equal(t, "rate_limit", a.ErrorType)
	assert.True(t, strings.HasPrefix(a.Summary, "Analysis failed: "))
	assert.Equal(t, "GPT-4o", a.Model)
}

func TestAnalyzeNonRetryableFailsFast(t *testing.T) {
	t.Parallel()

	calls := 0
	client := completionFunc(func(context.Context, domain.CompletionRequest) (domain.Completion, error) {
		calls++
		return domain.Completion{}, errors.New("401 unauthorized")
	})
	sleeper := &sleepRecorder{}

	a := newAnalyzer(client, sleeper).Analyze(context.Background(), domain.Item{Title: "t"})

	assert.True(t, a.Failed())
	assert.Equal(t, "401 unauthorized", a.Error)
	assert.Equal(t, "transport", a.ErrorType)
	assert.Equal(t, 1, calls)
	assert.Empty(t, sleeper.delays)
}

func TestAnalyzeManyContinuesPastFailuresAndPaces(t *testing.T) {
	t.Parallel()

	responses := map[string]domain.Completion{
		"first":  {Text: `{"summary": "one", "sentiment": "positive"}`, Usage: &domain.TokenUsage{PromptTokens: 10, CompletionTokens: 5, TotalTokens: 15}},
		"third":  {Text: `noise {"summary": "three"} noise`, Usage: &domain.TokenUsage{PromptTokens: 20, CompletionTokens: 10, TotalTokens: 30}},
		"fourth": {Text: "plain prose"},
	}
	client := completionFunc(func(_ context.Context, req domain.CompletionRequest) (domain.Completion, error) {
		for title, resp := range responses {
			if strings.Contains(req.UserPrompt, "Title: "+title+"\n") {
				return resp, nil
			}
		}
		return domain.Completion{}, errors.New("boom")
	})
	sleeper := &sleepRecorder{}

	items := []domain.Item{{ID: "1", Title: "first"}, {ID: "2", Title: "second"}, {ID: "3", Title: "third"}, {ID: "4", Title: "fourth"}}
	batch, err := newAnalyzer(client, sleeper).AnalyzeMany(context.Background(), items)

	require.NoError(t, err)
	require.Len(t, batch.Records, 4)
	for i, rec := range batch.Records {
		assert.Equal(t, items[i], rec.Article, "records keep input order")
	}
	assert.True(t, batch.Records[1].Analysis.Failed())
	assert.Equal(t, 1, batch.Failed)
	assert.Equal(t, map[extract.Quality]int{extract.Clean: 1, extract.Recovered: 1, extract.Fallback: 1}, batch.Quality)
	assert.Equal(t, domain.TokenUsage{PromptTokens: 30, CompletionTokens: 15, TotalTokens: 45}, batch.Usage)
	assert.Equal(t, []time.Duration{time.Second, time.Second, time.Second}, sleeper.delays, "no delay after the last item")
}

func TestAnalyzeManyEmpty(t *testing.T) {
	t.Parallel()

	sleeper := &sleepRecorder{}
	batch, err := newAnalyzer(nil, sleeper).AnalyzeMany(context.Background(), nil)

	require.NoError(t, err)
	assert.Empty(t, batch.Records)
	assert.Empty(t, sleeper.delays)
}

func TestAnalyzeManyStopsOnCancellation(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	client := completionFunc(func(context.Context, domain.CompletionRequest) (domain.Completion, error) {
		return domain.Completion{Text: `{"summary": "x"}`}, nil
	})
	a := newAnalyzer(client, &sleepRecorder{})
	a.opts.Sleep = func(ctx context.Context, d time.Duration) error {
		cancel()
		return ctx.Err()
	}

	batch, err := a.AnalyzeMany(ctx, []domain.Item{{Title: "a"}, {Title: "b"}})

	assert.ErrorIs(t, err, context.Canceled)
	assert.Len(t, batch.Records, 1)
}
