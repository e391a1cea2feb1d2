// Package cost estimates what a stage run cost in CI minutes and tokens.
package cost

import (
	"time"

	"NewsPerspectives/internal/domain"
)

// Pricing used for every estimate.
const (
	ActionsPerMinute   = 0.008
	InputPerMillion    = 0.150
	OutputPerMillion   = 0.600
	tokensPerPriceUnit = 1_000_000
)

// Tracker measures the wall-clock duration of a stage run.
type Tracker struct {
	now      func() time.Time
	started  time.Time
	finished time.Time
}

// Start begins tracking. A nil clock means time.Now.
func Start(now func() time.Time) *Tracker {
	if now == nil {
		now = time.Now
	}
	return &Tracker{now: now, started: now()}
}

// Finish records the end of the run; later calls keep the first value.
func (t *Tracker) Finish() {
	if t.finished.IsZero() {
		t.finished = t.now()
	}
}

// StartedAt is when tracking began.
func (t *Tracker) StartedAt() time.Time { return t.started }

// FinishedAt is zero until Finish is called.
func (t *Tracker) FinishedAt() time.Time { return t.finished }

// Duration is measured up to Finish, or up to now while still running.
func (t *Tracker) Duration() time.Duration {
	end := t.finished
	if end.IsZero() {
		end = t.now()
	}
	return end.Sub(t.started)
}

// Calculate prices a run. A nil usage counts as no token spend.
func Calculate(d time.Duration, usage *domain.TokenUsage) domain.CostReport {
	minutes := d.Minutes()
	actions := minutes * ActionsPerMinute

	var openai domain.OpenAICost
	if usage != nil {
		openai.Input = float64(usage.PromptTokens) / tokensPerPriceUnit * InputPerMillion
		openai.Output = float64(usage.CompletionTokens) / tokensPerPriceUnit * OutputPerMillion
		openai.Total = openai.Input + openai.Output
	}

	return domain.CostReport{
		ExecutionTime:    d.Seconds(),
		ExecutionMinutes: minutes,
		GitHubActions:    actions,
		OpenAI:           openai,
		Total:            actions + openai.Total,
		TokenUsage:       usage,
	}
}

// Report finishes t and prices the run.
func (t *Tracker) Report(usage *domain.TokenUsage) domain.CostReport {
	t.Finish()
	return Calculate(t.Duration(), usage)
}
