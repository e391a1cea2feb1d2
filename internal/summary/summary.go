// Package summary renders per-stage markdown reports for the CI step summary.
package summary

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"NewsPerspectives/internal/domain"
	"NewsPerspectives/internal/logging"
)

const timestampLayout = "2006-01-02 15:04:05"

// Report accumulates markdown for one stage run.
type Report struct {
	b strings.Builder
}

// NewReport starts a report with a level-two heading.
func NewReport(title, emoji string) *Report {
	r := &Report{}
	if emoji != "" {
		fmt.Fprintf(&r.b, "## %s %s\n\n", emoji, title)
	} else {
		fmt.Fprintf(&r.b, "## %s\n\n", title)
	}
	return r
}

// Metric adds a bold label line.
func (r *Report) Metric(label string, value any) *Report {
	fmt.Fprintf(&r.b, "**%s:** %v\n\n", label, value)
	return r
}

// Timestamps adds start and, when set, end instants in UTC.
func (r *Report) Timestamps(started, finished time.Time) *Report {
	r.Metric("Started", started.UTC().Format(timestampLayout)+" UTC")
	if !finished.IsZero() {
		r.Metric("Ended", finished.UTC().Format(timestampLayout)+" UTC")
	}
	return r
}

// Table adds a markdown table. Columns listed in numeric are right aligned.
func (r *Report) Table(headers []string, rows [][]string, numeric ...int) *Report {
	if len(headers) == 0 {
		return r
	}
	r.b.WriteString(RenderMarkdown(headers, rows, numeric...))
	r.b.WriteString("\n\n")
	return r
}

// Costs adds the total with a collapsible breakdown.
func (r *Report) Costs(c domain.CostReport) *Report {
	r.Metric("Total Cost", fmt.Sprintf("$%.6f", c.Total))

	r.b.WriteString("<details>\n<summary>💰 Cost Breakdown</summary>\n\n")
	fmt.Fprintf(&r.b, "**Execution Time:** %.2fs (%.4f minutes)\n\n", c.ExecutionTime, c.ExecutionMinutes)
	if u := c.TokenUsage; u != nil && u.TotalTokens > 0 {
		fmt.Fprintf(&r.b, "**Token Usage:** %s tokens\n", humanize.Comma(int64(u.TotalTokens)))
		fmt.Fprintf(&r.b, "  - Input: %s tokens\n", humanize.Comma(int64(u.PromptTokens)))
		fmt.Fprintf(&r.b, "  - Output: %s tokens\n\n", humanize.Comma(int64(u.CompletionTokens)))
	}
	fmt.Fprintf(&r.b, "**GitHub Actions:** $%.6f\n\n", c.GitHubActions)
	if c.OpenAI.Total > 0 {
		fmt.Fprintf(&r.b, "**Model API:** $%.6f\n", c.OpenAI.Total)
		fmt.Fprintf(&r.b, "  - Input cost: $%.6f\n", c.OpenAI.Input)
		fmt.Fprintf(&r.b, "  - Output cost: $%.6f\n\n", c.OpenAI.Output)
	}
	r.b.WriteString("</details>\n\n")
	return r
}

// String returns the markdown accumulated so far.
func (r *Report) String() string {
	return r.b.String()
}

// RenderMarkdown renders rows as a markdown table. Short rows are padded.
func RenderMarkdown(headers []string, rows [][]string, numeric ...int) string {
	tw := newTable(headers, rows, numeric)
	return tw.RenderMarkdown()
}

// RenderText renders rows as a rounded box table for terminals.
func RenderText(headers []string, rows [][]string, numeric ...int) string {
	tw := newTable(headers, rows, numeric)
	tw.SetStyle(table.StyleRounded)
	return tw.Render()
}

func newTable(headers []string, rows [][]string, numeric []int) table.Writer {
	columns := len(headers)
	tw := table.NewWriter()

	header := make(table.Row, columns)
	for i, h := range headers {
		header[i] = h
	}
	tw.AppendHeader(header)

	for _, row := range rows {
		r := make(table.Row, columns)
		for i := range columns {
			if i < len(row) {
				r[i] = row[i]
			} else {
				r[i] = ""
			}
		}
		tw.AppendRow(r)
	}

	right := map[int]bool{}
	for _, col := range numeric {
		right[col] = true
	}
	configs := make([]table.ColumnConfig, 0, columns)
	for i := range columns {
		align := text.AlignLeft
		if right[i] {
			align = text.AlignRight
		}
		configs = append(configs, table.ColumnConfig{Number: i + 1, Align: align, AlignHeader: text.AlignLeft})
	}
	tw.SetColumnConfigs(configs)
	return tw
}

// Writer appends reports to the step summary file.
type Writer struct {
	path   string
	logger *slog.Logger
}

// NewWriter returns a writer for path. An empty path disables writing.
func NewWriter(path string, logger *slog.Logger) *Writer {
	return &Writer{path: path, logger: logging.OrDiscard(logger)}
}

// Write appends r to the summary file.
func (w *Writer) Write(r *Report) error {
	if w.path == "" {
		w.logger.Info("step summary path not set, skipping summary")
		return nil
	}
	if dir := filepath.Dir(w.path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create summary dir: %w", err)
		}
	}
	f, err := os.OpenFile(w.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open summary %s: %w", w.path, err)
	}
	if _, err := f.WriteString(r.String()); err != nil {
		f.Close()
		return fmt.Errorf("write summary %s: %w", w.path, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close summary %s: %w", w.path, err)
	}
	w.logger.Info("wrote step summary", "path", w.path)
	return nil
}
