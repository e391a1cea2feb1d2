package parser

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"NewsPerspectives/internal/config"
	"NewsPerspectives/internal/domain"
	"NewsPerspectives/internal/logging"
	"NewsPerspectives/internal/ports"
	"NewsPerspectives/internal/scanner"
)

// dedupePrefix is how many title characters identify a story across feeds.
const dedupePrefix = 50

// StrategySource implements ItemSource via registered scanner strategies.
type StrategySource struct {
	registry *scanner.Registry
	sources  []config.SourceConfig
	logger   *slog.Logger
}

var _ ports.ItemSource = (*StrategySource)(nil)

// NewStrategySource wires scanner registry with config-defined sources.
func NewStrategySource(reg *scanner.Registry, sources []config.SourceConfig, log *slog.Logger) *StrategySource {
	return &StrategySource{
		registry: reg,
		sources:  sources,
		logger:   logging.OrDiscard(log),
	}
}

// FetchItems runs every configured source and dedupes the union by title.
// A failing source is logged and contributes nothing.
func (s *StrategySource) FetchItems(ctx context.Context, day time.Time) ([]domain.Item, error) {
	if s.registry == nil {
		return nil, fmt.Errorf("scanner registry is not configured")
	}

	s.logger.Debug("fetch items", "sources", len(s.sources), "day", day.Format("2006-01-02"))

	var aggregated []domain.Item
	for _, src := range s.sources {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		strategy, err := s.registry.Resolve(src.Scanner)
		if err != nil {
			s.logger.Error("source skipped", "source", src.Name, "scanner", src.Scanner, "error", err)
			continue
		}

		req := scanner.Request{
			Day:        day,
			SiteName:   src.Name,
			Options:    src.Options,
			Categories: toScannerCategories(src.Categories),
		}

		results, err := strategy.Scan(ctx, req)
		if err != nil {
			s.logger.Error("source failed", "source", src.Name, "scanner", src.Scanner, "error", err)
			continue
		}

		for i := range results {
			if results[i].Source == "" {
				results[i].Source = src.Name
			}
		}
		s.logger.Info("source produced items", "source", src.Name, "count", len(results))
		aggregated = append(aggregated, results...)
	}

	unique := Dedupe(aggregated)
	s.logger.Debug("strategy source done", "total_items", len(aggregated), "unique_items", len(unique))
	return unique, nil
}

// Dedupe keeps the first item for each lower-cased title prefix.
func Dedupe(items []domain.Item) []domain.Item {
	seen := make(map[string]struct{}, len(items))
	unique := make([]domain.Item, 0, len(items))
	for _, item := range items {
		key := titleKey(item.Title)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		unique = append(unique, item)
	}
	return unique
}

func titleKey(title string) string {
	r := []rune(title)
	if len(r) > dedupePrefix {
		r = r[:dedupePrefix]
	}
	return strings.ToLower(string(r))
}

func toScannerCategories(cfg []config.CategoryConfig) []scanner.Category {
	categories := make([]scanner.Category, 0, len(cfg))
	for _, cat := range cfg {
		categories = append(categories, scanner.Category{
			Name: cat.Name,
			URL:  cat.URL,
		})
	}
	return categories
}
