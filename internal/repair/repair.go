// Package repair re-normalizes per-model artifacts whose analyses were
// persisted in the fallback shape while key_points[0] still holds the
// model's JSON.
package repair

import (
	"errors"
	"fmt"
	"log/slog"

	"NewsPerspectives/internal/artifact"
	"NewsPerspectives/internal/domain"
	"NewsPerspectives/internal/extract"
	"NewsPerspectives/internal/logging"
	"NewsPerspectives/internal/ports"
)

const titleLogLength = 60

// Report describes what happened to one artifact.
type Report struct {
	Path    string
	Checked int
	Fixed   int
	// Missing is set when the artifact did not exist.
	Missing bool
}

// Repairer applies extract.RepairPasses to stored artifacts in place.
type Repairer struct {
	store  ports.ArtifactStore
	passes []extract.Pass
	logger *slog.Logger
}

// New returns a Repairer running extract.RepairPasses.
func New(store ports.ArtifactStore, logger *slog.Logger) *Repairer {
	return &Repairer{
		store:  store,
		passes: extract.RepairPasses,
		logger: logging.OrDiscard(logger),
	}
}

// RepairAll repairs every path and keeps going after per-file failures.
func (r *Repairer) RepairAll(paths []string) ([]Report, error) {
	reports := make([]Report, 0, len(paths))
	var errs []error
	for _, path := range paths {
		rep, err := r.RepairFile(path)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		reports = append(reports, rep)
	}
	return reports, errors.Join(errs...)
}

// RepairFile fixes one artifact. The file is rewritten only when at least
// one record changed, so a second run over a repaired file is a no-op.
func (r *Repairer) RepairFile(path string) (Report, error) {
	rep := Report{Path: path}

	var doc domain.ModelArtifact
	if err := r.store.Load(path, &doc); err != nil {
		if errors.Is(err, artifact.ErrNotFound) {
			r.logger.Info("skipping missing artifact", "path", path)
			rep.Missing = true
			return rep, nil
		}
		return rep, fmt.Errorf("load %s: %w", path, err)
	}

	for i := range doc.Data.Analyses {
		rec := &doc.Data.Analyses[i]
		rep.Checked++

		fixed, pass, ok := r.repairAnalysis(rec.Article, rec.Analysis)
		if !ok {
			continue
		}
		r.logger.Info("repaired analysis",
			"path", path,
			"pass", pass,
			"title", shorten(rec.Article.Title, titleLogLength),
			"before", shorten(rec.Analysis.Summary, titleLogLength),
			"after", shorten(fixed.Summary, titleLogLength),
		)
		rec.Analysis = fixed
		rep.Fixed++
	}

	if rep.Fixed == 0 {
		r.logger.Info("no fixes needed", "path", path, "checked", rep.Checked)
		return rep, nil
	}
	if err := r.store.Save(path, doc); err != nil {
		return rep, fmt.Errorf("save %s: %w", path, err)
	}
	r.logger.Info("saved repaired artifact", "path", path, "fixed", rep.Fixed)
	return rep, nil
}

func (r *Repairer) repairAnalysis(item domain.Item, a domain.Analysis) (domain.Analysis, string, bool) {
	for _, pass := range r.passes {
		if !pass.Detect(a) {
			continue
		}
		if len(a.KeyPoints) == 0 {
			r.logger.Warn("no key_points to recover from", "pass", pass.Name, "title", shorten(item.Title, titleLogLength))
			continue
		}
		fields, ok := pass.Recover(a.KeyPoints[0])
		if !ok || domain.StringField(fields[domain.FieldSummary]) == "" {
			r.logger.Warn("cannot recover analysis", "pass", pass.Name, "title", shorten(item.Title, titleLogLength))
			continue
		}
		return Rebuild(fields, a), pass.Name, true
	}
	return a, "", false
}

// Rebuild turns recovered fields into an Analysis carrying the metadata of
// the record it replaces. Missing sentiment and confidence default to
// neutral and medium.
func Rebuild(fields map[string]any, original domain.Analysis) domain.Analysis {
	a := domain.AnalysisFromFields(fields).WithMetadataFrom(original)
	a.Error, a.ErrorType = "", ""
	if a.KeyPoints == nil {
		a.KeyPoints = []string{}
	}
	if a.Sentiment == "" {
		a.Sentiment = domain.SentimentNeutral
	}
	if a.Confidence == "" {
		a.Confidence = domain.ConfidenceMedium
	}
	return a
}

func shorten(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}
