// Package perspective merges per-model analyses into an article-keyed view
// and computes how much the models agree.
package perspective

import (
	"errors"
	"log/slog"
	"sort"

	"NewsPerspectives/internal/artifact"
	"NewsPerspectives/internal/domain"
	"NewsPerspectives/internal/logging"
	"NewsPerspectives/internal/ports"
)

// ModelSource is one entry of the static model list.
type ModelSource struct {
	Name string
	Path string
}

// ModelAnalyses is the content of one loaded per-model artifact.
type ModelAnalyses struct {
	Model   string
	Records []domain.ModelAnalysisRecord
}

// Result is a full synthesis over whatever artifacts existed.
type Result struct {
	Articles  []domain.SynthesizedArticle
	Consensus domain.GlobalConsensus
	// Models is the full static list, found or not.
	Models []string
	// Reported lists the models whose artifacts were loaded.
	Reported []string
}

// Synthesizer reads per-model artifacts; it never modifies them.
type Synthesizer struct {
	store   ports.ArtifactStore
	markers Markers
	logger  *slog.Logger
}

// NewSynthesizer wires the artifact store and the marker table.
func NewSynthesizer(store ports.ArtifactStore, markers Markers, logger *slog.Logger) *Synthesizer {
	return &Synthesizer{
		store:   store,
		markers: markers,
		logger:  logging.OrDiscard(logger),
	}
}

// Synthesize loads every source that exists and rebuilds the whole view.
// Missing or unreadable artifacts reduce coverage but never fail the run.
func (s *Synthesizer) Synthesize(sources []ModelSource) Result {
	models := make([]string, 0, len(sources))
	loaded := make([]ModelAnalyses, 0, len(sources))

	for _, src := range sources {
		models = append(models, src.Name)

		var doc domain.ModelArtifact
		err := s.store.Load(src.Path, &doc)
		switch {
		case errors.Is(err, artifact.ErrNotFound):
			s.logger.Warn("model analysis not found", "model", src.Name, "path", src.Path)
			continue
		case err != nil:
			s.logger.Error("cannot load model analysis", "model", src.Name, "path", src.Path, "error", err)
			continue
		}

		s.logger.Info("loaded model analysis", "model", src.Name, "analyses", len(doc.Data.Analyses))
		loaded = append(loaded, ModelAnalyses{Model: src.Name, Records: doc.Data.Analyses})
	}

	reported := make([]string, 0, len(loaded))
	for _, m := range loaded {
		reported = append(reported, m.Model)
	}

	return Result{
		Articles:  Merge(loaded, s.markers),
		Consensus: Global(loaded),
		Models:    models,
		Reported:  reported,
	}
}

// Merge re-keys every record by item identity and computes per-article
// consensus. Articles with more perspectives come first; ties keep the order
// in which their keys were first seen.
func Merge(models []ModelAnalyses, markers Markers) []domain.SynthesizedArticle {
	index := map[string]int{}
	var articles []domain.SynthesizedArticle

	for _, m := range models {
		marker := markers.Resolve(m.Model)
		for _, rec := range m.Records {
			key := rec.Article.Key()
			pos, ok := index[key]
			if !ok {
				pos = len(articles)
				index[key] = pos
				articles = append(articles, domain.SynthesizedArticle{Article: rec.Article})
			}
			articles[pos].Perspectives = append(articles[pos].Perspectives, entry(m.Model, marker, rec.Analysis))
		}
	}

	for i := range articles {
		articles[i].Consensus = ArticleConsensus(articles[i].Perspectives)
	}

	sort.SliceStable(articles, func(i, j int) bool {
		return len(articles[i].Perspectives) > len(articles[j].Perspectives)
	})

	if articles == nil {
		articles = []domain.SynthesizedArticle{}
	}
	return articles
}

func entry(model, marker string, a domain.Analysis) domain.PerspectiveEntry {
	keyPoints := a.KeyPoints
	if keyPoints == nil {
		keyPoints = []string{}
	}
	return domain.PerspectiveEntry{
		Model:          model,
		ModelID:        a.ModelID,
		Emoji:          marker,
		Summary:        a.Summary,
		KeyPoints:      keyPoints,
		Sentiment:      orUnknown(a.Sentiment),
		Confidence:     orUnknown(a.Confidence),
		BiasCheck:      a.BiasCheck,
		MissingContext: a.MissingContext,
		Implications:   a.Implications,
		AnalyzedAt:     a.AnalyzedAt,
		Failed:         a.Failed(),
	}
}

func orUnknown(v string) string {
	if v == "" {
		return domain.SentimentUnknown
	}
	return v
}
