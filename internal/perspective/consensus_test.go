package perspective

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"NewsPerspectives/internal/domain"
)

func perspectives(sentiments ...string) []domain.PerspectiveEntry {
	out := make([]domain.PerspectiveEntry, 0, len(sentiments))
	for _, s := range sentiments {
		out = append(out, domain.PerspectiveEntry{Sentiment: s})
	}
	return out
}

func TestArticleConsensusTwoOfThree(t *testing.T) {
	t.Parallel()

	c := ArticleConsensus(perspectives("positive", "positive", "negative"))

	assert.Equal(t, "positive", c.DominantSentiment)
	assert.Equal(t, 66.7, c.AgreementPercentage)
	assert.Equal(t, map[string]int{"positive": 2, "negative": 1}, c.SentimentDistribution)
	assert.Equal(t, 3, c.ModelsAnalyzed)
}

func TestArticleConsensusExcludesUnknown(t *testing.T) {
	t.Parallel()

	c := ArticleConsensus(perspectives("unknown", "neutral", "unknown", "neutral"))

	assert.Equal(t, "neutral", c.DominantSentiment)
	assert.Equal(t, 100.0, c.AgreementPercentage)
	assert.Equal(t, 4, c.ModelsAnalyzed)
}

func TestArticleConsensusNoUsableSentiment(t *testing.T) {
	t.Parallel()

	c := ArticleConsensus(perspectives("unknown", "unknown"))

	assert.Equal(t, ArticleFallbackSentiment, c.DominantSentiment)
	assert.Zero(t, c.AgreementPercentage)
	assert.Empty(t, c.SentimentDistribution)
	assert.Equal(t, 2, c.ModelsAnalyzed)
}

func TestDominantTieBreakIsOrderIndependent(t *testing.T) {
	t.Parallel()

	a := ArticleConsensus(perspectives("negative", "positive", "positive", "negative"))
	b := ArticleConsensus(perspectives("positive", "negative", "negative", "positive"))

	assert.Equal(t, "positive", a.DominantSentiment)
	assert.Equal(t, a, b)
	assert.Equal(t, 50.0, a.AgreementPercentage)

	got, n := Dominant(map[string]int{"mixed": 1, "neutral": 1})
	assert.Equal(t, "neutral", got)
	assert.Equal(t, 1, n)

	got, _ = Dominant(map[string]int{"optimistic": 2, "bullish": 2})
	assert.Equal(t, "bullish", got)

	got, _ = Dominant(map[string]int{"optimistic": 2, "mixed": 2})
	assert.Equal(t, "mixed", got)
}

func TestAgreement(t *testing.T) {
	t.Parallel()

	assert.Equal(t, 0.0, Agreement(0, 0))
	assert.Equal(t, 33.3, Agreement(1, 3))
	assert.Equal(t, 100.0, Agreement(4, 4))
	assert.Equal(t, 14.3, Agreement(1, 7))
}

func TestGlobalCountsEverything(t *testing.T) {
	t.Parallel()

	rec := func(sentiment, confidence string) domain.ModelAnalysisRecord {
		return domain.ModelAnalysisRecord{Analysis: domain.Analysis{Sentiment: sentiment, Confidence: confidence}}
	}
	models := []ModelAnalyses{
		{Model: "A", Records: []domain.ModelAnalysisRecord{rec("positive", "high"), rec("unknown", ""), rec("negative", "low")}},
		{Model: "B", Records: []domain.ModelAnalysisRecord{rec("positive", "medium"), rec("positive", "very high")}},
	}

	g := Global(models)

	assert.Equal(t, "positive", g.DominantSentiment)
	assert.Equal(t, 5, g.TotalAnalyses)
	assert.Equal(t, 60.0, g.AgreementPercentage)
	assert.Equal(t, map[string]int{"positive": 3, "unknown": 1, "negative": 1}, g.SentimentDistribution)
	assert.Equal(t, domain.ConfidenceHistogram{High: 1, Medium: 1, Low: 1}, g.ConfidenceDistribution)
}

func TestGlobalEmpty(t *testing.T) {
	t.Parallel()

	g := Global(nil)

	assert.Equal(t, GlobalFallbackSentiment, g.DominantSentiment)
	assert.Zero(t, g.AgreementPercentage)
	assert.Zero(t, g.TotalAnalyses)
}

func TestMarkers(t *testing.T) {
	t.Parallel()

	table := map[string]string{"Grok 3": "🟠"}
	m := NewMarkers(table)
	table["Grok 3"] = "changed"

	assert.Equal(t, "🟠", m.Resolve("Grok 3"))
	assert.Equal(t, DefaultMarker, m.Resolve("Unlisted Model"))
	assert.Equal(t, DefaultMarker, Markers{}.Resolve("anything"))
}
