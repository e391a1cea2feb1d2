package perspective

import (
	"math"

	"NewsPerspectives/internal/domain"
)

// Fallback dominant sentiments when nothing can be counted.
const (
	ArticleFallbackSentiment = domain.SentimentMixed
	GlobalFallbackSentiment  = domain.SentimentUnknown
)

// Ties on the dominant count resolve in this order; values outside it rank
// after every listed one and tie-break lexicographically.
var sentimentPriority = map[string]int{
	domain.SentimentPositive: 0,
	domain.SentimentNegative: 1,
	domain.SentimentNeutral:  2,
	domain.SentimentMixed:    3,
}

// ArticleConsensus computes agreement over the perspectives of one article.
// Unknown sentiments are excluded from the count.
func ArticleConsensus(perspectives []domain.PerspectiveEntry) domain.Consensus {
	counts := map[string]int{}
	total := 0
	for _, p := range perspectives {
		if p.Sentiment == "" || p.Sentiment == domain.SentimentUnknown {
			continue
		}
		counts[p.Sentiment]++
		total++
	}

	dominant, top := Dominant(counts)
	if total == 0 {
		dominant = ArticleFallbackSentiment
	}
	return domain.Consensus{
		DominantSentiment:     dominant,
		AgreementPercentage:   Agreement(top, total),
		SentimentDistribution: counts,
		ModelsAnalyzed:        len(perspectives),
	}
}

// Global computes consensus over every analysis of every loaded model,
// including failed and unknown ones.
func Global(models []ModelAnalyses) domain.GlobalConsensus {
	counts := map[string]int{}
	var histogram domain.ConfidenceHistogram
	total := 0

	for _, m := range models {
		for _, rec := range m.Records {
			if s := rec.Analysis.Sentiment; s != "" {
				counts[s]++
				total++
			}
			switch rec.Analysis.Confidence {
			case domain.ConfidenceHigh:
				histogram.High++
			case domain.ConfidenceMedium:
				histogram.Medium++
			case domain.ConfidenceLow:
				histogram.Low++
			}
		}
	}

	dominant, top := Dominant(counts)
	if total == 0 {
		dominant = GlobalFallbackSentiment
	}
	return domain.GlobalConsensus{
		DominantSentiment:      dominant,
		SentimentDistribution:  counts,
		AgreementPercentage:    Agreement(top, total),
		TotalAnalyses:          total,
		ConfidenceDistribution: histogram,
	}
}

// Dominant returns the most frequent value and its count. It returns "" and
// zero for an empty distribution.
func Dominant(counts map[string]int) (string, int) {
	best, bestCount := "", 0
	for value, count := range counts {
		if count > bestCount || (count == bestCount && ranksBefore(value, best)) {
			best, bestCount = value, count
		}
	}
	return best, bestCount
}

// Agreement is count/total as a percentage rounded to one decimal.
func Agreement(count, total int) float64 {
	if total == 0 {
		return 0
	}
	return math.Round(float64(count)/float64(total)*1000) / 10
}

func ranksBefore(a, b string) bool {
	ra, aKnown := sentimentPriority[a]
	rb, bKnown := sentimentPriority[b]
	switch {
	case aKnown && bKnown:
		return ra < rb
	case aKnown != bKnown:
		return aKnown
	default:
		return a < b
	}
}
