package analysis

import (
	"fmt"

	"NewsPerspectives/internal/domain"
)

const promptTemplate = `Analyze this news article and provide your perspective. Be opinionated and show your analytical approach.

Title: %s
Source: %s
Description: %s

Provide a JSON response with:
1. "summary": A 2-3 sentence summary of the article from your perspective
2. "key_points": List of 3-5 key points or insights
3. "sentiment": Your overall sentiment (positive/negative/neutral/mixed)
4. "confidence": Your confidence in this analysis (high/medium/low)
5. "bias_check": What potential biases might exist in this story?
6. "missing_context": What important context or perspectives might be missing?
7. "implications": What are the broader implications of this story?

Be honest about uncertainties and limitations. Your response will be compared with other AI models to show different perspectives.`

// BuildPrompt renders the fixed analysis prompt for one item.
func BuildPrompt(item domain.Item) string {
	return fmt.Sprintf(promptTemplate, item.Title, item.Source, item.Text())
}
