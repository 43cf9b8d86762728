package summary

import (
	"fmt"
	"strings"

	"NewsDigest/internal/domain"
)

const (
	// InputLimit caps the characters of article text sent to the model.
	InputLimit = 3000

	temperature      = 0.7
	snippetMaxTokens = 300
	digestMaxTokens  = 500
)

func snippetPrompt(title, text string) string {
	return fmt.Sprintf(`Analyze the following article and provide:
1. A concise 2-3 sentence snippet summarizing the main point
2. 2-4 key takeaways as bullet points

Title: %s
Content:
%s

Provide your response in this format:
%s [your snippet here]
%s
- [point 1]
- [point 2]
- [point 3]`, title, text, MarkerSnippet, MarkerKeyPoints)
}

func digestPrompt(summaries []domain.ArticleSummary) string {
	parts := make([]string, 0, len(summaries))
	for i, s := range summaries {
		parts = append(parts, fmt.Sprintf("Article %d: %s\n%s\nKey points: %s",
			i+1, s.Title, s.Snippet, strings.Join(s.KeyPoints, ", ")))
	}

	return fmt.Sprintf(`Based on the following collection of tech news articles, provide:
1. An overall summary (3-4 sentences) of the main themes and developments
2. 3-5 key insights or trends emerging from these articles

Articles:
%s

Provide your response in this format:
%s [your summary here]

%s
- [insight 1]
- [insight 2]
- [insight 3]
- [insight 4]
- [insight 5]`, strings.Join(parts, "\n\n"), MarkerOverall, MarkerInsights)
}

func truncate(s string, limit int) string {
	n := 0
	for i := range s {
		if n == limit {
			return s[:i]
		}
		n++
	}
	return s
}
