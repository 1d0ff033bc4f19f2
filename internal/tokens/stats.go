package tokens

import "sort"

// Chat framing overhead, following OpenAI's published counting rules.
const (
	messageOverhead = 4
	replyPriming    = 2
)

// Message is a chat message whose tokens are estimated before sending.
type Message struct {
	Role    string
	Content string
	Name    string
}

// EstimateMessages estimates the prompt tokens of a chat request.
func (t *Tokenizer) EstimateMessages(messages []Message, model string) int {
	total := 0
	for _, m := range messages {
		total += t.Count(m.Content, model) + messageOverhead
		if m.Name != "" {
			total += t.Count(m.Name, model)
		}
	}
	return total + replyPriming
}

// DistributionStats describes token counts across a set of texts.
type DistributionStats struct {
	TotalTexts    int     `json:"total_texts"`
	TotalTokens   int     `json:"total_tokens"`
	AverageTokens float64 `json:"average_tokens"`
	MinTokens     int     `json:"min_tokens"`
	MaxTokens     int     `json:"max_tokens"`
	MedianTokens  int     `json:"median_tokens"`
	TokenCounts   []int   `json:"token_counts"`
}

// Distribution counts the tokens of every text. The median is the upper
// middle value for an even number of texts. No texts yields the zero value.
func (t *Tokenizer) Distribution(texts []string, model string) DistributionStats {
	if len(texts) == 0 {
		return DistributionStats{}
	}

	counts := make([]int, len(texts))
	total := 0
	for i, text := range texts {
		counts[i] = t.Count(text, model)
		total += counts[i]
	}

	sorted := append([]int(nil), counts...)
	sort.Ints(sorted)

	return DistributionStats{
		TotalTexts:    len(texts),
		TotalTokens:   total,
		AverageTokens: float64(total) / float64(len(texts)),
		MinTokens:     sorted[0],
		MaxTokens:     sorted[len(sorted)-1],
		MedianTokens:  sorted[len(sorted)/2],
		TokenCounts:   counts,
	}
}
