package tokens

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEstimateMessages(t *testing.T) {
	tok := NewStaticTokenizer(RuneEncoder{})

	got := tok.EstimateMessages([]Message{
		{Role: "system", Content: "be brief"},
		{Role: "user", Content: "hi", Name: "bob"},
	}, "gpt-4")

	// 8+4 for the system message, 2+4+3 for the named user message, 2 priming.
	assert.Equal(t, 23, got)
	assert.Equal(t, 2, tok.EstimateMessages(nil, "gpt-4"))
}

func TestDistribution(t *testing.T) {
	tok := NewStaticTokenizer(RuneEncoder{})

	stats := tok.Distribution([]string{"a", "abcd", "ab", "abc"}, "gpt-4")
	assert.Equal(t, 4, stats.TotalTexts)
	assert.Equal(t, 10, stats.TotalTokens)
	assert.InDelta(t, 2.5, stats.AverageTokens, 1e-9)
	assert.Equal(t, 1, stats.MinTokens)
	assert.Equal(t, 4, stats.MaxTokens)
	assert.Equal(t, 3, stats.MedianTokens)
	assert.Equal(t, []int{1, 4, 2, 3}, stats.TokenCounts)

	assert.Equal(t, DistributionStats{}, tok.Distribution(nil, "gpt-4"))
}
