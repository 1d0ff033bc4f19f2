package tokens

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"pgregory.net/rapid"
)

const crateText = `Dataset Name: Ocean Temperature Survey
Description: Buoy readings from the North Atlantic.
Keywords: ocean, temperature
Published: 2023-05-01
License: https://creativecommons.org/licenses/by/4.0/
Creators: Ada Lovelace, Mary Somerville
Number of files: 3
Files included:
- readings.csv: Hourly readings
- stations.csv: Station metadata
- README.md`

func TestOptimizer_WithinBudgetUnchanged(t *testing.T) {
	opt := NewOptimizer(NewStaticTokenizer(RuneEncoder{}))
	assert.Equal(t, crateText, opt.Optimize(crateText, len([]rune(crateText)), ""))
}

func TestOptimizer_KeepsImportantLinesFirst(t *testing.T) {
	tok := NewStaticTokenizer(RuneEncoder{})
	opt := NewOptimizer(tok)

	lines := strings.Split(crateText, "\n")
	important := strings.Join(lines[:7], "\n")
	// Room for the important block plus "Files included:" but not the next file line.
	ceiling := tok.Count(important+"\nFiles included:", "") + 5

	got := opt.Optimize(crateText, ceiling, "")
	assert.Equal(t, important+"\nFiles included:", got)
}

func TestOptimizer_ImportantLinesMoveAheadOfOthers(t *testing.T) {
	tok := NewStaticTokenizer(RuneEncoder{})
	opt := NewOptimizer(tok)

	text := "intro line\nLicense: MIT\ntrailing notes that are long"
	got := opt.Optimize(text, tok.Count("License: MIT\nintro line", ""), "")
	assert.Equal(t, "License: MIT\nintro line", got)
}

func TestOptimizer_HardTruncatesOversizedImportantLines(t *testing.T) {
	tok := NewStaticTokenizer(RuneEncoder{})
	opt := NewOptimizer(tok)

	text := "Description: " + strings.Repeat("very long ", 50) + "\nother"
	got := opt.Optimize(text, 20, "")
	assert.Equal(t, "Description: very lo", got)
}

func TestOptimizer_IsImportantCaseInsensitive(t *testing.T) {
	opt := NewOptimizer(NewStaticTokenizer(RuneEncoder{}))

	assert.True(t, opt.IsImportant("DATASET NAME: X"))
	assert.True(t, opt.IsImportant("  number of files: 4"))
	assert.False(t, opt.IsImportant("Publication Date: 2020"))
	assert.False(t, opt.IsImportant("- data.csv"))
}

func crateLines() *rapid.Generator[string] {
	return rapid.OneOf(
		rapid.SampledFrom([]string{
			"Dataset Name: Survey",
			"Description: Buoy readings",
			"Keywords: ocean, heat",
			"Published: 2020-01-01",
			"License: MIT",
			"Creators: Ada",
			"Number of files: 12",
		}),
		rapid.StringMatching(`[a-z .\-]{0,30}`),
	)
}

func TestOptimizer_Properties(t *testing.T) {
	tok := NewStaticTokenizer(RuneEncoder{})
	opt := NewOptimizer(tok)

	t.Run("idempotent within budget", func(t *testing.T) {
		rapid.Check(t, func(rt *rapid.T) {
			text := strings.Join(rapid.SliceOf(crateLines()).Draw(rt, "lines"), "\n")
			extra := rapid.IntRange(0, 10).Draw(rt, "extra")
			if got := opt.Optimize(text, tok.Count(text, "")+extra, ""); got != text {
				rt.Fatalf("optimize changed text within budget")
			}
		})
	})

	t.Run("budget respected", func(t *testing.T) {
		rapid.Check(t, func(rt *rapid.T) {
			text := strings.Join(rapid.SliceOf(crateLines()).Draw(rt, "lines"), "\n")
			ceiling := rapid.IntRange(1, 200).Draw(rt, "ceiling")
			got := opt.Optimize(text, ceiling, "")
			if n := tok.Count(got, ""); n > ceiling {
				rt.Fatalf("optimized text has %d tokens, ceiling %d", n, ceiling)
			}
		})
	})

	t.Run("important lines preserved in order", func(t *testing.T) {
		rapid.Check(t, func(rt *rapid.T) {
			lines := rapid.SliceOf(crateLines()).Draw(rt, "lines")
			text := strings.Join(lines, "\n")

			var important []string
			for _, l := range lines {
				if opt.IsImportant(l) {
					important = append(important, l)
				}
			}
			block := strings.Join(important, "\n")
			ceiling := tok.Count(block, "") + rapid.IntRange(0, 40).Draw(rt, "slack")

			got := opt.Optimize(text, ceiling, "")
			if !strings.HasPrefix(got, block) && tok.Count(text, "") > ceiling {
				rt.Fatalf("important block %q not kept at start of %q", block, got)
			}
			if tok.Count(text, "") <= ceiling && got != text {
				rt.Fatalf("text within budget changed")
			}
		})
	})
}
