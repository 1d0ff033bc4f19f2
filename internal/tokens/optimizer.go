package tokens

import "strings"

// ImportantPrefixes are the field labels whose lines survive optimization first.
var ImportantPrefixes = []string{
	"dataset name:",
	"description:",
	"keywords:",
	"creators:",
	"published:",
	"license:",
	"number of files:",
}

// Optimizer shrinks crate text to a token ceiling while keeping the lines
// that carry the crate's key fields.
type Optimizer struct {
	tokenizer *Tokenizer
	keywords  []string
}

// NewOptimizer creates an Optimizer that ranks lines by ImportantPrefixes.
func NewOptimizer(tokenizer *Tokenizer) *Optimizer {
	return &Optimizer{tokenizer: tokenizer, keywords: ImportantPrefixes}
}

// IsImportant reports whether line mentions one of the important field labels.
func (o *Optimizer) IsImportant(line string) bool {
	lower := strings.ToLower(line)
	for _, kw := range o.keywords {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}

// Optimize returns text reduced to at most ceiling tokens for model.
//
// Text that fits is returned as is. Otherwise all important lines are kept
// in their original order and the remaining lines are appended in order
// until the next one would overflow. If the important lines alone overflow
// the result is hard-truncated.
func (o *Optimizer) Optimize(text string, ceiling int, model string) string {
	if o.tokenizer.Count(text, model) <= ceiling {
		return text
	}

	var important, other []string
	for _, line := range strings.Split(text, "\n") {
		if o.IsImportant(line) {
			important = append(important, line)
		} else {
			other = append(other, line)
		}
	}

	result := append([]string(nil), important...)
	for _, line := range other {
		candidate := strings.Join(append(result, line), "\n")
		if o.tokenizer.Count(candidate, model) > ceiling {
			break
		}
		result = append(result, line)
	}

	optimized := strings.Join(result, "\n")
	if o.tokenizer.Count(optimized, model) > ceiling {
		optimized = o.tokenizer.Truncate(optimized, ceiling, model)
	}
	return optimized
}
