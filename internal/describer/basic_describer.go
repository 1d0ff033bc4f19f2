package describer

import (
	"context"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"
)

// DefaultMaxDescriptionLength bounds BasicDescriber output, in bytes.
const DefaultMaxDescriptionLength = 500

// BasicDescriber is an offline implementation of the Describer interface.
// It restates the metadata fields found in the prompt as prose.
type BasicDescriber struct {
	maxLen int
}

// NewBasicDescriber creates a new BasicDescriber instance.
func NewBasicDescriber(maxLen int) *BasicDescriber {
	if maxLen <= 0 {
		maxLen = DefaultMaxDescriptionLength
	}
	return &BasicDescriber{maxLen: maxLen}
}

// Initialize sets up the describer with any required configuration.
func (d *BasicDescriber) Initialize() error {
	return nil
}

// Describe builds a description from the prompt's labelled fields. It
// never fails.
func (d *BasicDescriber) Describe(_ context.Context, text string) Result {
	started := time.Now()
	fields := promptFields(text)

	var sentences []string
	title := fields["title"]
	if title == "" {
		title = fields["dataset name"]
	}
	if title == "" {
		title = "This research object"
	}

	intro := title + " is a research object"
	if date := fields["publication date"]; date != "" && date != "Unknown" {
		intro += " published " + date
	}
	if n := fields["number of files"]; n != "" {
		intro += fmt.Sprintf(" containing %s file(s)", n)
	}
	sentences = append(sentences, intro+".")

	if desc := fields["description"]; desc != "" {
		sentences = append(sentences, ensurePeriod(desc))
	}
	if kw := fields["keywords"]; kw != "" {
		sentences = append(sentences, "Keywords: "+kw+".")
	}
	if lic := fields["license"]; lic != "" && lic != "Not specified" {
		sentences = append(sentences, "It is released under "+lic+".")
	}

	return Result{
		Text:     truncateAtBoundary(strings.Join(sentences, " "), d.maxLen),
		Provider: ProviderBasic,
		Duration: time.Since(started),
	}
}

// promptFields collects "Label: value" lines keyed by lower-cased label.
func promptFields(text string) map[string]string {
	fields := make(map[string]string)
	for _, line := range strings.Split(text, "\n") {
		label, value, ok := strings.Cut(line, ":")
		if !ok {
			continue
		}
		key := strings.ToLower(strings.TrimSpace(label))
		if _, seen := fields[key]; !seen {
			fields[key] = strings.TrimSpace(value)
		}
	}
	return fields
}

func ensurePeriod(s string) string {
	if strings.HasSuffix(s, ".") || strings.HasSuffix(s, "!") || strings.HasSuffix(s, "?") {
		return s
	}
	return s + "."
}

// truncateAtBoundary shortens text to at most maxLen bytes, preferring a
// sentence end, then a word boundary followed by an ellipsis.
func truncateAtBoundary(text string, maxLen int) string {
	if len(text) <= maxLen {
		return text
	}

	const ellipsis = "..."
	truncated := text[:runeBoundary(text, maxLen)]

	lastSentenceBoundary := max(strings.LastIndex(truncated, ". "), strings.LastIndex(truncated, "? "), strings.LastIndex(truncated, "! "))
	if lastSentenceBoundary > 0 {
		return text[:lastSentenceBoundary+1]
	}

	cut := maxLen - len(ellipsis)
	if cut < 0 {
		cut = 0
	}
	truncated = text[:runeBoundary(text, cut)]
	if lastSpace := strings.LastIndex(truncated, " "); lastSpace > 0 {
		return text[:lastSpace] + ellipsis
	}
	return truncated + ellipsis
}

// runeBoundary moves n back to the start of the rune it falls in.
func runeBoundary(s string, n int) int {
	for n > 0 && n < len(s) && !utf8.RuneStart(s[n]) {
		n--
	}
	return n
}
