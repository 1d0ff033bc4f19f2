package prompt

import (
	"fmt"
	"strings"

	"github.com/localrivet/cratescribe/internal/tokens"
)

// SystemPrompt sets the persona for every description request.
const SystemPrompt = "You are a research data specialist who helps researchers understand and discover relevant datasets and research objects."

// Completion defaults for description requests.
const (
	DefaultMaxResponseTokens = 1000
	DefaultTemperature       = 0.7
)

// DefaultCeiling is the context window assumed for models missing from the table.
const DefaultCeiling = 4096

// DefaultCeilings maps model identifiers to their context windows.
var DefaultCeilings = map[string]int{
	"gpt-3.5-turbo":   4096,
	"gpt-4":           8192,
	"gpt-4-turbo":     128000,
	"claude-3-sonnet": 200000,
	"claude-3-opus":   200000,
}

// Prompt is a rendered prompt together with its token accounting.
type Prompt struct {
	Text      string `json:"text"`
	Tokens    int    `json:"tokens"`
	Ceiling   int    `json:"ceiling"`
	Optimized bool   `json:"optimized"`
}

// Builder renders prompts and keeps them inside each model's context window.
type Builder struct {
	tokenizer      *tokens.Tokenizer
	optimizer      *tokens.Optimizer
	ceilings       map[string]int
	defaultCeiling int
}

// NewBuilder creates a builder. Entries in ceilings override DefaultCeilings;
// a non-positive defaultCeiling selects DefaultCeiling.
func NewBuilder(tokenizer *tokens.Tokenizer, ceilings map[string]int, defaultCeiling int) *Builder {
	merged := make(map[string]int, len(DefaultCeilings)+len(ceilings))
	for k, v := range DefaultCeilings {
		merged[k] = v
	}
	for k, v := range ceilings {
		if v > 0 {
			merged[k] = v
		}
	}
	if defaultCeiling <= 0 {
		defaultCeiling = DefaultCeiling
	}
	return &Builder{
		tokenizer:      tokenizer,
		optimizer:      tokens.NewOptimizer(tokenizer),
		ceilings:       merged,
		defaultCeiling: defaultCeiling,
	}
}

// Ceiling returns the context window for model. Dated model names such as
// "claude-3-sonnet-20240229" resolve through their longest listed prefix.
func (b *Builder) Ceiling(model string) int {
	if c, ok := b.ceilings[model]; ok {
		return c
	}
	best, ceiling := 0, b.defaultCeiling
	for name, c := range b.ceilings {
		if strings.HasPrefix(model, name+"-") && len(name) > best {
			best, ceiling = len(name), c
		}
	}
	return ceiling
}

// Tokenizer returns the tokenizer the builder counts with.
func (b *Builder) Tokenizer() *tokens.Tokenizer {
	return b.tokenizer
}

// Build renders info and optimizes the result when it exceeds the model's ceiling.
func (b *Builder) Build(info KeyInfo, model string) Prompt {
	text := Render(info)
	ceiling := b.Ceiling(model)

	p := Prompt{Text: text, Ceiling: ceiling, Tokens: b.tokenizer.Count(text, model)}
	if p.Tokens > ceiling {
		p.Text = b.optimizer.Optimize(text, ceiling, model)
		p.Tokens = b.tokenizer.Count(p.Text, model)
		p.Optimized = true
	}
	return p
}

// Fit shrinks p to at most limit tokens. A prompt already within limit is
// returned unchanged.
func (b *Builder) Fit(p Prompt, limit int, model string) Prompt {
	if p.Tokens <= limit {
		return p
	}
	p.Text = b.optimizer.Optimize(p.Text, limit, model)
	p.Tokens = b.tokenizer.Count(p.Text, model)
	p.Optimized = true
	return p
}

// Render fills the description template with info.
func Render(info KeyInfo) string {
	license := info.LicenseID
	if license == "" {
		license = "Not specified"
	}

	var sb strings.Builder
	sb.WriteString("\nPlease provide a clear, human-readable description of this research object based on the following metadata:\n\n")
	fmt.Fprintf(&sb, "Title: %s\n", info.Name)
	fmt.Fprintf(&sb, "Description: %s\n", info.Description)
	fmt.Fprintf(&sb, "Publication Date: %s\n", info.DatePublished)
	fmt.Fprintf(&sb, "Number of Files: %d\n", info.FilesCount)
	fmt.Fprintf(&sb, "Keywords: %s\n", strings.Join(info.Keywords, ", "))
	fmt.Fprintf(&sb, "License: %s\n\n", license)
	sb.WriteString("Creator(s):\n")
	sb.WriteString(formatCreators(info.Creators))
	sb.WriteString("\n\nFiles included:\n")
	sb.WriteString(formatFiles(info.Parts))
	sb.WriteString("\n\nPlease write a comprehensive summary that would help a researcher understand what this research object contains and its potential value for their work.\n")
	return sb.String()
}

func formatCreators(creators []Creator) string {
	if len(creators) == 0 {
		return "- Not specified"
	}
	lines := make([]string, 0, len(creators))
	for _, c := range creators {
		if c.Affiliation != "" {
			lines = append(lines, fmt.Sprintf("- %s (%s)", c.Name, c.Affiliation))
		} else {
			lines = append(lines, "- "+c.Name)
		}
	}
	return strings.Join(lines, "\n")
}

func formatFiles(parts []string) string {
	if len(parts) == 0 {
		return "- No files specified"
	}
	lines := make([]string, 0, len(parts))
	for _, p := range parts {
		lines = append(lines, "- "+p)
	}
	return strings.Join(lines, "\n")
}
