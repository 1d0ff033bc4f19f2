// Package describer turns crate prompts into human-readable descriptions
// using an LLM provider or an offline fallback.
package describer

import (
	"context"
	"fmt"
	"time"

	"github.com/localrivet/cratescribe/internal/describer/providers"
)

// ProviderBasic selects the offline describer.
const ProviderBasic = "basic"

// Describer defines the interface for describing a crate from its prompt.
type Describer interface {
	// Describe makes a single attempt to describe the crate.
	Describe(ctx context.Context, prompt string) Result

	// Initialize sets up the describer with any required configuration.
	Initialize() error
}

// Result is the outcome of one Describe call. Exactly one of Text and Err
// is meaningful.
type Result struct {
	Text     string
	Provider string
	Model    string
	Kind     providers.ErrorKind
	Err      error
	Duration time.Duration
}

// OK reports whether the call produced a description.
func (r Result) OK() bool {
	return r.Err == nil
}

// Status is "success" or "error".
func (r Result) Status() string {
	if r.OK() {
		return "success"
	}
	return "error"
}

// Description returns the text to show for the result; failures are
// rendered as an error line.
func (r Result) Description() string {
	if r.OK() {
		return r.Text
	}
	return fmt.Sprintf("Error calling LLM: %v", r.Err)
}

func failed(provider, model string, err error, started time.Time) Result {
	return Result{
		Provider: provider,
		Model:    model,
		Kind:     providers.KindOf(err),
		Err:      err,
		Duration: time.Since(started),
	}
}
