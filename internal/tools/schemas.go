// Package tools defines the request and response schemas of the
// cratescribe MCP tools.
package tools

import (
	"time"

	"github.com/localrivet/cratescribe/internal/rocrate"
)

const (
	// ToolDescribeCrate is the name of the describe_crate MCP tool
	ToolDescribeCrate = "describe_crate"

	// ToolValidateCrate is the name of the validate_crate MCP tool
	ToolValidateCrate = "validate_crate"

	// ToolCrateStats is the name of the crate_stats MCP tool
	ToolCrateStats = "crate_stats"

	// ToolCompareCrates is the name of the compare_crates MCP tool
	ToolCompareCrates = "compare_crates"

	// ToolListDescriptions is the name of the list_descriptions MCP tool
	ToolListDescriptions = "list_descriptions"

	// DefaultListLimit is the number of descriptions returned when a
	// list_descriptions request sets no limit
	DefaultListLimit = 10
)

// Response statuses
const (
	StatusSuccess = "success"
	StatusError   = "error"
)

// ErrorFields is embedded in every response. Code and Error are set only
// when Status is "error".
type ErrorFields struct {
	// Status indicates the result of the operation ("success" or "error")
	Status string `json:"status"`

	// Code is a machine-readable error category
	Code string `json:"code,omitempty"`

	// Error contains an error message if Status is "error"
	Error string `json:"error,omitempty"`
}

// DescribeCrateRequest defines the input schema for describe_crate tool
type DescribeCrateRequest struct {
	// Path is the manifest file to describe
	Path string `json:"path"`
}

// DescribeCrateResponse defines the output schema for describe_crate tool
type DescribeCrateResponse struct {
	ErrorFields

	// ID identifies the stored description
	ID string `json:"id,omitempty"`

	// CrateName is the root dataset's name
	CrateName string `json:"crate_name,omitempty"`

	// Model and Provider produced the description
	Model    string `json:"model,omitempty"`
	Provider string `json:"provider,omitempty"`

	// Description is the generated text
	Description string `json:"description,omitempty"`

	// ErrorKind classifies a failed LLM call
	ErrorKind string `json:"error_kind,omitempty"`

	// PromptTokens is the size of the prompt sent
	PromptTokens int `json:"prompt_tokens,omitempty"`

	// Optimized reports whether the prompt was shrunk to fit the budget
	Optimized bool `json:"optimized,omitempty"`

	// Issues lists structural problems found in the manifest
	Issues []string `json:"issues,omitempty"`
}

// ValidateCrateRequest defines the input schema for validate_crate tool
type ValidateCrateRequest struct {
	Path string `json:"path"`
}

// ValidateCrateResponse defines the output schema for validate_crate tool
type ValidateCrateResponse struct {
	ErrorFields

	// Valid is true when no issues were found
	Valid bool `json:"valid"`

	// Issues lists structural problems found in the manifest
	Issues []string `json:"issues"`
}

// CrateStatsRequest defines the input schema for crate_stats tool
type CrateStatsRequest struct {
	Path string `json:"path"`
}

// CrateStatsResponse defines the output schema for crate_stats tool
type CrateStatsResponse struct {
	ErrorFields

	Stats     *rocrate.SummaryStats `json:"stats,omitempty"`
	Narrative string                `json:"narrative,omitempty"`
}

// CompareCratesRequest defines the input schema for compare_crates tool
type CompareCratesRequest struct {
	// First and Second are manifest paths; differences are Second minus First
	First  string `json:"first"`
	Second string `json:"second"`
}

// CompareCratesResponse defines the output schema for compare_crates tool
type CompareCratesResponse struct {
	ErrorFields

	Comparison *rocrate.Comparison `json:"comparison,omitempty"`
}

// ListDescriptionsRequest defines the input schema for list_descriptions tool
type ListDescriptionsRequest struct {
	// Limit is the maximum number of results to return
	// If not specified, DefaultListLimit will be used
	Limit int `json:"limit,omitempty"`
}

// DescriptionSummary is one stored description
type DescriptionSummary struct {
	ID           string    `json:"id"`
	ManifestPath string    `json:"manifest_path"`
	CrateName    string    `json:"crate_name"`
	Model        string    `json:"model"`
	Status       string    `json:"status"`
	Description  string    `json:"description"`
	CreatedAt    time.Time `json:"created_at"`
}

// ListDescriptionsResponse defines the output schema for list_descriptions tool
type ListDescriptionsResponse struct {
	ErrorFields

	Descriptions []DescriptionSummary `json:"descriptions"`
}
