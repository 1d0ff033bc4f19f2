// Package store persists generated crate descriptions.
package store

import (
	"errors"
	"time"
)

// ErrNotFound is returned when no record has the requested id.
var ErrNotFound = errors.New("description not found")

// Record is one stored description attempt.
type Record struct {
	ID           string    `json:"id"`
	ManifestPath string    `json:"manifest_path"`
	CrateName    string    `json:"crate_name"`
	Model        string    `json:"model"`
	Provider     string    `json:"provider"`
	PromptTokens int       `json:"prompt_tokens"`
	Description  string    `json:"description"`
	Status       string    `json:"status"`
	ErrorKind    string    `json:"error_kind,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
}

// DescriptionStore defines the interface for storing and listing descriptions.
type DescriptionStore interface {
	// Initialize opens the store at the given path.
	Initialize(dbPath string) error

	// Close closes the store and releases any resources.
	Close() error

	// Save inserts the record, replacing any record with the same id.
	Save(rec Record) error

	// Get returns the record with the given id or ErrNotFound.
	Get(id string) (Record, error)

	// List returns up to limit records, newest first. A limit <= 0 lists all.
	List(limit int) ([]Record, error)

	// Delete removes the record with the given id or returns ErrNotFound.
	Delete(id string) error

	// Clear removes every record and returns how many were removed.
	Clear() (int, error)
}
