package server

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/localrivet/cratescribe"
	"github.com/localrivet/cratescribe/internal/errortypes"
	"github.com/localrivet/cratescribe/internal/rocrate"
	"github.com/localrivet/cratescribe/internal/store"
	"github.com/localrivet/cratescribe/internal/tokens"
	"github.com/localrivet/cratescribe/internal/tools"
)

var testError = errortypes.DatabaseError(errors.New("test error"), "store unavailable")

// MockService implements CrateService for testing
type MockService struct {
	Description *cratescribe.Description
	Issues      []string
	Stats       *cratescribe.CrateStats
	Comparison  rocrate.Comparison
	Records     []store.Record
	Err         error

	DescribedPaths []string
	ListLimits     []int
}

func (m *MockService) DescribeFile(_ context.Context, path string) (*cratescribe.Description, error) {
	m.DescribedPaths = append(m.DescribedPaths, path)
	return m.Description, m.Err
}

func (m *MockService) ValidateFile(string) ([]string, error) {
	return m.Issues, m.Err
}

func (m *MockService) StatsFile(string) (*cratescribe.CrateStats, error) {
	return m.Stats, m.Err
}

func (m *MockService) CompareFiles(string, string) (rocrate.Comparison, error) {
	return m.Comparison, m.Err
}

func (m *MockService) ListDescriptions(limit int) ([]store.Record, error) {
	m.ListLimits = append(m.ListLimits, limit)
	return m.Records, m.Err
}

func newTestServer(svc CrateService) *CrateToolServer {
	return NewCrateToolServer(svc, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestInitialize(t *testing.T) {
	if err := newTestServer(&MockService{}).Initialize(); err != nil {
		t.Fatalf("Initialize() error = %v", err)
	}

	err := newTestServer(nil).Initialize()
	if !errortypes.IsConfigError(err) {
		t.Errorf("Expected config error for missing service, got %v", err)
	}
}

func TestStartWithoutInitialize(t *testing.T) {
	if err := newTestServer(&MockService{}).Start(); !errors.Is(err, ErrServerNotInitialized) {
		t.Errorf("Expected ErrServerNotInitialized, got %v", err)
	}
}

func TestHandleDescribeCrate(t *testing.T) {
	mock := &MockService{Description: &cratescribe.Description{
		ID:           "abc123",
		ManifestPath: "a.json",
		CrateName:    "Ocean Survey",
		Model:        "gpt-4",
		Provider:     "openai",
		Text:         "An ocean survey.",
		OK:           true,
		PromptTokens: 120,
	}}
	s := newTestServer(mock)

	resp, err := s.handleDescribeCrate(nil, tools.DescribeCrateRequest{Path: "a.json"})
	if err != nil {
		t.Fatalf("handleDescribeCrate() error = %v", err)
	}
	if resp.Status != tools.StatusSuccess {
		t.Errorf("Expected status success, got %s (%s)", resp.Status, resp.Error)
	}
	if resp.ID != "abc123" || resp.Description != "An ocean survey." || resp.PromptTokens != 120 {
		t.Errorf("Unexpected response: %+v", resp)
	}
	if len(mock.DescribedPaths) != 1 || mock.DescribedPaths[0] != "a.json" {
		t.Errorf("Expected one describe call for a.json, got %v", mock.DescribedPaths)
	}
}

func TestHandleDescribeCrate_Errors(t *testing.T) {
	t.Run("missing path", func(t *testing.T) {
		mock := &MockService{}
		resp, _ := newTestServer(mock).handleDescribeCrate(nil, tools.DescribeCrateRequest{Path: "  "})
		if resp.Status != tools.StatusError || resp.Code != StatusCodeValidationError {
			t.Errorf("Expected validation error, got %+v", resp.ErrorFields)
		}
		if len(mock.DescribedPaths) != 0 {
			t.Error("Service should not be called without a path")
		}
	})

	t.Run("no root dataset", func(t *testing.T) {
		mock := &MockService{Err: errortypes.ValidationError(rocrate.ErrNoRootDataset, "cannot describe manifest")}
		resp, _ := newTestServer(mock).handleDescribeCrate(nil, tools.DescribeCrateRequest{Path: "a.json"})
		if resp.Code != StatusCodeValidationError {
			t.Errorf("Expected validation code, got %+v", resp.ErrorFields)
		}
	})

	t.Run("llm failure", func(t *testing.T) {
		mock := &MockService{Description: &cratescribe.Description{
			Text:      "Error calling LLM: quota exceeded",
			ErrorKind: "quota",
		}}
		resp, _ := newTestServer(mock).handleDescribeCrate(nil, tools.DescribeCrateRequest{Path: "a.json"})
		if resp.Status != tools.StatusError || resp.Code != StatusCodeQuotaError {
			t.Errorf("Expected quota error, got %+v", resp.ErrorFields)
		}
		if resp.ErrorKind != "quota" || resp.Error != "Error calling LLM: quota exceeded" {
			t.Errorf("Unexpected failure details: %+v", resp)
		}
	})

	t.Run("store failure keeps description", func(t *testing.T) {
		mock := &MockService{
			Description: &cratescribe.Description{Text: "Described.", OK: true},
			Err:         testError,
		}
		resp, _ := newTestServer(mock).handleDescribeCrate(nil, tools.DescribeCrateRequest{Path: "a.json"})
		if resp.Code != StatusCodeDatabaseError || resp.Description != "Described." {
			t.Errorf("Expected database error with description, got %+v", resp)
		}
	})
}

func TestHandleValidateCrate(t *testing.T) {
	s := newTestServer(&MockService{Issues: []string{}})
	resp, _ := s.handleValidateCrate(nil, tools.ValidateCrateRequest{Path: "a.json"})
	if resp.Status != tools.StatusSuccess || !resp.Valid {
		t.Errorf("Expected a valid crate, got %+v", resp)
	}

	s = newTestServer(&MockService{Issues: []string{rocrate.IssueMissingContext}})
	resp, _ = s.handleValidateCrate(nil, tools.ValidateCrateRequest{Path: "a.json"})
	if resp.Valid || len(resp.Issues) != 1 {
		t.Errorf("Expected one issue, got %+v", resp)
	}
}

func TestHandleCrateStats(t *testing.T) {
	name := "Ocean Survey"
	s := newTestServer(&MockService{Stats: &cratescribe.CrateStats{
		Stats:     rocrate.SummaryStats{TotalEntities: 8, Name: &name},
		Narrative: "Dataset: Ocean Survey",
	}})

	resp, _ := s.handleCrateStats(nil, tools.CrateStatsRequest{Path: "a.json"})
	if resp.Status != tools.StatusSuccess || resp.Stats == nil || resp.Stats.TotalEntities != 8 {
		t.Errorf("Unexpected response: %+v", resp)
	}
	if resp.Narrative != "Dataset: Ocean Survey" {
		t.Errorf("Unexpected narrative %q", resp.Narrative)
	}
}

func TestHandleCompareCrates(t *testing.T) {
	s := newTestServer(&MockService{Comparison: rocrate.Comparison{FilesDiff: -2}})

	resp, _ := s.handleCompareCrates(nil, tools.CompareCratesRequest{First: "a.json", Second: "b.json"})
	if resp.Status != tools.StatusSuccess || resp.Comparison == nil || resp.Comparison.FilesDiff != -2 {
		t.Errorf("Unexpected response: %+v", resp)
	}

	resp, _ = s.handleCompareCrates(nil, tools.CompareCratesRequest{First: "a.json"})
	if resp.Code != StatusCodeValidationError {
		t.Errorf("Expected validation error for missing second path, got %+v", resp.ErrorFields)
	}
}

func TestHandleListDescriptions(t *testing.T) {
	created := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	mock := &MockService{Records: []store.Record{{ID: "a", CrateName: "A", Status: "success", CreatedAt: created}}}
	s := newTestServer(mock)

	resp, _ := s.handleListDescriptions(nil, tools.ListDescriptionsRequest{})
	if resp.Status != tools.StatusSuccess || len(resp.Descriptions) != 1 {
		t.Fatalf("Unexpected response: %+v", resp)
	}
	if !resp.Descriptions[0].CreatedAt.Equal(created) {
		t.Errorf("Unexpected created_at %v", resp.Descriptions[0].CreatedAt)
	}
	if len(mock.ListLimits) != 1 || mock.ListLimits[0] != tools.DefaultListLimit {
		t.Errorf("Expected default limit, got %v", mock.ListLimits)
	}

	mock = &MockService{Err: testError}
	resp, _ = newTestServer(mock).handleListDescriptions(nil, tools.ListDescriptionsRequest{Limit: 3})
	if resp.Code != StatusCodeDatabaseError || resp.Descriptions == nil {
		t.Errorf("Expected database error with empty list, got %+v", resp)
	}
}

func TestHandlersWithService(t *testing.T) {
	cfg := cratescribe.DefaultConfig()
	cfg.Store.SQLitePath = ""
	cfg.Describer.Provider = "basic"

	svc, err := cratescribe.NewService(cratescribe.ServiceOptions{
		Config:    cfg,
		Logger:    slog.New(slog.NewTextHandler(io.Discard, nil)),
		Tokenizer: tokens.NewStaticTokenizer(tokens.RuneEncoder{}),
	})
	if err != nil {
		t.Fatalf("NewService() error = %v", err)
	}
	s := newTestServer(svc)

	const manifest = "../../testdata/ocean-crate.json"

	desc, _ := s.handleDescribeCrate(nil, tools.DescribeCrateRequest{Path: manifest})
	if desc.Status != tools.StatusSuccess || desc.CrateName != "Ocean Temperature Survey" {
		t.Errorf("Unexpected describe response: %+v", desc)
	}

	val, _ := s.handleValidateCrate(nil, tools.ValidateCrateRequest{Path: manifest})
	if !val.Valid {
		t.Errorf("Expected fixture to be valid, got %v", val.Issues)
	}

	list, _ := s.handleListDescriptions(nil, tools.ListDescriptionsRequest{})
	if list.Code != StatusCodeConfigError {
		t.Errorf("Expected config error with the store disabled, got %+v", list.ErrorFields)
	}
}
