package server

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/localrivet/gomcp/server"

	"github.com/localrivet/cratescribe"
	"github.com/localrivet/cratescribe/internal/errortypes"
	"github.com/localrivet/cratescribe/internal/rocrate"
	"github.com/localrivet/cratescribe/internal/store"
	"github.com/localrivet/cratescribe/internal/tools"
)

// Common server error types
var (
	ErrServerNotInitialized = errors.New("server not initialized")
	ErrMissingService       = errors.New("crate service is nil")
	ErrMissingPath          = errors.New("path is required")
)

// CrateService is the subset of *cratescribe.Service the tools call.
type CrateService interface {
	DescribeFile(ctx context.Context, path string) (*cratescribe.Description, error)
	ValidateFile(path string) ([]string, error)
	StatsFile(path string) (*cratescribe.CrateStats, error)
	CompareFiles(first, second string) (rocrate.Comparison, error)
	ListDescriptions(limit int) ([]store.Record, error)
}

// CrateToolServer implements the ToolServer interface for crate tools.
type CrateToolServer struct {
	service   CrateService
	mcpServer server.Server
	logger    *slog.Logger
	ctx       context.Context
	cancel    context.CancelFunc
}

// NewCrateToolServer creates a new CrateToolServer. A nil logger selects slog.Default().
func NewCrateToolServer(service CrateService, logger *slog.Logger) *CrateToolServer {
	if logger == nil {
		logger = slog.Default()
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &CrateToolServer{
		service: service,
		logger:  logger,
		ctx:     ctx,
		cancel:  cancel,
	}
}

// Initialize registers the crate tools.
func (s *CrateToolServer) Initialize() error {
	s.logger.Info("Initializing MCP crate tool server")

	if s.service == nil {
		return errortypes.ConfigError(ErrMissingService, "server initialization failed")
	}

	srv := server.NewServer("cratescribe")

	srv = srv.Tool(tools.ToolDescribeCrate, "Describe an RO-Crate manifest in plain language using the configured LLM",
		s.handleDescribeCrate)

	srv = srv.Tool(tools.ToolValidateCrate, "Check the minimal RO-Crate 1.1 structure of a manifest",
		s.handleValidateCrate)

	srv = srv.Tool(tools.ToolCrateStats, "Summarize the entities of an RO-Crate manifest without calling an LLM",
		s.handleCrateStats)

	srv = srv.Tool(tools.ToolCompareCrates, "Compare the summary statistics of two RO-Crate manifests",
		s.handleCompareCrates)

	srv = srv.Tool(tools.ToolListDescriptions, "List the most recently generated crate descriptions",
		s.handleListDescriptions)

	s.mcpServer = srv
	s.logger.Info("MCP crate tool server initialized", "tool_count", 5)
	return nil
}

// Start starts the MCP server on stdio.
func (s *CrateToolServer) Start() error {
	if s.mcpServer == nil {
		return errortypes.ConfigError(ErrServerNotInitialized, "cannot start server")
	}

	s.logger.Info("Starting MCP crate tool server")
	return s.mcpServer.AsStdio().Run()
}

// Stop cancels in-flight describe calls. The server itself exits when stdin is closed.
func (s *CrateToolServer) Stop() error {
	s.logger.Info("Stopping MCP crate tool server")
	s.cancel()
	return nil
}

func requirePath(path string) error {
	if strings.TrimSpace(path) == "" {
		return errortypes.ValidationError(ErrMissingPath, "invalid request")
	}
	return nil
}

// handleDescribeCrate handles the describe_crate MCP tool call.
func (s *CrateToolServer) handleDescribeCrate(_ *server.Context, req tools.DescribeCrateRequest) (tools.DescribeCrateResponse, error) {
	s.logger.Info("Processing describe_crate request", "path", req.Path)

	var response tools.DescribeCrateResponse
	if err := requirePath(req.Path); err != nil {
		response.ErrorFields = errorFields(s.logger, tools.ToolDescribeCrate, err)
		return response, nil
	}

	d, err := s.service.DescribeFile(s.ctx, req.Path)
	if d == nil && err == nil {
		err = errortypes.InternalError(errors.New("no description returned"), "describe failed")
	}
	if d == nil {
		response.ErrorFields = errorFields(s.logger, tools.ToolDescribeCrate, err)
		return response, nil
	}

	response = tools.DescribeCrateResponse{
		ErrorFields:  success(),
		ID:           d.ID,
		CrateName:    d.CrateName,
		Model:        d.Model,
		Provider:     d.Provider,
		Description:  d.Text,
		ErrorKind:    d.ErrorKind,
		PromptTokens: d.PromptTokens,
		Optimized:    d.Optimized,
		Issues:       d.Issues,
	}

	switch {
	case !d.OK:
		response.ErrorFields = tools.ErrorFields{
			Status: tools.StatusError,
			Code:   CodeForType(errortypes.ErrorType(d.ErrorKind)),
			Error:  d.Text,
		}
	case err != nil:
		// Described, but the record could not be stored.
		response.ErrorFields = errorFields(s.logger, tools.ToolDescribeCrate, err)
	default:
		s.logger.Info("Described crate", "path", req.Path, "id", d.ID)
	}
	return response, nil
}

// handleValidateCrate handles the validate_crate MCP tool call.
func (s *CrateToolServer) handleValidateCrate(_ *server.Context, req tools.ValidateCrateRequest) (tools.ValidateCrateResponse, error) {
	s.logger.Info("Processing validate_crate request", "path", req.Path)

	response := tools.ValidateCrateResponse{Issues: []string{}}
	if err := requirePath(req.Path); err != nil {
		response.ErrorFields = errorFields(s.logger, tools.ToolValidateCrate, err)
		return response, nil
	}

	issues, err := s.service.ValidateFile(req.Path)
	if err != nil {
		response.ErrorFields = errorFields(s.logger, tools.ToolValidateCrate, err)
		return response, nil
	}

	response.ErrorFields = success()
	if issues != nil {
		response.Issues = issues
	}
	response.Valid = len(issues) == 0
	return response, nil
}

// handleCrateStats handles the crate_stats MCP tool call.
func (s *CrateToolServer) handleCrateStats(_ *server.Context, req tools.CrateStatsRequest) (tools.CrateStatsResponse, error) {
	s.logger.Info("Processing crate_stats request", "path", req.Path)

	var response tools.CrateStatsResponse
	if err := requirePath(req.Path); err != nil {
		response.ErrorFields = errorFields(s.logger, tools.ToolCrateStats, err)
		return response, nil
	}

	stats, err := s.service.StatsFile(req.Path)
	if err != nil {
		response.ErrorFields = errorFields(s.logger, tools.ToolCrateStats, err)
		return response, nil
	}

	response.ErrorFields = success()
	response.Stats = &stats.Stats
	response.Narrative = stats.Narrative
	return response, nil
}

// handleCompareCrates handles the compare_crates MCP tool call.
func (s *CrateToolServer) handleCompareCrates(_ *server.Context, req tools.CompareCratesRequest) (tools.CompareCratesResponse, error) {
	s.logger.Info("Processing compare_crates request", "first", req.First, "second", req.Second)

	var response tools.CompareCratesResponse
	if err := errors.Join(requirePath(req.First), requirePath(req.Second)); err != nil {
		response.ErrorFields = errorFields(s.logger, tools.ToolCompareCrates, err)
		return response, nil
	}

	cmp, err := s.service.CompareFiles(req.First, req.Second)
	if err != nil {
		response.ErrorFields = errorFields(s.logger, tools.ToolCompareCrates, err)
		return response, nil
	}

	response.ErrorFields = success()
	response.Comparison = &cmp
	return response, nil
}

// handleListDescriptions handles the list_descriptions MCP tool call.
func (s *CrateToolServer) handleListDescriptions(_ *server.Context, req tools.ListDescriptionsRequest) (tools.ListDescriptionsResponse, error) {
	limit := req.Limit
	if limit <= 0 {
		limit = tools.DefaultListLimit
	}
	s.logger.Info("Processing list_descriptions request", "limit", limit)

	response := tools.ListDescriptionsResponse{Descriptions: []tools.DescriptionSummary{}}

	records, err := s.service.ListDescriptions(limit)
	if err != nil {
		response.ErrorFields = errorFields(s.logger, tools.ToolListDescriptions, err)
		return response, nil
	}

	for _, r := range records {
		response.Descriptions = append(response.Descriptions, tools.DescriptionSummary{
			ID:           r.ID,
			ManifestPath: r.ManifestPath,
			CrateName:    r.CrateName,
			Model:        r.Model,
			Status:       r.Status,
			Description:  r.Description,
			CreatedAt:    r.CreatedAt,
		})
	}
	response.ErrorFields = success()
	return response, nil
}
