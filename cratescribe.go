// Package cratescribe describes RO-Crate manifests in plain language using a
// large-language-model provider, keeping every prompt inside the model's
// context window.
package cratescribe

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"sort"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/localrivet/cratescribe/internal/config"
	"github.com/localrivet/cratescribe/internal/describer"
	"github.com/localrivet/cratescribe/internal/describer/providers"
	"github.com/localrivet/cratescribe/internal/errortypes"
	"github.com/localrivet/cratescribe/internal/prompt"
	"github.com/localrivet/cratescribe/internal/report"
	"github.com/localrivet/cratescribe/internal/rocrate"
	"github.com/localrivet/cratescribe/internal/store"
	"github.com/localrivet/cratescribe/internal/telemetry"
	"github.com/localrivet/cratescribe/internal/tokens"
	"github.com/localrivet/cratescribe/internal/util"
)

// Config represents the configuration for the cratescribe service.
type Config = config.Config

// DefaultConcurrency bounds how many manifests DescribeFiles handles at once.
const DefaultConcurrency = 4

var (
	// ErrBudgetExceeded is returned when the system prompt and the response
	// reserve leave no room for the crate prompt.
	ErrBudgetExceeded = errors.New("prompt does not fit the model's context window")

	// ErrStoreDisabled is returned by store operations when persistence is off.
	ErrStoreDisabled = errors.New("description store is disabled")

	// ErrUnknownProvider is returned when describer.provider names no known provider.
	ErrUnknownProvider = errors.New("unknown describer provider")
)

// ServiceOptions defines the options for creating a new Service.
type ServiceOptions struct {
	Config     *Config      // Pre-filled config. If nil, ConfigPath is used.
	ConfigPath string       // Path to config file. Used if Config is nil. If both are empty, DefaultConfig() is used.
	Logger     *slog.Logger // External logger. If nil, slog.Default() is used.

	// Describer replaces the describer selected by Config.Describer.Provider.
	Describer describer.Describer
	// Tokenizer replaces the tiktoken-backed tokenizer.
	Tokenizer *tokens.Tokenizer
	// Store replaces the SQLite store at Config.Store.SQLitePath.
	Store store.DescriptionStore
	// Concurrency bounds parallel describes. Zero selects DefaultConcurrency.
	Concurrency int
}

// Service describes manifests and keeps a record of the results.
type Service struct {
	config      *Config
	logger      *slog.Logger
	tokenizer   *tokens.Tokenizer
	builder     *prompt.Builder
	describer   describer.Describer
	store       store.DescriptionStore
	ownsStore   bool
	metrics     *telemetry.MetricsCollector
	model       string
	concurrency int
	now         func() time.Time
}

// Description is the outcome of describing one manifest.
type Description struct {
	ID           string               `json:"id,omitempty"`
	ManifestPath string               `json:"manifest_path"`
	CrateName    string               `json:"crate_name,omitempty"`
	Model        string               `json:"model"`
	Provider     string               `json:"provider,omitempty"`
	Text         string               `json:"description"`
	OK           bool                 `json:"ok"`
	ErrorKind    string               `json:"error_kind,omitempty"`
	Err          error                `json:"-"`
	PromptTokens int                  `json:"prompt_tokens"`
	Optimized    bool                 `json:"optimized"`
	Issues       []string             `json:"issues,omitempty"`
	Stats        rocrate.SummaryStats `json:"stats"`
	Duration     time.Duration        `json:"duration"`
	GeneratedAt  time.Time            `json:"generated_at"`
}

// Status is "success" or "error".
func (d *Description) Status() string {
	if d.OK {
		return "success"
	}
	return "error"
}

// Entry converts d for the report writers.
func (d *Description) Entry() report.Entry {
	return report.Entry{
		ManifestPath: d.ManifestPath,
		CrateName:    d.CrateName,
		Model:        d.Model,
		Provider:     d.Provider,
		Description:  d.Text,
		OK:           d.OK,
		ErrorKind:    d.ErrorKind,
		GeneratedAt:  d.GeneratedAt,
	}
}

// CrateStats is the analysis of one manifest without an LLM call.
type CrateStats struct {
	ManifestPath string               `json:"manifest_path"`
	Stats        rocrate.SummaryStats `json:"stats"`
	Narrative    string               `json:"narrative"`
	Issues       []string             `json:"issues"`
}

// DefaultConfig returns the default configuration for the cratescribe service.
func DefaultConfig() *Config {
	return config.NewConfig()
}

// NewService creates a new Service with the given options.
// If opts.Config is provided, it will be used directly.
// Otherwise, if opts.ConfigPath is provided, configuration will be loaded from that path.
// If neither is provided, DefaultConfig() will be used.
func NewService(opts ServiceOptions) (*Service, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	var cfg *Config
	switch {
	case opts.Config != nil:
		cfg = opts.Config
	case opts.ConfigPath != "":
		logger.Info("Loading configuration", "path", opts.ConfigPath)
		loaded, err := config.LoadConfigWithPath(opts.ConfigPath)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	default:
		logger.Debug("No config provided, using defaults")
		cfg = DefaultConfig()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	model := cfg.Describer.ModelID
	if model == "" {
		model = cfg.Tokens.DefaultModel
	}

	tok := opts.Tokenizer
	if tok == nil {
		var err error
		tok, err = tokens.NewTokenizer(tokens.Options{
			DefaultEncoding: tokens.EncodingForModel(cfg.Tokens.DefaultModel),
			Logger:          logger,
		})
		if err != nil {
			return nil, err
		}
	}

	metrics := telemetry.NewMetricsCollector()

	desc := opts.Describer
	if desc == nil {
		var err error
		desc, err = newDescriber(cfg, metrics, logger)
		if err != nil {
			return nil, err
		}
	}
	if err := desc.Initialize(); err != nil {
		// Describe reports the same failure for every manifest; validation and
		// stats still work without a provider.
		logger.Warn("Describer is not ready", "provider", cfg.Describer.Provider, "error", err)
	}

	st := opts.Store
	ownsStore := false
	if st == nil && cfg.Store.SQLitePath != "" {
		logger.Info("Opening description store", "path", cfg.Store.SQLitePath)
		opened, err := store.Open(cfg.Store.SQLitePath)
		if err != nil {
			return nil, err
		}
		st, ownsStore = opened, true
	}

	concurrency := opts.Concurrency
	if concurrency <= 0 {
		concurrency = DefaultConcurrency
	}

	return &Service{
		config:      cfg,
		logger:      logger,
		tokenizer:   tok,
		builder:     prompt.NewBuilder(tok, cfg.Tokens.ContextWindows, cfg.Tokens.DefaultCeiling),
		describer:   desc,
		store:       st,
		ownsStore:   ownsStore,
		metrics:     metrics,
		model:       model,
		concurrency: concurrency,
		now:         time.Now,
	}, nil
}

// ProviderNames lists the accepted values of describer.provider.
func ProviderNames() []string {
	return append([]string{describer.ProviderBasic}, providers.Names()...)
}

func newDescriber(cfg *Config, metrics *telemetry.MetricsCollector, logger *slog.Logger) (describer.Describer, error) {
	if strings.EqualFold(cfg.Describer.Provider, describer.ProviderBasic) {
		return describer.NewBasicDescriber(describer.DefaultMaxDescriptionLength), nil
	}

	name := strings.ToLower(cfg.Describer.Provider)
	if !slices.Contains(providers.Names(), name) {
		return nil, errortypes.ConfigError(ErrUnknownProvider, "invalid describer provider").WithFields(map[string]interface{}{
			"provider":  cfg.Describer.Provider,
			"supported": strings.Join(ProviderNames(), ", "),
		})
	}

	timeout, err := cfg.DescriberTimeout()
	if err != nil {
		return nil, errortypes.ConfigError(err, "invalid describer timeout")
	}
	return describer.NewAIDescriber(&describer.AIDescriberConfig{
		ProviderName: name,
		ModelID:      cfg.Describer.ModelID,
		APIKey:       cfg.Describer.APIKey,
		BaseURL:      cfg.Describer.BaseURL,
		SystemPrompt: prompt.SystemPrompt,
		MaxTokens:    cfg.Describer.MaxResponseTokens,
		Temperature:  cfg.Describer.Temperature,
		Timeout:      timeout,
		Metrics:      metrics,
		Logger:       logger,
	}), nil
}

// Config returns the configuration the service runs with.
func (s *Service) Config() *Config {
	return s.config
}

// Model returns the model used for token accounting and, when configured, the completion.
func (s *Service) Model() string {
	return s.model
}

// Metrics returns the service's metrics collector.
func (s *Service) Metrics() *telemetry.MetricsCollector {
	return s.metrics
}

// Close releases the description store when the service opened it.
func (s *Service) Close() error {
	if s.store == nil || !s.ownsStore {
		return nil
	}
	s.logger.Debug("Closing description store")
	return s.store.Close()
}

func (s *Service) load(path string) (*rocrate.Manifest, error) {
	m, err := rocrate.Load(path)
	if err == nil {
		return m, nil
	}
	if errortypes.TypeOf(err) == "" {
		err = errortypes.ValidationError(err, "cannot read manifest").WithField("path", path)
	}
	return nil, err
}

func (s *Service) analyzer(m *rocrate.Manifest) *rocrate.Analyzer {
	return rocrate.NewAnalyzer(m, rocrate.WithMaxFiles(s.config.Crate.MaxFilesToDescribe))
}

// DescribeFile loads, validates and analyzes the manifest at path, builds a
// prompt within the model's budget and asks the describer once.
//
// A failed LLM call is not an error: it is reported in the returned
// Description. Errors are returned for unreadable manifests, manifests
// without a root dataset and prompts that cannot fit the budget. When the
// description cannot be persisted the Description is returned together
// with the store error.
func (s *Service) DescribeFile(ctx context.Context, path string) (*Description, error) {
	log := s.logger.With("manifest", path)

	m, err := s.load(path)
	if err != nil {
		s.metrics.IncrementCounter(telemetry.MetricManifestsFailed, 1)
		return nil, err
	}

	issues := m.Validate()
	if len(issues) > 0 {
		s.metrics.IncrementCounter(telemetry.MetricManifestsInvalid, 1)
		log.Warn("Manifest has structural issues", "issues", issues)
	}

	info, ok := prompt.ExtractKeyInfo(m)
	if !ok {
		s.metrics.IncrementCounter(telemetry.MetricManifestsFailed, 1)
		return nil, errortypes.ValidationError(rocrate.ErrNoRootDataset, "cannot describe manifest").
			WithField("path", path)
	}

	p, err := s.fitBudget(s.builder.Build(info, s.model))
	if err != nil {
		s.metrics.IncrementCounter(telemetry.MetricManifestsFailed, 1)
		var appErr *errortypes.AppError
		if errors.As(err, &appErr) {
			appErr.WithField("path", path)
		}
		return nil, err
	}
	s.metrics.IncrementCounter(telemetry.MetricPromptTokens, int64(p.Tokens))
	if p.Optimized {
		s.metrics.IncrementCounter(telemetry.MetricPromptsOptimized, 1)
		log.Info("Prompt optimized to fit the context window", "tokens", p.Tokens, "ceiling", p.Ceiling)
	}

	res := s.describer.Describe(ctx, p.Text)

	generated := s.now()
	d := &Description{
		ID:           util.RecordID(path, generated),
		ManifestPath: path,
		CrateName:    info.Name,
		Model:        res.Model,
		Provider:     res.Provider,
		Text:         res.Description(),
		OK:           res.OK(),
		ErrorKind:    string(res.Kind),
		Err:          res.Err,
		PromptTokens: p.Tokens,
		Optimized:    p.Optimized,
		Issues:       issues,
		Stats:        s.analyzer(m).SummaryStats(),
		Duration:     res.Duration,
		GeneratedAt:  generated,
	}
	if d.Model == "" {
		d.Model = s.model
	}

	if d.OK {
		s.metrics.IncrementCounter(telemetry.MetricManifestsDescribed, 1)
		log.Info("Described manifest", "provider", d.Provider, "tokens", d.PromptTokens)
	} else {
		s.metrics.IncrementCounter(telemetry.MetricManifestsFailed, 1)
		log.Warn("Describer failed", "provider", d.Provider, "kind", d.ErrorKind)
	}

	if err := s.persist(d); err != nil {
		d.Err = errors.Join(d.Err, err)
		return d, err
	}
	return d, nil
}

// fitBudget reserves the chat framing (system message plus an empty user
// message) and the response in a budget of the model's context window and
// shrinks the prompt to what is left.
func (s *Service) fitBudget(p prompt.Prompt) (prompt.Prompt, error) {
	budget, err := tokens.NewBudgetManager(p.Ceiling, s.model, s.tokenizer)
	if err != nil {
		return p, err
	}

	framingTokens := s.tokenizer.EstimateMessages([]tokens.Message{
		{Role: "system", Content: prompt.SystemPrompt},
		{Role: "user"},
	}, s.model)
	responseTokens := s.config.Describer.MaxResponseTokens
	reject := func() (prompt.Prompt, error) {
		s.metrics.IncrementCounter(telemetry.MetricBudgetRejections, 1)
		return p, errortypes.ValidationError(ErrBudgetExceeded, "token budget exhausted").WithFields(map[string]interface{}{
			"model":           s.model,
			"ceiling":         p.Ceiling,
			"framing_tokens":  framingTokens,
			"response_tokens": responseTokens,
		})
	}

	if !budget.Allocate("framing", framingTokens) || !budget.Allocate("response", responseTokens) || budget.Remaining() < 1 {
		return reject()
	}

	p = s.builder.Fit(p, budget.Remaining(), s.model)
	if !budget.Allocate("prompt", p.Tokens) {
		return reject()
	}

	summary := budget.Summary()
	s.logger.Debug("Token budget allocated",
		"model", s.model,
		"used", summary.Used,
		"total", summary.Total,
		"utilization", summary.UtilizationPercent)
	return p, nil
}

func (s *Service) persist(d *Description) error {
	if s.store == nil {
		return nil
	}
	err := s.store.Save(store.Record{
		ID:           d.ID,
		ManifestPath: d.ManifestPath,
		CrateName:    d.CrateName,
		Model:        d.Model,
		Provider:     d.Provider,
		PromptTokens: d.PromptTokens,
		Description:  d.Text,
		Status:       d.Status(),
		ErrorKind:    d.ErrorKind,
		CreatedAt:    d.GeneratedAt,
	})
	if err != nil {
		errortypes.LogError(s.logger, err)
	}
	return err
}

// DescribeFiles describes each manifest, at most Concurrency at a time, and
// returns the descriptions in input order. A manifest that cannot be
// described yields a failed Description; only cancellation of ctx stops
// the run early.
func (s *Service) DescribeFiles(ctx context.Context, paths []string) ([]*Description, error) {
	results := make([]*Description, len(paths))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.concurrency)

	for i, path := range paths {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			d, err := s.DescribeFile(gctx, path)
			if d == nil {
				d = s.failedDescription(path, err)
			}
			results[i] = d
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return results, err
	}
	return results, ctx.Err()
}

func (s *Service) failedDescription(path string, err error) *Description {
	kind := string(errortypes.TypeOf(err))
	if kind == "" {
		kind = string(errortypes.ErrorTypeInternal)
	}
	return &Description{
		ManifestPath: path,
		Model:        s.model,
		Text:         fmt.Sprintf("Error processing %s: %v", filepath.Base(path), err),
		ErrorKind:    kind,
		Err:          err,
		GeneratedAt:  s.now(),
	}
}

// FindManifests lists the .json and .jsonld files directly inside dir, sorted by name.
func FindManifests(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, errortypes.ValidationError(err, "cannot read manifest directory").WithField("dir", dir)
	}

	var paths []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		switch strings.ToLower(filepath.Ext(e.Name())) {
		case ".json", ".jsonld":
			paths = append(paths, filepath.Join(dir, e.Name()))
		}
	}
	sort.Strings(paths)
	return paths, nil
}

// DescribeDir describes every manifest FindManifests returns for dir.
func (s *Service) DescribeDir(ctx context.Context, dir string) ([]*Description, error) {
	paths, err := FindManifests(dir)
	if err != nil {
		return nil, err
	}
	s.logger.Info("Describing manifests", "dir", dir, "count", len(paths))
	return s.DescribeFiles(ctx, paths)
}

// WriteReports writes the combined report and, when the configuration asks
// for intermediate results, one file per description. It returns the
// written paths.
func (s *Service) WriteReports(ds []*Description) ([]string, error) {
	dir := s.config.Output.Directory
	if dir == "" {
		dir = config.DefaultOutputDirectory
	}

	var written []string
	entries := make([]report.Entry, 0, len(ds))
	for _, d := range ds {
		if d != nil {
			entries = append(entries, d.Entry())
		}
	}

	if s.config.Output.SaveIntermediateResults {
		paths, err := report.WriteDescriptions(dir, entries)
		written = append(written, paths...)
		if err != nil {
			return written, err
		}
	}

	path, err := report.WriteCombined(dir, entries, s.now())
	if err != nil {
		return written, err
	}
	return append(written, path), nil
}

// ValidateFile returns the structural issues of the manifest at path.
// An empty slice means the manifest passed every check.
func (s *Service) ValidateFile(path string) ([]string, error) {
	m, err := s.load(path)
	if err != nil {
		return nil, err
	}
	return m.Validate(), nil
}

// StatsFile analyzes the manifest at path without calling the describer.
func (s *Service) StatsFile(path string) (*CrateStats, error) {
	m, err := s.load(path)
	if err != nil {
		return nil, err
	}
	a := s.analyzer(m)
	return &CrateStats{
		ManifestPath: path,
		Stats:        a.SummaryStats(),
		Narrative:    a.NarrativeText(),
		Issues:       m.Validate(),
	}, nil
}

// CompareFiles compares two manifests. Differences are second minus first.
func (s *Service) CompareFiles(first, second string) (rocrate.Comparison, error) {
	m1, err := s.load(first)
	if err != nil {
		return rocrate.Comparison{}, err
	}
	m2, err := s.load(second)
	if err != nil {
		return rocrate.Comparison{}, err
	}
	return rocrate.Compare(m1, m2), nil
}

// ListDescriptions returns up to limit stored descriptions, newest first.
func (s *Service) ListDescriptions(limit int) ([]store.Record, error) {
	if s.store == nil {
		return nil, errortypes.ConfigError(ErrStoreDisabled, "cannot list descriptions")
	}
	return s.store.List(limit)
}

// Health probes the provider and summarizes call metrics. It is only
// available for LLM-backed describers.
func (s *Service) Health(ctx context.Context) (*describer.HealthReport, error) {
	ai, ok := s.describer.(*describer.AIDescriber)
	if !ok {
		return nil, errortypes.ConfigError(errors.New("describer has no provider"), "health report unavailable")
	}
	return describer.CreateHealthReport(ctx, ai)
}
