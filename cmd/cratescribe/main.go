package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/localrivet/cratescribe"
	"github.com/localrivet/cratescribe/internal/config"
	"github.com/localrivet/cratescribe/internal/errortypes"
	"github.com/localrivet/cratescribe/internal/logger"
	"github.com/localrivet/cratescribe/internal/server"
)

var errNoManifests = errors.New("no manifests given")

type options struct {
	configPath string
	model      string
	outDir     string
	mcp        bool
	validate   bool
	paths      []string
}

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	opts, err := parseFlags(args)
	if err != nil {
		return logger.ExitValidation
	}

	// A missing .env is not an error.
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		fmt.Fprintf(os.Stderr, "cratescribe: reading .env: %v\n", err)
	}

	cfg, err := config.LoadConfigWithPath(opts.configPath)
	if err != nil {
		logger.LogError(err)
		return logger.ExitCode(err)
	}
	applyOverrides(cfg, opts)

	appLogger := logger.NewFromSettings(cfg.Logging.Level, cfg.Logging.Format, os.Stderr)
	logger.SetDefaultLogger(appLogger)
	appLogger.Debug("Configuration loaded from %s", cfg.GetConfigPath())

	svc, err := cratescribe.NewService(cratescribe.ServiceOptions{
		Config: cfg,
		Logger: appLogger.WithContext("service").Slog(),
	})
	if err != nil {
		logger.LogError(err)
		return logger.ExitCode(err)
	}
	defer svc.Close()

	if opts.mcp {
		return serve(svc, appLogger)
	}

	paths, err := collectManifests(opts.paths)
	if err != nil {
		logger.LogError(err)
		return logger.ExitCode(err)
	}

	if opts.validate {
		return validate(svc, paths)
	}
	return describe(svc, paths, appLogger)
}

func parseFlags(args []string) (options, error) {
	var opts options
	fs := flag.NewFlagSet("cratescribe", flag.ContinueOnError)
	fs.Usage = func() {
		fmt.Fprintln(fs.Output(), "Usage: cratescribe [flags] <manifest-or-dir>...")
		fs.PrintDefaults()
		fmt.Fprintf(fs.Output(), "\nProviders (describer.provider): %s\n", strings.Join(cratescribe.ProviderNames(), ", "))
	}
	fs.StringVar(&opts.configPath, "config", config.DefaultConfigFilename, "path to the configuration file")
	fs.StringVar(&opts.model, "model", "", "model identifier, overrides describer.model_id")
	fs.StringVar(&opts.outDir, "out", "", "output directory, overrides output.directory")
	fs.BoolVar(&opts.mcp, "mcp", false, "serve the crate tools over MCP stdio")
	fs.BoolVar(&opts.validate, "validate", false, "only check manifest structure")

	if err := fs.Parse(args); err != nil {
		return opts, err
	}
	opts.paths = fs.Args()
	if !opts.mcp && len(opts.paths) == 0 {
		fs.Usage()
		return opts, errNoManifests
	}
	return opts, nil
}

func applyOverrides(cfg *config.Config, opts options) {
	if opts.model != "" {
		cfg.Describer.ModelID = opts.model
	}
	if opts.outDir != "" {
		cfg.Output.Directory = opts.outDir
	}
}

// collectManifests expands directories into the manifests they contain.
func collectManifests(args []string) ([]string, error) {
	var paths []string
	for _, arg := range args {
		info, err := os.Stat(arg)
		if err != nil {
			return nil, errortypes.ValidationError(err, "cannot read manifest path").WithField("path", arg)
		}
		if !info.IsDir() {
			paths = append(paths, arg)
			continue
		}
		found, err := cratescribe.FindManifests(arg)
		if err != nil {
			return nil, err
		}
		paths = append(paths, found...)
	}
	if len(paths) == 0 {
		return nil, errortypes.ValidationError(errNoManifests, "nothing to describe")
	}
	return paths, nil
}

func validate(svc *cratescribe.Service, paths []string) int {
	code := logger.ExitOK
	for _, path := range paths {
		issues, err := svc.ValidateFile(path)
		if err != nil {
			logger.LogError(err)
			code = logger.ExitCode(err)
			continue
		}
		if len(issues) == 0 {
			fmt.Printf("%s: valid\n", path)
			continue
		}
		fmt.Printf("%s: %d issue(s)\n", path, len(issues))
		for _, issue := range issues {
			fmt.Printf("  - %s\n", issue)
		}
		code = logger.ExitValidation
	}
	return code
}

func describe(svc *cratescribe.Service, paths []string, log *logger.Logger) int {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	log.Info("Describing %d manifest(s) with %s", len(paths), svc.Model())
	ds, err := svc.DescribeFiles(ctx, paths)
	if err != nil {
		logger.LogError(errortypes.InternalError(err, "describe interrupted"))
		return logger.ExitFailure
	}

	written, err := svc.WriteReports(ds)
	if err != nil {
		logger.LogError(err)
		return logger.ExitCode(err)
	}

	failed, unsaved := 0, 0
	var storeErr error
	for _, d := range ds {
		fmt.Printf("== %s (%s)\n%s\n\n", d.ManifestPath, d.Status(), d.Text)
		switch {
		case !d.OK:
			failed++
		case d.Err != nil:
			unsaved++
			storeErr = d.Err
		}
	}
	for _, path := range written {
		log.Info("Wrote %s", path)
	}

	switch {
	case failed > 0:
		log.Warn("%d of %d manifest(s) failed", failed, len(ds))
		return logger.ExitFailure
	case unsaved > 0:
		log.Warn("%d of %d description(s) were not stored", unsaved, len(ds))
		return logger.ExitCode(storeErr)
	}
	return logger.ExitOK
}

func serve(svc *cratescribe.Service, appLogger *logger.Logger) int {
	srvLogger := appLogger.WithContext("server")
	srv := server.NewCrateToolServer(svc, srvLogger.Slog())

	if err := srv.Initialize(); err != nil {
		logger.LogError(err)
		return logger.ExitCode(err)
	}

	setupSignalHandler(srv, svc, appLogger)

	srvLogger.Info("Starting MCP server...")
	if err := srv.Start(); err != nil {
		err = errortypes.APIError(err, "MCP server failed")
		logger.LogError(err)
		return logger.ExitCode(err)
	}
	return logger.ExitOK
}

// setupSignalHandler stops the server and closes the store on SIGINT or SIGTERM.
func setupSignalHandler(srv server.ToolServer, svc *cratescribe.Service, log *logger.Logger) {
	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)

	go func() {
		<-c
		log.Info("Received shutdown signal, terminating gracefully...")

		if err := srv.Stop(); err != nil {
			logger.LogError(err)
		}
		if err := svc.Close(); err != nil {
			logger.LogError(errortypes.DatabaseError(err, "error closing store during shutdown"))
		} else {
			log.Info("Store closed")
		}

		log.Info("Shutdown complete")
		os.Exit(logger.ExitOK)
	}()
}
