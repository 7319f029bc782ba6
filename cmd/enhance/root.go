package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"resume-enhancer/internal/bootstrap"
	"resume-enhancer/internal/enhancements"
	"resume-enhancer/internal/shared/config"
	"resume-enhancer/internal/shared/telemetry"
)

var (
	envFile  string
	logLevel string

	rootCmd = &cobra.Command{
		Use:          "enhance",
		Short:        "Enhance resumes from the command line using the configured store and model",
		SilenceUsage: true,
	}
)

func init() {
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", ".env", "env file with configuration overrides")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level (default from LOG_LEVEL)")
	rootCmd.AddCommand(runCmd, getCmd, listCmd)
}

// loadService builds the service against the configured store.
func loadService(ctx context.Context) (*enhancements.Service, func(), error) {
	cfg, err := config.LoadFrom(envFile)
	if err != nil {
		return nil, nil, err
	}
	level := cfg.LogLevel
	if logLevel != "" {
		level = logLevel
	}
	if err := telemetry.Init(level, "console"); err != nil {
		return nil, nil, err
	}

	sqlDB, repo, err := bootstrap.OpenRepo(ctx, cfg)
	if err != nil {
		return nil, nil, err
	}
	svc := &enhancements.Service{
		Repo:       repo,
		LLM:        bootstrap.NewLLMClient(cfg),
		JobTimeout: cfg.JobTimeout,
	}
	cleanup := func() {
		svc.Wait()
		if sqlDB != nil {
			_ = sqlDB.Close()
		}
		telemetry.Sync()
	}
	return svc, cleanup, nil
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("encode output: %w", err)
	}
	return nil
}
