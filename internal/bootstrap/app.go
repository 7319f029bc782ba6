package bootstrap

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/gin-gonic/gin"

	"resume-enhancer/internal/enhancements"
	openai "resume-enhancer/internal/llm/openai"
	"resume-enhancer/internal/services/health"
	"resume-enhancer/internal/shared/config"
	"resume-enhancer/internal/shared/server"
	"resume-enhancer/internal/shared/storage/db"
	"resume-enhancer/internal/shared/storage/sqlite"
	"resume-enhancer/internal/shared/telemetry"
)

// App holds shared dependencies.
type App struct {
	Config              config.Config
	Router              *gin.Engine
	DB                  *sql.DB
	EnhancementsRepo    enhancements.Repo
	EnhancementsService *enhancements.Service
	EnhancementsHandler *enhancements.Handler
	Health              *health.Service
}

// Build prepares the store, the upstream client, the service and the router.
func Build(ctx context.Context, cfg config.Config) (*App, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	sqlDB, repo, err := buildRepo(ctx, cfg)
	if err != nil {
		return nil, err
	}

	client := NewLLMClient(cfg)
	svc := &enhancements.Service{
		Repo:       repo,
		LLM:        client,
		JobTimeout: cfg.JobTimeout,
	}

	var pinger health.Pinger
	if sqlDB != nil {
		pinger = sqlDB
	}

	app := &App{
		Config:              cfg,
		DB:                  sqlDB,
		EnhancementsRepo:    repo,
		EnhancementsService: svc,
		EnhancementsHandler: enhancements.NewHandler(svc),
		Health:              health.NewService(cfg.StoreDriver, pinger, strings.TrimSpace(cfg.LLM.APIKey) != ""),
	}
	app.Router = server.NewRouter(server.RouterDeps{
		Config:       cfg,
		Enhancements: app.EnhancementsHandler,
		Health:       app.Health,
	})

	telemetry.Info("bootstrap.ready", map[string]any{
		"env":            cfg.Env,
		"store":          cfg.StoreDriver,
		"llm_model":      client.Model(),
		"llm_configured": app.Health.LLMConfigured,
	})
	return app, nil
}

// Close drains background runs and releases the database.
func (a *App) Close() error {
	if a.EnhancementsService != nil {
		a.EnhancementsService.Wait()
	}
	if a.DB != nil {
		return a.DB.Close()
	}
	return nil
}

// NewLLMClient builds the chat-completions client from configuration.
func NewLLMClient(cfg config.Config) *openai.Client {
	temperature := cfg.LLM.Temperature
	return openai.NewClient(openai.Options{
		APIKey:         cfg.LLM.APIKey,
		URL:            cfg.LLM.BaseURL,
		Model:          cfg.LLM.Model,
		Temperature:    &temperature,
		MaxTokens:      cfg.LLM.MaxTokens,
		Language:       cfg.Language,
		ConnectTimeout: cfg.LLM.ConnectTimeout,
		RequestTimeout: cfg.LLM.RequestTimeout,
		HTTPReferer:    cfg.LLM.HTTPReferer,
		AppTitle:       cfg.LLM.AppTitle,
	})
}

// OpenRepo opens the configured store. The returned *sql.DB is nil for the memory store.
func OpenRepo(ctx context.Context, cfg config.Config) (*sql.DB, enhancements.Repo, error) {
	return buildRepo(ctx, cfg)
}

func buildRepo(ctx context.Context, cfg config.Config) (*sql.DB, enhancements.Repo, error) {
	switch cfg.StoreDriver {
	case config.StorePostgres:
		sqlDB, err := db.Connect(ctx, cfg.DatabaseURL, db.OptionsFromEnv(db.DefaultServerOptions()))
		if err != nil {
			return nil, nil, fmt.Errorf("connect postgres: %w", err)
		}
		if err := db.RunMigrations(ctx, sqlDB); err != nil {
			_ = sqlDB.Close()
			return nil, nil, fmt.Errorf("migrate postgres: %w", err)
		}
		return sqlDB, enhancements.NewPGRepo(sqlDB), nil
	case config.StoreSQLite:
		sqlDB, err := sqlite.Open(ctx, cfg.SQLitePath)
		if err != nil {
			return nil, nil, fmt.Errorf("open sqlite: %w", err)
		}
		return sqlDB, enhancements.NewSQLiteRepo(sqlDB), nil
	case config.StoreMemory, "":
		telemetry.Warn("bootstrap.memory_store", map[string]any{
			"reason": "records are lost on restart",
		})
		return nil, enhancements.NewMemoryRepo(), nil
	default:
		return nil, nil, fmt.Errorf("unknown store driver %q", cfg.StoreDriver)
	}
}
