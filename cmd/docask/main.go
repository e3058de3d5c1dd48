package main

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"github.com/xxxsen/common/logger"
	"github.com/xxxsen/common/logutil"
	"github.com/xxxsen/common/webapi"
	"go.uber.org/zap"

	"github.com/docask/docask/internal/ai"
	"github.com/docask/docask/internal/answercache"
	"github.com/docask/docask/internal/config"
	"github.com/docask/docask/internal/conversation"
	"github.com/docask/docask/internal/embedcache"
	"github.com/docask/docask/internal/handler"
	"github.com/docask/docask/internal/index"
	"github.com/docask/docask/internal/job"
	"github.com/docask/docask/internal/middleware"
	"github.com/docask/docask/internal/repo"
	"github.com/docask/docask/internal/retry"
	"github.com/docask/docask/internal/schedule"
	"github.com/docask/docask/internal/service"
)

func main() {
	var configPath string

	rootCmd := &cobra.Command{
		Use:   "docask",
		Short: "docask document question answering server",
	}

	runCmd := &cobra.Command{
		Use:   "run",
		Short: "run docask server",
		RunE: func(cmd *cobra.Command, args []string) error {
			if configPath == "" {
				return fmt.Errorf("--config is required")
			}
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}
			logger.Init(
				cfg.LogConfig.File,
				cfg.LogConfig.Level,
				int(cfg.LogConfig.FileCount),
				int(cfg.LogConfig.FileSize),
				int(cfg.LogConfig.KeepDays),
				cfg.LogConfig.Console,
			)
			logutil.GetLogger(context.Background()).Info("config loaded", zap.String("config", configPath))

			db, err := repo.Open(cfg.DBPath)
			if err != nil {
				return fmt.Errorf("open db: %w", err)
			}
			if err := repo.ApplyMigrations(db); err != nil {
				return fmt.Errorf("migrations: %w", err)
			}
			return runServer(cfg, db)
		},
	}

	runCmd.Flags().StringVar(&configPath, "config", "", "path to config.json")
	rootCmd.AddCommand(runCmd)

	if err := rootCmd.Execute(); err != nil {
		logutil.GetLogger(context.Background()).Fatal("startup error", zap.Error(err))
	}
}

func runServer(cfg *config.Config, db *sql.DB) error {
	logutil.GetLogger(context.Background()).Info(
		"starting server",
		zap.Int("port", cfg.Port),
		zap.String("db_path", cfg.DBPath),
		zap.String("index", cfg.Retrieval.Index),
		zap.String("ai_provider", cfg.AI.Provider),
	)

	userRepo := repo.NewUserRepo(db)
	docRepo := repo.NewDocumentRepo(db)
	embeddingRepo := repo.NewEmbeddingRepo(db)
	cacheRepo := repo.NewAnswerCacheRepo(db)

	idx, err := index.New(cfg.Retrieval.Index, cfg.Retrieval.Dimensions)
	if err != nil {
		return fmt.Errorf("init index: %w", err)
	}

	aiProvider, err := ai.NewProvider(cfg.AI.Provider, cfg.AI.Args)
	if err != nil {
		return fmt.Errorf("init ai provider: %w", err)
	}
	manager := ai.NewManager(aiProvider, ai.ManagerConfig{
		Model:         cfg.AI.Model,
		EmbedModel:    cfg.AI.EmbedModel,
		Timeout:       cfg.AI.TimeoutSecs,
		MaxInputChars: cfg.AI.MaxInputChars,
	})
	embedder := embedcache.Wrap(manager,
		cfg.Retrieval.EmbedCacheSize,
		time.Duration(cfg.Retrieval.EmbedCacheTTLSecs)*time.Second,
	)
	retryCfg := retry.Config{
		MaxAttempts: cfg.Retry.MaxAttempts,
		BaseDelay:   time.Duration(cfg.Retry.BaseDelayMs) * time.Millisecond,
		MaxDelay:    time.Duration(cfg.Retry.MaxDelayMs) * time.Millisecond,
		Jitter:      time.Duration(cfg.Retry.JitterMs) * time.Millisecond,
		IsTransient: ai.IsTransient,
	}

	cache := answercache.New(cacheRepo, time.Duration(cfg.Retrieval.CacheTTLSecs)*time.Second)
	tracker := conversation.NewTracker(cfg.Retrieval.ConversationWindow)

	authService := service.NewAuthService(userRepo, []byte(cfg.JWTSecret), time.Hour*time.Duration(cfg.JWTTTLHours))
	libraryService := service.NewLibraryService(db, docRepo, embeddingRepo, idx, cache, manager, embedder, retryCfg)
	askService := service.NewAskService(docRepo, idx, cache, embedder, manager, tracker, retryCfg)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := libraryService.RebuildIndex(ctx); err != nil {
		return fmt.Errorf("rebuild index: %w", err)
	}

	scheduler := schedule.NewCronScheduler()
	if err := scheduler.AddJob(job.NewCacheSweepJob(cache), cfg.Jobs.CacheSweepSpec); err != nil {
		return fmt.Errorf("schedule cache sweep: %w", err)
	}
	scheduler.Start(ctx)
	defer scheduler.Stop()

	deps := handler.RouterDeps{
		Auth:      handler.NewAuthHandler(authService),
		Documents: handler.NewDocumentHandler(libraryService),
		Ask:       handler.NewAskHandler(askService),
		JWTSecret: []byte(cfg.JWTSecret),
		AskWindow: time.Duration(cfg.AskRateLimitMs) * time.Millisecond,
	}

	engine, err := webapi.NewEngine(
		"/api/v1",
		fmt.Sprintf("0.0.0.0:%d", cfg.Port),
		webapi.WithRegister(func(group *gin.RouterGroup) {
			handler.RegisterRoutes(group, deps)
		}),
		webapi.WithExtraMiddlewares(
			middleware.CORS(nil),
			gzip.Gzip(gzip.DefaultCompression),
		),
	)
	if err != nil {
		return fmt.Errorf("init web engine: %w", err)
	}
	logutil.GetLogger(context.Background()).Info("http server listening", zap.String("addr", fmt.Sprintf("0.0.0.0:%d", cfg.Port)))

	go func() {
		if err := engine.Run(); err != nil && err != http.ErrServerClosed {
			logutil.GetLogger(context.Background()).Error("server error", zap.Error(err))
		}
	}()

	<-ctx.Done()
	logutil.GetLogger(context.Background()).Info("server stopping...")
	return nil
}
