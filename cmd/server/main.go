package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/fatih/color"
	"go.uber.org/zap"

	"github.com/runcoach-ai/runcoach/internal/api"
	"github.com/runcoach-ai/runcoach/internal/config"
	"github.com/runcoach-ai/runcoach/internal/core"
	"github.com/runcoach-ai/runcoach/internal/logger"
	"github.com/runcoach-ai/runcoach/internal/store"
	"github.com/runcoach-ai/runcoach/internal/tools"
)

func main() {
	config.LoadServerConfig()

	ingest := flag.Bool("ingest", false, "Ingest the knowledge base document into the database and exit")
	flag.Parse()

	log := logger.New(config.AppConfig.LogLevel, config.AppConfig.LogFile)
	defer log.Sync()

	ctx := context.Background()

	dbStore, err := store.NewSQLiteStore(config.AppConfig.DatabaseURL, log)
	if err != nil {
		log.Fatal("failed to initialize database", zap.Error(err))
	}
	defer dbStore.Close()

	llmService, err := core.NewLLMService(ctx, config.AppConfig.GeminiAPIKey, log)
	if err != nil {
		log.Fatal("failed to initialize LLM service", zap.Error(err))
	}
	defer llmService.Close()

	if *ingest {
		if err := runIngest(ctx, dbStore, llmService); err != nil {
			color.Red("❌ Ingestion failed: %v", err)
			os.Exit(1)
		}
		return
	}

	history, closeHistory, err := openHistory(ctx, dbStore, log)
	if err != nil {
		log.Fatal("failed to initialize chat history", zap.Error(err))
	}
	defer closeHistory()

	ragService, err := core.NewRAGService(dbStore, llmService, log)
	if err != nil {
		log.Fatal("failed to initialize RAG service", zap.Error(err))
	}

	registry := tools.NewDefaultRegistry(config.AppConfig.WeatherBaseURL, log)
	coach := core.NewCoachService(llmService, ragService, history, registry, config.AppConfig.HistoryLimit, log)

	apiHandler := api.NewAPIHandler(coach, dbStore, ragService, log)
	router := api.NewRouter(apiHandler)

	serverAddr := fmt.Sprintf(":%s", config.AppConfig.HTTPPort)
	srv := &http.Server{
		Addr:         serverAddr,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 120 * time.Second, // tool rounds add up
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		log.Info("starting server", zap.String("addr", serverAddr),
			zap.String("history", config.AppConfig.HistoryBackend),
			zap.Bool("auth", config.AppConfig.JWTSecret != ""))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("could not listen", zap.String("addr", serverAddr), zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("server forced to shutdown", zap.Error(err))
		return
	}
	log.Info("server exited gracefully")
}

// openHistory picks the conversation history backend. The returned func
// releases whatever the backend holds open.
func openHistory(ctx context.Context, dbStore *store.SQLiteStore, log *zap.Logger) (store.HistoryStore, func(), error) {
	if config.AppConfig.HistoryBackend != "redis" {
		return dbStore, func() {}, nil
	}

	rh, err := store.NewRedisHistory(config.AppConfig.RedisURL, 0)
	if err != nil {
		return nil, nil, err
	}
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := rh.Ping(pingCtx); err != nil {
		rh.Close()
		return nil, nil, fmt.Errorf("redis unreachable at %s: %w", config.AppConfig.RedisURL, err)
	}
	log.Info("using redis chat history")
	return rh, func() {
		if err := rh.Close(); err != nil {
			log.Warn("failed to close redis", zap.Error(err))
		}
	}, nil
}

func runIngest(ctx context.Context, dbStore *store.SQLiteStore, llmService *core.LLMService) error {
	path := config.AppConfig.KnowledgePath
	color.Cyan("📚 Ingesting %s", path)

	content, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read knowledge base: %w", err)
	}

	n, err := dbStore.IngestDocument(ctx, filepath.Base(path), string(content), llmService.GetEmbedding)
	if err != nil {
		return err
	}
	color.Green("✅ Ingested %d chunks", n)
	return nil
}
