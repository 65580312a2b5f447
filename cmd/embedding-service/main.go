package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/nidhogg/embedding-service/internal/api"
	"github.com/nidhogg/embedding-service/internal/config"
	"github.com/nidhogg/embedding-service/internal/embedding"
	"github.com/nidhogg/embedding-service/internal/metrics"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func main() {
	envFile := os.Getenv("ENV_FILE")
	if envFile == "" {
		envFile = ".env"
	}
	envErr := godotenv.Load(envFile)

	cfg, err := config.Load(os.Getenv("CONFIG_PATH"))
	if err != nil {
		bootLogger, _ := zap.NewProduction()
		bootLogger.Fatal("failed to load config", zap.Error(err))
	}

	logger, err := newLogger(cfg.Server)
	if err != nil {
		panic(err)
	}
	defer logger.Sync()

	if envErr != nil {
		logger.Warn("env file not loaded, using process environment", zap.String("path", envFile))
	} else {
		logger.Info("env file loaded", zap.String("path", envFile))
	}

	logger.Info("Starting embedding service...",
		zap.String("provider", cfg.Embedding.Provider),
		zap.String("model", cfg.Embedding.Model),
		zap.Int("dimension", cfg.Embedding.Dimension),
		zap.String("addr", cfg.Server.Addr()),
		zap.Bool("debug", cfg.Server.Debug),
	)
	if cfg.Embedding.APIKey != "" {
		logger.Info("API key configured", zap.String("key", cfg.Embedding.MaskedKey()))
	} else {
		logger.Warn("EMBEDDING_API_KEY is not set, embed requests will fail")
	}

	m := metrics.New(true)
	provider := embedding.NewAPIProvider(cfg.Embedding.ProviderConfig(), logger.Named("upstream"), embedding.WithObserver(m))
	handler := api.NewHandler(provider, cfg.Embedding.Provider, m, logger.Named("http"))

	srv := &http.Server{
		Addr:              cfg.Server.Addr(),
		Handler:           handler.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("embedding service listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("server error", zap.Error(err))
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down embedding service...")
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout(cfg.Embedding))
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("graceful shutdown failed", zap.Error(err))
	}
}

// shutdownTimeout leaves in-flight upstream calls their full timeout.
func shutdownTimeout(cfg config.EmbeddingConfig) time.Duration {
	timeout := time.Duration(cfg.Timeout)
	if timeout <= 0 {
		timeout = embedding.DefaultTimeout
	}
	return timeout + 5*time.Second
}

func newLogger(cfg config.ServerConfig) (*zap.Logger, error) {
	zcfg := zap.NewProductionConfig()
	if cfg.Debug {
		zcfg = zap.NewDevelopmentConfig()
	}
	if cfg.LogLevel != "" {
		level, err := zapcore.ParseLevel(cfg.LogLevel)
		if err != nil {
			return nil, err
		}
		if cfg.Debug && level > zapcore.DebugLevel {
			level = zapcore.DebugLevel
		}
		zcfg.Level = zap.NewAtomicLevelAt(level)
	}
	return zcfg.Build()
}
