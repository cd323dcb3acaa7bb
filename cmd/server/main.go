package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	_ "github.com/joho/godotenv/autoload"

	"github.com/mcoot/wordbomb/internal/api"
	"github.com/mcoot/wordbomb/internal/factory"
	"github.com/mcoot/wordbomb/internal/logging"
	"github.com/mcoot/wordbomb/internal/services/dictionary"
	"github.com/mcoot/wordbomb/internal/services/session"
	redisstorage "github.com/mcoot/wordbomb/internal/storage/redis"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cmd := newCmd(&Config{})
	if err := cmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func serve(ctx context.Context, cfg *Config) error {
	logger, err := logging.New(logging.Options{Level: cfg.logLevel, Format: cfg.logFormat})
	if err != nil {
		return err
	}
	slog.SetDefault(logger)

	sessionCfg := session.DefaultConfig()
	sessionCfg.TickInterval = cfg.tickInterval

	syllableCfg := dictionary.DefaultSyllableConfig()
	syllableCfg.MinOccurrences = cfg.minOccurrences

	factoryCfg := factory.Config{
		DictionaryPath: cfg.dictionary,
		Logger:         logger,
		StorageType:    cfg.storage,
		SyllableConfig: syllableCfg,
		SessionConfig:  sessionCfg,
	}
	if cfg.storage == factory.StorageTypeRedis {
		redisCfg := redisstorage.DefaultConfig()
		redisCfg.URL = cfg.redisURL
		factoryCfg.RedisConfig = &redisCfg
	}

	// Create application factory
	app, err := factory.New(factoryCfg)
	if err != nil {
		return fmt.Errorf("failed to create application: %w", err)
	}
	defer func() {
		if err := app.Close(); err != nil {
			logger.Warn("failed to close application", slog.String("error", err.Error()))
		}
	}()

	if err := app.LoadDictionary(ctx); err != nil {
		return fmt.Errorf("failed to load dictionary: %w", err)
	}
	logger.Info("dictionary loaded",
		slog.Int("words", app.DictionaryService.WordCount()),
		slog.Int("syllables", len(app.DictionaryService.Syllables())))

	loopCtx, cancelLoop := context.WithCancel(context.Background())
	defer cancelLoop()
	go app.Coordinator.Run(loopCtx)

	router := api.NewRouter(api.RouterConfig{
		Logger:  logger,
		Lobbies: app.Coordinator,
		Sockets: app.Sockets,
	})

	serverConfig := api.DefaultServerConfig()
	serverConfig.Host = cfg.bind
	serverConfig.Port = cfg.port
	server := api.NewServer(router, serverConfig, logger)
	server.OnShutdown(app.Hub.Close)
	if err := server.Listen(); err != nil {
		return err
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Serve()
	}()

	logger.Info("server started", slog.String("addr", server.Addr()))

	select {
	case err := <-errCh:
		if err != nil {
			return err
		}
	case <-ctx.Done():
		logger.Info("shutdown signal received")
		if err := server.Shutdown(context.Background()); err != nil {
			return err
		}
	}

	logger.Info("server stopped")
	return nil
}
