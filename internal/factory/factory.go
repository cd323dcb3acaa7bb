package factory

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/mcoot/wordbomb/internal/dependencies/clock"
	"github.com/mcoot/wordbomb/internal/dependencies/random"
	"github.com/mcoot/wordbomb/internal/model"
	"github.com/mcoot/wordbomb/internal/services/dictionary"
	"github.com/mcoot/wordbomb/internal/services/session"
	"github.com/mcoot/wordbomb/internal/storage"
	"github.com/mcoot/wordbomb/internal/storage/memory"
	redisstorage "github.com/mcoot/wordbomb/internal/storage/redis"
	"github.com/mcoot/wordbomb/internal/web/ws"
)

// Storage type constants
const (
	StorageTypeMemory = "memory"
	StorageTypeRedis  = "redis"
)

// App contains all wired application components
type App struct {
	// Storage
	Storage storage.Storage

	// External dependencies
	Clock  clock.Clock
	Random random.Random

	// Services
	DictionaryService *dictionary.Service
	Coordinator       *session.Coordinator

	// Transport
	Hub     *ws.Hub
	Sockets *ws.Server

	dictionaryPath string
}

// Config holds configuration for the application factory
type Config struct {
	// DictionaryPath is the path to the dictionary file (optional)
	// If empty, LoadDictionary reads the corpus already in storage
	DictionaryPath string
	// Logger is the application logger (optional)
	// If nil, a no-op logger is used
	Logger *slog.Logger
	// StorageType selects the storage backend ("memory" or "redis")
	// If empty, defaults to "memory"
	StorageType string
	// RedisConfig holds Redis connection settings (required if StorageType is "redis")
	RedisConfig *redisstorage.Config
	// SyllableConfig tunes prompt extraction (optional)
	// If zero value, defaults to dictionary.DefaultSyllableConfig()
	SyllableConfig dictionary.SyllableConfig
	// SessionConfig holds coordinator timings and limits (optional)
	// If zero value, defaults to session.DefaultConfig()
	SessionConfig session.Config
}

// New creates a new application with all dependencies wired
func New(cfg Config) (*App, error) {
	// Use no-op logger if not provided
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}

	// Create storage based on type
	var store storage.Storage
	storageType := cfg.StorageType
	if storageType == "" {
		storageType = StorageTypeMemory
	}

	switch storageType {
	case StorageTypeMemory:
		store = memory.New()
	case StorageTypeRedis:
		if cfg.RedisConfig == nil {
			return nil, errors.New("RedisConfig required when StorageType is redis")
		}
		redisStore, err := redisstorage.New(*cfg.RedisConfig)
		if err != nil {
			return nil, err
		}
		store = redisStore
	default:
		return nil, errors.New("invalid StorageType: must be 'memory' or 'redis'")
	}

	app := newWithDependencies(store, clock.New(), random.New(), cfg.SyllableConfig, cfg.SessionConfig, logger)
	app.dictionaryPath = cfg.DictionaryPath
	return app, nil
}

// newWithDependencies creates an App with the given dependencies (useful for testing)
func newWithDependencies(
	store storage.Storage,
	clk clock.Clock,
	rnd random.Random,
	syllableCfg dictionary.SyllableConfig,
	sessionCfg session.Config,
	logger *slog.Logger,
) *App {
	if len(syllableCfg.Lengths) == 0 {
		syllableCfg = dictionary.DefaultSyllableConfig()
	}
	if sessionCfg.TickInterval == 0 {
		sessionCfg = session.DefaultConfig()
	}

	dictService := dictionary.New(store, rnd, syllableCfg, logger)
	hub := ws.NewHub(logger)
	coordinator := session.New(sessionCfg, clk, rnd, dictService, hub, logger)
	sockets := ws.NewServer(hub, coordinator, logger)

	return &App{
		Storage:           store,
		Clock:             clk,
		Random:            rnd,
		DictionaryService: dictService,
		Coordinator:       coordinator,
		Hub:               hub,
		Sockets:           sockets,
	}
}

// LoadDictionary loads the corpus from the configured file, or from
// storage when no file was configured
func (a *App) LoadDictionary(ctx context.Context) error {
	var err error
	if a.dictionaryPath != "" {
		err = a.DictionaryService.LoadFromFile(ctx, a.dictionaryPath)
	} else {
		err = a.DictionaryService.LoadFromStorage(ctx)
	}
	if err != nil {
		return err
	}
	if !a.DictionaryService.HasSyllables() {
		return fmt.Errorf("%w: no substring reaches the minimum word count", model.ErrNoSyllables)
	}
	return nil
}

// Close releases the storage backend, if it holds resources
func (a *App) Close() error {
	a.Hub.Close()
	if closer, ok := a.Storage.(io.Closer); ok {
		return closer.Close()
	}
	return nil
}
