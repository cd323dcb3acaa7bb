package main

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/mcoot/wordbomb/internal/factory"
	"github.com/mcoot/wordbomb/internal/logging"
)

// Config holds the server's command line and environment settings
type Config struct {
	bind           string
	port           int
	dictionary     string
	storage        string
	redisURL       string
	logLevel       string
	logFormat      string
	tickInterval   time.Duration
	minOccurrences int
}

func (c *Config) validate() error {
	if c.port < 1 || c.port > 65535 {
		return fmt.Errorf("invalid port (must be between 1-65535 inclusive): %d", c.port)
	}
	switch c.storage {
	case factory.StorageTypeMemory:
	case factory.StorageTypeRedis:
		if c.redisURL == "" {
			return errors.New("--redis-url is required when --storage=redis")
		}
	default:
		return fmt.Errorf("invalid storage type %q (valid: memory, redis)", c.storage)
	}
	if c.tickInterval <= 0 {
		return fmt.Errorf("invalid tick interval: %s", c.tickInterval)
	}
	if c.minOccurrences < 1 {
		return fmt.Errorf("invalid minimum syllable occurrences: %d", c.minOccurrences)
	}
	return logging.Validate(c.logLevel)
}

func newCmd(cfg *Config) *cobra.Command {
	v := viper.New()
	v.SetEnvPrefix("WORDBOMB")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	cmd := &cobra.Command{
		Use:   "server",
		Short: "Real-time word bomb game server",
		Args:  cobra.ExactArgs(0),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := cfg.validate(); err != nil {
				return err
			}
			return serve(cmd.Context(), cfg)
		},
	}

	fs := cmd.Flags()

	fs.SetNormalizeFunc(func(_ *pflag.FlagSet, name string) pflag.NormalizedName {
		return pflag.NormalizedName(strings.ReplaceAll(name, "_", "-"))
	})

	fs.StringVarP(&cfg.bind, "bind", "b", "", "address to bind to (env: WORDBOMB_BIND)")
	fs.IntVarP(&cfg.port, "port", "p", 8080, "port to listen on (env: WORDBOMB_PORT)")
	fs.StringVar(&cfg.dictionary, "dictionary", "data/words.txt", "word list, one word per line; empty reads the stored corpus (env: WORDBOMB_DICTIONARY)")
	fs.StringVar(&cfg.storage, "storage", factory.StorageTypeMemory, "corpus storage backend: memory or redis (env: WORDBOMB_STORAGE)")
	fs.StringVar(&cfg.redisURL, "redis-url", "", "redis connection URL (env: WORDBOMB_REDIS_URL)")
	fs.StringVar(&cfg.logLevel, "log-level", "info", "log level: debug, info, warn, error (env: WORDBOMB_LOG_LEVEL)")
	fs.StringVar(&cfg.logFormat, "log-format", "json", "log format: json or text (env: WORDBOMB_LOG_FORMAT)")
	fs.DurationVar(&cfg.tickInterval, "tick-interval", 100*time.Millisecond, "game loop tick interval (env: WORDBOMB_TICK_INTERVAL)")
	fs.IntVar(&cfg.minOccurrences, "min-syllable-words", 25, "fewest words a prompt syllable must appear in (env: WORDBOMB_MIN_SYLLABLE_WORDS)")

	fs.VisitAll(func(f *pflag.Flag) {
		_ = v.BindPFlag(f.Name, f)
		_ = v.BindEnv(f.Name)
		if !f.Changed && v.IsSet(f.Name) {
			_ = fs.Set(f.Name, fmt.Sprintf("%v", v.Get(f.Name)))
		}
	})

	cmd.CompletionOptions.HiddenDefaultCmd = true
	cmd.SetHelpCommand(&cobra.Command{Hidden: true})

	cmd.SilenceErrors = true
	cmd.SilenceUsage = true

	return cmd
}
