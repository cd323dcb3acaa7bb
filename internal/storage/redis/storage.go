package redis

import (
	"context"

	"github.com/redis/go-redis/v9"

	"github.com/mcoot/wordbomb/internal/model"
	"github.com/mcoot/wordbomb/internal/storage"
)

// Storage is a Redis-backed implementation of the storage interface
type Storage struct {
	client *redis.Client
	cfg    Config
}

// New creates a new Redis storage instance
func New(cfg Config) (*Storage, error) {
	opts, err := redis.ParseURL(cfg.URL)
	if err != nil {
		return nil, err
	}

	opts.PoolSize = cfg.PoolSize
	opts.MinIdleConns = cfg.MinIdleConns

	client := redis.NewClient(opts)

	// Verify connection
	ctx, cancel := context.WithTimeout(context.Background(), cfg.DialTimeout)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, err
	}

	return &Storage{
		client: client,
		cfg:    cfg,
	}, nil
}

// NewWithClient creates a Redis storage with an existing client (for testing)
func NewWithClient(client *redis.Client, cfg Config) *Storage {
	return &Storage{
		client: client,
		cfg:    cfg,
	}
}

// Close closes the Redis connection
func (s *Storage) Close() error {
	return s.client.Close()
}

// Ensure Storage implements the interface
var _ storage.Storage = (*Storage)(nil)

// Dictionary operations

func (s *Storage) GetDictionaryWords(ctx context.Context) ([]string, error) {
	key := dictionaryKey()

	exists, err := s.client.Exists(ctx, key).Result()
	if err != nil {
		return nil, err
	}
	if exists == 0 {
		return nil, model.ErrDictionaryNotLoaded
	}

	return s.client.SMembers(ctx, key).Result()
}

func (s *Storage) SaveDictionaryWords(ctx context.Context, words []string) error {
	key := dictionaryKey()

	// Replace the set atomically
	pipe := s.client.TxPipeline()
	pipe.Del(ctx, key)
	if len(words) > 0 {
		pipe.SAdd(ctx, key, toMembers(words)...)
		s.expire(ctx, pipe, key)
	}
	_, err := pipe.Exec(ctx)
	return err
}

// Syllable operations

func (s *Storage) GetSyllables(ctx context.Context) ([]string, error) {
	key := syllablesKey()

	exists, err := s.client.Exists(ctx, key).Result()
	if err != nil {
		return nil, err
	}
	if exists == 0 {
		return nil, model.ErrDictionaryNotLoaded
	}

	return s.client.LRange(ctx, key, 0, -1).Result()
}

func (s *Storage) SaveSyllables(ctx context.Context, syllables []string) error {
	key := syllablesKey()

	pipe := s.client.TxPipeline()
	pipe.Del(ctx, key)
	if len(syllables) > 0 {
		pipe.RPush(ctx, key, toMembers(syllables)...)
		s.expire(ctx, pipe, key)
	}
	_, err := pipe.Exec(ctx)
	return err
}

func (s *Storage) expire(ctx context.Context, pipe redis.Pipeliner, key string) {
	if s.cfg.CorpusTTL > 0 {
		pipe.Expire(ctx, key, s.cfg.CorpusTTL)
	}
}

func toMembers(values []string) []interface{} {
	members := make([]interface{}, len(values))
	for i, v := range values {
		members[i] = v
	}
	return members
}
