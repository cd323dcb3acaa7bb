package redis

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/suite"

	"github.com/mcoot/wordbomb/internal/model"
)

type StorageSuite struct {
	suite.Suite
	mini    *miniredis.Miniredis
	storage *Storage
	ctx     context.Context
}

func TestStorageSuite(t *testing.T) {
	suite.Run(t, new(StorageSuite))
}

func (s *StorageSuite) SetupTest() {
	s.mini = miniredis.RunT(s.T())

	client := redis.NewClient(&redis.Options{
		Addr: s.mini.Addr(),
	})

	s.storage = NewWithClient(client, DefaultConfig())
	s.ctx = context.Background()
}

func (s *StorageSuite) TearDownTest() {
	if s.storage != nil {
		_ = s.storage.Close()
	}
	if s.mini != nil {
		s.mini.Close()
	}
}

// Dictionary tests

func (s *StorageSuite) TestSaveAndGetDictionaryWords() {
	words := []string{"apple", "banana", "cherry"}

	err := s.storage.SaveDictionaryWords(s.ctx, words)
	s.Require().NoError(err)

	retrieved, err := s.storage.GetDictionaryWords(s.ctx)
	s.Require().NoError(err)
	s.ElementsMatch(words, retrieved) // Order may differ (SET)
}

func (s *StorageSuite) TestGetDictionaryWordsNotLoaded() {
	_, err := s.storage.GetDictionaryWords(s.ctx)
	s.ErrorIs(err, model.ErrDictionaryNotLoaded)
}

func (s *StorageSuite) TestSaveDictionaryWordsReplacesExisting() {
	_ = s.storage.SaveDictionaryWords(s.ctx, []string{"apple", "banana"})
	_ = s.storage.SaveDictionaryWords(s.ctx, []string{"cherry", "date"})

	retrieved, err := s.storage.GetDictionaryWords(s.ctx)
	s.Require().NoError(err)
	s.ElementsMatch([]string{"cherry", "date"}, retrieved)
}

func (s *StorageSuite) TestDictionaryNoTTLByDefault() {
	_ = s.storage.SaveDictionaryWords(s.ctx, []string{"apple"})

	s.Equal(time.Duration(0), s.mini.TTL(dictionaryKey()))
}

func (s *StorageSuite) TestCorpusTTLApplied() {
	cfg := DefaultConfig()
	cfg.CorpusTTL = time.Hour
	client := redis.NewClient(&redis.Options{Addr: s.mini.Addr()})
	store := NewWithClient(client, cfg)
	defer func() { _ = store.Close() }()

	_ = store.SaveDictionaryWords(s.ctx, []string{"apple"})
	_ = store.SaveSyllables(s.ctx, []string{"ap"})

	s.Equal(time.Hour, s.mini.TTL(dictionaryKey()))
	s.Equal(time.Hour, s.mini.TTL(syllablesKey()))
}

// Syllable tests

func (s *StorageSuite) TestSaveAndGetSyllablesKeepsOrder() {
	syllables := []string{"in", "er", "ing", "at"}

	err := s.storage.SaveSyllables(s.ctx, syllables)
	s.Require().NoError(err)

	retrieved, err := s.storage.GetSyllables(s.ctx)
	s.Require().NoError(err)
	s.Equal(syllables, retrieved)
}

func (s *StorageSuite) TestSaveSyllablesReplacesExisting() {
	_ = s.storage.SaveSyllables(s.ctx, []string{"in", "er"})
	_ = s.storage.SaveSyllables(s.ctx, []string{"at"})

	retrieved, err := s.storage.GetSyllables(s.ctx)
	s.Require().NoError(err)
	s.Equal([]string{"at"}, retrieved)
}

func (s *StorageSuite) TestGetSyllablesNotLoaded() {
	_, err := s.storage.GetSyllables(s.ctx)
	s.ErrorIs(err, model.ErrDictionaryNotLoaded)
}

func (s *StorageSuite) TestNewRejectsBadURL() {
	cfg := DefaultConfig()
	cfg.URL = "not a url"
	_, err := New(cfg)
	s.Error(err)
}

func (s *StorageSuite) TestNewConnects() {
	cfg := DefaultConfig()
	cfg.URL = "redis://" + s.mini.Addr()
	store, err := New(cfg)
	s.Require().NoError(err)
	s.NoError(store.Close())
}
