package memory

import (
	"context"
	"sync"

	"github.com/mcoot/wordbomb/internal/model"
	"github.com/mcoot/wordbomb/internal/storage"
)

// Storage is an in-memory implementation of the storage interface
type Storage struct {
	mu sync.RWMutex

	dictionaryWords []string
	syllables       []string
}

// New creates a new in-memory storage instance
func New() *Storage {
	return &Storage{}
}

// Ensure Storage implements the interface
var _ storage.Storage = (*Storage)(nil)

// Dictionary operations

func (s *Storage) GetDictionaryWords(ctx context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.dictionaryWords == nil {
		return nil, model.ErrDictionaryNotLoaded
	}
	return copyStrings(s.dictionaryWords), nil
}

func (s *Storage) SaveDictionaryWords(ctx context.Context, words []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.dictionaryWords = copyStrings(words)
	return nil
}

// Syllable operations

func (s *Storage) GetSyllables(ctx context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.syllables == nil {
		return nil, model.ErrDictionaryNotLoaded
	}
	return copyStrings(s.syllables), nil
}

func (s *Storage) SaveSyllables(ctx context.Context, syllables []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.syllables = copyStrings(syllables)
	return nil
}

func copyStrings(in []string) []string {
	out := make([]string, len(in))
	copy(out, in)
	return out
}
