package storage

import "context"

// Storage persists the word corpus. Game state is never stored here.
type Storage interface {
	// Dictionary operations
	GetDictionaryWords(ctx context.Context) ([]string, error)
	SaveDictionaryWords(ctx context.Context, words []string) error

	// Syllable operations; order is significant
	GetSyllables(ctx context.Context) ([]string, error)
	SaveSyllables(ctx context.Context, syllables []string) error
}
