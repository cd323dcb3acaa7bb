package dictionary

import (
	"bufio"
	"context"
	"errors"
	"log/slog"
	"os"
	"sort"
	"strings"
	"sync"
	"unicode"

	"github.com/mcoot/wordbomb/internal/dependencies/random"
	"github.com/mcoot/wordbomb/internal/model"
	"github.com/mcoot/wordbomb/internal/storage"
)

// SyllableConfig tunes which substrings become turn prompts
type SyllableConfig struct {
	// Lengths are the substring lengths considered
	Lengths []int
	// MinOccurrences is the fewest distinct words a syllable must appear in
	MinOccurrences int
	// MaxOccurrences caps how common a syllable may be; zero disables the cap
	MaxOccurrences int
	// SliceSize keeps only the most frequent N syllables; zero keeps all
	SliceSize int
}

// DefaultSyllableConfig returns thresholds suited to a full English word list
func DefaultSyllableConfig() SyllableConfig {
	return SyllableConfig{
		Lengths:        []int{2, 3},
		MinOccurrences: 25,
		MaxOccurrences: 0,
		SliceSize:      600,
	}
}

// Service is the word oracle: an immutable dictionary plus syllable table
type Service struct {
	storage storage.Storage
	random  random.Random
	cfg     SyllableConfig
	logger  *slog.Logger

	mu        sync.RWMutex
	words     map[string]struct{}
	syllables []string
	loaded    bool
}

// New creates a new dictionary Service
func New(storage storage.Storage, rnd random.Random, cfg SyllableConfig, logger *slog.Logger) *Service {
	return &Service{
		storage: storage,
		random:  rnd,
		cfg:     cfg,
		logger:  logger.With(slog.String("component", "dictionary")),
		words:   make(map[string]struct{}),
	}
}

// LoadFromStorage loads dictionary words and syllables from storage.
// Syllables are rebuilt when storage holds none.
func (s *Service) LoadFromStorage(ctx context.Context) error {
	words, err := s.storage.GetDictionaryWords(ctx)
	if err != nil {
		return err
	}

	syllables, err := s.storage.GetSyllables(ctx)
	if errors.Is(err, model.ErrDictionaryNotLoaded) {
		syllables = ExtractSyllables(normalizeAll(words), s.cfg)
		if err := s.storage.SaveSyllables(ctx, syllables); err != nil {
			return err
		}
	} else if err != nil {
		return err
	}

	s.install(normalizeAll(words), syllables)
	return nil
}

// LoadFromFile loads dictionary words from a file (one word per line)
// and saves the words and derived syllables to storage
func (s *Service) LoadFromFile(ctx context.Context, path string) error {
	file, err := os.Open(path)
	if err != nil {
		return err
	}
	defer file.Close()

	var words []string
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		word := strings.TrimSpace(scanner.Text())
		if word != "" {
			words = append(words, word)
		}
	}
	if err := scanner.Err(); err != nil {
		return err
	}

	words = normalizeAll(words)
	syllables := ExtractSyllables(words, s.cfg)

	if err := s.storage.SaveDictionaryWords(ctx, words); err != nil {
		return err
	}
	if err := s.storage.SaveSyllables(ctx, syllables); err != nil {
		return err
	}

	s.install(words, syllables)
	return nil
}

// LoadWords directly loads a slice of words (useful for testing)
func (s *Service) LoadWords(words []string) error {
	words = normalizeAll(words)
	s.install(words, ExtractSyllables(words, s.cfg))
	return nil
}

// LoadSyllables replaces the syllable table without touching the words
func (s *Service) LoadSyllables(syllables []string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.syllables = normalizeAll(syllables)
}

func (s *Service) install(words, syllables []string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.words = make(map[string]struct{}, len(words))
	for _, word := range words {
		s.words[word] = struct{}{}
	}
	s.syllables = syllables
	s.loaded = true

	s.logger.Info("dictionary loaded",
		slog.Int("words", len(s.words)),
		slog.Int("syllables", len(s.syllables)))
}

// IsWord checks if a word exists in the dictionary, ignoring case
func (s *Service) IsWord(word string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if !s.loaded {
		return false
	}

	_, ok := s.words[strings.ToLower(strings.TrimSpace(word))]
	return ok
}

// RandomSyllable draws a syllable uniformly from the table, or "" if empty
func (s *Service) RandomSyllable() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return random.Pick(s.random, s.syllables)
}

// HasSyllables reports whether there is at least one prompt to draw
func (s *Service) HasSyllables() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.syllables) > 0
}

// IsLoaded returns whether the dictionary has been loaded
func (s *Service) IsLoaded() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.loaded
}

// WordCount returns the number of words in the dictionary
func (s *Service) WordCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.words)
}

// WordsContaining returns the dictionary words containing syllable, sorted
func (s *Service) WordsContaining(syllable string) []string {
	syllable = strings.ToLower(strings.TrimSpace(syllable))
	if syllable == "" {
		return nil
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []string
	for word := range s.words {
		if strings.Contains(word, syllable) {
			out = append(out, word)
		}
	}
	sort.Strings(out)
	return out
}

// Syllables returns a copy of the syllable table
func (s *Service) Syllables() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]string, len(s.syllables))
	copy(out, s.syllables)
	return out
}

// ExtractSyllables counts, for every letters-only substring of the configured
// lengths, how many distinct words contain it. Syllables inside the occurrence
// window are ordered by count descending then alphabetically, and the first
// SliceSize are kept.
func ExtractSyllables(words []string, cfg SyllableConfig) []string {
	counts := make(map[string]int)
	for _, word := range words {
		seen := make(map[string]struct{})
		runes := []rune(word)
		for _, n := range cfg.Lengths {
			for i := 0; i+n <= len(runes); i++ {
				sub := string(runes[i : i+n])
				if !isLetters(sub) {
					continue
				}
				if _, ok := seen[sub]; ok {
					continue
				}
				seen[sub] = struct{}{}
				counts[sub]++
			}
		}
	}

	var result []string
	for sub, count := range counts {
		if count < cfg.MinOccurrences {
			continue
		}
		if cfg.MaxOccurrences > 0 && count > cfg.MaxOccurrences {
			continue
		}
		result = append(result, sub)
	}

	sort.Slice(result, func(i, j int) bool {
		ci, cj := counts[result[i]], counts[result[j]]
		if ci != cj {
			return ci > cj
		}
		return result[i] < result[j]
	})

	if cfg.SliceSize > 0 && len(result) > cfg.SliceSize {
		result = result[:cfg.SliceSize]
	}
	return result
}

func normalizeAll(words []string) []string {
	out := make([]string, 0, len(words))
	for _, w := range words {
		w = strings.ToLower(strings.TrimSpace(w))
		if w != "" {
			out = append(out, w)
		}
	}
	return out
}

func isLetters(s string) bool {
	for _, r := range s {
		if !unicode.IsLetter(r) {
			return false
		}
	}
	return true
}

// Oracle is the read side of the dictionary used during play
type Oracle interface {
	IsWord(word string) bool
	RandomSyllable() string
	HasSyllables() bool
}

var _ Oracle = (*Service)(nil)
