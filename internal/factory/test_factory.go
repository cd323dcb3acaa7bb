package factory

import (
	"time"

	"github.com/mcoot/wordbomb/internal/dependencies/mocks"
	"github.com/mcoot/wordbomb/internal/services/dictionary"
	"github.com/mcoot/wordbomb/internal/services/session"
	"github.com/mcoot/wordbomb/internal/storage/memory"
	"github.com/mcoot/wordbomb/internal/testutil"
)

// TestApp extends App with test-specific helpers
type TestApp struct {
	*App

	// Mocks for test control
	MockClock  *mocks.MockClock
	MockRandom *mocks.MockRandom
}

// NewTestApp creates an App configured for testing with mocked dependencies.
// The mock clock is not safe for concurrent writes: tests that run the
// coordinator loop must not advance it.
func NewTestApp() *TestApp {
	store := memory.New()
	mockClock := mocks.NewMockClock(time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC))
	mockRandom := mocks.NewMockRandom()

	sessionCfg := session.DefaultConfig()
	sessionCfg.TickInterval = 10 * time.Millisecond

	app := newWithDependencies(store, mockClock, mockRandom, dictionary.SyllableConfig{
		Lengths:        []int{2, 3},
		MinOccurrences: 2,
	}, sessionCfg, testutil.NopLogger())

	return &TestApp{
		App:        app,
		MockClock:  mockClock,
		MockRandom: mockRandom,
	}
}

// LoadTestDictionary loads a small dictionary and pins the prompt table
// to the given syllables, in order
func (t *TestApp) LoadTestDictionary(syllables ...string) error {
	words := []string{
		"arc", "arch", "arm", "army", "art", "card", "cart", "chart", "dark", "darts",
		"farm", "garden", "hard", "harp", "lark", "march", "mark", "park", "part", "party",
		"shark", "smart", "star", "start", "tar", "yard",
		"bent", "cent", "dent", "event", "rent", "sent", "spent", "tent", "went",
		"ink", "link", "mink", "pink", "rink", "sink", "think", "wink",
		"bone", "cone", "done", "gone", "lone", "none", "one", "stone", "tone", "zone",
		"ring", "sing", "string", "thing", "wing", "king", "bring", "spring",
	}
	if err := t.DictionaryService.LoadWords(words); err != nil {
		return err
	}
	if len(syllables) > 0 {
		t.DictionaryService.LoadSyllables(syllables)
	}
	return nil
}
