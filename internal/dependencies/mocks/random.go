package mocks

import (
	"sync"

	"github.com/mcoot/wordbomb/internal/dependencies/random"
)

// MockRandom replays queued results. Lobby codes come from String and
// syllable and bot word picks come from Intn. An empty queue yields the zero
// value, so unscripted picks take the first candidate.
type MockRandom struct {
	mu      sync.Mutex
	ints    []int
	strings []string
}

var _ random.Random = (*MockRandom)(nil)

func NewMockRandom() *MockRandom {
	return &MockRandom{}
}

// Intn returns the next queued int clamped into [0, n)
func (r *MockRandom) Intn(n int) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.ints) == 0 || n <= 0 {
		return 0
	}
	v := r.ints[0]
	r.ints = r.ints[1:]
	return ((v % n) + n) % n
}

// String returns the next queued string, ignoring length and alphabet
func (r *MockRandom) String(length int, alphabet string) string {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.strings) == 0 {
		return ""
	}
	v := r.strings[0]
	r.strings = r.strings[1:]
	return v
}

func (r *MockRandom) QueueIntn(values ...int) {
	r.mu.Lock()
	r.ints = append(r.ints, values...)
	r.mu.Unlock()
}

// QueueString queues lobby codes or other generated strings
func (r *MockRandom) QueueString(values ...string) {
	r.mu.Lock()
	r.strings = append(r.strings, values...)
	r.mu.Unlock()
}

// Reset drops anything still queued
func (r *MockRandom) Reset() {
	r.mu.Lock()
	r.ints = nil
	r.strings = nil
	r.mu.Unlock()
}
