package ratelimit

import (
	"sync"
	"time"

	"github.com/mcoot/wordbomb/internal/dependencies/clock"
	"github.com/mcoot/wordbomb/internal/model"
)

// Kind is the category of event being limited
type Kind string

const (
	KindCreate Kind = model.EventLobbyCreate
	KindJoin   Kind = model.EventLobbyJoin
	KindTyping Kind = model.EventGameTyping
	KindSubmit Kind = model.EventGameSubmit
)

// Rule caps attempts of one kind within a trailing window
type Rule struct {
	Limit  int
	Window time.Duration
}

// Rules maps each limited kind to its rule. Kinds without a rule are never limited.
type Rules map[Kind]Rule

// DefaultRules returns the production limits
func DefaultRules() Rules {
	return Rules{
		KindCreate: {Limit: 3, Window: 60 * time.Second},
		KindJoin:   {Limit: 10, Window: 30 * time.Second},
		KindTyping: {Limit: 20, Window: time.Second},
		KindSubmit: {Limit: 5, Window: 2 * time.Second},
	}
}

type key struct {
	conn model.ConnID
	kind Kind
}

// Limiter is a sliding-window counter per connection and event kind
type Limiter struct {
	clock clock.Clock
	rules Rules

	mu   sync.Mutex
	hits map[key][]time.Time
}

// New creates a Limiter
func New(clk clock.Clock, rules Rules) *Limiter {
	return &Limiter{
		clock: clk,
		rules: rules,
		hits:  make(map[key][]time.Time),
	}
}

// Allow records an attempt and reports whether it is within the limit.
// A rejected attempt leaves no trace.
func (l *Limiter) Allow(conn model.ConnID, kind Kind) bool {
	rule, ok := l.rules[kind]
	if !ok || rule.Limit <= 0 {
		return true
	}

	now := l.clock.Now()
	k := key{conn, kind}

	l.mu.Lock()
	defer l.mu.Unlock()

	recent := trim(l.hits[k], now.Add(-rule.Window))
	if len(recent) >= rule.Limit {
		l.hits[k] = recent
		return false
	}
	l.hits[k] = append(recent, now)
	return true
}

// Sweep drops expired timestamps and empty keys, returning how many keys remain
func (l *Limiter) Sweep() int {
	now := l.clock.Now()

	l.mu.Lock()
	defer l.mu.Unlock()

	for k, times := range l.hits {
		recent := trim(times, now.Add(-l.rules[k.kind].Window))
		if len(recent) == 0 {
			delete(l.hits, k)
			continue
		}
		l.hits[k] = recent
	}
	return len(l.hits)
}

// Forget drops every key held for conn
func (l *Limiter) Forget(conn model.ConnID) {
	l.mu.Lock()
	defer l.mu.Unlock()

	for k := range l.hits {
		if k.conn == conn {
			delete(l.hits, k)
		}
	}
}

// trim removes timestamps at or before cutoff; times are in ascending order
func trim(times []time.Time, cutoff time.Time) []time.Time {
	i := 0
	for i < len(times) && !times[i].After(cutoff) {
		i++
	}
	return times[i:]
}
