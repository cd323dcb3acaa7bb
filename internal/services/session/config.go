package session

import (
	"time"

	"github.com/mcoot/wordbomb/internal/services/ratelimit"
)

// Config holds the coordinator's timing and limits
type Config struct {
	// TickInterval drives lobby timers, grace timers and the limiter sweep
	TickInterval time.Duration
	// SeatGracePeriod is how long a disconnected player keeps a seat in a waiting lobby
	SeatGracePeriod time.Duration
	// IdentityTTL is how long a disconnected identity can still be restored
	IdentityTTL time.Duration
	// SweepInterval is how often empty rate limit windows are dropped
	SweepInterval time.Duration
	// QueueSize bounds the number of pending tasks for the loop
	QueueSize int
	Rules     ratelimit.Rules
}

// DefaultConfig returns the production configuration
func DefaultConfig() Config {
	return Config{
		TickInterval:    100 * time.Millisecond,
		SeatGracePeriod: 30 * time.Second,
		IdentityTTL:     5 * time.Minute,
		SweepInterval:   60 * time.Second,
		QueueSize:       1024,
		Rules:           ratelimit.DefaultRules(),
	}
}
