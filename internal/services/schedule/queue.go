package schedule

import (
	"sort"
	"time"
)

type action struct {
	key string
	at  time.Time
	seq uint64
	fn  func()
}

// Queue holds deferred actions that run when their time comes due.
// It is not safe for concurrent use; callers drive it from a single loop.
type Queue struct {
	actions []*action
	seq     uint64
}

// NewQueue creates an empty Queue
func NewQueue() *Queue {
	return &Queue{}
}

// Schedule runs fn at or after at. An existing action with the same key is replaced.
// An empty key never replaces anything.
func (q *Queue) Schedule(key string, at time.Time, fn func()) {
	if key != "" {
		q.Cancel(key)
	}
	q.seq++
	q.actions = append(q.actions, &action{key: key, at: at, seq: q.seq, fn: fn})
}

// Cancel removes the pending action with key, reporting whether one existed
func (q *Queue) Cancel(key string) bool {
	for i, a := range q.actions {
		if a.key == key {
			q.actions = append(q.actions[:i], q.actions[i+1:]...)
			return true
		}
	}
	return false
}

// Pending reports whether an action with key is waiting to run
func (q *Queue) Pending(key string) bool {
	for _, a := range q.actions {
		if a.key == key {
			return true
		}
	}
	return false
}

// RunDue runs every action due at now in time order, ties in scheduling order.
// Actions scheduled by a running action run in the same pass if already due.
func (q *Queue) RunDue(now time.Time) int {
	ran := 0
	for {
		a := q.popDue(now)
		if a == nil {
			return ran
		}
		a.fn()
		ran++
	}
}

// Clear drops every pending action
func (q *Queue) Clear() {
	q.actions = nil
}

// Len returns the number of pending actions
func (q *Queue) Len() int {
	return len(q.actions)
}

func (q *Queue) popDue(now time.Time) *action {
	if len(q.actions) == 0 {
		return nil
	}
	sort.Slice(q.actions, func(i, j int) bool {
		if !q.actions[i].at.Equal(q.actions[j].at) {
			return q.actions[i].at.Before(q.actions[j].at)
		}
		return q.actions[i].seq < q.actions[j].seq
	})
	first := q.actions[0]
	if first.at.After(now) {
		return nil
	}
	q.actions = q.actions[1:]
	return first
}
