// Package ratelimit implements a sliding-window request counter keyed
// by (identity, action). The window is a true sliding window over
// exact hit timestamps, not fixed buckets, so a denial can report
// precisely when the oldest hit falls out of the window. Decisions are
// purely in-memory and never block on I/O.
package ratelimit

import (
	"sync"
	"time"
)

// Action names a rate-limited operation.
type Action string

const (
	ActionSendMessage     Action = "send-message"
	ActionEditProfile     Action = "edit-profile"
	ActionSendRequest     Action = "send-request"
	ActionEndNegotiate    Action = "end-negotiate"
	ActionRejectNegotiate Action = "reject-negotiate"
)

// Rule caps an action at Max hits per Window.
type Rule struct {
	Window time.Duration
	Max    int
}

// Result is the outcome of an Allow check. RetryAfter is set only on
// denial.
type Result struct {
	Permitted  bool
	RetryAfter time.Duration
}

type entryKey struct {
	identity string
	action   Action
}

type entry struct {
	hits     []time.Time
	lastSeen time.Time
}

// Limiter tracks per-(identity, action) hit windows. Stale entries are
// pruned lazily on access; there is no background goroutine.
type Limiter struct {
	mu        sync.Mutex
	rules     map[Action]Rule
	entries   map[entryKey]*entry
	maxWindow time.Duration
	lastSweep time.Time

	// now is swappable for tests.
	now func() time.Time
}

// NewLimiter creates a limiter with the given per-action rules.
// Actions without a rule are never limited.
func NewLimiter(rules map[Action]Rule) *Limiter {
	l := &Limiter{
		rules:   make(map[Action]Rule, len(rules)),
		entries: make(map[entryKey]*entry),
		now:     time.Now,
	}
	for action, rule := range rules {
		l.rules[action] = rule
		if rule.Window > l.maxWindow {
			l.maxWindow = rule.Window
		}
	}
	return l
}

// DefaultRules returns the shipped per-action quotas.
func DefaultRules() map[Action]Rule {
	return map[Action]Rule{
		ActionSendMessage:     {Window: 30 * time.Second, Max: 15},
		ActionEditProfile:     {Window: time.Hour, Max: 3},
		ActionSendRequest:     {Window: time.Hour, Max: 4},
		ActionEndNegotiate:    {Window: 5 * time.Minute, Max: 1},
		ActionRejectNegotiate: {Window: 5 * time.Minute, Max: 1},
	}
}

// Allow records a hit for (identity, action) if the window has room.
// On denial nothing is recorded and RetryAfter reports how long until
// the oldest hit expires.
func (l *Limiter) Allow(identity string, action Action) Result {
	rule, ok := l.rules[action]
	if !ok {
		return Result{Permitted: true}
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	l.sweepLocked(now)

	key := entryKey{identity: identity, action: action}
	e, ok := l.entries[key]
	if !ok {
		e = &entry{}
		l.entries[key] = e
	}
	e.lastSeen = now

	// Drop hits that have slid out of the window.
	cutoff := now.Add(-rule.Window)
	kept := e.hits[:0]
	for _, hit := range e.hits {
		if hit.After(cutoff) {
			kept = append(kept, hit)
		}
	}
	e.hits = kept

	if len(e.hits) >= rule.Max {
		return Result{
			Permitted:  false,
			RetryAfter: e.hits[0].Add(rule.Window).Sub(now),
		}
	}

	e.hits = append(e.hits, now)
	return Result{Permitted: true}
}

// sweepLocked drops entries idle longer than the largest configured
// window. Runs at most once per maxWindow, piggybacked on Allow.
func (l *Limiter) sweepLocked(now time.Time) {
	if l.maxWindow == 0 || now.Sub(l.lastSweep) < l.maxWindow {
		return
	}
	l.lastSweep = now

	for key, e := range l.entries {
		if now.Sub(e.lastSeen) > l.maxWindow {
			delete(l.entries, key)
		}
	}
}
