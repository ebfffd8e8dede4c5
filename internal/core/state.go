// Package core owns the polling scheduler and the aggregate watchdog state.
package core

import (
	"time"

	"github.com/user/vpn-watchdog/internal/guard"
)

// OverallStatus is the combined verdict published to the presentation layer.
type OverallStatus string

const (
	// OverallInitializing is published while at least one enabled guard has
	// not produced a verdict yet (startup, or a transient Unknown that has
	// not been escalated).
	OverallInitializing OverallStatus = "initializing"
	// OverallSafe means every enabled guard reports Safe.
	OverallSafe OverallStatus = "safe"
	// OverallUnsafe means at least one enabled guard reports Unsafe.
	OverallUnsafe OverallStatus = "unsafe"
	// OverallPaused means monitoring is suspended. Distinct from Safe and
	// Unsafe so a paused watchdog is never mistaken for a green one.
	OverallPaused OverallStatus = "paused"
)

// AggregateState is the read-only snapshot published to consumers. A
// snapshot is immutable once published; readers never observe Overall and
// PerGuard out of sync.
type AggregateState struct {
	Overall     OverallStatus
	PerGuard    map[string]guard.Result
	Advisories  []string
	PausedUntil time.Time // zero unless paused
	UpdatedAt   time.Time
}

// clone returns a deep copy safe to hand to readers.
func (s *AggregateState) clone() AggregateState {
	out := *s
	out.PerGuard = make(map[string]guard.Result, len(s.PerGuard))
	for k, v := range s.PerGuard {
		out.PerGuard[k] = v
	}
	out.Advisories = append([]string(nil), s.Advisories...)
	return out
}

// equal reports whether two states would look identical to a consumer,
// ignoring timestamps.
func (s *AggregateState) equal(o *AggregateState) bool {
	if s.Overall != o.Overall || len(s.PerGuard) != len(o.PerGuard) ||
		len(s.Advisories) != len(o.Advisories) || !s.PausedUntil.Equal(o.PausedUntil) {
		return false
	}
	for k, v := range s.PerGuard {
		ov, ok := o.PerGuard[k]
		if !ok || ov.Status != v.Status || ov.Reason != v.Reason {
			return false
		}
	}
	for i := range s.Advisories {
		if s.Advisories[i] != o.Advisories[i] {
			return false
		}
	}
	return true
}
