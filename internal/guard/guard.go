// Package guard implements the independent security checks (routing, public
// egress, DNS) that the monitor polls. Every guard answers with a fail-safe
// bias: uncertainty resolves toward Unsafe, never toward Safe.
package guard

import (
	"context"
	"time"

	"github.com/user/vpn-watchdog/internal/config"
)

// Status is a guard's verdict.
type Status int

const (
	// StatusUnknown means the guard could not determine a verdict this
	// cycle. It is transient: the scheduler escalates a persistent Unknown
	// to Unsafe.
	StatusUnknown Status = iota
	StatusSafe
	StatusUnsafe
)

// String returns a human-readable name for the status.
func (s Status) String() string {
	switch s {
	case StatusSafe:
		return "safe"
	case StatusUnsafe:
		return "unsafe"
	default:
		return "unknown"
	}
}

// Result is one poll's verdict. Results are immutable; the next poll
// supersedes, never mutates.
type Result struct {
	Guard      string
	Status     Status
	Reason     string
	ObservedAt time.Time
}

// Guard is an independently pollable security check.
type Guard interface {
	Name() string
	Check(ctx context.Context) Result
}

// ConfigSource supplies the current configuration. Guards read it at the
// start of every check, which is how configuration edits take effect on the
// next scheduled poll without touching in-flight state.
type ConfigSource interface {
	Get() *config.Config
}

func safeResult(name, reason string) Result {
	return Result{Guard: name, Status: StatusSafe, Reason: reason, ObservedAt: time.Now()}
}

func unsafeResult(name, reason string) Result {
	return Result{Guard: name, Status: StatusUnsafe, Reason: reason, ObservedAt: time.Now()}
}

func unknownResult(name, reason string) Result {
	return Result{Guard: name, Status: StatusUnknown, Reason: reason, ObservedAt: time.Now()}
}
