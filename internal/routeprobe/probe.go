// Package routeprobe answers "which interface carries traffic to this
// destination" by querying the OS routing facilities.
//
// Two probe variants exist per platform. The precision prober asks the
// kernel for the route of a specific destination and therefore sees
// per-destination split tunneling. The performance prober reads the
// configured default route instead, which avoids a subprocess per call on
// platforms where that is expensive.
package routeprobe

import (
	"context"
	"fmt"
	"net/netip"
	"os/exec"
	"strings"

	"github.com/user/vpn-watchdog/internal/procutil"
)

// Family identifies the protocol family of a probe.
type Family string

const (
	FamilyV4 Family = "v4"
	FamilyV6 Family = "v6"
)

// FamilyOf returns the protocol family of an address.
func FamilyOf(addr netip.Addr) Family {
	if addr.Is4() || addr.Is4In6() {
		return FamilyV4
	}
	return FamilyV6
}

// Observation is the result of a single route probe. An empty Interface
// means no route was found, which is a valid result, not an error.
type Observation struct {
	Target    netip.Addr
	Interface string
	Family    Family
}

// Prober resolves the outbound interface for a destination address.
// Implementations must honor ctx cancellation; the caller bounds every
// probe with a timeout.
type Prober interface {
	Resolve(ctx context.Context, target netip.Addr) (Observation, error)
}

// Mode selects the probe variant.
type Mode string

const (
	ModeAuto        Mode = "auto"
	ModePrecision   Mode = "precision"
	ModePerformance Mode = "performance"
)

// New returns the prober for the requested mode on this platform.
func New(mode Mode) Prober {
	if mode == ModeAuto || mode == "" {
		mode = defaultMode()
	}
	if mode == ModePerformance {
		return newPerformanceProber()
	}
	return newPrecisionProber()
}

// runProbe executes an OS routing query bounded by ctx.
func runProbe(ctx context.Context, name string, args ...string) (string, error) {
	cmd := procutil.HideWindow(exec.CommandContext(ctx, name, args...))
	out, err := cmd.Output()
	if err != nil {
		if ctx.Err() != nil {
			return "", fmt.Errorf("route probe timed out: %w", ctx.Err())
		}
		return "", fmt.Errorf("route probe failed: %w", err)
	}
	return string(out), nil
}

// NormalizeInterface canonicalizes an interface name for comparison.
func NormalizeInterface(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}
