//go:build linux

package routeprobe

import (
	"context"
	"net/netip"
)

// `ip route get` is a single netlink round trip, cheap enough for every poll.
func defaultMode() Mode { return ModePrecision }

type precisionProber struct{}

func newPrecisionProber() Prober { return &precisionProber{} }

// Resolve asks the kernel which interface a packet to target would take (Linux).
func (p *precisionProber) Resolve(ctx context.Context, target netip.Addr) (Observation, error) {
	obs := Observation{Target: target, Family: FamilyOf(target)}

	args := []string{"route", "get", target.String()}
	if obs.Family == FamilyV6 {
		args = []string{"-6", "route", "get", target.String()}
	}
	out, err := runProbe(ctx, "ip", args...)
	if err != nil {
		// No route (exit status 2) and timeouts both surface here; the
		// caller maps either to an empty interface.
		return obs, err
	}

	obs.Interface = parseIPRoute(out)
	return obs, nil
}

type performanceProber struct{}

func newPerformanceProber() Prober { return &performanceProber{} }

// Resolve reads the default route for the target's family (Linux).
func (p *performanceProber) Resolve(ctx context.Context, target netip.Addr) (Observation, error) {
	obs := Observation{Target: target, Family: FamilyOf(target)}

	args := []string{"route", "show", "default"}
	if obs.Family == FamilyV6 {
		args = []string{"-6", "route", "show", "default"}
	}
	out, err := runProbe(ctx, "ip", args...)
	if err != nil {
		return obs, err
	}

	obs.Interface = parseIPRoute(out)
	return obs, nil
}
