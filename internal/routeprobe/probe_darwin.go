//go:build darwin

package routeprobe

import (
	"context"
	"net/netip"
)

func defaultMode() Mode { return ModePrecision }

type precisionProber struct{}

func newPrecisionProber() Prober { return &precisionProber{} }

// Resolve asks the kernel which interface a packet to target would take (macOS).
func (p *precisionProber) Resolve(ctx context.Context, target netip.Addr) (Observation, error) {
	obs := Observation{Target: target, Family: FamilyOf(target)}

	// route(8) needs an explicit flag for IPv6 lookups.
	args := []string{"-n", "get", target.String()}
	if obs.Family == FamilyV6 {
		args = []string{"-n", "get", "-inet6", target.String()}
	}
	out, err := runProbe(ctx, "route", args...)
	if err != nil {
		return obs, err
	}

	obs.Interface = parseBSDRoute(out)
	return obs, nil
}

type performanceProber struct{}

func newPerformanceProber() Prober { return &performanceProber{} }

// Resolve reads the default route for the target's family (macOS).
func (p *performanceProber) Resolve(ctx context.Context, target netip.Addr) (Observation, error) {
	obs := Observation{Target: target, Family: FamilyOf(target)}

	args := []string{"-n", "get", "default"}
	if obs.Family == FamilyV6 {
		args = []string{"-n", "get", "-inet6", "default"}
	}
	out, err := runProbe(ctx, "route", args...)
	if err != nil {
		return obs, err
	}

	obs.Interface = parseBSDRoute(out)
	return obs, nil
}
