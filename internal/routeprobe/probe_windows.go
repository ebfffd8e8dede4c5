//go:build windows

package routeprobe

import (
	"context"
	"fmt"
	"net/netip"
	"strings"
)

// A PowerShell invocation takes the better part of a second; reading the
// default route once per poll is the sane default here.
func defaultMode() Mode { return ModePerformance }

type precisionProber struct{}

func newPrecisionProber() Prober { return &precisionProber{} }

// Resolve asks Find-NetRoute which interface a packet to target would take
// (Windows). Find-NetRoute handles IPv6 destinations transparently.
func (p *precisionProber) Resolve(ctx context.Context, target netip.Addr) (Observation, error) {
	obs := Observation{Target: target, Family: FamilyOf(target)}

	psCmd := fmt.Sprintf(
		"Find-NetRoute -RemoteIP '%s' | Select-Object InterfaceAlias | ConvertTo-Json",
		target.String())
	out, err := runProbe(ctx, "powershell", "-NoProfile", "-Command", psCmd)
	if err != nil {
		return obs, err
	}

	obs.Interface = parseFindNetRoute(out)
	return obs, nil
}

type performanceProber struct{}

func newPerformanceProber() Prober { return &performanceProber{} }

// Resolve reads the lowest-metric default route for the target's family (Windows).
func (p *performanceProber) Resolve(ctx context.Context, target netip.Addr) (Observation, error) {
	obs := Observation{Target: target, Family: FamilyOf(target)}

	prefix := "0.0.0.0/0"
	if obs.Family == FamilyV6 {
		prefix = "::/0"
	}
	psCmd := fmt.Sprintf(
		"Get-NetRoute -DestinationPrefix '%s' | Sort-Object RouteMetric | Select-Object -First 1 -ExpandProperty InterfaceAlias",
		prefix)
	out, err := runProbe(ctx, "powershell", "-NoProfile", "-Command", psCmd)
	if err != nil {
		return obs, err
	}

	obs.Interface = strings.TrimSpace(out)
	return obs, nil
}
