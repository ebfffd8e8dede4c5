package guard

import (
	"context"
	"fmt"
	"net"
	"net/netip"
	"strings"

	"go.uber.org/zap"

	"github.com/user/vpn-watchdog/internal/config"
	"github.com/user/vpn-watchdog/internal/geoip"
)

// ConnectivityName is the connectivity guard's name in results and config.
const ConnectivityName = "connectivity"

// Connectivity verifies the public egress identity against the configured
// leak strategies. Every configured strategy must pass independently for
// the guard to report Safe.
type Connectivity struct {
	cfg      ConfigSource
	log      *zap.Logger
	enricher *geoip.Enricher

	// seams for tests
	fetch      func(ctx context.Context, gc config.ConnectivityGuard) (geoip.Info, error)
	lookupHost func(ctx context.Context, host string) ([]netip.Addr, error)
}

// NewConnectivity creates the connectivity guard. enricher may be nil.
func NewConnectivity(cfg ConfigSource, enricher *geoip.Enricher, log *zap.Logger) *Connectivity {
	if log == nil {
		log = zap.NewNop()
	}
	g := &Connectivity{cfg: cfg, log: log, enricher: enricher}
	g.fetch = func(ctx context.Context, gc config.ConnectivityGuard) (geoip.Info, error) {
		provider := geoip.ProviderFor(gc.Provider, geoip.CustomSpec{
			URL:        gc.CustomURL,
			IPKey:      gc.CustomKeys.IP,
			CountryKey: gc.CustomKeys.Country,
			ISPKey:     gc.CustomKeys.ISP,
		})
		fctx, cancel := context.WithTimeout(ctx, gc.RequestTimeout())
		defer cancel()
		return provider.Fetch(fctx)
	}
	g.lookupHost = func(ctx context.Context, host string) ([]netip.Addr, error) {
		return net.DefaultResolver.LookupNetIP(ctx, "ip", host)
	}
	return g
}

func (g *Connectivity) Name() string { return ConnectivityName }

// Check runs one poll of the connectivity guard.
func (g *Connectivity) Check(ctx context.Context) Result {
	gc := g.cfg.Get().Connectivity

	// An empty strategy set makes the guard inert. That is an explicit,
	// logged decision, not a silent default.
	if len(gc.Strategies) == 0 {
		g.log.Debug("connectivity guard has no strategies configured; reporting safe")
		return safeResult(ConnectivityName, "no leak strategies configured (guard inert)")
	}

	info, err := g.fetch(ctx, gc)
	if err != nil {
		// Upstream failure is Unknown for this cycle; the scheduler
		// escalates to Unsafe if it persists.
		return unknownResult(ConnectivityName,
			fmt.Sprintf("public egress lookup failed: %v", err))
	}

	// Fill gaps from the offline databases when the provider response is
	// missing country or ISP.
	if info.Country == "" {
		if code, ok := g.enricher.Country(info.IP); ok {
			info.Country = code
		}
	}
	if info.ISP == "" {
		if org, ok := g.enricher.ASNOrg(info.IP); ok {
			info.ISP = org
		}
	}

	for _, strategy := range gc.Strategies {
		res, ok := g.evaluate(ctx, strategy, gc, info)
		if !ok {
			return res
		}
	}

	return safeResult(ConnectivityName, fmt.Sprintf(
		"public egress %s (%s, %s) passes all strategies", info.IP, info.Country, info.ISP))
}

// evaluate checks a single strategy. ok is true when the strategy passed.
func (g *Connectivity) evaluate(ctx context.Context, strategy config.Strategy, gc config.ConnectivityGuard, info geoip.Info) (Result, bool) {
	switch strategy {
	case config.StrategyGeoFence:
		if countryMatches(info.Country, gc.HomeCountry) {
			return unsafeResult(ConnectivityName, fmt.Sprintf(
				"public egress country %s matches home country", info.Country)), false
		}

	case config.StrategyISP:
		if ispMatches(info.ISP, gc.HomeISP) {
			return unsafeResult(ConnectivityName, fmt.Sprintf(
				"public egress ISP %q matches home ISP", info.ISP)), false
		}

	case config.StrategyCombined:
		// Country and ISP must both match to count as home.
		if countryMatches(info.Country, gc.HomeCountry) && ispMatches(info.ISP, gc.HomeISP) {
			return unsafeResult(ConnectivityName, fmt.Sprintf(
				"public egress %s/%q matches home country and ISP", info.Country, info.ISP)), false
		}

	case config.StrategyDynDNS:
		home := strings.TrimSpace(gc.HomeHostname)
		if home == "" {
			break
		}
		homeAddrs, err := g.resolveHome(ctx, home)
		if err != nil {
			return unknownResult(ConnectivityName, fmt.Sprintf(
				"home hostname resolution failed: %v", err)), false
		}
		for _, addr := range homeAddrs {
			// Unmap both sides: resolvers may hand back 4-in-6 mapped
			// addresses, which would otherwise never compare equal.
			if addr.Unmap() == info.IP.Unmap() {
				// Seen directly at the home address: the tunnel is bypassed.
				return unsafeResult(ConnectivityName, fmt.Sprintf(
					"public IP %s matches home address %s", info.IP, home)), false
			}
		}
	}

	return Result{}, true
}

// resolveHome resolves the home hostname, accepting a literal address too.
func (g *Connectivity) resolveHome(ctx context.Context, home string) ([]netip.Addr, error) {
	if addr, err := netip.ParseAddr(home); err == nil {
		return []netip.Addr{addr}, nil
	}
	return g.lookupHost(ctx, home)
}

func countryMatches(current, home string) bool {
	home = strings.TrimSpace(home)
	return home != "" && current != "" && strings.EqualFold(current, home)
}

func ispMatches(current, home string) bool {
	home = strings.ToLower(strings.TrimSpace(home))
	return home != "" && current != "" && strings.Contains(strings.ToLower(current), home)
}
