package guard

import (
	"context"
	"fmt"
	"net/netip"
	"strings"

	"go.uber.org/zap"

	"github.com/user/vpn-watchdog/internal/config"
	"github.com/user/vpn-watchdog/internal/dnsleak"
	"github.com/user/vpn-watchdog/internal/geoip"
)

// DNSName is the DNS guard's name in results and config.
const DNSName = "dns"

// DNS detects resolutions answered by a resolver belonging to the home ISP,
// which leaks DNS traffic even while the tunnel itself is up.
type DNS struct {
	cfg      ConfigSource
	log      *zap.Logger
	enricher *geoip.Enricher

	// newSampler is a seam for tests; the default builds a sampler from the
	// current DNS guard config.
	newSampler func(gc config.DNSGuard) dnsleak.Sampler
}

// NewDNS creates the DNS guard. enricher may be nil.
func NewDNS(cfg ConfigSource, enricher *geoip.Enricher, log *zap.Logger) *DNS {
	if log == nil {
		log = zap.NewNop()
	}
	g := &DNS{cfg: cfg, log: log, enricher: enricher}
	g.newSampler = func(gc config.DNSGuard) dnsleak.Sampler {
		if gc.Mode == config.DNSModeDirect {
			return dnsleak.NewDirectSampler(gc.TestZone, gc.SampleCount, gc.ProbeTimeout(), log)
		}
		return dnsleak.NewServiceSampler(gc.ServiceURL, gc.TestZone, gc.SampleCount, log)
	}
	return g
}

func (g *DNS) Name() string { return DNSName }

// Check runs one poll of the DNS guard.
func (g *DNS) Check(ctx context.Context) Result {
	cfg := g.cfg.Get()
	gc := cfg.DNS

	homePrefixes := parseHomeResolvers(gc.HomeResolvers)
	homeISP := strings.ToLower(strings.TrimSpace(cfg.Connectivity.HomeISP))

	if gc.AlertOnHomeISP && homeISP == "" && len(homePrefixes) == 0 {
		// Nothing to compare against: a configuration inconsistency, kept
		// fail-safe until the user supplies home resolver data.
		return unsafeResult(DNSName, "home ISP comparison not configured")
	}

	pctx, cancel := context.WithTimeout(ctx, gc.ProbeTimeout())
	samples, err := g.newSampler(gc).Sample(pctx)
	cancel()
	if err != nil {
		return unsafeResult(DNSName, fmt.Sprintf("dns probe failed: %v", err))
	}

	resolvers := dnsleak.Dedupe(samples)
	if len(resolvers) == 0 {
		// All probes timed out or were blocked.
		return unsafeResult(DNSName, "no resolver answered any probe")
	}

	for _, s := range resolvers {
		if within(s.Resolver, homePrefixes) {
			return unsafeResult(DNSName, fmt.Sprintf(
				"resolver %s belongs to the home resolver set", s.Resolver))
		}
		if gc.AlertOnHomeISP && homeISP != "" {
			if isp := g.attributeISP(s); isp != "" && strings.Contains(strings.ToLower(isp), homeISP) {
				return unsafeResult(DNSName, fmt.Sprintf(
					"resolver %s is operated by home ISP (%s)", s.Resolver, isp))
			}
		}
	}

	return safeResult(DNSName, fmt.Sprintf(
		"%d resolver(s) observed, none belong to the home ISP", len(resolvers)))
}

// attributeISP names the operator of a resolver, preferring the probe's own
// attribution and falling back to the offline ASN database.
func (g *DNS) attributeISP(s dnsleak.Sample) string {
	if s.ISP != "" {
		return s.ISP
	}
	if org, ok := g.enricher.ASNOrg(s.Resolver); ok {
		return org
	}
	return ""
}

func parseHomeResolvers(entries []string) []netip.Prefix {
	var out []netip.Prefix
	for _, e := range entries {
		if p, err := netip.ParsePrefix(e); err == nil {
			out = append(out, p)
			continue
		}
		if a, err := netip.ParseAddr(e); err == nil {
			out = append(out, netip.PrefixFrom(a, a.BitLen()))
		}
	}
	return out
}

func within(addr netip.Addr, prefixes []netip.Prefix) bool {
	for _, p := range prefixes {
		if p.Contains(addr) {
			return true
		}
	}
	return false
}
