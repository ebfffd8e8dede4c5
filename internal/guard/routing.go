package guard

import (
	"context"
	"fmt"
	"net/netip"

	"go.uber.org/zap"

	"github.com/user/vpn-watchdog/internal/config"
	"github.com/user/vpn-watchdog/internal/routeprobe"
)

// RoutingName is the routing guard's name in results and config.
const RoutingName = "routing"

// Routing verifies that every active outbound route uses an allowed
// interface. IPv4 and IPv6 are probed independently: a family without any
// route is excluded from the decision, but a single found route through a
// disallowed interface makes the whole check Unsafe.
type Routing struct {
	cfg       ConfigSource
	log       *zap.Logger
	newProber func(routeprobe.Mode) routeprobe.Prober
}

// NewRouting creates the routing guard.
func NewRouting(cfg ConfigSource, log *zap.Logger) *Routing {
	if log == nil {
		log = zap.NewNop()
	}
	return &Routing{cfg: cfg, log: log, newProber: routeprobe.New}
}

func (g *Routing) Name() string { return RoutingName }

// Check runs one poll of the routing guard.
func (g *Routing) Check(ctx context.Context) Result {
	rc := g.cfg.Get().Routing

	// Empty allow-list is a configuration inconsistency: surfaced as an
	// advisory elsewhere, treated as Unsafe here until corrected.
	if len(rc.AllowedInterfaces) == 0 {
		return unsafeResult(RoutingName, "no allowed interfaces configured")
	}

	allowed := make(map[string]bool, len(rc.AllowedInterfaces))
	for _, name := range rc.AllowedInterfaces {
		allowed[routeprobe.NormalizeInterface(name)] = true
	}

	prober := g.newProber(routeprobe.Mode(rc.Mode))

	routesFound := 0
	for _, target := range g.targets(rc) {
		pctx, cancel := context.WithTimeout(ctx, rc.ProbeTimeout())
		obs, err := prober.Resolve(pctx, target)
		cancel()
		if err != nil {
			// Timeout or unparseable output: treated as "no route found"
			// for this family, never as a crash.
			g.log.Debug("route probe yielded no route",
				zap.String("target", target.String()), zap.Error(err))
			continue
		}
		if obs.Interface == "" {
			continue
		}

		routesFound++
		if !allowed[routeprobe.NormalizeInterface(obs.Interface)] {
			return unsafeResult(RoutingName, fmt.Sprintf(
				"%s traffic to %s routed via disallowed interface %q",
				obs.Family, target, obs.Interface))
		}
	}

	if routesFound == 0 {
		// No route for either family: network down or probes hanging.
		return unsafeResult(RoutingName, "no active route found for any protocol family")
	}

	return safeResult(RoutingName, "all active routes use allowed interfaces")
}

func (g *Routing) targets(rc config.RoutingGuard) []netip.Addr {
	var out []netip.Addr
	if addr, err := netip.ParseAddr(rc.TargetV4); err == nil {
		out = append(out, addr)
	}
	if addr, err := netip.ParseAddr(rc.TargetV6); err == nil {
		out = append(out, addr)
	}
	return out
}
