package guard

import (
	"context"
	"errors"
	"net/netip"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/user/vpn-watchdog/internal/config"
	"github.com/user/vpn-watchdog/internal/routeprobe"
)

// staticConfig is a ConfigSource backed by a fixed Config, shared by the
// guard tests in this package.
type staticConfig struct {
	cfg *config.Config
}

func (s staticConfig) Get() *config.Config { return s.cfg }

// fakeProber maps target addresses to interface names. A missing entry means
// the probe fails, an empty value means no route was found.
type fakeProber struct {
	routes map[string]string
}

func (f fakeProber) Resolve(_ context.Context, target netip.Addr) (routeprobe.Observation, error) {
	obs := routeprobe.Observation{Target: target, Family: routeprobe.FamilyOf(target)}
	iface, ok := f.routes[target.String()]
	if !ok {
		return obs, errors.New("probe failed")
	}
	obs.Interface = iface
	return obs, nil
}

func routingConfig(allowed ...string) *config.Config {
	cfg := config.DefaultConfig()
	cfg.Routing.AllowedInterfaces = allowed
	return cfg
}

func newTestRouting(cfg *config.Config, routes map[string]string) *Routing {
	g := NewRouting(staticConfig{cfg}, nil)
	g.newProber = func(routeprobe.Mode) routeprobe.Prober {
		return fakeProber{routes: routes}
	}
	return g
}

func TestRoutingAllRoutesAllowed(t *testing.T) {
	g := newTestRouting(routingConfig("tun0"), map[string]string{
		"1.1.1.1":              "tun0",
		"2606:4700:4700::1111": "tun0",
	})

	res := g.Check(context.Background())
	assert.Equal(t, StatusSafe, res.Status)
}

func TestRoutingSingleFamilyLeak(t *testing.T) {
	// IPv4 goes through the tunnel, IPv6 escapes via the physical NIC.
	g := newTestRouting(routingConfig("tun0"), map[string]string{
		"1.1.1.1":              "tun0",
		"2606:4700:4700::1111": "eth0",
	})

	res := g.Check(context.Background())
	require.Equal(t, StatusUnsafe, res.Status)
	assert.Contains(t, res.Reason, "eth0")
	assert.Contains(t, res.Reason, "v6")
}

func TestRoutingAbsentFamilyIgnored(t *testing.T) {
	// No IPv6 route at all: only the IPv4 verdict counts.
	g := newTestRouting(routingConfig("tun0"), map[string]string{
		"1.1.1.1":              "tun0",
		"2606:4700:4700::1111": "",
	})

	res := g.Check(context.Background())
	assert.Equal(t, StatusSafe, res.Status)
}

func TestRoutingNoRoutesAtAll(t *testing.T) {
	g := newTestRouting(routingConfig("tun0"), map[string]string{
		"1.1.1.1":              "",
		"2606:4700:4700::1111": "",
	})

	res := g.Check(context.Background())
	require.Equal(t, StatusUnsafe, res.Status)
	assert.Contains(t, res.Reason, "no active route")
}

func TestRoutingProbeFailureTreatedAsNoRoute(t *testing.T) {
	g := newTestRouting(routingConfig("tun0"), map[string]string{})

	res := g.Check(context.Background())
	assert.Equal(t, StatusUnsafe, res.Status)
}

func TestRoutingEmptyAllowList(t *testing.T) {
	g := newTestRouting(routingConfig(), map[string]string{
		"1.1.1.1": "tun0",
	})

	res := g.Check(context.Background())
	require.Equal(t, StatusUnsafe, res.Status)
	assert.Contains(t, res.Reason, "no allowed interfaces")
}

func TestRoutingInterfaceMatchIsCaseInsensitive(t *testing.T) {
	g := newTestRouting(routingConfig("NordLynx"), map[string]string{
		"1.1.1.1":              "nordlynx",
		"2606:4700:4700::1111": "NORDLYNX",
	})

	res := g.Check(context.Background())
	assert.Equal(t, StatusSafe, res.Status)
}
