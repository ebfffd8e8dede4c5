package routeprobe

import "testing"

func TestParseIPRoute(t *testing.T) {
	out := "1.1.1.1 via 10.8.0.1 dev tun0 src 10.8.0.2 uid 1000\n    cache\n"
	if got := parseIPRoute(out); got != "tun0" {
		t.Fatalf("expected tun0, got %q", got)
	}
}

func TestParseIPRouteDefault(t *testing.T) {
	out := "default via 192.168.1.1 dev eth0 proto dhcp metric 100\n"
	if got := parseIPRoute(out); got != "eth0" {
		t.Fatalf("expected eth0, got %q", got)
	}
}

func TestParseIPRouteMalformed(t *testing.T) {
	for _, out := range []string{"", "RTNETLINK answers: Network is unreachable", "garbage output"} {
		if got := parseIPRoute(out); got != "" {
			t.Fatalf("expected empty interface for %q, got %q", out, got)
		}
	}
}

func TestParseBSDRoute(t *testing.T) {
	out := `   route to: 1.1.1.1
destination: 1.1.1.1
    gateway: 10.8.0.1
  interface: utun4
      flags: <UP,GATEWAY,DONE>
`
	if got := parseBSDRoute(out); got != "utun4" {
		t.Fatalf("expected utun4, got %q", got)
	}
}

func TestParseBSDRouteMalformed(t *testing.T) {
	if got := parseBSDRoute("route: writing to routing socket: not in table"); got != "" {
		t.Fatalf("expected empty interface, got %q", got)
	}
}

func TestParseFindNetRouteObject(t *testing.T) {
	out := `{ "InterfaceAlias": "NordLynx" }`
	if got := parseFindNetRoute(out); got != "NordLynx" {
		t.Fatalf("expected NordLynx, got %q", got)
	}
}

func TestParseFindNetRouteArray(t *testing.T) {
	// PowerShell emits an array when Find-NetRoute returns several routes.
	out := `[ { "InterfaceAlias": "Ethernet" }, { "InterfaceAlias": "Ethernet" } ]`
	if got := parseFindNetRoute(out); got != "Ethernet" {
		t.Fatalf("expected Ethernet, got %q", got)
	}
}

func TestParseFindNetRouteMalformed(t *testing.T) {
	for _, out := range []string{"", "Find-NetRoute : error", "[]", "{"} {
		if got := parseFindNetRoute(out); got != "" {
			t.Fatalf("expected empty interface for %q, got %q", out, got)
		}
	}
}

func TestNormalizeInterface(t *testing.T) {
	if got := NormalizeInterface("  NordLynx "); got != "nordlynx" {
		t.Fatalf("got %q", got)
	}
}
