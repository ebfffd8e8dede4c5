package config

import (
	"fmt"
	"net/netip"
)

// Validate validates the configuration. A validation error means the config
// cannot be used at all; recoverable inconsistencies are reported separately
// by Advisories.
func (c *Config) Validate() error {
	if c.Version < 1 {
		return fmt.Errorf("invalid config version")
	}

	if err := c.Routing.Validate(); err != nil {
		return fmt.Errorf("routing config: %w", err)
	}

	if err := c.Connectivity.Validate(); err != nil {
		return fmt.Errorf("connectivity config: %w", err)
	}

	if err := c.DNS.Validate(); err != nil {
		return fmt.Errorf("dns config: %w", err)
	}

	return nil
}

// Validate validates the routing guard configuration.
func (r *RoutingGuard) Validate() error {
	switch r.Mode {
	case ModeAuto, ModePrecision, ModePerformance, "":
	default:
		return fmt.Errorf("unknown detection mode: %s", r.Mode)
	}

	if r.TargetV4 != "" {
		addr, err := netip.ParseAddr(r.TargetV4)
		if err != nil || !addr.Is4() {
			return fmt.Errorf("target_v4 is not an IPv4 address: %s", r.TargetV4)
		}
	}
	if r.TargetV6 != "" {
		addr, err := netip.ParseAddr(r.TargetV6)
		if err != nil || !addr.Is6() {
			return fmt.Errorf("target_v6 is not an IPv6 address: %s", r.TargetV6)
		}
	}

	return nil
}

// Validate validates the connectivity guard configuration.
func (g *ConnectivityGuard) Validate() error {
	switch g.Provider {
	case "", "ipwhois", "ipapi", "custom":
	default:
		return fmt.Errorf("unknown provider: %s", g.Provider)
	}

	if g.Provider == "custom" && g.CustomURL == "" {
		return fmt.Errorf("custom provider requires custom_url")
	}

	for _, s := range g.Strategies {
		switch s {
		case StrategyGeoFence, StrategyISP, StrategyCombined, StrategyDynDNS:
		default:
			return fmt.Errorf("unknown strategy: %s", s)
		}
	}

	return nil
}

// Validate validates the DNS guard configuration.
func (g *DNSGuard) Validate() error {
	switch g.Mode {
	case DNSModeService, DNSModeDirect, "":
	default:
		return fmt.Errorf("unknown probe mode: %s", g.Mode)
	}

	if g.Mode == DNSModeService || g.Mode == "" {
		if g.Enabled && g.ServiceURL == "" {
			return fmt.Errorf("service probe mode requires service_url")
		}
	}

	for _, r := range g.HomeResolvers {
		if _, err := netip.ParsePrefix(r); err == nil {
			continue
		}
		if _, err := netip.ParseAddr(r); err != nil {
			return fmt.Errorf("home_resolvers entry is neither address nor prefix: %s", r)
		}
	}

	return nil
}

// Advisories reports recoverable configuration inconsistencies. An advisory
// does not stop the watchdog; the affected guard stays fail-safe (Unsafe)
// until the user fixes the configuration.
func (c *Config) Advisories() []string {
	var out []string

	if c.Routing.Enabled && len(c.Routing.AllowedInterfaces) == 0 {
		out = append(out, "routing guard enabled but no allowed interfaces configured")
	}

	if c.Connectivity.Enabled {
		for _, s := range c.Connectivity.Strategies {
			switch s {
			case StrategyGeoFence:
				if c.Connectivity.HomeCountry == "" {
					out = append(out, "geofence strategy enabled but home_country is empty")
				}
			case StrategyISP:
				if c.Connectivity.HomeISP == "" {
					out = append(out, "isp strategy enabled but home_isp is empty")
				}
			case StrategyCombined:
				if c.Connectivity.HomeCountry == "" || c.Connectivity.HomeISP == "" {
					out = append(out, "combined strategy enabled but home_country or home_isp is empty")
				}
			case StrategyDynDNS:
				if c.Connectivity.HomeHostname == "" {
					out = append(out, "dyndns strategy enabled but home_hostname is empty")
				}
			}
		}
	}

	if c.DNS.Enabled && c.DNS.AlertOnHomeISP &&
		c.Connectivity.HomeISP == "" && len(c.DNS.HomeResolvers) == 0 {
		out = append(out, "dns guard enabled but neither home_isp nor home_resolvers configured")
	}

	return out
}
