// Package config handles watchdog configuration loading, saving, and validation.
package config

import "time"

// DetectionMode selects how the route probe resolves the outbound interface.
type DetectionMode string

const (
	// ModeAuto picks precision where the per-call probe is cheap and
	// performance where it is not (Windows).
	ModeAuto DetectionMode = "auto"
	// ModePrecision asks the kernel which interface a packet to a specific
	// destination would take. Detects per-destination split tunneling.
	ModePrecision DetectionMode = "precision"
	// ModePerformance reads the configured default gateway instead of issuing
	// a per-destination query. Cheap, but blind to split tunneling.
	ModePerformance DetectionMode = "performance"
)

// Strategy identifies a connectivity leak strategy.
type Strategy string

const (
	StrategyGeoFence Strategy = "geofence"
	StrategyISP      Strategy = "isp"
	StrategyCombined Strategy = "combined"
	StrategyDynDNS   Strategy = "dyndns"
)

// DNSProbeMode selects the DNS leak probing mechanism.
type DNSProbeMode string

const (
	// DNSModeService uses a leak-test web service that reports which
	// recursors hit its authoritative name servers.
	DNSModeService DNSProbeMode = "service"
	// DNSModeDirect queries each system-configured resolver directly.
	DNSModeDirect DNSProbeMode = "direct"
)

// Config represents the main configuration structure.
type Config struct {
	Version       int               `yaml:"version"`
	LogLevel      string            `yaml:"log_level"`
	CheckInterval int               `yaml:"check_interval"` // base scheduler tick, seconds
	Routing       RoutingGuard      `yaml:"routing"`
	Connectivity  ConnectivityGuard `yaml:"connectivity"`
	DNS           DNSGuard          `yaml:"dns"`
	GeoIP         GeoIP             `yaml:"geoip,omitempty"`
	PausePresets  []int             `yaml:"pause_presets,omitempty"` // minutes
}

// RoutingGuard configures the routing (interface) guard.
type RoutingGuard struct {
	Enabled           bool          `yaml:"enabled"`
	Mode              DetectionMode `yaml:"detection_mode"`
	AllowedInterfaces []string      `yaml:"allowed_interfaces"`
	Interval          int           `yaml:"interval,omitempty"` // seconds, 0 = check_interval
	Timeout           int           `yaml:"timeout,omitempty"`  // seconds per probe
	TargetV4          string        `yaml:"target_v4,omitempty"`
	TargetV6          string        `yaml:"target_v6,omitempty"`
}

// ConnectivityGuard configures the public egress guard.
type ConnectivityGuard struct {
	Enabled      bool       `yaml:"enabled"`
	Interval     int        `yaml:"interval,omitempty"` // seconds
	Timeout      int        `yaml:"timeout,omitempty"`
	Provider     string     `yaml:"provider,omitempty"` // ipwhois, ipapi, custom
	CustomURL    string     `yaml:"custom_url,omitempty"`
	CustomKeys   CustomKeys `yaml:"custom_keys,omitempty"`
	Strategies   []Strategy `yaml:"strategies"`
	HomeCountry  string     `yaml:"home_country,omitempty"`  // e.g. "DE"
	HomeISP      string     `yaml:"home_isp,omitempty"`      // e.g. "Telekom"
	HomeHostname string     `yaml:"home_hostname,omitempty"` // DynDNS name or static IP
}

// CustomKeys maps JSON field names for the custom provider.
type CustomKeys struct {
	IP      string `yaml:"ip,omitempty"`
	Country string `yaml:"country,omitempty"`
	ISP     string `yaml:"isp,omitempty"`
}

// DNSGuard configures the DNS leak guard.
type DNSGuard struct {
	Enabled        bool         `yaml:"enabled"`
	Interval       int          `yaml:"interval,omitempty"` // seconds
	Timeout        int          `yaml:"timeout,omitempty"`
	Mode           DNSProbeMode `yaml:"probe_mode,omitempty"`
	ServiceURL     string       `yaml:"service_url,omitempty"`
	TestZone       string       `yaml:"test_zone,omitempty"` // zone for direct-mode random labels
	SampleCount    int          `yaml:"sample_count,omitempty"`
	HomeResolvers  []string     `yaml:"home_resolvers,omitempty"` // addresses or CIDR prefixes
	AlertOnHomeISP bool         `yaml:"alert_on_home_isp"`
}

// GeoIP configures optional offline MaxMind databases used to attribute
// addresses when the provider response lacks country/ISP data.
type GeoIP struct {
	CountryDB string `yaml:"country_db,omitempty"`
	ASNDB     string `yaml:"asn_db,omitempty"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Version:       1,
		LogLevel:      "info",
		CheckInterval: 5,
		Routing: RoutingGuard{
			Enabled:  true,
			Mode:     ModeAuto,
			Timeout:  3,
			TargetV4: "1.1.1.1",
			TargetV6: "2606:4700:4700::1111",
		},
		Connectivity: ConnectivityGuard{
			Enabled:    false,
			Interval:   60,
			Timeout:    5,
			Provider:   "ipwhois",
			Strategies: []Strategy{StrategyCombined},
		},
		DNS: DNSGuard{
			Enabled:        false,
			Interval:       120,
			Timeout:        10,
			Mode:           DNSModeService,
			ServiceURL:     "https://bash.ws",
			TestZone:       "bash.ws",
			SampleCount:    10,
			AlertOnHomeISP: true,
		},
		PausePresets: []int{5, 10, 60, 720},
	}
}

// TickInterval returns the base scheduler tick.
func (c *Config) TickInterval() time.Duration {
	if c.CheckInterval <= 0 {
		return 5 * time.Second
	}
	return time.Duration(c.CheckInterval) * time.Second
}

// PollInterval returns the routing guard's poll interval.
func (r *RoutingGuard) PollInterval(base time.Duration) time.Duration {
	if r.Interval <= 0 {
		return base
	}
	return time.Duration(r.Interval) * time.Second
}

// ProbeTimeout returns the per-probe timeout for the routing guard.
func (r *RoutingGuard) ProbeTimeout() time.Duration {
	if r.Timeout <= 0 {
		return 3 * time.Second
	}
	return time.Duration(r.Timeout) * time.Second
}

// PollInterval returns the connectivity guard's poll interval.
func (g *ConnectivityGuard) PollInterval() time.Duration {
	if g.Interval <= 0 {
		return 60 * time.Second
	}
	return time.Duration(g.Interval) * time.Second
}

// RequestTimeout returns the provider request timeout.
func (g *ConnectivityGuard) RequestTimeout() time.Duration {
	if g.Timeout <= 0 {
		return 5 * time.Second
	}
	return time.Duration(g.Timeout) * time.Second
}

// PollInterval returns the DNS guard's poll interval.
func (g *DNSGuard) PollInterval() time.Duration {
	if g.Interval <= 0 {
		return 120 * time.Second
	}
	return time.Duration(g.Interval) * time.Second
}

// ProbeTimeout returns the overall DNS probe timeout.
func (g *DNSGuard) ProbeTimeout() time.Duration {
	if g.Timeout <= 0 {
		return 10 * time.Second
	}
	return time.Duration(g.Timeout) * time.Second
}
