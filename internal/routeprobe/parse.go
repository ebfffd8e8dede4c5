package routeprobe

import (
	"encoding/json"
	"regexp"
	"strings"
)

// The three supported kernels answer the same question in three different
// shapes. Parsing lives here, free of build tags, so the tests cover every
// shape on every platform. A parse miss returns an empty interface name;
// the caller treats that as "no route found".

var (
	ipRouteDevRe  = regexp.MustCompile(`\bdev\s+(\S+)`)
	bsdRouteIfcRe = regexp.MustCompile(`(?m)^\s*interface:\s+(\S+)`)
)

// parseIPRoute extracts the device name from `ip route get` / `ip route
// show default` output (Linux).
//
//	1.1.1.1 via 10.8.0.1 dev tun0 src 10.8.0.2 uid 1000
func parseIPRoute(output string) string {
	m := ipRouteDevRe.FindStringSubmatch(output)
	if m == nil {
		return ""
	}
	return m[1]
}

// parseBSDRoute extracts the interface name from `route get` output (macOS).
//
//	   route to: 1.1.1.1
//	destination: 1.1.1.1
//	    gateway: 10.8.0.1
//	  interface: utun4
func parseBSDRoute(output string) string {
	m := bsdRouteIfcRe.FindStringSubmatch(output)
	if m == nil {
		return ""
	}
	return m[1]
}

// findNetRouteEntry mirrors the fields we select from Find-NetRoute.
type findNetRouteEntry struct {
	InterfaceAlias string `json:"InterfaceAlias"`
}

// parseFindNetRoute extracts the interface alias from PowerShell
// `Find-NetRoute ... | ConvertTo-Json` output (Windows). PowerShell emits a
// bare object for a single route and an array for several.
func parseFindNetRoute(output string) string {
	output = strings.TrimSpace(output)
	if output == "" {
		return ""
	}

	if strings.HasPrefix(output, "[") {
		var entries []findNetRouteEntry
		if err := json.Unmarshal([]byte(output), &entries); err != nil || len(entries) == 0 {
			return ""
		}
		return entries[0].InterfaceAlias
	}

	var entry findNetRouteEntry
	if err := json.Unmarshal([]byte(output), &entry); err != nil {
		return ""
	}
	return entry.InterfaceAlias
}
