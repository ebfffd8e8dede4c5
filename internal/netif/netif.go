// Package netif lists the host's network interfaces for the allow-list
// picker and configuration advisories.
package netif

import (
	"strings"

	gnet "github.com/shirou/gopsutil/v3/net"
)

// Interface is a host interface with its assigned addresses.
type Interface struct {
	Name  string
	Addrs []string
}

// List returns the host's network interfaces. IPv6 zone suffixes are
// stripped for display.
func List() ([]Interface, error) {
	stats, err := gnet.Interfaces()
	if err != nil {
		return nil, err
	}

	out := make([]Interface, 0, len(stats))
	for _, st := range stats {
		ifc := Interface{Name: st.Name}
		for _, a := range st.Addrs {
			addr := a.Addr
			if i := strings.IndexByte(addr, '%'); i >= 0 {
				addr = addr[:i]
			}
			ifc.Addrs = append(ifc.Addrs, addr)
		}
		out = append(out, ifc)
	}
	return out, nil
}

// MissingFrom reports which of the wanted interface names are not present
// on the host. Comparison is case-insensitive, matching the route probe.
func MissingFrom(wanted []string, present []Interface) []string {
	have := make(map[string]bool, len(present))
	for _, ifc := range present {
		have[strings.ToLower(ifc.Name)] = true
	}

	var missing []string
	for _, name := range wanted {
		if !have[strings.ToLower(strings.TrimSpace(name))] {
			missing = append(missing, name)
		}
	}
	return missing
}
