// Package dnsleak discovers which DNS resolvers actually answer this host's
// queries. Fresh random subdomains defeat caching, so every sample reflects
// a real upstream resolution.
package dnsleak

import (
	"context"
	"math/rand/v2"
	"net/netip"
	"strings"
)

// Sample records one observed resolution: which subdomain was queried and
// which resolver answered it. Country and ISP are filled in when the probe
// mechanism knows them (the leak-test service reports both).
type Sample struct {
	Subdomain string
	Resolver  netip.Addr
	Country   string
	ISP       string
}

// Sampler produces one cycle's worth of DNS probe samples.
type Sampler interface {
	Sample(ctx context.Context) ([]Sample, error)
}

const labelAlphabet = "abcdefghijklmnopqrstuvwxyz0123456789"

// randomLabel returns a syntactically valid, content-free DNS label.
func randomLabel(n int) string {
	var b strings.Builder
	// First character must be a letter.
	b.WriteByte(labelAlphabet[rand.IntN(26)])
	for i := 1; i < n; i++ {
		b.WriteByte(labelAlphabet[rand.IntN(len(labelAlphabet))])
	}
	return b.String()
}

// RandomSubdomain returns a fresh random subdomain under zone.
func RandomSubdomain(zone string) string {
	return randomLabel(12) + "." + strings.TrimSuffix(zone, ".")
}

// Dedupe collapses samples answered by the same resolver.
func Dedupe(samples []Sample) []Sample {
	seen := make(map[netip.Addr]bool, len(samples))
	out := make([]Sample, 0, len(samples))
	for _, s := range samples {
		if !s.Resolver.IsValid() || seen[s.Resolver] {
			continue
		}
		seen[s.Resolver] = true
		out = append(out, s)
	}
	return out
}
