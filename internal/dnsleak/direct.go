package dnsleak

import (
	"context"
	"fmt"
	"net"
	"net/netip"
	"strings"
	"time"

	"github.com/miekg/dns"
	"go.uber.org/zap"
)

// Transport performs one DNS exchange with a specific server.
type Transport interface {
	Exchange(ctx context.Context, server string, msg *dns.Msg) (*dns.Msg, time.Duration, error)
}

type udpTransport struct {
	timeout time.Duration
}

func (t *udpTransport) Exchange(ctx context.Context, server string, msg *dns.Msg) (*dns.Msg, time.Duration, error) {
	client := &dns.Client{Net: "udp", Timeout: t.timeout}
	if deadline, ok := ctx.Deadline(); ok {
		client.Timeout = time.Until(deadline)
	}
	return client.Exchange(msg, server)
}

// DirectSampler queries each configured resolver with a fresh random
// subdomain. The answering resolver for a sample is the server that
// responded; any response (including NXDOMAIN) proves the resolver is in
// the resolution path.
type DirectSampler struct {
	Zone      string
	Count     int
	Resolvers []string // addresses; empty means system resolvers
	Timeout   time.Duration
	Transport Transport
	Logger    *zap.Logger
}

// NewDirectSampler creates a direct sampler with the default UDP transport.
func NewDirectSampler(zone string, count int, timeout time.Duration, logger *zap.Logger) *DirectSampler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DirectSampler{
		Zone:      zone,
		Count:     count,
		Timeout:   timeout,
		Transport: &udpTransport{timeout: timeout},
		Logger:    logger,
	}
}

// Sample probes every resolver once per requested sample. A resolver that
// never responds contributes nothing; an empty result set means no resolver
// answered at all.
func (s *DirectSampler) Sample(ctx context.Context) ([]Sample, error) {
	resolvers := s.Resolvers
	if len(resolvers) == 0 {
		sys, err := SystemResolvers()
		if err != nil {
			return nil, fmt.Errorf("load system resolvers: %w", err)
		}
		resolvers = sys
	}
	if len(resolvers) == 0 {
		return nil, fmt.Errorf("no resolvers to probe")
	}

	count := s.Count
	if count <= 0 {
		count = 1
	}

	var samples []Sample
	for i := 0; i < count; i++ {
		for _, resolver := range resolvers {
			if err := ctx.Err(); err != nil {
				return samples, err
			}

			sub := RandomSubdomain(s.Zone)
			msg := &dns.Msg{}
			msg.SetQuestion(dns.Fqdn(sub), dns.TypeA)
			msg.RecursionDesired = true

			qctx, cancel := context.WithTimeout(ctx, s.queryTimeout())
			resp, _, err := s.Transport.Exchange(qctx, normalizeServer(resolver), msg)
			cancel()
			if err != nil || resp == nil {
				s.Logger.Debug("resolver did not answer",
					zap.String("resolver", resolver), zap.Error(err))
				continue
			}

			addr, err := resolverAddr(resolver)
			if err != nil {
				continue
			}
			samples = append(samples, Sample{Subdomain: sub, Resolver: addr})
		}
	}

	return samples, nil
}

func (s *DirectSampler) queryTimeout() time.Duration {
	if s.Timeout <= 0 {
		return 2 * time.Second
	}
	return s.Timeout
}

// SystemResolvers returns the resolvers the OS is configured with.
func SystemResolvers() ([]string, error) {
	cfg, err := dns.ClientConfigFromFile("/etc/resolv.conf")
	if err != nil {
		return nil, err
	}
	return cfg.Servers, nil
}

// normalizeServer appends the default DNS port if none is present.
func normalizeServer(server string) string {
	if server == "" {
		return server
	}
	if strings.HasPrefix(server, "[") {
		if strings.Contains(server, "]:") {
			return server
		}
		return server + ":53"
	}
	if _, _, err := net.SplitHostPort(server); err == nil {
		return server
	}
	if strings.Contains(server, ":") {
		return "[" + server + "]:53"
	}
	return server + ":53"
}

// resolverAddr parses a resolver spec ("1.2.3.4", "1.2.3.4:53", "[::1]:53")
// into its address.
func resolverAddr(server string) (netip.Addr, error) {
	if ap, err := netip.ParseAddrPort(normalizeServer(server)); err == nil {
		return ap.Addr(), nil
	}
	return netip.ParseAddr(strings.Trim(server, "[]"))
}
