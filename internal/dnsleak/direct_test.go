package dnsleak

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/miekg/dns"
	"go.uber.org/zap"
)

// scriptedTransport answers for the listed servers and fails for the rest.
type scriptedTransport struct {
	answering map[string]bool
	queries   []string
}

func (t *scriptedTransport) Exchange(_ context.Context, server string, msg *dns.Msg) (*dns.Msg, time.Duration, error) {
	t.queries = append(t.queries, msg.Question[0].Name)
	if !t.answering[server] {
		return nil, 0, errors.New("i/o timeout")
	}
	resp := &dns.Msg{}
	resp.SetRcode(msg, dns.RcodeNameError) // NXDOMAIN still proves the path
	return resp, 0, nil
}

func TestDirectSamplerCollectsAnsweringResolvers(t *testing.T) {
	tr := &scriptedTransport{answering: map[string]bool{"9.9.9.9:53": true}}
	s := &DirectSampler{
		Zone:      "example.org",
		Count:     3,
		Resolvers: []string{"9.9.9.9", "10.0.0.1"},
		Transport: tr,
		Logger:    zap.NewNop(),
	}

	samples, err := s.Sample(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if len(samples) != 3 {
		t.Fatalf("expected 3 samples from the answering resolver, got %d", len(samples))
	}
	for _, sm := range samples {
		if sm.Resolver.String() != "9.9.9.9" {
			t.Fatalf("unexpected resolver %s", sm.Resolver)
		}
	}
	// Every query used a fresh subdomain.
	seen := make(map[string]bool)
	for _, q := range tr.queries {
		if seen[q] {
			t.Fatalf("subdomain %q reused", q)
		}
		seen[q] = true
	}
}

func TestDirectSamplerNoResolversConfigured(t *testing.T) {
	s := &DirectSampler{
		Zone:      "example.org",
		Count:     1,
		Resolvers: []string{"10.0.0.1"},
		Transport: &scriptedTransport{answering: map[string]bool{}},
		Logger:    zap.NewNop(),
	}

	samples, err := s.Sample(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if len(samples) != 0 {
		t.Fatalf("expected no samples when nothing answers, got %d", len(samples))
	}
}

func TestDirectSamplerHonorsContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	s := &DirectSampler{
		Zone:      "example.org",
		Count:     5,
		Resolvers: []string{"9.9.9.9"},
		Transport: &scriptedTransport{answering: map[string]bool{"9.9.9.9:53": true}},
		Logger:    zap.NewNop(),
	}

	if _, err := s.Sample(ctx); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context error, got %v", err)
	}
}

func TestNormalizeServer(t *testing.T) {
	cases := map[string]string{
		"9.9.9.9":          "9.9.9.9:53",
		"9.9.9.9:5353":     "9.9.9.9:5353",
		"2620:fe::fe":      "[2620:fe::fe]:53",
		"[2620:fe::fe]":    "[2620:fe::fe]:53",
		"[2620:fe::fe]:53": "[2620:fe::fe]:53",
		"":                 "",
	}
	for in, want := range cases {
		if got := normalizeServer(in); got != want {
			t.Errorf("normalizeServer(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestResolverAddr(t *testing.T) {
	for _, in := range []string{"9.9.9.9", "9.9.9.9:53", "[2620:fe::fe]:53", "2620:fe::fe"} {
		if _, err := resolverAddr(in); err != nil {
			t.Errorf("resolverAddr(%q): %v", in, err)
		}
	}
	if _, err := resolverAddr("not-an-address"); err == nil {
		t.Error("expected error for invalid address")
	}
}
