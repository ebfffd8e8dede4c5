package dnsleak

import (
	"context"
	"errors"
	"net"
	"net/http"
	"net/http/httptest"
	"testing"
)

const leakReportJSON = `[
  {"type":"dns","ip":"74.125.190.1","country_name":"United States","asn":"Google LLC"},
  {"type":"dns","ip":"91.12.1.1","country_name":"Germany","asn":"Deutsche Telekom AG"},
  {"type":"ip","ip":"203.0.113.9","country_name":"Switzerland","asn":"Proton AG"},
  {"type":"dns","ip":"not-an-ip"},
  {"type":"conclusion","ip":"DNS may be leaking."}
]`

func TestParseLeakReport(t *testing.T) {
	samples, err := parseLeakReport([]byte(leakReportJSON))
	if err != nil {
		t.Fatal(err)
	}
	if len(samples) != 2 {
		t.Fatalf("expected 2 dns entries, got %d", len(samples))
	}
	if samples[0].Resolver.String() != "74.125.190.1" || samples[0].ISP != "Google LLC" {
		t.Fatalf("unexpected first sample: %+v", samples[0])
	}
	if samples[1].Country != "Germany" {
		t.Fatalf("unexpected second sample: %+v", samples[1])
	}
}

func TestParseLeakReportMalformed(t *testing.T) {
	if _, err := parseLeakReport([]byte("<html>busy</html>")); err == nil {
		t.Fatal("expected error for non-JSON report")
	}
}

// offlineResolver fails every lookup immediately. The service sampler only
// needs the recursive query attempt, not its result.
func offlineResolver() *net.Resolver {
	return &net.Resolver{
		PreferGo: true,
		Dial: func(context.Context, string, string) (net.Conn, error) {
			return nil, errors.New("no network")
		},
	}
}

func TestServiceSamplerFullPass(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/id", func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte("abc123\n"))
	})
	mux.HandleFunc("/dnsleak/test/abc123", func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte(leakReportJSON))
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	s := NewServiceSampler(srv.URL, "bash.ws", 2, nil)
	s.Resolver = offlineResolver()

	samples, err := s.Sample(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if len(samples) != 2 {
		t.Fatalf("expected 2 samples, got %d", len(samples))
	}
}

func TestServiceSamplerUnreachableService(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	s := NewServiceSampler(srv.URL, "bash.ws", 1, nil)
	s.Resolver = offlineResolver()

	if _, err := s.Sample(context.Background()); err == nil {
		t.Fatal("expected error when the service is unavailable")
	}
}

func TestServiceSamplerEmptyID(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte("  \n"))
	}))
	defer srv.Close()

	s := NewServiceSampler(srv.URL, "bash.ws", 1, nil)
	if _, err := s.Sample(context.Background()); err == nil {
		t.Fatal("expected error for empty test id")
	}
}
