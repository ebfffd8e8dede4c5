package dnsleak

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/netip"
	"strings"
	"time"

	"go.uber.org/zap"
)

// ServiceSampler uses a leak-test web service (the bash.ws protocol): fetch
// a test id, resolve numbered subdomains of <id>.<zone> through the system
// resolver, then fetch the report naming the recursors that reached the
// service's authoritative name servers. Unlike the direct sampler this sees
// the real upstream recursor even behind a local forwarder, and the report
// already attributes each recursor to an ISP.
type ServiceSampler struct {
	BaseURL  string
	Zone     string
	Count    int
	Client   *http.Client
	Resolver *net.Resolver
	Logger   *zap.Logger
}

// NewServiceSampler creates a sampler for the leak-test service at baseURL.
func NewServiceSampler(baseURL, zone string, count int, logger *zap.Logger) *ServiceSampler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ServiceSampler{
		BaseURL:  strings.TrimSuffix(baseURL, "/"),
		Zone:     strings.TrimSuffix(zone, "."),
		Count:    count,
		Client:   http.DefaultClient,
		Resolver: net.DefaultResolver,
		Logger:   logger,
	}
}

// Sample runs one full leak-test pass.
func (s *ServiceSampler) Sample(ctx context.Context) ([]Sample, error) {
	id, err := s.fetchID(ctx)
	if err != nil {
		return nil, fmt.Errorf("fetch leak test id: %w", err)
	}

	count := s.Count
	if count <= 0 {
		count = 10
	}

	// Trigger resolutions through whatever resolver the OS is using. The
	// lookups are expected to fail; only the recursive query matters.
	for i := 0; i < count; i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		host := fmt.Sprintf("%d.%s.%s", i, id, s.Zone)
		s.Resolver.LookupHost(ctx, host)

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(100 * time.Millisecond):
		}
	}

	body, err := s.get(ctx, fmt.Sprintf("%s/dnsleak/test/%s?json", s.BaseURL, id))
	if err != nil {
		return nil, fmt.Errorf("fetch leak test report: %w", err)
	}

	samples, err := parseLeakReport(body)
	if err != nil {
		return nil, fmt.Errorf("parse leak test report: %w", err)
	}
	return samples, nil
}

func (s *ServiceSampler) fetchID(ctx context.Context) (string, error) {
	body, err := s.get(ctx, s.BaseURL+"/id")
	if err != nil {
		return "", err
	}
	id := strings.TrimSpace(string(body))
	if id == "" {
		return "", fmt.Errorf("empty leak test id")
	}
	return id, nil
}

func (s *ServiceSampler) get(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	resp, err := s.Client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status: %s", resp.Status)
	}
	return io.ReadAll(resp.Body)
}

// leakReportEntry mirrors one entry of the service's JSON report. Entries
// of type "dns" are the detected recursors; "ip" is the client's egress,
// "conclusion" a human-readable verdict. Only "dns" entries matter here.
type leakReportEntry struct {
	Type        string `json:"type"`
	IP          string `json:"ip"`
	CountryName string `json:"country_name"`
	ASN         string `json:"asn"`
}

func parseLeakReport(data []byte) ([]Sample, error) {
	var entries []leakReportEntry
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, err
	}

	var samples []Sample
	for _, e := range entries {
		if e.Type != "dns" {
			continue
		}
		addr, err := netip.ParseAddr(e.IP)
		if err != nil {
			continue
		}
		samples = append(samples, Sample{
			Resolver: addr,
			Country:  e.CountryName,
			ISP:      e.ASN,
		})
	}
	return samples, nil
}
