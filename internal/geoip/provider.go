// Package geoip resolves the public egress identity (IP, country, ISP) via
// external IP information services, optionally enriched by offline MaxMind
// databases.
package geoip

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/netip"
	"strings"
)

// Info is the normalized answer of an IP information provider.
type Info struct {
	IP      netip.Addr
	Country string // ISO country code, e.g. "DE"
	ISP     string
}

// Provider fetches the caller's public egress identity.
type Provider interface {
	Name() string
	Fetch(ctx context.Context) (Info, error)
}

// CustomSpec configures the generic JSON provider.
type CustomSpec struct {
	URL        string
	IPKey      string
	CountryKey string
	ISPKey     string
}

// ProviderFor returns the provider selected by name. Unknown names fall
// back to ipwho.is, matching the config default.
func ProviderFor(name string, custom CustomSpec) Provider {
	switch name {
	case "ipapi":
		return &ipapiProvider{}
	case "custom":
		return &customProvider{spec: custom}
	default:
		return &ipwhoisProvider{}
	}
}

func fetchJSON(ctx context.Context, url string, v any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status: %s", resp.Status)
	}
	return json.NewDecoder(resp.Body).Decode(v)
}

type ipwhoisProvider struct{}

func (p *ipwhoisProvider) Name() string { return "ipwho.is" }

func (p *ipwhoisProvider) Fetch(ctx context.Context) (Info, error) {
	var body struct {
		Success     *bool  `json:"success"`
		Message     string `json:"message"`
		IP          string `json:"ip"`
		CountryCode string `json:"country_code"`
		ISP         string `json:"isp"`
		Connection  struct {
			ISP string `json:"isp"`
		} `json:"connection"`
	}
	if err := fetchJSON(ctx, "https://ipwho.is/?output=json", &body); err != nil {
		return Info{}, fmt.Errorf("ipwho.is: %w", err)
	}
	if body.Success != nil && !*body.Success {
		return Info{}, fmt.Errorf("ipwho.is: %s", body.Message)
	}

	isp := body.Connection.ISP
	if isp == "" {
		isp = body.ISP
	}
	addr, err := netip.ParseAddr(body.IP)
	if err != nil {
		return Info{}, fmt.Errorf("ipwho.is: bad ip %q", body.IP)
	}
	return Info{IP: addr, Country: body.CountryCode, ISP: isp}, nil
}

type ipapiProvider struct{}

func (p *ipapiProvider) Name() string { return "ip-api.com" }

func (p *ipapiProvider) Fetch(ctx context.Context) (Info, error) {
	var body struct {
		Status      string `json:"status"`
		Message     string `json:"message"`
		Query       string `json:"query"`
		CountryCode string `json:"countryCode"`
		ISP         string `json:"isp"`
	}
	url := "http://ip-api.com/json/?fields=status,message,query,countryCode,isp"
	if err := fetchJSON(ctx, url, &body); err != nil {
		return Info{}, fmt.Errorf("ip-api.com: %w", err)
	}
	if body.Status == "fail" {
		return Info{}, fmt.Errorf("ip-api.com: %s", body.Message)
	}

	addr, err := netip.ParseAddr(body.Query)
	if err != nil {
		return Info{}, fmt.Errorf("ip-api.com: bad ip %q", body.Query)
	}
	return Info{IP: addr, Country: body.CountryCode, ISP: body.ISP}, nil
}

type customProvider struct {
	spec CustomSpec
}

func (p *customProvider) Name() string { return "custom" }

func (p *customProvider) Fetch(ctx context.Context) (Info, error) {
	if p.spec.URL == "" {
		return Info{}, fmt.Errorf("custom provider: no URL configured")
	}

	var body map[string]any
	if err := fetchJSON(ctx, p.spec.URL, &body); err != nil {
		return Info{}, fmt.Errorf("custom provider: %w", err)
	}

	ipKey := p.spec.IPKey
	if ipKey == "" {
		ipKey = "ip"
	}
	countryKey := p.spec.CountryKey
	if countryKey == "" {
		countryKey = "country"
	}
	ispKey := p.spec.ISPKey
	if ispKey == "" {
		ispKey = "isp"
	}

	ipVal, _ := body[ipKey].(string)
	if ipVal == "" {
		return Info{}, fmt.Errorf("custom provider: no value under key %q", ipKey)
	}
	addr, err := netip.ParseAddr(strings.TrimSpace(ipVal))
	if err != nil {
		return Info{}, fmt.Errorf("custom provider: bad ip %q", ipVal)
	}

	country, _ := body[countryKey].(string)
	isp, _ := body[ispKey].(string)
	return Info{IP: addr, Country: country, ISP: isp}, nil
}
