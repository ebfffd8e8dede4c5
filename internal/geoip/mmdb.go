package geoip

import (
	"fmt"
	"net"
	"net/netip"
	"strings"

	"github.com/oschwald/maxminddb-golang"
)

// Enricher attributes addresses using local GeoLite2 Country/ASN databases.
// Both databases are optional; lookups against a missing database simply
// report no answer.
type Enricher struct {
	country *maxminddb.Reader
	asn     *maxminddb.Reader
}

// OpenEnricher opens the configured mmdb files. Empty paths are skipped.
func OpenEnricher(countryDB, asnDB string) (*Enricher, error) {
	e := &Enricher{}

	if countryDB != "" {
		r, err := maxminddb.Open(countryDB)
		if err != nil {
			return nil, fmt.Errorf("open country db: %w", err)
		}
		e.country = r
	}
	if asnDB != "" {
		r, err := maxminddb.Open(asnDB)
		if err != nil {
			if e.country != nil {
				e.country.Close()
			}
			return nil, fmt.Errorf("open asn db: %w", err)
		}
		e.asn = r
	}
	return e, nil
}

// Close releases the database readers.
func (e *Enricher) Close() {
	if e == nil {
		return
	}
	if e.country != nil {
		e.country.Close()
	}
	if e.asn != nil {
		e.asn.Close()
	}
}

type countryRecord struct {
	Country struct {
		ISOCode string `maxminddb:"iso_code"`
	} `maxminddb:"country"`
	RegisteredCountry struct {
		ISOCode string `maxminddb:"iso_code"`
	} `maxminddb:"registered_country"`
}

type asnRecord struct {
	Organization string `maxminddb:"autonomous_system_organization"`
}

// Country returns the ISO country code for an address.
func (e *Enricher) Country(addr netip.Addr) (string, bool) {
	if e == nil || e.country == nil || !addr.IsValid() {
		return "", false
	}

	var rec countryRecord
	if err := e.country.Lookup(net.IP(addr.Unmap().AsSlice()), &rec); err != nil {
		return "", false
	}
	code := strings.TrimSpace(rec.Country.ISOCode)
	if code == "" {
		code = strings.TrimSpace(rec.RegisteredCountry.ISOCode)
	}
	if code == "" {
		return "", false
	}
	return strings.ToUpper(code), true
}

// ASNOrg returns the autonomous system organization owning an address,
// which in practice names the ISP.
func (e *Enricher) ASNOrg(addr netip.Addr) (string, bool) {
	if e == nil || e.asn == nil || !addr.IsValid() {
		return "", false
	}

	var rec asnRecord
	if err := e.asn.Lookup(net.IP(addr.Unmap().AsSlice()), &rec); err != nil {
		return "", false
	}
	if rec.Organization == "" {
		return "", false
	}
	return rec.Organization, true
}
