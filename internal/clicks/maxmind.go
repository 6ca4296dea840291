package clicks

import (
	"context"
	"net"

	"github.com/oschwald/geoip2-golang"
)

// maxmindLocator resolves locations from a local MaxMind GeoLite2 City
// database, avoiding a network round trip on the aggregator's flush path.
type maxmindLocator struct {
	db *geoip2.Reader
}

// NewMaxmindLocator opens the mmdb file at path. The reader is safe for
// concurrent use and is closed by Close.
func NewMaxmindLocator(path string) (*maxmindLocator, error) {
	db, err := geoip2.Open(path)
	if err != nil {
		return nil, err
	}
	return &maxmindLocator{db: db}, nil
}

func (m *maxmindLocator) Locate(_ context.Context, ip string) (GeoLocation, error) {
	parsed := net.ParseIP(ip)
	if parsed == nil {
		return GeoLocation{}, nil
	}
	record, err := m.db.City(parsed)
	if err != nil {
		return GeoLocation{}, err
	}
	loc := GeoLocation{Country: record.Country.IsoCode}
	if name, ok := record.City.Names["en"]; ok {
		loc.City = name
	}
	return loc, nil
}

// Close releases the underlying mmdb file handle.
func (m *maxmindLocator) Close() error {
	return m.db.Close()
}
