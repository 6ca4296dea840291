// Package clicks implements the click analytics pipeline: a buffered
// ingress channel, a single aggregation buffer flushed by size/time/
// explicit triggers, GeoIP and user-agent enrichment, and the hourly/daily
// rollup and retention cron jobs that run on top of it.
package clicks

import "context"

// GeoLocation is what a GeoLocator resolves an IP address to.
type GeoLocation struct {
	Country string
	City    string
}

// GeoLocator resolves an IP address to a coarse location. Two
// implementations are provided: maxmindLocator (local mmdb lookup, no
// network call) and httpLocator (external API, rate-limited via
// singleflight + TTL cache). Both satisfy the same interface so the
// aggregator is indifferent to which is configured.
type GeoLocator interface {
	Locate(ctx context.Context, ip string) (GeoLocation, error)
}

// NoopLocator always returns an empty location, used when GeoIP is
// disabled in config.
type NoopLocator struct{}

func (NoopLocator) Locate(context.Context, string) (GeoLocation, error) {
	return GeoLocation{}, nil
}
