package clicks

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	gocache "github.com/patrickmn/go-cache"
	"golang.org/x/sync/singleflight"
)

// httpLocator calls an external GeoIP API, deduplicating concurrent
// lookups for the same IP with singleflight and caching results for a
// configurable TTL (default 15m) so repeat clicks from the same visitor
// don't re-hit the external service. The cache is TTL-only
// (patrickmn/go-cache): it has no entry-count bound and no LRU eviction.
type httpLocator struct {
	baseURL string
	apiKey  string
	client  *http.Client
	cache   *gocache.Cache
	group   singleflight.Group
}

// NewHTTPLocator builds an httpLocator. baseURL is expected to accept a
// "%s" IP placeholder and an optional API key query param.
func NewHTTPLocator(baseURL, apiKey string, ttl time.Duration) *httpLocator {
	if ttl <= 0 {
		ttl = 15 * time.Minute
	}
	return &httpLocator{
		baseURL: baseURL,
		apiKey:  apiKey,
		client:  &http.Client{Timeout: 2 * time.Second},
		cache:   gocache.New(ttl, ttl),
	}
}

func (h *httpLocator) Locate(ctx context.Context, ip string) (GeoLocation, error) {
	if cached, ok := h.cache.Get(ip); ok {
		return cached.(GeoLocation), nil
	}

	result, err, _ := h.group.Do(ip, func() (interface{}, error) {
		loc, err := h.fetch(ctx, ip)
		if err != nil {
			return GeoLocation{}, err
		}
		h.cache.SetDefault(ip, loc)
		return loc, nil
	})
	if err != nil {
		return GeoLocation{}, err
	}
	return result.(GeoLocation), nil
}

func (h *httpLocator) fetch(ctx context.Context, ip string) (GeoLocation, error) {
	url := fmt.Sprintf(h.baseURL, ip)
	if h.apiKey != "" {
		url += "?key=" + h.apiKey
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return GeoLocation{}, err
	}
	resp, err := h.client.Do(req)
	if err != nil {
		return GeoLocation{}, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return GeoLocation{}, fmt.Errorf("clicks: geoip lookup for %s: status %d", ip, resp.StatusCode)
	}

	var body struct {
		Country string `json:"country_code"`
		City    string `json:"city"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return GeoLocation{}, err
	}
	return GeoLocation{Country: body.Country, City: body.City}, nil
}
