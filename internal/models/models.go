// Package models holds the data types shared across the storage, cache,
// redirect and click-analytics layers.
package models

import "time"

// ShortLink is the system's central record: a short code mapped to a
// target URL, with optional expiry and password protection.
type ShortLink struct {
	Code        string     `json:"code"`
	Target      string     `json:"target"`
	CreatedAt   time.Time  `json:"created_at"`
	ExpiresAt   *time.Time `json:"expires_at,omitempty"`
	Password    string     `json:"-"`
	ClickCount  int64      `json:"click_count"`
}

// IsExpired reports whether the link has an expiry in the past relative to now.
func (l *ShortLink) IsExpired(now time.Time) bool {
	return l.ExpiresAt != nil && !l.ExpiresAt.After(now)
}

// HasPassword reports whether the link requires a password to redirect.
func (l *ShortLink) HasPassword() bool {
	return l.Password != ""
}

// ListFilter narrows a List call against the storage gateway.
type ListFilter struct {
	CreatedBefore *time.Time
	CreatedAfter  *time.Time
	OnlyExpired   bool
	OnlyActive    bool
	Query         string // LIKE-matched against code and target
	Page          int
	PageSize      int
}

// BulkUpsertMode controls conflict handling for BulkUpsert.
type BulkUpsertMode int

const (
	SkipExisting BulkUpsertMode = iota
	Overwrite
)

// ClickDetail is a single click event, produced on the redirect hot path
// and consumed by the click pipeline's aggregator.
type ClickDetail struct {
	Code        string
	Timestamp   time.Time
	Referrer    string
	UserAgent   string // raw string on ingress; replaced by its hash at flush
	IP          string
	Country     string
	City        string
	Source      string // utm_source, "ref:<domain>", or "direct"
}

// UserAgentRecord is a row in the user_agents dictionary table.
type UserAgentRecord struct {
	Hash            string
	UserAgentString string
	FirstSeen       time.Time
	LastSeen        time.Time
	BrowserName     string
	BrowserVersion  string
	OSName          string
	OSVersion       string
	DeviceCategory  string
	DeviceVendor    string
	IsBot           bool
}

// HourlyRollup is one per-code hourly aggregate bucket.
type HourlyRollup struct {
	Code           string
	HourBucket     time.Time
	ClickCount     int64
	ReferrerCounts map[string]int64
	CountryCounts  map[string]int64
	SourceCounts   map[string]int64
}

// DailyRollup is one per-code daily aggregate bucket.
type DailyRollup struct {
	Code             string
	DayBucket        time.Time
	ClickCount       int64
	UniqueReferrers  int
	UniqueCountries  int
	TopReferrers     map[string]int64
	UniqueSources    int
	TopSources       map[string]int64
	UniqueVisitors   int
}

// GlobalHourlyRollup is the cross-link twin of HourlyRollup.
type GlobalHourlyRollup struct {
	HourBucket   time.Time
	TotalClicks  int64
	UniqueLinks  int
	TopReferrers map[string]int64
	TopCountries map[string]int64
}

// GlobalDailyRollup is the cross-link twin of DailyRollup.
type GlobalDailyRollup struct {
	DayBucket    time.Time
	TotalClicks  int64
	UniqueLinks  int
	TopReferrers map[string]int64
	TopCountries map[string]int64
}

// ConfigEntry is one row of the system_config key/value table with its
// editing metadata.
type ConfigEntry struct {
	Key             string
	Value           string
	Type            string // "string", "int", "bool", "duration", "enum"
	Default         string
	Editable        bool
	Sensitive       bool
	RequiresRestart bool
	EnumOptions     []string
}

// ConfigHistoryEntry records one mutation of a config key.
type ConfigHistoryEntry struct {
	ID        int64
	Key       string
	OldValue  *string
	NewValue  string
	ChangedAt time.Time
	ChangedBy string
}
