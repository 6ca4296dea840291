package clicks

import (
	"fmt"

	"github.com/cespare/xxhash/v2"
	uaparser "github.com/ua-parser/uap-go/uaparser"

	"github.com/shortlinker/shortlinker/internal/models"
)

// uaParser is process-global: uap-go's regex database load is expensive
// enough that building one per request would dominate flush latency.
var uaParser = uaparser.NewFromSaved()

// HashUserAgent reduces a raw user-agent string to a stable 16-hex-digit
// key (xxhash64), the form persisted on click_logs rows and used as the
// user_agents dictionary's primary key. Hashing instead of storing the raw
// string on every row keeps click_logs narrow; the full string is kept
// once, in user_agents.
func HashUserAgent(raw string) string {
	return fmt.Sprintf("%016x", xxhash.Sum64String(raw))
}

// ParseUserAgent builds a UserAgentRecord from a raw user-agent string and
// its precomputed hash. FirstSeen/LastSeen are left zero for the caller to
// fill in, since this function doesn't know whether the hash is new.
func ParseUserAgent(hash, raw string) models.UserAgentRecord {
	client := uaParser.Parse(raw)
	return models.UserAgentRecord{
		Hash:            hash,
		UserAgentString: raw,
		BrowserName:     client.UserAgent.Family,
		BrowserVersion:  versionString(client.UserAgent.Major, client.UserAgent.Minor, client.UserAgent.Patch),
		OSName:          client.Os.Family,
		OSVersion:       versionString(client.Os.Major, client.Os.Minor, client.Os.Patch),
		DeviceCategory:  deviceCategory(client.Device.Family),
		DeviceVendor:    client.Device.Brand,
		IsBot:           isBotFamily(client.UserAgent.Family),
	}
}

func versionString(major, minor, patch string) string {
	v := major
	if minor != "" {
		v += "." + minor
	}
	if patch != "" {
		v += "." + patch
	}
	return v
}

func deviceCategory(family string) string {
	switch family {
	case "Other", "":
		return "desktop"
	case "Spider":
		return "bot"
	default:
		return "mobile"
	}
}

func isBotFamily(family string) bool {
	return family == "Spider" || family == "Bot"
}
