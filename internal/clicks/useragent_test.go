package clicks

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHashUserAgentIsStableAndHex(t *testing.T) {
	ua := "Mozilla/5.0 (X11; Linux x86_64) Chrome/114.0"
	h1 := HashUserAgent(ua)
	h2 := HashUserAgent(ua)
	assert.Equal(t, h1, h2)
	assert.Len(t, h1, 16)
}

func TestHashUserAgentDiffersAcrossInputs(t *testing.T) {
	assert.NotEqual(t, HashUserAgent("a"), HashUserAgent("b"))
}

func TestParseUserAgentDesktopChrome(t *testing.T) {
	raw := "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/115.0.0.0 Safari/537.36"
	rec := ParseUserAgent(HashUserAgent(raw), raw)
	assert.Equal(t, raw, rec.UserAgentString)
	assert.False(t, rec.IsBot)
}

func TestDeviceCategoryMapping(t *testing.T) {
	assert.Equal(t, "desktop", deviceCategory("Other"))
	assert.Equal(t, "desktop", deviceCategory(""))
	assert.Equal(t, "bot", deviceCategory("Spider"))
	assert.Equal(t, "mobile", deviceCategory("iPhone"))
}

func TestIsBotFamily(t *testing.T) {
	assert.True(t, isBotFamily("Spider"))
	assert.True(t, isBotFamily("Bot"))
	assert.False(t, isBotFamily("Chrome"))
}

func TestVersionString(t *testing.T) {
	assert.Equal(t, "11.2.3", versionString("11", "2", "3"))
	assert.Equal(t, "11", versionString("11", "", ""))
	assert.Equal(t, "", versionString("", "", ""))
}
