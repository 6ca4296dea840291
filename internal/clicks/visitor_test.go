package clicks

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestVisitorHashIsDeterministic(t *testing.T) {
	h1 := VisitorHash("1.2.3.4", "abcdef0123456789")
	h2 := VisitorHash("1.2.3.4", "abcdef0123456789")
	assert.Equal(t, h1, h2)
}

func TestVisitorHashDiffersByIPOrUA(t *testing.T) {
	base := VisitorHash("1.2.3.4", "ua1")
	assert.NotEqual(t, base, VisitorHash("5.6.7.8", "ua1"))
	assert.NotEqual(t, base, VisitorHash("1.2.3.4", "ua2"))
}
