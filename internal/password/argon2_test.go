package password

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHashVerifyRoundTrip(t *testing.T) {
	hash, err := Hash("correct horse battery staple")
	require.NoError(t, err)
	assert.True(t, IsHash(hash))

	ok, err := Verify("correct horse battery staple", hash)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestVerifyRejectsWrongPassword(t *testing.T) {
	hash, err := Hash("right")
	require.NoError(t, err)

	ok, err := Verify("wrong", hash)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestVerifyRejectsMalformedHash(t *testing.T) {
	_, err := Verify("anything", "not-a-phc-string")
	assert.Error(t, err)
}

func TestHashesAreSalted(t *testing.T) {
	h1, err := Hash("same-password")
	require.NoError(t, err)
	h2, err := Hash("same-password")
	require.NoError(t, err)
	assert.NotEqual(t, h1, h2, "two hashes of the same plaintext must differ (random salt)")
}

func TestProcessNewEmptyIsNoPassword(t *testing.T) {
	hash, err := ProcessNew("")
	require.NoError(t, err)
	assert.Empty(t, hash)
}

func TestProcessUpdateSemantics(t *testing.T) {
	existing, err := Hash("old")
	require.NoError(t, err)

	// nil means unchanged
	got, err := ProcessUpdate(nil, existing)
	require.NoError(t, err)
	assert.Equal(t, existing, got)

	// empty string means remove
	empty := ""
	got, err = ProcessUpdate(&empty, existing)
	require.NoError(t, err)
	assert.Empty(t, got)

	// non-empty gets hashed fresh
	newPw := "new-password"
	got, err = ProcessUpdate(&newPw, existing)
	require.NoError(t, err)
	assert.NotEqual(t, existing, got)
	assert.True(t, IsHash(got))
}

func TestProcessImportedPassesThroughExistingHash(t *testing.T) {
	hash, err := Hash("already-hashed")
	require.NoError(t, err)

	got, err := ProcessImported(hash)
	require.NoError(t, err)
	assert.Equal(t, hash, got)
}

func TestProcessImportedHashesPlaintext(t *testing.T) {
	got, err := ProcessImported("plaintext")
	require.NoError(t, err)
	assert.True(t, IsHash(got))
}
