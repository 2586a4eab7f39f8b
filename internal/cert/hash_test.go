package cert

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestContentHashDeterminism(t *testing.T) {
	content := Content{
		"product":  "arabica coffee",
		"origin":   "Huila",
		"quantity": int64(500),
	}

	h1, err := ContentHash(content)
	require.NoError(t, err)
	h2, err := ContentHash(content)
	require.NoError(t, err)

	assert.Equal(t, h1, h2, "ContentHash must be deterministic")
	assert.Len(t, h1, 64, "SHA-256 hex is 64 characters")
	assert.Equal(t, h1, MustContentHash(content))
}

func TestContentHashOrderIndependent(t *testing.T) {
	a := Content{}
	a["x"] = "1"
	a["y"] = "2"

	b := Content{}
	b["y"] = "2"
	b["x"] = "1"

	assert.Equal(t, MustContentHash(a), MustContentHash(b),
		"identical content must hash identically regardless of construction order")
}

func TestContentHashChangesWithAnyField(t *testing.T) {
	base := Content{"product": "mango", "quantity": int64(40)}
	h := MustContentHash(base)

	assert.NotEqual(t, h, MustContentHash(Content{"product": "mango", "quantity": int64(41)}))
	assert.NotEqual(t, h, MustContentHash(Content{"product": "papaya", "quantity": int64(40)}))
	assert.NotEqual(t, h, MustContentHash(Content{"product": "mango"}))
}

func TestContentHashLowercaseHex(t *testing.T) {
	h := MustContentHash(Content{"k": "v"})
	for _, c := range h {
		ok := (c >= '0' && c <= '9') || (c >= 'a' && c <= 'f')
		assert.True(t, ok, "digest must be lowercase hex, got %q", c)
	}
}

func TestHashWithDomainSeparation(t *testing.T) {
	data := []byte("payload")
	assert.NotEqual(t,
		HashWithDomain(DomainCredential, data),
		HashWithDomain(DomainMockTx, data),
		"different domains must produce different digests for the same data")
}

func TestContentHashErrorsOnBadContent(t *testing.T) {
	_, err := ContentHash(Content{"weight": 1.5})
	assert.Error(t, err)
}
