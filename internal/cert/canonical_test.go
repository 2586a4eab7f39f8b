package cert

import (
	"testing"

	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMarshalCanonicalGolden(t *testing.T) {
	content := Content{
		"product":  "arabica coffee",
		"origin":   "Huila",
		"grade":    "A",
		"quantity": int64(500),
		"organic":  true,
		"lots":     []any{"L1", "L2"},
		"metrics":  map[string]any{"moisture_pct": int64(11), "screen_size": int64(17)},
	}

	data, err := MarshalCanonical(content)
	require.NoError(t, err)

	g := goldie.New(t)
	g.Assert(t, "canonical_content", data)
}

func TestMarshalCanonicalOrderIndependent(t *testing.T) {
	// Same semantic content built in different insertion orders.
	a := Content{}
	a["product"] = "mango"
	a["origin"] = "Piura"
	a["quantity"] = int64(40)

	b := Content{}
	b["quantity"] = int64(40)
	b["origin"] = "Piura"
	b["product"] = "mango"

	ba, err := MarshalCanonical(a)
	require.NoError(t, err)
	bb, err := MarshalCanonical(b)
	require.NoError(t, err)

	assert.Equal(t, ba, bb, "canonical form must not depend on construction order")
}

func TestMarshalCanonicalRejectsFloats(t *testing.T) {
	_, err := MarshalCanonical(Content{"weight": 1.5})
	assert.Error(t, err)
}

func TestMarshalCanonicalRejectsNull(t *testing.T) {
	_, err := MarshalCanonical(Content{"missing": nil})
	assert.Error(t, err)
}

func TestMarshalCanonicalNoHTMLEscaping(t *testing.T) {
	data, err := MarshalCanonical(Content{"note": "a<b & c>d"})
	require.NoError(t, err)
	assert.Equal(t, `{"note":"a<b & c>d"}`, string(data))
}

func TestMarshalCanonicalEscapesControls(t *testing.T) {
	data, err := MarshalCanonical(Content{"note": "line1\nline2\ttab"})
	require.NoError(t, err)
	assert.Equal(t, `{"note":"line1\nline2\ttab"}`, string(data))
}

func TestMarshalCanonicalNFCNormalization(t *testing.T) {
	// "é" precomposed (U+00E9) vs decomposed (e + U+0301) must canonicalize
	// identically.
	composed := Content{"name": "café"}
	decomposed := Content{"name": "café"}

	a, err := MarshalCanonical(composed)
	require.NoError(t, err)
	b, err := MarshalCanonical(decomposed)
	require.NoError(t, err)

	assert.Equal(t, a, b)
}

func TestCompareUTF16SupplementaryPlane(t *testing.T) {
	// U+FF61 (halfwidth ideographic full stop) is a single code unit 0xFF61;
	// U+10000 encodes as surrogates starting 0xD800. UTF-16 ordering puts the
	// surrogate-encoded character first, opposite of UTF-8 byte order.
	assert.Equal(t, 1, compareUTF16("｡", "\U00010000"))
	assert.Equal(t, -1, compareUTF16("\U00010000", "｡"))
	assert.Equal(t, 0, compareUTF16("abc", "abc"))
	assert.Equal(t, -1, compareUTF16("ab", "abc"))
}

func TestUnmarshalContentRoundTrip(t *testing.T) {
	// Large int64 above 2^53 must survive the round trip without float64
	// precision loss.
	original := Content{
		"big":    int64(9007199254740995),
		"nested": map[string]any{"ok": true},
		"tags":   []any{"x", int64(1)},
	}

	data, err := MarshalCanonical(original)
	require.NoError(t, err)

	decoded, err := UnmarshalContent(data)
	require.NoError(t, err)
	assert.Equal(t, int64(9007199254740995), decoded["big"])

	redata, err := MarshalCanonical(decoded)
	require.NoError(t, err)
	assert.Equal(t, data, redata)
}

func TestUnmarshalContentRejectsFloats(t *testing.T) {
	_, err := UnmarshalContent([]byte(`{"weight": 1.5}`))
	assert.Error(t, err)
}
