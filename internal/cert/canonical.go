package cert

import (
	"bytes"
	"fmt"
	"slices"
	"unicode/utf16"
	"unicode/utf8"

	"golang.org/x/text/unicode/norm"
)

// Content is the structured payload of a credential. Values are restricted to
// strings, integers, booleans, arrays, and nested objects so that the
// canonical form is total: floats and nulls have no stable canonical encoding
// and are rejected.
type Content map[string]any

// MarshalCanonical produces RFC 8785 canonical JSON for hashing.
// This is the ONLY serialization used for content-hash computation:
// semantically identical content must always hash identically regardless of
// construction order.
//
// Properties:
//  1. Object keys sorted by UTF-16 code units
//  2. No HTML escaping (< > & pass through)
//  3. Strings NFC normalized at the serialization boundary
//  4. Floats and nulls are rejected
func MarshalCanonical(c Content) ([]byte, error) {
	return canonicalValue(map[string]any(c))
}

func canonicalValue(v any) ([]byte, error) {
	switch val := v.(type) {
	case nil:
		return nil, fmt.Errorf("null is forbidden in canonical content")
	case string:
		return canonicalString(val), nil
	case bool:
		if val {
			return []byte("true"), nil
		}
		return []byte("false"), nil
	case int:
		return fmt.Appendf(nil, "%d", val), nil
	case int64:
		return fmt.Appendf(nil, "%d", val), nil
	case float64, float32:
		return nil, fmt.Errorf("floats are forbidden in canonical content: %v", val)
	case []any:
		return canonicalArray(val)
	case map[string]any:
		return canonicalObject(val)
	case Content:
		return canonicalObject(map[string]any(val))
	default:
		return nil, fmt.Errorf("unsupported type in canonical content: %T", v)
	}
}

func canonicalArray(arr []any) ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('[')
	for i, elem := range arr {
		if i > 0 {
			buf.WriteByte(',')
		}
		b, err := canonicalValue(elem)
		if err != nil {
			return nil, fmt.Errorf("array[%d]: %w", i, err)
		}
		buf.Write(b)
	}
	buf.WriteByte(']')
	return buf.Bytes(), nil
}

func canonicalObject(obj map[string]any) ([]byte, error) {
	keys := make([]string, 0, len(obj))
	for k := range obj {
		keys = append(keys, k)
	}
	// RFC 8785 requires UTF-16 code unit ordering. Go's sort.Strings compares
	// UTF-8 bytes, which orders supplementary-plane characters differently.
	slices.SortFunc(keys, compareUTF16)

	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, k := range keys {
		if i > 0 {
			buf.WriteByte(',')
		}
		buf.Write(canonicalString(k))
		buf.WriteByte(':')
		b, err := canonicalValue(obj[k])
		if err != nil {
			return nil, fmt.Errorf("key %q: %w", k, err)
		}
		buf.Write(b)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// canonicalString serializes a string per RFC 8785: NFC normalized, with only
// the quote, backslash, and control characters escaped. Unlike
// encoding/json, HTML characters and U+2028/U+2029 are NOT escaped.
func canonicalString(s string) []byte {
	normalized := norm.NFC.String(s)

	buf := make([]byte, 0, len(normalized)+2)
	buf = append(buf, '"')
	for _, r := range normalized {
		switch r {
		case '"':
			buf = append(buf, '\\', '"')
		case '\\':
			buf = append(buf, '\\', '\\')
		case '\b':
			buf = append(buf, '\\', 'b')
		case '\f':
			buf = append(buf, '\\', 'f')
		case '\n':
			buf = append(buf, '\\', 'n')
		case '\r':
			buf = append(buf, '\\', 'r')
		case '\t':
			buf = append(buf, '\\', 't')
		default:
			if r < 0x20 {
				buf = fmt.Appendf(buf, `\u%04x`, r)
			} else {
				buf = utf8.AppendRune(buf, r)
			}
		}
	}
	buf = append(buf, '"')
	return buf
}

// compareUTF16 compares strings by UTF-16 code units for RFC 8785 key
// ordering. utf16.Encode handles surrogate pair expansion.
func compareUTF16(a, b string) int {
	a16 := utf16.Encode([]rune(a))
	b16 := utf16.Encode([]rune(b))

	n := min(len(a16), len(b16))
	for i := 0; i < n; i++ {
		if a16[i] != b16[i] {
			if a16[i] < b16[i] {
				return -1
			}
			return 1
		}
	}
	switch {
	case len(a16) < len(b16):
		return -1
	case len(a16) > len(b16):
		return 1
	default:
		return 0
	}
}
