package cert

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// UnmarshalContent parses stored canonical JSON back into Content.
//
// Numbers are decoded via json.Number and converted to int64 to avoid float64
// precision loss for values above 2^53; non-integer numbers are rejected,
// mirroring MarshalCanonical's float prohibition.
func UnmarshalContent(data []byte) (Content, error) {
	if len(data) == 0 || bytes.Equal(data, []byte("{}")) {
		return Content{}, nil
	}

	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var raw map[string]any
	if err := dec.Decode(&raw); err != nil {
		return nil, fmt.Errorf("unmarshal content: %w", err)
	}

	converted, err := convertDecoded(raw)
	if err != nil {
		return nil, fmt.Errorf("unmarshal content: %w", err)
	}
	return Content(converted.(map[string]any)), nil
}

func convertDecoded(v any) (any, error) {
	switch val := v.(type) {
	case nil:
		return nil, fmt.Errorf("null is forbidden in content")
	case json.Number:
		n, err := val.Int64()
		if err != nil {
			return nil, fmt.Errorf("non-integer number %q in content", val.String())
		}
		return n, nil
	case string, bool:
		return val, nil
	case []any:
		out := make([]any, len(val))
		for i, elem := range val {
			c, err := convertDecoded(elem)
			if err != nil {
				return nil, fmt.Errorf("[%d]: %w", i, err)
			}
			out[i] = c
		}
		return out, nil
	case map[string]any:
		out := make(map[string]any, len(val))
		for k, elem := range val {
			c, err := convertDecoded(elem)
			if err != nil {
				return nil, fmt.Errorf("[%q]: %w", k, err)
			}
			out[k] = c
		}
		return out, nil
	default:
		return nil, fmt.Errorf("unsupported type in content: %T", v)
	}
}
