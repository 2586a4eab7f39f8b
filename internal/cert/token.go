package cert

import (
	"fmt"

	"github.com/google/uuid"
)

// TokenGenerator generates unique identifiers for new records.
// Implemented by UUIDv7Generator (production) and testutil.FixedGenerator.
type TokenGenerator interface {
	Generate() string
}

// UUIDv7Generator generates time-sortable UUIDv7 identifiers.
//
// UUIDv7 embeds a timestamp in the most significant bits, so record IDs sort
// by creation time. Stateless and safe for concurrent use.
type UUIDv7Generator struct{}

// Generate creates a new UUIDv7 as a hyphenated string.
// Panics if UUID generation fails (should never happen in practice).
func (UUIDv7Generator) Generate() string {
	return uuid.Must(uuid.NewV7()).String()
}

// TrackingToken derives the human-shareable tracking token for a batch.
// Format: "FC-" plus the first 12 hex characters of a domain-separated hash
// of the batch ID, uppercased. Short enough to read over the phone, unique
// because the batch ID is.
func TrackingToken(batchID string) string {
	digest := HashWithDomain("fieldcert/tracking/v1", []byte(batchID))
	token := digest[:12]
	upper := make([]byte, len(token))
	for i := 0; i < len(token); i++ {
		c := token[i]
		if c >= 'a' && c <= 'f' {
			c -= 'a' - 'A'
		}
		upper[i] = c
	}
	return fmt.Sprintf("FC-%s", upper)
}
