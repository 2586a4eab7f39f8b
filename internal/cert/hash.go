package cert

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// Domain prefixes for content-addressed digests.
// Version suffix enables future algorithm migration.
const (
	DomainCredential = "fieldcert/credential/v1"
	DomainMockTx     = "fieldcert/mocktx/v1"
)

// HashWithDomain computes SHA-256 with domain separation.
// Format: SHA256(domain + 0x00 + data); the null byte prevents domain/data
// boundary ambiguity.
func HashWithDomain(domain string, data []byte) string {
	h := sha256.New()
	h.Write([]byte(domain))
	h.Write([]byte{0x00})
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}

// ContentHash computes the digest of a credential's content: canonical JSON
// bytes hashed under the credential domain, rendered as lowercase hex.
//
// Pure: no clock, no randomness; identical content always yields the same
// digest regardless of how the Content map was built.
func ContentHash(c Content) (string, error) {
	canonical, err := MarshalCanonical(c)
	if err != nil {
		return "", fmt.Errorf("content hash: %w", err)
	}
	return HashWithDomain(DomainCredential, canonical), nil
}

// MustContentHash is like ContentHash but panics on error.
// Use only in tests or when content is known to be canonicalizable.
func MustContentHash(c Content) string {
	digest, err := ContentHash(c)
	if err != nil {
		panic(err)
	}
	return digest
}
