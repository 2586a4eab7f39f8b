package anchor

import (
	"strconv"
	"time"

	"github.com/fieldcert/fieldcert/internal/cert"
)

// MockNetwork is the network identifier recorded for mock anchors.
// The "-testnet" suffix is the documented downstream marker distinguishing
// mock anchors from real ones; the Mock flag on AnchorInfo is the first-class
// signal.
const MockNetwork = "fieldcert-testnet"

// mockBlockBase keeps synthesized block heights in a plausible range.
const mockBlockBase = 4_200_000

// mockAnchor synthesizes deterministic anchor metadata for a credential when
// no ledger backend is configured.
//
// The pseudo transaction reference is a domain-separated hash over the
// credential id and the digest. Seeding with the credential id keeps refs
// collision-free across credentials with identical content, including
// anchors made by separate processes over the same store.
func mockAnchor(credentialID, digest string, now time.Time) cert.AnchorInfo {
	seed := credentialID + ":" + digest
	ref := cert.HashWithDomain(cert.DomainMockTx, []byte(seed))

	// The ref's first 24 bits offset the base so heights vary per credential
	// but stay plausible. The hex slice of a sha256 digest always parses.
	offset, _ := strconv.ParseInt(ref[:6], 16, 64)

	return cert.AnchorInfo{
		Network:     MockNetwork,
		TxRef:       "0x" + ref,
		BlockHeight: mockBlockBase + offset,
		AnchoredAt:  now,
		Mock:        true,
	}
}
