// Package anchor seals credential content hashes and anchors them to an
// external ledger for tamper-evidence.
//
// Both operations are idempotent: sealing is a conditional write on "hash is
// unset", anchoring on "anchor metadata is unset". Re-running either returns
// the already-committed result, so callers may retry transient failures
// freely without double-anchoring.
package anchor

import (
	"context"
	"log/slog"
	"time"

	"github.com/fieldcert/fieldcert/internal/cert"
)

// Service computes credential digests and anchors them.
//
// When ledger is nil the service runs in mock mode: anchor metadata is
// synthesized deterministically and tagged with MockNetwork. A configured
// ledger is never silently substituted by the mock - transport failures
// surface as ANCHOR_TRANSPORT so the audit trail stays honest.
type Service struct {
	store   cert.Store
	ledger  LedgerClient // nil means mock mode
	network string       // network name recorded for real anchors
	now     func() time.Time
	logger  *slog.Logger
}

// DefaultNetwork is the network name recorded for real anchors when the
// configuration doesn't name one.
const DefaultNetwork = "fieldcert-mainnet"

// NewService creates an anchor Service. Pass a nil ledger for mock mode.
// A nil now defaults to time.Now; a nil logger disables logging.
func NewService(store cert.Store, ledger LedgerClient, network string, now func() time.Time, logger *slog.Logger) *Service {
	if network == "" {
		network = DefaultNetwork
	}
	if now == nil {
		now = time.Now
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Service{
		store:   store,
		ledger:  ledger,
		network: network,
		now:     now,
		logger:  logger,
	}
}

// MockMode reports whether the service anchors against the deterministic mock
// instead of a real ledger.
func (s *Service) MockMode() bool {
	return s.ledger == nil
}

// SealHash computes and seals the credential's content hash.
//
// Sealing is write-once: if a hash is already sealed and matches the
// recomputed digest this is a no-op returning that digest; a mismatch fails
// with HASH_SEALED because content-hash pairs are immutable once set.
func (s *Service) SealHash(ctx context.Context, credentialID string) (string, error) {
	c, err := s.store.GetCredential(ctx, credentialID)
	if err != nil {
		return "", err
	}

	digest, err := cert.ContentHash(c.Content)
	if err != nil {
		return "", err
	}

	if c.ContentHash != "" {
		return s.checkSealed(c, digest)
	}

	applied, err := s.store.SealContentHash(ctx, credentialID, digest)
	if err != nil {
		return "", err
	}
	if !applied {
		// Lost a seal race; mirror whatever the winner committed.
		c, err = s.store.GetCredential(ctx, credentialID)
		if err != nil {
			return "", err
		}
		return s.checkSealed(c, digest)
	}

	s.logger.Info("credential hash sealed", "credential", credentialID, "hash", digest)
	return digest, nil
}

func (s *Service) checkSealed(c cert.Credential, digest string) (string, error) {
	if c.ContentHash != digest {
		return "", &cert.Error{
			Code:         cert.ErrCodeHashSealed,
			Message:      "sealed hash does not match recomputed digest",
			CredentialID: c.ID,
		}
	}
	return c.ContentHash, nil
}

// Anchor records the credential's digest on the ledger exactly once.
//
// If the credential already carries anchor metadata, that metadata is
// returned unchanged with no ledger call and no state mutation. Otherwise the
// digest is sealed (if needed), submitted, and persisted via a conditional
// write; a second anchor call racing past the initial idempotency check loses
// the conditional write and mirrors the winner's metadata.
func (s *Service) Anchor(ctx context.Context, credentialID string) (cert.AnchorInfo, error) {
	c, err := s.store.GetCredential(ctx, credentialID)
	if err != nil {
		return cert.AnchorInfo{}, err
	}

	// Idempotency check before any external call.
	if c.Anchor.Anchored() {
		return c.Anchor, nil
	}

	digest := c.ContentHash
	if digest == "" {
		if digest, err = s.SealHash(ctx, credentialID); err != nil {
			return cert.AnchorInfo{}, err
		}
	}

	var info cert.AnchorInfo
	if s.ledger == nil {
		info = mockAnchor(credentialID, digest, s.now())
	} else {
		if info, err = s.realAnchor(ctx, digest); err != nil {
			return cert.AnchorInfo{}, err
		}
	}

	applied, err := s.store.WriteAnchor(ctx, credentialID, info)
	if err != nil {
		// The ledger-side anchor cannot be rolled back. This is the one
		// error category that must never be quietly swallowed.
		s.logger.Error("anchor persist failed after ledger submission; manual reconciliation required",
			"credential", credentialID, "network", info.Network, "tx_ref", info.TxRef, "error", err)
		return cert.AnchorInfo{}, &cert.Error{
			Code:         cert.ErrCodeAnchorPersist,
			Message:      "anchor metadata write failed after ledger submission",
			CredentialID: credentialID,
			Err:          err,
		}
	}
	if !applied {
		// Concurrent anchor won the conditional write; return its metadata.
		c, err = s.store.GetCredential(ctx, credentialID)
		if err != nil {
			return cert.AnchorInfo{}, err
		}
		return c.Anchor, nil
	}

	s.logger.Info("credential anchored",
		"credential", credentialID, "network", info.Network,
		"tx_ref", info.TxRef, "block", info.BlockHeight, "mock", info.Mock)
	return info, nil
}

// realAnchor submits the digest to the configured ledger and reads back the
// confirming block height. Each call is bounded by the client's timeout; a
// timeout surfaces as ANCHOR_TRANSPORT and is safe to retry.
func (s *Service) realAnchor(ctx context.Context, digest string) (cert.AnchorInfo, error) {
	txRef, err := s.ledger.SubmitTransaction(ctx, []byte(digest))
	if err != nil {
		return cert.AnchorInfo{}, err
	}

	height, err := s.ledger.BlockHeight(ctx)
	if err != nil {
		return cert.AnchorInfo{}, err
	}

	return cert.AnchorInfo{
		Network:     s.network,
		TxRef:       txRef,
		BlockHeight: height,
		AnchoredAt:  s.now(),
	}, nil
}
