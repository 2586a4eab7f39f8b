package lifecycle

import (
	"context"
	"log/slog"
	"time"

	"github.com/fieldcert/fieldcert/internal/cert"
)

// Issuer creates credentials for inspected batches.
//
// Issuance mirrors the arbiter's claim shape: a conditional transition
// (Inspected -> Certified) followed by insertion of the credential, with a
// compensating revert if the insert fails. The credential starts with an
// unsealed hash and no anchor metadata; sealing and anchoring are the anchor
// service's job.
type Issuer struct {
	store   cert.Store
	machine *Machine
	ids     cert.TokenGenerator
	now     func() time.Time
	logger  *slog.Logger
}

// NewIssuer creates an Issuer driving the given machine.
func NewIssuer(store cert.Store, machine *Machine, ids cert.TokenGenerator, now func() time.Time, logger *slog.Logger) *Issuer {
	if now == nil {
		now = time.Now
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Issuer{store: store, machine: machine, ids: ids, now: now, logger: logger}
}

// IssueCredential certifies an inspected batch and records its credential.
// The authority id is explicit context, not ambient session state.
func (i *Issuer) IssueCredential(ctx context.Context, batchID, authorityID string, content cert.Content) (cert.Credential, error) {
	// Validate the content canonicalizes before touching the batch; a
	// credential that can never be hashed should never certify anything.
	if _, err := cert.MarshalCanonical(content); err != nil {
		return cert.Credential{}, &cert.Error{
			Code:    cert.ErrCodeInvalidTransition,
			Message: "credential content is not canonicalizable",
			BatchID: batchID,
			Err:     err,
		}
	}

	applied, err := i.machine.certifyBatch(ctx, batchID)
	if err != nil {
		return cert.Credential{}, err
	}
	if !applied {
		b, getErr := i.store.GetBatch(ctx, batchID)
		if getErr != nil {
			return cert.Credential{}, getErr
		}
		return cert.Credential{}, cert.NewInvalidTransitionError(batchID, b.Status, cert.BatchCertified)
	}

	c := cert.Credential{
		ID:          i.ids.Generate(),
		BatchID:     batchID,
		AuthorityID: authorityID,
		Content:     content,
		IssuedAt:    i.now(),
	}

	if err := i.store.InsertCredential(ctx, c); err != nil {
		reverted, revertErr := i.machine.revertCertify(ctx, batchID)
		if revertErr != nil {
			i.logger.Error("certify compensation failed; batch certified without credential",
				"batch", batchID, "error", revertErr)
		} else if !reverted {
			i.logger.Error("certify compensation lost its conditional write", "batch", batchID)
		}
		return cert.Credential{}, &cert.Error{
			Code:    cert.ErrCodeCertifyFailed,
			Message: "credential insert failed; certification rolled back",
			BatchID: batchID,
			Err:     err,
		}
	}

	i.logger.Info("credential issued",
		"batch", batchID, "credential", c.ID, "authority", authorityID)
	return c, nil
}
