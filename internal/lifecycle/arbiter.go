package lifecycle

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/fieldcert/fieldcert/internal/cert"
)

// Arbiter enforces at-most-one-claim-per-batch semantics for inspection
// assignment.
//
// A claim is a single atomic conditional transition on the batch record
// (Submitted -> UnderInspection, applied only if the prior status was exactly
// Submitted), followed by insertion of the inspection. Under concurrent
// claims for the same batch exactly one conditional write is accepted; losers
// observe the post-state and fail cleanly with ALREADY_CLAIMED. The
// inspection is inserted only after the conditional write is confirmed, so a
// lost claim never leaves an orphaned inspection.
type Arbiter struct {
	store   cert.Store
	machine *Machine
	ids     cert.TokenGenerator
	now     func() time.Time
	logger  *slog.Logger
}

// NewArbiter creates an Arbiter driving the given machine.
// A nil now defaults to time.Now; a nil logger disables logging.
func NewArbiter(store cert.Store, machine *Machine, ids cert.TokenGenerator, now func() time.Time, logger *slog.Logger) *Arbiter {
	if now == nil {
		now = time.Now
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Arbiter{store: store, machine: machine, ids: ids, now: now, logger: logger}
}

// ClaimForInspection claims the batch for the given inspecting party.
//
// On success the batch is UnderInspection and exactly one new Pending
// inspection exists. On a lost race the error is ALREADY_CLAIMED; on a batch
// that was never claimable (Draft, Rejected) the error is INVALID_TRANSITION;
// on an inspection-insert failure the batch status is reverted and the error
// is CLAIM_FAILED.
func (a *Arbiter) ClaimForInspection(ctx context.Context, batchID, claimantID string) (cert.Inspection, error) {
	applied, err := a.machine.claimBatch(ctx, batchID)
	if err != nil {
		return cert.Inspection{}, err
	}
	if !applied {
		return cert.Inspection{}, a.classifyLostClaim(ctx, batchID)
	}

	now := a.now()
	ins := cert.Inspection{
		ID:          a.ids.Generate(),
		BatchID:     batchID,
		InspectorID: claimantID,
		Status:      cert.InspectionPending,
		ScheduledAt: now,
		CreatedAt:   now,
	}

	if err := a.store.InsertInspection(ctx, ins); err != nil {
		// Compensate: the batch must not sit in UnderInspection without an
		// inspection. The revert is itself conditional, so a transition that
		// happened in between is left alone.
		reverted, revertErr := a.machine.revertClaim(ctx, batchID)
		if revertErr != nil {
			a.logger.Error("claim compensation failed; batch may be stuck under inspection",
				"batch", batchID, "claimant", claimantID, "error", revertErr)
		} else if !reverted {
			a.logger.Error("claim compensation lost its conditional write",
				"batch", batchID, "claimant", claimantID)
		}
		return cert.Inspection{}, &cert.Error{
			Code:    cert.ErrCodeClaimFailed,
			Message: "inspection insert failed; claim rolled back",
			BatchID: batchID,
			Err:     err,
		}
	}

	a.logger.Info("batch claimed for inspection",
		"batch", batchID, "claimant", claimantID, "inspection", ins.ID)
	return ins, nil
}

// classifyLostClaim turns a lost claim CAS into the right error: the batch
// may not exist, may already be claimed (or further along), or may never have
// been claimable.
func (a *Arbiter) classifyLostClaim(ctx context.Context, batchID string) error {
	b, err := a.store.GetBatch(ctx, batchID)
	if err != nil {
		return err
	}
	switch b.Status {
	case cert.BatchDraft, cert.BatchRejected:
		return cert.NewInvalidTransitionError(batchID, b.Status, cert.BatchUnderInspection)
	default:
		// UnderInspection, Inspected, Certified - and Submitted, which means
		// a competing claim was compensated between our CAS and this read.
		// All contention from the caller's perspective.
		return cert.NewAlreadyClaimedError(batchID)
	}
}

// StartInspection moves a pending inspection to in-progress.
func (a *Arbiter) StartInspection(ctx context.Context, inspectionID string) error {
	applied, err := a.store.UpdateInspectionStatus(ctx, inspectionID, cert.InspectionPending, cert.InspectionInProgress)
	if err != nil {
		return err
	}
	if !applied {
		return a.inspectionStateError(ctx, inspectionID, "start")
	}
	return nil
}

// CompleteInspection finishes an inspection and drives the batch forward:
// pass transitions the batch to Inspected, fail to Rejected.
//
// The batch edge is applied first - it carries the lifecycle invariant - and
// the inspection record is closed after it commits.
func (a *Arbiter) CompleteInspection(ctx context.Context, inspectionID string, passed bool) error {
	ins, err := a.store.GetInspection(ctx, inspectionID)
	if err != nil {
		return err
	}
	if !ins.Status.Active() {
		return &cert.Error{
			Code:    cert.ErrCodeInvalidTransition,
			Message: fmt.Sprintf("inspection already %s", ins.Status),
			BatchID: ins.BatchID,
		}
	}

	event := EventPass
	if !passed {
		event = EventFail
	}
	if err := a.machine.apply(ctx, ins.BatchID, event); err != nil {
		return err
	}

	applied, err := a.store.UpdateInspectionStatus(ctx, inspectionID, ins.Status, cert.InspectionCompleted)
	if err != nil {
		return err
	}
	if !applied {
		// The batch already moved; record the mismatch loudly rather than
		// guessing at a rollback for an edge the graph doesn't have.
		a.logger.Error("inspection close lost its conditional write after batch transition",
			"inspection", inspectionID, "batch", ins.BatchID)
		return a.inspectionStateError(ctx, inspectionID, "complete")
	}

	a.logger.Info("inspection completed",
		"inspection", inspectionID, "batch", ins.BatchID, "passed", passed)
	return nil
}

// CancelInspection cancels a pending or in-progress inspection and returns
// the batch to the claimable pool via the compensating claim edge.
//
// The inspection closes first so the freed slot and the batch revert never
// race a new claim into a uniqueness violation.
func (a *Arbiter) CancelInspection(ctx context.Context, inspectionID string) error {
	ins, err := a.store.GetInspection(ctx, inspectionID)
	if err != nil {
		return err
	}

	cancelled := false
	for _, from := range []cert.InspectionStatus{cert.InspectionPending, cert.InspectionInProgress} {
		applied, err := a.store.UpdateInspectionStatus(ctx, inspectionID, from, cert.InspectionCancelled)
		if err != nil {
			return err
		}
		if applied {
			cancelled = true
			break
		}
	}
	if !cancelled {
		return a.inspectionStateError(ctx, inspectionID, "cancel")
	}

	reverted, err := a.machine.revertClaim(ctx, ins.BatchID)
	if err != nil {
		return err
	}
	if !reverted {
		a.logger.Error("batch revert lost its conditional write after cancellation",
			"inspection", inspectionID, "batch", ins.BatchID)
	}
	a.logger.Info("inspection cancelled", "inspection", inspectionID, "batch", ins.BatchID)
	return nil
}

func (a *Arbiter) inspectionStateError(ctx context.Context, inspectionID, op string) error {
	ins, err := a.store.GetInspection(ctx, inspectionID)
	if err != nil {
		return err
	}
	return &cert.Error{
		Code:    cert.ErrCodeInvalidTransition,
		Message: fmt.Sprintf("cannot %s inspection in status %s", op, ins.Status),
		BatchID: ins.BatchID,
	}
}
