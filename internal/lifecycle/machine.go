package lifecycle

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/fieldcert/fieldcert/internal/cert"
)

// Event names a batch lifecycle transition trigger.
type Event string

const (
	// EventSubmit moves a draft batch into the claimable pool.
	EventSubmit Event = "submit"

	// EventClaim assigns an inspecting party. Only the claim arbiter may
	// trigger this edge; Apply rejects it.
	EventClaim Event = "claim"

	// EventPass records a passed inspection.
	EventPass Event = "pass"

	// EventFail records a failed inspection.
	EventFail Event = "fail"

	// EventCertify records credential issuance. Only the issuer may trigger
	// this edge; Apply rejects it.
	EventCertify Event = "certify"

	// eventClaimRevert is the compensating edge used when inspection
	// insertion fails after a successful claim. Internal only.
	eventClaimRevert Event = "claim_revert"

	// eventCertifyRevert is the compensating edge used when credential
	// insertion fails after a successful certify. Internal only.
	eventCertifyRevert Event = "certify_revert"
)

// ParseEvent converts an external event name into an Event.
// Only externally triggerable events parse; claim and certify are driven by
// their owning components.
func ParseEvent(s string) (Event, error) {
	switch Event(s) {
	case EventSubmit, EventPass, EventFail:
		return Event(s), nil
	case EventClaim:
		return "", fmt.Errorf("event %q must go through ClaimForInspection", s)
	case EventCertify:
		return "", fmt.Errorf("event %q must go through IssueCredential", s)
	default:
		return "", fmt.Errorf("unknown event %q", s)
	}
}

// edge is one legal transition in the lifecycle graph.
type edge struct {
	from, to cert.BatchStatus
}

// graph is the complete lifecycle transition graph. Any (event, status) pair
// not listed here is illegal. Terminal states (Certified, Rejected) have no
// outgoing edges; a batch never re-enters Submitted except through the
// arbiter's compensation path.
var graph = map[Event]edge{
	EventSubmit:        {from: cert.BatchDraft, to: cert.BatchSubmitted},
	EventClaim:         {from: cert.BatchSubmitted, to: cert.BatchUnderInspection},
	EventPass:          {from: cert.BatchUnderInspection, to: cert.BatchInspected},
	EventFail:          {from: cert.BatchUnderInspection, to: cert.BatchRejected},
	EventCertify:       {from: cert.BatchInspected, to: cert.BatchCertified},
	eventClaimRevert:   {from: cert.BatchUnderInspection, to: cert.BatchSubmitted},
	eventCertifyRevert: {from: cert.BatchCertified, to: cert.BatchInspected},
}

// Transition is a committed status change, published to subscribers after the
// store write applied. Seq is a monotonic per-process sequence for ordering.
type Transition struct {
	BatchID string
	Event   Event
	From    cert.BatchStatus
	To      cert.BatchStatus
	Seq     int64
}

// Machine validates and applies batch status transitions.
//
// The machine is the sole writer of the status field: every component that
// needs a transition calls through it, so the legality check is never
// bypassed. Each transition is a single conditional write (compare-and-swap
// on the expected prior status) against the record store - the machine never
// reads-then-writes, so concurrent callers cannot interleave a stale update.
type Machine struct {
	store    cert.Store
	clock    *cert.Clock
	notifier *Notifier
	logger   *slog.Logger
}

// NewMachine creates a Machine over the given store.
// A nil logger disables logging.
func NewMachine(store cert.Store, notifier *Notifier, logger *slog.Logger) *Machine {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Machine{
		store:    store,
		clock:    cert.NewClock(),
		notifier: notifier,
		logger:   logger,
	}
}

// Apply validates and applies an externally triggered transition.
//
// Claim and certify edges are rejected here: claims go through the arbiter
// (which must also create the inspection record) and certification goes
// through the issuer (which must also create the credential). Everything else
// resolves against the graph; an illegal edge fails with INVALID_TRANSITION
// naming the current and attempted status, leaving the batch unchanged.
func (m *Machine) Apply(ctx context.Context, batchID string, event Event) error {
	switch event {
	case EventClaim, eventClaimRevert:
		return &cert.Error{
			Code:    cert.ErrCodeInvalidTransition,
			Message: "claims must go through ClaimForInspection",
			BatchID: batchID,
		}
	case EventCertify, eventCertifyRevert:
		return &cert.Error{
			Code:    cert.ErrCodeInvalidTransition,
			Message: "certification must go through IssueCredential",
			BatchID: batchID,
		}
	}
	return m.apply(ctx, batchID, event)
}

// apply performs the conditional write for any graph edge and publishes the
// committed transition. Used by Apply and by the arbiter/issuer for their
// reserved edges.
func (m *Machine) apply(ctx context.Context, batchID string, event Event) error {
	e, ok := graph[event]
	if !ok {
		return &cert.Error{
			Code:    cert.ErrCodeInvalidTransition,
			Message: fmt.Sprintf("unknown event %q", event),
			BatchID: batchID,
		}
	}

	applied, err := m.store.UpdateBatchStatus(ctx, batchID, e.from, e.to)
	if err != nil {
		return fmt.Errorf("apply %s: %w", event, err)
	}
	if !applied {
		// The conditional write lost. Re-read for the real current status so
		// the error names it; the batch itself is untouched.
		b, getErr := m.store.GetBatch(ctx, batchID)
		if getErr != nil {
			return getErr
		}
		return cert.NewInvalidTransitionError(batchID, b.Status, e.to)
	}

	t := Transition{
		BatchID: batchID,
		Event:   event,
		From:    e.from,
		To:      e.to,
		Seq:     m.clock.Next(),
	}
	m.logger.Info("batch transition",
		"batch", batchID, "event", string(event),
		"from", string(e.from), "to", string(e.to), "seq", t.Seq)
	m.notifier.publish(t)
	return nil
}

// claimBatch performs the Submitted -> UnderInspection conditional write on
// behalf of the arbiter. Returns (false, nil) when the CAS lost; the arbiter
// classifies the loss.
func (m *Machine) claimBatch(ctx context.Context, batchID string) (bool, error) {
	return m.casAndPublish(ctx, batchID, EventClaim)
}

// revertClaim is the arbiter's compensating action: UnderInspection back to
// Submitted after inspection insertion failed.
func (m *Machine) revertClaim(ctx context.Context, batchID string) (bool, error) {
	return m.casAndPublish(ctx, batchID, eventClaimRevert)
}

// certifyBatch performs the Inspected -> Certified conditional write on
// behalf of the issuer.
func (m *Machine) certifyBatch(ctx context.Context, batchID string) (bool, error) {
	return m.casAndPublish(ctx, batchID, EventCertify)
}

// revertCertify is the issuer's compensating action after credential
// insertion failed.
func (m *Machine) revertCertify(ctx context.Context, batchID string) (bool, error) {
	return m.casAndPublish(ctx, batchID, eventCertifyRevert)
}

func (m *Machine) casAndPublish(ctx context.Context, batchID string, event Event) (bool, error) {
	e := graph[event]
	applied, err := m.store.UpdateBatchStatus(ctx, batchID, e.from, e.to)
	if err != nil {
		return false, fmt.Errorf("apply %s: %w", event, err)
	}
	if !applied {
		return false, nil
	}

	t := Transition{
		BatchID: batchID,
		Event:   event,
		From:    e.from,
		To:      e.to,
		Seq:     m.clock.Next(),
	}
	m.logger.Info("batch transition",
		"batch", batchID, "event", string(event),
		"from", string(e.from), "to", string(e.to), "seq", t.Seq)
	m.notifier.publish(t)
	return true, nil
}
