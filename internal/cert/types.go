package cert

import (
	"fmt"
	"time"
)

// BatchStatus is the lifecycle status of a product batch.
//
// Transitions follow a fixed graph (see internal/lifecycle) and are monotonic:
// a batch never re-enters Submitted after a claim, and Certified/Rejected are
// terminal.
type BatchStatus string

const (
	BatchDraft           BatchStatus = "draft"
	BatchSubmitted       BatchStatus = "submitted"
	BatchUnderInspection BatchStatus = "under_inspection"
	BatchInspected       BatchStatus = "inspected"
	BatchCertified       BatchStatus = "certified"
	BatchRejected        BatchStatus = "rejected"
)

// ParseBatchStatus converts a stored string into a BatchStatus.
func ParseBatchStatus(s string) (BatchStatus, error) {
	switch BatchStatus(s) {
	case BatchDraft, BatchSubmitted, BatchUnderInspection, BatchInspected, BatchCertified, BatchRejected:
		return BatchStatus(s), nil
	default:
		return "", fmt.Errorf("unknown batch status %q", s)
	}
}

// Terminal reports whether the status admits no further transitions.
func (s BatchStatus) Terminal() bool {
	return s == BatchCertified || s == BatchRejected
}

// Batch is a product batch moving through submission, inspection, and
// credentialing. The status field is mutated only by the lifecycle machine;
// everything else is set at submission time.
type Batch struct {
	ID            string
	ProducerID    string
	Product       string
	Quantity      int64
	Unit          string
	Origin        string
	HarvestDate   time.Time
	TrackingToken string // unique, human-shareable
	Status        BatchStatus
	CreatedAt     time.Time
}

// InspectionStatus is the status of a single inspection assignment.
type InspectionStatus string

const (
	InspectionPending    InspectionStatus = "pending"
	InspectionInProgress InspectionStatus = "in_progress"
	InspectionCompleted  InspectionStatus = "completed"
	InspectionCancelled  InspectionStatus = "cancelled"
)

// ParseInspectionStatus converts a stored string into an InspectionStatus.
func ParseInspectionStatus(s string) (InspectionStatus, error) {
	switch InspectionStatus(s) {
	case InspectionPending, InspectionInProgress, InspectionCompleted, InspectionCancelled:
		return InspectionStatus(s), nil
	default:
		return "", fmt.Errorf("unknown inspection status %q", s)
	}
}

// Active reports whether the inspection is in a non-terminal state.
// A batch has at most one active inspection (enforced by the store).
func (s InspectionStatus) Active() bool {
	return s == InspectionPending || s == InspectionInProgress
}

// Inspection is one inspecting party's exclusive assignment to a batch.
// Created only by the claim arbiter.
type Inspection struct {
	ID          string
	BatchID     string
	InspectorID string
	Status      InspectionStatus
	ScheduledAt time.Time
	CreatedAt   time.Time
}

// AnchorInfo is the ledger proof recorded on a credential once its digest has
// been anchored. All fields are written together in a single conditional
// update; a zero AnchoredAt means the credential is not yet anchored.
type AnchorInfo struct {
	Network     string
	TxRef       string
	BlockHeight int64
	AnchoredAt  time.Time
	Mock        bool
}

// Anchored reports whether anchor metadata has been recorded.
func (a AnchorInfo) Anchored() bool {
	return !a.AnchoredAt.IsZero()
}

// Credential is a finalized certification record. Content is set at issuance;
// ContentHash and Anchor are write-once fields sealed by the anchor service.
type Credential struct {
	ID          string
	BatchID     string
	AuthorityID string
	Content     Content
	ContentHash string // lowercase hex SHA-256, empty until sealed
	Anchor      AnchorInfo
	IssuedAt    time.Time
}
