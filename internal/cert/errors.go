package cert

import (
	"errors"
	"fmt"
)

// Error represents a failure detected by the lifecycle or anchoring core.
//
// The taxonomy follows how callers should react:
//   - Contention (ALREADY_CLAIMED): expected under load, caller may re-poll
//   - Validation (INVALID_TRANSITION, *_NOT_FOUND, HASH_SEALED): caller
//     mistakes, never retried
//   - Transient (ANCHOR_TRANSPORT): safe to retry with backoff; every
//     mutating operation in the core is conditional or idempotent
//   - Consistency (ANCHOR_PERSIST): the ledger side-effect succeeded but the
//     store write did not; requires manual reconciliation
type Error struct {
	// Code identifies the error category.
	Code ErrorCode

	// Message is a human-readable description.
	Message string

	// BatchID identifies the affected batch, if any.
	BatchID string

	// CredentialID identifies the affected credential, if any.
	CredentialID string

	// From and To carry the current and attempted status for
	// INVALID_TRANSITION errors.
	From, To BatchStatus

	// Err is the underlying cause, if any.
	Err error
}

// ErrorCode categorizes core errors.
type ErrorCode string

const (
	// ErrCodeAlreadyClaimed indicates another party claimed the batch first.
	ErrCodeAlreadyClaimed ErrorCode = "ALREADY_CLAIMED"

	// ErrCodeClaimFailed indicates a claim could not complete and was rolled back.
	ErrCodeClaimFailed ErrorCode = "CLAIM_FAILED"

	// ErrCodeCertifyFailed indicates credential issuance could not complete
	// and the certification was rolled back.
	ErrCodeCertifyFailed ErrorCode = "CERTIFY_FAILED"

	// ErrCodeInvalidTransition indicates an edge not present in the lifecycle graph.
	ErrCodeInvalidTransition ErrorCode = "INVALID_TRANSITION"

	// ErrCodeBatchNotFound indicates the referenced batch doesn't exist.
	ErrCodeBatchNotFound ErrorCode = "BATCH_NOT_FOUND"

	// ErrCodeInspectionNotFound indicates the referenced inspection doesn't exist.
	ErrCodeInspectionNotFound ErrorCode = "INSPECTION_NOT_FOUND"

	// ErrCodeCredentialNotFound indicates the referenced credential doesn't exist.
	ErrCodeCredentialNotFound ErrorCode = "CREDENTIAL_NOT_FOUND"

	// ErrCodeDuplicateRecord indicates an insert violated a uniqueness
	// constraint (duplicate id or tracking token).
	ErrCodeDuplicateRecord ErrorCode = "DUPLICATE_RECORD"

	// ErrCodeHashSealed indicates an attempt to overwrite an already-sealed
	// content hash with a different digest.
	ErrCodeHashSealed ErrorCode = "HASH_SEALED"

	// ErrCodeAnchorTransport indicates a network or ledger failure before any
	// metadata was persisted. Retryable.
	ErrCodeAnchorTransport ErrorCode = "ANCHOR_TRANSPORT"

	// ErrCodeAnchorPersist indicates the store write failed after a successful
	// ledger submission. The ledger side cannot be rolled back.
	ErrCodeAnchorPersist ErrorCode = "ANCHOR_PERSIST"
)

// Error implements the error interface.
func (e *Error) Error() string {
	switch {
	case e.Code == ErrCodeInvalidTransition && e.From != "" && e.To != "":
		return fmt.Sprintf("%s: %s (batch=%s, from=%s, to=%s)", e.Code, e.Message, e.BatchID, e.From, e.To)
	case e.BatchID != "":
		return fmt.Sprintf("%s: %s (batch=%s)", e.Code, e.Message, e.BatchID)
	case e.CredentialID != "":
		return fmt.Sprintf("%s: %s (credential=%s)", e.Code, e.Message, e.CredentialID)
	default:
		return fmt.Sprintf("%s: %s", e.Code, e.Message)
	}
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error {
	return e.Err
}

// CodeOf extracts the ErrorCode from an error chain.
// Returns "" if the chain contains no *Error.
func CodeOf(err error) ErrorCode {
	var ce *Error
	if errors.As(err, &ce) {
		return ce.Code
	}
	return ""
}

// IsAlreadyClaimed reports whether err is a lost-claim contention error.
func IsAlreadyClaimed(err error) bool {
	return CodeOf(err) == ErrCodeAlreadyClaimed
}

// IsInvalidTransition reports whether err is a lifecycle legality error.
func IsInvalidTransition(err error) bool {
	return CodeOf(err) == ErrCodeInvalidTransition
}

// IsNotFound reports whether err is any of the not-found validation errors.
func IsNotFound(err error) bool {
	switch CodeOf(err) {
	case ErrCodeBatchNotFound, ErrCodeInspectionNotFound, ErrCodeCredentialNotFound:
		return true
	}
	return false
}

// IsAnchorTransport reports whether err is a retryable ledger/network failure.
func IsAnchorTransport(err error) bool {
	return CodeOf(err) == ErrCodeAnchorTransport
}

// IsAnchorPersist reports whether err is an unrecoverable persist failure
// after a successful ledger submission.
func IsAnchorPersist(err error) bool {
	return CodeOf(err) == ErrCodeAnchorPersist
}

// NewAlreadyClaimedError creates a contention error for a lost claim.
func NewAlreadyClaimedError(batchID string) *Error {
	return &Error{
		Code:    ErrCodeAlreadyClaimed,
		Message: "batch already claimed for inspection",
		BatchID: batchID,
	}
}

// NewInvalidTransitionError creates a legality error naming both statuses.
func NewInvalidTransitionError(batchID string, from, to BatchStatus) *Error {
	return &Error{
		Code:    ErrCodeInvalidTransition,
		Message: fmt.Sprintf("no edge from %s to %s", from, to),
		BatchID: batchID,
		From:    from,
		To:      to,
	}
}

// NewBatchNotFoundError creates a validation error for a missing batch.
func NewBatchNotFoundError(batchID string) *Error {
	return &Error{Code: ErrCodeBatchNotFound, Message: "batch not found", BatchID: batchID}
}

// NewCredentialNotFoundError creates a validation error for a missing credential.
func NewCredentialNotFoundError(credentialID string) *Error {
	return &Error{Code: ErrCodeCredentialNotFound, Message: "credential not found", CredentialID: credentialID}
}
