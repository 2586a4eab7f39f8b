package cert

import "context"

// Store is the transactional record store the core mutates through.
//
// Every write affecting an invariant is conditional: conditional updates are
// keyed on the expected prior value and report whether they applied, never
// blindly overwriting. Losers of a conditional write observe applied=false
// with a nil error and must re-read to see the post-state. Contention is
// scoped to a single row; unrelated batches and credentials never contend.
//
// Implemented by the SQLite store (internal/store) and the in-memory store
// used in tests.
type Store interface {
	// InsertBatch inserts a new batch. The tracking token is unique; a
	// duplicate token returns an error.
	InsertBatch(ctx context.Context, b Batch) error

	// GetBatch returns the batch or a BATCH_NOT_FOUND error.
	GetBatch(ctx context.Context, id string) (Batch, error)

	// UpdateBatchStatus is a compare-and-swap on the status field: it applies
	// only if the current status is exactly from. Returns (false, nil) when
	// the precondition did not hold, including when the batch doesn't exist.
	UpdateBatchStatus(ctx context.Context, id string, from, to BatchStatus) (bool, error)

	// InsertInspection inserts a new inspection. At most one active
	// inspection may exist per batch; violating that uniqueness returns an
	// error.
	InsertInspection(ctx context.Context, ins Inspection) error

	// GetInspection returns the inspection or an INSPECTION_NOT_FOUND error.
	GetInspection(ctx context.Context, id string) (Inspection, error)

	// UpdateInspectionStatus is a compare-and-swap on the inspection status.
	UpdateInspectionStatus(ctx context.Context, id string, from, to InspectionStatus) (bool, error)

	// InsertCredential inserts a new credential with unsealed hash and no
	// anchor metadata.
	InsertCredential(ctx context.Context, c Credential) error

	// GetCredential returns the credential or a CREDENTIAL_NOT_FOUND error.
	GetCredential(ctx context.Context, id string) (Credential, error)

	// SealContentHash sets the content hash only if it is currently unset.
	// Returns (false, nil) if a hash is already sealed.
	SealContentHash(ctx context.Context, id, hash string) (bool, error)

	// WriteAnchor records anchor metadata only if the credential is not yet
	// anchored. Returns (false, nil) when another writer anchored first; the
	// caller must re-read and mirror the committed metadata.
	WriteAnchor(ctx context.Context, id string, a AnchorInfo) (bool, error)
}
