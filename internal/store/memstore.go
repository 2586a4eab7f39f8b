package store

import (
	"context"
	"sync"

	"github.com/fieldcert/fieldcert/internal/cert"
)

// MemStore is an in-memory cert.Store for tests.
//
// It honors the same conditional-write semantics as the SQLite store under a
// single mutex, so concurrency tests exercise real lost-update behavior
// without touching disk. Fault-injection fields let tests force specific
// failure paths (e.g. insertion failing after a successful claim CAS).
type MemStore struct {
	mu          sync.Mutex
	batches     map[string]cert.Batch
	inspections map[string]cert.Inspection
	credentials map[string]cert.Credential

	// InsertInspectionErr, when set, is returned by InsertInspection.
	InsertInspectionErr error

	// InsertCredentialErr, when set, is returned by InsertCredential.
	InsertCredentialErr error

	// WriteAnchorErr, when set, is returned by WriteAnchor.
	WriteAnchorErr error

	// AnchorWrites counts WriteAnchor calls that actually applied.
	AnchorWrites int
}

var _ cert.Store = (*MemStore)(nil)

// NewMemStore creates an empty in-memory store.
func NewMemStore() *MemStore {
	return &MemStore{
		batches:     make(map[string]cert.Batch),
		inspections: make(map[string]cert.Inspection),
		credentials: make(map[string]cert.Credential),
	}
}

// InsertBatch inserts a batch, rejecting duplicate ids and tracking tokens.
func (m *MemStore) InsertBatch(_ context.Context, b cert.Batch) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.batches[b.ID]; ok {
		return &cert.Error{Code: cert.ErrCodeDuplicateRecord, Message: "duplicate batch id", BatchID: b.ID}
	}
	for _, existing := range m.batches {
		if existing.TrackingToken == b.TrackingToken {
			return &cert.Error{Code: cert.ErrCodeDuplicateRecord, Message: "duplicate tracking token", BatchID: b.ID}
		}
	}
	m.batches[b.ID] = b
	return nil
}

// GetBatch returns a batch by id.
func (m *MemStore) GetBatch(_ context.Context, id string) (cert.Batch, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	b, ok := m.batches[id]
	if !ok {
		return cert.Batch{}, cert.NewBatchNotFoundError(id)
	}
	return b, nil
}

// UpdateBatchStatus is a compare-and-swap on the batch status.
func (m *MemStore) UpdateBatchStatus(_ context.Context, id string, from, to cert.BatchStatus) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	b, ok := m.batches[id]
	if !ok || b.Status != from {
		return false, nil
	}
	b.Status = to
	m.batches[id] = b
	return true, nil
}

// InsertInspection inserts an inspection, enforcing at most one active
// inspection per batch.
func (m *MemStore) InsertInspection(_ context.Context, ins cert.Inspection) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.InsertInspectionErr != nil {
		return m.InsertInspectionErr
	}
	for _, existing := range m.inspections {
		if existing.BatchID == ins.BatchID && existing.Status.Active() {
			return &cert.Error{
				Code:    cert.ErrCodeDuplicateRecord,
				Message: "active inspection already exists",
				BatchID: ins.BatchID,
			}
		}
	}
	if _, ok := m.inspections[ins.ID]; ok {
		return &cert.Error{Code: cert.ErrCodeDuplicateRecord, Message: "duplicate inspection id", BatchID: ins.BatchID}
	}
	m.inspections[ins.ID] = ins
	return nil
}

// GetInspection returns an inspection by id.
func (m *MemStore) GetInspection(_ context.Context, id string) (cert.Inspection, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	ins, ok := m.inspections[id]
	if !ok {
		return cert.Inspection{}, &cert.Error{Code: cert.ErrCodeInspectionNotFound, Message: "inspection not found"}
	}
	return ins, nil
}

// UpdateInspectionStatus is a compare-and-swap on the inspection status.
func (m *MemStore) UpdateInspectionStatus(_ context.Context, id string, from, to cert.InspectionStatus) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	ins, ok := m.inspections[id]
	if !ok || ins.Status != from {
		return false, nil
	}
	ins.Status = to
	m.inspections[id] = ins
	return true, nil
}

// Inspections returns all inspections for a batch (test helper).
func (m *MemStore) Inspections(batchID string) []cert.Inspection {
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []cert.Inspection
	for _, ins := range m.inspections {
		if ins.BatchID == batchID {
			out = append(out, ins)
		}
	}
	return out
}

// InsertCredential inserts a credential.
func (m *MemStore) InsertCredential(_ context.Context, c cert.Credential) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.InsertCredentialErr != nil {
		return m.InsertCredentialErr
	}
	if _, ok := m.credentials[c.ID]; ok {
		return &cert.Error{Code: cert.ErrCodeDuplicateRecord, Message: "duplicate credential id", CredentialID: c.ID}
	}
	m.credentials[c.ID] = c
	return nil
}

// GetCredential returns a credential by id.
func (m *MemStore) GetCredential(_ context.Context, id string) (cert.Credential, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	c, ok := m.credentials[id]
	if !ok {
		return cert.Credential{}, cert.NewCredentialNotFoundError(id)
	}
	return c, nil
}

// SealContentHash sets the content hash only if currently unset.
func (m *MemStore) SealContentHash(_ context.Context, id, hash string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	c, ok := m.credentials[id]
	if !ok || c.ContentHash != "" {
		return false, nil
	}
	c.ContentHash = hash
	m.credentials[id] = c
	return true, nil
}

// WriteAnchor records anchor metadata only if the credential is unanchored.
func (m *MemStore) WriteAnchor(_ context.Context, id string, a cert.AnchorInfo) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.WriteAnchorErr != nil {
		return false, m.WriteAnchorErr
	}
	c, ok := m.credentials[id]
	if !ok || c.Anchor.Anchored() {
		return false, nil
	}
	c.Anchor = a
	m.credentials[id] = c
	m.AnchorWrites++
	return true, nil
}
