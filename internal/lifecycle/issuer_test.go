package lifecycle

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fieldcert/fieldcert/internal/cert"
	"github.com/fieldcert/fieldcert/internal/store"
	"github.com/fieldcert/fieldcert/internal/testutil"
)

func newTestIssuer(s *store.MemStore) *Issuer {
	m := NewMachine(s, NewNotifier(), nil)
	return NewIssuer(s, m, testutil.NewSeqGenerator("cred"), testNow, nil)
}

func TestIssueCredential_Success(t *testing.T) {
	s := store.NewMemStore()
	iss := newTestIssuer(s)
	ctx := context.Background()

	seedBatch(t, s, "b-1", cert.BatchInspected)

	content := cert.Content{"grade": "A", "organic": true}
	c, err := iss.IssueCredential(ctx, "b-1", "authority-1", content)
	require.NoError(t, err)
	assert.Equal(t, "cred-1", c.ID)
	assert.Equal(t, "b-1", c.BatchID)
	assert.Equal(t, "authority-1", c.AuthorityID)
	assert.Equal(t, testNow(), c.IssuedAt)

	b, err := s.GetBatch(ctx, "b-1")
	require.NoError(t, err)
	assert.Equal(t, cert.BatchCertified, b.Status)

	got, err := s.GetCredential(ctx, "cred-1")
	require.NoError(t, err)
	assert.Equal(t, content, got.Content)
	assert.Empty(t, got.ContentHash, "hash is sealed by the anchor service, not at issuance")
}

func TestIssueCredential_BatchNotInspected(t *testing.T) {
	s := store.NewMemStore()
	iss := newTestIssuer(s)
	ctx := context.Background()

	seedBatch(t, s, "b-1", cert.BatchSubmitted)

	_, err := iss.IssueCredential(ctx, "b-1", "authority-1", cert.Content{"grade": "A"})
	assert.True(t, cert.IsInvalidTransition(err), "expected INVALID_TRANSITION, got %v", err)

	b, err := s.GetBatch(ctx, "b-1")
	require.NoError(t, err)
	assert.Equal(t, cert.BatchSubmitted, b.Status, "failed issuance must not move the batch")
}

func TestIssueCredential_RejectsUncanonicalizableContent(t *testing.T) {
	s := store.NewMemStore()
	iss := newTestIssuer(s)
	ctx := context.Background()

	seedBatch(t, s, "b-1", cert.BatchInspected)

	_, err := iss.IssueCredential(ctx, "b-1", "authority-1", cert.Content{"moisture": 11.5})
	require.Error(t, err)
	assert.Equal(t, cert.ErrCodeInvalidTransition, cert.CodeOf(err))

	// Content was rejected before the certify edge ran.
	b, err := s.GetBatch(ctx, "b-1")
	require.NoError(t, err)
	assert.Equal(t, cert.BatchInspected, b.Status)
}

func TestIssueCredential_CompensatesOnInsertFailure(t *testing.T) {
	s := store.NewMemStore()
	iss := newTestIssuer(s)
	ctx := context.Background()

	seedBatch(t, s, "b-1", cert.BatchInspected)
	s.InsertCredentialErr = assert.AnError

	_, err := iss.IssueCredential(ctx, "b-1", "authority-1", cert.Content{"grade": "A"})
	require.Error(t, err)
	assert.Equal(t, cert.ErrCodeCertifyFailed, cert.CodeOf(err))

	// The compensating revert put the batch back; a retry can certify it.
	b, err := s.GetBatch(ctx, "b-1")
	require.NoError(t, err)
	assert.Equal(t, cert.BatchInspected, b.Status)

	s.InsertCredentialErr = nil
	c, err := iss.IssueCredential(ctx, "b-1", "authority-1", cert.Content{"grade": "A"})
	require.NoError(t, err)

	got, err := s.GetBatch(ctx, "b-1")
	require.NoError(t, err)
	assert.Equal(t, cert.BatchCertified, got.Status)
	assert.Equal(t, "b-1", c.BatchID)
}
