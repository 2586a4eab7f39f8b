package anchor

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fieldcert/fieldcert/internal/cert"
	"github.com/fieldcert/fieldcert/internal/store"
	"github.com/fieldcert/fieldcert/internal/testutil"
)

var anchorNow = testutil.FixedTime(time.Date(2026, 8, 15, 10, 0, 0, 0, time.UTC))

// fakeLedger is a scriptable LedgerClient.
type fakeLedger struct {
	txRef     string
	height    int64
	submitErr error
	heightErr error
	submits   int
}

func (f *fakeLedger) SubmitTransaction(_ context.Context, _ []byte) (string, error) {
	f.submits++
	if f.submitErr != nil {
		return "", f.submitErr
	}
	return f.txRef, nil
}

func (f *fakeLedger) BlockHeight(_ context.Context) (int64, error) {
	if f.heightErr != nil {
		return 0, f.heightErr
	}
	return f.height, nil
}

func seedCredential(t *testing.T, s *store.MemStore, id string, content cert.Content) {
	t.Helper()
	err := s.InsertCredential(context.Background(), cert.Credential{
		ID:          id,
		BatchID:     "b-1",
		AuthorityID: "authority-1",
		Content:     content,
		IssuedAt:    anchorNow(),
	})
	require.NoError(t, err)
}

func TestSealHash(t *testing.T) {
	s := store.NewMemStore()
	svc := NewService(s, nil, "", anchorNow, nil)
	ctx := context.Background()

	content := cert.Content{"grade": "A", "organic": true}
	seedCredential(t, s, "c-1", content)

	digest, err := svc.SealHash(ctx, "c-1")
	require.NoError(t, err)
	assert.Equal(t, cert.MustContentHash(content), digest)

	// Re-sealing identical content is a no-op returning the same digest.
	again, err := svc.SealHash(ctx, "c-1")
	require.NoError(t, err)
	assert.Equal(t, digest, again)
}

func TestSealHash_MismatchFails(t *testing.T) {
	s := store.NewMemStore()
	svc := NewService(s, nil, "", anchorNow, nil)
	ctx := context.Background()

	seedCredential(t, s, "c-1", cert.Content{"grade": "A"})

	// Seal a hash that doesn't match the content, as if the content were
	// tampered with after sealing.
	applied, err := s.SealContentHash(ctx, "c-1", strings.Repeat("0", 64))
	require.NoError(t, err)
	require.True(t, applied)

	_, err = svc.SealHash(ctx, "c-1")
	require.Error(t, err)
	assert.Equal(t, cert.ErrCodeHashSealed, cert.CodeOf(err))
}

func TestAnchor_MockMode(t *testing.T) {
	s := store.NewMemStore()
	svc := NewService(s, nil, "", anchorNow, nil)
	ctx := context.Background()

	require.True(t, svc.MockMode())
	seedCredential(t, s, "c-1", cert.Content{"grade": "A"})

	info, err := svc.Anchor(ctx, "c-1")
	require.NoError(t, err)
	assert.Equal(t, MockNetwork, info.Network)
	assert.True(t, strings.HasSuffix(info.Network, "-testnet"))
	assert.True(t, info.Mock)
	assert.True(t, strings.HasPrefix(info.TxRef, "0x"))
	assert.Len(t, info.TxRef, 2+64)
	assert.Greater(t, info.BlockHeight, int64(0))
	assert.Equal(t, anchorNow(), info.AnchoredAt)

	// Anchoring also sealed the hash.
	c, err := s.GetCredential(ctx, "c-1")
	require.NoError(t, err)
	assert.Equal(t, cert.MustContentHash(c.Content), c.ContentHash)
}

func TestAnchor_Idempotent(t *testing.T) {
	s := store.NewMemStore()
	svc := NewService(s, nil, "", anchorNow, nil)
	ctx := context.Background()

	seedCredential(t, s, "c-1", cert.Content{"grade": "A"})

	first, err := svc.Anchor(ctx, "c-1")
	require.NoError(t, err)

	second, err := svc.Anchor(ctx, "c-1")
	require.NoError(t, err)
	assert.Equal(t, first, second, "second anchor must return the committed metadata unchanged")
	assert.Equal(t, 1, s.AnchorWrites, "anchor metadata is written exactly once")
}

func TestAnchor_MockRefsDoNotCollide(t *testing.T) {
	s := store.NewMemStore()
	ctx := context.Background()

	// Identical content in two credentials must still get distinct tx refs.
	// Each anchor runs in its own freshly built service, the way two separate
	// CLI invocations over a shared database would.
	content := cert.Content{"grade": "A"}
	seedCredential(t, s, "c-1", content)
	seedCredential(t, s, "c-2", content)

	a, err := NewService(s, nil, "", anchorNow, nil).Anchor(ctx, "c-1")
	require.NoError(t, err)
	b, err := NewService(s, nil, "", anchorNow, nil).Anchor(ctx, "c-2")
	require.NoError(t, err)
	assert.NotEqual(t, a.TxRef, b.TxRef)
	assert.NotEqual(t, a.BlockHeight, b.BlockHeight)
}

func TestMockAnchorDeterministic(t *testing.T) {
	now := anchorNow()
	a := mockAnchor("c-1", "digest", now)
	b := mockAnchor("c-1", "digest", now)
	assert.Equal(t, a, b, "same credential and digest must synthesize identical metadata")

	other := mockAnchor("c-2", "digest", now)
	assert.NotEqual(t, a.TxRef, other.TxRef)
}

// anchorRaceStore lands a competing anchor between the caller's idempotency
// pre-check and its conditional write.
type anchorRaceStore struct {
	*store.MemStore
	winner cert.AnchorInfo
}

func (r *anchorRaceStore) WriteAnchor(ctx context.Context, id string, a cert.AnchorInfo) (bool, error) {
	if _, err := r.MemStore.WriteAnchor(ctx, id, r.winner); err != nil {
		return false, err
	}
	return r.MemStore.WriteAnchor(ctx, id, a)
}

func TestAnchor_RaceLoserMirrorsWinner(t *testing.T) {
	mem := store.NewMemStore()
	winner := cert.AnchorInfo{
		Network:     MockNetwork,
		TxRef:       "0x" + strings.Repeat("ab", 32),
		BlockHeight: mockBlockBase + 99,
		AnchoredAt:  anchorNow(),
		Mock:        true,
	}
	svc := NewService(&anchorRaceStore{MemStore: mem, winner: winner}, nil, "", anchorNow, nil)
	ctx := context.Background()

	seedCredential(t, mem, "c-1", cert.Content{"grade": "A"})

	info, err := svc.Anchor(ctx, "c-1")
	require.NoError(t, err)
	assert.Equal(t, winner, info, "loser must return the winner's committed metadata")
	assert.Equal(t, 1, mem.AnchorWrites, "the loser's conditional write must not apply")
}

// sealRaceStore lands a competing seal between the caller's unsealed check and
// its conditional write.
type sealRaceStore struct {
	*store.MemStore
	winnerHash string
}

func (r *sealRaceStore) SealContentHash(ctx context.Context, id, hash string) (bool, error) {
	if _, err := r.MemStore.SealContentHash(ctx, id, r.winnerHash); err != nil {
		return false, err
	}
	return r.MemStore.SealContentHash(ctx, id, hash)
}

func TestSealHash_RaceLoserMirrorsWinner(t *testing.T) {
	mem := store.NewMemStore()
	content := cert.Content{"grade": "A"}
	digest := cert.MustContentHash(content)
	svc := NewService(&sealRaceStore{MemStore: mem, winnerHash: digest}, nil, "", anchorNow, nil)
	ctx := context.Background()

	seedCredential(t, mem, "c-1", content)

	got, err := svc.SealHash(ctx, "c-1")
	require.NoError(t, err)
	assert.Equal(t, digest, got)

	c, err := mem.GetCredential(ctx, "c-1")
	require.NoError(t, err)
	assert.Equal(t, digest, c.ContentHash, "exactly one seal committed")
}

func TestSealHash_RaceLoserRejectsMismatchedWinner(t *testing.T) {
	mem := store.NewMemStore()
	content := cert.Content{"grade": "A"}
	svc := NewService(&sealRaceStore{MemStore: mem, winnerHash: strings.Repeat("f", 64)}, nil, "", anchorNow, nil)
	ctx := context.Background()

	seedCredential(t, mem, "c-1", content)

	_, err := svc.SealHash(ctx, "c-1")
	require.Error(t, err)
	assert.Equal(t, cert.ErrCodeHashSealed, cert.CodeOf(err))
}

func TestAnchor_RealLedger(t *testing.T) {
	s := store.NewMemStore()
	ledger := &fakeLedger{txRef: "0xabc123", height: 7_654_321}
	svc := NewService(s, ledger, "ledger-main", anchorNow, nil)
	ctx := context.Background()

	require.False(t, svc.MockMode())
	seedCredential(t, s, "c-1", cert.Content{"grade": "A"})

	info, err := svc.Anchor(ctx, "c-1")
	require.NoError(t, err)
	assert.Equal(t, "ledger-main", info.Network)
	assert.Equal(t, "0xabc123", info.TxRef)
	assert.Equal(t, int64(7_654_321), info.BlockHeight)
	assert.False(t, info.Mock)
	assert.Equal(t, 1, ledger.submits)

	// Idempotent: no second ledger call.
	_, err = svc.Anchor(ctx, "c-1")
	require.NoError(t, err)
	assert.Equal(t, 1, ledger.submits)
}

func TestAnchor_TransportErrorPersistsNothing(t *testing.T) {
	s := store.NewMemStore()
	ledger := &fakeLedger{submitErr: transportError("ledger unreachable", nil)}
	svc := NewService(s, ledger, "ledger-main", anchorNow, nil)
	ctx := context.Background()

	seedCredential(t, s, "c-1", cert.Content{"grade": "A"})

	_, err := svc.Anchor(ctx, "c-1")
	require.Error(t, err)
	assert.True(t, cert.IsAnchorTransport(err), "expected ANCHOR_TRANSPORT, got %v", err)
	assert.Equal(t, 0, s.AnchorWrites)

	c, err := s.GetCredential(ctx, "c-1")
	require.NoError(t, err)
	assert.False(t, c.Anchor.Anchored(), "failed submission must leave no anchor metadata")

	// A configured ledger never falls back to the mock.
	assert.False(t, svc.MockMode())

	// Retry succeeds once the ledger recovers.
	ledger.submitErr = nil
	ledger.txRef = "0xdef456"
	ledger.height = 7_700_000
	info, err := svc.Anchor(ctx, "c-1")
	require.NoError(t, err)
	assert.Equal(t, "0xdef456", info.TxRef)
}

func TestAnchor_PersistFailureSurfaces(t *testing.T) {
	s := store.NewMemStore()
	svc := NewService(s, nil, "", anchorNow, nil)
	ctx := context.Background()

	seedCredential(t, s, "c-1", cert.Content{"grade": "A"})
	s.WriteAnchorErr = assert.AnError

	_, err := svc.Anchor(ctx, "c-1")
	require.Error(t, err)
	assert.True(t, cert.IsAnchorPersist(err), "expected ANCHOR_PERSIST, got %v", err)
}

func TestAnchor_MissingCredential(t *testing.T) {
	s := store.NewMemStore()
	svc := NewService(s, nil, "", anchorNow, nil)

	_, err := svc.Anchor(context.Background(), "nope")
	assert.True(t, cert.IsNotFound(err), "expected not-found, got %v", err)
}
