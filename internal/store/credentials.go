package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/fieldcert/fieldcert/internal/cert"
)

// InsertCredential inserts a credential with unsealed hash and no anchor
// metadata. Content is stored as canonical JSON so the stored bytes are
// exactly what the content hash covers.
func (s *Store) InsertCredential(ctx context.Context, c cert.Credential) error {
	content, err := cert.MarshalCanonical(c.Content)
	if err != nil {
		return fmt.Errorf("insert credential: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO credentials
		(id, batch_id, authority_id, content, issued_at)
		VALUES (?, ?, ?, ?, ?)
	`,
		c.ID,
		c.BatchID,
		c.AuthorityID,
		string(content),
		c.IssuedAt.UTC().Format(timeLayout),
	)
	if isUniqueViolation(err) {
		return &cert.Error{
			Code:         cert.ErrCodeDuplicateRecord,
			Message:      "duplicate credential id",
			CredentialID: c.ID,
			Err:          err,
		}
	}
	if err != nil {
		return fmt.Errorf("insert credential: %w", err)
	}
	return nil
}

// GetCredential returns a credential by id, including any sealed hash and
// anchor metadata.
func (s *Store) GetCredential(ctx context.Context, id string) (cert.Credential, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, batch_id, authority_id, content, content_hash,
		       network, tx_ref, block_height, anchored_at, mock_anchor, issued_at
		FROM credentials
		WHERE id = ?
	`, id)

	c, err := scanCredential(row)
	if errors.Is(err, sql.ErrNoRows) {
		return cert.Credential{}, cert.NewCredentialNotFoundError(id)
	}
	if err != nil {
		return cert.Credential{}, fmt.Errorf("get credential: %w", err)
	}
	return c, nil
}

// SealContentHash sets the content hash only if none is sealed yet.
// A compare-and-swap on "content_hash IS NULL": returns applied=false when a
// hash is already present, leaving it untouched (the hash is write-once).
func (s *Store) SealContentHash(ctx context.Context, id, hash string) (bool, error) {
	result, err := s.db.ExecContext(ctx, `
		UPDATE credentials SET content_hash = ?
		WHERE id = ? AND content_hash IS NULL
	`, hash, id)
	if err != nil {
		return false, fmt.Errorf("seal content hash: %w", err)
	}

	n, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("seal content hash: rows affected: %w", err)
	}
	return n > 0, nil
}

// WriteAnchor records anchor metadata in a single conditional update keyed on
// "anchored_at IS NULL". This closes the race where two anchor calls both
// passed the initial idempotency check: the second writer sees applied=false,
// re-reads, and mirrors the metadata the winner committed. All anchor fields
// are written atomically - there is no partially-anchored state.
func (s *Store) WriteAnchor(ctx context.Context, id string, a cert.AnchorInfo) (bool, error) {
	mock := 0
	if a.Mock {
		mock = 1
	}

	result, err := s.db.ExecContext(ctx, `
		UPDATE credentials
		SET network = ?, tx_ref = ?, block_height = ?, anchored_at = ?, mock_anchor = ?
		WHERE id = ? AND anchored_at IS NULL
	`,
		a.Network,
		a.TxRef,
		a.BlockHeight,
		a.AnchoredAt.UTC().Format(timeLayout),
		mock,
		id,
	)
	if err != nil {
		return false, fmt.Errorf("write anchor: %w", err)
	}

	n, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("write anchor: rows affected: %w", err)
	}
	return n > 0, nil
}

func scanCredential(row *sql.Row) (cert.Credential, error) {
	var (
		c           cert.Credential
		content     string
		contentHash sql.NullString
		network     sql.NullString
		txRef       sql.NullString
		blockHeight sql.NullInt64
		anchoredAt  sql.NullString
		mockAnchor  sql.NullInt64
		issued      string
	)
	err := row.Scan(&c.ID, &c.BatchID, &c.AuthorityID, &content, &contentHash,
		&network, &txRef, &blockHeight, &anchoredAt, &mockAnchor, &issued)
	if err != nil {
		return cert.Credential{}, err
	}

	if c.Content, err = cert.UnmarshalContent([]byte(content)); err != nil {
		return cert.Credential{}, fmt.Errorf("scan credential: %w", err)
	}
	c.ContentHash = contentHash.String

	if anchoredAt.Valid {
		at, err := time.Parse(timeLayout, anchoredAt.String)
		if err != nil {
			return cert.Credential{}, fmt.Errorf("scan credential: anchored_at: %w", err)
		}
		c.Anchor = cert.AnchorInfo{
			Network:     network.String,
			TxRef:       txRef.String,
			BlockHeight: blockHeight.Int64,
			AnchoredAt:  at,
			Mock:        mockAnchor.Int64 != 0,
		}
	}

	if c.IssuedAt, err = time.Parse(timeLayout, issued); err != nil {
		return cert.Credential{}, fmt.Errorf("scan credential: issued_at: %w", err)
	}
	return c, nil
}
