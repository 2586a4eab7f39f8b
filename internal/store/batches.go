package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/fieldcert/fieldcert/internal/cert"
)

// timeLayout is the TEXT encoding for timestamps. RFC 3339 with nanoseconds
// sorts lexicographically and round-trips exactly.
const timeLayout = time.RFC3339Nano

// InsertBatch inserts a batch record.
// The tracking token carries a UNIQUE constraint; inserting a duplicate
// token (or duplicate id) returns an error rather than silently overwriting.
func (s *Store) InsertBatch(ctx context.Context, b cert.Batch) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO batches
		(id, producer_id, product, quantity, unit, origin, harvest_date, tracking_token, status, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		b.ID,
		b.ProducerID,
		b.Product,
		b.Quantity,
		b.Unit,
		b.Origin,
		b.HarvestDate.UTC().Format(timeLayout),
		b.TrackingToken,
		string(b.Status),
		b.CreatedAt.UTC().Format(timeLayout),
	)
	if isUniqueViolation(err) {
		return &cert.Error{
			Code:    cert.ErrCodeDuplicateRecord,
			Message: "duplicate batch id or tracking token",
			BatchID: b.ID,
			Err:     err,
		}
	}
	if err != nil {
		return fmt.Errorf("insert batch: %w", err)
	}
	return nil
}

// GetBatch returns a batch by id.
func (s *Store) GetBatch(ctx context.Context, id string) (cert.Batch, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, producer_id, product, quantity, unit, origin, harvest_date, tracking_token, status, created_at
		FROM batches
		WHERE id = ?
	`, id)

	b, err := scanBatch(row)
	if errors.Is(err, sql.ErrNoRows) {
		return cert.Batch{}, cert.NewBatchNotFoundError(id)
	}
	if err != nil {
		return cert.Batch{}, fmt.Errorf("get batch: %w", err)
	}
	return b, nil
}

// GetBatchByToken returns a batch by its tracking token.
func (s *Store) GetBatchByToken(ctx context.Context, token string) (cert.Batch, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, producer_id, product, quantity, unit, origin, harvest_date, tracking_token, status, created_at
		FROM batches
		WHERE tracking_token = ?
	`, token)

	b, err := scanBatch(row)
	if errors.Is(err, sql.ErrNoRows) {
		return cert.Batch{}, cert.NewBatchNotFoundError(token)
	}
	if err != nil {
		return cert.Batch{}, fmt.Errorf("get batch by token: %w", err)
	}
	return b, nil
}

// UpdateBatchStatus performs a compare-and-swap on the status column:
// the update applies only if the current status is exactly from. Whether it
// applied is reported via RowsAffected - a loser under concurrent claims sees
// applied=false with no error and must re-read for the post-state.
func (s *Store) UpdateBatchStatus(ctx context.Context, id string, from, to cert.BatchStatus) (bool, error) {
	result, err := s.db.ExecContext(ctx, `
		UPDATE batches SET status = ?
		WHERE id = ? AND status = ?
	`, string(to), id, string(from))
	if err != nil {
		return false, fmt.Errorf("update batch status: %w", err)
	}

	n, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("update batch status: rows affected: %w", err)
	}
	return n > 0, nil
}

func scanBatch(row *sql.Row) (cert.Batch, error) {
	var (
		b         cert.Batch
		harvest   string
		created   string
		statusStr string
	)
	if err := row.Scan(&b.ID, &b.ProducerID, &b.Product, &b.Quantity, &b.Unit, &b.Origin, &harvest, &b.TrackingToken, &statusStr, &created); err != nil {
		return cert.Batch{}, err
	}

	status, err := cert.ParseBatchStatus(statusStr)
	if err != nil {
		return cert.Batch{}, fmt.Errorf("scan batch: %w", err)
	}
	b.Status = status

	if b.HarvestDate, err = time.Parse(timeLayout, harvest); err != nil {
		return cert.Batch{}, fmt.Errorf("scan batch: harvest_date: %w", err)
	}
	if b.CreatedAt, err = time.Parse(timeLayout, created); err != nil {
		return cert.Batch{}, fmt.Errorf("scan batch: created_at: %w", err)
	}
	return b, nil
}
