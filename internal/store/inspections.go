package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/fieldcert/fieldcert/internal/cert"
)

// InsertInspection inserts an inspection record.
//
// The partial unique index idx_inspections_one_active rejects a second
// inspection in a non-terminal state for the same batch, so the
// one-active-inspection invariant holds even if two arbiters raced past the
// batch-status gate.
func (s *Store) InsertInspection(ctx context.Context, ins cert.Inspection) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO inspections
		(id, batch_id, inspector_id, status, scheduled_at, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`,
		ins.ID,
		ins.BatchID,
		ins.InspectorID,
		string(ins.Status),
		ins.ScheduledAt.UTC().Format(timeLayout),
		ins.CreatedAt.UTC().Format(timeLayout),
	)
	if isUniqueViolation(err) {
		return &cert.Error{
			Code:    cert.ErrCodeDuplicateRecord,
			Message: "duplicate inspection id or active inspection already exists",
			BatchID: ins.BatchID,
			Err:     err,
		}
	}
	if err != nil {
		return fmt.Errorf("insert inspection: %w", err)
	}
	return nil
}

// GetInspection returns an inspection by id.
func (s *Store) GetInspection(ctx context.Context, id string) (cert.Inspection, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, batch_id, inspector_id, status, scheduled_at, created_at
		FROM inspections
		WHERE id = ?
	`, id)

	ins, err := scanInspection(row)
	if errors.Is(err, sql.ErrNoRows) {
		return cert.Inspection{}, &cert.Error{
			Code:    cert.ErrCodeInspectionNotFound,
			Message: "inspection not found",
		}
	}
	if err != nil {
		return cert.Inspection{}, fmt.Errorf("get inspection: %w", err)
	}
	return ins, nil
}

// ActiveInspection returns the single non-terminal inspection for a batch,
// or an INSPECTION_NOT_FOUND error when none is active.
func (s *Store) ActiveInspection(ctx context.Context, batchID string) (cert.Inspection, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, batch_id, inspector_id, status, scheduled_at, created_at
		FROM inspections
		WHERE batch_id = ? AND status IN ('pending', 'in_progress')
	`, batchID)

	ins, err := scanInspection(row)
	if errors.Is(err, sql.ErrNoRows) {
		return cert.Inspection{}, &cert.Error{
			Code:    cert.ErrCodeInspectionNotFound,
			Message: "no active inspection",
			BatchID: batchID,
		}
	}
	if err != nil {
		return cert.Inspection{}, fmt.Errorf("active inspection: %w", err)
	}
	return ins, nil
}

// UpdateInspectionStatus performs a compare-and-swap on the inspection
// status, mirroring UpdateBatchStatus.
func (s *Store) UpdateInspectionStatus(ctx context.Context, id string, from, to cert.InspectionStatus) (bool, error) {
	result, err := s.db.ExecContext(ctx, `
		UPDATE inspections SET status = ?
		WHERE id = ? AND status = ?
	`, string(to), id, string(from))
	if err != nil {
		return false, fmt.Errorf("update inspection status: %w", err)
	}

	n, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("update inspection status: rows affected: %w", err)
	}
	return n > 0, nil
}

func scanInspection(row *sql.Row) (cert.Inspection, error) {
	var (
		ins       cert.Inspection
		statusStr string
		scheduled string
		created   string
	)
	if err := row.Scan(&ins.ID, &ins.BatchID, &ins.InspectorID, &statusStr, &scheduled, &created); err != nil {
		return cert.Inspection{}, err
	}

	status, err := cert.ParseInspectionStatus(statusStr)
	if err != nil {
		return cert.Inspection{}, fmt.Errorf("scan inspection: %w", err)
	}
	ins.Status = status

	if ins.ScheduledAt, err = time.Parse(timeLayout, scheduled); err != nil {
		return cert.Inspection{}, fmt.Errorf("scan inspection: scheduled_at: %w", err)
	}
	if ins.CreatedAt, err = time.Parse(timeLayout, created); err != nil {
		return cert.Inspection{}, fmt.Errorf("scan inspection: created_at: %w", err)
	}
	return ins, nil
}
