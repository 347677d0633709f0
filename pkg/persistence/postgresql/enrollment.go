package postgresql

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/agencykit/automation/pkg/models"
	"github.com/agencykit/automation/pkg/persistence"
)

// EnrollmentRepository stores enrollments as JSONB documents with indexed
// columns for the hot lookups (automation, contact pair, status).
type EnrollmentRepository struct {
	db *sql.DB
}

func (r *EnrollmentRepository) GetByID(ctx context.Context, id string) (*models.Enrollment, error) {
	var document []byte

	err := r.db.QueryRowContext(ctx, `SELECT document FROM enrollments WHERE id = $1`, id).Scan(&document)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", persistence.ErrEnrollmentNotFound, id)
	}

	if err != nil {
		return nil, &persistence.EnrollmentError{Op: "GetByID", EnrollmentID: id, Err: err}
	}

	return decodeEnrollment(document)
}

func (r *EnrollmentRepository) ByAutomation(ctx context.Context, automationID string) ([]*models.Enrollment, error) {
	return r.query(ctx, `SELECT document FROM enrollments WHERE automation_id = $1`, automationID)
}

func (r *EnrollmentRepository) ByContactAndAutomation(ctx context.Context, contactID, automationID string) ([]*models.Enrollment, error) {
	return r.query(ctx, `SELECT document FROM enrollments WHERE contact_id = $1 AND automation_id = $2`, contactID, automationID)
}

func (r *EnrollmentRepository) ByStatus(ctx context.Context, status models.EnrollmentStatus) ([]*models.Enrollment, error) {
	return r.query(ctx, `SELECT document FROM enrollments WHERE status = $1`, string(status))
}

func (r *EnrollmentRepository) Save(ctx context.Context, enrollment *models.Enrollment) error {
	if err := saveEnrollment(ctx, r.db, enrollment); err != nil {
		return &persistence.EnrollmentError{Op: "Save", EnrollmentID: enrollment.ID, Err: err}
	}

	return nil
}

func (r *EnrollmentRepository) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM enrollments WHERE id = $1`, id)
	if err != nil {
		return &persistence.EnrollmentError{Op: "Delete", EnrollmentID: id, Err: err}
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return &persistence.EnrollmentError{Op: "Delete", EnrollmentID: id, Err: err}
	}

	if affected == 0 {
		return fmt.Errorf("%w: %s", persistence.ErrEnrollmentNotFound, id)
	}

	return nil
}

func (r *EnrollmentRepository) query(ctx context.Context, query string, args ...any) ([]*models.Enrollment, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query enrollments: %w", err)
	}
	defer rows.Close()

	enrollments := make([]*models.Enrollment, 0)

	for rows.Next() {
		var document []byte
		if err := rows.Scan(&document); err != nil {
			return nil, fmt.Errorf("failed to scan enrollment: %w", err)
		}

		enrollment, err := decodeEnrollment(document)
		if err != nil {
			return nil, err
		}

		enrollments = append(enrollments, enrollment)
	}

	return enrollments, rows.Err()
}

func decodeEnrollment(document []byte) (*models.Enrollment, error) {
	enrollment := &models.Enrollment{}
	if err := json.Unmarshal(document, enrollment); err != nil {
		return nil, fmt.Errorf("failed to unmarshal enrollment: %w", err)
	}

	return enrollment, nil
}

// execer covers both *sql.DB and *sql.Tx so enrollment saves can join the
// send-commit transaction.
type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func saveEnrollment(ctx context.Context, db execer, enrollment *models.Enrollment) error {
	document, err := json.Marshal(enrollment)
	if err != nil {
		return fmt.Errorf("failed to marshal enrollment: %w", err)
	}

	_, err = db.ExecContext(ctx, `
		INSERT INTO enrollments (id, contact_id, automation_id, status, document)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (id) DO UPDATE SET
			status = EXCLUDED.status,
			document = EXCLUDED.document`,
		enrollment.ID, enrollment.ContactID, enrollment.AutomationID,
		string(enrollment.Status), document,
	)

	return err
}

func saveEnrollmentTx(ctx context.Context, tx *sql.Tx, enrollment *models.Enrollment) error {
	return saveEnrollment(ctx, tx, enrollment)
}
