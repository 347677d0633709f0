package postgresql

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/agencykit/automation/pkg/models"
)

// SendLogRepository reads the committed send effects. Writes go through
// Persistence.CommitSend so they share the enrollment transaction.
type SendLogRepository struct {
	db *sql.DB
}

func (r *SendLogRepository) WasSent(ctx context.Context, enrollmentID, nodeID string) (bool, error) {
	var sent bool

	err := r.db.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM send_log WHERE enrollment_id = $1 AND node_id = $2)`,
		enrollmentID, nodeID,
	).Scan(&sent)
	if err != nil {
		return false, fmt.Errorf("failed to check send log: %w", err)
	}

	return sent, nil
}

func (r *SendLogRepository) ByEnrollment(ctx context.Context, enrollmentID string) ([]models.SendRecord, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT enrollment_id, node_id, template_id, sent_at FROM send_log WHERE enrollment_id = $1 ORDER BY sent_at`,
		enrollmentID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query send log: %w", err)
	}
	defer rows.Close()

	records := make([]models.SendRecord, 0)

	for rows.Next() {
		record := models.SendRecord{}
		if err := rows.Scan(&record.EnrollmentID, &record.NodeID, &record.TemplateID, &record.SentAt); err != nil {
			return nil, fmt.Errorf("failed to scan send record: %w", err)
		}

		records = append(records, record)
	}

	return records, rows.Err()
}
