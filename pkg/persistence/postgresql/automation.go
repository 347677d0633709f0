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

// AutomationRepository stores automations as JSONB documents with a few
// indexed columns for filtering.
type AutomationRepository struct {
	db *sql.DB
}

func (r *AutomationRepository) All(ctx context.Context) ([]*models.Automation, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT document FROM automations ORDER BY created_at`)
	if err != nil {
		return nil, fmt.Errorf("failed to query automations: %w", err)
	}
	defer rows.Close()

	automations := make([]*models.Automation, 0)

	for rows.Next() {
		var document []byte
		if err := rows.Scan(&document); err != nil {
			return nil, fmt.Errorf("failed to scan automation: %w", err)
		}

		automation := &models.Automation{}
		if err := json.Unmarshal(document, automation); err != nil {
			return nil, fmt.Errorf("failed to unmarshal automation: %w", err)
		}

		automations = append(automations, automation)
	}

	return automations, rows.Err()
}

func (r *AutomationRepository) GetByID(ctx context.Context, id string) (*models.Automation, error) {
	var document []byte

	err := r.db.QueryRowContext(ctx, `SELECT document FROM automations WHERE id = $1`, id).Scan(&document)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", persistence.ErrAutomationNotFound, id)
	}

	if err != nil {
		return nil, persistence.NewAutomationError("GetByID", id, err)
	}

	automation := &models.Automation{}
	if err := json.Unmarshal(document, automation); err != nil {
		return nil, persistence.NewAutomationError("GetByID", id, err)
	}

	return automation, nil
}

// Save validates against the automation schema and graph invariants, then
// upserts the document.
func (r *AutomationRepository) Save(ctx context.Context, automation *models.Automation) error {
	document, err := json.Marshal(automation)
	if err != nil {
		return persistence.NewAutomationError("Save", automation.ID, err)
	}

	if err := models.ValidateAutomationDocument(document); err != nil {
		return persistence.NewAutomationError("Save", automation.ID, err)
	}

	if _, err := automation.Graph(); err != nil {
		return persistence.NewAutomationError("Save", automation.ID, fmt.Errorf("invalid workflow graph: %w", err))
	}

	_, err = r.db.ExecContext(ctx, `
		INSERT INTO automations (id, name, status, document, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name,
			status = EXCLUDED.status,
			document = EXCLUDED.document,
			updated_at = EXCLUDED.updated_at`,
		automation.ID, automation.Name, automation.Status, document,
		automation.CreatedAt, automation.UpdatedAt,
	)
	if err != nil {
		return persistence.NewAutomationError("Save", automation.ID, err)
	}

	return nil
}

func (r *AutomationRepository) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM automations WHERE id = $1`, id)
	if err != nil {
		return persistence.NewAutomationError("Delete", id, err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return persistence.NewAutomationError("Delete", id, err)
	}

	if affected == 0 {
		return fmt.Errorf("%w: %s", persistence.ErrAutomationNotFound, id)
	}

	return nil
}
