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

// ContactRepository stores contact read models as JSONB documents.
type ContactRepository struct {
	db *sql.DB
}

func (r *ContactRepository) All(ctx context.Context) ([]*models.Contact, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT document FROM contacts ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("failed to query contacts: %w", err)
	}
	defer rows.Close()

	contacts := make([]*models.Contact, 0)

	for rows.Next() {
		var document []byte
		if err := rows.Scan(&document); err != nil {
			return nil, fmt.Errorf("failed to scan contact: %w", err)
		}

		contact := &models.Contact{}
		if err := json.Unmarshal(document, contact); err != nil {
			return nil, fmt.Errorf("failed to unmarshal contact: %w", err)
		}

		contacts = append(contacts, contact)
	}

	return contacts, rows.Err()
}

func (r *ContactRepository) GetByID(ctx context.Context, id string) (*models.Contact, error) {
	var document []byte

	err := r.db.QueryRowContext(ctx, `SELECT document FROM contacts WHERE id = $1`, id).Scan(&document)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", persistence.ErrContactNotFound, id)
	}

	if err != nil {
		return nil, fmt.Errorf("failed to get contact %s: %w", id, err)
	}

	contact := &models.Contact{}
	if err := json.Unmarshal(document, contact); err != nil {
		return nil, fmt.Errorf("failed to unmarshal contact %s: %w", id, err)
	}

	return contact, nil
}

func (r *ContactRepository) Save(ctx context.Context, contact *models.Contact) error {
	document, err := json.Marshal(contact)
	if err != nil {
		return fmt.Errorf("failed to marshal contact %s: %w", contact.ID, err)
	}

	_, err = r.db.ExecContext(ctx, `
		INSERT INTO contacts (id, document)
		VALUES ($1, $2)
		ON CONFLICT (id) DO UPDATE SET document = EXCLUDED.document`,
		contact.ID, document,
	)
	if err != nil {
		return fmt.Errorf("failed to save contact %s: %w", contact.ID, err)
	}

	return nil
}
