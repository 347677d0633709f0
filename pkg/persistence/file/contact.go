package file

import (
	"context"

	"github.com/agencykit/automation/pkg/models"
	"github.com/agencykit/automation/pkg/persistence"
)

const contactsDir = "contacts"

// ContactRepository stores one JSON document per contact read model.
type ContactRepository struct {
	root string
}

func (r *ContactRepository) All(ctx context.Context) ([]*models.Contact, error) {
	ids, err := listIDs(r.root, contactsDir)
	if err != nil {
		return nil, err
	}

	contacts := make([]*models.Contact, 0, len(ids))

	for _, id := range ids {
		contact, err := r.GetByID(ctx, id)
		if err != nil {
			return nil, err
		}

		contacts = append(contacts, contact)
	}

	return contacts, nil
}

func (r *ContactRepository) GetByID(_ context.Context, id string) (*models.Contact, error) {
	contact := &models.Contact{}
	if err := readDocument(r.root, contactsDir, id, contact, persistence.ErrContactNotFound); err != nil {
		return nil, err
	}

	return contact, nil
}

func (r *ContactRepository) Save(_ context.Context, contact *models.Contact) error {
	return writeDocument(r.root, contactsDir, contact.ID, contact)
}
