package file

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/agencykit/automation/pkg/models"
	"github.com/agencykit/automation/pkg/persistence"
)

const automationsDir = "automations"

// AutomationRepository stores one JSON document per automation.
type AutomationRepository struct {
	root string
}

func (r *AutomationRepository) All(ctx context.Context) ([]*models.Automation, error) {
	ids, err := listIDs(r.root, automationsDir)
	if err != nil {
		return nil, err
	}

	automations := make([]*models.Automation, 0, len(ids))

	for _, id := range ids {
		automation, err := r.GetByID(ctx, id)
		if err != nil {
			return nil, err
		}

		automations = append(automations, automation)
	}

	return automations, nil
}

func (r *AutomationRepository) GetByID(_ context.Context, id string) (*models.Automation, error) {
	automation := &models.Automation{}
	if err := readDocument(r.root, automationsDir, id, automation, persistence.ErrAutomationNotFound); err != nil {
		return nil, err
	}

	return automation, nil
}

// Save validates the document against the automation schema and the graph's
// structural invariants before writing it.
func (r *AutomationRepository) Save(_ context.Context, automation *models.Automation) error {
	payload, err := json.Marshal(automation)
	if err != nil {
		return persistence.NewAutomationError("Save", automation.ID, err)
	}

	if err := models.ValidateAutomationDocument(payload); err != nil {
		return persistence.NewAutomationError("Save", automation.ID, err)
	}

	if _, err := automation.Graph(); err != nil {
		return persistence.NewAutomationError("Save", automation.ID, fmt.Errorf("invalid workflow graph: %w", err))
	}

	if err := writeDocument(r.root, automationsDir, automation.ID, automation); err != nil {
		return persistence.NewAutomationError("Save", automation.ID, err)
	}

	return nil
}

func (r *AutomationRepository) Delete(_ context.Context, id string) error {
	if err := deleteDocument(r.root, automationsDir, id, persistence.ErrAutomationNotFound); err != nil {
		return persistence.NewAutomationError("Delete", id, err)
	}

	return nil
}
