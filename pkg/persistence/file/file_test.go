package file_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agencykit/automation/pkg/models"
	"github.com/agencykit/automation/pkg/persistence"
	"github.com/agencykit/automation/pkg/persistence/file"
)

func newPersistence(t *testing.T) *file.Persistence {
	t.Helper()

	return file.NewPersistence(t.TempDir())
}

func sampleAutomation(id string) *models.Automation {
	return &models.Automation{
		ID:     id,
		Name:   "Renewal reminders",
		Status: models.AutomationStatusDraft,
		Filter: models.FilterConfig{
			GroupLogic: models.GroupLogicAnd,
			Groups: []models.FilterGroup{
				{ID: "g1", Logic: models.GroupLogicAnd},
			},
		},
		Nodes: []models.NodeDocument{
			{ID: "trigger", Type: models.NodeTypeTrigger},
			{ID: "end-1", Type: models.NodeTypeEnd},
		},
	}
}

func TestAutomationRoundTrip(t *testing.T) {
	ctx := context.Background()
	p := newPersistence(t)

	automation := sampleAutomation("auto-1")
	require.NoError(t, p.AutomationRepository().Save(ctx, automation))

	loaded, err := p.AutomationRepository().GetByID(ctx, "auto-1")
	require.NoError(t, err)
	assert.Equal(t, automation.Name, loaded.Name)
	assert.Len(t, loaded.Nodes, 2)

	all, err := p.AutomationRepository().All(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 1)

	require.NoError(t, p.AutomationRepository().Delete(ctx, "auto-1"))

	_, err = p.AutomationRepository().GetByID(ctx, "auto-1")
	assert.True(t, persistence.IsAutomationNotFound(err))
}

func TestAutomationSaveRejectsInvalidDocument(t *testing.T) {
	ctx := context.Background()
	p := newPersistence(t)

	automation := sampleAutomation("auto-1")
	automation.Name = "ab" // Below the schema's minimum length.

	err := p.AutomationRepository().Save(ctx, automation)
	require.Error(t, err)
	assert.ErrorIs(t, err, models.ErrInvalidDocument)
}

func TestAutomationSaveRejectsBrokenGraph(t *testing.T) {
	ctx := context.Background()
	p := newPersistence(t)

	automation := sampleAutomation("auto-1")
	automation.Nodes = []models.NodeDocument{
		{ID: "end-1", Type: models.NodeTypeEnd},
		{ID: "trigger", Type: models.NodeTypeTrigger},
	}

	err := p.AutomationRepository().Save(ctx, automation)
	require.Error(t, err)
}

func TestEnrollmentQueries(t *testing.T) {
	ctx := context.Background()
	p := newPersistence(t)

	save := func(id, contactID, automationID string, status models.EnrollmentStatus) {
		require.NoError(t, p.EnrollmentRepository().Save(ctx, &models.Enrollment{
			ID:           id,
			ContactID:    contactID,
			AutomationID: automationID,
			Status:       status,
		}))
	}

	save("e1", "c1", "a1", models.EnrollmentStatusActive)
	save("e2", "c1", "a2", models.EnrollmentStatusWaiting)
	save("e3", "c2", "a1", models.EnrollmentStatusCompleted)

	byAutomation, err := p.EnrollmentRepository().ByAutomation(ctx, "a1")
	require.NoError(t, err)
	assert.Len(t, byAutomation, 2)

	byPair, err := p.EnrollmentRepository().ByContactAndAutomation(ctx, "c1", "a2")
	require.NoError(t, err)
	require.Len(t, byPair, 1)
	assert.Equal(t, "e2", byPair[0].ID)

	waiting, err := p.EnrollmentRepository().ByStatus(ctx, models.EnrollmentStatusWaiting)
	require.NoError(t, err)
	require.Len(t, waiting, 1)
	assert.Equal(t, "e2", waiting[0].ID)

	_, err = p.EnrollmentRepository().GetByID(ctx, "ghost")
	assert.True(t, persistence.IsEnrollmentNotFound(err))
}

func TestCommitSendRecordsAndAdvances(t *testing.T) {
	ctx := context.Background()
	p := newPersistence(t)

	enrollment := &models.Enrollment{
		ID:              "e1",
		ContactID:       "c1",
		AutomationID:    "a1",
		Status:          models.EnrollmentStatusActive,
		CurrentNodePath: []string{"end-1"},
	}

	record := models.SendRecord{
		EnrollmentID: "e1",
		NodeID:       "email-1",
		TemplateID:   "tpl-1",
		SentAt:       time.Date(2025, 6, 16, 8, 0, 0, 0, time.UTC),
	}

	require.NoError(t, p.CommitSend(ctx, enrollment, record))

	sent, err := p.SendLogRepository().WasSent(ctx, "e1", "email-1")
	require.NoError(t, err)
	assert.True(t, sent)

	sent, err = p.SendLogRepository().WasSent(ctx, "e1", "email-2")
	require.NoError(t, err)
	assert.False(t, sent)

	records, err := p.SendLogRepository().ByEnrollment(ctx, "e1")
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "tpl-1", records[0].TemplateID)

	saved, err := p.EnrollmentRepository().GetByID(ctx, "e1")
	require.NoError(t, err)
	assert.Equal(t, []string{"end-1"}, saved.CurrentNodePath)
}

func TestContactRoundTrip(t *testing.T) {
	ctx := context.Background()
	p := newPersistence(t)

	contact := &models.Contact{
		ID:     "c1",
		Fields: map[string]any{"state": "TX"},
		Dates:  map[string]time.Time{"policy_renewal_date": time.Date(2025, 8, 1, 0, 0, 0, 0, time.UTC)},
	}

	require.NoError(t, p.ContactRepository().Save(ctx, contact))

	loaded, err := p.ContactRepository().GetByID(ctx, "c1")
	require.NoError(t, err)

	value, ok := loaded.Field("state")
	assert.True(t, ok)
	assert.Equal(t, "TX", value)

	date, ok := loaded.Date("policy_renewal_date")
	assert.True(t, ok)
	assert.Equal(t, 2025, date.Year())

	_, err = p.ContactRepository().GetByID(ctx, "ghost")
	assert.True(t, persistence.IsContactNotFound(err))
}
