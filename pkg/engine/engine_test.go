package engine_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agencykit/automation/pkg/catalog"
	"github.com/agencykit/automation/pkg/engine"
	"github.com/agencykit/automation/pkg/models"
	"github.com/agencykit/automation/pkg/persistence"
	"github.com/agencykit/automation/pkg/persistence/file"
	"github.com/agencykit/automation/pkg/protocol"
)

var t0 = time.Date(2025, 6, 16, 8, 0, 0, 0, time.UTC)

type fakeClock struct {
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	return c.now
}

type fakeMailer struct {
	sent []protocol.EmailMessage
}

func (m *fakeMailer) Send(_ context.Context, message protocol.EmailMessage) error {
	m.sent = append(m.sent, message)

	return nil
}

func newTestEngine(t *testing.T, clock protocol.Clock, sender protocol.Mailer) (*engine.Engine, persistence.Persistence) {
	t.Helper()

	p := file.NewPersistence(t.TempDir())

	e := engine.New(engine.Config{
		Persistence: p,
		Catalog:     catalog.Builtin(),
		Mailer:      sender,
		Clock:       clock,
	})

	return e, p
}

func autoFilter() models.FilterConfig {
	return models.FilterConfig{
		GroupLogic: models.GroupLogicAnd,
		Groups: []models.FilterGroup{
			{
				ID:    "g1",
				Logic: models.GroupLogicAnd,
				Rules: []models.FilterRule{
					{
						ID:          "r1",
						ConditionID: "has_policy_type",
						Bucket:      models.RuleBucketInclude,
						Value:       "Auto",
					},
				},
			},
		},
	}
}

func emailAutomation(id string) *models.Automation {
	return &models.Automation{
		ID:     id,
		Name:   "Auto renewal outreach",
		Status: models.AutomationStatusActive,
		Filter: autoFilter(),
		Nodes: []models.NodeDocument{
			{ID: "trigger", Type: models.NodeTypeTrigger},
			{ID: "email-1", Type: models.NodeTypeSendEmail, Config: map[string]any{"template_id": "tpl-1", "subject": "Time to renew"}},
			{ID: "end-1", Type: models.NodeTypeEnd},
		},
		CreatedAt: t0,
		UpdatedAt: t0,
	}
}

func autoContact(id string) *models.Contact {
	return &models.Contact{
		ID:     id,
		Fields: map[string]any{"policy_types": []string{"Auto"}},
	}
}

func saveFixtures(t *testing.T, p persistence.Persistence, automation *models.Automation, contacts ...*models.Contact) {
	t.Helper()

	ctx := context.Background()
	require.NoError(t, p.AutomationRepository().Save(ctx, automation))

	for _, contact := range contacts {
		require.NoError(t, p.ContactRepository().Save(ctx, contact))
	}
}

func TestRefreshEnrollsMatchingContacts(t *testing.T) {
	ctx := context.Background()
	clock := &fakeClock{now: t0}
	e, p := newTestEngine(t, clock, &fakeMailer{})

	saveFixtures(t, p, emailAutomation("auto-1"),
		autoContact("c1"),
		&models.Contact{ID: "c2", Fields: map[string]any{"policy_types": []string{"Home"}}},
	)

	result, err := e.Refresh(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, result.Enrolled)
	assert.Empty(t, result.Failures)

	enrollments, err := p.EnrollmentRepository().ByAutomation(ctx, "auto-1")
	require.NoError(t, err)
	require.Len(t, enrollments, 1)

	// The drive stopped at the send_email node.
	assert.Equal(t, "c1", enrollments[0].ContactID)
	assert.Equal(t, models.EnrollmentStatusActive, enrollments[0].Status)
	assert.Equal(t, "email-1", enrollments[0].CurrentNodeID())
}

func TestRefreshIsIdempotent(t *testing.T) {
	ctx := context.Background()
	clock := &fakeClock{now: t0}
	e, p := newTestEngine(t, clock, &fakeMailer{})

	saveFixtures(t, p, emailAutomation("auto-1"), autoContact("c1"))

	first, err := e.Refresh(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, first.Enrolled)

	second, err := e.Refresh(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, second.Enrolled)

	enrollments, err := p.EnrollmentRepository().ByAutomation(ctx, "auto-1")
	require.NoError(t, err)
	assert.Len(t, enrollments, 1)
}

func TestRefreshSkipsContactsWithPriorEnrollment(t *testing.T) {
	ctx := context.Background()
	clock := &fakeClock{now: t0}
	e, p := newTestEngine(t, clock, &fakeMailer{})

	automation := emailAutomation("auto-1")
	saveFixtures(t, p, automation, autoContact("c1"))

	// The contact already completed this automation; re-entry is disabled.
	done := &models.Enrollment{
		ID:            "enr-old",
		ContactID:     "c1",
		AutomationID:  "auto-1",
		Status:        models.EnrollmentStatusCompleted,
		EnteredAt:     t0.AddDate(0, 0, -90),
		LastEnteredAt: t0.AddDate(0, 0, -90),
	}
	require.NoError(t, p.EnrollmentRepository().Save(ctx, done))

	result, err := e.Refresh(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, result.Enrolled)
}

func TestRefreshReentryAfterDays(t *testing.T) {
	ctx := context.Background()
	clock := &fakeClock{now: t0}
	e, p := newTestEngine(t, clock, &fakeMailer{})

	automation := emailAutomation("auto-1")
	automation.Reentry = models.ReentryConfig{
		Enabled: true,
		Type:    models.ReentryAfterDays,
		Days:    30,
	}
	saveFixtures(t, p, automation, autoContact("c1"))

	recent := &models.Enrollment{
		ID:            "enr-old",
		ContactID:     "c1",
		AutomationID:  "auto-1",
		Status:        models.EnrollmentStatusCompleted,
		EnteredAt:     t0.AddDate(0, 0, -10),
		LastEnteredAt: t0.AddDate(0, 0, -10),
	}
	require.NoError(t, p.EnrollmentRepository().Save(ctx, recent))

	result, err := e.Refresh(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, result.Enrolled, "waiting period not elapsed")

	// Age the prior enrollment past the waiting period.
	recent.LastEnteredAt = t0.AddDate(0, 0, -40)
	require.NoError(t, p.EnrollmentRepository().Save(ctx, recent))

	result, err = e.Refresh(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, result.Enrolled)
}

func TestSendExecutesEmailAndCompletes(t *testing.T) {
	ctx := context.Background()
	clock := &fakeClock{now: t0}
	sender := &fakeMailer{}
	e, p := newTestEngine(t, clock, sender)

	saveFixtures(t, p, emailAutomation("auto-1"), autoContact("c1"))

	_, err := e.Refresh(ctx)
	require.NoError(t, err)

	result, err := e.Send(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, result.Sent)

	require.Len(t, sender.sent, 1)
	assert.Equal(t, "tpl-1", sender.sent[0].TemplateID)
	assert.Equal(t, "c1", sender.sent[0].ContactID)

	enrollments, err := p.EnrollmentRepository().ByAutomation(ctx, "auto-1")
	require.NoError(t, err)
	require.Len(t, enrollments, 1)
	assert.Equal(t, models.EnrollmentStatusCompleted, enrollments[0].Status)

	sent, err := p.SendLogRepository().WasSent(ctx, enrollments[0].ID, "email-1")
	require.NoError(t, err)
	assert.True(t, sent)
}

func TestSendDedupesAfterPartialCommit(t *testing.T) {
	ctx := context.Background()
	clock := &fakeClock{now: t0}
	sender := &fakeMailer{}
	e, p := newTestEngine(t, clock, sender)

	saveFixtures(t, p, emailAutomation("auto-1"), autoContact("c1"))

	_, err := e.Refresh(ctx)
	require.NoError(t, err)

	_, err = e.Send(ctx)
	require.NoError(t, err)
	require.Len(t, sender.sent, 1)

	// Simulate a crash that recorded the send but lost the advance: reset
	// the enrollment to the send node and tick again.
	enrollments, err := p.EnrollmentRepository().ByAutomation(ctx, "auto-1")
	require.NoError(t, err)
	require.Len(t, enrollments, 1)

	stuck := enrollments[0]
	stuck.Status = models.EnrollmentStatusActive
	stuck.CurrentNodePath = []string{"email-1"}
	require.NoError(t, p.EnrollmentRepository().Save(ctx, stuck))

	result, err := e.Send(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, result.Sent)
	assert.Len(t, sender.sent, 1, "no duplicate email")

	repaired, err := p.EnrollmentRepository().GetByID(ctx, stuck.ID)
	require.NoError(t, err)
	assert.Equal(t, models.EnrollmentStatusCompleted, repaired.Status)
}

func TestDelaySuspendsAndResumes(t *testing.T) {
	ctx := context.Background()
	clock := &fakeClock{now: t0}
	sender := &fakeMailer{}
	e, p := newTestEngine(t, clock, sender)

	automation := emailAutomation("auto-1")
	automation.Nodes = []models.NodeDocument{
		{ID: "trigger", Type: models.NodeTypeTrigger},
		{ID: "delay-1", Type: models.NodeTypeDelay, Config: map[string]any{"value": 3, "unit": "days"}},
		{ID: "email-1", Type: models.NodeTypeSendEmail, Config: map[string]any{"template_id": "tpl-1"}},
		{ID: "end-1", Type: models.NodeTypeEnd},
	}
	saveFixtures(t, p, automation, autoContact("c1"))

	_, err := e.Refresh(ctx)
	require.NoError(t, err)

	enrollments, err := p.EnrollmentRepository().ByStatus(ctx, models.EnrollmentStatusWaiting)
	require.NoError(t, err)
	require.Len(t, enrollments, 1)
	require.NotNil(t, enrollments[0].WaitUntil)
	assert.Equal(t, t0.Add(72*time.Hour), *enrollments[0].WaitUntil)

	// Two days in: still waiting.
	clock.now = t0.Add(48 * time.Hour)

	result, err := e.Verify(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, result.Resumed)

	// Day three: the delay fires and the drive stops at the email node.
	clock.now = t0.Add(72 * time.Hour)

	result, err = e.Verify(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, result.Resumed)

	active, err := p.EnrollmentRepository().ByStatus(ctx, models.EnrollmentStatusActive)
	require.NoError(t, err)
	require.Len(t, active, 1)
	assert.Equal(t, "email-1", active[0].CurrentNodeID())
	assert.Nil(t, active[0].WaitUntil)
}

func TestConditionBranchesOnEngagement(t *testing.T) {
	ctx := context.Background()
	clock := &fakeClock{now: t0}
	sender := &fakeMailer{}
	e, p := newTestEngine(t, clock, sender)

	automation := emailAutomation("auto-1")
	automation.Nodes = []models.NodeDocument{
		{ID: "trigger", Type: models.NodeTypeTrigger},
		{ID: "email-1", Type: models.NodeTypeSendEmail, Config: map[string]any{"template_id": "tpl-1"}},
		{
			ID:     "cond-1",
			Type:   models.NodeTypeCondition,
			Config: map[string]any{"kind": "email_opened", "node_id": "email-1"},
			Branches: &models.BranchDocument{
				Yes: []models.NodeDocument{
					{ID: "email-2", Type: models.NodeTypeSendEmail, Config: map[string]any{"template_id": "tpl-followup"}},
				},
				No: []models.NodeDocument{
					{ID: "end-no", Type: models.NodeTypeEnd},
				},
			},
		},
		{ID: "end-1", Type: models.NodeTypeEnd},
	}

	contact := autoContact("c1")
	contact.Opened = map[string]bool{"email-1": true}
	saveFixtures(t, p, automation, contact)

	_, err := e.Refresh(ctx)
	require.NoError(t, err)

	// The first send advances through the condition into the yes branch.
	result, err := e.Send(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, result.Sent)

	active, err := p.EnrollmentRepository().ByStatus(ctx, models.EnrollmentStatusActive)
	require.NoError(t, err)
	require.Len(t, active, 1)
	assert.Equal(t, []string{"cond-1", "email-2"}, active[0].CurrentNodePath)

	// The follow-up send exhausts the yes branch and completes.
	result, err = e.Send(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, result.Sent)

	completed, err := p.EnrollmentRepository().ByStatus(ctx, models.EnrollmentStatusCompleted)
	require.NoError(t, err)
	assert.Len(t, completed, 1)
	assert.Len(t, sender.sent, 2)
}

func TestUpdateFieldWritesThroughContact(t *testing.T) {
	ctx := context.Background()
	clock := &fakeClock{now: t0}
	e, p := newTestEngine(t, clock, &fakeMailer{})

	automation := emailAutomation("auto-1")
	automation.Nodes = []models.NodeDocument{
		{ID: "trigger", Type: models.NodeTypeTrigger},
		{ID: "update-1", Type: models.NodeTypeUpdateField, Config: map[string]any{"field": "outreach_stage", "value": "renewal"}},
		{ID: "end-1", Type: models.NodeTypeEnd},
	}
	saveFixtures(t, p, automation, autoContact("c1"))

	_, err := e.Refresh(ctx)
	require.NoError(t, err)

	contact, err := p.ContactRepository().GetByID(ctx, "c1")
	require.NoError(t, err)

	value, ok := contact.Field("outreach_stage")
	assert.True(t, ok)
	assert.Equal(t, "renewal", value)

	completed, err := p.EnrollmentRepository().ByStatus(ctx, models.EnrollmentStatusCompleted)
	require.NoError(t, err)
	assert.Len(t, completed, 1)
}

func TestPausedAutomationFreezesEnrollments(t *testing.T) {
	ctx := context.Background()
	clock := &fakeClock{now: t0}
	sender := &fakeMailer{}
	e, p := newTestEngine(t, clock, sender)

	automation := emailAutomation("auto-1")
	saveFixtures(t, p, automation, autoContact("c1"))

	_, err := e.Refresh(ctx)
	require.NoError(t, err)

	automation.Status = models.AutomationStatusPaused
	require.NoError(t, p.AutomationRepository().Save(ctx, automation))

	result, err := e.Send(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, result.Sent)
	assert.Empty(t, sender.sent)

	// Resuming lets the next tick pick the enrollment back up.
	automation.Status = models.AutomationStatusActive
	require.NoError(t, p.AutomationRepository().Save(ctx, automation))

	result, err = e.Send(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, result.Sent)
}

func TestPacingSpreadsSendsAcrossDays(t *testing.T) {
	ctx := context.Background()
	clock := &fakeClock{now: t0}
	sender := &fakeMailer{}
	e, p := newTestEngine(t, clock, sender)

	automation := emailAutomation("auto-1")
	automation.Pacing = models.PacingConfig{
		Enabled:        true,
		SpreadOverDays: 2,
		AllowedDays: []models.Weekday{
			models.WeekdaySun, models.WeekdayMon, models.WeekdayTue, models.WeekdayWed,
			models.WeekdayThu, models.WeekdayFri, models.WeekdaySat,
		},
	}
	saveFixtures(t, p, automation,
		autoContact("c1"), autoContact("c2"), autoContact("c3"), autoContact("c4"),
	)

	result, err := e.Refresh(ctx)
	require.NoError(t, err)
	assert.Equal(t, 4, result.Enrolled)

	// ceil(4/2) = 2 enrollments start today, 2 tomorrow.
	result, err = e.Send(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, result.Sent)

	clock.now = t0.AddDate(0, 0, 1)

	result, err = e.Send(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, result.Sent)
	assert.Len(t, sender.sent, 4)
}
