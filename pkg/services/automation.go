package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/agencykit/automation/pkg/catalog"
	"github.com/agencykit/automation/pkg/eventbus"
	"github.com/agencykit/automation/pkg/events"
	"github.com/agencykit/automation/pkg/filter"
	"github.com/agencykit/automation/pkg/models"
	"github.com/agencykit/automation/pkg/pacing"
	"github.com/agencykit/automation/pkg/persistence"
	"github.com/agencykit/automation/pkg/protocol"
)

// AutomationService implements the management operations: CRUD, the pause
// and resume transitions, and the preview endpoints that let an agent see
// who matches a filter and how a batch would be paced before activating.
type AutomationService struct {
	persistence persistence.Persistence
	catalog     *catalog.Registry
	evaluator   *filter.Evaluator
	eventBus    eventbus.EventBus
	clock       protocol.Clock
	validate    *validator.Validate
}

func NewAutomationService(p persistence.Persistence, registry *catalog.Registry, eventBus eventbus.EventBus, clock protocol.Clock) *AutomationService {
	if clock == nil {
		clock = protocol.SystemClock{}
	}

	return &AutomationService{
		persistence: p,
		catalog:     registry,
		evaluator:   filter.NewEvaluator(registry),
		eventBus:    eventBus,
		clock:       clock,
		validate:    validator.New(validator.WithRequiredStructEnabled()),
	}
}

// HealthCheck checks the health of the persistence layer.
func (s *AutomationService) HealthCheck(ctx context.Context) (string, bool) {
	if s.persistence == nil {
		return "Persistence layer not initialized", false
	}

	if err := s.persistence.HealthCheck(ctx); err != nil {
		return "Persistence layer is unhealthy: " + err.Error(), false
	}

	return "Persistence layer is healthy", true
}

func (s *AutomationService) List(ctx context.Context) ([]*models.Automation, error) {
	automations, err := s.persistence.AutomationRepository().All(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list automations: %w", err)
	}

	return automations, nil
}

func (s *AutomationService) FetchByID(ctx context.Context, id string) (*models.Automation, error) {
	return s.persistence.AutomationRepository().GetByID(ctx, id)
}

// Create validates and stores a new automation. New automations always start
// as drafts regardless of the submitted status.
func (s *AutomationService) Create(ctx context.Context, automation *models.Automation) (*models.Automation, error) {
	if strings.TrimSpace(automation.Name) == "" {
		return nil, ErrNameRequired
	}

	if automation.ID == "" {
		automation.ID = "auto-" + uuid.New().String()[:8]
	}

	automation.Status = models.AutomationStatusDraft

	now := s.clock.Now()
	automation.CreatedAt = now
	automation.UpdatedAt = now

	if err := s.validateAutomation(automation); err != nil {
		return nil, err
	}

	if err := s.persistence.AutomationRepository().Save(ctx, automation); err != nil {
		return nil, err
	}

	return automation, nil
}

// Update replaces the editable parts of an automation. The status field is
// not editable here; pause and resume own the transitions.
func (s *AutomationService) Update(ctx context.Context, id string, update *models.Automation) (*models.Automation, error) {
	existing, err := s.persistence.AutomationRepository().GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if strings.TrimSpace(update.Name) != "" {
		existing.Name = update.Name
	}

	existing.Filter = update.Filter
	existing.Timing = update.Timing
	existing.Nodes = update.Nodes
	existing.Reentry = update.Reentry
	existing.Pacing = update.Pacing
	existing.UpdatedAt = s.clock.Now()

	if err := s.validateAutomation(existing); err != nil {
		return nil, err
	}

	if err := s.persistence.AutomationRepository().Save(ctx, existing); err != nil {
		return nil, err
	}

	return existing, nil
}

func (s *AutomationService) Delete(ctx context.Context, id string) error {
	automation, err := s.persistence.AutomationRepository().GetByID(ctx, id)
	if err != nil {
		return err
	}

	if automation.Status == models.AutomationStatusActive {
		return ErrNotDeletable
	}

	return s.persistence.AutomationRepository().Delete(ctx, id)
}

// Activate moves a draft or paused automation to active, making it visible
// to the refresh tick.
func (s *AutomationService) Activate(ctx context.Context, id string) (*models.Automation, error) {
	automation, err := s.persistence.AutomationRepository().GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if automation.Status == models.AutomationStatusActive {
		return automation, nil
	}

	resumed := automation.Status == models.AutomationStatusPaused

	automation.Status = models.AutomationStatusActive
	automation.UpdatedAt = s.clock.Now()

	if err := s.persistence.AutomationRepository().Save(ctx, automation); err != nil {
		return nil, err
	}

	if resumed {
		s.publish(ctx, automation.ID, events.AutomationResumed{
			BaseEvent: events.NewBaseEvent(events.AutomationResumedEvent, automation.ID),
		})
	}

	return automation, nil
}

// Pause freezes an active automation. In-flight enrollments keep their
// positions and wait targets; ticks skip them until resume.
func (s *AutomationService) Pause(ctx context.Context, id string) (*models.Automation, error) {
	automation, err := s.persistence.AutomationRepository().GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if automation.Status != models.AutomationStatusActive {
		return nil, ErrNotPausable
	}

	automation.Status = models.AutomationStatusPaused
	automation.UpdatedAt = s.clock.Now()

	if err := s.persistence.AutomationRepository().Save(ctx, automation); err != nil {
		return nil, err
	}

	s.publish(ctx, automation.ID, events.AutomationPaused{
		BaseEvent: events.NewBaseEvent(events.AutomationPausedEvent, automation.ID),
	})

	return automation, nil
}

// Resume unfreezes a paused automation.
func (s *AutomationService) Resume(ctx context.Context, id string) (*models.Automation, error) {
	automation, err := s.persistence.AutomationRepository().GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if automation.Status != models.AutomationStatusPaused {
		return nil, ErrNotResumable
	}

	automation.Status = models.AutomationStatusActive
	automation.UpdatedAt = s.clock.Now()

	if err := s.persistence.AutomationRepository().Save(ctx, automation); err != nil {
		return nil, err
	}

	s.publish(ctx, automation.ID, events.AutomationResumed{
		BaseEvent: events.NewBaseEvent(events.AutomationResumedEvent, automation.ID),
	})

	return automation, nil
}

// Conditions returns the condition catalog for filter builder UIs.
func (s *AutomationService) Conditions() []models.ConditionDefinition {
	return s.catalog.All()
}

// PreviewMatch evaluates an automation's filter against one contact and
// returns the full per-rule diagnostic tree.
func (s *AutomationService) PreviewMatch(ctx context.Context, automationID, contactID string) (*filter.MatchResult, error) {
	if contactID == "" {
		return nil, ErrContactRequired
	}

	automation, err := s.persistence.AutomationRepository().GetByID(ctx, automationID)
	if err != nil {
		return nil, err
	}

	contact, err := s.persistence.ContactRepository().GetByID(ctx, contactID)
	if err != nil {
		return nil, err
	}

	result := s.evaluator.Evaluate(automation.Filter, contact, s.clock.Now(), automation.Timing)

	return &result, nil
}

// MatchCount evaluates an automation's filter against the whole contact
// population and returns how many would enroll today, ignoring dedupe.
func (s *AutomationService) MatchCount(ctx context.Context, automationID string) (int, error) {
	automation, err := s.persistence.AutomationRepository().GetByID(ctx, automationID)
	if err != nil {
		return 0, err
	}

	contacts, err := s.persistence.ContactRepository().All(ctx)
	if err != nil {
		return 0, err
	}

	now := s.clock.Now()
	count := 0

	for _, contact := range contacts {
		if s.evaluator.Evaluate(automation.Filter, contact, now, automation.Timing).Passes {
			count++
		}
	}

	return count, nil
}

// PacingPreview shows how a batch of the given size would spread across
// days under the automation's pacing config, starting now.
func (s *AutomationService) PacingPreview(ctx context.Context, automationID string, count int) ([]pacing.DayBucket, error) {
	if count < 0 {
		return nil, fmt.Errorf("%w: count must be >= 0", ErrInvalidRequest)
	}

	automation, err := s.persistence.AutomationRepository().GetByID(ctx, automationID)
	if err != nil {
		return nil, err
	}

	return pacing.Schedule(count, automation.Pacing, s.clock.Now()), nil
}

// Enrollments lists an automation's enrollments for the monitoring view.
func (s *AutomationService) Enrollments(ctx context.Context, automationID string) ([]*models.Enrollment, error) {
	if _, err := s.persistence.AutomationRepository().GetByID(ctx, automationID); err != nil {
		return nil, err
	}

	return s.persistence.EnrollmentRepository().ByAutomation(ctx, automationID)
}

func (s *AutomationService) validateAutomation(automation *models.Automation) error {
	if err := s.validate.Struct(automation); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidRequest, err)
	}

	if err := automation.Reentry.Validate(); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidRequest, err)
	}

	if err := automation.Pacing.Validate(); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidRequest, err)
	}

	graph, err := automation.Graph()
	if err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidRequest, err)
	}

	if err := graph.Validate(); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidRequest, err)
	}

	for _, group := range automation.Filter.Groups {
		for _, rule := range group.Rules {
			if rule.ConditionID == "" {
				continue
			}

			if _, ok := s.catalog.Get(rule.ConditionID); !ok {
				return fmt.Errorf("%w: %s", ErrUnknownCondition, rule.ConditionID)
			}
		}
	}

	return nil
}

func (s *AutomationService) publish(ctx context.Context, key string, event eventbus.Event) {
	if s.eventBus == nil {
		return
	}

	// Event delivery is best effort; the state change already committed.
	_ = s.eventBus.Publish(ctx, key, event)
}
