package engine

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/agencykit/automation/pkg/catalog"
	"github.com/agencykit/automation/pkg/eventbus"
	"github.com/agencykit/automation/pkg/events"
	"github.com/agencykit/automation/pkg/filter"
	"github.com/agencykit/automation/pkg/models"
	"github.com/agencykit/automation/pkg/pacing"
	"github.com/agencykit/automation/pkg/persistence"
	"github.com/agencykit/automation/pkg/protocol"
)

// maxDriveSteps bounds a single drive pass. The graph is a finite tree, so
// hitting the bound means corrupted state rather than a long workflow.
const maxDriveSteps = 10000

// Config wires an Engine. Persistence, Catalog and Mailer are required; the
// rest default to production implementations (system clock, no lock, no
// event bus).
type Config struct {
	Persistence persistence.Persistence
	Catalog     *catalog.Registry
	Mailer      protocol.Mailer
	EventBus    eventbus.EventBus
	Clock       protocol.Clock
	Lock        protocol.RunLock
	Logger      *slog.Logger
}

// Engine runs the three scheduled actions of the automation system: refresh
// (enroll newly matching contacts), verify (resume due delays) and send
// (execute send_email effects). Each action is idempotent per tick.
type Engine struct {
	persistence persistence.Persistence
	evaluator   *filter.Evaluator
	mailer      protocol.Mailer
	eventBus    eventbus.EventBus
	clock       protocol.Clock
	lock        protocol.RunLock
	logger      *slog.Logger
	tracer      trace.Tracer
}

// New creates an engine from the given config.
func New(config Config) *Engine {
	clock := config.Clock
	if clock == nil {
		clock = protocol.SystemClock{}
	}

	logger := config.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Engine{
		persistence: config.Persistence,
		evaluator:   filter.NewEvaluator(config.Catalog),
		mailer:      config.Mailer,
		eventBus:    config.EventBus,
		clock:       clock,
		lock:        config.Lock,
		logger:      logger.With("module", "engine"),
		tracer:      otel.Tracer("automation-engine"),
	}
}

// Refresh evaluates every enrollable automation's audience filter against
// the contact population and creates enrollments for new matches, paced
// across future days when the automation asks for it. Re-running the pass
// never duplicates an enrollment: the (contact, automation) pair dedupes.
func (e *Engine) Refresh(ctx context.Context) (TickResult, error) {
	result := TickResult{Action: "refresh"}

	release, err := e.acquire(ctx, "refresh")
	if err != nil {
		return result, err
	}
	defer release()

	ctx, span := e.tracer.Start(ctx, "tick.refresh")
	defer span.End()

	automations, err := e.persistence.AutomationRepository().All(ctx)
	if err != nil {
		return result, fmt.Errorf("failed to list automations: %w", err)
	}

	contacts, err := e.persistence.ContactRepository().All(ctx)
	if err != nil {
		return result, fmt.Errorf("failed to list contacts: %w", err)
	}

	now := e.clock.Now()

	for _, automation := range automations {
		if !automation.IsEnrollable() {
			continue
		}

		logger := e.logger.With("automation_id", automation.ID, "action", "refresh")

		graph, err := automation.Graph()
		if err != nil {
			result.fail(newFailure(automation.ID, "", "", err))

			continue
		}

		candidates := make([]*models.Contact, 0)

		for _, contact := range contacts {
			result.Processed++

			allowed, err := e.reentryAllows(ctx, automation, contact.ID, now)
			if err != nil {
				result.fail(newFailure(automation.ID, "", contact.ID, err))

				continue
			}

			if !allowed {
				continue
			}

			match := e.evaluator.Evaluate(automation.Filter, contact, now, automation.Timing)
			if match.Passes {
				candidates = append(candidates, contact)
			}
		}

		buckets := pacing.Schedule(len(candidates), automation.Pacing, now)

		logger.Info("Enrolling matched contacts", "matched", len(candidates), "pacing_days", len(buckets))

		for i, contact := range candidates {
			if err := e.enroll(ctx, automation, graph, contact, buckets, i, now); err != nil {
				result.fail(newFailure(automation.ID, "", contact.ID, err))

				continue
			}

			result.Enrolled++
		}
	}

	span.SetAttributes(attribute.Int("enrolled", result.Enrolled))

	return result, nil
}

// reentryAllows applies the dedupe and re-entry policy: an in-flight
// enrollment always blocks, and prior completed enrollments block unless the
// automation allows re-entry after a waiting period that has elapsed.
func (e *Engine) reentryAllows(ctx context.Context, automation *models.Automation, contactID string, now time.Time) (bool, error) {
	prior, err := e.persistence.EnrollmentRepository().ByContactAndAutomation(ctx, contactID, automation.ID)
	if err != nil {
		return false, err
	}

	if len(prior) == 0 {
		return true, nil
	}

	var lastEntered time.Time

	for _, enrollment := range prior {
		if enrollment.Status != models.EnrollmentStatusCompleted {
			return false, nil
		}

		if enrollment.LastEnteredAt.After(lastEntered) {
			lastEntered = enrollment.LastEnteredAt
		}
	}

	reentry := automation.Reentry
	if !reentry.Enabled || reentry.Type == models.ReentryNever {
		return false, nil
	}

	waitedLongEnough := now.Sub(lastEntered) >= time.Duration(reentry.Days)*24*time.Hour

	return waitedLongEnough, nil
}

func (e *Engine) enroll(ctx context.Context, automation *models.Automation, graph *models.WorkflowGraph, contact *models.Contact, buckets []pacing.DayBucket, index int, now time.Time) error {
	enrollment := &models.Enrollment{
		ID:            "enr-" + e.generateID(),
		ContactID:     contact.ID,
		AutomationID:  automation.ID,
		Status:        models.EnrollmentStatusActive,
		EnteredAt:     now,
		LastEnteredAt: now,
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	if path, ok := EntryPath(graph); ok {
		enrollment.CurrentNodePath = path
	} else {
		enrollment.Status = models.EnrollmentStatusCompleted
	}

	if automation.Pacing.Enabled {
		if date := pacing.DateFor(buckets, index); !date.IsZero() {
			enrollment.ScheduledStart = &date
		}
	}

	if err := e.persistence.EnrollmentRepository().Save(ctx, enrollment); err != nil {
		return err
	}

	e.publish(ctx, automation.ID, events.ContactEnrolled{
		BaseEvent:      events.NewBaseEvent(events.ContactEnrolledEvent, automation.ID),
		EnrollmentID:   enrollment.ID,
		ContactID:      contact.ID,
		ScheduledStart: enrollment.ScheduledStart,
	})

	if enrollment.Status == models.EnrollmentStatusCompleted {
		return nil
	}

	return e.drive(ctx, automation, graph, enrollment, contact)
}

// Verify re-checks waiting enrollments' delay targets and resumes the due
// ones. Delay targets are pure data: any tick at or past the target fires.
func (e *Engine) Verify(ctx context.Context) (TickResult, error) {
	result := TickResult{Action: "verify"}

	release, err := e.acquire(ctx, "verify")
	if err != nil {
		return result, err
	}
	defer release()

	ctx, span := e.tracer.Start(ctx, "tick.verify")
	defer span.End()

	waiting, err := e.persistence.EnrollmentRepository().ByStatus(ctx, models.EnrollmentStatusWaiting)
	if err != nil {
		return result, fmt.Errorf("failed to list waiting enrollments: %w", err)
	}

	now := e.clock.Now()

	for _, enrollment := range waiting {
		result.Processed++

		if !enrollment.IsDue(now) {
			continue
		}

		automation, graph, contact, err := e.loadContext(ctx, enrollment)
		if err != nil {
			result.fail(newFailure(enrollment.AutomationID, enrollment.ID, enrollment.ContactID, err))

			continue
		}

		// A paused automation stops advancing without touching the
		// recoverable waiting state.
		if automation.Status != models.AutomationStatusActive {
			continue
		}

		enrollment.Status = models.EnrollmentStatusActive
		enrollment.WaitUntil = nil

		if err := e.advanceAndDrive(ctx, automation, graph, enrollment, contact); err != nil {
			result.fail(newFailure(enrollment.AutomationID, enrollment.ID, enrollment.ContactID, err))

			continue
		}

		result.Resumed++
	}

	span.SetAttributes(attribute.Int("resumed", result.Resumed))

	return result, nil
}

// Send executes send_email effects for enrollments positioned at send nodes
// whose pacing date has arrived. The send log dedupes by (enrollment, node):
// a retried tick repairs the position instead of resending.
func (e *Engine) Send(ctx context.Context) (TickResult, error) {
	result := TickResult{Action: "send"}

	release, err := e.acquire(ctx, "send")
	if err != nil {
		return result, err
	}
	defer release()

	ctx, span := e.tracer.Start(ctx, "tick.send")
	defer span.End()

	active, err := e.persistence.EnrollmentRepository().ByStatus(ctx, models.EnrollmentStatusActive)
	if err != nil {
		return result, fmt.Errorf("failed to list active enrollments: %w", err)
	}

	now := e.clock.Now()

	for _, enrollment := range active {
		result.Processed++

		if !enrollment.StartAllowed(now) {
			continue
		}

		automation, graph, contact, err := e.loadContext(ctx, enrollment)
		if err != nil {
			result.fail(newFailure(enrollment.AutomationID, enrollment.ID, enrollment.ContactID, err))

			continue
		}

		if automation.Status != models.AutomationStatusActive {
			continue
		}

		node := graph.Node(enrollment.CurrentNodeID())
		if node == nil || node.Type != models.NodeTypeSendEmail {
			continue
		}

		sent, err := e.sendAt(ctx, automation, graph, enrollment, contact, node, now)
		if err != nil {
			result.fail(newFailure(enrollment.AutomationID, enrollment.ID, enrollment.ContactID, err))

			continue
		}

		if sent {
			result.Sent++
		}
	}

	span.SetAttributes(attribute.Int("sent", result.Sent))

	return result, nil
}

// sendAt performs one send_email effect and commits the advanced position
// together with the send record. The bool return reports whether a message
// actually went out (a crash-repair pass only fixes the position).
func (e *Engine) sendAt(ctx context.Context, automation *models.Automation, graph *models.WorkflowGraph, enrollment *models.Enrollment, contact *models.Contact, node *models.WorkflowNode, now time.Time) (bool, error) {
	config, err := models.ParseSendEmailConfig(node.Config)
	if err != nil {
		return false, err
	}

	alreadySent, err := e.persistence.SendLogRepository().WasSent(ctx, enrollment.ID, node.ID)
	if err != nil {
		return false, err
	}

	if !alreadySent {
		message := protocol.EmailMessage{
			ContactID:    contact.ID,
			AutomationID: automation.ID,
			NodeID:       node.ID,
			TemplateID:   config.TemplateID,
			Subject:      config.Subject,
		}

		if err := e.mailer.Send(ctx, message); err != nil {
			// Leave the position untouched; the next tick retries.
			return false, fmt.Errorf("mailer failed: %w", err)
		}
	}

	path, done := Advance(graph, enrollment.CurrentNodePath)
	if done {
		enrollment.Status = models.EnrollmentStatusCompleted
		enrollment.CurrentNodePath = nil
	} else {
		enrollment.CurrentNodePath = path
	}

	enrollment.UpdatedAt = now

	record := models.SendRecord{
		EnrollmentID: enrollment.ID,
		NodeID:       node.ID,
		TemplateID:   config.TemplateID,
		SentAt:       now,
	}

	if err := e.persistence.CommitSend(ctx, enrollment, record); err != nil {
		return false, err
	}

	if !alreadySent {
		e.publish(ctx, automation.ID, events.EmailSent{
			BaseEvent:    events.NewBaseEvent(events.EmailSentEvent, automation.ID),
			EnrollmentID: enrollment.ID,
			ContactID:    contact.ID,
			NodeID:       node.ID,
			TemplateID:   config.TemplateID,
		})
	}

	if done {
		e.publishCompleted(ctx, automation.ID, enrollment)

		return !alreadySent, nil
	}

	return !alreadySent, e.drive(ctx, automation, graph, enrollment, contact)
}

// advanceAndDrive leaves the current node and keeps driving until the
// enrollment blocks or completes.
func (e *Engine) advanceAndDrive(ctx context.Context, automation *models.Automation, graph *models.WorkflowGraph, enrollment *models.Enrollment, contact *models.Contact) error {
	path, done := Advance(graph, enrollment.CurrentNodePath)
	if done {
		return e.complete(ctx, automation, enrollment)
	}

	enrollment.CurrentNodePath = path

	return e.drive(ctx, automation, graph, enrollment, contact)
}

// drive executes nodes until the enrollment blocks at a send_email node,
// suspends at a delay node, or completes. It persists the final position.
func (e *Engine) drive(ctx context.Context, automation *models.Automation, graph *models.WorkflowGraph, enrollment *models.Enrollment, contact *models.Contact) error {
	now := e.clock.Now()

	for step := 0; step < maxDriveSteps; step++ {
		if len(enrollment.CurrentNodePath) == 0 {
			return e.complete(ctx, automation, enrollment)
		}

		node := graph.Node(enrollment.CurrentNodeID())
		if node == nil {
			path, done := Advance(graph, enrollment.CurrentNodePath)
			if done {
				return e.complete(ctx, automation, enrollment)
			}

			enrollment.CurrentNodePath = path

			continue
		}

		switch node.Type {
		case models.NodeTypeTrigger, models.NodeTypeEntryCriteria:
			// Structural nodes; nothing to execute.
			path, done := Advance(graph, enrollment.CurrentNodePath)
			if done {
				return e.complete(ctx, automation, enrollment)
			}

			enrollment.CurrentNodePath = path

		case models.NodeTypeEnd:
			return e.complete(ctx, automation, enrollment)

		case models.NodeTypeDelay:
			config, err := models.ParseDelayConfig(node.Config)
			if err != nil {
				return err
			}

			target := now.Add(config.Duration())
			enrollment.Status = models.EnrollmentStatusWaiting
			enrollment.WaitUntil = &target
			enrollment.UpdatedAt = now

			return e.persistence.EnrollmentRepository().Save(ctx, enrollment)

		case models.NodeTypeSendEmail:
			// The send tick owns the effect; hold position here.
			enrollment.Status = models.EnrollmentStatusActive
			enrollment.UpdatedAt = now

			return e.persistence.EnrollmentRepository().Save(ctx, enrollment)

		case models.NodeTypeCondition, models.NodeTypeFieldCondition:
			verdict, err := evaluateCondition(node, contact)
			if err != nil {
				return err
			}

			branch := models.BranchYes
			if !verdict {
				branch = models.BranchNo
			}

			path, done := Descend(graph, enrollment.CurrentNodePath, branch)
			if done {
				return e.complete(ctx, automation, enrollment)
			}

			enrollment.CurrentNodePath = path

		case models.NodeTypeUpdateField:
			config, err := models.ParseUpdateFieldConfig(node.Config)
			if err != nil {
				return err
			}

			contact.SetField(config.Field, config.Value)

			if err := e.persistence.ContactRepository().Save(ctx, contact); err != nil {
				return err
			}

			path, done := Advance(graph, enrollment.CurrentNodePath)
			if done {
				return e.complete(ctx, automation, enrollment)
			}

			enrollment.CurrentNodePath = path

		default:
			return fmt.Errorf("%w: %q at node %s", models.ErrUnknownNodeType, node.Type, node.ID)
		}
	}

	return fmt.Errorf("drive exceeded %d steps for enrollment %s", maxDriveSteps, enrollment.ID)
}

func (e *Engine) complete(ctx context.Context, automation *models.Automation, enrollment *models.Enrollment) error {
	enrollment.Status = models.EnrollmentStatusCompleted
	enrollment.CurrentNodePath = nil
	enrollment.UpdatedAt = e.clock.Now()

	if err := e.persistence.EnrollmentRepository().Save(ctx, enrollment); err != nil {
		return err
	}

	e.publishCompleted(ctx, automation.ID, enrollment)

	return nil
}

func (e *Engine) publishCompleted(ctx context.Context, automationID string, enrollment *models.Enrollment) {
	e.publish(ctx, automationID, events.EnrollmentCompleted{
		BaseEvent:    events.NewBaseEvent(events.EnrollmentCompletedEvent, automationID),
		EnrollmentID: enrollment.ID,
		ContactID:    enrollment.ContactID,
	})
}

func (e *Engine) loadContext(ctx context.Context, enrollment *models.Enrollment) (*models.Automation, *models.WorkflowGraph, *models.Contact, error) {
	automation, err := e.persistence.AutomationRepository().GetByID(ctx, enrollment.AutomationID)
	if err != nil {
		return nil, nil, nil, err
	}

	graph, err := automation.Graph()
	if err != nil {
		return nil, nil, nil, err
	}

	contact, err := e.persistence.ContactRepository().GetByID(ctx, enrollment.ContactID)
	if err != nil {
		return nil, nil, nil, err
	}

	return automation, graph, contact, nil
}

func (e *Engine) publish(ctx context.Context, key string, event eventbus.Event) {
	if e.eventBus == nil {
		return
	}

	if err := e.eventBus.Publish(ctx, key, event); err != nil {
		e.logger.Error("Failed to publish event", "event_type", event.GetType(), "error", err)
	}
}

func (e *Engine) acquire(ctx context.Context, name string) (func(), error) {
	if e.lock == nil {
		return func() {}, nil
	}

	return e.lock.Acquire(ctx, name)
}

func (e *Engine) generateID() string {
	return uuid.New().String()[:8]
}
