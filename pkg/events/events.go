// Package events defines event types for enrollment lifecycle notifications.
package events

import (
	"time"

	"github.com/google/uuid"
)

type EventType string

// Topic carries all automation lifecycle events.
const Topic = "automation.events"

const EventMetadataKey = "key"
const EventTypeMetadataKey = "event_type"

const (
	ContactEnrolledEvent     EventType = "contact.enrolled"
	EmailSentEvent           EventType = "email.sent"
	EnrollmentCompletedEvent EventType = "enrollment.completed"
	AutomationPausedEvent    EventType = "automation.paused"
	AutomationResumedEvent   EventType = "automation.resumed"
)

type BaseEvent struct {
	ID           string         `json:"id"`
	Type         EventType      `json:"type"`
	Timestamp    time.Time      `json:"timestamp"`
	AutomationID string         `json:"automation_id"`
	Metadata     map[string]any `json:"metadata,omitempty"`
}

// NewBaseEvent creates the common envelope of an automation event.
func NewBaseEvent(eventType EventType, automationID string) BaseEvent {
	return BaseEvent{
		ID:           uuid.New().String(),
		Type:         eventType,
		Timestamp:    time.Now().UTC(),
		AutomationID: automationID,
	}
}

type ContactEnrolled struct {
	BaseEvent

	EnrollmentID   string     `json:"enrollment_id"`
	ContactID      string     `json:"contact_id"`
	ScheduledStart *time.Time `json:"scheduled_start,omitempty"`
}

func (e ContactEnrolled) GetType() EventType {
	return ContactEnrolledEvent
}

type EmailSent struct {
	BaseEvent

	EnrollmentID string `json:"enrollment_id"`
	ContactID    string `json:"contact_id"`
	NodeID       string `json:"node_id"`
	TemplateID   string `json:"template_id"`
}

func (e EmailSent) GetType() EventType {
	return EmailSentEvent
}

type EnrollmentCompleted struct {
	BaseEvent

	EnrollmentID string `json:"enrollment_id"`
	ContactID    string `json:"contact_id"`
}

func (e EnrollmentCompleted) GetType() EventType {
	return EnrollmentCompletedEvent
}

type AutomationPaused struct {
	BaseEvent
}

func (e AutomationPaused) GetType() EventType {
	return AutomationPausedEvent
}

type AutomationResumed struct {
	BaseEvent
}

func (e AutomationResumed) GetType() EventType {
	return AutomationResumedEvent
}
