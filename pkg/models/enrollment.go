package models

import "time"

// EnrollmentStatus is the state of one contact's progress through an
// automation's workflow graph.
type EnrollmentStatus string

const (
	EnrollmentStatusActive    EnrollmentStatus = "active"    // Positioned at a node, advancing on ticks
	EnrollmentStatusWaiting   EnrollmentStatus = "waiting"   // Suspended at a delay node
	EnrollmentStatusCompleted EnrollmentStatus = "completed" // Reached an end node or exhausted the graph
)

// Enrollment is one contact's live progress through a specific automation.
// CurrentNodePath holds node ids from the top-level list down to the current
// node, so resuming after a delay needs no parent pointers in storage.
type Enrollment struct {
	ID              string           `json:"id"`
	ContactID       string           `json:"contact_id"    validate:"required"`
	AutomationID    string           `json:"automation_id" validate:"required"`
	CurrentNodePath []string         `json:"current_node_path"`
	Status          EnrollmentStatus `json:"status"`
	EnteredAt       time.Time        `json:"entered_at"`
	LastEnteredAt   time.Time        `json:"last_entered_at"`

	// WaitUntil is the recoverable delay target while Status is waiting.
	// It is pure data, not a live timer: any verify tick at or past this
	// instant resumes the enrollment.
	WaitUntil *time.Time `json:"wait_until,omitempty"`

	// ScheduledStart is the pacing-assigned date before which send_email
	// effects for this enrollment are held back. Nil means immediate.
	ScheduledStart *time.Time `json:"scheduled_start,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// CurrentNodeID returns the id of the node the enrollment is positioned at,
// or empty when the path is exhausted.
func (e *Enrollment) CurrentNodeID() string {
	if len(e.CurrentNodePath) == 0 {
		return ""
	}

	return e.CurrentNodePath[len(e.CurrentNodePath)-1]
}

// IsDue reports whether a waiting enrollment's delay target has been reached.
func (e *Enrollment) IsDue(now time.Time) bool {
	return e.Status == EnrollmentStatusWaiting && e.WaitUntil != nil && !now.Before(*e.WaitUntil)
}

// StartAllowed reports whether pacing permits send effects at the given time.
func (e *Enrollment) StartAllowed(now time.Time) bool {
	return e.ScheduledStart == nil || !now.Before(*e.ScheduledStart)
}

// SendRecord marks one committed send_email effect. The (EnrollmentID,
// NodeID) pair is the dedupe key that keeps retried ticks from resending.
type SendRecord struct {
	EnrollmentID string    `json:"enrollment_id"`
	NodeID       string    `json:"node_id"`
	TemplateID   string    `json:"template_id"`
	SentAt       time.Time `json:"sent_at"`
}
