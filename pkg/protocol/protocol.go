// Package protocol defines the contracts between the automation engine and
// its collaborators: the clock, the email sender and the tick run lock.
package protocol

import (
	"context"
	"errors"
	"time"
)

// Clock supplies the current time. The engine never reads the wall clock
// directly; injecting the clock keeps delay resumption and pacing buckets
// deterministic under test.
type Clock interface {
	Now() time.Time
}

// SystemClock is the production clock.
type SystemClock struct{}

// Now returns the current UTC time.
func (SystemClock) Now() time.Time {
	return time.Now().UTC()
}

// EmailMessage is the handoff payload for a send_email node. Delivery
// transport is the mailer collaborator's concern, not the engine's.
type EmailMessage struct {
	ContactID    string `json:"contact_id"`
	AutomationID string `json:"automation_id"`
	NodeID       string `json:"node_id"`
	TemplateID   string `json:"template_id"`
	Subject      string `json:"subject,omitempty"`
}

// Mailer executes send_email node effects.
type Mailer interface {
	Send(ctx context.Context, message EmailMessage) error
}

// ErrLockHeld is returned when a tick's run lock is already taken; the
// caller skips the tick instead of running concurrently with the holder.
var ErrLockHeld = errors.New("run lock already held")

// RunLock guards against overlapping ticks. Ticks are serialized by the
// external scheduler, so the lock is a defensive measure, not a correctness
// requirement beyond double-send protection.
type RunLock interface {
	// Acquire takes the named lock and returns its release function.
	Acquire(ctx context.Context, name string) (func(), error)
}
