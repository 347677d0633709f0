package engine

import "fmt"

// Failure reports one enrollment the tick could not process. Failures are
// collected, never fatal: one contact's bad day must not block the batch.
type Failure struct {
	AutomationID string `json:"automation_id"`
	EnrollmentID string `json:"enrollment_id,omitempty"`
	ContactID    string `json:"contact_id,omitempty"`
	Err          error  `json:"-"`
	Message      string `json:"message"`
}

func newFailure(automationID, enrollmentID, contactID string, err error) Failure {
	return Failure{
		AutomationID: automationID,
		EnrollmentID: enrollmentID,
		ContactID:    contactID,
		Err:          err,
		Message:      err.Error(),
	}
}

func (f Failure) Error() string {
	return fmt.Sprintf("enrollment %s (contact %s, automation %s): %v",
		f.EnrollmentID, f.ContactID, f.AutomationID, f.Err)
}

// TickResult summarizes one refresh, verify or send pass.
type TickResult struct {
	Action    string    `json:"action"`
	Processed int       `json:"processed"`
	Enrolled  int       `json:"enrolled,omitempty"`
	Resumed   int       `json:"resumed,omitempty"`
	Sent      int       `json:"sent,omitempty"`
	Failures  []Failure `json:"failures,omitempty"`
}

func (r *TickResult) fail(failure Failure) {
	r.Failures = append(r.Failures, failure)
}
