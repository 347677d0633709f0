// Package persistence provides the storage abstraction for automations,
// contacts, enrollments and the send log.
package persistence

import (
	"context"

	"github.com/agencykit/automation/pkg/models"
)

type Persistence interface {
	AutomationRepository() AutomationRepository
	ContactRepository() ContactRepository
	EnrollmentRepository() EnrollmentRepository
	SendLogRepository() SendLogRepository

	// CommitSend records a send_email effect and the enrollment's advanced
	// position as one commit. Splitting the two would let a crash between
	// them resend on the retry tick.
	CommitSend(ctx context.Context, enrollment *models.Enrollment, record models.SendRecord) error

	HealthCheck(ctx context.Context) error
	Close(ctx context.Context) error
}

type AutomationRepository interface {
	All(ctx context.Context) ([]*models.Automation, error)
	GetByID(ctx context.Context, id string) (*models.Automation, error)
	Save(ctx context.Context, automation *models.Automation) error
	Delete(ctx context.Context, id string) error
}

type ContactRepository interface {
	All(ctx context.Context) ([]*models.Contact, error)
	GetByID(ctx context.Context, id string) (*models.Contact, error)
	Save(ctx context.Context, contact *models.Contact) error
}

type EnrollmentRepository interface {
	GetByID(ctx context.Context, id string) (*models.Enrollment, error)
	ByAutomation(ctx context.Context, automationID string) ([]*models.Enrollment, error)
	ByContactAndAutomation(ctx context.Context, contactID, automationID string) ([]*models.Enrollment, error)
	ByStatus(ctx context.Context, status models.EnrollmentStatus) ([]*models.Enrollment, error)
	Save(ctx context.Context, enrollment *models.Enrollment) error
	Delete(ctx context.Context, id string) error
}

type SendLogRepository interface {
	WasSent(ctx context.Context, enrollmentID, nodeID string) (bool, error)
	ByEnrollment(ctx context.Context, enrollmentID string) ([]models.SendRecord, error)
}
