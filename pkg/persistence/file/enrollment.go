package file

import (
	"context"

	"github.com/agencykit/automation/pkg/models"
	"github.com/agencykit/automation/pkg/persistence"
)

const enrollmentsDir = "enrollments"

// EnrollmentRepository stores one JSON document per enrollment. Queries scan
// the directory; acceptable for the deployment sizes the file layer targets.
type EnrollmentRepository struct {
	root string
}

func (r *EnrollmentRepository) GetByID(_ context.Context, id string) (*models.Enrollment, error) {
	enrollment := &models.Enrollment{}
	if err := readDocument(r.root, enrollmentsDir, id, enrollment, persistence.ErrEnrollmentNotFound); err != nil {
		return nil, err
	}

	return enrollment, nil
}

func (r *EnrollmentRepository) ByAutomation(ctx context.Context, automationID string) ([]*models.Enrollment, error) {
	return r.filter(ctx, func(e *models.Enrollment) bool {
		return e.AutomationID == automationID
	})
}

func (r *EnrollmentRepository) ByContactAndAutomation(ctx context.Context, contactID, automationID string) ([]*models.Enrollment, error) {
	return r.filter(ctx, func(e *models.Enrollment) bool {
		return e.ContactID == contactID && e.AutomationID == automationID
	})
}

func (r *EnrollmentRepository) ByStatus(ctx context.Context, status models.EnrollmentStatus) ([]*models.Enrollment, error) {
	return r.filter(ctx, func(e *models.Enrollment) bool {
		return e.Status == status
	})
}

func (r *EnrollmentRepository) Save(_ context.Context, enrollment *models.Enrollment) error {
	return writeDocument(r.root, enrollmentsDir, enrollment.ID, enrollment)
}

func (r *EnrollmentRepository) Delete(_ context.Context, id string) error {
	return deleteDocument(r.root, enrollmentsDir, id, persistence.ErrEnrollmentNotFound)
}

func (r *EnrollmentRepository) filter(ctx context.Context, keep func(*models.Enrollment) bool) ([]*models.Enrollment, error) {
	ids, err := listIDs(r.root, enrollmentsDir)
	if err != nil {
		return nil, err
	}

	enrollments := make([]*models.Enrollment, 0)

	for _, id := range ids {
		enrollment, err := r.GetByID(ctx, id)
		if err != nil {
			return nil, err
		}

		if keep(enrollment) {
			enrollments = append(enrollments, enrollment)
		}
	}

	return enrollments, nil
}
