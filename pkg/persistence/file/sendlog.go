package file

import (
	"context"
	"strings"

	"github.com/agencykit/automation/pkg/models"
	"github.com/agencykit/automation/pkg/persistence"
)

const sendLogDir = "sendlog"

// SendLogRepository stores one JSON document per committed send, keyed by
// the (enrollment, node) dedupe pair.
type SendLogRepository struct {
	root string
}

func sendKey(enrollmentID, nodeID string) string {
	return enrollmentID + "__" + nodeID
}

func (r *SendLogRepository) WasSent(_ context.Context, enrollmentID, nodeID string) (bool, error) {
	record := models.SendRecord{}

	err := readDocument(r.root, sendLogDir, sendKey(enrollmentID, nodeID), &record, persistence.ErrEnrollmentNotFound)
	if err != nil {
		if persistence.IsEnrollmentNotFound(err) {
			return false, nil
		}

		return false, err
	}

	return true, nil
}

func (r *SendLogRepository) ByEnrollment(_ context.Context, enrollmentID string) ([]models.SendRecord, error) {
	ids, err := listIDs(r.root, sendLogDir)
	if err != nil {
		return nil, err
	}

	records := make([]models.SendRecord, 0)

	for _, id := range ids {
		if !strings.HasPrefix(id, enrollmentID+"__") {
			continue
		}

		record := models.SendRecord{}
		if err := readDocument(r.root, sendLogDir, id, &record, persistence.ErrEnrollmentNotFound); err != nil {
			return nil, err
		}

		records = append(records, record)
	}

	return records, nil
}

func (r *SendLogRepository) save(record models.SendRecord) error {
	return writeDocument(r.root, sendLogDir, sendKey(record.EnrollmentID, record.NodeID), record)
}
