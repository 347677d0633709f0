// Package file provides file-based persistence for automations, contacts,
// enrollments and the send log. Each document is one JSON file; the layout
// is meant for development and small single-agency deployments.
package file

import (
	"context"
	"encoding/json"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/agencykit/automation/pkg/models"
	"github.com/agencykit/automation/pkg/persistence"
)

// Persistence implements persistence.Persistence on the file system.
type Persistence struct {
	root           string
	automationRepo *AutomationRepository
	contactRepo    *ContactRepository
	enrollmentRepo *EnrollmentRepository
	sendLogRepo    *SendLogRepository
}

// NewPersistence creates a file persistence layer rooted at the given
// directory. A "file://" URL prefix is accepted and stripped.
func NewPersistence(root string) *Persistence {
	cleanRoot := strings.Replace(root, "file://", "", 1)

	return &Persistence{
		root:           cleanRoot,
		automationRepo: &AutomationRepository{root: cleanRoot},
		contactRepo:    &ContactRepository{root: cleanRoot},
		enrollmentRepo: &EnrollmentRepository{root: cleanRoot},
		sendLogRepo:    &SendLogRepository{root: cleanRoot},
	}
}

func (fp *Persistence) AutomationRepository() persistence.AutomationRepository {
	return fp.automationRepo
}

func (fp *Persistence) ContactRepository() persistence.ContactRepository {
	return fp.contactRepo
}

func (fp *Persistence) EnrollmentRepository() persistence.EnrollmentRepository {
	return fp.enrollmentRepo
}

func (fp *Persistence) SendLogRepository() persistence.SendLogRepository {
	return fp.sendLogRepo
}

// CommitSend writes the send record before the advanced enrollment. If the
// process dies between the two writes the next tick finds the record, skips
// the resend and repairs the position, which keeps delivery at-least-once
// without double-sending.
func (fp *Persistence) CommitSend(ctx context.Context, enrollment *models.Enrollment, record models.SendRecord) error {
	if err := fp.sendLogRepo.save(record); err != nil {
		return fmt.Errorf("failed to record send: %w", err)
	}

	if err := fp.enrollmentRepo.Save(ctx, enrollment); err != nil {
		return fmt.Errorf("failed to save enrollment after send: %w", err)
	}

	return nil
}

// HealthCheck verifies the root directory exists.
func (fp *Persistence) HealthCheck(_ context.Context) error {
	if _, err := os.Stat(fp.root); os.IsNotExist(err) {
		return os.ErrNotExist
	}

	return nil
}

// Close performs any necessary cleanup. Nothing to clean up for files.
func (fp *Persistence) Close(_ context.Context) error {
	return nil
}

// writeDocument marshals a document and writes it under dir/<id>.json,
// creating the directory on first use.
func writeDocument(root, dir, id string, document any) error {
	payload, err := json.MarshalIndent(document, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal document %s: %w", id, err)
	}

	target := filepath.Join(root, dir)
	if err := os.MkdirAll(target, 0o755); err != nil {
		return fmt.Errorf("failed to create directory %s: %w", target, err)
	}

	path := filepath.Join(target, id+".json")
	if err := os.WriteFile(path, payload, 0o644); err != nil {
		return fmt.Errorf("failed to write document %s: %w", path, err)
	}

	return nil
}

// readDocument reads dir/<id>.json into the given document. Missing files
// surface the provided notFound sentinel.
func readDocument(root, dir, id string, document any, notFound error) error {
	path := filepath.Join(root, dir, id+".json")

	payload, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("%w: %s", notFound, id)
		}

		return fmt.Errorf("failed to read document %s: %w", path, err)
	}

	if err := json.Unmarshal(payload, document); err != nil {
		return fmt.Errorf("failed to unmarshal document %s: %w", path, err)
	}

	return nil
}

// listIDs returns the document ids stored under dir.
func listIDs(root, dir string) ([]string, error) {
	fsys := os.DirFS(filepath.Join(root, dir))

	files, err := fs.Glob(fsys, "*.json")
	if err != nil {
		return nil, fmt.Errorf("failed to list documents in %s: %w", dir, err)
	}

	ids := make([]string, 0, len(files))
	for _, file := range files {
		ids = append(ids, strings.TrimSuffix(file, ".json"))
	}

	return ids, nil
}

func deleteDocument(root, dir, id string, notFound error) error {
	path := filepath.Join(root, dir, id+".json")

	if err := os.Remove(path); err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("%w: %s", notFound, id)
		}

		return fmt.Errorf("failed to delete document %s: %w", path, err)
	}

	return nil
}
