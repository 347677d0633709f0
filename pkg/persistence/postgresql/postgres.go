// Package postgresql provides PostgreSQL persistence for automations,
// contacts, enrollments and the send log.
package postgresql

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	_ "github.com/lib/pq" // PostgreSQL driver

	"github.com/agencykit/automation/pkg/models"
	"github.com/agencykit/automation/pkg/persistence"
)

// Persistence implements the persistence layer for PostgreSQL.
type Persistence struct {
	db             *sql.DB
	logger         *slog.Logger
	automationRepo *AutomationRepository
	contactRepo    *ContactRepository
	enrollmentRepo *EnrollmentRepository
	sendLogRepo    *SendLogRepository
}

// NewPersistence connects, runs migrations and returns the persistence layer.
func NewPersistence(ctx context.Context, logger *slog.Logger, databaseURL string) (*Persistence, error) {
	database, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to PostgreSQL database: %w", err)
	}

	if err := database.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	postgres := &Persistence{
		db:             database,
		logger:         logger.With("module", "postgresql"),
		automationRepo: &AutomationRepository{db: database},
		contactRepo:    &ContactRepository{db: database},
		enrollmentRepo: &EnrollmentRepository{db: database},
		sendLogRepo:    &SendLogRepository{db: database},
	}

	if err := postgres.runMigrations(ctx); err != nil {
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return postgres, nil
}

func (p *Persistence) AutomationRepository() persistence.AutomationRepository {
	return p.automationRepo
}

func (p *Persistence) ContactRepository() persistence.ContactRepository {
	return p.contactRepo
}

func (p *Persistence) EnrollmentRepository() persistence.EnrollmentRepository {
	return p.enrollmentRepo
}

func (p *Persistence) SendLogRepository() persistence.SendLogRepository {
	return p.sendLogRepo
}

// CommitSend records the send and the advanced enrollment in one transaction.
func (p *Persistence) CommitSend(ctx context.Context, enrollment *models.Enrollment, record models.SendRecord) error {
	tx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin send transaction: %w", err)
	}

	defer func() {
		_ = tx.Rollback()
	}()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO send_log (enrollment_id, node_id, template_id, sent_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (enrollment_id, node_id) DO NOTHING`,
		record.EnrollmentID, record.NodeID, record.TemplateID, record.SentAt,
	)
	if err != nil {
		return fmt.Errorf("failed to record send: %w", err)
	}

	if err := saveEnrollmentTx(ctx, tx, enrollment); err != nil {
		return fmt.Errorf("failed to save enrollment after send: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit send transaction: %w", err)
	}

	return nil
}

// HealthCheck verifies the database connection is healthy.
func (p *Persistence) HealthCheck(ctx context.Context) error {
	if err := p.db.PingContext(ctx); err != nil {
		return fmt.Errorf("failed to ping database: %w", err)
	}

	return nil
}

// Close closes the database connection.
func (p *Persistence) Close(_ context.Context) error {
	if p.db != nil {
		if err := p.db.Close(); err != nil {
			return fmt.Errorf("failed to close database connection: %w", err)
		}
	}

	return nil
}

func (p *Persistence) runMigrations(ctx context.Context) error {
	_, err := p.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INT PRIMARY KEY,
			applied_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW()
		)`)
	if err != nil {
		return fmt.Errorf("failed to create schema_migrations table: %w", err)
	}

	for version := 1; ; version++ {
		migration, ok := migrations()[version]
		if !ok {
			return nil
		}

		var applied bool

		err := p.db.QueryRowContext(ctx,
			`SELECT EXISTS (SELECT 1 FROM schema_migrations WHERE version = $1)`, version,
		).Scan(&applied)
		if err != nil {
			return fmt.Errorf("failed to check migration %d: %w", version, err)
		}

		if applied {
			continue
		}

		p.logger.Info("Applying migration", "version", version)

		tx, err := p.db.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("failed to begin migration %d: %w", version, err)
		}

		if _, err := tx.ExecContext(ctx, migration); err != nil {
			_ = tx.Rollback()

			return fmt.Errorf("failed to apply migration %d: %w", version, err)
		}

		if _, err := tx.ExecContext(ctx, `INSERT INTO schema_migrations (version) VALUES ($1)`, version); err != nil {
			_ = tx.Rollback()

			return fmt.Errorf("failed to mark migration %d: %w", version, err)
		}

		if err := tx.Commit(); err != nil {
			return fmt.Errorf("failed to commit migration %d: %w", version, err)
		}
	}
}
