// Package mailer provides the default send_email executors.
package mailer

import (
	"context"
	"log/slog"

	"github.com/agencykit/automation/pkg/protocol"
)

// LogMailer writes each message to the structured log instead of delivering
// it. It is the default when no delivery transport is configured, and the
// dry-run mailer for verifying automations against production data.
type LogMailer struct {
	logger *slog.Logger
}

func NewLogMailer(logger *slog.Logger) *LogMailer {
	return &LogMailer{logger: logger.With("module", "mailer")}
}

func (m *LogMailer) Send(_ context.Context, message protocol.EmailMessage) error {
	m.logger.Info("Sending email",
		"contact_id", message.ContactID,
		"automation_id", message.AutomationID,
		"node_id", message.NodeID,
		"template_id", message.TemplateID,
		"subject", message.Subject,
	)

	return nil
}
