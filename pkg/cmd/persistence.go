// Package cmd wires shared infrastructure for the binaries.
package cmd

import (
	"context"
	"log/slog"
	"strings"

	"github.com/agencykit/automation/pkg/persistence"
	"github.com/agencykit/automation/pkg/persistence/file"
	"github.com/agencykit/automation/pkg/persistence/postgresql"
)

// NewPersistence builds the storage backend from the database URL scheme.
// postgres URLs get the SQL backend; anything else is treated as a file
// root path.
func NewPersistence(ctx context.Context, logger *slog.Logger, databaseURL string) persistence.Persistence {
	switch parseProvider(databaseURL) {
	case "postgres", "postgresql":
		p, err := postgresql.NewPersistence(ctx, logger, databaseURL)
		if err != nil {
			panic("failed to initialize postgresql persistence: " + err.Error())
		}

		return p
	default:
		return file.NewPersistence(databaseURL)
	}
}

func parseProvider(databaseURL string) string {
	scheme, _, found := strings.Cut(databaseURL, "://")
	if !found {
		return "file"
	}

	return scheme
}
