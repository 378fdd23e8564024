// Package cmd provides common initialization functions for command-line applications.
package cmd

import (
	"context"
	"log/slog"
	"strings"

	"github.com/bankops/caseflow/pkg/persistence"
	"github.com/bankops/caseflow/pkg/persistence/file"
	"github.com/bankops/caseflow/pkg/persistence/postgresql"
)

// NewDataStore picks a storage backend from the database URL scheme.
// postgres:// and postgresql:// URLs select the PostgreSQL store, anything
// else is treated as a directory path for the file store.
func NewDataStore(ctx context.Context, logger *slog.Logger, databaseURL string) (persistence.DataStore, error) {
	switch parseStoreProvider(databaseURL) {
	case "postgresql":
		return postgresql.NewDataStore(ctx, logger, databaseURL)
	default:
		return file.NewDataStore(strings.TrimPrefix(databaseURL, "file://")), nil
	}
}

func parseStoreProvider(databaseURL string) string {
	scheme, _, found := strings.Cut(databaseURL, "://")
	if !found {
		return "file"
	}

	switch scheme {
	case "postgres", "postgresql":
		return "postgresql"
	default:
		return "file"
	}
}
