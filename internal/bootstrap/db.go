package bootstrap

import (
	"context"
	"database/sql"

	"github.com/enjoysite/friendmap/config"
	"github.com/enjoysite/friendmap/internal/storage/postgres"
)

// OpenDirectoryDB connects to PostgreSQL when a directory is configured and
// returns nil otherwise.
func OpenDirectoryDB(ctx context.Context, cfg *config.Config) (*sql.DB, error) {
	if !cfg.DirectoryEnabled() {
		return nil, nil
	}
	return postgres.NewConnection(ctx, &cfg.Database)
}
