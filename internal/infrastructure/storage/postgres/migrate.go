package postgres

import (
	"context"
	_ "embed"
	"fmt"

	"landportal/pkg/logger"
)

//go:embed schema/catalog.sql
var catalogSchema string

// Migrate creates the catalog tables that do not exist yet.
func Migrate(ctx context.Context, pool *Pool) error {
	if _, err := pool.Exec(ctx, catalogSchema); err != nil {
		return fmt.Errorf("apply catalog schema: %w", err)
	}
	logger.Info(ctx, "catalog schema applied")
	return nil
}
