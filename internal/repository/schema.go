package repository

import (
	"context"
	"embed"
	"fmt"
	"strings"
)

//go:embed schema/*.sql
var schemaFS embed.FS

// EnsureSchema creates the users and tasks tables if they do not exist yet.
// It only runs idempotent CREATE statements and never alters existing tables.
func EnsureSchema(ctx context.Context, db *DB) error {
	content, err := schemaFS.ReadFile("schema/" + db.driver + ".sql")
	if err != nil {
		return fmt.Errorf("read %s schema: %w", db.driver, err)
	}

	// The MySQL driver rejects multi-statement Exec calls by default.
	for _, stmt := range strings.Split(string(content), ";") {
		stmt = strings.TrimSpace(stmt)
		if stmt == "" {
			continue
		}
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("apply %s schema: %w", db.driver, err)
		}
	}

	return nil
}
