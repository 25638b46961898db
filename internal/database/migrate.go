package database

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"strings"
)

// Migrate applies the schema file at path to the database.  Statements
// are separated by semicolons and executed in order; every statement
// uses IF NOT EXISTS so repeated startups are harmless.  This is
// intentionally simple: the schema is small and forward-only, and a
// dedicated migration tool would be overkill for it.
func Migrate(ctx context.Context, db *sql.DB, path string) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read schema: %w", err)
	}
	for _, stmt := range strings.Split(string(raw), ";") {
		stmt = strings.TrimSpace(stmt)
		if stmt == "" {
			continue
		}
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("apply schema statement: %w", err)
		}
	}
	return nil
}
