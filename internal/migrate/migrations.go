package migrate

import (
	"database/sql"
	"embed"
	"fmt"
	"io/fs"
	"strconv"
	"strings"
)

//go:embed sql/*.sql
var schemaFS embed.FS

// Migrate brings the workshop database up to the current schema. Each
// sql/NNNN_name.sql file runs at most once; the applied version lives in
// SQLite's user_version pragma. fs.ReadDir returns entries sorted by name,
// which is also version order because the prefixes are zero-padded.
func Migrate(db *sql.DB) error {
	entries, err := fs.ReadDir(schemaFS, "sql")
	if err != nil {
		return fmt.Errorf("read schema dir: %w", err)
	}

	tx, err := db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	var applied int
	if err := tx.QueryRow(`PRAGMA user_version`).Scan(&applied); err != nil {
		return fmt.Errorf("read schema version: %w", err)
	}

	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		version, err := fileVersion(e.Name())
		if err != nil {
			return err
		}
		if version <= applied {
			continue
		}
		stmts, err := schemaFS.ReadFile("sql/" + e.Name())
		if err != nil {
			return err
		}
		if _, err := tx.Exec(string(stmts)); err != nil {
			return fmt.Errorf("apply %s: %w", e.Name(), err)
		}
		// PRAGMA does not take placeholders.
		if _, err := tx.Exec(fmt.Sprintf("PRAGMA user_version = %d", version)); err != nil {
			return fmt.Errorf("record schema version: %w", err)
		}
		applied = version
	}
	return tx.Commit()
}

func fileVersion(name string) (int, error) {
	prefix, _, ok := strings.Cut(name, "_")
	if !ok {
		return 0, fmt.Errorf("schema file %s: want NNNN_name.sql", name)
	}
	v, err := strconv.Atoi(prefix)
	if err != nil {
		return 0, fmt.Errorf("schema file %s: %w", name, err)
	}
	return v, nil
}
