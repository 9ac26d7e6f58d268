package db

import (
	"database/sql"
	"embed"
	"fmt"
	"io/fs"
	"sort"
	"strconv"
	"strings"
)

//go:embed sql/*.sql
var schemaFS embed.FS

// Tables the repo layer depends on. Migrate refuses to report success unless
// all of them exist afterwards, so a bad or truncated schema file fails at
// startup instead of at the first query.
var requiredTables = []string{
	"users",
	"missions",
	"applications",
	"surveys",
	"reports",
	"messages",
	"notifications",
}

type step struct {
	version int
	name    string
	sql     string
}

// Migrate brings the schema up to date. The applied version lives in SQLite's
// user_version pragma, so the schema carries no bookkeeping table of its own.
// Each step runs in its own transaction; a failure leaves earlier steps
// applied and recorded.
func Migrate(conn *sql.DB) error {
	steps, err := loadSteps()
	if err != nil {
		return err
	}
	current, err := schemaVersion(conn)
	if err != nil {
		return err
	}
	for _, s := range steps {
		if s.version <= current {
			continue
		}
		if err := applyStep(conn, s); err != nil {
			return err
		}
		current = s.version
	}
	return verifyTables(conn)
}

func loadSteps() ([]step, error) {
	files, err := fs.ReadDir(schemaFS, "sql")
	if err != nil {
		return nil, err
	}
	steps := make([]step, 0, len(files))
	for _, f := range files {
		if f.IsDir() {
			continue
		}
		prefix, _, ok := strings.Cut(f.Name(), "_")
		if !ok {
			return nil, fmt.Errorf("schema file %s: want NNNN_name.sql", f.Name())
		}
		v, err := strconv.Atoi(prefix)
		if err != nil {
			return nil, fmt.Errorf("schema file %s: %w", f.Name(), err)
		}
		data, err := schemaFS.ReadFile("sql/" + f.Name())
		if err != nil {
			return nil, err
		}
		steps = append(steps, step{version: v, name: f.Name(), sql: string(data)})
	}
	sort.Slice(steps, func(i, j int) bool { return steps[i].version < steps[j].version })
	return steps, nil
}

func schemaVersion(conn *sql.DB) (int, error) {
	var v int
	if err := conn.QueryRow(`PRAGMA user_version`).Scan(&v); err != nil {
		return 0, fmt.Errorf("read user_version: %w", err)
	}
	return v, nil
}

func applyStep(conn *sql.DB, s step) error {
	tx, err := conn.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()
	if _, err := tx.Exec(s.sql); err != nil {
		return fmt.Errorf("apply %s: %w", s.name, err)
	}
	// PRAGMA takes no bind parameters; the version comes from our own
	// filenames, never from user input.
	if _, err := tx.Exec(fmt.Sprintf(`PRAGMA user_version = %d`, s.version)); err != nil {
		return fmt.Errorf("record %s: %w", s.name, err)
	}
	return tx.Commit()
}

func verifyTables(conn *sql.DB) error {
	rows, err := conn.Query(`SELECT name FROM sqlite_master WHERE type = 'table'`)
	if err != nil {
		return err
	}
	defer rows.Close()
	present := make(map[string]bool)
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return err
		}
		present[name] = true
	}
	if err := rows.Err(); err != nil {
		return err
	}
	for _, table := range requiredTables {
		if !present[table] {
			return fmt.Errorf("schema incomplete after migration: missing table %s", table)
		}
	}
	return nil
}
