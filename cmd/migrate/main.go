// Command migrate manages the assessment engine's Postgres schema. It
// applies the SQL files under migrations/ in lexical order and records each
// one in a schema_migrations table so reruns are no-ops. The seed rows for
// the fraud pattern catalog ship as a migration, so a fresh database is
// assessment-ready after a single "up".
package main

import (
	"context"
	"database/sql"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	_ "github.com/lib/pq"

	"github.com/davidleathers/applicant-trust-engine/internal/infrastructure/config"
)

const (
	migrationsTable = "schema_migrations"
	migrationsDir   = "migrations"
)

type Migration struct {
	ID        string
	Filename  string
	AppliedAt time.Time
}

func main() {
	var (
		action = flag.String("action", "up", "one of: up (apply pending schema changes), down (unrecord applied ones), status, create")
		name   = flag.String("name", "", "short name for the new migration (create only)")
		steps  = flag.Int("steps", 0, "limit up/down to this many migrations (0 = no limit)")
	)
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("configuration invalid", "error", err)
		os.Exit(1)
	}

	db, err := sql.Open("postgres", cfg.Database.URL)
	if err != nil {
		slog.Error("cannot open assessment database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	m := &Migrator{db: db}
	ctx := context.Background()

	switch *action {
	case "up":
		err = m.Up(ctx, *steps)
	case "down":
		err = m.Down(ctx, *steps)
	case "status":
		err = m.Status(ctx)
	case "create":
		if *name == "" {
			slog.Error("create needs -name")
			os.Exit(1)
		}
		err = m.Create(*name)
	default:
		slog.Error("unknown action", "action", *action)
		os.Exit(1)
	}

	if err != nil {
		slog.Error("migration run failed", "action", *action, "error", err)
		os.Exit(1)
	}
}

type Migrator struct {
	db *sql.DB
}

func (m *Migrator) ensureMigrationsTable(ctx context.Context) error {
	query := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			id VARCHAR(255) PRIMARY KEY,
			filename VARCHAR(255) NOT NULL,
			applied_at TIMESTAMP WITH TIME ZONE DEFAULT NOW()
		)
	`, migrationsTable)

	_, err := m.db.ExecContext(ctx, query)
	return err
}

func (m *Migrator) applied(ctx context.Context) (map[string]Migration, error) {
	if err := m.ensureMigrationsTable(ctx); err != nil {
		return nil, fmt.Errorf("ensuring %s table: %w", migrationsTable, err)
	}

	query := fmt.Sprintf("SELECT id, filename, applied_at FROM %s ORDER BY applied_at", migrationsTable)
	rows, err := m.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("reading applied migrations: %w", err)
	}
	defer rows.Close()

	applied := make(map[string]Migration)
	for rows.Next() {
		var mg Migration
		if err := rows.Scan(&mg.ID, &mg.Filename, &mg.AppliedAt); err != nil {
			return nil, fmt.Errorf("scanning migration row: %w", err)
		}
		applied[mg.ID] = mg
	}

	return applied, rows.Err()
}

// pending returns the migration files not yet recorded, in apply order.
// Glob output is lexically sorted, which is the apply order by convention.
func (m *Migrator) pending(ctx context.Context) ([]string, error) {
	applied, err := m.applied(ctx)
	if err != nil {
		return nil, err
	}

	files, err := filepath.Glob(filepath.Join(migrationsDir, "*.sql"))
	if err != nil {
		return nil, fmt.Errorf("listing %s: %w", migrationsDir, err)
	}

	var pending []string
	for _, file := range files {
		id := extractMigrationID(filepath.Base(file))
		if _, done := applied[id]; !done {
			pending = append(pending, file)
		}
	}

	return pending, nil
}

func (m *Migrator) Up(ctx context.Context, steps int) error {
	pending, err := m.pending(ctx)
	if err != nil {
		return err
	}

	if len(pending) == 0 {
		slog.Info("schema is current, nothing to apply")
		return nil
	}

	if steps > 0 && steps < len(pending) {
		pending = pending[:steps]
	}

	for _, file := range pending {
		if err := m.apply(ctx, file); err != nil {
			return fmt.Errorf("applying %s: %w", file, err)
		}
		slog.Info("schema change applied", "file", file)
	}

	slog.Info("schema up to date", "applied", len(pending))
	return nil
}

func (m *Migrator) Down(ctx context.Context, steps int) error {
	applied, err := m.applied(ctx)
	if err != nil {
		return err
	}

	if len(applied) == 0 {
		slog.Info("no applied migrations to unrecord")
		return nil
	}

	// Most recently applied first.
	migrations := make([]Migration, 0, len(applied))
	for _, mg := range applied {
		migrations = append(migrations, mg)
	}
	sort.Slice(migrations, func(i, j int) bool {
		return migrations[i].AppliedAt.After(migrations[j].AppliedAt)
	})

	if steps > 0 && steps < len(migrations) {
		migrations = migrations[:steps]
	}

	for _, mg := range migrations {
		if err := m.unrecord(ctx, mg); err != nil {
			return fmt.Errorf("unrecording %s: %w", mg.Filename, err)
		}
		slog.Info("migration unrecorded", "file", mg.Filename)
	}

	slog.Info("rollback complete", "unrecorded", len(migrations))
	return nil
}

func (m *Migrator) Status(ctx context.Context) error {
	applied, err := m.applied(ctx)
	if err != nil {
		return err
	}

	pending, err := m.pending(ctx)
	if err != nil {
		return err
	}

	fmt.Printf("Applied: %d\n", len(applied))
	for _, mg := range applied {
		fmt.Printf("  %s - %s (at %s)\n",
			mg.ID, mg.Filename, mg.AppliedAt.Format(time.RFC3339))
	}

	fmt.Printf("\nPending: %d\n", len(pending))
	for _, file := range pending {
		fmt.Printf("  %s - %s\n", extractMigrationID(filepath.Base(file)), filepath.Base(file))
	}

	return nil
}

func (m *Migrator) Create(name string) error {
	timestamp := time.Now().Format("20060102150405")
	filename := fmt.Sprintf("%s_%s.sql", timestamp, name)
	path := filepath.Join(migrationsDir, filename)

	if err := os.MkdirAll(migrationsDir, 0755); err != nil {
		return fmt.Errorf("creating %s: %w", migrationsDir, err)
	}

	content := fmt.Sprintf("-- %s\n-- created %s\n\n", name, time.Now().Format(time.RFC3339))

	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}

	slog.Info("migration created", "file", path)
	return nil
}

// apply runs one migration file and records it, atomically.
func (m *Migrator) apply(ctx context.Context, file string) error {
	content, err := os.ReadFile(file)
	if err != nil {
		return fmt.Errorf("reading %s: %w", file, err)
	}

	tx, err := m.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, string(content)); err != nil {
		return fmt.Errorf("executing migration SQL: %w", err)
	}

	id := extractMigrationID(filepath.Base(file))
	query := fmt.Sprintf("INSERT INTO %s (id, filename) VALUES ($1, $2)", migrationsTable)
	if _, err := tx.ExecContext(ctx, query, id, filepath.Base(file)); err != nil {
		return fmt.Errorf("recording migration: %w", err)
	}

	return tx.Commit()
}

// unrecord removes the tracking row only. The schema changes themselves are
// forward-only; undoing one means writing a new migration.
func (m *Migrator) unrecord(ctx context.Context, mg Migration) error {
	query := fmt.Sprintf("DELETE FROM %s WHERE id = $1", migrationsTable)
	if _, err := m.db.ExecContext(ctx, query, mg.ID); err != nil {
		return fmt.Errorf("deleting migration record: %w", err)
	}

	slog.Warn("schema change left in place, only the record was removed",
		"migration", mg.Filename)
	return nil
}

func extractMigrationID(filename string) string {
	if id := strings.TrimSuffix(filename, ".sql"); id != "" {
		return id
	}
	return filename
}
