package migration

import (
	"context"
	"time"
)

// Migration is one versioned SQL file.
type Migration struct {
	Version     string
	Description string
	SQL         string
	FilePath    string
	Checksum    string
}

// AppliedMigration is a row of the schema_migrations table.
type AppliedMigration struct {
	Version       string
	AppliedAt     time.Time
	ExecutionTime time.Duration
	Checksum      string
}

// Status summarizes the schema state.
type Status struct {
	CurrentVersion    string
	AppliedMigrations []AppliedMigration
	PendingMigrations []Migration
}

// Scanner discovers migration files.
type Scanner interface {
	ScanMigrations(dir string) ([]Migration, error)
}

// Executor applies migrations and tracks which ones ran.
type Executor interface {
	InitializeVersionTable(ctx context.Context) error
	ExecuteMigration(ctx context.Context, migration Migration) error
	RecordMigration(ctx context.Context, migration Migration, executionTime time.Duration) error
	AppliedMigrations(ctx context.Context) ([]AppliedMigration, error)
}
