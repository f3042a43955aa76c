package migration

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

// Manager runs pending migrations in version order.
type Manager struct {
	scanner  Scanner
	executor Executor
	dir      string
	logger   *slog.Logger
}

// NewManager creates a Manager reading migrations from dir.
func NewManager(scanner Scanner, executor Executor, dir string, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{
		scanner:  scanner,
		executor: executor,
		dir:      dir,
		logger:   logger.With("component", "migration"),
	}
}

// RunMigrations applies every pending migration.
func (m *Manager) RunMigrations(ctx context.Context) error {
	startedAt := time.Now()

	status, err := m.Status(ctx)
	if err != nil {
		return err
	}

	m.logger.InfoContext(ctx, "schema status",
		"current_version", status.CurrentVersion,
		"applied", len(status.AppliedMigrations),
		"pending", len(status.PendingMigrations),
	)
	if len(status.PendingMigrations) == 0 {
		return nil
	}

	for i, migration := range status.PendingMigrations {
		logger := m.logger.With(
			"version", migration.Version,
			"description", migration.Description,
			"position", fmt.Sprintf("%d/%d", i+1, len(status.PendingMigrations)),
		)
		migrationStartedAt := time.Now()

		if err := m.executor.ExecuteMigration(ctx, migration); err != nil {
			logger.ErrorContext(ctx, "migration failed", "error", err)
			return NewMigrationError(migration.Version, migration.FilePath, "execute migration",
				fmt.Errorf("%w: %w", ErrMigrationFailed, err))
		}

		elapsed := time.Since(migrationStartedAt)
		if err := m.executor.RecordMigration(ctx, migration, elapsed); err != nil {
			logger.ErrorContext(ctx, "failed to record migration", "error", err)
			return NewMigrationError(migration.Version, migration.FilePath, "record migration", err)
		}
		logger.InfoContext(ctx, "migration applied", "duration", elapsed)
	}

	m.logger.InfoContext(ctx, "migrations completed",
		"count", len(status.PendingMigrations),
		"duration", time.Since(startedAt),
	)
	return nil
}

// Status compares the migration files with the schema_migrations table.
// Applied files whose checksum changed are reported as ErrChecksumMismatch.
func (m *Manager) Status(ctx context.Context) (Status, error) {
	if err := m.executor.InitializeVersionTable(ctx); err != nil {
		return Status{}, fmt.Errorf("failed to initialize version table: %w", err)
	}

	available, err := m.scanner.ScanMigrations(m.dir)
	if err != nil {
		return Status{}, fmt.Errorf("failed to scan migrations: %w", err)
	}

	applied, err := m.executor.AppliedMigrations(ctx)
	if err != nil {
		return Status{}, fmt.Errorf("failed to load applied migrations: %w", err)
	}

	appliedByVersion := make(map[string]AppliedMigration, len(applied))
	for _, record := range applied {
		appliedByVersion[record.Version] = record
	}

	status := Status{AppliedMigrations: applied}
	if len(applied) > 0 {
		status.CurrentVersion = applied[len(applied)-1].Version
	}

	for _, migration := range available {
		record, ok := appliedByVersion[migration.Version]
		if !ok {
			status.PendingMigrations = append(status.PendingMigrations, migration)
			continue
		}
		if record.Checksum != "" && record.Checksum != migration.Checksum {
			return Status{}, NewMigrationError(migration.Version, migration.FilePath, "verify checksum", ErrChecksumMismatch)
		}
	}

	return status, nil
}
