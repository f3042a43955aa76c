// Package migration applies versioned SQL schema changes to the booking
// database.
//
// Migration files are named {version}_{description}.sql and are read from an
// fs.FS, normally the files embedded into the sqlite package. Each file runs
// in its own transaction and is recorded in the schema_migrations table so it
// is applied exactly once.
//
//	manager := migration.NewManager(migration.NewScanner(fsys), migration.NewExecutor(db), "migrations", logger)
//	if err := manager.RunMigrations(ctx); err != nil {
//		return err
//	}
package migration
