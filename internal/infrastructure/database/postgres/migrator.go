package postgres

import (
	stderrors "errors"
	"strings"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/pgx/v5" // pgx migration driver
	_ "github.com/golang-migrate/migrate/v4/source/file"     // file:// migration source

	"github.com/claimscope/claimscope/pkg/errors"
)

// migrateURL rewrites the postgres:// DSN for golang-migrate's pgx driver.
func migrateURL(dbURL string) string {
	return "pgx5://" + strings.TrimPrefix(dbURL, "postgres://")
}

// RunMigrations applies all pending migrations from sourcePath (a directory
// of NNNN_name.up.sql / .down.sql files). Called on startup; a schema that
// is already current is not an error.
func RunMigrations(dbURL, sourcePath string) error {
	m, err := migrate.New("file://"+sourcePath, migrateURL(dbURL))
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeDatabaseError, "opening migrations")
	}
	defer m.Close()

	if err := m.Up(); err != nil && !stderrors.Is(err, migrate.ErrNoChange) {
		return errors.Wrap(err, errors.ErrCodeDatabaseError, "applying migrations")
	}
	return nil
}

// RollbackMigrations reverts the given number of migration steps. Intended
// for development and recovery, not for the normal startup path.
func RollbackMigrations(dbURL, sourcePath string, steps int) error {
	if steps <= 0 {
		return errors.InvalidParam("rollback steps must be > 0")
	}
	m, err := migrate.New("file://"+sourcePath, migrateURL(dbURL))
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeDatabaseError, "opening migrations")
	}
	defer m.Close()

	if err := m.Steps(-steps); err != nil && !stderrors.Is(err, migrate.ErrNoChange) {
		return errors.Wrap(err, errors.ErrCodeDatabaseError, "rolling back migrations")
	}
	return nil
}

// MigrationStatus reports the applied schema version and whether a failed
// migration left the schema dirty.
func MigrationStatus(dbURL, sourcePath string) (version uint, dirty bool, err error) {
	m, err := migrate.New("file://"+sourcePath, migrateURL(dbURL))
	if err != nil {
		return 0, false, errors.Wrap(err, errors.ErrCodeDatabaseError, "opening migrations")
	}
	defer m.Close()

	version, dirty, err = m.Version()
	if stderrors.Is(err, migrate.ErrNilVersion) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, errors.Wrap(err, errors.ErrCodeDatabaseError, "reading migration version")
	}
	return version, dirty, nil
}
