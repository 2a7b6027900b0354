package db

import (
	"fmt"
	"strings"

	"github.com/goran-ethernal/BuildersIndexer/internal/logger"
	"github.com/jmoiron/sqlx"
	migrate "github.com/rubenv/sql-migrate"
	"github.com/rubenv/sql-migrate/sqlparse"
)

const (
	NoLimitMigrations = 0 // indicate that there is no limit on the number of migrations to run
)

// Migration is one embedded SQL file with "-- +migrate Up" and "-- +migrate Down" sections.
// Prefix namespaces the ID so handlers can ship their own migrations next to the core ones.
type Migration struct {
	ID     string
	SQL    string
	Prefix string
}

// RunMigrations will execute pending migrations if needed to keep
// the database updated with the latest changes.
func RunMigrations(log *logger.Logger, db *sqlx.DB, migrations []Migration) error {
	return RunMigrationsExtended(log, db, migrations, migrate.Up, NoLimitMigrations)
}

// RunMigrationsExtended is an extended version of RunMigrations that allows
// dir: can be migrate.Up or migrate.Down
// maxMigrations: Will apply at most `max` migrations. Pass 0 for no limit (or use Exec)
func RunMigrationsExtended(log *logger.Logger,
	db *sqlx.DB,
	migrationsParam []Migration,
	dir migrate.MigrationDirection,
	maxMigrations int) error {
	migs, err := buildMigrationSource(migrationsParam)
	if err != nil {
		return err
	}

	var listMigrations strings.Builder
	for _, m := range migs.Migrations {
		listMigrations.WriteString(m.Id + ", ")
	}

	// handler migrations come and go with the configured contracts
	migrate.SetIgnoreUnknown(true)

	dialect := MigrationDialect(db)

	log.Debugf("running %s migrations: (max %d/%d) migrations: %s", dialect, maxMigrations,
		len(migs.Migrations),
		listMigrations.String())

	nMigrations, err := migrate.ExecMax(db.DB, dialect, migs, dir, maxMigrations)
	if err != nil {
		return fmt.Errorf("error executing migration (max %d/%d) migrations: %s . Err: %w",
			maxMigrations, len(migs.Migrations), listMigrations.String(), err)
	}

	log.Infof("successfully ran %d migrations from migrations: %s", nMigrations, listMigrations.String())
	return nil
}

// buildMigrationSource parses every migration into individual statements,
// so drivers that reject multi-statement Exec calls still work.
func buildMigrationSource(migrations []Migration) (*migrate.MemoryMigrationSource, error) {
	migs := &migrate.MemoryMigrationSource{Migrations: make([]*migrate.Migration, 0, len(migrations))}

	for _, m := range migrations {
		if !strings.Contains(m.SQL, "-- +migrate Up") {
			return nil, fmt.Errorf("migration %s missing '-- +migrate Up' separator", m.ID)
		}

		parsed, err := sqlparse.ParseMigration(strings.NewReader(m.SQL))
		if err != nil {
			return nil, fmt.Errorf("failed to parse migration %s: %w", m.ID, err)
		}

		id := m.ID
		if m.Prefix != "" {
			id = m.Prefix + "_" + m.ID
		}

		migs.Migrations = append(migs.Migrations, &migrate.Migration{
			Id:                     id,
			Up:                     parsed.UpStatements,
			Down:                   parsed.DownStatements,
			DisableTransactionUp:   parsed.DisableTransactionUp,
			DisableTransactionDown: parsed.DisableTransactionDown,
		})
	}

	return migs, nil
}
