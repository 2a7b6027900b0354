package migrations

import (
	_ "embed"

	"github.com/goran-ethernal/BuildersIndexer/internal/db"
	"github.com/goran-ethernal/BuildersIndexer/internal/logger"
	"github.com/jmoiron/sqlx"
)

//go:embed 001_checkpoints.sql
var mig001 string

//go:embed 002_contract_watches.sql
var mig002 string

//go:embed 003_decoded_events.sql
var mig003 string

// Core returns the migrations of the tables every deployment has.
func Core() []db.Migration {
	return []db.Migration{
		{
			ID:  "001_checkpoints.sql",
			SQL: mig001,
		},
		{
			ID:  "002_contract_watches.sql",
			SQL: mig002,
		},
		{
			ID:  "003_decoded_events.sql",
			SQL: mig003,
		},
	}
}

// RunMigrations applies the core migrations followed by extra (handler) migrations.
func RunMigrations(log *logger.Logger, database *sqlx.DB, extra ...db.Migration) error {
	return db.RunMigrations(log, database, append(Core(), extra...))
}
