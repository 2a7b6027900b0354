package config

import (
	"errors"

	"github.com/goran-ethernal/BuildersIndexer/internal/common"
	"github.com/goran-ethernal/BuildersIndexer/internal/logger"
)

// ErrPersistentStoreRequired is returned when a production deployment has no persistent store configured.
var ErrPersistentStoreRequired = errors.New(
	"DATABASE_URL is required in production: the local SQLite fallback is ephemeral and will lose data on restart")

// StorageMode describes which store the process runs with.
type StorageMode string

const (
	StoragePersistent StorageMode = "postgres"
	StorageEphemeral  StorageMode = "sqlite"
)

// IsProduction reports whether the environment carries one of the deployment indicators.
func IsProduction(env EnvReader) bool {
	if env == nil {
		return false
	}

	equals := func(key, want string) bool {
		v, ok := env(key)
		return ok && common.ToLowerWithTrim(v) == want
	}
	present := func(key string) bool {
		_, ok := env(key)
		return ok
	}

	return equals("NODE_ENV", "production") ||
		equals("APP_ENV", "production") ||
		present("RAILWAY_ENVIRONMENT") ||
		equals("RAILWAY_ENVIRONMENT_NAME", "production") ||
		equals("VERCEL_ENV", "production") ||
		present("FLY_APP_NAME")
}

// ValidateStorage decides whether the process may start with the configured store.
// It fails with ErrPersistentStoreRequired in a production context without a persistent
// store and otherwise logs which store is used, warning loudly about ephemeral storage.
func ValidateStorage(env EnvReader, hasPersistentStore bool, log *logger.Logger) (StorageMode, error) {
	if log == nil {
		log = logger.NewNopLogger()
	}

	if hasPersistentStore {
		log.Info("using PostgreSQL database (persistent storage)")
		return StoragePersistent, nil
	}

	if IsProduction(env) {
		log.Error("running in production without DATABASE_URL: SQLite (ephemeral file-based storage) " +
			"would lose all indexed data on restart")
		return "", ErrPersistentStoreRequired
	}

	log.Warn("using SQLite database (ephemeral file-based storage)")
	log.Warn("this is suitable for local development only")
	log.Warn("data will be lost on restart, set DATABASE_URL for production")

	return StorageEphemeral, nil
}
