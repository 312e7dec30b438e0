package core

import (
	"fmt"

	"carecore/internal/infra/persistence/memory"
	"carecore/internal/infra/persistence/postgres"
	"carecore/internal/infra/persistence/sqlite"
)

// StorageDriver identifies a concrete persistent storage implementation.
type StorageDriver string

const (
	StorageMemory   StorageDriver = "memory"   // in-memory only (tests / ephemeral)
	StorageSQLite   StorageDriver = "sqlite"   // embedded sqlite file
	StoragePostgres StorageDriver = "postgres" // PostgreSQL server
)

// OpenPersistentStore opens the selected backend. The sqlite path and
// postgres DSN are only consulted by their respective drivers.
func OpenPersistentStore(driver StorageDriver, sqlitePath, postgresDSN string, engine *RulesEngine) (PersistentStore, error) {
	switch driver {
	case StorageMemory, "":
		return memory.NewStore(engine), nil
	case StorageSQLite:
		return sqlite.NewStore(sqlitePath, engine)
	case StoragePostgres:
		return postgres.NewStore(postgresDSN, engine)
	default:
		return nil, fmt.Errorf("unknown storage driver %s", driver)
	}
}
