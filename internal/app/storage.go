package app

import (
	"context"
	"fmt"

	"github.com/bobmcallan/coinfolio/internal/common"
	"github.com/bobmcallan/coinfolio/internal/interfaces"
	"github.com/bobmcallan/coinfolio/internal/storage"
	"github.com/bobmcallan/coinfolio/internal/storage/badger"
	"github.com/bobmcallan/coinfolio/internal/storage/surrealdb"
)

// Backend type constants.
const (
	BackendFile      = "file"
	BackendBadger    = "badger"
	BackendSurrealDB = "surrealdb"
)

// openKeyValueStore opens the backend named by storage.backend.
// Supported backends: "file" (default), "badger", "surrealdb".
func openKeyValueStore(ctx context.Context, logger *common.Logger, config *common.Config) (interfaces.KeyValueStore, error) {
	switch config.Storage.Backend {
	case BackendFile, "":
		fs, err := storage.NewFileStore(logger, &config.Storage.File)
		if err != nil {
			return nil, err
		}
		return fs, nil
	case BackendBadger:
		bs, err := badger.NewStore(logger, config.Storage.Badger.Path)
		if err != nil {
			return nil, err
		}
		return bs, nil
	case BackendSurrealDB:
		ss, err := surrealdb.NewStore(ctx, logger, config.Storage.SurrealDB)
		if err != nil {
			return nil, err
		}
		return ss, nil
	default:
		return nil, fmt.Errorf("unknown storage backend %q", config.Storage.Backend)
	}
}
