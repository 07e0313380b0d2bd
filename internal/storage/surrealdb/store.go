// Package surrealdb provides a SurrealDB-backed key-value store.
package surrealdb

import (
	"context"
	"fmt"

	"github.com/surrealdb/surrealdb.go"

	"github.com/bobmcallan/coinfolio/internal/common"
	"github.com/bobmcallan/coinfolio/internal/interfaces"
	"github.com/bobmcallan/coinfolio/internal/storage"
)

const kvTable = "kv"

type kvRecord struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

// Store keeps entries in the kv table, one record per key.
type Store struct {
	db     *surrealdb.DB
	logger *common.Logger
}

// NewStore connects, signs in, selects the namespace/database and makes sure
// the kv table exists.
func NewStore(ctx context.Context, logger *common.Logger, config common.SurrealDBConfig) (*Store, error) {
	db, err := surrealdb.New(config.Address)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to SurrealDB: %w", err)
	}

	if _, err := db.SignIn(ctx, map[string]interface{}{
		"user": config.Username,
		"pass": config.Password,
	}); err != nil {
		db.Close(ctx)
		return nil, fmt.Errorf("failed to sign in to SurrealDB: %w", err)
	}

	if err := db.Use(ctx, config.Namespace, config.Database); err != nil {
		db.Close(ctx)
		return nil, fmt.Errorf("failed to select namespace/database: %w", err)
	}

	// SurrealDB v3 errors on querying non-existent tables
	sql := fmt.Sprintf("DEFINE TABLE IF NOT EXISTS %s SCHEMALESS", kvTable)
	if _, err := surrealdb.Query[any](ctx, db, sql, nil); err != nil {
		db.Close(ctx)
		return nil, fmt.Errorf("failed to define table %s: %w", kvTable, err)
	}

	logger.Debug().Str("address", config.Address).Str("namespace", config.Namespace).Str("database", config.Database).Msg("SurrealDB store opened")

	return &Store{db: db, logger: logger}, nil
}

func (s *Store) Get(ctx context.Context, key string) (string, error) {
	sql := "SELECT key, value FROM type::record($tb, $id)"
	vars := map[string]any{"tb": kvTable, "id": key}

	results, err := surrealdb.Query[[]kvRecord](ctx, s.db, sql, vars)
	if err != nil {
		return "", fmt.Errorf("failed to get key '%s': %w", key, err)
	}
	if results == nil || len(*results) == 0 || len((*results)[0].Result) == 0 {
		return "", fmt.Errorf("'%s': %w", key, storage.ErrNotFound)
	}
	return (*results)[0].Result[0].Value, nil
}

func (s *Store) Set(ctx context.Context, key, value string) error {
	sql := "UPSERT type::record($tb, $id) CONTENT $kv"
	vars := map[string]any{"tb": kvTable, "id": key, "kv": kvRecord{Key: key, Value: value}}

	var err error
	for attempt := 1; attempt <= 3; attempt++ {
		if _, err = surrealdb.Query[[]kvRecord](ctx, s.db, sql, vars); err == nil {
			return nil
		}
		if ctx.Err() != nil {
			break
		}
		s.logger.Debug().Err(err).Str("key", key).Int("attempt", attempt).Msg("SurrealDB upsert failed")
	}
	return fmt.Errorf("failed to set key '%s': %w", key, err)
}

func (s *Store) Close() error {
	return s.db.Close(context.Background())
}

// Ensure Store implements KeyValueStore
var _ interfaces.KeyValueStore = (*Store)(nil)
