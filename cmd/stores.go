package cmd

import (
	"github.com/Layr-Labs/offering-ledger/internal/config"
	"github.com/Layr-Labs/offering-ledger/pkg/postgres"
	"github.com/Layr-Labs/offering-ledger/pkg/postgres/migrations"
	"github.com/Layr-Labs/offering-ledger/pkg/storage"
	"github.com/Layr-Labs/offering-ledger/pkg/storage/levelStore"
	"github.com/Layr-Labs/offering-ledger/pkg/storage/postgresStore"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

type namedStore struct {
	name  string
	store storage.StateStore
}

// openStores opens every store enabled in cfg: postgres first, then the leveldb snapshot directory.
func openStores(cfg *config.Config, l *zap.Logger) ([]*namedStore, error) {
	stores := make([]*namedStore, 0, 2)

	if cfg.IsDatabaseConfigured() {
		pgConfig := postgres.PostgresConfigFromDbConfig(&cfg.DatabaseConfig)
		pgConfig.CreateDbIfNotExists = true

		pg, err := postgres.NewPostgres(pgConfig, l)
		if err != nil {
			return nil, errors.Wrap(err, "failed to setup postgres connection")
		}
		grm, err := postgres.NewGormFromPostgresConnection(pg.Db)
		if err != nil {
			return nil, errors.Wrap(err, "failed to create gorm instance")
		}
		if err := migrations.NewMigrator(pg.Db, grm, l, cfg).MigrateAll(); err != nil {
			return nil, errors.Wrap(err, "failed to migrate")
		}
		stores = append(stores, &namedStore{
			name:  "postgres",
			store: postgresStore.NewPostgresStore(grm, cfg.ScenarioConfig.OfferingId, l),
		})
	}

	if cfg.StorageConfig.SnapshotDir != "" {
		ls, err := levelStore.NewLevelStore(cfg.StorageConfig.SnapshotDir, l)
		if err != nil {
			closeStores(stores, l)
			return nil, err
		}
		stores = append(stores, &namedStore{name: "leveldb", store: ls})
	}
	return stores, nil
}

func closeStores(stores []*namedStore, l *zap.Logger) {
	for _, s := range stores {
		if err := s.store.Close(); err != nil {
			l.Sugar().Warnw("Failed to close store", zap.String("store", s.name), zap.Error(err))
		}
	}
}
