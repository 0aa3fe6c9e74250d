// Package postgresStore keeps offering snapshots in the offerings, offering_pools and
// user_positions tables, one snapshot per offering id.
package postgresStore

import (
	"github.com/Layr-Labs/offering-ledger/pkg/postgres/helpers"
	"github.com/Layr-Labs/offering-ledger/pkg/storage"
	"github.com/pkg/errors"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type PostgresStore struct {
	db         *gorm.DB
	offeringId string
	logger     *zap.Logger
}

func NewPostgresStore(db *gorm.DB, offeringId string, l *zap.Logger) *PostgresStore {
	return &PostgresStore{
		db:         db,
		offeringId: offeringId,
		logger:     l,
	}
}

// SaveRecords replaces the offering's snapshot in a single transaction. Records are
// written under the store's offering id.
func (ps *PostgresStore) SaveRecords(records *storage.Records) error {
	_, err := helpers.WrapTxAndCommit(func(tx *gorm.DB) (any, error) {
		res := tx.Where("offering_id = ?", ps.offeringId).Delete(&storage.PositionRecord{})
		if res.Error != nil {
			return nil, errors.Wrap(res.Error, "failed to delete positions")
		}
		res = tx.Where("offering_id = ?", ps.offeringId).Delete(&storage.PoolRecord{})
		if res.Error != nil {
			return nil, errors.Wrap(res.Error, "failed to delete pools")
		}
		res = tx.Where("offering_id = ?", ps.offeringId).Delete(&storage.OfferingRecord{})
		if res.Error != nil {
			return nil, errors.Wrap(res.Error, "failed to delete offering")
		}

		offering := *records.Offering
		offering.OfferingId = ps.offeringId
		if res = tx.Create(&offering); res.Error != nil {
			return nil, errors.Wrap(res.Error, "failed to insert offering")
		}

		if len(records.Pools) > 0 {
			pools := make([]*storage.PoolRecord, 0, len(records.Pools))
			for _, p := range records.Pools {
				pool := *p
				pool.OfferingId = ps.offeringId
				pools = append(pools, &pool)
			}
			if res = tx.Create(&pools); res.Error != nil {
				return nil, errors.Wrap(res.Error, "failed to insert pools")
			}
		}

		if len(records.Positions) > 0 {
			positions := make([]*storage.PositionRecord, 0, len(records.Positions))
			for _, p := range records.Positions {
				position := *p
				position.OfferingId = ps.offeringId
				positions = append(positions, &position)
			}
			if res = tx.CreateInBatches(&positions, 500); res.Error != nil {
				return nil, errors.Wrap(res.Error, "failed to insert positions")
			}
		}
		return nil, nil
	}, ps.db, nil)
	if err != nil {
		ps.logger.Sugar().Errorw("Failed to save snapshot",
			zap.String("offeringId", ps.offeringId),
			zap.Error(err),
		)
		return err
	}
	ps.logger.Sugar().Debugw("Saved snapshot",
		zap.String("offeringId", ps.offeringId),
		zap.Int("pools", len(records.Pools)),
		zap.Int("positions", len(records.Positions)),
	)
	return nil
}

func (ps *PostgresStore) LoadRecords() (*storage.Records, error) {
	offering := &storage.OfferingRecord{}
	res := ps.db.Where("offering_id = ?", ps.offeringId).First(offering)
	if res.Error != nil {
		if errors.Is(res.Error, gorm.ErrRecordNotFound) {
			return nil, storage.ErrStateNotFound
		}
		return nil, errors.Wrap(res.Error, "failed to read offering")
	}

	pools := make([]*storage.PoolRecord, 0)
	res = ps.db.Where("offering_id = ?", ps.offeringId).Order("pool_id asc").Find(&pools)
	if res.Error != nil {
		return nil, errors.Wrap(res.Error, "failed to read pools")
	}

	positions := make([]*storage.PositionRecord, 0)
	res = ps.db.Where("offering_id = ?", ps.offeringId).Order("user_address asc, pool_id asc").Find(&positions)
	if res.Error != nil {
		return nil, errors.Wrap(res.Error, "failed to read positions")
	}

	return &storage.Records{
		Offering:  offering,
		Pools:     pools,
		Positions: positions,
	}, nil
}

// Close is a no-op; the connection belongs to the caller.
func (ps *PostgresStore) Close() error {
	return nil
}
