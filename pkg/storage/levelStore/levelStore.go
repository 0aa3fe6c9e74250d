// Package levelStore keeps a single offering snapshot in a leveldb database.
//
// Keys:
//
//	offering                      offering record
//	pool/<id>                     pool record, id zero padded to three digits
//	position/<user>/<id>          position record, user as lowercase hex
package levelStore

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/Layr-Labs/offering-ledger/pkg/storage"
	"github.com/pkg/errors"
	"github.com/syndtr/goleveldb/leveldb"
	leveldbErrors "github.com/syndtr/goleveldb/leveldb/errors"
	"github.com/syndtr/goleveldb/leveldb/opt"
	leveldbStorage "github.com/syndtr/goleveldb/leveldb/storage"
	"github.com/syndtr/goleveldb/leveldb/util"
	"go.uber.org/zap"
)

const (
	offeringKey    = "offering"
	poolPrefix     = "pool/"
	positionPrefix = "position/"
)

type LevelStore struct {
	db     *leveldb.DB
	logger *zap.Logger
}

// NewLevelStore opens or creates the database at path.
func NewLevelStore(path string, l *zap.Logger) (*LevelStore, error) {
	db, err := leveldb.OpenFile(path, nil)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to open leveldb at %s", path)
	}
	l.Sugar().Infow("Opened snapshot store", zap.String("path", path))
	return &LevelStore{db: db, logger: l}, nil
}

// NewMemoryLevelStore is backed by memory only.
func NewMemoryLevelStore(l *zap.Logger) (*LevelStore, error) {
	db, err := leveldb.Open(leveldbStorage.NewMemStorage(), nil)
	if err != nil {
		return nil, errors.Wrap(err, "failed to open in-memory leveldb")
	}
	return &LevelStore{db: db, logger: l}, nil
}

func poolKey(poolId uint8) []byte {
	return []byte(fmt.Sprintf("%s%03d", poolPrefix, poolId))
}

func positionKey(user string, poolId uint8) []byte {
	return []byte(fmt.Sprintf("%s%s/%03d", positionPrefix, strings.ToLower(user), poolId))
}

// SaveRecords replaces the stored snapshot in one synced batch.
func (ls *LevelStore) SaveRecords(records *storage.Records) error {
	batch := new(leveldb.Batch)

	for _, prefix := range []string{poolPrefix, positionPrefix} {
		iter := ls.db.NewIterator(util.BytesPrefix([]byte(prefix)), nil)
		for iter.Next() {
			batch.Delete(append([]byte{}, iter.Key()...))
		}
		iter.Release()
		if err := iter.Error(); err != nil {
			return errors.Wrapf(err, "failed to scan %s", prefix)
		}
	}

	if err := putJson(batch, []byte(offeringKey), records.Offering); err != nil {
		return err
	}
	for _, p := range records.Pools {
		if err := putJson(batch, poolKey(p.PoolId), p); err != nil {
			return err
		}
	}
	for _, p := range records.Positions {
		if err := putJson(batch, positionKey(p.UserAddress, p.PoolId), p); err != nil {
			return err
		}
	}

	if err := ls.db.Write(batch, &opt.WriteOptions{Sync: true}); err != nil {
		return errors.Wrap(err, "failed to write snapshot")
	}
	ls.logger.Sugar().Debugw("Saved snapshot",
		zap.String("offeringId", records.Offering.OfferingId),
		zap.Int("pools", len(records.Pools)),
		zap.Int("positions", len(records.Positions)),
	)
	return nil
}

func putJson(batch *leveldb.Batch, key []byte, value any) error {
	data, err := json.Marshal(value)
	if err != nil {
		return errors.Wrapf(err, "failed to encode %s", key)
	}
	batch.Put(key, data)
	return nil
}

func (ls *LevelStore) LoadRecords() (*storage.Records, error) {
	data, err := ls.db.Get([]byte(offeringKey), nil)
	if err != nil {
		if errors.Is(err, leveldbErrors.ErrNotFound) {
			return nil, storage.ErrStateNotFound
		}
		return nil, errors.Wrap(err, "failed to read offering record")
	}

	records := &storage.Records{
		Offering:  &storage.OfferingRecord{},
		Pools:     make([]*storage.PoolRecord, 0),
		Positions: make([]*storage.PositionRecord, 0),
	}
	if err := json.Unmarshal(data, records.Offering); err != nil {
		return nil, errors.Wrap(err, "failed to decode offering record")
	}

	err = scanPrefix(ls.db, poolPrefix, func(value []byte) error {
		p := &storage.PoolRecord{}
		if err := json.Unmarshal(value, p); err != nil {
			return err
		}
		records.Pools = append(records.Pools, p)
		return nil
	})
	if err != nil {
		return nil, errors.Wrap(err, "failed to read pool records")
	}

	err = scanPrefix(ls.db, positionPrefix, func(value []byte) error {
		p := &storage.PositionRecord{}
		if err := json.Unmarshal(value, p); err != nil {
			return err
		}
		records.Positions = append(records.Positions, p)
		return nil
	})
	if err != nil {
		return nil, errors.Wrap(err, "failed to read position records")
	}
	return records, nil
}

func scanPrefix(db *leveldb.DB, prefix string, fn func(value []byte) error) error {
	iter := db.NewIterator(util.BytesPrefix([]byte(prefix)), nil)
	defer iter.Release()

	for iter.Next() {
		if err := fn(iter.Value()); err != nil {
			return err
		}
	}
	return iter.Error()
}

func (ls *LevelStore) Close() error {
	return ls.db.Close()
}
