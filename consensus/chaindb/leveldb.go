package chaindb

import (
	"github.com/pkg/errors"
	"github.com/syndtr/goleveldb/leveldb"
	ldberrors "github.com/syndtr/goleveldb/leveldb/errors"
	"github.com/syndtr/goleveldb/leveldb/opt"
)

// levelOptions mirrors the teacher's ldb.Options: compression off, a sized
// block cache and write buffer, seek-triggered compaction disabled since
// this store's access pattern is append-mostly.
var levelOptions = &opt.Options{
	Compression:            opt.NoCompression,
	BlockCacheCapacity:     64 * opt.MiB,
	WriteBuffer:            32 * opt.MiB,
	DisableSeeksCompaction: true,
}

// levelDB is a thin wrapper around goleveldb, grounded on
// infrastructure/db/database/ldb's LevelDB: open-or-create with corruption
// recovery, byte-slice get/put/has/delete, nil (not an error) for a missing
// key.
type levelDB struct {
	ldb *leveldb.DB
}

func openLevelDB(path string) (*levelDB, error) {
	ldb, err := leveldb.OpenFile(path, levelOptions)
	if _, corrupted := err.(*ldberrors.ErrCorrupted); corrupted {
		log.Warnf("leveldb corruption detected at %s: %s", path, err)
		ldb, err = leveldb.RecoverFile(path, levelOptions)
		if err != nil {
			return nil, errors.Wrap(err, "failed to recover corrupted chaindb")
		}
		log.Warnf("leveldb recovered from corruption at %s", path)
	} else if err != nil {
		return nil, errors.Wrap(err, "failed to open chaindb")
	}
	return &levelDB{ldb: ldb}, nil
}

func (db *levelDB) Close() error {
	return db.ldb.Close()
}

func (db *levelDB) Put(key, value []byte) error {
	return db.ldb.Put(key, value, nil)
}

func (db *levelDB) Get(key []byte) ([]byte, error) {
	v, err := db.ldb.Get(key, nil)
	if err != nil {
		if errors.Is(err, leveldb.ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return v, nil
}

func (db *levelDB) Has(key []byte) (bool, error) {
	return db.ldb.Has(key, nil)
}

func (db *levelDB) Delete(key []byte) error {
	return db.ldb.Delete(key, nil)
}

func (db *levelDB) iteratePrefix(prefix []byte, visit func(key, value []byte) error) error {
	it := db.ldb.NewIterator(newPrefixRange(prefix), nil)
	defer it.Release()
	for it.Next() {
		if err := visit(it.Key(), it.Value()); err != nil {
			return err
		}
	}
	return it.Error()
}
