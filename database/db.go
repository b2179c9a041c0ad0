// Package database provides the persistent block store for a Vision node,
// backed by leveldb.
package database

import (
	"github.com/syndtr/goleveldb/leveldb"
	ldberrors "github.com/syndtr/goleveldb/leveldb/errors"
	"github.com/syndtr/goleveldb/leveldb/opt"
	"github.com/syndtr/goleveldb/leveldb/util"
)

// Options is the set of leveldb options the store is opened with. Block
// payloads are already compact binary, so compression buys little and
// costs CPU on the sync hot path.
var options = opt.Options{
	Compression: opt.NoCompression,
}

// DB is a thin wrapper around a leveldb instance. All keys live in a
// single keyspace partitioned by short prefixes.
type DB struct {
	ldb *leveldb.DB
}

// Open opens the database at the given path, creating it if needed. A
// corrupted database is recovered in place; recovery discards unreadable
// rows, which block acceptance treats the same as blocks it never had.
func Open(dbPath string) (*DB, error) {
	ldb, err := leveldb.OpenFile(dbPath, &options)
	if _, corrupted := err.(*ldberrors.ErrCorrupted); corrupted {
		log.Warnf("Corruption detected in block store %s: %s", dbPath, err)
		ldb, err = leveldb.RecoverFile(dbPath, &options)
		if err != nil {
			return nil, err
		}
		log.Warnf("Block store %s recovered from corruption", dbPath)
	}
	if err != nil {
		return nil, err
	}
	return &DB{ldb: ldb}, nil
}

// Close closes the underlying database.
func (db *DB) Close() error {
	return db.ldb.Close()
}

// get returns the value for key, or (nil, nil) when the key is absent.
func (db *DB) get(key []byte) ([]byte, error) {
	value, err := db.ldb.Get(key, nil)
	if err == leveldb.ErrNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return value, nil
}

// has reports whether key exists.
func (db *DB) has(key []byte) (bool, error) {
	return db.ldb.Has(key, nil)
}

// put stores a single key/value pair.
func (db *DB) put(key, value []byte) error {
	return db.ldb.Put(key, value, nil)
}

// delete removes a single key.
func (db *DB) delete(key []byte) error {
	return db.ldb.Delete(key, nil)
}

// writeBatch applies a batch atomically.
func (db *DB) writeBatch(batch *leveldb.Batch) error {
	return db.ldb.Write(batch, nil)
}

// forEachPrefix iterates every key/value pair under the given prefix.
func (db *DB) forEachPrefix(prefix []byte, fn func(key, value []byte) error) error {
	iter := db.ldb.NewIterator(util.BytesPrefix(prefix), nil)
	defer iter.Release()
	for iter.Next() {
		if err := fn(iter.Key(), iter.Value()); err != nil {
			return err
		}
	}
	return iter.Error()
}
