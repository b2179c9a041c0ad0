package database

import (
	"bytes"
	"encoding/binary"
	"math/big"
	"time"

	"github.com/pkg/errors"
	"github.com/syndtr/goleveldb/leveldb"

	"github.com/oneepicnight/vision-node/util/chainhash"
	"github.com/oneepicnight/vision-node/wire"
)

// Key prefixes. Each row family gets a short distinct prefix so prefix
// iteration stays cheap.
var (
	blockKeyPrefix  = []byte("blk:") // blk:<digest>         -> serialized block
	workKeyPrefix   = []byte("wrk:") // wrk:<digest>         -> cumulative work
	heightKeyPrefix = []byte("hgt:") // hgt:<be height>      -> main chain digest
	orphanKeyPrefix = []byte("orp:") // orp:<digest>         -> arrival time + block
	tipKey          = []byte("tip")  // tip                  -> main chain tip digest
)

func blockKey(hash *chainhash.Hash) []byte {
	return append(blockKeyPrefix[:len(blockKeyPrefix):len(blockKeyPrefix)], hash[:]...)
}

func workKey(hash *chainhash.Hash) []byte {
	return append(workKeyPrefix[:len(workKeyPrefix):len(workKeyPrefix)], hash[:]...)
}

func heightKey(height uint64) []byte {
	key := make([]byte, len(heightKeyPrefix)+8)
	copy(key, heightKeyPrefix)
	binary.BigEndian.PutUint64(key[len(heightKeyPrefix):], height)
	return key
}

func orphanKey(hash *chainhash.Hash) []byte {
	return append(orphanKeyPrefix[:len(orphanKeyPrefix):len(orphanKeyPrefix)], hash[:]...)
}

// StoreBlock persists a block together with the cumulative work of the
// chain ending at it. Blocks are stored by digest and are never deleted;
// a reorg only rewrites the height index and the tip.
func (db *DB) StoreBlock(block *wire.MsgBlock, workSum *big.Int) error {
	var buf bytes.Buffer
	if err := block.Serialize(&buf); err != nil {
		return errors.Wrap(err, "could not serialize block")
	}

	hash := block.BlockHash()
	batch := new(leveldb.Batch)
	batch.Put(blockKey(&hash), buf.Bytes())
	batch.Put(workKey(&hash), workSum.Bytes())
	return db.writeBatch(batch)
}

// HasBlock reports whether a block with the given digest is stored.
func (db *DB) HasBlock(hash *chainhash.Hash) (bool, error) {
	return db.has(blockKey(hash))
}

// FetchBlock returns the stored block with the given digest, or nil when
// it is not stored.
func (db *DB) FetchBlock(hash *chainhash.Hash) (*wire.MsgBlock, error) {
	value, err := db.get(blockKey(hash))
	if err != nil || value == nil {
		return nil, err
	}

	block := &wire.MsgBlock{}
	if err := block.Deserialize(bytes.NewReader(value)); err != nil {
		return nil, errors.Wrapf(err, "could not deserialize block %s", hash)
	}
	return block, nil
}

// FetchWork returns the cumulative work stored for the given block digest.
func (db *DB) FetchWork(hash *chainhash.Hash) (*big.Int, error) {
	value, err := db.get(workKey(hash))
	if err != nil {
		return nil, err
	}
	if value == nil {
		return nil, errors.Errorf("no work stored for block %s", hash)
	}
	return new(big.Int).SetBytes(value), nil
}

// SetMainChainHash points the height index at the given digest as the
// main chain grows by one block.
func (db *DB) SetMainChainHash(height uint64, hash *chainhash.Hash) error {
	return db.put(heightKey(height), hash[:])
}

// HeightHash pairs a main chain height with the block digest that
// occupies it.
type HeightHash struct {
	Height uint64
	Hash   chainhash.Hash
}

// SwitchMainChain rewrites the height index and the tip for a branch
// switch in one atomic batch: the rolled-back heights are cleared, the
// winning branch rows are written, and the tip moves. A crash mid-reorg
// therefore leaves the stored chain entirely on one branch or the other,
// never mixed between the two.
func (db *DB) SwitchMainChain(detachHeights []uint64, attach []HeightHash, tip *chainhash.Hash) error {
	batch := new(leveldb.Batch)
	for _, height := range detachHeights {
		batch.Delete(heightKey(height))
	}
	for _, entry := range attach {
		batch.Put(heightKey(entry.Height), entry.Hash[:])
	}
	batch.Put(tipKey, tip[:])
	return db.writeBatch(batch)
}

// MainChainHash returns the digest of the main chain block at the given
// height, or nil when the height is above the tip.
func (db *DB) MainChainHash(height uint64) (*chainhash.Hash, error) {
	value, err := db.get(heightKey(height))
	if err != nil || value == nil {
		return nil, err
	}
	hash, err := chainhash.NewHash(value)
	if err != nil {
		return nil, errors.Wrapf(err, "malformed height index entry at %d", height)
	}
	return hash, nil
}

// StoreTip records the digest of the current main chain tip.
func (db *DB) StoreTip(hash *chainhash.Hash) error {
	return db.put(tipKey, hash[:])
}

// FetchTip returns the digest of the stored main chain tip, or nil for a
// fresh database.
func (db *DB) FetchTip() (*chainhash.Hash, error) {
	value, err := db.get(tipKey)
	if err != nil || value == nil {
		return nil, err
	}
	return chainhash.NewHash(value)
}

// StoreOrphan persists an orphan block along with its arrival time so the
// orphan pool survives a restart and expiry keeps working across it.
func (db *DB) StoreOrphan(block *wire.MsgBlock, arrival time.Time) error {
	var buf bytes.Buffer
	var ts [8]byte
	binary.LittleEndian.PutUint64(ts[:], uint64(arrival.Unix()))
	buf.Write(ts[:])
	if err := block.Serialize(&buf); err != nil {
		return errors.Wrap(err, "could not serialize orphan block")
	}
	hash := block.BlockHash()
	return db.put(orphanKey(&hash), buf.Bytes())
}

// DeleteOrphan removes a persisted orphan row.
func (db *DB) DeleteOrphan(hash *chainhash.Hash) error {
	return db.delete(orphanKey(hash))
}

// ForEachOrphan iterates all persisted orphans. Malformed rows are logged
// and skipped rather than failing startup.
func (db *DB) ForEachOrphan(fn func(block *wire.MsgBlock, arrival time.Time) error) error {
	return db.forEachPrefix(orphanKeyPrefix, func(key, value []byte) error {
		if len(value) < 8 {
			log.Warnf("Skipping malformed orphan row %x", key)
			return nil
		}
		arrival := time.Unix(int64(binary.LittleEndian.Uint64(value[:8])), 0)

		block := &wire.MsgBlock{}
		if err := block.Deserialize(bytes.NewReader(value[8:])); err != nil {
			log.Warnf("Skipping undecodable orphan row %x: %s", key, err)
			return nil
		}
		return fn(block, arrival)
	})
}
