// Copyright (c) 2013-2018 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package blockchain

import (
	"math/big"
	"sync"
	"time"

	"github.com/pkg/errors"

	"github.com/oneepicnight/vision-node/chaincfg"
	"github.com/oneepicnight/vision-node/database"
	"github.com/oneepicnight/vision-node/metrics"
	"github.com/oneepicnight/vision-node/util/chainhash"
	"github.com/oneepicnight/vision-node/wire"
)

// TxPool is the subset of mempool behavior the chain needs during
// reorganizations: rolled-back transactions that are neither coinbases nor
// already present are handed back to the pool.
type TxPool interface {
	HaveTransaction(txHash *chainhash.Hash) bool
	AddTransaction(tx *wire.MsgTx)
	RemoveTransaction(txHash *chainhash.Hash)
}

// BestState houses information about the current best block and other info
// related to the state of the main chain as it exists from the point of
// view of the current best block.
//
// The BestSnapshot method can be used to obtain access to this information
// in a concurrent safe manner and the data will not be changed out from
// under the caller when chain state changes occur as the function name
// implies.
type BestState struct {
	Hash       chainhash.Hash // The hash of the block.
	Height     uint64         // The height of the block.
	Difficulty uint64         // The difficulty of the block.
	WorkSum    *big.Int       // The total cumulative work in the chain.
	Timestamp  int64          // The timestamp of the block.
}

// newBestState returns a new best stats instance for the given parameters.
func newBestState(node *blockNode) *BestState {
	return &BestState{
		Hash:       node.hash,
		Height:     node.height,
		Difficulty: node.difficulty,
		WorkSum:    new(big.Int).Set(node.workSum),
		Timestamp:  node.timestamp,
	}
}

// Config is a descriptor which specifies the blockchain instance
// configuration.
type Config struct {
	// DB defines the database which houses the blocks.
	//
	// This field is required.
	DB *database.DB

	// ChainParams identifies the chain parameters the chain is
	// associated with.
	//
	// This field is required.
	ChainParams *chaincfg.Params

	// TimeSource returns the current local time. Tests substitute a
	// fixed clock. When nil, time.Now is used.
	TimeSource func() time.Time

	// TxPool receives rolled-back transactions during reorganizations.
	// May be nil.
	TxPool TxPool

	// Notifications defines a callback to which notifications will be
	// sent when various chain events take place. May be nil.
	Notifications NotificationCallback
}

// Chain provides functions for working with the Vision block chain. It
// includes functionality such as rejecting duplicate blocks, ensuring
// blocks follow all consensus rules, orphan handling, checkpoint handling,
// and best chain selection with reorganization.
type Chain struct {
	db     *database.DB
	params *chaincfg.Params
	now    func() time.Time
	txPool TxPool

	// chainLock protects concurrent access to the vast majority of the
	// fields in this struct below this point.
	chainLock sync.RWMutex

	// These fields are related to the memory block index. They both
	// have their own locks, however they are often also protected by
	// the chain lock to help prevent logic races when blocks are being
	// processed.
	index *blockIndex

	// tip is the current best chain tip node.
	tip *blockNode

	// orphans holds blocks whose parent is not yet known.
	orphans *orphanPool

	// seen is a bounded LRU of recently processed digests used to make
	// duplicate submissions cheap no-ops.
	seen *seenFilter

	// checkpointsByHeight is a denormalized view of the chain params
	// checkpoints.
	checkpointsByHeight map[uint64]*chainhash.Hash

	// stateLock protects the stateSnapshot field.
	stateLock     sync.RWMutex
	stateSnapshot *BestState

	notificationsLock sync.RWMutex
	notifications     []NotificationCallback
}

// New returns a Chain instance using the provided configuration details.
// It verifies the stored genesis against the hard-coded identity, replays
// the stored main chain into the in-memory index, verifies every embedded
// checkpoint against local history, and restores persisted orphans.
func New(config *Config) (*Chain, error) {
	if config.DB == nil {
		return nil, errors.New("blockchain.New: database is required")
	}
	if config.ChainParams == nil {
		return nil, errors.New("blockchain.New: chain parameters are required")
	}
	if err := config.ChainParams.Validate(); err != nil {
		return nil, err
	}

	now := config.TimeSource
	if now == nil {
		now = time.Now
	}

	c := &Chain{
		db:                  config.DB,
		params:              config.ChainParams,
		now:                 now,
		txPool:              config.TxPool,
		index:               newBlockIndex(),
		orphans:             newOrphanPool(config.DB),
		seen:                newSeenFilter(maxSeenFilterEntries),
		checkpointsByHeight: make(map[uint64]*chainhash.Hash),
	}
	for i := range config.ChainParams.Checkpoints {
		checkpoint := &config.ChainParams.Checkpoints[i]
		c.checkpointsByHeight[checkpoint.Height] = checkpoint.Hash
	}
	if config.Notifications != nil {
		c.notifications = append(c.notifications, config.Notifications)
	}

	if err := c.initChainState(); err != nil {
		return nil, err
	}
	if err := c.verifyCheckpoints(); err != nil {
		return nil, err
	}
	if err := c.orphans.restore(); err != nil {
		log.Warnf("Could not restore persisted orphans: %s", err)
	}

	best := c.BestSnapshot()
	log.Infof("Chain state (height %d, hash %s, work %s)",
		best.Height, best.Hash, best.WorkSum)
	log.Infof("Proof of work parameters: %s", c.params.PowParams.Fingerprint())
	return c, nil
}

// initChainState attempts to load and initialize the chain state from the
// database. When the database is fresh it writes the genesis block.
func (c *Chain) initChainState() error {
	tipHash, err := c.db.FetchTip()
	if err != nil {
		return err
	}

	if tipHash == nil {
		return c.createChainState()
	}

	// Verify the stored genesis before trusting anything else in the
	// database. A mismatch means the database belongs to another chain
	// and continuing would fork us from the network.
	storedGenesis, err := c.db.MainChainHash(0)
	if err != nil {
		return err
	}
	if storedGenesis == nil {
		return errors.New("block store has a tip but no genesis")
	}
	if !storedGenesis.IsEqual(c.params.GenesisHash) {
		return errors.Errorf("stored genesis block %s does not match "+
			"canonical genesis %s; the block store belongs to a "+
			"different chain", storedGenesis, c.params.GenesisHash)
	}

	// Replay the stored main chain into the in-memory index.
	var prev *blockNode
	for height := uint64(0); ; height++ {
		hash, err := c.db.MainChainHash(height)
		if err != nil {
			return err
		}
		if hash == nil {
			break
		}
		block, err := c.db.FetchBlock(hash)
		if err != nil {
			return err
		}
		if block == nil {
			return errors.Errorf("height index references missing "+
				"block %s at height %d", hash, height)
		}
		node := newBlockNode(&block.Header, prev)
		node.inMainChain = true
		c.index.AddNode(node)
		prev = node
	}
	if prev == nil || !prev.hash.IsEqual(tipHash) {
		return errors.Errorf("stored tip %s disagrees with the height "+
			"index", tipHash)
	}

	c.tip = prev
	c.stateSnapshot = newBestState(prev)
	return nil
}

// createChainState initializes a fresh database with the genesis block.
func (c *Chain) createChainState() error {
	genesis := c.params.GenesisBlock()
	node := newBlockNode(&genesis.Header, nil)
	node.inMainChain = true

	if err := c.db.StoreBlock(genesis, node.workSum); err != nil {
		return err
	}
	genesisHash := genesis.BlockHash()
	if err := c.db.SetMainChainHash(0, &genesisHash); err != nil {
		return err
	}
	if err := c.db.StoreTip(&genesisHash); err != nil {
		return err
	}

	c.index.AddNode(node)
	c.tip = node
	c.stateSnapshot = newBestState(node)
	log.Infof("Created fresh block store with genesis %s", genesisHash)
	return nil
}

// BestSnapshot returns information about the current best chain block and
// related state as of the current point in time. The returned instance
// must be treated as immutable since it is shared by all callers.
func (c *Chain) BestSnapshot() *BestState {
	c.stateLock.RLock()
	snapshot := c.stateSnapshot
	c.stateLock.RUnlock()
	return snapshot
}

// setBestSnapshot replaces the cached best state. Callers must hold the
// chain lock.
func (c *Chain) setBestSnapshot(node *blockNode) {
	snapshot := newBestState(node)
	c.stateLock.Lock()
	c.stateSnapshot = snapshot
	c.stateLock.Unlock()
	metrics.ChainHeight.Set(float64(node.height))
}

// HaveBlock returns whether or not the chain instance has the block
// represented by the passed hash on any known branch or in the orphan
// pool.
func (c *Chain) HaveBlock(hash *chainhash.Hash) bool {
	c.chainLock.RLock()
	defer c.chainLock.RUnlock()
	return c.index.HaveBlock(hash) || c.orphans.isKnownOrphan(hash)
}

// RecentlySeen reports whether the digest was recently processed in
// either direction, accepted or rejected. Announcements for such digests
// carry no new information and can be dropped without a fetch.
func (c *Chain) RecentlySeen(hash *chainhash.Hash) bool {
	c.chainLock.RLock()
	defer c.chainLock.RUnlock()
	return c.seen.contains(hash)
}

// BlockByHash returns the block from the main or side chains with the
// given hash, or nil when unknown.
func (c *Chain) BlockByHash(hash *chainhash.Hash) (*wire.MsgBlock, error) {
	return c.db.FetchBlock(hash)
}

// BlockHashByHeight returns the hash of the block at the given height in
// the main chain.
func (c *Chain) BlockHashByHeight(height uint64) (*chainhash.Hash, error) {
	return c.db.MainChainHash(height)
}

// HeadersAfterLocator returns up to maxHeaders main chain headers starting
// after the first locator hash this chain recognizes on its main chain.
// When no locator hash is recognized, headers start after genesis.
func (c *Chain) HeadersAfterLocator(locator []*chainhash.Hash, maxHeaders uint32) ([]*wire.BlockHeader, error) {
	c.chainLock.RLock()
	defer c.chainLock.RUnlock()

	startHeight := uint64(0)
	for _, hash := range locator {
		node := c.index.LookupNode(hash)
		if node != nil && node.inMainChain {
			startHeight = node.height
			break
		}
	}

	tipHeight := c.tip.height
	headers := make([]*wire.BlockHeader, 0, maxHeaders)
	for height := startHeight + 1; height <= tipHeight; height++ {
		if uint32(len(headers)) >= maxHeaders {
			break
		}
		hash, err := c.db.MainChainHash(height)
		if err != nil {
			return nil, err
		}
		if hash == nil {
			break
		}
		block, err := c.db.FetchBlock(hash)
		if err != nil {
			return nil, err
		}
		if block == nil {
			return nil, errors.Errorf("missing indexed block %s", hash)
		}
		header := block.Header
		headers = append(headers, &header)
	}
	return headers, nil
}

// Params returns the chain parameters this chain validates against.
func (c *Chain) Params() *chaincfg.Params {
	return c.params
}
