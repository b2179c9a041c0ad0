// Copyright (c) 2013-2017 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package blockchain

import (
	"encoding/binary"
	"testing"
	"time"

	"github.com/oneepicnight/vision-node/chaincfg"
	"github.com/oneepicnight/vision-node/database"
	"github.com/oneepicnight/vision-node/util/chainhash"
	"github.com/oneepicnight/vision-node/wire"
)

// testClock is a fixed, manually advanced time source.
type testClock struct {
	now time.Time
}

func newTestClock() *testClock {
	return &testClock{now: time.Unix(1000000, 0)}
}

func (c *testClock) Now() time.Time {
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.now = c.now.Add(d)
}

// testTxPool is a minimal TxPool used to observe reorg tx handling.
type testTxPool struct {
	txs map[chainhash.Hash]*wire.MsgTx
}

func newTestTxPool() *testTxPool {
	return &testTxPool{txs: make(map[chainhash.Hash]*wire.MsgTx)}
}

func (p *testTxPool) HaveTransaction(txHash *chainhash.Hash) bool {
	_, ok := p.txs[*txHash]
	return ok
}

func (p *testTxPool) AddTransaction(tx *wire.MsgTx) {
	hash := tx.TxHash()
	p.txs[hash] = tx
}

func (p *testTxPool) RemoveTransaction(txHash *chainhash.Hash) {
	delete(p.txs, *txHash)
}

// testParams returns a private copy of the simnet parameters so tests can
// tweak guards without affecting each other.
func testParams() *chaincfg.Params {
	params := chaincfg.SimnetParams
	return &params
}

// newTestChain creates a chain backed by a throwaway database. Blocks are
// processed with BFFastAdd, so tests fabricate digests instead of mining.
func newTestChain(t *testing.T, params *chaincfg.Params) (*Chain, *testClock, *testTxPool) {
	t.Helper()

	db, err := database.Open(t.TempDir())
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}
	t.Cleanup(func() {
		db.Close()
	})

	clock := newTestClock()
	txPool := newTestTxPool()
	chain, err := New(&Config{
		DB:          db,
		ChainParams: params,
		TimeSource:  clock.Now,
		TxPool:      txPool,
	})
	if err != nil {
		t.Fatalf("failed to create test chain: %v", err)
	}
	return chain, clock, txPool
}

// fakeDigest fabricates a unique block identity. Tests run with BFFastAdd,
// which skips digest verification, so any unique value works.
func fakeDigest(tag byte, n uint64) chainhash.Hash {
	var hash chainhash.Hash
	hash[0] = tag
	binary.LittleEndian.PutUint64(hash[1:9], n)
	return hash
}

// buildBlock assembles a valid child of the block identified by parentHash:
// correct height, a timestamp two seconds past the parent's, and the exact
// difficulty the retarget rule demands.
func buildBlock(t *testing.T, c *Chain, parentHash chainhash.Hash, digest chainhash.Hash, txs ...*wire.MsgTx) *wire.MsgBlock {
	t.Helper()

	parent := c.index.LookupNode(&parentHash)
	if parent == nil {
		t.Fatalf("buildBlock: parent %s is not in the index", parentHash)
	}

	block := &wire.MsgBlock{
		Header: wire.BlockHeader{
			Version:    1,
			Height:     parent.height + 1,
			ParentHash: parentHash,
			Timestamp:  parent.timestamp + 2,
			Difficulty: c.calcNextDifficulty(parent),
			PowDigest:  digest,
		},
		Transactions: txs,
	}
	block.Header.TxRoot = block.TxRoot()
	return block
}

// processBlock runs the block through ProcessBlock with BFFastAdd and fails
// the test on unexpected errors.
func processBlock(t *testing.T, c *Chain, block *wire.MsgBlock) (bool, bool) {
	t.Helper()
	isMainChain, isOrphan, err := c.ProcessBlock(block, BFFastAdd)
	if err != nil {
		t.Fatalf("ProcessBlock(%s): %v", block.BlockHash(), err)
	}
	return isMainChain, isOrphan
}

// extendChain appends count empty blocks to the branch ending at tipHash
// and returns the hash of the new branch tip. Digests are namespaced by
// tag so parallel branches never collide.
func extendChain(t *testing.T, c *Chain, tipHash chainhash.Hash, count int, tag byte) chainhash.Hash {
	t.Helper()
	for i := 0; i < count; i++ {
		block := buildBlock(t, c, tipHash, fakeDigest(tag, uint64(i)))
		processBlock(t, c, block)
		tipHash = block.BlockHash()
	}
	return tipHash
}
