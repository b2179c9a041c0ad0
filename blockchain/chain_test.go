// Copyright (c) 2013-2017 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package blockchain

import (
	"testing"

	"github.com/oneepicnight/vision-node/chaincfg"
	"github.com/oneepicnight/vision-node/database"
	"github.com/oneepicnight/vision-node/util/chainhash"
	"github.com/oneepicnight/vision-node/wire"
)

func TestGenesisInitialization(t *testing.T) {
	params := testParams()
	chain, _, _ := newTestChain(t, params)

	best := chain.BestSnapshot()
	if best.Height != 0 {
		t.Fatalf("fresh chain height = %d, want 0", best.Height)
	}
	if !best.Hash.IsEqual(params.GenesisHash) {
		t.Fatalf("fresh chain tip = %s, want genesis %s", best.Hash,
			params.GenesisHash)
	}
	if !chain.HaveBlock(params.GenesisHash) {
		t.Fatal("chain does not know its own genesis")
	}
}

func TestExtendMainChain(t *testing.T) {
	params := testParams()
	chain, _, _ := newTestChain(t, params)

	tipHash := *params.GenesisHash
	for i := 0; i < 3; i++ {
		block := buildBlock(t, chain, tipHash, fakeDigest(0xA0, uint64(i)))
		isMainChain, isOrphan := processBlock(t, chain, block)
		if !isMainChain || isOrphan {
			t.Fatalf("block %d: isMainChain=%v isOrphan=%v, want true, false",
				i+1, isMainChain, isOrphan)
		}
		tipHash = block.BlockHash()
	}

	best := chain.BestSnapshot()
	if best.Height != 3 {
		t.Fatalf("chain height = %d, want 3", best.Height)
	}
	if !best.Hash.IsEqual(&tipHash) {
		t.Fatalf("chain tip = %s, want %s", best.Hash, tipHash)
	}

	hash, err := chain.BlockHashByHeight(3)
	if err != nil || hash == nil || !hash.IsEqual(&tipHash) {
		t.Fatalf("height index at 3 = %v (err %v), want %s", hash, err, tipHash)
	}
}

func TestDuplicateBlockIsNoOp(t *testing.T) {
	params := testParams()
	chain, _, _ := newTestChain(t, params)

	block := buildBlock(t, chain, *params.GenesisHash, fakeDigest(0xA1, 0))
	processBlock(t, chain, block)
	before := chain.BestSnapshot()

	isMainChain, isOrphan, err := chain.ProcessBlock(block, BFFastAdd)
	if err != nil {
		t.Fatalf("resubmitting a known block errored: %v", err)
	}
	if !isMainChain || isOrphan {
		t.Fatalf("resubmission isMainChain=%v isOrphan=%v, want true, false",
			isMainChain, isOrphan)
	}

	after := chain.BestSnapshot()
	if after.Height != before.Height || !after.Hash.IsEqual(&before.Hash) {
		t.Fatal("resubmitting a known block moved the tip")
	}
}

func TestOrphanAdoption(t *testing.T) {
	params := testParams()
	chain, _, _ := newTestChain(t, params)

	block1 := buildBlock(t, chain, *params.GenesisHash, fakeDigest(0xA2, 1))
	block1Hash := block1.BlockHash()

	// block2 is assembled by hand because its parent is not indexed yet.
	block2 := &wire.MsgBlock{
		Header: wire.BlockHeader{
			Version:    wire.BlockVersion,
			Height:     2,
			ParentHash: block1Hash,
			Timestamp:  block1.Header.Timestamp + 2,
			Difficulty: block1.Header.Difficulty,
			PowDigest:  fakeDigest(0xA2, 2),
		},
	}
	block2.Header.TxRoot = block2.TxRoot()
	block2Hash := block2.BlockHash()

	isMainChain, isOrphan := processBlock(t, chain, block2)
	if isMainChain || !isOrphan {
		t.Fatalf("parentless block isMainChain=%v isOrphan=%v, want false, true",
			isMainChain, isOrphan)
	}
	if chain.OrphanCount() != 1 {
		t.Fatalf("orphan count = %d, want 1", chain.OrphanCount())
	}
	if !chain.HaveBlock(&block2Hash) {
		t.Fatal("pooled orphan not reported by HaveBlock")
	}

	// The parent arrives and both blocks join the main chain.
	processBlock(t, chain, block1)
	best := chain.BestSnapshot()
	if best.Height != 2 || !best.Hash.IsEqual(&block2Hash) {
		t.Fatalf("after adoption tip = (%d, %s), want (2, %s)", best.Height,
			best.Hash, block2Hash)
	}
	if chain.OrphanCount() != 0 {
		t.Fatalf("orphan count after adoption = %d, want 0", chain.OrphanCount())
	}
}

func TestSideBranchTieKeepsIncumbent(t *testing.T) {
	params := testParams()
	chain, _, _ := newTestChain(t, params)

	mainTip := extendChain(t, chain, *params.GenesisHash, 3, 0xA3)

	// An equal length branch carries equal work and must not displace the
	// incumbent tip.
	sideTip := *params.GenesisHash
	for i := 0; i < 3; i++ {
		block := buildBlock(t, chain, sideTip, fakeDigest(0xB3, uint64(i)))
		isMainChain, isOrphan := processBlock(t, chain, block)
		if isMainChain || isOrphan {
			t.Fatalf("side block %d: isMainChain=%v isOrphan=%v, want "+
				"false, false", i+1, isMainChain, isOrphan)
		}
		sideTip = block.BlockHash()
	}

	best := chain.BestSnapshot()
	if !best.Hash.IsEqual(&mainTip) {
		t.Fatalf("tip after equal-work branch = %s, want incumbent %s",
			best.Hash, mainTip)
	}
}

func TestReorgToHeavierBranch(t *testing.T) {
	params := testParams()
	chain, _, txPool := newTestChain(t, params)

	// Main chain: two blocks, the second carrying a transaction.
	block1 := buildBlock(t, chain, *params.GenesisHash, fakeDigest(0xA4, 1))
	processBlock(t, chain, block1)

	tx := &wire.MsgTx{
		Version:      wire.TxVersion,
		Nonce:        1,
		SenderPubKey: []byte{0x02, 0x01},
		Method:       "ledger.transfer",
		Payload:      []byte(`{"amount":1}`),
		Signature:    []byte{0x30, 0x01},
	}
	txHash := tx.TxHash()
	coinbase := wire.NewCoinbaseTx(2, []byte("old"))
	coinbaseHash := coinbase.TxHash()
	block2 := buildBlock(t, chain, block1.BlockHash(), fakeDigest(0xA4, 2),
		coinbase, tx)
	processBlock(t, chain, block2)
	oldTip := block2.BlockHash()

	// A longer branch from genesis carries strictly more work.
	newTip := extendChain(t, chain, *params.GenesisHash, 3, 0xB4)

	best := chain.BestSnapshot()
	if best.Height != 3 || !best.Hash.IsEqual(&newTip) {
		t.Fatalf("tip after reorg = (%d, %s), want (3, %s)", best.Height,
			best.Hash, newTip)
	}

	// The height index follows the winning branch.
	hash1, err := chain.BlockHashByHeight(2)
	if err != nil || hash1 == nil {
		t.Fatalf("height index at 2 after reorg: %v (err %v)", hash1, err)
	}
	if hash1.IsEqual(&oldTip) {
		t.Fatal("height index still references the rolled back branch")
	}

	// The rolled back transaction returns to the pool; its coinbase does
	// not.
	if !txPool.HaveTransaction(&txHash) {
		t.Fatal("rolled back transaction was not reinserted into the pool")
	}
	if txPool.HaveTransaction(&coinbaseHash) {
		t.Fatal("rolled back coinbase was reinserted into the pool")
	}
}

func TestReorgTooDeepIsRefused(t *testing.T) {
	params := testParams()
	params.MaxReorgDepth = 2
	chain, _, _ := newTestChain(t, params)

	mainTip := extendChain(t, chain, *params.GenesisHash, 4, 0xA5)

	// Build a competing branch from genesis. The first four blocks are an
	// equal-or-lighter side branch; the fifth would force a rollback of
	// four blocks, past the depth guard.
	sideTip := *params.GenesisHash
	for i := 0; i < 4; i++ {
		block := buildBlock(t, chain, sideTip, fakeDigest(0xB5, uint64(i)))
		processBlock(t, chain, block)
		sideTip = block.BlockHash()
	}
	overflow := buildBlock(t, chain, sideTip, fakeDigest(0xB5, 99))
	_, _, err := chain.ProcessBlock(overflow, BFFastAdd)
	assertRuleError(t, err, ErrReorgTooDeep)

	best := chain.BestSnapshot()
	if !best.Hash.IsEqual(&mainTip) {
		t.Fatalf("tip after refused reorg = %s, want %s", best.Hash, mainTip)
	}

	// The guard rejects the candidate outright: it is neither indexed nor
	// persisted.
	overflowHash := overflow.BlockHash()
	if chain.HaveBlock(&overflowHash) {
		t.Fatal("guard-refused block is still known to the chain")
	}
	if stored, err := chain.BlockByHash(&overflowHash); err != nil || stored != nil {
		t.Fatalf("guard-refused block persisted: %v (err %v)", stored, err)
	}
}

func TestReorgCannotDisconnectCheckpoint(t *testing.T) {
	params := testParams()
	pinned := fakeDigest(0xA6, 0)
	params.Checkpoints = []chaincfg.Checkpoint{{Height: 1, Hash: &pinned}}
	chain, _, _ := newTestChain(t, params)

	mainTip := extendChain(t, chain, *params.GenesisHash, 2, 0xA6)

	// A heavier branch from genesis would disconnect the pinned height.
	sideTip := *params.GenesisHash
	for i := 0; i < 2; i++ {
		block := buildBlock(t, chain, sideTip, fakeDigest(0xB6, uint64(i)))
		processBlock(t, chain, block)
		sideTip = block.BlockHash()
	}
	overflow := buildBlock(t, chain, sideTip, fakeDigest(0xB6, 99))
	_, _, err := chain.ProcessBlock(overflow, BFFastAdd)
	assertRuleError(t, err, ErrCheckpointMismatch)

	best := chain.BestSnapshot()
	if !best.Hash.IsEqual(&mainTip) {
		t.Fatalf("tip after refused reorg = %s, want %s", best.Hash, mainTip)
	}
	overflowHash := overflow.BlockHash()
	if chain.HaveBlock(&overflowHash) {
		t.Fatal("guard-refused block is still known to the chain")
	}
}

func TestReorgBranchMustMatchCheckpoint(t *testing.T) {
	params := testParams()
	pinned := fakeDigest(0xEE, 0xEE)
	params.Checkpoints = []chaincfg.Checkpoint{{Height: 3, Hash: &pinned}}
	chain, _, _ := newTestChain(t, params)

	mainTip := extendChain(t, chain, *params.GenesisHash, 2, 0xA7)

	// The competing branch reaches the pinned height with the wrong block.
	sideTip := *params.GenesisHash
	for i := 0; i < 2; i++ {
		block := buildBlock(t, chain, sideTip, fakeDigest(0xB7, uint64(i)))
		processBlock(t, chain, block)
		sideTip = block.BlockHash()
	}
	mismatch := buildBlock(t, chain, sideTip, fakeDigest(0xB7, 99))
	_, _, err := chain.ProcessBlock(mismatch, BFFastAdd)
	assertRuleError(t, err, ErrCheckpointMismatch)

	best := chain.BestSnapshot()
	if !best.Hash.IsEqual(&mainTip) {
		t.Fatalf("tip after refused reorg = %s, want %s", best.Hash, mainTip)
	}
}

func TestBlockValidationRules(t *testing.T) {
	params := testParams()
	chain, clock, _ := newTestChain(t, params)

	tests := []struct {
		name   string
		mutate func(block *wire.MsgBlock)
		want   ErrorCode
	}{
		{
			name: "wrong height",
			mutate: func(block *wire.MsgBlock) {
				block.Header.Height += 3
			},
			want: ErrBadHeight,
		},
		{
			name: "timestamp too far in the future",
			mutate: func(block *wire.MsgBlock) {
				block.Header.Timestamp = clock.Now().Unix() + 11
			},
			want: ErrTimeTooNew,
		},
		{
			name: "timestamp before the ancestor median",
			mutate: func(block *wire.MsgBlock) {
				block.Header.Timestamp = 0
			},
			want: ErrTimeTooOld,
		},
		{
			name: "wrong claimed difficulty",
			mutate: func(block *wire.MsgBlock) {
				block.Header.Difficulty++
			},
			want: ErrDifficultyMismatch,
		},
		{
			name: "zero difficulty",
			mutate: func(block *wire.MsgBlock) {
				block.Header.Difficulty = 0
			},
			want: ErrZeroDifficulty,
		},
		{
			name: "tx root does not commit to the transactions",
			mutate: func(block *wire.MsgBlock) {
				block.Header.TxRoot[0] ^= 0xFF
			},
			want: ErrBadTxRoot,
		},
		{
			name: "first transaction is not a coinbase",
			mutate: func(block *wire.MsgBlock) {
				block.Transactions = []*wire.MsgTx{{
					Version:      wire.TxVersion,
					SenderPubKey: []byte{0x02},
					Method:       "ledger.transfer",
					Signature:    []byte{0x30},
				}}
				block.Header.TxRoot = block.TxRoot()
			},
			want: ErrMissingCoinbase,
		},
		{
			name: "second coinbase",
			mutate: func(block *wire.MsgBlock) {
				block.Transactions = []*wire.MsgTx{
					wire.NewCoinbaseTx(1, []byte("a")),
					wire.NewCoinbaseTx(1, []byte("b")),
				}
				block.Header.TxRoot = block.TxRoot()
			},
			want: ErrMultipleCoinbases,
		},
	}

	for i, test := range tests {
		block := buildBlock(t, chain, *params.GenesisHash,
			fakeDigest(0xC0, uint64(i)))
		test.mutate(block)

		_, _, err := chain.ProcessBlock(block, BFFastAdd)
		if err == nil {
			t.Fatalf("%q: invalid block accepted", test.name)
		}
		ruleErr, ok := err.(RuleError)
		if !ok {
			t.Fatalf("%q: error type %T, want RuleError", test.name, err)
		}
		if ruleErr.ErrorCode != test.want {
			t.Fatalf("%q: error code %v, want %v", test.name,
				ruleErr.ErrorCode, test.want)
		}

		best := chain.BestSnapshot()
		if best.Height != 0 {
			t.Fatalf("%q: invalid block moved the tip to height %d",
				test.name, best.Height)
		}
	}
}

func TestTimestampEqualToMedianIsAccepted(t *testing.T) {
	params := testParams()
	chain, _, _ := newTestChain(t, params)

	// The genesis median is its own timestamp; a child carrying exactly
	// that timestamp sits on the boundary and is valid.
	block := buildBlock(t, chain, *params.GenesisHash, fakeDigest(0xC1, 0))
	block.Header.Timestamp = chain.BestSnapshot().Timestamp

	isMainChain, isOrphan := processBlock(t, chain, block)
	if !isMainChain || isOrphan {
		t.Fatalf("boundary timestamp block isMainChain=%v isOrphan=%v, "+
			"want true, false", isMainChain, isOrphan)
	}
}

func TestRecentlySeenTracksProcessedBlocks(t *testing.T) {
	params := testParams()
	chain, _, _ := newTestChain(t, params)

	invalid := buildBlock(t, chain, *params.GenesisHash, fakeDigest(0xC2, 0))
	invalid.Header.Difficulty = 0
	invalidHash := invalid.BlockHash()
	if _, _, err := chain.ProcessBlock(invalid, BFFastAdd); err == nil {
		t.Fatal("zero difficulty block accepted")
	}
	if !chain.RecentlySeen(&invalidHash) {
		t.Fatal("rejected block not remembered by the seen filter")
	}

	unknown := fakeDigest(0xC2, 1)
	if chain.RecentlySeen(&unknown) {
		t.Fatal("unknown digest reported as recently seen")
	}
}

func TestLatestBlockLocator(t *testing.T) {
	params := testParams()
	chain, _, _ := newTestChain(t, params)
	extendChain(t, chain, *params.GenesisHash, 15, 0xA8)

	locator, err := chain.LatestBlockLocator()
	if err != nil {
		t.Fatalf("LatestBlockLocator: %v", err)
	}

	// Dense entries for heights 15 down to 6, then the doubling tail hits
	// height 4, then genesis.
	wantHeights := []uint64{15, 14, 13, 12, 11, 10, 9, 8, 7, 6, 4, 0}
	if len(locator) != len(wantHeights) {
		t.Fatalf("locator length = %d, want %d", len(locator), len(wantHeights))
	}
	for i, height := range wantHeights {
		hash, err := chain.BlockHashByHeight(height)
		if err != nil || hash == nil {
			t.Fatalf("height index at %d: %v (err %v)", height, hash, err)
		}
		if !locator[i].IsEqual(hash) {
			t.Fatalf("locator[%d] = %s, want the block at height %d (%s)",
				i, locator[i], height, hash)
		}
	}
}

func TestHeadersAfterLocator(t *testing.T) {
	params := testParams()
	chain, _, _ := newTestChain(t, params)
	extendChain(t, chain, *params.GenesisHash, 15, 0xA9)

	hash10, err := chain.BlockHashByHeight(10)
	if err != nil || hash10 == nil {
		t.Fatalf("height index at 10: %v (err %v)", hash10, err)
	}
	unknown := fakeDigest(0xFF, 0xFF)

	// The first recognized locator entry wins; unknown entries before it
	// are skipped.
	headers, err := chain.HeadersAfterLocator(
		[]*chainhash.Hash{&unknown, hash10}, wire.MaxHeadersPerMsg)
	if err != nil {
		t.Fatalf("HeadersAfterLocator: %v", err)
	}
	if len(headers) != 5 {
		t.Fatalf("got %d headers after height 10, want 5", len(headers))
	}
	if headers[0].Height != 11 || headers[4].Height != 15 {
		t.Fatalf("header heights span %d..%d, want 11..15",
			headers[0].Height, headers[4].Height)
	}

	// A fully unknown locator starts after genesis.
	headers, err = chain.HeadersAfterLocator(
		[]*chainhash.Hash{&unknown}, wire.MaxHeadersPerMsg)
	if err != nil {
		t.Fatalf("HeadersAfterLocator: %v", err)
	}
	if len(headers) != 15 || headers[0].Height != 1 {
		t.Fatalf("unknown locator yielded %d headers starting at %d, "+
			"want 15 starting at 1", len(headers), headers[0].Height)
	}

	// The caller's batch limit is honored.
	headers, err = chain.HeadersAfterLocator([]*chainhash.Hash{hash10}, 3)
	if err != nil {
		t.Fatalf("HeadersAfterLocator: %v", err)
	}
	if len(headers) != 3 || headers[2].Height != 13 {
		t.Fatalf("limited request yielded %d headers ending at %d, "+
			"want 3 ending at 13", len(headers), headers[len(headers)-1].Height)
	}
}

func TestChainStateSurvivesReopen(t *testing.T) {
	params := testParams()
	dbPath := t.TempDir()

	db, err := database.Open(dbPath)
	if err != nil {
		t.Fatalf("open database: %v", err)
	}
	chain, err := New(&Config{DB: db, ChainParams: params})
	if err != nil {
		t.Fatalf("create chain: %v", err)
	}
	tipHash := extendChain(t, chain, *params.GenesisHash, 5, 0xAA)
	if err := db.Close(); err != nil {
		t.Fatalf("close database: %v", err)
	}

	db, err = database.Open(dbPath)
	if err != nil {
		t.Fatalf("reopen database: %v", err)
	}
	defer db.Close()
	chain, err = New(&Config{DB: db, ChainParams: params})
	if err != nil {
		t.Fatalf("recreate chain: %v", err)
	}

	best := chain.BestSnapshot()
	if best.Height != 5 || !best.Hash.IsEqual(&tipHash) {
		t.Fatalf("reopened chain tip = (%d, %s), want (5, %s)", best.Height,
			best.Hash, tipHash)
	}
}

func TestGenesisMismatchIsFatal(t *testing.T) {
	dbPath := t.TempDir()

	db, err := database.Open(dbPath)
	if err != nil {
		t.Fatalf("open database: %v", err)
	}
	if _, err := New(&Config{DB: db, ChainParams: testParams()}); err != nil {
		t.Fatalf("create chain: %v", err)
	}
	if err := db.Close(); err != nil {
		t.Fatalf("close database: %v", err)
	}

	// Reopening a simnet block store as mainnet must fail before any sync
	// can happen.
	db, err = database.Open(dbPath)
	if err != nil {
		t.Fatalf("reopen database: %v", err)
	}
	defer db.Close()
	if _, err := New(&Config{DB: db, ChainParams: &chaincfg.MainnetParams}); err == nil {
		t.Fatal("chain accepted a block store from a different network")
	}
}

// assertRuleError fails the test unless err is a RuleError carrying the
// wanted code.
func assertRuleError(t *testing.T, err error, want ErrorCode) {
	t.Helper()
	if err == nil {
		t.Fatalf("expected rule error %v, got nil", want)
	}
	ruleErr, ok := err.(RuleError)
	if !ok {
		t.Fatalf("error type %T (%v), want RuleError", err, err)
	}
	if ruleErr.ErrorCode != want {
		t.Fatalf("error code %v, want %v", ruleErr.ErrorCode, want)
	}
}
