package database

import (
	"math/big"
	"testing"
	"time"

	"github.com/oneepicnight/vision-node/util/chainhash"
	"github.com/oneepicnight/vision-node/wire"
)

func newTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := Open(t.TempDir())
	if err != nil {
		t.Fatalf("open database: %v", err)
	}
	t.Cleanup(func() {
		db.Close()
	})
	return db
}

func testBlock(n byte) *wire.MsgBlock {
	block := &wire.MsgBlock{
		Header: wire.BlockHeader{
			Version:    wire.BlockVersion,
			Height:     uint64(n),
			ParentHash: chainhash.Hash{n},
			Timestamp:  int64(n) * 2,
			Difficulty: 1,
			PowDigest:  chainhash.Hash{0xF0, n},
		},
	}
	block.Header.TxRoot = block.TxRoot()
	return block
}

func TestBlockRoundtrip(t *testing.T) {
	db := newTestDB(t)

	block := testBlock(1)
	hash := block.BlockHash()
	work := big.NewInt(42)
	if err := db.StoreBlock(block, work); err != nil {
		t.Fatalf("StoreBlock: %v", err)
	}

	has, err := db.HasBlock(&hash)
	if err != nil || !has {
		t.Fatalf("HasBlock = %v (err %v), want true", has, err)
	}

	fetched, err := db.FetchBlock(&hash)
	if err != nil {
		t.Fatalf("FetchBlock: %v", err)
	}
	if fetched == nil || fetched.Header != block.Header {
		t.Fatal("fetched block header differs from the stored one")
	}

	fetchedWork, err := db.FetchWork(&hash)
	if err != nil {
		t.Fatalf("FetchWork: %v", err)
	}
	if fetchedWork.Cmp(work) != 0 {
		t.Fatalf("fetched work = %s, want %s", fetchedWork, work)
	}
}

func TestFetchBlockUnknown(t *testing.T) {
	db := newTestDB(t)

	unknown := chainhash.Hash{0xEE}
	block, err := db.FetchBlock(&unknown)
	if err != nil {
		t.Fatalf("FetchBlock on unknown hash errored: %v", err)
	}
	if block != nil {
		t.Fatal("FetchBlock returned a block for an unknown hash")
	}

	if _, err := db.FetchWork(&unknown); err == nil {
		t.Fatal("FetchWork on an unknown hash did not error")
	}
}

func TestHeightIndex(t *testing.T) {
	db := newTestDB(t)

	hash := chainhash.Hash{0x01}
	if err := db.SetMainChainHash(7, &hash); err != nil {
		t.Fatalf("SetMainChainHash: %v", err)
	}
	got, err := db.MainChainHash(7)
	if err != nil || got == nil || !got.IsEqual(&hash) {
		t.Fatalf("MainChainHash(7) = %v (err %v), want %s", got, err, hash)
	}

	// Heights above the tip read as absent, not as errors.
	got, err = db.MainChainHash(8)
	if err != nil || got != nil {
		t.Fatalf("MainChainHash(8) = %v (err %v), want nil", got, err)
	}
}

func TestSwitchMainChain(t *testing.T) {
	db := newTestDB(t)

	oldBranch := []chainhash.Hash{{0xA1}, {0xA2}, {0xA3}}
	for i, hash := range oldBranch {
		if err := db.SetMainChainHash(uint64(i+1), &hash); err != nil {
			t.Fatalf("SetMainChainHash: %v", err)
		}
	}
	if err := db.StoreTip(&oldBranch[2]); err != nil {
		t.Fatalf("StoreTip: %v", err)
	}

	// Switch to a shorter branch forking after height 1. Heights 2 and 3
	// are detached, height 2 is rewritten, height 3 stays cleared.
	newTip := chainhash.Hash{0xB2}
	err := db.SwitchMainChain([]uint64{3, 2},
		[]HeightHash{{Height: 2, Hash: newTip}}, &newTip)
	if err != nil {
		t.Fatalf("SwitchMainChain: %v", err)
	}

	got, err := db.MainChainHash(1)
	if err != nil || got == nil || !got.IsEqual(&oldBranch[0]) {
		t.Fatalf("MainChainHash(1) = %v (err %v), want %s", got, err,
			oldBranch[0])
	}
	got, err = db.MainChainHash(2)
	if err != nil || got == nil || !got.IsEqual(&newTip) {
		t.Fatalf("MainChainHash(2) = %v (err %v), want %s", got, err, newTip)
	}
	got, err = db.MainChainHash(3)
	if err != nil || got != nil {
		t.Fatalf("MainChainHash(3) = %v (err %v), want nil", got, err)
	}
	tip, err := db.FetchTip()
	if err != nil || tip == nil || !tip.IsEqual(&newTip) {
		t.Fatalf("FetchTip = %v (err %v), want %s", tip, err, newTip)
	}
}

func TestTipRoundtrip(t *testing.T) {
	db := newTestDB(t)

	// A fresh database has no tip.
	tip, err := db.FetchTip()
	if err != nil || tip != nil {
		t.Fatalf("fresh FetchTip = %v (err %v), want nil", tip, err)
	}

	hash := chainhash.Hash{0x0A}
	if err := db.StoreTip(&hash); err != nil {
		t.Fatalf("StoreTip: %v", err)
	}
	tip, err = db.FetchTip()
	if err != nil || tip == nil || !tip.IsEqual(&hash) {
		t.Fatalf("FetchTip = %v (err %v), want %s", tip, err, hash)
	}
}

func TestOrphanRoundtrip(t *testing.T) {
	db := newTestDB(t)

	arrival := time.Unix(1700000000, 0)
	block1 := testBlock(1)
	block2 := testBlock(2)
	if err := db.StoreOrphan(block1, arrival); err != nil {
		t.Fatalf("StoreOrphan: %v", err)
	}
	if err := db.StoreOrphan(block2, arrival.Add(time.Minute)); err != nil {
		t.Fatalf("StoreOrphan: %v", err)
	}

	found := make(map[chainhash.Hash]time.Time)
	err := db.ForEachOrphan(func(block *wire.MsgBlock, arrival time.Time) error {
		found[block.BlockHash()] = arrival
		return nil
	})
	if err != nil {
		t.Fatalf("ForEachOrphan: %v", err)
	}
	if len(found) != 2 {
		t.Fatalf("iterated %d orphans, want 2", len(found))
	}
	hash1 := block1.BlockHash()
	if !found[hash1].Equal(arrival) {
		t.Fatalf("orphan arrival = %s, want %s", found[hash1], arrival)
	}

	if err := db.DeleteOrphan(&hash1); err != nil {
		t.Fatalf("DeleteOrphan: %v", err)
	}
	count := 0
	err = db.ForEachOrphan(func(*wire.MsgBlock, time.Time) error {
		count++
		return nil
	})
	if err != nil {
		t.Fatalf("ForEachOrphan: %v", err)
	}
	if count != 1 {
		t.Fatalf("iterated %d orphans after deletion, want 1", count)
	}
}
