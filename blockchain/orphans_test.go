// Copyright (c) 2013-2018 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package blockchain

import (
	"testing"
	"time"

	"github.com/oneepicnight/vision-node/database"
	"github.com/oneepicnight/vision-node/util/chainhash"
	"github.com/oneepicnight/vision-node/wire"
)

// orphanTestBlock builds a minimal block with a unique digest and the given
// parent, suitable for orphan pool bookkeeping tests.
func orphanTestBlock(parent chainhash.Hash, n uint64) *wire.MsgBlock {
	block := &wire.MsgBlock{
		Header: wire.BlockHeader{
			Version:    wire.BlockVersion,
			Height:     1,
			ParentHash: parent,
			Timestamp:  2,
			Difficulty: 1,
			PowDigest:  fakeDigest(0xD0, n),
		},
	}
	block.Header.TxRoot = block.TxRoot()
	return block
}

func newTestOrphanPool(t *testing.T) (*orphanPool, *database.DB) {
	t.Helper()
	db, err := database.Open(t.TempDir())
	if err != nil {
		t.Fatalf("open database: %v", err)
	}
	t.Cleanup(func() {
		db.Close()
	})
	return newOrphanPool(db), db
}

func TestSeenFilterEviction(t *testing.T) {
	filter := newSeenFilter(3)
	hashes := make([]chainhash.Hash, 5)
	for i := range hashes {
		hashes[i] = fakeDigest(0xD1, uint64(i))
	}

	for i := 0; i < 3; i++ {
		filter.add(&hashes[i])
	}
	for i := 0; i < 3; i++ {
		if !filter.contains(&hashes[i]) {
			t.Fatalf("filter lost entry %d before reaching capacity", i)
		}
	}

	// Adding a duplicate must not consume a slot.
	filter.add(&hashes[2])
	if !filter.contains(&hashes[0]) {
		t.Fatal("duplicate add evicted the oldest entry")
	}

	// The fourth distinct entry evicts the oldest.
	filter.add(&hashes[3])
	if filter.contains(&hashes[0]) {
		t.Fatal("oldest entry survived eviction")
	}
	for i := 1; i < 4; i++ {
		if !filter.contains(&hashes[i]) {
			t.Fatalf("entry %d missing after eviction", i)
		}
	}
}

func TestOrphanPoolTakeChildren(t *testing.T) {
	pool, _ := newTestOrphanPool(t)
	now := time.Now()

	parent := fakeDigest(0xD2, 0)
	other := fakeDigest(0xD2, 1)
	a := orphanTestBlock(parent, 10)
	b := orphanTestBlock(parent, 11)
	c := orphanTestBlock(other, 12)
	pool.add(a, now)
	pool.add(b, now)
	pool.add(c, now)

	children := pool.takeChildren(&parent)
	if len(children) != 2 {
		t.Fatalf("takeChildren returned %d blocks, want 2", len(children))
	}
	if pool.count() != 1 {
		t.Fatalf("pool count after takeChildren = %d, want 1", pool.count())
	}
	aHash := a.BlockHash()
	bHash := b.BlockHash()
	if pool.isKnownOrphan(&aHash) || pool.isKnownOrphan(&bHash) {
		t.Fatal("taken children still pooled")
	}

	// A second take for the same parent is empty.
	if again := pool.takeChildren(&parent); len(again) != 0 {
		t.Fatalf("second takeChildren returned %d blocks, want 0", len(again))
	}
}

func TestOrphanPoolEvictsOldestAtCapacity(t *testing.T) {
	pool, _ := newTestOrphanPool(t)
	now := time.Now()

	first := orphanTestBlock(fakeDigest(0xD3, 0), 0)
	firstHash := first.BlockHash()
	pool.add(first, now)
	for i := 1; i < maxOrphanBlocks; i++ {
		pool.add(orphanTestBlock(fakeDigest(0xD3, uint64(i)), uint64(i)),
			now.Add(time.Duration(i)*time.Millisecond))
	}
	if pool.count() != maxOrphanBlocks {
		t.Fatalf("pool count = %d, want %d", pool.count(), maxOrphanBlocks)
	}

	// One past the cap evicts the oldest orphan, not the newest.
	last := orphanTestBlock(fakeDigest(0xD3, maxOrphanBlocks), maxOrphanBlocks)
	lastHash := last.BlockHash()
	pool.add(last, now.Add(time.Second))

	if pool.count() != maxOrphanBlocks {
		t.Fatalf("pool count after overflow = %d, want %d", pool.count(),
			maxOrphanBlocks)
	}
	if pool.isKnownOrphan(&firstHash) {
		t.Fatal("oldest orphan survived eviction")
	}
	if !pool.isKnownOrphan(&lastHash) {
		t.Fatal("newest orphan missing after eviction")
	}
}

func TestOrphanPoolExpire(t *testing.T) {
	pool, _ := newTestOrphanPool(t)
	now := time.Now()

	stale := orphanTestBlock(fakeDigest(0xD4, 0), 0)
	staleHash := stale.BlockHash()
	fresh := orphanTestBlock(fakeDigest(0xD4, 1), 1)
	freshHash := fresh.BlockHash()
	pool.add(stale, now)
	pool.add(fresh, now.Add(4*time.Minute))

	pool.expire(now.Add(orphanTTL + time.Minute))
	if pool.isKnownOrphan(&staleHash) {
		t.Fatal("expired orphan still pooled")
	}
	if !pool.isKnownOrphan(&freshHash) {
		t.Fatal("orphan within its TTL was expired")
	}
}

func TestOrphanPoolRestore(t *testing.T) {
	pool, db := newTestOrphanPool(t)
	now := time.Now()

	kept := orphanTestBlock(fakeDigest(0xD5, 0), 0)
	keptHash := kept.BlockHash()
	expired := orphanTestBlock(fakeDigest(0xD5, 1), 1)
	expiredHash := expired.BlockHash()
	pool.add(kept, now)
	pool.add(expired, now.Add(-orphanTTL-time.Minute))

	// A new pool over the same store sees only the orphan that is still
	// within its TTL.
	restored := newOrphanPool(db)
	if err := restored.restore(); err != nil {
		t.Fatalf("restore: %v", err)
	}
	if !restored.isKnownOrphan(&keptHash) {
		t.Fatal("persisted orphan not restored")
	}
	if restored.isKnownOrphan(&expiredHash) {
		t.Fatal("orphan that expired while down was restored")
	}
	if restored.count() != 1 {
		t.Fatalf("restored pool count = %d, want 1", restored.count())
	}
}
