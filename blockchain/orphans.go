// Copyright (c) 2013-2018 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package blockchain

import (
	"container/list"
	"time"

	"github.com/oneepicnight/vision-node/database"
	"github.com/oneepicnight/vision-node/metrics"
	"github.com/oneepicnight/vision-node/util/chainhash"
	"github.com/oneepicnight/vision-node/wire"
)

const (
	// maxOrphanBlocks is the maximum number of orphan blocks that can be
	// queued. Beyond the cap the oldest orphan is evicted first.
	maxOrphanBlocks = 512

	// orphanTTL is how long an orphan block may wait for its parent
	// before it is expired.
	orphanTTL = 5 * time.Minute

	// maxSeenFilterEntries bounds the recently-seen digest filter.
	maxSeenFilterEntries = 8192
)

// orphanBlock represents a block that we don't yet have the parent for.
type orphanBlock struct {
	block   *wire.MsgBlock
	hash    chainhash.Hash
	arrival time.Time
}

// orphanPool holds blocks whose parent is unknown, indexed both by their
// own digest and by the missing parent digest so adoption after the parent
// arrives is a map lookup instead of a scan. Eviction is oldest-first and
// every orphan carries an expiry. The pool is persisted so a restart does
// not forget orphans that are still within their TTL.
//
// Access is serialized by the owning Chain's lock.
type orphanPool struct {
	db       *database.DB
	orphans  map[chainhash.Hash]*orphanBlock
	byParent map[chainhash.Hash][]*orphanBlock
	order    *list.List // *orphanBlock in arrival order, oldest first
}

func newOrphanPool(db *database.DB) *orphanPool {
	return &orphanPool{
		db:       db,
		orphans:  make(map[chainhash.Hash]*orphanBlock),
		byParent: make(map[chainhash.Hash][]*orphanBlock),
		order:    list.New(),
	}
}

// isKnownOrphan reports whether the passed digest is currently pooled.
func (p *orphanPool) isKnownOrphan(hash *chainhash.Hash) bool {
	_, exists := p.orphans[*hash]
	return exists
}

// count returns the number of pooled orphans.
func (p *orphanPool) count() int {
	return len(p.orphans)
}

// add pools the passed block. Expired orphans are pruned first, then the
// oldest orphans are evicted until the pool is under its cap.
func (p *orphanPool) add(block *wire.MsgBlock, now time.Time) {
	p.expire(now)

	for len(p.orphans)+1 > maxOrphanBlocks {
		oldest := p.order.Front().Value.(*orphanBlock)
		log.Debugf("Orphan pool full, evicting oldest orphan %s", oldest.hash)
		p.remove(oldest)
	}

	o := &orphanBlock{
		block:   block,
		hash:    block.BlockHash(),
		arrival: now,
	}
	p.orphans[o.hash] = o
	parent := block.Header.ParentHash
	p.byParent[parent] = append(p.byParent[parent], o)
	p.order.PushBack(o)

	if err := p.db.StoreOrphan(block, now); err != nil {
		log.Warnf("Could not persist orphan %s: %s", o.hash, err)
	}
	metrics.OrphanPoolSize.Set(float64(len(p.orphans)))
	log.Infof("Adding orphan block %s with parent %s", o.hash, parent)
}

// takeChildren removes and returns all pooled orphans whose parent is the
// given digest.
func (p *orphanPool) takeChildren(parent *chainhash.Hash) []*wire.MsgBlock {
	children := p.byParent[*parent]
	if len(children) == 0 {
		return nil
	}
	blocks := make([]*wire.MsgBlock, 0, len(children))
	for _, o := range children {
		blocks = append(blocks, o.block)
		p.remove(o)
	}
	return blocks
}

// expire prunes every orphan past its TTL.
func (p *orphanPool) expire(now time.Time) {
	for e := p.order.Front(); e != nil; {
		o := e.Value.(*orphanBlock)
		e = e.Next()
		if now.Sub(o.arrival) > orphanTTL {
			log.Debugf("Expiring orphan block %s", o.hash)
			p.remove(o)
		}
	}
}

// remove deletes the orphan from every internal structure and from the
// persisted pool.
func (p *orphanPool) remove(o *orphanBlock) {
	delete(p.orphans, o.hash)

	parent := o.block.Header.ParentHash
	siblings := p.byParent[parent]
	for i, sibling := range siblings {
		if sibling == o {
			p.byParent[parent] = append(siblings[:i], siblings[i+1:]...)
			break
		}
	}
	if len(p.byParent[parent]) == 0 {
		delete(p.byParent, parent)
	}

	for e := p.order.Front(); e != nil; e = e.Next() {
		if e.Value.(*orphanBlock) == o {
			p.order.Remove(e)
			break
		}
	}

	if err := p.db.DeleteOrphan(&o.hash); err != nil {
		log.Warnf("Could not delete persisted orphan %s: %s", o.hash, err)
	}
	metrics.OrphanPoolSize.Set(float64(len(p.orphans)))
}

// restore reloads persisted orphans, skipping any that expired while the
// node was down.
func (p *orphanPool) restore() error {
	now := time.Now()
	restored := 0
	err := p.db.ForEachOrphan(func(block *wire.MsgBlock, arrival time.Time) error {
		hash := block.BlockHash()
		if now.Sub(arrival) > orphanTTL {
			if err := p.db.DeleteOrphan(&hash); err != nil {
				log.Warnf("Could not delete expired orphan %s: %s", hash, err)
			}
			return nil
		}
		o := &orphanBlock{block: block, hash: hash, arrival: arrival}
		p.orphans[hash] = o
		parent := block.Header.ParentHash
		p.byParent[parent] = append(p.byParent[parent], o)
		p.order.PushBack(o)
		restored++
		return nil
	})
	if err != nil {
		return err
	}
	if restored > 0 {
		log.Infof("Restored %d orphan blocks from the block store", restored)
		metrics.OrphanPoolSize.Set(float64(restored))
	}
	return nil
}

// ExpireOrphans prunes expired orphans. It is called periodically by the
// sync manager.
func (c *Chain) ExpireOrphans() {
	c.chainLock.Lock()
	c.orphans.expire(c.now())
	c.chainLock.Unlock()
}

// OrphanCount returns the number of blocks currently waiting in the orphan
// pool.
func (c *Chain) OrphanCount() int {
	c.chainLock.RLock()
	defer c.chainLock.RUnlock()
	return c.orphans.count()
}

// seenFilter is a bounded insertion-order filter of recently processed
// digests. It makes repeated submissions of the same block, valid or not,
// cheap no-ops without growing unboundedly.
type seenFilter struct {
	entries map[chainhash.Hash]struct{}
	ring    []chainhash.Hash
	next    int
	full    bool
}

func newSeenFilter(capacity int) *seenFilter {
	return &seenFilter{
		entries: make(map[chainhash.Hash]struct{}, capacity),
		ring:    make([]chainhash.Hash, capacity),
	}
}

// contains reports whether the digest is in the filter.
func (f *seenFilter) contains(hash *chainhash.Hash) bool {
	_, ok := f.entries[*hash]
	return ok
}

// add inserts the digest, evicting the oldest entry once the filter is at
// capacity.
func (f *seenFilter) add(hash *chainhash.Hash) {
	if _, ok := f.entries[*hash]; ok {
		return
	}
	if f.full {
		delete(f.entries, f.ring[f.next])
	}
	f.ring[f.next] = *hash
	f.entries[*hash] = struct{}{}
	f.next++
	if f.next == len(f.ring) {
		f.next = 0
		f.full = true
	}
}
