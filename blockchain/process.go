// Copyright (c) 2013-2017 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package blockchain

import (
	"github.com/oneepicnight/vision-node/metrics"
	"github.com/oneepicnight/vision-node/util/chainhash"
	"github.com/oneepicnight/vision-node/wire"
)

// BehaviorFlags is a bitmask defining tweaks to the normal behavior when
// performing chain processing and consensus rules checks.
type BehaviorFlags uint32

const (
	// BFFastAdd may be set to indicate that the proof of work does not
	// need to be recomputed for this block. It is only safe for blocks
	// this node mined itself, where the digest was just computed by the
	// same code, or for trusted local replays.
	BFFastAdd BehaviorFlags = 1 << iota

	// BFNone is a convenience value to specifically indicate no flags.
	BFNone BehaviorFlags = 0
)

// ProcessBlock is the main workhorse for handling insertion of new blocks
// into the block chain, regardless of origin: network sync, gossip, and
// local mining all converge here, so every consensus rule is enforced in
// exactly one place.
//
// Processing includes duplicate suppression, context-free sanity checks,
// proof-of-work verification, orphan pooling when the parent is unknown,
// main chain extension, fork-choice by cumulative work with guarded
// reorganization, and recursive adoption of pooled orphans.
//
// The first return value indicates whether the block ended on the main
// chain. The second indicates whether it went to the orphan pool.
func (c *Chain) ProcessBlock(block *wire.MsgBlock, flags BehaviorFlags) (bool, bool, error) {
	c.chainLock.Lock()
	defer c.chainLock.Unlock()

	blockHash := block.BlockHash()
	log.Tracef("Processing block %s", blockHash)

	// A block that is already indexed, pooled, or recently seen is a
	// no-op, not an error. Resubmission is common during sync and after
	// gossip races, and must stay cheap.
	if c.index.HaveBlock(&blockHash) || c.orphans.isKnownOrphan(&blockHash) ||
		c.seen.contains(&blockHash) {
		metrics.DuplicateBlocksDropped.Inc()
		log.Debugf("Ignoring duplicate block %s", blockHash)
		node := c.index.LookupNode(&blockHash)
		return node != nil && node.inMainChain, false, nil
	}

	if err := c.checkBlockSanity(block); err != nil {
		c.seen.add(&blockHash)
		return false, false, err
	}

	// Verify the proof of work before anything context-dependent. The
	// digest check is context-free because the epoch seed depends only
	// on chain identity, so even orphans prove work before they may
	// occupy pool space.
	if flags&BFFastAdd != BFFastAdd {
		if err := c.checkProofOfWork(&block.Header); err != nil {
			c.seen.add(&blockHash)
			return false, false, err
		}
	}

	// Blocks with an unknown parent wait in the orphan pool until the
	// parent arrives.
	parent := c.index.LookupNode(&block.Header.ParentHash)
	if parent == nil {
		c.orphans.add(block, c.now())
		return false, true, nil
	}

	isMainChain, err := c.maybeAcceptBlock(block, parent)
	if err != nil {
		c.seen.add(&blockHash)
		return false, false, err
	}
	c.seen.add(&blockHash)

	// The new block may be the missing parent of pooled orphans.
	// Adoption is iterative: each accepted orphan may in turn unlock
	// further orphans.
	if err := c.processOrphans(&blockHash); err != nil {
		return isMainChain, false, err
	}

	log.Debugf("Accepted block %s", blockHash)
	return isMainChain, false, nil
}

// maybeAcceptBlock validates the block in the context of its parent,
// persists it, links it into the block index, and performs fork-choice.
// The caller must hold the chain lock.
func (c *Chain) maybeAcceptBlock(block *wire.MsgBlock, parent *blockNode) (bool, error) {
	if err := c.checkBlockContext(block, parent); err != nil {
		return false, err
	}

	node := newBlockNode(&block.Header, parent)

	// Fast path: the block extends the current tip.
	if parent == c.tip {
		if err := c.storeAndIndex(block, node); err != nil {
			return false, err
		}
		if err := c.connectBlock(node, block); err != nil {
			return false, err
		}
		return true, nil
	}

	// Side branch. The chain only switches when the branch carries
	// strictly more cumulative work; an equal-work branch never
	// displaces the incumbent tip.
	if !compareWork(node, c.tip) {
		if err := c.storeAndIndex(block, node); err != nil {
			return false, err
		}
		log.Infof("Block %s extends a side branch to height %d (work %s, "+
			"main chain work %s)", node.hash, node.height, node.workSum,
			c.tip.workSum)
		return false, nil
	}

	// The branch wins on work. The reorg guards run before the block is
	// persisted or indexed: a branch switch that is too deep or crosses
	// a checkpoint is rejected outright, and the candidate tip is never
	// stored.
	fork, err := c.findForkPoint(node)
	if err != nil {
		return false, err
	}
	branchLen := int(node.height - fork.height)
	branch := make([]*blockNode, branchLen)
	for n, i := node, branchLen-1; i >= 0; n, i = n.parent, i-1 {
		branch[i] = n
	}
	if err := c.checkReorgGuards(fork.height, branch); err != nil {
		metrics.ReorgsRejected.Inc()
		return false, err
	}

	if err := c.storeAndIndex(block, node); err != nil {
		return false, err
	}
	if err := c.reorganizeChain(node, fork, branch); err != nil {
		return false, err
	}
	return true, nil
}

// storeAndIndex persists the block, links it into the in-memory index,
// and fires the accepted notification.
func (c *Chain) storeAndIndex(block *wire.MsgBlock, node *blockNode) error {
	if err := c.db.StoreBlock(block, node.workSum); err != nil {
		return err
	}
	c.index.AddNode(node)
	c.sendNotification(NTBlockAccepted, block)
	return nil
}

// processOrphans adopts every pooled orphan whose ancestry just connected.
// It works a queue of accepted digests: accepting one orphan may unlock
// children pooled behind it.
func (c *Chain) processOrphans(acceptedHash *chainhash.Hash) error {
	queue := []chainhash.Hash{*acceptedHash}
	for len(queue) > 0 {
		parentHash := queue[0]
		queue = queue[1:]

		for _, orphan := range c.orphans.takeChildren(&parentHash) {
			orphanHash := orphan.BlockHash()
			parent := c.index.LookupNode(&orphan.Header.ParentHash)
			if parent == nil {
				// The parent was accepted but is gone from the
				// index; requeueing cannot help.
				log.Warnf("Orphan %s lost its parent during adoption",
					orphanHash)
				continue
			}
			log.Debugf("Adopting orphan block %s", orphanHash)
			if _, err := c.maybeAcceptBlock(orphan, parent); err != nil {
				c.seen.add(&orphanHash)
				log.Infof("Orphan block %s rejected during adoption: %s",
					orphanHash, err)
				continue
			}
			c.seen.add(&orphanHash)
			queue = append(queue, orphanHash)
		}
	}
	return nil
}
