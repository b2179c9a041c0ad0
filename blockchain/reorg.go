// Copyright (c) 2013-2018 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package blockchain

import (
	"github.com/pkg/errors"

	"github.com/oneepicnight/vision-node/database"
	"github.com/oneepicnight/vision-node/metrics"
	"github.com/oneepicnight/vision-node/util/chainhash"
	"github.com/oneepicnight/vision-node/wire"
)

// ReorgSummary describes a completed reorganization. It is delivered with
// the NTReorganization notification.
type ReorgSummary struct {
	ForkHash      chainhash.Hash
	ForkHeight    uint64
	OldTip        chainhash.Hash
	NewTip        chainhash.Hash
	Disconnected  int
	Connected     int
	TxsReinserted int
}

// connectBlock extends the main chain with a block whose parent is the
// current tip. The caller must hold the chain lock.
func (c *Chain) connectBlock(node *blockNode, block *wire.MsgBlock) error {
	if err := c.db.SetMainChainHash(node.height, &node.hash); err != nil {
		return err
	}
	if err := c.db.StoreTip(&node.hash); err != nil {
		return err
	}
	node.inMainChain = true
	c.tip = node
	c.setBestSnapshot(node)

	// Confirmed transactions leave the mempool.
	if c.txPool != nil {
		for _, tx := range block.Transactions {
			if tx.IsCoinbase() {
				continue
			}
			txHash := tx.TxHash()
			c.txPool.RemoveTransaction(&txHash)
		}
	}

	metrics.BlocksConnected.Inc()
	log.Infof("Block %s connected at height %d (difficulty %d, %d txs)",
		node.hash, node.height, node.difficulty, len(block.Transactions))
	c.sendNotification(NTBlockConnected, block)
	return nil
}

// findForkPoint walks both branches back to their last common ancestor.
// The caller must hold the chain lock.
func (c *Chain) findForkPoint(newTip *blockNode) (*blockNode, error) {
	oldBranch := c.tip
	newBranch := newTip
	for oldBranch.height > newBranch.height {
		oldBranch = oldBranch.parent
	}
	for newBranch.height > oldBranch.height {
		newBranch = newBranch.parent
	}
	for oldBranch != nil && newBranch != nil && oldBranch != newBranch {
		oldBranch = oldBranch.parent
		newBranch = newBranch.parent
	}
	if oldBranch == nil || newBranch == nil {
		return nil, errors.New("branches share no common ancestor")
	}
	return oldBranch, nil
}

// reorganizeChain switches the main chain to the branch ending at newTip.
// The height index rewrite and the tip move are committed in a single
// database batch, so a failure or crash mid-reorg leaves the stored chain
// entirely on the old branch; rolled-back transactions that are neither
// coinbases nor duplicates go back to the mempool afterwards. The caller
// must hold the chain lock, must already have verified that newTip
// carries strictly more cumulative work than the current tip, and must
// already have run the reorg guards over the branch.
func (c *Chain) reorganizeChain(newTip, fork *blockNode, branch []*blockNode) error {
	oldTip := c.tip

	// Gather the losing branch newest first. Nothing, on disk or in
	// memory, is mutated until the full set of index changes is known.
	var detachedNodes []*blockNode
	var detachedBlocks []*wire.MsgBlock
	var rolledBackTxs []*wire.MsgTx
	for n := oldTip; n != fork; n = n.parent {
		block, err := c.db.FetchBlock(&n.hash)
		if err != nil {
			return err
		}
		if block == nil {
			return errors.Errorf("main chain block %s is missing from "+
				"the block store", n.hash)
		}
		detachedNodes = append(detachedNodes, n)
		detachedBlocks = append(detachedBlocks, block)
		rolledBackTxs = append(rolledBackTxs, block.Transactions...)
	}

	detach := make([]uint64, len(detachedNodes))
	for i, n := range detachedNodes {
		detach[i] = n.height
	}
	attach := make([]database.HeightHash, len(branch))
	for i, n := range branch {
		attach[i] = database.HeightHash{Height: n.height, Hash: n.hash}
	}
	if err := c.db.SwitchMainChain(detach, attach, &newTip.hash); err != nil {
		return err
	}

	// The batch committed; flip the in-memory view to match.
	disconnected := len(detachedNodes)
	for i, n := range detachedNodes {
		n.inMainChain = false
		c.sendNotification(NTBlockDisconnected, detachedBlocks[i])
		log.Debugf("Disconnected block %s at height %d", n.hash, n.height)
	}
	for _, n := range branch {
		n.inMainChain = true
	}
	c.tip = newTip
	c.setBestSnapshot(newTip)

	// Drop the winning branch's transactions from the mempool and
	// reinsert what the losing branch confirmed but the winner did not.
	reinserted := 0
	if c.txPool != nil {
		confirmed := make(map[chainhash.Hash]struct{})
		for _, n := range branch {
			block, err := c.db.FetchBlock(&n.hash)
			if err != nil {
				return err
			}
			if block == nil {
				return errors.Errorf("branch block %s is missing from "+
					"the block store", n.hash)
			}
			for _, tx := range block.Transactions {
				txHash := tx.TxHash()
				confirmed[txHash] = struct{}{}
				if !tx.IsCoinbase() {
					c.txPool.RemoveTransaction(&txHash)
				}
			}
		}
		for _, tx := range rolledBackTxs {
			if tx.IsCoinbase() {
				continue
			}
			txHash := tx.TxHash()
			if _, ok := confirmed[txHash]; ok {
				continue
			}
			if c.txPool.HaveTransaction(&txHash) {
				continue
			}
			c.txPool.AddTransaction(tx)
			reinserted++
		}
	}

	summary := &ReorgSummary{
		ForkHash:      fork.hash,
		ForkHeight:    fork.height,
		OldTip:        oldTip.hash,
		NewTip:        newTip.hash,
		Disconnected:  disconnected,
		Connected:     len(branch),
		TxsReinserted: reinserted,
	}

	metrics.ReorgsTotal.Inc()
	metrics.ReorgBlocksRolledBack.Add(float64(disconnected))
	metrics.ReorgTxsReinserted.Add(float64(reinserted))
	metrics.ReorgDepthLast.Set(float64(disconnected))

	log.Warnf("REORGANIZATION: fork at height %d (%s), rolled back %d "+
		"blocks from %s, connected %d blocks to new tip %s, reinserted "+
		"%d transactions", fork.height, fork.hash, disconnected, oldTip.hash,
		len(branch), newTip.hash, reinserted)
	c.sendNotification(NTReorganization, summary)
	return nil
}

// compareWork reports whether candidate carries strictly more cumulative
// work than incumbent. Ties always favor the incumbent, so two blocks with
// equal work can never flap the tip.
func compareWork(candidate, incumbent *blockNode) bool {
	return candidate.workSum.Cmp(incumbent.workSum) > 0
}
