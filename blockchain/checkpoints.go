// Copyright (c) 2013-2016 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package blockchain

import (
	"fmt"

	"github.com/pkg/errors"

	"github.com/oneepicnight/vision-node/util/chainhash"
)

// verifyCheckpoints checks every embedded checkpoint at or below the
// current tip against local main chain history. A mismatch means this
// node's history diverges from the pinned network history, which cannot be
// repaired by syncing; it is a fatal startup error.
func (c *Chain) verifyCheckpoints() error {
	tipHeight := c.tip.height
	for _, checkpoint := range c.params.Checkpoints {
		if checkpoint.Height > tipHeight {
			continue
		}
		localHash, err := c.db.MainChainHash(checkpoint.Height)
		if err != nil {
			return err
		}
		if localHash == nil {
			return errors.Errorf("height index is missing "+
				"checkpointed height %d", checkpoint.Height)
		}
		if !localHash.IsEqual(checkpoint.Hash) {
			return errors.Errorf("local block %s at height %d does "+
				"not match checkpoint %s; the local chain has "+
				"diverged from pinned network history and the block "+
				"store must be rebuilt", localHash, checkpoint.Height,
				checkpoint.Hash)
		}
	}
	if len(c.params.Checkpoints) > 0 {
		log.Infof("Verified %d checkpoints against local history",
			len(c.params.Checkpoints))
	}
	return nil
}

// checkReorgGuards rejects a branch switch that would either roll back
// more than the maximum reorganization depth or rewrite a checkpointed
// height. forkHeight is the height of the last common ancestor; branch is
// the winning branch from the block after the fork point up to its tip.
// The caller must hold the chain lock.
func (c *Chain) checkReorgGuards(forkHeight uint64, branch []*blockNode) error {
	rollbackDepth := c.tip.height - forkHeight
	if rollbackDepth > c.params.MaxReorgDepth {
		str := fmt.Sprintf("reorganization would roll back %d blocks, "+
			"more than the maximum depth %d; refusing to switch away "+
			"from tip %s", rollbackDepth, c.params.MaxReorgDepth,
			c.tip.hash)
		log.Warnf("%s", str)
		return ruleError(ErrReorgTooDeep, str)
	}

	// No disconnected block may be checkpointed, and every new branch
	// block landing on a checkpointed height must carry the pinned hash.
	for height := forkHeight + 1; height <= c.tip.height; height++ {
		if pinned := c.checkpointsByHeight[height]; pinned != nil {
			str := fmt.Sprintf("reorganization would disconnect "+
				"checkpointed block %s at height %d", pinned, height)
			log.Warnf("%s", str)
			return ruleError(ErrCheckpointMismatch, str)
		}
	}
	for _, node := range branch {
		pinned := c.checkpointsByHeight[node.height]
		if pinned != nil && !pinned.IsEqual(&node.hash) {
			str := fmt.Sprintf("branch block %s at height %d does not "+
				"match checkpoint %s", node.hash, node.height, pinned)
			log.Warnf("%s", str)
			return ruleError(ErrCheckpointMismatch, str)
		}
	}
	return nil
}

// Checkpoints returns the embedded checkpoints of the active network.
func (c *Chain) Checkpoints() map[uint64]*chainhash.Hash {
	return c.checkpointsByHeight
}
