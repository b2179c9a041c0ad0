// Copyright (c) 2013-2016 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package blockchain

import (
	"github.com/oneepicnight/vision-node/util/chainhash"
)

// locatorDenseCount is how many consecutive recent blocks a locator
// carries before the spacing between entries starts doubling.
const locatorDenseCount = 10

// BlockLocator is used to help locate a specific block. The algorithm for
// building the block locator is to add the hashes in reverse order until
// locatorDenseCount hashes are included, then double the step each entry
// until genesis, which is always the final entry.
//
// The sparse tail keeps locators O(log n) while still letting a serving
// peer find the exact fork point within a few round trips even across
// deep forks.
type BlockLocator []*chainhash.Hash

// LatestBlockLocator returns a block locator for the current tip of the
// main chain.
func (c *Chain) LatestBlockLocator() (BlockLocator, error) {
	c.chainLock.RLock()
	defer c.chainLock.RUnlock()

	tipHeight := c.tip.height
	locator := make(BlockLocator, 0, 32)

	height := int64(tipHeight)
	step := int64(1)
	for height > 0 {
		hash, err := c.db.MainChainHash(uint64(height))
		if err != nil {
			return nil, err
		}
		if hash != nil {
			locator = append(locator, hash)
		}
		if len(locator) >= locatorDenseCount {
			step *= 2
		}
		height -= step
	}

	// Genesis anchors every locator so two chains that share nothing but
	// genesis still find their fork point.
	genesisHash, err := c.db.MainChainHash(0)
	if err != nil {
		return nil, err
	}
	if genesisHash != nil {
		locator = append(locator, genesisHash)
	}
	return locator, nil
}
