// Copyright (c) 2013-2017 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package blockchain

import (
	"fmt"

	"github.com/oneepicnight/vision-node/pow"
	"github.com/oneepicnight/vision-node/wire"
)

// checkBlockSanity performs context-free validation: everything that can
// be checked with the block alone, before its place in the chain is known.
func (c *Chain) checkBlockSanity(block *wire.MsgBlock) error {
	header := &block.Header

	if header.Difficulty == 0 {
		return ruleError(ErrZeroDifficulty, fmt.Sprintf(
			"block %s claims difficulty zero", header.BlockHash()))
	}

	// The transaction merkle root must commit to the transactions the
	// block actually carries.
	computedRoot := block.TxRoot()
	if computedRoot != header.TxRoot {
		return ruleError(ErrBadTxRoot, fmt.Sprintf(
			"block %s tx root mismatch: header commits to %s, "+
				"transactions hash to %s",
			header.BlockHash(), header.TxRoot, computedRoot))
	}

	// A non-empty block leads with exactly one coinbase.
	for i, tx := range block.Transactions {
		if i == 0 {
			if !tx.IsCoinbase() {
				return ruleError(ErrMissingCoinbase, fmt.Sprintf(
					"block %s first transaction is not a coinbase",
					header.BlockHash()))
			}
			continue
		}
		if tx.IsCoinbase() {
			return ruleError(ErrMultipleCoinbases, fmt.Sprintf(
				"block %s transaction %d is an extra coinbase",
				header.BlockHash(), i))
		}
	}

	return nil
}

// checkBlockContext performs validation that depends on the block's
// position in the chain: height continuity, timestamp bounds, and the
// difficulty the retarget rule demands. The proof of work was already
// verified by ProcessBlock before the block could reach this point.
// The caller must hold the chain lock and must have resolved the parent
// node; orphans never reach this function.
func (c *Chain) checkBlockContext(block *wire.MsgBlock, parent *blockNode) error {
	header := &block.Header
	blockHash := header.BlockHash()

	// Height must be exactly parent height + 1.
	if header.Height != parent.height+1 {
		str := fmt.Sprintf("block %s claims height %d on top of parent "+
			"%s at height %d", blockHash, header.Height, parent.hash,
			parent.height)
		log.Debugf("Rejecting block: %s", str)
		return ruleError(ErrBadHeight, str)
	}

	// The timestamp may not be too far in the future of the local
	// clock...
	maxTimestamp := c.now().Add(c.params.MaxTimeOffset).Unix()
	if header.Timestamp > maxTimestamp {
		str := fmt.Sprintf("block %s timestamp %d is more than %s after "+
			"local time", blockHash, header.Timestamp, c.params.MaxTimeOffset)
		log.Debugf("Rejecting block: %s", str)
		return ruleError(ErrTimeTooNew, str)
	}

	// ...and may not fall behind the median of its recent ancestors,
	// which stops miners from dragging timestamps backwards to game the
	// retarget rule. Equality with the median is allowed.
	medianTime := parent.CalcPastMedianTime(c.params.TimestampWindow)
	if header.Timestamp < medianTime {
		str := fmt.Sprintf("block %s timestamp %d is before the "+
			"median time %d of its recent ancestors", blockHash,
			header.Timestamp, medianTime)
		log.Debugf("Rejecting block: %s", str)
		return ruleError(ErrTimeTooOld, str)
	}

	// The claimed difficulty must be exactly the value the retarget rule
	// derives from the parent chain. Anything else, higher included, is
	// a consensus violation.
	expectedDifficulty := c.calcNextDifficulty(parent)
	if header.Difficulty != expectedDifficulty {
		str := fmt.Sprintf("block %s claims difficulty %d, retarget "+
			"rule requires %d", blockHash, header.Difficulty,
			expectedDifficulty)
		log.Debugf("Rejecting block: %s", str)
		return ruleError(ErrDifficultyMismatch, str)
	}

	return nil
}

// checkProofOfWork recomputes the block's VisionX digest over the
// canonical header message and verifies it against both the claimed digest
// and the difficulty target.
func (c *Chain) checkProofOfWork(header *wire.BlockHeader) error {
	blockHash := header.BlockHash()
	params := c.params.PowParams

	epoch := params.Epoch(header.Height)
	epochSeed := pow.EpochSeed(c.params.ChainID, c.params.GenesisHash, epoch)
	target := pow.TargetFromDifficulty(header.Difficulty)

	err := pow.CheckProofOfWork(params, &epochSeed, epoch,
		header.PowMessage(), header.Nonce, &header.PowDigest, &target)
	switch err := err.(type) {
	case nil:
		return nil
	case pow.ErrDigestMismatch:
		// The usual cause is a miner and validator disagreeing on
		// parameters or message encoding, so log enough to diagnose
		// exactly that.
		log.Warnf("Block %s pow digest mismatch: computed %s, claimed "+
			"%s (height %d, epoch %d, nonce %d, params %s)",
			blockHash, err.Computed, err.Claimed, header.Height, epoch,
			header.Nonce, params.Fingerprint())
		return ruleError(ErrPowDigestMismatch, err.Error())
	case pow.ErrDigestAboveTarget:
		log.Debugf("Block %s digest above target: %s", blockHash, err)
		return ruleError(ErrPowTooWeak, err.Error())
	default:
		// Parameter limit violations and anything unexpected.
		log.Warnf("Block %s pow verification refused: %s", blockHash, err)
		return ruleError(ErrPowLimitsExceeded, err.Error())
	}
}
