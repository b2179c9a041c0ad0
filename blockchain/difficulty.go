// Copyright (c) 2013-2017 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package blockchain

import "math"

// Per-block retarget constants. Solve times are clamped to
// [target/minSolveDivisor, target*maxSolveMultiplier] before averaging so a
// single hostile timestamp cannot swing difficulty, and the resulting
// per-block change is clamped to [-10%, +10%].
const (
	minSolveDivisor    = 4
	maxSolveMultiplier = 10
	maxChangeUpPct     = 110
	maxChangeDownPct   = 90

	// ratioScale is the fixed-point scale used for the solve-time to
	// target-time ratio.
	ratioScale = 1000
)

// calcNextDifficulty computes the required difficulty for the block that
// builds on top of the passed node, using a linearly weighted moving
// average of the solve times of the last difficultyWindow blocks. More
// recent solve times carry linearly more weight, so the difficulty follows
// hash rate changes within a few blocks without oscillating.
func (c *Chain) calcNextDifficulty(tip *blockNode) uint64 {
	targetSecs := int64(c.params.TargetTimePerBlock.Seconds())
	if targetSecs < 1 {
		targetSecs = 1
	}

	// Collect up to difficultyWindow timestamps ending at the tip,
	// oldest first.
	window := int(c.params.DifficultyWindow)
	timestamps := make([]int64, 0, window)
	for n, i := tip, 0; n != nil && i < window; n, i = n.parent, i+1 {
		timestamps = append(timestamps, n.timestamp)
	}
	for i, j := 0, len(timestamps)-1; i < j; i, j = i+1, j-1 {
		timestamps[i], timestamps[j] = timestamps[j], timestamps[i]
	}

	if len(timestamps) < 2 {
		return maxU64(tip.difficulty, c.params.MinDifficulty)
	}

	minDT := targetSecs / minSolveDivisor
	if minDT < 1 {
		minDT = 1
	}
	maxDT := targetSecs * maxSolveMultiplier

	// Linearly weighted average of clamped solve times. Weight k goes to
	// the k-th interval so the newest interval weighs the most.
	var sumWeights, weightedSum int64
	for k := 1; k < len(timestamps); k++ {
		dt := timestamps[k] - timestamps[k-1]
		if dt < minDT {
			dt = minDT
		}
		if dt > maxDT {
			dt = maxDT
		}
		weight := int64(k)
		sumWeights += weight
		weightedSum += dt * weight
	}
	if sumWeights == 0 {
		return maxU64(tip.difficulty, c.params.MinDifficulty)
	}

	// ratio = lwma solve time / target time, in fixed point. A ratio
	// below one means blocks are too fast and difficulty must rise.
	ratio := weightedSum * ratioScale / (sumWeights * targetSecs)
	if ratio < ratioScale*maxChangeDownPct/100 {
		ratio = ratioScale * maxChangeDownPct / 100
	}
	if ratio > ratioScale*maxChangeUpPct/100 {
		ratio = ratioScale * maxChangeUpPct / 100
	}

	// next difficulty = current / ratio. Difficulty moves opposite to
	// the target.
	var next uint64
	if tip.difficulty > math.MaxUint64/ratioScale {
		next = tip.difficulty / uint64(ratio) * ratioScale
	} else {
		next = tip.difficulty * ratioScale / uint64(ratio)
	}
	return maxU64(next, c.params.MinDifficulty)
}

// CalcNextRequiredDifficulty returns the difficulty a block extending the
// current main chain tip must carry.
//
// This function is safe for concurrent access.
func (c *Chain) CalcNextRequiredDifficulty() uint64 {
	c.chainLock.RLock()
	difficulty := c.calcNextDifficulty(c.tip)
	c.chainLock.RUnlock()
	return difficulty
}

// PastMedianTime returns the median timestamp of the blocks preceding the
// next block, in Unix seconds. A valid next block must carry a timestamp
// strictly after it.
//
// This function is safe for concurrent access.
func (c *Chain) PastMedianTime() int64 {
	c.chainLock.RLock()
	median := c.tip.CalcPastMedianTime(c.params.TimestampWindow)
	c.chainLock.RUnlock()
	return median
}

func maxU64(a, b uint64) uint64 {
	if a > b {
		return a
	}
	return b
}
