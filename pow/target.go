package pow

import (
	"bytes"
	"fmt"
	"math/big"

	"github.com/oneepicnight/vision-node/util/chainhash"
)

// maxTarget is 2^256 - 1, the easiest possible target (difficulty 1).
var maxTarget = new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), 256), big.NewInt(1))

// TargetFromDifficulty converts a scalar difficulty into a 256-bit
// big-endian target: target = maxTarget / difficulty. A difficulty of zero
// has no valid target; callers must reject it before conversion.
func TargetFromDifficulty(difficulty uint64) chainhash.Hash {
	var target chainhash.Hash
	if difficulty == 0 {
		return target // all zeroes: nothing meets it
	}
	t := new(big.Int).Div(maxTarget, new(big.Int).SetUint64(difficulty))
	t.FillBytes(target[:])
	return target
}

// DigestMeetsTarget reports whether digest <= target, both interpreted as
// 256-bit big-endian integers.
func DigestMeetsTarget(digest, target *chainhash.Hash) bool {
	return bytes.Compare(digest[:], target[:]) <= 0
}

// WorkFromDifficulty returns the expected amount of work a block at the
// given difficulty represents. Cumulative chain work is the monotonic sum
// of these values along a branch and is the sole fork-choice metric.
func WorkFromDifficulty(difficulty uint64) *big.Int {
	return new(big.Int).SetUint64(difficulty)
}

// ErrDigestMismatch is returned when the recomputed digest differs from the
// digest the header claims. This is the classic symptom of a parameter or
// encoding drift between miner and validator.
type ErrDigestMismatch struct {
	Computed chainhash.Hash
	Claimed  chainhash.Hash
}

func (e ErrDigestMismatch) Error() string {
	return fmt.Sprintf("visionx digest mismatch: computed %s, header claims %s",
		e.Computed, e.Claimed)
}

// ErrDigestAboveTarget is returned when the digest is valid but does not
// meet the required target.
type ErrDigestAboveTarget struct {
	Digest chainhash.Hash
	Target chainhash.Hash
}

func (e ErrDigestAboveTarget) Error() string {
	return fmt.Sprintf("visionx digest %s exceeds target %s", e.Digest, e.Target)
}
