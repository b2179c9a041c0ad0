// Copyright (c) 2014-2016 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package blockchain

import "fmt"

// ErrorCode identifies a kind of error.
type ErrorCode int

// These constants are used to identify a specific RuleError.
const (
	// ErrDuplicateBlock indicates a block with the same digest already
	// exists.
	ErrDuplicateBlock ErrorCode = iota

	// ErrParentUnknown indicates the referenced parent block is not
	// known on any branch.
	ErrParentUnknown

	// ErrBadHeight indicates a block's height is not exactly one more
	// than its parent's.
	ErrBadHeight

	// ErrTimeTooNew indicates a block's timestamp is too far in the
	// future relative to the local clock.
	ErrTimeTooNew

	// ErrTimeTooOld indicates a block's timestamp does not exceed the
	// median timestamp of its recent ancestors.
	ErrTimeTooOld

	// ErrDifficultyMismatch indicates a block's claimed difficulty does
	// not match the value derived from the retarget rule.
	ErrDifficultyMismatch

	// ErrZeroDifficulty indicates a block claims difficulty zero.
	ErrZeroDifficulty

	// ErrPowDigestMismatch indicates the recomputed proof-of-work digest
	// differs from the digest the header claims.
	ErrPowDigestMismatch

	// ErrPowTooWeak indicates a valid digest that does not meet the
	// required target.
	ErrPowTooWeak

	// ErrPowLimitsExceeded indicates the proof-of-work parameter set
	// exceeds verification resource caps.
	ErrPowLimitsExceeded

	// ErrBadTxRoot indicates the block's transaction merkle root does
	// not match the computed root of its transactions.
	ErrBadTxRoot

	// ErrMissingCoinbase indicates a non-empty block whose first
	// transaction is not a coinbase.
	ErrMissingCoinbase

	// ErrMultipleCoinbases indicates a block with a coinbase transaction
	// in a position other than the first.
	ErrMultipleCoinbases

	// ErrReorgTooDeep indicates a branch switch that would roll back
	// more blocks than the maximum reorganization depth allows.
	ErrReorgTooDeep

	// ErrCheckpointMismatch indicates a branch that would rewrite a
	// checkpointed height with a different block.
	ErrCheckpointMismatch

	// ErrOrphanPoolFull is an internal code used when the orphan pool
	// evicts to make room; it never fails block processing.
	ErrOrphanPoolFull
)

// Map of ErrorCode values back to their constant names for pretty printing.
var errorCodeStrings = map[ErrorCode]string{
	ErrDuplicateBlock:     "ErrDuplicateBlock",
	ErrParentUnknown:      "ErrParentUnknown",
	ErrBadHeight:          "ErrBadHeight",
	ErrTimeTooNew:         "ErrTimeTooNew",
	ErrTimeTooOld:         "ErrTimeTooOld",
	ErrDifficultyMismatch: "ErrDifficultyMismatch",
	ErrZeroDifficulty:     "ErrZeroDifficulty",
	ErrPowDigestMismatch:  "ErrPowDigestMismatch",
	ErrPowTooWeak:         "ErrPowTooWeak",
	ErrPowLimitsExceeded:  "ErrPowLimitsExceeded",
	ErrBadTxRoot:          "ErrBadTxRoot",
	ErrMissingCoinbase:    "ErrMissingCoinbase",
	ErrMultipleCoinbases:  "ErrMultipleCoinbases",
	ErrReorgTooDeep:       "ErrReorgTooDeep",
	ErrCheckpointMismatch: "ErrCheckpointMismatch",
	ErrOrphanPoolFull:     "ErrOrphanPoolFull",
}

// String returns the ErrorCode as a human-readable name.
func (e ErrorCode) String() string {
	if s := errorCodeStrings[e]; s != "" {
		return s
	}
	return fmt.Sprintf("Unknown ErrorCode (%d)", int(e))
}

// RuleError identifies a rule violation. It is used to indicate that
// processing of a block failed due to one of the many validation rules.
// The caller can use type assertions to determine if a failure was
// specifically due to a rule violation and access the ErrorCode field to
// ascertain the specific reason for the rule violation.
type RuleError struct {
	ErrorCode   ErrorCode // Describes the kind of error
	Description string    // Human readable description of the issue
}

// Error satisfies the error interface and prints human-readable errors.
func (e RuleError) Error() string {
	return e.Description
}

// ruleError creates a RuleError given a set of arguments.
func ruleError(c ErrorCode, desc string) RuleError {
	return RuleError{ErrorCode: c, Description: desc}
}
