// Package pow implements the VisionX proof-of-work function: a memory-hard
// digest over a per-epoch pseudorandom dataset with a per-hash scratchpad,
// dependent reads and deterministic write-back.
package pow

import "fmt"

// Params holds the VisionX tuning parameters. Every node on a network must
// use a bit-identical set both when mining and when validating — any
// divergence makes miner and validator compute different digests for the
// same header, which silently forks the network. Params are therefore fixed
// per chain in chaincfg and never read from the environment.
type Params struct {
	// DatasetSize is the size in bytes of the per-epoch base dataset.
	DatasetSize int

	// ScratchSize is the size in bytes of the per-hash scratchpad.
	ScratchSize int

	// MixIterations is the number of mixing rounds per hash.
	MixIterations uint32

	// ReadsPerIter is the number of dependent dataset reads per round (2..4).
	ReadsPerIter uint32

	// WriteEvery makes every Nth round write back into the scratchpad.
	// Zero disables write-back.
	WriteEvery uint32

	// EpochBlocks is the number of blocks sharing one dataset epoch.
	EpochBlocks uint64
}

const mebibyte = 1024 * 1024

// Verification-side resource caps. Params beyond these limits are refused
// during verification so a hostile header can't make a validator allocate
// unbounded memory or spin forever.
const (
	maxDatasetSize   = 512 * mebibyte
	maxScratchSize   = 128 * mebibyte
	maxMixIterations = 1_000_000
	maxReadsPerIter  = 8
)

// MainnetParams returns the production parameter set.
func MainnetParams() Params {
	return Params{
		DatasetSize:   256 * mebibyte,
		ScratchSize:   32 * mebibyte,
		MixIterations: 65536,
		ReadsPerIter:  4,
		WriteEvery:    4,
		EpochBlocks:   32,
	}
}

// LiteParams returns a small parameter set for simnet and tests. chaincfg
// refuses to bind it to any network whose genesis matches production.
func LiteParams() Params {
	return Params{
		DatasetSize:   1 * mebibyte,
		ScratchSize:   1 * mebibyte,
		MixIterations: 1000,
		ReadsPerIter:  4,
		WriteEvery:    4,
		EpochBlocks:   32,
	}
}

// Fingerprint returns a stable string of the parameter set, logged on
// startup and on verification failures to surface param drift between
// miner and validator.
func (p Params) Fingerprint() string {
	return fmt.Sprintf("v=1 dataset=%d scratch=%d mix_iters=%d reads_per_iter=%d write_every=%d epoch_blocks=%d",
		p.DatasetSize, p.ScratchSize, p.MixIterations, p.ReadsPerIter, p.WriteEvery, p.EpochBlocks)
}

// checkLimits reports whether the parameter set is within the verification
// resource caps.
func (p Params) checkLimits() error {
	if p.DatasetSize > maxDatasetSize {
		return errExceedsLimit("dataset size", p.DatasetSize, maxDatasetSize)
	}
	if p.ScratchSize > maxScratchSize {
		return errExceedsLimit("scratchpad size", p.ScratchSize, maxScratchSize)
	}
	if int(p.MixIterations) > maxMixIterations {
		return errExceedsLimit("mix iterations", int(p.MixIterations), maxMixIterations)
	}
	if int(p.ReadsPerIter) > maxReadsPerIter {
		return errExceedsLimit("reads per iteration", int(p.ReadsPerIter), maxReadsPerIter)
	}
	return nil
}

func errExceedsLimit(what string, got, limit int) error {
	return fmt.Errorf("visionx %s %d exceeds verification limit %d", what, got, limit)
}

// Epoch returns the dataset epoch for the given block height.
func (p Params) Epoch(height uint64) uint64 {
	return height / p.EpochBlocks
}
