package pow

import (
	"encoding/binary"
	"math/bits"
	"sync"

	"github.com/oneepicnight/vision-node/util/chainhash"
)

// splitMix64 is the SplitMix64 PRNG used to fill datasets and scratchpads.
// It is part of consensus: every node must generate identical streams.
type splitMix64 struct {
	state uint64
}

func (s *splitMix64) next() uint64 {
	s.state += 0x9E3779B97F4A7C15
	z := s.state
	z = (z ^ (z >> 30)) * 0xBF58476D1CE4E5B9
	z = (z ^ (z >> 27)) * 0x94D049BB133111EB
	return z ^ (z >> 31)
}

// foldSeed folds a 32-byte seed and an epoch id into a single uint64 PRNG
// seed.
func foldSeed(seed32 *chainhash.Hash, epoch uint64) uint64 {
	s := epoch ^ 0xA24BAED4963EE407
	for i := 0; i < chainhash.HashSize; i += 8 {
		v := binary.BigEndian.Uint64(seed32[i : i+8])
		s ^= bits.RotateLeft64(v, 7)
		s = bits.RotateLeft64(s*0x9E3779B97F4A7C15, 9)
	}
	return s
}

// EpochSeed derives the deterministic, fork-independent dataset seed for an
// epoch. It intentionally depends only on the chain identity and the genesis
// digest, never on any epoch-boundary block hash: if the seed depended on a
// contested block, miners on opposite sides of a transient fork would build
// mutually unverifiable datasets.
func EpochSeed(chainID uint64, genesisDigest *chainhash.Hash, epoch uint64) chainhash.Hash {
	sm := splitMix64{state: foldSeed(genesisDigest, epoch) ^ bits.RotateLeft64(chainID, 31)}
	var seed chainhash.Hash
	for i := 0; i < chainhash.HashSize; i += 8 {
		binary.BigEndian.PutUint64(seed[i:i+8], sm.next())
	}
	return seed
}

// Dataset is the per-epoch base dataset. Word count is rounded up to a
// power of two so indices can be masked instead of reduced modulo.
type Dataset struct {
	mem  []uint64
	mask uint64
}

// roundPow2Words converts a byte size to a power-of-two word count.
func roundPow2Words(sizeBytes int) uint64 {
	words := uint64(sizeBytes / 8)
	n := uint64(1)
	for n < words {
		n <<= 1
	}
	return n
}

// GenerateDataset builds the dataset for the given epoch seed. This is
// expensive (hundreds of MiB on mainnet) — use the package cache via
// LookupDataset in normal operation.
func GenerateDataset(params Params, epochSeed *chainhash.Hash, epoch uint64) *Dataset {
	words := roundPow2Words(params.DatasetSize)
	sm := splitMix64{state: foldSeed(epochSeed, epoch)}
	mem := make([]uint64, words)
	for i := range mem {
		mem[i] = sm.next()
	}
	return &Dataset{mem: mem, mask: words - 1}
}

// datasetCache keeps the few most recent epoch datasets so validation
// doesn't rebuild hundreds of MiB per block.
const datasetCacheSize = 3

type datasetKey struct {
	epoch uint64
	seed  chainhash.Hash
}

var (
	datasetMtx   sync.Mutex
	datasetCache = make(map[datasetKey]*Dataset)
	datasetOrder []datasetKey
)

// LookupDataset returns the cached dataset for (epochSeed, epoch), building
// and caching it on first use. The cache is bounded; the oldest entry is
// evicted once more than datasetCacheSize epochs are held.
func LookupDataset(params Params, epochSeed *chainhash.Hash, epoch uint64) *Dataset {
	key := datasetKey{epoch: epoch, seed: *epochSeed}

	datasetMtx.Lock()
	if ds, ok := datasetCache[key]; ok {
		datasetMtx.Unlock()
		return ds
	}
	datasetMtx.Unlock()

	// Build outside the lock; dataset generation can take seconds and
	// concurrent lookups for other epochs must not stall behind it.
	ds := GenerateDataset(params, epochSeed, epoch)

	datasetMtx.Lock()
	defer datasetMtx.Unlock()
	if existing, ok := datasetCache[key]; ok {
		return existing
	}
	datasetCache[key] = ds
	datasetOrder = append(datasetOrder, key)
	if len(datasetOrder) > datasetCacheSize {
		evicted := datasetOrder[0]
		datasetOrder = datasetOrder[1:]
		delete(datasetCache, evicted)
	}
	return ds
}
