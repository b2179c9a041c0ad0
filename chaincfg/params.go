// Package chaincfg defines chain configuration parameters for the supported
// Vision networks and provides the single place where proof-of-work
// parameters are bound to a chain identity.
package chaincfg

import (
	"time"

	"github.com/pkg/errors"

	"github.com/oneepicnight/vision-node/pow"
	"github.com/oneepicnight/vision-node/util/chainhash"
)

// Checkpoint identifies a known good point in the block chain. Using
// checkpoints allows a few optimizations and, more importantly, pins
// history: a reorganization is never allowed to rewrite a checkpointed
// height with a different hash.
type Checkpoint struct {
	Height uint64
	Hash   *chainhash.Hash
}

// Params defines a Vision network by its parameters. These parameters may
// be used by Vision applications to differentiate networks as well as
// addresses and keys for one network from those intended for use on
// another network.
type Params struct {
	// Name defines a human-readable identifier for the network.
	Name string

	// ChainID is the numeric network identity exchanged during the peer
	// handshake. Peers with a different ChainID are disconnected.
	ChainID uint64

	// ProtocolVersion is the p2p protocol version this network speaks.
	ProtocolVersion uint32

	// Net is the wire magic used to discriminate message streams.
	Net uint32

	// DefaultPort is the default peer-to-peer port for the network.
	DefaultPort string

	// GenesisBlock and GenesisHash anchor the chain. GenesisHash doubles
	// as the chain-identity check during handshake and as the
	// fork-independent input to the PoW epoch seed.
	GenesisHash *chainhash.Hash

	// PowParams is the VisionX parameter set. It is part of consensus and
	// must be bit-identical across all nodes of the network.
	PowParams pow.Params

	// TargetTimePerBlock is the desired average time between blocks.
	TargetTimePerBlock time.Duration

	// DifficultyWindow is the number of recent blocks the LWMA retarget
	// averages over.
	DifficultyWindow uint64

	// MinDifficulty is the difficulty floor.
	MinDifficulty uint64

	// MaxTimeOffset is how far into the future a header timestamp may be,
	// relative to the local clock, before it is rejected.
	MaxTimeOffset time.Duration

	// TimestampWindow is the number of ancestor timestamps whose median a
	// new header's timestamp must exceed.
	TimestampWindow int

	// MaxReorgDepth is the deepest rollback a reorganization may perform,
	// regardless of how much work the competing branch carries.
	MaxReorgDepth uint64

	// Checkpoints ordered from oldest to newest.
	Checkpoints []Checkpoint

	// AcceptExperimentalPow marks networks that are allowed to run with a
	// non-production PoW parameter set. It is never true for mainnet.
	AcceptExperimentalPow bool
}

// MainnetParams defines the network parameters for the main Vision network.
var MainnetParams = Params{
	Name:            "mainnet",
	ChainID:         0x56495331, // "VIS1"
	ProtocolVersion: 2,
	Net:             0xd9b4bef9,
	DefaultPort:     "7171",

	GenesisHash: &genesisHash,
	PowParams:   pow.MainnetParams(),

	TargetTimePerBlock: 2 * time.Second,
	DifficultyWindow:   120,
	MinDifficulty:      1000,
	MaxTimeOffset:      10 * time.Second,
	TimestampWindow:    11,
	MaxReorgDepth:      100,

	Checkpoints: []Checkpoint{
		{Height: 0, Hash: &genesisHash},
		{Height: 5000, Hash: newHashFromStr("7bd1a8b244d0407043b4b170cba64dd3a6c9b44e6ffb8f4ea336b93ea0c27e7a")},
		{Height: 20000, Hash: newHashFromStr("30f23ccd3c0b10cc29642a214f51fa00e3407cbe72c9f1b0f6b354ff7eae7c99")},
	},

	AcceptExperimentalPow: false,
}

// SimnetParams defines the network parameters for the simulation test
// network. It runs the lite PoW variant so blocks can be mined instantly
// on a single machine.
var SimnetParams = Params{
	Name:            "simnet",
	ChainID:         0x56495353, // "VISS"
	ProtocolVersion: 2,
	Net:             0x12141c16,
	DefaultPort:     "17171",

	GenesisHash: &simnetGenesisHash,
	PowParams:   pow.LiteParams(),

	TargetTimePerBlock: 2 * time.Second,
	DifficultyWindow:   120,
	MinDifficulty:      1,
	MaxTimeOffset:      10 * time.Second,
	TimestampWindow:    11,
	MaxReorgDepth:      100,

	Checkpoints: nil,

	AcceptExperimentalPow: true,
}

// ErrExperimentalPowOnProduction is returned by Validate when a network
// carrying the production genesis is configured with a non-production PoW
// parameter set. Historically this class of mismatch (consensus constants
// mutable per process) was the root cause of hard-to-diagnose forks, so it
// is refused outright rather than warned about.
var ErrExperimentalPowOnProduction = errors.New("experimental pow parameters are not allowed on a production chain")

// Validate checks internal consistency of the parameter set. In particular
// it refuses the experimental PoW variant on any network whose genesis is
// the production genesis.
func (p *Params) Validate() error {
	if p.GenesisHash == nil {
		return errors.New("network parameters have no genesis hash")
	}
	if p.GenesisHash.IsEqual(MainnetParams.GenesisHash) && p.PowParams != pow.MainnetParams() {
		return ErrExperimentalPowOnProduction
	}
	if !p.AcceptExperimentalPow && p.PowParams != pow.MainnetParams() {
		return ErrExperimentalPowOnProduction
	}
	for i := 1; i < len(p.Checkpoints); i++ {
		if p.Checkpoints[i].Height <= p.Checkpoints[i-1].Height {
			return errors.Errorf("checkpoints are not sorted by height: %d after %d",
				p.Checkpoints[i].Height, p.Checkpoints[i-1].Height)
		}
	}
	return nil
}

// newHashFromStr converts the passed big-endian hex string into a
// chainhash.Hash. It only differs from the one available in chainhash in
// that it panics on an error since it will only be called with hard-coded,
// and therefore known good, hashes.
func newHashFromStr(hexStr string) *chainhash.Hash {
	hash, err := chainhash.NewHashFromStr(hexStr)
	if err != nil {
		panic(err)
	}
	return hash
}
