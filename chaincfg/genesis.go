package chaincfg

import (
	"github.com/oneepicnight/vision-node/util/chainhash"
	"github.com/oneepicnight/vision-node/wire"
)

// genesisBlock defines the genesis block of the main network's block chain.
// Every field is zero except the version and difficulty; the chain grows
// from an empty block with no parent and no transactions.
var genesisBlock = wire.MsgBlock{
	Header: wire.BlockHeader{
		Version:    1,
		Height:     0,
		ParentHash: chainhash.Hash{},
		Timestamp:  0,
		Difficulty: 1,
		Nonce:      0,
		PowDigest:  genesisHash,
		TxRoot:     chainhash.Hash{},
	},
	Transactions: []*wire.MsgTx{},
}

// genesisHash is the canonical, hard-coded identity of the main network
// genesis block. Nodes must never learn genesis identity from peers; this
// constant is the source of truth, and a stored genesis that disagrees
// with it is a fatal startup error.
var genesisHash = chainhash.Hash([chainhash.HashSize]byte{
	0xd6, 0x46, 0x9e, 0xc9, 0x5f, 0x56, 0xb5, 0x6b,
	0xe4, 0x92, 0x1e, 0xf4, 0x0b, 0x97, 0x95, 0x90,
	0x2c, 0x96, 0xf2, 0xad, 0x26, 0x58, 0x2e, 0xf8,
	0xdb, 0x8f, 0xac, 0x46, 0xf4, 0xa7, 0xaa, 0x13,
})

// simnetGenesisBlock defines the genesis block of the simulation network.
// It shares the main network layout but a distinct timestamp, so the two
// networks can never exchange blocks.
var simnetGenesisBlock = wire.MsgBlock{
	Header: wire.BlockHeader{
		Version:    1,
		Height:     0,
		ParentHash: chainhash.Hash{},
		Timestamp:  1,
		Difficulty: 1,
		Nonce:      0,
		PowDigest:  simnetGenesisHash,
		TxRoot:     chainhash.Hash{},
	},
	Transactions: []*wire.MsgTx{},
}

// simnetGenesisHash is the identity of the simulation network genesis
// block.
var simnetGenesisHash = chainhash.Hash([chainhash.HashSize]byte{
	0x8e, 0x21, 0xd7, 0x43, 0x6e, 0x1e, 0x76, 0x0f,
	0x2c, 0xaa, 0x83, 0x95, 0x14, 0xd0, 0x44, 0x9e,
	0x6b, 0x11, 0x39, 0xc2, 0x71, 0x4d, 0x38, 0x85,
	0x90, 0x66, 0x34, 0x78, 0x12, 0xee, 0xcf, 0x5d,
})

// GenesisBlock returns the genesis block for the network the parameters
// describe.
func (p *Params) GenesisBlock() *wire.MsgBlock {
	if p.GenesisHash.IsEqual(&simnetGenesisHash) {
		return &simnetGenesisBlock
	}
	return &genesisBlock
}
