// Copyright (c) 2013-2016 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package wire

import (
	"io"
	"time"

	"github.com/oneepicnight/vision-node/util/chainhash"
)

// BlockVersion is the current latest supported block version.
const BlockVersion uint32 = 1

// blockHeaderLen is the number of bytes a serialized block header occupies:
// version 4 + height 8 + parent 32 + timestamp 8 + difficulty 8 + nonce 8 +
// pow digest 32 + tx root 32.
const blockHeaderLen = 132

// PowMessageLen is the number of bytes in the canonical proof-of-work
// message: magic 4 + version 4 + parent 32 + height 8 + timestamp 8 +
// difficulty 8 + nonce 8 + tx root 32.
const PowMessageLen = 104

// powMessageMagic prefixes every canonical proof-of-work message so the
// hashed preimage can never collide with another serialization of the
// header.
var powMessageMagic = [4]byte{'V', 'P', 'O', 'W'}

// powMessageVersion is the version of the canonical proof-of-work message
// layout, independent of the header version.
const powMessageVersion uint32 = 1

// BlockHeader defines information about a block and is used in the Vision
// block (MsgBlock) and headers (MsgHeaders) messages.
type BlockHeader struct {
	// Version of the block.
	Version uint32

	// Height of the block in the chain. The genesis block is height 0 and
	// every block's height is exactly its parent's height plus one.
	Height uint64

	// ParentHash is the pow digest of the parent block.
	ParentHash chainhash.Hash

	// Timestamp is the block time in unix seconds.
	Timestamp int64

	// Difficulty is the scalar difficulty the block claims. It must match
	// the value the retarget rule derives from the parent chain.
	Difficulty uint64

	// Nonce is the proof-of-work nonce. It is hashed as a separate input
	// and is always encoded as zero inside the pow message.
	Nonce uint64

	// PowDigest is the VisionX digest the miner claims for this header.
	// It is also the block's identity hash.
	PowDigest chainhash.Hash

	// TxRoot is the merkle root of the block's transactions.
	TxRoot chainhash.Hash
}

// BlockHash returns the identity hash of the block header, which is its
// claimed pow digest. Acceptance recomputes the digest, so an identity can
// never be forged past validation.
func (h *BlockHeader) BlockHash() chainhash.Hash {
	return h.PowDigest
}

// Time returns the header timestamp as a time.Time.
func (h *BlockHeader) Time() time.Time {
	return time.Unix(h.Timestamp, 0)
}

// PowMessage returns the canonical proof-of-work message for the header.
//
// The layout is fixed and shared bit-for-bit by miners and validators:
// "VPOW" magic, message version (little endian), parent digest raw bytes,
// height, timestamp and difficulty little endian, the nonce field encoded
// big endian and ALWAYS ZERO, and the tx root raw bytes. The real nonce is
// a separate input to the digest function; splicing it into the message
// yields a digest no validator will reproduce.
func (h *BlockHeader) PowMessage() []byte {
	msg := make([]byte, 0, PowMessageLen)
	var scratch [8]byte

	msg = append(msg, powMessageMagic[:]...)

	littleEndian.PutUint32(scratch[0:4], powMessageVersion)
	msg = append(msg, scratch[0:4]...)

	msg = append(msg, h.ParentHash[:]...)

	littleEndian.PutUint64(scratch[:], h.Height)
	msg = append(msg, scratch[:]...)

	littleEndian.PutUint64(scratch[:], uint64(h.Timestamp))
	msg = append(msg, scratch[:]...)

	littleEndian.PutUint64(scratch[:], h.Difficulty)
	msg = append(msg, scratch[:]...)

	// Nonce slot, big endian, zeroed.
	bigEndian.PutUint64(scratch[:], 0)
	msg = append(msg, scratch[:]...)

	msg = append(msg, h.TxRoot[:]...)

	return msg
}

// Deserialize decodes a block header from r using a format that is suitable
// for long-term storage such as a database.
func (h *BlockHeader) Deserialize(r io.Reader) error {
	return readElements(r, &h.Version, &h.Height, &h.ParentHash,
		&h.Timestamp, &h.Difficulty, &h.Nonce, &h.PowDigest, &h.TxRoot)
}

// Serialize encodes a block header to w using a format that is suitable for
// long-term storage such as a database.
func (h *BlockHeader) Serialize(w io.Writer) error {
	return writeElements(w, h.Version, h.Height, &h.ParentHash,
		h.Timestamp, h.Difficulty, h.Nonce, &h.PowDigest, &h.TxRoot)
}

// VisionDecode decodes r using the Vision protocol encoding into the
// receiver. The wire encoding is identical to the storage encoding.
func (h *BlockHeader) VisionDecode(r io.Reader, pver uint32) error {
	return h.Deserialize(r)
}

// VisionEncode encodes the receiver to w using the Vision protocol encoding.
func (h *BlockHeader) VisionEncode(w io.Writer, pver uint32) error {
	return h.Serialize(w)
}

// SerializeSize returns the number of bytes it would take to serialize the
// block header.
func (h *BlockHeader) SerializeSize() int {
	return blockHeaderLen
}

// NewBlockHeader returns a new BlockHeader using the provided fields.
func NewBlockHeader(version uint32, height uint64, parentHash *chainhash.Hash,
	timestamp int64, difficulty uint64, txRoot *chainhash.Hash) *BlockHeader {

	return &BlockHeader{
		Version:    version,
		Height:     height,
		ParentHash: *parentHash,
		Timestamp:  timestamp,
		Difficulty: difficulty,
		TxRoot:     *txRoot,
	}
}
