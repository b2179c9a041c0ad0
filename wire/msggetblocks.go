// Copyright (c) 2013-2016 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package wire

import (
	"io"

	"github.com/oneepicnight/vision-node/util/chainhash"
)

// MaxBlocksPerMsg is the maximum number of full blocks that can be
// requested or sent in a single message. It bounds the sync window, which
// never exceeds a few dozen blocks in flight.
const MaxBlocksPerMsg = 128

// MsgGetBlocks implements the Message interface and represents a Vision
// getblocks message. It requests the full blocks for an explicit list of
// hashes, which the requester learned from a headers response.
type MsgGetBlocks struct {
	BlockHashes []*chainhash.Hash
}

// AddBlockHash adds a new block hash to the message.
func (msg *MsgGetBlocks) AddBlockHash(hash *chainhash.Hash) error {
	if len(msg.BlockHashes)+1 > MaxBlocksPerMsg {
		return messageError("MsgGetBlocks.AddBlockHash",
			"too many block hashes for message")
	}
	msg.BlockHashes = append(msg.BlockHashes, hash)
	return nil
}

// VisionDecode decodes r using the Vision protocol encoding into the
// receiver.
func (msg *MsgGetBlocks) VisionDecode(r io.Reader, pver uint32) error {
	count, err := ReadVarInt(r)
	if err != nil {
		return err
	}
	if count > MaxBlocksPerMsg {
		return messageError("MsgGetBlocks.VisionDecode",
			"too many block hashes for message")
	}

	hashes := make([]chainhash.Hash, count)
	msg.BlockHashes = make([]*chainhash.Hash, 0, count)
	for i := uint64(0); i < count; i++ {
		hash := &hashes[i]
		if err := readElement(r, hash); err != nil {
			return err
		}
		msg.BlockHashes = append(msg.BlockHashes, hash)
	}
	return nil
}

// VisionEncode encodes the receiver to w using the Vision protocol encoding.
func (msg *MsgGetBlocks) VisionEncode(w io.Writer, pver uint32) error {
	count := len(msg.BlockHashes)
	if count > MaxBlocksPerMsg {
		return messageError("MsgGetBlocks.VisionEncode",
			"too many block hashes for message")
	}

	if err := WriteVarInt(w, uint64(count)); err != nil {
		return err
	}
	for _, hash := range msg.BlockHashes {
		if err := writeElement(w, hash); err != nil {
			return err
		}
	}
	return nil
}

// Command returns the protocol command string for the message.
func (msg *MsgGetBlocks) Command() string {
	return CmdGetBlocks
}

// MaxPayloadLength returns the maximum length the payload can be for the
// receiver.
func (msg *MsgGetBlocks) MaxPayloadLength(pver uint32) uint32 {
	return MaxVarIntPayload + (MaxBlocksPerMsg * chainhash.HashSize)
}

// NewMsgGetBlocks returns a new Vision getblocks message that conforms to
// the Message interface.
func NewMsgGetBlocks() *MsgGetBlocks {
	return &MsgGetBlocks{
		BlockHashes: make([]*chainhash.Hash, 0, MaxBlocksPerMsg),
	}
}
