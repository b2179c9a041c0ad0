// Copyright (c) 2013-2016 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package wire

import (
	"io"

	"github.com/oneepicnight/vision-node/util/chainhash"
)

// MaxBlockLocatorsPerMsg is the maximum number of block locator hashes
// allowed per message.
const MaxBlockLocatorsPerMsg = 500

// MaxHeadersPerMsg is the maximum number of block headers that can be
// requested or sent in a single headers message.
const MaxHeadersPerMsg = 2000

// MsgGetHeaders implements the Message interface and represents a Vision
// getheaders message. It is used to request a batch of headers starting
// after the highest locator hash the serving peer recognizes. The locator
// is dense near the requester's tip and exponentially sparse toward
// genesis, so a common ancestor is found in O(log n) entries even across
// deep forks.
type MsgGetHeaders struct {
	BlockLocatorHashes []*chainhash.Hash
	MaxHeaders         uint32
}

// AddBlockLocatorHash adds a new block locator hash to the message.
func (msg *MsgGetHeaders) AddBlockLocatorHash(hash *chainhash.Hash) error {
	if len(msg.BlockLocatorHashes)+1 > MaxBlockLocatorsPerMsg {
		return messageError("MsgGetHeaders.AddBlockLocatorHash",
			"too many block locator hashes for message")
	}
	msg.BlockLocatorHashes = append(msg.BlockLocatorHashes, hash)
	return nil
}

// VisionDecode decodes r using the Vision protocol encoding into the
// receiver.
func (msg *MsgGetHeaders) VisionDecode(r io.Reader, pver uint32) error {
	count, err := ReadVarInt(r)
	if err != nil {
		return err
	}
	if count > MaxBlockLocatorsPerMsg {
		return messageError("MsgGetHeaders.VisionDecode",
			"too many block locator hashes for message")
	}

	// Create a contiguous slice of hashes to deserialize into in order to
	// reduce the number of allocations.
	locatorHashes := make([]chainhash.Hash, count)
	msg.BlockLocatorHashes = make([]*chainhash.Hash, 0, count)
	for i := uint64(0); i < count; i++ {
		hash := &locatorHashes[i]
		if err := readElement(r, hash); err != nil {
			return err
		}
		msg.BlockLocatorHashes = append(msg.BlockLocatorHashes, hash)
	}

	if err := readElement(r, &msg.MaxHeaders); err != nil {
		return err
	}
	if msg.MaxHeaders == 0 || msg.MaxHeaders > MaxHeadersPerMsg {
		return messageError("MsgGetHeaders.VisionDecode",
			"invalid max headers count")
	}
	return nil
}

// VisionEncode encodes the receiver to w using the Vision protocol encoding.
func (msg *MsgGetHeaders) VisionEncode(w io.Writer, pver uint32) error {
	count := len(msg.BlockLocatorHashes)
	if count > MaxBlockLocatorsPerMsg {
		return messageError("MsgGetHeaders.VisionEncode",
			"too many block locator hashes for message")
	}

	if err := WriteVarInt(w, uint64(count)); err != nil {
		return err
	}
	for _, hash := range msg.BlockLocatorHashes {
		if err := writeElement(w, hash); err != nil {
			return err
		}
	}
	return writeElement(w, msg.MaxHeaders)
}

// Command returns the protocol command string for the message.
func (msg *MsgGetHeaders) Command() string {
	return CmdGetHeaders
}

// MaxPayloadLength returns the maximum length the payload can be for the
// receiver.
func (msg *MsgGetHeaders) MaxPayloadLength(pver uint32) uint32 {
	return MaxVarIntPayload +
		(MaxBlockLocatorsPerMsg * chainhash.HashSize) + 4
}

// NewMsgGetHeaders returns a new Vision getheaders message that conforms to
// the Message interface.
func NewMsgGetHeaders(maxHeaders uint32) *MsgGetHeaders {
	return &MsgGetHeaders{
		BlockLocatorHashes: make([]*chainhash.Hash, 0,
			MaxBlockLocatorsPerMsg),
		MaxHeaders: maxHeaders,
	}
}
