// Copyright (c) 2013-2016 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package wire

import "io"

// MsgBlocks implements the Message interface and represents a Vision blocks
// message. It is the response to getblocks and carries the requested blocks
// in the order they were asked for. Hashes the serving peer does not know
// are silently omitted; the requester treats gaps as per-height failures.
type MsgBlocks struct {
	Blocks []*MsgBlock
}

// AddBlock adds a block to the message.
func (msg *MsgBlocks) AddBlock(block *MsgBlock) error {
	if len(msg.Blocks)+1 > MaxBlocksPerMsg {
		return messageError("MsgBlocks.AddBlock",
			"too many blocks for message")
	}
	msg.Blocks = append(msg.Blocks, block)
	return nil
}

// VisionDecode decodes r using the Vision protocol encoding into the
// receiver.
func (msg *MsgBlocks) VisionDecode(r io.Reader, pver uint32) error {
	count, err := ReadVarInt(r)
	if err != nil {
		return err
	}
	if count > MaxBlocksPerMsg {
		return messageError("MsgBlocks.VisionDecode",
			"too many blocks for message")
	}

	msg.Blocks = make([]*MsgBlock, 0, count)
	for i := uint64(0); i < count; i++ {
		block := MsgBlock{}
		if err := block.Deserialize(r); err != nil {
			return err
		}
		msg.Blocks = append(msg.Blocks, &block)
	}
	return nil
}

// VisionEncode encodes the receiver to w using the Vision protocol encoding.
func (msg *MsgBlocks) VisionEncode(w io.Writer, pver uint32) error {
	count := len(msg.Blocks)
	if count > MaxBlocksPerMsg {
		return messageError("MsgBlocks.VisionEncode",
			"too many blocks for message")
	}

	if err := WriteVarInt(w, uint64(count)); err != nil {
		return err
	}
	for _, block := range msg.Blocks {
		if err := block.Serialize(w); err != nil {
			return err
		}
	}
	return nil
}

// Command returns the protocol command string for the message.
func (msg *MsgBlocks) Command() string {
	return CmdBlocks
}

// MaxPayloadLength returns the maximum length the payload can be for the
// receiver.
func (msg *MsgBlocks) MaxPayloadLength(pver uint32) uint32 {
	return MaxMessagePayload
}

// NewMsgBlocks returns a new Vision blocks message that conforms to the
// Message interface.
func NewMsgBlocks() *MsgBlocks {
	return &MsgBlocks{
		Blocks: make([]*MsgBlock, 0),
	}
}
