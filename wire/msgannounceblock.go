// Copyright (c) 2013-2016 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package wire

import (
	"io"

	"github.com/oneepicnight/vision-node/util/chainhash"
)

// MsgAnnounceBlock implements the Message interface and represents a Vision
// block announcement. A node broadcasts one after accepting a new tip so
// peers can decide whether they need to sync.
type MsgAnnounceBlock struct {
	Hash   chainhash.Hash
	Height uint64
}

// VisionDecode decodes r using the Vision protocol encoding into the
// receiver.
func (msg *MsgAnnounceBlock) VisionDecode(r io.Reader, pver uint32) error {
	return readElements(r, &msg.Hash, &msg.Height)
}

// VisionEncode encodes the receiver to w using the Vision protocol encoding.
func (msg *MsgAnnounceBlock) VisionEncode(w io.Writer, pver uint32) error {
	return writeElements(w, &msg.Hash, msg.Height)
}

// Command returns the protocol command string for the message.
func (msg *MsgAnnounceBlock) Command() string {
	return CmdAnnounceBlock
}

// MaxPayloadLength returns the maximum length the payload can be for the
// receiver.
func (msg *MsgAnnounceBlock) MaxPayloadLength(pver uint32) uint32 {
	return chainhash.HashSize + 8
}

// NewMsgAnnounceBlock returns a new Vision announce message that conforms
// to the Message interface.
func NewMsgAnnounceBlock(hash *chainhash.Hash, height uint64) *MsgAnnounceBlock {
	return &MsgAnnounceBlock{Hash: *hash, Height: height}
}
