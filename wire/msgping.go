// Copyright (c) 2013-2015 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package wire

import "io"

// MsgPing implements the Message interface and represents a Vision ping
// message. The remote peer must reply with a pong carrying the same nonce,
// which doubles as a cheap RTT probe for the sync window controller.
type MsgPing struct {
	// Unique value associated with message that is used to identify
	// specific ping message.
	Nonce uint64
}

// VisionDecode decodes r using the Vision protocol encoding into the
// receiver.
func (msg *MsgPing) VisionDecode(r io.Reader, pver uint32) error {
	return readElement(r, &msg.Nonce)
}

// VisionEncode encodes the receiver to w using the Vision protocol encoding.
func (msg *MsgPing) VisionEncode(w io.Writer, pver uint32) error {
	return writeElement(w, msg.Nonce)
}

// Command returns the protocol command string for the message.
func (msg *MsgPing) Command() string {
	return CmdPing
}

// MaxPayloadLength returns the maximum length the payload can be for the
// receiver.
func (msg *MsgPing) MaxPayloadLength(pver uint32) uint32 {
	return 8
}

// NewMsgPing returns a new Vision ping message that conforms to the Message
// interface.
func NewMsgPing(nonce uint64) *MsgPing {
	return &MsgPing{Nonce: nonce}
}
