// Copyright (c) 2013-2015 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package wire

import "io"

// MsgPong implements the Message interface and represents a Vision pong
// message which is used primarily to confirm that a connection is still
// valid in response to a ping message.
type MsgPong struct {
	// Unique value associated with message that is used to identify
	// specific ping message.
	Nonce uint64
}

// VisionDecode decodes r using the Vision protocol encoding into the
// receiver.
func (msg *MsgPong) VisionDecode(r io.Reader, pver uint32) error {
	return readElement(r, &msg.Nonce)
}

// VisionEncode encodes the receiver to w using the Vision protocol encoding.
func (msg *MsgPong) VisionEncode(w io.Writer, pver uint32) error {
	return writeElement(w, msg.Nonce)
}

// Command returns the protocol command string for the message.
func (msg *MsgPong) Command() string {
	return CmdPong
}

// MaxPayloadLength returns the maximum length the payload can be for the
// receiver.
func (msg *MsgPong) MaxPayloadLength(pver uint32) uint32 {
	return 8
}

// NewMsgPong returns a new Vision pong message that conforms to the Message
// interface.
func NewMsgPong(nonce uint64) *MsgPong {
	return &MsgPong{Nonce: nonce}
}
