// Copyright (c) 2013-2015 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package wire

import "io"

// MsgVerAck implements the Message interface and represents a Vision verack
// message which is used to acknowledge a version message. It contains no
// payload.
type MsgVerAck struct{}

// VisionDecode decodes r using the Vision protocol encoding into the
// receiver.
func (msg *MsgVerAck) VisionDecode(r io.Reader, pver uint32) error {
	return nil
}

// VisionEncode encodes the receiver to w using the Vision protocol encoding.
func (msg *MsgVerAck) VisionEncode(w io.Writer, pver uint32) error {
	return nil
}

// Command returns the protocol command string for the message.
func (msg *MsgVerAck) Command() string {
	return CmdVerAck
}

// MaxPayloadLength returns the maximum length the payload can be for the
// receiver.
func (msg *MsgVerAck) MaxPayloadLength(pver uint32) uint32 {
	return 0
}

// NewMsgVerAck returns a new Vision verack message that conforms to the
// Message interface.
func NewMsgVerAck() *MsgVerAck {
	return &MsgVerAck{}
}
