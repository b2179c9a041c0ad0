// Copyright (c) 2013-2016 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package wire

import "io"

// MsgHeaders implements the Message interface and represents a Vision
// headers message. Headers are sent in ascending height order starting
// after the fork point implied by the requesting locator.
type MsgHeaders struct {
	Headers []*BlockHeader
}

// AddBlockHeader adds a new block header to the message.
func (msg *MsgHeaders) AddBlockHeader(bh *BlockHeader) error {
	if len(msg.Headers)+1 > MaxHeadersPerMsg {
		return messageError("MsgHeaders.AddBlockHeader",
			"too many block headers for message")
	}
	msg.Headers = append(msg.Headers, bh)
	return nil
}

// VisionDecode decodes r using the Vision protocol encoding into the
// receiver.
func (msg *MsgHeaders) VisionDecode(r io.Reader, pver uint32) error {
	count, err := ReadVarInt(r)
	if err != nil {
		return err
	}
	if count > MaxHeadersPerMsg {
		return messageError("MsgHeaders.VisionDecode",
			"too many block headers for message")
	}

	headers := make([]BlockHeader, count)
	msg.Headers = make([]*BlockHeader, 0, count)
	for i := uint64(0); i < count; i++ {
		bh := &headers[i]
		if err := bh.Deserialize(r); err != nil {
			return err
		}
		msg.Headers = append(msg.Headers, bh)
	}
	return nil
}

// VisionEncode encodes the receiver to w using the Vision protocol encoding.
func (msg *MsgHeaders) VisionEncode(w io.Writer, pver uint32) error {
	count := len(msg.Headers)
	if count > MaxHeadersPerMsg {
		return messageError("MsgHeaders.VisionEncode",
			"too many block headers for message")
	}

	if err := WriteVarInt(w, uint64(count)); err != nil {
		return err
	}
	for _, bh := range msg.Headers {
		if err := bh.Serialize(w); err != nil {
			return err
		}
	}
	return nil
}

// Command returns the protocol command string for the message.
func (msg *MsgHeaders) Command() string {
	return CmdHeaders
}

// MaxPayloadLength returns the maximum length the payload can be for the
// receiver.
func (msg *MsgHeaders) MaxPayloadLength(pver uint32) uint32 {
	return MaxVarIntPayload + (MaxHeadersPerMsg * blockHeaderLen)
}

// NewMsgHeaders returns a new Vision headers message that conforms to the
// Message interface.
func NewMsgHeaders() *MsgHeaders {
	return &MsgHeaders{
		Headers: make([]*BlockHeader, 0, MaxHeadersPerMsg),
	}
}
