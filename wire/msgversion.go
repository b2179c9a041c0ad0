// Copyright (c) 2013-2016 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package wire

import (
	"io"

	"github.com/oneepicnight/vision-node/util/chainhash"
)

// MaxUserAgentLen is the maximum allowed length for the user agent field in
// a version message.
const MaxUserAgentLen = 256

// maxPeerIDLen bounds the self-assigned peer identifier.
const maxPeerIDLen = 64

// MsgVersion implements the Message interface and represents a Vision
// version message. It is the first message a peer sends after connecting
// and carries everything the remote side needs to decide whether the two
// nodes are on the same network: protocol version, chain id, genesis hash,
// and current tip height. Either side disconnects on any identity mismatch.
type MsgVersion struct {
	// ProtocolVersion is the p2p protocol version the sender speaks.
	ProtocolVersion uint32

	// ChainID is the numeric network identity.
	ChainID uint64

	// GenesisHash anchors the chain identity. Two nodes with the same
	// ChainID but different genesis blocks must never sync.
	GenesisHash chainhash.Hash

	// Height is the sender's current tip height.
	Height uint64

	// Timestamp is the sender's clock in unix seconds.
	Timestamp int64

	// PeerID is the sender's self-assigned identifier, used for log
	// correlation and self-connection detection.
	PeerID string

	// UserAgent identifies the node software and version.
	UserAgent string
}

// VisionDecode decodes r using the Vision protocol encoding into the
// receiver.
func (msg *MsgVersion) VisionDecode(r io.Reader, pver uint32) error {
	err := readElements(r, &msg.ProtocolVersion, &msg.ChainID,
		&msg.GenesisHash, &msg.Height, &msg.Timestamp)
	if err != nil {
		return err
	}

	msg.PeerID, err = ReadVarString(r)
	if err != nil {
		return err
	}
	if len(msg.PeerID) > maxPeerIDLen {
		return messageError("MsgVersion.VisionDecode",
			"peer id is too long")
	}

	msg.UserAgent, err = ReadVarString(r)
	if err != nil {
		return err
	}
	if len(msg.UserAgent) > MaxUserAgentLen {
		return messageError("MsgVersion.VisionDecode",
			"user agent is too long")
	}
	return nil
}

// VisionEncode encodes the receiver to w using the Vision protocol encoding.
func (msg *MsgVersion) VisionEncode(w io.Writer, pver uint32) error {
	err := writeElements(w, msg.ProtocolVersion, msg.ChainID,
		&msg.GenesisHash, msg.Height, msg.Timestamp)
	if err != nil {
		return err
	}
	if err := WriteVarString(w, msg.PeerID); err != nil {
		return err
	}
	return WriteVarString(w, msg.UserAgent)
}

// Command returns the protocol command string for the message.
func (msg *MsgVersion) Command() string {
	return CmdVersion
}

// MaxPayloadLength returns the maximum length the payload can be for the
// receiver.
func (msg *MsgVersion) MaxPayloadLength(pver uint32) uint32 {
	// Fixed fields + varint-prefixed peer id and user agent.
	return 4 + 8 + chainhash.HashSize + 8 + 8 +
		MaxVarIntPayload + maxPeerIDLen +
		MaxVarIntPayload + MaxUserAgentLen
}

// NewMsgVersion returns a new Vision version message that conforms to the
// Message interface.
func NewMsgVersion(protocolVersion uint32, chainID uint64,
	genesisHash *chainhash.Hash, height uint64, timestamp int64,
	peerID string, userAgent string) *MsgVersion {

	return &MsgVersion{
		ProtocolVersion: protocolVersion,
		ChainID:         chainID,
		GenesisHash:     *genesisHash,
		Height:          height,
		Timestamp:       timestamp,
		PeerID:          peerID,
		UserAgent:       userAgent,
	}
}
