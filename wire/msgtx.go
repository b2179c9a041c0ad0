// Copyright (c) 2013-2016 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package wire

import (
	"bytes"
	"io"

	"golang.org/x/crypto/blake2b"

	"github.com/oneepicnight/vision-node/util/chainhash"
)

const (
	// TxVersion is the current latest supported transaction version.
	TxVersion uint32 = 1

	// maxTxPubKeyLen is the maximum length of a sender public key.
	maxTxPubKeyLen = 128

	// maxTxMethodLen is the maximum length of a module method name.
	maxTxMethodLen = 256

	// maxTxPayloadLen is the maximum length of encoded call arguments.
	maxTxPayloadLen = 1024 * 128

	// maxTxSignatureLen is the maximum length of a signature.
	maxTxSignatureLen = 128

	// maxTxPerBlock is the maximum number of transactions that can
	// possibly fit into a block.
	maxTxPerBlock = 50000
)

// MsgTx implements the Message interface and represents a Vision
// transaction: a signed call into a state module. The first transaction of
// every block is the coinbase, which carries no sender and no signature.
type MsgTx struct {
	Version      uint32
	Nonce        uint64
	SenderPubKey []byte
	Method       string
	Payload      []byte
	Tip          uint64
	FeeLimit     uint64
	Signature    []byte
}

// TxHash generates the hash for the transaction: the blake2b-256 digest of
// its serialization.
func (msg *MsgTx) TxHash() chainhash.Hash {
	var buf bytes.Buffer
	_ = msg.Serialize(&buf)
	return chainhash.Hash(blake2b.Sum256(buf.Bytes()))
}

// IsCoinbase reports whether the transaction is a coinbase. A coinbase has
// no sender and no signature; it is only valid as the first transaction of
// a block.
func (msg *MsgTx) IsCoinbase() bool {
	return len(msg.SenderPubKey) == 0 && len(msg.Signature) == 0
}

// VisionDecode decodes r using the Vision protocol encoding into the
// receiver.
func (msg *MsgTx) VisionDecode(r io.Reader, pver uint32) error {
	return msg.Deserialize(r)
}

// VisionEncode encodes the receiver to w using the Vision protocol encoding.
func (msg *MsgTx) VisionEncode(w io.Writer, pver uint32) error {
	return msg.Serialize(w)
}

// Deserialize decodes a transaction from r using a format that is suitable
// for long-term storage such as a database.
func (msg *MsgTx) Deserialize(r io.Reader) error {
	if err := readElements(r, &msg.Version, &msg.Nonce); err != nil {
		return err
	}

	var err error
	msg.SenderPubKey, err = ReadVarBytes(r, maxTxPubKeyLen, "sender public key")
	if err != nil {
		return err
	}
	msg.Method, err = ReadVarString(r)
	if err != nil {
		return err
	}
	if len(msg.Method) > maxTxMethodLen {
		return messageError("MsgTx.Deserialize", "method name is too long")
	}
	msg.Payload, err = ReadVarBytes(r, maxTxPayloadLen, "payload")
	if err != nil {
		return err
	}
	if err := readElements(r, &msg.Tip, &msg.FeeLimit); err != nil {
		return err
	}
	msg.Signature, err = ReadVarBytes(r, maxTxSignatureLen, "signature")
	return err
}

// Serialize encodes the transaction to w using a format that is suitable for
// long-term storage such as a database.
func (msg *MsgTx) Serialize(w io.Writer) error {
	if err := writeElements(w, msg.Version, msg.Nonce); err != nil {
		return err
	}
	if err := WriteVarBytes(w, msg.SenderPubKey); err != nil {
		return err
	}
	if err := WriteVarString(w, msg.Method); err != nil {
		return err
	}
	if err := WriteVarBytes(w, msg.Payload); err != nil {
		return err
	}
	if err := writeElements(w, msg.Tip, msg.FeeLimit); err != nil {
		return err
	}
	return WriteVarBytes(w, msg.Signature)
}

// Command returns the protocol command string for the message.
func (msg *MsgTx) Command() string {
	return CmdTx
}

// MaxPayloadLength returns the maximum length the payload can be for the
// receiver.
func (msg *MsgTx) MaxPayloadLength(pver uint32) uint32 {
	return MaxMessagePayload
}

// NewCoinbaseTx returns a coinbase transaction for the given height. The
// height is committed in the payload so coinbases at different heights never
// share a transaction hash.
func NewCoinbaseTx(height uint64, minerTag []byte) *MsgTx {
	payload := make([]byte, 8, 8+len(minerTag))
	littleEndian.PutUint64(payload, height)
	payload = append(payload, minerTag...)
	return &MsgTx{
		Version: TxVersion,
		Method:  "coinbase",
		Payload: payload,
	}
}
