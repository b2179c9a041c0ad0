// Copyright (c) 2013-2016 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package wire

import (
	"io"

	"golang.org/x/crypto/blake2b"

	"github.com/oneepicnight/vision-node/util/chainhash"
)

// MsgBlock implements the Message interface and represents a Vision block
// message. It carries a header and the block's transactions, the coinbase
// first.
type MsgBlock struct {
	Header       BlockHeader
	Transactions []*MsgTx
}

// AddTransaction adds a transaction to the message.
func (msg *MsgBlock) AddTransaction(tx *MsgTx) {
	msg.Transactions = append(msg.Transactions, tx)
}

// ClearTransactions removes all transactions from the message.
func (msg *MsgBlock) ClearTransactions() {
	msg.Transactions = make([]*MsgTx, 0)
}

// BlockHash returns the identity hash of the block, which is the header's
// claimed pow digest.
func (msg *MsgBlock) BlockHash() chainhash.Hash {
	return msg.Header.BlockHash()
}

// TxHashes returns a slice of hashes of all of transactions in this block.
func (msg *MsgBlock) TxHashes() []chainhash.Hash {
	hashes := make([]chainhash.Hash, 0, len(msg.Transactions))
	for _, tx := range msg.Transactions {
		hashes = append(hashes, tx.TxHash())
	}
	return hashes
}

// TxRoot computes the merkle root over the block's transaction hashes. An
// empty transaction list has an all-zero root, matching the genesis block.
// Odd levels promote the last node unchanged rather than pairing it with
// itself.
func (msg *MsgBlock) TxRoot() chainhash.Hash {
	hashes := msg.TxHashes()
	if len(hashes) == 0 {
		return chainhash.Hash{}
	}
	for len(hashes) > 1 {
		next := make([]chainhash.Hash, 0, (len(hashes)+1)/2)
		for i := 0; i+1 < len(hashes); i += 2 {
			var pair [2 * chainhash.HashSize]byte
			copy(pair[:chainhash.HashSize], hashes[i][:])
			copy(pair[chainhash.HashSize:], hashes[i+1][:])
			next = append(next, chainhash.Hash(blake2b.Sum256(pair[:])))
		}
		if len(hashes)%2 == 1 {
			next = append(next, hashes[len(hashes)-1])
		}
		hashes = next
	}
	return hashes[0]
}

// VisionDecode decodes r using the Vision protocol encoding into the
// receiver.
func (msg *MsgBlock) VisionDecode(r io.Reader, pver uint32) error {
	return msg.Deserialize(r)
}

// VisionEncode encodes the receiver to w using the Vision protocol encoding.
func (msg *MsgBlock) VisionEncode(w io.Writer, pver uint32) error {
	return msg.Serialize(w)
}

// Deserialize decodes a block from r using a format that is suitable for
// long-term storage such as a database.
func (msg *MsgBlock) Deserialize(r io.Reader) error {
	if err := msg.Header.Deserialize(r); err != nil {
		return err
	}

	txCount, err := ReadVarInt(r)
	if err != nil {
		return err
	}
	if txCount > maxTxPerBlock {
		return messageError("MsgBlock.Deserialize",
			"too many transactions to fit into a block")
	}

	msg.Transactions = make([]*MsgTx, 0, txCount)
	for i := uint64(0); i < txCount; i++ {
		tx := MsgTx{}
		if err := tx.Deserialize(r); err != nil {
			return err
		}
		msg.Transactions = append(msg.Transactions, &tx)
	}
	return nil
}

// Serialize encodes the block to w using a format that is suitable for
// long-term storage such as a database.
func (msg *MsgBlock) Serialize(w io.Writer) error {
	if err := msg.Header.Serialize(w); err != nil {
		return err
	}
	if err := WriteVarInt(w, uint64(len(msg.Transactions))); err != nil {
		return err
	}
	for _, tx := range msg.Transactions {
		if err := tx.Serialize(w); err != nil {
			return err
		}
	}
	return nil
}

// Command returns the protocol command string for the message.
func (msg *MsgBlock) Command() string {
	return CmdBlock
}

// MaxPayloadLength returns the maximum length the payload can be for the
// receiver.
func (msg *MsgBlock) MaxPayloadLength(pver uint32) uint32 {
	return MaxMessagePayload
}

// NewMsgBlock returns a new Vision block message that conforms to the
// Message interface using the provided block header.
func NewMsgBlock(blockHeader *BlockHeader) *MsgBlock {
	return &MsgBlock{
		Header:       *blockHeader,
		Transactions: make([]*MsgTx, 0),
	}
}
