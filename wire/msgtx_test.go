// Copyright (c) 2013-2016 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package wire

import (
	"bytes"
	"encoding/binary"
	"reflect"
	"testing"

	"github.com/davecgh/go-spew/spew"
)

func TestTxSerializeRoundtrip(t *testing.T) {
	tx := &MsgTx{
		Version:      TxVersion,
		Nonce:        9,
		SenderPubKey: []byte{0x02, 0xAB, 0xCD},
		Method:       "ledger.transfer",
		Payload:      []byte(`{"to":"v1q...","amount":10}`),
		Tip:          5,
		FeeLimit:     1000,
		Signature:    bytes.Repeat([]byte{0x30}, 64),
	}

	var buf bytes.Buffer
	if err := tx.Serialize(&buf); err != nil {
		t.Fatalf("Serialize: %v", err)
	}
	var decoded MsgTx
	if err := decoded.Deserialize(&buf); err != nil {
		t.Fatalf("Deserialize: %v", err)
	}
	if !reflect.DeepEqual(&decoded, tx) {
		t.Fatalf("tx roundtrip mismatch:\ngot %s\nwant %s",
			spew.Sdump(decoded), spew.Sdump(tx))
	}
}

func TestTxHashStability(t *testing.T) {
	tx := NewCoinbaseTx(7, []byte("miner"))
	h1 := tx.TxHash()
	h2 := tx.TxHash()
	if !h1.IsEqual(&h2) {
		t.Fatal("hashing the same transaction twice gave different hashes")
	}

	other := NewCoinbaseTx(8, []byte("miner"))
	otherHash := other.TxHash()
	if h1.IsEqual(&otherHash) {
		t.Fatal("coinbases at different heights share a hash")
	}
}

func TestIsCoinbase(t *testing.T) {
	coinbase := NewCoinbaseTx(1, nil)
	if !coinbase.IsCoinbase() {
		t.Fatal("NewCoinbaseTx result not recognized as coinbase")
	}

	signed := &MsgTx{
		Version:      TxVersion,
		SenderPubKey: []byte{0x02},
		Method:       "ledger.transfer",
		Signature:    []byte{0x30},
	}
	if signed.IsCoinbase() {
		t.Fatal("signed transaction recognized as coinbase")
	}
}

func TestNewCoinbaseTxPayload(t *testing.T) {
	const height = 0x0102030405060708
	tag := []byte("rig-7")
	tx := NewCoinbaseTx(height, tag)

	if len(tx.Payload) != 8+len(tag) {
		t.Fatalf("coinbase payload is %d bytes, want %d", len(tx.Payload),
			8+len(tag))
	}
	if got := binary.LittleEndian.Uint64(tx.Payload[:8]); got != height {
		t.Fatalf("coinbase payload height = %d, want %d", got, uint64(height))
	}
	if !bytes.Equal(tx.Payload[8:], tag) {
		t.Fatalf("coinbase payload tag = %q, want %q", tx.Payload[8:], tag)
	}
	if tx.Method != "coinbase" {
		t.Fatalf("coinbase method = %q, want %q", tx.Method, "coinbase")
	}
}

func TestTxDeserializeLimits(t *testing.T) {
	tx := &MsgTx{
		Version:      TxVersion,
		SenderPubKey: bytes.Repeat([]byte{0x01}, maxTxPubKeyLen+1),
	}
	var buf bytes.Buffer
	if err := tx.Serialize(&buf); err != nil {
		t.Fatalf("Serialize: %v", err)
	}
	var decoded MsgTx
	if err := decoded.Deserialize(&buf); err == nil {
		t.Fatal("oversized sender public key accepted")
	}
}
