// Copyright (c) 2013-2016 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package wire

import (
	"bytes"
	"testing"

	"golang.org/x/crypto/blake2b"

	"github.com/oneepicnight/vision-node/util/chainhash"
)

func TestTxRootEmpty(t *testing.T) {
	block := &MsgBlock{}
	if root := block.TxRoot(); !root.IsZero() {
		t.Fatalf("empty block tx root = %s, want all zeroes", root)
	}
}

func TestTxRootSingle(t *testing.T) {
	block := &MsgBlock{}
	block.AddTransaction(NewCoinbaseTx(1, nil))

	want := block.Transactions[0].TxHash()
	if root := block.TxRoot(); !root.IsEqual(&want) {
		t.Fatalf("single tx root = %s, want the tx hash %s", root, want)
	}
}

func TestTxRootPairing(t *testing.T) {
	block := &MsgBlock{}
	block.AddTransaction(NewCoinbaseTx(1, nil))
	block.AddTransaction(&MsgTx{Version: TxVersion, Nonce: 1, Method: "a"})
	block.AddTransaction(&MsgTx{Version: TxVersion, Nonce: 2, Method: "b"})

	hashes := block.TxHashes()
	var pair [2 * chainhash.HashSize]byte
	copy(pair[:chainhash.HashSize], hashes[0][:])
	copy(pair[chainhash.HashSize:], hashes[1][:])
	left := chainhash.Hash(blake2b.Sum256(pair[:]))

	// The odd tail node is promoted unchanged, then paired with the
	// combined left node on the next level.
	copy(pair[:chainhash.HashSize], left[:])
	copy(pair[chainhash.HashSize:], hashes[2][:])
	want := chainhash.Hash(blake2b.Sum256(pair[:]))

	if root := block.TxRoot(); !root.IsEqual(&want) {
		t.Fatalf("three tx root = %s, want %s", root, want)
	}
}

func TestTxRootCommitsToOrder(t *testing.T) {
	a := &MsgTx{Version: TxVersion, Nonce: 1, Method: "a"}
	b := &MsgTx{Version: TxVersion, Nonce: 2, Method: "b"}

	fwd := &MsgBlock{Transactions: []*MsgTx{a, b}}
	rev := &MsgBlock{Transactions: []*MsgTx{b, a}}
	fwdRoot := fwd.TxRoot()
	revRoot := rev.TxRoot()
	if fwdRoot.IsEqual(&revRoot) {
		t.Fatal("tx root does not commit to transaction order")
	}
}

func TestBlockSerializeRoundtrip(t *testing.T) {
	block := &MsgBlock{Header: *testHeader()}
	block.AddTransaction(NewCoinbaseTx(42, []byte("tag")))
	block.Header.TxRoot = block.TxRoot()

	var buf bytes.Buffer
	if err := block.Serialize(&buf); err != nil {
		t.Fatalf("Serialize: %v", err)
	}
	var decoded MsgBlock
	if err := decoded.Deserialize(&buf); err != nil {
		t.Fatalf("Deserialize: %v", err)
	}
	if decoded.Header != block.Header {
		t.Fatal("block header changed across serialization")
	}
	if len(decoded.Transactions) != 1 {
		t.Fatalf("decoded %d transactions, want 1", len(decoded.Transactions))
	}
	wantHash := block.Transactions[0].TxHash()
	gotHash := decoded.Transactions[0].TxHash()
	if !gotHash.IsEqual(&wantHash) {
		t.Fatal("decoded transaction hash differs")
	}
}
