// Copyright (c) 2013-2016 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package wire

import (
	"bytes"
	"encoding/binary"
	"testing"

	"github.com/davecgh/go-spew/spew"

	"github.com/oneepicnight/vision-node/util/chainhash"
)

// testHeader returns a fully populated header for serialization tests.
func testHeader() *BlockHeader {
	parent := chainhash.Hash{0x01, 0x02, 0x03, 0x04}
	txRoot := chainhash.Hash{0xAA, 0xBB}
	header := NewBlockHeader(1, 42, &parent, 1700000000, 5000, &txRoot)
	header.Nonce = 0x1122334455667788
	header.PowDigest = chainhash.Hash{0xDE, 0xAD, 0xBE, 0xEF}
	return header
}

func TestBlockHeaderSerialize(t *testing.T) {
	header := testHeader()

	var buf bytes.Buffer
	if err := header.Serialize(&buf); err != nil {
		t.Fatalf("Serialize: %v", err)
	}
	if buf.Len() != blockHeaderLen {
		t.Fatalf("serialized header is %d bytes, want %d", buf.Len(),
			blockHeaderLen)
	}
	if header.SerializeSize() != blockHeaderLen {
		t.Fatalf("SerializeSize = %d, want %d", header.SerializeSize(),
			blockHeaderLen)
	}

	var decoded BlockHeader
	if err := decoded.Deserialize(&buf); err != nil {
		t.Fatalf("Deserialize: %v", err)
	}
	if decoded != *header {
		t.Fatalf("header roundtrip mismatch:\ngot %s\nwant %s",
			spew.Sdump(decoded), spew.Sdump(*header))
	}
}

// TestPowMessage pins the canonical proof-of-work message layout. A change
// that alters any byte here forks every existing network.
func TestPowMessage(t *testing.T) {
	header := testHeader()
	msg := header.PowMessage()

	if len(msg) != PowMessageLen {
		t.Fatalf("pow message is %d bytes, want %d", len(msg), PowMessageLen)
	}
	if !bytes.Equal(msg[0:4], []byte("VPOW")) {
		t.Fatalf("pow message magic = %x, want \"VPOW\"", msg[0:4])
	}
	if got := binary.LittleEndian.Uint32(msg[4:8]); got != 1 {
		t.Fatalf("pow message version = %d, want 1", got)
	}
	if !bytes.Equal(msg[8:40], header.ParentHash[:]) {
		t.Fatal("pow message parent digest bytes are wrong")
	}
	if got := binary.LittleEndian.Uint64(msg[40:48]); got != header.Height {
		t.Fatalf("pow message height = %d, want %d", got, header.Height)
	}
	if got := binary.LittleEndian.Uint64(msg[48:56]); got != uint64(header.Timestamp) {
		t.Fatalf("pow message timestamp = %d, want %d", got, header.Timestamp)
	}
	if got := binary.LittleEndian.Uint64(msg[56:64]); got != header.Difficulty {
		t.Fatalf("pow message difficulty = %d, want %d", got, header.Difficulty)
	}

	// The nonce slot must be zero no matter what nonce the header carries.
	if !bytes.Equal(msg[64:72], make([]byte, 8)) {
		t.Fatalf("pow message nonce slot = %x, want zeros", msg[64:72])
	}
	if !bytes.Equal(msg[72:104], header.TxRoot[:]) {
		t.Fatal("pow message tx root bytes are wrong")
	}

	// Two headers differing only in their nonce share a pow message.
	other := *header
	other.Nonce = 999
	if !bytes.Equal(msg, other.PowMessage()) {
		t.Fatal("nonce leaked into the pow message")
	}
}

func TestBlockHashIsClaimedDigest(t *testing.T) {
	header := testHeader()
	hash := header.BlockHash()
	if !hash.IsEqual(&header.PowDigest) {
		t.Fatalf("BlockHash = %s, want claimed digest %s", hash,
			header.PowDigest)
	}
}
