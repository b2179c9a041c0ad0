// Copyright (c) 2013-2017 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package pow

import (
	"bytes"
	"testing"

	"github.com/oneepicnight/vision-node/util/chainhash"
)

// testHeaderMsg returns a fixed 104 byte pseudo header message.
func testHeaderMsg(fill byte) []byte {
	msg := make([]byte, 104)
	for i := range msg {
		msg[i] = fill ^ byte(i)
	}
	return msg
}

func TestDigestDeterminism(t *testing.T) {
	params := LiteParams()
	genesis := chainhash.Hash{0x01, 0x02, 0x03}
	seed := EpochSeed(0x56495353, &genesis, 0)
	ds := LookupDataset(params, &seed, 0)

	msg := testHeaderMsg(0xAA)
	d1 := Digest(params, ds, msg, 7)
	d2 := Digest(params, ds, msg, 7)
	if !d1.IsEqual(&d2) {
		t.Fatalf("identical inputs produced different digests: %s vs %s", d1, d2)
	}

	d3 := Digest(params, ds, msg, 8)
	if d1.IsEqual(&d3) {
		t.Fatal("different nonces produced the same digest")
	}

	d4 := Digest(params, ds, testHeaderMsg(0xAB), 7)
	if d1.IsEqual(&d4) {
		t.Fatal("different header messages produced the same digest")
	}
}

func TestEpochSeedIndependence(t *testing.T) {
	genesis := chainhash.Hash{0x42}
	base := EpochSeed(1, &genesis, 0)

	if again := EpochSeed(1, &genesis, 0); !base.IsEqual(&again) {
		t.Fatal("epoch seed is not deterministic")
	}
	if other := EpochSeed(1, &genesis, 1); base.IsEqual(&other) {
		t.Fatal("different epochs produced the same seed")
	}
	if other := EpochSeed(2, &genesis, 0); base.IsEqual(&other) {
		t.Fatal("different chain ids produced the same seed")
	}
	otherGenesis := chainhash.Hash{0x43}
	if other := EpochSeed(1, &otherGenesis, 0); base.IsEqual(&other) {
		t.Fatal("different genesis digests produced the same seed")
	}
}

func TestLookupDatasetCache(t *testing.T) {
	params := LiteParams()
	seed := chainhash.Hash{0x11}
	ds1 := LookupDataset(params, &seed, 5)
	ds2 := LookupDataset(params, &seed, 5)
	if ds1 != ds2 {
		t.Fatal("repeated lookup of the same epoch rebuilt the dataset")
	}
}

func TestCheckProofOfWork(t *testing.T) {
	params := LiteParams()
	genesis := chainhash.Hash{0x99}
	seed := EpochSeed(3, &genesis, 0)
	ds := LookupDataset(params, &seed, 0)

	msg := testHeaderMsg(0x55)
	const nonce = 1234
	digest := Digest(params, ds, msg, nonce)

	// Easiest possible target accepts any digest.
	easyTarget := TargetFromDifficulty(1)
	err := CheckProofOfWork(params, &seed, 0, msg, nonce, &digest, &easyTarget)
	if err != nil {
		t.Fatalf("valid proof of work rejected: %v", err)
	}

	// A claimed digest that differs from the recomputed one must be
	// reported as a mismatch, not as weak work.
	forged := digest
	forged[0] ^= 0x01
	err = CheckProofOfWork(params, &seed, 0, msg, nonce, &forged, &easyTarget)
	mismatch, ok := err.(ErrDigestMismatch)
	if !ok {
		t.Fatalf("forged digest error = %v, want ErrDigestMismatch", err)
	}
	if !mismatch.Computed.IsEqual(&digest) || !mismatch.Claimed.IsEqual(&forged) {
		t.Fatalf("mismatch error carries wrong digests: %v", mismatch)
	}

	// A target just below the digest makes the same digest too weak.
	below := justBelow(digest)
	err = CheckProofOfWork(params, &seed, 0, msg, nonce, &digest, &below)
	if _, ok := err.(ErrDigestAboveTarget); !ok {
		t.Fatalf("weak digest error = %v, want ErrDigestAboveTarget", err)
	}
}

func TestCheckProofOfWorkRefusesOversizedParams(t *testing.T) {
	params := LiteParams()
	params.DatasetSize = maxDatasetSize * 2

	seed := chainhash.Hash{0x01}
	digest := chainhash.Hash{0x02}
	target := TargetFromDifficulty(1)
	err := CheckProofOfWork(params, &seed, 0, testHeaderMsg(0), 0, &digest, &target)
	if err == nil {
		t.Fatal("oversized dataset params accepted")
	}
	switch err.(type) {
	case ErrDigestMismatch, ErrDigestAboveTarget:
		t.Fatalf("limit violation misreported as %T", err)
	}
}

// justBelow returns the hash one less than h as a big-endian integer.
func justBelow(h chainhash.Hash) chainhash.Hash {
	out := h
	for i := len(out) - 1; i >= 0; i-- {
		if out[i] > 0 {
			out[i]--
			break
		}
		out[i] = 0xff
	}
	return out
}

func TestTargetFromDifficulty(t *testing.T) {
	one := TargetFromDifficulty(1)
	for _, b := range one {
		if b != 0xff {
			t.Fatalf("difficulty 1 target is not the maximum: %s", one)
		}
	}

	zero := TargetFromDifficulty(0)
	if !zero.IsZero() {
		t.Fatalf("difficulty 0 target is not zero: %s", zero)
	}

	two := TargetFromDifficulty(2)
	if bytes.Compare(two[:], one[:]) >= 0 {
		t.Fatal("higher difficulty did not shrink the target")
	}
	if !DigestMeetsTarget(&two, &one) {
		t.Fatal("smaller digest does not meet larger target")
	}
	if DigestMeetsTarget(&one, &two) {
		t.Fatal("larger digest meets smaller target")
	}
}

func TestWorkFromDifficulty(t *testing.T) {
	if WorkFromDifficulty(10).Cmp(WorkFromDifficulty(9)) <= 0 {
		t.Fatal("work is not monotonic in difficulty")
	}
}

func TestEpoch(t *testing.T) {
	params := LiteParams()
	tests := []struct {
		height uint64
		epoch  uint64
	}{
		{0, 0},
		{31, 0},
		{32, 1},
		{63, 1},
		{64, 2},
	}
	for _, test := range tests {
		if got := params.Epoch(test.height); got != test.epoch {
			t.Errorf("Epoch(%d) = %d, want %d", test.height, got, test.epoch)
		}
	}
}
