package pow

import (
	"encoding/binary"
	"math/bits"

	"github.com/oneepicnight/vision-node/util/chainhash"
)

// initScratch builds the per-hash scratchpad deterministically from the base
// dataset, the header message and the nonce. The fill forces one pass of
// random-looking dataset reads so every hash attempt touches memory.
func initScratch(params Params, ds *Dataset, headerMsg []byte, nonce uint64) ([]uint64, uint64) {
	words := roundPow2Words(params.ScratchSize)
	smask := words - 1

	seed := nonce ^ 0xDEADBEEFF00DFACE
	for off := 0; off < len(headerMsg); off += 8 {
		var chunk [8]byte
		copy(chunk[:], headerMsg[off:])
		v := binary.BigEndian.Uint64(chunk[:])
		seed ^= bits.RotateLeft64(v, 13)
		seed = bits.RotateLeft64(seed*0x9E3779B97F4A7C15, 7)
	}

	scratch := make([]uint64, words)
	sm := splitMix64{state: seed}
	for i := range scratch {
		mixSeed := sm.next()
		idx1 := bits.RotateLeft64(mixSeed, 17) & ds.mask
		idx2 := bits.RotateLeft64(mixSeed, -23) & ds.mask
		scratch[i] = ds.mem[idx1] ^ ds.mem[idx2] ^ mixSeed*0xC2B2AE3D27D4EB4F
	}
	return scratch, smask
}

// expand256 widens the final 128-bit state to a 256-bit digest.
func expand256(a, b uint64) chainhash.Hash {
	for i := 0; i < 4; i++ {
		a = bits.RotateLeft64(a, 13) ^ b*0x9E3779B185EBCA87
		b = bits.RotateLeft64(b, 17) ^ a*0xC2B2AE3D27D4EB4F
	}
	sm := splitMix64{state: a ^ b ^ 0xD6E8FEB86659FD93}
	c := sm.next()
	d := sm.next()

	var out chainhash.Hash
	binary.BigEndian.PutUint64(out[0:8], a)
	binary.BigEndian.PutUint64(out[8:16], b)
	binary.BigEndian.PutUint64(out[16:24], c)
	binary.BigEndian.PutUint64(out[24:32], d)
	return out
}

// Digest computes the VisionX digest of a canonical header message and
// nonce over the given epoch dataset. It is a pure function: identical
// inputs always produce an identical digest, on every platform.
//
// The nonce is a separate input — the header message is encoded with its
// nonce field zeroed, and callers must never splice the real nonce into the
// message bytes.
func Digest(params Params, ds *Dataset, headerMsg []byte, nonce uint64) chainhash.Hash {
	scratch, smask := initScratch(params, ds, headerMsg, nonce)

	// Initial 128-bit state from header+nonce.
	a := 0x243F6A8885A308D3 ^ bits.RotateLeft64(nonce, 17)
	b := 0x13198A2E03707344 ^ bits.RotateLeft64(nonce, -11)

	for off := 0; off < len(headerMsg); off += 16 {
		var chunk [16]byte
		copy(chunk[:], headerMsg[off:])
		x := binary.BigEndian.Uint64(chunk[0:8])
		y := binary.BigEndian.Uint64(chunk[8:16])
		a ^= x * 0x9E3779B185EBCA87
		b ^= y * 0xC2B2AE3D27D4EB4F
		a = bits.RotateLeft64(a, 13) ^ bits.RotateLeft64(b, -7)
		b = bits.RotateLeft64(b, 29) ^ bits.RotateLeft64(a, -19)
	}

	acc := a ^ b ^ 0xDEADBEEFF00DFACE
	writes := uint64(params.WriteEvery)

	for i := uint64(0); i < uint64(params.MixIterations); i++ {
		// First read: index from state + loop counter.
		j1 := bits.RotateLeft64(a^b^acc^i*0x9E3779B9, 17) & smask
		v1 := scratch[j1]

		// Second and third reads each depend on the previous read's
		// value, serializing the memory accesses.
		j2 := bits.RotateLeft64(v1^a^acc, 23) & smask
		v2 := scratch[j2]

		j3 := bits.RotateLeft64(v2^b^acc, 19) & smask
		v3 := scratch[j3]

		v4 := v3
		if params.ReadsPerIter >= 4 {
			j4 := bits.RotateLeft64(v3^v1^acc, 29) & smask
			v4 = scratch[j4]
		}

		mix := v1 ^ bits.RotateLeft64(v2, 13) ^ v3*0x94D049BB133111EB ^ bits.RotateLeft64(v4, -7)

		a = bits.RotateLeft64(a, 13) ^ mix*0xC2B2AE3D27D4EB4F
		b = bits.RotateLeft64(b, 17) ^ (mix^acc)*0xBF58476D1CE4E5B9
		acc = bits.RotateLeft64(acc, 7) ^ (a^b)*0xD6E8FEB86659FD93

		// Deterministic write-back at an unpredictable index.
		if writes > 0 && i%writes == 0 {
			jw := bits.RotateLeft64(mix^a^bits.RotateLeft64(b, 11)^i*0xA24BAED4963EE407, 31) & smask
			scratch[jw] = bits.RotateLeft64(scratch[jw]+(mix^0x9E3779B97F4A7C15), 41)
		}
	}

	return expand256(a^acc, b^bits.RotateLeft64(acc, 3))
}

// CheckProofOfWork recomputes the digest for a header message and nonce and
// verifies it against both the claimed digest and the target. The parameter
// limits are enforced first so a hostile parameter set can't be used to
// exhaust a validator.
func CheckProofOfWork(params Params, epochSeed *chainhash.Hash, epoch uint64,
	headerMsg []byte, nonce uint64, claimed *chainhash.Hash, target *chainhash.Hash) error {

	if err := params.checkLimits(); err != nil {
		return err
	}

	ds := LookupDataset(params, epochSeed, epoch)
	digest := Digest(params, ds, headerMsg, nonce)

	if !digest.IsEqual(claimed) {
		return ErrDigestMismatch{Computed: digest, Claimed: *claimed}
	}
	if !DigestMeetsTarget(&digest, target) {
		return ErrDigestAboveTarget{Digest: digest, Target: *target}
	}
	return nil
}
