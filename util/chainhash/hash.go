package chainhash

import (
	"encoding/hex"
	"strings"

	"github.com/pkg/errors"
)

// HashSize of array used to store hashes. See Hash.
const HashSize = 32

// MaxHashStringSize is the maximum length of a Hash hash string.
const MaxHashStringSize = HashSize * 2

// ErrHashStrSize describes an error that indicates the caller specified a
// hash string that has too many characters.
var ErrHashStrSize = errors.Errorf("max hash string length is %d bytes", MaxHashStringSize)

// Hash is used in several of the Vision messages and common structures. It
// typically represents the VisionX digest of a block header.
type Hash [HashSize]byte

// String returns the Hash as the canonical hexadecimal string: lowercase,
// no "0x" prefix.
func (hash Hash) String() string {
	return hex.EncodeToString(hash[:])
}

// CloneBytes returns a copy of the bytes which represent the hash.
//
// NOTE: It is generally cheaper to just slice the hash directly thereby
// reusing the same bytes rather than calling this method.
func (hash *Hash) CloneBytes() []byte {
	newHash := make([]byte, HashSize)
	copy(newHash, hash[:])
	return newHash
}

// SetBytes sets the bytes which represent the hash. An error is returned if
// the number of bytes passed in is not HashSize.
func (hash *Hash) SetBytes(newHash []byte) error {
	nhlen := len(newHash)
	if nhlen != HashSize {
		return errors.Errorf("invalid hash length of %d, want %d", nhlen, HashSize)
	}
	copy(hash[:], newHash)

	return nil
}

// IsEqual returns true if target is the same as hash.
func (hash *Hash) IsEqual(target *Hash) bool {
	if hash == nil && target == nil {
		return true
	}
	if hash == nil || target == nil {
		return false
	}
	return *hash == *target
}

// IsZero returns true if the hash is all zeroes, the conventional "no
// parent" value carried by the genesis block.
func (hash *Hash) IsZero() bool {
	return *hash == Hash{}
}

// NewHash returns a new Hash from a byte slice. An error is returned if
// the number of bytes passed in is not HashSize.
func NewHash(newHash []byte) (*Hash, error) {
	var sh Hash
	err := sh.SetBytes(newHash)
	if err != nil {
		return nil, err
	}
	return &sh, nil
}

// NewHashFromStr creates a Hash from a hash string. The string is parsed
// canonically: an optional "0x" or "0X" prefix is stripped and hex digits
// are decoded case-insensitively, so mixed-case and prefixed renditions of
// the same hash always yield the same Hash. Short strings are not padded;
// anything other than exactly 64 hex digits after normalization is an error.
func NewHashFromStr(src string) (*Hash, error) {
	hash := new(Hash)
	err := Decode(hash, src)
	if err != nil {
		return nil, err
	}
	return hash, nil
}

// Decode decodes the canonical hexadecimal encoding of a hash to a
// destination. See NewHashFromStr for the accepted forms.
func Decode(dst *Hash, src string) error {
	if strings.HasPrefix(src, "0x") || strings.HasPrefix(src, "0X") {
		src = src[2:]
	}
	if len(src) > MaxHashStringSize {
		return ErrHashStrSize
	}
	if len(src) != MaxHashStringSize {
		return errors.Errorf("hash string has length %d, want %d", len(src), MaxHashStringSize)
	}

	// encoding/hex accepts both upper and lower case digits, which is
	// exactly the canonicalization we want.
	raw, err := hex.DecodeString(src)
	if err != nil {
		return errors.Wrap(err, "invalid hash string")
	}
	copy(dst[:], raw)
	return nil
}
