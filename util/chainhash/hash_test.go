package chainhash

import (
	"strings"
	"testing"
)

// canonical is the lowercase unprefixed rendition every accepted spelling
// must decode to.
const canonical = "1a2b3c4d5e6f708192a3b4c5d6e7f8091a2b3c4d5e6f708192a3b4c5d6e7f809"

func TestDecodeCanonicalization(t *testing.T) {
	mixed := strings.ToUpper(canonical[:32]) + canonical[32:]
	tests := []struct {
		name string
		in   string
	}{
		{name: "lowercase", in: canonical},
		{name: "uppercase", in: strings.ToUpper(canonical)},
		{name: "mixed case", in: mixed},
		{name: "0x prefix", in: "0x" + canonical},
		{name: "0X prefix and uppercase", in: "0X" + strings.ToUpper(canonical)},
	}

	want, err := NewHashFromStr(canonical)
	if err != nil {
		t.Fatalf("NewHashFromStr(%q): %v", canonical, err)
	}
	for _, test := range tests {
		var hash Hash
		if err := Decode(&hash, test.in); err != nil {
			t.Errorf("%s: Decode(%q): %v", test.name, test.in, err)
			continue
		}
		if !hash.IsEqual(want) {
			t.Errorf("%s: Decode(%q) = %s, want %s", test.name, test.in,
				hash, want)
		}
		if hash.String() != canonical {
			t.Errorf("%s: String() = %q, want the canonical form %q",
				test.name, hash.String(), canonical)
		}
	}
}

func TestDecodeRejectsMalformedStrings(t *testing.T) {
	tests := []struct {
		name string
		in   string
	}{
		{name: "too short", in: canonical[:63]},
		{name: "too long", in: canonical + "0"},
		{name: "empty", in: ""},
		{name: "prefix only", in: "0x"},
		{name: "non-hex digits", in: strings.Repeat("zz", 32)},
	}
	for _, test := range tests {
		var hash Hash
		if err := Decode(&hash, test.in); err == nil {
			t.Errorf("%s: Decode(%q) accepted a malformed string",
				test.name, test.in)
		}
	}
}

func TestDecodeOversizeError(t *testing.T) {
	var hash Hash
	if err := Decode(&hash, canonical+canonical); err != ErrHashStrSize {
		t.Fatalf("Decode of an oversize string = %v, want ErrHashStrSize", err)
	}
}
