package network

import (
	"reflect"
	"testing"
)

func TestNormalizeAddress(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{in: "1.2.3.4", want: "1.2.3.4:7171"},
		{in: "1.2.3.4:8080", want: "1.2.3.4:8080"},
		{in: "node.example.com", want: "node.example.com:7171"},
		{in: "[::1]:9000", want: "[::1]:9000"},
	}
	for _, test := range tests {
		got, err := NormalizeAddress(test.in, "7171")
		if err != nil {
			t.Errorf("NormalizeAddress(%q): %v", test.in, err)
			continue
		}
		if got != test.want {
			t.Errorf("NormalizeAddress(%q) = %q, want %q", test.in, got,
				test.want)
		}
	}
}

func TestNormalizeAddressesRemovesDuplicates(t *testing.T) {
	got, err := NormalizeAddresses(
		[]string{"1.2.3.4", "1.2.3.4:7171", "5.6.7.8"}, "7171")
	if err != nil {
		t.Fatalf("NormalizeAddresses: %v", err)
	}
	want := []string{"1.2.3.4:7171", "5.6.7.8:7171"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("NormalizeAddresses = %v, want %v", got, want)
	}
}
