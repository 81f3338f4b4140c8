package crypto

import (
	"encoding/hex"
	"testing"

	"github.com/Klingon-tech/klingnet-accounts/pkg/types"
)

func hexToHash(t *testing.T, s string) types.Hash {
	t.Helper()
	b, err := hex.DecodeString(s)
	if err != nil {
		t.Fatalf("bad hex: %v", err)
	}
	var h types.Hash
	copy(h[:], b)
	return h
}

func TestHash(t *testing.T) {
	tests := []struct {
		name  string
		input []byte
		want  string
	}{
		{
			name:  "empty input",
			input: []byte{},
			want:  "af1349b9f5f9a1a6a0404dea36dcc9499bcb25c9adc112b7cc9a93cae41f3262",
		},
		{
			name:  "hello",
			input: []byte("hello"),
			want:  "ea8f163db38682925e4491c5e58d4bb3506ef8c14eb78a86e908c5624a67200f",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Hash(tt.input)
			want := hexToHash(t, tt.want)
			if got != want {
				t.Errorf("Hash(%q) = %x, want %x", tt.input, got, want)
			}
		})
	}
}

func TestAddressFromPubKey_IsHashPrefix(t *testing.T) {
	pub := []byte{0x02, 0x01, 0x02, 0x03}
	h := Hash(pub)
	addr := AddressFromPubKey(pub)
	for i := 0; i < types.AddressSize; i++ {
		if addr[i] != h[i] {
			t.Fatalf("address byte %d = %#x, want %#x", i, addr[i], h[i])
		}
	}
}

func TestAddressFromScript_MatchesPubKeyDerivation(t *testing.T) {
	// Both derivations are the same truncated hash; the distinction is
	// only in what gets hashed.
	data := []byte("redeem script")
	if AddressFromScript(data) != AddressFromPubKey(data) {
		t.Error("script and pubkey derivation should agree on identical input")
	}
	if AddressFromScript(data) == AddressFromScript([]byte("other script")) {
		t.Error("different scripts produced the same address")
	}
}
