package multisig

import (
	"errors"
	"slices"
	"testing"

	"github.com/Klingon-tech/klingnet-accounts/pkg/crypto"
	"github.com/Klingon-tech/klingnet-accounts/pkg/types"
)

func genKeys(t *testing.T, n int, compressed bool) []crypto.PublicKey {
	t.Helper()
	keys := make([]crypto.PublicKey, n)
	for i := range keys {
		priv, err := crypto.GenerateKey()
		if err != nil {
			t.Fatalf("GenerateKey: %v", err)
		}
		keys[i] = priv.PublicKey(compressed)
	}
	return keys
}

func permutations(keys []crypto.PublicKey) [][]crypto.PublicKey {
	if len(keys) <= 1 {
		return [][]crypto.PublicKey{slices.Clone(keys)}
	}
	var out [][]crypto.PublicKey
	for i := range keys {
		rest := make([]crypto.PublicKey, 0, len(keys)-1)
		rest = append(rest, keys[:i]...)
		rest = append(rest, keys[i+1:]...)
		for _, p := range permutations(rest) {
			out = append(out, append([]crypto.PublicKey{keys[i]}, p...))
		}
	}
	return out
}

func TestDerive_ForceSortPermutationInvariant(t *testing.T) {
	c := NewCanonicalizer(nil, false)
	keys := genKeys(t, 4, true)

	wantAddr, wantDesc, err := c.Derive(keys, 2, ForceSort)
	if err != nil {
		t.Fatalf("Derive: %v", err)
	}
	for i, perm := range permutations(keys) {
		addr, d, err := c.Derive(perm, 2, ForceSort)
		if err != nil {
			t.Fatalf("perm %d: Derive: %v", i, err)
		}
		if addr != wantAddr {
			t.Errorf("perm %d: address = %s, want %s", i, addr, wantAddr)
		}
		if !slices.EqualFunc(d.Keys, wantDesc.Keys, crypto.PublicKey.Equal) {
			t.Errorf("perm %d: key order differs", i)
		}
	}
}

func TestDerive_ForceSortAscending(t *testing.T) {
	c := NewCanonicalizer(nil, false)
	_, d, err := c.Derive(genKeys(t, 5, true), 3, ForceSort)
	if err != nil {
		t.Fatalf("Derive: %v", err)
	}
	if !d.Sorted {
		t.Error("Sorted = false, want true")
	}
	if !slices.IsSortedFunc(d.Keys, crypto.PublicKey.Compare) {
		t.Error("keys are not in ascending order")
	}
}

func TestDerive_ForceNoSortKeepsOrder(t *testing.T) {
	c := NewCanonicalizer(nil, true)
	keys := genKeys(t, 3, true)
	input := slices.Clone(keys)

	_, d, err := c.Derive(keys, 2, ForceNoSort)
	if err != nil {
		t.Fatalf("Derive: %v", err)
	}
	if d.Sorted {
		t.Error("Sorted = true, want false")
	}
	if !slices.EqualFunc(d.Keys, input, crypto.PublicKey.Equal) {
		t.Error("ForceNoSort changed key order")
	}
}

func TestDerive_DoesNotMutateInput(t *testing.T) {
	c := NewCanonicalizer(nil, false)
	keys := genKeys(t, 4, true)
	input := slices.Clone(keys)

	if _, _, err := c.Derive(keys, 2, ForceSort); err != nil {
		t.Fatalf("Derive: %v", err)
	}
	if !slices.EqualFunc(keys, input, crypto.PublicKey.Equal) {
		t.Error("Derive reordered the caller's slice")
	}
}

func TestDerive_DefaultResolution(t *testing.T) {
	keys := genKeys(t, 3, true)

	tests := []struct {
		name          string
		sortByDefault bool
		same          SortPolicy
	}{
		{"sorting off", false, ForceNoSort},
		{"sorting on", true, ForceSort},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := NewCanonicalizer(nil, tt.sortByDefault)
			gotAddr, gotDesc, err := c.Derive(keys, 2, SortDefault)
			if err != nil {
				t.Fatalf("Derive(SortDefault): %v", err)
			}
			wantAddr, wantDesc, err := c.Derive(keys, 2, tt.same)
			if err != nil {
				t.Fatalf("Derive(%s): %v", tt.same, err)
			}
			if gotAddr != wantAddr {
				t.Errorf("SortDefault address = %s, want %s", gotAddr, wantAddr)
			}
			if gotDesc.Sorted != wantDesc.Sorted {
				t.Errorf("SortDefault Sorted = %v, want %v", gotDesc.Sorted, wantDesc.Sorted)
			}
		})
	}
}

func TestDerive_UncompressedRejectedWhenSorting(t *testing.T) {
	c := NewCanonicalizer(nil, false)
	keys := append(genKeys(t, 2, true), genKeys(t, 1, false)...)

	// Any threshold, valid or not, still reports the key format problem.
	for _, threshold := range []int{-1, 0, 1, 2, 3, 4} {
		_, d, err := c.Derive(keys, threshold, ForceSort)
		if !errors.Is(err, ErrInvalidKeyFormat) {
			t.Errorf("threshold %d: err = %v, want ErrInvalidKeyFormat", threshold, err)
		}
		if d != nil {
			t.Errorf("threshold %d: descriptor returned on error", threshold)
		}
	}

	c = NewCanonicalizer(nil, true)
	if _, _, err := c.Derive(keys, 2, SortDefault); !errors.Is(err, ErrInvalidKeyFormat) {
		t.Errorf("SortDefault with sorting on: err = %v, want ErrInvalidKeyFormat", err)
	}

	_, _, err := c.Derive(keys, 2, ForceSort)
	var kerr *KeyError
	if !errors.As(err, &kerr) {
		t.Fatalf("err = %v, want *KeyError", err)
	}
	if kerr.Index != 2 || !kerr.Key.Equal(keys[2]) {
		t.Errorf("KeyError = key %d (%s), want key 2 (%s)", kerr.Index, kerr.Key, keys[2])
	}
}

func TestDerive_UnknownPolicy(t *testing.T) {
	keys := genKeys(t, 2, true)
	for _, sortByDefault := range []bool{false, true} {
		c := NewCanonicalizer(nil, sortByDefault)
		_, d, err := c.Derive(keys, 1, SortPolicy(9))
		if !errors.Is(err, ErrUnknownSortPolicy) {
			t.Errorf("sortByDefault=%v: err = %v, want ErrUnknownSortPolicy", sortByDefault, err)
		}
		if d != nil {
			t.Errorf("sortByDefault=%v: descriptor returned on error", sortByDefault)
		}
	}
}

func TestDerive_UncompressedAllowedWithoutSorting(t *testing.T) {
	keys := append(genKeys(t, 1, true), genKeys(t, 1, false)...)

	for _, policy := range []SortPolicy{SortDefault, ForceNoSort} {
		_, d, err := NewCanonicalizer(nil, false).Derive(keys, 2, policy)
		if err != nil {
			t.Fatalf("%s: Derive: %v", policy, err)
		}
		if d.Keys[1].Len() != crypto.UncompressedPubKeySize {
			t.Errorf("%s: uncompressed key was re-encoded", policy)
		}
	}
}

func TestDerive_Threshold(t *testing.T) {
	c := NewCanonicalizer(nil, false)
	keys := genKeys(t, 3, true)

	tests := []struct {
		threshold int
		wantErr   bool
	}{
		{-1, true},
		{0, true},
		{1, false},
		{3, false},
		{4, true},
	}
	for _, tt := range tests {
		_, _, err := c.Derive(keys, tt.threshold, ForceNoSort)
		if tt.wantErr && !errors.Is(err, ErrInvalidThreshold) {
			t.Errorf("threshold %d: err = %v, want ErrInvalidThreshold", tt.threshold, err)
		}
		if !tt.wantErr && err != nil {
			t.Errorf("threshold %d: unexpected error %v", tt.threshold, err)
		}
	}

	if _, _, err := c.Derive(nil, 1, ForceSort); !errors.Is(err, ErrInvalidThreshold) {
		t.Errorf("empty key set: err = %v, want ErrInvalidThreshold", err)
	}
}

func TestDerive_TooManyKeys(t *testing.T) {
	c := NewCanonicalizer(nil, false)
	if _, _, err := c.Derive(genKeys(t, MaxKeys, true), 1, ForceSort); err != nil {
		t.Fatalf("%d keys: unexpected error %v", MaxKeys, err)
	}
	if _, _, err := c.Derive(genKeys(t, MaxKeys+1, true), 1, ForceSort); !errors.Is(err, ErrTooManyKeys) {
		t.Errorf("%d keys: err = %v, want ErrTooManyKeys", MaxKeys+1, err)
	}
}

func TestDerive_SortChangesAddress(t *testing.T) {
	c := NewCanonicalizer(nil, false)
	keys := genKeys(t, 3, true)
	// Put the keys in descending order so sorting must reorder them.
	slices.SortFunc(keys, func(a, b crypto.PublicKey) int { return b.Compare(a) })

	unsorted, _, _ := c.Derive(keys, 2, ForceNoSort)
	sorted, _, _ := c.Derive(keys, 2, ForceSort)
	if unsorted == sorted {
		t.Error("sorting a reversed key set should change the address")
	}
}

type stubInspector map[string]bool

func (s stubInspector) IsCompressed(k crypto.PublicKey) bool { return s[k.Hex()] }

func TestDerive_UsesInspector(t *testing.T) {
	keys := genKeys(t, 2, true)
	inspector := stubInspector{keys[0].Hex(): true}

	_, _, err := NewCanonicalizer(inspector, false).Derive(keys, 1, ForceSort)
	if !errors.Is(err, ErrInvalidKeyFormat) {
		t.Errorf("err = %v, want ErrInvalidKeyFormat from the inspector", err)
	}
}

func TestDescriptor_Script(t *testing.T) {
	keys := genKeys(t, 2, true)
	d := &Descriptor{Keys: keys, Threshold: 1}

	script, err := d.Script()
	if err != nil {
		t.Fatalf("Script: %v", err)
	}
	// OP_1 <33> key <33> key OP_2 OP_CHECKMULTISIG
	if len(script) != 1+2*(1+33)+1+1 {
		t.Fatalf("script length = %d", len(script))
	}
	if script[0] != 0x51 || script[len(script)-2] != 0x52 || script[len(script)-1] != 0xae {
		t.Errorf("script framing = %x ... %x", script[0], script[len(script)-2:])
	}

	addr, err := d.Address()
	if err != nil {
		t.Fatalf("Address: %v", err)
	}
	if addr != crypto.AddressFromScript(script) {
		t.Error("Address does not hash the redeem script")
	}
	if addr == (types.Address{}) {
		t.Error("Address is zero")
	}
}

func TestParseSortPolicy(t *testing.T) {
	for _, p := range []SortPolicy{SortDefault, ForceSort, ForceNoSort} {
		got, err := ParseSortPolicy(p.String())
		if err != nil || got != p {
			t.Errorf("ParseSortPolicy(%q) = %v, %v", p.String(), got, err)
		}
	}
	if _, err := ParseSortPolicy("bogus"); err == nil {
		t.Error("ParseSortPolicy(bogus) should fail")
	}
}
