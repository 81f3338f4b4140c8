package multisig

import (
	"errors"
	"testing"

	"github.com/Klingon-tech/klingnet-accounts/pkg/crypto"
	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/chaincfg"
)

// Regression-network vectors cross-checked against Bitcoin Core.

var regtest = &chaincfg.RegressionNetParams

// legacyKeyring maps P2PKH addresses to the public keys behind them.
func legacyKeyring(t *testing.T, keys []crypto.PublicKey) map[string]crypto.PublicKey {
	t.Helper()
	ring := make(map[string]crypto.PublicKey, len(keys))
	for _, k := range keys {
		addr, err := btcutil.NewAddressPubKeyHash(btcutil.Hash160(k.Bytes()), regtest)
		if err != nil {
			t.Fatalf("NewAddressPubKeyHash: %v", err)
		}
		ring[addr.EncodeAddress()] = k
	}
	return ring
}

func lookup(t *testing.T, ring map[string]crypto.PublicKey, addrs []string) []crypto.PublicKey {
	t.Helper()
	keys := make([]crypto.PublicKey, len(addrs))
	for i, a := range addrs {
		k, ok := ring[a]
		if !ok {
			t.Fatalf("no key for %s", a)
		}
		keys[i] = k
	}
	return keys
}

func TestLegacy_SortedMultisig(t *testing.T) {
	wifs := []string{
		"cSJUMwramrFYHKPfY77FH94bv4Q5rwUCyfD6zX3kLro4ZcWsXFEM",
		"cSpQbSsdKRmxaSWJ3TckCFTrksXNPbh8tfeZESGNQekkVxMbQ77H",
		"cRNbfcJgnvk2QJEVbMsxzoprotm1cy3kVA2HoyjSs3ss5NY5mQqr",
	}
	var pubs []crypto.PublicKey
	for _, w := range wifs {
		wif, err := btcutil.DecodeWIF(w)
		if err != nil {
			t.Fatalf("DecodeWIF(%s): %v", w, err)
		}
		pubs = append(pubs, crypto.NewPublicKey(wif.SerializePubKey()))
	}
	keys := lookup(t, legacyKeyring(t, pubs), []string{
		"muRmfCwue81ZT9oc3NaepefPscUHtP5kyC",
		"n12RzKwqWPPA4cWGzkiebiM7Gu6NXUnDW8",
		"n2yWMtx8jVbo8wv9BK2eN1LdbaakgKL3Mt",
	})

	c := NewCanonicalizer(nil, false)
	tests := []struct {
		policy SortPolicy
		want   string
	}{
		{SortDefault, "2N6dne8yzh13wsRJxCcMgCYNeN9fxKWNHt8"},
		{ForceNoSort, "2N6dne8yzh13wsRJxCcMgCYNeN9fxKWNHt8"},
		{ForceSort, "2MsJ2YhGewgDPGEQk4vahGs4wRikJXpRRtU"},
	}
	for _, tt := range tests {
		_, d, err := c.Derive(keys, 2, tt.policy)
		if err != nil {
			t.Fatalf("%s: Derive: %v", tt.policy, err)
		}
		got, err := d.LegacyAddress(regtest)
		if err != nil {
			t.Fatalf("%s: LegacyAddress: %v", tt.policy, err)
		}
		if got != tt.want {
			t.Errorf("%s: address = %s, want %s", tt.policy, got, tt.want)
		}
	}
}

func TestLegacy_UncompressedKey(t *testing.T) {
	var pubs []crypto.PublicKey
	for _, h := range []string{
		"02632b12f4ac5b1d1b72b2a3b508c19172de44f6f46bcee50ba33f3f9291e47ed0",
		"04dd4fe618a8ad14732f8172fe7c9c5e76dd18c2cc501ef7f86e0f4e285ca8b8b32d93df2f4323ebb02640fa6b975b2e63ab3c9d6979bc291193841332442cc6ad",
	} {
		k, err := crypto.ParsePublicKeyHex(h)
		if err != nil {
			t.Fatalf("ParsePublicKeyHex: %v", err)
		}
		pubs = append(pubs, k)
	}
	keys := lookup(t, legacyKeyring(t, pubs), []string{
		"msDoRfEfZQFaQNfAEWyqf69H99yntZoBbG",
		"myrfasv56W7579LpepuRy7KFhVhaWsJYS8",
	})

	c := NewCanonicalizer(nil, false)
	for _, policy := range []SortPolicy{SortDefault, ForceNoSort} {
		_, d, err := c.Derive(keys, 2, policy)
		if err != nil {
			t.Fatalf("%s: Derive: %v", policy, err)
		}
		got, _ := d.LegacyAddress(regtest)
		if got != "2MxvEpFdXeEDbnz8MbRwS23kDZC8tzQ9NjK" {
			t.Errorf("%s: address = %s, want 2MxvEpFdXeEDbnz8MbRwS23kDZC8tzQ9NjK", policy, got)
		}
	}

	_, _, err := c.Derive(keys, 2, ForceSort)
	if !errors.Is(err, ErrInvalidKeyFormat) {
		t.Errorf("ForceSort: err = %v, want ErrInvalidKeyFormat", err)
	}
}
