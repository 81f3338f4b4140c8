// Package crypto provides the hashing and key primitives used by the wallet.
package crypto

import (
	"github.com/Klingon-tech/klingnet-accounts/pkg/types"
	"github.com/zeebo/blake3"
)

// Hash computes a BLAKE3-256 hash of the input data.
func Hash(data []byte) types.Hash {
	return blake3.Sum256(data)
}

// HashConcat hashes the concatenation of two hashes.
func HashConcat(a, b types.Hash) types.Hash {
	var buf [2 * types.HashSize]byte
	copy(buf[:types.HashSize], a[:])
	copy(buf[types.HashSize:], b[:])
	return Hash(buf[:])
}

// AddressFromPubKey derives an address from a serialized public key.
// Address = BLAKE3(pubkey)[:20]. The serialization (compressed or not)
// is part of the key's identity, so the same point in two formats yields
// two different addresses.
func AddressFromPubKey(pubKey []byte) types.Address {
	return truncate(Hash(pubKey))
}

// AddressFromScript derives a pay-to-script-hash address from a redeem script.
func AddressFromScript(script []byte) types.Address {
	return truncate(Hash(script))
}

func truncate(h types.Hash) types.Address {
	var addr types.Address
	copy(addr[:], h[:types.AddressSize])
	return addr
}
