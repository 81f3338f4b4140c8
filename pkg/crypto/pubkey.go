package crypto

import (
	"bytes"
	"encoding/hex"
	"fmt"

	"github.com/Klingon-tech/klingnet-accounts/pkg/types"
	"github.com/decred/dcrd/dcrec/secp256k1/v4"
)

// Serialized public key lengths.
const (
	CompressedPubKeySize   = 33
	UncompressedPubKeySize = 65
)

// PublicKey is an immutable serialized secp256k1 public key. The original
// serialization is preserved as given; no re-encoding ever happens.
type PublicKey struct {
	data string
}

// NewPublicKey wraps raw key bytes without validating them.
func NewPublicKey(b []byte) PublicKey {
	return PublicKey{data: string(b)}
}

// ParsePublicKey validates that b is a point on the curve and returns it
// in its original serialization.
func ParsePublicKey(b []byte) (PublicKey, error) {
	if _, err := secp256k1.ParsePubKey(b); err != nil {
		return PublicKey{}, fmt.Errorf("invalid public key: %w", err)
	}
	return NewPublicKey(b), nil
}

// ParsePublicKeyHex decodes and validates a hex-encoded public key.
func ParsePublicKeyHex(s string) (PublicKey, error) {
	b, err := hex.DecodeString(s)
	if err != nil {
		return PublicKey{}, fmt.Errorf("invalid public key hex: %w", err)
	}
	return ParsePublicKey(b)
}

// Bytes returns a copy of the serialized key.
func (k PublicKey) Bytes() []byte {
	return []byte(k.data)
}

// Hex returns the hex-encoded serialized key.
func (k PublicKey) Hex() string {
	return hex.EncodeToString([]byte(k.data))
}

// String implements fmt.Stringer.
func (k PublicKey) String() string {
	return k.Hex()
}

// Len returns the serialized length.
func (k PublicKey) Len() int {
	return len(k.data)
}

// IsCompressed reports whether the key is in 33-byte compressed form.
func (k PublicKey) IsCompressed() bool {
	return len(k.data) == CompressedPubKeySize && (k.data[0] == 0x02 || k.data[0] == 0x03)
}

// Equal reports whether both keys have the same serialization.
func (k PublicKey) Equal(o PublicKey) bool {
	return k.data == o.data
}

// Compare orders keys lexicographically by serialization.
func (k PublicKey) Compare(o PublicKey) int {
	return bytes.Compare([]byte(k.data), []byte(o.data))
}

// Address returns the single-key address for this serialization.
func (k PublicKey) Address() types.Address {
	return AddressFromPubKey([]byte(k.data))
}
