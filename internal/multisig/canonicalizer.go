// Package multisig derives multisig redeem scripts and their addresses,
// optionally ordering keys canonically so that independent parties end up
// with the same address.
package multisig

import (
	"fmt"
	"slices"

	"github.com/Klingon-tech/klingnet-accounts/internal/log"
	"github.com/Klingon-tech/klingnet-accounts/pkg/crypto"
	"github.com/Klingon-tech/klingnet-accounts/pkg/types"
)

// KeyInspector reports whether a key is in compressed form.
type KeyInspector interface {
	IsCompressed(key crypto.PublicKey) bool
}

// serializationInspector judges compression from the serialization alone.
type serializationInspector struct{}

func (serializationInspector) IsCompressed(key crypto.PublicKey) bool {
	return key.IsCompressed()
}

// Canonicalizer derives multisig descriptors. It holds no mutable state
// and is safe for concurrent use.
type Canonicalizer struct {
	keys          KeyInspector
	sortByDefault bool
}

// NewCanonicalizer creates a Canonicalizer. sortByDefault decides what
// SortDefault means. A nil inspector falls back to the key serialization.
func NewCanonicalizer(keys KeyInspector, sortByDefault bool) *Canonicalizer {
	if keys == nil {
		keys = serializationInspector{}
	}
	return &Canonicalizer{keys: keys, sortByDefault: sortByDefault}
}

// SortByDefault reports how SortDefault is resolved.
func (c *Canonicalizer) SortByDefault() bool {
	return c.sortByDefault
}

// Derive builds the threshold-of-len(keys) descriptor and its address.
// The caller's slice is never modified.
func (c *Canonicalizer) Derive(keys []crypto.PublicKey, threshold int, policy SortPolicy) (types.Address, *Descriptor, error) {
	sorted, err := policy.resolve(c.sortByDefault)
	if err != nil {
		return types.Address{}, nil, err
	}

	// Key format is checked first so that an uncompressed key is reported
	// even when the threshold is also wrong.
	if sorted {
		for i, k := range keys {
			if !c.keys.IsCompressed(k) {
				return types.Address{}, nil, &KeyError{Index: i, Key: k, Err: ErrInvalidKeyFormat}
			}
		}
	}
	if threshold < 1 || threshold > len(keys) {
		return types.Address{}, nil, fmt.Errorf("%w: %d of %d", ErrInvalidThreshold, threshold, len(keys))
	}
	if len(keys) > MaxKeys {
		return types.Address{}, nil, fmt.Errorf("%w: %d > %d", ErrTooManyKeys, len(keys), MaxKeys)
	}

	ordered := slices.Clone(keys)
	if sorted {
		slices.SortFunc(ordered, crypto.PublicKey.Compare)
	}

	d := &Descriptor{Keys: ordered, Threshold: threshold, Sorted: sorted}
	addr, err := d.Address()
	if err != nil {
		return types.Address{}, nil, err
	}

	log.Multisig.Debug().
		Int("threshold", threshold).
		Int("keys", len(ordered)).
		Bool("sorted", sorted).
		Str("address", addr.String()).
		Msg("Derived multisig address")
	return addr, d, nil
}
