package utxo

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"sort"

	"github.com/Klingon-tech/klingnet-accounts/pkg/crypto"
	"github.com/Klingon-tech/klingnet-accounts/pkg/types"
)

// Commitment computes a merkle root over the unspent coins in the store.
// Each coin is hashed deterministically, the hashes are sorted, and a
// merkle tree is built from them. Returns a zero hash for an empty set.
func Commitment(store *Store) (types.Hash, error) {
	var hashes []types.Hash

	err := store.ForEachUnspent(func(c *Coin) error {
		hashes = append(hashes, hashCoin(c))
		return nil
	})
	if err != nil {
		return types.Hash{}, fmt.Errorf("coin commitment: %w", err)
	}

	sort.Slice(hashes, func(i, j int) bool {
		return bytes.Compare(hashes[i][:], hashes[j][:]) < 0
	})
	return merkleRoot(hashes), nil
}

// hashCoin produces a deterministic BLAKE3 hash of a coin.
// Format: txid(32) | index(4) | value(8) | address(20) | script_type(1) | script_data
func hashCoin(c *Coin) types.Hash {
	var buf []byte
	buf = append(buf, c.Outpoint.TxID[:]...)
	buf = binary.LittleEndian.AppendUint32(buf, c.Outpoint.Index)
	buf = binary.LittleEndian.AppendUint64(buf, c.Value)
	buf = append(buf, c.Address[:]...)
	buf = append(buf, byte(c.Script.Type))
	buf = append(buf, c.Script.Data...)
	return crypto.Hash(buf)
}

func merkleRoot(hashes []types.Hash) types.Hash {
	if len(hashes) == 0 {
		return types.Hash{}
	}
	level := make([]types.Hash, len(hashes))
	copy(level, hashes)

	for len(level) > 1 {
		// If odd, duplicate the last element.
		if len(level)%2 != 0 {
			level = append(level, level[len(level)-1])
		}
		next := make([]types.Hash, len(level)/2)
		for i := 0; i < len(level); i += 2 {
			next[i/2] = crypto.HashConcat(level[i], level[i+1])
		}
		level = next
	}
	return level[0]
}
