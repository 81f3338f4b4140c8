package ledger

import (
	"bytes"
	"fmt"
	"slices"

	"github.com/Klingon-tech/klingnet-accounts/internal/storage"
	"github.com/Klingon-tech/klingnet-accounts/pkg/types"
)

// Key prefixes inside the ledger database.
var (
	prefixBalance   = []byte("b/") // b/<label> -> decimal string
	prefixOwner     = []byte("o/") // o/<address> -> label
	prefixReceiving = []byte("r/") // r/<label> -> address(20)
)

func balanceKey(label string) []byte {
	return append(slices.Clone(prefixBalance), label...)
}

func ownerKey(addr types.Address) []byte {
	return append(slices.Clone(prefixOwner), addr[:]...)
}

func receivingKey(label string) []byte {
	return append(slices.Clone(prefixReceiving), label...)
}

// AddressBook is the label <-> address index. It is not safe for
// concurrent use on its own; the owning Ledger serializes access.
type AddressBook struct {
	source    AddressSource
	owners    map[types.Address]string
	members   map[string]map[types.Address]struct{}
	receiving map[string]types.Address
}

func newAddressBook(source AddressSource) *AddressBook {
	return &AddressBook{
		source:    source,
		owners:    make(map[types.Address]string),
		members:   make(map[string]map[types.Address]struct{}),
		receiving: make(map[string]types.Address),
	}
}

// MintAddress returns a fresh address from the underlying source.
func (b *AddressBook) MintAddress() (types.Address, error) {
	addr, err := b.source.MintAddress()
	if err != nil {
		return types.Address{}, fmt.Errorf("mint address: %w", err)
	}
	return addr, nil
}

// OwnerOf returns the label that owns addr.
func (b *AddressBook) OwnerOf(addr types.Address) (string, bool) {
	label, ok := b.owners[addr]
	return label, ok
}

// Addresses returns the label's addresses in byte order.
func (b *AddressBook) Addresses(label string) []types.Address {
	set := b.members[label]
	out := make([]types.Address, 0, len(set))
	for addr := range set {
		out = append(out, addr)
	}
	slices.SortFunc(out, func(x, y types.Address) int { return bytes.Compare(x[:], y[:]) })
	return out
}

// assign moves addr to label, removing it from its previous owner.
func (b *AddressBook) assign(addr types.Address, label string) {
	if old, ok := b.owners[addr]; ok {
		delete(b.members[old], addr)
		if len(b.members[old]) == 0 {
			delete(b.members, old)
		}
		if r, ok := b.receiving[old]; ok && r == addr && old != label {
			delete(b.receiving, old)
		}
	}
	b.owners[addr] = label
	set, ok := b.members[label]
	if !ok {
		set = make(map[types.Address]struct{})
		b.members[label] = set
	}
	set[addr] = struct{}{}
}

// load reads the persisted index from db.
func (b *AddressBook) load(db storage.DB) error {
	err := db.ForEach(prefixOwner, func(key, value []byte) error {
		if len(key) != len(prefixOwner)+types.AddressSize {
			return fmt.Errorf("malformed owner key %x", key)
		}
		var addr types.Address
		copy(addr[:], key[len(prefixOwner):])
		b.assign(addr, string(value))
		return nil
	})
	if err != nil {
		return fmt.Errorf("load address owners: %w", err)
	}
	err = db.ForEach(prefixReceiving, func(key, value []byte) error {
		if len(value) != types.AddressSize {
			return fmt.Errorf("malformed receiving address for %q", key[len(prefixReceiving):])
		}
		var addr types.Address
		copy(addr[:], value)
		b.receiving[string(key[len(prefixReceiving):])] = addr
		return nil
	})
	if err != nil {
		return fmt.Errorf("load receiving addresses: %w", err)
	}
	return nil
}
