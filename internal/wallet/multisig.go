package wallet

import (
	"errors"
	"fmt"

	"github.com/Klingon-tech/klingnet-accounts/internal/log"
	"github.com/Klingon-tech/klingnet-accounts/internal/multisig"
	"github.com/Klingon-tech/klingnet-accounts/pkg/crypto"
	"github.com/Klingon-tech/klingnet-accounts/pkg/types"
)

// CreateMultisig derives a threshold-of-len(refs) multisig address without
// adding it to the wallet. Each ref is a hex public key or an address whose
// public key the wallet knows.
func (w *Wallet) CreateMultisig(threshold int, refs []string, policy multisig.SortPolicy) (types.Address, *multisig.Descriptor, error) {
	keys, err := w.resolveKeys(refs)
	if err != nil {
		return types.Address{}, nil, err
	}
	addr, desc, err := w.canon.Derive(keys, threshold, policy)
	var kerr *multisig.KeyError
	if errors.As(err, &kerr) {
		return types.Address{}, nil, fmt.Errorf("%w: %s", kerr.Err, refs[kerr.Index])
	}
	return addr, desc, err
}

// AddMultisigAddress derives a multisig address, registers its redeem
// script with the wallet and assigns it to label.
func (w *Wallet) AddMultisigAddress(threshold int, refs []string, label string, policy multisig.SortPolicy) (types.Address, *multisig.Descriptor, error) {
	addr, desc, err := w.CreateMultisig(threshold, refs, policy)
	if err != nil {
		return types.Address{}, nil, err
	}
	script, err := desc.Script()
	if err != nil {
		return types.Address{}, nil, err
	}
	if err := w.keys.AddScript(addr, script); err != nil {
		return types.Address{}, nil, err
	}
	if err := w.ledger.SetAccount(addr, label); err != nil {
		return types.Address{}, nil, err
	}
	log.Wallet.Info().
		Str("address", addr.String()).
		Str("label", label).
		Int("threshold", threshold).
		Int("keys", len(desc.Keys)).
		Bool("sorted", desc.Sorted).
		Msg("Multisig address added")
	return addr, desc, nil
}

// resolveKeys turns hex public keys and wallet addresses into keys.
func (w *Wallet) resolveKeys(refs []string) ([]crypto.PublicKey, error) {
	keys := make([]crypto.PublicKey, 0, len(refs))
	for _, ref := range refs {
		if k, err := crypto.ParsePublicKeyHex(ref); err == nil {
			keys = append(keys, k)
			continue
		}
		addr, err := types.ParseAddress(ref)
		if err != nil {
			return nil, fmt.Errorf("%q is neither a public key nor an address", ref)
		}
		k, err := w.keys.PubKey(addr)
		if err != nil {
			return nil, err
		}
		keys = append(keys, k)
	}
	return keys, nil
}
