package wallet

import (
	"fmt"

	"github.com/Klingon-tech/klingnet-accounts/pkg/crypto"
	"github.com/Klingon-tech/klingnet-accounts/pkg/types"
	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcutil"
)

// ImportPrivKey adds a WIF private key to the wallet under label.
func (w *Wallet) ImportPrivKey(encoded, label string) (types.Address, error) {
	wif, err := btcutil.DecodeWIF(encoded)
	if err != nil {
		return types.Address{}, fmt.Errorf("decode WIF: %w", err)
	}
	if !wif.IsForNet(w.opts.Params) {
		return types.Address{}, fmt.Errorf("WIF key is not for %s", w.opts.Params.Name)
	}
	addr, err := w.keys.ImportPrivKey(wif)
	if err != nil {
		return types.Address{}, err
	}
	if err := w.ledger.SetAccount(addr, label); err != nil {
		return types.Address{}, err
	}
	return addr, nil
}

// ImportPubKey adds a hex public key as a watch-only address under label.
func (w *Wallet) ImportPubKey(pubHex, label string) (types.Address, error) {
	pub, err := crypto.ParsePublicKeyHex(pubHex)
	if err != nil {
		return types.Address{}, err
	}
	addr, err := w.keys.ImportPubKey(pub)
	if err != nil {
		return types.Address{}, err
	}
	if err := w.ledger.SetAccount(addr, label); err != nil {
		return types.Address{}, err
	}
	return addr, nil
}

// DumpPrivKey returns the WIF encoding of the private key behind addr.
// The wallet must be unlocked.
func (w *Wallet) DumpPrivKey(addr types.Address) (string, error) {
	priv, compressed, err := w.keys.PrivateKey(addr)
	if err != nil {
		return "", err
	}
	defer priv.Zero()

	raw := priv.Serialize()
	key, _ := btcec.PrivKeyFromBytes(raw)
	zero(raw)
	wif, err := btcutil.NewWIF(key, w.opts.Params, compressed)
	if err != nil {
		return "", fmt.Errorf("encode WIF: %w", err)
	}
	return wif.String(), nil
}
