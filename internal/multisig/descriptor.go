package multisig

import (
	"fmt"

	"github.com/Klingon-tech/klingnet-accounts/pkg/crypto"
	"github.com/Klingon-tech/klingnet-accounts/pkg/types"
	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/chaincfg"
	"github.com/btcsuite/btcd/txscript"
)

// MaxKeys is the largest key count a standard multisig script accepts.
const MaxKeys = 16

// Descriptor is an m-of-n multisig key set in script order.
type Descriptor struct {
	Keys      []crypto.PublicKey
	Threshold int
	Sorted    bool
}

// Script returns the redeem script
// OP_m <key_1> ... <key_n> OP_n OP_CHECKMULTISIG.
func (d *Descriptor) Script() ([]byte, error) {
	builder := txscript.NewScriptBuilder().AddInt64(int64(d.Threshold))
	for _, k := range d.Keys {
		builder.AddData(k.Bytes())
	}
	builder.AddInt64(int64(len(d.Keys)))
	builder.AddOp(txscript.OP_CHECKMULTISIG)

	script, err := builder.Script()
	if err != nil {
		return nil, fmt.Errorf("build multisig script: %w", err)
	}
	return script, nil
}

// Address returns the wallet-native script address.
func (d *Descriptor) Address() (types.Address, error) {
	script, err := d.Script()
	if err != nil {
		return types.Address{}, err
	}
	return crypto.AddressFromScript(script), nil
}

// LegacyAddress renders the P2SH address of the same redeem script in
// Bitcoin format for the given network.
func (d *Descriptor) LegacyAddress(params *chaincfg.Params) (string, error) {
	script, err := d.Script()
	if err != nil {
		return "", err
	}
	addr, err := btcutil.NewAddressScriptHash(script, params)
	if err != nil {
		return "", fmt.Errorf("p2sh address: %w", err)
	}
	return addr.EncodeAddress(), nil
}
