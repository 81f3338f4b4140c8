package ledger

import (
	"github.com/Klingon-tech/klingnet-accounts/internal/utxo"
	"github.com/Klingon-tech/klingnet-accounts/pkg/types"
)

// CoinView is the wallet's coin set, shared by all labels.
type CoinView interface {
	ListUnspent(addr types.Address) ([]*utxo.Coin, error)
	IsSpent(op types.Outpoint) (bool, error)
}

// addressHistory is implemented by coin views that remember spent coins.
type addressHistory interface {
	Seen(addr types.Address) (bool, error)
}

// AddressSource mints fresh, previously unused addresses.
type AddressSource interface {
	MintAddress() (types.Address, error)
}

// KeyStore answers ownership questions about addresses.
type KeyStore interface {
	Controls(addr types.Address) bool
}
