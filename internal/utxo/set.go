// Package utxo tracks the wallet's coins.
package utxo

import "github.com/Klingon-tech/klingnet-accounts/pkg/types"

// Coin is an output the wallet has seen. Spent coins are kept so that
// historical receipts at an address stay queryable.
type Coin struct {
	Outpoint types.Outpoint `json:"outpoint"`
	Address  types.Address  `json:"address"`
	Value    uint64         `json:"value"`
	Script   types.Script   `json:"script"`
	Spent    bool           `json:"spent"`
	SpentBy  types.Hash     `json:"spent_by,omitempty"`
}

// Set is the interface for coin storage.
type Set interface {
	Get(outpoint types.Outpoint) (*Coin, error)
	Put(coin *Coin) error
	Has(outpoint types.Outpoint) (bool, error)
	IsSpent(outpoint types.Outpoint) (bool, error)
	ListUnspent(addr types.Address) ([]*Coin, error)
}
