package ledger

import (
	"github.com/Klingon-tech/klingnet-accounts/pkg/types"
	"github.com/shopspring/decimal"
)

// DefaultAccount is the label of the account every wallet starts with.
const DefaultAccount = ""

// Account is a snapshot of one label's ledger state.
type Account struct {
	Label     string          `json:"label"`
	Balance   decimal.Decimal `json:"balance"`
	Addresses []types.Address `json:"addresses"`
}
