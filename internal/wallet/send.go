package wallet

import (
	"errors"
	"fmt"

	"github.com/Klingon-tech/klingnet-accounts/config"
	"github.com/Klingon-tech/klingnet-accounts/internal/ledger"
	"github.com/Klingon-tech/klingnet-accounts/internal/log"
	"github.com/Klingon-tech/klingnet-accounts/internal/utxo"
	"github.com/Klingon-tech/klingnet-accounts/pkg/tx"
	"github.com/Klingon-tech/klingnet-accounts/pkg/types"
	"github.com/shopspring/decimal"
)

// SendFrom pays amount to addr out of the shared coin pool and charges it
// to the from label. The label is debited before any coin is selected, so
// an overdrawn label fails with ledger.ErrInsufficientLedgerBalance and
// leaves the pool untouched. When the pool cannot cover the payment the
// debit is reverted and ErrInsufficientFunds is returned. If the wallet
// owns addr, the label owning it is credited. Transfers carry no fee.
func (w *Wallet) SendFrom(from string, to types.Address, amount decimal.Decimal) (types.Hash, error) {
	if !amount.IsPositive() {
		return types.Hash{}, fmt.Errorf("%w: send amount %s", ledger.ErrInvalidAmount, amount)
	}
	units, err := config.ToUnits(amount)
	if err != nil {
		return types.Hash{}, fmt.Errorf("%w: %v", ledger.ErrInvalidAmount, err)
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	if err := w.ledger.Debit(from, amount); err != nil {
		return types.Hash{}, err
	}
	txid, err := w.spend(to, units)
	if err != nil {
		if rerr := w.ledger.Credit(from, amount); rerr != nil {
			lg := log.WithLabel(from)
			lg.Error().Err(rerr).
				Str("amount", amount.String()).
				Msg("Failed to restore ledger balance")
		}
		return types.Hash{}, err
	}

	if w.keys.Controls(to) {
		label, err := w.ledger.CreditAddress(to, amount)
		if err != nil {
			return txid, fmt.Errorf("credit receiving label: %w", err)
		}
		log.Wallet.Debug().Str("label", label).Msg("Payment credited to own label")
	}

	log.Wallet.Info().
		Str("txid", txid.String()).
		Str("from", from).
		Str("to", to.String()).
		Str("amount", amount.String()).
		Msg("Payment sent")
	return txid, nil
}

// spend builds and applies a transfer of units to addr, returning change
// to a fresh internal address. Caller holds w.mu.
func (w *Wallet) spend(to types.Address, units uint64) (types.Hash, error) {
	var pool []*utxo.Coin
	err := w.coins.ForEachUnspent(func(c *utxo.Coin) error {
		if w.keys.CanSpend(c.Address) {
			pool = append(pool, c)
		}
		return nil
	})
	if err != nil {
		return types.Hash{}, fmt.Errorf("scan coins: %w", err)
	}

	sel, err := SelectCoins(pool, units)
	if errors.Is(err, ErrNoCoins) {
		return types.Hash{}, fmt.Errorf("%w: have 0, need %d", ErrInsufficientFunds, units)
	}
	if err != nil {
		return types.Hash{}, err
	}

	b := tx.NewBuilder()
	spent := make([]types.Outpoint, 0, len(sel.Inputs))
	for _, c := range sel.Inputs {
		b.AddInput(c.Outpoint)
		spent = append(spent, c.Outpoint)
	}
	b.AddOutput(units, w.scriptFor(to))
	if sel.Change > 0 {
		change, err := w.keys.MintChangeAddress()
		if err != nil {
			return types.Hash{}, fmt.Errorf("change address: %w", err)
		}
		b.AddOutput(sel.Change, types.PayToPubKeyHash(change))
	}

	t := b.Build()
	if err := t.Validate(); err != nil {
		return types.Hash{}, fmt.Errorf("build transfer: %w", err)
	}
	if err := t.ValidateBalance(sel.Total); err != nil {
		return types.Hash{}, fmt.Errorf("build transfer: %w", err)
	}

	txid := t.Hash()
	var created []*utxo.Coin
	for i, out := range t.Outputs {
		addr, _ := out.Script.Address()
		if !w.keys.Controls(addr) {
			continue
		}
		created = append(created, &utxo.Coin{
			Outpoint: types.Outpoint{TxID: txid, Index: uint32(i)},
			Address:  addr,
			Value:    out.Value,
			Script:   out.Script,
		})
	}
	if err := w.coins.Apply(txid, spent, created); err != nil {
		return types.Hash{}, err
	}
	log.Coins.Debug().
		Str("txid", txid.String()).
		Int("inputs", len(spent)).
		Int("outputs", len(t.Outputs)).
		Msg("Transfer applied")
	return txid, nil
}
