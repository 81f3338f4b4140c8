package wallet

import (
	"errors"
	"fmt"
	"sort"

	"github.com/Klingon-tech/klingnet-accounts/internal/utxo"
)

// Coin selection errors.
var (
	ErrInsufficientFunds = errors.New("insufficient funds")
	ErrNoCoins           = errors.New("no coins available")
)

// CoinSelection holds the result of coin selection.
type CoinSelection struct {
	Inputs []*utxo.Coin // Selected coins to spend.
	Total  uint64       // Sum of selected input values.
	Change uint64       // Change = Total - target.
}

// SelectCoins chooses coins to fund a payment of the given target amount.
// It tries two strategies:
//  1. Single coin: finds the smallest single coin that covers the target (minimizes inputs).
//  2. Largest-first accumulation: greedily adds the largest coins until the target is met.
//
// Returns the strategy that produces the least change (waste). Spent coins
// are ignored. Ties are broken by outpoint so selection is deterministic.
func SelectCoins(coins []*utxo.Coin, target uint64) (*CoinSelection, error) {
	if len(coins) == 0 {
		return nil, ErrNoCoins
	}
	if target == 0 {
		return nil, fmt.Errorf("target must be positive")
	}

	// Filter out spent and zero-value coins and sort by value ascending.
	candidates := make([]*utxo.Coin, 0, len(coins))
	for _, c := range coins {
		if c.Value > 0 && !c.Spent {
			candidates = append(candidates, c)
		}
	}
	if len(candidates) == 0 {
		return nil, ErrNoCoins
	}

	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].Value != candidates[j].Value {
			return candidates[i].Value < candidates[j].Value
		}
		return candidates[i].Outpoint.String() < candidates[j].Outpoint.String()
	})

	// Strategy 1: smallest single coin that covers the target.
	var single *CoinSelection
	for _, c := range candidates {
		if c.Value >= target {
			single = &CoinSelection{
				Inputs: []*utxo.Coin{c},
				Total:  c.Value,
				Change: c.Value - target,
			}
			break // Already sorted ascending, first match is smallest.
		}
	}

	// Strategy 2: Largest-first accumulation.
	var accum *CoinSelection
	var selected []*utxo.Coin
	var total uint64
	// Iterate from largest to smallest.
	for i := len(candidates) - 1; i >= 0; i-- {
		selected = append(selected, candidates[i])
		total += candidates[i].Value
		if total >= target {
			accum = &CoinSelection{
				Inputs: selected,
				Total:  total,
				Change: total - target,
			}
			break
		}
	}

	// Pick the best result.
	switch {
	case single != nil && accum != nil:
		// Prefer whichever produces less change (less waste).
		if single.Change <= accum.Change {
			return single, nil
		}
		return accum, nil
	case single != nil:
		return single, nil
	case accum != nil:
		return accum, nil
	default:
		return nil, fmt.Errorf("%w: have %d, need %d", ErrInsufficientFunds, totalValue(candidates), target)
	}
}

func totalValue(coins []*utxo.Coin) uint64 {
	var total uint64
	for _, c := range coins {
		total += c.Value
	}
	return total
}
