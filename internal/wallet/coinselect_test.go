package wallet

import (
	"errors"
	"testing"

	"github.com/Klingon-tech/klingnet-accounts/internal/utxo"
	"github.com/Klingon-tech/klingnet-accounts/pkg/types"
)

func makeCoins(values ...uint64) []*utxo.Coin {
	coins := make([]*utxo.Coin, len(values))
	for i, v := range values {
		coins[i] = &utxo.Coin{
			Outpoint: types.Outpoint{TxID: types.Hash{byte(i + 1)}, Index: 0},
			Value:    v,
		}
	}
	return coins
}

func TestSelectCoins_ExactMatch(t *testing.T) {
	coins := makeCoins(1000, 2000, 3000)
	sel, err := SelectCoins(coins, 2000)
	if err != nil {
		t.Fatalf("SelectCoins: %v", err)
	}
	if sel.Total != 2000 {
		t.Errorf("total = %d, want 2000", sel.Total)
	}
	if sel.Change != 0 {
		t.Errorf("change = %d, want 0", sel.Change)
	}
	if len(sel.Inputs) != 1 {
		t.Errorf("inputs = %d, want 1 (exact single match)", len(sel.Inputs))
	}
}

func TestSelectCoins_SingleCoin(t *testing.T) {
	coins := makeCoins(5000)
	sel, err := SelectCoins(coins, 3000)
	if err != nil {
		t.Fatalf("SelectCoins: %v", err)
	}
	if sel.Total != 5000 {
		t.Errorf("total = %d, want 5000", sel.Total)
	}
	if sel.Change != 2000 {
		t.Errorf("change = %d, want 2000", sel.Change)
	}
}

func TestSelectCoins_MultipleCoins(t *testing.T) {
	// No single coin covers 4000, must combine.
	coins := makeCoins(1000, 2000, 1500)
	sel, err := SelectCoins(coins, 4000)
	if err != nil {
		t.Fatalf("SelectCoins: %v", err)
	}
	if sel.Total < 4000 {
		t.Errorf("total = %d, should be >= 4000", sel.Total)
	}
	if len(sel.Inputs) > 1 {
		// largest-first: 2000 + 1500 + 1000 = 4500
		if sel.Total != 4500 {
			t.Errorf("total = %d, want 4500", sel.Total)
		}
		if sel.Change != 500 {
			t.Errorf("change = %d, want 500", sel.Change)
		}
	}
}

func TestSelectCoins_PrefersLessChange(t *testing.T) {
	// Single match: 5000 (change=2000). Accumulation: 3000+2000=5000 (change=2000).
	// Both same change; single wins (fewer inputs).
	coins := makeCoins(1000, 2000, 3000, 5000)
	sel, err := SelectCoins(coins, 3000)
	if err != nil {
		t.Fatalf("SelectCoins: %v", err)
	}
	// Should pick the single coin of 3000 (exact match, 0 change).
	if sel.Change != 0 {
		t.Errorf("change = %d, want 0 (exact 3000 match)", sel.Change)
	}
	if len(sel.Inputs) != 1 {
		t.Errorf("inputs = %d, want 1", len(sel.Inputs))
	}
}

func TestSelectCoins_InsufficientFunds(t *testing.T) {
	coins := makeCoins(1000, 2000)
	_, err := SelectCoins(coins, 5000)
	if !errors.Is(err, ErrInsufficientFunds) {
		t.Errorf("expected ErrInsufficientFunds, got: %v", err)
	}
}

func TestSelectCoins_NoCoins(t *testing.T) {
	_, err := SelectCoins(nil, 1000)
	if !errors.Is(err, ErrNoCoins) {
		t.Errorf("expected ErrNoCoins, got: %v", err)
	}
}

func TestSelectCoins_ZeroTarget(t *testing.T) {
	coins := makeCoins(1000)
	_, err := SelectCoins(coins, 0)
	if err == nil {
		t.Error("zero target should fail")
	}
}

func TestSelectCoins_AllZeroValue(t *testing.T) {
	coins := makeCoins(0, 0, 0)
	_, err := SelectCoins(coins, 1000)
	if !errors.Is(err, ErrNoCoins) {
		t.Errorf("expected ErrNoCoins for all-zero coins, got: %v", err)
	}
}

func TestSelectCoins_LargestFirst(t *testing.T) {
	// Target = 7000. No single coin covers it.
	// Largest-first: 5000 + 3000 = 8000 (change=1000).
	coins := makeCoins(1000, 3000, 5000, 2000)
	sel, err := SelectCoins(coins, 7000)
	if err != nil {
		t.Fatalf("SelectCoins: %v", err)
	}
	if sel.Total != 8000 {
		t.Errorf("total = %d, want 8000", sel.Total)
	}
	if sel.Change != 1000 {
		t.Errorf("change = %d, want 1000", sel.Change)
	}
	if len(sel.Inputs) != 2 {
		t.Errorf("inputs = %d, want 2", len(sel.Inputs))
	}
}

func TestSelectCoins_AllCoins(t *testing.T) {
	// Need all coins to cover the target.
	coins := makeCoins(1000, 2000, 3000)
	sel, err := SelectCoins(coins, 6000)
	if err != nil {
		t.Fatalf("SelectCoins: %v", err)
	}
	if sel.Total != 6000 {
		t.Errorf("total = %d, want 6000", sel.Total)
	}
	if sel.Change != 0 {
		t.Errorf("change = %d, want 0", sel.Change)
	}
	if len(sel.Inputs) != 3 {
		t.Errorf("inputs = %d, want 3", len(sel.Inputs))
	}
}

func TestCoinSelection_Fields(t *testing.T) {
	coins := makeCoins(5000)
	sel, _ := SelectCoins(coins, 3000)
	if sel.Total != sel.Change+3000 {
		t.Error("Total should equal Change + target")
	}
}

func TestSelectCoins_SkipsSpent(t *testing.T) {
	coins := makeCoins(5000, 1000)
	coins[0].Spent = true

	_, err := SelectCoins(coins, 3000)
	if !errors.Is(err, ErrInsufficientFunds) {
		t.Errorf("expected ErrInsufficientFunds with the big coin spent, got: %v", err)
	}
}

func TestSelectCoins_DeterministicTies(t *testing.T) {
	a := makeCoins(1000, 1000, 1000)
	b := []*utxo.Coin{a[2], a[0], a[1]}

	selA, _ := SelectCoins(a, 1000)
	selB, _ := SelectCoins(b, 1000)
	if selA.Inputs[0].Outpoint != selB.Inputs[0].Outpoint {
		t.Error("equal-value coins should be chosen independently of input order")
	}
}
