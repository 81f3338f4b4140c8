package config

import (
	"fmt"
	"math"
	"math/big"

	"github.com/shopspring/decimal"
)

// Denomination constants.
// 1 coin = 10^12 base units. Coin values are stored in base units.
const (
	Decimals  = 12
	Coin      = 1_000_000_000_000 // 10^12 base units per coin
	MilliCoin = 1_000_000_000     // 10^9
	MicroCoin = 1_000_000         // 10^6
)

// FromUnits converts base units to a coin amount.
func FromUnits(units uint64) decimal.Decimal {
	return decimal.NewFromBigInt(new(big.Int).SetUint64(units), -Decimals)
}

// ToUnits converts a coin amount to base units. The amount must be
// non-negative, have at most Decimals fractional digits and fit in uint64.
func ToUnits(amount decimal.Decimal) (uint64, error) {
	if amount.IsNegative() {
		return 0, fmt.Errorf("negative amount %s", amount)
	}
	shifted := amount.Shift(Decimals)
	if !shifted.Equal(shifted.Truncate(0)) {
		return 0, fmt.Errorf("too many decimal places in %s (max %d)", amount, Decimals)
	}
	bi := shifted.BigInt()
	if !bi.IsUint64() {
		return 0, fmt.Errorf("amount %s too large", amount)
	}
	return bi.Uint64(), nil
}

// ParseAmount parses a decimal coin amount such as "1.5".
func ParseAmount(s string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, fmt.Errorf("invalid amount %q: %w", s, err)
	}
	if _, err := ToUnits(d.Abs()); err != nil {
		return decimal.Zero, err
	}
	return d, nil
}

// FormatUnits renders base units with all Decimals fractional digits.
func FormatUnits(units uint64) string {
	return fmt.Sprintf("%d.%012d", units/Coin, units%Coin)
}

// MaxAmount is the largest amount representable in base units.
var MaxAmount = FromUnits(math.MaxUint64)
