package tx

import (
	"errors"
	"fmt"
	"math"

	"github.com/Klingon-tech/klingnet-accounts/pkg/types"
)

// Validation errors.
var (
	ErrNoInputs       = errors.New("transaction has no inputs")
	ErrNoOutputs      = errors.New("transaction has no outputs")
	ErrDuplicateInput = errors.New("duplicate input")
	ErrOutputOverflow = errors.New("output values overflow")
	ErrZeroOutput     = errors.New("output value is zero")
	ErrInvalidScript  = errors.New("invalid script")
	ErrValueMismatch  = errors.New("inputs and outputs do not balance")
)

// Validate checks transaction structure. It does not look up the spent coins.
func (tx *Transaction) Validate() error {
	if len(tx.Inputs) == 0 {
		return ErrNoInputs
	}
	if len(tx.Outputs) == 0 {
		return ErrNoOutputs
	}

	seen := make(map[types.Outpoint]bool, len(tx.Inputs))
	for i, in := range tx.Inputs {
		if seen[in.PrevOut] {
			return fmt.Errorf("input %d: %w", i, ErrDuplicateInput)
		}
		seen[in.PrevOut] = true
	}

	var total uint64
	for i, out := range tx.Outputs {
		if out.Value == 0 {
			return fmt.Errorf("output %d: %w", i, ErrZeroOutput)
		}
		if _, ok := out.Script.Address(); !ok {
			return fmt.Errorf("output %d: %w: %s", i, ErrInvalidScript, out.Script.Type)
		}
		if total > math.MaxUint64-out.Value {
			return fmt.Errorf("output %d: %w", i, ErrOutputOverflow)
		}
		total += out.Value
	}
	return nil
}

// ValidateBalance checks that the outputs spend exactly inputTotal. The
// wallet core builds zero-fee transfers.
func (tx *Transaction) ValidateBalance(inputTotal uint64) error {
	out, err := tx.TotalOutputValue()
	if err != nil {
		return err
	}
	if out != inputTotal {
		return fmt.Errorf("%w: in %d, out %d", ErrValueMismatch, inputTotal, out)
	}
	return nil
}
