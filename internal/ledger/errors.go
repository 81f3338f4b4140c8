package ledger

import "errors"

var (
	// ErrAddressNotOwned is returned when reassigning an address the
	// wallet does not control.
	ErrAddressNotOwned = errors.New("address not owned by wallet")
	// ErrInsufficientLedgerBalance is returned when a debit or move exceeds
	// the label's tracked balance.
	ErrInsufficientLedgerBalance = errors.New("insufficient ledger balance")
	// ErrInvalidAmount is returned for negative amounts and amounts finer
	// than one base unit.
	ErrInvalidAmount = errors.New("invalid amount")
)
