// Package ledger keeps per-label account balances on top of a coin set
// shared by every label. Balances are bookkeeping only: moving value between
// labels never touches coins.
package ledger

import (
	"fmt"
	"slices"
	"sync"

	"github.com/Klingon-tech/klingnet-accounts/config"
	"github.com/Klingon-tech/klingnet-accounts/internal/log"
	"github.com/Klingon-tech/klingnet-accounts/internal/storage"
	"github.com/Klingon-tech/klingnet-accounts/pkg/types"
	"github.com/shopspring/decimal"
)

// Ledger tracks label balances and label <-> address ownership.
// All methods are safe for concurrent use.
type Ledger struct {
	mu       sync.RWMutex
	db       storage.DB
	book     *AddressBook
	coins    CoinView
	keys     KeyStore
	balances map[string]decimal.Decimal
}

// New opens a ledger persisted in db. Labels never seen before read as
// empty accounts.
func New(db storage.DB, source AddressSource, coins CoinView, keys KeyStore) (*Ledger, error) {
	l := &Ledger{
		db:       db,
		book:     newAddressBook(source),
		coins:    coins,
		keys:     keys,
		balances: make(map[string]decimal.Decimal),
	}
	if err := l.book.load(db); err != nil {
		return nil, err
	}
	err := db.ForEach(prefixBalance, func(key, value []byte) error {
		bal, err := decimal.NewFromString(string(value))
		if err != nil {
			return fmt.Errorf("balance of %q: %w", key[len(prefixBalance):], err)
		}
		l.balances[string(key[len(prefixBalance):])] = bal
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("load balances: %w", err)
	}
	return l, nil
}

// Book returns the ledger's address book.
func (l *Ledger) Book() *AddressBook {
	return l.book
}

// ReceivingAddress returns the label's current receiving address, or mints
// and registers a new one once the current address has received coins.
func (l *Ledger) ReceivingAddress(label string) (types.Address, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if addr, ok := l.book.receiving[label]; ok {
		used, err := l.used(addr)
		if err != nil {
			return types.Address{}, err
		}
		if owner, _ := l.book.OwnerOf(addr); !used && owner == label {
			return addr, nil
		}
	}

	addr, err := l.book.MintAddress()
	if err != nil {
		return types.Address{}, err
	}
	b := storage.NewBatch(l.db)
	b.Put(ownerKey(addr), []byte(label))
	b.Put(receivingKey(label), addr.Bytes())
	if err := b.Commit(); err != nil {
		return types.Address{}, fmt.Errorf("persist receiving address: %w", err)
	}
	l.book.assign(addr, label)
	l.book.receiving[label] = addr

	log.Ledger.Debug().Str("label", label).Str("address", addr.String()).Msg("New receiving address")
	return addr, nil
}

// used reports whether any coin was ever seen at addr.
func (l *Ledger) used(addr types.Address) (bool, error) {
	if h, ok := l.coins.(addressHistory); ok {
		return h.Seen(addr)
	}
	coins, err := l.coins.ListUnspent(addr)
	if err != nil {
		return false, err
	}
	return len(coins) > 0, nil
}

// NewAddress mints a fresh address that belongs to no label.
func (l *Ledger) NewAddress() (types.Address, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.book.MintAddress()
}

// SetAccount makes label the sole owner of addr. Balances are unchanged.
func (l *Ledger) SetAccount(addr types.Address, label string) error {
	if !l.keys.Controls(addr) {
		return fmt.Errorf("%w: %s", ErrAddressNotOwned, addr)
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	old, had := l.book.OwnerOf(addr)
	if had && old == label {
		return nil
	}
	b := storage.NewBatch(l.db)
	b.Put(ownerKey(addr), []byte(label))
	if r, ok := l.book.receiving[old]; had && ok && r == addr {
		b.Delete(receivingKey(old))
	}
	if err := b.Commit(); err != nil {
		return fmt.Errorf("persist account: %w", err)
	}
	l.book.assign(addr, label)

	log.Ledger.Debug().
		Str("address", addr.String()).
		Str("from", old).
		Str("label", label).
		Msg("Address reassigned")
	return nil
}

// Owner returns the label owning addr.
func (l *Ledger) Owner(addr types.Address) (string, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.book.OwnerOf(addr)
}

// Addresses returns a copy of the label's addresses.
func (l *Ledger) Addresses(label string) []types.Address {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.book.Addresses(label)
}

// Balance returns the label's ledger balance.
func (l *Ledger) Balance(label string) decimal.Decimal {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.balances[label]
}

// Credit adds amount to the label's balance.
func (l *Ledger) Credit(label string, amount decimal.Decimal) error {
	if err := checkAmount(amount); err != nil {
		return err
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.apply(map[string]decimal.Decimal{label: amount})
}

// CreditAddress credits the owner of addr, or the default account when
// addr has no owner.
func (l *Ledger) CreditAddress(addr types.Address, amount decimal.Decimal) (string, error) {
	if err := checkAmount(amount); err != nil {
		return "", err
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	label, ok := l.book.OwnerOf(addr)
	if !ok {
		label = DefaultAccount
	}
	return label, l.apply(map[string]decimal.Decimal{label: amount})
}

// Debit subtracts amount from the label's balance.
func (l *Ledger) Debit(label string, amount decimal.Decimal) error {
	if err := checkAmount(amount); err != nil {
		return err
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	if err := l.checkFunds(label, amount); err != nil {
		return err
	}
	return l.apply(map[string]decimal.Decimal{label: amount.Neg()})
}

// Move transfers amount from one label to another without touching coins.
func (l *Ledger) Move(from, to string, amount decimal.Decimal) error {
	if err := checkAmount(amount); err != nil {
		return err
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.move(from, to, amount)
}

func (l *Ledger) move(from, to string, amount decimal.Decimal) error {
	if err := l.checkFunds(from, amount); err != nil {
		return err
	}
	if from == to {
		return nil
	}
	return l.apply(map[string]decimal.Decimal{from: amount.Neg(), to: amount})
}

// Consolidate moves the value of the unspent coins at the label's addresses
// into the default account and returns the amount moved. The coin total is
// not reconciled against the ledger balance, so a label whose balance has
// drifted below its coins fails with ErrInsufficientLedgerBalance.
func (l *Ledger) Consolidate(label string) (decimal.Decimal, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	var units uint64
	for _, addr := range l.book.Addresses(label) {
		coins, err := l.coins.ListUnspent(addr)
		if err != nil {
			return decimal.Zero, fmt.Errorf("list unspent %s: %w", addr, err)
		}
		for _, c := range coins {
			units += c.Value
		}
	}
	sum := config.FromUnits(units)
	if err := l.move(label, DefaultAccount, sum); err != nil {
		return decimal.Zero, err
	}
	log.Ledger.Debug().Str("label", label).Str("amount", sum.String()).Msg("Consolidated account")
	return sum, nil
}

// ListBalances returns every account's balance. The default account is
// always present; labels with no addresses and a zero balance are omitted.
func (l *Ledger) ListBalances() map[string]decimal.Decimal {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.listBalances()
}

func (l *Ledger) listBalances() map[string]decimal.Decimal {
	out := map[string]decimal.Decimal{DefaultAccount: l.balances[DefaultAccount]}
	for label, bal := range l.balances {
		if !bal.IsZero() {
			out[label] = bal
		}
	}
	for label := range l.book.members {
		out[label] = l.balances[label]
	}
	return out
}

// Accounts returns a snapshot of every listed account, sorted by label.
func (l *Ledger) Accounts() []Account {
	l.mu.RLock()
	defer l.mu.RUnlock()

	balances := l.listBalances()
	labels := make([]string, 0, len(balances))
	for label := range balances {
		labels = append(labels, label)
	}
	slices.Sort(labels)

	out := make([]Account, 0, len(labels))
	for _, label := range labels {
		out = append(out, Account{
			Label:     label,
			Balance:   balances[label],
			Addresses: l.book.Addresses(label),
		})
	}
	return out
}

func (l *Ledger) checkFunds(label string, amount decimal.Decimal) error {
	if bal := l.balances[label]; amount.GreaterThan(bal) {
		return fmt.Errorf("%w: account %q has %s, need %s", ErrInsufficientLedgerBalance, label, bal, amount)
	}
	return nil
}

// apply adds each delta to its label's balance. The new balances are
// written in one batch and only then published in memory.
func (l *Ledger) apply(deltas map[string]decimal.Decimal) error {
	next := make(map[string]decimal.Decimal, len(deltas))
	b := storage.NewBatch(l.db)
	for label, delta := range deltas {
		bal := l.balances[label].Add(delta)
		next[label] = bal
		if err := b.Put(balanceKey(label), []byte(bal.String())); err != nil {
			return fmt.Errorf("stage balance: %w", err)
		}
	}
	if err := b.Commit(); err != nil {
		return fmt.Errorf("persist balances: %w", err)
	}
	for label, bal := range next {
		l.balances[label] = bal
		log.Ledger.Debug().Str("label", label).Str("delta", deltas[label].String()).Str("balance", bal.String()).Msg("Balance updated")
	}
	return nil
}

func checkAmount(amount decimal.Decimal) error {
	if amount.IsNegative() {
		return fmt.Errorf("%w: %s", ErrInvalidAmount, amount)
	}
	if !amount.Equal(amount.Truncate(config.Decimals)) {
		return fmt.Errorf("%w: %s has more than %d decimal places", ErrInvalidAmount, amount, config.Decimals)
	}
	return nil
}
