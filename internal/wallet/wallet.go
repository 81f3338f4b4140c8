package wallet

import (
	"fmt"
	"sync"

	"github.com/Klingon-tech/klingnet-accounts/config"
	"github.com/Klingon-tech/klingnet-accounts/internal/ledger"
	"github.com/Klingon-tech/klingnet-accounts/internal/log"
	"github.com/Klingon-tech/klingnet-accounts/internal/multisig"
	"github.com/Klingon-tech/klingnet-accounts/internal/storage"
	"github.com/Klingon-tech/klingnet-accounts/internal/utxo"
	"github.com/Klingon-tech/klingnet-accounts/pkg/types"
	"github.com/btcsuite/btcd/chaincfg"
	"github.com/shopspring/decimal"
)

// Key namespaces inside the wallet database.
var (
	prefixKeys   = []byte("k/")
	prefixCoins  = []byte("c/")
	prefixLedger = []byte("l/")
)

// Options configures a Wallet.
type Options struct {
	// SortMultisig decides how multisig.SortDefault is resolved.
	SortMultisig bool
	// Params selects the network used for WIF keys and legacy addresses.
	// Defaults to mainnet.
	Params *chaincfg.Params
}

// Wallet ties the keystore, the shared coin pool and the label ledger
// together. Safe for concurrent use.
type Wallet struct {
	opts   Options
	keys   *KeyStore
	coins  *utxo.Store
	ledger *ledger.Ledger
	canon  *multisig.Canonicalizer

	// mu serializes every operation that changes the coin pool together
	// with the ledger.
	mu sync.Mutex
}

// Create initializes a new wallet in db from seed. The wallet is returned
// unlocked.
func Create(db storage.DB, seed, password []byte, params EncryptionParams, opts Options) (*Wallet, error) {
	ks, err := CreateKeyStore(storage.NewPrefixDB(db, prefixKeys), seed, password, params)
	if err != nil {
		return nil, err
	}
	return assemble(db, ks, opts)
}

// Open loads an existing wallet from db. The wallet starts locked.
func Open(db storage.DB, opts Options) (*Wallet, error) {
	ks, err := OpenKeyStore(storage.NewPrefixDB(db, prefixKeys))
	if err != nil {
		return nil, err
	}
	return assemble(db, ks, opts)
}

func assemble(db storage.DB, ks *KeyStore, opts Options) (*Wallet, error) {
	if opts.Params == nil {
		opts.Params = &chaincfg.MainNetParams
	}
	coins := utxo.NewStore(storage.NewPrefixDB(db, prefixCoins))
	l, err := ledger.New(storage.NewPrefixDB(db, prefixLedger), ks, coins, ks)
	if err != nil {
		return nil, fmt.Errorf("open ledger: %w", err)
	}
	return &Wallet{
		opts:   opts,
		keys:   ks,
		coins:  coins,
		ledger: l,
		canon:  multisig.NewCanonicalizer(ks, opts.SortMultisig),
	}, nil
}

// Unlock decrypts the seed with password.
func (w *Wallet) Unlock(password []byte) error {
	return w.keys.Unlock(password)
}

// Lock drops decrypted key material.
func (w *Wallet) Lock() {
	w.keys.Lock()
}

// Keys returns the wallet's keystore.
func (w *Wallet) Keys() *KeyStore {
	return w.keys
}

// Coins returns the wallet's coin pool.
func (w *Wallet) Coins() *utxo.Store {
	return w.coins
}

// Ledger returns the wallet's label ledger.
func (w *Wallet) Ledger() *ledger.Ledger {
	return w.ledger
}

// Params returns the network parameters the wallet renders keys for.
func (w *Wallet) Params() *chaincfg.Params {
	return w.opts.Params
}

// GetAccountAddress returns the label's current receiving address, minting
// a new one once the previous address has received coins.
func (w *Wallet) GetAccountAddress(label string) (types.Address, error) {
	return w.ledger.ReceivingAddress(label)
}

// GetNewAddress mints a fresh address. It is assigned to label when label
// is non-empty and left account-less otherwise.
func (w *Wallet) GetNewAddress(label string) (types.Address, error) {
	addr, err := w.ledger.NewAddress()
	if err != nil {
		return types.Address{}, err
	}
	if label != ledger.DefaultAccount {
		if err := w.ledger.SetAccount(addr, label); err != nil {
			return types.Address{}, err
		}
	}
	return addr, nil
}

// GetAccount returns the label owning addr. Account-less addresses belong
// to the default account.
func (w *Wallet) GetAccount(addr types.Address) (string, error) {
	if !w.keys.Controls(addr) {
		return "", fmt.Errorf("%w: %s", ledger.ErrAddressNotOwned, addr)
	}
	label, _ := w.ledger.Owner(addr)
	return label, nil
}

// GetAddressesByAccount returns the addresses assigned to label.
func (w *Wallet) GetAddressesByAccount(label string) []types.Address {
	return w.ledger.Addresses(label)
}

// SetAccount assigns addr to label.
func (w *Wallet) SetAccount(addr types.Address, label string) error {
	return w.ledger.SetAccount(addr, label)
}

// GetBalance returns the label's ledger balance.
func (w *Wallet) GetBalance(label string) decimal.Decimal {
	return w.ledger.Balance(label)
}

// GetCoinBalance sums the unspent coins sitting at the label's addresses.
// It can differ from GetBalance, since moves between labels touch no coins.
func (w *Wallet) GetCoinBalance(label string) (decimal.Decimal, error) {
	var total uint64
	for _, addr := range w.ledger.Addresses(label) {
		coins, err := w.coins.ListUnspent(addr)
		if err != nil {
			return decimal.Zero, err
		}
		for _, c := range coins {
			total += c.Value
		}
	}
	return config.FromUnits(total), nil
}

// GetReceivedByAccount sums every coin ever received at the label's
// addresses, spent or not.
func (w *Wallet) GetReceivedByAccount(label string) (decimal.Decimal, error) {
	var total uint64
	for _, addr := range w.ledger.Addresses(label) {
		coins, err := w.coins.ListByAddress(addr)
		if err != nil {
			return decimal.Zero, err
		}
		for _, c := range coins {
			total += c.Value
		}
	}
	return config.FromUnits(total), nil
}

// ListAccounts returns label balances. The default account is always present.
func (w *Wallet) ListAccounts() map[string]decimal.Decimal {
	return w.ledger.ListBalances()
}

// CoinSetInfo summarizes the shared coin pool.
type CoinSetInfo struct {
	Coins      int             `json:"coins"`
	Total      decimal.Decimal `json:"total"`
	Commitment types.Hash      `json:"commitment"` // Merkle root over unspent coins.
}

// GetCoinSetInfo counts the unspent coins and commits to their contents.
// The commitment lets two copies of a wallet check they hold the same pool.
func (w *Wallet) GetCoinSetInfo() (*CoinSetInfo, error) {
	info := &CoinSetInfo{}
	var units uint64
	err := w.coins.ForEachUnspent(func(c *utxo.Coin) error {
		info.Coins++
		units += c.Value
		return nil
	})
	if err != nil {
		return nil, err
	}
	root, err := utxo.Commitment(w.coins)
	if err != nil {
		return nil, err
	}
	info.Total = config.FromUnits(units)
	info.Commitment = root
	return info, nil
}

// Move shifts amount between labels without touching coins.
func (w *Wallet) Move(from, to string, amount decimal.Decimal) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.ledger.Move(from, to, amount)
}

// Consolidate moves the value of the label's unspent coins to the default
// account and returns the amount moved.
func (w *Wallet) Consolidate(label string) (decimal.Decimal, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.ledger.Consolidate(label)
}

// ReceiveCoin records an incoming coin at a wallet address and credits
// the label owning it. It returns the credited label. The label is
// credited before the coin is recorded and debited again if recording
// fails, so a failed receipt can be retried.
func (w *Wallet) ReceiveCoin(op types.Outpoint, addr types.Address, units uint64) (string, error) {
	if !w.keys.Controls(addr) {
		return "", fmt.Errorf("%w: %s", ledger.ErrAddressNotOwned, addr)
	}
	if units == 0 {
		return "", fmt.Errorf("%w: zero-value coin", ledger.ErrInvalidAmount)
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	known, err := w.coins.Has(op)
	if err != nil {
		return "", fmt.Errorf("coin has: %w", err)
	}
	if known {
		return "", fmt.Errorf("%w: %s", utxo.ErrDuplicateCoin, op)
	}

	amount := config.FromUnits(units)
	label, err := w.ledger.CreditAddress(addr, amount)
	if err != nil {
		return "", err
	}
	c := &utxo.Coin{
		Outpoint: op,
		Address:  addr,
		Value:    units,
		Script:   w.scriptFor(addr),
	}
	if err := w.coins.Apply(op.TxID, nil, []*utxo.Coin{c}); err != nil {
		if rerr := w.ledger.Debit(label, amount); rerr != nil {
			lg := log.WithLabel(label)
			lg.Error().Err(rerr).
				Str("outpoint", op.String()).
				Msg("Failed to revert receipt credit")
		}
		return "", err
	}
	log.Wallet.Debug().
		Str("outpoint", op.String()).
		Str("address", addr.String()).
		Str("label", label).
		Str("amount", config.FormatUnits(units)).
		Msg("Coin received")
	return label, nil
}

// scriptFor returns the locking script paying to addr.
func (w *Wallet) scriptFor(addr types.Address) types.Script {
	if _, ok := w.keys.Script(addr); ok {
		return types.PayToScriptHash(addr)
	}
	return types.PayToPubKeyHash(addr)
}
