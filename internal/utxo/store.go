package utxo

import (
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/Klingon-tech/klingnet-accounts/internal/storage"
	"github.com/Klingon-tech/klingnet-accounts/pkg/types"
)

// Key prefixes for the coin store.
var (
	prefixCoin = []byte("u/") // u/<txid><index> -> Coin JSON
	prefixAddr = []byte("a/") // a/<address><txid><index> -> empty (index)
)

var (
	// ErrCoinNotFound is returned when an outpoint is unknown to the store.
	ErrCoinNotFound = errors.New("coin not found")
	// ErrAlreadySpent is returned when spending a coin twice.
	ErrAlreadySpent = errors.New("coin already spent")
	// ErrDuplicateCoin is returned when recording an outpoint twice.
	ErrDuplicateCoin = errors.New("coin already exists")
)

// Store implements Set backed by a storage.DB.
type Store struct {
	db storage.DB
	mu sync.Mutex // guards Apply's check-then-commit
}

// NewStore creates a new coin store backed by the given database.
func NewStore(db storage.DB) *Store {
	return &Store{db: db}
}

// coinKey builds a storage key for an outpoint: "u/" + txid(32) + index(4).
func coinKey(op types.Outpoint) []byte {
	key := make([]byte, len(prefixCoin)+types.HashSize+4)
	copy(key, prefixCoin)
	copy(key[len(prefixCoin):], op.TxID[:])
	binary.BigEndian.PutUint32(key[len(prefixCoin)+types.HashSize:], op.Index)
	return key
}

// addrKey builds an address index key: "a/" + addr(20) + txid(32) + index(4).
func addrKey(addr types.Address, op types.Outpoint) []byte {
	key := make([]byte, len(prefixAddr)+types.AddressSize+types.HashSize+4)
	copy(key, prefixAddr)
	copy(key[len(prefixAddr):], addr[:])
	off := len(prefixAddr) + types.AddressSize
	copy(key[off:], op.TxID[:])
	binary.BigEndian.PutUint32(key[off+types.HashSize:], op.Index)
	return key
}

// Get retrieves a coin by its outpoint.
func (s *Store) Get(outpoint types.Outpoint) (*Coin, error) {
	data, err := s.db.Get(coinKey(outpoint))
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrCoinNotFound, outpoint)
		}
		return nil, fmt.Errorf("coin get: %w", err)
	}
	var c Coin
	if err := json.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("coin unmarshal: %w", err)
	}
	return &c, nil
}

// Put stores a coin and updates the address index.
func (s *Store) Put(c *Coin) error {
	b := storage.NewBatch(s.db)
	if err := putCoin(b, c); err != nil {
		return err
	}
	if err := b.Commit(); err != nil {
		return fmt.Errorf("coin put: %w", err)
	}
	return nil
}

func putCoin(b storage.Batch, c *Coin) error {
	data, err := json.Marshal(c)
	if err != nil {
		return fmt.Errorf("coin marshal: %w", err)
	}
	if err := b.Put(coinKey(c.Outpoint), data); err != nil {
		return fmt.Errorf("coin put: %w", err)
	}
	if err := b.Put(addrKey(c.Address, c.Outpoint), []byte{}); err != nil {
		return fmt.Errorf("coin index put: %w", err)
	}
	return nil
}

// Has checks if a coin exists for the given outpoint, spent or not.
func (s *Store) Has(outpoint types.Outpoint) (bool, error) {
	return s.db.Has(coinKey(outpoint))
}

// IsSpent reports whether the coin at outpoint has been spent.
func (s *Store) IsSpent(outpoint types.Outpoint) (bool, error) {
	c, err := s.Get(outpoint)
	if err != nil {
		return false, err
	}
	return c.Spent, nil
}

// Apply marks spent as spent by txid and records created, in one batch.
// Nothing is written if any input is unknown or already spent, or if any
// created outpoint already exists.
func (s *Store) Apply(txid types.Hash, spent []types.Outpoint, created []*Coin) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	b := storage.NewBatch(s.db)
	seen := make(map[types.Outpoint]struct{}, len(spent))
	for _, op := range spent {
		if _, dup := seen[op]; dup {
			return fmt.Errorf("%w: %s", ErrAlreadySpent, op)
		}
		seen[op] = struct{}{}

		c, err := s.Get(op)
		if err != nil {
			return err
		}
		if c.Spent {
			return fmt.Errorf("%w: %s", ErrAlreadySpent, op)
		}
		c.Spent = true
		c.SpentBy = txid
		if err := putCoin(b, c); err != nil {
			return err
		}
	}
	for _, c := range created {
		ok, err := s.Has(c.Outpoint)
		if err != nil {
			return fmt.Errorf("coin has: %w", err)
		}
		if ok {
			return fmt.Errorf("%w: %s", ErrDuplicateCoin, c.Outpoint)
		}
		if err := putCoin(b, c); err != nil {
			return err
		}
	}
	if err := b.Commit(); err != nil {
		return fmt.Errorf("coin apply: %w", err)
	}
	return nil
}

// ForEach iterates over all coins in the store, spent ones included.
func (s *Store) ForEach(fn func(*Coin) error) error {
	return s.db.ForEach(prefixCoin, func(key, value []byte) error {
		var c Coin
		if err := json.Unmarshal(value, &c); err != nil {
			return fmt.Errorf("coin unmarshal: %w", err)
		}
		return fn(&c)
	})
}

// ForEachUnspent iterates over unspent coins only.
func (s *Store) ForEachUnspent(fn func(*Coin) error) error {
	return s.ForEach(func(c *Coin) error {
		if c.Spent {
			return nil
		}
		return fn(c)
	})
}

// ListByAddress returns every coin ever received at addr, spent or not.
// It scans the address index and loads each referenced coin.
func (s *Store) ListByAddress(addr types.Address) ([]*Coin, error) {
	// Build the prefix: "a/" + addr(20).
	prefix := make([]byte, len(prefixAddr)+types.AddressSize)
	copy(prefix, prefixAddr)
	copy(prefix[len(prefixAddr):], addr[:])

	var coins []*Coin
	err := s.db.ForEach(prefix, func(key, _ []byte) error {
		// Key layout: "a/" + addr(20) + txid(32) + index(4).
		off := len(prefixAddr) + types.AddressSize
		if len(key) < off+types.HashSize+4 {
			return nil // Malformed key, skip.
		}
		var op types.Outpoint
		copy(op.TxID[:], key[off:off+types.HashSize])
		op.Index = binary.BigEndian.Uint32(key[off+types.HashSize:])

		c, err := s.Get(op)
		if err != nil {
			return err
		}
		coins = append(coins, c)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("scan address index: %w", err)
	}
	return coins, nil
}

// ListUnspent returns the unspent coins at addr.
func (s *Store) ListUnspent(addr types.Address) ([]*Coin, error) {
	all, err := s.ListByAddress(addr)
	if err != nil {
		return nil, err
	}
	unspent := all[:0]
	for _, c := range all {
		if !c.Spent {
			unspent = append(unspent, c)
		}
	}
	return unspent, nil
}

// Seen reports whether any coin, spent or unspent, was ever recorded at addr.
func (s *Store) Seen(addr types.Address) (bool, error) {
	prefix := make([]byte, len(prefixAddr)+types.AddressSize)
	copy(prefix, prefixAddr)
	copy(prefix[len(prefixAddr):], addr[:])

	errStop := errors.New("stop")
	err := s.db.ForEach(prefix, func(_, _ []byte) error {
		return errStop
	})
	switch {
	case errors.Is(err, errStop):
		return true, nil
	case err != nil:
		return false, fmt.Errorf("scan address index: %w", err)
	}
	return false, nil
}
