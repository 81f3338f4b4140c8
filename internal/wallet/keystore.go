package wallet

import (
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/Klingon-tech/klingnet-accounts/internal/log"
	"github.com/Klingon-tech/klingnet-accounts/internal/storage"
	"github.com/Klingon-tech/klingnet-accounts/pkg/crypto"
	"github.com/Klingon-tech/klingnet-accounts/pkg/types"
	"github.com/btcsuite/btcd/btcutil"
)

// Keystore errors.
var (
	ErrWalletExists   = errors.New("wallet already exists")
	ErrNoWallet       = errors.New("wallet not found")
	ErrLocked         = errors.New("wallet is locked")
	ErrUnknownAddress = errors.New("address not in keystore")
	ErrNoPrivateKey   = errors.New("no private key for address")
)

const keystoreVersion = 1

var (
	metaKey     = []byte("meta")
	prefixEntry = []byte("a/")
)

// keyKind says how the wallet came to know an address.
type keyKind uint8

const (
	kindHD keyKind = iota + 1
	kindImported
	kindWatch
	kindScript
)

// keystoreMeta is the persisted wallet header.
type keystoreMeta struct {
	Version           int       `json:"version"`
	CreatedAt         time.Time `json:"created_at"`
	EncryptedSeed     []byte    `json:"encrypted_seed"`
	ExternalXPub      string    `json:"external_xpub"` // m/44'/8888'/0'/0
	InternalXPub      string    `json:"internal_xpub"` // m/44'/8888'/0'/1
	NextExternalIndex uint32    `json:"next_external_index"`
	NextChangeIndex   uint32    `json:"next_change_index"`
}

// keyEntry is the persisted record for one address.
type keyEntry struct {
	Kind       keyKind `json:"kind"`
	Change     uint32  `json:"change,omitempty"`
	Index      uint32  `json:"index,omitempty"`
	PubKey     []byte  `json:"pubkey,omitempty"`
	SealedPriv []byte  `json:"sealed_priv,omitempty"`
	Script     []byte  `json:"script,omitempty"`
}

func entryKey(addr types.Address) []byte {
	return append(append([]byte{}, prefixEntry...), addr[:]...)
}

// KeyStore holds the wallet's keys and scripts in a storage.DB. Addresses
// are minted from the account extended public keys, so minting works while
// the seed is locked. Safe for concurrent use.
type KeyStore struct {
	mu       sync.Mutex
	db       storage.DB
	meta     keystoreMeta
	external *HDKey
	internal *HDKey
	entries  map[types.Address]*keyEntry

	// Set only while unlocked.
	master    *HDKey
	importKey []byte
}

// CreateKeyStore initializes a new keystore in db from seed, sealing the
// seed under password. The returned keystore is unlocked.
func CreateKeyStore(db storage.DB, seed, password []byte, params EncryptionParams) (*KeyStore, error) {
	exists, err := db.Has(metaKey)
	if err != nil {
		return nil, fmt.Errorf("keystore meta: %w", err)
	}
	if exists {
		return nil, ErrWalletExists
	}

	master, err := NewMasterKey(seed)
	if err != nil {
		return nil, err
	}
	account, err := master.DeriveAccount(0)
	if err != nil {
		return nil, err
	}
	external, err := account.DeriveChild(ChangeExternal)
	if err != nil {
		return nil, err
	}
	internal, err := account.DeriveChild(ChangeInternal)
	if err != nil {
		return nil, err
	}

	encrypted, err := Encrypt(seed, password, params)
	if err != nil {
		return nil, fmt.Errorf("encrypt seed: %w", err)
	}

	ks := &KeyStore{
		db: db,
		meta: keystoreMeta{
			Version:       keystoreVersion,
			CreatedAt:     time.Now().UTC(),
			EncryptedSeed: encrypted,
			ExternalXPub:  external.Neuter().Serialize(),
			InternalXPub:  internal.Neuter().Serialize(),
		},
		external:  external.Neuter(),
		internal:  internal.Neuter(),
		entries:   make(map[types.Address]*keyEntry),
		master:    master,
		importKey: importKeyFromSeed(seed),
	}
	data, err := json.Marshal(&ks.meta)
	if err != nil {
		return nil, fmt.Errorf("marshal keystore meta: %w", err)
	}
	if err := db.Put(metaKey, data); err != nil {
		return nil, fmt.Errorf("write keystore meta: %w", err)
	}
	log.Keys.Info().Msg("Keystore created")
	return ks, nil
}

// OpenKeyStore loads an existing keystore from db. The keystore starts locked.
func OpenKeyStore(db storage.DB) (*KeyStore, error) {
	data, err := db.Get(metaKey)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, ErrNoWallet
	}
	if err != nil {
		return nil, fmt.Errorf("read keystore meta: %w", err)
	}

	ks := &KeyStore{
		db:      db,
		entries: make(map[types.Address]*keyEntry),
	}
	if err := json.Unmarshal(data, &ks.meta); err != nil {
		return nil, fmt.Errorf("parse keystore meta: %w", err)
	}
	if ks.meta.Version != keystoreVersion {
		return nil, fmt.Errorf("unsupported keystore version: %d", ks.meta.Version)
	}
	if ks.external, err = ParseExtendedKey(ks.meta.ExternalXPub); err != nil {
		return nil, fmt.Errorf("external chain: %w", err)
	}
	if ks.internal, err = ParseExtendedKey(ks.meta.InternalXPub); err != nil {
		return nil, fmt.Errorf("internal chain: %w", err)
	}

	err = db.ForEach(prefixEntry, func(key, value []byte) error {
		var addr types.Address
		if len(key) != len(prefixEntry)+types.AddressSize {
			return fmt.Errorf("malformed keystore key %x", key)
		}
		copy(addr[:], key[len(prefixEntry):])
		var e keyEntry
		if err := json.Unmarshal(value, &e); err != nil {
			return fmt.Errorf("entry %s: %w", addr, err)
		}
		ks.entries[addr] = &e
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("load keystore entries: %w", err)
	}
	log.Keys.Debug().Int("entries", len(ks.entries)).Msg("Keystore opened")
	return ks, nil
}

// Unlock decrypts the seed. It fails with ErrWrongPassword on a bad password.
func (ks *KeyStore) Unlock(password []byte) error {
	ks.mu.Lock()
	defer ks.mu.Unlock()

	seed, err := Decrypt(ks.meta.EncryptedSeed, password)
	if err != nil {
		return err
	}
	defer zero(seed)

	master, err := NewMasterKey(seed)
	if err != nil {
		return err
	}
	account, err := master.DeriveAccount(0)
	if err != nil {
		return err
	}
	ext, err := account.DeriveChild(ChangeExternal)
	if err != nil {
		return err
	}
	if ext.Neuter().Serialize() != ks.meta.ExternalXPub {
		return fmt.Errorf("seed does not match stored account key")
	}
	ks.master = master
	ks.importKey = importKeyFromSeed(seed)
	log.Keys.Debug().Msg("Keystore unlocked")
	return nil
}

// Lock drops the decrypted seed material.
func (ks *KeyStore) Lock() {
	ks.mu.Lock()
	defer ks.mu.Unlock()
	ks.master = nil
	zero(ks.importKey)
	ks.importKey = nil
}

// IsLocked reports whether the seed is currently sealed.
func (ks *KeyStore) IsLocked() bool {
	ks.mu.Lock()
	defer ks.mu.Unlock()
	return ks.master == nil
}

// MintAddress derives the next unused receiving address.
func (ks *KeyStore) MintAddress() (types.Address, error) {
	return ks.mint(ChangeExternal)
}

// MintChangeAddress derives the next address on the internal chain.
func (ks *KeyStore) MintChangeAddress() (types.Address, error) {
	return ks.mint(ChangeInternal)
}

func (ks *KeyStore) mint(change uint32) (types.Address, error) {
	ks.mu.Lock()
	defer ks.mu.Unlock()

	chain, index := ks.external, ks.meta.NextExternalIndex
	if change == ChangeInternal {
		chain, index = ks.internal, ks.meta.NextChangeIndex
	}
	child, err := chain.DeriveChild(index)
	if err != nil {
		return types.Address{}, err
	}
	pub := child.PublicKey()
	addr := pub.Address()

	meta := ks.meta
	if change == ChangeInternal {
		meta.NextChangeIndex++
	} else {
		meta.NextExternalIndex++
	}
	e := &keyEntry{Kind: kindHD, Change: change, Index: index, PubKey: pub.Bytes()}
	if err := ks.commit(&meta, addr, e); err != nil {
		return types.Address{}, err
	}
	log.Keys.Debug().
		Str("address", addr.String()).
		Uint32("change", change).
		Uint32("index", index).
		Msg("Address minted")
	return addr, nil
}

// ImportPrivKey adds a WIF-encoded private key. The key is sealed at rest
// under a seed-derived key, so the keystore must be unlocked. Importing a
// known address is a no-op.
func (ks *KeyStore) ImportPrivKey(wif *btcutil.WIF) (types.Address, error) {
	ks.mu.Lock()
	defer ks.mu.Unlock()

	if ks.master == nil {
		return types.Address{}, ErrLocked
	}
	pub := crypto.NewPublicKey(wif.SerializePubKey())
	addr := pub.Address()
	if e, ok := ks.entries[addr]; ok && e.Kind != kindWatch {
		return addr, nil
	}

	priv := wif.PrivKey.Serialize()
	defer zero(priv)
	sealed, err := sealWithKey(ks.importKey, priv)
	if err != nil {
		return types.Address{}, err
	}
	e := &keyEntry{Kind: kindImported, PubKey: pub.Bytes(), SealedPriv: sealed}
	if err := ks.commit(nil, addr, e); err != nil {
		return types.Address{}, err
	}
	log.Keys.Info().Str("address", addr.String()).Msg("Private key imported")
	return addr, nil
}

// ImportPubKey adds a watch-only public key.
func (ks *KeyStore) ImportPubKey(pub crypto.PublicKey) (types.Address, error) {
	ks.mu.Lock()
	defer ks.mu.Unlock()

	addr := pub.Address()
	if _, ok := ks.entries[addr]; ok {
		return addr, nil
	}
	e := &keyEntry{Kind: kindWatch, PubKey: pub.Bytes()}
	if err := ks.commit(nil, addr, e); err != nil {
		return types.Address{}, err
	}
	log.Keys.Info().Str("address", addr.String()).Msg("Watch-only key imported")
	return addr, nil
}

// AddScript registers a redeem script under its script address.
func (ks *KeyStore) AddScript(addr types.Address, script []byte) error {
	ks.mu.Lock()
	defer ks.mu.Unlock()

	if crypto.AddressFromScript(script) != addr {
		return fmt.Errorf("script does not hash to %s", addr)
	}
	if _, ok := ks.entries[addr]; ok {
		return nil
	}
	e := &keyEntry{Kind: kindScript, Script: append([]byte{}, script...)}
	if err := ks.commit(nil, addr, e); err != nil {
		return err
	}
	log.Keys.Debug().Str("address", addr.String()).Msg("Script added")
	return nil
}

// Controls reports whether addr belongs to the wallet, watch-only keys
// and registered scripts included.
func (ks *KeyStore) Controls(addr types.Address) bool {
	ks.mu.Lock()
	defer ks.mu.Unlock()
	_, ok := ks.entries[addr]
	return ok
}

// IsWatchOnly reports whether addr is known only by its public key.
func (ks *KeyStore) IsWatchOnly(addr types.Address) bool {
	ks.mu.Lock()
	defer ks.mu.Unlock()
	e, ok := ks.entries[addr]
	return ok && e.Kind == kindWatch
}

// CanSpend reports whether the wallet holds the private key behind addr.
func (ks *KeyStore) CanSpend(addr types.Address) bool {
	ks.mu.Lock()
	defer ks.mu.Unlock()
	e, ok := ks.entries[addr]
	return ok && (e.Kind == kindHD || e.Kind == kindImported)
}

// IsCompressed reports whether pub is in compressed form. A key the wallet
// holds is judged by the serialization it was stored with.
func (ks *KeyStore) IsCompressed(pub crypto.PublicKey) bool {
	ks.mu.Lock()
	e, ok := ks.entries[pub.Address()]
	ks.mu.Unlock()
	if ok && len(e.PubKey) > 0 {
		return crypto.NewPublicKey(e.PubKey).IsCompressed()
	}
	return pub.IsCompressed()
}

// PubKey returns the public key behind a single-key address.
func (ks *KeyStore) PubKey(addr types.Address) (crypto.PublicKey, error) {
	ks.mu.Lock()
	defer ks.mu.Unlock()
	e, ok := ks.entries[addr]
	if !ok || len(e.PubKey) == 0 {
		return crypto.PublicKey{}, fmt.Errorf("%w: %s", ErrUnknownAddress, addr)
	}
	return crypto.NewPublicKey(e.PubKey), nil
}

// Script returns the redeem script registered for addr.
func (ks *KeyStore) Script(addr types.Address) ([]byte, bool) {
	ks.mu.Lock()
	defer ks.mu.Unlock()
	e, ok := ks.entries[addr]
	if !ok || e.Kind != kindScript {
		return nil, false
	}
	return append([]byte{}, e.Script...), true
}

// PrivateKey returns the private key for addr and whether its public key
// is used in compressed form. The keystore must be unlocked.
func (ks *KeyStore) PrivateKey(addr types.Address) (*crypto.PrivateKey, bool, error) {
	ks.mu.Lock()
	defer ks.mu.Unlock()

	e, ok := ks.entries[addr]
	if !ok {
		return nil, false, fmt.Errorf("%w: %s", ErrUnknownAddress, addr)
	}
	compressed := crypto.NewPublicKey(e.PubKey).IsCompressed()
	switch e.Kind {
	case kindHD:
		if ks.master == nil {
			return nil, false, ErrLocked
		}
		k, err := ks.master.DeriveAddress(0, e.Change, e.Index)
		if err != nil {
			return nil, false, err
		}
		priv, err := k.PrivateKey()
		return priv, compressed, err
	case kindImported:
		if ks.master == nil {
			return nil, false, ErrLocked
		}
		raw, err := openWithKey(ks.importKey, e.SealedPriv)
		if err != nil {
			return nil, false, fmt.Errorf("open imported key: %w", err)
		}
		defer zero(raw)
		priv, err := crypto.PrivateKeyFromBytes(raw)
		return priv, compressed, err
	default:
		return nil, false, fmt.Errorf("%w: %s", ErrNoPrivateKey, addr)
	}
}

// commit writes e (and meta, when non-nil) in one batch, then updates memory.
// Caller holds ks.mu.
func (ks *KeyStore) commit(meta *keystoreMeta, addr types.Address, e *keyEntry) error {
	b := storage.NewBatch(ks.db)
	if meta != nil {
		data, err := json.Marshal(meta)
		if err != nil {
			return fmt.Errorf("marshal keystore meta: %w", err)
		}
		if err := b.Put(metaKey, data); err != nil {
			return err
		}
	}
	data, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("marshal key entry: %w", err)
	}
	if err := b.Put(entryKey(addr), data); err != nil {
		return err
	}
	if err := b.Commit(); err != nil {
		return fmt.Errorf("keystore write: %w", err)
	}
	if meta != nil {
		ks.meta = *meta
	}
	ks.entries[addr] = e
	return nil
}

// importKeyFromSeed derives the key imported private keys are sealed with.
func importKeyFromSeed(seed []byte) []byte {
	h := crypto.Hash(append([]byte("klingnet-accounts/import-key"), seed...))
	return h[:]
}
