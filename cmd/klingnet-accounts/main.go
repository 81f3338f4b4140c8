// klingnet-accounts is a command-line tool for the labelled accounts wallet.
package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/Klingon-tech/klingnet-accounts/config"
	"github.com/Klingon-tech/klingnet-accounts/internal/log"
	"github.com/Klingon-tech/klingnet-accounts/internal/storage"
	"github.com/Klingon-tech/klingnet-accounts/internal/wallet"
	"github.com/Klingon-tech/klingnet-accounts/pkg/types"
	flags "github.com/jessevdk/go-flags"
	"golang.org/x/term"
)

// opts holds the global options shared by every command.
var opts config.Options

// session is an opened wallet together with the database behind it.
type session struct {
	cfg    *config.Config
	db     storage.DB
	wallet *wallet.Wallet
}

func (s *session) Close() {
	if err := s.db.Close(); err != nil {
		log.CLI.Warn().Err(err).Msg("Failed to close wallet database")
	}
}

// setup loads the configuration and initializes logging and the address
// prefix for the selected network.
func setup() (*config.Config, error) {
	cfg, err := config.Load(&opts)
	if err != nil {
		return nil, err
	}
	if err := log.Init(cfg.Log.Level, cfg.Log.JSON, cfg.Log.File); err != nil {
		return nil, fmt.Errorf("init logging: %w", err)
	}
	types.SetAddressHRP(config.AddressHRP(cfg.Network))
	return cfg, nil
}

func openDB(cfg *config.Config) (storage.DB, error) {
	if cfg.Wallet.InMemory {
		return storage.NewMemory(), nil
	}
	db, err := storage.NewBadger(cfg.WalletDir())
	if err != nil {
		return nil, fmt.Errorf("open wallet database: %w", err)
	}
	return db, nil
}

func walletOptions(cfg *config.Config) wallet.Options {
	return wallet.Options{
		SortMultisig: cfg.Wallet.SortMultisig,
		Params:       config.LegacyParams(cfg.Network),
	}
}

// openWallet opens the existing wallet for the configured network.
func openWallet() (*session, error) {
	cfg, err := setup()
	if err != nil {
		return nil, err
	}
	db, err := openDB(cfg)
	if err != nil {
		return nil, err
	}
	w, err := wallet.Open(db, walletOptions(cfg))
	if err != nil {
		db.Close()
		if errors.Is(err, wallet.ErrNoWallet) {
			return nil, fmt.Errorf("no wallet in %s, run create first", cfg.WalletDir())
		}
		return nil, err
	}
	log.CLI.Debug().Str("network", string(cfg.Network)).Str("dir", cfg.WalletDir()).Msg("Wallet opened")
	return &session{cfg: cfg, db: db, wallet: w}, nil
}

// openUnlocked opens the wallet and unlocks it with a prompted password.
func openUnlocked() (*session, error) {
	s, err := openWallet()
	if err != nil {
		return nil, err
	}
	password, err := readPassword("Enter password: ")
	if err != nil {
		s.Close()
		return nil, fmt.Errorf("read password: %w", err)
	}
	if err := s.wallet.Unlock(password); err != nil {
		s.Close()
		return nil, err
	}
	return s, nil
}

func readPassword(prompt string) ([]byte, error) {
	fmt.Fprint(os.Stderr, prompt)
	password, err := term.ReadPassword(int(syscall.Stdin))
	fmt.Fprintln(os.Stderr) // newline after hidden input
	if err != nil {
		return nil, err
	}
	return password, nil
}

// newParser builds the command-line parser with every wallet command.
func newParser(appName string) (*flags.Parser, error) {
	parser := flags.NewNamedParser(appName, flags.HelpFlag|flags.PassDoubleDash)
	if _, err := parser.AddGroup("Global Options", "", &opts); err != nil {
		return nil, err
	}
	for _, c := range commands {
		if _, err := parser.AddCommand(c.name, c.short, c.long, c.data); err != nil {
			return nil, fmt.Errorf("command %s: %w", c.name, err)
		}
	}
	return parser, nil
}

func realMain() error {
	appName := filepath.Base(os.Args[0])
	appName = strings.TrimSuffix(appName, filepath.Ext(appName))
	parser, err := newParser(appName)
	if err != nil {
		return err
	}

	if _, err := parser.Parse(); err != nil {
		var ferr *flags.Error
		if errors.As(err, &ferr) && ferr.Type == flags.ErrHelp {
			parser.WriteHelp(os.Stderr)
			return err
		}
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return err
	}
	return nil
}

func main() {
	if err := realMain(); err != nil {
		os.Exit(1)
	}
}
