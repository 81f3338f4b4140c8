package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/Klingon-tech/klingnet-accounts/config"
	"github.com/Klingon-tech/klingnet-accounts/internal/multisig"
	"github.com/Klingon-tech/klingnet-accounts/internal/rpc"
	"github.com/Klingon-tech/klingnet-accounts/internal/wallet"
	"github.com/Klingon-tech/klingnet-accounts/pkg/types"
)

type command struct {
	name  string
	short string
	long  string
	data  interface{}
}

var commands = []command{
	{"create", "Create a new wallet", "Create a new wallet from a fresh or given BIP-39 mnemonic.", &createCmd{}},
	{"getaccountaddress", "Show the current receiving address of a label", "", &getAccountAddressCmd{}},
	{"getnewaddress", "Mint a new address", "Mint a new address, assigned to label when one is given.", &getNewAddressCmd{}},
	{"getaccount", "Show the label owning an address", "", &getAccountCmd{}},
	{"getaddressesbyaccount", "List the addresses of a label", "", &getAddressesByAccountCmd{}},
	{"setaccount", "Assign an address to a label", "", &setAccountCmd{}},
	{"getbalance", "Show the ledger balance of a label", "", &getBalanceCmd{}},
	{"getreceivedbyaccount", "Show the total ever received by a label", "", &getReceivedByAccountCmd{}},
	{"listaccounts", "List label balances", "", &listAccountsCmd{}},
	{"getcoinsetinfo", "Summarize the shared coin pool", "", &getCoinSetInfoCmd{}},
	{"move", "Move balance between labels", "Move balance between labels. No coins are spent.", &moveCmd{}},
	{"consolidate", "Move a label's coin value to the default account", "", &consolidateCmd{}},
	{"sendfrom", "Pay an address, charging a label", "", &sendFromCmd{}},
	{"receive", "Record an incoming coin", "Record a coin received at a wallet address and credit the label owning it.", &receiveCmd{}},
	{"createmultisig", "Derive a multisig address", "Derive a multisig address from public keys or wallet addresses without storing it.", &createMultisigCmd{}},
	{"addmultisigaddress", "Add a multisig address to the wallet", "", &addMultisigAddressCmd{}},
	{"importprivkey", "Import a WIF private key", "", &importPrivKeyCmd{}},
	{"importpubkey", "Import a watch-only public key", "", &importPubKeyCmd{}},
	{"dumpprivkey", "Reveal the WIF private key of an address", "", &dumpPrivKeyCmd{}},
	{"serve", "Run the wallet JSON-RPC server", "Unlock the wallet and serve JSON-RPC requests until interrupted.", &serveCmd{}},
	{"call", "Call a running wallet RPC server", "Send one JSON-RPC request to a running serve instance and print the result.", &callCmd{}},
}

func withWallet(fn func(w *wallet.Wallet) error) error {
	s, err := openWallet()
	if err != nil {
		return err
	}
	defer s.Close()
	return fn(s.wallet)
}

func withUnlockedWallet(fn func(w *wallet.Wallet) error) error {
	s, err := openUnlocked()
	if err != nil {
		return err
	}
	defer s.Close()
	defer s.wallet.Lock()
	return fn(s.wallet)
}

func printJSON(v interface{}) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// ── create ──────────────────────────────────────────────────────────────

type createCmd struct {
	Mnemonic   string `long:"mnemonic" description:"Restore from an existing BIP-39 mnemonic"`
	Passphrase string `long:"passphrase" description:"Optional BIP-39 passphrase"`
}

func (c *createCmd) Execute(_ []string) error {
	cfg, err := setup()
	if err != nil {
		return err
	}

	mnemonic := c.Mnemonic
	generated := mnemonic == ""
	if generated {
		if mnemonic, err = wallet.GenerateMnemonic(); err != nil {
			return err
		}
	} else if !wallet.ValidateMnemonic(mnemonic) {
		return errors.New("invalid mnemonic")
	}
	seed, err := wallet.SeedFromMnemonic(mnemonic, c.Passphrase)
	if err != nil {
		return err
	}

	password, err := readPassword("New password: ")
	if err != nil {
		return fmt.Errorf("read password: %w", err)
	}
	confirm, err := readPassword("Confirm password: ")
	if err != nil {
		return fmt.Errorf("read password: %w", err)
	}
	if !bytes.Equal(password, confirm) {
		return errors.New("passwords do not match")
	}

	db, err := openDB(cfg)
	if err != nil {
		return err
	}
	defer db.Close()
	if _, err := wallet.Create(db, seed, password, wallet.DefaultParams(), walletOptions(cfg)); err != nil {
		return err
	}

	if generated {
		fmt.Println("Mnemonic (write it down, it is the only backup):")
		fmt.Println(mnemonic)
	}
	fmt.Printf("Wallet created in %s\n", cfg.WalletDir())
	return nil
}

// ── addresses and labels ────────────────────────────────────────────────

type labelArg struct {
	Label string `positional-arg-name:"label"`
}

type getAccountAddressCmd struct {
	Args labelArg `positional-args:"yes"`
}

func (c *getAccountAddressCmd) Execute(_ []string) error {
	return withWallet(func(w *wallet.Wallet) error {
		addr, err := w.GetAccountAddress(c.Args.Label)
		if err != nil {
			return err
		}
		fmt.Println(addr)
		return nil
	})
}

type getNewAddressCmd struct {
	Args labelArg `positional-args:"yes"`
}

func (c *getNewAddressCmd) Execute(_ []string) error {
	return withWallet(func(w *wallet.Wallet) error {
		addr, err := w.GetNewAddress(c.Args.Label)
		if err != nil {
			return err
		}
		fmt.Println(addr)
		return nil
	})
}

type getAccountCmd struct {
	Args struct {
		Address string `positional-arg-name:"address" required:"yes"`
	} `positional-args:"yes"`
}

func (c *getAccountCmd) Execute(_ []string) error {
	addr, err := types.ParseAddress(c.Args.Address)
	if err != nil {
		return err
	}
	return withWallet(func(w *wallet.Wallet) error {
		label, err := w.GetAccount(addr)
		if err != nil {
			return err
		}
		fmt.Printf("%q\n", label)
		return nil
	})
}

type getAddressesByAccountCmd struct {
	Args labelArg `positional-args:"yes"`
}

func (c *getAddressesByAccountCmd) Execute(_ []string) error {
	return withWallet(func(w *wallet.Wallet) error {
		addrs := w.GetAddressesByAccount(c.Args.Label)
		if addrs == nil {
			addrs = []types.Address{}
		}
		return printJSON(addrs)
	})
}

type setAccountCmd struct {
	Args struct {
		Address string `positional-arg-name:"address" required:"yes"`
		Label   string `positional-arg-name:"label"`
	} `positional-args:"yes"`
}

func (c *setAccountCmd) Execute(_ []string) error {
	addr, err := types.ParseAddress(c.Args.Address)
	if err != nil {
		return err
	}
	return withWallet(func(w *wallet.Wallet) error {
		return w.SetAccount(addr, c.Args.Label)
	})
}

// ── balances ────────────────────────────────────────────────────────────

type getBalanceCmd struct {
	Coins bool     `long:"coins" description:"Show the value of unspent coins at the label's addresses instead"`
	Args  labelArg `positional-args:"yes"`
}

func (c *getBalanceCmd) Execute(_ []string) error {
	return withWallet(func(w *wallet.Wallet) error {
		if !c.Coins {
			fmt.Println(w.GetBalance(c.Args.Label).StringFixed(config.Decimals))
			return nil
		}
		bal, err := w.GetCoinBalance(c.Args.Label)
		if err != nil {
			return err
		}
		fmt.Println(bal.StringFixed(config.Decimals))
		return nil
	})
}

type getReceivedByAccountCmd struct {
	Args labelArg `positional-args:"yes"`
}

func (c *getReceivedByAccountCmd) Execute(_ []string) error {
	return withWallet(func(w *wallet.Wallet) error {
		total, err := w.GetReceivedByAccount(c.Args.Label)
		if err != nil {
			return err
		}
		fmt.Println(total.StringFixed(config.Decimals))
		return nil
	})
}

type listAccountsCmd struct{}

func (c *listAccountsCmd) Execute(_ []string) error {
	return withWallet(func(w *wallet.Wallet) error {
		out := make(map[string]string)
		for label, bal := range w.ListAccounts() {
			out[label] = bal.StringFixed(config.Decimals)
		}
		return printJSON(out)
	})
}

type getCoinSetInfoCmd struct{}

func (c *getCoinSetInfoCmd) Execute(_ []string) error {
	return withWallet(func(w *wallet.Wallet) error {
		info, err := w.GetCoinSetInfo()
		if err != nil {
			return err
		}
		return printJSON(info)
	})
}

type moveCmd struct {
	Args struct {
		From   string `positional-arg-name:"from" required:"yes"`
		To     string `positional-arg-name:"to" required:"yes"`
		Amount string `positional-arg-name:"amount" required:"yes"`
	} `positional-args:"yes"`
}

func (c *moveCmd) Execute(_ []string) error {
	amount, err := config.ParseAmount(c.Args.Amount)
	if err != nil {
		return err
	}
	return withWallet(func(w *wallet.Wallet) error {
		return w.Move(c.Args.From, c.Args.To, amount)
	})
}

type consolidateCmd struct {
	Args struct {
		Label string `positional-arg-name:"label" required:"yes"`
	} `positional-args:"yes"`
}

func (c *consolidateCmd) Execute(_ []string) error {
	return withWallet(func(w *wallet.Wallet) error {
		moved, err := w.Consolidate(c.Args.Label)
		if err != nil {
			return err
		}
		fmt.Println(moved.StringFixed(config.Decimals))
		return nil
	})
}

// ── coins ───────────────────────────────────────────────────────────────

type sendFromCmd struct {
	Args struct {
		From    string `positional-arg-name:"from" required:"yes"`
		Address string `positional-arg-name:"address" required:"yes"`
		Amount  string `positional-arg-name:"amount" required:"yes"`
	} `positional-args:"yes"`
}

func (c *sendFromCmd) Execute(_ []string) error {
	to, err := types.ParseAddress(c.Args.Address)
	if err != nil {
		return err
	}
	amount, err := config.ParseAmount(c.Args.Amount)
	if err != nil {
		return err
	}
	return withWallet(func(w *wallet.Wallet) error {
		txid, err := w.SendFrom(c.Args.From, to, amount)
		if err != nil {
			return err
		}
		fmt.Println(txid)
		return nil
	})
}

type receiveCmd struct {
	Args struct {
		TxID    string `positional-arg-name:"txid" required:"yes"`
		Index   uint32 `positional-arg-name:"index" required:"yes"`
		Address string `positional-arg-name:"address" required:"yes"`
		Amount  string `positional-arg-name:"amount" required:"yes"`
	} `positional-args:"yes"`
}

func (c *receiveCmd) Execute(_ []string) error {
	txid, err := types.HexToHash(c.Args.TxID)
	if err != nil {
		return err
	}
	addr, err := types.ParseAddress(c.Args.Address)
	if err != nil {
		return err
	}
	amount, err := config.ParseAmount(c.Args.Amount)
	if err != nil {
		return err
	}
	units, err := config.ToUnits(amount)
	if err != nil {
		return err
	}
	return withWallet(func(w *wallet.Wallet) error {
		label, err := w.ReceiveCoin(types.Outpoint{TxID: txid, Index: c.Args.Index}, addr, units)
		if err != nil {
			return err
		}
		fmt.Printf("Credited %s to %q\n", amount.StringFixed(config.Decimals), label)
		return nil
	})
}

// ── multisig ────────────────────────────────────────────────────────────

type multisigArgs struct {
	NRequired int      `positional-arg-name:"nrequired" required:"yes"`
	Keys      []string `positional-arg-name:"key" required:"yes"`
}

type createMultisigCmd struct {
	Sort string       `long:"sort" choice:"default" choice:"sort" choice:"nosort" default:"default" description:"Key ordering"`
	Args multisigArgs `positional-args:"yes"`
}

func (c *createMultisigCmd) Execute(_ []string) error {
	policy, err := multisig.ParseSortPolicy(c.Sort)
	if err != nil {
		return err
	}
	return withWallet(func(w *wallet.Wallet) error {
		addr, desc, err := w.CreateMultisig(c.Args.NRequired, c.Args.Keys, policy)
		if err != nil {
			return err
		}
		res, err := rpc.NewMultisigResult(addr, desc, w.Params())
		if err != nil {
			return err
		}
		return printJSON(res)
	})
}

type addMultisigAddressCmd struct {
	Sort    string       `long:"sort" choice:"default" choice:"sort" choice:"nosort" default:"default" description:"Key ordering"`
	Account string       `short:"a" long:"account" description:"Label to assign the address to"`
	Args    multisigArgs `positional-args:"yes"`
}

func (c *addMultisigAddressCmd) Execute(_ []string) error {
	policy, err := multisig.ParseSortPolicy(c.Sort)
	if err != nil {
		return err
	}
	return withWallet(func(w *wallet.Wallet) error {
		addr, desc, err := w.AddMultisigAddress(c.Args.NRequired, c.Args.Keys, c.Account, policy)
		if err != nil {
			return err
		}
		res, err := rpc.NewMultisigResult(addr, desc, w.Params())
		if err != nil {
			return err
		}
		return printJSON(res)
	})
}

// ── keys ────────────────────────────────────────────────────────────────

type importPrivKeyCmd struct {
	Args struct {
		WIF   string `positional-arg-name:"wif" required:"yes"`
		Label string `positional-arg-name:"label"`
	} `positional-args:"yes"`
}

func (c *importPrivKeyCmd) Execute(_ []string) error {
	return withUnlockedWallet(func(w *wallet.Wallet) error {
		addr, err := w.ImportPrivKey(c.Args.WIF, c.Args.Label)
		if err != nil {
			return err
		}
		fmt.Println(addr)
		return nil
	})
}

type importPubKeyCmd struct {
	Args struct {
		PubKey string `positional-arg-name:"pubkey" required:"yes"`
		Label  string `positional-arg-name:"label"`
	} `positional-args:"yes"`
}

func (c *importPubKeyCmd) Execute(_ []string) error {
	return withWallet(func(w *wallet.Wallet) error {
		addr, err := w.ImportPubKey(c.Args.PubKey, c.Args.Label)
		if err != nil {
			return err
		}
		fmt.Println(addr)
		return nil
	})
}

type dumpPrivKeyCmd struct {
	Args struct {
		Address string `positional-arg-name:"address" required:"yes"`
	} `positional-args:"yes"`
}

func (c *dumpPrivKeyCmd) Execute(_ []string) error {
	addr, err := types.ParseAddress(c.Args.Address)
	if err != nil {
		return err
	}
	return withUnlockedWallet(func(w *wallet.Wallet) error {
		wif, err := w.DumpPrivKey(addr)
		if err != nil {
			return err
		}
		fmt.Println(wif)
		return nil
	})
}
