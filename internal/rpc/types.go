package rpc

import "github.com/shopspring/decimal"

// JSON-RPC 2.0 error codes.
const (
	CodeParseError     = -32700
	CodeInvalidRequest = -32600
	CodeMethodNotFound = -32601
	CodeInvalidParams  = -32602
	CodeInternalError  = -32603
	CodeNotFound       = -32000
)

// Wallet error codes.
const (
	CodeWalletError          = -32010
	CodeInsufficientFunds    = -32011 // Coin pool cannot cover a payment.
	CodeInsufficientLedger   = -32012 // Label balance cannot cover a debit.
	CodeWalletLocked         = -32013
	CodeInvalidAddressOrKey  = -32014
	CodeInvalidKeyFormat     = -32015
	CodeAddressNotOwned      = -32016
	CodeDuplicateCoin        = -32017
	CodeWalletPasswordFailed = -32018
)

// Request is a JSON-RPC 2.0 request.
type Request struct {
	JSONRPC string      `json:"jsonrpc"`
	Method  string      `json:"method"`
	Params  interface{} `json:"params"`
	ID      interface{} `json:"id"`
}

// Response is a JSON-RPC 2.0 response.
type Response struct {
	JSONRPC string      `json:"jsonrpc"`
	Result  interface{} `json:"result,omitempty"`
	Error   *Error      `json:"error,omitempty"`
	ID      interface{} `json:"id"`
}

// Error is a JSON-RPC 2.0 error object.
type Error struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

// ── Param types ─────────────────────────────────────────────────────────

// AccountParam is used by endpoints that take a single label. An absent
// label means the default account.
type AccountParam struct {
	Account string `json:"account"`
}

// AddressParam is used by getaccount and dumpprivkey.
type AddressParam struct {
	Address string `json:"address"`
}

// SetAccountParam is used by setaccount.
type SetAccountParam struct {
	Address string `json:"address"`
	Account string `json:"account"`
}

// BalanceParam is used by getbalance. Coins selects the coin view of the
// label instead of its ledger balance.
type BalanceParam struct {
	Account string `json:"account"`
	Coins   bool   `json:"coins,omitempty"`
}

// MoveParam is used by move.
type MoveParam struct {
	From   string          `json:"from"`
	To     string          `json:"to"`
	Amount decimal.Decimal `json:"amount"`
}

// SendFromParam is used by sendfrom.
type SendFromParam struct {
	From    string          `json:"from"`
	Address string          `json:"address"`
	Amount  decimal.Decimal `json:"amount"`
}

// ReceiveParam is used by receive to record an incoming coin.
type ReceiveParam struct {
	TxID    string          `json:"tx_id"`
	Index   uint32          `json:"index"`
	Address string          `json:"address"`
	Amount  decimal.Decimal `json:"amount"`
}

// MultisigParam is used by createmultisig and addmultisigaddress. Keys
// holds hex public keys or wallet addresses. Sort is one of "default",
// "sort" or "nosort".
type MultisigParam struct {
	Threshold int      `json:"threshold"`
	Keys      []string `json:"keys"`
	Account   string   `json:"account,omitempty"`
	Sort      string   `json:"sort,omitempty"`
}

// ImportPrivKeyParam is used by importprivkey.
type ImportPrivKeyParam struct {
	Key     string `json:"key"`
	Account string `json:"account"`
}

// ImportPubKeyParam is used by importpubkey.
type ImportPubKeyParam struct {
	PubKey  string `json:"pubkey"`
	Account string `json:"account"`
}

// PassphraseParam is used by walletpassphrase.
type PassphraseParam struct {
	Passphrase string `json:"passphrase"`
}

// ── Result types ────────────────────────────────────────────────────────

// ReceiveResult reports which label an incoming coin was credited to.
type ReceiveResult struct {
	Account string `json:"account"`
}

// MultisigResult describes a derived multisig address.
type MultisigResult struct {
	Address       string `json:"address"`
	LegacyAddress string `json:"legacy_address"`
	RedeemScript  string `json:"redeem_script"`
	Sorted        bool   `json:"sorted"`
}

// ConsolidateResult reports the amount moved to the default account.
type ConsolidateResult struct {
	Account string          `json:"account"`
	Moved   decimal.Decimal `json:"moved"`
}
