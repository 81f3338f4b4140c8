// Package rpcclient provides a JSON-RPC 2.0 client for the klingnet-accounts
// wallet server.
package rpcclient

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/Klingon-tech/klingnet-accounts/internal/ledger"
	"github.com/Klingon-tech/klingnet-accounts/internal/multisig"
	"github.com/Klingon-tech/klingnet-accounts/internal/rpc"
	"github.com/Klingon-tech/klingnet-accounts/internal/utxo"
	"github.com/Klingon-tech/klingnet-accounts/internal/wallet"
	"github.com/shopspring/decimal"
)

// DefaultTimeout bounds a single call when no timeout is configured.
const DefaultTimeout = 10 * time.Second

// Client talks to a wallet server over HTTP.
type Client struct {
	endpoint string
	http     *http.Client
	nextID   atomic.Int64
}

// New creates a client for endpoint with DefaultTimeout.
func New(endpoint string) *Client {
	return NewWithTimeout(endpoint, DefaultTimeout)
}

// NewWithTimeout creates a client whose calls give up after timeout.
// A non-positive timeout means DefaultTimeout.
func NewWithTimeout(endpoint string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Client{
		endpoint: endpoint,
		http:     &http.Client{Timeout: timeout},
	}
}

type request struct {
	JSONRPC string      `json:"jsonrpc"`
	Method  string      `json:"method"`
	Params  interface{} `json:"params,omitempty"`
	ID      int64       `json:"id"`
}

type response struct {
	JSONRPC string          `json:"jsonrpc"`
	Result  json.RawMessage `json:"result,omitempty"`
	Error   *rpc.Error      `json:"error,omitempty"`
	ID      int64           `json:"id"`
}

// RPCError is returned when the server responds with an error. Wallet
// error codes match the sentinel they were mapped from, so callers can
// use errors.Is(err, ledger.ErrInsufficientLedgerBalance) and the like.
type RPCError struct {
	Code    int
	Message string
}

func (e *RPCError) Error() string {
	return fmt.Sprintf("rpc error %d: %s", e.Code, e.Message)
}

// sentinels lists the wallet errors each server code stands for.
var sentinels = map[int][]error{
	rpc.CodeInsufficientFunds:    {wallet.ErrInsufficientFunds},
	rpc.CodeInsufficientLedger:   {ledger.ErrInsufficientLedgerBalance},
	rpc.CodeWalletLocked:         {wallet.ErrLocked},
	rpc.CodeInvalidAddressOrKey:  {wallet.ErrUnknownAddress, wallet.ErrNoPrivateKey},
	rpc.CodeInvalidKeyFormat:     {multisig.ErrInvalidKeyFormat},
	rpc.CodeAddressNotOwned:      {ledger.ErrAddressNotOwned},
	rpc.CodeDuplicateCoin:        {utxo.ErrDuplicateCoin},
	rpc.CodeWalletPasswordFailed: {wallet.ErrWrongPassword},
}

// Is reports whether the server error was produced from target.
func (e *RPCError) Is(target error) bool {
	for _, s := range sentinels[e.Code] {
		if s == target {
			return true
		}
	}
	return false
}

// Call invokes method and unmarshals the result into result.
// If result is nil, the response result is discarded.
func (c *Client) Call(method string, params, result interface{}) error {
	req := request{
		JSONRPC: "2.0",
		Method:  method,
		Params:  params,
		ID:      c.nextID.Add(1),
	}
	body, err := json.Marshal(req)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}

	resp, err := c.http.Post(c.endpoint, "application/json", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("http request: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}
	var rpcResp response
	if err := json.Unmarshal(data, &rpcResp); err != nil {
		return fmt.Errorf("decode response (HTTP %d): %w", resp.StatusCode, err)
	}
	if rpcResp.Error != nil {
		return &RPCError{Code: rpcResp.Error.Code, Message: rpcResp.Error.Message}
	}

	if result != nil && rpcResp.Result != nil {
		if err := json.Unmarshal(rpcResp.Result, result); err != nil {
			return fmt.Errorf("decode result: %w", err)
		}
	}
	return nil
}

// GetAccountAddress returns the current receiving address of account.
func (c *Client) GetAccountAddress(account string) (string, error) {
	var addr string
	err := c.Call("getaccountaddress", rpc.AccountParam{Account: account}, &addr)
	return addr, err
}

// GetBalance returns the ledger balance of account.
func (c *Client) GetBalance(account string) (decimal.Decimal, error) {
	var bal decimal.Decimal
	err := c.Call("getbalance", rpc.BalanceParam{Account: account}, &bal)
	return bal, err
}

// ListAccounts returns every listed account with its balance.
func (c *Client) ListAccounts() (map[string]decimal.Decimal, error) {
	var out map[string]decimal.Decimal
	err := c.Call("listaccounts", nil, &out)
	return out, err
}

// Move shifts amount from one account to another.
func (c *Client) Move(from, to string, amount decimal.Decimal) error {
	return c.Call("move", rpc.MoveParam{From: from, To: to, Amount: amount}, nil)
}

// SendFrom pays amount to address, charging account, and returns the txid.
func (c *Client) SendFrom(account, address string, amount decimal.Decimal) (string, error) {
	var txid string
	err := c.Call("sendfrom", rpc.SendFromParam{From: account, Address: address, Amount: amount}, &txid)
	return txid, err
}

// Receive records an incoming coin and returns the credited account.
func (c *Client) Receive(txID string, index uint32, address string, amount decimal.Decimal) (string, error) {
	var res rpc.ReceiveResult
	err := c.Call("receive", rpc.ReceiveParam{TxID: txID, Index: index, Address: address, Amount: amount}, &res)
	return res.Account, err
}
