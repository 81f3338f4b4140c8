package rpc

import (
	"encoding/hex"
	"errors"
	"fmt"

	"github.com/Klingon-tech/klingnet-accounts/config"
	"github.com/Klingon-tech/klingnet-accounts/internal/ledger"
	"github.com/Klingon-tech/klingnet-accounts/internal/multisig"
	"github.com/Klingon-tech/klingnet-accounts/internal/utxo"
	"github.com/Klingon-tech/klingnet-accounts/internal/wallet"
	"github.com/Klingon-tech/klingnet-accounts/pkg/types"
	"github.com/btcsuite/btcd/chaincfg"
)

// walletError maps a wallet error onto a JSON-RPC error.
func walletError(err error) *Error {
	code := CodeWalletError
	switch {
	case errors.Is(err, wallet.ErrInsufficientFunds):
		code = CodeInsufficientFunds
	case errors.Is(err, ledger.ErrInsufficientLedgerBalance):
		code = CodeInsufficientLedger
	case errors.Is(err, ledger.ErrInvalidAmount):
		code = CodeInvalidParams
	case errors.Is(err, ledger.ErrAddressNotOwned):
		code = CodeAddressNotOwned
	case errors.Is(err, wallet.ErrLocked):
		code = CodeWalletLocked
	case errors.Is(err, wallet.ErrWrongPassword):
		code = CodeWalletPasswordFailed
	case errors.Is(err, wallet.ErrUnknownAddress), errors.Is(err, wallet.ErrNoPrivateKey):
		code = CodeInvalidAddressOrKey
	case errors.Is(err, multisig.ErrInvalidKeyFormat):
		code = CodeInvalidKeyFormat
	case errors.Is(err, multisig.ErrInvalidThreshold), errors.Is(err, multisig.ErrTooManyKeys):
		code = CodeInvalidParams
	case errors.Is(err, utxo.ErrDuplicateCoin):
		code = CodeDuplicateCoin
	}
	return &Error{Code: code, Message: err.Error()}
}

// parseAddress decodes a bech32 or hex address param.
func parseAddress(s string) (types.Address, *Error) {
	addr, err := types.ParseAddress(s)
	if err != nil {
		return types.Address{}, &Error{Code: CodeInvalidAddressOrKey, Message: fmt.Sprintf("invalid address: %v", err)}
	}
	return addr, nil
}

// NewMultisigResult describes a derived multisig address, including its
// base58 P2SH form for params.
func NewMultisigResult(addr types.Address, desc *multisig.Descriptor, params *chaincfg.Params) (*MultisigResult, error) {
	script, err := desc.Script()
	if err != nil {
		return nil, err
	}
	legacy, err := desc.LegacyAddress(params)
	if err != nil {
		return nil, err
	}
	return &MultisigResult{
		Address:       addr.String(),
		LegacyAddress: legacy,
		RedeemScript:  hex.EncodeToString(script),
		Sorted:        desc.Sorted,
	}, nil
}

// ── Addresses and labels ────────────────────────────────────────────────

func (s *Server) handleGetAccountAddress(req *Request) (interface{}, *Error) {
	var params AccountParam
	if err := parseOptionalParams(req, &params); err != nil {
		return nil, err
	}
	addr, err := s.wallet.GetAccountAddress(params.Account)
	if err != nil {
		return nil, walletError(err)
	}
	return addr.String(), nil
}

func (s *Server) handleGetNewAddress(req *Request) (interface{}, *Error) {
	var params AccountParam
	if err := parseOptionalParams(req, &params); err != nil {
		return nil, err
	}
	addr, err := s.wallet.GetNewAddress(params.Account)
	if err != nil {
		return nil, walletError(err)
	}
	return addr.String(), nil
}

func (s *Server) handleGetAccount(req *Request) (interface{}, *Error) {
	var params AddressParam
	if err := parseParams(req, &params); err != nil {
		return nil, err
	}
	addr, rpcErr := parseAddress(params.Address)
	if rpcErr != nil {
		return nil, rpcErr
	}
	label, err := s.wallet.GetAccount(addr)
	if err != nil {
		return nil, walletError(err)
	}
	return label, nil
}

func (s *Server) handleGetAddressesByAccount(req *Request) (interface{}, *Error) {
	var params AccountParam
	if err := parseOptionalParams(req, &params); err != nil {
		return nil, err
	}
	addrs := s.wallet.GetAddressesByAccount(params.Account)
	out := make([]string, len(addrs))
	for i, a := range addrs {
		out[i] = a.String()
	}
	return out, nil
}

func (s *Server) handleSetAccount(req *Request) (interface{}, *Error) {
	var params SetAccountParam
	if err := parseParams(req, &params); err != nil {
		return nil, err
	}
	addr, rpcErr := parseAddress(params.Address)
	if rpcErr != nil {
		return nil, rpcErr
	}
	if err := s.wallet.SetAccount(addr, params.Account); err != nil {
		return nil, walletError(err)
	}
	return true, nil
}

// ── Balances ────────────────────────────────────────────────────────────

func (s *Server) handleGetBalance(req *Request) (interface{}, *Error) {
	var params BalanceParam
	if err := parseOptionalParams(req, &params); err != nil {
		return nil, err
	}
	if !params.Coins {
		return s.wallet.GetBalance(params.Account), nil
	}
	bal, err := s.wallet.GetCoinBalance(params.Account)
	if err != nil {
		return nil, walletError(err)
	}
	return bal, nil
}

func (s *Server) handleGetReceivedByAccount(req *Request) (interface{}, *Error) {
	var params AccountParam
	if err := parseOptionalParams(req, &params); err != nil {
		return nil, err
	}
	total, err := s.wallet.GetReceivedByAccount(params.Account)
	if err != nil {
		return nil, walletError(err)
	}
	return total, nil
}

func (s *Server) handleListAccounts(_ *Request) (interface{}, *Error) {
	return s.wallet.ListAccounts(), nil
}

func (s *Server) handleGetCoinSetInfo(_ *Request) (interface{}, *Error) {
	info, err := s.wallet.GetCoinSetInfo()
	if err != nil {
		return nil, walletError(err)
	}
	return info, nil
}

// ── Ledger and coins ────────────────────────────────────────────────────

func (s *Server) handleMove(req *Request) (interface{}, *Error) {
	var params MoveParam
	if err := parseParams(req, &params); err != nil {
		return nil, err
	}
	if err := s.wallet.Move(params.From, params.To, params.Amount); err != nil {
		return nil, walletError(err)
	}
	return true, nil
}

func (s *Server) handleConsolidate(req *Request) (interface{}, *Error) {
	var params AccountParam
	if err := parseOptionalParams(req, &params); err != nil {
		return nil, err
	}
	moved, err := s.wallet.Consolidate(params.Account)
	if err != nil {
		return nil, walletError(err)
	}
	return &ConsolidateResult{Account: params.Account, Moved: moved}, nil
}

func (s *Server) handleSendFrom(req *Request) (interface{}, *Error) {
	var params SendFromParam
	if err := parseParams(req, &params); err != nil {
		return nil, err
	}
	to, rpcErr := parseAddress(params.Address)
	if rpcErr != nil {
		return nil, rpcErr
	}
	txid, err := s.wallet.SendFrom(params.From, to, params.Amount)
	if err != nil {
		return nil, walletError(err)
	}
	return txid.String(), nil
}

func (s *Server) handleReceive(req *Request) (interface{}, *Error) {
	var params ReceiveParam
	if err := parseParams(req, &params); err != nil {
		return nil, err
	}
	txid, err := types.HexToHash(params.TxID)
	if err != nil {
		return nil, &Error{Code: CodeInvalidParams, Message: fmt.Sprintf("invalid tx_id: %v", err)}
	}
	addr, rpcErr := parseAddress(params.Address)
	if rpcErr != nil {
		return nil, rpcErr
	}
	units, err := config.ToUnits(params.Amount)
	if err != nil {
		return nil, &Error{Code: CodeInvalidParams, Message: fmt.Sprintf("invalid amount: %v", err)}
	}
	label, err := s.wallet.ReceiveCoin(types.Outpoint{TxID: txid, Index: params.Index}, addr, units)
	if err != nil {
		return nil, walletError(err)
	}
	return &ReceiveResult{Account: label}, nil
}

// ── Multisig ────────────────────────────────────────────────────────────

func (s *Server) handleCreateMultisig(req *Request) (interface{}, *Error) {
	var params MultisigParam
	if err := parseParams(req, &params); err != nil {
		return nil, err
	}
	policy, err := multisig.ParseSortPolicy(params.Sort)
	if err != nil {
		return nil, &Error{Code: CodeInvalidParams, Message: err.Error()}
	}
	addr, desc, err := s.wallet.CreateMultisig(params.Threshold, params.Keys, policy)
	if err != nil {
		return nil, walletError(err)
	}
	res, err := NewMultisigResult(addr, desc, s.wallet.Params())
	if err != nil {
		return nil, &Error{Code: CodeInternalError, Message: err.Error()}
	}
	return res, nil
}

func (s *Server) handleAddMultisigAddress(req *Request) (interface{}, *Error) {
	var params MultisigParam
	if err := parseParams(req, &params); err != nil {
		return nil, err
	}
	policy, err := multisig.ParseSortPolicy(params.Sort)
	if err != nil {
		return nil, &Error{Code: CodeInvalidParams, Message: err.Error()}
	}
	addr, desc, err := s.wallet.AddMultisigAddress(params.Threshold, params.Keys, params.Account, policy)
	if err != nil {
		return nil, walletError(err)
	}
	res, err := NewMultisigResult(addr, desc, s.wallet.Params())
	if err != nil {
		return nil, &Error{Code: CodeInternalError, Message: err.Error()}
	}
	return res, nil
}

// ── Keys ────────────────────────────────────────────────────────────────

func (s *Server) handleImportPrivKey(req *Request) (interface{}, *Error) {
	var params ImportPrivKeyParam
	if err := parseParams(req, &params); err != nil {
		return nil, err
	}
	addr, err := s.wallet.ImportPrivKey(params.Key, params.Account)
	if err != nil {
		if errors.Is(err, wallet.ErrLocked) {
			return nil, walletError(err)
		}
		return nil, &Error{Code: CodeInvalidAddressOrKey, Message: err.Error()}
	}
	return addr.String(), nil
}

func (s *Server) handleImportPubKey(req *Request) (interface{}, *Error) {
	var params ImportPubKeyParam
	if err := parseParams(req, &params); err != nil {
		return nil, err
	}
	addr, err := s.wallet.ImportPubKey(params.PubKey, params.Account)
	if err != nil {
		return nil, &Error{Code: CodeInvalidAddressOrKey, Message: err.Error()}
	}
	return addr.String(), nil
}

func (s *Server) handleDumpPrivKey(req *Request) (interface{}, *Error) {
	var params AddressParam
	if err := parseParams(req, &params); err != nil {
		return nil, err
	}
	addr, rpcErr := parseAddress(params.Address)
	if rpcErr != nil {
		return nil, rpcErr
	}
	wif, err := s.wallet.DumpPrivKey(addr)
	if err != nil {
		return nil, walletError(err)
	}
	return wif, nil
}

// ── Locking ─────────────────────────────────────────────────────────────

func (s *Server) handleWalletPassphrase(req *Request) (interface{}, *Error) {
	var params PassphraseParam
	if err := parseParams(req, &params); err != nil {
		return nil, err
	}
	if params.Passphrase == "" {
		return nil, &Error{Code: CodeInvalidParams, Message: "passphrase is required"}
	}
	if err := s.wallet.Unlock([]byte(params.Passphrase)); err != nil {
		s.logger.Debug().Err(err).Msg("wallet unlock failed")
		return nil, &Error{Code: CodeWalletPasswordFailed, Message: "incorrect passphrase"}
	}
	return true, nil
}

func (s *Server) handleWalletLock(_ *Request) (interface{}, *Error) {
	s.wallet.Lock()
	return true, nil
}

