package main

import (
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Klingon-tech/klingnet-accounts/internal/log"
	"github.com/Klingon-tech/klingnet-accounts/internal/rpc"
	"github.com/Klingon-tech/klingnet-accounts/internal/rpcclient"
)

// ── serve ───────────────────────────────────────────────────────────────

type serveCmd struct {
	Locked bool `long:"locked" description:"Start without unlocking; use walletpassphrase to unlock later"`
}

func (c *serveCmd) Execute(_ []string) error {
	open := openUnlocked
	if c.Locked {
		open = openWallet
	}
	s, err := open()
	if err != nil {
		return err
	}
	defer s.Close()
	defer s.wallet.Lock()

	srv, err := rpc.New(s.cfg.RPC.ListenAddr(), s.wallet, s.cfg.RPC)
	if err != nil {
		return err
	}
	if err := srv.Start(); err != nil {
		return err
	}
	log.CLI.Info().
		Str("addr", srv.Addr()).
		Str("network", string(s.cfg.Network)).
		Bool("locked", c.Locked).
		Msg("Serving wallet RPC")

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	log.CLI.Info().Msg("Shutting down")
	return srv.Stop()
}

// ── call ────────────────────────────────────────────────────────────────

type callCmd struct {
	URL     string        `long:"rpcurl" description:"Server URL (default: http://<rpc.addr>:<rpc.port>/)"`
	Timeout time.Duration `long:"rpctimeout" default:"10s" description:"Give up on the call after this long"`
	Args    struct {
		Method string `positional-arg-name:"method" required:"yes"`
		Params string `positional-arg-name:"params" description:"JSON object of named params"`
	} `positional-args:"yes"`
}

func (c *callCmd) Execute(_ []string) error {
	url := c.URL
	if url == "" {
		cfg, err := setup()
		if err != nil {
			return err
		}
		url = "http://" + cfg.RPC.ListenAddr() + "/"
	}

	var params interface{}
	if c.Args.Params != "" {
		if !json.Valid([]byte(c.Args.Params)) {
			return fmt.Errorf("params are not valid JSON")
		}
		params = json.RawMessage(c.Args.Params)
	}

	var result json.RawMessage
	client := rpcclient.NewWithTimeout(url, c.Timeout)
	if err := client.Call(c.Args.Method, params, &result); err != nil {
		return err
	}
	if result == nil {
		return nil
	}
	return printJSON(result)
}
