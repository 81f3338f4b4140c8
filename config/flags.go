package config

import (
	"fmt"
	"os"
	"strings"
)

// Options holds the global command-line options. The struct tags are read
// by github.com/jessevdk/go-flags.
type Options struct {
	// Core
	Network    string `long:"network" description:"Network: mainnet (default), testnet or regtest"`
	DataDir    string `long:"datadir" description:"Data directory (default: ~/.klingnet-accounts)"`
	ConfigFile string `short:"c" long:"config" description:"Config file path (default: <datadir>/klingnet-accounts.conf)"`

	// RPC
	RPCAddr    string `long:"rpcaddr" description:"RPC server listen address (default: 127.0.0.1)"`
	RPCPort    int    `long:"rpcport" description:"RPC server port (default: network specific)"`
	RPCAllowed string `long:"rpcallowed" description:"Comma-separated IPs or CIDRs allowed to call the RPC server"`
	RPCCORS    string `long:"rpccors" description:"Comma-separated CORS origins for the RPC server"`

	// Wallet
	SortMultisig string `long:"sortmultisig" optional:"yes" optional-value:"true" description:"Order multisig keys canonically by default (true/false)"`
	InMemory     bool   `long:"inmemory" description:"Keep the wallet in memory only"`

	// Logging
	LogLevel string `long:"loglevel" description:"Log level: debug, info, warn, error, off"`
	LogFile  string `long:"logfile" description:"Log file path (default: stderr)"`
	LogJSON  bool   `long:"logjson" description:"Output logs as JSON"`
}

// ApplyOptions applies explicitly given command-line options to cfg.
func ApplyOptions(cfg *Config, o *Options) {
	// Core
	if o.Network != "" {
		cfg.Network = NetworkType(strings.ToLower(o.Network))
	}
	if o.DataDir != "" {
		cfg.DataDir = o.DataDir
	}

	// RPC
	if o.RPCAddr != "" {
		cfg.RPC.Addr = o.RPCAddr
	}
	if o.RPCPort != 0 {
		cfg.RPC.Port = o.RPCPort
	}
	if o.RPCAllowed != "" {
		cfg.RPC.AllowedIPs = parseStringList(o.RPCAllowed)
	}
	if o.RPCCORS != "" {
		cfg.RPC.CORSOrigins = parseStringList(o.RPCCORS)
	}

	// Wallet
	if o.SortMultisig != "" {
		cfg.Wallet.SortMultisig = parseBool(o.SortMultisig)
	}
	if o.InMemory {
		cfg.Wallet.InMemory = true
	}

	// Logging
	if o.LogLevel != "" {
		cfg.Log.Level = o.LogLevel
	}
	if o.LogFile != "" {
		cfg.Log.File = o.LogFile
	}
	if o.LogJSON {
		cfg.Log.JSON = true
	}
}

// Load builds the configuration with the following precedence:
// 1. Default values
// 2. Auto-create data dirs + default config (idempotent)
// 3. Config file
// 4. Command-line options
func Load(o *Options) (*Config, error) {
	network := Mainnet
	if o.Network != "" {
		network = NetworkType(strings.ToLower(o.Network))
	}

	// Start with defaults
	cfg := Default(network)
	if o.DataDir != "" {
		cfg.DataDir = o.DataDir
	}

	if !o.InMemory {
		if err := EnsureDataDirs(cfg); err != nil {
			return nil, fmt.Errorf("ensuring data dirs: %w", err)
		}
	}

	configPath := o.ConfigFile
	if configPath == "" {
		configPath = cfg.ConfigFile()
	}
	fileValues, err := LoadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("loading config file: %w", err)
	}
	if err := ApplyFileConfig(cfg, fileValues); err != nil {
		return nil, fmt.Errorf("applying config file: %w", err)
	}

	// Options win over the file.
	ApplyOptions(cfg, o)
	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// EnsureDataDirs creates the data directory structure and a default config
// file if they don't already exist. It is safe to call on every start.
func EnsureDataDirs(cfg *Config) error {
	dirs := []string{
		cfg.DataDir,
		cfg.NetworkDataDir(),
		cfg.WalletDir(),
		cfg.LogsDir(),
	}
	for _, dir := range dirs {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("creating directory %s: %w", dir, err)
		}
	}

	configPath := cfg.ConfigFile()
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		if err := WriteDefaultConfig(configPath, cfg.Network); err != nil {
			return fmt.Errorf("writing config file: %w", err)
		}
	}
	return nil
}
