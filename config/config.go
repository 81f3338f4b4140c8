// Package config handles application configuration.
//
// Settings come from three layers, later ones winning:
//   - Defaults for the selected network
//   - The key = value config file
//   - Command-line options
package config

import (
	"net"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
)

// NetworkType identifies the network the wallet operates on.
type NetworkType string

const (
	Mainnet NetworkType = "mainnet"
	Testnet NetworkType = "testnet"
	Regtest NetworkType = "regtest"
)

// Config holds runtime configuration.
type Config struct {
	// Core
	Network NetworkType `conf:"network"`
	DataDir string      `conf:"datadir"`

	// RPC server
	RPC RPCConfig

	// Wallet
	Wallet WalletConfig

	// Logging
	Log LogConfig
}

// RPCConfig holds wallet RPC server settings.
type RPCConfig struct {
	Addr        string   `conf:"rpc.addr"`
	Port        int      `conf:"rpc.port"`
	AllowedIPs  []string `conf:"rpc.allowed"` // IPs or CIDRs; empty allows all.
	CORSOrigins []string `conf:"rpc.cors"`
}

// ListenAddr returns the host:port the RPC server binds to.
func (r RPCConfig) ListenAddr() string {
	return net.JoinHostPort(r.Addr, strconv.Itoa(r.Port))
}

// WalletConfig holds wallet settings.
type WalletConfig struct {
	// SortMultisig makes canonical key ordering the default for new
	// multisig addresses.
	SortMultisig bool `conf:"wallet.sortmultisig"`
	// InMemory keeps the wallet database in memory (tests, dry runs).
	InMemory bool `conf:"wallet.inmemory"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level string `conf:"log.level"`
	File  string `conf:"log.file"`
	JSON  bool   `conf:"log.json"`
}

// =============================================================================
// Directory helpers
// =============================================================================

// DefaultDataDir returns the platform-specific default data directory.
//
//	Linux:   ~/.klingnet-accounts
//	macOS:   ~/Library/Application Support/KlingnetAccounts
//	Windows: %APPDATA%\KlingnetAccounts
func DefaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".klingnet-accounts"
	}
	switch runtime.GOOS {
	case "darwin":
		return filepath.Join(home, "Library", "Application Support", "KlingnetAccounts")
	case "windows":
		appData := os.Getenv("APPDATA")
		if appData != "" {
			return filepath.Join(appData, "KlingnetAccounts")
		}
		return filepath.Join(home, "AppData", "Roaming", "KlingnetAccounts")
	default:
		return filepath.Join(home, ".klingnet-accounts")
	}
}

// NetworkDataDir returns the network-specific data directory.
func (c *Config) NetworkDataDir() string {
	return filepath.Join(c.DataDir, string(c.Network))
}

// WalletDir returns the wallet database directory.
func (c *Config) WalletDir() string {
	return filepath.Join(c.NetworkDataDir(), "wallet")
}

// LogsDir returns the logs directory.
func (c *Config) LogsDir() string {
	return filepath.Join(c.DataDir, "logs")
}

// ConfigFile returns the config file path.
func (c *Config) ConfigFile() string {
	return filepath.Join(c.DataDir, "klingnet-accounts.conf")
}
