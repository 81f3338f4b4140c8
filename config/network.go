package config

import (
	"github.com/Klingon-tech/klingnet-accounts/pkg/types"
	"github.com/btcsuite/btcd/chaincfg"
)

// AddressHRP returns the bech32 prefix for native addresses on network.
func AddressHRP(network NetworkType) string {
	switch network {
	case Testnet:
		return types.TestnetHRP
	case Regtest:
		return types.RegtestHRP
	default:
		return types.MainnetHRP
	}
}

// LegacyParams returns the Bitcoin network parameters used to render
// legacy P2SH addresses and to decode WIF keys on network.
func LegacyParams(network NetworkType) *chaincfg.Params {
	switch network {
	case Testnet:
		return &chaincfg.TestNet3Params
	case Regtest:
		return &chaincfg.RegressionNetParams
	default:
		return &chaincfg.MainNetParams
	}
}
