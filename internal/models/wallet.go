package models

import (
	"strings"

	"github.com/ethereum/go-ethereum/common"
)

// Wallet represents one address the session user controls on one network
type Wallet struct {
	Address       string `json:"address"`
	NetworkID     string `json:"networkId"`
	NetworkName   string `json:"networkName"`
	NetworkSymbol string `json:"networkSymbol"`
	CAIPID        string `json:"caipId"`
	IsPrimary     bool   `json:"isPrimary,omitempty"`
}

// Validate reports whether the wallet carries a plausible EVM address.
// Non-EVM CAIP namespaces are accepted as-is; only eip155 addresses are checked.
func (w *Wallet) Validate() bool {
	if w.Address == "" {
		return false
	}
	if strings.HasPrefix(w.CAIPID, "eip155:") || strings.HasPrefix(w.Address, "0x") {
		return common.IsHexAddress(w.Address)
	}
	return true
}

// Network represents a supported blockchain network
type Network struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Symbol string `json:"symbol"`
	CAIPID string `json:"caipId"`
}

// PrimaryWallet returns the wallet marked primary for the given network,
// or nil when none is marked.
func PrimaryWallet(wallets []Wallet, networkID string) *Wallet {
	for i := range wallets {
		if wallets[i].NetworkID == networkID && wallets[i].IsPrimary {
			return &wallets[i]
		}
	}
	return nil
}
