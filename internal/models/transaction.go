package models

import (
	"strings"

	"github.com/wallet-sync/internal/types"
)

const hashFragmentLen = 10

// Transaction represents one transfer, swap or other wallet activity entry.
// Pending (locally originated) and confirmed (server-reported) transactions
// live in disjoint collections; an ID is unique within its collection.
type Transaction struct {
	ID          string         `json:"id"`
	Type        types.TxType   `json:"type"`
	Hash        string         `json:"hash,omitempty"`
	Amount      string         `json:"amount"`
	Symbol      string         `json:"symbol"`
	Timestamp   int64          `json:"timestamp"` // epoch ms
	Status      types.TxStatus `json:"status"`
	NetworkName string         `json:"networkName,omitempty"`
}

// HashFragment returns the short prefix of a transaction hash used when
// deriving collision-resistant IDs. Short hashes are returned whole.
func HashFragment(hash string) string {
	if len(hash) <= hashFragmentLen {
		return hash
	}
	return hash[:hashFragmentLen]
}

// IDPrefix returns the provisional portion of a composed transaction ID,
// i.e. everything before the first dash.
func IDPrefix(id string) string {
	if i := strings.Index(id, "-"); i > 0 {
		return id[:i]
	}
	return id
}

// Merge applies the non-zero fields of patch onto a copy of t and returns it.
// ID and Timestamp are never overwritten by a merge.
func (t Transaction) Merge(patch Transaction) Transaction {
	if patch.Type != "" {
		t.Type = patch.Type
	}
	if patch.Hash != "" {
		t.Hash = patch.Hash
	}
	if patch.Amount != "" {
		t.Amount = patch.Amount
	}
	if patch.Symbol != "" {
		t.Symbol = patch.Symbol
	}
	if patch.Status != "" {
		t.Status = patch.Status
	}
	if patch.NetworkName != "" {
		t.NetworkName = patch.NetworkName
	}
	return t
}
