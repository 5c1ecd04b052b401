// Package types provides common type definitions for the wallet sync engine.
package types

// ResourceID identifies one cached resource slice in the store.
type ResourceID string

const (
	// ResourcePortfolio is the aggregated portfolio snapshot
	ResourcePortfolio ResourceID = "portfolio"
	// ResourceWallets is the list of wallets owned by the session user
	ResourceWallets ResourceID = "wallets"
	// ResourceTransactions is the confirmed activity feed
	ResourceTransactions ResourceID = "transactions"
	// ResourceNetworks is the list of supported networks
	ResourceNetworks ResourceID = "networks"
)

// AllResources lists every resource the engine synchronizes, in refresh order.
var AllResources = []ResourceID{
	ResourceWallets,
	ResourceNetworks,
	ResourcePortfolio,
	ResourceTransactions,
}

// TxType represents the kind of a transaction
type TxType string

const (
	// TxSend represents an outgoing transfer
	TxSend TxType = "send"
	// TxReceive represents an incoming transfer
	TxReceive TxType = "receive"
	// TxSwap represents a token swap
	TxSwap TxType = "swap"
)

// TxStatus represents transaction confirmation status
type TxStatus string

const (
	// TxPending represents a locally originated, unconfirmed transaction
	TxPending TxStatus = "pending"
	// TxCompleted represents a confirmed, successful transaction
	TxCompleted TxStatus = "completed"
	// TxFailed represents a failed transaction
	TxFailed TxStatus = "failed"
)

// ServiceError represents a structured error response from the remote service
type ServiceError struct {
	Code    string                 `json:"code"`
	Message string                 `json:"message"`
	Details map[string]interface{} `json:"details,omitempty"`
}

func (e *ServiceError) Error() string {
	return e.Message
}
