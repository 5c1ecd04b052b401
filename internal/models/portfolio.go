package models

import (
	"github.com/shopspring/decimal"
)

// TokenGroup represents an aggregated holding of one token on one network
type TokenGroup struct {
	ID            string          `json:"id"`
	Symbol        string          `json:"symbol"`
	Balance       decimal.Decimal `json:"balance"`
	UnitPriceUSD  decimal.Decimal `json:"unitPriceUsd"`
	UnitPriceINR  decimal.Decimal `json:"unitPriceInr"`
	NetworkName   string          `json:"networkName"`
	NetworkSymbol string          `json:"networkSymbol"`
}

// AggregatedData represents portfolio-wide totals
type AggregatedData struct {
	TokenCount    int             `json:"tokenCount"`
	TotalPriceUSD decimal.Decimal `json:"totalPriceUsd"`
	TotalPriceINR decimal.Decimal `json:"totalPriceInr"`
}

// PortfolioSnapshot represents the aggregated portfolio at a point in time.
// Aggregated and Groups travel together as one atomic value: non-empty Groups
// implies a non-nil Aggregated.
type PortfolioSnapshot struct {
	Aggregated *AggregatedData `json:"aggregatedData,omitempty"`
	Groups     []TokenGroup    `json:"groupTokens"`
}

// Consistent reports whether the snapshot honors the groups/aggregate pairing.
func (p *PortfolioSnapshot) Consistent() bool {
	return len(p.Groups) == 0 || p.Aggregated != nil
}

// IsEmpty reports whether the snapshot holds no data at all.
func (p *PortfolioSnapshot) IsEmpty() bool {
	return p.Aggregated == nil && len(p.Groups) == 0
}
