package transport

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/wallet-sync/internal/errors"
	"github.com/wallet-sync/internal/models"
	"github.com/wallet-sync/internal/types"
)

// Wire representations of the remote service's payloads. Field names follow
// the service's snake_case convention and are mapped onto the engine's
// models here, so nothing downstream depends on the wire shape.

type wireAggregated struct {
	TokenCount    int             `json:"token_count"`
	TotalPriceUSD decimal.Decimal `json:"total_price_usd"`
	TotalPriceINR decimal.Decimal `json:"total_price_inr"`
}

type wireTokenGroup struct {
	ID            string          `json:"id"`
	Symbol        string          `json:"symbol"`
	Balance       decimal.Decimal `json:"balance"`
	UnitPriceUSD  decimal.Decimal `json:"unit_price_usd"`
	UnitPriceINR  decimal.Decimal `json:"unit_price_inr"`
	NetworkName   string          `json:"network_name"`
	NetworkSymbol string          `json:"network_symbol"`
}

type wirePortfolio struct {
	Aggregated *wireAggregated  `json:"aggregated_data"`
	Groups     []wireTokenGroup `json:"group_tokens"`
}

type wireActivity struct {
	Count    int                  `json:"count"`
	Activity []wireActivityRecord `json:"activity"`
}

type wireActivityRecord struct {
	ID           string `json:"id"`
	TransferType string `json:"transfer_type"`
	Hash         string `json:"hash"`
	Amount       string `json:"amount"`
	Symbol       string `json:"symbol"`
	Timestamp    int64  `json:"timestamp"`
	Status       bool   `json:"status"`
	NetworkName  string `json:"network_name"`
}

type wireWallet struct {
	Address       string `json:"address"`
	NetworkID     string `json:"network_id"`
	NetworkName   string `json:"network_name"`
	NetworkSymbol string `json:"network_symbol"`
	CAIPID        string `json:"caip_id"`
	IsPrimary     bool   `json:"is_primary"`
}

type wireNetwork struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Symbol string `json:"symbol"`
	CAIPID string `json:"caip_id"`
}

// FetchPortfolio retrieves the aggregated portfolio snapshot.
func (c *Client) FetchPortfolio(ctx context.Context) (models.PortfolioSnapshot, error) {
	raw, err := c.get(ctx, "/aggregated-portfolio")
	if err != nil || raw == nil {
		return models.PortfolioSnapshot{}, err
	}

	var wire wirePortfolio
	if err := json.Unmarshal(raw, &wire); err != nil {
		return models.PortfolioSnapshot{}, errors.NewParseError("portfolio payload", err)
	}

	snap := models.PortfolioSnapshot{}
	if wire.Aggregated != nil {
		snap.Aggregated = &models.AggregatedData{
			TokenCount:    wire.Aggregated.TokenCount,
			TotalPriceUSD: wire.Aggregated.TotalPriceUSD,
			TotalPriceINR: wire.Aggregated.TotalPriceINR,
		}
	}
	for _, g := range wire.Groups {
		snap.Groups = append(snap.Groups, models.TokenGroup{
			ID:            g.ID,
			Symbol:        g.Symbol,
			Balance:       g.Balance,
			UnitPriceUSD:  g.UnitPriceUSD,
			UnitPriceINR:  g.UnitPriceINR,
			NetworkName:   g.NetworkName,
			NetworkSymbol: g.NetworkSymbol,
		})
	}
	// Groups without totals would tear the snapshot invariant; treat the
	// payload as malformed rather than commit half a snapshot.
	if !snap.Consistent() {
		return models.PortfolioSnapshot{}, errors.NewParseError("portfolio payload", fmt.Errorf("group_tokens present without aggregated_data"))
	}
	return snap, nil
}

// FetchActivity retrieves one page of the confirmed activity feed, mapped
// to transactions.
func (c *Client) FetchActivity(ctx context.Context, page, size int) ([]models.Transaction, int, error) {
	raw, err := c.get(ctx, fmt.Sprintf("/portfolio/activity?page=%d&size=%d", page, size))
	if err != nil || raw == nil {
		return nil, 0, err
	}

	var wire wireActivity
	if err := json.Unmarshal(raw, &wire); err != nil {
		return nil, 0, errors.NewParseError("activity payload", err)
	}

	txs := make([]models.Transaction, 0, len(wire.Activity))
	for _, rec := range wire.Activity {
		txType := types.TxSend
		if rec.TransferType == "RECEIVE" {
			txType = types.TxReceive
		}
		status := types.TxFailed
		if rec.Status {
			status = types.TxCompleted
		}
		txs = append(txs, models.Transaction{
			ID:          rec.ID,
			Type:        txType,
			Hash:        rec.Hash,
			Amount:      rec.Amount,
			Symbol:      rec.Symbol,
			Timestamp:   rec.Timestamp,
			Status:      status,
			NetworkName: rec.NetworkName,
		})
	}
	return txs, wire.Count, nil
}

// FetchWallets retrieves the session user's wallets. Records failing
// address validation are dropped with a warning rather than poisoning the
// snapshot.
func (c *Client) FetchWallets(ctx context.Context) ([]models.Wallet, error) {
	raw, err := c.get(ctx, "/wallets")
	if err != nil || raw == nil {
		return nil, err
	}

	var wire []wireWallet
	if err := json.Unmarshal(raw, &wire); err != nil {
		return nil, errors.NewParseError("wallets payload", err)
	}

	wallets := make([]models.Wallet, 0, len(wire))
	for _, w := range wire {
		wallet := models.Wallet{
			Address:       w.Address,
			NetworkID:     w.NetworkID,
			NetworkName:   w.NetworkName,
			NetworkSymbol: w.NetworkSymbol,
			CAIPID:        w.CAIPID,
			IsPrimary:     w.IsPrimary,
		}
		if !wallet.Validate() {
			c.logger.Warnf("dropping wallet with invalid address: %s", w.Address)
			continue
		}
		wallets = append(wallets, wallet)
	}
	return wallets, nil
}

// FetchNetworks retrieves the supported network list.
func (c *Client) FetchNetworks(ctx context.Context) ([]models.Network, error) {
	raw, err := c.get(ctx, "/supported/networks")
	if err != nil || raw == nil {
		return nil, err
	}

	var wire []wireNetwork
	if err := json.Unmarshal(raw, &wire); err != nil {
		return nil, errors.NewParseError("networks payload", err)
	}

	networks := make([]models.Network, 0, len(wire))
	for _, n := range wire {
		networks = append(networks, models.Network{
			ID:     n.ID,
			Name:   n.Name,
			Symbol: n.Symbol,
			CAIPID: n.CAIPID,
		})
	}
	return networks, nil
}
