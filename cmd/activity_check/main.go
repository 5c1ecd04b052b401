// Package main is a one-shot diagnostic that pages through the activity
// feed with a supplied session token and prints every record, useful for
// eyeballing transfer-type and status mapping against the raw API.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/wallet-sync/internal/clock"
	"github.com/wallet-sync/internal/config"
	"github.com/wallet-sync/internal/logging"
	"github.com/wallet-sync/internal/models"
	"github.com/wallet-sync/internal/transport"
)

type flagSession struct {
	session *models.AuthSession
}

func (s *flagSession) Session() *models.AuthSession { return s.session }

func main() {
	tokenFlag := flag.String("token", "", "Session token (falls back to WALLET_SESSION_TOKEN)")
	pagesFlag := flag.Int("pages", 1, "Number of pages to fetch")
	sizeFlag := flag.Int("size", 50, "Records per page")
	flag.Parse()

	token := *tokenFlag
	if token == "" {
		token = os.Getenv("WALLET_SESSION_TOKEN")
	}
	if token == "" {
		fmt.Println("No session token: pass -token or set WALLET_SESSION_TOKEN")
		os.Exit(1)
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		fmt.Printf("Error loading configuration: %v\n", err)
		os.Exit(1)
	}

	logger := logging.New(logging.LevelWarn, logging.FormatText)
	sessions := &flagSession{session: &models.AuthSession{
		IDToken:       token,
		SessionExpiry: time.Now().Add(time.Hour).UnixMilli(),
	}}
	client := transport.NewClient(&cfg.API, sessions, func() {
		fmt.Println("Server rejected the session token")
		os.Exit(1)
	}, clock.Real{}, logger)

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	total := 0
	for page := 1; page <= *pagesFlag; page++ {
		txs, count, err := client.FetchActivity(ctx, page, *sizeFlag)
		if err != nil {
			fmt.Printf("Error fetching page %d: %v\n", page, err)
			os.Exit(1)
		}
		if page == 1 {
			fmt.Printf("Server reports %d records total\n\n", count)
		}
		for _, tx := range txs {
			ts := time.UnixMilli(tx.Timestamp).Format(time.RFC3339)
			fmt.Printf("%-28s %-8s %-10s %12s %-6s %s\n",
				tx.ID, tx.Type, tx.Status, tx.Amount, tx.Symbol, ts)
		}
		total += len(txs)
		if len(txs) < *sizeFlag {
			break
		}
	}
	fmt.Printf("\nFetched %d records\n", total)
}
