// Package main runs the wallet sync daemon: it hydrates the engine from the
// persisted mirror, optionally logs in with a token from the environment and
// keeps every resource fresh until interrupted.
package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/wallet-sync/internal/clock"
	"github.com/wallet-sync/internal/config"
	"github.com/wallet-sync/internal/engine"
	"github.com/wallet-sync/internal/logging"
	"github.com/wallet-sync/internal/models"
	"github.com/wallet-sync/internal/persist"
	"github.com/wallet-sync/internal/store"
	"github.com/wallet-sync/internal/types"
)

func main() {
	fmt.Println("Wallet Sync Daemon")

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	logger := logging.New(logging.ParseLevel(cfg.Logging.Level), logging.ParseFormat(cfg.Logging.Format))
	logger.WithFields(map[string]interface{}{
		"level":  cfg.Logging.Level,
		"format": cfg.Logging.Format,
	}).Info("Structured logging initialized")

	kv, err := persist.NewKV(&cfg.Redis)
	if err != nil {
		logger.Errorf("Failed to connect to Redis, running without persisted mirror: %v", err)
	}

	var adapter *persist.Adapter
	if kv != nil {
		defer kv.Close()
		adapter = persist.NewAdapter(kv, cfg.Cache.KeyPrefix)
	}

	eng := engine.New(cfg, logger, adapter, clock.Real{})
	defer eng.Close()

	unsubscribe := eng.Store().Portfolio.Subscribe(func(snap store.Snapshot[models.PortfolioSnapshot]) {
		if snap.Err != nil || snap.Data.Aggregated == nil {
			return
		}
		logger.WithFields(map[string]interface{}{
			"tokens":    snap.Data.Aggregated.TokenCount,
			"total_usd": snap.Data.Aggregated.TotalPriceUSD.String(),
		}).Info("Portfolio updated")
	})
	defer unsubscribe()

	if token := os.Getenv("WALLET_SESSION_TOKEN"); token != "" && eng.Session() == nil {
		eng.Login(models.AuthSession{
			IDToken:       token,
			SessionExpiry: time.Now().Add(time.Hour).UnixMilli(),
			UserAddress:   os.Getenv("WALLET_USER_ADDRESS"),
		})
		logger.Info("Logged in from environment token")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	logger.Infof("Nudging resources every %s", refreshInterval)
	go refreshLoop(ctx, eng, logger)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("Shutting down")
}

const refreshInterval = 30 * time.Second

// refreshLoop nudges every resource on an interval; the engine's staleness
// policy decides which nudges actually reach the network.
func refreshLoop(ctx context.Context, eng *engine.Engine, logger *logging.Logger) {
	ticker := time.NewTicker(refreshInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if eng.Session() == nil {
				continue
			}
			for _, res := range types.AllResources {
				var err error
				switch res {
				case types.ResourcePortfolio:
					_, err = eng.Portfolio(ctx, false)
				case types.ResourceWallets:
					_, err = eng.Wallets(ctx, false)
				case types.ResourceTransactions:
					_, err = eng.Transactions(ctx, false)
				case types.ResourceNetworks:
					_, err = eng.Networks(ctx, false)
				}
				if err != nil {
					logger.WithError(err).WithField("resource", string(res)).Warn("Refresh failed")
				}
			}
		}
	}
}
