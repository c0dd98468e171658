// Command devvenue serves an in-memory Polynomial venue seeded with demo
// data. The REST API is at / and the orderbook at /api.
//
//	VENUE_ADDR      listen address (default :8080)
//	VENUE_API_KEYS  comma-separated accepted keys (default: any non-empty key)
//	VENUE_CHAIN_ID  chain to seed and accept orders on (default 8008)
//	VENUE_DATA_DIR  journal accepted orders in a pebble store here
//	LOG_FILE        also log to this file
//	LOG_LEVEL       debug, info, warn or error (default info)
package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/uhyunpark/polyperp/params"
	"github.com/uhyunpark/polyperp/pkg/storage"
	"github.com/uhyunpark/polyperp/pkg/util"
	"github.com/uhyunpark/polyperp/pkg/venue"
)

func main() {
	_ = godotenv.Load()

	logger, closeLog, err := newLogger(os.Getenv("LOG_FILE"), os.Getenv("LOG_LEVEL"))
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer closeLog()
	sugar := logger.Sugar()

	chainID := params.MainnetChainID
	if raw := os.Getenv("VENUE_CHAIN_ID"); raw != "" {
		if chainID, err = strconv.ParseInt(raw, 10, 64); err != nil {
			sugar.Fatalw("invalid_chain_id", "value", raw, "err", err)
		}
	}

	store := venue.NewStore()
	venue.SeedDemo(store, chainID)

	if dir := os.Getenv("VENUE_DATA_DIR"); dir != "" {
		journal, err := storage.NewPebbleStore(dir)
		if err != nil {
			sugar.Fatalw("journal_open_failed", "dir", dir, "err", err)
		}
		defer journal.Close()
		if err := store.Persist(journal); err != nil {
			sugar.Fatalw("journal_replay_failed", "dir", dir, "err", err)
		}
		sugar.Infow("journal_loaded", "dir", dir, "orders", len(store.Orders()))
	}

	opts := []venue.Option{venue.WithLogger(logger)}
	if chainID != params.MainnetChainID {
		// same domain the SDK synthesizes for unknown chains
		opts = append(opts, venue.WithNetwork(params.NetworkForChain(chainID, "", "", params.MainnetRelayerAddress)))
	}
	if keys := os.Getenv("VENUE_API_KEYS"); keys != "" {
		opts = append(opts, venue.WithAPIKeys(strings.Split(keys, ",")...))
	}
	srv := venue.NewServer(store, opts...)

	addr := os.Getenv("VENUE_ADDR")
	if addr == "" {
		addr = ":8080"
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	sugar.Infow("venue_starting",
		"addr", addr,
		"chain_id", chainID,
		"demo_wallet", venue.DemoWallet,
		"demo_account", venue.DemoAccountID)

	go func() {
		ticker := time.NewTicker(30 * time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				sugar.Infow("venue_progress",
					"requests", srv.Requests(),
					"orders", len(store.Orders()))
			}
		}
	}()

	if err := srv.Start(ctx, addr); err != nil {
		sugar.Fatalw("venue_failed", "err", err)
	}
	sugar.Info("venue_stopped")
}

func newLogger(logFile, levelName string) (*zap.Logger, func() error, error) {
	level, err := util.ParseLevel(levelName)
	if err != nil {
		return nil, nil, err
	}
	if logFile == "" {
		logger := util.NewLogger(level)
		return logger, logger.Sync, nil
	}
	return util.NewLoggerWithFile(logFile, level)
}
