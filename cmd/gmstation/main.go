package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"

	"github.com/maxepunk/ALNScanner-sub001/internal/config"
	"github.com/maxepunk/ALNScanner-sub001/internal/database"
	"github.com/maxepunk/ALNScanner-sub001/internal/ledger"
	"github.com/maxepunk/ALNScanner-sub001/internal/scoring"
	"github.com/maxepunk/ALNScanner-sub001/internal/server"
	"github.com/maxepunk/ALNScanner-sub001/internal/storage"
	"github.com/maxepunk/ALNScanner-sub001/internal/storage/bolt"
	"github.com/maxepunk/ALNScanner-sub001/internal/storage/sqlitekv"
	"github.com/maxepunk/ALNScanner-sub001/internal/token"
	"github.com/maxepunk/ALNScanner-sub001/internal/transport"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	_ = godotenv.Load()

	if err := run(ctx, os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, stdout io.Writer) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	logger := slog.New(slog.NewJSONHandler(stdout, &slog.HandlerOptions{
		Level: cfg.LogLevel,
	}))

	// --- Token database ---
	tokens, err := token.LoadFile(cfg.TokensPath)
	if err != nil {
		return fmt.Errorf("loading token database: %w", err)
	}
	logger.Info("token database loaded", "path", cfg.TokensPath, "tokens", len(tokens.AllTokens()))

	// --- Ledger ---
	facade := ledger.NewFacade(logger)
	defer facade.Dispose()

	g, gctx := errgroup.WithContext(ctx)

	switch cfg.Mode {
	case ledger.ModeStandalone:
		store, err := openStore(ctx, cfg, logger)
		if err != nil {
			return err
		}
		defer store.Close()

		local := ledger.NewLocalLedger(ledger.LocalConfig{
			Scoring:  scoring.DefaultConfig(),
			Tokens:   tokens,
			Store:    store,
			Logger:   logger,
			DeviceID: cfg.DeviceID,
		})
		if err := facade.Select(ctx, ledger.ModeStandalone, local); err != nil {
			return fmt.Errorf("selecting standalone ledger: %w", err)
		}

	case ledger.ModeNetworked:
		nl := ledger.NewNetworkedLedger(ledger.NetworkedConfig{
			Tokens:   tokens,
			Logger:   logger,
			DeviceID: cfg.DeviceID,
		})
		client := transport.NewClient(cfg.OrchestratorURL, cfg.DeviceID, nl, logger)
		nl.SetTransport(client)

		if err := client.Connect(ctx); err != nil {
			return fmt.Errorf("connecting to orchestrator: %w", err)
		}
		if err := facade.Select(ctx, ledger.ModeNetworked, nl); err != nil {
			client.Close()
			return fmt.Errorf("selecting networked ledger: %w", err)
		}

		g.Go(func() error {
			return client.Run(gctx)
		})
		g.Go(func() error {
			<-gctx.Done()
			return client.Close()
		})

	default:
		return fmt.Errorf("unknown mode %q", cfg.Mode)
	}

	// --- HTTP Server ---
	srv := server.New(cfg.HTTPAddr, logger, facade)

	g.Go(func() error {
		logger.Info("starting http server", "addr", cfg.HTTPAddr, "mode", cfg.Mode)
		return srv.Run(gctx)
	})

	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down http server")
		return srv.Shutdown(context.Background())
	})

	return g.Wait()
}

// openStore builds the standalone session store from STORE_DRIVER.
func openStore(ctx context.Context, cfg *config.Config, logger *slog.Logger) (storage.KV, error) {
	switch cfg.StoreDriver {
	case "sqlite":
		if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
			return nil, fmt.Errorf("creating data dir: %w", err)
		}
		path := filepath.Join(cfg.DataDir, "station.db")
		db, err := database.Open(ctx, path)
		if err != nil {
			return nil, fmt.Errorf("connecting to sqlite: %w", err)
		}
		store, err := sqlitekv.New(db)
		if err != nil {
			db.Close()
			return nil, fmt.Errorf("preparing sqlite store: %w", err)
		}
		logger.Info("connected to sqlite", "path", path)
		return store, nil

	case "bolt":
		if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
			return nil, fmt.Errorf("creating data dir: %w", err)
		}
		path := filepath.Join(cfg.DataDir, "station.bolt")
		store, err := bolt.Open(path)
		if err != nil {
			return nil, fmt.Errorf("opening bolt store: %w", err)
		}
		logger.Info("opened bolt store", "path", path)
		return store, nil

	case "memory":
		logger.Warn("using in-memory store, session will not survive restarts")
		return storage.NewMemory(), nil

	default:
		return nil, fmt.Errorf("unknown store driver %q", cfg.StoreDriver)
	}
}
