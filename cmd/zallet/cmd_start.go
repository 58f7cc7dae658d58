package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/urfave/cli"

	"github.com/zallet-core/zallet/internal/chainview"
	"github.com/zallet-core/zallet/internal/config"
	"github.com/zallet-core/zallet/internal/keystore"
	"github.com/zallet-core/zallet/internal/rpc"
	"github.com/zallet-core/zallet/internal/wallet"
)

var startCommand = cli.Command{
	Name:  "start",
	Usage: "start the wallet's sync engine and JSON-RPC server",
	Action: func(c *cli.Context) error {
		return runStart(c)
	},
}

func runStart(c *cli.Context) error {
	dataDir := c.GlobalString("datadir")
	cfg, err := config.Load(c.GlobalString("config"))
	if err != nil {
		return err
	}
	cfg.DataDir = dataDir

	identityPath := cfg.KeyStore.IdentityFile
	if identityPath == "" {
		identityPath = dataDir + "/identity.txt"
	}
	identity, err := keystore.LoadIdentityFile(identityPath)
	if err != nil {
		return fmt.Errorf("zallet: load identity file: %w", err)
	}

	chain := chainview.NewRPCClient(
		cfg.Indexer.Validator,
		"",
		resolveValidatorCredential(cfg),
		time.Duration(cfg.Indexer.RequestTimeoutMS)*time.Millisecond,
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	w, err := wallet.Open(ctx, cfg, dataDir, identity, chain)
	if err != nil {
		return fmt.Errorf("zallet: open wallet: %w", err)
	}
	defer w.Close()

	errCh, err := w.Start(ctx)
	if err != nil {
		return fmt.Errorf("zallet: start sync engine: %w", err)
	}

	server := &rpc.Server{Wallet: w}
	bind := "127.0.0.1:8137"
	if len(cfg.RPC.Bind) > 0 {
		bind = cfg.RPC.Bind[0]
	}
	httpServer := &http.Server{Addr: bind, Handler: server}
	httpErrCh := make(chan error, 1)
	go func() {
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			httpErrCh <- err
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-errCh:
		// Sync-task errors are fatal to the whole process: no automatic
		// restart.
		return fmt.Errorf("zallet: sync engine: %w", err)
	case err := <-httpErrCh:
		return fmt.Errorf("zallet: rpc server: %w", err)
	case <-sigCh:
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 20*time.Second)
		defer shutdownCancel()
		_ = httpServer.Shutdown(shutdownCtx)
		return nil
	}
}

// resolveValidatorCredential prefers a cookie value when configured,
// falling back to the deny-listed password field only if a caller
// supplied it directly in the file (never via environment, per
// config.applyEnv's sensitive-key rejection).
func resolveValidatorCredential(cfg config.Config) string {
	if cfg.Indexer.ValidatorCookie != "" {
		return cfg.Indexer.ValidatorCookie
	}
	return cfg.Indexer.ValidatorPassword
}
