// Package wallet wires the data store, keystore, chain view, sync engine,
// and spend planner into the single Wallet object the RPC surface and CLI
// subcommands operate on: an explicit runtime handle passed to each
// subsystem at construction, in place of global state.
package wallet

import (
	"context"
	"fmt"

	"github.com/zallet-core/zallet/internal/build"
	"github.com/zallet-core/zallet/internal/chainview"
	"github.com/zallet-core/zallet/internal/config"
	"github.com/zallet-core/zallet/internal/keystore"
	"github.com/zallet-core/zallet/internal/sync"
	"github.com/zallet-core/zallet/internal/walletdb"
)

var log = build.NewLogger(build.SubsystemCore)

// Wallet is the CORE: the data store plus the three subsystems built on
// top of it, and the configuration and chain-view collaborator they share.
type Wallet struct {
	Config   config.Config
	DB       *walletdb.Store
	Keystore *keystore.Store
	Chain    chainview.ChainView
	Sync     *sync.Engine

	syncErrCh <-chan error
}

// Open opens the wallet database (applying migrations), constructs the
// keystore over identity, and wires the sync engine against chain. It does
// not start the sync engine; call Start for that once the caller is ready
// to begin background work.
func Open(ctx context.Context, cfg config.Config, dataDir string, identity keystore.IdentityFile, chain chainview.ChainView) (*Wallet, error) {
	dbName := cfg.WalletDB
	if dbName == "" {
		dbName = "wallet.sqlite"
	}
	db, err := walletdb.Open(ctx, dataDir, dbName)
	if err != nil {
		return nil, fmt.Errorf("wallet: open database: %w", err)
	}

	ks := keystore.New(db, identity)

	w := &Wallet{
		Config:   cfg,
		DB:       db,
		Keystore: ks,
		Chain:    chain,
	}
	w.Sync = sync.New(chain, &syncStoreAdapter{db: db})
	return w, nil
}

// Start launches the sync engine's four tasks. The returned channel
// receives the first fatal task error: a sync error is fatal for the
// whole process, never silently retried.
func (w *Wallet) Start(ctx context.Context) (<-chan error, error) {
	errCh, err := w.Sync.Start(ctx)
	if err != nil {
		return nil, err
	}
	w.syncErrCh = errCh
	return errCh, nil
}

// Close stops the sync engine and releases the database handle.
func (w *Wallet) Close() error {
	if w.Sync != nil {
		w.Sync.Stop()
	}
	return w.DB.Close()
}

// WalletStatus mirrors the shape returned by getwalletinfo/getwalletstatus:
// node tip, wallet tip, fully-synced height, and a rough remaining-work
// estimate derived from the pending scan-range total.
type WalletStatus struct {
	NodeTipHeight     int64
	WalletTipHeight   int64
	FullySyncedHeight int64
	RemainingBlocks   int64
}

// Status computes a WalletStatus snapshot by comparing the chain view's
// current tip against the wallet's committed tip and pending scan ranges.
func (w *Wallet) Status(ctx context.Context) (WalletStatus, error) {
	nodeTip, err := w.Chain.GetLatestBlock(ctx)
	if err != nil {
		return WalletStatus{}, err
	}
	tip, ok, err := w.DB.WalletTip(ctx)
	if err != nil {
		return WalletStatus{}, err
	}
	status := WalletStatus{NodeTipHeight: nodeTip.Height}
	if ok {
		status.WalletTipHeight = tip.Height
	}

	ranges, err := w.DB.ScanRanges(ctx)
	if err != nil {
		return WalletStatus{}, err
	}
	var remaining int64
	fullySynced := status.WalletTipHeight
	for _, r := range ranges {
		remaining += r.End - r.Start + 1
		if r.Start < fullySynced || fullySynced == 0 {
			fullySynced = r.Start
		}
	}
	status.RemainingBlocks = remaining
	status.FullySyncedHeight = fullySynced
	return status, nil
}
