// Package sync runs the four cooperating tasks that keep the wallet's view
// of the chain current: a steady-state tip follower, historical recovery,
// a transparent-UTXO poller, and a transaction data-request servicer. Each
// task is a goroutine supervised with a shared context/cancel skeleton
// under fatal-on-error supervision: a sync task error is always a reason
// to stop, never to quietly retry.
package sync

import (
	"context"
	"sync"

	"github.com/zallet-core/zallet/internal/build"
	"github.com/zallet-core/zallet/internal/chainview"
)

var log = build.NewLogger(build.SubsystemSync)

// Priority orders pending scan ranges; Verify is serviced before any other
// work, and FoundNote interrupts in-progress Historic recovery.
type Priority int

const (
	PriorityScanned Priority = iota
	PriorityHistoric
	PriorityOpenAdjacent
	PriorityFoundNote
	PriorityChainTip
	PriorityVerify
)

// ScanRange is a height interval of pending work. Both Start and End are
// included; the interval is not half-open.
type ScanRange struct {
	Start, End int64
	Priority   Priority
}

// Store is the subset of the wallet data store the sync engine needs.
type Store interface {
	TruncateToHeight(ctx context.Context, height int64) (int64, error)
	SuggestedScanRanges(ctx context.Context) ([]ScanRange, error)
	CommitScannedRange(ctx context.Context, r ScanRange, blocks []chainview.CompactBlock, prior chainview.PriorChainState) error
	KnownTip(ctx context.Context) (chainview.BlockMeta, bool, error)
	SetKnownTip(ctx context.Context, tip chainview.BlockMeta) error
	BlockMetaAtHeight(ctx context.Context, height int64) (chainview.BlockMeta, bool, error)
	NonEphemeralTransparentAddresses(ctx context.Context) ([]string, error)
	UpsertTransparentUTXO(ctx context.Context, u chainview.AddressUTXO) error
	PendingDataRequests(ctx context.Context) ([]DataRequest, error)
	ResolveDataRequest(ctx context.Context, id int64, asOfHeight int64) error
	StoreSubtreeRoots(ctx context.Context, protocol string, roots []chainview.SubtreeRoot) error
}

// DataRequest is a pending transactional query the wallet owes itself.
type DataRequest struct {
	ID                  int64
	Kind                string // get_status | enhancement | transactions_involving_address
	TxID                [32]byte
	Address             string
	StartHeight, EndHeight int64
	TxStatusFilter      string
	OutputStatusFilter  string
}

const reorgBatchSize = 10
const historicalBatchSize = 100

// Engine owns the four sync tasks and the tip-change broadcast connecting
// them.
type Engine struct {
	chain chainview.ChainView
	store Store

	// Separate single-slot signals per subscriber: pollTransparent and
	// serviceDataRequests both wake on every tip change, so a single shared
	// channel would let one steal the other's wakeup.
	tipChangedPoller   chan struct{}
	tipChangedRequests chan struct{}

	cancel context.CancelFunc
	wg     sync.WaitGroup
	errCh  chan error
}

// New constructs an Engine over chain and store.
func New(chain chainview.ChainView, store Store) *Engine {
	return &Engine{
		chain:              chain,
		store:              store,
		tipChangedPoller:   make(chan struct{}, 1),
		tipChangedRequests: make(chan struct{}, 1),
		errCh:              make(chan error, 4),
	}
}

func (e *Engine) notifyTipChanged() {
	for _, ch := range []chan struct{}{e.tipChangedPoller, e.tipChangedRequests} {
		select {
		case ch <- struct{}{}:
		default:
		}
	}
}

// Start initializes the wallet's verified tip, then launches all four
// tasks. The returned error channel receives the first fatal error from
// any task; Stop should be called once it fires or the caller is done.
func (e *Engine) Start(ctx context.Context) (<-chan error, error) {
	ctx, cancel := context.WithCancel(ctx)
	e.cancel = cancel

	if err := e.initialize(ctx); err != nil {
		cancel()
		return nil, err
	}

	tasks := []func(context.Context) error{
		e.steadyState,
		e.recoverHistory,
		e.pollTransparent,
		e.serviceDataRequests,
	}
	for _, task := range tasks {
		task := task
		e.wg.Add(1)
		go func() {
			defer e.wg.Done()
			if err := task(ctx); err != nil && ctx.Err() == nil {
				log.Errorf("sync task failed, shutting down: %v", err)
				select {
				case e.errCh <- err:
				default:
				}
				cancel()
			}
		}()
	}
	return e.errCh, nil
}

// Stop cancels every task and waits for them to finish.
func (e *Engine) Stop() {
	if e.cancel != nil {
		e.cancel()
	}
	e.wg.Wait()
}

// initialize fetches subtree roots and the chain tip, then repeatedly
// consumes Verify-priority ranges, truncating on a previous-hash mismatch,
// until none remain.
func (e *Engine) initialize(ctx context.Context) error {
	saplingRoots, err := e.chain.GetSaplingSubtreeRoots(ctx)
	if err != nil {
		return err
	}
	if err := e.store.StoreSubtreeRoots(ctx, "sapling", saplingRoots); err != nil {
		return err
	}
	orchardRoots, err := e.chain.GetOrchardSubtreeRoots(ctx)
	if err != nil {
		return err
	}
	if err := e.store.StoreSubtreeRoots(ctx, "orchard", orchardRoots); err != nil {
		return err
	}

	tip, err := e.chain.GetLatestBlock(ctx)
	if err != nil {
		return err
	}
	if err := e.store.SetKnownTip(ctx, tip); err != nil {
		return err
	}

	for {
		ranges, err := e.store.SuggestedScanRanges(ctx)
		if err != nil {
			return err
		}
		r, ok := highestPriority(ranges, PriorityVerify)
		if !ok {
			return nil
		}
		if err := e.scanRange(ctx, r); err != nil {
			if isPrevHashMismatch(err) {
				truncateTo := r.Start - reorgBatchSize
				if truncateTo < 0 {
					truncateTo = 0
				}
				if _, terr := e.store.TruncateToHeight(ctx, truncateTo); terr != nil {
					return terr
				}
				continue
			}
			return err
		}
	}
}

func highestPriority(ranges []ScanRange, atLeast Priority) (ScanRange, bool) {
	var best ScanRange
	found := false
	for _, r := range ranges {
		if r.Priority < atLeast {
			continue
		}
		if !found || r.Priority > best.Priority {
			best, found = r, true
		}
	}
	return best, found
}

func (e *Engine) scanRange(ctx context.Context, r ScanRange) error {
	blocks, err := e.chain.FetchBlocks(ctx, r.Start, r.End)
	if err != nil {
		return err
	}
	prior, err := e.chain.FetchChainState(ctx, r.Start-1)
	if err != nil {
		return err
	}
	if len(blocks) > 0 && prior.Height != r.Start-1 {
		return prevHashMismatchErr{}
	}
	return e.store.CommitScannedRange(ctx, r, blocks, prior)
}

type prevHashMismatchErr struct{}

func (prevHashMismatchErr) Error() string { return "sync: previous-hash mismatch" }

func isPrevHashMismatch(err error) bool {
	_, ok := err.(prevHashMismatchErr)
	return ok
}
