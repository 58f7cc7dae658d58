package sync

import (
	"context"
	"fmt"

	"github.com/zallet-core/zallet/internal/chainview"
	"github.com/zallet-core/zallet/internal/zerr"
)

// steadyState tracks the chain tip, truncating on reorg and scanning new
// blocks, then streams the mempool until the stream closes to signal a new
// tip is available.
func (e *Engine) steadyState(ctx context.Context) error {
	for {
		if err := ctx.Err(); err != nil {
			return nil
		}

		prevTip, ok, err := e.store.KnownTip(ctx)
		if err != nil {
			return err
		}
		if !ok {
			prevTip, err = e.chain.GetLatestBlock(ctx)
			if err != nil {
				return err
			}
			if err := e.store.SetKnownTip(ctx, prevTip); err != nil {
				return err
			}
		}

		currentTip, err := e.chain.GetLatestBlock(ctx)
		if err != nil {
			return err
		}

		if currentTip.Hash != prevTip.Hash {
			forkPoint, err := e.findForkPoint(ctx, prevTip, currentTip)
			if err != nil {
				return err
			}
			if forkPoint.Height != prevTip.Height {
				if _, err := e.store.TruncateToHeight(ctx, forkPoint.Height); err != nil {
					return err
				}
			}

			blocks, err := e.chain.FetchBlocks(ctx, forkPoint.Height+1, currentTip.Height)
			if err != nil {
				return err
			}
			prior, err := e.chain.FetchChainState(ctx, forkPoint.Height)
			if err != nil {
				return err
			}
			if err := e.store.CommitScannedRange(ctx, ScanRange{
				Start: forkPoint.Height + 1, End: currentTip.Height, Priority: PriorityChainTip,
			}, blocks, prior); err != nil {
				return err
			}
			if err := e.store.SetKnownTip(ctx, currentTip); err != nil {
				return err
			}
			e.notifyTipChanged()
			continue
		}

		if err := e.streamMempool(ctx, currentTip); err != nil {
			return err
		}
	}
}

// maxReorgDepth bounds how far back findForkPoint will walk the new chain
// looking for a common ancestor before giving up.
const maxReorgDepth = 100

// findForkPoint walks the new chain back from currentTip, one prev_hash at
// a time, until it reaches a block whose hash the wallet also recorded at
// that height; that block is the fork point. Heights above prevTip cannot
// be shared (the wallet never saw them), so the walk descends to
// prevTip.Height before comparing. A walk deeper than maxReorgDepth is an
// error rather than an ever-longer fetch loop.
func (e *Engine) findForkPoint(ctx context.Context, prevTip, currentTip chainview.BlockMeta) (chainview.BlockMeta, error) {
	cur := currentTip
	for depth := 0; depth <= maxReorgDepth; depth++ {
		if cur.Height <= prevTip.Height {
			stored, ok, err := e.store.BlockMetaAtHeight(ctx, cur.Height)
			if err != nil {
				return chainview.BlockMeta{}, err
			}
			if !ok && cur.Height == prevTip.Height {
				// A freshly initialized wallet has no scanned ancestry
				// yet, only the tip itself.
				stored, ok = prevTip, true
			}
			if ok && stored.Hash == cur.Hash {
				return cur, nil
			}
		}
		if cur.Height == 0 {
			return cur, nil
		}
		block, err := e.chain.FetchBlock(ctx, cur.PrevHash)
		if err != nil {
			return chainview.BlockMeta{}, err
		}
		cur = block.BlockMeta
	}
	return chainview.BlockMeta{}, fmt.Errorf("%w: no common ancestor within %d blocks of the tip",
		zerr.ErrReorgDepthExceeded, maxReorgDepth)
}

func (e *Engine) streamMempool(ctx context.Context, tip chainview.BlockMeta) error {
	stream, err := e.chain.GetMempoolStream(ctx)
	if err != nil {
		return err
	}
	defer stream.Close()

	for {
		raw, ok, err := stream.Next(ctx)
		if err != nil {
			return err
		}
		if !ok {
			// Stream closed: the chain tip advanced.
			return nil
		}
		if err := e.store.CommitScannedRange(ctx, ScanRange{
			Start: tip.Height + 1, End: tip.Height + 1, Priority: PriorityChainTip,
		}, []chainview.CompactBlock{{TransparentOutPts: [][]byte{raw}}}, chainview.PriorChainState{Height: tip.Height}); err != nil {
			return err
		}
	}
}
