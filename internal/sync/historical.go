package sync

import (
	"context"
	"time"
)

// recoverHistory operates strictly below the initialization boundary,
// splitting suggested ranges into bounded batches and restarting from the
// highest-priority range whenever a higher-priority one appears mid-batch
// (e.g. a FoundNote range surfacing from the steady-state task). It never
// handles reorgs; the steady-state task is the sole truncation writer.
func (e *Engine) recoverHistory(ctx context.Context) error {
	for {
		if err := ctx.Err(); err != nil {
			return nil
		}

		ranges, err := e.store.SuggestedScanRanges(ctx)
		if err != nil {
			return err
		}
		r, ok := highestPriority(ranges, PriorityScanned)
		if !ok || r.Priority == PriorityScanned {
			select {
			case <-ctx.Done():
				return nil
			case <-time.After(30 * time.Second):
			}
			continue
		}
		if r.Priority >= PriorityChainTip {
			// Steady-state-owned work; leave it alone.
			select {
			case <-ctx.Done():
				return nil
			case <-time.After(30 * time.Second):
			}
			continue
		}

		if err := e.recoverRangeInBatches(ctx, r); err != nil {
			return err
		}
	}
}

func (e *Engine) recoverRangeInBatches(ctx context.Context, r ScanRange) error {
	start := r.Start
	for start <= r.End {
		end := start + historicalBatchSize - 1
		if end > r.End {
			end = r.End
		}

		if err := e.scanRange(ctx, ScanRange{Start: start, End: end, Priority: r.Priority}); err != nil {
			return err
		}

		ranges, err := e.store.SuggestedScanRanges(ctx)
		if err != nil {
			return err
		}
		if next, ok := highestPriority(ranges, PriorityFoundNote); ok && next.Priority > r.Priority {
			// Abandon this range; the caller's loop will pick up the
			// higher-priority one on its next iteration.
			return nil
		}

		start = end + 1
	}
	return nil
}
