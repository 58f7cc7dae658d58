package wallet

import (
	"context"

	"github.com/zallet-core/zallet/internal/chainview"
	"github.com/zallet-core/zallet/internal/sync"
	"github.com/zallet-core/zallet/internal/walletdb"
)

// syncStoreAdapter implements sync.Store over *walletdb.Store, translating
// between the data store's row types and the sync package's own ScanRange/
// DataRequest types. It exists here rather than in internal/walletdb so
// that package stays free of any dependency on internal/sync, keeping the
// dependency order leaves-first.
type syncStoreAdapter struct {
	db *walletdb.Store
}

func (a *syncStoreAdapter) TruncateToHeight(ctx context.Context, height int64) (int64, error) {
	return a.db.TruncateToHeight(ctx, height)
}

func (a *syncStoreAdapter) SuggestedScanRanges(ctx context.Context) ([]sync.ScanRange, error) {
	rows, err := a.db.ScanRanges(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]sync.ScanRange, 0, len(rows))
	for _, r := range rows {
		out = append(out, sync.ScanRange{Start: r.Start, End: r.End, Priority: priorityFromString(r.Priority)})
	}
	return out, nil
}

func (a *syncStoreAdapter) CommitScannedRange(ctx context.Context, r sync.ScanRange, blocks []chainview.CompactBlock, prior chainview.PriorChainState) error {
	return a.db.CommitScannedRange(ctx, r.Start, r.End, blocks, prior)
}

func (a *syncStoreAdapter) KnownTip(ctx context.Context) (chainview.BlockMeta, bool, error) {
	return a.db.WalletTip(ctx)
}

func (a *syncStoreAdapter) SetKnownTip(ctx context.Context, tip chainview.BlockMeta) error {
	return a.db.SetWalletTip(ctx, tip)
}

func (a *syncStoreAdapter) BlockMetaAtHeight(ctx context.Context, height int64) (chainview.BlockMeta, bool, error) {
	return a.db.BlockMetaAtHeight(ctx, height)
}

func (a *syncStoreAdapter) NonEphemeralTransparentAddresses(ctx context.Context) ([]string, error) {
	return a.db.TransparentAddressesByScope(ctx, walletdb.ScopeExternal, walletdb.ScopeInternal)
}

func (a *syncStoreAdapter) UpsertTransparentUTXO(ctx context.Context, u chainview.AddressUTXO) error {
	return a.db.UpsertTransparentUTXOFromChain(ctx, u)
}

func (a *syncStoreAdapter) PendingDataRequests(ctx context.Context) ([]sync.DataRequest, error) {
	rows, err := a.db.PendingDataRequests(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]sync.DataRequest, 0, len(rows))
	for _, r := range rows {
		var txid [32]byte
		copy(txid[:], r.TxID)
		out = append(out, sync.DataRequest{
			ID:                 r.ID,
			Kind:               r.Kind,
			TxID:               txid,
			Address:            r.Address,
			StartHeight:        r.StartHeight,
			EndHeight:          r.EndHeight,
			TxStatusFilter:     r.TxStatusFilter,
			OutputStatusFilter: r.OutputStatusFilter,
		})
	}
	return out, nil
}

func (a *syncStoreAdapter) ResolveDataRequest(ctx context.Context, id int64, asOfHeight int64) error {
	return a.db.ResolveDataRequest(ctx, id, asOfHeight)
}

func (a *syncStoreAdapter) StoreSubtreeRoots(ctx context.Context, protocol string, roots []chainview.SubtreeRoot) error {
	return a.db.StoreSubtreeRoots(ctx, protocol, roots)
}

func priorityFromString(s string) sync.Priority {
	switch s {
	case "verify":
		return sync.PriorityVerify
	case "chain_tip":
		return sync.PriorityChainTip
	case "historic":
		return sync.PriorityHistoric
	case "open_adjacent":
		return sync.PriorityOpenAdjacent
	case "found_note":
		return sync.PriorityFoundNote
	default:
		return sync.PriorityScanned
	}
}
