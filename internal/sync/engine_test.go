package sync

import (
	"context"
	"errors"
	"testing"

	"github.com/zallet-core/zallet/internal/chainview"
	"github.com/zallet-core/zallet/internal/zerr"
)

func TestHighestPriority(t *testing.T) {
	ranges := []ScanRange{
		{Start: 0, End: 10, Priority: PriorityHistoric},
		{Start: 10, End: 20, Priority: PriorityVerify},
		{Start: 20, End: 30, Priority: PriorityFoundNote},
	}
	r, ok := highestPriority(ranges, PriorityScanned)
	if !ok || r.Priority != PriorityVerify {
		t.Fatalf("expected Verify range to win, got %+v ok=%v", r, ok)
	}

	r, ok = highestPriority(ranges, PriorityChainTip)
	if !ok || r.Priority != PriorityVerify {
		t.Fatalf("expected only the Verify range to qualify at ChainTip-and-above, got %+v ok=%v", r, ok)
	}
}

// fakeStore records the mutations the engine performs so tests can assert
// on ordering and heights without a real database.
type fakeStore struct {
	tip         chainview.BlockMeta
	hasTip      bool
	truncatedTo []int64
	committed   []ScanRange
	ranges      []ScanRange
	blocks      map[int64]chainview.BlockMeta // scanned ancestry by height
}

func (s *fakeStore) TruncateToHeight(ctx context.Context, height int64) (int64, error) {
	s.truncatedTo = append(s.truncatedTo, height)
	return height, nil
}

func (s *fakeStore) SuggestedScanRanges(ctx context.Context) ([]ScanRange, error) {
	return s.ranges, nil
}

func (s *fakeStore) CommitScannedRange(ctx context.Context, r ScanRange, blocks []chainview.CompactBlock, prior chainview.PriorChainState) error {
	s.committed = append(s.committed, r)
	rest := s.ranges[:0]
	for _, q := range s.ranges {
		if q != r {
			rest = append(rest, q)
		}
	}
	s.ranges = rest
	return nil
}

func (s *fakeStore) KnownTip(ctx context.Context) (chainview.BlockMeta, bool, error) {
	return s.tip, s.hasTip, nil
}

func (s *fakeStore) SetKnownTip(ctx context.Context, tip chainview.BlockMeta) error {
	s.tip, s.hasTip = tip, true
	return nil
}

func (s *fakeStore) BlockMetaAtHeight(ctx context.Context, height int64) (chainview.BlockMeta, bool, error) {
	meta, ok := s.blocks[height]
	return meta, ok, nil
}

func (s *fakeStore) NonEphemeralTransparentAddresses(ctx context.Context) ([]string, error) {
	return nil, nil
}

func (s *fakeStore) UpsertTransparentUTXO(ctx context.Context, u chainview.AddressUTXO) error {
	return nil
}

func (s *fakeStore) PendingDataRequests(ctx context.Context) ([]DataRequest, error) {
	return nil, nil
}

func (s *fakeStore) ResolveDataRequest(ctx context.Context, id int64, asOfHeight int64) error {
	return nil
}

func (s *fakeStore) StoreSubtreeRoots(ctx context.Context, protocol string, roots []chainview.SubtreeRoot) error {
	return nil
}

// fakeChain serves a single static tip, hash-addressable block headers for
// ancestry walks, and empty block data; its mempool stream closes
// immediately and cancels the engine's context so loop-style tasks
// terminate after one pass.
type fakeChain struct {
	tip     chainview.BlockMeta
	headers map[[32]byte]chainview.BlockMeta
	cancel  context.CancelFunc
}

func (c *fakeChain) GetLatestBlock(ctx context.Context) (chainview.BlockMeta, error) {
	return c.tip, nil
}

func (c *fakeChain) FetchBlock(ctx context.Context, hash [32]byte) (chainview.CompactBlock, error) {
	meta, ok := c.headers[hash]
	if !ok {
		return chainview.CompactBlock{}, errors.New("fakeChain: unknown block hash")
	}
	return chainview.CompactBlock{BlockMeta: meta}, nil
}

func (c *fakeChain) FetchBlocks(ctx context.Context, start, end int64) ([]chainview.CompactBlock, error) {
	var out []chainview.CompactBlock
	for h := start; h <= end; h++ {
		out = append(out, chainview.CompactBlock{BlockMeta: chainview.BlockMeta{BlockID: chainview.BlockID{Height: h}}})
	}
	return out, nil
}

func (c *fakeChain) FetchChainState(ctx context.Context, height int64) (chainview.PriorChainState, error) {
	return chainview.PriorChainState{Height: height}, nil
}

type closedStream struct{}

func (closedStream) Next(ctx context.Context) ([]byte, bool, error) { return nil, false, nil }
func (closedStream) Close() error                                   { return nil }

func (c *fakeChain) GetMempoolStream(ctx context.Context) (chainview.MempoolStream, error) {
	if c.cancel != nil {
		c.cancel()
	}
	return closedStream{}, nil
}

func (c *fakeChain) GetRawTransaction(ctx context.Context, txid [32]byte, verbose bool) (*chainview.RawTxResult, error) {
	return nil, errors.New("fakeChain: GetRawTransaction unused")
}

func (c *fakeChain) SendRawTransaction(ctx context.Context, raw []byte) error { return nil }

func (c *fakeChain) GetAddressUTXOs(ctx context.Context, addresses []string) ([]chainview.AddressUTXO, error) {
	return nil, nil
}

func (c *fakeChain) GetAddressTxIDs(ctx context.Context, addresses []string, start, end int64) ([][32]byte, error) {
	return nil, nil
}

func (c *fakeChain) GetSaplingSubtreeRoots(ctx context.Context) ([]chainview.SubtreeRoot, error) {
	return nil, nil
}

func (c *fakeChain) GetOrchardSubtreeRoots(ctx context.Context) ([]chainview.SubtreeRoot, error) {
	return nil, nil
}

func (c *fakeChain) GetTreeState(ctx context.Context, id chainview.BlockID) (chainview.PriorChainState, error) {
	return chainview.PriorChainState{Height: id.Height}, nil
}

var _ chainview.ChainView = (*fakeChain)(nil)
var _ Store = (*fakeStore)(nil)

// blockAt builds a linked BlockMeta whose hash encodes (branch, height) so
// test chains are easy to read: branch 0 is shared ancestry.
func blockAt(branch byte, height int64, prev chainview.BlockMeta) chainview.BlockMeta {
	var hash [32]byte
	hash[0] = branch
	hash[1] = byte(height)
	return chainview.BlockMeta{
		BlockID:  chainview.BlockID{Height: height, Hash: hash},
		PrevHash: prev.Hash,
	}
}

// TestSteadyStateReorg drives one steady-state pass through a reorg whose
// fork point is deeper than one block below the lower tip: the wallet
// believes the tip is (100, H_old), the chain has advanced to (103, H_new),
// and the two chains diverge above 97. The wallet must walk the new
// chain's ancestry back to 97, truncate there, scan the replacement
// blocks, and commit the new tip.
func TestSteadyStateReorg(t *testing.T) {
	store := &fakeStore{blocks: map[int64]chainview.BlockMeta{}}
	chain := &fakeChain{headers: map[[32]byte]chainview.BlockMeta{}}

	// Shared ancestry through 97, then two branches.
	shared := chainview.BlockMeta{}
	for h := int64(95); h <= 97; h++ {
		shared = blockAt(0, h, shared)
		store.blocks[h] = shared
		chain.headers[shared.Hash] = shared
	}
	old := shared
	for h := int64(98); h <= 100; h++ {
		old = blockAt(1, h, old)
		store.blocks[h] = old
	}
	cur := shared
	for h := int64(98); h <= 103; h++ {
		cur = blockAt(2, h, cur)
		chain.headers[cur.Hash] = cur
	}

	store.tip, store.hasTip = old, true
	chain.tip = cur
	e := New(chain, store)

	ctx, cancel := context.WithCancel(context.Background())
	chain.cancel = cancel
	defer cancel()

	if err := e.steadyState(ctx); err != nil {
		t.Fatalf("steadyState: %v", err)
	}

	if len(store.truncatedTo) != 1 || store.truncatedTo[0] != 97 {
		t.Fatalf("expected a single truncate to the true fork at 97, got %v", store.truncatedTo)
	}
	if len(store.committed) != 1 || store.committed[0].Start != 98 || store.committed[0].End != 103 {
		t.Fatalf("expected commit of 98-103, got %+v", store.committed)
	}
	if store.tip.Hash != cur.Hash || store.tip.Height != 103 {
		t.Fatalf("expected committed tip (103, H_new), got %+v", store.tip)
	}
}

// TestFindForkPointDepthExceeded covers the failure mode where no common
// ancestor exists within the walk window: the engine reports it rather
// than walking forever.
func TestFindForkPointDepthExceeded(t *testing.T) {
	store := &fakeStore{blocks: map[int64]chainview.BlockMeta{}}
	chain := &fakeChain{headers: map[[32]byte]chainview.BlockMeta{}}

	oldTip := chainview.BlockMeta{}
	cur := chainview.BlockMeta{}
	for h := int64(1); h <= 200; h++ {
		oldTip = blockAt(1, h, oldTip)
		store.blocks[h] = oldTip
		cur = blockAt(2, h, cur)
		chain.headers[cur.Hash] = cur
	}

	e := New(chain, store)
	if _, err := e.findForkPoint(context.Background(), oldTip, cur); !errors.Is(err, zerr.ErrReorgDepthExceeded) {
		t.Fatalf("expected reorg depth exceeded, got %v", err)
	}
}

// TestInitializeConsumesVerifyRanges covers the restart path: initialize
// records the chain tip, then scans every Verify-priority range (the
// fake store drains a range once committed) before returning.
func TestInitializeConsumesVerifyRanges(t *testing.T) {
	tip := chainview.BlockMeta{BlockID: chainview.BlockID{Height: 120, Hash: [32]byte{3}}}
	store := &fakeStore{
		ranges: []ScanRange{
			{Start: 110, End: 120, Priority: PriorityVerify},
			{Start: 0, End: 100, Priority: PriorityHistoric},
		},
	}
	chain := &fakeChain{tip: tip}
	e := New(chain, store)

	if err := e.initialize(context.Background()); err != nil {
		t.Fatalf("initialize: %v", err)
	}
	if !store.hasTip || store.tip.Height != 120 {
		t.Fatalf("expected known tip 120 after initialize, got %+v", store.tip)
	}
	if len(store.committed) != 1 || store.committed[0].Priority != PriorityVerify {
		t.Fatalf("expected exactly the verify range to be scanned, got %+v", store.committed)
	}
	if len(store.ranges) != 1 || store.ranges[0].Priority != PriorityHistoric {
		t.Fatalf("expected the historic range to be left for recovery, got %+v", store.ranges)
	}
}
