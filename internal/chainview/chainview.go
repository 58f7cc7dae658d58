// Package chainview defines the external chain-view collaborator: compact
// blocks, raw transactions, mempool streaming, address-indexed UTXO
// queries, and commitment-tree state. The sync engine and spend planner
// depend only on this interface, never on a concrete chain backend.
package chainview

import "context"

// BlockID identifies a block by height and hash.
type BlockID struct {
	Height int64
	Hash   [32]byte
}

// BlockMeta is a block's identity plus its predecessor, enough to detect
// reorgs without fetching the full block.
type BlockMeta struct {
	BlockID
	PrevHash [32]byte
}

// CompactBlock is the minimal per-block data the sync engine needs to scan
// for wallet-relevant shielded outputs.
type CompactBlock struct {
	BlockMeta
	Time              uint32
	SaplingOutputs    [][]byte
	OrchardActions    [][]byte
	TransparentOutPts [][]byte
}

// PriorChainState is the commitment-tree frontier immediately before a
// scan range, required to build incremental witnesses.
type PriorChainState struct {
	Height        int64
	SaplingTree   []byte
	OrchardTree   []byte
}

// SubtreeRoot is a completed note-commitment-tree shard root.
type SubtreeRoot struct {
	Index    uint32
	RootHash [32]byte
	Height   int64
}

// RawTxResult is the response to a raw-transaction lookup.
type RawTxResult struct {
	Hex           []byte
	Height        *int64
	Confirmations int64
	BlockHash     *[32]byte
	Time          int64
}

// AddressUTXO is a single unspent transparent output reported by the
// address-indexed UTXO endpoint. Coinbase marks outputs created by a
// coinbase transaction; the chain view only reports coinbase outputs it
// considers mature, so maturity is a precondition here, not a rule this
// wallet evaluates.
type AddressUTXO struct {
	Address  string
	TxID     [32]byte
	Index    uint32
	Script   []byte
	Value    int64
	Height   int64
	Coinbase bool
}

// MempoolStream yields transactions as they enter the mempool and closes
// when the chain tip advances, signalling callers to stop reading and
// re-evaluate.
type MempoolStream interface {
	Next(ctx context.Context) ([]byte, bool, error)
	Close() error
}

// ChainView is the full set of operations the sync engine and spend
// planner require of the outside world.
type ChainView interface {
	GetLatestBlock(ctx context.Context) (BlockMeta, error)
	FetchBlock(ctx context.Context, hash [32]byte) (CompactBlock, error)
	FetchBlocks(ctx context.Context, startHeight, endHeight int64) ([]CompactBlock, error)
	FetchChainState(ctx context.Context, height int64) (PriorChainState, error)

	GetMempoolStream(ctx context.Context) (MempoolStream, error)

	GetRawTransaction(ctx context.Context, txid [32]byte, verbose bool) (*RawTxResult, error)
	SendRawTransaction(ctx context.Context, raw []byte) error

	GetAddressUTXOs(ctx context.Context, addresses []string) ([]AddressUTXO, error)
	GetAddressTxIDs(ctx context.Context, addresses []string, startHeight, endHeight int64) ([][32]byte, error)

	GetSaplingSubtreeRoots(ctx context.Context) ([]SubtreeRoot, error)
	GetOrchardSubtreeRoots(ctx context.Context) ([]SubtreeRoot, error)
	GetTreeState(ctx context.Context, id BlockID) (PriorChainState, error)
}
