package chainview

import (
	"bytes"
	"context"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/decred/dcrd/dcrjson/v3"

	"github.com/zallet-core/zallet/internal/build"
	"github.com/zallet-core/zallet/internal/zerr"
)

var log = build.NewLogger(build.SubsystemChainView)

// RPCClient implements ChainView against an external chain-view service
// speaking JSON-RPC 1.0 over HTTP, the same envelope shape
// internal/rpc.Server serves to its own callers. It is the concrete
// binding for the "indexer" config section; the service itself --
// compact-block indexing, address indexing, subtree tracking -- is an
// external collaborator, not part of this wallet.
type RPCClient struct {
	endpoint string
	user     string
	password string
	client   *http.Client
	nextID   int64
}

// NewRPCClient constructs a client against endpoint (e.g.
// "http://127.0.0.1:8232"), authenticating with user/password (a cookie
// value is passed as password with an empty user) and bounding every
// request by timeout.
func NewRPCClient(endpoint, user, password string, timeout time.Duration) *RPCClient {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &RPCClient{
		endpoint: endpoint,
		user:     user,
		password: password,
		client:   &http.Client{Timeout: timeout},
	}
}

type rpcRequest struct {
	ID     int64             `json:"id"`
	Method string            `json:"method"`
	Params []json.RawMessage `json:"params"`
}

type rpcResponse struct {
	Result json.RawMessage   `json:"result"`
	Error  *dcrjson.RPCError `json:"error"`
}

func marshalParam(v interface{}) json.RawMessage {
	b, err := json.Marshal(v)
	if err != nil {
		panic(err) // only called with values we construct ourselves
	}
	return b
}

func (c *RPCClient) call(ctx context.Context, method string, params []json.RawMessage, out interface{}) error {
	c.nextID++
	body, err := json.Marshal(rpcRequest{ID: c.nextID, Method: method, Params: params})
	if err != nil {
		return fmt.Errorf("%w: %v", zerr.ErrProtocol, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("%w: %v", zerr.ErrTransport, err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.user != "" || c.password != "" {
		req.SetBasicAuth(c.user, c.password)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		log.Debugf("chainview: %s: %v", method, err)
		return fmt.Errorf("%w: %v", zerr.ErrTransport, err)
	}
	defer resp.Body.Close()

	var rpcResp rpcResponse
	if err := json.NewDecoder(resp.Body).Decode(&rpcResp); err != nil {
		return fmt.Errorf("%w: %v", zerr.ErrProtocol, err)
	}
	if rpcResp.Error != nil {
		// -5 is zcashd/bitcoind's legacy "no information available" code,
		// the same CodeInvalidAddressOrKey internal/rpc/errors.go maps its
		// own unknown-address responses to.
		if rpcResp.Error.Code == -5 {
			return zerr.ErrNotFound
		}
		return fmt.Errorf("%w: %s", zerr.ErrProtocol, rpcResp.Error.Message)
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(rpcResp.Result, out); err != nil {
		return fmt.Errorf("%w: %v", zerr.ErrProtocol, err)
	}
	return nil
}

type blockHeaderWire struct {
	Height   int64  `json:"height"`
	Hash     string `json:"hash"`
	PrevHash string `json:"previousblockhash"`
	Time     uint32 `json:"time"`
}

func decodeHash(s string) ([32]byte, error) {
	var h [32]byte
	b, err := hex.DecodeString(s)
	if err != nil || len(b) != 32 {
		return h, fmt.Errorf("%w: malformed hash %q", zerr.ErrProtocol, s)
	}
	copy(h[:], b)
	return h, nil
}

// GetLatestBlock implements ChainView.
func (c *RPCClient) GetLatestBlock(ctx context.Context) (BlockMeta, error) {
	var header blockHeaderWire
	if err := c.call(ctx, "getbestblockheader", nil, &header); err != nil {
		return BlockMeta{}, err
	}
	hash, err := decodeHash(header.Hash)
	if err != nil {
		return BlockMeta{}, err
	}
	prev, err := decodeHash(header.PrevHash)
	if err != nil {
		return BlockMeta{}, err
	}
	return BlockMeta{BlockID: BlockID{Height: header.Height, Hash: hash}, PrevHash: prev}, nil
}

type compactBlockWire struct {
	Height            int64    `json:"height"`
	Hash              string   `json:"hash"`
	PrevHash          string   `json:"previousblockhash"`
	Time              uint32   `json:"time"`
	SaplingOutputs    []string `json:"saplingoutputs"`
	OrchardActions    []string `json:"orchardactions"`
	TransparentOutPts []string `json:"transparentoutpoints"`
}

func decodeCompactBlock(w compactBlockWire) (CompactBlock, error) {
	hash, err := decodeHash(w.Hash)
	if err != nil {
		return CompactBlock{}, err
	}
	prev, err := decodeHash(w.PrevHash)
	if err != nil {
		return CompactBlock{}, err
	}
	cb := CompactBlock{
		BlockMeta: BlockMeta{BlockID: BlockID{Height: w.Height, Hash: hash}, PrevHash: prev},
		Time:      w.Time,
	}
	for _, s := range w.SaplingOutputs {
		b, err := hex.DecodeString(s)
		if err != nil {
			return CompactBlock{}, fmt.Errorf("%w: %v", zerr.ErrProtocol, err)
		}
		cb.SaplingOutputs = append(cb.SaplingOutputs, b)
	}
	for _, s := range w.OrchardActions {
		b, err := hex.DecodeString(s)
		if err != nil {
			return CompactBlock{}, fmt.Errorf("%w: %v", zerr.ErrProtocol, err)
		}
		cb.OrchardActions = append(cb.OrchardActions, b)
	}
	for _, s := range w.TransparentOutPts {
		b, err := hex.DecodeString(s)
		if err != nil {
			return CompactBlock{}, fmt.Errorf("%w: %v", zerr.ErrProtocol, err)
		}
		cb.TransparentOutPts = append(cb.TransparentOutPts, b)
	}
	return cb, nil
}

// FetchBlock implements ChainView.
func (c *RPCClient) FetchBlock(ctx context.Context, hash [32]byte) (CompactBlock, error) {
	var w compactBlockWire
	params := []json.RawMessage{marshalParam(hex.EncodeToString(hash[:]))}
	if err := c.call(ctx, "z_getcompactblock", params, &w); err != nil {
		return CompactBlock{}, err
	}
	return decodeCompactBlock(w)
}

// FetchBlocks implements ChainView.
func (c *RPCClient) FetchBlocks(ctx context.Context, startHeight, endHeight int64) ([]CompactBlock, error) {
	var wires []compactBlockWire
	params := []json.RawMessage{marshalParam(startHeight), marshalParam(endHeight)}
	if err := c.call(ctx, "z_getcompactblockrange", params, &wires); err != nil {
		return nil, err
	}
	out := make([]CompactBlock, 0, len(wires))
	for _, w := range wires {
		cb, err := decodeCompactBlock(w)
		if err != nil {
			return nil, err
		}
		out = append(out, cb)
	}
	return out, nil
}

type treeStateWire struct {
	Height      int64  `json:"height"`
	SaplingTree string `json:"saplingtree"`
	OrchardTree string `json:"orchardtree"`
}

func (w treeStateWire) decode() (PriorChainState, error) {
	sapling, err := hex.DecodeString(w.SaplingTree)
	if err != nil {
		return PriorChainState{}, fmt.Errorf("%w: %v", zerr.ErrProtocol, err)
	}
	orchard, err := hex.DecodeString(w.OrchardTree)
	if err != nil {
		return PriorChainState{}, fmt.Errorf("%w: %v", zerr.ErrProtocol, err)
	}
	return PriorChainState{Height: w.Height, SaplingTree: sapling, OrchardTree: orchard}, nil
}

// FetchChainState implements ChainView.
func (c *RPCClient) FetchChainState(ctx context.Context, height int64) (PriorChainState, error) {
	var w treeStateWire
	params := []json.RawMessage{marshalParam(height)}
	if err := c.call(ctx, "z_gettreestate", params, &w); err != nil {
		return PriorChainState{}, err
	}
	return w.decode()
}

// GetTreeState implements ChainView.
func (c *RPCClient) GetTreeState(ctx context.Context, id BlockID) (PriorChainState, error) {
	return c.FetchChainState(ctx, id.Height)
}

// pollingMempoolStream implements MempoolStream by repeatedly diffing
// getrawmempool against what it has already yielded, the idiomatic
// fallback when the indexer exposes no native streaming transport over
// plain JSON-RPC. It closes as soon as the caller-supplied context is
// cancelled, which the sync engine does on tip change.
type pollingMempoolStream struct {
	client  *RPCClient
	seen    map[string]bool
	pending [][]byte
}

// GetMempoolStream implements ChainView.
func (c *RPCClient) GetMempoolStream(ctx context.Context) (MempoolStream, error) {
	return &pollingMempoolStream{client: c, seen: map[string]bool{}}, nil
}

func (s *pollingMempoolStream) Next(ctx context.Context) ([]byte, bool, error) {
	for {
		if len(s.pending) > 0 {
			next := s.pending[0]
			s.pending = s.pending[1:]
			return next, true, nil
		}
		select {
		case <-ctx.Done():
			return nil, false, ctx.Err()
		default:
		}

		var txids []string
		if err := s.client.call(ctx, "getrawmempool", nil, &txids); err != nil {
			return nil, false, err
		}
		var newTxids []string
		for _, txid := range txids {
			if !s.seen[txid] {
				s.seen[txid] = true
				newTxids = append(newTxids, txid)
			}
		}
		if len(newTxids) == 0 {
			select {
			case <-ctx.Done():
				return nil, false, ctx.Err()
			case <-time.After(2 * time.Second):
				continue
			}
		}
		for _, txid := range newTxids {
			var hexTx string
			params := []json.RawMessage{marshalParam(txid), marshalParam(false)}
			if err := s.client.call(ctx, "getrawtransaction", params, &hexTx); err != nil {
				continue
			}
			raw, err := hex.DecodeString(hexTx)
			if err != nil {
				continue
			}
			s.pending = append(s.pending, raw)
		}
	}
}

func (s *pollingMempoolStream) Close() error { return nil }

type rawTxWire struct {
	Hex           string  `json:"hex"`
	Height        *int64  `json:"height"`
	Confirmations int64   `json:"confirmations"`
	BlockHash     *string `json:"blockhash"`
	Time          int64   `json:"time"`
}

// GetRawTransaction implements ChainView.
func (c *RPCClient) GetRawTransaction(ctx context.Context, txid [32]byte, verbose bool) (*RawTxResult, error) {
	var w rawTxWire
	params := []json.RawMessage{marshalParam(hex.EncodeToString(txid[:])), marshalParam(verbose)}
	if err := c.call(ctx, "getrawtransaction", params, &w); err != nil {
		if errIsNotFound(err) {
			return nil, nil
		}
		return nil, err
	}
	raw, err := hex.DecodeString(w.Hex)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", zerr.ErrProtocol, err)
	}
	result := &RawTxResult{
		Hex:           raw,
		Height:        w.Height,
		Confirmations: w.Confirmations,
		Time:          w.Time,
	}
	if w.BlockHash != nil {
		hash, err := decodeHash(*w.BlockHash)
		if err != nil {
			return nil, err
		}
		result.BlockHash = &hash
	}
	return result, nil
}

func errIsNotFound(err error) bool {
	return err == zerr.ErrNotFound
}

// SendRawTransaction implements ChainView.
func (c *RPCClient) SendRawTransaction(ctx context.Context, raw []byte) error {
	params := []json.RawMessage{marshalParam(hex.EncodeToString(raw))}
	return c.call(ctx, "sendrawtransaction", params, nil)
}

type addressUTXOWire struct {
	Address  string `json:"address"`
	TxID     string `json:"txid"`
	Index    uint32 `json:"outputIndex"`
	Script   string `json:"script"`
	Value    int64  `json:"satoshis"`
	Height   int64  `json:"height"`
	Coinbase bool   `json:"coinbase"`
}

// GetAddressUTXOs implements ChainView.
func (c *RPCClient) GetAddressUTXOs(ctx context.Context, addresses []string) ([]AddressUTXO, error) {
	var wires []addressUTXOWire
	params := []json.RawMessage{marshalParam(map[string][]string{"addresses": addresses})}
	if err := c.call(ctx, "getaddressutxos", params, &wires); err != nil {
		return nil, err
	}
	out := make([]AddressUTXO, 0, len(wires))
	for _, w := range wires {
		txid, err := decodeHash(w.TxID)
		if err != nil {
			return nil, err
		}
		script, err := hex.DecodeString(w.Script)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", zerr.ErrProtocol, err)
		}
		out = append(out, AddressUTXO{
			Address:  w.Address,
			TxID:     txid,
			Index:    w.Index,
			Script:   script,
			Value:    w.Value,
			Height:   w.Height,
			Coinbase: w.Coinbase,
		})
	}
	return out, nil
}

// GetAddressTxIDs implements ChainView.
func (c *RPCClient) GetAddressTxIDs(ctx context.Context, addresses []string, startHeight, endHeight int64) ([][32]byte, error) {
	var txids []string
	params := []json.RawMessage{marshalParam(map[string]interface{}{
		"addresses": addresses,
		"start":     startHeight,
		"end":       endHeight,
	})}
	if err := c.call(ctx, "getaddresstxids", params, &txids); err != nil {
		return nil, err
	}
	out := make([][32]byte, 0, len(txids))
	for _, s := range txids {
		h, err := decodeHash(s)
		if err != nil {
			return nil, err
		}
		out = append(out, h)
	}
	return out, nil
}

type subtreeRootWire struct {
	Index    uint32 `json:"index"`
	RootHash string `json:"root"`
	Height   int64  `json:"height"`
}

func decodeSubtreeRoots(wires []subtreeRootWire) ([]SubtreeRoot, error) {
	out := make([]SubtreeRoot, 0, len(wires))
	for _, w := range wires {
		h, err := decodeHash(w.RootHash)
		if err != nil {
			return nil, err
		}
		out = append(out, SubtreeRoot{Index: w.Index, RootHash: h, Height: w.Height})
	}
	return out, nil
}

// GetSaplingSubtreeRoots implements ChainView.
func (c *RPCClient) GetSaplingSubtreeRoots(ctx context.Context) ([]SubtreeRoot, error) {
	var wires []subtreeRootWire
	if err := c.call(ctx, "z_getsubtreesbyindex", []json.RawMessage{marshalParam("sapling"), marshalParam(0)}, &wires); err != nil {
		return nil, err
	}
	return decodeSubtreeRoots(wires)
}

// GetOrchardSubtreeRoots implements ChainView.
func (c *RPCClient) GetOrchardSubtreeRoots(ctx context.Context) ([]SubtreeRoot, error) {
	var wires []subtreeRootWire
	if err := c.call(ctx, "z_getsubtreesbyindex", []json.RawMessage{marshalParam("orchard"), marshalParam(0)}, &wires); err != nil {
		return nil, err
	}
	return decodeSubtreeRoots(wires)
}

var _ ChainView = (*RPCClient)(nil)
