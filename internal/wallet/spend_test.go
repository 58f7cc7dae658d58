package wallet

import (
	"context"
	"errors"
	"testing"

	"github.com/zallet-core/zallet/internal/chainview"
	"github.com/zallet-core/zallet/internal/config"
	"github.com/zallet-core/zallet/internal/keystore"
	"github.com/zallet-core/zallet/internal/privacy"
	"github.com/zallet-core/zallet/internal/spend"
	"github.com/zallet-core/zallet/internal/walletdb"
)

// stubChain is a minimal chainview.ChainView: only the methods Fund/Send
// actually exercise (GetLatestBlock, SendRawTransaction) do anything;
// every other method is unused by the spend path and errors if called.
type stubChain struct {
	tip       chainview.BlockMeta
	broadcast [][]byte
}

func (s *stubChain) GetLatestBlock(ctx context.Context) (chainview.BlockMeta, error) {
	return s.tip, nil
}
func (s *stubChain) FetchBlock(ctx context.Context, hash [32]byte) (chainview.CompactBlock, error) {
	return chainview.CompactBlock{}, errors.New("stubChain: not implemented")
}
func (s *stubChain) FetchBlocks(ctx context.Context, start, end int64) ([]chainview.CompactBlock, error) {
	return nil, errors.New("stubChain: not implemented")
}
func (s *stubChain) FetchChainState(ctx context.Context, height int64) (chainview.PriorChainState, error) {
	return chainview.PriorChainState{}, errors.New("stubChain: not implemented")
}
func (s *stubChain) GetMempoolStream(ctx context.Context) (chainview.MempoolStream, error) {
	return nil, errors.New("stubChain: not implemented")
}
func (s *stubChain) GetRawTransaction(ctx context.Context, txid [32]byte, verbose bool) (*chainview.RawTxResult, error) {
	return nil, errors.New("stubChain: not implemented")
}
func (s *stubChain) SendRawTransaction(ctx context.Context, raw []byte) error {
	s.broadcast = append(s.broadcast, raw)
	return nil
}
func (s *stubChain) GetAddressUTXOs(ctx context.Context, addresses []string) ([]chainview.AddressUTXO, error) {
	return nil, errors.New("stubChain: not implemented")
}
func (s *stubChain) GetAddressTxIDs(ctx context.Context, addresses []string, start, end int64) ([][32]byte, error) {
	return nil, errors.New("stubChain: not implemented")
}
func (s *stubChain) GetSaplingSubtreeRoots(ctx context.Context) ([]chainview.SubtreeRoot, error) {
	return nil, errors.New("stubChain: not implemented")
}
func (s *stubChain) GetOrchardSubtreeRoots(ctx context.Context) ([]chainview.SubtreeRoot, error) {
	return nil, errors.New("stubChain: not implemented")
}
func (s *stubChain) GetTreeState(ctx context.Context, id chainview.BlockID) (chainview.PriorChainState, error) {
	return chainview.PriorChainState{}, errors.New("stubChain: not implemented")
}

var _ chainview.ChainView = (*stubChain)(nil)

func newTestWallet(t *testing.T, cfg config.Config) (*Wallet, *stubChain) {
	t.Helper()
	chain := &stubChain{tip: chainview.BlockMeta{BlockID: chainview.BlockID{Height: 1000}}}

	id, err := keystore.GenerateIdentity()
	if err != nil {
		t.Fatalf("GenerateIdentity: %v", err)
	}
	w, err := Open(context.Background(), cfg, t.TempDir(), keystore.IdentityFile{Unencrypted: []keystore.Identity{id}}, chain)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { w.Close() })
	return w, chain
}

func seedSpendableTaddrCoin(t *testing.T, w *Wallet, address string, value int64) {
	t.Helper()
	ctx := context.Background()
	if err := w.DB.SetWalletTip(ctx, chainview.BlockMeta{BlockID: chainview.BlockID{Height: 1000}}); err != nil {
		t.Fatalf("SetWalletTip: %v", err)
	}
	acct, err := w.DB.CreateAccount(ctx, walletdb.Account{Name: "taddr-pool", Source: walletdb.SourceImportedViewOnly})
	if err != nil {
		t.Fatalf("CreateAccount: %v", err)
	}
	if _, err := w.DB.CreateAddress(ctx, walletdb.Address{
		AccountID: acct.ID,
		Type:      walletdb.AddressTransparentP2PKH,
		Scope:     walletdb.ScopeExternal,
		Encoding:  address,
	}); err != nil {
		t.Fatalf("CreateAddress: %v", err)
	}
	var txid [32]byte
	txid[0] = 0x42
	if err := w.DB.UpsertTransparentUTXOFromChain(ctx, chainview.AddressUTXO{
		Address: address,
		TxID:    txid,
		Index:   0,
		Script:  []byte{0x76, 0xa9},
		Value:   value,
		Height:  900,
	}); err != nil {
		t.Fatalf("UpsertTransparentUTXOFromChain: %v", err)
	}
}

func TestFundProducesConstructorPCZT(t *testing.T) {
	w, _ := newTestWallet(t, config.Default())
	seedSpendableTaddrCoin(t, w, "t1examplepooladdress", 100000)

	pczt, err := w.Fund(context.Background(), spend.Source{AnyTaddr: true},
		[]spend.Payment{{Recipient: "t1recipient", Value: 1000, IsTransparent: true}},
		1, privacy.AllowFullyTransparent, spend.FeeRate(1000), 500)
	if err != nil {
		t.Fatalf("Fund: %v", err)
	}
	if pczt.Role != spend.RoleConstructor {
		t.Fatalf("expected RoleConstructor, got %v", pczt.Role)
	}
	if pczt.ExpiryHeight != 500 {
		t.Fatalf("expected expiry height 500, got %d", pczt.ExpiryHeight)
	}
}

func TestSendWithBroadcastDisabledReturnsPCZT(t *testing.T) {
	cfg := config.Default()
	disabled := false
	cfg.Broadcast = &disabled
	w, chain := newTestWallet(t, cfg)
	seedSpendableTaddrCoin(t, w, "t1examplepooladdress", 100000)

	result, err := w.Send(context.Background(), spend.Source{AnyTaddr: true},
		[]spend.Payment{{Recipient: "t1recipient", Value: 1000, IsTransparent: true}},
		1, privacy.AllowFullyTransparent, spend.FeeRate(1000))
	if err != nil {
		t.Fatalf("Send: %v", err)
	}
	if result.PCZT == nil || result.TxID != nil {
		t.Fatalf("expected a PCZT result when broadcast is disabled, got %+v", result)
	}
	if len(chain.broadcast) != 0 {
		t.Fatalf("expected no broadcast when BroadcastEnabled() is false")
	}
}
