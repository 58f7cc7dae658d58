package wallet

import (
	"context"
	"testing"

	"github.com/zallet-core/zallet/internal/chainview"
	"github.com/zallet-core/zallet/internal/config"
	"github.com/zallet-core/zallet/internal/privacy"
	"github.com/zallet-core/zallet/internal/spend"
	"github.com/zallet-core/zallet/internal/walletdb"
)

func seedCoinbaseCoins(t *testing.T, w *Wallet, address string, values []int64) {
	t.Helper()
	ctx := context.Background()
	acct, err := w.DB.CreateAccount(ctx, walletdb.Account{Name: "miner", Source: walletdb.SourceImportedViewOnly})
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
	for i, v := range values {
		var txid [32]byte
		txid[0] = byte(i + 1)
		if err := w.DB.UpsertTransparentUTXOFromChain(ctx, chainview.AddressUTXO{
			Address:  address,
			TxID:     txid,
			Index:    0,
			Script:   []byte{0x76, 0xa9},
			Value:    v,
			Height:   int64(800 + i),
			Coinbase: true,
		}); err != nil {
			t.Fatalf("UpsertTransparentUTXOFromChain: %v", err)
		}
	}
}

func TestShieldCoinbaseSweepsAll(t *testing.T) {
	cfg := config.Default()
	disabled := false
	cfg.Broadcast = &disabled
	w, _ := newTestWallet(t, cfg)
	seedCoinbaseCoins(t, w, "t1miner", []int64{500_000, 300_000})

	payment := spend.Payment{Recipient: "u1dest", IsShielded: true, Pool: spend.PoolOrchard}
	result, err := w.ShieldCoinbase(context.Background(), "t1miner", payment, 0, privacy.AllowRevealedSenders, spend.FeeRate(1000))
	if err != nil {
		t.Fatalf("ShieldCoinbase: %v", err)
	}
	if result.ShieldingUTXOs != 2 || result.ShieldingValue != 800_000 {
		t.Fatalf("expected both coinbase outputs swept, got %+v", result)
	}
	if result.RemainingUTXOs != 0 || result.RemainingValue != 0 {
		t.Fatalf("expected nothing left behind, got %+v", result)
	}
	if result.ReceivedValue <= 0 || result.ReceivedValue >= 800_000 {
		t.Fatalf("expected fee-reduced received value, got %d", result.ReceivedValue)
	}
	if result.PCZT == nil {
		t.Fatalf("expected a PCZT with broadcast disabled")
	}
}

func TestShieldCoinbaseHonorsLimit(t *testing.T) {
	cfg := config.Default()
	disabled := false
	cfg.Broadcast = &disabled
	w, _ := newTestWallet(t, cfg)
	seedCoinbaseCoins(t, w, "t1miner", []int64{500_000, 300_000, 200_000})

	payment := spend.Payment{Recipient: "u1dest", IsShielded: true, Pool: spend.PoolOrchard}
	result, err := w.ShieldCoinbase(context.Background(), "t1miner", payment, 2, privacy.AllowRevealedSenders, spend.FeeRate(1000))
	if err != nil {
		t.Fatalf("ShieldCoinbase: %v", err)
	}
	if result.ShieldingUTXOs != 2 {
		t.Fatalf("expected the limit to cap the sweep at 2 outputs, got %d", result.ShieldingUTXOs)
	}
	if result.RemainingUTXOs != 1 {
		t.Fatalf("expected one coinbase output left, got %d", result.RemainingUTXOs)
	}
}

func TestShieldCoinbaseNothingToShield(t *testing.T) {
	cfg := config.Default()
	disabled := false
	cfg.Broadcast = &disabled
	w, _ := newTestWallet(t, cfg)

	payment := spend.Payment{Recipient: "u1dest", IsShielded: true, Pool: spend.PoolOrchard}
	if _, err := w.ShieldCoinbase(context.Background(), "t1miner", payment, 0, privacy.AllowRevealedSenders, spend.FeeRate(1000)); err == nil {
		t.Fatalf("expected an error when no coinbase outputs exist")
	}
}
