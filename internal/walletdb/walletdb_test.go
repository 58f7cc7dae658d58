package walletdb

import (
	"context"
	"database/sql"
	"testing"

	"github.com/zallet-core/zallet/internal/chainview"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	dir := t.TempDir()
	s, err := Open(context.Background(), dir, "wallet.db")
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestOpenAppliesMigrations(t *testing.T) {
	s := openTestStore(t)

	var count int
	err := s.WithRead(context.Background(), func(ctx context.Context, db *sql.DB) error {
		return db.QueryRowContext(ctx, `SELECT count(*) FROM ext_zallet_db_migrations`).Scan(&count)
	})
	if err != nil {
		t.Fatalf("query migrations: %v", err)
	}
	if count != len(registeredMigrations) {
		t.Fatalf("expected %d applied migrations, got %d", len(registeredMigrations), count)
	}

	// Reopening the same directory must be idempotent.
	s.Close()
	s2, err := Open(context.Background(), s.path[:len(s.path)-len("/wallet.db")], "wallet.db")
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer s2.Close()
}

func TestTruncateToHeight(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	err := s.WithWrite(ctx, func(ctx context.Context, tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, `INSERT INTO accounts (id, name, source, birthday_height) VALUES (?, ?, ?, ?)`,
			"acct-1", "primary", "derived", 0)
		if err != nil {
			return err
		}
		_, err = tx.ExecContext(ctx, `INSERT INTO transactions (txid, raw, mined_height) VALUES (?, ?, ?)`,
			[]byte{1}, []byte{0xde, 0xad}, 100)
		return err
	})
	if err != nil {
		t.Fatalf("seed: %v", err)
	}

	actual, err := s.TruncateToHeight(ctx, 50)
	if err != nil {
		t.Fatalf("TruncateToHeight: %v", err)
	}
	if actual != 50 {
		t.Fatalf("expected truncated height 50, got %d", actual)
	}

	var remaining int
	err = s.WithRead(ctx, func(ctx context.Context, db *sql.DB) error {
		return db.QueryRowContext(ctx, `SELECT count(*) FROM transactions WHERE mined_height > 50`).Scan(&remaining)
	})
	if err != nil {
		t.Fatalf("post-truncate query: %v", err)
	}
	if remaining != 0 {
		t.Fatalf("expected no transactions above height 50, got %d", remaining)
	}
}

func TestCoinbaseOutputs(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	acct, err := s.CreateAccount(ctx, Account{Name: "primary", Source: SourceDerived, BirthdayHeight: 0})
	if err != nil {
		t.Fatalf("CreateAccount: %v", err)
	}
	if _, err := s.CreateAddress(ctx, Address{
		AccountID: acct.ID,
		Type:      AddressTransparentP2PKH,
		Scope:     ScopeExternal,
		Encoding:  "t1miner",
	}); err != nil {
		t.Fatalf("CreateAddress: %v", err)
	}

	coinbase := chainview.AddressUTXO{Address: "t1miner", TxID: [32]byte{1}, Index: 0, Value: 625_000_000, Height: 500, Coinbase: true}
	regular := chainview.AddressUTXO{Address: "t1miner", TxID: [32]byte{2}, Index: 1, Value: 100_000, Height: 510}
	for _, u := range []chainview.AddressUTXO{coinbase, regular} {
		if err := s.UpsertTransparentUTXOFromChain(ctx, u); err != nil {
			t.Fatalf("UpsertTransparentUTXOFromChain: %v", err)
		}
	}

	got, err := s.CoinbaseOutputs(ctx, "t1miner", 0)
	if err != nil {
		t.Fatalf("CoinbaseOutputs: %v", err)
	}
	if len(got) != 1 || got[0].TxID != coinbase.TxID {
		t.Fatalf("expected only the coinbase output, got %+v", got)
	}

	// An address filter that matches nothing returns nothing.
	got, err = s.CoinbaseOutputs(ctx, "t1other", 0)
	if err != nil {
		t.Fatalf("CoinbaseOutputs with foreign address: %v", err)
	}
	if len(got) != 0 {
		t.Fatalf("expected no outputs for an unknown address, got %+v", got)
	}
}
