package wallet

import (
	"context"
	"testing"

	"github.com/zallet-core/zallet/internal/chainview"
	"github.com/zallet-core/zallet/internal/config"
	"github.com/zallet-core/zallet/internal/keystore"
)

const testMnemonic = "abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon about"

// newUnlockedWallet builds a wallet whose keystore recipients match its
// own installed identity, so stored seeds are decryptable in-process.
func newUnlockedWallet(t *testing.T) *Wallet {
	t.Helper()
	ctx := context.Background()
	chain := &stubChain{tip: chainview.BlockMeta{BlockID: chainview.BlockID{Height: 1000}}}

	id, err := keystore.GenerateIdentity()
	if err != nil {
		t.Fatalf("GenerateIdentity: %v", err)
	}
	w, err := Open(ctx, config.Default(), t.TempDir(), keystore.IdentityFile{Unencrypted: []keystore.Identity{id}}, chain)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { w.Close() })

	r, err := keystore.RecipientFromIdentity(id)
	if err != nil {
		t.Fatalf("RecipientFromIdentity: %v", err)
	}
	if err := w.Keystore.InitializeRecipients(ctx, []keystore.Recipient{r}); err != nil {
		t.Fatalf("InitializeRecipients: %v", err)
	}
	return w
}

func storeTestSeed(t *testing.T, w *Wallet) keystore.SeedFingerprint {
	t.Helper()
	fp, err := w.Keystore.EncryptAndStoreMnemonic(context.Background(), testMnemonic)
	if err != nil {
		t.Fatalf("EncryptAndStoreMnemonic: %v", err)
	}
	return fp
}

func TestRecoverAccountsAtExplicitIndices(t *testing.T) {
	w := newUnlockedWallet(t)
	ctx := context.Background()
	fp := storeTestSeed(t, w)

	if err := w.DB.SetWalletTip(ctx, chainview.BlockMeta{BlockID: chainview.BlockID{Height: 1000}}); err != nil {
		t.Fatalf("SetWalletTip: %v", err)
	}

	accounts, err := w.RecoverAccounts(ctx, []RecoverAccountSpec{
		{Name: "primary", SeedFP: fp, AccountIndex: 0, BirthdayHeight: 419},
		{Name: "savings", SeedFP: fp, AccountIndex: 3, BirthdayHeight: 500},
	})
	if err != nil {
		t.Fatalf("RecoverAccounts: %v", err)
	}
	if len(accounts) != 2 {
		t.Fatalf("expected 2 recovered accounts, got %d", len(accounts))
	}
	if *accounts[1].AccountIndex != 3 {
		t.Fatalf("expected the explicit index 3 to be preserved, got %d", *accounts[1].AccountIndex)
	}
}

func TestRecoverAccountsRequiresSync(t *testing.T) {
	w := newUnlockedWallet(t)
	fp := storeTestSeed(t, w)

	_, err := w.RecoverAccounts(context.Background(), []RecoverAccountSpec{
		{Name: "primary", SeedFP: fp, AccountIndex: 0, BirthdayHeight: 419},
	})
	if err == nil {
		t.Fatalf("expected an error before the wallet has a committed tip")
	}
}

func TestRecoverAccountsRejectsFutureBirthday(t *testing.T) {
	w := newUnlockedWallet(t)
	ctx := context.Background()
	fp := storeTestSeed(t, w)

	if err := w.DB.SetWalletTip(ctx, chainview.BlockMeta{BlockID: chainview.BlockID{Height: 1000}}); err != nil {
		t.Fatalf("SetWalletTip: %v", err)
	}

	_, err := w.RecoverAccounts(ctx, []RecoverAccountSpec{
		{Name: "primary", SeedFP: fp, AccountIndex: 0, BirthdayHeight: 2000},
	})
	if err == nil {
		t.Fatalf("expected a birthday beyond the tip to be rejected")
	}
}
