package migrate

import (
	"context"
	"testing"

	"github.com/zallet-core/zallet/internal/config"
	"github.com/zallet-core/zallet/internal/keystore"
	"github.com/zallet-core/zallet/internal/walletdb"
)

const testPhrase = "abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon about"

func newTestTarget(t *testing.T) (Target, context.Context) {
	t.Helper()
	ctx := context.Background()

	db, err := walletdb.Open(ctx, t.TempDir(), "wallet.db")
	if err != nil {
		t.Fatalf("open walletdb: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	id, err := keystore.GenerateIdentity()
	if err != nil {
		t.Fatalf("GenerateIdentity: %v", err)
	}
	ks := keystore.New(db, keystore.IdentityFile{Unencrypted: []keystore.Identity{id}})
	recipient, err := keystore.RecipientFromIdentity(id)
	if err != nil {
		t.Fatalf("RecipientFromIdentity: %v", err)
	}
	if err := ks.InitializeRecipients(ctx, []keystore.Recipient{recipient}); err != nil {
		t.Fatalf("InitializeRecipients: %v", err)
	}

	return Target{Keystore: ks, DB: db, Network: config.NetworkMain}, ctx
}

// fakeSource is an in-memory stand-in for a BDB wallet-dump reader.
type fakeSource struct {
	network  config.Network
	mnemonics []MnemonicRecord
	accounts  []DerivedAccountRecord
}

func (s *fakeSource) Network() config.Network                       { return s.network }
func (s *fakeSource) Mnemonics() ([]MnemonicRecord, error)          { return s.mnemonics, nil }
func (s *fakeSource) LegacySeeds() ([]LegacySeedRecord, error)      { return nil, nil }
func (s *fakeSource) DerivedAccounts() ([]DerivedAccountRecord, error) { return s.accounts, nil }
func (s *fakeSource) TransparentKeys() ([]TransparentKeyRecord, error) { return nil, nil }
func (s *fakeSource) SaplingKeys() ([]SaplingKeyRecord, error)      { return nil, nil }

func TestRunImportsAccountsUnderStoredSeed(t *testing.T) {
	target, ctx := newTestTarget(t)

	// The claimed fingerprint must match what the keystore derives from the
	// phrase itself; learn it by storing the phrase into the target keystore
	// first (Run's own store of the same phrase is then idempotent).
	fp, err := target.Keystore.EncryptAndStoreMnemonic(ctx, testPhrase)
	if err != nil {
		t.Fatalf("EncryptAndStoreMnemonic: %v", err)
	}

	src := &fakeSource{
		network:   config.NetworkMain,
		mnemonics: []MnemonicRecord{{Phrase: testPhrase, ClaimedFingerprint: fp}},
		accounts: []DerivedAccountRecord{
			{Name: "primary", SeedFingerprint: fp, AccountIndex: 0, BirthdayHeight: 419200},
			{Name: "savings", SeedFingerprint: fp, AccountIndex: 1, BirthdayHeight: 419200},
		},
	}
	if err := Run(ctx, target, src); err != nil {
		t.Fatalf("Run: %v", err)
	}

	accounts, err := target.DB.ListAccounts(ctx)
	if err != nil {
		t.Fatalf("ListAccounts: %v", err)
	}
	if len(accounts) != 2 {
		t.Fatalf("expected 2 accounts, got %d", len(accounts))
	}
	for i, want := range []uint32{0, 1} {
		if accounts[i].AccountIndex == nil || *accounts[i].AccountIndex != want {
			t.Fatalf("account %d: expected index %d, got %+v", i, want, accounts[i].AccountIndex)
		}
	}
}

func TestRunRejectsNetworkMismatch(t *testing.T) {
	target, ctx := newTestTarget(t)
	src := &fakeSource{network: config.NetworkTest}
	if err := Run(ctx, target, src); err == nil {
		t.Fatalf("expected network-mismatch rejection")
	}
}

func TestRunRejectsFingerprintMismatch(t *testing.T) {
	target, ctx := newTestTarget(t)
	var bogus keystore.SeedFingerprint
	bogus[0] = 0xff
	src := &fakeSource{
		network:   config.NetworkMain,
		mnemonics: []MnemonicRecord{{Phrase: testPhrase, ClaimedFingerprint: bogus}},
	}
	if err := Run(ctx, target, src); err == nil {
		t.Fatalf("expected fingerprint-mismatch rejection")
	}
}

func TestRunRejectsAccountWithoutSeed(t *testing.T) {
	target, ctx := newTestTarget(t)
	var fp keystore.SeedFingerprint
	fp[0] = 1
	src := &fakeSource{
		network:  config.NetworkMain,
		accounts: []DerivedAccountRecord{{Name: "orphan", SeedFingerprint: fp}},
	}
	if err := Run(ctx, target, src); err == nil {
		t.Fatalf("expected rejection of account whose seed is absent from the dump")
	}
}
