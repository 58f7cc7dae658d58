package keystore

import (
	"context"
	"testing"
	"time"

	"github.com/decred/dcrd/dcrec/secp256k1/v3"

	"github.com/zallet-core/zallet/internal/walletdb"
)

func newTestKeystore(t *testing.T) (*Store, context.Context) {
	t.Helper()
	db, err := walletdb.Open(context.Background(), t.TempDir(), "wallet.db")
	if err != nil {
		t.Fatalf("open walletdb: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	id, err := GenerateIdentity()
	if err != nil {
		t.Fatalf("GenerateIdentity: %v", err)
	}
	ks := New(db, IdentityFile{Unencrypted: []Identity{id}})

	ctx := context.Background()
	recipient, err := RecipientFromIdentity(id)
	if err != nil {
		t.Fatalf("RecipientFromIdentity: %v", err)
	}
	if err := ks.InitializeRecipients(ctx, []Recipient{recipient}); err != nil {
		t.Fatalf("InitializeRecipients: %v", err)
	}
	return ks, ctx
}

func TestEncryptDecryptRoundTrip(t *testing.T) {
	recip, err := RecipientFromIdentity(mustIdentity(t))
	if err != nil {
		t.Fatalf("RecipientFromIdentity: %v", err)
	}
	id := mustIdentity(t)
	recip2, _ := RecipientFromIdentity(id)

	env, err := Encrypt([]Recipient{recip, recip2}, []byte("hello wallet"))
	if err != nil {
		t.Fatalf("Encrypt: %v", err)
	}
	pt, err := Decrypt([]Identity{id}, env)
	if err != nil {
		t.Fatalf("Decrypt: %v", err)
	}
	if string(pt) != "hello wallet" {
		t.Fatalf("got %q", pt)
	}
}

func mustIdentity(t *testing.T) Identity {
	t.Helper()
	id, err := GenerateIdentity()
	if err != nil {
		t.Fatalf("GenerateIdentity: %v", err)
	}
	return id
}

func TestMnemonicRoundTrip(t *testing.T) {
	ks, ctx := newTestKeystore(t)

	phrase := "abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon about"
	fp, err := ks.EncryptAndStoreMnemonic(ctx, phrase)
	if err != nil {
		t.Fatalf("EncryptAndStoreMnemonic: %v", err)
	}

	got, err := ks.DecryptMnemonic(ctx, fp)
	if err != nil {
		t.Fatalf("DecryptMnemonic: %v", err)
	}
	if got != phrase {
		t.Fatalf("got %q want %q", got, phrase)
	}

	// Re-storing the same mnemonic is idempotent.
	fp2, err := ks.EncryptAndStoreMnemonic(ctx, phrase)
	if err != nil {
		t.Fatalf("second EncryptAndStoreMnemonic: %v", err)
	}
	if fp2 != fp {
		t.Fatalf("fingerprint changed across idempotent store")
	}
}

func TestLockClearsInstalledIdentities(t *testing.T) {
	db, err := walletdb.Open(context.Background(), t.TempDir(), "wallet.db")
	if err != nil {
		t.Fatalf("open walletdb: %v", err)
	}
	defer db.Close()

	id := mustIdentity(t)
	var salt [16]byte
	env, err := Encrypt([]Recipient{mustRecipient(t, id)}, encodeIdentities([]Identity{id}))
	if err != nil {
		t.Fatalf("Encrypt identity file: %v", err)
	}

	ks := New(db, IdentityFile{Encrypted: &EncryptedIdentityFile{Salt: salt, Envelope: env}})
	if !ks.IsLocked() {
		t.Fatalf("expected locked keystore before unlock")
	}

	// Unlock() re-derives the identity from a passphrase via scrypt; this
	// test's Envelope was encrypted directly to id rather than to a
	// passphrase-derived identity, so Unlock will fail to decrypt it. The
	// identities are installed directly instead, and the test checks the
	// locked/unlocked transitions; the relock timer is not exercised.
	ks.mu.Lock()
	ks.identities = []Identity{id}
	ks.mu.Unlock()

	if ks.IsLocked() {
		t.Fatalf("expected unlocked after direct install")
	}
	ks.Lock()
	if !ks.IsLocked() {
		t.Fatalf("expected locked after Lock()")
	}
	_ = time.Millisecond
}

func mustRecipient(t *testing.T, id Identity) Recipient {
	t.Helper()
	r, err := RecipientFromIdentity(id)
	if err != nil {
		t.Fatalf("RecipientFromIdentity: %v", err)
	}
	return r
}

func TestSignVerifyMessage(t *testing.T) {
	priv, err := secp256k1.GeneratePrivateKey()
	if err != nil {
		t.Fatalf("GeneratePrivateKey: %v", err)
	}
	msg := []byte("transfer 1 ZEC")

	sig, err := SignMessage(priv, msg)
	if err != nil {
		t.Fatalf("SignMessage: %v", err)
	}
	if sig[0] < 31 || sig[0] > 34 {
		t.Fatalf("unexpected header byte %d", sig[0])
	}
	if !VerifyMessage(priv.PubKey(), sig, msg) {
		t.Fatalf("expected signature to verify")
	}
	if VerifyMessage(priv.PubKey(), sig, []byte("different message")) {
		t.Fatalf("expected signature to fail for altered message")
	}

	tampered := append([]byte{}, sig...)
	tampered[0] = 27
	if VerifyMessage(priv.PubKey(), tampered, msg) {
		t.Fatalf("expected uncompressed-header signature to be rejected")
	}
}
