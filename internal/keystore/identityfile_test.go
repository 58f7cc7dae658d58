package keystore

import (
	"path/filepath"
	"testing"
)

func TestUnencryptedIdentityFileRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "identity.txt")

	recipient, err := GenerateUnencryptedIdentityFile(path)
	if err != nil {
		t.Fatalf("GenerateUnencryptedIdentityFile: %v", err)
	}

	loaded, err := LoadIdentityFile(path)
	if err != nil {
		t.Fatalf("LoadIdentityFile: %v", err)
	}
	if loaded.Encrypted != nil {
		t.Fatalf("expected an unencrypted identity file")
	}
	if len(loaded.Unencrypted) != 1 {
		t.Fatalf("expected 1 identity, got %d", len(loaded.Unencrypted))
	}

	gotRecipient, err := RecipientFromIdentity(loaded.Unencrypted[0])
	if err != nil {
		t.Fatalf("RecipientFromIdentity: %v", err)
	}
	if gotRecipient != recipient {
		t.Fatalf("loaded identity's recipient does not match the generated one")
	}
}

func TestEncryptedIdentityFileRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "identity.enc")
	const passphrase = "correct horse battery staple"

	recipient, err := GenerateEncryptedIdentityFile(path, passphrase)
	if err != nil {
		t.Fatalf("GenerateEncryptedIdentityFile: %v", err)
	}

	loaded, err := LoadIdentityFile(path)
	if err != nil {
		t.Fatalf("LoadIdentityFile: %v", err)
	}
	if loaded.Encrypted == nil {
		t.Fatalf("expected an encrypted identity file")
	}

	wrapperID, err := identityFromPassphrase(passphrase, loaded.Encrypted.Salt,
		loaded.Encrypted.ScryptN, loaded.Encrypted.ScryptR, loaded.Encrypted.ScryptP)
	if err != nil {
		t.Fatalf("identityFromPassphrase: %v", err)
	}
	plaintext, err := Decrypt([]Identity{wrapperID}, loaded.Encrypted.Envelope)
	if err != nil {
		t.Fatalf("Decrypt: %v", err)
	}
	ids, err := decodeIdentities(plaintext)
	if err != nil {
		t.Fatalf("decodeIdentities: %v", err)
	}
	if len(ids) != 1 {
		t.Fatalf("expected 1 wrapped identity, got %d", len(ids))
	}
	gotRecipient, err := RecipientFromIdentity(ids[0])
	if err != nil {
		t.Fatalf("RecipientFromIdentity: %v", err)
	}
	if gotRecipient != recipient {
		t.Fatalf("unwrapped identity's recipient does not match the generated one")
	}

	// A wrong passphrase must not unwrap the same envelope.
	wrongID, err := identityFromPassphrase("wrong passphrase", loaded.Encrypted.Salt,
		loaded.Encrypted.ScryptN, loaded.Encrypted.ScryptR, loaded.Encrypted.ScryptP)
	if err != nil {
		t.Fatalf("identityFromPassphrase: %v", err)
	}
	if _, err := Decrypt([]Identity{wrongID}, loaded.Encrypted.Envelope); err == nil {
		t.Fatalf("expected decryption with the wrong passphrase to fail")
	}
}

func TestLoadIdentityFileRejectsMalformedHeader(t *testing.T) {
	path := filepath.Join(t.TempDir(), "identity.bad")
	if err := writeIdentityFile(path, "not a zallet identity file\n"); err != nil {
		t.Fatalf("writeIdentityFile: %v", err)
	}
	if _, err := LoadIdentityFile(path); err == nil {
		t.Fatalf("expected an error for an unrecognized identity file header")
	}
}
