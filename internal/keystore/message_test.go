package keystore

import (
	"crypto/rand"
	"testing"

	"github.com/decred/dcrd/dcrec/secp256k1/v3"
)

func mustPrivKey(t *testing.T) *secp256k1.PrivateKey {
	t.Helper()
	var buf [32]byte
	if _, err := rand.Read(buf[:]); err != nil {
		t.Fatalf("rand.Read: %v", err)
	}
	return secp256k1.PrivKeyFromBytes(buf[:])
}

func TestSignVerifyMessageRoundTrip(t *testing.T) {
	priv := mustPrivKey(t)
	msg := []byte("zallet message signing test")

	sig, err := SignMessage(priv, msg)
	if err != nil {
		t.Fatalf("SignMessage: %v", err)
	}
	if len(sig) != 65 {
		t.Fatalf("expected a 65-byte signature, got %d", len(sig))
	}
	if sig[0] < 31 || sig[0] > 34 {
		t.Fatalf("expected a compressed-key header byte, got %d", sig[0])
	}

	if !VerifyMessage(priv.PubKey(), sig, msg) {
		t.Fatalf("VerifyMessage rejected a valid signature")
	}
	if VerifyMessage(priv.PubKey(), sig, []byte("a different message")) {
		t.Fatalf("VerifyMessage accepted a signature over the wrong message")
	}

	other := mustPrivKey(t)
	if VerifyMessage(other.PubKey(), sig, msg) {
		t.Fatalf("VerifyMessage accepted a signature against the wrong public key")
	}
}

func TestRecoverMessageSigner(t *testing.T) {
	priv := mustPrivKey(t)
	msg := []byte("recoverable message")

	sig, err := SignMessage(priv, msg)
	if err != nil {
		t.Fatalf("SignMessage: %v", err)
	}

	recovered, err := RecoverMessageSigner(sig, msg)
	if err != nil {
		t.Fatalf("RecoverMessageSigner: %v", err)
	}
	if !recovered.IsEqual(priv.PubKey()) {
		t.Fatalf("recovered public key does not match the signer")
	}

	// A signature checked against the wrong message recovers some key, but
	// never the real signer's.
	recoveredWrong, err := RecoverMessageSigner(sig, []byte("tampered"))
	if err != nil {
		t.Fatalf("RecoverMessageSigner: %v", err)
	}
	if recoveredWrong.IsEqual(priv.PubKey()) {
		t.Fatalf("recovered the correct key from a signature over a different message")
	}
}
