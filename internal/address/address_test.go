package address

import (
	"bytes"
	"crypto/rand"
	"testing"
)

func TestTransparentP2PKHRoundTrip(t *testing.T) {
	var hash [20]byte
	if _, err := rand.Read(hash[:]); err != nil {
		t.Fatalf("rand.Read: %v", err)
	}
	addr := EncodeTransparentP2PKH(MainNet, hash)

	decoded, err := DecodeTransparent(addr)
	if err != nil {
		t.Fatalf("DecodeTransparent: %v", err)
	}
	if decoded.IsScriptHash {
		t.Fatalf("expected a P2PKH address, decoded as P2SH")
	}
	if decoded.Hash != hash {
		t.Fatalf("decoded hash does not match the original")
	}
}

func TestDecodeTransparentRejectsBadChecksum(t *testing.T) {
	var hash [20]byte
	addr := EncodeTransparentP2PKH(MainNet, hash)
	tampered := []byte(addr)
	tampered[len(tampered)-1]++
	if _, err := DecodeTransparent(string(tampered)); err == nil {
		t.Fatalf("expected a checksum error for a tampered address")
	}
}

func TestConvertTexRoundTrip(t *testing.T) {
	var hash [20]byte
	if _, err := rand.Read(hash[:]); err != nil {
		t.Fatalf("rand.Read: %v", err)
	}
	addr := EncodeTransparentP2PKH(MainNet, hash)

	tex, err := ConvertTex(MainNet, addr)
	if err != nil {
		t.Fatalf("ConvertTex: %v", err)
	}
	gotHash, err := DecodeTex(MainNet, tex)
	if err != nil {
		t.Fatalf("DecodeTex: %v", err)
	}
	if gotHash != hash {
		t.Fatalf("decoded TEX pubkey-hash does not match the original")
	}
}

func TestConvertTexRejectsP2SH(t *testing.T) {
	var hash [20]byte
	addr := EncodeTransparentP2SH(MainNet, hash)
	if _, err := ConvertTex(MainNet, addr); err != ErrNotP2PKH {
		t.Fatalf("expected ErrNotP2PKH, got %v", err)
	}
}

func TestUnifiedAddressRoundTrip(t *testing.T) {
	receivers := []Receiver{
		{Type: ReceiverP2PKH, Data: bytes.Repeat([]byte{0x01}, 20)},
		{Type: ReceiverSapling, Data: bytes.Repeat([]byte{0x02}, 43)},
		{Type: ReceiverOrchard, Data: bytes.Repeat([]byte{0x03}, 43)},
	}
	ua, err := EncodeUnified(MainNet, receivers)
	if err != nil {
		t.Fatalf("EncodeUnified: %v", err)
	}

	decoded, err := DecodeUnified(MainNet, ua)
	if err != nil {
		t.Fatalf("DecodeUnified: %v", err)
	}
	if len(decoded) != len(receivers) {
		t.Fatalf("expected %d receivers, got %d", len(receivers), len(decoded))
	}
	// EncodeUnified orders receivers Orchard, Sapling, transparent.
	if decoded[0].Type != ReceiverOrchard || decoded[1].Type != ReceiverSapling || decoded[2].Type != ReceiverP2PKH {
		t.Fatalf("unexpected receiver ordering: %+v", decoded)
	}
}

func TestHash160MatchesAddressEncoding(t *testing.T) {
	pubkey := bytes.Repeat([]byte{0xAB}, 33)
	hash := Hash160(pubkey)
	addr := EncodeTransparentP2PKH(MainNet, hash)

	decoded, err := DecodeTransparent(addr)
	if err != nil {
		t.Fatalf("DecodeTransparent: %v", err)
	}
	if decoded.Hash != hash {
		t.Fatalf("Hash160 output does not round-trip through address encoding")
	}
}
