package keystore

import (
	"bytes"
	"crypto/sha256"
	"errors"

	"github.com/decred/dcrd/dcrec/secp256k1/v3"
	"github.com/decred/dcrd/dcrec/secp256k1/v3/ecdsa"
)

var messageMagic = []byte("Zcash Signed Message:\n")

// messageDigest builds the CompactSize-prefixed, double-SHA-256 digest
// signed by SignMessage: the same framing scheme signer.go uses for
// transaction sighashes, applied here to the fixed message-signing magic
// instead of a transaction. Unlike signer.go's single chainhash round, the
// Zcash message-signing RPC contract requires double-SHA-256.
func messageDigest(msg []byte) [32]byte {
	var buf bytes.Buffer
	writeCompactSize(&buf, uint64(len(messageMagic)))
	buf.Write(messageMagic)
	writeCompactSize(&buf, uint64(len(msg)))
	buf.Write(msg)

	first := sha256.Sum256(buf.Bytes())
	return sha256.Sum256(first[:])
}

func writeCompactSize(buf *bytes.Buffer, n uint64) {
	switch {
	case n < 0xfd:
		buf.WriteByte(byte(n))
	case n <= 0xffff:
		buf.WriteByte(0xfd)
		buf.WriteByte(byte(n))
		buf.WriteByte(byte(n >> 8))
	case n <= 0xffffffff:
		buf.WriteByte(0xfe)
		for i := 0; i < 4; i++ {
			buf.WriteByte(byte(n >> (8 * i)))
		}
	default:
		buf.WriteByte(0xff)
		for i := 0; i < 8; i++ {
			buf.WriteByte(byte(n >> (8 * i)))
		}
	}
}

// SignMessage signs msg with privKey, returning a 65-byte
// [header || r || s] signature whose header byte is 31+recovery_id,
// identifying a compressed public key. Headers 27-30 (uncompressed) are
// never produced, and VerifyMessage rejects them.
func SignMessage(privKey *secp256k1.PrivateKey, msg []byte) ([]byte, error) {
	digest := messageDigest(msg)
	sig := ecdsa.SignCompact(privKey, digest[:], true)
	if len(sig) != 65 {
		return nil, errors.New("keystore: unexpected signature length")
	}
	// ecdsa.SignCompact emits 27+recid, plus 4 for a compressed key, so
	// with isCompressedKey set the header is already 31+recid.
	return sig, nil
}

// RecoverMessageSigner recovers the compressed public key that produced
// sig over msg, for callers (such as verifymessage) that only know the
// claimed signer's address rather than its public key up front.
func RecoverMessageSigner(sig, msg []byte) (*secp256k1.PublicKey, error) {
	if len(sig) != 65 {
		return nil, errors.New("keystore: invalid signature length")
	}
	if sig[0] < 31 || sig[0] > 34 {
		return nil, errors.New("keystore: signature does not claim a compressed key")
	}

	digest := messageDigest(msg)
	recovered, wasCompressed, err := ecdsa.RecoverCompact(sig, digest[:])
	if err != nil {
		return nil, err
	}
	if !wasCompressed {
		return nil, errors.New("keystore: recovered an uncompressed key")
	}
	return recovered, nil
}

// VerifyMessage reports whether sig is a valid signature of msg by the
// holder of the private key corresponding to pubKey. Signatures with a
// header byte outside [31,34] (i.e. claiming an uncompressed key) are
// rejected outright.
func VerifyMessage(pubKey *secp256k1.PublicKey, sig, msg []byte) bool {
	if len(sig) != 65 {
		return false
	}
	if sig[0] < 31 || sig[0] > 34 {
		return false
	}

	digest := messageDigest(msg)
	recovered, wasCompressed, err := ecdsa.RecoverCompact(sig, digest[:])
	if err != nil || !wasCompressed {
		return false
	}
	return recovered.IsEqual(pubKey)
}
