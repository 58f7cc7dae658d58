package keystore

import (
	"crypto/rand"
	"encoding/binary"
	"errors"
	"hash"
	"io"

	"golang.org/x/crypto/blake2b"
	"golang.org/x/crypto/chacha20poly1305"
	"golang.org/x/crypto/curve25519"
	"golang.org/x/crypto/hkdf"
)

func newBlake2bHash() hash.Hash {
	h, err := blake2b.New256(nil)
	if err != nil {
		// blake2b.New256 only errors for an over-long key, and we pass nil.
		panic(err)
	}
	return h
}

// No age-compatible Go library exists among the available dependencies, so
// this reproduces age's recipient/identity envelope model directly on top
// of golang.org/x/crypto's X25519, ChaCha20-Poly1305 and HKDF primitives:
// an ephemeral X25519 key is combined with each recipient's static public
// key to derive a per-recipient wrapping key, which wraps a single
// randomly generated file key; the file key then encrypts the payload.

const (
	x25519Label  = "age-encryption.org/v1/X25519"
	fileKeyLen   = 32
	wrapNonceLen = chacha20poly1305.NonceSize
)

// Recipient is an X25519 public key new material is encrypted to.
type Recipient struct {
	Public [32]byte
}

// Identity is an X25519 private key capable of unwrapping ciphertext
// produced for the matching Recipient.
type Identity struct {
	Secret [32]byte
}

// RecipientFromIdentity derives the public recipient for an identity.
func RecipientFromIdentity(id Identity) (Recipient, error) {
	pub, err := curve25519.X25519(id.Secret[:], curve25519.Basepoint)
	if err != nil {
		return Recipient{}, err
	}
	var r Recipient
	copy(r.Public[:], pub)
	return r, nil
}

// GenerateIdentity creates a new random X25519 identity.
func GenerateIdentity() (Identity, error) {
	var id Identity
	if _, err := io.ReadFull(rand.Reader, id.Secret[:]); err != nil {
		return Identity{}, err
	}
	// Clamp per X25519 convention.
	id.Secret[0] &= 248
	id.Secret[31] &= 127
	id.Secret[31] |= 64
	return id, nil
}

// Envelope is the serialized form of data encrypted to a set of recipients:
// one stanza per recipient, followed by the payload ciphertext.
type Envelope struct {
	Stanzas []stanzaWire
	Nonce   [chacha20poly1305.NonceSize]byte
	Payload []byte
}

type stanzaWire struct {
	Ephemeral [32]byte
	Wrapped   []byte
}

// Encrypt encrypts plaintext to every recipient in recipients. At least one
// recipient is required.
func Encrypt(recipients []Recipient, plaintext []byte) (*Envelope, error) {
	if len(recipients) == 0 {
		return nil, errors.New("keystore: no recipients")
	}

	var fileKey [fileKeyLen]byte
	if _, err := io.ReadFull(rand.Reader, fileKey[:]); err != nil {
		return nil, err
	}

	env := &Envelope{Stanzas: make([]stanzaWire, 0, len(recipients))}
	for _, r := range recipients {
		sw, err := wrapForRecipient(r, fileKey)
		if err != nil {
			return nil, err
		}
		env.Stanzas = append(env.Stanzas, sw)
	}

	aead, err := chacha20poly1305.New(fileKey[:])
	if err != nil {
		return nil, err
	}
	if _, err := io.ReadFull(rand.Reader, env.Nonce[:]); err != nil {
		return nil, err
	}
	env.Payload = aead.Seal(nil, env.Nonce[:], plaintext, nil)

	// fileKey no longer needed; best-effort zeroize.
	for i := range fileKey {
		fileKey[i] = 0
	}
	return env, nil
}

// Decrypt attempts to unwrap env's file key with each of identities in turn
// and, on the first success, decrypts the payload. Returns ErrCryptoMismatch
// if no identity unwraps any stanza.
func Decrypt(identities []Identity, env *Envelope) ([]byte, error) {
	for _, id := range identities {
		for _, sw := range env.Stanzas {
			fileKey, err := unwrapWithIdentity(id, sw)
			if err != nil {
				continue
			}
			aead, err := chacha20poly1305.New(fileKey[:])
			if err != nil {
				continue
			}
			pt, err := aead.Open(nil, env.Nonce[:], env.Payload, nil)
			for i := range fileKey {
				fileKey[i] = 0
			}
			if err != nil {
				continue
			}
			return pt, nil
		}
	}
	return nil, ErrCryptoMismatch
}

func wrapForRecipient(r Recipient, fileKey [fileKeyLen]byte) (stanzaWire, error) {
	var ephSecret [32]byte
	if _, err := io.ReadFull(rand.Reader, ephSecret[:]); err != nil {
		return stanzaWire{}, err
	}
	ephSecret[0] &= 248
	ephSecret[31] &= 127
	ephSecret[31] |= 64

	ephPub, err := curve25519.X25519(ephSecret[:], curve25519.Basepoint)
	if err != nil {
		return stanzaWire{}, err
	}
	shared, err := curve25519.X25519(ephSecret[:], r.Public[:])
	if err != nil {
		return stanzaWire{}, err
	}

	wrapKey, err := deriveWrapKey(shared, ephPub, r.Public[:])
	if err != nil {
		return stanzaWire{}, err
	}

	aead, err := chacha20poly1305.New(wrapKey)
	if err != nil {
		return stanzaWire{}, err
	}
	nonce := make([]byte, wrapNonceLen)
	wrapped := aead.Seal(nonce, nonce, fileKey[:], nil)

	var sw stanzaWire
	copy(sw.Ephemeral[:], ephPub)
	sw.Wrapped = wrapped
	return sw, nil
}

func unwrapWithIdentity(id Identity, sw stanzaWire) ([fileKeyLen]byte, error) {
	var out [fileKeyLen]byte
	shared, err := curve25519.X25519(id.Secret[:], sw.Ephemeral[:])
	if err != nil {
		return out, err
	}
	recipientPub, err := curve25519.X25519(id.Secret[:], curve25519.Basepoint)
	if err != nil {
		return out, err
	}

	wrapKey, err := deriveWrapKey(shared, sw.Ephemeral[:], recipientPub)
	if err != nil {
		return out, err
	}

	aead, err := chacha20poly1305.New(wrapKey)
	if err != nil {
		return out, err
	}
	if len(sw.Wrapped) < wrapNonceLen {
		return out, errors.New("keystore: truncated stanza")
	}
	nonce, ct := sw.Wrapped[:wrapNonceLen], sw.Wrapped[wrapNonceLen:]
	pt, err := aead.Open(nil, nonce, ct, nil)
	if err != nil {
		return out, err
	}
	copy(out[:], pt)
	return out, nil
}

func deriveWrapKey(shared, ephPub, recipientPub []byte) ([]byte, error) {
	salt := append(append([]byte{}, ephPub...), recipientPub...)
	h := hkdf.New(newBlake2bHash, shared, salt, []byte(x25519Label))
	key := make([]byte, chacha20poly1305.KeySize)
	if _, err := io.ReadFull(h, key); err != nil {
		return nil, err
	}
	return key, nil
}

// marshalUint32 encodes v as 4 little-endian bytes, the layout of the PCZT
// proprietary account/address indices. Nothing in this package calls it.
func marshalUint32(v uint32) []byte {
	b := make([]byte, 4)
	binary.LittleEndian.PutUint32(b, v)
	return b
}
