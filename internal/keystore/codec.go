package keystore

import (
	"bytes"
	"encoding/base64"
	"errors"

	"golang.org/x/crypto/scrypt"
)

func encodeRecipient(r Recipient) string {
	return base64.RawStdEncoding.EncodeToString(r.Public[:])
}

func decodeRecipient(s string) (Recipient, error) {
	b, err := base64.RawStdEncoding.DecodeString(s)
	if err != nil {
		return Recipient{}, err
	}
	if len(b) != 32 {
		return Recipient{}, errors.New("keystore: malformed recipient")
	}
	var r Recipient
	copy(r.Public[:], b)
	return r, nil
}

// identityFromPassphrase stretches passphrase with scrypt to derive a
// deterministic X25519 identity, mirroring age's scrypt-recipient scheme.
func identityFromPassphrase(passphrase string, salt [16]byte, n, r, p int) (Identity, error) {
	if n == 0 {
		n = 1 << 18
	}
	if r == 0 {
		r = 8
	}
	if p == 0 {
		p = 1
	}
	key, err := scrypt.Key([]byte(passphrase), salt[:], n, r, p, 32)
	if err != nil {
		return Identity{}, err
	}
	var id Identity
	copy(id.Secret[:], key)
	id.Secret[0] &= 248
	id.Secret[31] &= 127
	id.Secret[31] |= 64
	return id, nil
}

// encodeIdentities / decodeIdentities give the plaintext payload of the
// encrypted identity file a stable wire form: a newline-joined list of
// base64 secret keys.
func encodeIdentities(ids []Identity) []byte {
	var buf bytes.Buffer
	for i, id := range ids {
		if i > 0 {
			buf.WriteByte('\n')
		}
		buf.WriteString(base64.RawStdEncoding.EncodeToString(id.Secret[:]))
	}
	return buf.Bytes()
}

func decodeIdentities(pt []byte) ([]Identity, error) {
	var out []Identity
	for _, line := range bytes.Split(pt, []byte{'\n'}) {
		if len(line) == 0 {
			continue
		}
		b, err := base64.RawStdEncoding.DecodeString(string(line))
		if err != nil {
			return nil, err
		}
		if len(b) != 32 {
			return nil, errors.New("keystore: malformed identity")
		}
		var id Identity
		copy(id.Secret[:], b)
		out = append(out, id)
	}
	return out, nil
}
