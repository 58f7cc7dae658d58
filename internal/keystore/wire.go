package keystore

import (
	"bytes"
	"encoding/binary"
	"errors"

	"golang.org/x/crypto/chacha20poly1305"
)

// serializeEnvelope / deserializeEnvelope give Envelope a flat binary wire
// form: stanza count, then per stanza (ephemeral pubkey, wrapped-key
// length, wrapped key), then the payload nonce and ciphertext.
func serializeEnvelope(env *Envelope) []byte {
	var buf bytes.Buffer
	binary.Write(&buf, binary.LittleEndian, uint32(len(env.Stanzas)))
	for _, sw := range env.Stanzas {
		buf.Write(sw.Ephemeral[:])
		binary.Write(&buf, binary.LittleEndian, uint32(len(sw.Wrapped)))
		buf.Write(sw.Wrapped)
	}
	buf.Write(env.Nonce[:])
	buf.Write(env.Payload)
	return buf.Bytes()
}

func deserializeEnvelope(b []byte) (*Envelope, error) {
	r := bytes.NewReader(b)
	var n uint32
	if err := binary.Read(r, binary.LittleEndian, &n); err != nil {
		return nil, err
	}
	env := &Envelope{Stanzas: make([]stanzaWire, 0, n)}
	for i := uint32(0); i < n; i++ {
		var sw stanzaWire
		if _, err := r.Read(sw.Ephemeral[:]); err != nil {
			return nil, err
		}
		var wl uint32
		if err := binary.Read(r, binary.LittleEndian, &wl); err != nil {
			return nil, err
		}
		sw.Wrapped = make([]byte, wl)
		if _, err := r.Read(sw.Wrapped); err != nil {
			return nil, err
		}
		env.Stanzas = append(env.Stanzas, sw)
	}
	if _, err := r.Read(env.Nonce[:]); err != nil {
		return nil, err
	}
	rest := make([]byte, r.Len())
	if _, err := r.Read(rest); err != nil && len(rest) > 0 {
		return nil, err
	}
	if len(rest) < chacha20poly1305.Overhead {
		return nil, errors.New("keystore: truncated envelope")
	}
	env.Payload = rest
	return env, nil
}
