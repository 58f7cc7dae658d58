// Package address implements the wallet's address encodings: base58check
// transparent P2PKH/P2SH, bech32m TEX (ZIP-320), and a unified-address
// representation (ZIP-316) sufficient to derive, store, and round-trip a
// multi-receiver address. It has no dependency on the data store or
// keystore: encode/decode only, no wallet state.
package address

import (
	"bytes"
	"crypto/sha256"
	"errors"
	"fmt"

	"github.com/btcsuite/btcd/btcutil/bech32"
	"github.com/mr-tron/base58"
	"golang.org/x/crypto/ripemd160"
)

// Network selects which HRPs and version bytes are used.
type Network int

const (
	MainNet Network = iota
	TestNet
	RegTest
)

// ReceiverType tags a single typed receiver inside a unified address, using
// the ZIP-316 typecodes this wallet supports.
type ReceiverType byte

const (
	ReceiverP2PKH   ReceiverType = 0x00
	ReceiverP2SH    ReceiverType = 0x01
	ReceiverSapling ReceiverType = 0x02
	ReceiverOrchard ReceiverType = 0x03
)

var p2pkhVersion = map[Network][2]byte{
	MainNet: {0x1c, 0xb8},
	TestNet: {0x1d, 0x25},
	RegTest: {0x1d, 0x25},
}

var p2shVersion = map[Network][2]byte{
	MainNet: {0x1c, 0xbd},
	TestNet: {0x1c, 0xba},
	RegTest: {0x1c, 0xba},
}

var texHRP = map[Network]string{
	MainNet: "tex",
	TestNet: "textest",
	RegTest: "texregtest",
}

var uaHRP = map[Network]string{
	MainNet: "u",
	TestNet: "utest",
	RegTest: "uregtest",
}

// Hash160 computes the standard SHA-256-then-RIPEMD-160 pubkey hash used
// to derive a P2PKH address from a compressed public key.
func Hash160(pubKey []byte) [20]byte {
	sha := sha256.Sum256(pubKey)
	h := ripemd160.New()
	h.Write(sha[:])
	var out [20]byte
	copy(out[:], h.Sum(nil))
	return out
}

// EncodeTransparentP2PKH base58check-encodes a 20-byte pubkey hash as a
// transparent P2PKH address ("t1..." on mainnet).
func EncodeTransparentP2PKH(net Network, pubKeyHash [20]byte) string {
	return encodeBase58Check(p2pkhVersion[net], pubKeyHash[:])
}

// EncodeTransparentP2SH base58check-encodes a 20-byte script hash as a
// transparent P2SH address. The wallet never generates these itself, but
// must still be able to encode/decode them for display and for rejecting
// them from TEX conversion.
func EncodeTransparentP2SH(net Network, scriptHash [20]byte) string {
	return encodeBase58Check(p2shVersion[net], scriptHash[:])
}

func encodeBase58Check(version [2]byte, payload []byte) string {
	buf := make([]byte, 0, 2+len(payload)+4)
	buf = append(buf, version[:]...)
	buf = append(buf, payload...)
	first := sha256.Sum256(buf)
	second := sha256.Sum256(first[:])
	buf = append(buf, second[:4]...)
	return base58.Encode(buf)
}

// DecodedTransparent is the result of decoding a transparent address: the
// network-independent hash payload plus whether it names a script.
type DecodedTransparent struct {
	IsScriptHash bool
	Hash         [20]byte
}

// DecodeTransparent decodes a base58check transparent address, verifying
// its checksum and that it carries a known version prefix. It does not
// pin the address to a particular network and the result does not carry
// the prefix; callers validating against a specific network can re-encode
// the hash with EncodeTransparentP2PKH/EncodeTransparentP2SH and compare.
func DecodeTransparent(addr string) (DecodedTransparent, error) {
	raw, err := base58.Decode(addr)
	if err != nil {
		return DecodedTransparent{}, fmt.Errorf("%w: %v", ErrInvalidAddress, err)
	}
	if len(raw) != 26 {
		return DecodedTransparent{}, ErrInvalidAddress
	}
	payload, checksum := raw[:22], raw[22:]
	first := sha256.Sum256(payload)
	second := sha256.Sum256(first[:])
	if !bytes.Equal(second[:4], checksum) {
		return DecodedTransparent{}, ErrInvalidAddress
	}
	version := [2]byte{payload[0], payload[1]}
	var out DecodedTransparent
	copy(out.Hash[:], payload[2:])
	switch version {
	case p2pkhVersion[MainNet], p2pkhVersion[TestNet]:
		out.IsScriptHash = false
	case p2shVersion[MainNet], p2shVersion[TestNet]:
		out.IsScriptHash = true
	default:
		return DecodedTransparent{}, ErrInvalidAddress
	}
	return out, nil
}

// ErrInvalidAddress is returned by any decode function given malformed or
// unrecognized input.
var ErrInvalidAddress = errors.New("address: invalid address")

// ErrNotP2PKH is returned by ConvertTex when given a P2SH address.
var ErrNotP2PKH = errors.New("address: not a P2PKH address")

// ConvertTex converts a transparent P2PKH address to its ZIP-320 TEX
// encoding. Anything that is not a P2PKH address is rejected explicitly.
func ConvertTex(net Network, transparentAddr string) (string, error) {
	decoded, err := DecodeTransparent(transparentAddr)
	if err != nil {
		return "", err
	}
	if decoded.IsScriptHash {
		return "", ErrNotP2PKH
	}
	conv, err := bech32.ConvertBits(decoded.Hash[:], 8, 5, true)
	if err != nil {
		return "", err
	}
	return bech32.EncodeM(texHRP[net], conv)
}

// DecodeTex decodes a TEX address back to its 20-byte pubkey hash.
func DecodeTex(net Network, tex string) ([20]byte, error) {
	var out [20]byte
	hrp, data, err := bech32.DecodeNoLimit(tex)
	if err != nil {
		return out, fmt.Errorf("%w: %v", ErrInvalidAddress, err)
	}
	if hrp != texHRP[net] {
		return out, ErrInvalidAddress
	}
	conv, err := bech32.ConvertBits(data, 5, 8, false)
	if err != nil || len(conv) != 20 {
		return out, ErrInvalidAddress
	}
	copy(out[:], conv)
	return out, nil
}

// Receiver is one typed component of a unified address.
type Receiver struct {
	Type ReceiverType
	Data []byte
}

// EncodeUnified packs receivers (sorted by descending preference per
// ZIP-316's receiver ordering: Orchard, Sapling, P2PKH/P2SH) into a single
// bech32m-encoded unified address. This is a structural encoding only: it
// omits ZIP-316's padding/F4Jumble obfuscation step, which is not load
// bearing for this wallet's own round-trip, while still producing an
// address no other Zcash implementation's UA parser would accept.
func EncodeUnified(net Network, receivers []Receiver) (string, error) {
	if len(receivers) == 0 {
		return "", errors.New("address: unified address needs at least one receiver")
	}
	for _, r := range receivers {
		if r.Type == ReceiverP2SH {
			return "", errors.New("address: wallet never generates P2SH receivers")
		}
	}
	ordered := orderReceivers(receivers)

	var buf bytes.Buffer
	for _, r := range ordered {
		buf.WriteByte(byte(r.Type))
		buf.WriteByte(byte(len(r.Data)))
		buf.Write(r.Data)
	}
	conv, err := bech32.ConvertBits(buf.Bytes(), 8, 5, true)
	if err != nil {
		return "", err
	}
	return bech32.EncodeM(uaHRP[net], conv)
}

// DecodeUnified is the inverse of EncodeUnified.
func DecodeUnified(net Network, ua string) ([]Receiver, error) {
	hrp, data, err := bech32.DecodeNoLimit(ua)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidAddress, err)
	}
	if hrp != uaHRP[net] {
		return nil, ErrInvalidAddress
	}
	raw, err := bech32.ConvertBits(data, 5, 8, false)
	if err != nil {
		return nil, ErrInvalidAddress
	}
	var out []Receiver
	for len(raw) > 0 {
		if len(raw) < 2 {
			return nil, ErrInvalidAddress
		}
		typ := ReceiverType(raw[0])
		n := int(raw[1])
		if len(raw) < 2+n {
			return nil, ErrInvalidAddress
		}
		out = append(out, Receiver{Type: typ, Data: append([]byte(nil), raw[2:2+n]...)})
		raw = raw[2+n:]
	}
	return out, nil
}

// receiverRank gives ZIP-316's required descending preference order:
// Orchard first, then Sapling, then transparent.
func receiverRank(t ReceiverType) int {
	switch t {
	case ReceiverOrchard:
		return 0
	case ReceiverSapling:
		return 1
	default:
		return 2
	}
}

func orderReceivers(in []Receiver) []Receiver {
	out := append([]Receiver(nil), in...)
	for i := 1; i < len(out); i++ {
		for j := i; j > 0 && receiverRank(out[j].Type) < receiverRank(out[j-1].Type); j-- {
			out[j], out[j-1] = out[j-1], out[j]
		}
	}
	return out
}

// HasTransparentOnlyUnderFunds reports whether the only receiver reachable
// given the funds available to send (i.e. the only pools the sender
// actually controls spendable value in) is transparent, which the
// privacy-policy table treats as a RevealedRecipients trigger even though
// the address itself is a UA.
func HasTransparentOnlyUnderFunds(receivers []Receiver, hasOrchard, hasSapling bool) bool {
	if hasOrchard || hasSapling {
		return false
	}
	for _, r := range receivers {
		if r.Type == ReceiverP2PKH || r.Type == ReceiverP2SH {
			return true
		}
	}
	return false
}
