package rpc

import (
	"context"
	"encoding/hex"
	"encoding/json"

	"github.com/decred/dcrd/dcrec/secp256k1/v3"
	"github.com/decred/dcrd/dcrjson/v3"

	"github.com/zallet-core/zallet/internal/address"
	"github.com/zallet-core/zallet/internal/config"
	"github.com/zallet-core/zallet/internal/keystore"
	"github.com/zallet-core/zallet/internal/wallet"
	"github.com/zallet-core/zallet/internal/zerr"
)

func init() {
	register("signmessage", signMessage)
	register("verifymessage", verifyMessage)
	register("validateaddress", validateAddress)
	register("convertTex", convertTex)
}

func netForWallet(w *wallet.Wallet) address.Network {
	switch w.Config.Network {
	case config.NetworkTest:
		return address.TestNet
	case config.NetworkRegtest:
		return address.RegTest
	default:
		return address.MainNet
	}
}

// signMessage implements signmessage: t_addr, message. It requires the
// keystore to be unlocked and the address to name a transparent P2PKH key
// this wallet holds as a standalone import (see
// keystore.ListStandaloneTransparentPubkeys; derived-account transparent
// keys have no real ZIP-32 derivation behind them in this corpus - see
// DESIGN.md - so they cannot produce a recoverable signing key here).
func signMessage(w *wallet.Wallet, params []json.RawMessage) (interface{}, *dcrjson.RPCError) {
	var addr, message string
	if rerr := decodeParam(params, 0, &addr); rerr != nil {
		return nil, rerr
	}
	if rerr := decodeParam(params, 1, &message); rerr != nil {
		return nil, rerr
	}
	if w.Keystore.IsLocked() {
		return nil, translate(zerr.ErrLocked)
	}

	decoded, err := address.DecodeTransparent(addr)
	if err != nil {
		return nil, translate(err)
	}
	if decoded.IsScriptHash {
		return nil, invalidParams("cannot sign with a p2sh address")
	}

	ctx := context.Background()
	pubkeys, err := w.Keystore.ListStandaloneTransparentPubkeys(ctx)
	if err != nil {
		return nil, translate(err)
	}
	var matched []byte
	for _, pk := range pubkeys {
		if address.Hash160(pk) == decoded.Hash {
			matched = pk
			break
		}
	}
	if matched == nil {
		return nil, translate(zerr.ErrUnknownAddress)
	}

	raw, err := w.Keystore.DecryptStandaloneTransparentKey(ctx, matched)
	if err != nil {
		return nil, translate(err)
	}
	privKey := secp256k1.PrivKeyFromBytes(raw)
	sig, err := keystore.SignMessage(privKey, []byte(message))
	if err != nil {
		return nil, translate(err)
	}
	return hex.EncodeToString(sig), nil
}

// verifyMessage implements verifymessage: address, signature, message. It
// needs no wallet key material: the signature is recovered to a public
// key and checked against the address's own pubkey hash.
func verifyMessage(w *wallet.Wallet, params []json.RawMessage) (interface{}, *dcrjson.RPCError) {
	var addr, sigHex, message string
	if rerr := decodeParam(params, 0, &addr); rerr != nil {
		return nil, rerr
	}
	if rerr := decodeParam(params, 1, &sigHex); rerr != nil {
		return nil, rerr
	}
	if rerr := decodeParam(params, 2, &message); rerr != nil {
		return nil, rerr
	}

	decoded, err := address.DecodeTransparent(addr)
	if err != nil || decoded.IsScriptHash {
		return false, nil
	}
	sig, err := hex.DecodeString(sigHex)
	if err != nil {
		return false, nil
	}

	recovered, err := keystore.RecoverMessageSigner(sig, []byte(message))
	if err != nil {
		return false, nil
	}
	return address.Hash160(recovered.SerializeCompressed()) == decoded.Hash, nil
}

// validateAddress implements validateaddress: it reports whether addr
// decodes as any address form this wallet understands (transparent, TEX,
// or unified), without requiring the address to be wallet-owned.
type validateAddressResult struct {
	IsValid bool   `json:"isvalid"`
	Address string `json:"address,omitempty"`
	Type    string `json:"type,omitempty"`
}

func validateAddress(w *wallet.Wallet, params []json.RawMessage) (interface{}, *dcrjson.RPCError) {
	var addr string
	if rerr := decodeParam(params, 0, &addr); rerr != nil {
		return nil, rerr
	}
	net := netForWallet(w)

	if decoded, err := address.DecodeTransparent(addr); err == nil {
		typ := "p2pkh"
		if decoded.IsScriptHash {
			typ = "p2sh"
		}
		return validateAddressResult{IsValid: true, Address: addr, Type: typ}, nil
	}
	if _, err := address.DecodeTex(net, addr); err == nil {
		return validateAddressResult{IsValid: true, Address: addr, Type: "tex"}, nil
	}
	if _, err := address.DecodeUnified(net, addr); err == nil {
		return validateAddressResult{IsValid: true, Address: addr, Type: "unified"}, nil
	}
	return validateAddressResult{IsValid: false}, nil
}

// convertTex implements convertTex: a transparent P2PKH address string in,
// its ZIP-320 TEX encoding out.
func convertTex(w *wallet.Wallet, params []json.RawMessage) (interface{}, *dcrjson.RPCError) {
	var addr string
	if rerr := decodeParam(params, 0, &addr); rerr != nil {
		return nil, rerr
	}
	tex, err := address.ConvertTex(netForWallet(w), addr)
	if err != nil {
		return nil, translate(err)
	}
	return tex, nil
}
