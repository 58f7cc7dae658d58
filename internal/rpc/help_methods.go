package rpc

import (
	"encoding/json"
	"sort"
	"strings"

	"github.com/decred/dcrd/dcrjson/v3"

	"github.com/zallet-core/zallet/internal/address"
	"github.com/zallet-core/zallet/internal/wallet"
)

func init() {
	register("help", helpMethod)
	register("z_listunifiedreceivers", zListUnifiedReceivers)
}

// methodDescriptions carries the per-method usage line help and
// rpc.discover serve. A registered method missing from this map is still
// listed; it just has no description.
var methodDescriptions = map[string]string{
	"convertTex":              "Convert a transparent P2PKH address to its TEX encoding.",
	"decoderawtransaction":    "Report a serialized transaction's size; inputs and outputs are not decoded.",
	"decodescript":            "Decode a hex-encoded script.",
	"getrawtransaction":       "Fetch a transaction's raw bytes and chain placement.",
	"gettransaction":          "Fetch wallet-relevant details for a transaction.",
	"getwalletinfo":           "Return a snapshot of wallet identity and sync state.",
	"getwalletstatus":         "Return node tip, wallet tip, fully-synced height, and remaining work.",
	"help":                    "List commands, or get help on a single command.",
	"listaddresses":           "List every address grouped by source.",
	"pczt_combine":            "Merge PCZTs describing the same logical transaction.",
	"pczt_create":             "Create an empty PCZT with an optional expiry height.",
	"pczt_decode":             "Inspect a PCZT's header fields and bundle sizes.",
	"pczt_extract":            "Produce the final serialized transaction from a signed PCZT.",
	"pczt_finalize":           "Transition a PCZT from builder-editable to signable.",
	"pczt_fund":               "Plan inputs and change for a PCZT's payments.",
	"pczt_sign":               "Check a PCZT against its funding account and advance it to the signer role; no signatures are attached.",
	"rpc.discover":            "Return this server's OpenRPC document.",
	"signmessage":             "Sign a message with a transparent address's key.",
	"validateaddress":         "Report whether an address is valid and its type.",
	"verifymessage":           "Verify a signed message against an address.",
	"walletlock":              "Clear decryption identities from memory immediately.",
	"walletpassphrase":        "Unlock the keystore for a bounded number of seconds.",
	"z_getaddressforaccount":  "Derive a unified address for an account.",
	"z_getbalances":           "Report per-account shielded and transparent balances.",
	"z_getnewaccount":         "Materialize an account at the next ZIP-32 index.",
	"z_getoperationresult":    "Fetch and remove completed async operations.",
	"z_getoperationstatus":    "Report the status of async operations.",
	"z_gettotalbalance":       "Report the wallet-wide balance at a confirmation depth.",
	"z_listaccounts":          "List every account.",
	"z_listaddresses":         "List shielded/unified addresses.",
	"z_listunifiedreceivers":  "Break a unified address into its typed receivers.",
	"z_listunspent":           "List unspent notes and transparent outputs.",
	"z_recoveraccounts":       "Re-materialize derived accounts at explicit ZIP-32 indices.",
	"z_sendmany":              "Send to one or more recipients under a privacy policy.",
	"z_shieldcoinbase":        "Sweep mined coinbase outputs into a shielded address.",
	"z_viewtransaction":       "Show a transaction's txid and confirmation count; no outputs are decrypted.",
}

// helpMethod implements help: with no argument, the sorted list of every
// dispatchable method; with a command name, that command's description.
func helpMethod(w *wallet.Wallet, params []json.RawMessage) (interface{}, *dcrjson.RPCError) {
	var command string
	if len(params) > 0 {
		_ = decodeParam(params, 0, &command)
	}
	if command != "" {
		if _, ok := methods[command]; !ok {
			return "help: unknown command: " + command + "\n", nil
		}
		return command + "\n\n" + methodDescriptions[command], nil
	}

	names := make([]string, 0, len(methods))
	for name := range methods {
		names = append(names, name)
	}
	sort.Strings(names)
	return strings.Join(names, "\n") + "\n", nil
}

type unifiedReceivers struct {
	P2PKH   string `json:"p2pkh,omitempty"`
	P2SH    string `json:"p2sh,omitempty"`
	Sapling string `json:"sapling,omitempty"`
	Orchard string `json:"orchard,omitempty"`
}

// zListUnifiedReceivers implements z_listunifiedreceivers: decode a
// unified address and report each typed receiver in its own standalone
// encoding. Purely an address-codec operation; no wallet state is read.
func zListUnifiedReceivers(w *wallet.Wallet, params []json.RawMessage) (interface{}, *dcrjson.RPCError) {
	var ua string
	if rerr := decodeParam(params, 0, &ua); rerr != nil {
		return nil, rerr
	}

	net := netForWallet(w)
	receivers, err := address.DecodeUnified(net, ua)
	if err != nil {
		return nil, newErr(CodeInvalidAddressOrKey, "not a unified address: "+err.Error())
	}

	var out unifiedReceivers
	for _, r := range receivers {
		switch r.Type {
		case address.ReceiverP2PKH:
			var hash [20]byte
			copy(hash[:], r.Data)
			out.P2PKH = address.EncodeTransparentP2PKH(net, hash)
		case address.ReceiverP2SH:
			var hash [20]byte
			copy(hash[:], r.Data)
			out.P2SH = address.EncodeTransparentP2SH(net, hash)
		case address.ReceiverSapling:
			// A Sapling receiver has no standalone encoding here (no
			// Sapling-payment-address codec in this wallet), so it is
			// reported as a single-receiver UA, like Orchard.
			enc, encErr := address.EncodeUnified(net, []address.Receiver{r})
			if encErr == nil {
				out.Sapling = enc
			}
		case address.ReceiverOrchard:
			enc, encErr := address.EncodeUnified(net, []address.Receiver{r})
			if encErr == nil {
				out.Orchard = enc
			}
		}
	}
	return out, nil
}
