package rpc

import (
	"context"
	"encoding/hex"
	"encoding/json"

	"github.com/decred/dcrd/dcrjson/v3"

	"github.com/zallet-core/zallet/internal/address"
	"github.com/zallet-core/zallet/internal/privacy"
	"github.com/zallet-core/zallet/internal/spend"
	"github.com/zallet-core/zallet/internal/wallet"
)

func init() {
	register("z_sendmany", zSendMany)
}

type sendManyRecipient struct {
	Address string `json:"address"`
	Amount  int64  `json:"amount"`
	Memo    string `json:"memo,omitempty"`
}

type sendResult struct {
	TxID string `json:"txid,omitempty"`
	PCZT string `json:"pczt,omitempty"`
}

var defaultFeeRate = spend.FeeRate(1000)

// zSendMany implements z_sendmany: fromaddress, amounts[], minconf,
// privacyPolicy. The fee is always computed internally and never a
// caller parameter.
func zSendMany(w *wallet.Wallet, params []json.RawMessage) (interface{}, *dcrjson.RPCError) {
	var fromAddress string
	if rerr := decodeParam(params, 0, &fromAddress); rerr != nil {
		return nil, rerr
	}
	var recipients []sendManyRecipient
	if rerr := decodeParam(params, 1, &recipients); rerr != nil {
		return nil, rerr
	}
	minConf := 1
	if len(params) > 2 {
		_ = decodeParam(params, 2, &minConf)
	}
	policyName := "FullPrivacy"
	if len(params) > 3 {
		_ = decodeParam(params, 3, &policyName)
	}

	source := spend.Source{AccountID: fromAddress}
	if fromAddress == "ANY_TADDR" {
		source = spend.Source{AnyTaddr: true}
	}

	net := netForWallet(w)
	payments := make([]spend.Payment, 0, len(recipients))
	for _, r := range recipients {
		var memo []byte
		if r.Memo != "" {
			m, err := hex.DecodeString(r.Memo)
			if err != nil {
				return nil, invalidParams("malformed memo")
			}
			memo = m
		}
		isShielded, isTransparent, pool, err := classifyRecipient(net, r.Address)
		if err != nil {
			return nil, invalidParams("malformed recipient address")
		}
		payments = append(payments, spend.Payment{
			Recipient:     r.Address,
			Value:         r.Amount,
			Memo:          memo,
			IsShielded:    isShielded,
			IsTransparent: isTransparent,
			Pool:          pool,
		})
	}

	opid := recordOperation(func() (interface{}, *dcrjson.RPCError) {
		result, err := w.Send(context.Background(), source, payments, minConf, parsePolicy(policyName), defaultFeeRate)
		if err != nil {
			return nil, translate(err)
		}
		if result.TxID != nil {
			return sendResult{TxID: hex.EncodeToString(result.TxID)}, nil
		}
		return sendResult{PCZT: encodePCZTPlaceholder(result.PCZT)}, nil
	})
	return opid, nil
}

// classifyRecipient decodes addr against every address form this wallet
// understands (transparent, TEX, unified) and reports the shape a
// spend.Payment to it must carry: whether it is shielded and/or
// transparent, and, for a shielded recipient, which pool its best
// receiver belongs to (Orchard preferred over Sapling, matching the
// receiver preference order address.EncodeUnified/DecodeUnified use).
// This is what lets classifyStep in internal/spend observe a transparent
// or cross-pool recipient coming from the real z_sendmany/pczt_fund RPC
// surface instead of only from hand-built test payments.
func classifyRecipient(net address.Network, addr string) (isShielded, isTransparent bool, pool spend.Pool, err error) {
	if _, decErr := address.DecodeTransparent(addr); decErr == nil {
		return false, true, spend.PoolNone, nil
	}
	if _, decErr := address.DecodeTex(net, addr); decErr == nil {
		return false, true, spend.PoolNone, nil
	}
	receivers, decErr := address.DecodeUnified(net, addr)
	if decErr != nil {
		return false, false, spend.PoolNone, address.ErrInvalidAddress
	}
	var hasSapling, hasTransparent bool
	for _, r := range receivers {
		switch r.Type {
		case address.ReceiverOrchard:
			return true, false, spend.PoolOrchard, nil
		case address.ReceiverSapling:
			hasSapling = true
		case address.ReceiverP2PKH, address.ReceiverP2SH:
			hasTransparent = true
		}
	}
	if hasSapling {
		return true, false, spend.PoolSapling, nil
	}
	return false, hasTransparent, spend.PoolNone, nil
}

func parsePolicy(name string) privacy.Policy {
	switch name {
	case "AllowRevealedAmounts":
		return privacy.AllowRevealedAmounts
	case "AllowRevealedRecipients":
		return privacy.AllowRevealedRecipients
	case "AllowRevealedSenders":
		return privacy.AllowRevealedSenders
	case "AllowFullyTransparent":
		return privacy.AllowFullyTransparent
	case "AllowLinkingAccountAddresses":
		return privacy.AllowLinkingAccountAddresses
	case "NoPrivacy":
		return privacy.NoPrivacy
	default:
		return privacy.FullPrivacy
	}
}
