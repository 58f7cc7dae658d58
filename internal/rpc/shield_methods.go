package rpc

import (
	"context"
	"encoding/hex"
	"encoding/json"

	"github.com/decred/dcrd/dcrjson/v3"

	"github.com/zallet-core/zallet/internal/spend"
	"github.com/zallet-core/zallet/internal/wallet"
)

func init() {
	register("z_shieldcoinbase", zShieldCoinbase)
}

type shieldResult struct {
	RemainingUTXOs int    `json:"remainingUTXOs"`
	RemainingValue int64  `json:"remainingValue"`
	ShieldingUTXOs int    `json:"shieldingUTXOs"`
	ShieldingValue int64  `json:"shieldingValue"`
	TxID           string `json:"txid,omitempty"`
	PCZT           string `json:"pczt,omitempty"`
}

// zShieldCoinbase implements z_shieldcoinbase: fromaddress, toaddress,
// fee, limit, memo, privacyPolicy. fromaddress of "*" (or "ANY_TADDR")
// sweeps coinbase outputs from every owned transparent address; toaddress
// must carry a shielded receiver. fee must be null, matching z_sendmany's
// fee-is-always-computed rule.
func zShieldCoinbase(w *wallet.Wallet, params []json.RawMessage) (interface{}, *dcrjson.RPCError) {
	var fromAddress string
	if rerr := decodeParam(params, 0, &fromAddress); rerr != nil {
		return nil, rerr
	}
	var toAddress string
	if rerr := decodeParam(params, 1, &toAddress); rerr != nil {
		return nil, rerr
	}
	if len(params) > 2 {
		var fee *float64
		if rerr := decodeParam(params, 2, &fee); rerr == nil && fee != nil {
			return nil, invalidParams("fee must be null; the fee is always computed internally")
		}
	}
	limit := 0
	if len(params) > 3 {
		_ = decodeParam(params, 3, &limit)
	}
	var memo []byte
	if len(params) > 4 {
		var memoHex string
		_ = decodeParam(params, 4, &memoHex)
		if memoHex != "" {
			m, err := hex.DecodeString(memoHex)
			if err != nil {
				return nil, invalidParams("malformed memo")
			}
			memo = m
		}
	}
	policyName := "FullPrivacy"
	if len(params) > 5 {
		_ = decodeParam(params, 5, &policyName)
	}

	if fromAddress == "*" || fromAddress == "ANY_TADDR" {
		fromAddress = ""
	}

	isShielded, _, pool, err := classifyRecipient(netForWallet(w), toAddress)
	if err != nil {
		return nil, invalidParams("malformed recipient address")
	}
	if !isShielded {
		return nil, invalidParams("toaddress must have a shielded receiver")
	}
	payment := spend.Payment{
		Recipient:  toAddress,
		Memo:       memo,
		IsShielded: true,
		Pool:       pool,
	}

	opid := recordOperation(func() (interface{}, *dcrjson.RPCError) {
		result, err := w.ShieldCoinbase(context.Background(), fromAddress, payment, limit, parsePolicy(policyName), defaultFeeRate)
		if err != nil {
			return nil, translate(err)
		}
		out := shieldResult{
			RemainingUTXOs: result.RemainingUTXOs,
			RemainingValue: result.RemainingValue,
			ShieldingUTXOs: result.ShieldingUTXOs,
			ShieldingValue: result.ShieldingValue,
		}
		if result.TxID != nil {
			out.TxID = hex.EncodeToString(result.TxID)
		} else if result.PCZT != nil {
			out.PCZT = encodePCZTPlaceholder(result.PCZT)
		}
		return out, nil
	})
	return opid, nil
}
