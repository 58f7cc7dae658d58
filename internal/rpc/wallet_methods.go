package rpc

import (
	"context"
	"encoding/json"
	"time"

	"github.com/decred/dcrd/dcrjson/v3"

	"github.com/zallet-core/zallet/internal/wallet"
)

func init() {
	register("getwalletinfo", getWalletInfo)
	register("getwalletstatus", getWalletStatus)
	register("walletpassphrase", walletPassphrase)
	register("walletlock", walletLock)
}

type walletInfoResult struct {
	WalletVersion int    `json:"walletversion"`
	Balance       int64  `json:"balance"`
	UnlockedUntil *int64 `json:"unlocked_until,omitempty"`
}

func getWalletInfo(w *wallet.Wallet, params []json.RawMessage) (interface{}, *dcrjson.RPCError) {
	total, err := w.GetTotalBalance(context.Background(), 1)
	if err != nil {
		return nil, translate(err)
	}
	res := walletInfoResult{WalletVersion: 1, Balance: total.Shielded + total.Transparent}
	if until, ok := w.Keystore.UnlockedUntil(); ok {
		u := until.Unix()
		res.UnlockedUntil = &u
	}
	return res, nil
}

type walletStatusResult struct {
	NodeTipHeight     int64 `json:"node_tip_height"`
	WalletTipHeight   int64 `json:"wallet_tip_height"`
	FullySyncedHeight int64 `json:"fully_synced_height"`
	RemainingBlocks   int64 `json:"remaining_blocks"`
}

func getWalletStatus(w *wallet.Wallet, params []json.RawMessage) (interface{}, *dcrjson.RPCError) {
	status, err := w.Status(context.Background())
	if err != nil {
		return nil, translate(err)
	}
	return walletStatusResult{
		NodeTipHeight:     status.NodeTipHeight,
		WalletTipHeight:   status.WalletTipHeight,
		FullySyncedHeight: status.FullySyncedHeight,
		RemainingBlocks:   status.RemainingBlocks,
	}, nil
}

func walletPassphrase(w *wallet.Wallet, params []json.RawMessage) (interface{}, *dcrjson.RPCError) {
	var passphrase string
	var timeoutSecs int64
	if rerr := decodeParam(params, 0, &passphrase); rerr != nil {
		return nil, rerr
	}
	if rerr := decodeParam(params, 1, &timeoutSecs); rerr != nil {
		return nil, rerr
	}
	if err := w.Keystore.Unlock(passphrase, time.Duration(timeoutSecs)*time.Second); err != nil {
		return nil, translate(err)
	}
	return nil, nil
}

func walletLock(w *wallet.Wallet, params []json.RawMessage) (interface{}, *dcrjson.RPCError) {
	w.Keystore.Lock()
	return nil, nil
}
