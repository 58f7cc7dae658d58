package rpc

import (
	"context"
	"encoding/hex"
	"encoding/json"

	"github.com/decred/dcrd/dcrjson/v3"

	"github.com/zallet-core/zallet/internal/wallet"
)

func init() {
	register("z_getbalances", zGetBalances)
	register("z_gettotalbalance", zGetTotalBalance)
	register("z_listunspent", zListUnspent)
}

type balancesResult struct {
	Pools map[string]int64 `json:"pools"`
}

func zGetBalances(w *wallet.Wallet, params []json.RawMessage) (interface{}, *dcrjson.RPCError) {
	var accountID string
	if rerr := decodeParam(params, 0, &accountID); rerr != nil {
		return nil, rerr
	}
	minConf := 1
	if len(params) > 1 {
		_ = decodeParam(params, 1, &minConf)
	}
	bal, err := w.GetBalances(context.Background(), accountID, minConf)
	if err != nil {
		return nil, translate(err)
	}
	return balancesResult{Pools: map[string]int64{
		"shielded":    bal.Shielded,
		"transparent": bal.Transparent,
	}}, nil
}

func zGetTotalBalance(w *wallet.Wallet, params []json.RawMessage) (interface{}, *dcrjson.RPCError) {
	minConf := 1
	if len(params) > 0 {
		_ = decodeParam(params, 0, &minConf)
	}
	bal, err := w.GetTotalBalance(context.Background(), minConf)
	if err != nil {
		return nil, translate(err)
	}
	return balancesResult{Pools: map[string]int64{
		"shielded":    bal.Shielded,
		"transparent": bal.Transparent,
	}}, nil
}

type unspentNote struct {
	TxID      string `json:"txid"`
	Protocol  string `json:"pool"`
	AccountID string `json:"account"`
	Amount    int64  `json:"amount"`
}

type unspentUTXO struct {
	TxID      string `json:"txid"`
	Vout      uint32 `json:"vout"`
	Address   string `json:"address"`
	AccountID string `json:"account"`
	Amount    int64  `json:"amount"`
}

type listUnspentResult struct {
	Notes []unspentNote `json:"notes"`
	UTXOs []unspentUTXO `json:"utxos"`
}

func zListUnspent(w *wallet.Wallet, params []json.RawMessage) (interface{}, *dcrjson.RPCError) {
	minConf := 1
	if len(params) > 0 {
		_ = decodeParam(params, 0, &minConf)
	}
	var accountID string
	anyTaddr := accountID == ""

	tip, err := w.Chain.GetLatestBlock(context.Background())
	if err != nil {
		return nil, translate(err)
	}
	notes, utxos, err := w.DB.SpendableCoins(context.Background(), accountID, anyTaddr, tip.Height, minConf)
	if err != nil {
		return nil, translate(err)
	}
	out := listUnspentResult{}
	for _, n := range notes {
		out.Notes = append(out.Notes, unspentNote{
			TxID:      hex.EncodeToString(n.TxID[:]),
			Protocol:  n.Protocol,
			AccountID: n.AccountID,
			Amount:    n.Value,
		})
	}
	for _, u := range utxos {
		out.UTXOs = append(out.UTXOs, unspentUTXO{
			TxID:      hex.EncodeToString(u.TxID[:]),
			Vout:      u.Vout,
			Address:   u.Address,
			AccountID: u.AccountID,
			Amount:    u.Value,
		})
	}
	return out, nil
}
