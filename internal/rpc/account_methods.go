package rpc

import (
	"context"
	"encoding/hex"
	"encoding/json"

	"github.com/decred/dcrd/dcrjson/v3"

	"github.com/zallet-core/zallet/internal/wallet"
	"github.com/zallet-core/zallet/internal/walletdb"
)

func init() {
	register("z_getnewaccount", zGetNewAccount)
	register("z_getaddressforaccount", zGetAddressForAccount)
	register("z_listaccounts", zListAccounts)
	register("z_listaddresses", zListAddresses)
	register("listaddresses", listAddresses)
}

type accountResult struct {
	AccountUUID string `json:"account_uuid"`
	AccountID   *uint32 `json:"account,omitempty"`
}

func zGetNewAccount(w *wallet.Wallet, params []json.RawMessage) (interface{}, *dcrjson.RPCError) {
	var name string
	if len(params) > 0 {
		if rerr := decodeParam(params, 0, &name); rerr != nil {
			return nil, rerr
		}
	}

	fps, err := w.DB.ListAccounts(context.Background())
	if err != nil {
		return nil, translate(err)
	}
	var fp [32]byte
	for _, a := range fps {
		if len(a.SeedFingerprint) == 32 {
			copy(fp[:], a.SeedFingerprint)
			break
		}
	}

	acct, err := w.NewDerivedAccount(context.Background(), name, fp, 0)
	if err != nil {
		return nil, translate(err)
	}
	return accountResult{AccountUUID: acct.ID, AccountID: acct.AccountIndex}, nil
}

type addressResult struct {
	AccountUUID      string   `json:"account_uuid"`
	DiversifierIndex string   `json:"diversifier_index"`
	ReceiverTypes    []string `json:"receiver_types"`
	Address          string   `json:"address"`
}

func zGetAddressForAccount(w *wallet.Wallet, params []json.RawMessage) (interface{}, *dcrjson.RPCError) {
	var accountID string
	if rerr := decodeParam(params, 0, &accountID); rerr != nil {
		return nil, rerr
	}
	var receiverTypes []string
	if len(params) > 1 {
		_ = decodeParam(params, 1, &receiverTypes)
	}

	derived, err := w.NewAddressForAccount(context.Background(), accountID, receiverTypes, nil)
	if err != nil {
		return nil, translate(err)
	}
	return addressResult{
		AccountUUID:      derived.AccountID,
		DiversifierIndex: hex.EncodeToString(derived.DiversifierIndex[:]),
		ReceiverTypes:    derived.ReceiverTypes,
		Address:          derived.Address,
	}, nil
}

func zListAccounts(w *wallet.Wallet, params []json.RawMessage) (interface{}, *dcrjson.RPCError) {
	accounts, err := w.DB.ListAccounts(context.Background())
	if err != nil {
		return nil, translate(err)
	}
	out := make([]accountResult, 0, len(accounts))
	for _, a := range accounts {
		out = append(out, accountResult{AccountUUID: a.ID, AccountID: a.AccountIndex})
	}
	return out, nil
}

func zListAddresses(w *wallet.Wallet, params []json.RawMessage) (interface{}, *dcrjson.RPCError) {
	var accountID string
	if len(params) > 0 {
		_ = decodeParam(params, 0, &accountID)
	}
	addrs, err := w.DB.ListAddresses(context.Background(), accountID)
	if err != nil {
		return nil, translate(err)
	}
	out := make([]string, 0, len(addrs))
	for _, a := range addrs {
		out = append(out, a.Encoding)
	}
	return out, nil
}

func listAddresses(w *wallet.Wallet, params []json.RawMessage) (interface{}, *dcrjson.RPCError) {
	addrs, err := w.DB.ListAddresses(context.Background(), "")
	if err != nil {
		return nil, translate(err)
	}
	type entry struct {
		Source    string `json:"source"`
		Transparent []string `json:"transparent,omitempty"`
		Unified     []string `json:"unified,omitempty"`
	}
	var e entry
	e.Source = "zallet"
	for _, a := range addrs {
		switch a.Type {
		case walletdb.AddressTransparentP2PKH, walletdb.AddressTransparentP2SH:
			e.Transparent = append(e.Transparent, a.Encoding)
		case walletdb.AddressUnified:
			e.Unified = append(e.Unified, a.Encoding)
		}
	}
	return []entry{e}, nil
}
