package rpc

import (
	"context"
	"encoding/hex"
	"encoding/json"

	"github.com/decred/dcrd/dcrjson/v3"

	"github.com/zallet-core/zallet/internal/keystore"
	"github.com/zallet-core/zallet/internal/wallet"
)

func init() {
	register("z_recoveraccounts", zRecoverAccounts)
}

type recoverAccountParam struct {
	Name              string `json:"name"`
	SeedFP            string `json:"seedfp"`
	ZIP32AccountIndex uint32 `json:"zip32_account_index"`
	BirthdayHeight    int64  `json:"birthday_height"`
}

type recoveredAccount struct {
	AccountUUID       string `json:"account_uuid"`
	SeedFP            string `json:"seedfp"`
	ZIP32AccountIndex uint32 `json:"zip32_account_index"`
}

type recoveredAccounts struct {
	Accounts []recoveredAccount `json:"accounts"`
}

// zRecoverAccounts implements z_recoveraccounts: re-materialize derived
// accounts at explicit (seed fingerprint, ZIP-32 index) coordinates, for
// wallets restored from backup or migrated from zcashd.
func zRecoverAccounts(w *wallet.Wallet, params []json.RawMessage) (interface{}, *dcrjson.RPCError) {
	var args []recoverAccountParam
	if rerr := decodeParam(params, 0, &args); rerr != nil {
		return nil, rerr
	}
	if len(args) == 0 {
		return nil, invalidParams("no accounts to recover")
	}

	specs := make([]wallet.RecoverAccountSpec, 0, len(args))
	for _, a := range args {
		fpBytes, err := hex.DecodeString(a.SeedFP)
		if err != nil || len(fpBytes) != 32 {
			return nil, invalidParams("malformed seed fingerprint: " + a.SeedFP)
		}
		var fp keystore.SeedFingerprint
		copy(fp[:], fpBytes)
		specs = append(specs, wallet.RecoverAccountSpec{
			Name:           a.Name,
			SeedFP:         fp,
			AccountIndex:   a.ZIP32AccountIndex,
			BirthdayHeight: a.BirthdayHeight,
		})
	}

	accounts, err := w.RecoverAccounts(context.Background(), specs)
	if err != nil {
		return nil, translate(err)
	}

	out := recoveredAccounts{Accounts: make([]recoveredAccount, 0, len(accounts))}
	for i, acct := range accounts {
		out.Accounts = append(out.Accounts, recoveredAccount{
			AccountUUID:       acct.ID,
			SeedFP:            specs[i].SeedFP.String(),
			ZIP32AccountIndex: *acct.AccountIndex,
		})
	}
	return out, nil
}
