package wallet

import (
	"context"
	"fmt"

	"github.com/zallet-core/zallet/internal/keystore"
	"github.com/zallet-core/zallet/internal/walletdb"
	"github.com/zallet-core/zallet/internal/zerr"
)

// RecoverAccountSpec names one account to re-materialize from an already
// stored seed: the caller supplies the exact ZIP-32 coordinates rather
// than letting the wallet pick the next free index, since recovery is
// reconstructing accounts that existed before.
type RecoverAccountSpec struct {
	Name           string
	SeedFP         keystore.SeedFingerprint
	AccountIndex   uint32
	BirthdayHeight int64
}

// RecoverAccounts re-creates derived accounts at explicit ZIP-32 indices
// under seeds the keystore already holds. The keystore must be unlocked
// (each referenced seed is decrypted once to prove it is present and
// readable), and the wallet must have a committed chain tip so each
// account's recovery boundary is known. Birthday heights beyond the tip
// are rejected.
func (w *Wallet) RecoverAccounts(ctx context.Context, specs []RecoverAccountSpec) ([]walletdb.Account, error) {
	if w.Keystore.IsLocked() {
		return nil, zerr.ErrLocked
	}

	tip, ok, err := w.DB.WalletTip(ctx)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("wallet: sync required before accounts can be recovered")
	}

	verified := map[keystore.SeedFingerprint]bool{}
	for _, spec := range specs {
		if verified[spec.SeedFP] {
			continue
		}
		seed, err := w.Keystore.DecryptSeed(ctx, spec.SeedFP)
		if err != nil {
			return nil, err
		}
		for i := range seed {
			seed[i] = 0
		}
		verified[spec.SeedFP] = true
	}

	out := make([]walletdb.Account, 0, len(specs))
	for _, spec := range specs {
		if spec.BirthdayHeight > tip.Height {
			return nil, fmt.Errorf("wallet: birthday height %d does not exist in the chain", spec.BirthdayHeight)
		}
		idx := spec.AccountIndex
		acct, err := w.DB.CreateAccount(ctx, walletdb.Account{
			Name:            spec.Name,
			Source:          walletdb.SourceDerived,
			SeedFingerprint: spec.SeedFP[:],
			AccountIndex:    &idx,
			BirthdayHeight:  spec.BirthdayHeight,
		})
		if err != nil {
			return nil, err
		}
		out = append(out, acct)
	}
	return out, nil
}
