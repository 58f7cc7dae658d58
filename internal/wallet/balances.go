package wallet

import "context"

// Balances is the response shape for z_getbalances: per-account shielded
// and transparent totals, confirmed at the given minimum confirmations.
type Balances struct {
	AccountID   string
	Shielded    int64
	Transparent int64
}

// GetBalances implements z_getbalances for a single account, evaluated as
// of the chain tip minus minConf confirmations.
func (w *Wallet) GetBalances(ctx context.Context, accountID string, minConf int) (Balances, error) {
	tip, err := w.Chain.GetLatestBlock(ctx)
	if err != nil {
		return Balances{}, err
	}
	asOf := tip.Height - int64(minConf) + 1
	shielded, transparent, err := w.DB.AccountBalance(ctx, accountID, asOf)
	if err != nil {
		return Balances{}, err
	}
	return Balances{AccountID: accountID, Shielded: shielded, Transparent: transparent}, nil
}

// GetTotalBalance implements z_gettotalbalance: the sum of every account's
// balances, evaluated at the same height.
func (w *Wallet) GetTotalBalance(ctx context.Context, minConf int) (Balances, error) {
	accounts, err := w.DB.ListAccounts(ctx)
	if err != nil {
		return Balances{}, err
	}
	var total Balances
	for _, a := range accounts {
		b, err := w.GetBalances(ctx, a.ID, minConf)
		if err != nil {
			return Balances{}, err
		}
		total.Shielded += b.Shielded
		total.Transparent += b.Transparent
	}
	return total, nil
}
