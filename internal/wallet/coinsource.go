package wallet

import (
	"context"

	"github.com/zallet-core/zallet/internal/spend"
)

// coinSourceAdapter implements spend.CoinSource over *walletdb.Store,
// translating notes and transparent outputs into the planner's
// pool-agnostic spend.Coin shape.
type coinSourceAdapter struct {
	w *Wallet
}

func (c *coinSourceAdapter) SpendableCoins(ctx context.Context, source spend.Source, minConf int) ([]spend.Coin, error) {
	tip, err := c.w.Chain.GetLatestBlock(ctx)
	if err != nil {
		return nil, err
	}

	notes, utxos, err := c.w.DB.SpendableCoins(ctx, source.AccountID, source.AnyTaddr, tip.Height, minConf)
	if err != nil {
		return nil, err
	}

	coins := make([]spend.Coin, 0, len(notes)+len(utxos))
	for _, n := range notes {
		kind := spend.InputSapling
		if n.Protocol == "orchard" {
			kind = spend.InputOrchard
		}
		coins = append(coins, spend.Coin{Kind: kind, Value: n.Value})
	}
	for _, u := range utxos {
		coins = append(coins, spend.Coin{Kind: spend.InputTransparent, Value: u.Value, Address: u.Address})
	}
	return coins, nil
}
