package wallet

import (
	"context"

	"github.com/zallet-core/zallet/internal/privacy"
	"github.com/zallet-core/zallet/internal/spend"
	"github.com/zallet-core/zallet/internal/walletdb"
)

// ShieldResult reports a coinbase-shielding operation: the value and count
// actually swept, what coinbase value remains unswept (when a limit capped
// the sweep), and the usual send outcome.
type ShieldResult struct {
	SendResult
	ShieldingValue int64
	ShieldingUTXOs int
	RemainingValue int64
	RemainingUTXOs int
	ReceivedValue  int64
}

// ShieldCoinbase implements z_shieldcoinbase's core: sweep up to limit
// mined coinbase outputs (all of them when limit is 0) paying fromAddress
// (or any owned address when fromAddress is empty) into the single
// shielded payment, subtracting the fee from the swept value. Coinbase
// maturity is a precondition reported by the chain view, not computed
// here.
func (w *Wallet) ShieldCoinbase(ctx context.Context, fromAddress string, payment spend.Payment, limit int, policy privacy.Policy, feeRate spend.FeeRate) (ShieldResult, error) {
	selected, err := w.DB.CoinbaseOutputs(ctx, fromAddress, limit)
	if err != nil {
		return ShieldResult{}, err
	}
	all, err := w.DB.CoinbaseOutputs(ctx, fromAddress, 0)
	if err != nil {
		return ShieldResult{}, err
	}

	coins := make([]spend.Coin, 0, len(selected))
	var result ShieldResult
	for _, u := range selected {
		coins = append(coins, spend.Coin{Kind: spend.InputTransparent, Value: u.Value, Address: u.Address})
		result.ShieldingValue += u.Value
	}
	result.ShieldingUTXOs = len(selected)
	result.RemainingUTXOs = len(all) - len(selected)
	result.RemainingValue = sumUTXOs(all) - result.ShieldingValue

	plan, outputAmt, err := spend.PlanSweep(feeRate, payment, coins, policy, w.Config.OrchardActionsLimit())
	if err != nil {
		return ShieldResult{}, err
	}
	result.ReceivedValue = outputAmt

	pczt := &spend.PCZT{Role: spend.RoleConstructor}
	transparentInputs := make([]spend.TransparentInputMeta, 0, len(plan.Steps[0].Proposal.Inputs))
	for range plan.Steps[0].Proposal.Inputs {
		transparentInputs = append(transparentInputs, spend.TransparentInputMeta{Scope: spend.ScopeExternal})
	}
	pczt.TransparentInputs = transparentInputs
	if !w.Config.BroadcastEnabled() {
		result.PCZT = pczt
		return result, nil
	}

	finalized, err := spend.FinalizeIO(pczt)
	if err != nil {
		return ShieldResult{}, err
	}
	finalized.Role = spend.RoleSigner
	raw, err := spend.Extract(finalized, false)
	if err != nil {
		return ShieldResult{}, err
	}
	if err := w.Chain.SendRawTransaction(ctx, raw); err != nil {
		return ShieldResult{}, err
	}
	result.TxID = raw
	return result, nil
}

func sumUTXOs(utxos []walletdb.SpendableUTXO) int64 {
	var total int64
	for _, u := range utxos {
		total += u.Value
	}
	return total
}
