package wallet

import (
	"context"
	"errors"

	"github.com/zallet-core/zallet/internal/config"
	"github.com/zallet-core/zallet/internal/privacy"
	"github.com/zallet-core/zallet/internal/spend"
)

// SendResult is the outcome of Send: either a broadcast transaction id, or
// (when broadcast is disabled) a PCZT to be completed out-of-band.
type SendResult struct {
	TxID []byte
	PCZT *spend.PCZT
}

// Send implements z_sendmany's core: validate the request, plan the spend
// against the wallet's spendable coins, and either broadcast a transaction
// or hand back a PCZT, per cfg.BroadcastEnabled.
//
// No proving system or shielded transaction builder is wired into this
// build (see DESIGN.md), so the PCZT's Body is populated with the
// planner's metadata only; a production build wires a real builder in
// behind spend.PCZT.Body before FinalizeIO/Extract.
func (w *Wallet) Send(ctx context.Context, source spend.Source, payments []spend.Payment, minConf int, policy privacy.Policy, feeRate spend.FeeRate) (SendResult, error) {
	pczt, err := w.Fund(ctx, source, payments, minConf, policy, feeRate, 0)
	if err != nil {
		return SendResult{}, err
	}

	if !w.Config.BroadcastEnabled() {
		return SendResult{PCZT: pczt}, nil
	}

	finalized, err := spend.FinalizeIO(pczt)
	if err != nil {
		return SendResult{}, err
	}
	finalized.Role = spend.RoleSigner
	raw, err := spend.Extract(finalized, false)
	if err != nil {
		return SendResult{}, err
	}

	if err := w.Chain.SendRawTransaction(ctx, raw); err != nil {
		return SendResult{}, err
	}
	return SendResult{TxID: raw}, nil
}

// Fund implements the pczt_create+pczt_fund pair's core: plan req against
// the wallet's spendable coins and attach the Constructor-role metadata a
// later Signer needs, without touching the chain. expiryHeight of 0 leaves
// the PCZT's ExpiryHeight unset, matching pczt_create's optional argument.
//
// No proving system or shielded transaction builder is wired into this
// build (see DESIGN.md), so the PCZT's Body is populated with the
// planner's metadata only; a production build wires a real builder in
// behind spend.PCZT.Body before FinalizeIO/Extract.
func (w *Wallet) Fund(ctx context.Context, source spend.Source, payments []spend.Payment, minConf int, policy privacy.Policy, feeRate spend.FeeRate, expiryHeight uint32) (*spend.PCZT, error) {
	req, err := spend.NewRequest(source, payments, minConf, policy, w.Config.OrchardActionsLimit())
	if err != nil {
		return nil, err
	}

	plan, err := spend.Plan(ctx, &coinSourceAdapter{w: w}, feeRate, req)
	if err != nil {
		return nil, err
	}
	if len(plan.Steps) == 0 {
		return nil, errors.New("wallet: planner produced no steps")
	}

	pczt := &spend.PCZT{Role: spend.RoleConstructor, ExpiryHeight: expiryHeight}

	if source.AccountID != "" && !source.AnyTaddr {
		if acct, err := w.DB.GetAccount(ctx, source.AccountID); err == nil && acct.AccountIndex != nil && len(acct.SeedFingerprint) == 32 {
			transparentInputs := make([]spend.TransparentInputMeta, 0, len(plan.Steps[0].Proposal.Inputs))
			for _, in := range plan.Steps[0].Proposal.Inputs {
				if in.Kind != spend.InputTransparent {
					continue
				}
				transparentInputs = append(transparentInputs, spend.TransparentInputMeta{
					Scope:        spend.ScopeExternal,
					AddressIndex: 0,
				})
			}
			var fp [32]byte
			copy(fp[:], acct.SeedFingerprint)
			_ = pczt.AttachGlobalMeta(spend.GlobalMeta{
				SeedFingerprint: fp,
				AccountIndex:    *acct.AccountIndex,
				Network:         networkToPCZT(w.Config.Network),
			}, transparentInputs, len(transparentInputs))
		}
	}

	return pczt, nil
}

func networkToPCZT(n config.Network) spend.Network {
	switch n {
	case config.NetworkTest:
		return spend.NetworkTest
	case config.NetworkRegtest:
		return spend.NetworkRegtest
	default:
		return spend.NetworkMain
	}
}
