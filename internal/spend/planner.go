package spend

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/zallet-core/zallet/internal/build"
	"github.com/zallet-core/zallet/internal/privacy"
	"github.com/zallet-core/zallet/internal/zerr"
)

var log = build.NewLogger(build.SubsystemSpend)

// Payment is a single requested output: a recipient, a value, and
// optionally a memo (only valid for a shielded-capable recipient).
type Payment struct {
	Recipient     string
	Value         int64
	Memo          []byte
	Label         string
	Message       string
	IsShielded    bool
	IsTransparent bool
	// Pool is the recipient's shielded pool, set by the caller for
	// IsShielded payments once the address has been decoded; it is
	// PoolNone for transparent-only recipients. classifyStep uses it to
	// detect an Orchard input paying a Sapling recipient or vice versa.
	Pool Pool
}

// Pool names a shielded value pool a coin or payment belongs to.
type Pool int

const (
	PoolNone Pool = iota
	PoolSapling
	PoolOrchard
)

// Source identifies where a proposal draws its inputs from: either a
// specific account, or the legacy transparent-pool sentinel.
type Source struct {
	AccountID string
	AnyTaddr  bool
}

// Request is a validated, deduplicated spend request ready for planning.
type Request struct {
	Source         Source
	Payments       []Payment
	MinConf        int
	Policy         privacy.Policy
	OrchardActionsLimit int
}

// NewRequest validates payments (rejecting duplicate recipients and memos
// on transparent-only recipients) and returns a Request with Policy
// defaulted to FullPrivacy if unset.
func NewRequest(source Source, payments []Payment, minConf int, policy privacy.Policy, orchardLimit int) (*Request, error) {
	if len(payments) == 0 {
		return nil, errors.New("spend: no payments")
	}
	seen := make(map[string]bool, len(payments))
	for _, p := range payments {
		if seen[p.Recipient] {
			return nil, fmt.Errorf("%w: duplicate recipient %s", zerr.ErrInvalidAddress, p.Recipient)
		}
		seen[p.Recipient] = true
		if len(p.Memo) > 0 && !p.IsShielded {
			return nil, fmt.Errorf("%w: memo set for transparent-only recipient %s", zerr.ErrInvalidMemo, p.Recipient)
		}
	}
	if orchardLimit <= 0 {
		orchardLimit = 50
	}
	return &Request{
		Source:              source,
		Payments:            payments,
		MinConf:             minConf,
		Policy:              policy,
		OrchardActionsLimit: orchardLimit,
	}, nil
}

// Step is one atomic piece of a proposal: its own selected coins, payments,
// and privacy-relevant shape.
type Step struct {
	ID       string
	Proposal *Proposal
	Shape    privacy.StepShape
	OrchardSpends, OrchardOutputs int
}

// PlanResult is the full output of planning a Request: every step. A step
// over the Orchard-actions limit is not recorded here; Plan returns an
// error for it instead.
type PlanResult struct {
	Steps []Step
}

// CoinSource supplies spendable coins for a given source, filtered by the
// confirmation policy already applied by the caller (the sync engine's
// data store is the production implementation).
type CoinSource interface {
	SpendableCoins(ctx context.Context, source Source, minConf int) ([]Coin, error)
}

// Plan selects inputs for req's payments (summed into a single step; one
// round trip of greedy selection covers the whole request), enforces the
// privacy policy, and checks the Orchard-actions limit.
func Plan(ctx context.Context, coins CoinSource, feeRate FeeRate, req *Request) (*PlanResult, error) {
	candidates, err := coins.SpendableCoins(ctx, req.Source, req.MinConf)
	if err != nil {
		return nil, err
	}

	var total int64
	for _, p := range req.Payments {
		total += p.Value
	}

	proposal, err := SelectWithChange(feeRate, total, candidates)
	if err != nil {
		return nil, err
	}

	shape := classifyStep(proposal, req.Payments)
	orchardSpends, orchardOutputs := countOrchardActions(proposal, req.Payments)

	step := Step{
		ID:             uuid.NewString(),
		Proposal:       proposal,
		Shape:          shape,
		OrchardSpends:  orchardSpends,
		OrchardOutputs: orchardOutputs,
	}

	if err := privacy.Check(req.Policy, []privacy.StepShape{shape}); err != nil {
		return nil, err
	}

	actions := orchardSpends
	if orchardOutputs > actions {
		actions = orchardOutputs
	}
	if actions > req.OrchardActionsLimit {
		dim := "outputs"
		count := orchardOutputs
		if orchardSpends > orchardOutputs {
			dim, count = "inputs", orchardSpends
		}
		return nil, &zerr.ExcessOrchardActions{Dimension: dim, Count: count, Limit: req.OrchardActionsLimit}
	}

	return &PlanResult{Steps: []Step{step}}, nil
}

func classifyStep(p *Proposal, payments []Payment) privacy.StepShape {
	var shape privacy.StepShape
	addrs := map[string]bool{}
	var hasSaplingInput, hasOrchardInput bool
	for _, c := range p.Inputs {
		switch c.Kind {
		case InputTransparent:
			shape.HasTransparentInput = true
			addrs[c.Address] = true
		case InputSapling:
			hasSaplingInput = true
		case InputOrchard:
			hasOrchardInput = true
		}
	}
	shape.DistinctTransparentInputAddrs = len(addrs)

	var hasSaplingRecipient, hasOrchardRecipient, hasShieldedRecipient bool
	for _, pay := range payments {
		if pay.IsTransparent {
			shape.HasTransparentRecipient = true
		}
		if pay.IsShielded {
			hasShieldedRecipient = true
			switch pay.Pool {
			case PoolSapling:
				hasSaplingRecipient = true
			case PoolOrchard:
				hasOrchardRecipient = true
			}
		}
	}

	// Change always lands in Orchard (SelectWithChange targets Orchard
	// change exclusively); it is only transparent when the step has no
	// shielded pool presence to receive it at all.
	if p.ChangeAmount > 0 && !hasSaplingInput && !hasOrchardInput && !hasShieldedRecipient {
		shape.HasTransparentChange = true
	}

	shape.CrossPoolTransfer = (hasSaplingInput && hasOrchardRecipient) || (hasOrchardInput && hasSaplingRecipient)

	return shape
}

func countOrchardActions(p *Proposal, payments []Payment) (spends, outputs int) {
	for _, c := range p.Inputs {
		if c.Kind == InputOrchard {
			spends++
		}
	}
	for _, pay := range payments {
		if pay.IsShielded {
			outputs++
		}
	}
	if p.ChangeAmount > 0 {
		outputs++
	}
	return spends, outputs
}
