package spend

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/zallet-core/zallet/internal/privacy"
	"github.com/zallet-core/zallet/internal/zerr"
)

// sweepDustLimit is the smallest output value a sweep will create; a sweep
// whose fee-reduced value falls at or below it fails rather than emit an
// uneconomical output.
const sweepDustLimit = 5000

// PlanSweep plans spending every candidate coin to a single shielded
// recipient, subtracting the fee from the swept value instead of widening
// selection (a sweep has nothing further to select from). It returns the
// plan and the fee-reduced value the recipient actually receives. The
// payment's Value field is ignored; a sweep's value is defined by its
// inputs.
func PlanSweep(feeRate FeeRate, payment Payment, candidates []Coin, policy privacy.Policy, orchardLimit int) (*PlanResult, int64, error) {
	if !payment.IsShielded {
		return nil, 0, fmt.Errorf("%w: sweep recipient must be shielded", zerr.ErrInvalidAddress)
	}
	if len(candidates) == 0 {
		return nil, 0, &ErrInsufficientFunds{Needed: sweepDustLimit, Available: 0}
	}

	var total int64
	for _, c := range candidates {
		total += c.Value
	}

	proposal, outputAmt, err := SelectSubtractFees(feeRate, total, sweepDustLimit, candidates)
	if err != nil {
		return nil, 0, err
	}

	payments := []Payment{payment}
	shape := classifyStep(proposal, payments)
	orchardSpends, orchardOutputs := countOrchardActions(proposal, payments)

	if err := privacy.Check(policy, []privacy.StepShape{shape}); err != nil {
		return nil, 0, err
	}

	if orchardLimit <= 0 {
		orchardLimit = 50
	}
	actions := orchardSpends
	if orchardOutputs > actions {
		actions = orchardOutputs
	}
	if actions > orchardLimit {
		dim := "outputs"
		count := orchardOutputs
		if orchardSpends > orchardOutputs {
			dim, count = "inputs", orchardSpends
		}
		return nil, 0, &zerr.ExcessOrchardActions{Dimension: dim, Count: count, Limit: orchardLimit}
	}

	step := Step{
		ID:             uuid.NewString(),
		Proposal:       proposal,
		Shape:          shape,
		OrchardSpends:  orchardSpends,
		OrchardOutputs: orchardOutputs,
	}
	return &PlanResult{Steps: []Step{step}}, outputAmt, nil
}
