// Package spend implements input selection, change strategy, the
// Orchard-actions limit, privacy-policy enforcement, and the PCZT
// lifecycle used to turn a payment request into either a signed
// transaction or a partially-created transaction artifact.
package spend

import (
	"github.com/zallet-core/zallet/internal/zerr"
)

// InputKind classifies a selectable coin by pool, since transparent,
// Sapling and Orchard inputs carry different size/fee weight and different
// privacy-policy triggers.
type InputKind int

const (
	InputTransparent InputKind = iota
	InputSapling
	InputOrchard
)

// Coin is a single spendable unit considered by selection: a transparent
// UTXO or a shielded note, generalized across pools so one selector
// serves all three.
type Coin struct {
	Kind    InputKind
	Value   int64
	Address string // owning address, used to detect multi-address linking
}

// ErrInsufficientFunds names both what was needed and what was actually
// available so the caller can render a precise message.
type ErrInsufficientFunds struct {
	Needed, Available int64
}

func (e *ErrInsufficientFunds) Error() string {
	return "insufficient funds"
}

func (e *ErrInsufficientFunds) Unwrap() error { return zerr.ErrInsufficientFunds }

// selectInputs greedily accumulates coins (in the order given by the
// caller's confirmation-policy-filtered candidate list) until their total
// meets or exceeds amt.
func selectInputs(amt int64, coins []Coin) (int64, []Coin, error) {
	var total int64
	for i, c := range coins {
		total += c.Value
		if total >= amt {
			return total, coins[:i+1], nil
		}
	}
	return 0, nil, &ErrInsufficientFunds{Needed: amt, Available: total}
}

// ChangeStrategy describes how change is distributed. No selector in this
// package reads it: SelectWithChange always plans a single Orchard change
// output, and change is never split across several outputs.
type ChangeStrategy struct {
	// MaxChangeOutputs is a cap on change outputs; SelectWithChange does
	// not consult it.
	MaxChangeOutputs int
}

// Proposal is the result of one round of input selection: the coins spent,
// the payment total, the fee paid, and the change amount(s) to create.
type Proposal struct {
	Inputs       []Coin
	ChangeAmount int64
	Fee          int64
}

// SelectWithChange runs an iterative fee-aware selection loop: select
// inputs for amt, estimate the fee given what was selected, and reselect
// with a larger target if the overshoot doesn't cover the fee.
func SelectWithChange(feeRate FeeRate, amt int64, coins []Coin) (*Proposal, error) {
	amtNeeded := amt
	for {
		total, selected, err := selectInputs(amtNeeded, coins)
		if err != nil {
			return nil, err
		}

		var est sizeEstimator
		for _, c := range selected {
			switch c.Kind {
			case InputTransparent:
				est.AddP2PKHInput()
			case InputSapling:
				est.AddSaplingSpend()
			case InputOrchard:
				est.AddOrchardAction(1)
			}
		}
		// One Orchard change output and one Orchard output to the payee; the
		// estimate counts the payee as Orchard even when the payment is
		// transparent (pool assignment happens in the caller, planner.go).
		est.AddOrchardAction(2)

		overshoot := total - amt
		requiredFee := feeRate.FeeForSize(est.Size())
		if overshoot < requiredFee {
			amtNeeded = amt + requiredFee
			continue
		}

		return &Proposal{
			Inputs:       selected,
			ChangeAmount: overshoot - requiredFee,
			Fee:          requiredFee,
		}, nil
	}
}

// SelectSubtractFees spends up to amt total after fees are subtracted from
// the payment itself rather than increasing the amount selected, falling
// back to a change output only if doing so keeps both outputs above
// dustLimit.
func SelectSubtractFees(feeRate FeeRate, amt, dustLimit int64, coins []Coin) (*Proposal, int64, error) {
	total, selected, err := selectInputs(amt, coins)
	if err != nil {
		return nil, 0, err
	}

	var est sizeEstimator
	for _, c := range selected {
		switch c.Kind {
		case InputTransparent:
			est.AddP2PKHInput()
		case InputSapling:
			est.AddSaplingSpend()
		case InputOrchard:
			est.AddOrchardAction(1)
		}
	}
	est.AddOrchardAction(1) // payment output

	requiredFee := feeRate.FeeForSize(est.Size())
	outputAmt := total - requiredFee
	changeAmt := int64(0)

	if outputAmt <= dustLimit {
		return nil, 0, &ErrInsufficientFunds{Needed: dustLimit + requiredFee, Available: total}
	}

	est.AddOrchardAction(1) // change output
	changeFee := feeRate.FeeForSize(est.Size())
	newChange := total - amt
	newOutput := amt - changeFee

	if newChange > dustLimit && newOutput > dustLimit {
		outputAmt = newOutput
		changeAmt = newChange
		requiredFee = changeFee
	}

	return &Proposal{Inputs: selected, ChangeAmount: changeAmt, Fee: requiredFee}, outputAmt, nil
}
