package spend

import (
	"errors"
	"testing"

	"github.com/zallet-core/zallet/internal/privacy"
	"github.com/zallet-core/zallet/internal/zerr"
)

func TestPlanSweepSubtractsFee(t *testing.T) {
	coins := []Coin{
		{Kind: InputTransparent, Value: 500_000, Address: "t1abc"},
		{Kind: InputTransparent, Value: 300_000, Address: "t1abc"},
	}
	payment := Payment{Recipient: "u1dest", IsShielded: true, Pool: PoolOrchard}

	plan, received, err := PlanSweep(FeeRate(1000), payment, coins, privacy.AllowRevealedSenders, 50)
	if err != nil {
		t.Fatalf("PlanSweep: %v", err)
	}
	if len(plan.Steps) != 1 {
		t.Fatalf("expected one step, got %d", len(plan.Steps))
	}
	if received <= 0 || received >= 800_000 {
		t.Fatalf("expected fee-reduced value below the input total, got %d", received)
	}
	if len(plan.Steps[0].Proposal.Inputs) != 2 {
		t.Fatalf("expected both coins swept, got %d inputs", len(plan.Steps[0].Proposal.Inputs))
	}
}

func TestPlanSweepRequiresShieldedRecipient(t *testing.T) {
	coins := []Coin{{Kind: InputTransparent, Value: 500_000, Address: "t1abc"}}
	_, _, err := PlanSweep(FeeRate(1000), Payment{Recipient: "t1dest", IsTransparent: true}, coins, privacy.NoPrivacy, 50)
	if !errors.Is(err, zerr.ErrInvalidAddress) {
		t.Fatalf("expected invalid-address error, got %v", err)
	}
}

func TestPlanSweepEnforcesPrivacyPolicy(t *testing.T) {
	coins := []Coin{{Kind: InputTransparent, Value: 500_000, Address: "t1abc"}}
	payment := Payment{Recipient: "u1dest", IsShielded: true, Pool: PoolOrchard}
	_, _, err := PlanSweep(FeeRate(1000), payment, coins, privacy.FullPrivacy, 50)
	if !errors.Is(err, zerr.ErrPrivacyPolicyViolation) {
		t.Fatalf("expected privacy policy violation for transparent input under FullPrivacy, got %v", err)
	}
}

func TestPlanSweepLinksAddresses(t *testing.T) {
	coins := []Coin{
		{Kind: InputTransparent, Value: 500_000, Address: "t1abc"},
		{Kind: InputTransparent, Value: 300_000, Address: "t1def"},
	}
	payment := Payment{Recipient: "u1dest", IsShielded: true, Pool: PoolOrchard}

	// Two distinct transparent input addresses from the same wallet need
	// AllowLinkingAccountAddresses; AllowRevealedSenders alone is too strict.
	if _, _, err := PlanSweep(FeeRate(1000), payment, coins, privacy.AllowRevealedSenders, 50); !errors.Is(err, zerr.ErrPrivacyPolicyViolation) {
		t.Fatalf("expected linking violation, got %v", err)
	}
	if _, _, err := PlanSweep(FeeRate(1000), payment, coins, privacy.AllowLinkingAccountAddresses, 50); err != nil {
		t.Fatalf("PlanSweep under AllowLinkingAccountAddresses: %v", err)
	}
}

func TestPlanSweepNothingToSweep(t *testing.T) {
	payment := Payment{Recipient: "u1dest", IsShielded: true, Pool: PoolOrchard}
	_, _, err := PlanSweep(FeeRate(1000), payment, nil, privacy.NoPrivacy, 50)
	if !errors.Is(err, zerr.ErrInsufficientFunds) {
		t.Fatalf("expected insufficient funds, got %v", err)
	}
}
