package spend

import (
	"context"
	"testing"

	"github.com/zallet-core/zallet/internal/privacy"
)

type fakeCoins struct{ coins []Coin }

func (f fakeCoins) SpendableCoins(ctx context.Context, source Source, minConf int) ([]Coin, error) {
	return f.coins, nil
}

func TestSelectWithChange(t *testing.T) {
	coins := []Coin{
		{Kind: InputOrchard, Value: 100000},
		{Kind: InputOrchard, Value: 50000},
	}
	p, err := SelectWithChange(FeeRate(1000), 120000, coins)
	if err != nil {
		t.Fatalf("SelectWithChange: %v", err)
	}
	if p.ChangeAmount <= 0 {
		t.Fatalf("expected positive change, got %d", p.ChangeAmount)
	}
}

func TestSelectWithChangeInsufficientFunds(t *testing.T) {
	coins := []Coin{{Kind: InputOrchard, Value: 100}}
	_, err := SelectWithChange(FeeRate(1000), 100000, coins)
	if err == nil {
		t.Fatalf("expected insufficient funds error")
	}
}

func TestPlanEnforcesPrivacyPolicy(t *testing.T) {
	coins := fakeCoins{coins: []Coin{{Kind: InputTransparent, Value: 200000, Address: "t1abc"}}}
	req, err := NewRequest(Source{AccountID: "a"}, []Payment{{Recipient: "u1xyz", Value: 100000, IsShielded: true}}, 1, privacy.FullPrivacy, 50)
	if err != nil {
		t.Fatalf("NewRequest: %v", err)
	}
	_, err = Plan(context.Background(), coins, FeeRate(1000), req)
	if err == nil {
		t.Fatalf("expected a privacy policy violation for transparent input under FullPrivacy")
	}
}

func TestPlanOrchardActionsLimit(t *testing.T) {
	coins := fakeCoins{coins: []Coin{{Kind: InputOrchard, Value: 1_000_000}}}
	req, err := NewRequest(Source{AccountID: "a"}, []Payment{{Recipient: "u1xyz", Value: 500000, IsShielded: true}}, 1, privacy.FullPrivacy, 1)
	if err != nil {
		t.Fatalf("NewRequest: %v", err)
	}
	_, err = Plan(context.Background(), coins, FeeRate(1000), req)
	if err == nil {
		t.Fatalf("expected orchard actions limit violation")
	}
}

func TestPCZTRoundTrip(t *testing.T) {
	p := &PCZT{Role: RoleConstructor, Body: []byte("skeleton")}
	if err := p.AttachGlobalMeta(GlobalMeta{AccountIndex: 7, Network: NetworkTest},
		[]TransparentInputMeta{{Scope: ScopeExternal, AddressIndex: 3}}, 1); err != nil {
		t.Fatalf("AttachGlobalMeta: %v", err)
	}
	fields := p.EncodeProprietary()
	if fields["zallet.v1.account_index"] == nil {
		t.Fatalf("expected account_index field")
	}

	finalized, err := FinalizeIO(p)
	if err != nil {
		t.Fatalf("FinalizeIO: %v", err)
	}
	finalized.Role = RoleSigner
	finalized.Body = append(finalized.Body, []byte("-signed")...)

	out, err := Extract(finalized, false)
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if string(out) != "skeleton-signed" {
		t.Fatalf("got %q", out)
	}
}

func TestPCZTTransparentInputMismatch(t *testing.T) {
	p := &PCZT{Role: RoleConstructor}
	err := p.AttachGlobalMeta(GlobalMeta{}, nil, 1)
	if err != ErrTransparentInputCountMismatch {
		t.Fatalf("expected mismatch error, got %v", err)
	}
}
