package privacy

import (
	"errors"
	"testing"

	"github.com/zallet-core/zallet/internal/zerr"
)

func TestPermitsLattice(t *testing.T) {
	cases := []struct {
		have, need Policy
		want       bool
	}{
		{FullPrivacy, FullPrivacy, true},
		{FullPrivacy, NoPrivacy, false},
		{NoPrivacy, FullPrivacy, true},
		{AllowRevealedSenders, AllowRevealedRecipients, false},
		{AllowFullyTransparent, AllowRevealedRecipients, true},
		// Linking permits no recipient disclosure: it satisfies a
		// senders-only requirement but never a recipient-revealing one.
		{AllowLinkingAccountAddresses, AllowRevealedSenders, true},
		{AllowLinkingAccountAddresses, AllowRevealedRecipients, false},
		{AllowLinkingAccountAddresses, AllowFullyTransparent, false},
		{NoPrivacy, AllowRevealedRecipients, true},
		{NoPrivacy, AllowLinkingAccountAddresses, true},
	}
	for _, c := range cases {
		if got := c.have.Permits(c.need); got != c.want {
			t.Errorf("%s.Permits(%s) = %v, want %v", c.have, c.need, got, c.want)
		}
	}
}

func TestMeet(t *testing.T) {
	cases := []struct {
		a, b, want Policy
	}{
		{FullPrivacy, AllowRevealedSenders, AllowRevealedSenders},
		{AllowRevealedAmounts, AllowRevealedRecipients, AllowRevealedRecipients},
		{AllowRevealedRecipients, AllowRevealedSenders, AllowFullyTransparent},
		{AllowRevealedRecipients, AllowLinkingAccountAddresses, NoPrivacy},
		{AllowFullyTransparent, AllowLinkingAccountAddresses, NoPrivacy},
		{AllowRevealedSenders, AllowLinkingAccountAddresses, AllowLinkingAccountAddresses},
		{AllowFullyTransparent, NoPrivacy, NoPrivacy},
	}
	for _, c := range cases {
		if got := Meet(c.a, c.b); got != c.want {
			t.Errorf("Meet(%s, %s) = %s, want %s", c.a, c.b, got, c.want)
		}
		if got := Meet(c.b, c.a); got != c.want {
			t.Errorf("Meet(%s, %s) = %s, want %s", c.b, c.a, got, c.want)
		}
	}
}

func TestClassifyShieldedOnly(t *testing.T) {
	need := MinimumRequired(StepShape{})
	if need != FullPrivacy {
		t.Fatalf("shielded-only step should need FullPrivacy, got %s", need)
	}
}

func TestClassifyFullyTransparentAndLinking(t *testing.T) {
	need := MinimumRequired(StepShape{
		HasTransparentInput:            true,
		DistinctTransparentInputAddrs:  2,
		HasTransparentRecipient:        true,
	})
	if need != NoPrivacy {
		t.Fatalf("expected NoPrivacy, got %s", need)
	}
}

func TestCheckReportsAxis(t *testing.T) {
	err := Check(FullPrivacy, []StepShape{{CrossPoolTransfer: true}})
	if err == nil {
		t.Fatalf("expected a privacy violation")
	}
	var pv *zerr.PrivacyViolation
	if !errors.As(err, &pv) {
		t.Fatalf("expected *zerr.PrivacyViolation, got %T", err)
	}
	if pv.Axis != "revealed-amounts" {
		t.Fatalf("axis = %q, want revealed-amounts", pv.Axis)
	}
}
