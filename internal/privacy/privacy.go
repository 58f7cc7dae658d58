// Package privacy implements the 7-node privacy-policy lattice governing
// what a spend proposal is allowed to reveal on-chain, and the trigger
// classification that maps a proposal's pool usage to the minimum policy
// it requires.
package privacy

import "github.com/zallet-core/zallet/internal/zerr"

// Policy is a node in the privacy lattice, ordered strictest to most
// permissive. Zero value is FullPrivacy.
type Policy int

const (
	FullPrivacy Policy = iota
	AllowRevealedAmounts
	AllowRevealedRecipients
	AllowRevealedSenders
	AllowFullyTransparent
	AllowLinkingAccountAddresses
	NoPrivacy
)

func (p Policy) String() string {
	switch p {
	case FullPrivacy:
		return "FullPrivacy"
	case AllowRevealedAmounts:
		return "AllowRevealedAmounts"
	case AllowRevealedRecipients:
		return "AllowRevealedRecipients"
	case AllowRevealedSenders:
		return "AllowRevealedSenders"
	case AllowFullyTransparent:
		return "AllowFullyTransparent"
	case AllowLinkingAccountAddresses:
		return "AllowLinkingAccountAddresses"
	case NoPrivacy:
		return "NoPrivacy"
	default:
		return "Unknown"
	}
}

// descendants maps each node to the set of nodes it is compatible with:
// itself and everything more permissive along the lattice edges.
// AllowFullyTransparent is the meet of AllowRevealedRecipients and
// AllowRevealedSenders, so it is reachable from either parent.
// AllowLinkingAccountAddresses descends only from AllowRevealedSenders: it
// permits linking sender addresses but still forbids revealing recipients,
// so a recipient-revealing requirement is NOT satisfied by it; the two
// branches only rejoin at NoPrivacy.
var descendants = map[Policy]map[Policy]bool{
	FullPrivacy: all(FullPrivacy, AllowRevealedAmounts, AllowRevealedRecipients,
		AllowRevealedSenders, AllowFullyTransparent, AllowLinkingAccountAddresses, NoPrivacy),
	AllowRevealedAmounts: all(AllowRevealedAmounts, AllowRevealedRecipients,
		AllowRevealedSenders, AllowFullyTransparent, AllowLinkingAccountAddresses, NoPrivacy),
	AllowRevealedRecipients: all(AllowRevealedRecipients, AllowFullyTransparent, NoPrivacy),
	AllowRevealedSenders: all(AllowRevealedSenders, AllowFullyTransparent,
		AllowLinkingAccountAddresses, NoPrivacy),
	AllowFullyTransparent:        all(AllowFullyTransparent, NoPrivacy),
	AllowLinkingAccountAddresses: all(AllowLinkingAccountAddresses, NoPrivacy),
	NoPrivacy:                    all(NoPrivacy),
}

func all(ps ...Policy) map[Policy]bool {
	m := make(map[Policy]bool, len(ps))
	for _, p := range ps {
		m[p] = true
	}
	return m
}

// Permits reports whether policy p allows a proposal whose minimum
// requirement is need: p must be need itself or one of the policies
// reachable by relaxing need further down the lattice.
func (p Policy) Permits(need Policy) bool {
	return descendants[need][p]
}

// Meet returns the strictest policy that permits everything both a and b
// permit. Comparable pairs collapse to the more permissive of the two.
// The incomparable pairs collapse further: RevealedRecipients with
// RevealedSenders is FullyTransparent, and LinkingAccountAddresses with
// anything recipient-revealing (RevealedRecipients, FullyTransparent) is
// NoPrivacy, since linking permits no recipient disclosure at all.
func Meet(a, b Policy) Policy {
	if b < a {
		a, b = b, a
	}
	switch {
	case a == AllowRevealedRecipients && b == AllowRevealedSenders:
		return AllowFullyTransparent
	case b == AllowLinkingAccountAddresses &&
		(a == AllowRevealedRecipients || a == AllowFullyTransparent):
		return NoPrivacy
	default:
		return b
	}
}

// Trigger describes one disclosure axis a proposal step can hit.
type Trigger int

const (
	TriggerNone Trigger = iota
	TriggerRevealedAmounts
	TriggerRevealedRecipients
	TriggerRevealedSenders
	TriggerFullyTransparent
	TriggerLinkingAccountAddresses
	TriggerFullyTransparentAndLinking
)

func (t Trigger) minimumPolicy() Policy {
	switch t {
	case TriggerRevealedAmounts:
		return AllowRevealedAmounts
	case TriggerRevealedRecipients:
		return AllowRevealedRecipients
	case TriggerRevealedSenders:
		return AllowRevealedSenders
	case TriggerFullyTransparent:
		return AllowFullyTransparent
	case TriggerLinkingAccountAddresses:
		return AllowLinkingAccountAddresses
	case TriggerFullyTransparentAndLinking:
		return NoPrivacy
	default:
		return FullPrivacy
	}
}

// StepShape summarizes one proposal step's pool usage for classification.
type StepShape struct {
	HasTransparentInput       bool
	DistinctTransparentInputAddrs int
	HasTransparentRecipient    bool
	HasTransparentChange       bool
	CrossPoolTransfer          bool // Orchard<->Sapling in the same step
}

// Classify returns every disclosure trigger a step hits.
func Classify(s StepShape) []Trigger {
	var triggers []Trigger

	transparentIn := s.HasTransparentInput
	transparentOut := s.HasTransparentRecipient || s.HasTransparentChange
	linking := s.DistinctTransparentInputAddrs > 1

	switch {
	case transparentIn && transparentOut && linking:
		triggers = append(triggers, TriggerFullyTransparentAndLinking)
	case transparentIn && transparentOut:
		triggers = append(triggers, TriggerFullyTransparent)
	case linking:
		triggers = append(triggers, TriggerLinkingAccountAddresses)
	case transparentIn:
		triggers = append(triggers, TriggerRevealedSenders)
	case transparentOut:
		triggers = append(triggers, TriggerRevealedRecipients)
	}

	if s.CrossPoolTransfer {
		triggers = append(triggers, TriggerRevealedAmounts)
	}

	if len(triggers) == 0 {
		triggers = append(triggers, TriggerNone)
	}
	return triggers
}

// MinimumRequired folds a step's triggers down to the single strictest
// (most permissive-requiring) policy it needs.
func MinimumRequired(s StepShape) Policy {
	min := FullPrivacy
	for _, t := range Classify(s) {
		if p := t.minimumPolicy(); p > min {
			min = p
		}
	}
	return min
}

// Check validates that policy permits every step in steps, returning the
// specific axis violated for the first failing step.
func Check(policy Policy, steps []StepShape) error {
	for _, s := range steps {
		need := MinimumRequired(s)
		if !policy.Permits(need) {
			return &zerr.PrivacyViolation{
				Axis:        axisName(s, need),
				MinRequired: need.String(),
			}
		}
	}
	return nil
}

func axisName(s StepShape, need Policy) string {
	for _, t := range Classify(s) {
		if t.minimumPolicy() == need {
			switch t {
			case TriggerRevealedAmounts:
				return "revealed-amounts"
			case TriggerRevealedRecipients:
				return "revealed-recipients"
			case TriggerRevealedSenders:
				return "revealed-senders"
			case TriggerFullyTransparent:
				return "fully-transparent"
			case TriggerLinkingAccountAddresses:
				return "linking-account-addresses"
			case TriggerFullyTransparentAndLinking:
				return "fully-transparent-and-linking"
			}
		}
	}
	return "unknown"
}
