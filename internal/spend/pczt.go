package spend

import (
	"bytes"
	"encoding/binary"
	"errors"
)

// Network identifies which Zcash network a PCZT's proprietary metadata was
// built against.
type Network byte

const (
	NetworkMain Network = iota
	NetworkTest
	NetworkRegtest
)

// TransparentInputScope classifies which HD scope a PCZT's transparent
// input key was derived under.
type TransparentInputScope byte

const (
	ScopeExternal TransparentInputScope = iota
	ScopeInternal
	ScopeEphemeral
)

// pcztNamespace is the proprietary-field key prefix; a v2 namespace would
// be introduced for any breaking change to this layout.
const pcztNamespace = "zallet.v1."

// GlobalMeta is the PCZT-wide proprietary metadata attached when funding
// from a derived account.
type GlobalMeta struct {
	SeedFingerprint [32]byte
	AccountIndex    uint32
	Network         Network
}

// TransparentInputMeta is attached per transparent input in the PCZT so a
// later signer can re-derive the correct key without wallet state.
type TransparentInputMeta struct {
	Scope        TransparentInputScope
	AddressIndex uint32
}

// Role marks which stage of the PCZT lifecycle a given artifact is in.
type Role int

const (
	RoleCreator Role = iota
	RoleConstructor
	RoleIOFinalizer
	RoleSigner
	RoleCombiner
	RoleSpendFinalizer
	RoleTxExtractor
)

// PCZT is a partially-created Zcash transaction artifact: a serialized
// transaction skeleton plus the proprietary metadata needed to complete it
// out-of-band.
type PCZT struct {
	Role        Role
	ExpiryHeight uint32
	Global      *GlobalMeta
	TransparentInputs []TransparentInputMeta
	Body        []byte // opaque builder/signer state (proof material, signatures, etc.)
}

// ErrTransparentInputCountMismatch is returned by AttachGlobalMeta when the
// number of transparent inputs in the PCZT disagrees with the number the
// proposal selected; this always indicates an internal error in planning.
var ErrTransparentInputCountMismatch = errors.New("spend: pczt transparent input count mismatch")

// AttachGlobalMeta records which derived account funded the PCZT, and
// per-input scope/address-index metadata for every transparent input,
// failing if the input counts disagree with proposalInputCount.
func (p *PCZT) AttachGlobalMeta(meta GlobalMeta, inputs []TransparentInputMeta, proposalInputCount int) error {
	if len(inputs) != proposalInputCount {
		return ErrTransparentInputCountMismatch
	}
	p.Global = &meta
	p.TransparentInputs = inputs
	return nil
}

// EncodeProprietary serializes the global and per-input metadata fields
// using the zallet.v1. namespace: global fields are seed_fingerprint (32
// bytes), account_index (LE4) and network (1 byte); per-input fields are
// scope (1 byte) and address_index (LE4).
func (p *PCZT) EncodeProprietary() map[string][]byte {
	out := map[string][]byte{}
	if p.Global != nil {
		out[pcztNamespace+"seed_fingerprint"] = p.Global.SeedFingerprint[:]
		out[pcztNamespace+"account_index"] = le32(p.Global.AccountIndex)
		out[pcztNamespace+"network"] = []byte{byte(p.Global.Network)}
	}
	for i, in := range p.TransparentInputs {
		key := func(field string) string {
			return pcztNamespace + "input." + itoa(i) + "." + field
		}
		out[key("scope")] = []byte{byte(in.Scope)}
		out[key("address_index")] = le32(in.AddressIndex)
	}
	return out
}

func le32(v uint32) []byte {
	b := make([]byte, 4)
	binary.LittleEndian.PutUint32(b, v)
	return b
}

func itoa(i int) string {
	if i == 0 {
		return "0"
	}
	var b []byte
	for i > 0 {
		b = append([]byte{byte('0' + i%10)}, b...)
		i /= 10
	}
	return string(b)
}

// Combine merges an ordered list of PCZTs describing the same logical
// transaction, per the combiner role: later entries' signatures/proofs are
// layered onto the first entry's skeleton.
func Combine(pczts []*PCZT) (*PCZT, error) {
	if len(pczts) == 0 {
		return nil, errors.New("spend: no pczts to combine")
	}
	base := *pczts[0]
	base.Role = RoleCombiner
	var body bytes.Buffer
	body.Write(pczts[0].Body)
	for _, p := range pczts[1:] {
		body.Write(p.Body)
	}
	base.Body = body.Bytes()
	return &base, nil
}

// FinalizeIO transitions a PCZT from builder-editable to signable.
func FinalizeIO(p *PCZT) (*PCZT, error) {
	out := *p
	out.Role = RoleIOFinalizer
	return &out, nil
}

// Extract produces the final serialized transaction bytes from a fully
// signed PCZT: a copy of its Body. verifyProofs has no effect; no proofs
// are verified whatever its value.
func Extract(p *PCZT, verifyProofs bool) ([]byte, error) {
	if p.Role != RoleSigner && p.Role != RoleSpendFinalizer {
		return nil, errors.New("spend: pczt is not ready for extraction")
	}
	return append([]byte{}, p.Body...), nil
}

// Decode inspects a PCZT's header fields and bundle sizes without
// requiring any wallet state.
type Decoded struct {
	Role              Role
	ExpiryHeight      uint32
	TransparentInputs int
	HasGlobalMeta     bool
}

func Decode(p *PCZT) Decoded {
	return Decoded{
		Role:              p.Role,
		ExpiryHeight:      p.ExpiryHeight,
		TransparentInputs: len(p.TransparentInputs),
		HasGlobalMeta:     p.Global != nil,
	}
}
