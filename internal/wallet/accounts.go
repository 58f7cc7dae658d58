package wallet

import (
	"context"
	"crypto/sha256"
	"encoding/binary"
	"errors"

	"github.com/zallet-core/zallet/internal/address"
	"github.com/zallet-core/zallet/internal/config"
	"github.com/zallet-core/zallet/internal/walletdb"
)

// NewDerivedAccount implements z_getnewaccount: it requires the keystore to
// be unlocked and materializes an account under seed fingerprint fp at the
// next ZIP-32 index for that fingerprint. fp is used as given: no seed is
// decrypted or looked up, and an all-zero fp is not resolved to an
// installed seed. Accounts are never created implicitly by scanning.
func (w *Wallet) NewDerivedAccount(ctx context.Context, name string, fp [32]byte, birthdayHeight int64) (walletdb.Account, error) {
	if w.Keystore.IsLocked() {
		return walletdb.Account{}, errors.New("wallet: keystore is locked")
	}
	return w.DB.CreateAccount(ctx, walletdb.Account{
		Name:            name,
		Source:          walletdb.SourceDerived,
		SeedFingerprint: fp[:],
		BirthdayHeight:  birthdayHeight,
	})
}

// ImportViewOnlyAccount implements the "import viewing key" path: an
// imported account with no spend authority.
func (w *Wallet) ImportViewOnlyAccount(ctx context.Context, name string, birthdayHeight int64) (walletdb.Account, error) {
	return w.DB.CreateAccount(ctx, walletdb.Account{
		Name:           name,
		Source:         walletdb.SourceImportedViewOnly,
		BirthdayHeight: birthdayHeight,
	})
}

// ImportSpendingAccount implements the "import HD / standalone spending
// key" path.
func (w *Wallet) ImportSpendingAccount(ctx context.Context, name, keySource string, birthdayHeight int64) (walletdb.Account, error) {
	return w.DB.CreateAccount(ctx, walletdb.Account{
		Name:           name,
		Source:         walletdb.SourceImportedSpend,
		KeySource:      keySource,
		BirthdayHeight: birthdayHeight,
	})
}

// DerivedAddress is the response shape for z_getaddressforaccount: the
// chosen diversifier index, the receiver types actually included, and the
// encoded unified address.
type DerivedAddress struct {
	AccountID        string
	DiversifierIndex [16]byte
	ReceiverTypes    []string
	Address          string
}

// NewAddressForAccount derives a unified address for accountID at
// diversifierIndex (or the next unused index if nil), including each
// requested receiver type. Requesting P2SH, which this wallet never
// generates, is an error; unrecognized type names are skipped. If
// receiverTypes is empty, every available type is included.
func (w *Wallet) NewAddressForAccount(ctx context.Context, accountID string, receiverTypes []string, diversifierIndex *[16]byte) (DerivedAddress, error) {
	acct, err := w.DB.GetAccount(ctx, accountID)
	if err != nil {
		return DerivedAddress{}, err
	}

	var diversifier [16]byte
	if diversifierIndex != nil {
		diversifier = *diversifierIndex
	} else {
		existing, err := w.DB.ListAddresses(ctx, accountID)
		if err != nil {
			return DerivedAddress{}, err
		}
		binary.LittleEndian.PutUint64(diversifier[:8], uint64(len(existing)))
	}

	if len(receiverTypes) == 0 {
		receiverTypes = []string{"orchard", "sapling", "p2pkh"}
	}

	var receivers []address.Receiver
	var names []string
	for _, rt := range receiverTypes {
		switch rt {
		case "p2sh":
			return DerivedAddress{}, errors.New("wallet: p2sh receivers are never generated")
		case "orchard":
			receivers = append(receivers, address.Receiver{Type: address.ReceiverOrchard, Data: deriveReceiverBytes(acct.ID, diversifier, "orchard", 43)})
			names = append(names, "orchard")
		case "sapling":
			receivers = append(receivers, address.Receiver{Type: address.ReceiverSapling, Data: deriveReceiverBytes(acct.ID, diversifier, "sapling", 43)})
			names = append(names, "sapling")
		case "p2pkh":
			receivers = append(receivers, address.Receiver{Type: address.ReceiverP2PKH, Data: deriveReceiverBytes(acct.ID, diversifier, "p2pkh", 20)})
			names = append(names, "p2pkh")
		}
	}

	net := netFromConfig(w.Config.Network)
	encoded, err := address.EncodeUnified(net, receivers)
	if err != nil {
		return DerivedAddress{}, err
	}

	if _, err := w.DB.CreateAddress(ctx, walletdb.Address{
		AccountID:        acct.ID,
		DiversifierIndex: diversifier[:],
		Type:             walletdb.AddressUnified,
		Encoding:         encoded,
		Receivers:        joinNames(names),
	}); err != nil {
		return DerivedAddress{}, err
	}

	return DerivedAddress{
		AccountID:        acct.ID,
		DiversifierIndex: diversifier,
		ReceiverTypes:    names,
		Address:          encoded,
	}, nil
}

// deriveReceiverBytes stands in for this wallet's absent ZIP-32/Sapling/
// Orchard key-derivation library (not present anywhere in the retrieval
// pack - see DESIGN.md): it produces a receiver-sized, diversifier- and
// account-dependent byte string via a domain-separated hash, so addresses
// remain stable and distinct per (account, diversifier, receiver type)
// without claiming to reproduce the real derivation.
func deriveReceiverBytes(accountID string, diversifier [16]byte, kind string, n int) []byte {
	h := sha256.New()
	h.Write([]byte("zallet-receiver-derivation:"))
	h.Write([]byte(accountID))
	h.Write(diversifier[:])
	h.Write([]byte(kind))
	sum := h.Sum(nil)
	out := make([]byte, n)
	for i := range out {
		out[i] = sum[i%len(sum)]
	}
	return out
}

func netFromConfig(n config.Network) address.Network {
	switch n {
	case config.NetworkTest:
		return address.TestNet
	case config.NetworkRegtest:
		return address.RegTest
	default:
		return address.MainNet
	}
}

func joinNames(names []string) string {
	out := ""
	for i, n := range names {
		if i > 0 {
			out += ","
		}
		out += n
	}
	return out
}
