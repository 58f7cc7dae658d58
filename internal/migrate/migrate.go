// Package migrate defines the contract a zcashd wallet importer must honor
// against the core's public keystore and data-store APIs. The BDB
// wallet-dump reader itself lives outside the core; this package is the
// seam it plugs into, and is where the importer's three obligations are
// enforced: well-formed derivation records, preserved seed fingerprints,
// and rejection of material from a mismatched network.
package migrate

import (
	"context"
	"fmt"

	"github.com/zallet-core/zallet/internal/config"
	"github.com/zallet-core/zallet/internal/keystore"
	"github.com/zallet-core/zallet/internal/walletdb"
)

// MnemonicRecord is a BIP-39 phrase recovered from the source wallet,
// together with the fingerprint the source claims for its derived seed.
type MnemonicRecord struct {
	Phrase  string
	ClaimedFingerprint keystore.SeedFingerprint
}

// LegacySeedRecord is a raw pre-mnemonic HD seed.
type LegacySeedRecord struct {
	Seed []byte
}

// DerivedAccountRecord is one account the source wallet derived from a
// seed; SeedFingerprint and AccountIndex are required, making the
// derivation record well-formed by construction at this boundary.
type DerivedAccountRecord struct {
	Name            string
	SeedFingerprint keystore.SeedFingerprint
	AccountIndex    uint32
	BirthdayHeight  int64
}

// TransparentKeyRecord is a standalone transparent secret key plus its
// compressed public key.
type TransparentKeyRecord struct {
	CompressedPubKey []byte
	PrivKey          []byte
}

// SaplingKeyRecord is a standalone Sapling spending key plus its derived
// full viewing key bytes.
type SaplingKeyRecord struct {
	DFVK  []byte
	ExtSK []byte
}

// Source is what a wallet-dump reader must produce. Readers are expected
// to stream records in whatever order the dump yields them; Run imposes
// the ordering the core needs (seeds before the accounts derived from
// them).
type Source interface {
	// Network reports which Zcash network the dumped wallet belonged to.
	Network() config.Network

	Mnemonics() ([]MnemonicRecord, error)
	LegacySeeds() ([]LegacySeedRecord, error)
	DerivedAccounts() ([]DerivedAccountRecord, error)
	TransparentKeys() ([]TransparentKeyRecord, error)
	SaplingKeys() ([]SaplingKeyRecord, error)
}

// Target bundles the core handles an import writes through. Only public
// contracts are used; an importer gets no privileged path into either
// store.
type Target struct {
	Keystore *keystore.Store
	DB       *walletdb.Store
	Network  config.Network
}

// Run applies every record from src to target. The keystore derives each
// stored fingerprint from the plaintext material itself; Run additionally
// checks the source's claimed fingerprint against the derived one, so a
// corrupted dump cannot silently re-key an account's seed.
func Run(ctx context.Context, target Target, src Source) error {
	if src.Network() != target.Network {
		return fmt.Errorf("migrate: source wallet is for network %q, this wallet is %q",
			src.Network(), target.Network)
	}

	mnemonics, err := src.Mnemonics()
	if err != nil {
		return err
	}
	imported := map[keystore.SeedFingerprint]bool{}
	for _, m := range mnemonics {
		fp, err := target.Keystore.EncryptAndStoreMnemonic(ctx, m.Phrase)
		if err != nil {
			return fmt.Errorf("migrate: storing mnemonic: %w", err)
		}
		if fp != m.ClaimedFingerprint {
			return fmt.Errorf("migrate: seed fingerprint mismatch: dump claims %s, derived %s",
				m.ClaimedFingerprint, fp)
		}
		imported[fp] = true
	}

	legacySeeds, err := src.LegacySeeds()
	if err != nil {
		return err
	}
	for _, s := range legacySeeds {
		if _, err := target.Keystore.EncryptAndStoreLegacySeed(ctx, s.Seed); err != nil {
			return fmt.Errorf("migrate: storing legacy seed: %w", err)
		}
	}

	accounts, err := src.DerivedAccounts()
	if err != nil {
		return err
	}
	for _, a := range accounts {
		if !imported[a.SeedFingerprint] {
			return fmt.Errorf("migrate: account %q references seed %s not present in the dump",
				a.Name, a.SeedFingerprint)
		}
		idx := a.AccountIndex
		if _, err := target.DB.CreateAccount(ctx, walletdb.Account{
			Name:            a.Name,
			Source:          walletdb.SourceDerived,
			SeedFingerprint: a.SeedFingerprint[:],
			AccountIndex:    &idx,
			BirthdayHeight:  a.BirthdayHeight,
		}); err != nil {
			return fmt.Errorf("migrate: creating account %q: %w", a.Name, err)
		}
	}

	tkeys, err := src.TransparentKeys()
	if err != nil {
		return err
	}
	for _, k := range tkeys {
		if err := target.Keystore.EncryptAndStoreStandaloneTransparentKey(ctx, k.CompressedPubKey, k.PrivKey); err != nil {
			return fmt.Errorf("migrate: storing transparent key: %w", err)
		}
	}

	skeys, err := src.SaplingKeys()
	if err != nil {
		return err
	}
	for _, k := range skeys {
		if err := target.Keystore.EncryptAndStoreStandaloneSaplingKey(ctx, k.DFVK, k.ExtSK); err != nil {
			return fmt.Errorf("migrate: storing sapling key: %w", err)
		}
	}

	return nil
}
