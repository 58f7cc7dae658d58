package keystore

import (
	"context"
	"database/sql"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"strings"

	"github.com/tyler-smith/go-bip39"
	"golang.org/x/crypto/blake2b"

	"github.com/zallet-core/zallet/internal/zerr"
)

// SeedFingerprint identifies a ZIP-32 seed without revealing it. Computed
// as a domain-separated BLAKE2b-256 hash of the seed bytes, the same
// construction zallet's seed fingerprinting follows.
type SeedFingerprint [32]byte

// String renders the fingerprint as lowercase hex, the form the RPC
// surface and CLI exchange it in.
func (fp SeedFingerprint) String() string {
	return hex.EncodeToString(fp[:])
}

func computeSeedFingerprint(seed []byte) SeedFingerprint {
	h, _ := blake2b.New256([]byte("ZcashIP32Sigs---")[:16])
	h.Write(seed)
	var fp SeedFingerprint
	copy(fp[:], h.Sum(nil))
	return fp
}

// EncryptAndStoreMnemonic derives the seed fingerprint for phrase, encrypts
// it to the current recipient set, and upserts it keyed by that
// fingerprint (a write is idempotent: re-storing the same mnemonic is a
// no-op on conflict).
func (s *Store) EncryptAndStoreMnemonic(ctx context.Context, phrase string) (SeedFingerprint, error) {
	if !bip39.IsMnemonicValid(phrase) {
		return SeedFingerprint{}, errors.New("keystore: invalid mnemonic")
	}
	recipients, err := s.Recipients(ctx)
	if err != nil {
		return SeedFingerprint{}, err
	}

	seed := bip39.NewSeed(phrase, "")
	fp := computeSeedFingerprint(seed)

	env, err := Encrypt(recipients, []byte(phrase))
	if err != nil {
		return SeedFingerprint{}, err
	}
	blob := serializeEnvelope(env)

	err = s.db.WithWrite(ctx, func(ctx context.Context, tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO ext_zallet_keystore_mnemonics (hd_seed_fingerprint, encrypted_mnemonic)
			VALUES (?, ?) ON CONFLICT (hd_seed_fingerprint) DO NOTHING`,
			fp[:], blob)
		return err
	})
	if err != nil {
		return SeedFingerprint{}, err
	}
	return fp, nil
}

// EncryptAndStoreLegacySeed is the pre-mnemonic analogue of
// EncryptAndStoreMnemonic, keyed by a legacy seed fingerprint over the raw
// HD seed bytes.
func (s *Store) EncryptAndStoreLegacySeed(ctx context.Context, seed []byte) (SeedFingerprint, error) {
	recipients, err := s.Recipients(ctx)
	if err != nil {
		return SeedFingerprint{}, err
	}
	fp := computeSeedFingerprint(seed)
	env, err := Encrypt(recipients, seed)
	if err != nil {
		return SeedFingerprint{}, err
	}
	blob := serializeEnvelope(env)
	err = s.db.WithWrite(ctx, func(ctx context.Context, tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO ext_zallet_keystore_legacy_seeds (legacy_seed_fingerprint, encrypted_seed)
			VALUES (?, ?) ON CONFLICT (legacy_seed_fingerprint) DO NOTHING`,
			fp[:], blob)
		return err
	})
	return fp, err
}

// EncryptAndStoreStandaloneSaplingKey stores extsk keyed by dfvkBytes, the
// serialized diversifiable full viewing key derived from it by the caller.
func (s *Store) EncryptAndStoreStandaloneSaplingKey(ctx context.Context, dfvkBytes, extsk []byte) error {
	recipients, err := s.Recipients(ctx)
	if err != nil {
		return err
	}
	env, err := Encrypt(recipients, extsk)
	if err != nil {
		return err
	}
	blob := serializeEnvelope(env)
	return s.db.WithWrite(ctx, func(ctx context.Context, tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO ext_zallet_keystore_standalone_sapling_keys (dfvk, encrypted_sapling_extsk)
			VALUES (?, ?) ON CONFLICT (dfvk) DO NOTHING`,
			dfvkBytes, blob)
		return err
	})
}

// EncryptAndStoreStandaloneTransparentKey stores privKey keyed by its
// compressed public key.
func (s *Store) EncryptAndStoreStandaloneTransparentKey(ctx context.Context, compressedPubKey, privKey []byte) error {
	recipients, err := s.Recipients(ctx)
	if err != nil {
		return err
	}
	env, err := Encrypt(recipients, privKey)
	if err != nil {
		return err
	}
	blob := serializeEnvelope(env)
	return s.db.WithWrite(ctx, func(ctx context.Context, tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO ext_zallet_keystore_standalone_transparent_keys (pubkey, encrypted_transparent_privkey)
			VALUES (?, ?) ON CONFLICT (pubkey) DO NOTHING`,
			compressedPubKey, blob)
		return err
	})
}

// DecryptMnemonic returns the plaintext BIP-39 phrase for fp.
func (s *Store) DecryptMnemonic(ctx context.Context, fp SeedFingerprint) (string, error) {
	identities, err := s.currentIdentities()
	if err != nil {
		return "", err
	}
	var blob []byte
	err = s.db.WithRead(ctx, func(ctx context.Context, db *sql.DB) error {
		return db.QueryRowContext(ctx,
			`SELECT encrypted_mnemonic FROM ext_zallet_keystore_mnemonics WHERE hd_seed_fingerprint = ?`,
			fp[:]).Scan(&blob)
	})
	if errors.Is(err, sql.ErrNoRows) {
		return "", zerr.ErrUnknownFingerprint
	}
	if err != nil {
		return "", err
	}
	env, err := deserializeEnvelope(blob)
	if err != nil {
		return "", err
	}
	pt, err := Decrypt(identities, env)
	if err != nil {
		return "", zerr.ErrCrypto
	}
	return string(pt), nil
}

// DecryptSeed derives the 64-byte BIP-39 seed for fp.
func (s *Store) DecryptSeed(ctx context.Context, fp SeedFingerprint) ([]byte, error) {
	phrase, err := s.DecryptMnemonic(ctx, fp)
	if err != nil {
		return nil, err
	}
	return bip39.NewSeed(phrase, ""), nil
}

// ExportMnemonic re-encrypts the decrypted phrase for fp to the current
// recipient set, optionally ASCII-armoring the result.
func (s *Store) ExportMnemonic(ctx context.Context, fp SeedFingerprint, armor bool) (string, error) {
	phrase, err := s.DecryptMnemonic(ctx, fp)
	if err != nil {
		return "", err
	}
	recipients, err := s.Recipients(ctx)
	if err != nil {
		return "", err
	}
	env, err := Encrypt(recipients, []byte(phrase))
	if err != nil {
		return "", err
	}
	blob := serializeEnvelope(env)
	if !armor {
		return string(blob), nil
	}
	var sb strings.Builder
	sb.WriteString("-----BEGIN AGE ENCRYPTED FILE-----\n")
	sb.WriteString(base64.StdEncoding.EncodeToString(blob))
	sb.WriteString("\n-----END AGE ENCRYPTED FILE-----\n")
	return sb.String(), nil
}

// ListStandaloneTransparentPubkeys returns every compressed public key
// stored for an imported standalone transparent key, so a caller can find
// which one (if any) corresponds to a given address without the keystore
// needing its own address-indexed table.
func (s *Store) ListStandaloneTransparentPubkeys(ctx context.Context) ([][]byte, error) {
	var out [][]byte
	err := s.db.WithRead(ctx, func(ctx context.Context, db *sql.DB) error {
		rows, err := db.QueryContext(ctx, `SELECT pubkey FROM ext_zallet_keystore_standalone_transparent_keys`)
		if err != nil {
			return err
		}
		defer rows.Close()
		for rows.Next() {
			var pk []byte
			if err := rows.Scan(&pk); err != nil {
				return err
			}
			out = append(out, pk)
		}
		return rows.Err()
	})
	return out, err
}

// DecryptStandaloneTransparentKey looks up the ciphertext stored for
// compressedPubKey and decrypts the transparent secret key it holds.
func (s *Store) DecryptStandaloneTransparentKey(ctx context.Context, compressedPubKey []byte) ([]byte, error) {
	identities, err := s.currentIdentities()
	if err != nil {
		return nil, err
	}
	var blob []byte
	err = s.db.WithRead(ctx, func(ctx context.Context, db *sql.DB) error {
		return db.QueryRowContext(ctx,
			`SELECT encrypted_transparent_privkey FROM ext_zallet_keystore_standalone_transparent_keys WHERE pubkey = ?`,
			compressedPubKey).Scan(&blob)
	})
	if errors.Is(err, sql.ErrNoRows) {
		return nil, zerr.ErrUnknownAddress
	}
	if err != nil {
		return nil, err
	}
	env, err := deserializeEnvelope(blob)
	if err != nil {
		return nil, err
	}
	pt, err := Decrypt(identities, env)
	if err != nil {
		return nil, zerr.ErrCrypto
	}
	return pt, nil
}
