// Package keystore manages secret material at rest (encrypted mnemonics,
// legacy seeds, standalone spending keys) and in memory (the decrypted
// identities used to unwrap them), following an age-equivalent
// encrypt-to-recipients / decrypt-with-identities model.
package keystore

import (
	"context"
	"database/sql"
	"errors"
	"sync"
	"time"

	"github.com/zallet-core/zallet/internal/build"
	"github.com/zallet-core/zallet/internal/walletdb"
	"github.com/zallet-core/zallet/internal/zerr"
)

var log = build.NewLogger(build.SubsystemKeystore)

// ErrCryptoMismatch is returned when no installed identity can unwrap a
// given ciphertext.
var ErrCryptoMismatch = errors.New("keystore: no identity unwraps this ciphertext")

// IdentityFile describes how decryption identities are obtained: either a
// fixed unencrypted set loaded once at startup, or a passphrase-encrypted
// set materialized on demand via unlock.
type IdentityFile struct {
	// Unencrypted holds identities available without unlocking. Nil if the
	// identity file is passphrase-encrypted.
	Unencrypted []Identity

	// Encrypted, when set, is consulted by unlock to derive identities from
	// a passphrase. nil if Unencrypted is set instead.
	Encrypted *EncryptedIdentityFile
}

// EncryptedIdentityFile is a passphrase-protected container of identities.
// The concrete decryption scheme (scrypt-stretched passphrase wrapping an
// X25519 identity) mirrors the recipient/identity envelope used for wallet
// secrets themselves.
type EncryptedIdentityFile struct {
	Salt      [16]byte
	Envelope  *Envelope
	ScryptN   int
	ScryptR   int
	ScryptP   int
}

type relockState struct {
	timer   *time.Timer
	done    chan struct{}
	unlockUntil time.Time
}

// Store manages keystore secrets backed by db, enforcing the recipient and
// identity invariants described in the package doc.
type Store struct {
	db       *walletdb.Store
	identity IdentityFile

	mu         sync.RWMutex
	identities []Identity // nil when locked

	relockMu sync.Mutex
	relock   *relockState
}

// New constructs a Store. If identity.Unencrypted is set, those identities
// are installed immediately and the keystore never locks.
func New(db *walletdb.Store, identity IdentityFile) *Store {
	s := &Store{db: db, identity: identity}
	if identity.Unencrypted != nil {
		s.identities = identity.Unencrypted
	}
	return s
}

// UsesEncryptedIdentities reports whether this keystore requires unlock.
func (s *Store) UsesEncryptedIdentities() bool {
	return s.identity.Encrypted != nil
}

// IsLocked reports whether no decryption identities are currently installed.
func (s *Store) IsLocked() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.identities == nil
}

// UnlockedUntil returns the deadline of the current unlock, if any.
func (s *Store) UnlockedUntil() (time.Time, bool) {
	s.relockMu.Lock()
	defer s.relockMu.Unlock()
	if s.relock == nil || s.IsLocked() {
		return time.Time{}, false
	}
	return s.relock.unlockUntil, true
}

// Unlock decrypts the identity file with passphrase and installs the
// resulting identities for timeout. A prior unlock's relock timer is
// cancelled and awaited to finish *before* the new identities are written,
// so a late-firing old timer can never clear state installed by this call.
func (s *Store) Unlock(passphrase string, timeout time.Duration) error {
	if s.identity.Encrypted == nil {
		return nil // unencrypted identity file: always unlocked.
	}

	identities, err := decryptIdentityFile(*s.identity.Encrypted, passphrase)
	if err != nil {
		return zerr.ErrCrypto
	}

	s.relockMu.Lock()
	defer s.relockMu.Unlock()

	if s.relock != nil {
		// If Stop reports the timer already fired, its callback may still be
		// running; wait for it. Otherwise the callback will never run.
		if !s.relock.timer.Stop() {
			<-s.relock.done
		}
		s.relock = nil
	}

	s.mu.Lock()
	s.identities = identities
	s.mu.Unlock()

	done := make(chan struct{})
	deadline := time.Now().Add(timeout)
	timer := time.AfterFunc(timeout, func() {
		s.Lock()
		close(done)
	})
	s.relock = &relockState{timer: timer, done: done, unlockUntil: deadline}
	return nil
}

// Lock clears installed identities immediately.
func (s *Store) Lock() {
	s.mu.Lock()
	s.identities = nil
	s.mu.Unlock()
}

func (s *Store) currentIdentities() ([]Identity, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.identities == nil {
		return nil, zerr.ErrLocked
	}
	return s.identities, nil
}

// InitializeRecipients sets the recipient set used for all future
// encryption. Fails if a recipient set already exists.
func (s *Store) InitializeRecipients(ctx context.Context, recipients []Recipient) error {
	return s.db.WithWrite(ctx, func(ctx context.Context, tx *sql.Tx) error {
		var count int
		if err := tx.QueryRowContext(ctx,
			`SELECT count(*) FROM ext_zallet_keystore_age_recipients`).Scan(&count); err != nil {
			return err
		}
		if count > 0 {
			return zerr.ErrAlreadyInitialized
		}
		for _, r := range recipients {
			if _, err := tx.ExecContext(ctx,
				`INSERT INTO ext_zallet_keystore_age_recipients (recipient) VALUES (?)`,
				encodeRecipient(r)); err != nil {
				return err
			}
		}
		return nil
	})
}

// Recipients returns the current recipient set, failing with
// ErrMissingRecipients if none have been initialized.
func (s *Store) Recipients(ctx context.Context) ([]Recipient, error) {
	rs, err := s.MaybeRecipients(ctx)
	if err != nil {
		return nil, err
	}
	if len(rs) == 0 {
		return nil, zerr.ErrMissingRecipients
	}
	return rs, nil
}

// MaybeRecipients returns the current recipient set, which may be empty.
func (s *Store) MaybeRecipients(ctx context.Context) ([]Recipient, error) {
	var out []Recipient
	err := s.db.WithRead(ctx, func(ctx context.Context, db *sql.DB) error {
		rows, err := db.QueryContext(ctx, `SELECT recipient FROM ext_zallet_keystore_age_recipients`)
		if err != nil {
			return err
		}
		defer rows.Close()
		for rows.Next() {
			var enc string
			if err := rows.Scan(&enc); err != nil {
				return err
			}
			r, err := decodeRecipient(enc)
			if err != nil {
				return err
			}
			out = append(out, r)
		}
		return rows.Err()
	})
	return out, err
}

func decryptIdentityFile(enc EncryptedIdentityFile, passphrase string) ([]Identity, error) {
	id, err := identityFromPassphrase(passphrase, enc.Salt, enc.ScryptN, enc.ScryptR, enc.ScryptP)
	if err != nil {
		return nil, err
	}
	pt, err := Decrypt([]Identity{id}, enc.Envelope)
	if err != nil {
		return nil, err
	}
	return decodeIdentities(pt)
}
