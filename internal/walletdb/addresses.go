package walletdb

import (
	"context"
	"database/sql"
	"errors"

	"github.com/google/uuid"

	"github.com/zallet-core/zallet/internal/zerr"
)

// AddressType enumerates the receiver shapes a row in the addresses table
// can hold.
type AddressType string

const (
	AddressTransparentP2PKH AddressType = "transparent_p2pkh"
	AddressTransparentP2SH  AddressType = "transparent_p2sh"
	AddressSapling          AddressType = "sapling"
	AddressUnified          AddressType = "unified"
	AddressTex              AddressType = "tex"
)

// KeyScope classifies a transparent address's role, used to decide which
// sync task is responsible for it and which policy axis it triggers.
type KeyScope string

const (
	ScopeExternal  KeyScope = "external"
	ScopeInternal  KeyScope = "internal"
	ScopeEphemeral KeyScope = "ephemeral"
)

// Address is a single row of the addresses table.
type Address struct {
	ID               string
	AccountID        string
	DiversifierIndex []byte // nil for "standalone" addresses
	Standalone       bool
	Type             AddressType
	Scope            KeyScope // empty for shielded-only addresses
	Encoding         string
	Receivers        string // comma-joined receiver-type tags, for display
}

// CreateAddress inserts a new address row, generating its id.
func (s *Store) CreateAddress(ctx context.Context, a Address) (Address, error) {
	a.ID = uuid.NewString()
	err := s.WithWrite(ctx, func(ctx context.Context, tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO addresses (id, account_id, diversifier_index, standalone, address_type, key_scope, encoding, receivers)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			a.ID, a.AccountID, a.DiversifierIndex, boolToInt(a.Standalone), string(a.Type), nullScope(a.Scope), a.Encoding, a.Receivers)
		return err
	})
	return a, err
}

// ListAddresses returns every address belonging to accountID; if
// accountID is empty, every address in the wallet.
func (s *Store) ListAddresses(ctx context.Context, accountID string) ([]Address, error) {
	var out []Address
	err := s.WithRead(ctx, func(ctx context.Context, db *sql.DB) error {
		query := `SELECT id, account_id, diversifier_index, standalone, address_type, key_scope, encoding, receivers FROM addresses`
		args := []interface{}{}
		if accountID != "" {
			query += ` WHERE account_id = ?`
			args = append(args, accountID)
		}
		rows, err := db.QueryContext(ctx, query, args...)
		if err != nil {
			return err
		}
		defer rows.Close()
		for rows.Next() {
			var a Address
			var standalone int
			var scope sql.NullString
			if err := rows.Scan(&a.ID, &a.AccountID, &a.DiversifierIndex, &standalone, &a.Type, &scope, &a.Encoding, &a.Receivers); err != nil {
				return err
			}
			a.Standalone = standalone != 0
			a.Scope = KeyScope(scope.String)
			out = append(out, a)
		}
		return rows.Err()
	})
	return out, err
}

// TransparentAddressesByScope returns every non-ephemeral transparent
// address's encoding across every account, for the UTXO poller.
// Ephemeral addresses are excluded: they are handled by the data-request
// task only.
func (s *Store) TransparentAddressesByScope(ctx context.Context, scopes ...KeyScope) ([]string, error) {
	var out []string
	err := s.WithRead(ctx, func(ctx context.Context, db *sql.DB) error {
		rows, err := db.QueryContext(ctx, `
			SELECT encoding FROM addresses
			WHERE address_type IN ('transparent_p2pkh','transparent_p2sh')
			AND key_scope != 'ephemeral'`)
		if err != nil {
			return err
		}
		defer rows.Close()
		allowed := map[KeyScope]bool{}
		for _, sc := range scopes {
			allowed[sc] = true
		}
		for rows.Next() {
			var encoding string
			if err := rows.Scan(&encoding); err != nil {
				return err
			}
			out = append(out, encoding)
		}
		return rows.Err()
	})
	return out, err
}

// ResolveAccountForAddress maps a cached address encoding to its owning
// account, for source resolution in the spend planner.
func (s *Store) ResolveAccountForAddress(ctx context.Context, encoding string) (string, error) {
	var accountID string
	err := s.WithRead(ctx, func(ctx context.Context, db *sql.DB) error {
		err := db.QueryRowContext(ctx,
			`SELECT account_id FROM addresses WHERE encoding = ?`, encoding).Scan(&accountID)
		if errors.Is(err, sql.ErrNoRows) {
			return zerr.ErrUnknownAddress
		}
		return err
	})
	return accountID, err
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func nullScope(s KeyScope) interface{} {
	if s == "" {
		return nil
	}
	return string(s)
}
