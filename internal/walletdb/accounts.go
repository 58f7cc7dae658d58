package walletdb

import (
	"context"
	"database/sql"
	"errors"

	"github.com/google/uuid"

	"github.com/zallet-core/zallet/internal/zerr"
)

// AccountSource classifies how an account's keys are obtained, mirroring
// the Derived/Imported split in the data model.
type AccountSource string

const (
	SourceDerived         AccountSource = "derived"
	SourceImportedSpend   AccountSource = "imported_spending"
	SourceImportedViewOnly AccountSource = "imported_view_only"
)

// Account is a single row of the accounts table.
type Account struct {
	ID              string
	Name            string
	Source          AccountSource
	SeedFingerprint []byte // nil for imported accounts with no derivation hint
	AccountIndex    *uint32
	SubPath         string
	KeySource       string
	BirthdayHeight  int64
}

// CreateAccount inserts a new account at the next available ZIP-32 index
// for seedFP, or as a standalone imported account when seedFP is nil.
// Accounts are never created implicitly by scanning; this is always driven
// by an explicit z_getnewaccount/import call.
func (s *Store) CreateAccount(ctx context.Context, a Account) (Account, error) {
	a.ID = uuid.NewString()
	err := s.WithWrite(ctx, func(ctx context.Context, tx *sql.Tx) error {
		if a.SeedFingerprint != nil && a.AccountIndex == nil {
			next, err := nextAccountIndex(ctx, tx, a.SeedFingerprint)
			if err != nil {
				return err
			}
			a.AccountIndex = &next
		}
		_, err := tx.ExecContext(ctx, `
			INSERT INTO accounts (id, name, source, seed_fingerprint, account_index, sub_path, key_source, birthday_height)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			a.ID, a.Name, string(a.Source), a.SeedFingerprint, a.AccountIndex, nullString(a.SubPath), nullString(a.KeySource), a.BirthdayHeight)
		return err
	})
	return a, err
}

func nextAccountIndex(ctx context.Context, tx *sql.Tx, seedFP []byte) (uint32, error) {
	var max sql.NullInt64
	err := tx.QueryRowContext(ctx,
		`SELECT max(account_index) FROM accounts WHERE seed_fingerprint = ?`, seedFP).Scan(&max)
	if err != nil {
		return 0, err
	}
	if !max.Valid {
		return 0, nil
	}
	return uint32(max.Int64) + 1, nil
}

// GetAccount fetches a single account by id.
func (s *Store) GetAccount(ctx context.Context, id string) (Account, error) {
	var a Account
	err := s.WithRead(ctx, func(ctx context.Context, db *sql.DB) error {
		var idx sql.NullInt64
		var subPath, keySource sql.NullString
		row := db.QueryRowContext(ctx, `
			SELECT id, name, source, seed_fingerprint, account_index, sub_path, key_source, birthday_height
			FROM accounts WHERE id = ?`, id)
		if err := row.Scan(&a.ID, &a.Name, &a.Source, &a.SeedFingerprint, &idx, &subPath, &keySource, &a.BirthdayHeight); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return zerr.ErrUnknownFingerprint
			}
			return err
		}
		if idx.Valid {
			v := uint32(idx.Int64)
			a.AccountIndex = &v
		}
		a.SubPath = subPath.String
		a.KeySource = keySource.String
		return nil
	})
	return a, err
}

// ListAccounts returns every account, ordered by creation.
func (s *Store) ListAccounts(ctx context.Context) ([]Account, error) {
	var out []Account
	err := s.WithRead(ctx, func(ctx context.Context, db *sql.DB) error {
		rows, err := db.QueryContext(ctx, `
			SELECT id, name, source, seed_fingerprint, account_index, sub_path, key_source, birthday_height
			FROM accounts ORDER BY created_at`)
		if err != nil {
			return err
		}
		defer rows.Close()
		for rows.Next() {
			var a Account
			var idx sql.NullInt64
			var subPath, keySource sql.NullString
			if err := rows.Scan(&a.ID, &a.Name, &a.Source, &a.SeedFingerprint, &idx, &subPath, &keySource, &a.BirthdayHeight); err != nil {
				return err
			}
			if idx.Valid {
				v := uint32(idx.Int64)
				a.AccountIndex = &v
			}
			a.SubPath = subPath.String
			a.KeySource = keySource.String
			out = append(out, a)
		}
		return rows.Err()
	})
	return out, err
}

// DeleteAccount removes an account, refusing if any unspent note still
// references it as owner.
func (s *Store) DeleteAccount(ctx context.Context, id string) error {
	return s.WithWrite(ctx, func(ctx context.Context, tx *sql.Tx) error {
		var count int
		if err := tx.QueryRowContext(ctx,
			`SELECT count(*) FROM notes WHERE account_id = ? AND spent_by_txid IS NULL`, id).Scan(&count); err != nil {
			return err
		}
		if count > 0 {
			return errors.New("walletdb: account has unspent notes")
		}
		_, err := tx.ExecContext(ctx, `DELETE FROM accounts WHERE id = ?`, id)
		return err
	})
}

func nullString(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}
