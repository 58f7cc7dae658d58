package walletdb

import (
	"context"
	"database/sql"
)

// SpendableNote is an unspent shielded note eligible for input selection.
type SpendableNote struct {
	TxID        [32]byte
	Protocol    string
	OutputIndex uint32
	AccountID   string
	Value       int64
	MinedHeight *int64 // nil means mempool
}

// SpendableUTXO is an unspent transparent output eligible for input
// selection.
type SpendableUTXO struct {
	TxID        [32]byte
	Vout        uint32
	AccountID   string
	Address     string
	Value       int64
	MinedHeight *int64
}

// SpendableCoins returns every unspent note and transparent output owned
// by accountID (or, when anyTaddr is set, every spendable transparent
// output owned by any account) mined at height <= tipHeight-minConf+1,
// i.e. with at least minConf confirmations. Mempool outputs (MinedHeight
// nil) are included only when minConf <= 0.
func (s *Store) SpendableCoins(ctx context.Context, accountID string, anyTaddr bool, tipHeight int64, minConf int) ([]SpendableNote, []SpendableUTXO, error) {
	maxHeight := tipHeight - int64(minConf) + 1

	var notes []SpendableNote
	var utxos []SpendableUTXO
	err := s.WithRead(ctx, func(ctx context.Context, db *sql.DB) error {
		if !anyTaddr {
			rows, err := db.QueryContext(ctx, `
				SELECT txid, protocol, output_index, account_id, value, mined_height
				FROM notes WHERE account_id = ? AND spent_by_txid IS NULL`, accountID)
			if err != nil {
				return err
			}
			if err := scanNotes(rows, maxHeight, minConf, &notes); err != nil {
				return err
			}
		}

		uquery := `
			SELECT transparent_outputs.txid, vout, account_id, encoding, value, mined_height
			FROM transparent_outputs
			JOIN addresses ON addresses.account_id = transparent_outputs.account_id
			WHERE ownership = 'spendable' AND spent_by_txid IS NULL AND addresses.key_scope != 'ephemeral'`
		args := []interface{}{}
		if !anyTaddr {
			uquery += ` AND transparent_outputs.account_id = ?`
			args = append(args, accountID)
		}
		rows, err := db.QueryContext(ctx, uquery, args...)
		if err != nil {
			return err
		}
		return scanUTXOs(rows, maxHeight, minConf, &utxos)
	})
	return notes, utxos, err
}

func scanNotes(rows *sql.Rows, maxHeight int64, minConf int, out *[]SpendableNote) error {
	defer rows.Close()
	for rows.Next() {
		var n SpendableNote
		var txid []byte
		var mined sql.NullInt64
		if err := rows.Scan(&txid, &n.Protocol, &n.OutputIndex, &n.AccountID, &n.Value, &mined); err != nil {
			return err
		}
		copy(n.TxID[:], txid)
		if mined.Valid {
			h := mined.Int64
			n.MinedHeight = &h
			if h > maxHeight {
				continue
			}
		} else if minConf > 0 {
			continue
		}
		*out = append(*out, n)
	}
	return rows.Err()
}

func scanUTXOs(rows *sql.Rows, maxHeight int64, minConf int, out *[]SpendableUTXO) error {
	defer rows.Close()
	for rows.Next() {
		var u SpendableUTXO
		var txid []byte
		var mined sql.NullInt64
		if err := rows.Scan(&txid, &u.Vout, &u.AccountID, &u.Address, &u.Value, &mined); err != nil {
			return err
		}
		copy(u.TxID[:], txid)
		if mined.Valid {
			h := mined.Int64
			u.MinedHeight = &h
			if h > maxHeight {
				continue
			}
		} else if minConf > 0 {
			continue
		}
		*out = append(*out, u)
	}
	return rows.Err()
}

// CoinbaseOutputs returns unspent, mined coinbase outputs eligible for
// shielding: every spendable coinbase UTXO when fromAddress is empty (the
// ANY_TADDR form of z_shieldcoinbase), or only those paying fromAddress
// otherwise. limit of 0 means no cap. The chain view only reports mature
// coinbase outputs, so no maturity check happens here.
func (s *Store) CoinbaseOutputs(ctx context.Context, fromAddress string, limit int) ([]SpendableUTXO, error) {
	var utxos []SpendableUTXO
	err := s.WithRead(ctx, func(ctx context.Context, db *sql.DB) error {
		query := `
			SELECT transparent_outputs.txid, vout, account_id, encoding, value, mined_height
			FROM transparent_outputs
			JOIN addresses ON addresses.account_id = transparent_outputs.account_id
			WHERE ownership = 'spendable' AND spent_by_txid IS NULL
			AND coinbase = 1 AND mined_height IS NOT NULL`
		args := []interface{}{}
		if fromAddress != "" {
			query += ` AND encoding = ?`
			args = append(args, fromAddress)
		}
		query += ` ORDER BY mined_height`
		if limit > 0 {
			query += ` LIMIT ?`
			args = append(args, limit)
		}
		rows, err := db.QueryContext(ctx, query, args...)
		if err != nil {
			return err
		}
		return scanUTXOs(rows, int64(1)<<62, 1, &utxos)
	})
	return utxos, err
}

// AccountBalance sums unspent notes and transparent outputs for accountID
// mined at height <= asOfHeight, the quantity z_gettotalbalance reports
// for a given minconf.
func (s *Store) AccountBalance(ctx context.Context, accountID string, asOfHeight int64) (shielded, transparent int64, err error) {
	err = s.WithRead(ctx, func(ctx context.Context, db *sql.DB) error {
		if e := db.QueryRowContext(ctx, `
			SELECT coalesce(sum(value), 0) FROM notes
			WHERE account_id = ? AND spent_by_txid IS NULL AND mined_height IS NOT NULL AND mined_height <= ?`,
			accountID, asOfHeight).Scan(&shielded); e != nil {
			return e
		}
		return db.QueryRowContext(ctx, `
			SELECT coalesce(sum(value), 0) FROM transparent_outputs
			WHERE account_id = ? AND ownership = 'spendable' AND spent_by_txid IS NULL
			AND mined_height IS NOT NULL AND mined_height <= ?`,
			accountID, asOfHeight).Scan(&transparent)
	})
	return shielded, transparent, err
}
