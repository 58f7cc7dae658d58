package walletdb

import (
	"context"
	"database/sql"
)

// DataRequestRow is a pending transaction data request, as persisted in
// tx_data_requests.
type DataRequestRow struct {
	ID                 int64
	Kind               string
	TxID               []byte
	Address            string
	StartHeight        int64
	EndHeight          int64
	TxStatusFilter     string
	OutputStatusFilter string
}

// CreateDataRequest inserts a new pending data request. The sync engine
// services pending requests but does not create them.
func (s *Store) CreateDataRequest(ctx context.Context, r DataRequestRow) error {
	return s.WithWrite(ctx, func(ctx context.Context, tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO tx_data_requests (kind, txid, address, start_height, end_height, tx_status_filter, output_status_filter)
			VALUES (?, ?, ?, ?, ?, ?, ?)`,
			r.Kind, r.TxID, r.Address, r.StartHeight, r.EndHeight, r.TxStatusFilter, r.OutputStatusFilter)
		return err
	})
}

// PendingDataRequests returns every request not yet satisfied.
func (s *Store) PendingDataRequests(ctx context.Context) ([]DataRequestRow, error) {
	var out []DataRequestRow
	err := s.WithRead(ctx, func(ctx context.Context, db *sql.DB) error {
		rows, err := db.QueryContext(ctx, `
			SELECT id, kind, txid, address, start_height, end_height, tx_status_filter, output_status_filter
			FROM tx_data_requests WHERE satisfied_at_height IS NULL`)
		if err != nil {
			return err
		}
		defer rows.Close()
		for rows.Next() {
			var r DataRequestRow
			var txid, address, txStatus, outStatus sql.NullString
			var start, end sql.NullInt64
			var txidBlob []byte
			if err := rows.Scan(&r.ID, &r.Kind, &txidBlob, &address, &start, &end, &txStatus, &outStatus); err != nil {
				return err
			}
			r.TxID = txidBlob
			r.Address = address.String
			r.StartHeight = start.Int64
			r.EndHeight = end.Int64
			r.TxStatusFilter = txStatus.String
			r.OutputStatusFilter = outStatus.String
			_ = txid
			out = append(out, r)
		}
		return rows.Err()
	})
	return out, err
}

// ResolveDataRequest marks id satisfied as of asOfHeight, the height fixed
// before the request's sub-queries ran.
func (s *Store) ResolveDataRequest(ctx context.Context, id int64, asOfHeight int64) error {
	return s.WithWrite(ctx, func(ctx context.Context, tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx,
			`UPDATE tx_data_requests SET satisfied_at_height = ? WHERE id = ?`, asOfHeight, id)
		return err
	})
}
