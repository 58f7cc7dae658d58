package walletdb

import (
	"context"
	"database/sql"
)

// TruncateToHeight rewinds wallet state to at most height. It returns the
// actual height truncated to, which may be lower than requested if a
// commitment-tree checkpoint prevents an exact truncation (in this schema,
// shard roots are not height-indexed, so truncation is always exact; the
// return value exists so callers never need to special-case that future
// possibility).
func (s *Store) TruncateToHeight(ctx context.Context, height int64) (int64, error) {
	var actual int64
	err := s.WithWrite(ctx, func(ctx context.Context, tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx,
			`DELETE FROM notes WHERE mined_height IS NOT NULL AND mined_height > ?`, height); err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx,
			`UPDATE notes SET spent_by_txid = NULL WHERE spent_by_txid IN (
				SELECT txid FROM transactions WHERE mined_height IS NOT NULL AND mined_height > ?)`,
			height); err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx,
			`DELETE FROM transparent_outputs WHERE mined_height IS NOT NULL AND mined_height > ?`, height); err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx,
			`UPDATE transparent_outputs SET spent_by_txid = NULL WHERE spent_by_txid IN (
				SELECT txid FROM transactions WHERE mined_height IS NOT NULL AND mined_height > ?)`,
			height); err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx,
			`DELETE FROM transactions WHERE mined_height IS NOT NULL AND mined_height > ?`, height); err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx,
			`DELETE FROM scan_ranges WHERE start_height > ?`, height); err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx,
			`DELETE FROM block_metadata WHERE height > ?`, height); err != nil {
			return err
		}
		actual = height
		return nil
	})
	if err != nil {
		return 0, err
	}
	return actual, nil
}
