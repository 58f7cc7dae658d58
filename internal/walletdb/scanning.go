package walletdb

import (
	"context"
	"database/sql"
	"errors"

	"github.com/zallet-core/zallet/internal/chainview"
)

// ScanRangeRow is a height interval of pending scan work, as persisted in
// scan_ranges. Both Start and End are included; it is not half-open.
type ScanRangeRow struct {
	Start, End int64
	Priority   string
}

// DecryptedNote is a single shielded output a NoteScanner recognized as
// belonging to one of the wallet's accounts.
type DecryptedNote struct {
	TxID             [32]byte
	Protocol         string
	OutputIndex      uint32
	AccountID        string
	Value            int64
	Memo             []byte
	TreePosition     int64
	Nullifier        []byte
	SpendingKeyScope string
	MinedHeight      *int64
}

// NoteScanner performs trial decryption of a compact block's shielded
// outputs against every account's incoming viewing keys. It is the one
// extension point this data store leaves abstract: no Sapling/Orchard
// note-decryption primitives are linked into this build, so production
// wiring supplies a concrete implementation while tests supply a fake
// that returns canned notes. See DESIGN.md.
type NoteScanner interface {
	ScanBlock(ctx context.Context, block chainview.CompactBlock, prior chainview.PriorChainState) ([]DecryptedNote, error)
}

// noScanner is installed by default; it recognizes no outputs, which keeps
// the sync engine's control flow (range bookkeeping, tip tracking, reorg
// handling) fully exercised even before a real scanner is wired in.
type noScanner struct{}

func (noScanner) ScanBlock(context.Context, chainview.CompactBlock, chainview.PriorChainState) ([]DecryptedNote, error) {
	return nil, nil
}

// SetScanner installs the trial-decryption implementation used by
// CommitScannedRange.
func (s *Store) SetScanner(n NoteScanner) {
	s.scanner = n
}

// ScanRanges returns every pending (non-Scanned) scan range.
func (s *Store) ScanRanges(ctx context.Context) ([]ScanRangeRow, error) {
	var out []ScanRangeRow
	err := s.WithRead(ctx, func(ctx context.Context, db *sql.DB) error {
		rows, err := db.QueryContext(ctx,
			`SELECT start_height, end_height, priority FROM scan_ranges WHERE priority != 'scanned'`)
		if err != nil {
			return err
		}
		defer rows.Close()
		for rows.Next() {
			var r ScanRangeRow
			if err := rows.Scan(&r.Start, &r.End, &r.Priority); err != nil {
				return err
			}
			out = append(out, r)
		}
		return rows.Err()
	})
	return out, err
}

// UpsertScanRange records or updates a pending scan range keyed by its
// start and end heights. The sync engine does not call it.
func (s *Store) UpsertScanRange(ctx context.Context, r ScanRangeRow) error {
	return s.WithWrite(ctx, func(ctx context.Context, tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO scan_ranges (start_height, end_height, priority) VALUES (?, ?, ?)
			ON CONFLICT (start_height, end_height) DO UPDATE SET priority = excluded.priority`,
			r.Start, r.End, r.Priority)
		return err
	})
}

// CommitScannedRange fetches nothing itself: it is handed already-fetched
// blocks and the prior chain-tree state, trial-decrypts them via the
// installed NoteScanner, persists any notes found, and marks the range
// Scanned. Called inside a single transaction so a crash mid-commit never
// leaves a partially-scanned range visible to other tasks.
func (s *Store) CommitScannedRange(ctx context.Context, start, end int64, blocks []chainview.CompactBlock, prior chainview.PriorChainState) error {
	scanner := s.scanner
	if scanner == nil {
		scanner = noScanner{}
	}

	var allNotes []DecryptedNote
	for _, b := range blocks {
		notes, err := scanner.ScanBlock(ctx, b, prior)
		if err != nil {
			return err
		}
		allNotes = append(allNotes, notes...)
	}

	var zeroHash [32]byte
	return s.WithWrite(ctx, func(ctx context.Context, tx *sql.Tx) error {
		for _, n := range allNotes {
			if _, err := tx.ExecContext(ctx, `
				INSERT INTO notes (txid, protocol, output_index, account_id, value, memo, tree_position, nullifier, spending_key_scope, mined_height)
				VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
				ON CONFLICT (txid, protocol, output_index) DO UPDATE SET mined_height = excluded.mined_height`,
				n.TxID[:], n.Protocol, n.OutputIndex, n.AccountID, n.Value, n.Memo, n.TreePosition, n.Nullifier, n.SpendingKeyScope, n.MinedHeight); err != nil {
				return err
			}
		}
		for _, b := range blocks {
			// Mempool pseudo-blocks carry no real block identity; only
			// mined blocks contribute ancestry rows.
			if b.Hash == zeroHash {
				continue
			}
			if _, err := tx.ExecContext(ctx, `
				INSERT INTO block_metadata (height, hash, prev_hash) VALUES (?, ?, ?)
				ON CONFLICT (height) DO UPDATE SET hash = excluded.hash, prev_hash = excluded.prev_hash`,
				b.Height, b.Hash[:], b.PrevHash[:]); err != nil {
				return err
			}
		}
		_, err := tx.ExecContext(ctx, `
			DELETE FROM scan_ranges WHERE start_height >= ? AND end_height <= ?`, start, end)
		if err != nil {
			return err
		}
		_, err = tx.ExecContext(ctx, `
			INSERT INTO scan_ranges (start_height, end_height, priority) VALUES (?, ?, 'scanned')
			ON CONFLICT (start_height, end_height) DO UPDATE SET priority = 'scanned'`, start, end)
		return err
	})
}

// WalletTip returns the wallet's last-committed chain tip, if any has been
// recorded yet.
func (s *Store) WalletTip(ctx context.Context) (chainview.BlockMeta, bool, error) {
	var tip chainview.BlockMeta
	found := false
	err := s.WithRead(ctx, func(ctx context.Context, db *sql.DB) error {
		var hash, prev []byte
		err := db.QueryRowContext(ctx,
			`SELECT height, hash, prev_hash FROM wallet_tip WHERE id = 0`).Scan(&tip.Height, &hash, &prev)
		if errors.Is(err, sql.ErrNoRows) {
			return nil
		}
		if err != nil {
			return err
		}
		copy(tip.Hash[:], hash)
		copy(tip.PrevHash[:], prev)
		found = true
		return nil
	})
	return tip, found, err
}

// BlockMetaAtHeight returns the (height, hash, prev_hash) row the wallet
// recorded for height when it scanned that block, if any.
func (s *Store) BlockMetaAtHeight(ctx context.Context, height int64) (chainview.BlockMeta, bool, error) {
	var meta chainview.BlockMeta
	found := false
	err := s.WithRead(ctx, func(ctx context.Context, db *sql.DB) error {
		var hash, prev []byte
		err := db.QueryRowContext(ctx,
			`SELECT height, hash, prev_hash FROM block_metadata WHERE height = ?`, height).Scan(&meta.Height, &hash, &prev)
		if errors.Is(err, sql.ErrNoRows) {
			return nil
		}
		if err != nil {
			return err
		}
		copy(meta.Hash[:], hash)
		copy(meta.PrevHash[:], prev)
		found = true
		return nil
	})
	return meta, found, err
}

// SetWalletTip upserts the wallet's known chain tip.
func (s *Store) SetWalletTip(ctx context.Context, tip chainview.BlockMeta) error {
	return s.WithWrite(ctx, func(ctx context.Context, tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO wallet_tip (id, height, hash, prev_hash) VALUES (0, ?, ?, ?)
			ON CONFLICT (id) DO UPDATE SET height = excluded.height, hash = excluded.hash, prev_hash = excluded.prev_hash`,
			tip.Height, tip.Hash[:], tip.PrevHash[:])
		return err
	})
}

// UpsertTransparentUTXOFromChain records a chain-view-reported UTXO,
// resolving its owning account from the cached address encoding.
func (s *Store) UpsertTransparentUTXOFromChain(ctx context.Context, u chainview.AddressUTXO) error {
	return s.WithWrite(ctx, func(ctx context.Context, tx *sql.Tx) error {
		var accountID sql.NullString
		err := tx.QueryRowContext(ctx,
			`SELECT account_id FROM addresses WHERE encoding = ?`, u.Address).Scan(&accountID)
		if err != nil && !errors.Is(err, sql.ErrNoRows) {
			return err
		}
		_, err = tx.ExecContext(ctx, `
			INSERT INTO transparent_outputs (txid, vout, account_id, value, script, mined_height, ownership, coinbase)
			VALUES (?, ?, ?, ?, ?, ?, 'spendable', ?)
			ON CONFLICT (txid, vout) DO UPDATE SET mined_height = excluded.mined_height, coinbase = excluded.coinbase`,
			u.TxID[:], u.Index, accountID, u.Value, u.Script, u.Height, u.Coinbase)
		return err
	})
}

// StoreSubtreeRoots records the shard roots the chain view reports for
// protocol, starting at index 0.
func (s *Store) StoreSubtreeRoots(ctx context.Context, protocol string, roots []chainview.SubtreeRoot) error {
	return s.WithWrite(ctx, func(ctx context.Context, tx *sql.Tx) error {
		for _, r := range roots {
			if _, err := tx.ExecContext(ctx, `
				INSERT INTO shard_roots (protocol, shard_index, root) VALUES (?, ?, ?)
				ON CONFLICT (protocol, shard_index) DO UPDATE SET root = excluded.root`,
				protocol, r.Index, r.RootHash[:]); err != nil {
				return err
			}
		}
		return nil
	})
}
