package walletdb

import (
	"context"
	"database/sql"
)

func applyInitialSchema(ctx context.Context, tx *sql.Tx) error {
	stmts := []string{
		`CREATE TABLE accounts (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL,
			source TEXT NOT NULL CHECK (source IN ('derived','imported_spending','imported_view_only')),
			seed_fingerprint BLOB,
			account_index INTEGER,
			sub_path TEXT,
			key_source TEXT,
			birthday_height INTEGER NOT NULL,
			created_at TEXT NOT NULL DEFAULT (datetime('now')),
			UNIQUE (seed_fingerprint, account_index, sub_path)
		)`,
		`CREATE TABLE addresses (
			id TEXT PRIMARY KEY,
			account_id TEXT NOT NULL REFERENCES accounts(id),
			diversifier_index BLOB,
			standalone INTEGER NOT NULL DEFAULT 0,
			address_type TEXT NOT NULL CHECK (address_type IN ('transparent_p2pkh','transparent_p2sh','sapling','unified','tex')),
			key_scope TEXT CHECK (key_scope IN ('external','internal','ephemeral')),
			encoding TEXT NOT NULL UNIQUE,
			receivers TEXT NOT NULL DEFAULT ''
		)`,
		`CREATE INDEX idx_addresses_account ON addresses(account_id)`,
		`CREATE TABLE notes (
			txid BLOB NOT NULL,
			protocol TEXT NOT NULL CHECK (protocol IN ('sapling','orchard')),
			output_index INTEGER NOT NULL,
			account_id TEXT NOT NULL REFERENCES accounts(id),
			value INTEGER NOT NULL,
			memo BLOB,
			tree_position INTEGER NOT NULL,
			nullifier BLOB NOT NULL,
			spending_key_scope TEXT NOT NULL CHECK (spending_key_scope IN ('external','internal')),
			mined_height INTEGER,
			spent_by_txid BLOB,
			PRIMARY KEY (txid, protocol, output_index)
		)`,
		`CREATE UNIQUE INDEX idx_notes_nullifier ON notes(protocol, nullifier)`,
		`CREATE INDEX idx_notes_account ON notes(account_id)`,
		`CREATE TABLE transparent_outputs (
			txid BLOB NOT NULL,
			vout INTEGER NOT NULL,
			account_id TEXT REFERENCES accounts(id),
			value INTEGER NOT NULL,
			script BLOB NOT NULL,
			mined_height INTEGER,
			ownership TEXT NOT NULL CHECK (ownership IN ('spendable','watch_only','none')),
			spent_by_txid BLOB,
			PRIMARY KEY (txid, vout)
		)`,
		`CREATE INDEX idx_transparent_outputs_account ON transparent_outputs(account_id)`,
		`CREATE TABLE shard_roots (
			protocol TEXT NOT NULL CHECK (protocol IN ('sapling','orchard')),
			shard_index INTEGER NOT NULL,
			root BLOB NOT NULL,
			PRIMARY KEY (protocol, shard_index)
		)`,
		`CREATE TABLE transactions (
			txid BLOB PRIMARY KEY,
			raw BLOB NOT NULL,
			mined_height INTEGER,
			expiry_height INTEGER,
			fetched_at TEXT NOT NULL DEFAULT (datetime('now'))
		)`,
		`CREATE TABLE ext_zallet_db_version_metadata (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			version TEXT NOT NULL,
			git_revision TEXT NOT NULL,
			clean INTEGER NOT NULL,
			migrated TEXT NOT NULL
		)`,
	}
	for _, stmt := range stmts {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}

func applyKeystoreTables(ctx context.Context, tx *sql.Tx) error {
	stmts := []string{
		`CREATE TABLE ext_zallet_keystore_age_recipients (
			recipient TEXT PRIMARY KEY,
			added TEXT NOT NULL DEFAULT (datetime('now'))
		)`,
		`CREATE TABLE ext_zallet_keystore_mnemonics (
			hd_seed_fingerprint BLOB PRIMARY KEY,
			encrypted_mnemonic BLOB NOT NULL
		)`,
		`CREATE TABLE ext_zallet_keystore_legacy_seeds (
			legacy_seed_fingerprint BLOB PRIMARY KEY,
			encrypted_seed BLOB NOT NULL
		)`,
		`CREATE TABLE ext_zallet_keystore_standalone_sapling_keys (
			dfvk BLOB PRIMARY KEY,
			encrypted_sapling_extsk BLOB NOT NULL
		)`,
		`CREATE TABLE ext_zallet_keystore_standalone_transparent_keys (
			pubkey BLOB PRIMARY KEY,
			encrypted_transparent_privkey BLOB NOT NULL
		)`,
	}
	for _, stmt := range stmts {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}

// applyWalletTipTable adds the single-row table tracking the wallet's
// committed chain tip, separate from the notes/outputs it governs so the
// sync engine can read and update it without touching any scan data.
func applyWalletTipTable(ctx context.Context, tx *sql.Tx) error {
	_, err := tx.ExecContext(ctx, `
		CREATE TABLE wallet_tip (
			id INTEGER PRIMARY KEY CHECK (id = 0),
			height INTEGER NOT NULL,
			hash BLOB NOT NULL,
			prev_hash BLOB NOT NULL
		)`)
	return err
}

// applyCoinbaseColumn marks transparent outputs that originate from a
// coinbase transaction, so shielding operations can restrict selection to
// them without consulting the chain view a second time.
func applyCoinbaseColumn(ctx context.Context, tx *sql.Tx) error {
	_, err := tx.ExecContext(ctx,
		`ALTER TABLE transparent_outputs ADD COLUMN coinbase INTEGER NOT NULL DEFAULT 0`)
	return err
}

// applyBlockMetadataTable records (height, hash, prev_hash) for every block
// the wallet has scanned, giving the steady-state task the per-height
// ancestry it walks when locating a reorg's fork point.
func applyBlockMetadataTable(ctx context.Context, tx *sql.Tx) error {
	_, err := tx.ExecContext(ctx, `
		CREATE TABLE block_metadata (
			height INTEGER PRIMARY KEY,
			hash BLOB NOT NULL,
			prev_hash BLOB NOT NULL
		)`)
	return err
}

func applyScanAndRequestTables(ctx context.Context, tx *sql.Tx) error {
	stmts := []string{
		`CREATE TABLE scan_ranges (
			start_height INTEGER NOT NULL,
			end_height INTEGER NOT NULL,
			priority TEXT NOT NULL CHECK (priority IN ('verify','chain_tip','historic','open_adjacent','found_note','scanned')),
			PRIMARY KEY (start_height, end_height)
		)`,
		`CREATE TABLE tx_data_requests (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			kind TEXT NOT NULL CHECK (kind IN ('get_status','enhancement','transactions_involving_address')),
			txid BLOB,
			address TEXT,
			start_height INTEGER,
			end_height INTEGER,
			tx_status_filter TEXT,
			output_status_filter TEXT,
			requested_at TEXT NOT NULL DEFAULT (datetime('now')),
			satisfied_at_height INTEGER
		)`,
	}
	for _, stmt := range stmts {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}
