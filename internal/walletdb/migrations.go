package walletdb

import (
	"context"
	"database/sql"
	"fmt"
	"sort"

	"github.com/zallet-core/zallet/internal/zerr"
)

// migration is a single forward-only schema step, identified by a stable
// UUID and declaring the set of migrations it depends on. seedRequired
// marks a migration that needs the keystore's seed decrypted to backfill
// data (none of the built-in migrations need this today, but the flag
// exists so a future data-backfill migration can surface ErrSeedRequired
// distinctly from a generic failure).
type migration struct {
	id           string
	dependsOn    []string
	seedRequired bool
	apply        func(ctx context.Context, tx *sql.Tx) error
}

var registeredMigrations = []migration{
	{
		id:    "2f6b9c3e-0001-4a1b-9e8a-0f1d6c9b0001",
		apply: applyInitialSchema,
	},
	{
		id:        "2f6b9c3e-0002-4a1b-9e8a-0f1d6c9b0002",
		dependsOn: []string{"2f6b9c3e-0001-4a1b-9e8a-0f1d6c9b0001"},
		apply:     applyKeystoreTables,
	},
	{
		id:        "2f6b9c3e-0003-4a1b-9e8a-0f1d6c9b0003",
		dependsOn: []string{"2f6b9c3e-0002-4a1b-9e8a-0f1d6c9b0002"},
		apply:     applyScanAndRequestTables,
	},
	{
		id:        "2f6b9c3e-0004-4a1b-9e8a-0f1d6c9b0004",
		dependsOn: []string{"2f6b9c3e-0003-4a1b-9e8a-0f1d6c9b0003"},
		apply:     applyWalletTipTable,
	},
	{
		id:        "2f6b9c3e-0005-4a1b-9e8a-0f1d6c9b0005",
		dependsOn: []string{"2f6b9c3e-0001-4a1b-9e8a-0f1d6c9b0001"},
		apply:     applyCoinbaseColumn,
	},
	{
		id:        "2f6b9c3e-0006-4a1b-9e8a-0f1d6c9b0006",
		dependsOn: []string{"2f6b9c3e-0004-4a1b-9e8a-0f1d6c9b0004"},
		apply:     applyBlockMetadataTable,
	},
}

func (s *Store) migrate(ctx context.Context) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("walletdb: begin migration tx: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS ext_zallet_db_migrations (
			id TEXT PRIMARY KEY,
			applied_at TEXT NOT NULL DEFAULT (datetime('now'))
		)`); err != nil {
		return fmt.Errorf("%w: tracking table: %v", zerr.ErrMigrationFailed, err)
	}

	installed := map[string]bool{}
	rows, err := tx.QueryContext(ctx, `SELECT id FROM ext_zallet_db_migrations`)
	if err != nil {
		return fmt.Errorf("%w: %v", zerr.ErrMigrationFailed, err)
	}
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			rows.Close()
			return fmt.Errorf("%w: %v", zerr.ErrMigrationFailed, err)
		}
		installed[id] = true
	}
	rows.Close()

	pending := topoClosure(registeredMigrations, installed)
	for _, m := range pending {
		if m.seedRequired {
			return fmt.Errorf("%w: migration %s", zerr.ErrSeedRequired, m.id)
		}
		if err := m.apply(ctx, tx); err != nil {
			return fmt.Errorf("%w: %s: %v", zerr.ErrMigrationFailed, m.id, err)
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO ext_zallet_db_migrations(id) VALUES (?)`, m.id); err != nil {
			return fmt.Errorf("%w: recording %s: %v", zerr.ErrMigrationFailed, m.id, err)
		}
	}

	if err := appendVersionMetadata(ctx, tx); err != nil {
		return fmt.Errorf("%w: version metadata: %v", zerr.ErrMigrationFailed, err)
	}

	return tx.Commit()
}

// topoClosure returns the pending migrations (those not in installed) in an
// order that respects dependsOn, breaking ties by id for determinism.
func topoClosure(all []migration, installed map[string]bool) []migration {
	byID := make(map[string]migration, len(all))
	for _, m := range all {
		byID[m.id] = m
	}

	var order []migration
	visited := map[string]bool{}

	var visit func(id string)
	visit = func(id string) {
		if visited[id] || installed[id] {
			return
		}
		visited[id] = true
		m, ok := byID[id]
		if !ok {
			return
		}
		for _, dep := range m.dependsOn {
			visit(dep)
		}
		order = append(order, m)
	}

	ids := make([]string, 0, len(all))
	for _, m := range all {
		ids = append(ids, m.id)
	}
	sort.Strings(ids)
	for _, id := range ids {
		visit(id)
	}
	return order
}

func appendVersionMetadata(ctx context.Context, tx *sql.Tx) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO ext_zallet_db_version_metadata (version, git_revision, clean, migrated)
		VALUES (?, ?, ?, datetime('now'))`,
		Version, GitRevision, CleanTree)
	return err
}

// Version identifiers stamped into ext_zallet_db_version_metadata on every
// successful open. Overridable at link time via -ldflags.
var (
	Version     = "dev"
	GitRevision = "unknown"
	CleanTree   = true
)
