// Package walletdb implements the pooled SQLite-backed wallet data store:
// a single writer/many-reader handle over accounts, addresses, notes,
// transparent outputs, commitment-tree shards, scan ranges, transaction
// data requests, the keystore's own tables, and version metadata.
package walletdb

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/zallet-core/zallet/internal/build"
	"github.com/zallet-core/zallet/internal/zerr"
)

var log = build.NewLogger(build.SubsystemWalletDB)

// Store is the pooled handle over the wallet's SQLite database. It
// enforces "one exclusive writer xor many readers" at the process level via
// an RWMutex guarding access to the single underlying *sql.DB; SQLite
// itself is also pinned to one open connection since it is not safe for
// concurrent writers.
type Store struct {
	db      *sql.DB
	path    string
	mu      sync.RWMutex
	lockFD  *os.File
	scanner NoteScanner
}

// Open opens (creating if absent) the wallet database at dataDir/dbName,
// takes the data-directory filesystem lock, and applies any pending
// migrations.
func Open(ctx context.Context, dataDir, dbName string) (*Store, error) {
	if err := os.MkdirAll(dataDir, 0700); err != nil {
		return nil, fmt.Errorf("walletdb: create data dir: %w", err)
	}

	lockFD, err := acquireLock(filepath.Join(dataDir, ".lock"))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", zerr.ErrDataDirLocked, err)
	}

	dbPath := filepath.Join(dataDir, dbName)
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_synchronous=NORMAL&_busy_timeout=5000&_foreign_keys=on")
	if err != nil {
		lockFD.Close()
		return nil, fmt.Errorf("walletdb: open: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		lockFD.Close()
		return nil, fmt.Errorf("walletdb: ping: %w", err)
	}

	// SQLite allows only a single writer; the RWMutex above serializes at
	// the Go level, and this pins the driver to one physical connection so
	// "busy" errors cannot originate from connection-pool concurrency.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(time.Hour)

	s := &Store{db: db, path: dbPath, lockFD: lockFD}

	if err := s.migrate(ctx); err != nil {
		db.Close()
		lockFD.Close()
		return nil, err
	}

	log.Infof("opened wallet database at %s", dbPath)
	return s, nil
}

// Close releases the database connection and the data-directory lock.
func (s *Store) Close() error {
	err := s.db.Close()
	if s.lockFD != nil {
		s.lockFD.Close()
	}
	return err
}

// WithRead runs fn with a shared lock held, giving fn a *sql.DB usable for
// any number of concurrent read-only queries.
func (s *Store) WithRead(ctx context.Context, fn func(ctx context.Context, db *sql.DB) error) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return fn(ctx, s.db)
}

// WithWrite runs fn inside a single database transaction with the
// exclusive lock held; fn's transaction is committed if fn returns nil and
// rolled back otherwise.
func (s *Store) WithWrite(ctx context.Context, fn func(ctx context.Context, tx *sql.Tx) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%w: %v", zerr.ErrBusy, err)
	}
	if err := fn(ctx, tx); err != nil {
		tx.Rollback()
		return err
	}
	return tx.Commit()
}

// WithRaw runs fn with the raw *sql.DB and no lock held; callers must be
// prepared for "busy" results under concurrent writers. Intended for
// one-off administrative queries (e.g. CLI inspection commands).
func (s *Store) WithRaw(fn func(db *sql.DB) error) error {
	return fn(s.db)
}
