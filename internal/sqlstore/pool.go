// Package sqlstore implements the relational persistence layer: the
// schema bootstrapper (C8), the prepared-statement pool (C4), and the
// bundle and references stores built on top of it (C5, C6). A single
// *sql.DB with one open connection is shared, guarded by one coarse
// mutex, matching the teacher's store.Open/Store discipline.
package sqlstore

import (
	"database/sql"
	"fmt"
	"sync"

	_ "github.com/mattn/go-sqlite3"

	"github.com/rogerblanton/jackrabbit/internal/nodeid"
	"github.com/rogerblanton/jackrabbit/internal/perrors"
)

// Options configures Open.
type Options struct {
	Driver             string // e.g. "sqlite3"; opaque, passed to sql.Open
	DataSourceName     string
	SchemaName         string // selects schema/<SchemaName>.ddl
	SchemaObjectPrefix string // already sanitized; prepended to table names
	Model              nodeid.StorageModel
	ExternalBlobs      bool // true: FS-resident blobs, skip BINVAL DDL
}

// DB owns the single shared connection, the eight prepared statements
// of the statement pool (C4), and the engine-wide lock that serializes
// every database-touching operation (§5).
type DB struct {
	sql    *sql.DB
	mu     sync.Mutex
	model  nodeid.StorageModel
	prefix string

	bundleInsert *sql.Stmt
	bundleUpdate *sql.Stmt
	bundleSelect *sql.Stmt
	bundleDelete *sql.Stmt

	refsInsert *sql.Stmt
	refsUpdate *sql.Stmt
	refsSelect *sql.Stmt
	refsDelete *sql.Stmt
}

// Open opens the connection, applies pragmas, bootstraps the schema
// (C8) if needed, and prepares the eight statements of the pool (C4).
func Open(opts Options) (*DB, error) {
	sqlDB, err := sql.Open(opts.Driver, opts.DataSourceName)
	if err != nil {
		return nil, perrors.Wrap(perrors.ConnectionError, "open database", err)
	}
	if err := sqlDB.Ping(); err != nil {
		sqlDB.Close()
		return nil, perrors.Wrap(perrors.ConnectionError, "connect to database", err)
	}

	// A single connection avoids SQLITE_BUSY from concurrent writers;
	// the engine lock below serializes all access anyway (§5).
	sqlDB.SetMaxOpenConns(1)
	sqlDB.SetMaxIdleConns(1)

	if opts.Driver == "sqlite3" {
		if err := applyPragmas(sqlDB); err != nil {
			sqlDB.Close()
			return nil, perrors.Wrap(perrors.ConnectionError, "apply pragmas", err)
		}
	}

	if err := Bootstrap(sqlDB, opts.SchemaName, opts.SchemaObjectPrefix, opts.ExternalBlobs); err != nil {
		sqlDB.Close()
		return nil, err
	}

	db := &DB{sql: sqlDB, model: opts.Model, prefix: opts.SchemaObjectPrefix}
	if err := db.prepareStatements(); err != nil {
		sqlDB.Close()
		return nil, err
	}
	return db, nil
}

func applyPragmas(db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA foreign_keys = ON",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			return fmt.Errorf("exec %q: %w", p, err)
		}
	}
	return nil
}

// keySpec describes how NodeId binds to key columns under the
// configured storage model (§3).
type keySpec struct {
	columns      string
	placeholders string
	whereClause  string
}

func keySpecFor(model nodeid.StorageModel) keySpec {
	switch model {
	case nodeid.SplitLong:
		return keySpec{
			columns:      "NODE_ID_HI, NODE_ID_LO",
			placeholders: "?, ?",
			whereClause:  "NODE_ID_HI = ? AND NODE_ID_LO = ?",
		}
	default:
		return keySpec{
			columns:      "NODE_ID",
			placeholders: "?",
			whereClause:  "NODE_ID = ?",
		}
	}
}

func keyArgs(model nodeid.StorageModel, id nodeid.ID) []any {
	if model == nodeid.SplitLong {
		hi, lo := id.HiLo()
		return []any{int64(hi), int64(lo)}
	}
	return []any{id.Bytes()}
}

func (db *DB) prepareStatements() error {
	ks := keySpecFor(db.model)

	var err error
	db.bundleInsert, err = db.sql.Prepare(fmt.Sprintf(
		`INSERT INTO %sBUNDLE (%s, BUNDLE_DATA) VALUES (%s, ?)`,
		db.prefix, ks.columns, ks.placeholders))
	if err != nil {
		return perrors.Wrap(perrors.SchemaError, "prepare bundle insert", err)
	}

	db.bundleUpdate, err = db.sql.Prepare(fmt.Sprintf(
		`UPDATE %sBUNDLE SET BUNDLE_DATA = ? WHERE %s`,
		db.prefix, ks.whereClause))
	if err != nil {
		return perrors.Wrap(perrors.SchemaError, "prepare bundle update", err)
	}

	db.bundleSelect, err = db.sql.Prepare(fmt.Sprintf(
		`SELECT BUNDLE_DATA FROM %sBUNDLE WHERE %s`,
		db.prefix, ks.whereClause))
	if err != nil {
		return perrors.Wrap(perrors.SchemaError, "prepare bundle select", err)
	}

	db.bundleDelete, err = db.sql.Prepare(fmt.Sprintf(
		`DELETE FROM %sBUNDLE WHERE %s`,
		db.prefix, ks.whereClause))
	if err != nil {
		return perrors.Wrap(perrors.SchemaError, "prepare bundle delete", err)
	}

	db.refsInsert, err = db.sql.Prepare(fmt.Sprintf(
		`INSERT INTO %sREFS (%s, REFS_DATA) VALUES (%s, ?)`,
		db.prefix, ks.columns, ks.placeholders))
	if err != nil {
		return perrors.Wrap(perrors.SchemaError, "prepare refs insert", err)
	}

	db.refsUpdate, err = db.sql.Prepare(fmt.Sprintf(
		`UPDATE %sREFS SET REFS_DATA = ? WHERE %s`,
		db.prefix, ks.whereClause))
	if err != nil {
		return perrors.Wrap(perrors.SchemaError, "prepare refs update", err)
	}

	db.refsSelect, err = db.sql.Prepare(fmt.Sprintf(
		`SELECT REFS_DATA FROM %sREFS WHERE %s`,
		db.prefix, ks.whereClause))
	if err != nil {
		return perrors.Wrap(perrors.SchemaError, "prepare refs select", err)
	}

	db.refsDelete, err = db.sql.Prepare(fmt.Sprintf(
		`DELETE FROM %sREFS WHERE %s`,
		db.prefix, ks.whereClause))
	if err != nil {
		return perrors.Wrap(perrors.SchemaError, "prepare refs delete", err)
	}

	return nil
}

// Lock acquires the single coarse lock that serializes every
// database-touching operation against this DB (§5). Callers — the
// bundle and references stores, the transactional write driver, the
// consistency checker — must hold it for the duration of one logical
// operation (a single read, or an entire change-log commit).
func (db *DB) Lock() { db.mu.Lock() }

// Unlock releases the lock acquired by Lock.
func (db *DB) Unlock() { db.mu.Unlock() }

// Raw exposes the underlying *sql.DB for the consistency checker's
// full-table scan and the transactional write driver's Begin call.
func (db *DB) Raw() *sql.DB { return db.sql }

// KeyColumns returns the key column list for the configured storage
// model, e.g. "NODE_ID" or "NODE_ID_HI, NODE_ID_LO" — the column order
// ScanRowID expects a query to select them in.
func (db *DB) KeyColumns() string {
	return keySpecFor(db.model).columns
}

// ScanRowID scans one row of a query that selected KeyColumns()
// followed by a single payload BLOB column, writing the blob into
// payload and returning the reconstructed node id.
func (db *DB) ScanRowID(rows *sql.Rows, payload *[]byte) (nodeid.ID, error) {
	if db.model == nodeid.SplitLong {
		var hi, lo int64
		if err := rows.Scan(&hi, &lo, payload); err != nil {
			return nodeid.ID{}, err
		}
		return nodeid.FromHiLo(uint64(hi), uint64(lo)), nil
	}
	var raw []byte
	if err := rows.Scan(&raw, payload); err != nil {
		return nodeid.ID{}, err
	}
	return nodeid.FromBytes(raw)
}

// Model reports the storage model this DB was opened with.
func (db *DB) Model() nodeid.StorageModel { return db.model }

// Prefix reports the sanitized schema object prefix this DB was opened
// with.
func (db *DB) Prefix() string { return db.prefix }

// Close releases the connection and all prepared statements.
func (db *DB) Close() error {
	for _, stmt := range []*sql.Stmt{
		db.bundleInsert, db.bundleUpdate, db.bundleSelect, db.bundleDelete,
		db.refsInsert, db.refsUpdate, db.refsSelect, db.refsDelete,
	} {
		if stmt != nil {
			stmt.Close()
		}
	}
	return db.sql.Close()
}
