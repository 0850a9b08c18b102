package blobstore

import (
	"bytes"
	"context"
	"database/sql"
	"io"

	"github.com/rogerblanton/jackrabbit/internal/perrors"
)

// dbExecer is satisfied by both *sql.DB and *sql.Tx, letting DBStore
// run against either a pooled connection or a caller's transaction.
type dbExecer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// DBStore is the database-resident blob backend: a single
// BINVAL(BINVAL_ID TEXT PK, BINVAL_DATA BLOB) table, operations are
// single-statement (§4.2). Selected when externalBLOBs is false.
type DBStore struct {
	db    dbExecer
	table string // fully prefixed table name, e.g. "FOO_BINVAL"
}

// NewDBStore wraps db, assuming table already exists (created by the
// schema bootstrapper, C8).
func NewDBStore(db *sql.DB, table string) *DBStore {
	return &DBStore{db: db, table: table}
}

// WithTx returns a DBStore bound to tx, so Put/Remove execute on the
// transaction's connection instead of checking out another one from
// a pool that may have only one (§5). Implements blobstore.txBinder.
func (s *DBStore) WithTx(tx *sql.Tx) Store {
	return &DBStore{db: tx, table: s.table}
}

// Put writes every byte read from data under blobID, replacing any
// existing row with that id. size is not used to limit the read.
func (s *DBStore) Put(ctx context.Context, blobID string, data io.Reader, size int64) error {
	buf, err := io.ReadAll(data)
	if err != nil {
		return perrors.WrapItem(perrors.BlobError, "read blob payload", blobID, err)
	}
	if int64(len(buf)) != size && size >= 0 {
		// Size is advisory in the contract; trust what was actually read.
		size = int64(len(buf))
	}

	_, err = s.db.ExecContext(ctx,
		"INSERT INTO "+s.table+" (BINVAL_ID, BINVAL_DATA) VALUES (?, ?) "+
			"ON CONFLICT(BINVAL_ID) DO UPDATE SET BINVAL_DATA = excluded.BINVAL_DATA",
		blobID, buf)
	if err != nil {
		return perrors.WrapItem(perrors.BlobError, "put blob", blobID, err)
	}
	return nil
}

// Get returns a stream over the blob's bytes. The whole blob is read
// into memory before the stream is returned; the stream does not read
// lazily from the database. A zero-length blob that the database
// materializes as NULL is transparently returned as an empty stream,
// per §4.2.
func (s *DBStore) Get(ctx context.Context, blobID string) (io.ReadCloser, error) {
	var data []byte
	err := s.db.QueryRowContext(ctx,
		"SELECT BINVAL_DATA FROM "+s.table+" WHERE BINVAL_ID = ?", blobID).Scan(&data)
	if err == sql.ErrNoRows {
		return nil, perrors.WrapItem(perrors.NoSuchItem, "blob not found", blobID, err)
	}
	if err != nil {
		return nil, perrors.WrapItem(perrors.BlobError, "get blob", blobID, err)
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

// Remove deletes the row for blobID, reporting whether a row existed.
func (s *DBStore) Remove(ctx context.Context, blobID string) (bool, error) {
	res, err := s.db.ExecContext(ctx, "DELETE FROM "+s.table+" WHERE BINVAL_ID = ?", blobID)
	if err != nil {
		return false, perrors.WrapItem(perrors.BlobError, "remove blob", blobID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, perrors.WrapItem(perrors.BlobError, "remove blob: rows affected", blobID, err)
	}
	return n > 0, nil
}
