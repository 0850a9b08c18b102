package sqlstore

import (
	"context"
	"database/sql"

	"github.com/rogerblanton/jackrabbit/internal/blobstore"
	"github.com/rogerblanton/jackrabbit/internal/bundle"
	"github.com/rogerblanton/jackrabbit/internal/codec"
	"github.com/rogerblanton/jackrabbit/internal/nodeid"
	"github.com/rogerblanton/jackrabbit/internal/perrors"
)

// BundleStore is the bundle CRUD layer (C5), built on the statement
// pool (C4). Every method must be called with db.Lock held (§5); none
// of them lock internally, since a caller assembling a change log
// (C7) needs the lock held across several calls.
type BundleStore struct {
	db          *DB
	blobs       blobstore.Store
	minBlobSize int64
}

// NewBundleStore constructs a BundleStore. blobs may be nil if the
// engine never externalizes binary values (minBlobSize effectively
// infinite).
func NewBundleStore(db *DB, blobs blobstore.Store, minBlobSize int64) *BundleStore {
	return &BundleStore{db: db, blobs: blobs, minBlobSize: minBlobSize}
}

func stmtFor(tx *sql.Tx, stmt *sql.Stmt) *sql.Stmt {
	if tx == nil {
		return stmt
	}
	return tx.Stmt(stmt)
}

// LoadBundle selects by id and decodes the payload. It returns
// (nil, nil) if no row exists — callers test for absence that way,
// matching §4.3's "if empty row, return absent". Scanning the BLOB
// column into a []byte copies the whole payload out before the
// cursor is released, so the driver never ties decoding to a live
// cursor.
func (bs *BundleStore) LoadBundle(ctx context.Context, id nodeid.ID) (*bundle.NodePropBundle, error) {
	row := bs.db.bundleSelect.QueryRowContext(ctx, keyArgs(bs.db.model, id)...)

	var payload []byte
	if err := row.Scan(&payload); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, perrors.WrapItem(perrors.StoreError, "select bundle", id.String(), err)
	}

	b, err := codec.Decode(payload)
	if err != nil {
		return nil, perrors.WrapItem(perrors.DecodingError, "decode bundle", id.String(), err)
	}
	b.ID = id
	return b, nil
}

// ExistsBundle reports whether a row exists for id, without decoding
// the payload.
func (bs *BundleStore) ExistsBundle(ctx context.Context, id nodeid.ID) (bool, error) {
	row := bs.db.bundleSelect.QueryRowContext(ctx, keyArgs(bs.db.model, id)...)
	var payload []byte
	if err := row.Scan(&payload); err != nil {
		if err == sql.ErrNoRows {
			return false, nil
		}
		return false, perrors.WrapItem(perrors.StoreError, "select bundle", id.String(), err)
	}
	return true, nil
}

// StoreBundle encodes b and inserts or updates it depending on
// b.IsNew, which the caller's change log supplies rather than this
// method inferring it from a read-before-write (§4.3).
func (bs *BundleStore) StoreBundle(ctx context.Context, tx *sql.Tx, b *bundle.NodePropBundle) error {
	payload, err := codec.Encode(ctx, b, codec.EncodeOptions{MinBlobSize: bs.minBlobSize, Blobs: blobstore.WithTx(bs.blobs, tx)})
	if err != nil {
		return perrors.WrapItem(perrors.EncodingError, "encode bundle", b.ID.String(), err)
	}

	key := keyArgs(bs.db.model, b.ID)

	if b.IsNew {
		args := append(append([]any{}, key...), payload)
		stmt := stmtFor(tx, bs.db.bundleInsert)
		if _, err := stmt.ExecContext(ctx, args...); err != nil {
			return perrors.WrapItem(perrors.StoreError, "insert bundle", b.ID.String(), err)
		}
		return nil
	}

	args := append([]any{payload}, key...)
	stmt := stmtFor(tx, bs.db.bundleUpdate)
	if _, err := stmt.ExecContext(ctx, args...); err != nil {
		return perrors.WrapItem(perrors.StoreError, "update bundle", b.ID.String(), err)
	}
	return nil
}

// DestroyBundle deletes the bundle row and removes every externalized
// blob its properties referenced, as a follow-up step in the same
// transaction (§4.1, §4.3).
func (bs *BundleStore) DestroyBundle(ctx context.Context, tx *sql.Tx, b *bundle.NodePropBundle) error {
	stmt := stmtFor(tx, bs.db.bundleDelete)
	if _, err := stmt.ExecContext(ctx, keyArgs(bs.db.model, b.ID)...); err != nil {
		return perrors.WrapItem(perrors.StoreError, "delete bundle", b.ID.String(), err)
	}

	if bs.blobs == nil {
		return nil
	}
	blobs := blobstore.WithTx(bs.blobs, tx)
	for _, blobID := range codec.CollectBlobIDs(b) {
		if _, err := blobs.Remove(ctx, blobID); err != nil {
			return perrors.WrapItem(perrors.BlobError, "remove externalized blob", blobID, err)
		}
	}
	return nil
}

