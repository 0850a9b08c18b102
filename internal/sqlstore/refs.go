package sqlstore

import (
	"context"
	"database/sql"
	"encoding/binary"
	"fmt"

	"github.com/rogerblanton/jackrabbit/internal/bundle"
	"github.com/rogerblanton/jackrabbit/internal/nodeid"
	"github.com/rogerblanton/jackrabbit/internal/perrors"
)

// ReferencesStore is the back-reference CRUD layer (C6), identical in
// pattern to BundleStore but over the REFS table; values are a
// length-prefixed sequence of property ids (§4.3).
type ReferencesStore struct {
	db *DB
}

func NewReferencesStore(db *DB) *ReferencesStore {
	return &ReferencesStore{db: db}
}

// LoadReferences returns (nil, nil) if no row exists for targetID.
func (rs *ReferencesStore) LoadReferences(ctx context.Context, targetID nodeid.ID) (*bundle.NodeReferences, error) {
	row := rs.db.refsSelect.QueryRowContext(ctx, keyArgs(rs.db.model, targetID)...)

	var payload []byte
	if err := row.Scan(&payload); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, perrors.WrapItem(perrors.StoreError, "select references", targetID.String(), err)
	}

	ids, err := decodePropertyIDs(payload)
	if err != nil {
		return nil, perrors.WrapItem(perrors.DecodingError, "decode references", targetID.String(), err)
	}
	return &bundle.NodeReferences{TargetID: targetID, PropertyIDs: ids}, nil
}

// StoreReferences inserts or updates r's row depending on isNew,
// matching BundleStore's caller-supplied new/existing flag.
func (rs *ReferencesStore) StoreReferences(ctx context.Context, tx *sql.Tx, r *bundle.NodeReferences, isNew bool) error {
	payload := encodePropertyIDs(r.PropertyIDs)
	key := keyArgs(rs.db.model, r.TargetID)

	if isNew {
		args := append(append([]any{}, key...), payload)
		stmt := stmtFor(tx, rs.db.refsInsert)
		if _, err := stmt.ExecContext(ctx, args...); err != nil {
			return perrors.WrapItem(perrors.StoreError, "insert references", r.TargetID.String(), err)
		}
		return nil
	}

	args := append([]any{payload}, key...)
	stmt := stmtFor(tx, rs.db.refsUpdate)
	if _, err := stmt.ExecContext(ctx, args...); err != nil {
		return perrors.WrapItem(perrors.StoreError, "update references", r.TargetID.String(), err)
	}
	return nil
}

// DestroyReferences deletes the row for targetID. Called when a
// reference set becomes empty (§3 Lifecycles).
func (rs *ReferencesStore) DestroyReferences(ctx context.Context, tx *sql.Tx, targetID nodeid.ID) error {
	stmt := stmtFor(tx, rs.db.refsDelete)
	if _, err := stmt.ExecContext(ctx, keyArgs(rs.db.model, targetID)...); err != nil {
		return perrors.WrapItem(perrors.StoreError, "delete references", targetID.String(), err)
	}
	return nil
}

// encodePropertyIDs writes a u32 count followed by, for each id, the
// 16-byte owner node id and the two u32 halves of its qualified name.
func encodePropertyIDs(ids []bundle.PropertyID) []byte {
	buf := make([]byte, 4+len(ids)*24)
	binary.BigEndian.PutUint32(buf[0:4], uint32(len(ids)))
	off := 4
	for _, pid := range ids {
		copy(buf[off:off+16], pid.OwnerID.Bytes())
		binary.BigEndian.PutUint32(buf[off+16:off+20], pid.Name.NamespaceIndex)
		binary.BigEndian.PutUint32(buf[off+20:off+24], pid.Name.NameIndex)
		off += 24
	}
	return buf
}

func decodePropertyIDs(data []byte) ([]bundle.PropertyID, error) {
	if len(data) < 4 {
		return nil, fmt.Errorf("sqlstore: truncated references payload")
	}
	count := binary.BigEndian.Uint32(data[0:4])
	ids := make([]bundle.PropertyID, count)
	off := 4
	for i := range ids {
		if off+24 > len(data) {
			return nil, fmt.Errorf("sqlstore: truncated property id at index %d", i)
		}
		ownerID, err := nodeid.FromBytes(data[off : off+16])
		if err != nil {
			return nil, err
		}
		ids[i] = bundle.PropertyID{
			OwnerID: ownerID,
			Name: bundle.QName{
				NamespaceIndex: binary.BigEndian.Uint32(data[off+16 : off+20]),
				NameIndex:      binary.BigEndian.Uint32(data[off+20 : off+24]),
			},
		}
		off += 24
	}
	return ids, nil
}
