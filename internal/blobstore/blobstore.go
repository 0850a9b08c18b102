// Package blobstore implements the blob store contract (C3, §4.2):
// content-addressed storage of opaque byte streams keyed by a blob id
// derived deterministically from property identity. Two interchangeable
// backends are provided: a database-resident one (dbblob.go) and a
// filesystem-resident one (fsblob.go).
package blobstore

import (
	"context"
	"database/sql"
	"fmt"
	"io"

	"github.com/rogerblanton/jackrabbit/internal/nodeid"
)

// Store is the blob store contract. Get returns a stream over the
// blob's bytes: FSStore streams from the open file, while DBStore
// reads the whole blob into memory before returning. Close releases
// any underlying file handle. Callers own the returned stream and
// must close it.
type Store interface {
	Put(ctx context.Context, blobID string, data io.Reader, size int64) error
	Get(ctx context.Context, blobID string) (io.ReadCloser, error)
	Remove(ctx context.Context, blobID string) (bool, error)
}

// txBinder is implemented by backends that can run under an existing
// *sql.Tx rather than going back to the connection pool for a
// separate statement. DBStore implements it; a backend that doesn't
// (FSStore) is left unchanged by WithTx.
type txBinder interface {
	WithTx(tx *sql.Tx) Store
}

// WithTx returns store bound to tx if store supports it, so blob
// writes and removals during a change-log commit (§4.1, §4.3) run on
// the transaction's connection instead of requesting a second one
// from a pool that, for the DB-resident backend, has exactly one.
// Returns store unchanged when tx is nil or store doesn't support
// binding.
func WithTx(store Store, tx *sql.Tx) Store {
	if store == nil || tx == nil {
		return store
	}
	if b, ok := store.(txBinder); ok {
		return b.WithTx(tx)
	}
	return store
}

// CreateID derives a blob id deterministically from the identity of
// the property value it will hold: the owning node, the property's
// qualified name (as namespace/name indices into the shared name
// index), and the value's position within a multi-valued property.
//
// Per §4.2: "{parentNodeId}.{nsIdx}.{nameIdx}.{valueIdx}" (ASCII).
// Distinct (parentID, ns, name, index) tuples never collide (P4),
// since the node id's 32 hex characters plus the dotted integers
// round-trip uniquely.
func CreateID(parentID nodeid.ID, namespaceIndex, nameIndex uint32, valueIndex int) string {
	return fmt.Sprintf("%s.%d.%d.%d", parentID.Hex(), namespaceIndex, nameIndex, valueIndex)
}
