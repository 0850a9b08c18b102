// Package nameindex implements the shared name index (C1): a
// persisted, append-only bidirectional mapping between local name
// strings and small positive integers (§3, §6 "Name-index file").
//
// Integer 0 is never issued. Once a string is assigned an integer,
// that mapping holds forever (I5) — the index only ever grows.
package nameindex

import (
	"context"
	"database/sql"
	"fmt"
	"sync"

	"github.com/rogerblanton/jackrabbit/internal/perrors"
)

// Index is a thread-safe, database-backed name index. Reads are
// served from an in-memory cache after first load; writes go through
// the same statement-pool discipline as the rest of the engine (a
// single mutex serializing access to the underlying table).
type Index struct {
	db    *sql.DB
	table string // fully prefixed table name, e.g. "FOO_NAMEINDEX"

	mu       sync.Mutex
	byName   map[string]uint32
	byNumber map[uint32]string
	next     uint32
}

// Open loads the existing contents of table into memory and returns
// an Index ready for Lookup/Intern calls. table must already exist
// (the schema bootstrapper, C8, creates it alongside BUNDLE and REFS).
func Open(ctx context.Context, db *sql.DB, table string) (*Index, error) {
	idx := &Index{
		db:       db,
		table:    table,
		byName:   make(map[string]uint32),
		byNumber: make(map[uint32]string),
		next:     1, // integer 0 is never issued
	}

	rows, err := db.QueryContext(ctx, fmt.Sprintf("SELECT ID, NAME FROM %s", table))
	if err != nil {
		return nil, perrors.Wrap(perrors.StoreError, "load name index", err)
	}
	defer rows.Close()

	for rows.Next() {
		var id uint32
		var name string
		if err := rows.Scan(&id, &name); err != nil {
			return nil, perrors.Wrap(perrors.StoreError, "scan name index row", err)
		}
		idx.byName[name] = id
		idx.byNumber[id] = name
		if id >= idx.next {
			idx.next = id + 1
		}
	}
	if err := rows.Err(); err != nil {
		return nil, perrors.Wrap(perrors.StoreError, "iterate name index", err)
	}

	return idx, nil
}

// Lookup returns the integer assigned to name, if any.
func (idx *Index) Lookup(name string) (uint32, bool) {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	n, ok := idx.byName[name]
	return n, ok
}

// Resolve returns the string assigned to number, if any.
func (idx *Index) Resolve(number uint32) (string, bool) {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	s, ok := idx.byNumber[number]
	return s, ok
}

// Intern returns the integer for name, assigning and persisting a
// fresh one if it hasn't been seen before. Monotonic per I5: once
// assigned, a name's integer never changes.
func (idx *Index) Intern(ctx context.Context, name string) (uint32, error) {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	if n, ok := idx.byName[name]; ok {
		return n, nil
	}

	n := idx.next
	_, err := idx.db.ExecContext(ctx,
		fmt.Sprintf("INSERT INTO %s (ID, NAME) VALUES (?, ?)", idx.table), n, name)
	if err != nil {
		return 0, perrors.WrapItem(perrors.StoreError, "intern name", name, err)
	}

	idx.byName[name] = n
	idx.byNumber[n] = name
	idx.next = n + 1
	return n, nil
}
