// Package txn applies a change log to the relational store atomically
// (C7): one *sql.Tx per call, committed only if every step succeeds.
package txn

import (
	"context"

	"github.com/rogerblanton/jackrabbit/internal/bundle"
	"github.com/rogerblanton/jackrabbit/internal/nodeid"
	"github.com/rogerblanton/jackrabbit/internal/perrors"
	"github.com/rogerblanton/jackrabbit/internal/sqlstore"
)

// ChangeLog carries the three disjoint bundle sets plus the reference
// sets touched by one save operation. ModifiedReferences covers both
// inserts (r.IsNew true, first non-empty write) and updates; a
// reference set that became empty belongs in RemovedReferenceTargets
// instead, never in ModifiedReferences with an empty PropertyIDs.
type ChangeLog struct {
	AddedBundles    []*bundle.NodePropBundle
	ModifiedBundles []*bundle.NodePropBundle
	RemovedBundles  []*bundle.NodePropBundle

	ModifiedReferences      []*bundle.NodeReferences
	RemovedReferenceTargets []nodeid.ID
}

// IsEmpty reports whether the change log has nothing to apply.
func (cl *ChangeLog) IsEmpty() bool {
	return len(cl.AddedBundles) == 0 && len(cl.ModifiedBundles) == 0 && len(cl.RemovedBundles) == 0 &&
		len(cl.ModifiedReferences) == 0 && len(cl.RemovedReferenceTargets) == 0
}

// Driver applies change logs against the bundle and references stores
// under the engine's single coarse lock.
type Driver struct {
	db *sqlstore.DB
	bs *sqlstore.BundleStore
	rs *sqlstore.ReferencesStore
}

func NewDriver(db *sqlstore.DB, bs *sqlstore.BundleStore, rs *sqlstore.ReferencesStore) *Driver {
	return &Driver{db: db, bs: bs, rs: rs}
}

// Store applies cl inside one transaction: bundle deletions, then
// reference-set deletions, then bundle insertions/updates, then
// reference-set insertions/updates (§4.4). Any failure rolls the
// transaction back and re-raises; success commits.
func (d *Driver) Store(ctx context.Context, cl *ChangeLog) error {
	if cl.IsEmpty() {
		return nil
	}

	d.db.Lock()
	defer d.db.Unlock()

	tx, err := d.db.Raw().BeginTx(ctx, nil)
	if err != nil {
		return perrors.Wrap(perrors.StoreError, "begin transaction", err)
	}
	defer tx.Rollback()

	for _, b := range cl.RemovedBundles {
		if err := d.bs.DestroyBundle(ctx, tx, b); err != nil {
			return err
		}
	}

	for _, targetID := range cl.RemovedReferenceTargets {
		if err := d.rs.DestroyReferences(ctx, tx, targetID); err != nil {
			return err
		}
	}

	for _, b := range cl.AddedBundles {
		if err := d.bs.StoreBundle(ctx, tx, b); err != nil {
			return err
		}
	}
	for _, b := range cl.ModifiedBundles {
		if err := d.bs.StoreBundle(ctx, tx, b); err != nil {
			return err
		}
	}

	for _, r := range cl.ModifiedReferences {
		if err := d.rs.StoreReferences(ctx, tx, r, r.IsNew); err != nil {
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		return perrors.Wrap(perrors.StoreError, "commit transaction", err)
	}
	return nil
}
