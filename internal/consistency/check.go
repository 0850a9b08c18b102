// Package consistency implements the full-scan parent/child integrity
// checker (C9).
package consistency

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/rogerblanton/jackrabbit/internal/bundle"
	"github.com/rogerblanton/jackrabbit/internal/codec"
	"github.com/rogerblanton/jackrabbit/internal/nodeid"
	"github.com/rogerblanton/jackrabbit/internal/perrors"
	"github.com/rogerblanton/jackrabbit/internal/sqlstore"
)

// Options configures a Run.
type Options struct {
	// Fix, when true, rewrites bundles whose child entries point at
	// missing rows, removing the dangling entries.
	Fix bool

	// Policy governs missing-child severity (§7's last paragraph):
	// when Policy.LenientMissingChild is set, a missing child is still
	// logged and still eligible for repair, but doesn't count toward
	// Report.Problems.
	Policy perrors.Policy
}

// Report summarizes one run: counters only, no per-bundle detail
// (that goes to the logger as it happens).
type Report struct {
	Scanned       int
	DecodeErrors  int
	MissingChild  int
	WrongParent   int
	MissingParent int
	Repaired      int

	// Problems is the subset of the above counters that should fail a
	// check, after applying Options.Policy's leniency.
	Problems int
}

// Run performs a full scan over every bundle row, logging integrity
// problems and, if opts.Fix is set, repairing dangling child entries
// one bundle-transaction at a time after the scan completes.
//
// The progress log reports a running scanned count; it never reports
// a total, since the row count isn't known up front without a second
// pass the source never bothered with either.
//
// The scan's own rows cursor is fully drained and closed before any
// per-bundle check below issues its own query (a LoadBundle for a
// child or parent id): both would otherwise contend for the single
// connection the engine's DB holds (§5), and a live cursor plus a
// nested query on that same connection deadlocks rather than queues.
func Run(ctx context.Context, db *sqlstore.DB, bs *sqlstore.BundleStore, opts Options) (Report, error) {
	type scannedRow struct {
		id      nodeid.ID
		payload []byte
	}

	db.Lock()
	rows, err := db.Raw().QueryContext(ctx,
		fmt.Sprintf(`SELECT %s, BUNDLE_DATA FROM %sBUNDLE`, db.KeyColumns(), db.Prefix()))
	if err != nil {
		db.Unlock()
		return Report{}, perrors.Wrap(perrors.StoreError, "scan bundles", err)
	}

	var buffered []scannedRow
	for rows.Next() {
		var payload []byte
		id, err := db.ScanRowID(rows, &payload)
		if err != nil {
			rows.Close()
			db.Unlock()
			return Report{}, perrors.Wrap(perrors.StoreError, "scan bundle row", err)
		}
		buffered = append(buffered, scannedRow{id: id, payload: payload})
	}
	rowsErr := rows.Err()
	rows.Close()
	if rowsErr != nil {
		db.Unlock()
		return Report{}, perrors.Wrap(perrors.StoreError, "iterate bundle rows", rowsErr)
	}

	var report Report
	var toRepair []*bundle.NodePropBundle

	for _, row := range buffered {
		report.Scanned++

		b, err := codec.Decode(row.payload)
		if err != nil {
			report.DecodeErrors++
			report.Problems++
			offset, checkErr := codec.Check(row.payload)
			slog.Error("bundle decode failed",
				"id", row.id,
				"offset", offset,
				"check_err", checkErr,
				"decode_err", err,
			)
			continue
		}
		b.ID = row.id

		if repaired := checkBundle(ctx, bs, b, &report, opts.Policy); repaired != nil {
			toRepair = append(toRepair, repaired)
		}

		if report.Scanned%1000 == 0 {
			slog.Info("consistency scan progress", "scanned", report.Scanned)
		}
	}
	db.Unlock()

	slog.Info("consistency scan complete",
		"scanned", report.Scanned,
		"decode_errors", report.DecodeErrors,
		"missing_child", report.MissingChild,
		"wrong_parent", report.WrongParent,
		"missing_parent", report.MissingParent,
	)

	if !opts.Fix || len(toRepair) == 0 {
		return report, nil
	}

	for _, b := range toRepair {
		if err := repairOne(ctx, db, bs, b); err != nil {
			return report, err
		}
		report.Repaired++
	}
	return report, nil
}

// checkBundle validates b's child entries and parent linkage against
// the store, updating report's counters. If repair is warranted it
// returns a clone with the dangling entries removed; otherwise nil.
func checkBundle(ctx context.Context, bs *sqlstore.BundleStore, b *bundle.NodePropBundle, report *Report, policy perrors.Policy) *bundle.NodePropBundle {
	var repaired *bundle.NodePropBundle

	for _, child := range b.ChildEntries {
		if nodeid.IsSentinel(child.ID) {
			continue
		}

		childBundle, err := bs.LoadBundle(ctx, child.ID)
		if err != nil {
			slog.Error("consistency check: failed to load child", "parent", b.ID, "child", child.ID, "err", err)
			continue
		}
		if childBundle == nil {
			report.MissingChild++
			if !policy.LenientMissingChild {
				report.Problems++
			}
			slog.Warn("missing child", "parent", b.ID, "child", child.ID, "name", child.Name, "lenient", policy.LenientMissingChild)
			if repaired == nil {
				repaired = b.Clone()
			}
			removeChildEntry(repaired, child)
			continue
		}

		if childBundle.ParentID == nil || *childBundle.ParentID != b.ID {
			report.WrongParent++
			report.Problems++
			slog.Warn("wrong parent", "expected", b.ID, "child", child.ID, "actual", childBundle.ParentID)
		}
	}

	if b.ParentID != nil {
		parent, err := bs.LoadBundle(ctx, *b.ParentID)
		if err != nil {
			slog.Error("consistency check: failed to load parent", "bundle", b.ID, "parent", *b.ParentID, "err", err)
		} else if parent == nil {
			report.MissingParent++
			report.Problems++
			slog.Warn("missing parent", "bundle", b.ID, "parent", *b.ParentID)
		}
	}

	return repaired
}

func removeChildEntry(b *bundle.NodePropBundle, target bundle.ChildEntry) {
	out := b.ChildEntries[:0]
	for _, c := range b.ChildEntries {
		if c.ID == target.ID && c.Name == target.Name {
			continue
		}
		out = append(out, c)
	}
	b.ChildEntries = out
}

// repairOne rewrites b via an update, inside its own transaction — one
// bundle per transaction, not one giant transaction, so a single
// repair failure doesn't lose every other repair in the batch.
func repairOne(ctx context.Context, db *sqlstore.DB, bs *sqlstore.BundleStore, b *bundle.NodePropBundle) error {
	db.Lock()
	defer db.Unlock()

	tx, err := db.Raw().BeginTx(ctx, nil)
	if err != nil {
		return perrors.Wrap(perrors.StoreError, "begin repair transaction", err)
	}
	defer tx.Rollback()

	b.IsNew = false
	if err := bs.StoreBundle(ctx, tx, b); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return perrors.Wrap(perrors.StoreError, "commit repair transaction", err)
	}
	slog.Info("repaired bundle", "id", b.ID, "remaining_children", len(b.ChildEntries))
	return nil
}
