package persistmgr

import (
	"context"
	"testing"

	"github.com/rogerblanton/jackrabbit/internal/bundle"
	"github.com/rogerblanton/jackrabbit/internal/nodeid"
	"github.com/rogerblanton/jackrabbit/internal/txn"
)

func openTestManager(t *testing.T) *Manager {
	t.Helper()
	cfg := &Config{
		Driver:             "sqlite3",
		URL:                ":memory:",
		Schema:             "default",
		SchemaObjectPrefix: "JR",
		MinBlobSize:        4096,
	}
	m := New(cfg)
	if err := m.Open(context.Background()); err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { m.Close() })
	return m
}

func TestManagerStoreAndLoadBundle(t *testing.T) {
	m := openTestManager(t)
	ctx := context.Background()

	id := nodeid.New()
	b := &bundle.NodePropBundle{ID: id, NodeTypeName: bundle.QName{NamespaceIndex: 1, NameIndex: 1}, IsNew: true}

	if err := m.Store(ctx, &txn.ChangeLog{AddedBundles: []*bundle.NodePropBundle{b}}); err != nil {
		t.Fatalf("Store: %v", err)
	}

	got, err := m.LoadBundle(ctx, id)
	if err != nil {
		t.Fatalf("LoadBundle: %v", err)
	}
	if got == nil || got.ID != id {
		t.Fatalf("unexpected load result: %+v", got)
	}
}

func TestManagerNamesInternsAcrossOpen(t *testing.T) {
	m := openTestManager(t)
	ctx := context.Background()

	n, err := m.Names().Intern(ctx, "jcr:primaryType")
	if err != nil {
		t.Fatalf("Intern: %v", err)
	}
	if n != 1 {
		t.Errorf("first interned id = %d, want 1", n)
	}
}

func TestManagerOpenTwiceFails(t *testing.T) {
	m := openTestManager(t)
	if err := m.Open(context.Background()); err == nil {
		t.Error("expected second Open to fail")
	}
}

func TestManagerCheckRunsConsistencyOnDemand(t *testing.T) {
	m := openTestManager(t)
	ctx := context.Background()

	parentID := nodeid.New()
	missingChild := nodeid.New()
	b := &bundle.NodePropBundle{
		ID:           parentID,
		NodeTypeName: bundle.QName{NamespaceIndex: 1, NameIndex: 1},
		ChildEntries: []bundle.ChildEntry{{Name: bundle.QName{NamespaceIndex: 1, NameIndex: 2}, ID: missingChild}},
		IsNew:        true,
	}
	if err := m.Store(ctx, &txn.ChangeLog{AddedBundles: []*bundle.NodePropBundle{b}}); err != nil {
		t.Fatalf("Store: %v", err)
	}

	report, err := m.Check(ctx, false)
	if err != nil {
		t.Fatalf("Check: %v", err)
	}
	if report.MissingChild != 1 {
		t.Errorf("MissingChild = %d, want 1", report.MissingChild)
	}
}

func TestManagerOperationBeforeOpenFails(t *testing.T) {
	m := New(&Config{Driver: "sqlite3", URL: ":memory:"})
	if _, err := m.LoadBundle(context.Background(), nodeid.New()); err == nil {
		t.Error("expected LoadBundle before Open to fail")
	}
}
