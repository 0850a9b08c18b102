package blobstore

import (
	"bytes"
	"context"
	"database/sql"
	"io"
	"testing"

	_ "github.com/mattn/go-sqlite3"

	"github.com/rogerblanton/jackrabbit/internal/perrors"
)

func openTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite3", ":memory:")
	if err != nil {
		t.Fatalf("open sqlite3: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	if _, err := db.Exec(`CREATE TABLE TEST_BINVAL (BINVAL_ID TEXT PRIMARY KEY, BINVAL_DATA BLOB)`); err != nil {
		t.Fatalf("create table: %v", err)
	}
	return db
}

func TestDBStorePutGetRoundTrip(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)
	store := NewDBStore(db, "TEST_BINVAL")

	want := bytes.Repeat([]byte{0xAA}, 32)
	if err := store.Put(ctx, "blob-1", bytes.NewReader(want), int64(len(want))); err != nil {
		t.Fatalf("Put: %v", err)
	}

	rc, err := store.Get(ctx, "blob-1")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	defer rc.Close()

	got, err := io.ReadAll(rc)
	if err != nil {
		t.Fatalf("ReadAll: %v", err)
	}
	if !bytes.Equal(got, want) {
		t.Errorf("got %x, want %x", got, want)
	}
}

func TestDBStoreGetMissingIsNoSuchItem(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)
	store := NewDBStore(db, "TEST_BINVAL")

	if _, err := store.Get(ctx, "nope"); !perrors.Is(err, perrors.NoSuchItem) {
		t.Errorf("expected NoSuchItem error for missing blob, got %v", err)
	}
}

func TestDBStoreRemove(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)
	store := NewDBStore(db, "TEST_BINVAL")

	if err := store.Put(ctx, "blob-1", bytes.NewReader([]byte("x")), 1); err != nil {
		t.Fatalf("Put: %v", err)
	}

	removed, err := store.Remove(ctx, "blob-1")
	if err != nil {
		t.Fatalf("Remove: %v", err)
	}
	if !removed {
		t.Error("expected Remove to report true for existing blob")
	}

	removedAgain, err := store.Remove(ctx, "blob-1")
	if err != nil {
		t.Fatalf("Remove (second): %v", err)
	}
	if removedAgain {
		t.Error("expected Remove to report false for already-removed blob")
	}
}

func TestDBStoreZeroLengthBlobReturnsEmptyStream(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)
	store := NewDBStore(db, "TEST_BINVAL")

	if err := store.Put(ctx, "empty", bytes.NewReader(nil), 0); err != nil {
		t.Fatalf("Put: %v", err)
	}

	rc, err := store.Get(ctx, "empty")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	defer rc.Close()

	got, err := io.ReadAll(rc)
	if err != nil {
		t.Fatalf("ReadAll: %v", err)
	}
	if len(got) != 0 {
		t.Errorf("got %d bytes, want 0", len(got))
	}
}
