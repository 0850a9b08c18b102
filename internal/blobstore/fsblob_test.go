package blobstore

import (
	"bytes"
	"context"
	"io"
	"testing"

	"github.com/spf13/afero"

	"github.com/rogerblanton/jackrabbit/internal/perrors"
)

func TestFSStorePutGetRoundTrip(t *testing.T) {
	ctx := context.Background()
	fs := afero.NewMemMapFs()
	store := NewFSStore(fs, "/workspace/blobs")

	want := []byte("hello blob store")
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
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestFSStoreFanOutIsStable(t *testing.T) {
	fs := afero.NewMemMapFs()
	store := NewFSStore(fs, "/workspace/blobs")

	p1 := store.pathFor("blob-1")
	p2 := store.pathFor("blob-1")
	if p1 != p2 {
		t.Errorf("pathFor not stable: %q != %q", p1, p2)
	}
}

func TestFSStoreRemove(t *testing.T) {
	ctx := context.Background()
	fs := afero.NewMemMapFs()
	store := NewFSStore(fs, "/workspace/blobs")

	if err := store.Put(ctx, "blob-1", bytes.NewReader([]byte("x")), 1); err != nil {
		t.Fatalf("Put: %v", err)
	}

	removed, err := store.Remove(ctx, "blob-1")
	if err != nil {
		t.Fatalf("Remove: %v", err)
	}
	if !removed {
		t.Error("expected Remove to report true")
	}

	if _, err := store.Get(ctx, "blob-1"); err == nil {
		t.Error("expected error reading removed blob")
	}
}

func TestFSStoreGetMissingIsNoSuchItem(t *testing.T) {
	ctx := context.Background()
	fs := afero.NewMemMapFs()
	store := NewFSStore(fs, "/workspace/blobs")

	if _, err := store.Get(ctx, "missing"); !perrors.Is(err, perrors.NoSuchItem) {
		t.Errorf("expected NoSuchItem error for missing blob, got %v", err)
	}
}
