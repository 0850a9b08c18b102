package blobstore

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"io"
	"os"
	"path"

	"github.com/spf13/afero"

	"github.com/rogerblanton/jackrabbit/internal/perrors"
)

// FSStore is the filesystem-resident blob backend: a directory tree
// rooted at a workspace-relative "blobs" directory, with path derived
// from the blob id via a stable hash fan-out (§4.2, §"Supplemented
// Features" #3). Built on afero.Fs so the same code can target other
// substrates — afero.NewOsFs() in production, afero.NewMemMapFs() in
// tests — exactly the "FileSystem abstraction" §4.2 calls for.
type FSStore struct {
	fs   afero.Fs
	root string
}

// NewFSStore roots the backend at root (e.g. "<workspace>/blobs") on fs.
func NewFSStore(fs afero.Fs, root string) *FSStore {
	return &FSStore{fs: fs, root: root}
}

// pathFor derives a stable two-level fan-out path for blobID from the
// first four hex characters of SHA-256(blobID), so no single
// directory accumulates every blob in the store.
func (s *FSStore) pathFor(blobID string) string {
	sum := sha256.Sum256([]byte(blobID))
	fanOut := hex.EncodeToString(sum[:2]) // 4 hex chars
	return path.Join(s.root, fanOut[0:2], fanOut[2:4], blobID)
}

// Put writes data to the derived path, creating intermediate
// directories as needed.
func (s *FSStore) Put(ctx context.Context, blobID string, data io.Reader, size int64) error {
	p := s.pathFor(blobID)
	if err := s.fs.MkdirAll(path.Dir(p), 0o755); err != nil {
		return perrors.WrapItem(perrors.BlobError, "create blob directory", blobID, err)
	}

	f, err := s.fs.Create(p)
	if err != nil {
		return perrors.WrapItem(perrors.BlobError, "create blob file", blobID, err)
	}
	defer f.Close()

	if _, err := io.Copy(f, data); err != nil {
		return perrors.WrapItem(perrors.BlobError, "write blob file", blobID, err)
	}
	return nil
}

// Get opens the blob file for streaming read. The returned
// io.ReadCloser's Close releases the underlying file handle.
func (s *FSStore) Get(ctx context.Context, blobID string) (io.ReadCloser, error) {
	p := s.pathFor(blobID)
	f, err := s.fs.Open(p)
	if os.IsNotExist(err) {
		return nil, perrors.WrapItem(perrors.NoSuchItem, "blob not found", blobID, err)
	}
	if err != nil {
		return nil, perrors.WrapItem(perrors.BlobError, "open blob file", blobID, err)
	}
	return f, nil
}

// Remove deletes the blob file, reporting whether it existed.
func (s *FSStore) Remove(ctx context.Context, blobID string) (bool, error) {
	p := s.pathFor(blobID)
	_, statErr := s.fs.Stat(p)
	if os.IsNotExist(statErr) {
		return false, nil
	}
	if statErr != nil {
		return false, perrors.WrapItem(perrors.BlobError, "stat blob file", blobID, statErr)
	}
	if err := s.fs.Remove(p); err != nil {
		return false, perrors.WrapItem(perrors.BlobError, "remove blob file", blobID, err)
	}
	return true, nil
}
