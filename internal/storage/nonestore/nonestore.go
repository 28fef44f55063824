// Package nonestore implements the catalogue-only storage backend: every
// mutation other than accounting is a no-op (spec §4.6's "null storage").
// It exists for products whose bytes live entirely at remote_url, or for
// catalogues that track metadata without ever holding bytes.
package nonestore

import (
	"context"
	"io"
	"os"

	"github.com/stcorp/muninn/internal/apperrors"
	"github.com/stcorp/muninn/internal/storage"
)

// NoneStore accepts every write and stores nothing: Put and Size report
// zero bytes, and PutFromStream reports the number of bytes it drained and
// discarded.
type NoneStore struct{}

// New returns a NoneStore.
func New() *NoneStore { return &NoneStore{} }

func (n *NoneStore) Prepare(ctx context.Context) apperrors.Error { return nil }
func (n *NoneStore) Destroy(ctx context.Context) apperrors.Error { return nil }

func (n *NoneStore) Exists(ctx context.Context, archivePath, physicalName string) (bool, apperrors.Error) {
	return false, nil
}

func (n *NoneStore) Put(ctx context.Context, srcPaths []string, archivePath, physicalName string, useSymlinks bool) (int64, apperrors.Error) {
	return 0, nil
}

func (n *NoneStore) PutFromStream(ctx context.Context, r io.Reader, archivePath, physicalName string) (int64, apperrors.Error) {
	written, err := io.Copy(io.Discard, r)
	if err != nil {
		return written, storage.ErrStorage.MsgErr("failed to drain stream", err)
	}
	return written, nil
}

func (n *NoneStore) MoveWithin(ctx context.Context, oldArchivePath, oldPhysicalName, newArchivePath, newPhysicalName string) apperrors.Error {
	return nil
}

func (n *NoneStore) Retrieve(ctx context.Context, archivePath, physicalName, targetDir string, useSymlinks bool) ([]string, apperrors.Error) {
	return nil, storage.ErrStorage.Msg("none storage holds no bytes to retrieve")
}

func (n *NoneStore) Remove(ctx context.Context, archivePath, physicalName string) apperrors.Error {
	return nil
}

func (n *NoneStore) Size(ctx context.Context, archivePath, physicalName string) (int64, apperrors.Error) {
	return 0, nil
}

func (n *NoneStore) Hash(ctx context.Context, archivePath, physicalName string, algorithm storage.HashAlgorithm) (string, apperrors.Error) {
	return "", nil
}

type noopWorkspace struct{ dir string }

func (w *noopWorkspace) Dir() string  { return w.dir }
func (w *noopWorkspace) Close() error { return os.RemoveAll(w.dir) }

// TempWorkspace still allocates a real scratch directory: plug-ins that
// stage analysis output before deciding it's disposable need somewhere to
// write even when the archive itself stores nothing.
func (n *NoneStore) TempWorkspace(ctx context.Context) (storage.Workspace, apperrors.Error) {
	dir, err := os.MkdirTemp("", "muninn-none-workspace-*")
	if err != nil {
		return nil, storage.ErrStorage.MsgErr("failed to create temp workspace", err)
	}
	return &noopWorkspace{dir: dir}, nil
}

var _ storage.Backend = (*NoneStore)(nil)
