// Package storage defines the byte-storage contract the archive
// orchestrator drives (spec §4.6). The database backend owns catalogue
// rows; a storage Backend owns bytes, addressed purely by
// (archive_path, physical_name) — it has no notion of catalogue state.
package storage

import (
	"context"
	"io"

	"github.com/stcorp/muninn/internal/apperrors"
)

// ErrStorage is the root of every error a storage Backend returns.
var ErrStorage apperrors.Error = apperrors.ErrStorage.Msg("storage backend error")

// HashAlgorithm names a supported content-hash digest.
type HashAlgorithm string

const (
	HashMD5    HashAlgorithm = "md5"
	HashSHA1   HashAlgorithm = "sha1"
	HashSHA256 HashAlgorithm = "sha256"
)

// Workspace is a scoped temporary-file area a Backend hands out for staging
// writes before they're committed into place (e.g. a download landing area
// for pull, or a buffer for hash verification). Close removes everything
// under it.
type Workspace interface {
	// Dir is the filesystem path backing this workspace. Even object-store
	// backends stage through a local directory before upload.
	Dir() string
	Close() error
}

// Backend is the storage contract every implementation (localfs, s3store,
// swiftstore, nonestore) satisfies.
type Backend interface {
	Prepare(ctx context.Context) apperrors.Error
	Destroy(ctx context.Context) apperrors.Error

	Exists(ctx context.Context, archivePath, physicalName string) (bool, apperrors.Error)

	// Put copies srcPaths into storage under
	// (archivePath, physicalName). When useSymlinks is true and the
	// implementation supports it, files are linked rather than copied.
	// Returns the total number of bytes written.
	Put(ctx context.Context, srcPaths []string, archivePath, physicalName string, useSymlinks bool) (int64, apperrors.Error)

	// PutFromStream stages r into storage under (archivePath, physicalName)
	// as a single file named physicalName.
	PutFromStream(ctx context.Context, r io.Reader, archivePath, physicalName string) (int64, apperrors.Error)

	MoveWithin(ctx context.Context, oldArchivePath, oldPhysicalName, newArchivePath, newPhysicalName string) apperrors.Error

	// Retrieve copies (or symlinks) the product's bytes into targetDir and
	// returns the paths written there.
	Retrieve(ctx context.Context, archivePath, physicalName, targetDir string, useSymlinks bool) ([]string, apperrors.Error)

	Remove(ctx context.Context, archivePath, physicalName string) apperrors.Error

	Size(ctx context.Context, archivePath, physicalName string) (int64, apperrors.Error)
	Hash(ctx context.Context, archivePath, physicalName string, algorithm HashAlgorithm) (string, apperrors.Error)

	TempWorkspace(ctx context.Context) (Workspace, apperrors.Error)
}
