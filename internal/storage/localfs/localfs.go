// Package localfs implements the storage backend contract on the local
// filesystem, rooted at a configured directory (spec §4.6's "local
// filesystem (supports symlinks; when both source and destination are
// inside the root, symlinks are relative so the archive is relocatable)").
package localfs

import (
	"context"
	"crypto/md5"
	"crypto/sha1"
	"crypto/sha256"
	"encoding/hex"
	"hash"
	"io"
	"os"
	"path/filepath"

	"github.com/stcorp/muninn/internal/apperrors"
	"github.com/stcorp/muninn/internal/storage"
)

// LocalFS stores bytes under Root. It links instead of copying when the
// caller asks for symlinks; a link to a source inside Root is relative (so
// the whole archive can be tarred up and relocated without breaking the
// links), a link to a source outside Root is absolute.
type LocalFS struct {
	root        string
	useSymlinks bool
}

// New returns a LocalFS rooted at root. useSymlinks is stored on the
// LocalFS, but Put and Retrieve use their own useSymlinks argument and do
// not read it.
func New(root string, useSymlinks bool) *LocalFS {
	return &LocalFS{root: root, useSymlinks: useSymlinks}
}

func (l *LocalFS) path(archivePath, physicalName string) string {
	return filepath.Join(l.root, archivePath, physicalName)
}

func (l *LocalFS) Prepare(ctx context.Context) apperrors.Error {
	if err := os.MkdirAll(l.root, 0o755); err != nil {
		return storage.ErrStorage.MsgErr("failed to create storage root", err)
	}
	return nil
}

func (l *LocalFS) Destroy(ctx context.Context) apperrors.Error {
	if err := os.RemoveAll(l.root); err != nil {
		return storage.ErrStorage.MsgErr("failed to remove storage root", err)
	}
	return nil
}

func (l *LocalFS) Exists(ctx context.Context, archivePath, physicalName string) (bool, apperrors.Error) {
	_, err := os.Lstat(l.path(archivePath, physicalName))
	if err == nil {
		return true, nil
	}
	if os.IsNotExist(err) {
		return false, nil
	}
	return false, storage.ErrStorage.MsgErr("failed to stat storage entry", err)
}

// Put copies or symlinks srcPaths under the destination directory
// archivePath/physicalName. When len(srcPaths) == 1 and its base name
// equals physicalName, the destination is that single file; otherwise
// physicalName names the enclosing directory holding every source path.
func (l *LocalFS) Put(ctx context.Context, srcPaths []string, archivePath, physicalName string, useSymlinks bool) (int64, apperrors.Error) {
	dst := l.path(archivePath, physicalName)
	multiPart := len(srcPaths) != 1 || filepath.Base(srcPaths[0]) != physicalName
	if multiPart {
		if err := os.MkdirAll(dst, 0o755); err != nil {
			return 0, storage.ErrStorage.MsgErr("failed to create destination directory", err)
		}
	} else if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return 0, storage.ErrStorage.MsgErr("failed to create destination directory", err)
	}

	var total int64
	for _, src := range srcPaths {
		target := dst
		if multiPart {
			target = filepath.Join(dst, filepath.Base(src))
		}
		n, err := l.placeOne(src, target, useSymlinks)
		if err != nil {
			return total, err
		}
		total += n
	}
	return total, nil
}

func (l *LocalFS) placeOne(src, dst string, useSymlinks bool) (int64, apperrors.Error) {
	info, err := os.Stat(src)
	if err != nil {
		return 0, storage.ErrStorage.MsgErr("failed to stat source path", err)
	}
	if useSymlinks {
		linkTarget := src
		if rel, relErr := l.relativizeIfInsideRoot(src, dst); relErr == nil {
			linkTarget = rel
		}
		if err := os.Symlink(linkTarget, dst); err != nil {
			return 0, storage.ErrStorage.MsgErr("failed to create symlink", err)
		}
		return info.Size(), nil
	}
	return l.copyFile(src, dst)
}

// relativizeIfInsideRoot returns a relative path from dst's directory to src
// when both lie inside the storage root, so the produced symlink survives a
// move of the whole archive tree.
func (l *LocalFS) relativizeIfInsideRoot(src, dst string) (string, error) {
	absRoot, err := filepath.Abs(l.root)
	if err != nil {
		return "", err
	}
	absSrc, err := filepath.Abs(src)
	if err != nil {
		return "", err
	}
	if rel, err := filepath.Rel(absRoot, absSrc); err != nil || rel == ".." || len(rel) >= 2 && rel[:2] == ".." {
		return "", os.ErrInvalid
	}
	return filepath.Rel(filepath.Dir(dst), absSrc)
}

func (l *LocalFS) copyFile(src, dst string) (int64, apperrors.Error) {
	in, err := os.Open(src)
	if err != nil {
		return 0, storage.ErrStorage.MsgErr("failed to open source file", err)
	}
	defer in.Close()
	out, err := os.Create(dst)
	if err != nil {
		return 0, storage.ErrStorage.MsgErr("failed to create destination file", err)
	}
	defer out.Close()
	n, err := io.Copy(out, in)
	if err != nil {
		return n, storage.ErrStorage.MsgErr("failed to copy file contents", err)
	}
	return n, nil
}

func (l *LocalFS) PutFromStream(ctx context.Context, r io.Reader, archivePath, physicalName string) (int64, apperrors.Error) {
	dst := l.path(archivePath, physicalName)
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return 0, storage.ErrStorage.MsgErr("failed to create destination directory", err)
	}
	out, err := os.Create(dst)
	if err != nil {
		return 0, storage.ErrStorage.MsgErr("failed to create destination file", err)
	}
	defer out.Close()
	n, err := io.Copy(out, r)
	if err != nil {
		return n, storage.ErrStorage.MsgErr("failed to write stream to storage", err)
	}
	return n, nil
}

func (l *LocalFS) MoveWithin(ctx context.Context, oldArchivePath, oldPhysicalName, newArchivePath, newPhysicalName string) apperrors.Error {
	oldPath := l.path(oldArchivePath, oldPhysicalName)
	newPath := l.path(newArchivePath, newPhysicalName)
	if err := os.MkdirAll(filepath.Dir(newPath), 0o755); err != nil {
		return storage.ErrStorage.MsgErr("failed to create destination directory", err)
	}
	if err := os.Rename(oldPath, newPath); err != nil {
		return storage.ErrStorage.MsgErr("failed to move storage entry", err)
	}
	return nil
}

func (l *LocalFS) Retrieve(ctx context.Context, archivePath, physicalName, targetDir string, useSymlinks bool) ([]string, apperrors.Error) {
	src := l.path(archivePath, physicalName)
	info, err := os.Stat(src)
	if err != nil {
		return nil, storage.ErrStorage.MsgErr("failed to stat storage entry", err)
	}
	if err := os.MkdirAll(targetDir, 0o755); err != nil {
		return nil, storage.ErrStorage.MsgErr("failed to create retrieval directory", err)
	}
	if !info.IsDir() {
		dst := filepath.Join(targetDir, physicalName)
		if _, err := l.placeOne(src, dst, useSymlinks); err != nil {
			return nil, err
		}
		return []string{dst}, nil
	}
	entries, err := os.ReadDir(src)
	if err != nil {
		return nil, storage.ErrStorage.MsgErr("failed to list storage directory", err)
	}
	var out []string
	for _, entry := range entries {
		dst := filepath.Join(targetDir, entry.Name())
		if _, err := l.placeOne(filepath.Join(src, entry.Name()), dst, useSymlinks); err != nil {
			return nil, err
		}
		out = append(out, dst)
	}
	return out, nil
}

func (l *LocalFS) Remove(ctx context.Context, archivePath, physicalName string) apperrors.Error {
	if err := os.RemoveAll(l.path(archivePath, physicalName)); err != nil {
		return storage.ErrStorage.MsgErr("failed to remove storage entry", err)
	}
	return nil
}

func (l *LocalFS) Size(ctx context.Context, archivePath, physicalName string) (int64, apperrors.Error) {
	path := l.path(archivePath, physicalName)
	info, err := os.Stat(path)
	if err != nil {
		return 0, storage.ErrStorage.MsgErr("failed to stat storage entry", err)
	}
	if !info.IsDir() {
		return info.Size(), nil
	}
	var total int64
	err = filepath.WalkDir(path, func(p string, d os.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return err
		}
		fi, err := d.Info()
		if err != nil {
			return err
		}
		total += fi.Size()
		return nil
	})
	if err != nil {
		return 0, storage.ErrStorage.MsgErr("failed to walk storage directory", err)
	}
	return total, nil
}

func (l *LocalFS) Hash(ctx context.Context, archivePath, physicalName string, algorithm storage.HashAlgorithm) (string, apperrors.Error) {
	path := l.path(archivePath, physicalName)
	info, err := os.Stat(path)
	if err != nil {
		return "", storage.ErrStorage.MsgErr("failed to stat storage entry", err)
	}
	h, herr := newHasher(algorithm)
	if herr != nil {
		return "", herr
	}
	if !info.IsDir() {
		if err := hashFile(path, h); err != nil {
			return "", storage.ErrStorage.MsgErr("failed to hash storage entry", err)
		}
		return hexDigest(h), nil
	}
	var files []string
	err = filepath.WalkDir(path, func(p string, d os.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return err
		}
		files = append(files, p)
		return nil
	})
	if err != nil {
		return "", storage.ErrStorage.MsgErr("failed to walk storage directory", err)
	}
	for _, f := range files {
		if err := hashFile(f, h); err != nil {
			return "", storage.ErrStorage.MsgErr("failed to hash storage entry", err)
		}
	}
	return hexDigest(h), nil
}

func newHasher(algorithm storage.HashAlgorithm) (hash.Hash, apperrors.Error) {
	switch algorithm {
	case storage.HashMD5:
		return md5.New(), nil
	case storage.HashSHA1:
		return sha1.New(), nil
	case storage.HashSHA256, "":
		return sha256.New(), nil
	default:
		return nil, storage.ErrStorage.Msg("unsupported hash algorithm")
	}
}

func hashFile(path string, h hash.Hash) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()
	_, err = io.Copy(h, f)
	return err
}

func hexDigest(h hash.Hash) string {
	return hex.EncodeToString(h.Sum(nil))
}

type fsWorkspace struct {
	dir string
}

func (w *fsWorkspace) Dir() string  { return w.dir }
func (w *fsWorkspace) Close() error { return os.RemoveAll(w.dir) }

func (l *LocalFS) TempWorkspace(ctx context.Context) (storage.Workspace, apperrors.Error) {
	dir, err := os.MkdirTemp("", "muninn-workspace-*")
	if err != nil {
		return nil, storage.ErrStorage.MsgErr("failed to create temp workspace", err)
	}
	return &fsWorkspace{dir: dir}, nil
}

var _ storage.Backend = (*LocalFS)(nil)
