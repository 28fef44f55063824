// Package swiftstore implements the storage backend contract against an
// OpenStack Swift-compatible object store (spec §4.6's "object store #2
// (container-based)"). No Swift client library appears anywhere in the
// retrieved corpus, so this is a small hand-rolled REST client over Swift's
// TempAuth/Keystone-lite HTTP interface (X-Auth-User/X-Auth-Key exchange for
// a storage URL + token, then plain PUT/GET/HEAD/DELETE against object
// URLs) — the same shape net/http itself is used for elsewhere in the
// archive's remote-backend transport.
package swiftstore

import (
	"bytes"
	"context"
	"crypto/md5"
	"crypto/sha1"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"hash"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"

	"github.com/stcorp/muninn/internal/apperrors"
	"github.com/stcorp/muninn/internal/storage"
)

// Config is the [swift] section of the archive config file.
type Config struct {
	Container string
	User      string
	Key       string
	AuthURL   string
}

// SwiftStore stores bytes as objects inside a single Swift container.
type SwiftStore struct {
	cfg    Config
	client *http.Client

	mu         sync.Mutex
	storageURL string
	authToken  string
}

// New returns a SwiftStore that authenticates against cfg.AuthURL lazily, on
// first use.
func New(cfg Config) *SwiftStore {
	return &SwiftStore{cfg: cfg, client: &http.Client{}}
}

func (s *SwiftStore) authenticate(ctx context.Context) apperrors.Error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.authToken != "" {
		return nil
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.cfg.AuthURL, nil)
	if err != nil {
		return storage.ErrStorage.MsgErr("failed to build swift auth request", err)
	}
	req.Header.Set("X-Auth-User", s.cfg.User)
	req.Header.Set("X-Auth-Key", s.cfg.Key)
	resp, err := s.client.Do(req)
	if err != nil {
		return storage.ErrStorage.MsgErr("swift authentication request failed", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusNoContent {
		return storage.ErrStorage.Msg(fmt.Sprintf("swift authentication failed with status %d", resp.StatusCode))
	}
	s.storageURL = resp.Header.Get("X-Storage-Url")
	s.authToken = resp.Header.Get("X-Auth-Token")
	if s.storageURL == "" || s.authToken == "" {
		return storage.ErrStorage.Msg("swift authentication response missing storage url or token")
	}
	return nil
}

func (s *SwiftStore) objectURL(archivePath, physicalName string) string {
	key := key(archivePath, physicalName)
	return fmt.Sprintf("%s/%s/%s", strings.TrimRight(s.storageURL, "/"), s.cfg.Container, key)
}

func key(archivePath, physicalName string) string {
	parts := []string{}
	if archivePath != "" {
		parts = append(parts, strings.Trim(archivePath, "/"))
	}
	parts = append(parts, physicalName)
	return strings.Join(parts, "/")
}

func (s *SwiftStore) do(ctx context.Context, method, url string, body io.Reader, contentLength int64) (*http.Response, apperrors.Error) {
	if aerr := s.authenticate(ctx); aerr != nil {
		return nil, aerr
	}
	req, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return nil, storage.ErrStorage.MsgErr("failed to build swift request", err)
	}
	req.Header.Set("X-Auth-Token", s.authToken)
	if contentLength >= 0 {
		req.ContentLength = contentLength
	}
	resp, err := s.client.Do(req)
	if err != nil {
		return nil, storage.ErrStorage.MsgErr("swift request failed", err)
	}
	return resp, nil
}

// Prepare creates the container if it doesn't already exist.
func (s *SwiftStore) Prepare(ctx context.Context) apperrors.Error {
	if aerr := s.authenticate(ctx); aerr != nil {
		return aerr
	}
	url := fmt.Sprintf("%s/%s", strings.TrimRight(s.storageURL, "/"), s.cfg.Container)
	resp, aerr := s.do(ctx, http.MethodPut, url, nil, 0)
	if aerr != nil {
		return aerr
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return storage.ErrStorage.Msg(fmt.Sprintf("failed to create swift container, status %d", resp.StatusCode))
	}
	return nil
}

// Destroy deletes every object in the container, then the container itself.
func (s *SwiftStore) Destroy(ctx context.Context) apperrors.Error {
	names, aerr := s.listObjects(ctx, "")
	if aerr != nil {
		return aerr
	}
	for _, name := range names {
		url := fmt.Sprintf("%s/%s/%s", strings.TrimRight(s.storageURL, "/"), s.cfg.Container, name)
		resp, aerr := s.do(ctx, http.MethodDelete, url, nil, 0)
		if aerr != nil {
			return aerr
		}
		resp.Body.Close()
	}
	url := fmt.Sprintf("%s/%s", strings.TrimRight(s.storageURL, "/"), s.cfg.Container)
	resp, aerr := s.do(ctx, http.MethodDelete, url, nil, 0)
	if aerr != nil {
		return aerr
	}
	defer resp.Body.Close()
	return nil
}

func (s *SwiftStore) listObjects(ctx context.Context, prefix string) ([]string, apperrors.Error) {
	url := fmt.Sprintf("%s/%s?format=plain", strings.TrimRight(s.storageURL, "/"), s.cfg.Container)
	if prefix != "" {
		url += "&prefix=" + prefix
	}
	resp, aerr := s.do(ctx, http.MethodGet, url, nil, 0)
	if aerr != nil {
		return nil, aerr
	}
	defer resp.Body.Close()
	if resp.StatusCode == http.StatusNotFound {
		return nil, nil
	}
	if resp.StatusCode >= 300 {
		return nil, storage.ErrStorage.Msg(fmt.Sprintf("failed to list swift objects, status %d", resp.StatusCode))
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, storage.ErrStorage.MsgErr("failed to read swift listing", err)
	}
	lines := strings.Split(strings.TrimSpace(string(body)), "\n")
	var out []string
	for _, l := range lines {
		if l != "" {
			out = append(out, l)
		}
	}
	return out, nil
}

func (s *SwiftStore) Exists(ctx context.Context, archivePath, physicalName string) (bool, apperrors.Error) {
	resp, aerr := s.do(ctx, http.MethodHead, s.objectURL(archivePath, physicalName), nil, 0)
	if aerr != nil {
		return false, aerr
	}
	defer resp.Body.Close()
	if resp.StatusCode == http.StatusOK {
		return true, nil
	}
	if resp.StatusCode == http.StatusNotFound {
		names, lerr := s.listObjects(ctx, key(archivePath, physicalName)+"/")
		if lerr != nil {
			return false, lerr
		}
		return len(names) > 0, nil
	}
	return false, storage.ErrStorage.Msg(fmt.Sprintf("unexpected swift status %d checking existence", resp.StatusCode))
}

func (s *SwiftStore) Put(ctx context.Context, srcPaths []string, archivePath, physicalName string, useSymlinks bool) (int64, apperrors.Error) {
	multiPart := len(srcPaths) != 1 || filepath.Base(srcPaths[0]) != physicalName
	var total int64
	for _, src := range srcPaths {
		objName := key(archivePath, physicalName)
		if multiPart {
			objName = key(filepath.Join(archivePath, physicalName), filepath.Base(src))
		}
		n, aerr := s.putFile(ctx, src, objName)
		if aerr != nil {
			return total, aerr
		}
		total += n
	}
	return total, nil
}

func (s *SwiftStore) putFile(ctx context.Context, src, objName string) (int64, apperrors.Error) {
	f, err := os.Open(src)
	if err != nil {
		return 0, storage.ErrStorage.MsgErr("failed to open source file", err)
	}
	defer f.Close()
	info, err := f.Stat()
	if err != nil {
		return 0, storage.ErrStorage.MsgErr("failed to stat source file", err)
	}
	url := fmt.Sprintf("%s/%s/%s", strings.TrimRight(s.storageURL, "/"), s.cfg.Container, objName)
	resp, aerr := s.putAuthenticated(ctx, url, f, info.Size())
	if aerr != nil {
		return 0, aerr
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return 0, storage.ErrStorage.Msg(fmt.Sprintf("failed to put swift object, status %d", resp.StatusCode))
	}
	return info.Size(), nil
}

func (s *SwiftStore) putAuthenticated(ctx context.Context, url string, body io.Reader, size int64) (*http.Response, apperrors.Error) {
	if aerr := s.authenticate(ctx); aerr != nil {
		return nil, aerr
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPut, url, body)
	if err != nil {
		return nil, storage.ErrStorage.MsgErr("failed to build swift request", err)
	}
	req.Header.Set("X-Auth-Token", s.authToken)
	req.ContentLength = size
	resp, err := s.client.Do(req)
	if err != nil {
		return nil, storage.ErrStorage.MsgErr("swift put request failed", err)
	}
	return resp, nil
}

func (s *SwiftStore) PutFromStream(ctx context.Context, r io.Reader, archivePath, physicalName string) (int64, apperrors.Error) {
	buf, err := io.ReadAll(r)
	if err != nil {
		return 0, storage.ErrStorage.MsgErr("failed to buffer stream", err)
	}
	resp, aerr := s.putAuthenticated(ctx, s.objectURL(archivePath, physicalName), bytes.NewReader(buf), int64(len(buf)))
	if aerr != nil {
		return 0, aerr
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return 0, storage.ErrStorage.Msg(fmt.Sprintf("failed to put swift object from stream, status %d", resp.StatusCode))
	}
	return int64(len(buf)), nil
}

func (s *SwiftStore) MoveWithin(ctx context.Context, oldArchivePath, oldPhysicalName, newArchivePath, newPhysicalName string) apperrors.Error {
	oldURL := s.objectURL(oldArchivePath, oldPhysicalName)
	resp, aerr := s.do(ctx, http.MethodGet, oldURL, nil, 0)
	if aerr != nil {
		return aerr
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return storage.ErrStorage.Msg(fmt.Sprintf("failed to fetch object for move, status %d", resp.StatusCode))
	}
	buf, err := io.ReadAll(resp.Body)
	if err != nil {
		return storage.ErrStorage.MsgErr("failed to buffer object for move", err)
	}
	if _, aerr := s.PutFromStream(ctx, bytes.NewReader(buf), newArchivePath, newPhysicalName); aerr != nil {
		return aerr
	}
	delResp, aerr := s.do(ctx, http.MethodDelete, oldURL, nil, 0)
	if aerr != nil {
		return aerr
	}
	defer delResp.Body.Close()
	return nil
}

func (s *SwiftStore) Retrieve(ctx context.Context, archivePath, physicalName, targetDir string, useSymlinks bool) ([]string, apperrors.Error) {
	if err := os.MkdirAll(targetDir, 0o755); err != nil {
		return nil, storage.ErrStorage.MsgErr("failed to create retrieval directory", err)
	}
	prefix := key(archivePath, physicalName) + "/"
	names, aerr := s.listObjects(ctx, prefix)
	if aerr != nil {
		return nil, aerr
	}
	if len(names) > 0 {
		var out []string
		for _, name := range names {
			dst := filepath.Join(targetDir, strings.TrimPrefix(name, prefix))
			if aerr := s.getObject(ctx, name, dst); aerr != nil {
				return nil, aerr
			}
			out = append(out, dst)
		}
		return out, nil
	}
	dst := filepath.Join(targetDir, physicalName)
	if aerr := s.getObject(ctx, key(archivePath, physicalName), dst); aerr != nil {
		return nil, aerr
	}
	return []string{dst}, nil
}

func (s *SwiftStore) getObject(ctx context.Context, objName, dst string) apperrors.Error {
	url := fmt.Sprintf("%s/%s/%s", strings.TrimRight(s.storageURL, "/"), s.cfg.Container, objName)
	resp, aerr := s.do(ctx, http.MethodGet, url, nil, 0)
	if aerr != nil {
		return aerr
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return storage.ErrStorage.Msg(fmt.Sprintf("failed to get swift object, status %d", resp.StatusCode))
	}
	f, err := os.Create(dst)
	if err != nil {
		return storage.ErrStorage.MsgErr("failed to create local file", err)
	}
	defer f.Close()
	if _, err := io.Copy(f, resp.Body); err != nil {
		return storage.ErrStorage.MsgErr("failed to write object to local file", err)
	}
	return nil
}

func (s *SwiftStore) Remove(ctx context.Context, archivePath, physicalName string) apperrors.Error {
	prefix := key(archivePath, physicalName) + "/"
	names, aerr := s.listObjects(ctx, prefix)
	if aerr != nil {
		return aerr
	}
	if len(names) == 0 {
		names = []string{key(archivePath, physicalName)}
	}
	for _, name := range names {
		url := fmt.Sprintf("%s/%s/%s", strings.TrimRight(s.storageURL, "/"), s.cfg.Container, name)
		resp, aerr := s.do(ctx, http.MethodDelete, url, nil, 0)
		if aerr != nil {
			return aerr
		}
		resp.Body.Close()
	}
	return nil
}

func (s *SwiftStore) Size(ctx context.Context, archivePath, physicalName string) (int64, apperrors.Error) {
	resp, aerr := s.do(ctx, http.MethodHead, s.objectURL(archivePath, physicalName), nil, 0)
	if aerr != nil {
		return 0, aerr
	}
	defer resp.Body.Close()
	if resp.StatusCode == http.StatusOK {
		n, _ := strconv.ParseInt(resp.Header.Get("Content-Length"), 10, 64)
		return n, nil
	}
	prefix := key(archivePath, physicalName) + "/"
	names, lerr := s.listObjects(ctx, prefix)
	if lerr != nil {
		return 0, lerr
	}
	var total int64
	for _, name := range names {
		url := fmt.Sprintf("%s/%s/%s", strings.TrimRight(s.storageURL, "/"), s.cfg.Container, name)
		hresp, aerr := s.do(ctx, http.MethodHead, url, nil, 0)
		if aerr != nil {
			return 0, aerr
		}
		n, _ := strconv.ParseInt(hresp.Header.Get("Content-Length"), 10, 64)
		hresp.Body.Close()
		total += n
	}
	return total, nil
}

func (s *SwiftStore) Hash(ctx context.Context, archivePath, physicalName string, algorithm storage.HashAlgorithm) (string, apperrors.Error) {
	h, herr := newHasher(algorithm)
	if herr != nil {
		return "", herr
	}
	prefix := key(archivePath, physicalName) + "/"
	names, aerr := s.listObjects(ctx, prefix)
	if aerr != nil {
		return "", aerr
	}
	if len(names) == 0 {
		names = []string{key(archivePath, physicalName)}
	}
	for _, name := range names {
		url := fmt.Sprintf("%s/%s/%s", strings.TrimRight(s.storageURL, "/"), s.cfg.Container, name)
		resp, aerr := s.do(ctx, http.MethodGet, url, nil, 0)
		if aerr != nil {
			return "", aerr
		}
		if resp.StatusCode >= 300 {
			resp.Body.Close()
			return "", storage.ErrStorage.Msg(fmt.Sprintf("failed to get swift object for hash, status %d", resp.StatusCode))
		}
		_, err := io.Copy(h, resp.Body)
		resp.Body.Close()
		if err != nil {
			return "", storage.ErrStorage.MsgErr("failed to read swift object for hash", err)
		}
	}
	return hex.EncodeToString(h.Sum(nil)), nil
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

type tempWorkspace struct{ dir string }

func (w *tempWorkspace) Dir() string  { return w.dir }
func (w *tempWorkspace) Close() error { return os.RemoveAll(w.dir) }

func (s *SwiftStore) TempWorkspace(ctx context.Context) (storage.Workspace, apperrors.Error) {
	dir, err := os.MkdirTemp("", "muninn-swift-workspace-*")
	if err != nil {
		return nil, storage.ErrStorage.MsgErr("failed to create temp workspace", err)
	}
	return &tempWorkspace{dir: dir}, nil
}

var _ storage.Backend = (*SwiftStore)(nil)
