// Package s3store implements the storage backend contract against an
// S3-compatible object store (spec §4.6's "object store #1 (bucket +
// optional prefix; directory objects materialized so the prefix is
// observable)").
package s3store

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
	"os"
	"path/filepath"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/stcorp/muninn/internal/apperrors"
	"github.com/stcorp/muninn/internal/storage"
)

// Config is the [s3] section of the archive config file.
type Config struct {
	Bucket          string
	Prefix          string
	Host            string
	Port            int
	Region          string
	AccessKey       string
	SecretAccessKey string
}

// S3Store stores bytes as objects under Bucket, below an optional Prefix.
// Because S3 has no real directories, a multi-part product materializes an
// explicit zero-byte "directory object" at its prefix so the archive_path
// hierarchy stays observable with a plain listing.
type S3Store struct {
	client *s3.Client
	bucket string
	prefix string
}

// New builds an S3Store from cfg. When cfg.Host is set, the client targets
// that endpoint (for S3-compatible stores) instead of AWS.
func New(ctx context.Context, cfg Config) (*S3Store, apperrors.Error) {
	var opts []func(*awsconfig.LoadOptions) error
	if cfg.Region != "" {
		opts = append(opts, awsconfig.WithRegion(cfg.Region))
	}
	if cfg.AccessKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretAccessKey, "")))
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, storage.ErrStorage.MsgErr("failed to load aws config", err)
	}
	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Host != "" {
			scheme := "https"
			endpoint := cfg.Host
			if cfg.Port != 0 {
				endpoint = fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)
			}
			o.BaseEndpoint = aws.String(fmt.Sprintf("%s://%s", scheme, endpoint))
			o.UsePathStyle = true
		}
	})
	return &S3Store{
		client: client,
		bucket: cfg.Bucket,
		prefix: strings.Trim(cfg.Prefix, "/"),
	}, nil
}

func (s *S3Store) key(archivePath, physicalName string) string {
	parts := []string{}
	if s.prefix != "" {
		parts = append(parts, s.prefix)
	}
	if archivePath != "" {
		parts = append(parts, strings.Trim(archivePath, "/"))
	}
	parts = append(parts, physicalName)
	return strings.Join(parts, "/")
}

func (s *S3Store) dirKey(archivePath string) string {
	parts := []string{}
	if s.prefix != "" {
		parts = append(parts, s.prefix)
	}
	if archivePath != "" {
		parts = append(parts, strings.Trim(archivePath, "/"))
	}
	return strings.Join(parts, "/") + "/"
}

// Prepare is a no-op: S3 buckets are provisioned out of band.
func (s *S3Store) Prepare(ctx context.Context) apperrors.Error { return nil }

// Destroy deletes every object below the configured prefix.
func (s *S3Store) Destroy(ctx context.Context) apperrors.Error {
	prefix := s.prefix
	if prefix != "" {
		prefix += "/"
	}
	paginator := s3.NewListObjectsV2Paginator(s.client, &s3.ListObjectsV2Input{
		Bucket: &s.bucket,
		Prefix: &prefix,
	})
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return storage.ErrStorage.MsgErr("failed to list objects for destroy", err)
		}
		for _, obj := range page.Contents {
			if _, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{Bucket: &s.bucket, Key: obj.Key}); err != nil {
				return storage.ErrStorage.MsgErr("failed to delete object", err)
			}
		}
	}
	return nil
}

func (s *S3Store) Exists(ctx context.Context, archivePath, physicalName string) (bool, apperrors.Error) {
	key := s.key(archivePath, physicalName)
	_, err := s.client.HeadObject(ctx, &s3.HeadObjectInput{Bucket: &s.bucket, Key: &key})
	if err == nil {
		return true, nil
	}
	if strings.Contains(err.Error(), "NotFound") || strings.Contains(err.Error(), "404") {
		return false, nil
	}
	return false, storage.ErrStorage.MsgErr("failed to check object existence", err)
}

// Put uploads srcPaths as objects under archivePath/physicalName.
// useSymlinks is accepted for interface symmetry but has no meaning against
// an object store; object keys are always fresh uploads.
func (s *S3Store) Put(ctx context.Context, srcPaths []string, archivePath, physicalName string, useSymlinks bool) (int64, apperrors.Error) {
	multiPart := len(srcPaths) != 1 || filepath.Base(srcPaths[0]) != physicalName
	var total int64
	if multiPart {
		dirKey := s.dirKey(filepath.Join(archivePath, physicalName))
		if _, err := s.client.PutObject(ctx, &s3.PutObjectInput{
			Bucket: &s.bucket, Key: &dirKey, Body: bytes.NewReader(nil),
		}); err != nil {
			return 0, storage.ErrStorage.MsgErr("failed to materialize directory object", err)
		}
	}
	for _, src := range srcPaths {
		key := s.key(archivePath, physicalName)
		if multiPart {
			key = s.key(filepath.Join(archivePath, physicalName), filepath.Base(src))
		}
		n, err := s.putFile(ctx, src, key)
		if err != nil {
			return total, err
		}
		total += n
	}
	return total, nil
}

func (s *S3Store) putFile(ctx context.Context, src, key string) (int64, apperrors.Error) {
	f, err := os.Open(src)
	if err != nil {
		return 0, storage.ErrStorage.MsgErr("failed to open source file", err)
	}
	defer f.Close()
	info, err := f.Stat()
	if err != nil {
		return 0, storage.ErrStorage.MsgErr("failed to stat source file", err)
	}
	if _, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket: &s.bucket, Key: &key, Body: f, ContentLength: aws.Int64(info.Size()),
	}); err != nil {
		return 0, storage.ErrStorage.MsgErr("failed to put object", err)
	}
	return info.Size(), nil
}

func (s *S3Store) PutFromStream(ctx context.Context, r io.Reader, archivePath, physicalName string) (int64, apperrors.Error) {
	key := s.key(archivePath, physicalName)
	buf, err := io.ReadAll(r)
	if err != nil {
		return 0, storage.ErrStorage.MsgErr("failed to buffer stream", err)
	}
	if _, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket: &s.bucket, Key: &key, Body: bytes.NewReader(buf), ContentLength: aws.Int64(int64(len(buf))),
	}); err != nil {
		return 0, storage.ErrStorage.MsgErr("failed to put object from stream", err)
	}
	return int64(len(buf)), nil
}

func (s *S3Store) MoveWithin(ctx context.Context, oldArchivePath, oldPhysicalName, newArchivePath, newPhysicalName string) apperrors.Error {
	oldKey := s.key(oldArchivePath, oldPhysicalName)
	newKey := s.key(newArchivePath, newPhysicalName)
	source := fmt.Sprintf("%s/%s", s.bucket, oldKey)
	if _, err := s.client.CopyObject(ctx, &s3.CopyObjectInput{
		Bucket: &s.bucket, Key: &newKey, CopySource: &source,
	}); err != nil {
		return storage.ErrStorage.MsgErr("failed to copy object to new key", err)
	}
	if _, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{Bucket: &s.bucket, Key: &oldKey}); err != nil {
		return storage.ErrStorage.MsgErr("failed to delete old object after move", err)
	}
	return nil
}

func (s *S3Store) Retrieve(ctx context.Context, archivePath, physicalName, targetDir string, useSymlinks bool) ([]string, apperrors.Error) {
	if err := os.MkdirAll(targetDir, 0o755); err != nil {
		return nil, storage.ErrStorage.MsgErr("failed to create retrieval directory", err)
	}
	prefix := s.key(archivePath, physicalName)
	dirKey := prefix + "/"
	exists, aerr := s.dirHasObjects(ctx, dirKey)
	if aerr != nil {
		return nil, aerr
	}
	if exists {
		return s.retrieveDir(ctx, dirKey, targetDir)
	}
	dst := filepath.Join(targetDir, physicalName)
	if aerr := s.getObject(ctx, prefix, dst); aerr != nil {
		return nil, aerr
	}
	return []string{dst}, nil
}

func (s *S3Store) dirHasObjects(ctx context.Context, dirKey string) (bool, apperrors.Error) {
	out, err := s.client.ListObjectsV2(ctx, &s3.ListObjectsV2Input{Bucket: &s.bucket, Prefix: &dirKey, MaxKeys: aws.Int32(1)})
	if err != nil {
		return false, storage.ErrStorage.MsgErr("failed to list objects", err)
	}
	return len(out.Contents) > 0, nil
}

func (s *S3Store) retrieveDir(ctx context.Context, dirKey, targetDir string) ([]string, apperrors.Error) {
	var out []string
	paginator := s3.NewListObjectsV2Paginator(s.client, &s3.ListObjectsV2Input{Bucket: &s.bucket, Prefix: &dirKey})
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, storage.ErrStorage.MsgErr("failed to list objects", err)
		}
		for _, obj := range page.Contents {
			name := strings.TrimPrefix(*obj.Key, dirKey)
			if name == "" {
				continue
			}
			dst := filepath.Join(targetDir, name)
			if aerr := s.getObject(ctx, *obj.Key, dst); aerr != nil {
				return nil, aerr
			}
			out = append(out, dst)
		}
	}
	return out, nil
}

func (s *S3Store) getObject(ctx context.Context, key, dst string) apperrors.Error {
	resp, err := s.client.GetObject(ctx, &s3.GetObjectInput{Bucket: &s.bucket, Key: &key})
	if err != nil {
		return storage.ErrStorage.MsgErr("failed to get object", err)
	}
	defer resp.Body.Close()
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

func (s *S3Store) Remove(ctx context.Context, archivePath, physicalName string) apperrors.Error {
	prefix := s.key(archivePath, physicalName)
	paginator := s3.NewListObjectsV2Paginator(s.client, &s3.ListObjectsV2Input{Bucket: &s.bucket, Prefix: &prefix})
	removed := false
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return storage.ErrStorage.MsgErr("failed to list objects for removal", err)
		}
		for _, obj := range page.Contents {
			if _, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{Bucket: &s.bucket, Key: obj.Key}); err != nil {
				return storage.ErrStorage.MsgErr("failed to delete object", err)
			}
			removed = true
		}
	}
	if !removed {
		if _, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{Bucket: &s.bucket, Key: &prefix}); err != nil {
			return storage.ErrStorage.MsgErr("failed to delete object", err)
		}
	}
	return nil
}

func (s *S3Store) Size(ctx context.Context, archivePath, physicalName string) (int64, apperrors.Error) {
	prefix := s.key(archivePath, physicalName)
	var total int64
	paginator := s3.NewListObjectsV2Paginator(s.client, &s3.ListObjectsV2Input{Bucket: &s.bucket, Prefix: &prefix})
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return 0, storage.ErrStorage.MsgErr("failed to list objects for size", err)
		}
		for _, obj := range page.Contents {
			total += aws.ToInt64(obj.Size)
		}
	}
	return total, nil
}

func (s *S3Store) Hash(ctx context.Context, archivePath, physicalName string, algorithm storage.HashAlgorithm) (string, apperrors.Error) {
	h, herr := newHasher(algorithm)
	if herr != nil {
		return "", herr
	}
	prefix := s.key(archivePath, physicalName)
	paginator := s3.NewListObjectsV2Paginator(s.client, &s3.ListObjectsV2Input{Bucket: &s.bucket, Prefix: &prefix})
	found := false
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return "", storage.ErrStorage.MsgErr("failed to list objects for hash", err)
		}
		for _, obj := range page.Contents {
			found = true
			resp, err := s.client.GetObject(ctx, &s3.GetObjectInput{Bucket: &s.bucket, Key: obj.Key})
			if err != nil {
				return "", storage.ErrStorage.MsgErr("failed to get object for hash", err)
			}
			_, err = io.Copy(h, resp.Body)
			resp.Body.Close()
			if err != nil {
				return "", storage.ErrStorage.MsgErr("failed to read object for hash", err)
			}
		}
	}
	if !found {
		return "", storage.ErrStorage.Msg("no objects found to hash")
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

func (s *S3Store) TempWorkspace(ctx context.Context) (storage.Workspace, apperrors.Error) {
	dir, err := os.MkdirTemp("", "muninn-s3-workspace-*")
	if err != nil {
		return nil, storage.ErrStorage.MsgErr("failed to create temp workspace", err)
	}
	return &tempWorkspace{dir: dir}, nil
}

var _ storage.Backend = (*S3Store)(nil)
