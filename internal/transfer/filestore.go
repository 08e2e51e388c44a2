package transfer

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"videoforge/internal/domain"
)

// FileStore implements ObjectStore on the local filesystem, mapping
// s3://bucket/key URIs onto basePath/bucket/key. It is intended for
// development and test environments where an object storage service is not
// available; an S3-backed client satisfies the same interface.
type FileStore struct {
	basePath string
}

// NewFileStore initializes a FileStore rooted at basePath.
func NewFileStore(basePath string) (*FileStore, error) {
	basePath = strings.TrimSpace(basePath)
	if basePath == "" {
		return nil, errors.New("transfer: base path is required")
	}
	if err := os.MkdirAll(basePath, 0o755); err != nil {
		return nil, fmt.Errorf("transfer: ensure base path: %w", err)
	}
	return &FileStore{basePath: basePath}, nil
}

// BasePath returns the configured root directory.
func (s *FileStore) BasePath() string {
	if s == nil {
		return ""
	}
	return s.basePath
}

// Fetch copies the object for remoteURI to localPath. When the URI names a
// prefix rather than an object, the first .mp4 beneath it is taken; the
// generation service declares output locations as prefixes.
func (s *FileStore) Fetch(ctx context.Context, remoteURI, localPath string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	src, err := s.resolve(remoteURI)
	if err != nil {
		return err
	}

	info, err := os.Stat(src)
	if err != nil {
		return fmt.Errorf("%w: object not found at %s: %v", domain.ErrTransfer, remoteURI, err)
	}
	if info.IsDir() {
		src, err = firstVideoUnder(src)
		if err != nil {
			return fmt.Errorf("%w: %v", domain.ErrTransfer, err)
		}
	}

	if err := copyFile(src, localPath); err != nil {
		return fmt.Errorf("%w: fetch %s: %v", domain.ErrTransfer, remoteURI, err)
	}
	return nil
}

// Archive copies the file at localPath under the key named by remoteURI.
func (s *FileStore) Archive(ctx context.Context, localPath, remoteURI string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	dst, err := s.resolve(remoteURI)
	if err != nil {
		return "", err
	}
	if err := copyFile(localPath, dst); err != nil {
		return "", fmt.Errorf("%w: archive to %s: %v", domain.ErrTransfer, remoteURI, err)
	}
	return remoteURI, nil
}

// resolve maps an s3:// URI onto a path under the store root. Keys are
// cleaned to prevent escaping the root.
func (s *FileStore) resolve(remoteURI string) (string, error) {
	bucket, key, err := ParseS3URI(remoteURI)
	if err != nil {
		return "", fmt.Errorf("%w: %v", domain.ErrTransfer, err)
	}
	cleaned := filepath.Clean(filepath.FromSlash(key))
	if cleaned == "." || strings.HasPrefix(cleaned, "..") {
		return "", fmt.Errorf("%w: invalid object key %q", domain.ErrTransfer, key)
	}
	return filepath.Join(s.basePath, bucket, cleaned), nil
}

// ParseS3URI splits s3://bucket/key into its parts.
func ParseS3URI(uri string) (bucket, key string, err error) {
	trimmed, ok := strings.CutPrefix(uri, "s3://")
	if !ok {
		return "", "", fmt.Errorf("not an s3 uri: %q", uri)
	}
	bucket, key, ok = strings.Cut(trimmed, "/")
	if !ok || bucket == "" || key == "" {
		return "", "", fmt.Errorf("malformed s3 uri: %q", uri)
	}
	return bucket, strings.TrimSuffix(key, "/"), nil
}

func firstVideoUnder(dir string) (string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return "", err
	}
	for _, entry := range entries {
		if !entry.IsDir() && strings.HasSuffix(entry.Name(), ".mp4") {
			return filepath.Join(dir, entry.Name()), nil
		}
	}
	return "", fmt.Errorf("no video object under %s", dir)
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return err
	}
	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}

var _ ObjectStore = (*FileStore)(nil)
