// File: internal/filestorage/service.go
package filestorage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"path"
	"strings"

	"shoe_market_backend/internal/config"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"gocloud.dev/blob"
	_ "gocloud.dev/blob/fileblob"
	_ "gocloud.dev/blob/memblob"
	"gocloud.dev/gcerrors"
)

var (
	// ErrUnsupportedType is returned for uploads whose content is not an image.
	ErrUnsupportedType = errors.New("unsupported file type")
	// ErrTooLarge is returned for uploads above the configured size limit.
	ErrTooLarge = errors.New("file too large")
	// ErrInvalidPath is returned when a URL does not point into the store.
	ErrInvalidPath = errors.New("invalid file path for deletion")
)

// Store saves and removes media. Callers only ever see public URLs.
type Store interface {
	SaveUploadedFile(ctx context.Context, fileHeader *multipart.FileHeader, subDir string) (string, error)
	DeleteFile(ctx context.Context, fileURL string) error
}

// FileStorageService stores media in a gocloud blob bucket.
type FileStorageService struct {
	bucket        *blob.Bucket
	publicBaseURL string
	maxBytes      int64
	logger        *zap.Logger
}

// NewFileStorageService opens MEDIA_BUCKET_URL. The returned cleanup closes the bucket.
func NewFileStorageService(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*FileStorageService, func(), error) {
	return Open(ctx, cfg.MediaBucketURL, cfg.MediaPublicBaseURL, cfg.MaxUploadMB<<20, logger)
}

// Open opens bucketURL (file://, mem://, ...) and serves keys under publicBaseURL.
func Open(ctx context.Context, bucketURL, publicBaseURL string, maxBytes int64, logger *zap.Logger) (*FileStorageService, func(), error) {
	if bucketURL == "" {
		return nil, nil, fmt.Errorf("media bucket URL cannot be empty")
	}
	bucket, err := blob.OpenBucket(ctx, bucketURL)
	if err != nil {
		logger.Error("Failed to open media bucket", zap.String("url", bucketURL), zap.Error(err))
		return nil, nil, fmt.Errorf("failed to open media bucket %s: %w", bucketURL, err)
	}
	s := &FileStorageService{
		bucket:        bucket,
		publicBaseURL: strings.TrimRight(publicBaseURL, "/"),
		maxBytes:      maxBytes,
		logger:        logger.Named("FileStorageService"),
	}
	s.logger.Info("FileStorageService initialized", zap.String("bucket", bucketURL))
	cleanup := func() {
		if err := bucket.Close(); err != nil {
			s.logger.Warn("Failed to close media bucket", zap.Error(err))
		}
	}
	return s, cleanup, nil
}

// SniffImage detects the content type of data and accepts images only.
// It returns the MIME type and the canonical file extension.
func SniffImage(data []byte) (string, string, error) {
	m := mimetype.Detect(data)
	if !strings.HasPrefix(m.String(), "image/") {
		return "", "", fmt.Errorf("%w: %s", ErrUnsupportedType, m.String())
	}
	return m.String(), m.Extension(), nil
}

// ReadUpload reads an uploaded file, enforcing limit (0 means unlimited).
func ReadUpload(fileHeader *multipart.FileHeader, limit int64) ([]byte, error) {
	if fileHeader == nil {
		return nil, fmt.Errorf("fileHeader cannot be nil")
	}
	src, err := fileHeader.Open()
	if err != nil {
		return nil, fmt.Errorf("failed to open uploaded file: %w", err)
	}
	defer src.Close()

	var r io.Reader = src
	if limit > 0 {
		r = io.LimitReader(src, limit+1)
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read uploaded file: %w", err)
	}
	if limit > 0 && int64(len(data)) > limit {
		return nil, ErrTooLarge
	}
	return data, nil
}

// SaveUploadedFile stores an image under subDir with a generated name and
// returns its public URL. The content type is sniffed from the bytes; the
// client-supplied Content-Type and file name are ignored.
func (s *FileStorageService) SaveUploadedFile(ctx context.Context, fileHeader *multipart.FileHeader, subDir string) (string, error) {
	data, err := ReadUpload(fileHeader, s.maxBytes)
	if err != nil {
		return "", err
	}
	contentType, ext, err := SniffImage(data)
	if err != nil {
		return "", err
	}

	cleanSubDir := path.Clean("/" + subDir)[1:]
	key := path.Join(cleanSubDir, uuid.New().String()+ext)

	if err := s.bucket.WriteAll(ctx, key, data, &blob.WriterOptions{ContentType: contentType}); err != nil {
		s.logger.Error("Failed to write media object", zap.String("key", key), zap.Error(err))
		return "", fmt.Errorf("failed to save file: %w", err)
	}

	s.logger.Info("File saved successfully", zap.String("key", key), zap.String("contentType", contentType))
	return s.publicBaseURL + "/" + key, nil
}

// DeleteFile removes the object behind a URL returned by SaveUploadedFile.
// A missing object is not an error.
func (s *FileStorageService) DeleteFile(ctx context.Context, fileURL string) error {
	key, err := s.keyFromURL(fileURL)
	if err != nil {
		s.logger.Warn("Refusing to delete file outside the media store", zap.String("url", fileURL))
		return err
	}

	if err := s.bucket.Delete(ctx, key); err != nil {
		if gcerrors.Code(err) == gcerrors.NotFound {
			s.logger.Warn("Attempt to delete non-existent file", zap.String("key", key))
			return nil
		}
		s.logger.Error("Failed to delete file", zap.String("key", key), zap.Error(err))
		return fmt.Errorf("failed to delete file %s: %w", key, err)
	}

	s.logger.Info("File deleted successfully", zap.String("key", key))
	return nil
}

// Exists reports whether the object behind fileURL is present.
func (s *FileStorageService) Exists(ctx context.Context, fileURL string) (bool, error) {
	key, err := s.keyFromURL(fileURL)
	if err != nil {
		return false, err
	}
	return s.bucket.Exists(ctx, key)
}

func (s *FileStorageService) keyFromURL(fileURL string) (string, error) {
	prefix := s.publicBaseURL + "/"
	if !strings.HasPrefix(fileURL, prefix) {
		return "", ErrInvalidPath
	}
	key := strings.TrimPrefix(fileURL, prefix)
	if key == "" || strings.Contains(key, "..") || strings.HasPrefix(key, "/") {
		return "", ErrInvalidPath
	}
	return key, nil
}
