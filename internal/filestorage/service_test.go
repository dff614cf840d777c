package filestorage

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/textproto"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const testBaseURL = "http://media.test/media"

var (
	pngBytes  = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR\x00\x00\x00\x01\x00\x00\x00\x01\x08\x02\x00\x00\x00")
	jpegBytes = []byte("\xff\xd8\xff\xe0\x00\x10JFIF\x00\x01\x01\x00\x00\x01\x00\x01\x00\x00")
)

func setupFileStorageService(t *testing.T, maxBytes int64) *FileStorageService {
	t.Helper()
	s, cleanup, err := Open(context.Background(), "mem://", testBaseURL, maxBytes, zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(cleanup)
	return s
}

func newTestFileHeader(t *testing.T, fieldname, filename string, content []byte, contentType string) *multipart.FileHeader {
	t.Helper()
	body := new(bytes.Buffer)
	writer := multipart.NewWriter(body)

	partHeader := make(textproto.MIMEHeader)
	partHeader.Set("Content-Disposition", fmt.Sprintf(`form-data; name="%s"; filename="%s"`, fieldname, filename))
	if contentType != "" {
		partHeader.Set("Content-Type", contentType)
	}
	part, err := writer.CreatePart(partHeader)
	require.NoError(t, err)
	_, err = io.Copy(part, bytes.NewReader(content))
	require.NoError(t, err)
	require.NoError(t, writer.Close())

	form, err := multipart.NewReader(body, writer.Boundary()).ReadForm(32 << 20)
	require.NoError(t, err)
	files := form.File[fieldname]
	require.NotEmpty(t, files)
	return files[0]
}

func TestFileStorageService_SaveUploadedFile_Success(t *testing.T) {
	s := setupFileStorageService(t, 1<<20)
	ctx := context.Background()

	fh := newTestFileHeader(t, "image", "shoe.png", pngBytes, "image/png")
	url, err := s.SaveUploadedFile(ctx, fh, "shoes")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(url, testBaseURL+"/shoes/"))
	assert.True(t, strings.HasSuffix(url, ".png"))

	ok, err := s.Exists(ctx, url)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestFileStorageService_SaveUploadedFile_SniffsContent(t *testing.T) {
	s := setupFileStorageService(t, 1<<20)

	// Declared as png with a png name, but the bytes are a jpeg.
	fh := newTestFileHeader(t, "image", "lies.png", jpegBytes, "image/png")
	url, err := s.SaveUploadedFile(context.Background(), fh, "shoes")
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(url, ".jpg"))
}

func TestFileStorageService_SaveUploadedFile_UnsupportedType(t *testing.T) {
	s := setupFileStorageService(t, 1<<20)

	fh := newTestFileHeader(t, "image", "shoe.jpg", []byte("just some text"), "image/jpeg")
	_, err := s.SaveUploadedFile(context.Background(), fh, "shoes")
	assert.ErrorIs(t, err, ErrUnsupportedType)
}

func TestFileStorageService_SaveUploadedFile_TooLarge(t *testing.T) {
	s := setupFileStorageService(t, 8)

	fh := newTestFileHeader(t, "image", "shoe.png", pngBytes, "image/png")
	_, err := s.SaveUploadedFile(context.Background(), fh, "shoes")
	assert.ErrorIs(t, err, ErrTooLarge)
}

func TestFileStorageService_SaveUploadedFile_NilHeader(t *testing.T) {
	s := setupFileStorageService(t, 0)

	_, err := s.SaveUploadedFile(context.Background(), nil, "shoes")
	assert.EqualError(t, err, "fileHeader cannot be nil")
}

func TestFileStorageService_SaveUploadedFile_SubDirCannotEscape(t *testing.T) {
	s := setupFileStorageService(t, 1<<20)

	fh := newTestFileHeader(t, "image", "a.png", pngBytes, "")
	url, err := s.SaveUploadedFile(context.Background(), fh, "../../avatars")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(url, testBaseURL+"/avatars/"))
}

func TestFileStorageService_DeleteFile(t *testing.T) {
	s := setupFileStorageService(t, 1<<20)
	ctx := context.Background()

	fh := newTestFileHeader(t, "image", "shoe.png", pngBytes, "image/png")
	url, err := s.SaveUploadedFile(ctx, fh, "shoes")
	require.NoError(t, err)

	require.NoError(t, s.DeleteFile(ctx, url))
	ok, err := s.Exists(ctx, url)
	require.NoError(t, err)
	assert.False(t, ok)

	t.Run("non existent is not an error", func(t *testing.T) {
		assert.NoError(t, s.DeleteFile(ctx, url))
	})

	t.Run("foreign url", func(t *testing.T) {
		assert.ErrorIs(t, s.DeleteFile(ctx, "http://elsewhere/x.png"), ErrInvalidPath)
	})

	t.Run("path traversal", func(t *testing.T) {
		assert.ErrorIs(t, s.DeleteFile(ctx, testBaseURL+"/../secret"), ErrInvalidPath)
	})
}
