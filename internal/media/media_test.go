package media

import (
	"bytes"
	"context"
	"image"
	"image/png"
	"mime/multipart"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fileHeader builds a multipart header the same way a real request would.
func fileHeader(t *testing.T, name string, content []byte) *multipart.FileHeader {
	t.Helper()
	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	part, err := w.CreateFormFile("media", name)
	require.NoError(t, err)
	_, err = part.Write(content)
	require.NoError(t, err)
	require.NoError(t, w.Close())

	req := httptest.NewRequest("POST", "/", &body)
	req.Header.Set("Content-Type", w.FormDataContentType())
	require.NoError(t, req.ParseMultipartForm(1<<20))
	return req.MultipartForm.File["media"][0]
}

func pngBytes(t *testing.T) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, image.NewRGBA(image.Rect(0, 0, 2, 2))))
	return buf.Bytes()
}

func TestUploaderSavesToDisk(t *testing.T) {
	root := t.TempDir()
	u := &Uploader{Storage: &Disk{Root: root, BaseURL: "http://localhost:8080/static"}, MaxBytes: 1 << 20}
	ctx := context.Background()

	url, err := u.Save(ctx, "posts", fileHeader(t, "pic.png", pngBytes(t)), PostTypes)
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(url, "http://localhost:8080/static/posts/"))
	assert.True(t, strings.HasSuffix(url, ".png"))

	key := strings.TrimPrefix(url, "http://localhost:8080/static/")
	stored, err := os.ReadFile(filepath.Join(root, key))
	require.NoError(t, err)
	assert.Equal(t, pngBytes(t), stored)

	require.NoError(t, u.Storage.Delete(ctx, url))
	_, err = os.Stat(filepath.Join(root, key))
	assert.True(t, os.IsNotExist(err))
}

func TestUploaderRejects(t *testing.T) {
	u := &Uploader{Storage: &Disk{Root: t.TempDir(), BaseURL: "/static"}, MaxBytes: 16}
	ctx := context.Background()

	_, err := u.Save(ctx, "avatars", fileHeader(t, "notes.txt", []byte("hi")), ImageTypes)
	assert.ErrorIs(t, err, ErrUnsupportedType)

	_, err = u.Save(ctx, "avatars", fileHeader(t, "big.png", pngBytes(t)), ImageTypes)
	assert.ErrorIs(t, err, ErrTooLarge)
}

func TestSaveAllRollsBack(t *testing.T) {
	root := t.TempDir()
	u := &Uploader{Storage: &Disk{Root: root, BaseURL: "/static"}}

	files := []*multipart.FileHeader{
		fileHeader(t, "a.png", pngBytes(t)),
		fileHeader(t, "b.txt", []byte("plain")),
	}
	_, err := u.SaveAll(context.Background(), "posts", files, PostTypes)
	require.ErrorIs(t, err, ErrUnsupportedType)

	entries, err := os.ReadDir(filepath.Join(root, "posts"))
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestDiskDeleteRejectsForeignURL(t *testing.T) {
	d := &Disk{Root: t.TempDir(), BaseURL: "/static"}

	assert.Error(t, d.Delete(context.Background(), "https://elsewhere/x.png"))
	assert.Error(t, d.Delete(context.Background(), "/static/../secret"))
}
