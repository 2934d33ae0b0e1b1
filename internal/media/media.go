// Package media stores uploaded avatars and post attachments.
package media

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"path"
	"slices"

	"github.com/google/uuid"
)

var (
	ErrUnsupportedType = errors.New("unsupported file type")
	ErrTooLarge        = errors.New("file too large")
)

var (
	ImageTypes = []string{"image/jpeg", "image/png"}
	PostTypes  = []string{"image/jpeg", "image/png", "image/gif", "video/mp4"}
)

var extensions = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
	"image/gif":  ".gif",
	"video/mp4":  ".mp4",
}

// Storage persists objects under a key and hands back the URL clients fetch them from.
type Storage interface {
	Put(ctx context.Context, key string, r io.Reader, contentType string) (url string, err error)
	Delete(ctx context.Context, url string) error
}

// Uploader checks uploads and names them before handing them to a Storage.
type Uploader struct {
	Storage  Storage
	MaxBytes int64
}

// Save stores fh under dir with a random name and returns its URL.
func (u *Uploader) Save(ctx context.Context, dir string, fh *multipart.FileHeader, allowed []string) (string, error) {
	if u.MaxBytes > 0 && fh.Size > u.MaxBytes {
		return "", fmt.Errorf("%w: %s is %d bytes", ErrTooLarge, fh.Filename, fh.Size)
	}
	f, err := fh.Open()
	if err != nil {
		return "", fmt.Errorf("open upload %s: %w", fh.Filename, err)
	}
	defer f.Close()

	head := make([]byte, 512)
	n, err := io.ReadFull(f, head)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		return "", fmt.Errorf("read upload %s: %w", fh.Filename, err)
	}
	head = head[:n]

	contentType := http.DetectContentType(head)
	if !slices.Contains(allowed, contentType) {
		return "", fmt.Errorf("%w: %s", ErrUnsupportedType, contentType)
	}

	key := path.Join(dir, uuid.NewString()+extensions[contentType])
	return u.Storage.Put(ctx, key, io.MultiReader(bytes.NewReader(head), f), contentType)
}

// SaveAll stores every file or none: files already written are removed when a later one fails.
func (u *Uploader) SaveAll(ctx context.Context, dir string, files []*multipart.FileHeader, allowed []string) ([]string, error) {
	urls := make([]string, 0, len(files))
	for _, fh := range files {
		url, err := u.Save(ctx, dir, fh, allowed)
		if err != nil {
			u.DeleteAll(ctx, urls)
			return nil, err
		}
		urls = append(urls, url)
	}
	return urls, nil
}

// DeleteAll removes urls, ignoring failures; it is used for cleanup only.
func (u *Uploader) DeleteAll(ctx context.Context, urls []string) {
	for _, url := range urls {
		_ = u.Storage.Delete(ctx, url)
	}
}
