package media

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// Disk keeps objects below Root and serves them from BaseURL.
type Disk struct {
	Root    string
	BaseURL string
}

func (d *Disk) Put(_ context.Context, key string, r io.Reader, _ string) (string, error) {
	dst := filepath.Join(d.Root, filepath.FromSlash(key))
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return "", fmt.Errorf("create media dir: %w", err)
	}
	f, err := os.Create(dst)
	if err != nil {
		return "", fmt.Errorf("create %s: %w", key, err)
	}
	if _, err := io.Copy(f, r); err != nil {
		f.Close()
		os.Remove(dst)
		return "", fmt.Errorf("write %s: %w", key, err)
	}
	if err := f.Close(); err != nil {
		return "", fmt.Errorf("close %s: %w", key, err)
	}
	return strings.TrimRight(d.BaseURL, "/") + "/" + key, nil
}

func (d *Disk) Delete(_ context.Context, url string) error {
	key, ok := strings.CutPrefix(url, strings.TrimRight(d.BaseURL, "/")+"/")
	if !ok || strings.Contains(key, "..") {
		return fmt.Errorf("url %q is not served from %s", url, d.BaseURL)
	}
	err := os.Remove(filepath.Join(d.Root, filepath.FromSlash(key)))
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove %s: %w", key, err)
	}
	return nil
}
