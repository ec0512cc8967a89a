package storage

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"
)

// Disk stores objects as flat files under a root directory served by the
// static file route. Keys never contain path separators; anything that would
// escape the root is rejected.
type Disk struct {
	root    string
	baseURL string
}

func NewDisk(root, baseURL string) *Disk {
	return &Disk{
		root:    filepath.Clean(root),
		baseURL: strings.TrimSuffix(baseURL, "/"),
	}
}

func (d *Disk) Save(ctx context.Context, key string, r io.Reader) error {
	target, err := d.resolve(key)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(d.root, 0o755); err != nil {
		log.Printf("[STORAGE] save: failed to create directory %s: %v", d.root, err)
		return err
	}

	out, err := os.Create(target)
	if err != nil {
		log.Printf("[STORAGE] save: failed to create file %s: %v", target, err)
		return err
	}
	defer out.Close()

	if _, err := io.Copy(out, r); err != nil {
		log.Printf("[STORAGE] save: failed to write %s: %v", target, err)
		return err
	}
	return nil
}

func (d *Disk) Remove(ctx context.Context, key string) error {
	target, err := d.resolve(key)
	if err != nil {
		return err
	}

	if err := os.Remove(target); err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	return nil
}

func (d *Disk) PublicURL(key string) string {
	return d.baseURL + "/" + key
}

func (d *Disk) resolve(key string) (string, error) {
	trimmed := strings.TrimSpace(key)
	if trimmed == "" {
		return "", fmt.Errorf("storage key is required")
	}
	if trimmed != filepath.Base(trimmed) {
		return "", fmt.Errorf("refusing storage key with path separators: %s", key)
	}

	target := filepath.Clean(filepath.Join(d.root, trimmed))
	if target != d.root && !strings.HasPrefix(target, d.root+string(os.PathSeparator)) {
		return "", fmt.Errorf("refusing storage key outside root: %s", key)
	}
	return target, nil
}
