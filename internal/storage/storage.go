package storage

import (
	"context"
	"fmt"
	"io"
	"path"
	"strings"
	"time"
)

// Storage is the contract of the hosted object store: whole objects keyed by
// filename, each reachable at a stable public URL. Remove tolerates missing
// objects so callers can treat cleanup as best-effort.
type Storage interface {
	Save(ctx context.Context, key string, r io.Reader) error
	Remove(ctx context.Context, key string) error
	PublicURL(key string) string
}

// ObjectKey builds the storage key for an uploaded product image:
// <productId>-<imageType>-<unix ms>.<ext>.
func ObjectKey(productID, imageType, filename string) (string, error) {
	ext := strings.ToLower(path.Ext(filename))
	if ext == "" {
		return "", fmt.Errorf("image file extension is required")
	}
	return fmt.Sprintf("%s-%s-%d%s", productID, imageType, time.Now().UnixMilli(), ext), nil
}
