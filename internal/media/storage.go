// AngelaMos | 2026
// storage.go

package media

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/carterperez-dev/mediahub/internal/config"
)

var ErrInvalidKey = errors.New("invalid storage key")

// BlobStore is the durable byte store behind media assets.
type BlobStore interface {
	Put(ctx context.Context, key string, r io.Reader, contentType string) error
	Delete(ctx context.Context, key string) error
}

// Blob is a seekable handle onto a stored object.
type Blob struct {
	io.ReadSeekCloser
	ModTime time.Time
	Size    int64
}

// Opener is implemented by stores that can serve seekable reads locally.
type Opener interface {
	Open(ctx context.Context, key string) (*Blob, error)
}

// URLSigner is implemented by stores that hand reads off to a signed URL.
// The signed response carries d's headers instead of the stored ones.
type URLSigner interface {
	PresignGet(ctx context.Context, key string, d Delivery) (string, error)
}

// ValidKey accepts the flat keys this package generates and nothing that
// could escape a storage root.
func ValidKey(key string) bool {
	if key == "" || len(key) > 128 || strings.HasPrefix(key, ".") {
		return false
	}
	for _, r := range key {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
		case r == '-', r == '_', r == '.':
		default:
			return false
		}
	}
	return !strings.Contains(key, "..")
}

// NewBlobStore builds the backend named by cfg.Backend.
func NewBlobStore(ctx context.Context, cfg config.StorageConfig) (BlobStore, error) {
	switch cfg.Backend {
	case config.StorageFS, "":
		return NewFSStore(cfg.FS.BaseDir)
	case config.StorageS3:
		return NewS3Store(ctx, cfg.S3)
	default:
		return nil, fmt.Errorf("unknown storage backend %q", cfg.Backend)
	}
}
