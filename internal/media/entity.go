// AngelaMos | 2026
// entity.go

package media

import (
	"time"

	"github.com/carterperez-dev/mediahub/internal/user"
)

// Asset records are immutable once inserted. The public URL is not
// stored; it is derived from StorageKey at read time.
type Asset struct {
	ID         string    `db:"id"`
	Name       string    `db:"name"`
	StorageKey string    `db:"storage_key"`
	MimeType   string    `db:"mime_type"`
	Type       Type      `db:"type"`
	Size       int64     `db:"size"`
	UploadedBy string    `db:"uploaded_by"`
	CreatedAt  time.Time `db:"created_at"`
}

type AssetWithUploader struct {
	Asset
	Uploader user.Summary `db:"uploader"`
}
