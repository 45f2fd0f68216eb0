// AngelaMos | 2026
// dto.go

package media

import (
	"net/url"
	"strings"
	"time"

	"github.com/carterperez-dev/mediahub/internal/user"
)

type AssetResponse struct {
	ID         string       `json:"id"`
	Name       string       `json:"name"`
	URL        string       `json:"url"`
	MimeType   string       `json:"mime_type"`
	Type       Type         `json:"type"`
	Size       int64        `json:"size"`
	UploadedBy string       `json:"uploaded_by"`
	Uploader   user.Summary `json:"uploader"`
	CreatedAt  time.Time    `json:"created_at"`
}

// PublicURL joins the configured origin with the streaming route.
func PublicURL(baseURL, key string) string {
	return strings.TrimRight(baseURL, "/") + "/uploads/" + url.PathEscape(key)
}

func toAssetResponse(a *AssetWithUploader, baseURL string) AssetResponse {
	return AssetResponse{
		ID:         a.ID,
		Name:       a.Name,
		URL:        PublicURL(baseURL, a.StorageKey),
		MimeType:   a.MimeType,
		Type:       a.Type,
		Size:       a.Size,
		UploadedBy: a.UploadedBy,
		Uploader:   a.Uploader,
		CreatedAt:  a.CreatedAt,
	}
}
