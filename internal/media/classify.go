// AngelaMos | 2026
// classify.go

package media

import (
	"strings"
)

type Type string

const (
	TypeImage    Type = "image"
	TypeVideo    Type = "video"
	TypeDocument Type = "document"
)

var Types = []Type{TypeImage, TypeVideo, TypeDocument}

// Classify maps a declared MIME type onto an asset type by its top-level
// prefix. Case and parameters are ignored; anything unrecognised is a
// document.
func Classify(mimeType string) Type {
	mt := strings.ToLower(strings.TrimSpace(mimeType))
	switch {
	case strings.HasPrefix(mt, "image/"):
		return TypeImage
	case strings.HasPrefix(mt, "video/"):
		return TypeVideo
	default:
		return TypeDocument
	}
}
