// AngelaMos | 2026
// delivery.go

package media

import (
	"mime"
	"strings"
)

const (
	fallbackContentType = "application/octet-stream"
	svgContentType      = "image/svg+xml"

	// SandboxPolicy stops any markup that slips through from running with
	// the API's origin.
	SandboxPolicy = "sandbox"
)

// Delivery is how a stored asset is presented to a browser.
type Delivery struct {
	ContentType string
	Disposition string
}

// DeliveryFor renders raster images and video inline under their declared
// type. SVG and every document are sent as attachments, and documents lose
// their declared type so nothing uploaded renders as HTML.
func DeliveryFor(a *Asset) Delivery {
	mediaType, _, err := mime.ParseMediaType(a.MimeType)
	if err != nil {
		mediaType = ""
	}

	switch {
	case mediaType == "":
		return Delivery{ContentType: fallbackContentType, Disposition: attachment(a.Name)}
	case mediaType == svgContentType:
		return Delivery{ContentType: svgContentType, Disposition: attachment(a.Name)}
	case Classify(mediaType) == TypeDocument:
		return Delivery{ContentType: fallbackContentType, Disposition: attachment(a.Name)}
	default:
		return Delivery{ContentType: mediaType, Disposition: "inline"}
	}
}

func attachment(name string) string {
	name = strings.TrimSpace(name)
	if name == "" {
		return "attachment"
	}
	if v := mime.FormatMediaType("attachment", map[string]string{"filename": name}); v != "" {
		return v
	}
	return "attachment"
}
