// AngelaMos | 2026
// handler.go

package media

import (
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/carterperez-dev/mediahub/internal/core"
	"github.com/carterperez-dev/mediahub/internal/middleware"
)

const (
	uploadField = "file"
	// multipartSlack covers boundaries and part headers around the file.
	multipartSlack = 1 << 20
)

type Handler struct {
	service       *Service
	maxUploadSize int64
}

func NewHandler(service *Service, maxUploadSize int64) *Handler {
	return &Handler{
		service:       service,
		maxUploadSize: maxUploadSize,
	}
}

// RegisterRoutes mounts the authenticated media API. Guards wrap only the
// upload endpoint and run after authentication, so they can key on the
// caller's identity.
func (h *Handler) RegisterRoutes(
	r chi.Router,
	authenticator func(http.Handler) http.Handler,
	guards ...func(http.Handler) http.Handler,
) {
	r.Route("/media", func(r chi.Router) {
		r.Use(authenticator)

		r.Get("/", h.List)
		r.With(guards...).Post("/upload", h.Upload)
	})
}

// RegisterStreamRoutes mounts the public byte-serving route. It lives
// outside the API prefix and needs no token.
func (h *Handler) RegisterStreamRoutes(r chi.Router) {
	r.Get("/uploads/{key}", h.Serve)
	r.Head("/uploads/{key}", h.Serve)
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	identity, _ := middleware.GetIdentity(r.Context())

	items, err := h.service.List(r.Context(), identity)
	if err != nil {
		writeError(w, err)
		return
	}

	core.OK(w, items)
}

// Upload streams the "file" part straight into the service without
// buffering the whole body in memory.
func (h *Handler) Upload(w http.ResponseWriter, r *http.Request) {
	identity, _ := middleware.GetIdentity(r.Context())

	if h.maxUploadSize > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadSize+multipartSlack)
	}

	mr, err := r.MultipartReader()
	if err != nil {
		core.BadRequest(w, "multipart form data required")
		return
	}

	part, err := nextFilePart(mr)
	if err != nil {
		if isBodyTooLarge(err) {
			writeTooLarge(w)
			return
		}
		core.BadRequest(w, "no file uploaded")
		return
	}
	defer part.Close() //nolint:errcheck // request body

	asset, err := h.service.Ingest(
		r.Context(),
		identity,
		part,
		part.Header.Get("Content-Type"),
		part.FileName(),
	)
	if err != nil {
		writeError(w, err)
		return
	}

	core.Created(w, asset)
}

func (h *Handler) Serve(w http.ResponseWriter, r *http.Request) {
	stream, err := h.service.Open(r.Context(), chi.URLParam(r, "key"))
	if err != nil {
		writeError(w, err)
		return
	}

	if stream.RedirectURL != "" {
		http.Redirect(w, r, stream.RedirectURL, http.StatusTemporaryRedirect)
		return
	}
	defer stream.Blob.Close() //nolint:errcheck // read-only handle

	delivery := DeliveryFor(stream.Asset)
	w.Header().Set("Content-Type", delivery.ContentType)
	w.Header().Set("Content-Disposition", delivery.Disposition)
	w.Header().Set("Content-Security-Policy", SandboxPolicy)
	w.Header().Set("X-Content-Type-Options", "nosniff")
	if stream.Asset.Type == TypeVideo {
		w.Header().Set("Accept-Ranges", "bytes")
	}

	http.ServeContent(w, r, stream.Asset.Name, stream.Blob.ModTime, stream.Blob)
}

func nextFilePart(mr *multipart.Reader) (*multipart.Part, error) {
	for {
		part, err := mr.NextPart()
		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil, fmt.Errorf("missing %q part", uploadField)
			}
			return nil, err
		}
		if part.FormName() == uploadField && part.FileName() != "" {
			return part, nil
		}
		_ = part.Close() //nolint:errcheck // skipping unrelated field
	}
}

func isBodyTooLarge(err error) bool {
	var maxErr *http.MaxBytesError
	return errors.As(err, &maxErr) || errors.Is(err, ErrTooLarge)
}

func writeTooLarge(w http.ResponseWriter) {
	core.JSONError(w, core.NewAppError(
		ErrTooLarge,
		"file exceeds maximum upload size",
		http.StatusRequestEntityTooLarge,
		"PAYLOAD_TOO_LARGE",
	))
}

func writeError(w http.ResponseWriter, err error) {
	switch {
	case isBodyTooLarge(err):
		writeTooLarge(w)
	case errors.Is(err, core.ErrNotFound):
		core.NotFound(w, "media")
	case errors.Is(err, core.ErrForbidden):
		core.Forbidden(w, "insufficient permissions")
	default:
		core.JSONError(w, err)
	}
}
