// AngelaMos | 2026
// handler.go

package content

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/carterperez-dev/mediahub/internal/core"
	"github.com/carterperez-dev/mediahub/internal/middleware"
)

type Handler struct {
	service *Service
}

func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

func (h *Handler) RegisterRoutes(
	r chi.Router,
	authenticator func(http.Handler) http.Handler,
) {
	r.Route("/content", func(r chi.Router) {
		r.Use(authenticator)

		r.Get("/", h.List)
		r.Post("/", h.Create)
		r.Get("/{contentID}", h.Get)
		r.Put("/{contentID}", h.Update)
		r.Delete("/{contentID}", h.Delete)
	})
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

func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	identity, _ := middleware.GetIdentity(r.Context())

	item, err := h.service.Get(r.Context(), identity, chi.URLParam(r, "contentID"))
	if err != nil {
		writeError(w, err)
		return
	}

	core.OK(w, item)
}

func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	identity, _ := middleware.GetIdentity(r.Context())

	var req CreateContentRequest
	if !core.DecodeJSON(w, r, &req) {
		return
	}

	item, err := h.service.Create(r.Context(), identity, req.toInput())
	if err != nil {
		writeError(w, err)
		return
	}

	core.Created(w, item)
}

func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	identity, _ := middleware.GetIdentity(r.Context())

	var req UpdateContentRequest
	if !core.DecodeJSON(w, r, &req) {
		return
	}

	item, err := h.service.Update(
		r.Context(),
		identity,
		chi.URLParam(r, "contentID"),
		req.toPatch(),
	)
	if err != nil {
		writeError(w, err)
		return
	}

	core.OK(w, item)
}

func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	identity, _ := middleware.GetIdentity(r.Context())
	id := chi.URLParam(r, "contentID")

	if err := h.service.Delete(r.Context(), identity, id); err != nil {
		writeError(w, err)
		return
	}

	core.OK(w, DeleteResponse{
		Message: "content deleted successfully",
		ID:      id,
	})
}

func writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, core.ErrInvalidID):
		core.JSONError(w, core.InvalidIDError("content"))
	case errors.Is(err, core.ErrNotFound):
		core.NotFound(w, "content")
	case errors.Is(err, core.ErrForbidden):
		core.Forbidden(w, "insufficient permissions")
	default:
		core.JSONError(w, err)
	}
}
