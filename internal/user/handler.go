// AngelaMos | 2026
// handler.go

package user

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/carterperez-dev/mediahub/internal/core"
	"github.com/carterperez-dev/mediahub/internal/middleware"
	"github.com/carterperez-dev/mediahub/internal/policy"
)

type Handler struct {
	service *Service
}

func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// RegisterRoutes mounts the admin-only user management endpoints.
func (h *Handler) RegisterRoutes(
	r chi.Router,
	authenticator func(http.Handler) http.Handler,
) {
	r.Route("/users", func(r chi.Router) {
		r.Use(authenticator)

		r.With(middleware.RequirePermission(policy.ActionListUsers)).
			Get("/", h.ListUsers)

		r.Group(func(r chi.Router) {
			r.Use(middleware.RequirePermission(policy.ActionManageUsers))
			r.Put("/{userID}/role", h.UpdateUserRole)
			r.Put("/{userID}/password", h.ResetPassword)
		})
	})
}

// ListUsers returns users newest first, without password hashes. The whole
// list comes back unless page_size is given.
func (h *Handler) ListUsers(w http.ResponseWriter, r *http.Request) {
	actor, _ := middleware.GetIdentity(r.Context())

	params := ListUsersParams{
		Page:     parseIntQuery(r, "page", 1),
		PageSize: parseIntQuery(r, "page_size", 0),
		Search:   r.URL.Query().Get("search"),
		Role:     r.URL.Query().Get("role"),
	}
	params.Normalize()

	users, total, err := h.service.ListUsers(r.Context(), actor, params)
	if err != nil {
		core.JSONError(w, err)
		return
	}

	pageSize := params.PageSize
	if !params.Paged() {
		pageSize = total
	}

	core.Paginated(
		w,
		ToUserResponseList(users),
		params.Page,
		pageSize,
		total,
	)
}

func (h *Handler) UpdateUserRole(w http.ResponseWriter, r *http.Request) {
	actor, _ := middleware.GetIdentity(r.Context())
	userID := chi.URLParam(r, "userID")

	var req UpdateUserRoleRequest
	if !core.DecodeJSON(w, r, &req) {
		return
	}

	user, err := h.service.UpdateUserRole(r.Context(), actor, userID, req.Role)
	if err != nil {
		core.JSONError(w, err)
		return
	}

	core.OK(w, ToUserResponse(user))
}

func (h *Handler) ResetPassword(w http.ResponseWriter, r *http.Request) {
	actor, _ := middleware.GetIdentity(r.Context())
	userID := chi.URLParam(r, "userID")

	var req ResetPasswordRequest
	if !core.DecodeJSON(w, r, &req) {
		return
	}

	if err := h.service.ResetPassword(r.Context(), actor, userID, req.Password); err != nil {
		core.JSONError(w, err)
		return
	}

	core.OK(w, map[string]string{"message": "password updated"})
}

func parseIntQuery(r *http.Request, key string, defaultVal int) int {
	val := r.URL.Query().Get(key)
	if val == "" {
		return defaultVal
	}

	parsed, err := strconv.Atoi(val)
	if err != nil {
		return defaultVal
	}

	return parsed
}
