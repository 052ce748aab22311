package users

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/waari-travel/waari-erp/internal/platform/httpx"
	"github.com/waari-travel/waari-erp/internal/rbac"
	"github.com/waari-travel/waari-erp/internal/shared"
)

// Handler manages user management endpoints.
type Handler struct {
	logger  *slog.Logger
	service *Service
	rbac    rbac.Middleware
}

// NewHandler builds Handler instance.
func NewHandler(logger *slog.Logger, service *Service, rbac rbac.Middleware) *Handler {
	return &Handler{logger: logger, service: service, rbac: rbac}
}

// MountRoutes registers user routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.With(h.rbac.RequireAny(shared.PermUsersAdd)).Post("/", h.createUser)
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireAny(shared.PermUsersView))
		r.Get("/", h.listUsers)
		r.Get("/{userID}", h.getUser)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireAny(shared.PermUsersEdit))
		r.Put("/{userID}", h.updateUser)
		r.Patch("/{userID}/status", h.setStatus)
	})
	r.With(h.rbac.RequireAny(shared.PermUsersDelete)).Delete("/{userID}", h.deleteUser)
}

func (h *Handler) createUser(w http.ResponseWriter, r *http.Request) {
	var in CreateUserInput
	if err := httpx.DecodeJSON(r, &in); err != nil {
		httpx.RespondError(w, err)
		return
	}
	if fields := httpx.Validate(in); fields != nil {
		httpx.ValidationFailed(w, fields)
		return
	}
	actor, _ := shared.PrincipalFromContext(r.Context())
	u, err := h.service.Create(r.Context(), actor, in)
	if err != nil {
		h.fail(w, "create user", err)
		return
	}
	httpx.JSON(w, http.StatusCreated, map[string]any{"message": "User added successfully", "data": u})
}

func (h *Handler) listUsers(w http.ResponseWriter, r *http.Request) {
	actor, _ := shared.PrincipalFromContext(r.Context())
	q := r.URL.Query()
	page, _ := strconv.Atoi(q.Get("page"))
	size, _ := strconv.Atoi(q.Get("pageSize"))
	roleID, _ := strconv.ParseInt(q.Get("roleId"), 10, 64)
	result, err := h.service.List(r.Context(), ListFilters{
		ClientCode: actor.ClientCode,
		Search:     q.Get("search"),
		RoleID:     roleID,
		Page:       page,
		PageSize:   size,
	})
	if err != nil {
		h.fail(w, "list users", err)
		return
	}
	httpx.JSON(w, http.StatusOK, result)
}

func (h *Handler) getUser(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.userID(w, r)
	if !ok {
		return
	}
	actor, _ := shared.PrincipalFromContext(r.Context())
	u, err := h.service.Get(r.Context(), actor, userID)
	if err != nil {
		h.fail(w, "get user", err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"data": u})
}

func (h *Handler) updateUser(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.userID(w, r)
	if !ok {
		return
	}
	var in UpdateUserInput
	if err := httpx.DecodeJSON(r, &in); err != nil {
		httpx.RespondError(w, err)
		return
	}
	if fields := httpx.Validate(in); fields != nil {
		httpx.ValidationFailed(w, fields)
		return
	}
	actor, _ := shared.PrincipalFromContext(r.Context())
	u, err := h.service.Update(r.Context(), actor, userID, in)
	if err != nil {
		h.fail(w, "update user", err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"message": "User updated successfully", "data": u})
}

func (h *Handler) setStatus(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.userID(w, r)
	if !ok {
		return
	}
	var in StatusInput
	if err := httpx.DecodeJSON(r, &in); err != nil {
		httpx.RespondError(w, err)
		return
	}
	if fields := httpx.Validate(in); fields != nil {
		httpx.ValidationFailed(w, fields)
		return
	}
	actor, _ := shared.PrincipalFromContext(r.Context())
	u, err := h.service.SetStatus(r.Context(), actor, userID, *in.Active)
	if err != nil {
		h.fail(w, "set user status", err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"message": "Status updated successfully", "data": u})
}

func (h *Handler) deleteUser(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.userID(w, r)
	if !ok {
		return
	}
	actor, _ := shared.PrincipalFromContext(r.Context())
	if err := h.service.Delete(r.Context(), actor, userID); err != nil {
		h.fail(w, "delete user", err)
		return
	}
	httpx.Message(w, http.StatusOK, "User deleted successfully")
}

func (h *Handler) userID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "userID"), 10, 64)
	if err != nil || id <= 0 {
		httpx.Fail(w, http.StatusBadRequest, "userId is invalid")
		return 0, false
	}
	return id, true
}

func (h *Handler) fail(w http.ResponseWriter, op string, err error) {
	if httpx.StatusFor(err) == http.StatusInternalServerError && h.logger != nil {
		h.logger.Error(op, slog.Any("error", err))
	}
	httpx.RespondError(w, err)
}
