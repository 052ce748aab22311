package roles

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/waari-travel/waari-erp/internal/platform/httpx"
	"github.com/waari-travel/waari-erp/internal/rbac"
	"github.com/waari-travel/waari-erp/internal/shared"
)

// Handler manages role management endpoints.
type Handler struct {
	logger  *slog.Logger
	service *Service
	rbac    rbac.Middleware
}

// NewHandler builds Handler instance.
func NewHandler(logger *slog.Logger, service *Service, rbac rbac.Middleware) *Handler {
	return &Handler{logger: logger, service: service, rbac: rbac}
}

// MountRoutes registers role routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.With(h.rbac.RequireAny(shared.PermRolesAdd)).Post("/", h.createRole)
	r.With(h.rbac.RequireAny(shared.PermRolesView)).Get("/", h.listRoles)
	r.With(h.rbac.Authenticated()).Get("/dropdown", h.dropdown)
	r.With(h.rbac.RequireAny(shared.PermRolesView)).Get("/{roleID}", h.getRole)
	r.With(h.rbac.RequireAny(shared.PermRolesEdit)).Put("/{roleID}", h.updateRole)
	r.With(h.rbac.RequireAny(shared.PermRolesDelete)).Delete("/{roleID}", h.deleteRole)
}

func (h *Handler) createRole(w http.ResponseWriter, r *http.Request) {
	var in CreateRoleInput
	if err := httpx.DecodeJSON(r, &in); err != nil {
		httpx.RespondError(w, err)
		return
	}
	if fields := httpx.Validate(in); fields != nil {
		httpx.ValidationFailed(w, fields)
		return
	}
	actor, _ := shared.PrincipalFromContext(r.Context())
	role, err := h.service.Create(r.Context(), actor, in)
	if err != nil {
		h.fail(w, "create role", err)
		return
	}
	httpx.JSON(w, http.StatusCreated, map[string]any{"message": "Role added successfully", "data": role})
}

func (h *Handler) listRoles(w http.ResponseWriter, r *http.Request) {
	actor, _ := shared.PrincipalFromContext(r.Context())
	q := r.URL.Query()
	page, _ := strconv.Atoi(q.Get("page"))
	size, _ := strconv.Atoi(q.Get("pageSize"))
	result, err := h.service.List(r.Context(), ListFilters{
		ClientCode: actor.ClientCode,
		Name:       q.Get("roleName"),
		Page:       page,
		PageSize:   size,
	})
	if err != nil {
		h.fail(w, "list roles", err)
		return
	}
	httpx.JSON(w, http.StatusOK, result)
}

func (h *Handler) dropdown(w http.ResponseWriter, r *http.Request) {
	actor, _ := shared.PrincipalFromContext(r.Context())
	opts, err := h.service.Dropdown(r.Context(), actor.ClientCode)
	if err != nil {
		h.fail(w, "role dropdown", err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"data": opts})
}

func (h *Handler) getRole(w http.ResponseWriter, r *http.Request) {
	roleID, ok := h.roleID(w, r)
	if !ok {
		return
	}
	actor, _ := shared.PrincipalFromContext(r.Context())
	role, err := h.service.Get(r.Context(), actor, roleID)
	if err != nil {
		h.fail(w, "get role", err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"data": role})
}

func (h *Handler) updateRole(w http.ResponseWriter, r *http.Request) {
	roleID, ok := h.roleID(w, r)
	if !ok {
		return
	}
	var in UpdateRoleInput
	if err := httpx.DecodeJSON(r, &in); err != nil {
		httpx.RespondError(w, err)
		return
	}
	if fields := httpx.Validate(in); fields != nil {
		httpx.ValidationFailed(w, fields)
		return
	}
	actor, _ := shared.PrincipalFromContext(r.Context())
	role, err := h.service.Update(r.Context(), actor, roleID, in)
	if err != nil {
		h.fail(w, "update role", err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"message": "Role updated successfully", "data": role})
}

func (h *Handler) deleteRole(w http.ResponseWriter, r *http.Request) {
	roleID, ok := h.roleID(w, r)
	if !ok {
		return
	}
	actor, _ := shared.PrincipalFromContext(r.Context())
	if err := h.service.Delete(r.Context(), actor, roleID); err != nil {
		h.fail(w, "delete role", err)
		return
	}
	httpx.Message(w, http.StatusOK, "Role deleted successfully")
}

func (h *Handler) roleID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "roleID"), 10, 64)
	if err != nil || id <= 0 {
		httpx.Fail(w, http.StatusBadRequest, "roleId is invalid")
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
