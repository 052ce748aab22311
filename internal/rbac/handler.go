package rbac

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/waari-travel/waari-erp/internal/platform/httpx"
	"github.com/waari-travel/waari-erp/internal/shared"
)

// Handler serves the permission catalog.
type Handler struct {
	logger  *slog.Logger
	catalog *CatalogService
	rbac    Middleware
}

// NewHandler builds Handler instance.
func NewHandler(logger *slog.Logger, catalog *CatalogService, rbac Middleware) *Handler {
	return &Handler{logger: logger, catalog: catalog, rbac: rbac}
}

// MountRoutes registers catalog routes. All of them only require a valid token.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.Authenticated())
		r.Get("/categories", h.listCategories)
		r.Get("/categories/{catID}/lists", h.listByCategory)
		r.Get("/lists", h.listAll)
		r.Get("/me/permissions", h.myPermissions)
	})
}

type dataResponse[T any] struct {
	Data T `json:"data"`
}

func (h *Handler) listCategories(w http.ResponseWriter, r *http.Request) {
	cats, err := h.catalog.Categories(r.Context())
	if err != nil {
		h.fail(w, "list categories", err)
		return
	}
	httpx.JSON(w, http.StatusOK, dataResponse[[]Category]{Data: cats})
}

func (h *Handler) listByCategory(w http.ResponseWriter, r *http.Request) {
	catID, err := strconv.ParseInt(chi.URLParam(r, "catID"), 10, 64)
	if err != nil {
		httpx.Fail(w, http.StatusBadRequest, "catId is invalid")
		return
	}
	lists, err := h.catalog.ListsByCategory(r.Context(), catID)
	if err != nil {
		h.fail(w, "list lists by category", err)
		return
	}
	httpx.JSON(w, http.StatusOK, dataResponse[[]ListItem]{Data: lists})
}

func (h *Handler) listAll(w http.ResponseWriter, r *http.Request) {
	lists, err := h.catalog.AllLists(r.Context())
	if err != nil {
		h.fail(w, "list all lists", err)
		return
	}
	httpx.JSON(w, http.StatusOK, dataResponse[[]ListItem]{Data: lists})
}

func (h *Handler) myPermissions(w http.ResponseWriter, r *http.Request) {
	principal, _ := shared.PrincipalFromContext(r.Context())
	groups, err := h.catalog.GroupedPermissions(r.Context(), principal.RoleID)
	if err != nil {
		h.fail(w, "list my permissions", err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"permissions": groups})
}

func (h *Handler) fail(w http.ResponseWriter, op string, err error) {
	if httpx.StatusFor(err) == http.StatusInternalServerError && h.logger != nil {
		h.logger.Error(op, slog.Any("error", err))
	}
	httpx.RespondError(w, err)
}
