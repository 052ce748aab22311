package auth

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/httprate"

	"github.com/waari-travel/waari-erp/internal/platform/httpx"
	"github.com/waari-travel/waari-erp/internal/rbac"
	"github.com/waari-travel/waari-erp/internal/shared"
)

const defaultLoginLimit = 10

// Handler wires HTTP endpoints for authentication flows.
type Handler struct {
	logger     *slog.Logger
	service    *Service
	rbac       rbac.Middleware
	loginLimit int
}

// NewHandler constructs a Handler instance. loginLimit bounds unauthenticated
// requests per IP per minute.
func NewHandler(logger *slog.Logger, service *Service, rbac rbac.Middleware, loginLimit int) *Handler {
	if loginLimit <= 0 {
		loginLimit = defaultLoginLimit
	}
	return &Handler{logger: logger, service: service, rbac: rbac, loginLimit: loginLimit}
}

// MountRoutes registers auth routes on provided router.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(httprate.Limit(h.loginLimit, time.Minute,
			httprate.WithKeyFuncs(httprate.KeyByIP),
			httprate.WithLimitHandler(func(w http.ResponseWriter, _ *http.Request) {
				httpx.Fail(w, http.StatusTooManyRequests, "Too many requests, please try again later")
			})))
		r.Post("/login", h.handleLogin)
		r.Post("/forget-password", h.handleForgetPassword)
		r.Post("/verify-otp", h.handleVerifyOTP)
		r.Post("/reset-password", h.handleResetPassword)
	})
	r.With(h.rbac.Authenticated()).Post("/logout", h.handleLogout)
}

func (h *Handler) handleLogin(w http.ResponseWriter, r *http.Request) {
	var in LoginInput
	if !h.decode(w, r, &in) {
		return
	}
	result, err := h.service.Login(r.Context(), in.Email, in.Password)
	if err != nil {
		switch {
		case httpx.StatusFor(err) == http.StatusUnauthorized:
			httpx.Fail(w, http.StatusUnauthorized, "Invalid email or password")
		case httpx.StatusFor(err) == http.StatusForbidden:
			httpx.Fail(w, http.StatusForbidden, "User is inactive")
		default:
			h.fail(w, "login", err)
		}
		return
	}
	httpx.JSON(w, http.StatusOK, result)
}

func (h *Handler) handleLogout(w http.ResponseWriter, r *http.Request) {
	principal, _ := shared.PrincipalFromContext(r.Context())
	if err := h.service.Logout(r.Context(), principal); err != nil {
		h.fail(w, "logout", err)
		return
	}
	httpx.Message(w, http.StatusOK, "Logged out successfully")
}

func (h *Handler) handleForgetPassword(w http.ResponseWriter, r *http.Request) {
	var in ForgetPasswordInput
	if !h.decode(w, r, &in) {
		return
	}
	if err := h.service.ForgetPassword(r.Context(), in.Email); err != nil {
		h.fail(w, "forget password", err)
		return
	}
	httpx.Message(w, http.StatusOK, "OTP sent successfully")
}

func (h *Handler) handleVerifyOTP(w http.ResponseWriter, r *http.Request) {
	var in VerifyOTPInput
	if !h.decode(w, r, &in) {
		return
	}
	if err := h.service.VerifyOTP(r.Context(), in.Email, in.OTP); err != nil {
		h.fail(w, "verify otp", err)
		return
	}
	httpx.Message(w, http.StatusOK, "OTP verified successfully")
}

func (h *Handler) handleResetPassword(w http.ResponseWriter, r *http.Request) {
	var in ResetPasswordInput
	if !h.decode(w, r, &in) {
		return
	}
	if err := h.service.ResetPassword(r.Context(), in.Email, in.OTP, in.NewPassword); err != nil {
		h.fail(w, "reset password", err)
		return
	}
	httpx.Message(w, http.StatusOK, "Password changed successfully")
}

func (h *Handler) decode(w http.ResponseWriter, r *http.Request, target any) bool {
	if err := httpx.DecodeJSON(r, target); err != nil {
		httpx.RespondError(w, err)
		return false
	}
	if fields := httpx.Validate(target); fields != nil {
		httpx.ValidationFailed(w, fields)
		return false
	}
	return true
}

func (h *Handler) fail(w http.ResponseWriter, op string, err error) {
	if httpx.StatusFor(err) == http.StatusInternalServerError && h.logger != nil {
		h.logger.Error(op, slog.Any("error", err))
	}
	httpx.RespondError(w, err)
}
