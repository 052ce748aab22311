package users

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"github.com/waari-travel/waari-erp/internal/shared"
)

// Store defines data access methods for users. By-id methods are scoped to
// clientCode when it is non-empty and report shared.ErrNotFound for users of
// another tenant.
type Store interface {
	Create(ctx context.Context, u User, passwordHash string) (User, error)
	Get(ctx context.Context, userID int64, clientCode string) (User, error)
	Update(ctx context.Context, userID int64, clientCode string, patch Patch) (User, error)
	SetStatus(ctx context.Context, userID int64, clientCode string, active bool) (User, error)
	Delete(ctx context.Context, userID int64, clientCode string) error
	List(ctx context.Context, filters ListFilters, limit, offset int) ([]User, int, error)
	RoleExists(ctx context.Context, roleID int64, clientCode string) (bool, error)
}

// Service handles user business logic.
type Service struct {
	store    Store
	audit    shared.AuditRecorder
	logger   *slog.Logger
	hashCost int
}

// NewService builds Service instance.
func NewService(store Store, audit shared.AuditRecorder, logger *slog.Logger) *Service {
	if audit == nil {
		audit = shared.NopAuditRecorder{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{store: store, audit: audit, logger: logger, hashCost: bcrypt.DefaultCost}
}

// Create registers a user in the caller's tenant.
func (s *Service) Create(ctx context.Context, actor shared.Principal, in CreateUserInput) (User, error) {
	if err := s.requireRole(ctx, in.RoleID, actor.ClientCode); err != nil {
		return User{}, err
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), s.hashCost)
	if err != nil {
		return User{}, fmt.Errorf("users: hash password: %w", err)
	}
	u, err := s.store.Create(ctx, User{
		FirstName:  strings.TrimSpace(in.FirstName),
		LastName:   strings.TrimSpace(in.LastName),
		Email:      normalizeEmail(in.Email),
		Mobile:     strings.TrimSpace(in.Mobile),
		RoleID:     in.RoleID,
		Active:     true,
		ClientCode: actor.ClientCode,
	}, string(hash))
	if err != nil {
		return User{}, fmt.Errorf("users: create: %w", err)
	}
	s.record(ctx, actor, "user.created", u.ID, map[string]any{"email": u.Email, "roleId": u.RoleID})
	return u, nil
}

// Get returns a user of the caller's tenant by id.
func (s *Service) Get(ctx context.Context, actor shared.Principal, userID int64) (User, error) {
	if userID <= 0 {
		return User{}, fmt.Errorf("users: id: %w", shared.ErrValidation)
	}
	u, err := s.store.Get(ctx, userID, actor.ClientCode)
	if err != nil {
		return User{}, fmt.Errorf("users: get %d: %w", userID, err)
	}
	return u, nil
}

// List returns one page of the tenant's users, newest first.
func (s *Service) List(ctx context.Context, filters ListFilters) (ListResult, error) {
	filters.Search = strings.TrimSpace(filters.Search)
	page := shared.NewPagination(filters.Page, filters.PageSize, 0)
	items, total, err := s.store.List(ctx, filters, page.PerPage, page.Offset())
	if err != nil {
		return ListResult{}, fmt.Errorf("users: list: %w", err)
	}
	if items == nil {
		items = []User{}
	}
	return ListResult{Data: items, Pagination: shared.NewPagination(page.Page, page.PerPage, total)}, nil
}

// Update applies a partial update. Changing the password clears the token.
func (s *Service) Update(ctx context.Context, actor shared.Principal, userID int64, in UpdateUserInput) (User, error) {
	if userID <= 0 {
		return User{}, fmt.Errorf("users: id: %w", shared.ErrValidation)
	}
	patch := Patch{
		FirstName: trimmed(in.FirstName),
		LastName:  trimmed(in.LastName),
		Mobile:    trimmed(in.Mobile),
		RoleID:    in.RoleID,
	}
	if in.Email != nil {
		email := normalizeEmail(*in.Email)
		patch.Email = &email
	}
	if in.RoleID != nil {
		if err := s.requireRole(ctx, *in.RoleID, actor.ClientCode); err != nil {
			return User{}, err
		}
	}
	if in.Password != nil {
		hash, err := bcrypt.GenerateFromPassword([]byte(*in.Password), s.hashCost)
		if err != nil {
			return User{}, fmt.Errorf("users: hash password: %w", err)
		}
		h := string(hash)
		patch.PasswordHash = &h
	}
	u, err := s.store.Update(ctx, userID, actor.ClientCode, patch)
	if err != nil {
		return User{}, fmt.Errorf("users: update %d: %w", userID, err)
	}
	s.record(ctx, actor, "user.updated", userID, map[string]any{"passwordChanged": patch.PasswordHash != nil})
	return u, nil
}

// SetStatus activates or deactivates a user. Deactivation clears the token
// so the user is locked out immediately.
func (s *Service) SetStatus(ctx context.Context, actor shared.Principal, userID int64, active bool) (User, error) {
	if userID <= 0 {
		return User{}, fmt.Errorf("users: id: %w", shared.ErrValidation)
	}
	u, err := s.store.SetStatus(ctx, userID, actor.ClientCode, active)
	if err != nil {
		return User{}, fmt.Errorf("users: status %d: %w", userID, err)
	}
	s.record(ctx, actor, "user.status", userID, map[string]any{"isActive": active})
	return u, nil
}

// Delete removes a user.
func (s *Service) Delete(ctx context.Context, actor shared.Principal, userID int64) error {
	if userID <= 0 {
		return fmt.Errorf("users: id: %w", shared.ErrValidation)
	}
	if userID == actor.UserID {
		return fmt.Errorf("users: cannot delete yourself: %w", shared.ErrConflict)
	}
	if err := s.store.Delete(ctx, userID, actor.ClientCode); err != nil {
		return fmt.Errorf("users: delete %d: %w", userID, err)
	}
	s.record(ctx, actor, "user.deleted", userID, nil)
	return nil
}

func (s *Service) requireRole(ctx context.Context, roleID int64, clientCode string) error {
	ok, err := s.store.RoleExists(ctx, roleID, clientCode)
	if err != nil {
		return fmt.Errorf("users: check role %d: %w", roleID, err)
	}
	if !ok {
		return ErrUnknownRole
	}
	return nil
}

func (s *Service) record(ctx context.Context, actor shared.Principal, action string, userID int64, meta map[string]any) {
	err := s.audit.Record(ctx, shared.AuditLog{
		ActorID:  actor.UserID,
		Action:   action,
		Entity:   "user",
		EntityID: strconv.FormatInt(userID, 10),
		Meta:     meta,
	})
	if err != nil {
		s.logger.Warn("audit record", slog.String("action", action), slog.Any("error", err))
	}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func trimmed(s *string) *string {
	if s == nil {
		return nil
	}
	v := strings.TrimSpace(*s)
	return &v
}
