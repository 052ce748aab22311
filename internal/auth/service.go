package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"github.com/waari-travel/waari-erp/internal/shared"
)

// Repository defines persistence operations for auth module.
type Repository interface {
	FindByEmail(ctx context.Context, email string) (Credential, error)
	SetToken(ctx context.Context, userID int64, token string) error
	ResetPassword(ctx context.Context, userID int64, passwordHash string) error
}

// Mailer delivers one-time codes.
type Mailer interface {
	SendOTP(ctx context.Context, email, code string) error
}

// Service wraps authentication business rules.
type Service struct {
	repo   Repository
	issuer TokenIssuer
	otps   *OTPStore
	mailer Mailer
	audit  shared.AuditRecorder
	logger *slog.Logger
}

// NewService constructs a new Service.
func NewService(repo Repository, issuer TokenIssuer, otps *OTPStore, mailer Mailer, audit shared.AuditRecorder, logger *slog.Logger) *Service {
	if issuer == nil {
		issuer = OpaqueIssuer{}
	}
	if audit == nil {
		audit = shared.NopAuditRecorder{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{repo: repo, issuer: issuer, otps: otps, mailer: mailer, audit: audit, logger: logger}
}

// Login validates email/password credentials and rotates the user's token.
func (s *Service) Login(ctx context.Context, email, password string) (LoginResult, error) {
	cred, err := s.repo.FindByEmail(ctx, normalizeEmail(email))
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return LoginResult{}, shared.ErrInvalidCredentials
		}
		return LoginResult{}, fmt.Errorf("auth: find user: %w", err)
	}
	if err := bcrypt.CompareHashAndPassword([]byte(cred.PasswordHash), []byte(password)); err != nil {
		return LoginResult{}, shared.ErrInvalidCredentials
	}
	if !cred.Active {
		return LoginResult{}, shared.ErrInactive
	}
	presented, stored, err := s.issuer.Issue(cred)
	if err != nil {
		return LoginResult{}, fmt.Errorf("auth: issue token: %w", err)
	}
	if err := s.repo.SetToken(ctx, cred.UserID, stored); err != nil {
		return LoginResult{}, fmt.Errorf("auth: store token: %w", err)
	}
	s.record(ctx, cred.UserID, "auth.login")
	return LoginResult{
		Token:     presented,
		UserID:    cred.UserID,
		RoleID:    cred.RoleID,
		Email:     cred.Email,
		FirstName: cred.FirstName,
		LastName:  cred.LastName,
	}, nil
}

// Logout clears the caller's token; every later request with it fails.
func (s *Service) Logout(ctx context.Context, p shared.Principal) error {
	if err := s.repo.SetToken(ctx, p.UserID, ""); err != nil {
		return fmt.Errorf("auth: clear token: %w", err)
	}
	s.record(ctx, p.UserID, "auth.logout")
	return nil
}

// ForgetPassword issues a one-time code and queues it for delivery. A mail
// failure is logged but does not fail the request.
func (s *Service) ForgetPassword(ctx context.Context, email string) error {
	cred, err := s.lookup(ctx, email)
	if err != nil {
		return err
	}
	code, err := s.otps.Issue(ctx, cred.Email)
	if err != nil {
		return err
	}
	if s.mailer != nil {
		if err := s.mailer.SendOTP(ctx, cred.Email, code); err != nil {
			s.logger.Warn("queue otp mail", slog.Int64("user_id", cred.UserID), slog.Any("error", err))
		}
	}
	return nil
}

// VerifyOTP checks the code without consuming it; reset-password consumes it.
func (s *Service) VerifyOTP(ctx context.Context, email, code string) error {
	cred, err := s.lookup(ctx, email)
	if err != nil {
		return err
	}
	return s.otps.Check(ctx, cred.Email, code)
}

// ResetPassword replaces the password after checking the code. The new
// password must differ from the old one; the code is consumed before the
// write and the current token is revoked.
func (s *Service) ResetPassword(ctx context.Context, email, code, newPassword string) error {
	cred, err := s.lookup(ctx, email)
	if err != nil {
		return err
	}
	if err := s.otps.Check(ctx, cred.Email, code); err != nil {
		return err
	}
	if bcrypt.CompareHashAndPassword([]byte(cred.PasswordHash), []byte(newPassword)) == nil {
		return ErrSamePassword
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("auth: hash password: %w", err)
	}
	if err := s.otps.Consume(ctx, cred.Email, code); err != nil {
		return err
	}
	if err := s.repo.ResetPassword(ctx, cred.UserID, string(hash)); err != nil {
		return fmt.Errorf("auth: reset password: %w", err)
	}
	s.record(ctx, cred.UserID, "auth.password_reset")
	return nil
}

func (s *Service) lookup(ctx context.Context, email string) (Credential, error) {
	cred, err := s.repo.FindByEmail(ctx, normalizeEmail(email))
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return Credential{}, ErrUserNotFound
		}
		return Credential{}, fmt.Errorf("auth: find user: %w", err)
	}
	return cred, nil
}

func (s *Service) record(ctx context.Context, userID int64, action string) {
	err := s.audit.Record(ctx, shared.AuditLog{
		ActorID:  userID,
		Action:   action,
		Entity:   "user",
		EntityID: strconv.FormatInt(userID, 10),
	})
	if err != nil {
		s.logger.Warn("audit record", slog.String("action", action), slog.Any("error", err))
	}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
