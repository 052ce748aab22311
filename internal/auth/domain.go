package auth

import (
	"fmt"

	"github.com/waari-travel/waari-erp/internal/shared"
)

var (
	// ErrOTPExpired is returned when no live code exists for the email.
	ErrOTPExpired = fmt.Errorf("%w: OTP has expired. Please request a new one", shared.ErrTooManyRequests)
	// ErrOTPAttempts is returned once the attempt budget is spent.
	ErrOTPAttempts = fmt.Errorf("%w: maximum OTP attempts reached. Please try again later", shared.ErrTooManyRequests)
	// ErrOTPMismatch is returned for a wrong code.
	ErrOTPMismatch = fmt.Errorf("%w: invalid OTP", shared.ErrValidation)
	// ErrSamePassword is returned when the new password equals the old one.
	ErrSamePassword = fmt.Errorf("%w: new password must be different from the old password", shared.ErrValidation)
	// ErrUserNotFound is returned by the OTP flows for unknown emails.
	ErrUserNotFound = fmt.Errorf("%w: user not found", shared.ErrNotFound)
)

// Credential is the login view of a user.
type Credential struct {
	UserID       int64
	RoleID       int64
	ClientCode   string
	Email        string
	FirstName    string
	LastName     string
	PasswordHash string
	Active       bool
}

// LoginInput is the login payload.
type LoginInput struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// LoginResult is returned on a successful login.
type LoginResult struct {
	Token     string `json:"token"`
	UserID    int64  `json:"userId"`
	RoleID    int64  `json:"roleId"`
	Email     string `json:"email"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
}

// ForgetPasswordInput requests a one-time code.
type ForgetPasswordInput struct {
	Email string `json:"email" validate:"required,email"`
}

// VerifyOTPInput checks a one-time code.
type VerifyOTPInput struct {
	Email string `json:"email" validate:"required,email"`
	OTP   string `json:"otp" validate:"required,len=6,numeric"`
}

// ResetPasswordInput sets a new password using a one-time code.
type ResetPasswordInput struct {
	Email       string `json:"email" validate:"required,email"`
	OTP         string `json:"otp" validate:"required,len=6,numeric"`
	NewPassword string `json:"newPassword" validate:"required,min=8,max=72"`
}
