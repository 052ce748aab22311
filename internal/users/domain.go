package users

import (
	"fmt"
	"time"

	"github.com/waari-travel/waari-erp/internal/shared"
)

var (
	// ErrEmailTaken is returned when another user already owns the email.
	ErrEmailTaken = fmt.Errorf("%w: email already exists", shared.ErrDuplicate)
	// ErrUnknownRole is returned when the role is missing from the tenant.
	ErrUnknownRole = fmt.Errorf("%w: role does not exist", shared.ErrValidation)
)

// User represents an operator account.
type User struct {
	ID         int64     `json:"userId"`
	FirstName  string    `json:"firstName"`
	LastName   string    `json:"lastName"`
	Email      string    `json:"email"`
	Mobile     string    `json:"mobile"`
	RoleID     int64     `json:"roleId"`
	RoleName   string    `json:"roleName,omitempty"`
	Active     bool      `json:"isActive"`
	ClientCode string    `json:"clientcode"`
	CreatedAt  time.Time `json:"createdAt"`
	UpdatedAt  time.Time `json:"updatedAt"`
}

// CreateUserInput is the payload for creating a user.
type CreateUserInput struct {
	FirstName string `json:"firstName" validate:"required,max=80"`
	LastName  string `json:"lastName" validate:"omitempty,max=80"`
	Email     string `json:"email" validate:"required,email,max=160"`
	Mobile    string `json:"mobile" validate:"omitempty,numeric,max=20"`
	Password  string `json:"password" validate:"required,min=8,max=72"`
	RoleID    int64  `json:"roleId" validate:"required,gt=0"`
}

// UpdateUserInput is a partial update; nil fields are left unchanged.
type UpdateUserInput struct {
	FirstName *string `json:"firstName" validate:"omitempty,min=1,max=80"`
	LastName  *string `json:"lastName" validate:"omitempty,max=80"`
	Email     *string `json:"email" validate:"omitempty,email,max=160"`
	Mobile    *string `json:"mobile" validate:"omitempty,numeric,max=20"`
	Password  *string `json:"password" validate:"omitempty,min=8,max=72"`
	RoleID    *int64  `json:"roleId" validate:"omitempty,gt=0"`
}

// StatusInput toggles a user's active flag.
type StatusInput struct {
	Active *bool `json:"isActive" validate:"required"`
}

// Patch is the storage form of an update.
type Patch struct {
	FirstName    *string
	LastName     *string
	Email        *string
	Mobile       *string
	PasswordHash *string
	RoleID       *int64
}

// ListFilters narrows a user listing.
type ListFilters struct {
	ClientCode string
	Search     string
	RoleID     int64
	Page       int
	PageSize   int
}

// ListResult is one page of users.
type ListResult struct {
	Data       []User            `json:"data"`
	Pagination shared.Pagination `json:"pagination"`
}
