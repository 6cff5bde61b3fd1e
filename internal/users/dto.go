package users

import (
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/rootsreach/rootsreach-backend/pkg/db/models"
	"github.com/rootsreach/rootsreach-backend/pkg/enums"
)

// UserDTO is the transport shape that omits sensitive credentials.
type UserDTO struct {
	ID              uuid.UUID  `json:"id"`
	Email           string     `json:"email"`
	Name            string     `json:"name"`
	Role            enums.Role `json:"role"`
	Phone           *string    `json:"phone,omitempty"`
	BusinessName    *string    `json:"business_name,omitempty"`
	BusinessType    *string    `json:"business_type,omitempty"`
	City            *string    `json:"city,omitempty"`
	State           *string    `json:"state,omitempty"`
	Country         *string    `json:"country,omitempty"`
	IsActive        bool       `json:"is_active"`
	IsEmailVerified bool       `json:"is_email_verified"`
	IsPhoneVerified bool       `json:"is_phone_verified"`
	LastLoginAt     *time.Time `json:"last_login_at,omitempty"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
}

// CreateUserDTO holds the data required by the repo to persist a new user.
type CreateUserDTO struct {
	Email        string
	PasswordHash string
	Name         string
	Role         enums.Role
	Phone        *string
	BusinessName *string
	BusinessType *string
	City         *string
	State        *string
	Country      *string
	IsActive     *bool
}

// ProfileInput carries the self-editable profile fields. Nil fields are left unchanged.
type ProfileInput struct {
	Name         *string `json:"name" validate:"omitempty,min=1,max=120"`
	Phone        *string `json:"phone" validate:"omitempty,max=32"`
	BusinessName *string `json:"business_name" validate:"omitempty,max=160"`
	BusinessType *string `json:"business_type" validate:"omitempty,max=80"`
	City         *string `json:"city" validate:"omitempty,max=80"`
	State        *string `json:"state" validate:"omitempty,max=80"`
	Country      *string `json:"country" validate:"omitempty,max=80"`
}

func (p ProfileInput) updates() map[string]any {
	out := map[string]any{}
	set := func(column string, value *string) {
		if value == nil {
			return
		}
		trimmed := strings.TrimSpace(*value)
		if trimmed == "" && column != "name" {
			out[column] = nil
			return
		}
		out[column] = trimmed
	}
	set("name", p.Name)
	set("phone", p.Phone)
	set("business_name", p.BusinessName)
	set("business_type", p.BusinessType)
	set("city", p.City)
	set("state", p.State)
	set("country", p.Country)
	return out
}

func FromModel(u *models.User) *UserDTO {
	if u == nil {
		return nil
	}

	return &UserDTO{
		ID:              u.ID,
		Email:           u.Email,
		Name:            u.Name,
		Role:            u.Role,
		Phone:           u.Phone,
		BusinessName:    u.BusinessName,
		BusinessType:    u.BusinessType,
		City:            u.City,
		State:           u.State,
		Country:         u.Country,
		IsActive:        u.IsActive,
		IsEmailVerified: u.IsEmailVerified,
		IsPhoneVerified: u.IsPhoneVerified,
		LastLoginAt:     u.LastLoginAt,
		CreatedAt:       u.CreatedAt,
		UpdatedAt:       u.UpdatedAt,
	}
}

func (c CreateUserDTO) ToModel() *models.User {
	isActive := true
	if c.IsActive != nil {
		isActive = *c.IsActive
	}

	role := c.Role
	if role == "" {
		role = enums.RoleBuyer
	}

	return &models.User{
		Email:        NormalizeEmail(c.Email),
		PasswordHash: c.PasswordHash,
		Name:         strings.TrimSpace(c.Name),
		Role:         role,
		Phone:        c.Phone,
		BusinessName: c.BusinessName,
		BusinessType: c.BusinessType,
		City:         c.City,
		State:        c.State,
		Country:      c.Country,
		IsActive:     isActive,
	}
}

// NormalizeEmail trims and lower-cases an address for storage and lookup.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
