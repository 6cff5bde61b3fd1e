package auth

import (
	"time"

	"github.com/rootsreach/rootsreach-backend/internal/users"
)

// LoginRequest captures the user credentials sent to the login endpoints.
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// RegisterRequest is the self-service signup payload. Role defaults to buyer.
type RegisterRequest struct {
	Email        string  `json:"email" validate:"required,email"`
	Password     string  `json:"password" validate:"required,min=6,max=128"`
	Name         string  `json:"name" validate:"required,max=120"`
	Role         string  `json:"role" validate:"omitempty"`
	Phone        *string `json:"phone,omitempty" validate:"omitempty,max=32"`
	BusinessName *string `json:"business_name,omitempty" validate:"omitempty,max=160"`
	BusinessType *string `json:"business_type,omitempty" validate:"omitempty,max=80"`
	City         *string `json:"city,omitempty" validate:"omitempty,max=80"`
	State        *string `json:"state,omitempty" validate:"omitempty,max=80"`
	Country      *string `json:"country,omitempty" validate:"omitempty,max=80"`
}

// RefreshRequest carries the refresh token; the access token comes from the Authorization header.
type RefreshRequest struct {
	RefreshToken string `json:"refresh_token" validate:"required"`
}

// LoginResponse contains the tokens and user produced by a successful login, register, or refresh.
type LoginResponse struct {
	AccessToken  string         `json:"token"`
	RefreshToken string         `json:"refresh_token"`
	ExpiresAt    time.Time      `json:"expires_at"`
	User         *users.UserDTO `json:"user"`
}
