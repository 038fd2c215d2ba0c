package models

import (
	"github.com/golang-jwt/jwt/v5"
)

// PrincipalKind distinguishes the two identity classes behind a token.
type PrincipalKind string

const (
	PrincipalUser  PrincipalKind = "user"
	PrincipalAdmin PrincipalKind = "admin_user"
)

// JWTClaims represents the JWT payload for access tokens.
type JWTClaims struct {
	UserID string        `json:"user_id"`
	Role   UserRole      `json:"role"`
	Kind   PrincipalKind `json:"kind"`
	jwt.RegisteredClaims
}

// IsAdmin reports whether the principal carries the admin role.
func (c *JWTClaims) IsAdmin() bool {
	return c.Role == RoleAdmin
}

// RegisterRequest holds the sign-up payload.
type RegisterRequest struct {
	FirstName    string `json:"first_name" validate:"required"`
	LastName     string `json:"last_name" validate:"required"`
	Email        string `json:"email" validate:"required,email"`
	Password     string `json:"password" validate:"required,min=6"`
	MobileNumber string `json:"mobile_number" validate:"required,len=10,numeric"`
}

// LoginRequest holds credentials for authenticating a user.
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// AuthResponse returns the issued token and user summary.
type AuthResponse struct {
	Token string   `json:"token"`
	User  UserInfo `json:"user"`
}

// ForgotPasswordRequest initiates the password reset flow.
type ForgotPasswordRequest struct {
	Email string `json:"email" validate:"required,email"`
}

// ResetPasswordRequest completes the password reset flow.
type ResetPasswordRequest struct {
	Token    string `json:"token" validate:"required"`
	Password string `json:"password" validate:"required,min=6"`
}

// DeviceRequest registers a push notification device token.
type DeviceRequest struct {
	DeviceToken         string `json:"device_token" validate:"required"`
	NotificationEnabled *bool  `json:"notification_enabled"`
}
