package models

import (
	"github.com/golang-jwt/jwt/v5"
)

// JWTClaims is the access token payload of the booking API. UserID is the student or teacher
// identity that scopes booking lists and lifecycle actions; Role gates the staff-only routes.
type JWTClaims struct {
	UserID   string   `json:"user_id"`
	Role     UserRole `json:"role"`
	Email    string   `json:"email"`
	FullName string   `json:"full_name"`
	jwt.RegisteredClaims
}
