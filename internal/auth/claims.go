package auth

import "github.com/golang-jwt/jwt/v5"

// RoleAuthenticated is the role Supabase puts on signed-in user tokens.
const RoleAuthenticated = "authenticated"

// Claims are the Supabase Auth access-token claims this service reads.
// Tenant invariant: Subject is the account (users.id) every query is scoped to.
type Claims struct {
	jwt.RegisteredClaims

	Email string `json:"email"`
	Role  string `json:"role"`
}
