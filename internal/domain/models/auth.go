package models

import (
	"github.com/golang-jwt/jwt/v5"
)

// Claims are the JWT claims the gateway issues for API access.
type Claims struct {
	jwt.RegisteredClaims
	Role     string `json:"role"`
	Elevated bool   `json:"elevated,omitempty"`
	Email    string `json:"email,omitempty"`
}

// Actor converts verified claims into the acting user.
func (c *Claims) Actor() Actor {
	return Actor{ID: c.Subject, Elevated: c.Elevated}
}
