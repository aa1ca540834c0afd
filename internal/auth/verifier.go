package auth

import (
	"depot/internal/domain/models"
)

// JWTVerifier validates bearer tokens and extracts claims.
type JWTVerifier interface {
	VerifyToken(tokenString string) (*models.Claims, error)
	Close() error
}
