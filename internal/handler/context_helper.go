package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/noah-isme/od-tracker-api/internal/middleware"
	"github.com/noah-isme/od-tracker-api/internal/models"
)

func claimsFromContext(c *gin.Context) *models.JWTClaims {
	value, exists := c.Get(middleware.ContextUserKey)
	if !exists {
		return nil
	}
	claims, ok := value.(*models.JWTClaims)
	if !ok {
		return nil
	}
	return claims
}

// actorFromClaims materialises the acting user from the token claims; enough
// for services that only record the actor's identity.
func actorFromClaims(claims *models.JWTClaims) *models.User {
	return &models.User{
		ID:         claims.UserID,
		Email:      claims.Email,
		FullName:   claims.FullName,
		Role:       claims.Role,
		Department: claims.Department,
	}
}
