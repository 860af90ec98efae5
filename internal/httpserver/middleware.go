package httpserver

import (
	"github.com/labstack/echo/v4"

	"github.com/devteria/identity_service/internal/apperr"
	"github.com/devteria/identity_service/internal/authz"
	"github.com/devteria/identity_service/internal/service"
	"github.com/devteria/identity_service/internal/tokens"
)

const claimsKey = "claims"

type AuthMiddleware struct {
	Auth *service.AuthService
}

// RequireAuth runs full verification, revocation check included, and stashes
// the claims for downstream handlers.
func (m *AuthMiddleware) RequireAuth(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		token := bearerToken(c)
		if token == "" {
			return domainError(c, apperr.ErrUnauthenticated)
		}

		claims, err := m.Auth.VerifyToken(c.Request().Context(), token, false)
		if err != nil {
			return domainError(c, err)
		}

		c.Set(claimsKey, claims)
		return next(c)
	}
}

// RequireRole gates a route on a role in the verified scope.
func (m *AuthMiddleware) RequireRole(role string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			claims := ClaimsFrom(c)
			if claims == nil || !authz.HasRole(claims.Scope, role) {
				return domainError(c, apperr.ErrUnauthorized)
			}
			return next(c)
		}
	}
}

func ClaimsFrom(c echo.Context) *tokens.Claims {
	if v, ok := c.Get(claimsKey).(*tokens.Claims); ok {
		return v
	}
	return nil
}
