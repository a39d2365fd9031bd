package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
)

// TokenVerifier resolves an ID token to a user id.
type TokenVerifier interface {
	VerifyToken(ctx context.Context, token string) (string, error)
}

type AuthMiddleware struct {
	verifier TokenVerifier
}

func NewAuthMiddleware(verifier TokenVerifier) *AuthMiddleware {
	return &AuthMiddleware{
		verifier: verifier,
	}
}

func (m *AuthMiddleware) Authenticate(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		// Get the Authorization header
		authHeader := c.Request().Header.Get("Authorization")
		if authHeader == "" {
			return echo.NewHTTPError(http.StatusUnauthorized, "Authorization header is required")
		}

		parts := strings.Split(authHeader, " ")
		if len(parts) != 2 || parts[0] != "Bearer" {
			return echo.NewHTTPError(http.StatusUnauthorized, "Invalid authorization format")
		}

		return m.verify(c, next, parts[1])
	}
}

// AuthenticateWebSocket also accepts the token as ?token=.
func (m *AuthMiddleware) AuthenticateWebSocket(next echo.HandlerFunc) echo.HandlerFunc {
	authenticated := m.Authenticate(next)
	return func(c echo.Context) error {
		if token := c.QueryParam("token"); token != "" {
			return m.verify(c, next, token)
		}
		return authenticated(c)
	}
}

func (m *AuthMiddleware) verify(c echo.Context, next echo.HandlerFunc, idToken string) error {
	uid, err := m.verifier.VerifyToken(c.Request().Context(), idToken)
	if err != nil || uid == "" {
		return echo.NewHTTPError(http.StatusUnauthorized, "Invalid or expired token")
	}

	// Add the user ID to the context
	c.Set("uid", uid)
	return next(c)
}
