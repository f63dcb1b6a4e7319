package middleware

import (
	"context"
	"crypto/sha256"
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog/log"
)

type contextKey string

const (
	// APIKeyKey is the context key for the authenticated API key
	APIKeyKey contextKey = "api_key"
	// IsAPIKeyAuthKey is the context key indicating API key authentication
	IsAPIKeyAuthKey contextKey = "is_api_key_auth"
)

// APIKeyAuthMiddleware authenticates requests against a static key list
type APIKeyAuthMiddleware struct {
	keys []string
}

// NewAPIKeyAuthMiddleware creates a new APIKeyAuthMiddleware. An empty key
// list disables authentication, which is only allowed in development.
func NewAPIKeyAuthMiddleware(keys []string) *APIKeyAuthMiddleware {
	return &APIKeyAuthMiddleware{keys: keys}
}

// Authenticate returns an Echo middleware that validates the bearer key
func (m *APIKeyAuthMiddleware) Authenticate() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if len(m.keys) == 0 {
				return next(c)
			}

			authHeader := c.Request().Header.Get("Authorization")
			if authHeader == "" {
				return unauthorizedError(c, "Missing authorization header")
			}

			parts := strings.SplitN(authHeader, " ", 2)
			if len(parts) != 2 || strings.ToLower(parts[0]) != "bearer" {
				return unauthorizedError(c, "Invalid authorization header format")
			}

			key := parts[1]
			if !m.matches(key) {
				log.Debug().Msg("Rejected request with unknown API key")
				return unauthorizedError(c, "Invalid API key")
			}

			ctx := c.Request().Context()
			ctx = context.WithValue(ctx, APIKeyKey, key)
			ctx = context.WithValue(ctx, IsAPIKeyAuthKey, true)
			c.SetRequest(c.Request().WithContext(ctx))

			return next(c)
		}
	}
}

// matches compares hashes so the check is constant time regardless of where
// the candidate diverges.
func (m *APIKeyAuthMiddleware) matches(candidate string) bool {
	candidateSum := sha256.Sum256([]byte(candidate))
	for _, key := range m.keys {
		keySum := sha256.Sum256([]byte(key))
		if subtle.ConstantTimeCompare(candidateSum[:], keySum[:]) == 1 {
			return true
		}
	}
	return false
}

// GetAPIKey extracts the authenticated API key from the context
func GetAPIKey(c echo.Context) string {
	if key, ok := c.Request().Context().Value(APIKeyKey).(string); ok {
		return key
	}
	return ""
}

// IsAPIKeyAuth checks if the request was authenticated via API key
func IsAPIKeyAuth(c echo.Context) bool {
	if isKey, ok := c.Request().Context().Value(IsAPIKeyAuthKey).(bool); ok {
		return isKey
	}
	return false
}

func unauthorizedError(c echo.Context, detail string) error {
	return c.JSON(http.StatusUnauthorized, map[string]interface{}{
		"type":   "https://ardhi.app/errors/unauthorized",
		"title":  "Unauthorized",
		"status": http.StatusUnauthorized,
		"detail": detail,
	})
}
