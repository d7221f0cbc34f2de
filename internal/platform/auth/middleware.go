// Package auth authenticates API requests and exposes the caller's
// username to handlers.
package auth

import (
	"context"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"
)

type contextKey string

const UsernameKey contextKey = "username"

// DevUsernameHeader lets development clients pick a username without a token.
const DevUsernameHeader = "X-Username"

type Claims struct {
	jwt.RegisteredClaims
	Username string `json:"username"`
}

// JWTMiddleware validates HS256 bearer tokens signed with signingKey and
// places the token's username on the request context. Tokens without a
// username claim fall back to the registered subject.
func JWTMiddleware(signingKey []byte) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			authHeader := c.Request().Header.Get("Authorization")
			if authHeader == "" {
				return echo.NewHTTPError(http.StatusUnauthorized, "missing authorization header")
			}

			parts := strings.SplitN(authHeader, " ", 2)
			if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
				return echo.NewHTTPError(http.StatusUnauthorized, "invalid authorization format")
			}

			claims := &Claims{}
			token, err := jwt.ParseWithClaims(parts[1], claims, func(t *jwt.Token) (interface{}, error) {
				return signingKey, nil
			}, jwt.WithValidMethods([]string{"HS256"}))
			if err != nil || !token.Valid {
				return echo.NewHTTPError(http.StatusUnauthorized, "invalid token")
			}

			username := claims.Username
			if username == "" {
				username = claims.Subject
			}
			if username == "" {
				return echo.NewHTTPError(http.StatusUnauthorized, "token has no username")
			}

			setUsername(c, username)
			return next(c)
		}
	}
}

// DevAuthMiddleware is a permissive middleware for development that allows
// unauthenticated requests. The username is taken from the X-Username
// header when present.
func DevAuthMiddleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			username := c.Request().Header.Get(DevUsernameHeader)
			if username == "" {
				username = "dev-user"
			}
			setUsername(c, username)
			return next(c)
		}
	}
}

func setUsername(c echo.Context, username string) {
	c.Set(string(UsernameKey), username)
	ctx := context.WithValue(c.Request().Context(), UsernameKey, username)
	c.SetRequest(c.Request().WithContext(ctx))
}

// UsernameFromContext returns the authenticated username, or "" when the
// request was not authenticated.
func UsernameFromContext(ctx context.Context) string {
	username, _ := ctx.Value(UsernameKey).(string)
	return username
}
