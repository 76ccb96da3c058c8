package middleware

import (
	"net/http"

	echojwt "github.com/labstack/echo-jwt/v4"
	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/shop_api/pkg/logging"
	"github.com/Skotchmaster/shop_api/pkg/tokens"
)

const CtxIdentity = "identity"

// ErrAccessDenied is returned for every authentication failure so callers
// cannot tell a missing token from a forged one.
var ErrAccessDenied = echo.NewHTTPError(http.StatusUnauthorized, map[string]string{"error": "access denied"})

type BearerAuth struct {
	Verifier *tokens.Verifier
}

func NewBearerAuth(secret []byte) *BearerAuth {
	return &BearerAuth{Verifier: tokens.NewVerifier(secret)}
}

func (m *BearerAuth) RequireAuth(next echo.HandlerFunc) echo.HandlerFunc {
	return echojwt.WithConfig(echojwt.Config{
		ContextKey:  CtxIdentity,
		TokenLookup: "header:" + echo.HeaderAuthorization + ":Bearer ",
		ParseTokenFunc: func(c echo.Context, auth string) (interface{}, error) {
			return m.Verifier.Verify(auth)
		},
		ErrorHandler: func(c echo.Context, err error) error {
			logging.FromContext(c.Request().Context()).Warn("auth_rejected", "status", http.StatusUnauthorized, "error", err)
			return ErrAccessDenied
		},
	})(next)
}

// RequireRole must be chained after RequireAuth.
func RequireRole(roles ...string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			id, ok := IdentityFrom(c)
			if !ok {
				return ErrAccessDenied
			}
			if !id.HasRole(roles...) {
				logging.FromContext(c.Request().Context()).Warn("role_denied", "status", http.StatusForbidden, "role", id.Role, "user_id", id.UserID)
				return echo.NewHTTPError(http.StatusForbidden, "you don't have enough rights for this action")
			}
			return next(c)
		}
	}
}

// OptionalAuth resolves an identity when a valid bearer token is present and
// lets the request through untouched otherwise.
func (m *BearerAuth) OptionalAuth(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		raw, ok := bearerToken(c.Request().Header.Get(echo.HeaderAuthorization))
		if ok {
			if id, err := m.Verifier.Verify(raw); err == nil {
				c.Set(CtxIdentity, id)
			}
		}
		return next(c)
	}
}

func IdentityFrom(c echo.Context) (tokens.Identity, bool) {
	id, ok := c.Get(CtxIdentity).(tokens.Identity)
	if !ok || id.UserID == 0 {
		return tokens.Identity{}, false
	}
	return id, true
}

func bearerToken(header string) (string, bool) {
	const prefix = "Bearer "
	if len(header) <= len(prefix) || header[:len(prefix)] != prefix {
		return "", false
	}
	return header[len(prefix):], true
}
