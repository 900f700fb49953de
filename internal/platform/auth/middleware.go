package auth

import (
	"context"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/INFO333/mhoms-api/internal/platform/apperr"
)

type contextKey string

const (
	UserIDKey   contextKey = "user_id"
	UsernameKey contextKey = "username"
	UserRoleKey contextKey = "user_role"
)

const (
	msgAuthRequired     = "Authentication required - Please provide a valid token"
	detailsAuthRequired = "Send a valid access token in the Authorization header as 'Bearer <token>'."
)

// Principal is the authenticated caller resolved from a bearer token.
type Principal struct {
	ID       int64
	Username string
	Role     string
}

// PrincipalLoader resolves the account behind a token subject. It returns an
// error when the account no longer exists.
type PrincipalLoader func(ctx context.Context, username string) (*Principal, error)

// JWTMiddleware authenticates every request not matched by skipper. The
// token must verify and its subject must still resolve to an account; the
// account's current role is put on the request context.
func JWTMiddleware(tokens *TokenManager, load PrincipalLoader, skipper func(echo.Context) bool) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if skipper != nil && skipper(c) {
				return next(c)
			}

			tokenStr, ok := bearerToken(c.Request().Header.Get(echo.HeaderAuthorization))
			if !ok {
				return apperr.Unauthorized(msgAuthRequired, detailsAuthRequired)
			}

			username, err := tokens.ParseSubject(tokenStr)
			if err != nil {
				return apperr.Unauthorized(msgAuthRequired, detailsAuthRequired)
			}

			ctx := c.Request().Context()
			p, err := load(ctx, username)
			if err != nil || p == nil {
				return apperr.Unauthorized(msgAuthRequired, detailsAuthRequired)
			}

			c.SetRequest(c.Request().WithContext(WithPrincipal(ctx, p)))
			return next(c)
		}
	}
}

func bearerToken(header string) (string, bool) {
	if header == "" {
		return "", false
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
		return "", false
	}
	tok := strings.TrimSpace(parts[1])
	return tok, tok != ""
}

// WithPrincipal stores p on ctx.
func WithPrincipal(ctx context.Context, p *Principal) context.Context {
	ctx = context.WithValue(ctx, UserIDKey, p.ID)
	ctx = context.WithValue(ctx, UsernameKey, p.Username)
	ctx = context.WithValue(ctx, UserRoleKey, p.Role)
	return ctx
}

func UserIDFromContext(ctx context.Context) int64 {
	id, _ := ctx.Value(UserIDKey).(int64)
	return id
}

func UsernameFromContext(ctx context.Context) string {
	u, _ := ctx.Value(UsernameKey).(string)
	return u
}

func RoleFromContext(ctx context.Context) string {
	r, _ := ctx.Value(UserRoleKey).(string)
	return r
}
