package echoapi

import (
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/trezcool/kusoma/core"
	"github.com/trezcool/kusoma/core/session"
)

const (
	sessionCookieName  = "kusoma.session"
	sessionTokenHeader = "X-Session-Token"

	contextIdentityKey = "identity"
	contextClaimsKey   = "claims"
	contextTokenKey    = "sessionToken"
)

// sessionMiddleware rehydrates the identity of a request bearing a session token and re-issues
// the token with a slid expiry. With required=false a request without a valid token goes through
// anonymously.
func sessionMiddleware(iss *session.Issuer, cookies cookieFactory, required bool) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			raw := extractToken(ctx.Request())
			if raw == "" {
				if required {
					return errUnauthorized
				}
				return next(ctx)
			}

			claims, err := iss.Verify(raw)
			if err != nil {
				if required {
					return err
				}
				return next(ctx)
			}
			identity, tok, err := iss.RehydrateClaims(raw, claims)
			if err != nil {
				return err
			}

			ctx.Set(contextClaimsKey, claims)
			ctx.Set(contextIdentityKey, identity)
			ctx.Set(contextTokenKey, tok)
			if tok.Value != raw {
				ctx.Response().Header().Set(sessionTokenHeader, tok.Value)
				ctx.SetCookie(cookies.session(tok.Value, tok.ExpiresAt))
			}
			return next(ctx)
		}
	}
}

// extractToken reads the bearer token, else the session cookie.
func extractToken(r *http.Request) string {
	if auth := r.Header.Get(echo.HeaderAuthorization); auth != "" {
		const prefix = "Bearer "
		if len(auth) > len(prefix) && strings.EqualFold(auth[:len(prefix)], prefix) {
			return strings.TrimSpace(auth[len(prefix):])
		}
	}
	if c, err := r.Cookie(sessionCookieName); err == nil {
		return c.Value
	}
	return ""
}

func getContextIdentity(ctx echo.Context) (session.Identity, bool) {
	identity, ok := ctx.Get(contextIdentityKey).(session.Identity)
	return identity, ok
}

func getContextClaims(ctx echo.Context) (*session.Claims, error) {
	if claims, ok := ctx.Get(contextClaimsKey).(*session.Claims); ok {
		return claims, nil
	}
	return nil, errUnauthorized
}

// contextPerson is the person reported alongside server errors.
func contextPerson(ctx echo.Context) core.Person {
	if identity, ok := getContextIdentity(ctx); ok {
		return identity.Person()
	}
	return core.Person{}
}

type cookieFactory struct {
	secure bool
}

func (f cookieFactory) session(value string, expires time.Time) *http.Cookie {
	return &http.Cookie{
		Name:     sessionCookieName,
		Value:    value,
		Path:     "/",
		Expires:  expires,
		HttpOnly: true,
		Secure:   f.secure,
		SameSite: http.SameSiteLaxMode,
	}
}

func (f cookieFactory) cleared() *http.Cookie {
	return &http.Cookie{
		Name:     sessionCookieName,
		Value:    "",
		Path:     "/",
		Expires:  time.Unix(0, 0),
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   f.secure,
		SameSite: http.SameSiteLaxMode,
	}
}
