package echoapi

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/kusoma/core"
	"github.com/trezcool/kusoma/core/session"
	oauthsvc "github.com/trezcool/kusoma/services/oauth"
)

type authApi struct {
	iss               *session.Issuer
	oauth             oauthsvc.Provider
	cookies           cookieFactory
	postLoginRedirect string
	logger            core.Logger
}

func registerAuthAPI(g *echo.Group, reqSession echo.MiddlewareFunc, api *authApi) {
	ag := g.Group("/auth")

	// un-authed endpoints
	ag.POST("/login", api.login)
	ag.POST("/logout", api.logout)
	ag.GET("/signin/:provider", api.signIn)
	ag.GET("/callback/:provider", api.callback)

	// authed endpoints
	ag.GET("/session", api.session, reqSession)
	ag.POST("/token-refresh", api.refreshToken, reqSession)
}

// Handlers

func (api *authApi) login(ctx echo.Context) error {
	var data session.Credentials
	if err := ctx.Bind(&data); err != nil {
		return bindError(err)
	}

	tok, err := api.iss.Login(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "logging in")
	}
	ctx.SetCookie(api.cookies.session(tok.Value, tok.ExpiresAt))
	return ctx.JSON(http.StatusOK, tok)
}

func (api *authApi) logout(ctx echo.Context) error {
	// tokens are stateless: dropping the cookie is all there is
	ctx.SetCookie(api.cookies.cleared())
	return ctx.JSON(http.StatusOK, SuccessResponse{Success: "Signed out."})
}

func (api *authApi) session(ctx echo.Context) error {
	identity, ok := getContextIdentity(ctx)
	if !ok {
		return errUnauthorized
	}
	tok, _ := ctx.Get(contextTokenKey).(session.Token)
	return ctx.JSON(http.StatusOK, SessionResponse{User: identity, ExpiresAt: tok.ExpiresAt})
}

func (api *authApi) refreshToken(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return err
	}
	tok, err := api.iss.Refresh(claims)
	if err != nil {
		if errors.Is(err, session.ErrRefreshExpired) {
			return errRefreshExpired
		}
		return errors.Wrap(err, "refreshing token")
	}
	ctx.Response().Header().Set(sessionTokenHeader, tok.Value)
	ctx.SetCookie(api.cookies.session(tok.Value, tok.ExpiresAt))
	return ctx.JSON(http.StatusOK, tok)
}

func (api *authApi) provider(ctx echo.Context) (oauthsvc.Provider, error) {
	if api.oauth == nil || ctx.Param("provider") != api.oauth.Name() {
		return nil, errOAuthDisabled
	}
	return api.oauth, nil
}

func (api *authApi) signIn(ctx echo.Context) error {
	p, err := api.provider(ctx)
	if err != nil {
		return err
	}
	p.AuthURLHandler().ServeHTTP(ctx.Response(), ctx.Request())
	return nil
}

func (api *authApi) callback(ctx echo.Context) error {
	p, err := api.provider(ctx)
	if err != nil {
		return err
	}
	p.CallbackHandler(api.onProfile).ServeHTTP(ctx.Response(), ctx.Request())
	return nil
}

// onProfile mints a session for a provider-vouched profile; no store lookup happens.
func (api *authApi) onProfile(w http.ResponseWriter, r *http.Request, p session.Profile) {
	tok, err := api.iss.IssueForProfile(p)
	if err != nil {
		api.logger.Warn("oauth: issuing session for profile", err, map[string]interface{}{"provider": p.Provider})
		http.Error(w, core.ErrAuthenticationFailed.Error(), http.StatusUnauthorized)
		return
	}
	http.SetCookie(w, api.cookies.session(tok.Value, tok.ExpiresAt))
	http.Redirect(w, r, api.postLoginRedirect, http.StatusFound)
}

type (
	SessionResponse struct {
		User      session.Identity `json:"user"`
		ExpiresAt time.Time        `json:"expires_at"`
	}

	SuccessResponse struct {
		Success string `json:"success"`
	}
)
