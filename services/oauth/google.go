// Package oauthsvc runs the authorization code flow against external identity providers.
package oauthsvc

import (
	"context"
	"crypto/sha256"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/zitadel/oidc/v3/pkg/client/rp"
	httphelper "github.com/zitadel/oidc/v3/pkg/http"
	"github.com/zitadel/oidc/v3/pkg/oidc"

	"github.com/trezcool/kusoma/core"
	"github.com/trezcool/kusoma/core/session"
)

const googleIssuer = "https://accounts.google.com"

var googleScopes = []string{oidc.ScopeOpenID, oidc.ScopeProfile, oidc.ScopeEmail}

type (
	// ProfileHandler receives the profile vouched for by the provider once the code exchange succeeded.
	ProfileHandler func(w http.ResponseWriter, r *http.Request, p session.Profile)

	Provider interface {
		Name() string
		AuthURLHandler() http.Handler
		CallbackHandler(onProfile ProfileHandler) http.Handler
	}

	googleProvider struct {
		rp rp.RelyingParty
	}
)

var _ Provider = (*googleProvider)(nil)

// NewGoogleProvider discovers Google's OIDC configuration. It needs network access.
func NewGoogleProvider(ctx context.Context, conf *core.Config) (*googleProvider, error) {
	hashKey, cryptoKey := cookieKeys(conf.SecretKey)

	var cookieOpts []httphelper.CookieHandlerOpt
	if !conf.Auth.SecureCookies {
		cookieOpts = append(cookieOpts, httphelper.WithUnsecure())
	}
	cookieHandler := httphelper.NewCookieHandler(hashKey, cryptoKey, cookieOpts...)

	relyingParty, err := rp.NewRelyingPartyOIDC(
		ctx,
		googleIssuer,
		conf.Auth.GoogleClientID,
		conf.Auth.GoogleClientSecret,
		conf.Auth.GoogleRedirectURL,
		googleScopes,
		rp.WithCookieHandler(cookieHandler),
		rp.WithPKCE(cookieHandler),
		rp.WithVerifierOpts(rp.WithIssuedAtOffset(5*time.Second)),
	)
	if err != nil {
		return nil, errors.Wrap(err, "creating google relying party")
	}
	return &googleProvider{rp: relyingParty}, nil
}

func (g *googleProvider) Name() string {
	return session.ProviderGoogle
}

// AuthURLHandler redirects to Google's consent screen.
func (g *googleProvider) AuthURLHandler() http.Handler {
	return rp.AuthURLHandler(uuid.NewString, g.rp)
}

// CallbackHandler validates state, exchanges the code and hands the verified profile over.
func (g *googleProvider) CallbackHandler(onProfile ProfileHandler) http.Handler {
	callback := func(w http.ResponseWriter, r *http.Request, tokens *oidc.Tokens[*oidc.IDTokenClaims], _ string, _ rp.RelyingParty) {
		claims := tokens.IDTokenClaims
		onProfile(w, r, session.Profile{
			Provider: session.ProviderGoogle,
			Subject:  claims.Subject,
			Name:     claims.Name,
			Email:    claims.Email,
		})
	}
	return rp.CodeExchangeHandler(callback, g.rp)
}

// cookieKeys derives the state cookie keys from the app secret so every instance can read them.
func cookieKeys(secret string) (hashKey, cryptoKey []byte) {
	h := sha256.Sum256([]byte("oauth-state-hash:" + secret))
	c := sha256.Sum256([]byte("oauth-state-crypto:" + secret))
	return h[:], c[:]
}
