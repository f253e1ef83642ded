// Package session verifies credentials, mints signed session tokens and rehydrates the
// identity context from them. It keeps no server-side state: logout is token disposal.
package session

import (
	"context"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/pkg/errors"

	"github.com/trezcool/kusoma/core"
	"github.com/trezcool/kusoma/core/user"
)

var (
	// errors
	ErrMissingSecret  = errors.New("session signing secret is required")
	ErrInvalidToken   = errors.New("invalid session token")
	ErrTokenExpired   = errors.New("session token expired")
	ErrRefreshExpired = errors.New("refresh has expired")

	errMissingCredentials = errors.New("email and password are required")
)

type (
	// UserFinder is the identity store as seen by the issuer.
	UserFinder interface {
		FindByEmail(ctx context.Context, email string) (user.User, error)
	}

	Options struct {
		AppName                string
		SecretKey              []byte
		ExpirationDelta        time.Duration
		RefreshExpirationDelta time.Duration
	}

	Issuer struct {
		users   UserFinder
		logger  core.Logger
		opts    Options
		method  jwt.SigningMethod
		nowFunc func() time.Time // mockable
	}
)

// NewIssuer refuses to run without a signing secret: there is no insecure default.
func NewIssuer(users UserFinder, logger core.Logger, opts Options) (*Issuer, error) {
	if len(opts.SecretKey) == 0 {
		return nil, ErrMissingSecret
	}
	if opts.ExpirationDelta <= 0 {
		opts.ExpirationDelta = 24 * time.Hour
	}
	if opts.RefreshExpirationDelta < opts.ExpirationDelta {
		opts.RefreshExpirationDelta = opts.ExpirationDelta
	}
	return &Issuer{
		users:   users,
		logger:  logger,
		opts:    opts,
		method:  jwt.SigningMethodHS256,
		nowFunc: time.Now,
	}, nil
}

// Login runs one credentials login attempt. Every failure past input validation is
// ErrAuthenticationFailed, whichever factor was wrong.
func (iss *Issuer) Login(ctx context.Context, creds Credentials) (Token, error) {
	email := core.CleanString(creds.Email)

	var flds []core.FieldError
	if email == "" {
		flds = append(flds, core.FieldError{Field: "email", Error: "email is required"})
	}
	if creds.Password == "" {
		flds = append(flds, core.FieldError{Field: "password", Error: "password is required"})
	}
	if len(flds) > 0 {
		return Token{}, core.NewValidationError(errMissingCredentials, flds...)
	}

	usr, err := iss.users.FindByEmail(ctx, email)
	if err != nil {
		if !errors.Is(err, user.ErrNotFound) {
			iss.logger.Error("login: finding user by email", err)
		}
		return Token{}, core.ErrAuthenticationFailed
	}
	if !usr.CheckPassword(creds.Password) {
		return Token{}, core.ErrAuthenticationFailed
	}
	return iss.issue(IdentityFromUser(usr), iss.nowFunc())
}

// IssueForProfile mints a token for an identity already proven by an external provider.
func (iss *Issuer) IssueForProfile(p Profile) (Token, error) {
	if p.Subject == "" || p.Email == "" {
		return Token{}, core.ErrAuthenticationFailed
	}
	if p.Provider == "" {
		p.Provider = ProviderGoogle
	}
	return iss.issue(p.Identity(), iss.nowFunc())
}

// Verify checks the token signature, issuer, audience and expiry.
func (iss *Issuer) Verify(tokenStr string) (*Claims, error) {
	if tokenStr == "" {
		return nil, ErrInvalidToken
	}
	claims := new(Claims)
	_, err := jwt.ParseWithClaims(
		tokenStr, claims,
		func(*jwt.Token) (interface{}, error) { return iss.opts.SecretKey, nil },
		jwt.WithValidMethods([]string{iss.method.Alg()}),
		jwt.WithIssuer(iss.opts.AppName),
		jwt.WithAudience(audience),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(iss.nowFunc),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		return nil, ErrInvalidToken
	}
	if claims.Subject == "" || claims.Email == "" {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

// Rehydrate verifies a token and returns its identity with a re-signed token whose expiry
// slides forward, never past the refresh window of the original login.
func (iss *Issuer) Rehydrate(tokenStr string) (Identity, Token, error) {
	claims, err := iss.Verify(tokenStr)
	if err != nil {
		return Identity{}, Token{}, err
	}
	return iss.RehydrateClaims(tokenStr, claims)
}

// RehydrateClaims is Rehydrate for a token already verified into claims.
func (iss *Issuer) RehydrateClaims(tokenStr string, claims *Claims) (Identity, Token, error) {
	identity := claims.Identity()

	now := iss.nowFunc()
	if !now.Before(iss.refreshDeadline(claims)) {
		// past the window: keep the token as is until it expires
		return identity, Token{Value: tokenStr, ExpiresAt: claims.ExpiresAt.Time, Identity: identity}, nil
	}
	tok, err := iss.reissue(claims, now)
	if err != nil {
		return Identity{}, Token{}, err
	}
	return identity, tok, nil
}

// Refresh re-issues the token for verified claims, failing once the refresh window is over.
func (iss *Issuer) Refresh(claims *Claims) (Token, error) {
	now := iss.nowFunc()
	if now.After(iss.refreshDeadline(claims)) {
		return Token{}, ErrRefreshExpired
	}
	return iss.reissue(claims, now)
}

func (iss *Issuer) refreshDeadline(claims *Claims) time.Time {
	return time.Unix(claims.OrigIssuedAt, 0).Add(iss.opts.RefreshExpirationDelta)
}

func (iss *Issuer) issue(identity Identity, now time.Time) (Token, error) {
	return iss.sign(identity, now, now.Unix())
}

func (iss *Issuer) reissue(claims *Claims, now time.Time) (Token, error) {
	return iss.sign(claims.Identity(), now, claims.OrigIssuedAt)
}

func (iss *Issuer) sign(identity Identity, now time.Time, origIat int64) (Token, error) {
	exp := now.Add(iss.opts.ExpirationDelta)
	if deadline := time.Unix(origIat, 0).Add(iss.opts.RefreshExpirationDelta); exp.After(deadline) {
		exp = deadline
	}

	claims := &Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    iss.opts.AppName,
			Subject:   identity.ID,
			Audience:  jwt.ClaimStrings{audience},
			ExpiresAt: jwt.NewNumericDate(exp),
			IssuedAt:  jwt.NewNumericDate(now),
		},
		OrigIssuedAt: origIat,
		Name:         identity.Name,
		Email:        identity.Email,
		Standard:     identity.Standard,
		WeakTopics:   identity.WeakTopics,
		Provider:     identity.Provider,
	}

	ss, err := jwt.NewWithClaims(iss.method, claims).SignedString(iss.opts.SecretKey)
	if err != nil {
		return Token{}, errors.Wrap(err, "signing token")
	}
	return Token{Value: ss, ExpiresAt: claims.ExpiresAt.Time, Identity: identity}, nil
}
