// Package auth verifies bearer credentials against the configured OIDC
// issuer and extracts the caller's identity.
package auth

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/MicahParks/jwkset"
	"github.com/MicahParks/keyfunc/v3"
	"github.com/golang-jwt/jwt/v5"

	"github.com/hunoz/dave-user-api/internal/apperrors"
	"github.com/hunoz/dave-user-api/internal/config"
	"github.com/hunoz/dave-user-api/internal/logctx"
)

// UserInfo is the verified identity of a caller.
type UserInfo struct {
	Username      string
	Email         string
	EmailVerified bool
	Name          string
}

// Verifier turns an opaque credential into a verified identity.
// The credential may be a raw token or an "Authorization: Bearer <token>"
// header value; the prefix is stripped when present.
type Verifier interface {
	Verify(ctx context.Context, credential string) (UserInfo, error)
}

// DefaultRefreshInterval is how often the issuer's JWKS is re-fetched.
const DefaultRefreshInterval = 1 * time.Hour

// JWKSVerifier validates tokens offline against the issuer's published key
// set.
type JWKSVerifier struct {
	keys   keyfunc.Keyfunc
	auth   config.AuthConfig
	issuer string
	cancel context.CancelFunc
}

var _ Verifier = (*JWKSVerifier)(nil)

// NewJWKSVerifier starts background JWKS refresh for the configured issuer
// and returns a verifier bound to it.
func NewJWKSVerifier(auth config.AuthConfig) (*JWKSVerifier, error) {
	return newJWKSVerifier(auth, fmt.Sprintf("https://%s/", auth.Domain))
}

func newJWKSVerifier(auth config.AuthConfig, issuer string) (*JWKSVerifier, error) {
	jwksURL := issuer + ".well-known/jwks.json"

	ctx, cancel := context.WithCancel(context.Background())

	storage, err := jwkset.NewStorageFromHTTP(jwksURL, jwkset.HTTPClientStorageOptions{
		Ctx:             ctx,
		RefreshInterval: DefaultRefreshInterval,
		RefreshErrorHandler: func(_ context.Context, err error) {
			slog.Error("failed to refresh JWKS", "error", err, "url", jwksURL)
		},
	})
	if err != nil {
		cancel()
		return nil, fmt.Errorf("failed to initialize JWKS storage: %w", err)
	}

	keys, err := keyfunc.New(keyfunc.Options{
		Ctx:     ctx,
		Storage: storage,
	})
	if err != nil {
		cancel()
		return nil, fmt.Errorf("failed to create keyfunc: %w", err)
	}

	return &JWKSVerifier{keys: keys, auth: auth, issuer: issuer, cancel: cancel}, nil
}

// Close stops the background JWKS refresh.
func (v *JWKSVerifier) Close() error {
	v.cancel()
	return nil
}

// Verify parses and validates the credential and extracts the configured
// identity claims. Any verification failure surfaces as Unauthorized.
func (v *JWKSVerifier) Verify(ctx context.Context, credential string) (UserInfo, error) {
	log := logctx.From(ctx)

	claims := jwt.MapClaims{}
	_, err := jwt.ParseWithClaims(StripBearer(credential), claims, v.keys.Keyfunc,
		jwt.WithIssuer(v.issuer),
		jwt.WithAudience(v.auth.Audience),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		log.Error("error parsing token", "error", err)
		return UserInfo{}, apperrors.Unauthorized(err)
	}

	username, ok := claims[v.auth.UsernameClaim].(string)
	if !ok || username == "" {
		log.Error("token is missing the username claim", "claim", v.auth.UsernameClaim)
		return UserInfo{}, apperrors.Unauthorized(fmt.Errorf("missing %q claim", v.auth.UsernameClaim))
	}

	email, _ := claims[v.auth.EmailClaim].(string)
	emailVerified, _ := claims[v.auth.EmailVerifiedClaim].(bool)
	name, _ := claims[v.auth.NameClaim].(string)

	return UserInfo{
		Username:      username,
		Email:         email,
		EmailVerified: emailVerified,
		Name:          name,
	}, nil
}

// StripBearer removes an "Bearer " prefix from an Authorization header
// value, leaving raw tokens untouched.
func StripBearer(credential string) string {
	if token, ok := strings.CutPrefix(credential, "Bearer "); ok {
		return token
	}
	return credential
}
