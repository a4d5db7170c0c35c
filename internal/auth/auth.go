// Package auth validates bearer tokens on gateway requests.
package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/MicahParks/keyfunc"
	"github.com/golang-jwt/jwt/v4"
	"go.uber.org/zap"

	"github.com/delta10/wcs-client/internal/utils"
)

var ErrNoToken = errors.New("no bearer token in request")

type ClaimsWithGroups struct {
	jwt.RegisteredClaims
	Groups []string `json:"groups"`
}

type contextKey struct{}

// ClaimsFromContext returns the claims of the validated token.
func ClaimsFromContext(ctx context.Context) (*ClaimsWithGroups, bool) {
	claims, ok := ctx.Value(contextKey{}).(*ClaimsWithGroups)
	return claims, ok
}

type Validator struct {
	keyfunc jwt.Keyfunc
	jwks    *keyfunc.JWKS
	logger  *zap.Logger
}

func NewValidator(kf jwt.Keyfunc, logger *zap.Logger) *Validator {
	return &Validator{keyfunc: kf, logger: logger}
}

// NewJWKSValidator validates tokens against the keys published at jwksURL.
// The keys are refreshed in the background until Close is called.
func NewJWKSValidator(jwksURL string, logger *zap.Logger) (*Validator, error) {
	jwks, err := keyfunc.Get(jwksURL, keyfunc.Options{
		RefreshInterval:   time.Hour,
		RefreshRateLimit:  5 * time.Minute,
		RefreshTimeout:    10 * time.Second,
		RefreshUnknownKID: true,
		RefreshErrorHandler: func(err error) {
			logger.Warn("could not refresh jwks", zap.String("url", jwksURL), zap.Error(err))
		},
	})
	if err != nil {
		return nil, fmt.Errorf("could not get jwks from %s: %w", jwksURL, err)
	}

	return &Validator{keyfunc: jwks.Keyfunc, jwks: jwks, logger: logger}, nil
}

func (v *Validator) Close() {
	if v.jwks != nil {
		v.jwks.EndBackground()
	}
}

// Validate parses and verifies the bearer token of r.
func (v *Validator) Validate(r *http.Request) (*ClaimsWithGroups, error) {
	header := r.Header.Get("Authorization")
	scheme, token, found := strings.Cut(header, " ")
	if !found || !strings.EqualFold(scheme, "Bearer") || strings.TrimSpace(token) == "" {
		return nil, ErrNoToken
	}

	claims := &ClaimsWithGroups{}
	parsed, err := jwt.ParseWithClaims(strings.TrimSpace(token), claims, v.keyfunc)
	if err != nil {
		return nil, err
	}
	if !parsed.Valid {
		return nil, errors.New("token is not valid")
	}

	return claims, nil
}

// Middleware rejects requests without a valid bearer token and stores the
// claims of valid ones in the request context.
func (v *Validator) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		claims, err := v.Validate(r)
		if err != nil {
			v.logger.Info("rejected request",
				zap.String("path", r.URL.Path),
				zap.String("ip", utils.ReadUserIP(r)),
				zap.Error(err))
			utils.WriteError(w, http.StatusUnauthorized, "unauthorized request")
			return
		}

		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), contextKey{}, claims)))
	})
}
