package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

var secret = []byte("test-secret")

func hmacKeyfunc(token *jwt.Token) (interface{}, error) {
	if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
		return nil, jwt.ErrSignatureInvalid
	}
	return secret, nil
}

func signed(t *testing.T, key []byte, claims ClaimsWithGroups) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(key)
	require.NoError(t, err)
	return token
}

func TestMiddleware(t *testing.T) {
	validator := NewValidator(hmacKeyfunc, zaptest.NewLogger(t))

	var seen *ClaimsWithGroups
	handler := validator.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen, _ = ClaimsFromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	}))

	valid := ClaimsWithGroups{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "alice",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
		Groups: []string{"analysts"},
	}
	expired := valid
	expired.ExpiresAt = jwt.NewNumericDate(time.Now().Add(-time.Hour))

	tests := []struct {
		name   string
		header string
		status int
	}{
		{"valid token", "Bearer " + signed(t, secret, valid), http.StatusOK},
		{"lowercase scheme", "bearer " + signed(t, secret, valid), http.StatusOK},
		{"missing header", "", http.StatusUnauthorized},
		{"basic scheme", "Basic Zm9vOmJhcg==", http.StatusUnauthorized},
		{"wrong key", "Bearer " + signed(t, []byte("other"), valid), http.StatusUnauthorized},
		{"expired", "Bearer " + signed(t, secret, expired), http.StatusUnauthorized},
		{"garbage", "Bearer not.a.token", http.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			seen = nil
			req := httptest.NewRequest(http.MethodGet, "/services", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)

			assert.Equal(t, tt.status, rec.Code)
			if tt.status == http.StatusOK {
				require.NotNil(t, seen)
				assert.Equal(t, "alice", seen.Subject)
				assert.Equal(t, []string{"analysts"}, seen.Groups)
			} else {
				assert.Nil(t, seen)
				assert.Contains(t, rec.Body.String(), "unauthorized")
			}
		})
	}
}

func TestValidateNoToken(t *testing.T) {
	validator := NewValidator(hmacKeyfunc, zaptest.NewLogger(t))
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer ")

	_, err := validator.Validate(req)
	assert.ErrorIs(t, err, ErrNoToken)
}

func TestNewJWKSValidatorUnreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	defer srv.Close()

	_, err := NewJWKSValidator(srv.URL+"/jwks.json", zaptest.NewLogger(t))
	assert.Error(t, err)
}
