package backend

import (
	"context"
	"encoding/pem"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/delta10/wcs-client/internal/config"
)

const capabilities = `<WCS_Capabilities xmlns="http://www.opengis.net/wcs" version="1.0.0">
  <ContentMetadata><CoverageOfferingBrief><name>dem</name></CoverageOfferingBrief></ContentMetadata>
</WCS_Capabilities>`

func TestNewClientAuthenticates(t *testing.T) {
	t.Setenv("WCS_BACKEND_PASSWORD", "hunter2")
	t.Setenv("WCS_BACKEND_KEY", "key-1")

	srv := httptest.NewTLSServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, pass, ok := r.BasicAuth()
		if !ok || user != "gateway" || pass != "hunter2" || r.Header.Get("X-Api-Key") != "key-1" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		if c, err := r.Cookie("session"); err != nil || c.Value != "abc" {
			w.WriteHeader(http.StatusForbidden)
			return
		}
		_, _ = w.Write([]byte(capabilities))
	}))
	defer srv.Close()

	roots := filepath.Join(t.TempDir(), "ca.pem")
	certPEM := pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: srv.Certificate().Raw})
	require.NoError(t, os.WriteFile(roots, certPEM, 0o600))

	service := config.Service{URL: srv.URL, Version: "1.0.0"}
	service.Auth.Basic.Username = "gateway"
	service.Auth.Basic.Password = "${WCS_BACKEND_PASSWORD}"
	service.Auth.Header = map[string]string{"X-Api-Key": "${WCS_BACKEND_KEY}"}
	service.Auth.TLS.RootCertificates = roots
	service.Cookies = map[string]string{"session": "abc"}

	client, err := NewClient(service, zap.NewNop())
	require.NoError(t, err)

	s, err := client.Open(context.Background(), service.URL, service.Version)
	require.NoError(t, err)
	assert.Len(t, s.Contents, 1)
}

func TestTLSConfigErrors(t *testing.T) {
	_, err := TLSConfig(config.TLS{RootCertificates: filepath.Join(t.TempDir(), "missing.pem")})
	assert.Error(t, err)

	garbage := filepath.Join(t.TempDir(), "garbage.pem")
	require.NoError(t, os.WriteFile(garbage, []byte("not a certificate"), 0o600))
	_, err = TLSConfig(config.TLS{RootCertificates: garbage})
	assert.Error(t, err)

	tlsConfig, err := TLSConfig(config.TLS{})
	require.NoError(t, err)
	assert.Nil(t, tlsConfig.RootCAs)
}
