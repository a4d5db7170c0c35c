// Package backend turns a configured service into a WCS client.
package backend

import (
	"crypto/tls"
	"crypto/x509"
	"errors"
	"fmt"
	"net/http"
	"os"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/delta10/wcs-client/internal/config"
	"github.com/delta10/wcs-client/internal/utils"
	"github.com/delta10/wcs-client/wcs"
)

const defaultTimeout = 25 * time.Second

// TLSConfig loads the client certificate and root certificates of a
// service. An empty configuration yields the default TLS settings.
func TLSConfig(c config.TLS) (*tls.Config, error) {
	tlsConfig := &tls.Config{}
	if c.RootCertificates != "" {
		rootCertificates, err := os.ReadFile(c.RootCertificates)
		if err != nil {
			return nil, fmt.Errorf("could not retrieve root certs for backend: %w", err)
		}

		roots := x509.NewCertPool()
		if ok := roots.AppendCertsFromPEM(rootCertificates); !ok {
			return nil, errors.New("could not load root certs for backend")
		}

		tlsConfig.RootCAs = roots
	}

	if c.Certificate != "" && c.Key != "" {
		cert, err := tls.LoadX509KeyPair(c.Certificate, c.Key)
		if err != nil {
			return nil, fmt.Errorf("could not load TLS keypair for backend: %w", err)
		}

		tlsConfig.Certificates = []tls.Certificate{cert}
	}

	return tlsConfig, nil
}

// NewClient builds a WCS client that authenticates to the service as
// configured. Secrets may reference environment variables as ${VAR}.
func NewClient(service config.Service, logger *zap.Logger) (*wcs.Client, error) {
	tlsConfig, err := TLSConfig(service.Auth.TLS)
	if err != nil {
		return nil, err
	}

	timeout := service.Timeout
	if timeout == 0 {
		timeout = defaultTimeout
	}

	opts := []wcs.Option{
		wcs.WithHTTPClient(&http.Client{
			Timeout:   timeout,
			Transport: &http.Transport{Proxy: http.ProxyFromEnvironment, TLSClientConfig: tlsConfig},
		}),
		wcs.WithLogger(logger),
	}

	if service.Auth.Basic.Username != "" && service.Auth.Basic.Password != "" {
		opts = append(opts, wcs.WithBasicAuth(service.Auth.Basic.Username, utils.EnvSubst(service.Auth.Basic.Password)))
	}

	for headerKey, headerValue := range service.Auth.Header {
		opts = append(opts, wcs.WithHeader(headerKey, utils.EnvSubst(headerValue)))
	}

	names := make([]string, 0, len(service.Cookies))
	for name := range service.Cookies {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		opts = append(opts, wcs.WithCookies(&http.Cookie{Name: name, Value: utils.EnvSubst(service.Cookies[name])}))
	}

	return wcs.NewClient(opts...), nil
}
