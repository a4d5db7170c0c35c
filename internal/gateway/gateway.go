// Package gateway exposes configured WCS services over a JSON HTTP API and
// proxies GetCoverage requests to them.
package gateway

import (
	"context"
	"net/http"
	"sort"
	"sync"
	"time"

	"github.com/gorilla/mux"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/delta10/wcs-client/internal/auth"
	"github.com/delta10/wcs-client/internal/backend"
	"github.com/delta10/wcs-client/internal/config"
	"github.com/delta10/wcs-client/internal/logs"
	"github.com/delta10/wcs-client/wcs"
)

type Gateway struct {
	config    *config.Config
	logger    *zap.Logger
	validator *auth.Validator

	clients     map[string]*wcs.Client
	logBackends map[string]*logs.LogBackend

	mu       sync.Mutex
	services map[string]*wcs.Service
	group    singleflight.Group
}

type Option func(*Gateway)

// WithValidator requires a valid bearer token on every request.
func WithValidator(v *auth.Validator) Option {
	return func(g *Gateway) { g.validator = v }
}

func WithLogger(logger *zap.Logger) Option {
	return func(g *Gateway) { g.logger = logger }
}

func New(c *config.Config, opts ...Option) (*Gateway, error) {
	g := &Gateway{
		config:      c,
		logger:      zap.NewNop(),
		clients:     map[string]*wcs.Client{},
		logBackends: map[string]*logs.LogBackend{},
		services:    map[string]*wcs.Service{},
	}
	for _, opt := range opts {
		opt(g)
	}

	for name, service := range c.Services {
		client, err := backend.NewClient(service, g.logger.With(zap.String("service", name)))
		if err != nil {
			return nil, err
		}
		g.clients[name] = client

		if lb, ok := c.LogBackendFor(name); ok {
			g.logBackends[name] = logs.NewLogBackend(lb)
		}
	}

	return g, nil
}

// Router returns the HTTP routes of the gateway.
func (g *Gateway) Router() *mux.Router {
	router := mux.NewRouter()
	router.Use(g.requestID)

	router.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}).Methods(http.MethodGet)

	router.Handle("/services", g.protect(g.listServices)).Methods(http.MethodGet)
	router.Handle("/services/{service}/capabilities", g.protect(g.capabilities)).Methods(http.MethodGet)
	router.Handle("/services/{service}/coverages/{coverage}", g.protect(g.coverage)).Methods(http.MethodGet)
	router.Handle("/services/{service}/coverages/{coverage}/data", g.protect(g.coverageData)).Methods(http.MethodGet)

	return router
}

func (g *Gateway) protect(h http.HandlerFunc) http.Handler {
	if g.validator == nil {
		return h
	}
	return g.validator.Middleware(h)
}

// Server returns an http.Server listening on the configured address.
func (g *Gateway) Server() *http.Server {
	return &http.Server{
		Addr:           g.config.ListenAddress,
		Handler:        g.Router(),
		ReadTimeout:    10 * time.Second,
		WriteTimeout:   5 * time.Minute,
		MaxHeaderBytes: 1 << 20,
	}
}

// ListenAndServe serves the gateway, over TLS when a listen certificate is
// configured.
func (g *Gateway) ListenAndServe() error {
	s := g.Server()
	g.logger.Info("listening", zap.String("address", s.Addr))

	if g.config.ListenTLS.Certificate != "" && g.config.ListenTLS.Key != "" {
		return s.ListenAndServeTLS(g.config.ListenTLS.Certificate, g.config.ListenTLS.Key)
	}
	return s.ListenAndServe()
}

// service returns the opened service named name. Capabilities are fetched
// on first use and kept once parsed.
func (g *Gateway) service(ctx context.Context, name string) (*wcs.Service, error) {
	g.mu.Lock()
	s, ok := g.services[name]
	g.mu.Unlock()
	if ok {
		return s, nil
	}

	v, err, _ := g.group.Do(name, func() (interface{}, error) {
		g.mu.Lock()
		s, ok := g.services[name]
		g.mu.Unlock()
		if ok {
			return s, nil
		}

		configured := g.config.Services[name]
		// Not bound to a single request, other callers share the result.
		ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), time.Minute)
		defer cancel()

		s, err := g.clients[name].Open(ctx, configured.URL, configured.Version)
		if err != nil {
			return nil, err
		}

		g.mu.Lock()
		g.services[name] = s
		g.mu.Unlock()
		return s, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*wcs.Service), nil
}

func (g *Gateway) serviceNames() []string {
	names := make([]string, 0, len(g.config.Services))
	for name := range g.config.Services {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
