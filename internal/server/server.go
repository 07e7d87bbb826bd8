// Package server assembles the HTTP handler and runs the listener.
package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humachi"
	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/soluciones-gbh/demo-api/internal/http/routes"
	"github.com/soluciones-gbh/demo-api/internal/platform/config"
	"github.com/soluciones-gbh/demo-api/internal/platform/logging"
	appmiddleware "github.com/soluciones-gbh/demo-api/internal/platform/middleware"
	"github.com/soluciones-gbh/demo-api/internal/platform/respond"
)

const (
	// Title is the OpenAPI document title.
	Title = "Demo WebApp API"

	// DocsPath serves the interactive API documentation.
	DocsPath = "/api-docs"

	shutdownTimeout = 10 * time.Second
)

// NewRouter builds the middleware stack and registers every route.
func NewRouter(version string) http.Handler {
	router := chi.NewRouter()
	router.NotFound(respond.NotFoundHandler())
	router.MethodNotAllowed(respond.MethodNotAllowedHandler())

	router.Use(
		appmiddleware.RequestID(),
		// RealIP trusts X-Forwarded-For; only deploy behind a trusted proxy.
		chimiddleware.RealIP,
		logging.RequestLogger(),
		logging.AccessLogger(),
		respond.Recoverer(),
		appmiddleware.CORS(),
		appmiddleware.Vary(),
		chimiddleware.StripSlashes,
		chimiddleware.GetHead,
		appmiddleware.ParseBody(appmiddleware.DefaultBodyLimit),
	)

	api := humachi.New(router, apiConfig(version))
	routes.Register(api)
	return router
}

func apiConfig(version string) huma.Config {
	cfg := huma.DefaultConfig(Title, version)
	cfg.DocsPath = DocsPath
	// Drop the $schema link hook so bodies contain only their declared fields.
	cfg.CreateHooks = nil

	// Operations always answer in JSON; an unmatched Accept falls back to it.
	cfg.Formats = map[string]huma.Format{
		"application/json": huma.DefaultJSONFormat,
		"json":             huma.DefaultJSONFormat,
	}
	return cfg
}

// New returns an http.Server listening on cfg's port with the given handler.
func New(cfg config.Config, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:              cfg.Addr(),
		Handler:           handler,
		ReadTimeout:       5 * time.Second,
		ReadHeaderTimeout: 2 * time.Second,
		WriteTimeout:      10 * time.Second,
		IdleTimeout:       60 * time.Second,
		MaxHeaderBytes:    64 << 10,
	}
}

// Run binds srv.Addr and serves until ctx is cancelled, then shuts down
// gracefully. A bind failure is returned immediately; there is no retry.
func Run(ctx context.Context, srv *http.Server) error {
	ln, err := net.Listen("tcp", srv.Addr)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", srv.Addr, err)
	}
	return Serve(ctx, srv, ln)
}

// Serve is Run with an already bound listener.
func Serve(ctx context.Context, srv *http.Server, ln net.Listener) error {
	logging.LogInfo(ctx, "server running", zap.Int("port", listenerPort(ln)))

	serveErr := make(chan error, 1)
	go func() {
		serveErr <- srv.Serve(ln)
	}()

	select {
	case err := <-serveErr:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	logging.LogInfo(ctx, "shutdown signal received")
	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	if err := <-serveErr; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	logging.LogInfo(ctx, "server exited")
	return nil
}

func listenerPort(ln net.Listener) int {
	if addr, ok := ln.Addr().(*net.TCPAddr); ok {
		return addr.Port
	}
	_, port, err := net.SplitHostPort(ln.Addr().String())
	if err != nil {
		return 0
	}
	n, _ := strconv.Atoi(port)
	return n
}
