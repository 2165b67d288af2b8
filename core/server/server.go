package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/goccy/go-json"
	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	"github.com/relabs-tech/provisioning/core/logger"
)

var (
	// Version is the version of the curent build
	Version = "unset"
)

// Server is the standalone HTTP server of the service
type Server struct {
	router        *mux.Router
	allowedOrigin string
}

// Builder is a builder helper for the Server
type Builder struct {
	// Router is a mux router. This is mandatory.
	Router *mux.Router
	// AllowedOrigin is the value of the Access-Control-Allow-Origin header. Defaults to "*".
	AllowedOrigin string
}

// New installs the middleware and the health and version routes on the router
func New(b *Builder) *Server {
	if b.Router == nil {
		panic("Router is missing")
	}
	s := &Server{
		router:        b.Router,
		allowedOrigin: b.AllowedOrigin,
	}
	if s.allowedOrigin == "" {
		s.allowedOrigin = "*"
	}

	logger.AddRequestID(s.router)
	s.handleCORS()
	s.handleCompression()
	s.handleHealth()
	s.handleVersion()
	return s
}

// Handler returns the root handler. Panics in handlers are logged and result in
// 500 Internal Server Error.
func (s *Server) Handler() http.Handler {
	return handlers.RecoveryHandler(
		handlers.RecoveryLogger(logger.Default()),
		handlers.PrintRecoveryStack(true),
	)(s.router)
}

// ListenAndServe serves on addr until ctx is done
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		logger.Default().Infoln("listen on", addr)
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}

	logger.Default().Infoln("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errc; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) handleCORS() {
	corsMiddleware := func(h http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Access-Control-Allow-Origin", s.allowedOrigin)
			w.Header().Set("Access-Control-Allow-Methods", "POST, GET, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Accept, Content-Type, Content-Length, Accept-Encoding, Authorization, X-Amz-Date, X-Amz-Security-Token, X-Request-Id")
			w.Header().Set("Access-Control-Max-Age", "86400") // 24 hours

			if r.Method == http.MethodOptions {
				logger.FromContext(r.Context()).Debugln("called route for", r.URL, r.Method, " (handled by CORS middleware)")
				w.WriteHeader(http.StatusNoContent)
				return
			}

			h.ServeHTTP(w, r)
		})
	}
	s.router.Use(corsMiddleware)
}

func (s *Server) handleCompression() {
	s.router.Use(func(h http.Handler) http.Handler {
		return handlers.CompressHandler(h)
	})
}

func (s *Server) handleHealth() {
	logger.Default().Debugln("  handle health route: /health GET")
	s.router.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		w.Write([]byte(`{"status":"alive"}`))
	}).Methods(http.MethodOptions, http.MethodGet)
}

func (s *Server) handleVersion() {
	logger.Default().Debugln("  handle version route: /version GET")
	s.router.HandleFunc("/version", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		data, _ := json.Marshal(map[string]string{"version": Version})
		w.Write(data)
	}).Methods(http.MethodOptions, http.MethodGet)
}
