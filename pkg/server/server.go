// Package server provides a public API for embedding the scene search
// service.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/vpremier/data-download/internal/api"
	"github.com/vpremier/data-download/internal/backend"
	"github.com/vpremier/data-download/internal/config"
	"github.com/vpremier/data-download/internal/stac"
	"github.com/vpremier/data-download/internal/translate"
)

// Options configures an embedded server. Unset fields keep the defaults of
// the data-download configuration.
type Options struct {
	// BaseURL is the public-facing URL for self-referential links.
	// Example: "https://api.example.com/scenes" or "http://localhost:8080"
	BaseURL string

	// CDSEUsername and CDSEPassword enable downloads from CDSE. Searches
	// work without them.
	CDSEUsername string
	CDSEPassword string

	// M2MUsername and M2MToken enable the Landsat Collection 2 collection.
	M2MUsername string
	M2MToken    string

	// Title is the STAC API title.
	Title string

	// DefaultLimit is the default number of items per page.
	DefaultLimit int

	// MaxLimit is the maximum number of items per page.
	MaxLimit int

	// ResultTTL is how long a search stays available for paging.
	ResultTTL time.Duration

	// CollectionsDir is the path to collection definition JSON files.
	// Default: "" (uses built-in collections)
	CollectionsDir string

	// Logger is the slog logger to use.
	// Default: slog.Default()
	Logger *slog.Logger
}

// Server is a scene search server that can be embedded in another
// application or run on its own.
type Server struct {
	cfg     *config.Config
	router  chi.Router
	results *stac.MemoryResultStore
	logger  *slog.Logger
}

// New creates a server from options.
func New(opts Options) (*Server, error) {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}

	cfg, err := config.Defaults()
	if err != nil {
		return nil, err
	}
	if opts.BaseURL != "" {
		cfg.STAC.BaseURL = opts.BaseURL
	}
	if opts.Title != "" {
		cfg.STAC.Title = opts.Title
	}
	cfg.CDSE.Username = opts.CDSEUsername
	cfg.CDSE.Password = opts.CDSEPassword
	cfg.M2M.Username = opts.M2MUsername
	cfg.M2M.Token = opts.M2MToken
	if opts.DefaultLimit > 0 {
		cfg.Features.DefaultLimit = opts.DefaultLimit
	}
	if opts.MaxLimit > 0 {
		cfg.Features.MaxLimit = opts.MaxLimit
	}
	if opts.ResultTTL > 0 {
		cfg.Features.ResultTTL = opts.ResultTTL
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid options: %w", err)
	}

	collections := config.DefaultCollections()
	if opts.CollectionsDir != "" {
		loaded, err := config.LoadCollections(opts.CollectionsDir)
		if err != nil {
			opts.Logger.Warn("failed to load collections, using built-in collections",
				"dir", opts.CollectionsDir,
				"error", err,
			)
		} else {
			collections = loaded
		}
	}

	return NewFromConfig(cfg, collections, opts.Logger), nil
}

// NewFromConfig creates a server from a loaded configuration.
func NewFromConfig(cfg *config.Config, collections *config.CollectionRegistry, logger *slog.Logger) *Server {
	translator := translate.NewTranslator(cfg, collections, logger)
	results := stac.NewMemoryResultStore(cfg.Features.ResultTTL, cfg.Features.ResultTTL/3+time.Second)
	backends := backend.NewSet(cfg, logger)

	handlers := api.NewHandlers(cfg, backends, translator, collections, results, logger)

	return &Server{
		cfg:     cfg,
		router:  api.NewRouter(handlers, logger),
		results: results,
		logger:  logger,
	}
}

// Router returns the chi.Router for mounting in another application.
func (s *Server) Router() chi.Router {
	return s.router
}

// Run listens on the configured address until ctx is cancelled, then shuts
// down gracefully.
func (s *Server) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.cfg.Server.Address())
	if err != nil {
		return fmt.Errorf("failed to listen: %w", err)
	}
	return s.Serve(ctx, ln)
}

// Serve is Run on an existing listener.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:      s.router,
		ReadTimeout:  s.cfg.Server.ReadTimeout,
		WriteTimeout: s.cfg.Server.WriteTimeout,
		IdleTimeout:  120 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		s.logger.Info("server listening", "addr", ln.Addr().String())
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()

	select {
	case err := <-serverErr:
		if err != nil {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.Server.ShutdownTimeout)
	defer cancel()

	s.logger.Info("shutting down server", "timeout", s.cfg.Server.ShutdownTimeout)
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown error: %w", err)
	}
	s.logger.Info("server stopped")
	return nil
}

// Close stops background goroutines (result store cleanup).
func (s *Server) Close() {
	if s.results != nil {
		s.results.Stop()
	}
}
