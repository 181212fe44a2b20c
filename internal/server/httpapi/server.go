// Package httpapi exposes the note service over a JSON HTTP API: account
// registration and login, refresh-token rotation, and per-user note CRUD
// used by the client's sync queue.
package httpapi

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/Evermishka/notes-app/internal/logging"
	"github.com/Evermishka/notes-app/internal/server/config"
	"github.com/Evermishka/notes-app/internal/server/services"
)

type Server struct {
	address   string
	users     *services.UserService
	notes     *services.NoteService
	logger    logging.Logger
	jwtSecret []byte
}

func NewServer(cfg *config.Config, l logging.Logger, us *services.UserService, ns *services.NoteService) *Server {
	return &Server{
		address:   cfg.EndpointAddr,
		users:     us,
		notes:     ns,
		logger:    l.With("module", "http_server"),
		jwtSecret: []byte(cfg.SecretKey),
	}
}

// router assembles the gin engine; split out so tests can drive it with
// httptest without binding a port.
func (s *Server) router() *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery(), s.requestLogger())

	api := r.Group("/api")
	api.GET("/ping", s.handlePing)
	api.POST("/register", s.handleRegister)
	api.POST("/login", s.handleLogin)
	api.POST("/refresh", s.handleRefresh)

	authed := api.Group("/")
	authed.Use(s.authRequired())
	authed.GET("/notes", s.handleListNotes)
	authed.POST("/notes", s.handleUpsertNote)
	authed.PUT("/notes/:id", s.handleUpsertNote)
	authed.DELETE("/notes/:id", s.handleDeleteNote)

	return r
}

// Run serves the API until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:    s.address,
		Handler: s.router(),
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	s.logger.Info(ctx, "Starting HTTP server", "address", s.address)

	select {
	case <-ctx.Done():
		s.logger.Info(ctx, "Stopping HTTP server...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}

func (s *Server) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		s.logger.Debug(c.Request.Context(), "request",
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"duration", time.Since(start),
		)
	}
}
