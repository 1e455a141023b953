// Package web exposes the tasky services as a JSON HTTP API.
package web

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/colonyops/tasky/internal/tasky"
)

const maxBodySize = 1 << 20 // 1MB

// Options configures the HTTP server lifecycle.
type Options struct {
	Addr            string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
}

// Server is the tasky HTTP API.
type Server struct {
	app    *tasky.App
	router *gin.Engine
	log    zerolog.Logger
}

// NewServer creates the router and registers every route.
func NewServer(app *tasky.App, log zerolog.Logger) *Server {
	router := gin.New()

	s := &Server{
		app:    app,
		router: router,
		log:    log.With().Str("component", "web").Logger(),
	}

	router.Use(s.requestLogger(), s.recovery(), limitBody(maxBodySize))
	router.NoRoute(func(c *gin.Context) {
		fail(c, http.StatusNotFound, "Not found")
	})

	api := router.Group("/api")
	{
		api.GET("/ping", s.handlePing)

		api.POST("/generate", s.handleGenerate)
		api.POST("/break-down-task", s.handleBreakdown)

		api.GET("/tasks", s.handleListTasks)
		api.GET("/tasks/:id", s.handleGetTask)
		api.PATCH("/tasks/:id/status", s.handleUpdateTaskStatus)
		api.DELETE("/tasks/:id", s.handleDeleteTask)

		api.PATCH("/subtasks/:id/status", s.handleUpdateSubtaskStatus)

		api.POST("/users", s.handleCreateUser)
		api.GET("/users/:id", s.handleGetUser)
	}

	return s
}

// Handler returns the router as an http.Handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Run serves until ctx is cancelled, then drains in-flight requests for up
// to opts.ShutdownTimeout.
func (s *Server) Run(ctx context.Context, opts Options) error {
	srv := &http.Server{
		Addr:         opts.Addr,
		Handler:      s.router,
		ReadTimeout:  opts.ReadTimeout,
		WriteTimeout: opts.WriteTimeout,
		BaseContext:  func(net.Listener) context.Context { return ctx },
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.Info().Str("addr", opts.Addr).Msg("listening")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("listen: %w", err)
	case <-ctx.Done():
	}

	s.log.Info().Msg("shutting down")

	// ctx is already done; draining gets its own deadline.
	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), opts.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}
