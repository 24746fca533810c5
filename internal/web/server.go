package web

import (
	"context"
	"embed"
	"errors"
	"html/template"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/cors"
	"github.com/rs/zerolog/log"

	"task-planner/internal/service"
)

//go:embed templates/*.html
var templatesFS embed.FS

const shutdownTimeout = 10 * time.Second

// Server is the task planner web front-end.
type Server struct {
	tasks   *service.TaskService
	router  *gin.Engine
	handler http.Handler
}

// NewServer creates a new web server over the task surface.
func NewServer(tasks *service.TaskService) *Server {
	router := gin.New()
	router.Use(gin.Recovery(), requestLogger())

	s := &Server{
		tasks:  tasks,
		router: router,
	}

	router.SetHTMLTemplate(template.Must(template.New("").ParseFS(templatesFS, "templates/*.html")))

	// Web routes
	router.GET("/", s.handleIndex)
	router.GET("/tasks/", s.handleList)
	router.GET("/tasks/create/", s.handleCreateForm)
	router.POST("/tasks/create/", s.handleCreate)
	router.GET("/tasks/:id/edit/", s.handleEditForm)
	router.POST("/tasks/:id/edit/", s.handleEdit)
	router.GET("/tasks/:id/delete/", s.handleDeleteConfirm)
	router.POST("/tasks/:id/delete/", s.handleDelete)
	router.POST("/tasks/:id/toggle/", s.handleToggle)
	router.GET("/healthz", func(c *gin.Context) { c.String(http.StatusOK, "ok") })

	// API routes
	api := router.Group("/api")
	{
		api.GET("/tasks", s.handleAPIList)
		api.GET("/tasks/:id", s.handleAPIGet)
	}

	router.NoRoute(s.notFound)

	s.handler = cors.New(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Content-Type"},
	}).Handler(router)

	return s
}

// Handler returns the http.Handler serving every route.
func (s *Server) Handler() http.Handler {
	return s.handler
}

// Run serves on addr until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", addr).Msg("web server listening")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	log.Info().Msg("web server stopped")
	return nil
}

func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		log.Debug().
			Str("method", c.Request.Method).
			Str("path", c.Request.URL.Path).
			Int("status", c.Writer.Status()).
			Dur("latency", time.Since(start)).
			Msg("http request")
	}
}
